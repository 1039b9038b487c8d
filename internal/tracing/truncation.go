package tracing

import (
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

const (
	// DefaultMaxLength 默认最大属性长度
	DefaultMaxLength = 200

	// MaxSQLLength SQL语句最大长度
	MaxSQLLength = 500

	// MaxRedisKeyLength Redis键最大长度
	MaxRedisKeyLength = 100

	// MaxJobDescriptionLength 职位描述最大长度
	MaxJobDescriptionLength = 120
)

// sensitiveKeys 属性名包含这些片段时值需要掩码
var sensitiveKeys = []string{
	"email", "phone", "name", "password", "secret", "token", "api_key",
	"邮箱", "电话", "姓名",
}

// IsSensitive 属性名是否指向候选人隐私或凭据
func IsSensitive(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// SafeAttribute 构造 span 属性：敏感字段掩码，其余按 DefaultMaxLength 截断
func SafeAttribute(key, value string) attribute.KeyValue {
	if IsSensitive(key) {
		return attribute.String(key, Mask(value))
	}
	return attribute.String(key, Truncate(value, DefaultMaxLength))
}

// Mask 掩码处理。邮箱保留首字符和域名，其余保留首尾各一个字符。
//
//	"jane.doe@example.com" -> "j*******@example.com"
//	"13812345678"          -> "1*********8"
//	"张三"                  -> "张*"
func Mask(value string) string {
	if value == "" {
		return ""
	}

	if at := strings.LastIndex(value, "@"); at > 0 {
		local := []rune(value[:at])
		return string(local[0]) + strings.Repeat("*", len(local)-1) + value[at:]
	}

	runes := []rune(value)
	switch n := len(runes); {
	case n == 1:
		return "*"
	case n == 2:
		return string(runes[0]) + "*"
	default:
		return string(runes[0]) + strings.Repeat("*", n-2) + string(runes[n-1])
	}
}

// Truncate 按字符截断，超出部分用 "...(+N)" 标注被省略的字符数
func Truncate(s string, maxLength int) string {
	if maxLength <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}
	return fmt.Sprintf("%s...(+%d)", string(runes[:maxLength]), len(runes)-maxLength)
}

// SafeSQL 截断SQL语句
func SafeSQL(sql string) string {
	return Truncate(sql, MaxSQLLength)
}

// SafeRedisKey 截断Redis键
func SafeRedisKey(key string) string {
	return Truncate(key, MaxRedisKeyLength)
}

// SafeJobDescription 截断职位描述，并把换行压成空格
func SafeJobDescription(jd string) string {
	return Truncate(strings.Join(strings.Fields(jd), " "), MaxJobDescriptionLength)
}
