package tracing

import (
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrorType 错误分类，写入 span 的 error.type 属性
type ErrorType string

const (
	ErrorTypeHTTP           ErrorType = "http"
	ErrorTypeDB             ErrorType = "db"
	ErrorTypeRedis          ErrorType = "redis"
	ErrorTypeRabbitMQ       ErrorType = "rabbitmq"
	ErrorTypeStorage        ErrorType = "object_storage"
	ErrorTypeExtraction     ErrorType = "extraction"
	ErrorTypeDataConversion ErrorType = "data_conversion"
	ErrorTypeValidation     ErrorType = "validation"
	ErrorTypeInternal       ErrorType = "internal"
	ErrorTypeTimeout        ErrorType = "timeout"
)

// markError 统一设置 error.type / error.message 并把 span 状态置为 Error
func markError(span trace.Span, errorType ErrorType, msg string, attrs ...attribute.KeyValue) {
	span.SetAttributes(
		attribute.String("error.type", string(errorType)),
		attribute.String("error.message", Truncate(msg, DefaultMaxLength)),
	)
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	span.SetStatus(codes.Error, msg)
}

// RecordError 记录错误事件并按类型标记 span，附加属性可选
func RecordError(span trace.Span, err error, errorType ErrorType, attrs ...attribute.KeyValue) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	markError(span, errorType, err.Error(), attrs...)
}

// RecordHTTPError 记录错误响应。状态码总是写入；
// 4xx 只在有 err 时标记为错误，5xx 总是标记。
func RecordHTTPError(span trace.Span, err error, statusCode int) {
	if span == nil {
		return
	}
	span.SetAttributes(attribute.Int("http.status_code", statusCode))

	category := "client_error"
	if statusCode >= 500 {
		category = "server_error"
	}
	if err == nil {
		if statusCode < 500 {
			return
		}
		markError(span, ErrorTypeHTTP, category, attribute.String("error.category", category))
		return
	}
	span.RecordError(err)
	markError(span, ErrorTypeHTTP, err.Error(), attribute.String("error.category", category))
}

// RecordMessageRejected 记录消费端拒绝消息（不重新入队）
func RecordMessageRejected(span trace.Span, messageID, reason string) {
	if span == nil {
		return
	}
	if reason == "" {
		reason = "message rejected"
	}
	markError(span, ErrorTypeRabbitMQ, reason,
		attribute.String("messaging.message_id", messageID),
		attribute.String("messaging.error_type", "reject"),
	)
}

// RecordMessageTimeout 记录消息处理超出时限
func RecordMessageTimeout(span trace.Span, messageID string, timeout time.Duration) {
	if span == nil {
		return
	}
	markError(span, ErrorTypeTimeout, "message processing exceeded "+timeout.String(),
		attribute.String("messaging.message_id", messageID),
		attribute.String("messaging.error_type", "timeout"),
	)
}
