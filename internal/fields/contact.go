// Package fields 从简历文本或章节中提取结构化字段。
// 经历和教育的提取是基于行扫描的启发式规则，不做语法分析。
package fields

import (
	"regexp"
	"strings"

	"smarthire-ats/internal/nlp"
	"smarthire-ats/internal/types"
)

// UnknownName 无法识别姓名时的占位值
const UnknownName = "Unknown"

// nameScanLines NER 只看前 10 行
const nameScanLines = 10

var (
	emailRegex = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	phoneRegex = regexp.MustCompile(`(\+\d{1,3}[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`)
)

// ExtractEmail 全文中第一个邮箱地址，没有时返回空字符串
func ExtractEmail(text string) string {
	return emailRegex.FindString(text)
}

// ExtractPhone 全文中第一个电话号码，没有时返回空字符串
func ExtractPhone(text string) string {
	return phoneRegex.FindString(text)
}

// ExtractName 对前 10 行做 NER，取第一个 PERSON 实体；
// 找不到时取第一个由 2 到 3 个词组成的行；都失败返回 "Unknown"。
// analyzer 为 nil 或出错时直接走行规则，并记录诊断。
func ExtractName(text string, analyzer nlp.Analyzer, diags *types.Diagnostics) string {
	lines := strings.Split(text, "\n")

	if analyzer != nil {
		head := lines
		if len(head) > nameScanLines {
			head = head[:nameScanLines]
		}
		analysis, err := analyzer.Analyze(strings.Join(head, "\n"))
		if err != nil {
			diags.Add(types.StageNLP, "ner_failed", "姓名识别失败，使用行规则: %v", err)
		} else if persons := analysis.EntitiesWithLabel("PERSON"); len(persons) > 0 {
			if name := strings.TrimSpace(persons[0]); name != "" {
				return name
			}
		}
	}

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if n := len(strings.Fields(line)); n == 2 || n == 3 {
			return line
		}
	}

	diags.Add(types.StageFields, "name_not_found", "未识别到姓名")
	return UnknownName
}
