// Package scoring ATS 评分、合规检查与简化版岗位匹配。
// 所有计算均为纯函数，评分器在构造后不可变，可并发使用。
package scoring

import (
	"fmt"
	"regexp"
	"strings"

	"smarthire-ats/internal/config"
	"smarthire-ats/internal/types"
)

var metricRegex = regexp.MustCompile(`\d+%|\$\d+|\d+\+`)

// ComplianceResult 合规检查结果
type ComplianceResult struct {
	Score     float64  `json:"score"`
	Issues    []string `json:"issues"`
	WordCount int      `json:"word_count"`
}

// ComplianceChecker 检查简历是否符合 ATS 的常见要求
type ComplianceChecker struct {
	maxWords    int
	penalty     float64
	actionVerbs []string
	required    []types.SectionName
}

// NewComplianceChecker 根据评分配置创建检查器
func NewComplianceChecker(cfg config.ScoringConfig) *ComplianceChecker {
	c := &ComplianceChecker{
		maxWords: cfg.MaxWordCount,
		penalty:  cfg.CompliancePenalty,
	}
	for _, v := range cfg.ActionVerbs {
		c.actionVerbs = append(c.actionVerbs, strings.ToLower(v))
	}
	for _, s := range cfg.RequiredSections {
		c.required = append(c.required, types.SectionName(s))
	}
	return c
}

// Check 对全文做四项独立检查，每项问题最多产生一条 issue：
// 字数超限、缺少必需章节（合并为一条）、没有行为动词、没有量化成果。
func (c *ComplianceChecker) Check(text string, sections types.SectionMap) ComplianceResult {
	issues := []string{}
	wordCount := len(strings.Fields(text))

	if wordCount > c.maxWords {
		issues = append(issues, fmt.Sprintf("Resume is too long (%d words, recommended max: %d)", wordCount, c.maxWords))
	}

	var missing []string
	for _, s := range c.required {
		if !sections.Has(s) {
			missing = append(missing, string(s))
		}
	}
	if len(missing) > 0 {
		issues = append(issues, "Missing recommended sections: "+strings.Join(missing, ", "))
	}

	lower := strings.ToLower(text)
	hasVerb := false
	for _, v := range c.actionVerbs {
		if strings.Contains(lower, v) {
			hasVerb = true
			break
		}
	}
	if !hasVerb {
		issues = append(issues, "Resume may lack action-oriented language")
	}

	if !metricRegex.MatchString(text) {
		issues = append(issues, "Consider adding quantifiable achievements")
	}

	return ComplianceResult{
		Score:     ComplianceScore(len(issues), c.penalty),
		Issues:    issues,
		WordCount: wordCount,
	}
}

// ComplianceScore max(0, 100 - penalty*issues)
func ComplianceScore(issueCount int, penalty float64) float64 {
	score := 100 - penalty*float64(issueCount)
	if score < 0 {
		return 0
	}
	return score
}
