package fields

import (
	"regexp"
	"strings"

	"smarthire-ats/internal/types"
)

var (
	degreeRegex      = regexp.MustCompile(`(?i)\b(ph\.?\s?d|doctor\w*|master\w*|mba|m\.?sc|bachelor\w*|b\.?sc|b\.?a|b\.?s|associate\w*|diploma\w*|certificate\w*)\b`)
	institutionRegex = regexp.MustCompile(`(?i)(university|college|institute|school|academy|polytechnic)`)
	yearRegex        = regexp.MustCompile(`\b(?:19|20)\d{2}\b`)
)

// ExtractEducation 按行扫描教育章节：含学位关键词的行开始新条目，
// 含院校关键词的行设置 institution（取 "|" 之前的文本），
// 条目内最后出现的四位年份作为 year。
func ExtractEducation(section string) []types.EducationEntry {
	entries := []types.EducationEntry{}
	var (
		cur  types.EducationEntry
		open bool
	)
	flush := func() {
		if open {
			entries = append(entries, cur)
		}
		cur, open = types.EducationEntry{}, false
	}

	for _, raw := range strings.Split(section, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if degreeRegex.MatchString(line) {
			flush()
			cur.Degree = line
			open = true
		} else if institutionRegex.MatchString(line) && cur.Institution == "" {
			inst := line
			if idx := strings.Index(inst, "|"); idx >= 0 {
				inst = inst[:idx]
			}
			cur.Institution = strings.TrimSpace(inst)
			open = true
		}

		if open {
			if years := yearRegex.FindAllString(line, -1); len(years) > 0 {
				cur.Year = years[len(years)-1]
			}
		}
	}
	flush()
	return entries
}
