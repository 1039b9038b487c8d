package fields

import (
	"regexp"
	"strings"

	"smarthire-ats/internal/types"
)

// 职位关键词，命中即开始一条新的经历
var roleKeywords = []string{"developer", "engineer", "manager", "analyst", "specialist", "scientist"}

var (
	dateRangeRegex = regexp.MustCompile(`(?i)((?:19|20)\d{2})\s*[-–—]+\s*(present|current|now|(?:19|20)\d{2})`)
	atRegex        = regexp.MustCompile(`(?i)\sat\s`)
)

// ExperienceExtractor 经历提取接口，便于以后替换为更好的实现
type ExperienceExtractor interface {
	ExtractExperience(section string) []types.ExperienceEntry
}

// LineScanExperience 单遍行扫描的经历提取规则：
//   - 含职位关键词的行开始新条目并作为 title
//   - 含 " at " 的行在 company 为空时取最后一个 " at " 之后的文本
//   - 含 "YYYY - YYYY|Present" 的行设置 duration/start/end，
//     company 仍为空且行内有 "|" 时取第一个 "|" 之前的文本
//   - 其余行追加到当前条目的 description
type LineScanExperience struct{}

// ExtractExperience 实现 ExperienceExtractor
func (LineScanExperience) ExtractExperience(section string) []types.ExperienceEntry {
	return ExtractExperience(section)
}

// ExtractExperience 按行扫描经历章节，条目顺序与原文一致
func ExtractExperience(section string) []types.ExperienceEntry {
	entries := []types.ExperienceEntry{}
	var (
		cur  types.ExperienceEntry
		open bool
		desc []string
	)
	flush := func() {
		if open {
			cur.Description = strings.Join(desc, "\n")
			entries = append(entries, cur)
		}
		cur, open, desc = types.ExperienceEntry{}, false, nil
	}

	for _, raw := range strings.Split(section, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)

		switch {
		case containsAny(lower, roleKeywords):
			flush()
			cur.Title = line
			open = true

		case atRegex.MatchString(line) && cur.Company == "":
			locs := atRegex.FindAllStringIndex(line, -1)
			cur.Company = strings.TrimSpace(line[locs[len(locs)-1][1]:])
			open = true

		case dateRangeRegex.MatchString(line):
			m := dateRangeRegex.FindStringSubmatch(line)
			cur.Duration = line
			cur.Start = m[1]
			cur.End = normalizeEnd(m[2])
			if cur.Company == "" {
				if idx := strings.Index(line, "|"); idx > 0 {
					cur.Company = strings.TrimSpace(line[:idx])
				}
			}
			open = true

		default:
			if open {
				desc = append(desc, line)
			}
		}
	}
	flush()
	return entries
}

func normalizeEnd(end string) string {
	switch strings.ToLower(end) {
	case "present", "current", "now":
		return "Present"
	}
	return end
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
