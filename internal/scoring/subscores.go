package scoring

import (
	"strconv"
	"strings"
	"time"

	"smarthire-ats/internal/catalog"
	"smarthire-ats/internal/config"
	"smarthire-ats/internal/types"
)

// SkillScore 简历技能与 JD 关键词的交集占关键词的百分比，上限 100。
// 技能按规范名和目录同义词两种形式参与比较。
func SkillScore(skills []types.SkillEntry, jobKeywords []string, cat *catalog.Catalog) float64 {
	if len(skills) == 0 || len(jobKeywords) == 0 {
		return 0
	}

	have := skillForms(skills, cat)
	keywords := dedupeLower(jobKeywords)
	matched := 0
	for _, kw := range keywords {
		if _, ok := have[kw]; ok {
			matched++
		}
	}
	score := float64(matched) / float64(len(keywords)) * 100
	if score > 100 {
		score = 100
	}
	return score
}

// skillForms 技能的小写规范名和同义词集合
func skillForms(skills []types.SkillEntry, cat *catalog.Catalog) map[string]struct{} {
	forms := make(map[string]struct{}, len(skills))
	for _, s := range skills {
		forms[strings.ToLower(s.Name)] = struct{}{}
		if cat == nil {
			continue
		}
		for _, syn := range cat.Synonyms(s.Name) {
			forms[catalog.Normalize(syn)] = struct{}{}
		}
	}
	return forms
}

// ExperienceScorer 按时间衰减加权累计工作年限
type ExperienceScorer struct {
	recency   config.RecencyConfig
	normYears float64
	now       func() time.Time
}

// NewExperienceScorer now 为 nil 时使用 time.Now
func NewExperienceScorer(recency config.RecencyConfig, normYears float64, now func() time.Time) ExperienceScorer {
	if now == nil {
		now = time.Now
	}
	return ExperienceScorer{recency: recency, normYears: normYears, now: now}
}

// Score 每段经历的年限乘以时间权重后累加，除以 normYears 换算为 0-100。
// start 无法解析或区间为负的条目跳过，end 为空或 Present 视为当前年份。
func (e ExperienceScorer) Score(entries []types.ExperienceEntry) float64 {
	if len(entries) == 0 || e.normYears <= 0 {
		return 0
	}

	current := e.now().Year()
	total := 0.0
	for _, exp := range entries {
		start, ok := parseYear(exp.Start)
		if !ok {
			continue
		}
		end := current
		if exp.End != "" && !strings.EqualFold(exp.End, "present") {
			if end, ok = parseYear(exp.End); !ok {
				continue
			}
		}
		years := end - start
		if years < 0 {
			continue
		}
		total += float64(years) * e.weight(current-end)
	}

	score := total / e.normYears * 100
	if score > 100 {
		return 100
	}
	return score
}

func (e ExperienceScorer) weight(age int) float64 {
	switch {
	case age <= e.recency.RecentYears:
		return e.recency.RecentWeight
	case age <= e.recency.MiddleYears:
		return e.recency.MiddleWeight
	default:
		return e.recency.OldWeight
	}
}

func parseYear(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 4 {
		return 0, false
	}
	y, err := strconv.Atoi(s[:4])
	if err != nil {
		return 0, false
	}
	return y, true
}

// EducationScore 学历阶梯中的最高分。每个学位只取阶梯里第一个命中的关键词，
// 比较前去掉学位中的 "."，使 "Ph.D." 能命中 "phd"。
func EducationScore(entries []types.EducationEntry, ladder []config.DegreeLevel) float64 {
	best := 0.0
	for _, edu := range entries {
		degree := strings.ReplaceAll(strings.ToLower(edu.Degree), ".", "")
		for _, level := range ladder {
			if strings.Contains(degree, strings.ToLower(level.Keyword)) {
				if level.Score > best {
					best = level.Score
				}
				break
			}
		}
	}
	return best
}
