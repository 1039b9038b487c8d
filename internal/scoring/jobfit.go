package scoring

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"smarthire-ats/internal/catalog"
	"smarthire-ats/internal/config"
	"smarthire-ats/internal/types"
)

var firstNumberRegex = regexp.MustCompile(`\d+`)

// maxCountedYears 单条 duration 中能计入的最大数字。
// "2019 - Present" 会取到 2019，这里只防止溢出，经验分最终仍封顶 100。
const maxCountedYears = 100

// JobFitCalculator 基于固定词表的简化版岗位匹配
type JobFitCalculator struct {
	policy       SimpleJobFit
	vocabulary   []string
	seniority    []config.SeniorityLevel
	defaultLevel int
	normYears    float64
	catalog      *catalog.Catalog
}

// JobFitOption JobFitCalculator 的配置选项
type JobFitOption func(*JobFitCalculator)

// WithJobFitCatalog 简历技能额外按目录同义词参与匹配，例如 "Node.js" 同时匹配词表中的 "node"
func WithJobFitCatalog(cat *catalog.Catalog) JobFitOption {
	return func(c *JobFitCalculator) {
		c.catalog = cat
	}
}

// NewJobFitCalculator 根据配置创建计算器
func NewJobFitCalculator(cfg config.JobFitConfig, opts ...JobFitOption) (*JobFitCalculator, error) {
	policy, err := NewSimpleJobFit(cfg.SkillWeight, cfg.ExperienceWeight)
	if err != nil {
		return nil, err
	}
	c := &JobFitCalculator{
		policy:       policy,
		seniority:    cfg.Seniority,
		defaultLevel: cfg.DefaultLevel,
		normYears:    cfg.ExperienceNormYears,
	}
	for _, v := range cfg.Vocabulary {
		c.vocabulary = append(c.vocabulary, strings.ToLower(v))
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Policy 返回计算器使用的策略
func (c *JobFitCalculator) Policy() SimpleJobFit { return c.policy }

// Calculate 计算简历与职位的匹配度。
// 职位技能为出现在 JD（小写）中的词表词，skill_match = |简历∩职位| / |职位| * 100；
// 经验分为各条经历 duration 中第一个整数之和 / normYears * 100，封顶 100。
// JD 为空时返回全零结果。
func (c *JobFitCalculator) Calculate(skills []string, experience []types.ExperienceEntry, jobTitle, jobDescription string) *types.JobFitResult {
	result := types.NewEmptyJobFit()
	if strings.TrimSpace(jobDescription) == "" {
		return result
	}

	jdLower := strings.ToLower(jobDescription)
	jobSkills := map[string]struct{}{}
	for _, term := range c.vocabulary {
		if strings.Contains(jdLower, term) {
			jobSkills[term] = struct{}{}
		}
	}

	have := c.resumeSkillForms(skills)
	for term := range jobSkills {
		if _, ok := have[term]; ok {
			result.MatchedSkills = append(result.MatchedSkills, term)
		} else {
			result.MissingSkills = append(result.MissingSkills, term)
		}
	}
	sort.Strings(result.MatchedSkills)
	sort.Strings(result.MissingSkills)

	skillMatch := 0.0
	if len(jobSkills) > 0 {
		skillMatch = float64(len(result.MatchedSkills)) / float64(len(jobSkills)) * 100
	}

	result.JobLevel = c.jobLevel(strings.ToLower(jobTitle), jdLower)

	expMatch := 0.0
	if len(experience) > 0 {
		expMatch = math.Min(float64(durationYears(experience))/c.normYears*100, 100)
	}

	result.SkillMatch = roundTo(skillMatch, 1)
	result.ExperienceMatch = roundTo(expMatch, 1)
	result.Score = c.policy.Combine(skillMatch, expMatch)
	return result
}

func (c *JobFitCalculator) resumeSkillForms(skills []string) map[string]struct{} {
	forms := make(map[string]struct{}, len(skills))
	for _, s := range skills {
		forms[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
		if c.catalog == nil {
			continue
		}
		entry, ok := c.catalog.Lookup(s)
		if !ok {
			continue
		}
		forms[strings.ToLower(entry.Name)] = struct{}{}
		for _, syn := range c.catalog.Synonyms(entry.Name) {
			forms[catalog.Normalize(syn)] = struct{}{}
		}
	}
	return forms
}

// jobLevel 按职级关键词顺序扫描，第一个出现在职位名或描述中的关键词决定职级
func (c *JobFitCalculator) jobLevel(title, description string) int {
	for _, s := range c.seniority {
		kw := strings.ToLower(s.Keyword)
		if strings.Contains(title, kw) || strings.Contains(description, kw) {
			return s.Level
		}
	}
	return c.defaultLevel
}

// durationYears 各条经历 duration 中第一个整数之和
func durationYears(entries []types.ExperienceEntry) int {
	total := 0
	for _, e := range entries {
		m := firstNumberRegex.FindString(e.Duration)
		if m == "" {
			continue
		}
		n, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		if n > maxCountedYears {
			n = maxCountedYears
		}
		total += n
	}
	return total
}
