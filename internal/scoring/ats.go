package scoring

import (
	"sort"
	"time"

	"github.com/rs/zerolog"

	"smarthire-ats/internal/catalog"
	"smarthire-ats/internal/config"
	"smarthire-ats/internal/logger"
	"smarthire-ats/internal/nlp"
	"smarthire-ats/internal/types"
)

// ATSScorer 计算 ATS 总分、缺失技能、关键词密度和合规问题
type ATSScorer struct {
	policy           FullATS
	compliance       *ComplianceChecker
	experience       ExperienceScorer
	ladder           []config.DegreeLevel
	densityThreshold float64
	qualifiedRatio   float64
	minPhraseLen     int

	catalog  *catalog.Catalog
	analyzer nlp.Analyzer
	now      func() time.Time
	logger   zerolog.Logger
}

// ATSOption ATSScorer 的配置选项
type ATSOption func(*ATSScorer)

// WithAnalyzer 替换 JD 关键词提取使用的分析器
func WithAnalyzer(a nlp.Analyzer) ATSOption {
	return func(s *ATSScorer) {
		s.analyzer = a
	}
}

// WithClock 替换当前时间来源，测试使用
func WithClock(now func() time.Time) ATSOption {
	return func(s *ATSScorer) {
		if now != nil {
			s.now = now
		}
	}
}

// WithATSLogger 配置自定义日志记录器
func WithATSLogger(l zerolog.Logger) ATSOption {
	return func(s *ATSScorer) {
		s.logger = l
	}
}

// NewATSScorer 根据评分配置创建评分器，权重不合法时返回包装 ErrInvalidConfig 的错误
func NewATSScorer(cfg config.ScoringConfig, cat *catalog.Catalog, opts ...ATSOption) (*ATSScorer, error) {
	policy, err := NewFullATS(cfg.Weights)
	if err != nil {
		return nil, err
	}

	s := &ATSScorer{
		policy:           policy,
		compliance:       NewComplianceChecker(cfg),
		ladder:           cfg.DegreeLadder,
		densityThreshold: cfg.DensityThreshold,
		qualifiedRatio:   cfg.QualifiedRatio,
		minPhraseLen:     cfg.MinKeywordPhraseLength,
		catalog:          cat,
		analyzer:         nlp.NewProseAnalyzer(),
		now:              time.Now,
		logger:           logger.Component("scoring"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.experience = NewExperienceScorer(cfg.Recency, cfg.ExperienceNormYears, s.now)
	return s, nil
}

// Policy 返回评分器使用的策略
func (s *ATSScorer) Policy() FullATS { return s.policy }

// Score 填充 record 的评分相关字段。record 的 RawText/Skills/Experience/Education 需已就绪。
// jobDescription 为空时跳过与职位相关的部分：技能分为 0，
// missing_skills 和 keyword_matches 保持为空，总分由其余三项组成。
func (s *ATSScorer) Score(record *types.ResumeRecord, sections types.SectionMap, jobDescription string, diags *types.Diagnostics) {
	if record == nil {
		return
	}

	compliance := s.compliance.Check(record.RawText, sections)
	record.ComplianceIssues = compliance.Issues

	bd := types.ScoreBreakdown{
		ExperienceScore: s.experience.Score(record.Experience),
		EducationScore:  EducationScore(record.Education, s.ladder),
		ComplianceScore: compliance.Score,
		WordCount:       compliance.WordCount,
		JobKeywords:     []string{},
	}
	record.MissingSkills = []string{}
	record.KeywordMatches = map[string]types.KeywordMatch{}

	if jobDescription == "" {
		diags.Add(types.StageScore, "no_job_description", "未提供职位描述，跳过技能匹配")
	} else {
		keywords, err := ExtractJobKeywords(jobDescription, s.analyzer, s.catalog, s.minPhraseLen)
		if err != nil {
			diags.Add(types.StageNLP, "keywords_failed", "JD 关键词提取失败，仅使用目录技能: %v", err)
			s.logger.Warn().Err(err).Msg("JD 关键词提取失败")
		}
		bd.JobKeywords = keywords
		bd.SkillScore = SkillScore(record.Skills, keywords, s.catalog)

		density := KeywordDensity(record.RawText, keywords, s.densityThreshold, s.qualifiedRatio)
		record.KeywordMatches = density.Matches
		bd.MatchRatio = density.MatchRatio
		bd.Qualified = density.Qualified

		record.MissingSkills = s.missingSkills(record.Skills, jobDescription)
	}

	record.Breakdown = bd
	record.ATSScore = s.policy.Combine(bd.SkillScore, bd.ExperienceScore, bd.EducationScore, bd.ComplianceScore)

	s.logger.Debug().
		Float64("ats_score", record.ATSScore).
		Float64("skill", bd.SkillScore).
		Float64("experience", bd.ExperienceScore).
		Float64("education", bd.EducationScore).
		Float64("compliance", bd.ComplianceScore).
		Int("keywords", len(bd.JobKeywords)).
		Msg("ATS 评分完成")
}

// missingSkills JD 中识别出的目录技能减去简历已有技能，按名称排序
func (s *ATSScorer) missingSkills(have []types.SkillEntry, jobDescription string) []string {
	missing := []string{}
	if s.catalog == nil {
		return missing
	}
	owned := make(map[string]struct{}, len(have))
	for _, sk := range have {
		owned[sk.Name] = struct{}{}
	}
	for _, name := range s.catalog.ScanNames(jobDescription) {
		if _, ok := owned[name]; !ok {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}
