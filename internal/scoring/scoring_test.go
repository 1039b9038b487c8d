package scoring

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smarthire-ats/internal/catalog"
	"smarthire-ats/internal/config"
	"smarthire-ats/internal/nlp"
	"smarthire-ats/internal/types"
)

func defaultScoring() config.ScoringConfig {
	return config.DefaultConfig().Scoring
}

func fixedClock(year int) func() time.Time {
	return func() time.Time { return time.Date(year, time.June, 1, 0, 0, 0, 0, time.UTC) }
}

func allSections() types.SectionMap {
	return types.SectionMap{
		types.SectionExperience: "x",
		types.SectionEducation:  "x",
		types.SectionSkills:     "x",
	}
}

func TestComplianceScore_Monotonic(t *testing.T) {
	prev := ComplianceScore(0, 10)
	assert.Equal(t, 100.0, prev)
	for n := 1; n <= 12; n++ {
		got := ComplianceScore(n, 10)
		assert.LessOrEqual(t, got, prev, "issues=%d", n)
		assert.GreaterOrEqual(t, got, 0.0)
		prev = got
	}
	assert.Equal(t, 0.0, ComplianceScore(10, 10))
	assert.Equal(t, 0.0, ComplianceScore(12, 10))
	assert.Equal(t, 70.0, ComplianceScore(3, 10))
}

func TestComplianceChecker_Check(t *testing.T) {
	checker := NewComplianceChecker(defaultScoring())

	t.Run("全部通过", func(t *testing.T) {
		res := checker.Check("Led a team and improved latency by 30%", allSections())
		assert.Equal(t, 100.0, res.Score)
		assert.Empty(t, res.Issues)
		assert.Equal(t, 8, res.WordCount)
	})

	t.Run("缺章节合并为一条", func(t *testing.T) {
		res := checker.Check("Managed $200 budget", types.SectionMap{types.SectionSkills: "Go"})
		require.Len(t, res.Issues, 1)
		assert.Equal(t, "Missing recommended sections: experience, education", res.Issues[0])
		assert.Equal(t, 90.0, res.Score)
	})

	t.Run("空文本", func(t *testing.T) {
		res := checker.Check("", nil)
		assert.Equal(t, []string{
			"Missing recommended sections: experience, education, skills",
			"Resume may lack action-oriented language",
			"Consider adding quantifiable achievements",
		}, res.Issues)
		assert.Equal(t, 70.0, res.Score)
		assert.Equal(t, 0, res.WordCount)
	})

	t.Run("超长", func(t *testing.T) {
		cfg := defaultScoring()
		cfg.MaxWordCount = 3
		res := NewComplianceChecker(cfg).Check("developed 5+ things quickly", allSections())
		require.Len(t, res.Issues, 1)
		assert.Equal(t, "Resume is too long (4 words, recommended max: 3)", res.Issues[0])
	})
}

func TestKeywordDensity(t *testing.T) {
	res := KeywordDensity("Python python Java machine learning", []string{"Python", "machine learning", "rust", "python"}, 0.5, 0.7)

	assert.Equal(t, 5, res.WordCount)
	require.Len(t, res.Matches, 3)
	assert.Equal(t, types.KeywordMatch{Count: 2, Density: 40, MatchesRequired: true}, res.Matches["python"])
	assert.Equal(t, types.KeywordMatch{Count: 1, Density: 20, MatchesRequired: true}, res.Matches["machine learning"])
	assert.Equal(t, types.KeywordMatch{Count: 0, Density: 0, MatchesRequired: false}, res.Matches["rust"])
	assert.InDelta(t, 2.0/3.0, res.MatchRatio, 1e-9)
	assert.False(t, res.Qualified)

	res = KeywordDensity("", []string{"go"}, 0.5, 0.7)
	assert.Empty(t, res.Matches)
	assert.NotNil(t, res.Matches)
	assert.False(t, res.Qualified)
}

func TestKeywordDensity_SymbolSkillsAreDistinct(t *testing.T) {
	res := KeywordDensity("Senior C# developer building .NET services in C#.", []string{"c++", "c#", ".net", "c"}, 0.5, 0.7)

	assert.Equal(t, 8, res.WordCount)
	assert.Equal(t, types.KeywordMatch{Count: 0, Density: 0, MatchesRequired: false}, res.Matches["c++"])
	assert.Equal(t, types.KeywordMatch{Count: 2, Density: 25, MatchesRequired: true}, res.Matches["c#"])
	assert.Equal(t, types.KeywordMatch{Count: 1, Density: 12.5, MatchesRequired: true}, res.Matches[".net"])
	assert.Equal(t, 0, res.Matches["c"].Count)
	assert.InDelta(t, 0.5, res.MatchRatio, 1e-9)
	assert.False(t, res.Qualified)
}

func TestKeywordDensity_RoundsToFourPlaces(t *testing.T) {
	res := KeywordDensity("go a b c d e f", []string{"go"}, 0.5, 0.7)
	assert.Equal(t, 14.2857, res.Matches["go"].Density)
	assert.True(t, res.Qualified)
}

func TestExtractJobKeywords(t *testing.T) {
	cat := catalog.MustDefault()
	analyzer := nlp.AnalyzerFunc(func(text string) (nlp.Analysis, error) {
		assert.Equal(t, "senior engineer at acme, docker required", text)
		return nlp.Analysis{
			NounChunks: []string{"senior engineer", "ai", "distributed systems"},
			Entities: []nlp.Entity{
				{Text: "Acme", Label: "ORG"},
				{Text: "Paris", Label: "GPE"},
			},
		}, nil
	})

	got, err := ExtractJobKeywords("Senior engineer at Acme, Docker required", analyzer, cat, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"acme", "distributed systems", "docker", "senior engineer"}, got)

	failing := nlp.AnalyzerFunc(func(string) (nlp.Analysis, error) { return nlp.Analysis{}, errors.New("boom") })
	got, err = ExtractJobKeywords("Docker and Kubernetes", failing, cat, 2)
	assert.Error(t, err)
	assert.Equal(t, []string{"docker", "kubernetes"}, got)

	got, err = ExtractJobKeywords("   ", analyzer, cat, 2)
	assert.NoError(t, err)
	assert.Empty(t, got)
}

func TestSkillScore(t *testing.T) {
	cat := catalog.MustDefault()
	skills := []types.SkillEntry{{Name: "Go"}, {Name: "Docker"}}

	assert.Equal(t, 50.0, SkillScore(skills, []string{"go", "kubernetes"}, nil))
	assert.Equal(t, 100.0, SkillScore(skills, []string{"golang", "Docker"}, cat), "同义词参与比较")
	assert.Equal(t, 0.0, SkillScore(nil, []string{"go"}, cat))
	assert.Equal(t, 0.0, SkillScore(skills, nil, cat))
}

func TestExperienceScore_RecencyBoundaries(t *testing.T) {
	cfg := defaultScoring()
	scorer := NewExperienceScorer(cfg.Recency, cfg.ExperienceNormYears, fixedClock(2026))

	cases := []struct {
		name  string
		entry types.ExperienceEntry
		want  float64
	}{
		{"恰好 2 年前结束取 1.2", types.ExperienceEntry{Start: "2020", End: "2024"}, 48},
		{"3 年前结束取 1.0", types.ExperienceEntry{Start: "2019", End: "2023"}, 40},
		{"恰好 5 年前结束取 1.0", types.ExperienceEntry{Start: "2017", End: "2021"}, 40},
		{"6 年前结束取 0.7", types.ExperienceEntry{Start: "2016", End: "2020"}, 28},
		{"Present 视为当前年份", types.ExperienceEntry{Start: "2023", End: "Present"}, 36},
		{"end 为空视为当前年份", types.ExperienceEntry{Start: "2024"}, 24},
		{"start 无法解析时跳过", types.ExperienceEntry{Start: "", End: "2020"}, 0},
		{"负区间跳过", types.ExperienceEntry{Start: "2022", End: "2020"}, 0},
		{"封顶 100", types.ExperienceEntry{Start: "1990", End: "Present"}, 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, scorer.Score([]types.ExperienceEntry{tc.entry}), 1e-9)
		})
	}

	assert.Equal(t, 0.0, scorer.Score(nil))
}

func TestEducationScore(t *testing.T) {
	ladder := defaultScoring().DegreeLadder

	assert.Equal(t, 0.0, EducationScore(nil, ladder))
	assert.Equal(t, 100.0, EducationScore([]types.EducationEntry{{Degree: "Ph.D. in Physics"}}, ladder))
	assert.Equal(t, 80.0, EducationScore([]types.EducationEntry{
		{Degree: "Diploma in Design"},
		{Degree: "Bachelor's in Economics"},
	}, ladder))
	assert.Equal(t, 90.0, EducationScore([]types.EducationEntry{{Degree: "MASTER of Science"}}, ladder))
	assert.Equal(t, 0.0, EducationScore([]types.EducationEntry{{Degree: "High school"}}, ladder))
}

func TestEducationScore_DegreeAbbreviations(t *testing.T) {
	ladder := defaultScoring().DegreeLadder

	cases := []struct {
		degree string
		want   float64
	}{
		{"B.Sc. Computer Science", 80},
		{"BSc (Hons) Mathematics", 80},
		{"M.Sc. Data Science", 90},
		{"MBA", 90},
		{"Doctor of Philosophy", 100},
		{"Diploma in Database Administration", 50},
		{"B.A. History", 0},
	}
	for _, tc := range cases {
		t.Run(tc.degree, func(t *testing.T) {
			assert.Equal(t, tc.want, EducationScore([]types.EducationEntry{{Degree: tc.degree}}, ladder))
		})
	}
}

func TestFullATS_Combine(t *testing.T) {
	p, err := NewFullATS(defaultScoring().Weights)
	require.NoError(t, err)

	assert.Equal(t, 78.0, p.Combine(80, 60, 90, 100))
	assert.Equal(t, 100.0, p.Combine(100, 100, 100, 100))
	assert.Equal(t, 0.0, p.Combine(0, 0, 0, 0))
	assert.Equal(t, 33.33, p.Combine(33.333, 33.333, 33.333, 33.333))
	assert.Equal(t, "full_ats", p.Name())
}

func TestNewFullATS_InvalidWeights(t *testing.T) {
	_, err := NewFullATS(config.ScoringWeights{Skill: 0.9, Experience: 0.9})
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	_, err = NewFullATS(config.ScoringWeights{Skill: -0.1, Experience: 0.5})
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	_, err = NewFullATS(config.ScoringWeights{})
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestPolicy_ClosedSet(t *testing.T) {
	full, err := NewFullATS(defaultScoring().Weights)
	require.NoError(t, err)
	simple, err := NewSimpleJobFit(0.7, 0.3)
	require.NoError(t, err)

	for _, p := range []Policy{full, simple} {
		switch p.(type) {
		case FullATS, SimpleJobFit:
		default:
			t.Fatalf("unexpected policy %T", p)
		}
	}
	assert.Equal(t, "simple_job_fit", simple.Name())

	_, err = NewSimpleJobFit(0.8, 0.8)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}
