package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smarthire-ats/internal/catalog"
	"smarthire-ats/internal/config"
	"smarthire-ats/internal/types"
)

func newTestJobFit(t *testing.T, opts ...JobFitOption) *JobFitCalculator {
	t.Helper()
	c, err := NewJobFitCalculator(config.DefaultConfig().JobFit, opts...)
	require.NoError(t, err)
	return c
}

func TestJobFit_Calculate(t *testing.T) {
	c := newTestJobFit(t)

	got := c.Calculate([]string{"python", "docker"}, nil, "", "We need Python, Docker and AWS.")

	assert.Equal(t, 46.7, got.Score)
	assert.Equal(t, 66.7, got.SkillMatch)
	assert.Equal(t, []string{"docker", "python"}, got.MatchedSkills)
	assert.Equal(t, []string{"aws"}, got.MissingSkills)
	assert.Equal(t, 0.0, got.ExperienceMatch)
	assert.Equal(t, 2, got.JobLevel)
}

func TestJobFit_EmptyJobDescription(t *testing.T) {
	c := newTestJobFit(t)
	got := c.Calculate([]string{"python"}, []types.ExperienceEntry{{Duration: "5 years"}}, "Senior Engineer", "")
	assert.Equal(t, types.NewEmptyJobFit(), got)
}

func TestJobFit_ExperienceMatch(t *testing.T) {
	c := newTestJobFit(t)
	jd := "Python developer"

	got := c.Calculate([]string{"Python"}, []types.ExperienceEntry{
		{Duration: "2 years at Acme"},
		{Duration: "3 yrs"},
		{Duration: "unknown"},
	}, "", jd)
	assert.Equal(t, 50.0, got.ExperienceMatch)
	assert.Equal(t, 100.0, got.SkillMatch)
	assert.Equal(t, 85.0, got.Score)

	// "2019 - Present" 取到 2019，经验分封顶
	got = c.Calculate(nil, []types.ExperienceEntry{{Duration: "Acme | 2019 - Present"}}, "", jd)
	assert.Equal(t, 100.0, got.ExperienceMatch)
	assert.Equal(t, 30.0, got.Score)
}

func TestJobFit_JobLevel(t *testing.T) {
	c := newTestJobFit(t)

	cases := []struct {
		title, desc string
		want        int
	}{
		{"Senior Software Engineer", "You will lead the team. Python", 3},
		{"", "Principal architect for Python services", 5},
		{"Junior Dev", "Python", 1},
		{"Engineer", "Python", 2},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, c.Calculate(nil, nil, tc.title, tc.desc).JobLevel, tc.title+"/"+tc.desc)
	}
}

func TestJobFit_CatalogSynonyms(t *testing.T) {
	jd := "Node backend with Docker"

	plain := newTestJobFit(t).Calculate([]string{"Node.js"}, nil, "", jd)
	assert.Equal(t, 0.0, plain.SkillMatch)

	withCatalog := newTestJobFit(t, WithJobFitCatalog(catalog.MustDefault())).Calculate([]string{"Node.js"}, nil, "", jd)
	assert.Equal(t, []string{"node"}, withCatalog.MatchedSkills)
	assert.Equal(t, []string{"docker"}, withCatalog.MissingSkills)
	assert.Equal(t, 50.0, withCatalog.SkillMatch)
}

func TestNewJobFitCalculator_InvalidWeights(t *testing.T) {
	cfg := config.DefaultConfig().JobFit
	cfg.SkillWeight = 0.9
	_, err := NewJobFitCalculator(cfg)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}
