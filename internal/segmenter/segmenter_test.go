package segmenter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smarthire-ats/internal/config"
	"smarthire-ats/internal/types"
)

const sampleResume = `Jane Doe
jane@example.com | +1 (555) 123-4567

WORK EXPERIENCE
Senior Software Engineer
Acme Corp | 2019 - Present
Led migration to Kubernetes

Education
Bachelor of Science in Computer Science
State University | 2015

Technical Skills
Python, Go, Docker, k8s

Key Projects
Resume parser

Certifications
AWS Certified Developer`

func TestSegment_SplitsByHeadings(t *testing.T) {
	sections := Default().Segment(sampleResume)

	assert.Equal(t, "Jane Doe\njane@example.com | +1 (555) 123-4567", sections[types.SectionHeader])
	assert.Equal(t, "Senior Software Engineer\nAcme Corp | 2019 - Present\nLed migration to Kubernetes", sections[types.SectionExperience])
	assert.Equal(t, "Bachelor of Science in Computer Science\nState University | 2015", sections[types.SectionEducation])
	assert.Equal(t, "Python, Go, Docker, k8s", sections[types.SectionSkills])
	assert.Equal(t, "Resume parser", sections[types.SectionProjects])
	assert.Equal(t, "AWS Certified Developer", sections[types.SectionCertifications])
}

func TestSegment_KeysAreClosedVocabularyAndNeverEmpty(t *testing.T) {
	sections := Default().Segment("Experience\n\nEducation\nMIT\nTechnical Skills\n")
	require.Len(t, sections, 1)
	assert.Equal(t, "MIT", sections[types.SectionEducation])
	for name, body := range sections {
		assert.True(t, name.IsValid())
		assert.NotEmpty(t, body)
	}
}

func TestSegment_EmptyText(t *testing.T) {
	assert.Empty(t, Default().Segment(""))
	assert.Empty(t, Default().Segment("\n \n\t\n"))
}

// 默认不限制标题行长度：包含 "experience" 的长句也会切换章节，单独的 SKILLS 不是标题
func TestSegment_DefaultHeadingRules(t *testing.T) {
	text := "Jane Doe\nWork experience across fintech and healthcare platforms\nBuilt payment APIs\nSKILLS\nPython, Go"
	sections := Default().Segment(text)

	assert.Equal(t, types.SectionMap{
		types.SectionHeader:     "Jane Doe",
		types.SectionExperience: "Built payment APIs\nSKILLS\nPython, Go",
	}, sections)
}

func TestSegment_NoHeadingsGoesToHeader(t *testing.T) {
	sections := Default().Segment("Jane Doe\nBuilt things")
	assert.Equal(t, types.SectionMap{types.SectionHeader: "Jane Doe\nBuilt things"}, sections)
}

// 对已切分章节正文的拼接再次切分，结果只取决于标题行位置
func TestSegment_PureFunctionOfHeadingPositions(t *testing.T) {
	s := Default()
	first := s.Segment(sampleResume)

	var bodies []string
	for _, name := range types.AllSections {
		if body, ok := first[name]; ok {
			bodies = append(bodies, body)
		}
	}
	concatenated := strings.Join(bodies, "\n")

	second := s.Segment(concatenated)
	require.Len(t, second, 1)
	assert.Equal(t, concatenated, second[types.SectionHeader])
	assert.Equal(t, second, s.Segment(concatenated), "重复执行结果一致")
}

func TestClassify_FirstPatternInFixedOrderWins(t *testing.T) {
	s := Default()
	tests := []struct {
		line string
		want types.SectionName
		ok   bool
	}{
		{"Work Experience", types.SectionExperience, true},
		{"EMPLOYMENT HISTORY", types.SectionExperience, true},
		{"Education & Experience", types.SectionExperience, true},
		{"Academic Background", types.SectionEducation, true},
		{"Skills & Expertise", types.SectionSkills, true},
		{"Skills and Expertise", types.SectionSkills, true},
		{"Technical Skills", types.SectionSkills, true},
		{"Portfolio", types.SectionProjects, true},
		{"Licenses", types.SectionCertifications, true},
		{"Led the education outreach program for new hires", types.SectionEducation, true},
		{"SKILLS", "", false},
		{"Core Competencies", "", false},
		{"Python, Go, Docker", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := s.Classify(tt.line)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew_Options(t *testing.T) {
	limited, err := New(WithMaxHeadingWords(5))
	require.NoError(t, err)
	_, ok := limited.Classify("Led the education outreach program for new hires")
	assert.False(t, ok)
	got, ok := limited.Classify("Work Experience")
	assert.True(t, ok)
	assert.Equal(t, types.SectionExperience, got)

	plain, err := New(WithPlainSkillsHeading(true))
	require.NoError(t, err)
	for _, line := range []string{"SKILLS", "Skills:", "Core Competencies"} {
		got, ok = plain.Classify(line)
		assert.True(t, ok, line)
		assert.Equal(t, types.SectionSkills, got, line)
	}

	custom, err := New(WithCustomPattern(types.SectionProjects, `(?i)side\s*projects`))
	require.NoError(t, err)
	_, ok = custom.Classify("Portfolio")
	assert.False(t, ok)
	got, ok = custom.Classify("Side Projects")
	assert.True(t, ok)
	assert.Equal(t, types.SectionProjects, got)

	_, err = New(WithCustomPattern(types.SectionHeader, "x"))
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
	_, err = New(WithCustomPattern(types.SectionSkills, "(["))
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestFromConfig(t *testing.T) {
	s, err := FromConfig(config.SegmenterConfig{MaxHeadingWords: 2, PlainSkillsHeading: true})
	require.NoError(t, err)
	_, ok := s.Classify("My Work Experience")
	assert.False(t, ok, "超过两个词的行不视为标题")
	_, ok = s.Classify("Skills")
	assert.True(t, ok)

	def, err := FromConfig(config.DefaultConfig().Segmenter)
	require.NoError(t, err)
	got, ok := def.Classify("My Work Experience")
	assert.True(t, ok)
	assert.Equal(t, types.SectionExperience, got)
	_, ok = def.Classify("Skills")
	assert.False(t, ok)
}
