// Package segmenter 按标题行把简历文本切分为章节
package segmenter

import (
	"fmt"
	"regexp"
	"strings"

	"smarthire-ats/internal/config"
	"smarthire-ats/internal/types"
)

// 默认的章节标题正则表达式，按匹配顺序排列
var defaultPatterns = []struct {
	section types.SectionName
	pattern string
}{
	{types.SectionExperience, `(?i)(work\s*experience|employment\s*history|experience)`},
	{types.SectionEducation, `(?i)(education|academic\s*background|degrees)`},
	{types.SectionSkills, `(?i)(skills?\s*(?:&|and)?\s*expertise|technical\s*skills?)`},
	{types.SectionProjects, `(?i)(projects|portfolio|key\s*projects)`},
	{types.SectionCertifications, `(?i)(certifications?|licenses?|certificates?)`},
}

// 单独一行的 "Skills" / "Core Competencies" 标题
const plainSkillsPattern = `(?i)^\s*(skills|core\s*competencies)\s*:?\s*$`

type sectionRegex struct {
	section types.SectionName
	regex   []*regexp.Regexp
}

// Segmenter 章节切分器，构建后只读
type Segmenter struct {
	patterns        []sectionRegex
	maxHeadingWords int
}

// Option 切分器选项
type Option func(*options)

type options struct {
	maxHeadingWords int
	plainSkills     bool
	custom          map[types.SectionName]string
}

// WithMaxHeadingWords 标题行最多包含的词数，<=0 表示不限制
func WithMaxHeadingWords(n int) Option {
	return func(o *options) { o.maxHeadingWords = n }
}

// WithPlainSkillsHeading 是否额外识别单独一行的 "Skills" 标题，默认关闭
func WithPlainSkillsHeading(enabled bool) Option {
	return func(o *options) { o.plainSkills = enabled }
}

// WithCustomPattern 替换某个章节的标题正则
func WithCustomPattern(section types.SectionName, pattern string) Option {
	return func(o *options) {
		if o.custom == nil {
			o.custom = make(map[types.SectionName]string)
		}
		o.custom[section] = pattern
	}
}

// New 创建切分器
func New(opts ...Option) (*Segmenter, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	for section := range o.custom {
		if section == types.SectionHeader || !section.IsValid() {
			return nil, fmt.Errorf("%w: 不能为章节 %q 设置标题正则", config.ErrInvalidConfig, section)
		}
	}

	s := &Segmenter{maxHeadingWords: o.maxHeadingWords}
	for _, p := range defaultPatterns {
		pattern := p.pattern
		if custom, ok := o.custom[p.section]; ok {
			pattern = custom
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: 编译章节正则表达式错误 %s: %v", config.ErrInvalidConfig, p.section, err)
		}
		entry := sectionRegex{section: p.section, regex: []*regexp.Regexp{re}}
		if p.section == types.SectionSkills && o.plainSkills {
			entry.regex = append(entry.regex, regexp.MustCompile(plainSkillsPattern))
		}
		s.patterns = append(s.patterns, entry)
	}
	return s, nil
}

// FromConfig 根据配置创建切分器
func FromConfig(cfg config.SegmenterConfig) (*Segmenter, error) {
	return New(
		WithMaxHeadingWords(cfg.MaxHeadingWords),
		WithPlainSkillsHeading(cfg.PlainSkillsHeading),
	)
}

// Default 使用默认配置的切分器
func Default() *Segmenter {
	s, err := New()
	if err != nil {
		panic(err)
	}
	return s
}

// Classify 判断一行是否为章节标题，按固定顺序第一个匹配的章节生效
func (s *Segmenter) Classify(line string) (types.SectionName, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", false
	}
	if s.maxHeadingWords > 0 && len(strings.Fields(line)) > s.maxHeadingWords {
		return "", false
	}
	for _, p := range s.patterns {
		for _, re := range p.regex {
			if re.MatchString(line) {
				return p.section, true
			}
		}
	}
	return "", false
}

// Segment 逐行扫描文本：当前章节从 header 开始，遇到标题行切换章节且标题行本身不计入正文，
// 其余非空行追加到当前章节。没有内容的章节不出现在结果中。
func (s *Segmenter) Segment(text string) types.SectionMap {
	bodies := make(map[types.SectionName][]string)
	current := types.SectionHeader

	text = strings.ReplaceAll(text, "\r\n", "\n")
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if section, ok := s.Classify(line); ok {
			current = section
			continue
		}
		bodies[current] = append(bodies[current], line)
	}

	sections := make(types.SectionMap, len(bodies))
	for name, lines := range bodies {
		sections[name] = strings.Join(lines, "\n")
	}
	return sections
}
