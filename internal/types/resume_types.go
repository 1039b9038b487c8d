package types

// SectionName 简历章节名称，取值为固定的封闭集合
type SectionName string

const (
	// SectionHeader 第一个章节标题之前的内容（姓名、联系方式等）
	SectionHeader SectionName = "header"
	// SectionExperience 工作经历
	SectionExperience SectionName = "experience"
	// SectionEducation 教育经历
	SectionEducation SectionName = "education"
	// SectionSkills 技能
	SectionSkills SectionName = "skills"
	// SectionProjects 项目经历
	SectionProjects SectionName = "projects"
	// SectionCertifications 证书
	SectionCertifications SectionName = "certifications"
)

// AllSections 封闭的章节名称集合
var AllSections = []SectionName{
	SectionHeader,
	SectionExperience,
	SectionEducation,
	SectionSkills,
	SectionProjects,
	SectionCertifications,
}

// IsValid 判断章节名称是否属于封闭集合
func (s SectionName) IsValid() bool {
	for _, name := range AllSections {
		if s == name {
			return true
		}
	}
	return false
}

// SectionMap 章节名称到章节正文的映射，未识别到的章节不出现
type SectionMap map[SectionName]string

// Get 返回章节正文，章节不存在时返回空字符串
func (m SectionMap) Get(name SectionName) string {
	if m == nil {
		return ""
	}
	return m[name]
}

// Has 判断章节是否被识别
func (m SectionMap) Has(name SectionName) bool {
	_, ok := m[name]
	return ok
}

// ParsedDocument 一次解析调用中提取出的文档文本，创建后不再修改
type ParsedDocument struct {
	Text       string
	ByteLength int
	MIMEType   string
}

// SkillEntry 目录中的技能条目
type SkillEntry struct {
	Name       string  `json:"name" yaml:"name"`
	Category   string  `json:"category" yaml:"category"`
	Importance float64 `json:"importance" yaml:"importance"`
}

// ExperienceEntry 工作经历条目，未识别的字段为空字符串
type ExperienceEntry struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Start       string `json:"start"`
	End         string `json:"end"`
	Duration    string `json:"duration"`
	Description string `json:"description"`
}

// EducationEntry 教育经历条目
type EducationEntry struct {
	Degree      string `json:"degree"`
	Institution string `json:"institution"`
	Year        string `json:"year"`
}

// KeywordMatch 单个关键词的密度统计
type KeywordMatch struct {
	Count           int     `json:"count"`
	Density         float64 `json:"density"`
	MatchesRequired bool    `json:"matches_required"`
}

// ScoreBreakdown ATS 总分的组成部分，不参与序列化
type ScoreBreakdown struct {
	SkillScore      float64
	ExperienceScore float64
	EducationScore  float64
	ComplianceScore float64
	MatchRatio      float64
	Qualified       bool
	WordCount       int
	JobKeywords     []string
}

// ResumeRecord 简历解析结果，是提供给 Web 层的契约
type ResumeRecord struct {
	Name             string                  `json:"name"`
	Email            string                  `json:"email"`
	Phone            string                  `json:"phone"`
	RawText          string                  `json:"raw_text"`
	Skills           []SkillEntry            `json:"skills"`
	Experience       []ExperienceEntry       `json:"experience"`
	Education        []EducationEntry        `json:"education"`
	ATSScore         float64                 `json:"ats_score"`
	MissingSkills    []string                `json:"missing_skills"`
	KeywordMatches   map[string]KeywordMatch `json:"keyword_matches"`
	ComplianceIssues []string                `json:"compliance_issues"`

	Breakdown ScoreBreakdown `json:"-"`
}

// NewEmptyRecord 返回所有列表均为空（非 nil）的记录，解析失败时使用
func NewEmptyRecord() *ResumeRecord {
	return &ResumeRecord{
		Skills:           []SkillEntry{},
		Experience:       []ExperienceEntry{},
		Education:        []EducationEntry{},
		MissingSkills:    []string{},
		KeywordMatches:   map[string]KeywordMatch{},
		ComplianceIssues: []string{},
	}
}

// SkillNames 返回记录中技能的规范名称
func (r *ResumeRecord) SkillNames() []string {
	names := make([]string, 0, len(r.Skills))
	for _, s := range r.Skills {
		names = append(names, s.Name)
	}
	return names
}

// JobFitResult 简化版岗位匹配结果
type JobFitResult struct {
	Score           float64  `json:"score"`
	SkillMatch      float64  `json:"skill_match"`
	MatchedSkills   []string `json:"matched_skills"`
	MissingSkills   []string `json:"missing_skills"`
	ExperienceMatch float64  `json:"experience_match"`
	JobLevel        int      `json:"job_level"`
}

// NewEmptyJobFit 返回零值结果，列表为空
func NewEmptyJobFit() *JobFitResult {
	return &JobFitResult{
		MatchedSkills: []string{},
		MissingSkills: []string{},
	}
}
