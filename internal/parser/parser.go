// Package parser 将文本提取、章节切分、字段提取和 ATS 评分串成一条流水线。
// 流水线不向调用方返回错误：任何一步降级都记录为 Diagnostic，结果记录始终可用。
package parser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"smarthire-ats/internal/catalog"
	"smarthire-ats/internal/config"
	"smarthire-ats/internal/extractor"
	"smarthire-ats/internal/fields"
	"smarthire-ats/internal/logger"
	"smarthire-ats/internal/nlp"
	"smarthire-ats/internal/scoring"
	"smarthire-ats/internal/segmenter"
	"smarthire-ats/internal/tracing"
	"smarthire-ats/internal/types"
)

// Parser 简历解析流水线，构建后只读，可并发使用
type Parser struct {
	extractor  *extractor.Extractor
	segmenter  *segmenter.Segmenter
	catalog    *catalog.Catalog
	analyzer   nlp.Analyzer
	experience fields.ExperienceExtractor
	ats        *scoring.ATSScorer
	jobFit     *scoring.JobFitCalculator

	logger zerolog.Logger
	tracer trace.Tracer
}

// Components 可替换的流水线组件，未设置的字段按配置构建
type Components struct {
	Extractor  *extractor.Extractor
	Catalog    *catalog.Catalog
	Analyzer   nlp.Analyzer
	Experience fields.ExperienceExtractor
}

type settings struct {
	comp   Components
	now    func() time.Time
	logger *zerolog.Logger
}

// Option 流水线的配置选项
type Option func(*settings)

// WithExtractor 替换文本提取器
func WithExtractor(e *extractor.Extractor) Option {
	return func(s *settings) { s.comp.Extractor = e }
}

// WithCatalog 替换技能目录
func WithCatalog(c *catalog.Catalog) Option {
	return func(s *settings) { s.comp.Catalog = c }
}

// WithAnalyzer 替换 NLP 分析器（姓名识别和 JD 关键词共用）
func WithAnalyzer(a nlp.Analyzer) Option {
	return func(s *settings) { s.comp.Analyzer = a }
}

// WithExperienceExtractor 替换经历提取规则
func WithExperienceExtractor(x fields.ExperienceExtractor) Option {
	return func(s *settings) { s.comp.Experience = x }
}

// WithClock 替换经验分使用的当前时间
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

// WithLogger 配置自定义日志记录器
func WithLogger(l zerolog.Logger) Option {
	return func(s *settings) { s.logger = &l }
}

// Build 根据配置构建流水线。配置错误（目录、权重、PDF 后端、章节规则）
// 在这里一次性暴露，返回的错误包装 config.ErrInvalidConfig 或 catalog.ErrInvalidCatalog。
func Build(ctx context.Context, cfg *config.Config, opts ...Option) (*Parser, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: 配置不能为空", config.ErrInvalidConfig)
	}

	s := &settings{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	l := logger.Component("parser")
	if s.logger != nil {
		l = *s.logger
	}

	comp := s.comp
	var err error
	if comp.Catalog == nil {
		if comp.Catalog, err = catalog.Load(cfg.Catalog.Path); err != nil {
			return nil, err
		}
	}
	if comp.Extractor == nil {
		if comp.Extractor, err = extractor.Build(ctx, cfg.Extractor); err != nil {
			return nil, err
		}
	}
	if comp.Analyzer == nil {
		comp.Analyzer = nlp.NewProseAnalyzer()
	}
	if comp.Experience == nil {
		comp.Experience = fields.LineScanExperience{}
	}

	seg, err := segmenter.FromConfig(cfg.Segmenter)
	if err != nil {
		return nil, err
	}
	ats, err := scoring.NewATSScorer(cfg.Scoring, comp.Catalog,
		scoring.WithAnalyzer(comp.Analyzer),
		scoring.WithClock(s.now),
	)
	if err != nil {
		return nil, err
	}
	jobFit, err := scoring.NewJobFitCalculator(cfg.JobFit, scoring.WithJobFitCatalog(comp.Catalog))
	if err != nil {
		return nil, err
	}

	l.Info().
		Int("catalog_skills", comp.Catalog.Len()).
		Int64("max_bytes", comp.Extractor.MaxBytes()).
		Str("policy", ats.Policy().Name()).
		Msg("简历解析流水线初始化完成")

	return &Parser{
		extractor:  comp.Extractor,
		segmenter:  seg,
		catalog:    comp.Catalog,
		analyzer:   comp.Analyzer,
		experience: comp.Experience,
		ats:        ats,
		jobFit:     jobFit,
		logger:     l,
		tracer:     tracing.Tracer("parser"),
	}, nil
}

// Catalog 流水线使用的技能目录
func (p *Parser) Catalog() *catalog.Catalog { return p.catalog }

// MaxBytes 单个文件的大小上限
func (p *Parser) MaxBytes() int64 { return p.extractor.MaxBytes() }

// ParseFile 解析磁盘上的简历文件，mimeType 由内容和扩展名自动检测
func (p *Parser) ParseFile(ctx context.Context, path, jobDescription string) (*types.ResumeRecord, types.Diagnostics) {
	ctx, span := p.tracer.Start(ctx, "parser.ParseFile", trace.WithAttributes(attribute.String("file", path)))
	defer span.End()

	doc, err := p.extractor.ExtractFile(ctx, path, "")
	return p.fromDocument(ctx, span, doc, err, jobDescription)
}

// ParseReader 从 io.Reader 解析简历
func (p *Parser) ParseReader(ctx context.Context, r io.Reader, filename, mimeType, jobDescription string) (*types.ResumeRecord, types.Diagnostics) {
	ctx, span := p.tracer.Start(ctx, "parser.ParseReader", trace.WithAttributes(attribute.String("file", filename)))
	defer span.End()

	doc, err := p.extractor.ExtractReader(ctx, r, filename, mimeType)
	return p.fromDocument(ctx, span, doc, err, jobDescription)
}

// ParseBytes 从内存数据解析简历
func (p *Parser) ParseBytes(ctx context.Context, data []byte, filename, mimeType, jobDescription string) (*types.ResumeRecord, types.Diagnostics) {
	ctx, span := p.tracer.Start(ctx, "parser.ParseBytes", trace.WithAttributes(
		attribute.String("file", filename),
		attribute.Int("bytes", len(data)),
	))
	defer span.End()

	doc, err := p.extractor.ExtractBytes(ctx, data, filename, mimeType)
	return p.fromDocument(ctx, span, doc, err, jobDescription)
}

func (p *Parser) fromDocument(ctx context.Context, span trace.Span, doc types.ParsedDocument, err error, jobDescription string) (*types.ResumeRecord, types.Diagnostics) {
	var diags types.Diagnostics
	span.SetAttributes(attribute.String("mime", doc.MIMEType), attribute.Int("byte_length", doc.ByteLength))

	if err != nil {
		code := "read_failed"
		var xe *extractor.ExtractError
		if errors.As(err, &xe) {
			code = xe.Code()
		}
		diags.Add(types.StageExtract, code, "%v", err)
		tracing.RecordError(span, err, tracing.ErrorTypeExtraction)
		return types.NewEmptyRecord(), diags
	}
	if doc.MIMEType != "" && doc.MIMEType != extractor.MIMEOctet && !extractor.IsSupported(doc.MIMEType) {
		diags.Add(types.StageExtract, "unsupported_mime", "不支持的文件类型 %s，按纯文本处理", doc.MIMEType)
	}

	record, more := p.parseText(ctx, doc.Text, jobDescription)
	return record, append(diags, more...)
}

// ParseText 对已提取的文本运行切分、字段提取和评分
func (p *Parser) ParseText(ctx context.Context, text, jobDescription string) (*types.ResumeRecord, types.Diagnostics) {
	ctx, span := p.tracer.Start(ctx, "parser.ParseText")
	defer span.End()
	return p.parseText(ctx, text, jobDescription)
}

func (p *Parser) parseText(ctx context.Context, text, jobDescription string) (record *types.ResumeRecord, diags types.Diagnostics) {
	span := trace.SpanFromContext(ctx)

	if text == "" {
		diags.Add(types.StageExtract, "empty_text", "未提取到文本")
		return types.NewEmptyRecord(), diags
	}

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("解析流水线panic: %v", r)
			p.logger.Error().Err(err).Msg("简历解析异常，返回空记录")
			tracing.RecordError(span, err, tracing.ErrorTypeInternal)
			record = types.NewEmptyRecord()
			diags.Add(types.StageFields, "panic", "%v", r)
		}
	}()

	start := time.Now()
	record = types.NewEmptyRecord()
	record.RawText = text

	sections := p.segmenter.Segment(text)
	if len(sections) == 0 || (len(sections) == 1 && sections.Has(types.SectionHeader)) {
		diags.Add(types.StageSegment, "no_sections", "未识别到任何章节标题")
	}

	record.Name = fields.ExtractName(text, p.analyzer, &diags)
	record.Email = fields.ExtractEmail(text)
	record.Phone = fields.ExtractPhone(text)
	record.Skills = fields.ExtractSkills(p.catalog, sections, text, &diags)
	record.Experience = p.experience.ExtractExperience(sections.Get(types.SectionExperience))
	record.Education = fields.ExtractEducation(sections.Get(types.SectionEducation))

	p.ats.Score(record, sections, jobDescription, &diags)

	span.SetAttributes(
		tracing.SafeAttribute("candidate.name", record.Name),
		attribute.String("job_description", tracing.SafeJobDescription(jobDescription)),
		attribute.Int("sections", len(sections)),
		attribute.Int("skills", len(record.Skills)),
		attribute.Float64("ats_score", record.ATSScore),
	)

	for _, d := range diags {
		p.logger.Warn().Str("stage", string(d.Stage)).Str("code", d.Code).Msg(d.Message)
	}
	p.logger.Info().
		Int("chars", len(text)).
		Int("skills", len(record.Skills)).
		Int("experience", len(record.Experience)).
		Int("education", len(record.Education)).
		Float64("ats_score", record.ATSScore).
		Dur("elapsed", time.Since(start)).
		Msg("简历解析完成")
	return record, diags
}

// JobFit 计算已解析记录与职位的简化匹配度
func (p *Parser) JobFit(record *types.ResumeRecord, jobTitle, jobDescription string) *types.JobFitResult {
	if record == nil {
		return types.NewEmptyJobFit()
	}
	return p.jobFit.Calculate(record.SkillNames(), record.Experience, jobTitle, jobDescription)
}

// JobFitFor 直接用技能名和经历计算匹配度，供不经过解析的调用方使用
func (p *Parser) JobFitFor(skills []string, experience []types.ExperienceEntry, jobTitle, jobDescription string) *types.JobFitResult {
	return p.jobFit.Calculate(skills, experience, jobTitle, jobDescription)
}
