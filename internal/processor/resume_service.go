package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"smarthire-ats/internal/config"
	"smarthire-ats/internal/constants"
	"smarthire-ats/internal/storage"
	"smarthire-ats/internal/storage/models"
	"smarthire-ats/internal/tracing"
	"smarthire-ats/internal/types"
)

var (
	ErrParserNotInit  = errors.New("parser is not initialized")
	ErrFetcherNotInit = errors.New("resume fetcher is not initialized")
	ErrWriterNotInit  = errors.New("analysis writer is not initialized")
)

var tracer = tracing.Tracer("processor")

// AnalysisService 处理上传队列中的简历: 下载、解析、评分、落库并发布分析完成事件
type AnalysisService struct {
	components Components
	settings   Settings
	now        func() time.Time
}

// NewAnalysisService 创建分析服务。cfg 提供交换机、队列和消费者并发等默认值。
func NewAnalysisService(cfg *config.RabbitMQConfig, compOpts []ComponentOpt, setOpts ...SettingOpt) (*AnalysisService, error) {
	var components Components
	for _, opt := range compOpts {
		opt(&components)
	}
	settings := defaultSettings(cfg)
	for _, opt := range setOpts {
		opt(&settings)
	}

	switch {
	case components.Parser == nil:
		return nil, ErrParserNotInit
	case components.Fetcher == nil:
		return nil, ErrFetcherNotInit
	case components.Writer == nil:
		return nil, ErrWriterNotInit
	}

	return &AnalysisService{
		components: components,
		settings:   settings,
		now:        time.Now,
	}, nil
}

// StorageComponents 用存储管理器中已初始化的组件生成组件选项
func StorageComponents(s *storage.Storage) []ComponentOpt {
	if s == nil {
		return nil
	}
	var opts []ComponentOpt
	if s.MinIO != nil {
		opts = append(opts, WithFetcher(s.MinIO))
	}
	if s.MySQL != nil {
		opts = append(opts, WithWriter(s.MySQL))
	}
	if s.Redis != nil {
		opts = append(opts, WithCache(s.Redis))
	}
	return opts
}

// Settings 返回生效的运行参数
func (s *AnalysisService) Settings() Settings { return s.settings }

// Process 处理一条上传消息。失败时把记录标记为 FAILED 并返回错误。
func (s *AnalysisService) Process(ctx context.Context, msg storage.ResumeUploadMessage) error {
	ctx, span := tracer.Start(ctx, "AnalysisService.Process", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	span.SetAttributes(
		attribute.String("submission_uuid", msg.SubmissionUUID),
		attribute.String("target_job_id", msg.TargetJobID),
		attribute.Bool("has_job_description", strings.TrimSpace(msg.JobDescription) != ""),
	)

	l := s.settings.Logger.With().Str("submission_uuid", msg.SubmissionUUID).Logger()
	ctx = l.WithContext(ctx)

	if msg.SubmissionUUID == "" || msg.OriginalFilePathOSS == "" {
		err := NewInvalidMessageError(msg.SubmissionUUID, "缺少submission_uuid或original_file_path_oss")
		tracing.RecordError(span, err, tracing.ErrorTypeValidation)
		return err
	}

	l.Debug().Str("object", msg.OriginalFilePathOSS).Msg("开始分析简历")

	if err := s.analyze(ctx, span, msg); err != nil {
		tracing.RecordError(span, err, errorTypeOf(err))
		// 超时后仍需落库失败状态
		if markErr := s.components.Writer.MarkFailed(context.WithoutCancel(ctx), msg.SubmissionUUID, err.Error()); markErr != nil {
			l.Error().Err(markErr).Msg("标记分析失败时出错")
		}
		return err
	}

	span.SetStatus(codes.Ok, "")
	l.Info().Msg("简历分析完成")
	return nil
}

func (s *AnalysisService) analyze(ctx context.Context, span trace.Span, msg storage.ResumeUploadMessage) error {
	l := s.settings.Logger.With().Str("submission_uuid", msg.SubmissionUUID).Logger()

	data, err := s.components.Fetcher.GetResumeFile(ctx, msg.OriginalFilePathOSS)
	if err != nil {
		return NewDownloadError(msg.SubmissionUUID, err.Error())
	}
	span.SetAttributes(attribute.Int("file_size_bytes", len(data)))

	record, diags := s.components.Parser.ParseBytes(ctx, data, msg.OriginalFilename, msg.MIMEType, msg.JobDescription)
	var fit *types.JobFitResult
	if strings.TrimSpace(msg.JobTitle) != "" || strings.TrimSpace(msg.JobDescription) != "" {
		fit = s.components.Parser.JobFit(record, msg.JobTitle, msg.JobDescription)
	}
	span.AddEvent("resume_parsed", trace.WithAttributes(
		attribute.Float64("ats_score", record.ATSScore),
		attribute.Int("diagnostics", len(diags)),
	))

	if err := ctx.Err(); err != nil {
		return err
	}

	fileMD5 := msg.RawFileMD5
	if fileMD5 == "" {
		fileMD5 = storage.MD5Hex(data)
	}

	analysis := &models.ResumeAnalysis{
		SubmissionUUID:      msg.SubmissionUUID,
		SubmissionTimestamp: msg.SubmissionTimestamp,
		OriginalFilename:    msg.OriginalFilename,
		OriginalFilePathOSS: msg.OriginalFilePathOSS,
		RawFileMD5:          fileMD5,
		TargetJobID:         msg.TargetJobID,
		JobTitle:            msg.JobTitle,
		ProcessingStatus:    constants.StatusAnalyzed,
		ParserVersion:       constants.ParserVersion,
	}
	if jd := strings.TrimSpace(msg.JobDescription); jd != "" {
		analysis.JobDescriptionMD5 = storage.MD5Hex([]byte(jd))
	}
	if err := analysis.ApplyRecord(record, fit, diags); err != nil {
		return NewEncodeError(msg.SubmissionUUID, err.Error())
	}

	event, err := s.analyzedEvent(msg.SubmissionUUID, record, fit, diags)
	if err != nil {
		return NewEncodeError(msg.SubmissionUUID, err.Error())
	}

	if err := s.components.Writer.SaveAnalysis(ctx, analysis, event); err != nil {
		return NewDatabaseError(msg.SubmissionUUID, err.Error())
	}

	if s.components.Cache != nil {
		key := storage.ResultKey(fileMD5, msg.JobTitle, msg.JobDescription)
		cached := &storage.CachedResult{Record: record, JobFit: fit, Diagnostics: diags}
		if err := s.components.Cache.SetResult(ctx, key, cached); err != nil {
			l.Warn().Err(err).Msg("写入解析结果缓存失败")
		}
	}
	return nil
}

// analyzedEvent 构造发件箱中的分析完成事件，未配置交换机时返回 nil
func (s *AnalysisService) analyzedEvent(submissionUUID string, record *types.ResumeRecord, fit *types.JobFitResult, diags types.Diagnostics) (*models.OutboxMessage, error) {
	if s.settings.Exchange == "" {
		return nil, nil
	}

	payload := storage.ResumeAnalyzedMessage{
		SubmissionUUID: submissionUUID,
		Status:         constants.StatusAnalyzed,
		ATSScore:       record.ATSScore,
		MissingSkills:  record.MissingSkills,
		Diagnostics:    len(diags),
		AnalyzedAt:     s.now(),
	}
	if fit != nil {
		payload.JobFitScore = fit.Score
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("序列化分析完成事件失败: %w", err)
	}
	return &models.OutboxMessage{
		AggregateID:      submissionUUID,
		EventType:        constants.EventResumeAnalyzed,
		Payload:          string(body),
		TargetExchange:   s.settings.Exchange,
		TargetRoutingKey: s.settings.RoutingKey,
		Status:           models.OutboxStatusPending,
	}, nil
}

func errorTypeOf(err error) tracing.ErrorType {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return tracing.ErrorTypeTimeout
	case errors.Is(err, ErrResumeDownloadFailed):
		return tracing.ErrorTypeStorage
	case errors.Is(err, ErrDatabaseFailed):
		return tracing.ErrorTypeDB
	case errors.Is(err, ErrEncodeResultFailed):
		return tracing.ErrorTypeDataConversion
	case errors.Is(err, ErrInvalidMessage):
		return tracing.ErrorTypeValidation
	default:
		return tracing.ErrorTypeInternal
	}
}
