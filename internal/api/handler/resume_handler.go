package handler

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/gofrs/uuid/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"smarthire-ats/internal/config"
	"smarthire-ats/internal/constants"
	"smarthire-ats/internal/logger"
	"smarthire-ats/internal/storage"
	"smarthire-ats/internal/storage/models"
	"smarthire-ats/internal/types"
)

// ResumeHandler 处理简历解析、异步提交和结果查询
type ResumeHandler struct {
	parser    ResumeParser
	cache     ResultCache
	deduper   SubmissionDeduper
	uploader  ResumeUploader
	store     storage.AnalysisStore
	publisher EventPublisher

	maxUploadBytes int64
	exchange       string
	routingKey     string
	now            func() time.Time
}

// Option ResumeHandler 的配置项
type Option func(*ResumeHandler)

// WithCache 启用解析结果缓存
func WithCache(c ResultCache) Option {
	return func(h *ResumeHandler) { h.cache = c }
}

// WithDeduper 启用提交去重
func WithDeduper(d SubmissionDeduper) Option {
	return func(h *ResumeHandler) { h.deduper = d }
}

// WithAsync 启用异步提交链路
func WithAsync(uploader ResumeUploader, store storage.AnalysisStore, publisher EventPublisher) Option {
	return func(h *ResumeHandler) {
		h.uploader = uploader
		h.store = store
		h.publisher = publisher
	}
}

// WithStore 只启用结果查询
func WithStore(store storage.AnalysisStore) Option {
	return func(h *ResumeHandler) { h.store = store }
}

// StorageOptions 根据已初始化的存储组件生成配置项
func StorageOptions(s *storage.Storage) []Option {
	if s == nil {
		return nil
	}
	var opts []Option
	if s.Redis != nil {
		opts = append(opts, WithCache(s.Redis), WithDeduper(s.Redis))
	}
	if s.MySQL != nil {
		opts = append(opts, WithStore(s.MySQL))
	}
	if s.AsyncReady() {
		opts = append(opts, WithAsync(s.MinIO, s.MySQL, s.RabbitMQ))
	}
	return opts
}

// NewResumeHandler 创建 ResumeHandler
func NewResumeHandler(cfg *config.Config, parser ResumeParser, opts ...Option) *ResumeHandler {
	h := &ResumeHandler{
		parser: parser,
		now:    time.Now,
	}
	if cfg != nil {
		h.maxUploadBytes = cfg.Server.MaxUploadBytes
		h.exchange = cfg.RabbitMQ.ResumeEventsExchange
		h.routingKey = cfg.RabbitMQ.UploadedRoutingKey
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ParseResponse 同步解析的响应
type ParseResponse struct {
	Record      *types.ResumeRecord `json:"record"`
	JobFit      *types.JobFitResult `json:"job_fit,omitempty"`
	Diagnostics types.Diagnostics   `json:"diagnostics"`
	Cached      bool                `json:"cached"`
}

// HandleParse 同步解析上传的简历
// POST /api/v1/resume/parse
func (h *ResumeHandler) HandleParse(ctx context.Context, c *app.RequestContext) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondError(ctx, c, consts.StatusBadRequest, "文件未找到", err)
		return
	}
	data, err := readUpload(fileHeader, h.maxUploadBytes)
	if err != nil {
		if errors.Is(err, errFileTooLarge) {
			respondError(ctx, c, consts.StatusRequestEntityTooLarge, "文件超过大小限制", err)
			return
		}
		respondError(ctx, c, consts.StatusBadRequest, "读取文件失败", err)
		return
	}

	jobTitle := strings.TrimSpace(c.PostForm("job_title"))
	jobDescription := c.PostForm("job_description")
	fileMD5 := storage.MD5Hex(data)
	cacheKey := storage.ResultKey(fileMD5, jobTitle, jobDescription)

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.String("file.name", fileHeader.Filename),
		attribute.Int("file.size", len(data)),
		attribute.String("file.md5", fileMD5),
	)

	if h.cache != nil {
		cached, err := h.cache.GetResult(ctx, cacheKey)
		switch {
		case err == nil:
			span.SetAttributes(attribute.Bool("cache.hit", true))
			c.JSON(consts.StatusOK, ParseResponse{
				Record:      cached.Record,
				JobFit:      cached.JobFit,
				Diagnostics: nonNilDiagnostics(cached.Diagnostics),
				Cached:      true,
			})
			return
		case !errors.Is(err, storage.ErrNotFound):
			logger.Ctx(ctx).Warn().Err(err).Msg("读取解析结果缓存失败")
		}
	}

	record, diags := h.parser.ParseBytes(ctx, data, fileHeader.Filename, fileHeader.Header.Get("Content-Type"), jobDescription)
	var fit *types.JobFitResult
	if jobTitle != "" || strings.TrimSpace(jobDescription) != "" {
		fit = h.parser.JobFit(record, jobTitle, jobDescription)
	}

	if h.cache != nil {
		if err := h.cache.SetResult(ctx, cacheKey, &storage.CachedResult{Record: record, JobFit: fit, Diagnostics: diags}); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Msg("写入解析结果缓存失败")
		}
	}

	c.JSON(consts.StatusOK, ParseResponse{
		Record:      record,
		JobFit:      fit,
		Diagnostics: nonNilDiagnostics(diags),
	})
}

// HandleSubmit 保存原始简历并投递到分析队列
// POST /api/v1/resume/submit
func (h *ResumeHandler) HandleSubmit(ctx context.Context, c *app.RequestContext) {
	if h.uploader == nil || h.store == nil || h.publisher == nil {
		respondError(ctx, c, consts.StatusServiceUnavailable, "异步分析未启用", nil)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondError(ctx, c, consts.StatusBadRequest, "文件未找到", err)
		return
	}
	data, err := readUpload(fileHeader, h.maxUploadBytes)
	if err != nil {
		if errors.Is(err, errFileTooLarge) {
			respondError(ctx, c, consts.StatusRequestEntityTooLarge, "文件超过大小限制", err)
			return
		}
		respondError(ctx, c, consts.StatusBadRequest, "读取文件失败", err)
		return
	}

	jobTitle := strings.TrimSpace(c.PostForm("job_title"))
	jobDescription := c.PostForm("job_description")
	targetJobID := c.PostForm("target_job_id")
	fileMD5 := storage.MD5Hex(data)

	id, err := uuid.NewV7()
	if err != nil {
		respondError(ctx, c, consts.StatusInternalServerError, "生成submission_uuid失败", err)
		return
	}
	submissionUUID := id.String()
	l := logger.Ctx(ctx).With().Str("submission_uuid", submissionUUID).Logger()
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("submission_uuid", submissionUUID))

	// 同一文件针对同一职位只分析一次
	dedupKey := submissionDedupKey(fileMD5, jobTitle, jobDescription)
	registered := false
	if h.deduper != nil {
		dup, existing, err := h.deduper.CheckAndSetMD5(ctx, dedupKey, submissionUUID)
		switch {
		case err != nil:
			l.Warn().Err(err).Msg("提交去重检查失败，继续处理")
		case dup && existing != "":
			l.Info().Str("existing_uuid", existing).Msg("重复提交，返回已有的submission_uuid")
			c.JSON(consts.StatusOK, utils.H{"submission_uuid": existing, "duplicate": true})
			return
		case dup:
			// 键属于另一个提交者，失败时不能由本次请求撤销
			l.Warn().Msg("重复提交但未取到已有的submission_uuid，继续处理")
		default:
			registered = true
		}
	}
	release := func() {
		if registered {
			if err := h.deduper.RemoveMD5(context.WithoutCancel(ctx), dedupKey); err != nil {
				l.Warn().Err(err).Msg("撤销去重登记失败")
			}
		}
	}

	objectName, err := h.uploader.UploadResumeBytes(ctx, submissionUUID, storage.FileExt(fileHeader.Filename), data)
	if err != nil {
		release()
		respondError(ctx, c, consts.StatusInternalServerError, "保存原始文件失败", err)
		return
	}

	submittedAt := h.now()
	pending := &models.ResumeAnalysis{
		SubmissionUUID:      submissionUUID,
		SubmissionTimestamp: submittedAt,
		OriginalFilename:    fileHeader.Filename,
		OriginalFilePathOSS: objectName,
		RawFileMD5:          fileMD5,
		TargetJobID:         targetJobID,
		JobTitle:            jobTitle,
		ProcessingStatus:    constants.StatusPendingParse,
		ParserVersion:       constants.ParserVersion,
	}
	if jd := strings.TrimSpace(jobDescription); jd != "" {
		pending.JobDescriptionMD5 = storage.MD5Hex([]byte(jd))
	}
	if err := h.store.CreatePending(ctx, pending); err != nil {
		release()
		respondError(ctx, c, consts.StatusInternalServerError, "登记分析任务失败", err)
		return
	}

	msg := storage.ResumeUploadMessage{
		SubmissionUUID:      submissionUUID,
		SubmissionTimestamp: submittedAt,
		OriginalFilename:    fileHeader.Filename,
		OriginalFilePathOSS: objectName,
		RawFileMD5:          fileMD5,
		MIMEType:            fileHeader.Header.Get("Content-Type"),
		TargetJobID:         targetJobID,
		JobTitle:            jobTitle,
		JobDescription:      jobDescription,
	}
	if err := h.publisher.PublishJSON(ctx, h.exchange, h.routingKey, msg, true); err != nil {
		if markErr := h.store.MarkFailed(context.WithoutCancel(ctx), submissionUUID, err.Error()); markErr != nil {
			l.Error().Err(markErr).Msg("标记分析失败时出错")
		}
		release()
		respondError(ctx, c, consts.StatusInternalServerError, "投递分析任务失败", err)
		return
	}

	l.Info().Str("object", objectName).Msg("简历已提交分析")
	c.JSON(consts.StatusAccepted, utils.H{
		"submission_uuid": submissionUUID,
		"status":          constants.StatusPendingParse,
	})
}

// AnalysisResponse 已保存的分析结果
type AnalysisResponse struct {
	SubmissionUUID   string              `json:"submission_uuid"`
	Status           string              `json:"status"`
	ErrorMessage     string              `json:"error_message,omitempty"`
	OriginalFilename string              `json:"original_filename"`
	TargetJobID      string              `json:"target_job_id,omitempty"`
	JobTitle         string              `json:"job_title,omitempty"`
	ParserVersion    string              `json:"parser_version"`
	SubmittedAt      time.Time           `json:"submitted_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
	Record           *types.ResumeRecord `json:"record,omitempty"`
	JobFit           *types.JobFitResult `json:"job_fit,omitempty"`
	Diagnostics      types.Diagnostics   `json:"diagnostics"`
}

// HandleGetAnalysis 查询分析结果
// GET /api/v1/resume/:uuid
func (h *ResumeHandler) HandleGetAnalysis(ctx context.Context, c *app.RequestContext) {
	if h.store == nil {
		respondError(ctx, c, consts.StatusServiceUnavailable, "分析记录存储未启用", nil)
		return
	}

	id := c.Param("uuid")
	if _, err := uuid.FromString(id); err != nil {
		respondError(ctx, c, consts.StatusBadRequest, "submission_uuid格式错误", err)
		return
	}

	analysis, err := h.store.GetAnalysis(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrAnalysisNotFound) {
			respondError(ctx, c, consts.StatusNotFound, "分析记录不存在", err)
			return
		}
		respondError(ctx, c, consts.StatusInternalServerError, "查询分析记录失败", err)
		return
	}

	resp, err := toAnalysisResponse(analysis)
	if err != nil {
		respondError(ctx, c, consts.StatusInternalServerError, "解析分析记录失败", err)
		return
	}
	c.JSON(consts.StatusOK, resp)
}

func toAnalysisResponse(a *models.ResumeAnalysis) (AnalysisResponse, error) {
	resp := AnalysisResponse{
		SubmissionUUID:   a.SubmissionUUID,
		Status:           a.ProcessingStatus,
		ErrorMessage:     a.ErrorMessage,
		OriginalFilename: a.OriginalFilename,
		TargetJobID:      a.TargetJobID,
		JobTitle:         a.JobTitle,
		ParserVersion:    a.ParserVersion,
		SubmittedAt:      a.SubmissionTimestamp,
		UpdatedAt:        a.UpdatedAt,
	}

	diags, err := a.Diagnostics()
	if err != nil {
		return resp, err
	}
	resp.Diagnostics = diags

	if a.ProcessingStatus != constants.StatusAnalyzed {
		return resp, nil
	}
	if resp.Record, err = a.Record(); err != nil {
		return resp, err
	}
	if resp.JobFit, err = a.JobFit(); err != nil {
		return resp, err
	}
	return resp, nil
}

// submissionDedupKey 文件MD5与职位信息共同决定一次提交
func submissionDedupKey(fileMD5, jobTitle, jobDescription string) string {
	title := strings.TrimSpace(jobTitle)
	jd := strings.TrimSpace(jobDescription)
	if title == "" && jd == "" {
		return fileMD5
	}
	return fileMD5 + ":" + storage.MD5Hex([]byte(title+"\x00"+jd))
}

func nonNilDiagnostics(d types.Diagnostics) types.Diagnostics {
	if d == nil {
		return types.Diagnostics{}
	}
	return d
}
