package handler

import (
	"context"

	"smarthire-ats/internal/storage"
	"smarthire-ats/internal/types"
)

// ResumeParser 同步解析与岗位匹配，*parser.Parser 实现了该接口
type ResumeParser interface {
	ParseBytes(ctx context.Context, data []byte, filename, mimeType, jobDescription string) (*types.ResumeRecord, types.Diagnostics)
	JobFit(record *types.ResumeRecord, jobTitle, jobDescription string) *types.JobFitResult
	JobFitFor(skills []string, experience []types.ExperienceEntry, jobTitle, jobDescription string) *types.JobFitResult
}

// ResultCache 解析结果缓存
type ResultCache interface {
	GetResult(ctx context.Context, key string) (*storage.CachedResult, error)
	SetResult(ctx context.Context, key string, result *storage.CachedResult) error
}

// SubmissionDeduper 异步提交去重
type SubmissionDeduper interface {
	CheckAndSetMD5(ctx context.Context, md5Hex, submissionUUID string) (bool, string, error)
	RemoveMD5(ctx context.Context, md5Hex string) error
}

// ResumeUploader 保存原始简历
type ResumeUploader interface {
	UploadResumeBytes(ctx context.Context, submissionUUID, fileExt string, data []byte) (string, error)
}

// EventPublisher 发布上传事件
type EventPublisher interface {
	PublishJSON(ctx context.Context, exchangeName, routingKey string, data interface{}, persistent bool) error
}

var (
	_ ResultCache       = (*storage.Redis)(nil)
	_ SubmissionDeduper = (*storage.Redis)(nil)
	_ ResumeUploader    = (*storage.MinIO)(nil)
	_ EventPublisher    = (*storage.RabbitMQ)(nil)
)
