package processor

import (
	"context"

	"smarthire-ats/internal/storage"
	"smarthire-ats/internal/storage/models"
	"smarthire-ats/internal/types"
)

// ResumeParser 解析简历并计算岗位匹配度，*parser.Parser 实现了该接口
type ResumeParser interface {
	ParseBytes(ctx context.Context, data []byte, filename, mimeType, jobDescription string) (*types.ResumeRecord, types.Diagnostics)
	JobFit(record *types.ResumeRecord, jobTitle, jobDescription string) *types.JobFitResult
}

// ResumeFetcher 从对象存储读取原始简历
type ResumeFetcher interface {
	GetResumeFile(ctx context.Context, objectName string) ([]byte, error)
}

// AnalysisWriter 持久化分析结果
type AnalysisWriter interface {
	SaveAnalysis(ctx context.Context, analysis *models.ResumeAnalysis, event *models.OutboxMessage) error
	MarkFailed(ctx context.Context, submissionUUID, reason string) error
}

// ResultCache 解析结果缓存
type ResultCache interface {
	SetResult(ctx context.Context, key string, result *storage.CachedResult) error
}

// DeliverySource 待处理消息来源，*storage.RabbitMQ 实现了该接口
type DeliverySource interface {
	Consume(ctx context.Context, queueName string, prefetchCount int) (<-chan storage.Delivery, error)
}

var (
	_ ResumeFetcher  = (*storage.MinIO)(nil)
	_ AnalysisWriter = (*storage.MySQL)(nil)
	_ ResultCache    = (*storage.Redis)(nil)
	_ DeliverySource = (*storage.RabbitMQ)(nil)
)
