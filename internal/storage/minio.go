package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"smarthire-ats/internal/config"
	"smarthire-ats/internal/logger"
	"smarthire-ats/internal/tracing"
)

// ObjectStorage 原始简历的对象存储接口
type ObjectStorage interface {
	// UploadResumeFile 上传原始简历，返回对象名
	UploadResumeFile(ctx context.Context, submissionUUID, fileExt string, reader io.Reader, fileSize int64) (string, error)
	// GetResumeFile 下载原始简历
	GetResumeFile(ctx context.Context, objectName string) ([]byte, error)
	// DeleteFile 删除对象
	DeleteFile(ctx context.Context, objectName string) error
	// GetPresignedURL 获取预签名URL
	GetPresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error)
}

// 确保MinIO实现了ObjectStorage接口
var _ ObjectStorage = (*MinIO)(nil)

var minioTracer = tracing.Tracer("storage/minio")

// MinIO 提供对象存储功能
type MinIO struct {
	client         *minio.Client
	cfg            *config.MinIOConfig
	originalBucket string
	logger         zerolog.Logger
}

// NewMinIO 创建MinIO客户端并确保存储桶存在
func NewMinIO(cfg *config.MinIOConfig) (*MinIO, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MinIO配置不能为空")
	}
	l := logger.Component("minio")
	l.Info().Str("endpoint", cfg.Endpoint).Str("bucket", cfg.OriginalsBucket).Msg("初始化MinIO客户端")

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("创建MinIO客户端失败: %w", err)
	}

	bucket := cfg.OriginalsBucket
	if bucket == "" {
		bucket = "resume-originals"
	}

	m := &MinIO{
		client:         client,
		cfg:            cfg,
		originalBucket: bucket,
		logger:         l,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := m.ensureBucketExists(ctx, bucket, cfg.Location); err != nil {
		return nil, fmt.Errorf("确保原始简历存储桶 %s 存在失败: %w", bucket, err)
	}

	if cfg.OriginalFileExpireDays > 0 {
		if err := m.setupBucketLifecycle(ctx, bucket, "expire-originals", cfg.OriginalFileExpireDays); err != nil {
			l.Warn().Err(err).Str("bucket", bucket).Msg("设置生命周期规则失败")
		}
	}

	l.Info().Str("endpoint", cfg.Endpoint).Msg("MinIO客户端初始化完成")
	return m, nil
}

// Bucket 原始简历所在的存储桶
func (m *MinIO) Bucket() string { return m.originalBucket }

// ensureBucketExists 确保存储桶存在
func (m *MinIO) ensureBucketExists(ctx context.Context, bucketName, location string) error {
	exists, err := m.client.BucketExists(ctx, bucketName)
	if err != nil {
		return fmt.Errorf("检查存储桶 %s 是否存在时出错: %w", bucketName, err)
	}
	if exists {
		m.logger.Debug().Str("bucket", bucketName).Msg("存储桶已存在")
		return nil
	}
	if err := m.client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{Region: location}); err != nil {
		return fmt.Errorf("创建存储桶 %s 失败: %w", bucketName, err)
	}
	m.logger.Info().Str("bucket", bucketName).Msg("存储桶创建成功")
	return nil
}

// setupBucketLifecycle 为指定存储桶设置过期规则
func (m *MinIO) setupBucketLifecycle(ctx context.Context, bucketName, ruleID string, expiryDays int) error {
	cfg := lifecycle.NewConfiguration()
	cfg.Rules = []lifecycle.Rule{
		{
			ID:     ruleID,
			Status: "Enabled",
			Expiration: lifecycle.Expiration{
				Days: lifecycle.ExpirationDays(expiryDays),
			},
		},
	}
	return m.client.SetBucketLifecycle(ctx, bucketName, cfg)
}

// ResumeObjectName 原始简历的对象名，例如 resume/{uuid}/original.pdf
func ResumeObjectName(submissionUUID, fileExt string) string {
	if fileExt != "" && !strings.HasPrefix(fileExt, ".") {
		fileExt = "." + fileExt
	}
	return fmt.Sprintf("resume/%s/original%s", submissionUUID, strings.ToLower(fileExt))
}

// UploadResumeFile 上传原始简历文件到originalsBucket，返回对象键 (不含bucket前缀)
func (m *MinIO) UploadResumeFile(ctx context.Context, submissionUUID, fileExt string, reader io.Reader, fileSize int64) (string, error) {
	objectName := ResumeObjectName(submissionUUID, fileExt)
	contentType := getContentType(fileExt)

	ctx, span := minioTracer.Start(ctx, "MinIO.UploadResumeFile", trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("minio.bucket", m.originalBucket),
			attribute.String("minio.object", objectName),
			attribute.Int64("minio.size", fileSize),
		))
	defer span.End()

	info, err := m.client.PutObject(ctx, m.originalBucket, objectName, reader, fileSize, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeStorage)
		return "", fmt.Errorf("上传对象 %s/%s 失败: %w", m.originalBucket, objectName, err)
	}

	m.logger.Debug().
		Str("submission_uuid", submissionUUID).
		Str("object", objectName).
		Str("etag", info.ETag).
		Int64("size", info.Size).
		Msg("原始简历上传成功")
	return objectName, nil
}

// UploadResumeBytes 从内存上传原始简历
func (m *MinIO) UploadResumeBytes(ctx context.Context, submissionUUID, fileExt string, data []byte) (string, error) {
	return m.UploadResumeFile(ctx, submissionUUID, fileExt, bytes.NewReader(data), int64(len(data)))
}

// GetResumeFile 从originalsBucket下载简历文件
func (m *MinIO) GetResumeFile(ctx context.Context, objectName string) ([]byte, error) {
	ctx, span := minioTracer.Start(ctx, "MinIO.GetResumeFile", trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("minio.bucket", m.originalBucket),
			attribute.String("minio.object", objectName),
		))
	defer span.End()

	obj, err := m.client.GetObject(ctx, m.originalBucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeStorage)
		return nil, fmt.Errorf("获取对象 %s/%s 失败: %w", m.originalBucket, objectName, err)
	}
	defer obj.Close()

	// Stat 能提前暴露对象不存在或无权限
	stat, err := obj.Stat()
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeStorage)
		return nil, fmt.Errorf("获取对象 %s/%s 状态失败: %w", m.originalBucket, objectName, err)
	}

	data, err := io.ReadAll(obj)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeStorage)
		return nil, fmt.Errorf("读取对象 %s/%s 数据失败: %w", m.originalBucket, objectName, err)
	}
	span.SetAttributes(attribute.Int64("minio.size", stat.Size), attribute.String("minio.content_type", stat.ContentType))
	return data, nil
}

// GetPresignedURL 获取预签名URL
func (m *MinIO) GetPresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	u, err := m.client.PresignedGetObject(ctx, m.originalBucket, objectName, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("生成MinIO预签名URL失败: %w", err)
	}
	return u.String(), nil
}

// DeleteFile 删除文件
func (m *MinIO) DeleteFile(ctx context.Context, objectName string) error {
	if err := m.client.RemoveObject(ctx, m.originalBucket, objectName, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("删除对象 %s 失败: %w", objectName, err)
	}
	m.logger.Debug().Str("object", objectName).Msg("对象已删除")
	return nil
}

// getContentType 根据扩展名推断Content-Type
func getContentType(fileExt string) string {
	ext := strings.ToLower(fileExt)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	switch ext {
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".txt":
		return "text/plain"
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// FileExt 取文件名的扩展名（小写，含点）
func FileExt(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}
