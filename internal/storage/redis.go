package storage

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"smarthire-ats/internal/config"
	"smarthire-ats/internal/constants"
	"smarthire-ats/internal/tracing"
)

// ErrNotFound is returned when a key is not found in Redis.
// It wraps the underlying redis.Nil error for abstraction.
var ErrNotFound = redis.Nil

var redisTracer = tracing.Tracer("storage/redis")

// Redis wraps the Redis client
type Redis struct {
	Client *redis.Client
	config *config.RedisConfig
}

// NewRedisAdapter creates a new Redis client connection
func NewRedisAdapter(cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	opt := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,

		// 连接池设置
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,

		// 超时设置
		DialTimeout:  time.Duration(cfg.DialTimeoutSeconds) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,

		MaxRetries: cfg.MaxRetries,
	}

	client := redis.NewClient(opt)

	// 添加OpenTelemetry钩子, 记录所有Redis操作
	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, fmt.Errorf("failed to instrument Redis with OpenTelemetry: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	return &Redis{
		Client: client,
		config: cfg,
	}, nil
}

// Close closes the Redis client connection
func (r *Redis) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

// Ping checks the Redis connection
func (r *Redis) Ping(ctx context.Context) error {
	if r.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}
	return r.Client.Ping(ctx).Err()
}

// ResultTTL 返回解析结果的缓存时间
func (r *Redis) ResultTTL() time.Duration {
	if r.config == nil || r.config.ResultTTLHours <= 0 {
		return constants.DefaultResultTTL
	}
	return time.Duration(r.config.ResultTTLHours) * time.Hour
}

// MD5Hex 计算数据的MD5十六进制串
func MD5Hex(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// ResultKey 生成解析结果的缓存键。职位标题和 JD 的首尾空白不影响键，两者都为空时使用占位值。
func ResultKey(fileMD5, jobTitle, jobDescription string) string {
	jd := strings.TrimSpace(jobDescription)
	if jd == "" && strings.TrimSpace(jobTitle) == "" {
		jd = constants.EmptyJDMarker
	} else {
		jd = strings.TrimSpace(jobTitle) + "\x00" + jd
	}
	return fmt.Sprintf(constants.KeyResumeResult, fileMD5, MD5Hex([]byte(jd)))
}

// GetResult 读取缓存的解析结果，不存在时返回 ErrNotFound
func (r *Redis) GetResult(ctx context.Context, key string) (*CachedResult, error) {
	if r.Client == nil {
		return nil, fmt.Errorf("redis客户端未初始化")
	}

	ctx, span := redisTracer.Start(ctx, "Redis.GetResult", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		semconv.DBSystemRedis,
		attribute.String("db.operation", "GET"),
		attribute.String("db.redis.key", tracing.SafeRedisKey(key)),
	)

	val, err := r.Client.Get(ctx, key).Bytes()
	if err != nil {
		// key 不存在不算错误
		if errors.Is(err, redis.Nil) {
			span.SetStatus(codes.Ok, "key not found")
			span.SetAttributes(attribute.Bool("db.redis.key_exists", false))
			return nil, ErrNotFound
		}
		tracing.RecordError(span, err, tracing.ErrorTypeRedis)
		return nil, fmt.Errorf("读取解析结果缓存失败: %w", err)
	}

	var result CachedResult
	if err := json.Unmarshal(val, &result); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDataConversion)
		return nil, fmt.Errorf("反序列化解析结果失败: %w", err)
	}
	if result.Version != constants.ParserVersion {
		span.SetAttributes(attribute.String("cache.stale_version", result.Version))
		return nil, ErrNotFound
	}

	span.SetAttributes(
		attribute.Bool("db.redis.key_exists", true),
		attribute.Int("db.redis.value_length", len(val)),
	)
	span.SetStatus(codes.Ok, "")
	return &result, nil
}

// SetResult 写入解析结果缓存
func (r *Redis) SetResult(ctx context.Context, key string, result *CachedResult) error {
	if r.Client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}
	if result == nil {
		return fmt.Errorf("缓存结果不能为空")
	}

	ctx, span := redisTracer.Start(ctx, "Redis.SetResult", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	result.Version = constants.ParserVersion
	if result.CachedAt.IsZero() {
		result.CachedAt = time.Now()
	}
	data, err := json.Marshal(result)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDataConversion)
		return fmt.Errorf("序列化解析结果失败: %w", err)
	}

	ttl := r.ResultTTL()
	span.SetAttributes(
		semconv.DBSystemRedis,
		attribute.String("db.operation", "SET"),
		attribute.String("db.redis.key", tracing.SafeRedisKey(key)),
		attribute.Int("db.redis.value_length", len(data)),
		attribute.Int64("db.redis.expiration_ms", ttl.Milliseconds()),
	)

	if err := r.Client.Set(ctx, key, data, ttl).Err(); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeRedis)
		return fmt.Errorf("写入解析结果缓存失败: %w", err)
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

// CheckAndSetMD5 检查文件MD5是否已提交过。
// 已存在时返回 true 和之前的 submission_uuid；否则登记当前 submissionUUID 并返回 false。
func (r *Redis) CheckAndSetMD5(ctx context.Context, md5Hex, submissionUUID string) (bool, string, error) {
	if r.Client == nil {
		return false, "", fmt.Errorf("redis client is not initialized")
	}

	ctx, span := redisTracer.Start(ctx, "Redis.CheckAndSetMD5", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		semconv.DBSystemRedis,
		attribute.String("db.operation", "SETNX"),
		attribute.String("db.redis.member", md5Hex),
	)

	mapKey := fmt.Sprintf(constants.KeySubmissionDedup, md5Hex)
	expire := r.ResultTTL()

	// SETNX 保证同一MD5只有一个提交者成功
	ok, err := r.Client.SetNX(ctx, mapKey, submissionUUID, expire).Result()
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeRedis)
		return false, "", fmt.Errorf("执行原子添加MD5操作失败: %w", err)
	}
	if ok {
		pipe := r.Client.Pipeline()
		pipe.SAdd(ctx, constants.KeySubmissionDedupSet, md5Hex)
		pipe.Expire(ctx, constants.KeySubmissionDedupSet, expire)
		if _, err := pipe.Exec(ctx); err != nil {
			tracing.RecordError(span, err, tracing.ErrorTypeRedis)
			return false, "", fmt.Errorf("登记MD5集合失败: %w", err)
		}
		span.SetAttributes(attribute.Bool("md5.duplicate", false))
		return false, "", nil
	}

	existingUUID, err := r.Client.Get(ctx, mapKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		tracing.RecordError(span, err, tracing.ErrorTypeRedis)
		return true, "", fmt.Errorf("获取已存在的submission_uuid失败: %w", err)
	}
	span.SetAttributes(attribute.Bool("md5.duplicate", true))
	return true, existingUUID, nil
}

// RemoveMD5 删除MD5登记，处理失败后允许重新提交
func (r *Redis) RemoveMD5(ctx context.Context, md5Hex string) error {
	if r.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}
	pipe := r.Client.Pipeline()
	pipe.SRem(ctx, constants.KeySubmissionDedupSet, md5Hex)
	pipe.Del(ctx, fmt.Sprintf(constants.KeySubmissionDedup, md5Hex))
	_, err := pipe.Exec(ctx)
	return err
}
