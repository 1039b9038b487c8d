package router

import (
	"context"
	"crypto/subtle"
	"errors"
	"math"
	"strconv"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/google/uuid"
	"github.com/hertz-contrib/keyauth"

	"smarthire-ats/internal/api/handler"
	"smarthire-ats/internal/logger"
	"smarthire-ats/internal/ratelimit"
	"smarthire-ats/internal/tracing"

	"go.opentelemetry.io/otel/trace"
)

// APIKeyHeader 携带 API key 的请求头
const APIKeyHeader = "X-API-Key"

// RequestIDHeader 请求ID请求头
const RequestIDHeader = "X-Request-ID"

var errInvalidAPIKey = errors.New("invalid api key")

// RegisterRoutes 注册 API 路由。apiKeys 为空时不启用鉴权，健康检查始终开放。
// limiter 只作用于解析和提交这两个耗时接口，为 nil 时不限流。
func RegisterRoutes(h *server.Hertz, resumeHandler *handler.ResumeHandler, apiKeys []string, limiter *ratelimit.TokenBucket) {
	h.Use(RequestID())

	api := h.Group("/api/v1")
	api.GET("/health", handler.HandleHealth)

	secured := api.Group("")
	if len(apiKeys) > 0 {
		secured.Use(APIKeyAuth(apiKeys))
	}

	limited := secured.Group("")
	if limiter != nil {
		limited.Use(RateLimit(limiter))
	}
	limited.POST("/resume/parse", resumeHandler.HandleParse)
	limited.POST("/resume/submit", resumeHandler.HandleSubmit)

	secured.GET("/resume/:uuid", resumeHandler.HandleGetAnalysis)
	secured.GET("/jobs/:job_id/resumes", resumeHandler.HandleListByJob)
	secured.POST("/match/job-fit", resumeHandler.HandleJobFit)
}

// RequestID 为每个请求分配ID，写入响应头并绑定到请求日志
func RequestID() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		id := string(c.GetHeader(RequestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(handler.RequestIDKey, id)
		c.Header(RequestIDHeader, id)

		l := logger.Component("http").With().Str("request_id", id).Logger()
		if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
			l = l.With().Str("trace_id", sc.TraceID().String()).Logger()
		}
		ctx = l.WithContext(ctx)

		start := time.Now()
		c.Next(ctx)

		l.Debug().
			Str("method", string(c.Method())).
			Str("path", string(c.Path())).
			Int("status", c.Response.StatusCode()).
			Dur("latency", time.Since(start)).
			Msg("request completed")
	}
}

// APIKeyAuth 校验 X-API-Key 请求头
func APIKeyAuth(apiKeys []string) app.HandlerFunc {
	keys := make([][]byte, 0, len(apiKeys))
	for _, k := range apiKeys {
		if k != "" {
			keys = append(keys, []byte(k))
		}
	}

	return keyauth.New(
		keyauth.WithKeyLookUp("header:"+APIKeyHeader, ""),
		keyauth.WithValidator(func(ctx context.Context, c *app.RequestContext, key string) (bool, error) {
			for _, k := range keys {
				if subtle.ConstantTimeCompare(k, []byte(key)) == 1 {
					return true, nil
				}
			}
			return false, errInvalidAPIKey
		}),
		keyauth.WithErrorHandler(func(ctx context.Context, c *app.RequestContext, err error) {
			tracing.RecordHTTPError(trace.SpanFromContext(ctx), err, consts.StatusUnauthorized)
			c.AbortWithStatusJSON(consts.StatusUnauthorized, utils.H{"error": "未授权访问"})
		}),
	)
}

// RateLimit 令牌耗尽时返回 429 并带上 Retry-After
func RateLimit(limiter *ratelimit.TokenBucket) app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		if limiter.Allow() {
			c.Next(ctx)
			return
		}
		wait := limiter.RetryAfter()
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		logger.Ctx(ctx).Warn().Dur("retry_after", wait).Str("path", string(c.Path())).Msg("请求被限流")
		c.AbortWithStatusJSON(consts.StatusTooManyRequests, utils.H{
			"error":      "请求过于频繁，请稍后重试",
			"request_id": c.GetString(handler.RequestIDKey),
		})
	}
}
