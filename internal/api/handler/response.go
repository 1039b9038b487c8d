package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"go.opentelemetry.io/otel/trace"

	"smarthire-ats/internal/logger"
	"smarthire-ats/internal/tracing"
)

// RequestIDKey 请求ID在 RequestContext 中的键
const RequestIDKey = "request_id"

var errFileTooLarge = errors.New("file too large")

// respondError 写错误响应并记录到当前 span
func respondError(ctx context.Context, c *app.RequestContext, status int, msg string, err error) {
	if err == nil {
		err = errors.New(msg)
	}
	tracing.RecordHTTPError(trace.SpanFromContext(ctx), err, status)

	event := logger.Ctx(ctx).Warn()
	if status >= 500 {
		event = logger.Ctx(ctx).Error()
	}
	event.Err(err).Int("status", status).Str("path", string(c.Path())).Msg(msg)

	body := utils.H{"error": msg}
	if id, ok := c.Get(RequestIDKey); ok {
		body["request_id"] = id
	}
	c.JSON(status, body)
}

// readUpload 读取上传文件，超过 maxBytes 时返回 errFileTooLarge
func readUpload(fh *multipart.FileHeader, maxBytes int64) ([]byte, error) {
	if maxBytes > 0 && fh.Size > maxBytes {
		return nil, errFileTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("打开上传文件失败: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if maxBytes > 0 {
		r = io.LimitReader(f, maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("读取上传文件失败: %w", err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, errFileTooLarge
	}
	return data, nil
}
