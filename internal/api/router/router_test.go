package router

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/textproto"
	"testing"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smarthire-ats/internal/api/handler"
	"smarthire-ats/internal/config"
	"smarthire-ats/internal/nlp"
	"smarthire-ats/internal/parser"
	"smarthire-ats/internal/ratelimit"
)

func newTestEngine(t *testing.T, apiKeys []string) *server.Hertz {
	return newLimitedEngine(t, apiKeys, nil)
}

func newLimitedEngine(t *testing.T, apiKeys []string, limiter *ratelimit.TokenBucket) *server.Hertz {
	t.Helper()
	quiet := nlp.AnalyzerFunc(func(string) (nlp.Analysis, error) { return nlp.Analysis{}, nil })
	p, err := parser.Build(context.Background(), config.DefaultConfig(),
		parser.WithAnalyzer(quiet),
		parser.WithClock(func() time.Time { return time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC) }),
	)
	require.NoError(t, err)

	h := server.New()
	RegisterRoutes(h, handler.NewResumeHandler(config.DefaultConfig(), p), apiKeys, limiter)
	return h
}

func jobFitBody() *ut.Body {
	b := []byte(`{"skills":["Go"],"job_description":"Go and Docker"}`)
	return &ut.Body{Body: bytes.NewReader(b), Len: len(b)}
}

func TestRoutes_OpenWithoutAPIKeys(t *testing.T) {
	h := newTestEngine(t, nil)

	w := ut.PerformRequest(h.Engine, consts.MethodPost, "/api/v1/match/job-fit", jobFitBody())
	assert.Equal(t, consts.StatusOK, w.Result().StatusCode())
}

func TestRoutes_APIKeyRequired(t *testing.T) {
	h := newTestEngine(t, []string{"secret-1", "secret-2"})

	tests := []struct {
		name   string
		header *ut.Header
		want   int
	}{
		{"missing key", nil, consts.StatusUnauthorized},
		{"wrong key", &ut.Header{Key: APIKeyHeader, Value: "nope"}, consts.StatusUnauthorized},
		{"first key", &ut.Header{Key: APIKeyHeader, Value: "secret-1"}, consts.StatusOK},
		{"second key", &ut.Header{Key: APIKeyHeader, Value: "secret-2"}, consts.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var headers []ut.Header
			if tt.header != nil {
				headers = append(headers, *tt.header)
			}
			w := ut.PerformRequest(h.Engine, consts.MethodPost, "/api/v1/match/job-fit", jobFitBody(), headers...)
			assert.Equal(t, tt.want, w.Result().StatusCode())
		})
	}
}

func TestRoutes_HealthStaysOpen(t *testing.T) {
	h := newTestEngine(t, []string{"secret"})

	w := ut.PerformRequest(h.Engine, consts.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, consts.StatusOK, w.Result().StatusCode())
}

func TestRequestID_GeneratedAndEchoed(t *testing.T) {
	h := newTestEngine(t, nil)

	w := ut.PerformRequest(h.Engine, consts.MethodGet, "/api/v1/health", nil)
	generated := string(w.Result().Header.Peek(RequestIDHeader))
	assert.Len(t, generated, 36)

	w = ut.PerformRequest(h.Engine, consts.MethodGet, "/api/v1/health", nil, ut.Header{Key: RequestIDHeader, Value: "req-123"})
	assert.Equal(t, "req-123", string(w.Result().Header.Peek(RequestIDHeader)))
}

func TestRequestID_InErrorBody(t *testing.T) {
	h := newTestEngine(t, nil)

	bad := []byte("{")
	w := ut.PerformRequest(h.Engine, consts.MethodPost, "/api/v1/match/job-fit",
		&ut.Body{Body: bytes.NewReader(bad), Len: len(bad)},
		ut.Header{Key: RequestIDHeader, Value: "req-err"})
	resp := w.Result()
	assert.Equal(t, consts.StatusBadRequest, resp.StatusCode())
	assert.Contains(t, string(resp.Body()), `"request_id":"req-err"`)
}

func TestRateLimit_ParseRoutesOnly(t *testing.T) {
	clock := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	limiter := ratelimit.NewTokenBucket(60, 1, ratelimit.WithClock(func() time.Time { return clock }))
	h := newLimitedEngine(t, nil, limiter)

	parse := func() int {
		body, header := parseBody()
		return ut.PerformRequest(h.Engine, consts.MethodPost, "/api/v1/resume/parse", body, header).Result().StatusCode()
	}

	assert.Equal(t, consts.StatusOK, parse())

	w := ut.PerformRequest(h.Engine, consts.MethodPost, "/api/v1/resume/parse", nil)
	resp := w.Result()
	assert.Equal(t, consts.StatusTooManyRequests, resp.StatusCode())
	assert.Equal(t, "1", string(resp.Header.Peek("Retry-After")))

	// 其他接口不受限流影响
	w = ut.PerformRequest(h.Engine, consts.MethodPost, "/api/v1/match/job-fit", jobFitBody())
	assert.Equal(t, consts.StatusOK, w.Result().StatusCode())
}

func parseBody() (*ut.Body, ut.Header) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="resume.txt"`)
	header.Set("Content-Type", "text/plain")
	part, _ := mw.CreatePart(header)
	_, _ = part.Write([]byte("Jane Doe\njane@example.com\n\nTechnical Skills\nGo, Docker\n"))
	_ = mw.Close()
	return &ut.Body{Body: bytes.NewReader(buf.Bytes()), Len: buf.Len()},
		ut.Header{Key: "Content-Type", Value: mw.FormDataContentType()}
}
