package tracing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func recordSpan(t *testing.T, fn func(span trace.Span)) sdktrace.ReadOnlySpan {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	_, span := tp.Tracer("test").Start(context.Background(), "op")
	fn(span)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	return spans[0]
}

func attrs(s sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	m := make(map[attribute.Key]attribute.Value)
	for _, kv := range s.Attributes() {
		m[kv.Key] = kv.Value
	}
	return m
}

func TestRecordError(t *testing.T) {
	s := recordSpan(t, func(span trace.Span) {
		RecordError(span, errors.New("connection refused"), ErrorTypeDB, attribute.String("db.sql.table", "resume_analyses"))
	})

	assert.Equal(t, codes.Error, s.Status().Code)
	a := attrs(s)
	assert.Equal(t, "db", a["error.type"].AsString())
	assert.Equal(t, "connection refused", a["error.message"].AsString())
	assert.Equal(t, "resume_analyses", a["db.sql.table"].AsString())
	require.Len(t, s.Events(), 1)
	assert.Equal(t, "exception", s.Events()[0].Name)
}

func TestRecordError_NilErrorIsNoop(t *testing.T) {
	s := recordSpan(t, func(span trace.Span) {
		RecordError(span, nil, ErrorTypeDB)
	})
	assert.Equal(t, codes.Unset, s.Status().Code)
	assert.Empty(t, s.Attributes())
}

func TestRecordHTTPError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		status    int
		wantCode  codes.Code
		wantCateg string
	}{
		{"4xx without error", nil, 404, codes.Unset, ""},
		{"4xx with error", errors.New("bad json"), 400, codes.Error, "client_error"},
		{"5xx without error", nil, 503, codes.Error, "server_error"},
		{"5xx with error", errors.New("db down"), 500, codes.Error, "server_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := recordSpan(t, func(span trace.Span) {
				RecordHTTPError(span, tt.err, tt.status)
			})
			a := attrs(s)
			assert.EqualValues(t, tt.status, a["http.status_code"].AsInt64())
			assert.Equal(t, tt.wantCode, s.Status().Code)
			assert.Equal(t, tt.wantCateg, a["error.category"].AsString())
		})
	}
}

func TestRecordMessageOutcomes(t *testing.T) {
	s := recordSpan(t, func(span trace.Span) {
		RecordMessageRejected(span, "msg-1", "")
	})
	a := attrs(s)
	assert.Equal(t, "message rejected", a["error.message"].AsString())
	assert.Equal(t, "reject", a["messaging.error_type"].AsString())
	assert.Equal(t, "msg-1", a["messaging.message_id"].AsString())

	s = recordSpan(t, func(span trace.Span) {
		RecordMessageTimeout(span, "msg-2", 30*time.Second)
	})
	a = attrs(s)
	assert.Equal(t, "timeout", a["error.type"].AsString())
	assert.Equal(t, "message processing exceeded 30s", a["error.message"].AsString())
	assert.Equal(t, codes.Error, s.Status().Code)
}
