package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWithWriter_JSONLevelAndComponent(t *testing.T) {
	buf := &bytes.Buffer{}
	InitWithWriter(Config{Level: "warn", Format: "json"}, buf)
	t.Cleanup(func() { InitWithWriter(Config{Level: "info"}, &bytes.Buffer{}) })

	Info().Msg("应被过滤")
	assert.Zero(t, buf.Len(), "warn 级别下 info 日志不应输出")

	l := Component("extractor")
	l.Warn().Str("file", "a.pdf").Msg("提取失败")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "extractor", entry["component"])
	assert.Equal(t, "a.pdf", entry["file"])
	assert.Contains(t, entry, "time")
}

func TestInitWithWriter_InvalidLevelFallsBackToInfo(t *testing.T) {
	InitWithWriter(Config{Level: "verbose"}, &bytes.Buffer{})
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}

func TestCtx_FallsBackToGlobal(t *testing.T) {
	buf := &bytes.Buffer{}
	InitWithWriter(Config{Level: "debug"}, buf)

	Ctx(context.Background()).Info().Msg("global")
	assert.Contains(t, buf.String(), "global")

	buf.Reset()
	ctx := WithContext(context.Background())
	Ctx(ctx).Info().Msg("from ctx")
	assert.Contains(t, buf.String(), "from ctx")
}
