package logger

import (
	"testing"
	"time"

	"github.com/nulzo/chat-registry/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestColoredConsoleEncoder_HighlightsFields(t *testing.T) {
	enc := NewColoredConsoleEncoder(zap.NewDevelopmentEncoderConfig())

	buf, err := enc.EncodeEntry(zapcore.Entry{
		Level:   zapcore.InfoLevel,
		Time:    time.Unix(0, 0),
		Message: "Ollama base URL resolved",
	}, []zapcore.Field{zap.String("ollama_host", "http://localhost:11434")})
	require.NoError(t, err)
	defer buf.Free()

	line := buf.String()
	assert.Contains(t, line, "Ollama base URL resolved")
	assert.Contains(t, line, "ollama_host")
	assert.Contains(t, line, "http://localhost:11434")
}

func TestFromConfig(t *testing.T) {
	cfg := FromConfig(config.LogConfig{Level: "DEBUG", Format: "json"})
	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
}

func TestBuild_Encodings(t *testing.T) {
	for _, c := range []Config{
		{Level: "info", Format: "json"},
		{Level: "warn", Format: "console"},
		{Level: "debug", Format: "console", EnableColor: true},
	} {
		l, lvl := build(c)
		require.NotNil(t, l)
		assert.Equal(t, parseLevel(c.Level), lvl.Level())
	}
}

func TestBuild_LevelIsAdjustable(t *testing.T) {
	l, lvl := build(Config{Level: "info", Format: "json", Output: "stderr"})
	require.NotNil(t, l)
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))

	lvl.SetLevel(zapcore.DebugLevel)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
}
