package logger

import (
	"context"
	"log/slog"
	"testing"

	"github.com/phrazzld/accounts-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in    string
		want  slog.Level
		known bool
	}{
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{" warn ", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"chatty", slog.LevelInfo, false},
	}
	for _, tt := range tests {
		level, ok := ParseLevel(tt.in)
		assert.Equal(t, tt.want, level, tt.in)
		assert.Equal(t, tt.known, ok, tt.in)
	}
}

func TestSetupWarnsOnInvalidLevel(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	buf := &TestLogBuffer{}
	l := setup(buf, config.ServerConfig{LogLevel: "loud"})
	require.NotNil(t, l)

	assert.True(t, buf.HasMessage("invalid log level configured, using default level"))
	assert.Same(t, l, slog.Default())
}

func TestFromContext(t *testing.T) {
	t.Parallel()

	l, _ := NewTestLogger()
	ctx := WithLogger(context.Background(), l)

	assert.Same(t, l, FromContext(ctx))

	fallback, _ := NewTestLogger()
	assert.Same(t, fallback, FromContextOrDefault(context.Background(), fallback))
	assert.NotNil(t, FromContextOrDefault(context.Background(), nil))
}
