package telemetry

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":      slog.LevelInfo,
		"DEBUG": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"ERROR": slog.LevelError,
		"trace": slog.LevelInfo,
	}

	for env, want := range tests {
		t.Run(env, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", env)
			assert.Equal(t, want, LogLevel())
		})
	}
}

func TestWithJob(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	WithJob(WithInstanceID(logger, "host:1"), "daily").Info("job is ready")

	assert.Contains(t, buf.String(), "instance_id=host:1")
	assert.Contains(t, buf.String(), "job=daily")
}
