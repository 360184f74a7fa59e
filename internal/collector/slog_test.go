package collector

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"debugbar/internal/domain"
)

func TestSlogHandler_InterpolatesAndAppendsAttrs(t *testing.T) {
	c := newTestMessages("messages")
	logger := slog.New(NewSlogHandler(c, nil)).With("component", "auth")

	logger.Info("user {user} logged in", "user", "ann", "attempts", 2)

	msgs := c.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "user ann logged in attempts=2 component=auth", msgs[0].Message)
	assert.Equal(t, domain.LevelInfo, msgs[0].Label)
}

func TestSlogHandler_Groups(t *testing.T) {
	c := newTestMessages("messages")
	logger := slog.New(NewSlogHandler(c, nil)).WithGroup("req").With("id", "r1")

	logger.Warn("slow {req.id}", slog.Group("db", slog.Int("ms", 900)))

	msgs := c.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "slow r1 req.db.ms=900", msgs[0].Message)
	assert.Equal(t, domain.LevelWarning, msgs[0].Label)
}

func TestSlogHandler_LevelFilter(t *testing.T) {
	c := newTestMessages("messages")
	logger := slog.New(NewSlogHandler(c, &slog.HandlerOptions{Level: slog.LevelWarn}))

	logger.Debug("hidden")
	logger.Info("hidden")
	logger.Error("shown")

	msgs := c.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "shown", msgs[0].Message)
}

func TestSlogHandler_OriginFromRecordPC(t *testing.T) {
	c := newTestMessages("messages")
	c.CollectFileTrace(true)
	c.excluded = nil
	logger := slog.New(NewSlogHandler(c, nil))

	logger.Log(context.Background(), slog.LevelDebug, "here")

	msg := c.Messages()[0]
	require.NotNil(t, msg.Origin)
	assert.True(t, strings.HasSuffix(msg.Origin.File, "slog_test.go"), msg.Origin.File)
	require.NotNil(t, msg.Filename)
	assert.True(t, strings.HasPrefix(*msg.Filename, "slog_test.go:"))
}

func TestSlogHandler_NoOriginWithoutFileTrace(t *testing.T) {
	c := newTestMessages("messages")
	c.excluded = nil
	logger := slog.New(NewSlogHandler(c, nil))

	logger.Info("hello")

	msg := c.Messages()[0]
	assert.Nil(t, msg.Origin)
	assert.Nil(t, msg.Filename)
	assert.Nil(t, msg.OriginLink)
}

func TestSlogHandler_ExcludedRecordFrameFallsBackToStack(t *testing.T) {
	c := newTestMessages("messages")
	c.CollectFileTrace(true)
	c.env.capture = func() []domain.Frame {
		return []domain.Frame{
			{Index: 0, File: "/srv/app/internal/middleware/log.go", Line: 10},
			{Index: 1, File: "/srv/app/handlers/users.go", Line: 42, Function: "List"},
		}
	}
	// The default exclusions cover this file, so the record's own frame
	// is rejected.
	logger := slog.New(NewSlogHandler(c, nil))

	logger.Info("from middleware")

	msg := c.Messages()[0]
	require.NotNil(t, msg.Origin)
	assert.Equal(t, "/srv/app/handlers/users.go", msg.Origin.File)
	assert.Equal(t, 42, msg.Origin.Line)
}

func TestLevelFromSlog(t *testing.T) {
	tests := []struct {
		in   slog.Level
		want domain.Level
	}{
		{in: slog.LevelDebug, want: domain.LevelDebug},
		{in: slog.LevelInfo, want: domain.LevelInfo},
		{in: slog.LevelInfo + 2, want: domain.LevelNotice},
		{in: slog.LevelWarn, want: domain.LevelWarning},
		{in: slog.LevelError, want: domain.LevelError},
		{in: slog.LevelError + 4, want: domain.LevelCritical},
	}
	for _, tt := range tests {
		t.Run(tt.in.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, LevelFromSlog(tt.in))
		})
	}
}
