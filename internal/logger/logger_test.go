package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestParseLogLevel verifies mapping from strings to zapcore.Level and handling of unknown values.
func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]zapcore.Level{
		"debug":  zapcore.DebugLevel,
		"info":   zapcore.InfoLevel,
		" WARN ": zapcore.WarnLevel,
		"error":  zapcore.ErrorLevel,
		"fatal":  zapcore.FatalLevel,
		"":       zapcore.InfoLevel,
	}
	for s, lvl := range cases {
		got, ok := ParseLogLevel(s)
		require.True(t, ok)
		require.Equal(t, lvl, got)
	}

	_, ok := ParseLogLevel("unknown")
	require.False(t, ok)
}

// TestParseFormat defaults anything unknown to console.
func TestParseFormat(t *testing.T) {
	t.Parallel()

	require.Equal(t, FormatJSON, ParseFormat("JSON"))
	require.Equal(t, FormatConsole, ParseFormat("console"))
	require.Equal(t, FormatConsole, ParseFormat("xml"))
}

// TestContextHelpers ensures scoped loggers travel through the context.
func TestContextHelpers(t *testing.T) {
	t.Parallel()

	require.Same(t, Logger(), FromContext(context.Background()))

	core, logs := observer.New(zapcore.DebugLevel)
	ctx := ToContext(context.Background(), zap.New(core).Sugar())

	ctx = WithName(ctx, "detector")
	ctx = WithKV(ctx, "attempt", "a-1")

	InfoKV(ctx, "Worker finished", "verdict", "person")

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "detector", entries[0].LoggerName)
	require.Equal(t, "Worker finished", entries[0].Message)

	fields := entries[0].ContextMap()
	require.Equal(t, "a-1", fields["attempt"])
	require.Equal(t, "person", fields["verdict"])
}
