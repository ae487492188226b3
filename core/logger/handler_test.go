package logger

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T, format logFormat) (*slog.Logger, func() string) {
	t.Helper()
	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	h := newStructuredHandler(handlerConfig{
		level:    slog.LevelDebug,
		writer:   aw,
		format:   format,
		keyOrder: append([]string(nil), defaultKeyOrder...),
	})
	return slog.New(h), func() string {
		require.NoError(t, aw.Close())
		return strings.TrimSpace(buf.String())
	}
}

func TestStructuredHandlerKVOrder(t *testing.T) {
	log, read := newTestLogger(t, formatKV)
	ctx := WithRID(context.Background(), "rid-123")
	ctx = WithUpdateMeta(ctx, 42, 7, 9)

	LogEvent(ctx, log.With("component", CompSubmission), slog.LevelInfo, "session.transition",
		slog.String("status", "OK"),
		slog.String("from_state", "idle"),
	)

	tokens := strings.Split(read(), " ")
	expected := []string{"ts=", "level=INFO", "component=submission", "event=session.transition", "status=ok", "rid=rid-123", "update_id=42", "user_id=7", "chat_id=9", "from_state=idle"}
	require.GreaterOrEqual(t, len(tokens), len(expected))
	for i, prefix := range expected {
		assert.True(t, strings.HasPrefix(tokens[i], prefix), "token %d = %s, expected prefix %s", i, tokens[i], prefix)
	}
}

func TestStructuredHandlerJSONCompactRID(t *testing.T) {
	log, read := newTestLogger(t, formatJSON)
	raw := "12:34:56"
	ctx := WithRID(context.Background(), raw)

	LogEvent(ctx, log, slog.LevelError, "resolve.failed",
		slog.Any("err", errors.New("boom")),
		slog.Duration("duration", 1500*time.Microsecond),
	)

	line := read()
	assert.True(t, strings.HasPrefix(line, `{"ts":`), line)
	assert.Contains(t, line, `"component":"app"`)
	assert.Contains(t, line, `"rid":"`+CompactRID(raw)+`"`)
	assert.Contains(t, line, `"rid_full":"`+raw+`"`)
	assert.Contains(t, line, `"err":"boom"`)
	assert.Contains(t, line, `"duration_ms":2`)
	assert.Contains(t, line, `"ts_unix_nano"`)
}

func TestStructuredHandlerDropsUnknownOutcome(t *testing.T) {
	log, read := newTestLogger(t, formatKV)
	LogEvent(context.Background(), log, slog.LevelInfo, "handler.handled",
		slog.String("outcome", "exploded"),
		slog.String("payload", "two words"),
	)
	line := read()
	assert.NotContains(t, line, "outcome=")
	assert.Contains(t, line, `payload="two words"`)
}

func TestStructuredHandlerRespectsLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	log := slog.New(newStructuredHandler(handlerConfig{level: slog.LevelWarn, writer: aw, format: formatKV}))
	log.Info("quiet")
	log.Warn("loud")
	require.NoError(t, aw.Close())
	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), "event=loud")
}

func TestCompactRID(t *testing.T) {
	assert.Equal(t, "z.10.0", CompactRID("35:36:0"))
	assert.Equal(t, "not-a-rid", CompactRID("not-a-rid"))
	assert.Equal(t, "1:x:2", CompactRID("1:x:2"))
}

func TestParseDebugSample(t *testing.T) {
	cases := map[string][2]int{
		"":     {1, 50},
		"3/10": {3, 10},
		"20":   {1, 20},
		"0":    {0, 0},
		"junk": {1, 50},
	}
	for spec, want := range cases {
		n, d := parseDebugSample(spec)
		assert.Equal(t, want, [2]int{n, d}, spec)
	}
}

func TestSanitizeLimit(t *testing.T) {
	assert.Equal(t, "ab\tc", SanitizeLimit("a\x00b\tc\u200e", 10))
	assert.Equal(t, "héll", SanitizeLimit("héllo", 4))
	assert.Empty(t, SanitizeLimit("x", 0))
}
