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
)

// logLine runs emit against a fresh handler and returns the single line written.
func logLine(t *testing.T, format logFormat, emit func(*slog.Logger)) string {
	t.Helper()
	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	h := newStructuredHandler(handlerConfig{
		level:  slog.LevelDebug,
		writer: aw,
		format: format,
	})
	emit(slog.New(h))
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return strings.TrimSpace(buf.String())
}

func TestStructuredHandlerKVOrder(t *testing.T) {
	ctx := WithUpdateMeta(WithRID(Background(), "rid-123"), 42, 7, 9)
	line := logLine(t, formatKV, func(l *slog.Logger) {
		LogEvent(ctx, l.With("component", "app"), slog.LevelInfo, "test.event",
			slog.String("status", "OK"),
			slog.String("cause", "unit"),
		)
	})
	tokens := strings.Split(line, " ")
	want := []string{"ts=", "level=INFO", "component=app", "event=test.event", "status=ok", "rid=rid-123"}
	if len(tokens) < len(want) {
		t.Fatalf("short line: %s", line)
	}
	for i, prefix := range want {
		if !strings.HasPrefix(tokens[i], prefix) {
			t.Fatalf("token %d = %s, want prefix %s", i, tokens[i], prefix)
		}
	}
}

func TestStructuredHandlerJSONOrder(t *testing.T) {
	ctx := WithUpdateMeta(WithRID(Background(), "rid-json"), 11, 22, 33)
	line := logLine(t, formatJSON, func(l *slog.Logger) {
		LogEvent(ctx, l.With("component", "fetch"), slog.LevelError, "fetch.fail",
			slog.String("status", "fail"),
			slog.Any("err", errors.New("boom")),
		)
	})
	pos := -1
	for _, pref := range []string{`{"ts":`, `"level":"ERROR"`, `"component":"fetch"`, `"event":"fetch.fail"`, `"status":"fail"`, `"rid":"rid-json"`, `"err":"boom"`} {
		idx := strings.Index(line, pref)
		if idx == -1 || idx < pos {
			t.Fatalf("%s missing or out of order in %s", pref, line)
		}
		pos = idx
	}
}

func TestStructuredHandlerCompactRID(t *testing.T) {
	ctx := WithRID(Background(), "12:34:56")
	emit := func(l *slog.Logger) { LogEvent(ctx, l, slog.LevelInfo, "rid.test") }

	kv := logLine(t, formatKV, emit)
	if !strings.Contains(kv, "rid=c.y.1k") || strings.Contains(kv, "rid_full=") {
		t.Fatalf("kv line: %s", kv)
	}
	js := logLine(t, formatJSON, emit)
	for _, want := range []string{`"rid":"c.y.1k"`, `"rid_full":"12:34:56"`, `"ts_unix_nano"`} {
		if !strings.Contains(js, want) {
			t.Fatalf("expected %s in %s", want, js)
		}
	}
}

func TestStructuredHandlerDurationAndContext(t *testing.T) {
	ctx := WithHandler(WithUpdateMeta(Background(), 5, 6, 7), "weather_tralee")
	line := logLine(t, formatKV, func(l *slog.Logger) {
		LogEvent(ctx, l.With("component", "fetch"), slog.LevelDebug, "fetch.done",
			slog.Duration("duration", 1500*time.Microsecond),
			slog.Duration("upstream_duration", 2*time.Millisecond),
			slog.String("outcome", "bogus"),
			slog.String("empty", ""),
		)
	})
	for _, want := range []string{"duration_ms=2", "upstream_duration_ms=2", "chat_id=7", "user_id=6", "update_id=5", "handler=weather_tralee"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %s", want, line)
		}
	}
	for _, unwanted := range []string{"outcome=", "empty="} {
		if strings.Contains(line, unwanted) {
			t.Fatalf("unexpected %q in %s", unwanted, line)
		}
	}
}

func TestStructuredHandlerGroupsAndQuoting(t *testing.T) {
	line := logLine(t, formatKV, func(l *slog.Logger) {
		l.WithGroup("upstream").Info("",
			slog.String("name", "xrates"),
			slog.Group("req", slog.Int("code", 502)),
			slog.String("payload", `say "hi"`),
		)
	})
	for _, want := range []string{"event=unknown", "upstream.name=xrates", "upstream.req.code=502", `upstream.payload="say \"hi\""`} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %s", want, line)
		}
	}
}

func TestStructuredHandlerEnabled(t *testing.T) {
	h := newStructuredHandler(handlerConfig{level: slog.LevelWarn})
	if h.Enabled(context.Background(), slog.LevelInfo) || !h.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("level filter mismatch")
	}
	if err := h.Handle(context.Background(), slog.Record{}); err == nil {
		t.Fatal("expected error without writer")
	}
}
