package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m3rciful/infobot/core/logger"
	tghelpers "github.com/m3rciful/infobot/core/telegram/helpers"
	"github.com/m3rciful/infobot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

func newContext(t *testing.T, msg *tele.Message) tele.Context {
	t.Helper()
	b, err := tele.NewBot(tele.Settings{Offline: true})
	if err != nil {
		t.Fatalf("bot: %v", err)
	}
	return b.NewContext(tele.Update{ID: 77, Message: msg})
}

func TestMessageKind(t *testing.T) {
	cases := []struct {
		msg  *tele.Message
		want string
	}{
		{nil, "none"},
		{&tele.Message{Text: "/start"}, "command"},
		{&tele.Message{Text: "Tralee"}, "text"},
		{&tele.Message{Photo: &tele.Photo{}}, "media"},
	}
	for _, tc := range cases {
		if got := MessageKind(tc.msg); got != tc.want {
			t.Fatalf("MessageKind(%+v) = %q, want %q", tc.msg, got, tc.want)
		}
	}
}

func TestRecoverMiddlewareSwallowsPanic(t *testing.T) {
	h := RecoverMiddleware(func(tele.Context) error {
		panic("boom")
	})
	c := newContext(t, &tele.Message{Text: "x", Chat: &tele.Chat{ID: 1}})
	if err := h(c); err != nil {
		t.Fatalf("err = %v", err)
	}
}

func TestMetricsCountsMessages(t *testing.T) {
	h := MessageMetricsMiddleware(func(c tele.Context) error {
		rec, ok := c.Get(tghelpers.RecorderKey).(tghelpers.SendRecorder)
		if !ok {
			t.Fatal("recorder not stored")
		}
		rec.RecordSend(false, nil)
		rec.RecordSend(true, nil)
		rec.RecordSend(true, errors.New("network"))
		return nil
	})
	c := newContext(t, &tele.Message{Text: "x", Chat: &tele.Chat{ID: 1}})
	if err := h(c); err != nil {
		t.Fatal(err)
	}
	if sent, failed, kb := GetCounters(c); sent != 2 || failed != 1 || !kb {
		t.Fatalf("counters = %d %d %v", sent, failed, kb)
	}
}

// quietContext drops outbound messages instead of calling Telegram.
type quietContext struct{ tele.Context }

func (quietContext) Send(any, ...any) error  { return nil }
func (quietContext) Reply(any, ...any) error { return nil }

func TestMetricsCountQueuedSends(t *testing.T) {
	release := make(chan struct{})
	disp := sender.NewDispatcher(sender.Options{Workers: 1})
	tghelpers.SetDispatcher(disp)
	defer func() {
		close(release)
		disp.Close()
		tghelpers.SetDispatcher(nil)
	}()
	// Occupy the only worker so the handler's sends stay queued.
	if err := disp.Enqueue(context.Background(), 1, "block", "test", func() error {
		<-release
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	h := MessageMetricsMiddleware(func(c tele.Context) error {
		if err := tghelpers.SendText(c, "one"); err != nil {
			return err
		}
		return tghelpers.SendHTML(c, "<b>two</b>", &tele.ReplyMarkup{})
	})
	c := quietContext{newContext(t, &tele.Message{Text: "x", Chat: &tele.Chat{ID: 1}})}
	if err := h(c); err != nil {
		t.Fatal(err)
	}
	if sent, failed, kb := GetCounters(c); sent != 2 || failed != 0 || !kb {
		t.Fatalf("counters = %d %d %v", sent, failed, kb)
	}
}

func TestGetCountersWithoutMiddleware(t *testing.T) {
	c := newContext(t, &tele.Message{Text: "x", Chat: &tele.Chat{ID: 1}})
	if sent, failed, kb := GetCounters(c); sent != 0 || failed != 0 || kb {
		t.Fatalf("counters = %d %d %v", sent, failed, kb)
	}
}

func TestUpdateSetFirst(t *testing.T) {
	s := &updateSet{ttl: time.Second, seen: make(map[int]time.Time)}
	now := time.Now()
	if !s.first(1, now) {
		t.Fatal("first sighting should report true")
	}
	if s.first(1, now.Add(500*time.Millisecond)) {
		t.Fatal("repeat within ttl should report false")
	}
	if !s.first(1, now.Add(2*time.Second)) {
		t.Fatal("entry should expire after ttl")
	}
}

func TestLoggerMiddlewareBindsContext(t *testing.T) {
	var rid string
	h := LoggerMiddleware(func(c tele.Context) error {
		if ctx, ok := tghelpers.ContextFrom(c); ok {
			rid = logger.RIDFrom(ctx)
		}
		return nil
	})
	c := newContext(t, &tele.Message{Text: "/start", Chat: &tele.Chat{ID: 5}})
	if err := h(c); err != nil {
		t.Fatal(err)
	}
	if rid == "" {
		t.Fatal("rid not bound to context")
	}
}
