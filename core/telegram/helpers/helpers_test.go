package helpers

import (
	"testing"

	"github.com/m3rciful/infobot/core/logger"

	tele "gopkg.in/telebot.v4"
)

func newContext(t *testing.T, upd tele.Update) tele.Context {
	t.Helper()
	b, err := tele.NewBot(tele.Settings{Offline: true})
	if err != nil {
		t.Fatalf("bot: %v", err)
	}
	return b.NewContext(upd)
}

func TestIDs(t *testing.T) {
	c := newContext(t, tele.Update{ID: 9, Message: &tele.Message{
		Chat:   &tele.Chat{ID: -100},
		Sender: &tele.User{ID: 42},
	}})
	upd, chat, user := IDs(c)
	if upd != 9 || chat != -100 || user != 42 {
		t.Fatalf("IDs = %d %d %d", upd, chat, user)
	}
}

func TestContextLifecycle(t *testing.T) {
	c := newContext(t, tele.Update{ID: 3, Message: &tele.Message{Chat: &tele.Chat{ID: 7}}})
	if _, ok := ContextFrom(c); ok {
		t.Fatal("fresh context should have nothing stored")
	}

	first := BuildContext(c)
	rid := logger.RIDFrom(first)
	if rid == "" {
		t.Fatal("rid not assigned")
	}
	if again := BuildContext(c); logger.RIDFrom(again) != rid {
		t.Fatal("BuildContext should reuse the stored context")
	}

	ctx := WithHandler(c, "weather")
	if got := logger.MetaFrom(ctx).Handler; got != "weather" {
		t.Fatalf("handler = %q", got)
	}
	if stored, _ := ContextFrom(c); logger.MetaFrom(stored).Handler != "weather" {
		t.Fatal("handler not stored on context")
	}
}

func TestHTMLOptions(t *testing.T) {
	if opts := htmlOptions(nil); opts.ParseMode != tele.ModeHTML || opts.ReplyMarkup != nil {
		t.Fatalf("opts = %+v", opts)
	}
	kb := &tele.ReplyMarkup{}
	if opts := htmlOptions([]*tele.ReplyMarkup{kb}); opts.ReplyMarkup != kb {
		t.Fatal("markup not attached")
	}
}
