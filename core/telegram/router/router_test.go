package router

import (
	"errors"
	"fmt"
	"testing"

	tg "github.com/m3rciful/infobot/core/telegram"
	"github.com/m3rciful/infobot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

type codedErr struct{}

func (codedErr) Error() string { return "boom" }
func (codedErr) Code() string  { return "upstream timeout" }

type plainErr struct{}

func (*plainErr) Error() string { return "plain" }

func TestDeriveErrorCode(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{codedErr{}, "UPSTREAM_TIMEOUT"},
		{&plainErr{}, "PLAINERR"},
	}
	for _, tc := range cases {
		if got := errorCode(tc.err); got != tc.want {
			t.Fatalf("errorCode(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
	if got := errorCode(fmt.Errorf("wrap: %w", codedErr{})); got != "UPSTREAM_TIMEOUT" {
		t.Fatalf("wrapped code = %q", got)
	}
	if got := errorCode(errors.New("x")); got != "ERRORSTRING" {
		t.Fatalf("stdlib code = %q", got)
	}
}

func TestNormalizeHandlerName(t *testing.T) {
	for in, want := range map[string]string{
		"/Weather_Tralee": "weather_tralee",
		"  ":              "unknown",
		"show id":         "show_id",
		"/run":            "run",
	} {
		if got := handlerName(in); got != want {
			t.Fatalf("handlerName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCommandRoutesIncludeAliases(t *testing.T) {
	reg := tg.NewRegistry()
	h := func(tele.Context) error { return nil }
	reg.RegisterCommand("/currency", commands.Command{Handler: h, Description: "rates", Aliases: []string{"USD", "GBP"}})
	reg.RegisterCommand("/help", commands.Command{Handler: h, Description: "help"})

	routes := CommandRoutes(reg)
	got := map[any]bool{}
	for _, r := range routes {
		if r.Handler == nil {
			t.Fatalf("nil handler for %v", r.Endpoint)
		}
		got[r.Endpoint] = true
	}
	for _, ep := range []string{"/currency", "/USD", "/GBP", "/help"} {
		if !got[ep] {
			t.Fatalf("missing endpoint %s in %v", ep, got)
		}
	}
	if CommandRoutes(nil) != nil {
		t.Fatal("nil registry should yield no routes")
	}
}

func TestMessageRoutesEndpoints(t *testing.T) {
	routes := MessageRoutes(MessageOptions{})
	if len(routes) != 1+len(mediaEndpoints) {
		t.Fatalf("routes = %d", len(routes))
	}
	if routes[0].Endpoint != tele.OnText {
		t.Fatalf("first endpoint = %v", routes[0].Endpoint)
	}
}

func TestSummarizePassesThroughErrors(t *testing.T) {
	b, err := tele.NewBot(tele.Settings{Offline: true})
	if err != nil {
		t.Fatalf("bot: %v", err)
	}
	c := b.NewContext(tele.Update{ID: 3, Message: &tele.Message{Text: "hi", Chat: &tele.Chat{ID: 9}}})

	if err := summarize("text", nil)(c); err != nil {
		t.Fatalf("nil handler err = %v", err)
	}
	want := errors.New("send failed")
	calls := 0
	h := summarize("text", func(tele.Context) error {
		calls++
		return want
	})
	if err := h(c); !errors.Is(err, want) || calls != 1 {
		t.Fatalf("err = %v, calls = %d", err, calls)
	}
}
