package bot

import (
	"context"
	"strings"
	"testing"

	"github.com/m3rciful/infobot/internal/conversation"

	tele "gopkg.in/telebot.v4"
)

type sent struct {
	text  string
	opts  *tele.SendOptions
	reply bool
}

// recordingContext captures outgoing messages instead of calling Telegram.
type recordingContext struct {
	tele.Context
	out *[]sent
}

func (r recordingContext) Send(what interface{}, opts ...interface{}) error {
	*r.out = append(*r.out, sent{text: what.(string), opts: sendOptions(opts)})
	return nil
}

func (r recordingContext) Reply(what interface{}, opts ...interface{}) error {
	*r.out = append(*r.out, sent{text: what.(string), opts: sendOptions(opts), reply: true})
	return nil
}

func sendOptions(opts []interface{}) *tele.SendOptions {
	for _, o := range opts {
		if so, ok := o.(*tele.SendOptions); ok {
			return so
		}
	}
	return nil
}

type stubRouter struct {
	got []conversation.Inbound
	out []conversation.Outbound
}

func (s *stubRouter) Route(_ context.Context, in conversation.Inbound) []conversation.Outbound {
	s.got = append(s.got, in)
	return s.out
}

func newRecording(t *testing.T, msg *tele.Message) (tele.Context, *[]sent) {
	t.Helper()
	b, err := tele.NewBot(tele.Settings{Offline: true})
	if err != nil {
		t.Fatalf("bot: %v", err)
	}
	var out []sent
	return recordingContext{Context: b.NewContext(tele.Update{ID: 5, Message: msg}), out: &out}, &out
}

func TestParseCommand(t *testing.T) {
	cases := []struct{ in, token, args string }{
		{"/weather_tralee", "weather_tralee", ""},
		{"/USD@info_bot", "USD", ""},
		{"/start  now please ", "start", "now please"},
	}
	for _, tc := range cases {
		token, args := parseCommand(tc.in)
		if token != tc.token || args != tc.args {
			t.Fatalf("parseCommand(%q) = %q, %q", tc.in, token, args)
		}
	}
}

func TestHandleTextClassifiesMessages(t *testing.T) {
	sr := &stubRouter{}
	a := NewAdapter(sr)
	chat := &tele.Chat{ID: 42}
	user := &tele.User{ID: 7, FirstName: "Ada"}

	c, _ := newRecording(t, &tele.Message{ID: 9, Text: "eur", Chat: chat, Sender: user})
	_ = a.HandleText(c)
	c, _ = newRecording(t, &tele.Message{ID: 10, Text: "/nope arg", Chat: chat, Sender: user})
	_ = a.HandleText(c)
	c, _ = newRecording(t, &tele.Message{ID: 11, Photo: &tele.Photo{}, Chat: chat, Sender: user})
	_ = a.HandleMedia(c)

	if len(sr.got) != 3 {
		t.Fatalf("routed = %d", len(sr.got))
	}
	if in := sr.got[0]; in.Kind != conversation.KindText || in.Text != "eur" || in.ChatID != 42 || in.SenderName != "Ada" || in.MessageID != 9 {
		t.Fatalf("text inbound = %+v", in)
	}
	if in := sr.got[1]; in.Kind != conversation.KindCommand || in.Command != "nope" || in.Args != "arg" {
		t.Fatalf("command inbound = %+v", in)
	}
	if in := sr.got[2]; in.Kind != conversation.KindMedia || in.Media != "photo" {
		t.Fatalf("media inbound = %+v", in)
	}
}

func TestDeliverChunksAndKeyboards(t *testing.T) {
	sr := &stubRouter{out: []conversation.Outbound{
		{Body: "pick", Keyboard: conversation.Keyboard{Action: conversation.KeyboardShow, Rows: [][]string{{"USD", "RUB"}}}},
		{Body: strings.Repeat("y", 5000), Mode: conversation.HTML, ReplyTo: true, Keyboard: conversation.Keyboard{Action: conversation.KeyboardHide}},
	}}
	a := NewAdapter(sr)
	c, out := newRecording(t, &tele.Message{ID: 3, Text: "/currency", Chat: &tele.Chat{ID: 1}})
	if err := a.HandleCommand(c); err != nil {
		t.Fatalf("handle: %v", err)
	}

	got := *out
	if len(got) != 3 {
		t.Fatalf("sent = %d", len(got))
	}
	if got[0].opts == nil || got[0].opts.ReplyMarkup == nil || len(got[0].opts.ReplyMarkup.ReplyKeyboard) != 1 {
		t.Fatalf("first message keyboard = %+v", got[0].opts)
	}
	if !got[1].reply || got[1].opts.ParseMode != tele.ModeHTML || got[1].opts.ReplyMarkup != nil {
		t.Fatalf("second message = %+v", got[1])
	}
	if got[2].reply || got[2].opts.ReplyMarkup == nil || !got[2].opts.ReplyMarkup.RemoveKeyboard {
		t.Fatalf("last chunk = %+v", got[2])
	}
	if len(got[1].text) != 4096 || len(got[2].text) != 904 {
		t.Fatalf("chunk sizes = %d/%d", len(got[1].text), len(got[2].text))
	}
	if sr.got[0].Command != "currency" {
		t.Fatalf("command = %q", sr.got[0].Command)
	}
}
