// Package bot connects the conversation router to Telegram.
package bot

import (
	"context"
	"strings"

	tghelpers "github.com/m3rciful/infobot/core/telegram/helpers"
	"github.com/m3rciful/infobot/core/telegram/format"
	"github.com/m3rciful/infobot/core/telegram/keyboard"
	"github.com/m3rciful/infobot/internal/conversation"

	tele "gopkg.in/telebot.v4"
)

// Router is the conversation entry point used by the adapter.
type Router interface {
	Route(ctx context.Context, in conversation.Inbound) []conversation.Outbound
}

// Adapter translates telebot updates into router messages and delivers the replies.
type Adapter struct {
	router Router
}

// NewAdapter wraps a router.
func NewAdapter(r Router) *Adapter {
	return &Adapter{router: r}
}

// HandleCommand handles registered command endpoints.
func (a *Adapter) HandleCommand(c tele.Context) error {
	in := baseInbound(c)
	in.Kind = conversation.KindCommand
	in.Command, in.Args = parseCommand(c.Text())
	return a.dispatch(c, in)
}

// HandleText handles plain text. Unregistered "/commands" also land here and
// are passed on as commands.
func (a *Adapter) HandleText(c tele.Context) error {
	text := c.Text()
	if strings.HasPrefix(text, "/") {
		return a.HandleCommand(c)
	}
	in := baseInbound(c)
	in.Kind = conversation.KindText
	in.Text = text
	return a.dispatch(c, in)
}

// HandleMedia handles every non-text payload.
func (a *Adapter) HandleMedia(c tele.Context) error {
	in := baseInbound(c)
	in.Kind = conversation.KindMedia
	in.Media = mediaKind(c.Message())
	return a.dispatch(c, in)
}

func (a *Adapter) dispatch(c tele.Context, in conversation.Inbound) error {
	ctx := tghelpers.BuildContext(c)
	for _, out := range a.router.Route(ctx, in) {
		if err := deliver(c, out); err != nil {
			return err
		}
	}
	return nil
}

func deliver(c tele.Context, out conversation.Outbound) error {
	for _, part := range conversation.Split(out, format.MaxMessageLength) {
		markup := replyMarkup(part.Keyboard)
		if part.Mode == conversation.HTML {
			var err error
			if part.ReplyTo {
				err = tghelpers.ReplyHTML(c, part.Body, markup)
			} else {
				err = tghelpers.SendHTML(c, part.Body, markup)
			}
			if err != nil {
				return err
			}
			continue
		}
		opts := &tele.SendOptions{ReplyMarkup: markup}
		if part.ReplyTo {
			opts.ReplyTo = c.Message()
		}
		if err := tghelpers.SendText(c, part.Body, opts); err != nil {
			return err
		}
	}
	return nil
}

func replyMarkup(kb conversation.Keyboard) *tele.ReplyMarkup {
	switch kb.Action {
	case conversation.KeyboardShow:
		return keyboard.ReplyButtons(kb.Rows...)
	case conversation.KeyboardHide:
		return keyboard.RemoveKeyboard()
	default:
		return nil
	}
}

func baseInbound(c tele.Context) conversation.Inbound {
	var in conversation.Inbound
	if chat := c.Chat(); chat != nil {
		in.ChatID = chat.ID
	}
	if u := c.Sender(); u != nil {
		in.SenderID = u.ID
		in.SenderName = u.FirstName
	}
	if m := c.Message(); m != nil {
		in.MessageID = m.ID
	}
	return in
}

// parseCommand splits "/cmd@bot args" into "cmd" and "args".
func parseCommand(text string) (string, string) {
	text = strings.TrimSpace(text)
	token, args, _ := strings.Cut(text, " ")
	token = strings.TrimPrefix(token, "/")
	if i := strings.IndexByte(token, '@'); i >= 0 {
		token = token[:i]
	}
	return token, strings.TrimSpace(args)
}

func mediaKind(m *tele.Message) string {
	switch {
	case m == nil:
		return "unknown"
	case m.Photo != nil:
		return "photo"
	case m.Document != nil:
		return "document"
	case m.Audio != nil:
		return "audio"
	case m.Video != nil:
		return "video"
	case m.Voice != nil:
		return "voice"
	case m.Sticker != nil:
		return "sticker"
	case m.Animation != nil:
		return "animation"
	case m.VideoNote != nil:
		return "video_note"
	case m.Location != nil:
		return "location"
	case m.Contact != nil:
		return "contact"
	default:
		return "other"
	}
}
