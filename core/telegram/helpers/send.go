package helpers

import (
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/infobot/core/logger"
	"github.com/m3rciful/infobot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var dispatcher atomic.Pointer[sender.Dispatcher]

// RecorderKey is the context key under which a SendRecorder is stored.
const RecorderKey = "send_counters"

// SendRecorder counts messages at hand-off: once queued, or once sent when
// no dispatcher is set. Failures of queued jobs are logged by the dispatcher.
type SendRecorder interface {
	RecordSend(keyboard bool, err error)
}

func record(c tele.Context, keyboard bool, err error) {
	if rec, ok := c.Get(RecorderKey).(SendRecorder); ok && rec != nil {
		rec.RecordSend(keyboard, err)
	}
}

// SetDispatcher routes the send helpers through d. A nil d makes them call
// Telegram synchronously.
func SetDispatcher(d *sender.Dispatcher) {
	dispatcher.Store(d)
}

// deliver queues run on the chat's lane. When the queue cannot take it the
// call runs inline so the reply is not lost.
func deliver(c tele.Context, action string, keyboard bool, run func() error) error {
	err := handOff(c, action, run)
	record(c, keyboard, err)
	return err
}

func handOff(c tele.Context, action string, run func() error) error {
	d := dispatcher.Load()
	if d == nil {
		return run()
	}
	var chatID int64
	if chat := c.Chat(); chat != nil {
		chatID = chat.ID
	}
	ctx := BuildContext(c)
	err := d.Enqueue(ctx, chatID, action, "sendMessage", run)
	if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
		logger.Warn(ctx, "tg.sender", "queue.fallback",
			slog.String("action", action),
			slog.String("err", err.Error()),
		)
		return run()
	}
	return err
}

// SendText sends text without a parse mode unless opts carry one.
func SendText(c tele.Context, text string, opts ...*tele.SendOptions) error {
	args := make([]any, 0, 1)
	keyboard := false
	if len(opts) > 0 && opts[0] != nil {
		args = append(args, opts[0])
		keyboard = opts[0].ReplyMarkup != nil
	}
	return deliver(c, "send.text", keyboard, func() error { return c.Send(text, args...) })
}

// SendHTML sends an HTML message with an optional keyboard.
func SendHTML(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	return SendText(c, text, htmlOptions(markup))
}

// ReplyHTML answers the current message as a reply-to with HTML parse mode.
func ReplyHTML(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	opts := htmlOptions(markup)
	return deliver(c, "send.reply", opts.ReplyMarkup != nil, func() error { return c.Reply(text, opts) })
}

func htmlOptions(markup []*tele.ReplyMarkup) *tele.SendOptions {
	opts := &tele.SendOptions{ParseMode: tele.ModeHTML}
	if len(markup) > 0 {
		opts.ReplyMarkup = markup[0]
	}
	return opts
}
