package middleware

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/m3rciful/infobot/core/logger"
	tghelpers "github.com/m3rciful/infobot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// receipts remembers recently logged update IDs. Command routes and the text
// route each install LoggerMiddleware, so one update can pass it twice.
var receipts = &updateSet{ttl: 10 * time.Second, seen: make(map[int]time.Time)}

type updateSet struct {
	mu   sync.Mutex
	ttl  time.Duration
	seen map[int]time.Time
}

// first reports whether id is new and marks it seen.
func (s *updateSet) first(id int, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, at := range s.seen {
		if now.Sub(at) > s.ttl {
			delete(s.seen, k)
		}
	}
	if _, dup := s.seen[id]; dup {
		return false
	}
	s.seen[id] = now
	return true
}

// LoggerMiddleware binds the request context to c and writes a sampled
// update.received debug line.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.NewContext(c)
		upd := c.Update()
		if logger.ShouldSampleDebug() && receipts.first(upd.ID, time.Now()) {
			logger.Debug(ctx, "tg", "update.received", receiptAttrs(c)...)
		}
		return next(c)
	}
}

func receiptAttrs(c tele.Context) []slog.Attr {
	attrs := []slog.Attr{slog.String("status", "ok")}
	if chat := c.Chat(); chat != nil {
		attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
	}
	if user := c.Sender(); user != nil && user.Username != "" {
		attrs = append(attrs, slog.String("username", logger.SanitizeLimit(user.Username, 64)))
	}
	if msg := c.Message(); msg != nil {
		attrs = append(attrs, slog.String("op", MessageKind(msg)))
		if msg.Text != "" {
			attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(msg.Text, 256)))
		}
	}
	return attrs
}

// MessageKind names the content of a message for logs: command, text or media.
func MessageKind(msg *tele.Message) string {
	switch {
	case msg == nil:
		return "none"
	case strings.HasPrefix(msg.Text, "/"):
		return "command"
	case msg.Text != "":
		return "text"
	default:
		return "media"
	}
}
