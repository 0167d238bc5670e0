package directory

import (
	"context"
	"log/slog"
	"time"

	"github.com/m3rciful/infobot/core/logger"
	tghelpers "github.com/m3rciful/infobot/core/telegram/helpers"
	"github.com/m3rciful/infobot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// Toucher records chat activity.
type Toucher interface {
	Touch(ctx context.Context, e Entry) error
}

const touchTimeout = 3 * time.Second

// Middleware records every message in the directory before handling it.
// Storage errors are logged and never block the reply.
func Middleware(store Toucher) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if store == nil {
				return next(c)
			}
			if e, ok := entryFrom(c); ok {
				ctx := tghelpers.BuildContext(c)
				tctx, cancel := context.WithTimeout(ctx, touchTimeout)
				if err := store.Touch(tctx, e); err != nil {
					logger.Warn(ctx, "db", "directory.touch_failed",
						slog.String("status", "fail"),
						slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
					)
				}
				cancel()
			}
			return next(c)
		}
	}
}

func entryFrom(c tele.Context) (Entry, bool) {
	chat := c.Chat()
	if chat == nil {
		return Entry{}, false
	}
	e := Entry{ChatID: chat.ID, LastSeen: time.Now()}
	if u := c.Sender(); u != nil {
		e.UserID = u.ID
		e.Username = u.Username
		e.FirstName = u.FirstName
	}
	if middleware.MessageKind(c.Message()) == "command" {
		e.Commands = 1
	}
	return e, true
}
