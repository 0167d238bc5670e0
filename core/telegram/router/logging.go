package router

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/infobot/core/logger"
	tghelpers "github.com/m3rciful/infobot/core/telegram/helpers"
	"github.com/m3rciful/infobot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// summarize wraps fn so that every update it serves ends with exactly one
// handler.handled line. A nil fn is logged as skipped.
func summarize(name string, fn tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		start := time.Now()
		ctx := tghelpers.WithHandler(c, name)
		if fn == nil {
			logger.Info(ctx, "tg", "handler.handled", summaryAttrs(c, name, start, "skip", nil)...)
			return nil
		}
		err := fn(c)
		logger.Info(ctx, "tg", "handler.handled", summaryAttrs(c, name, start, logger.StatusOf(err), err)...)
		return err
	}
}

func summaryAttrs(c tele.Context, name string, start time.Time, status string, err error) []slog.Attr {
	sent, failed, kb := middleware.GetCounters(c)
	outcome := "ok"
	switch status {
	case "ok", "skip":
	case "cancelled":
		outcome = "cancelled"
	default:
		outcome = "fail"
	}

	attrs := []slog.Attr{
		slog.String("status", status),
		slog.String("handler", name),
		slog.String("kind", middleware.MessageKind(c.Message())),
		slog.String("outcome", outcome),
		slog.Int("messages", sent),
		slog.Bool("kb", kb),
		slog.Duration("duration", logger.Took(start)),
	}
	if failed > 0 {
		attrs = append(attrs, slog.Int("send_failed", failed))
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", errorCode(err)),
		)
	}
	return attrs
}

// handlerName turns a command endpoint into a log-friendly handler name.
func handlerName(endpoint string) string {
	name := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(endpoint), "/"))
	if name == "" {
		return "unknown"
	}
	return strings.ReplaceAll(name, " ", "_")
}

// errorCode returns the Code() of err or of an error it wraps, upper-cased
// with underscores, or the dynamic type name of err.
func errorCode(err error) string {
	if err == nil {
		return ""
	}
	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		if code := strings.TrimSpace(coded.Code()); code != "" {
			return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
		}
	}
	name := strings.TrimPrefix(fmt.Sprintf("%T", err), "*")
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return strings.ToUpper(name)
}
