package router

import (
	"log/slog"

	"github.com/m3rciful/infobot/core/logger"
	tg "github.com/m3rciful/infobot/core/telegram"
	"github.com/m3rciful/infobot/core/telegram/middleware"
)

// CommandRoutes binds every registered command and alias to its handler,
// wrapped with shared middleware and a summary log line.
func CommandRoutes(reg *tg.Registry) []tg.Route {
	if reg == nil {
		return nil
	}

	cmds := reg.Commands()
	endpoints := reg.Endpoints()
	routes := make([]tg.Route, 0, len(endpoints))
	for endpoint, canonical := range endpoints {
		def := cmds[canonical]
		h := summarize(handlerName(canonical), def.Handler)
		h = middleware.LoggerMiddleware(h)
		h = middleware.RecoverMiddleware(h)
		routes = append(routes, tg.Route{
			Endpoint: endpoint,
			Handler:  h,
		})
	}

	logger.Info(logger.Background(), "tg.wire", "wire.commands",
		slog.String("status", "ok"),
		slog.Int("commands", len(cmds)),
		slog.Int("endpoints", len(endpoints)),
	)

	return routes
}
