package router

import (
	tg "github.com/m3rciful/infobot/core/telegram"
	"github.com/m3rciful/infobot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// MessageOptions supplies the handlers for non-command updates.
type MessageOptions struct {
	// Text handles plain text and unknown commands.
	Text tele.HandlerFunc
	// Media handles photos, files, stickers, locations and other non-text payloads.
	Media tele.HandlerFunc
}

// mediaEndpoints lists the telebot events routed to MessageOptions.Media.
var mediaEndpoints = []string{tele.OnMedia, tele.OnSticker, tele.OnLocation, tele.OnContact}

// MessageRoutes builds handlers for text and media updates.
func MessageRoutes(opts MessageOptions) []tg.Route {
	text := summarize("text", opts.Text)
	media := summarize("media", opts.Media)

	routes := []tg.Route{{
		Endpoint: tele.OnText,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(text)),
	}}
	for _, ep := range mediaEndpoints {
		routes = append(routes, tg.Route{
			Endpoint: ep,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(media)),
		})
	}
	return routes
}
