package telegram

import (
	"github.com/m3rciful/infobot/core/telegram/middleware"
	"github.com/m3rciful/infobot/core/telegram/state"
)

// DefaultMiddlewares builds the shared middleware chain for bots. Updates of
// one chat are serialized through locker; a nil locker disables serialization.
func DefaultMiddlewares(locker state.Locker) []Middleware {
	mws := []Middleware{
		{Name: "recover", Use: middleware.RecoverMiddleware},
	}
	if locker != nil {
		mws = append(mws, Middleware{Name: "serialize", Use: state.Serialize(locker)})
	}
	mws = append(mws,
		Middleware{Name: "logger", Use: middleware.LoggerMiddleware},
		Middleware{Name: "metrics", Use: middleware.MessageMetricsMiddleware},
	)
	return mws
}
