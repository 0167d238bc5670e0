package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/infobot/core/bootstrap"
	coreconfig "github.com/m3rciful/infobot/core/config"
	"github.com/m3rciful/infobot/core/logger"
	coretelegram "github.com/m3rciful/infobot/core/telegram"
	"github.com/m3rciful/infobot/core/telegram/commands"
	"github.com/m3rciful/infobot/core/telegram/router"
	tgsender "github.com/m3rciful/infobot/core/telegram/sender"
	"github.com/m3rciful/infobot/core/telegram/state"
	"github.com/m3rciful/infobot/internal/conversation"
	"github.com/m3rciful/infobot/internal/directory"
	"github.com/m3rciful/infobot/internal/fetch"
)

// App wires configuration, fetchers, the conversation router and the
// optional chat directory into Telegram run options.
type App struct {
	cfg       *coreconfig.Config
	infra     *bootstrap.Result
	router    *conversation.Router
	adapter   *Adapter
	directory *directory.Repository
}

// New builds the application on top of bootstrapped infrastructure.
func New(cfg *coreconfig.Config, infra *bootstrap.Result) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bot: nil config")
	}
	fetcher := fetch.NewFromConfig(cfg)
	r := conversation.NewRouter(fetcher, fetcher, conversation.NewSessions())

	app := &App{
		cfg:     cfg,
		infra:   infra,
		router:  r,
		adapter: NewAdapter(r),
	}
	if infra != nil && infra.DB != nil {
		app.directory = directory.NewRepository(infra.DB)
	}
	return app, nil
}

// Registry publishes the router's vocabulary as Telegram commands.
func (a *App) Registry() *coretelegram.Registry {
	reg := coretelegram.NewRegistry()
	for _, cmd := range a.router.Commands() {
		reg.RegisterCommand("/"+cmd.Name, commands.Command{
			Handler:     a.adapter.HandleCommand,
			Description: cmd.Description,
			Aliases:     cmd.Aliases,
		})
	}
	return reg
}

// TelegramRunOptions implements the runner's TelegramApp.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := a.Registry()

	mws := coretelegram.DefaultMiddlewares(state.NewKeyedMutex())
	if a.directory != nil {
		mws = append(mws, coretelegram.Middleware{Name: "directory", Use: directory.Middleware(a.directory)})
	}

	routes := router.CommandRoutes(reg)
	routes = append(routes, router.MessageRoutes(router.MessageOptions{
		Text:  a.adapter.HandleText,
		Media: a.adapter.HandleMedia,
	})...)

	return coretelegram.RunOptions{
		Config:   a.cfg,
		Registry: reg,
		DispatcherOptions: tgsender.Options{
			Workers:      4,
			MaxRetries:   2,
			RetryBackoff: time.Second,
		},
		Middlewares: mws,
		Routes:      routes,
		OnStart:     a.reportDirectory,
	}, nil
}

// reportDirectory logs the size of the chat directory once the bot is up.
// A failing query is logged and does not stop the bot.
func (a *App) reportDirectory(ctx context.Context, _ coretelegram.Runtime) error {
	if a.directory == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	st, err := a.directory.Stats(ctx)
	if err != nil {
		logger.Warn(ctx, "db", "directory.stats",
			slog.String("status", logger.StatusOf(err)),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		return nil
	}
	logger.Info(ctx, "db", "directory.stats",
		slog.String("status", "ok"),
		slog.Int("count", st.Chats),
		slog.Int("commands", st.Commands),
	)
	return nil
}

// Close releases bootstrapped infrastructure.
func (a *App) Close() error {
	return a.infra.Close()
}
