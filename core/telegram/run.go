package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	coreconfig "github.com/m3rciful/infobot/core/config"
	"github.com/m3rciful/infobot/core/logger"
	tghelpers "github.com/m3rciful/infobot/core/telegram/helpers"
	"github.com/m3rciful/infobot/core/telegram/netutil"
	tgsender "github.com/m3rciful/infobot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// Middleware describes a global bot middleware to be registered via bot.Use.
type Middleware struct {
	Name string
	Use  func(next tele.HandlerFunc) tele.HandlerFunc
}

// Route declares a single bot handler bound to an arbitrary endpoint.
// Endpoint values are passed directly to tele.Bot.Handle.
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// RunOptions controls the behaviour of RunTelegram.
type RunOptions struct {
	Config   *coreconfig.Config
	Registry *Registry

	DispatcherOptions tgsender.Options
	// Dispatcher overrides the one built from DispatcherOptions.
	Dispatcher *tgsender.Dispatcher

	Middlewares []Middleware
	Routes      []Route

	// DisableWebhookCleanup keeps a previously registered webhook in long-poll mode.
	DisableWebhookCleanup bool
	// DisableHelperDispatcher makes the send helpers call Telegram synchronously.
	DisableHelperDispatcher bool
	// DisableCommandMenu skips publishing the command menu via setMyCommands.
	DisableCommandMenu bool

	OnStart func(ctx context.Context, rt Runtime) error
	OnStop  func(ctx context.Context, rt Runtime) error
}

// Runtime exposes runtime components to lifecycle hooks.
type Runtime struct {
	Bot        *tele.Bot
	Dispatcher *tgsender.Dispatcher
	Registry   *Registry
}

// RunTelegram builds the bot, wires middlewares and routes, and serves
// updates until ctx is done. A cancelled ctx is a clean shutdown.
func RunTelegram(ctx context.Context, opts RunOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Config == nil {
		return errors.New("telegram: nil config provided")
	}
	if opts.Registry == nil {
		opts.Registry = NewRegistry()
	}

	bot, err := newBot(ctx, opts)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	rt := Runtime{
		Bot:        bot,
		Dispatcher: opts.Dispatcher,
		Registry:   opts.Registry,
	}
	if rt.Dispatcher == nil {
		rt.Dispatcher = tgsender.NewDispatcher(opts.DispatcherOptions)
	}
	if !opts.DisableHelperDispatcher {
		tghelpers.SetDispatcher(rt.Dispatcher)
	}
	defer func() {
		rt.Dispatcher.Close()
		if !opts.DisableHelperDispatcher {
			tghelpers.SetDispatcher(nil)
		}
	}()

	wire(bot, opts)

	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			return err
		}
	}

	runErr := serve(ctx, bot)

	if opts.OnStop != nil {
		if err := opts.OnStop(context.WithoutCancel(ctx), rt); err != nil {
			return err
		}
	}
	return runErr
}

func newBot(ctx context.Context, opts RunOptions) (*tele.Bot, error) {
	cfg := opts.Config
	pollerOpts := PollerOptions{
		RunMode:                cfg.Telegram.RunMode,
		LongPollTimeoutSeconds: cfg.Telegram.LongPollTimeoutSeconds,
		RetryMin:               time.Duration(cfg.Telegram.RetryMinMS) * time.Millisecond,
		RetryMax:               time.Duration(cfg.Telegram.RetryMaxMS) * time.Millisecond,
		Webhook: WebhookOptions{
			Listen: cfg.Webhook.Listen,
			Port:   cfg.Webhook.Port,
			URL:    cfg.Webhook.URL,
		},
	}
	poller := BuildPoller(pollerOpts)

	start := time.Now()
	bot, err := connectBot(ctx, tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: poller,
		Client: netutil.NewClient(netutil.ClientOptions{
			Timeout: clientTimeout(cfg.Telegram.LongPollTimeoutSeconds),
			Retries: 2,
		}),
		OnError: logBotError,
	}, pollerOpts.RetryMin, pollerOpts.RetryMax)
	if err != nil {
		return nil, err
	}

	attrs := []slog.Attr{
		slog.String("status", "ok"),
		slog.String("username", bot.Me.Username),
		slog.Duration("duration", logger.Took(start)),
	}
	if wh, ok := poller.(*tele.Webhook); ok {
		attrs = append(attrs,
			slog.String("mode", coreconfig.RunModeWebhook),
			slog.String("listen", wh.Listen),
			slog.String("public_url", wh.Endpoint.PublicURL),
		)
		logger.Info(ctx, "tg", "tg.mode", attrs...)
		return bot, nil
	}

	attrs = append(attrs, slog.String("mode", coreconfig.RunModeLongpoll))
	if bp, ok := poller.(*BackoffPoller); ok {
		attrs = append(attrs, slog.Duration("poll_timeout", bp.Timeout))
	}
	logger.Info(ctx, "tg", "tg.mode", attrs...)

	// A webhook left over from an earlier deployment makes getUpdates fail
	// with 409 forever.
	if !opts.DisableWebhookCleanup {
		if err := bot.RemoveWebhook(false); err != nil {
			logger.Warn(ctx, "tg", "tg.delete_webhook",
				slog.String("status", "fail"),
				slog.String("err", logger.SanitizeLimit(tgsender.RedactToken(err.Error()), 256)),
			)
		} else {
			logger.Debug(ctx, "tg", "tg.delete_webhook", slog.String("status", "ok"))
		}
	}
	return bot, nil
}

// connectBot builds the bot, which calls getMe. Transport failures and
// server errors are retried with exponential backoff until ctx is done. A
// rejected token fails at once.
func connectBot(ctx context.Context, settings tele.Settings, minDelay, maxDelay time.Duration) (*tele.Bot, error) {
	minDelay = max(minDelay, 10*time.Millisecond)
	maxDelay = max(maxDelay, minDelay)
	delay := minDelay
	for attempt := 1; ; attempt++ {
		bot, err := tele.NewBot(settings)
		if err == nil {
			return bot, nil
		}
		err = tgsender.RedactError(err)
		if isBadToken(err) {
			return nil, fmt.Errorf("telegram: bot initialization failed: %w", err)
		}
		logger.Warn(ctx, "tg", "tg.connect",
			slog.String("status", "retry"),
			slog.Int("attempts", attempt),
			slog.Int64("backoff_ms", delay.Milliseconds()),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("telegram: bot initialization gave up after %d attempts: %w", attempt, errors.Join(ctx.Err(), err))
		case <-timer.C:
		}
		delay = min(delay*2, maxDelay)
	}
}

// isBadToken reports a getMe rejection: 401 for an unknown token, 404 for a
// malformed one.
func isBadToken(err error) bool {
	var apiErr *tele.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusNotFound
}

// wire installs middlewares before routes, then publishes the command menu.
func wire(bot *tele.Bot, opts RunOptions) {
	for _, mw := range opts.Middlewares {
		if mw.Use != nil {
			bot.Use(mw.Use)
		}
	}
	for _, route := range opts.Routes {
		if route.Endpoint != nil && route.Handler != nil {
			bot.Handle(route.Endpoint, route.Handler)
		}
	}
	if !opts.DisableCommandMenu {
		InitBotCommands(bot, opts.Registry)
	}
}

// serve blocks in bot.Start until ctx is done or the poller gives up.
func serve(ctx context.Context, bot *tele.Bot) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		bot.Start()
	}()

	select {
	case <-ctx.Done():
		bot.Stop()
		<-done
		if err := ctx.Err(); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	case <-done:
		return nil
	}
}

// clientTimeout keeps the HTTP deadline above the long-poll wait so an idle
// getUpdates call is not cut short.
func clientTimeout(longPollSeconds int) time.Duration {
	if longPollSeconds <= 0 {
		longPollSeconds = 10
	}
	return max(30*time.Second, time.Duration(longPollSeconds+10)*time.Second)
}

// logBotError reports handler and transport errors surfaced by telebot.
func logBotError(err error, c tele.Context) {
	if err == nil {
		return
	}
	ctx := logger.Background()
	if c != nil {
		ctx = tghelpers.BuildContext(c)
	}
	logger.Error(ctx, "tg", "bot.error",
		slog.String("status", "fail"),
		slog.String("err", logger.SanitizeLimit(tgsender.RedactToken(err.Error()), 256)),
	)
}
