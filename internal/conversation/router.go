// Package conversation turns inbound chat messages into replies. It owns the
// per-chat pending mode that decides how free text is read after /weather or
// /currency.
package conversation

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/m3rciful/infobot/core/logger"
	"github.com/m3rciful/infobot/core/telegram/keyboard"
	"github.com/m3rciful/infobot/internal/fetch"
)

// RateFetcher loads exchange rates.
type RateFetcher interface {
	LocalBankRates(ctx context.Context) ([]fetch.BankRate, error)
	CrossRates(ctx context.Context, base string) (fetch.CrossRates, error)
}

// WeatherFetcher loads current weather for a city.
type WeatherFetcher interface {
	Weather(ctx context.Context, city string) (fetch.Weather, error)
}

// CommandInfo describes one entry of the command vocabulary.
type CommandInfo struct {
	Name        string
	Aliases     []string
	Description string
}

type commandFunc func(r *Router, ctx context.Context, in Inbound) []Outbound

type command struct {
	CommandInfo
	run commandFunc
}

var vocabulary = []command{
	{CommandInfo{"start", []string{"run"}, "Start the bot"}, (*Router).start},
	{CommandInfo{"help", nil, "List available commands"}, (*Router).help},
	{CommandInfo{"info", nil, "About this bot"}, (*Router).info},
	{CommandInfo{"site", []string{"web", "website"}, "Personal website"}, (*Router).site},
	{CommandInfo{"music", nil, "FLAC music resources"}, (*Router).music},
	{CommandInfo{"show_id", nil, "Show your Telegram ID"}, (*Router).showID},
	{CommandInfo{"currency", []string{"USD", "GBP", "RUR", "EUR"}, "Cross rates for major currencies"}, (*Router).currencyPrompt},
	{CommandInfo{"currency_uah", nil, "Exchange rates against UAH (PrivatBank)"}, (*Router).currencyUAH},
	{CommandInfo{"weather", nil, "Weather in a city of your choice"}, (*Router).weatherPrompt},
	{CommandInfo{"weather_tralee", nil, "Weather in Tralee"}, (*Router).weatherTralee},
}

// Router dispatches inbound messages. Calls for one chat must not overlap;
// the transport serializes them.
type Router struct {
	rates    RateFetcher
	weather  WeatherFetcher
	sessions Sessions
	byToken  map[string]commandFunc
}

// NewRouter wires a Router. A nil sessions store gets an in-memory one.
func NewRouter(rates RateFetcher, weather WeatherFetcher, sessions Sessions) *Router {
	if sessions == nil {
		sessions = NewSessions()
	}
	r := &Router{
		rates:    rates,
		weather:  weather,
		sessions: sessions,
		byToken:  make(map[string]commandFunc),
	}
	for _, c := range vocabulary {
		r.byToken[c.Name] = c.run
		for _, a := range c.Aliases {
			r.byToken[a] = c.run
		}
	}
	return r
}

// Commands lists the command vocabulary in menu order.
func (r *Router) Commands() []CommandInfo {
	out := make([]CommandInfo, len(vocabulary))
	for i, c := range vocabulary {
		out[i] = c.CommandInfo
	}
	return out
}

// Route handles one inbound message and returns the replies in send order.
func (r *Router) Route(ctx context.Context, in Inbound) []Outbound {
	var out []Outbound
	switch in.Kind {
	case KindCommand:
		run, ok := r.byToken[in.Command]
		if !ok {
			logger.Debug(ctx, "chat.router", "route.unknown_command",
				slog.String("command", in.Command),
			)
			return nil
		}
		out = run(r, ctx, in)
	case KindMedia:
		out = []Outbound{r.plain(in, mediaNoticeText)}
	default:
		out = r.text(ctx, in)
	}

	logger.Debug(ctx, "chat.router", "route.done",
		slog.String("kind", in.Kind.String()),
		slog.String("command", in.Command),
		slog.Int("messages", len(out)),
	)
	return out
}

func (r *Router) text(ctx context.Context, in Inbound) []Outbound {
	mode := r.sessions.Take(in.ChatID)
	if mode != ModeNone {
		logger.Debug(ctx, "chat.router", "route.pending",
			slog.String("mode_pending", string(mode)),
		)
	}

	switch mode {
	case ModeAwaitingCurrencyCode:
		code := strings.ToUpper(strings.TrimSpace(in.Text))
		if !slices.Contains(CrossCodes, code) {
			// The keyboard stays up; the mode is already gone.
			logger.Debug(ctx, "chat.router", "currency.invalid",
				slog.String("currency", logger.SanitizeLimit(code, 16)),
			)
			return []Outbound{r.plain(in, invalidCurrencyText)}
		}
		return []Outbound{r.hideKeyboard(r.crossRates(ctx, in, code))}
	case ModeAwaitingWeatherCity:
		city := strings.ToLower(strings.TrimSpace(in.Text))
		return []Outbound{r.weatherReply(ctx, in, city)}
	}

	if strings.ToLower(in.Text) == hostilePhrase {
		return []Outbound{r.plain(in, retortText)}
	}
	return []Outbound{r.plain(in, startHintText)}
}

func (r *Router) start(_ context.Context, in Inbound) []Outbound {
	return []Outbound{
		r.plain(in, greeting(in.SenderName)),
		r.plain(in, greetHelpText),
	}
}

func (r *Router) help(_ context.Context, in Inbound) []Outbound {
	return []Outbound{r.html(in, helpText)}
}

func (r *Router) info(_ context.Context, in Inbound) []Outbound {
	return []Outbound{r.plain(in, infoText)}
}

func (r *Router) site(_ context.Context, in Inbound) []Outbound {
	return []Outbound{r.plain(in, siteText)}
}

func (r *Router) music(_ context.Context, in Inbound) []Outbound {
	return []Outbound{r.html(in, musicText)}
}

func (r *Router) showID(_ context.Context, in Inbound) []Outbound {
	return []Outbound{r.html(in, showIDText(in.SenderID))}
}

func (r *Router) currencyPrompt(_ context.Context, in Inbound) []Outbound {
	r.sessions.Set(in.ChatID, ModeAwaitingCurrencyCode)
	out := r.plain(in, currencyPromptText)
	out.Keyboard = Keyboard{Action: KeyboardShow, Rows: keyboard.ChunkLabels(CrossCodes, 2)}
	return []Outbound{out}
}

func (r *Router) currencyUAH(ctx context.Context, in Inbound) []Outbound {
	rates, err := r.rates.LocalBankRates(ctx)
	if err != nil {
		logger.Warn(ctx, "chat.router", "rates.fail",
			slog.String("upstream", "privatbank"),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		return []Outbound{r.plain(in, rateErrorPrefix+err.Error())}
	}
	return []Outbound{r.html(in, bankRatesText(rates))}
}

func (r *Router) crossRates(ctx context.Context, in Inbound, code string) Outbound {
	rates, err := r.rates.CrossRates(ctx, code)
	if err != nil {
		logger.Warn(ctx, "chat.router", "rates.fail",
			slog.String("upstream", "xrates"),
			slog.String("currency", code),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		return r.plain(in, rateErrorPrefix+err.Error())
	}
	return r.html(in, crossRatesText(code, rates))
}

func (r *Router) weatherPrompt(_ context.Context, in Inbound) []Outbound {
	r.sessions.Set(in.ChatID, ModeAwaitingWeatherCity)
	return []Outbound{r.plain(in, weatherPromptText)}
}

func (r *Router) weatherTralee(ctx context.Context, in Inbound) []Outbound {
	return []Outbound{r.weatherReply(ctx, in, defaultWeatherCity)}
}

func (r *Router) weatherReply(ctx context.Context, in Inbound, city string) Outbound {
	var body string
	w, err := r.weather.Weather(ctx, city)
	if err != nil {
		logger.Warn(ctx, "chat.router", "weather.fail",
			slog.String("city", logger.SanitizeLimit(city, 64)),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		body = weatherErrorText(err)
	} else {
		body = weatherText(w)
	}
	out := r.html(in, body)
	out.ReplyTo = true
	return out
}

func (r *Router) hideKeyboard(out Outbound) Outbound {
	out.Keyboard = Keyboard{Action: KeyboardHide}
	return out
}

func (r *Router) plain(in Inbound, body string) Outbound {
	return Outbound{ChatID: in.ChatID, Body: body, Mode: Plain}
}

func (r *Router) html(in Inbound, body string) Outbound {
	return Outbound{ChatID: in.ChatID, Body: body, Mode: HTML}
}
