package telegram

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/infobot/core/logger"
	tgsender "github.com/m3rciful/infobot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

const (
	RunModeWebhook  = "webhook"
	RunModeLongpoll = "longpoll"
)

// WebhookOptions declares webhook listener settings.
type WebhookOptions struct {
	Listen string
	Port   int
	URL    string
}

// PollerOptions configures BuildPoller.
type PollerOptions struct {
	RunMode                string
	LongPollTimeoutSeconds int
	RetryMin               time.Duration
	RetryMax               time.Duration
	Webhook                WebhookOptions
}

// BuildPoller returns a Telebot poller based on provided options.
func BuildPoller(opts PollerOptions) tele.Poller {
	runMode := strings.ToLower(strings.TrimSpace(opts.RunMode))
	if runMode == RunModeWebhook {
		return &tele.Webhook{
			Listen:   fmt.Sprintf("%s:%d", opts.Webhook.Listen, opts.Webhook.Port),
			Endpoint: &tele.WebhookEndpoint{PublicURL: opts.Webhook.URL},
		}
	}

	timeoutSec := opts.LongPollTimeoutSeconds
	if timeoutSec <= 0 {
		timeoutSec = 10
	}
	return &BackoffPoller{
		Timeout:    time.Duration(timeoutSec) * time.Second,
		MinBackoff: opts.RetryMin,
		MaxBackoff: opts.RetryMax,
	}
}

// BackoffPoller long-polls getUpdates and never gives up: a failed call is
// logged and retried after an exponential delay capped at MaxBackoff. The
// delay resets after the first successful call.
type BackoffPoller struct {
	Timeout        time.Duration
	MinBackoff     time.Duration
	MaxBackoff     time.Duration
	AllowedUpdates []string
	LastUpdateID   int

	// fetch replaces the getUpdates call in tests.
	fetch func(offset int) ([]tele.Update, error)
}

// Poll implements tele.Poller.
func (p *BackoffPoller) Poll(b *tele.Bot, dest chan tele.Update, stop chan struct{}) {
	minDelay, maxDelay := p.bounds()
	delay := minDelay
	failures := 0

	for {
		select {
		case <-stop:
			return
		default:
		}

		updates, err := p.getUpdates(b)
		if err != nil {
			failures++
			logger.Warn(logger.Background(), "tg.poll", "poll.fail",
				slog.String("status", "retry"),
				slog.Int("attempts", failures),
				slog.Int64("backoff_ms", delay.Milliseconds()),
				slog.String("err", logger.SanitizeLimit(tgsender.RedactToken(err.Error()), 256)),
			)
			timer := time.NewTimer(delay)
			select {
			case <-stop:
				timer.Stop()
				return
			case <-timer.C:
			}
			delay = min(delay*2, maxDelay)
			continue
		}

		if failures > 0 {
			logger.Info(logger.Background(), "tg.poll", "poll.recovered",
				slog.String("status", "ok"),
				slog.Int("attempts", failures),
			)
		}
		failures = 0
		delay = minDelay

		for _, upd := range updates {
			p.LastUpdateID = upd.ID
			select {
			case dest <- upd:
			case <-stop:
				return
			}
		}
	}
}

func (p *BackoffPoller) bounds() (time.Duration, time.Duration) {
	minDelay, maxDelay := p.MinBackoff, p.MaxBackoff
	if minDelay <= 0 {
		minDelay = time.Second
	}
	if maxDelay < minDelay {
		maxDelay = max(30*time.Second, minDelay)
	}
	return minDelay, maxDelay
}

func (p *BackoffPoller) getUpdates(b *tele.Bot) ([]tele.Update, error) {
	offset := p.LastUpdateID + 1
	if p.fetch != nil {
		return p.fetch(offset)
	}

	params := map[string]string{
		"offset":  strconv.Itoa(offset),
		"timeout": strconv.Itoa(int(p.Timeout / time.Second)),
	}
	if len(p.AllowedUpdates) > 0 {
		data, _ := json.Marshal(p.AllowedUpdates)
		params["allowed_updates"] = string(data)
	}

	data, err := b.Raw("getUpdates", params)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Result []tele.Update `json:"result"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("telegram: decode getUpdates: %w", err)
	}
	return resp.Result, nil
}
