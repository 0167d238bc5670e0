// Package fetch talks to the third-party services behind the bot commands:
// the PrivatBank exchange feed, the x-rates.com table and OpenWeatherMap.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/m3rciful/infobot/core/buildinfo"
	coreconfig "github.com/m3rciful/infobot/core/config"
	"github.com/m3rciful/infobot/core/logger"
	"github.com/m3rciful/infobot/core/telegram/netutil"
)

// maxBodyBytes caps upstream payloads; the x-rates page is the largest at ~100KB.
const maxBodyBytes = 2 << 20

// ErrTimeout reports an upstream call that exceeded its deadline.
var ErrTimeout = errors.New("fetch: request timed out")

// StatusError is returned when an upstream answers with a non-200 status.
type StatusError struct {
	Upstream string
	Code     int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.Upstream, e.Code)
}

// Options configures a Client. Empty URLs fall back to the public endpoints.
type Options struct {
	HTTPClient     *http.Client
	Timeout        time.Duration
	WeatherBaseURL string
	WeatherAPIKey  string
	PrivatBankURL  string
	XRatesURL      string
}

// Client fetches rates and weather. It is safe for concurrent use.
type Client struct {
	http    *http.Client
	timeout time.Duration

	weatherURL string
	weatherKey string
	privatURL  string
	xratesURL  string
}

// New builds a Client from opts.
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = time.Duration(coreconfig.DefaultFetchTimeout) * time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = netutil.NewClient(netutil.ClientOptions{Timeout: opts.Timeout})
	}
	if opts.WeatherBaseURL == "" {
		opts.WeatherBaseURL = coreconfig.DefaultWeatherBaseURL
	}
	if opts.PrivatBankURL == "" {
		opts.PrivatBankURL = coreconfig.DefaultPrivatBankURL
	}
	if opts.XRatesURL == "" {
		opts.XRatesURL = coreconfig.DefaultXRatesURL
	}
	return &Client{
		http:       opts.HTTPClient,
		timeout:    opts.Timeout,
		weatherURL: opts.WeatherBaseURL,
		weatherKey: opts.WeatherAPIKey,
		privatURL:  opts.PrivatBankURL,
		xratesURL:  opts.XRatesURL,
	}
}

// NewFromConfig builds a Client from the weather, rates and fetch sections.
func NewFromConfig(cfg *coreconfig.Config) *Client {
	return New(Options{
		Timeout:        time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second,
		WeatherBaseURL: cfg.Weather.BaseURL,
		WeatherAPIKey:  cfg.Weather.APIKey,
		PrivatBankURL:  cfg.Rates.PrivatBankURL,
		XRatesURL:      cfg.Rates.XRatesURL,
	})
}

// get performs a bounded GET and returns the body of a 200 response.
func (c *Client) get(ctx context.Context, upstream, rawURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", upstream, err)
	}
	req.Header.Set("User-Agent", buildinfo.UserAgent())

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.fail(ctx, upstream, start, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, c.fail(ctx, upstream, start, err)
	}
	if resp.StatusCode != http.StatusOK {
		logger.Warn(ctx, "fetch", "fetch.status",
			slog.String("upstream", upstream),
			slog.String("status", "fail"),
			slog.Int("http_code", resp.StatusCode),
			slog.Duration("duration", logger.Took(start)),
		)
		return nil, &StatusError{Upstream: upstream, Code: resp.StatusCode}
	}

	logger.Debug(ctx, "fetch", "fetch.ok",
		slog.String("upstream", upstream),
		slog.String("status", "ok"),
		slog.Int("bytes", len(body)),
		slog.Duration("duration", logger.Took(start)),
	)
	return body, nil
}

func (c *Client) fail(ctx context.Context, upstream string, start time.Time, err error) error {
	timedOut := netutil.IsTimeout(err)
	status := logger.StatusOf(err)
	if timedOut {
		status = "timeout"
	}
	logger.Warn(ctx, "fetch", "fetch.fail",
		slog.String("upstream", upstream),
		slog.String("status", status),
		slog.Bool("timeout", timedOut),
		slog.Duration("duration", logger.Took(start)),
		slog.String("err", logger.SanitizeLimit(c.redact(err.Error()), 256)),
	)
	if timedOut {
		return fmt.Errorf("%s: %w", upstream, ErrTimeout)
	}
	return &redactedError{msg: upstream + ": " + c.redact(err.Error()), err: err}
}

// redact strips the weather API key, which net/http echoes back inside URL errors.
func (c *Client) redact(msg string) string {
	if c.weatherKey == "" {
		return msg
	}
	return strings.ReplaceAll(msg, c.weatherKey, "<redacted>")
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }
