// Package netutil builds the HTTP clients shared by the Telegram transport
// and the upstream fetchers.
package netutil

import (
	"context"
	"net"
	"net/http"
	"time"
)

// ClientOptions tunes NewClient. Zero values select defaults.
type ClientOptions struct {
	// Timeout bounds the whole request including reading the body.
	Timeout time.Duration
	// ResponseHeaderTimeout bounds the wait for response headers; 0 disables it.
	ResponseHeaderTimeout time.Duration
	// Retries is the number of extra attempts on transient dial/timeout errors.
	Retries int
	Backoff time.Duration
}

func (o ClientOptions) withDefaults() ClientOptions {
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.Backoff <= 0 {
		o.Backoff = 2 * time.Second
	}
	return o
}

// NewClient returns an HTTP client with pooled connections. With Retries > 0
// transient network failures are retried with a linear backoff.
func NewClient(opts ClientOptions) *http.Client {
	opts = opts.withDefaults()
	var rt http.RoundTripper = newTransport(opts.ResponseHeaderTimeout)
	if opts.Retries > 0 {
		rt = &retryTransport{base: rt, retries: opts.Retries, backoff: opts.Backoff}
	}
	return &http.Client{Timeout: opts.Timeout, Transport: rt}
}

func newTransport(headerTimeout time.Duration) *http.Transport {
	dialer := &net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: headerTimeout,
		ExpectContinueTimeout: time.Second,
	}
}

type retryTransport struct {
	base    http.RoundTripper
	retries int
	backoff time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	for attempt := 1; err != nil && attempt <= t.retries && ShouldRetry(err); attempt++ {
		retry, ok := replay(req)
		if !ok {
			break
		}
		if werr := sleep(req.Context(), t.backoff*time.Duration(attempt)); werr != nil {
			return nil, werr
		}
		resp, err = t.base.RoundTrip(retry)
	}
	return resp, err
}

// replay clones req for another attempt. Requests whose body cannot be
// rewound are not replayed.
func replay(req *http.Request) (*http.Request, bool) {
	clone := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return clone, true
	}
	if req.GetBody == nil {
		return nil, false
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, false
	}
	clone.Body = body
	return clone, true
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
