package sender

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/infobot/core/telegram/netutil"

	tele "gopkg.in/telebot.v4"
)

var tokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)

// RedactToken hides Telegram bot tokens embedded in URLs and error strings.
func RedactToken(msg string) string {
	return tokenRe.ReplaceAllString(msg, "bot<redacted>")
}

// RedactError wraps err so its message has bot tokens hidden. errors.Is and
// errors.As still see the original error.
func RedactError(err error) error {
	if err == nil {
		return nil
	}
	return redactedError{err: err}
}

type redactedError struct{ err error }

func (e redactedError) Error() string { return RedactToken(e.err.Error()) }
func (e redactedError) Unwrap() error { return e.err }

// floodWait returns the delay Telegram asked for with a 429 response.
func floodWait(err error) (time.Duration, bool) {
	var flood tele.FloodError
	if !errors.As(err, &flood) {
		return 0, false
	}
	return time.Duration(max(flood.RetryAfter, 1)) * time.Second, true
}

// classifyError buckets err into a short code for logs.
func classifyError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case netutil.IsTimeout(err):
		return "timeout"
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "dns"
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return "dial"
	}
	var alertErr tls.AlertError
	if errors.As(err, &alertErr) {
		return "tls"
	}

	switch status := apiStatus(err); {
	case status == http.StatusTooManyRequests:
		return "flood"
	case status >= 500:
		return "http_5xx"
	case status >= 400:
		return "http_4xx"
	}
	return "unknown"
}

// apiStatus extracts the HTTP-like status of a Bot API error. Telebot formats
// unknown API errors as "telegram: description (code)".
func apiStatus(err error) int {
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	if _, ok := floodWait(err); ok {
		return http.StatusTooManyRequests
	}
	var groupErr tele.GroupError
	if errors.As(err, &groupErr) {
		return http.StatusBadRequest
	}

	msg := err.Error()
	lp, rp := strings.LastIndexByte(msg, '('), strings.LastIndexByte(msg, ')')
	if lp < 0 || rp <= lp+1 {
		return 0
	}
	code, convErr := strconv.Atoi(strings.TrimSpace(msg[lp+1 : rp]))
	if convErr != nil {
		return 0
	}
	return code
}
