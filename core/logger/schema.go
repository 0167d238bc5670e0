package logger

import (
	"log/slog"
	"strings"
)

// levelName renders a level the way the log shippers expect. Levels between
// the named ones keep slog's offset suffix ("INFO+2").
func levelName(l slog.Level) string {
	return strings.ToUpper(l.String())
}

// Status values shared by all components. Others such as "skip" and "retry"
// pass through lowercased.
const (
	statusOK        = "ok"
	statusFail      = "fail"
	statusTimeout   = "timeout"
	statusCancelled = "cancelled"
)

func normalizeStatus(status string) string {
	return strings.ToLower(strings.TrimSpace(status))
}

// normalizeOutcome accepts only the terminal handler outcomes.
func normalizeOutcome(outcome string) (string, bool) {
	switch o := strings.ToLower(strings.TrimSpace(outcome)); o {
	case statusOK, statusFail, statusCancelled:
		return o, true
	}
	return "", false
}

// defaultKeyOrder puts identity first, then request scope, then the
// per-component payload. Keys not listed follow in lexical order.
var defaultKeyOrder = flatten(
	[]string{"ts", "level", "component", "event", "status"},
	[]string{"rid", "rid_full", "ts_unix_nano", "update_id", "user_id", "chat_id", "chat_type"},
	[]string{"handler", "operation", "op", "kind", "command", "outcome", "duration_ms", "messages", "kb", "send_failed", "count"},
	[]string{"payload", "username", "mode", "listen", "public_url", "http_code"},
	[]string{"db", "host", "port", "mode_pending"},
	[]string{"upstream", "city", "currency"},
	[]string{"err", "err_code", "cause", "retryable", "attempts", "backoff_ms", "collapsed", "repeats", "pending_count"},
)

func flatten(groups ...[]string) []string {
	var out []string
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}
