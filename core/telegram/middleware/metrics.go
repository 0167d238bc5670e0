package middleware

import (
	"sync/atomic"

	tghelpers "github.com/m3rciful/infobot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// Counters tracks the outbound messages of one update. Queued sends finish
// on dispatcher workers, so they are counted when handed off and the fields
// are atomic.
type Counters struct {
	sent     atomic.Int32
	failed   atomic.Int32
	keyboard atomic.Bool
}

// RecordSend implements helpers.SendRecorder.
func (s *Counters) RecordSend(keyboard bool, err error) {
	if err != nil {
		s.failed.Add(1)
		return
	}
	s.sent.Add(1)
	if keyboard {
		s.keyboard.Store(true)
	}
}

// MessageMetricsMiddleware counts the messages a handler sends through the
// send helpers.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		c.Set(tghelpers.RecorderKey, &Counters{})
		return next(c)
	}
}

// GetCounters returns the number of messages handed off so far, the number
// that failed and whether any of them carried a keyboard.
func GetCounters(c tele.Context) (sent, failed int, kb bool) {
	counters, ok := c.Get(tghelpers.RecorderKey).(*Counters)
	if !ok || counters == nil {
		return 0, 0, false
	}
	return int(counters.sent.Load()), int(counters.failed.Load()), counters.keyboard.Load()
}
