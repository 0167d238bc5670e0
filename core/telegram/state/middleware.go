package state

import tele "gopkg.in/telebot.v4"

// Serialize runs handlers of the same chat one at a time. Updates without a
// chat pass through unchanged.
func Serialize(locker Locker) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			chat := c.Chat()
			if locker == nil || chat == nil {
				return next(c)
			}
			unlock := locker.Lock(chat.ID)
			defer unlock()
			return next(c)
		}
	}
}
