package conversation

import "github.com/m3rciful/infobot/core/telegram/state"

// Pending modes a chat can be in between a prompting command and the user's answer.
const (
	ModeNone                 = state.StateIdle
	ModeAwaitingWeatherCity  = state.State("awaiting_weather_city")
	ModeAwaitingCurrencyCode = state.State("awaiting_currency_code")
)

// Sessions is the per-chat pending mode store. Take must read and clear in one step.
type Sessions interface {
	Get(chatID int64) state.State
	Set(chatID int64, st state.State)
	Take(chatID int64) state.State
}

// NewSessions returns an in-memory session store.
func NewSessions() state.Manager {
	return state.NewMemoryManager()
}
