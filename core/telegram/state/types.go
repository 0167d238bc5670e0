package state

// State identifies a finite-state-machine step used in conversations.
type State string

const (
	// StateIdle indicates there is no active conversation with the chat.
	StateIdle State = "idle"
)

// Manager stores at most one pending State per chat.
type Manager interface {
	// Get returns the current state, or StateIdle when none is set.
	Get(chatID int64) State
	// Set replaces any previous state for the chat.
	Set(chatID int64, st State)
	// Take returns the current state and resets it to idle in one step.
	Take(chatID int64) State
}

// Locker serializes work per chat. The returned func releases the lock.
type Locker interface {
	Lock(chatID int64) (unlock func())
}
