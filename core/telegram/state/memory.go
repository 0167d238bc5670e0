package state

import "sync"

type memoryManager struct {
	mu     sync.Mutex
	states map[int64]State
}

// NewMemoryManager constructs an in-memory Manager. Entries are dropped once
// they return to idle, so the map only holds chats that are mid-conversation.
func NewMemoryManager() Manager {
	return &memoryManager{
		states: make(map[int64]State),
	}
}

func (m *memoryManager) Get(chatID int64) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.states[chatID]; ok {
		return st
	}
	return StateIdle
}

func (m *memoryManager) Set(chatID int64, st State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st == "" || st == StateIdle {
		delete(m.states, chatID)
		return
	}
	m.states[chatID] = st
}

func (m *memoryManager) Take(chatID int64) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[chatID]
	if !ok {
		return StateIdle
	}
	delete(m.states, chatID)
	return st
}

type chatLock struct {
	mu   sync.Mutex
	refs int
}

// KeyedMutex hands out one mutex per chat id and forgets it when unused.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[int64]*chatLock
}

// NewKeyedMutex returns an empty KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[int64]*chatLock)}
}

// Lock blocks until the chat's mutex is held.
func (k *KeyedMutex) Lock(chatID int64) func() {
	k.mu.Lock()
	l, ok := k.locks[chatID]
	if !ok {
		l = &chatLock{}
		k.locks[chatID] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, chatID)
		}
		k.mu.Unlock()
	}
}

func (k *KeyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
