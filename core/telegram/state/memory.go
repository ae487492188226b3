package state

import "sync"

// Memory stores one value of type T per chat. The zero Memory is not usable; call NewMemory.
type Memory[T any] struct {
	mu       sync.RWMutex
	sessions map[int64]T

	locksMu sync.Mutex
	locks   map[int64]*chatLock
}

type chatLock struct {
	mu   sync.Mutex
	refs int
}

// NewMemory constructs an empty in-memory store.
func NewMemory[T any]() *Memory[T] {
	return &Memory[T]{
		sessions: make(map[int64]T),
		locks:    make(map[int64]*chatLock),
	}
}

// Get returns the value stored for chatID.
func (m *Memory[T]) Get(chatID int64) (T, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.sessions[chatID]
	return v, ok
}

// Set replaces the value stored for chatID.
func (m *Memory[T]) Set(chatID int64, v T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[chatID] = v
}

// Update applies fn to the stored value in place. It reports false and does nothing when chatID has no value.
func (m *Memory[T]) Update(chatID int64, fn func(*T)) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.sessions[chatID]
	if !ok {
		return false
	}
	fn(&v)
	m.sessions[chatID] = v
	return true
}

// Clear removes the value for chatID. Clearing an absent chat is a no-op.
func (m *Memory[T]) Clear(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, chatID)
}

// Len returns the number of chats with a stored value.
func (m *Memory[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Lock acquires the exclusive lock of chatID and returns its release func.
// Updates for different chats proceed concurrently.
func (m *Memory[T]) Lock(chatID int64) func() {
	m.locksMu.Lock()
	l, ok := m.locks[chatID]
	if !ok {
		l = &chatLock{}
		m.locks[chatID] = l
	}
	l.refs++
	m.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		m.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, chatID)
		}
		m.locksMu.Unlock()
	}
}
