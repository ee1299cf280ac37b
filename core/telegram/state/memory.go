package state

import "sync"

// Memory is an in-process Store. Sessions never expire and are lost on restart.
type Memory[S any] struct {
	mu       sync.RWMutex
	sessions map[int64]S
}

// NewMemory constructs an empty in-memory store.
func NewMemory[S any]() *Memory[S] {
	return &Memory[S]{sessions: make(map[int64]S)}
}

// Get returns the session for chatID if one exists.
func (m *Memory[S]) Get(chatID int64) (S, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[chatID]
	return s, ok
}

// Set creates or replaces the session for chatID.
func (m *Memory[S]) Set(chatID int64, session S) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[chatID] = session
}

// Clear removes the session for chatID.
func (m *Memory[S]) Clear(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, chatID)
}

// Len reports the number of live sessions.
func (m *Memory[S]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

var _ Store[string] = (*Memory[string])(nil)
