package triallog

import (
	"context"
	"sync"
)

// MemoryStore keeps rows in memory, grouped by session. It is safe for
// concurrent use and is the default store for tests and short sessions.
type MemoryStore struct {
	mu   sync.Mutex
	rows map[string][]Row
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string][]Row)}
}

// Append adds one row to a session.
func (s *MemoryStore) Append(_ context.Context, session string, row Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[session] = append(s.rows[session], row)
	return nil
}

// Rows returns a copy of all rows appended for a session, in order.
func (s *MemoryStore) Rows(_ context.Context, session string) ([]Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Row(nil), s.rows[session]...), nil
}

// Clear removes all rows for a session.
func (s *MemoryStore) Clear(_ context.Context, session string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, session)
	return nil
}
