package session

import (
	"context"
	"sync"
	"time"
)

// Entry is one transcript turn.
type Entry struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	ToolCalls []string  `json:"tool_calls,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists transcripts. A missing session id reads back as an empty
// history, not an error.
type Store interface {
	Append(ctx context.Context, sessionID string, entries ...Entry) error
	History(ctx context.Context, sessionID string) ([]Entry, error)
	Clear(ctx context.Context, sessionID string) error
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]Entry
}

// NewMemoryStore returns an empty in-process transcript store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]Entry)}
}

func (s *MemoryStore) Append(_ context.Context, sessionID string, entries ...Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = append(s.sessions[sessionID], entries...)
	return nil
}

func (s *MemoryStore) History(_ context.Context, sessionID string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Entry{}, s.sessions[sessionID]...), nil
}

func (s *MemoryStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

var _ Store = (*MemoryStore)(nil)
