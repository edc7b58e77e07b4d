package history

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/poiesic/ragtime/core"
)

// Store keeps one Window per session.
// Implementations must be safe for concurrent use. Appends to a single
// session are applied atomically and in call order; sessions are
// independent of each other.
type Store interface {
	// Append adds turns to the session's window, creating it if needed.
	Append(ctx context.Context, sessionID string, turns ...core.Turn) error

	// Snapshot returns the session's turns, oldest first.
	// An unknown session has an empty history.
	Snapshot(ctx context.Context, sessionID string) ([]core.Turn, error)

	// Reset forgets the session.
	Reset(ctx context.Context, sessionID string) error
}

// NewSessionID returns a fresh random session id.
func NewSessionID() string {
	return uuid.NewString()
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu       sync.RWMutex
	limit    int
	sessions map[string]*Window
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a store whose windows hold at most limit turns.
func NewMemoryStore(limit int) (*MemoryStore, error) {
	if limit < 0 {
		return nil, ErrInvalidLimit
	}
	return &MemoryStore{
		limit:    limit,
		sessions: make(map[string]*Window),
	}, nil
}

func (s *MemoryStore) window(sessionID string, create bool) *Window {
	s.mu.RLock()
	w, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok || !create {
		return w
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok = s.sessions[sessionID]; !ok {
		w = NewWindow(s.limit)
		s.sessions[sessionID] = w
	}
	return w
}

// Append implements Store.
func (s *MemoryStore) Append(_ context.Context, sessionID string, turns ...core.Turn) error {
	if sessionID == "" {
		return ErrSessionIDRequired
	}
	s.window(sessionID, true).Append(turns...)
	return nil
}

// Snapshot implements Store.
func (s *MemoryStore) Snapshot(_ context.Context, sessionID string) ([]core.Turn, error) {
	if sessionID == "" {
		return nil, ErrSessionIDRequired
	}
	w := s.window(sessionID, false)
	if w == nil {
		return []core.Turn{}, nil
	}
	return w.Snapshot(), nil
}

// Reset implements Store.
func (s *MemoryStore) Reset(_ context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrSessionIDRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// Sessions returns the number of sessions held.
func (s *MemoryStore) Sessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
