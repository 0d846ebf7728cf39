package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"wanderlog/internal/auth/models"
	id "wanderlog/pkg/domain"
)

// InMemorySessionStore keeps sessions in process memory. Expired entries are
// dropped lazily on lookup.
type InMemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[id.SessionID]*models.Session
	clock    func() time.Time
}

// Option configures an InMemorySessionStore.
type Option func(*InMemorySessionStore)

// WithClock overrides the time source used for expiry checks.
func WithClock(clock func() time.Time) Option {
	return func(s *InMemorySessionStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// New constructs an empty in-memory session store.
func New(opts ...Option) *InMemorySessionStore {
	s := &InMemorySessionStore{
		sessions: make(map[id.SessionID]*models.Session),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemorySessionStore) Create(_ context.Context, session *models.Session) error {
	if session == nil || session.ID.IsNil() {
		return fmt.Errorf("create session: missing id")
	}
	stored := *session
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[stored.ID] = &stored
	return nil
}

func (s *InMemorySessionStore) FindByID(_ context.Context, sessionID id.SessionID) (*models.Session, error) {
	now := s.clock()

	s.mu.RLock()
	stored, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("session not found: %w", ErrNotFound)
	}
	if stored.IsExpired(now) {
		s.mu.Lock()
		delete(s.sessions, sessionID)
		s.mu.Unlock()
		return nil, fmt.Errorf("session expired: %w", ErrNotFound)
	}
	found := *stored
	return &found, nil
}

// Delete removes a session. Deleting an unknown id is not an error.
func (s *InMemorySessionStore) Delete(_ context.Context, sessionID id.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// DeleteExpired drops every session expired at now and reports how many
// were removed.
func (s *InMemorySessionStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, sess := range s.sessions {
		if sess.IsExpired(now) {
			delete(s.sessions, key)
			removed++
		}
	}
	return removed, nil
}
