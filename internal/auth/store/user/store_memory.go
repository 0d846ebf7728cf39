package user

import (
	"context"
	"fmt"
	"sync"
	"time"

	"wanderlog/internal/auth/models"
	id "wanderlog/pkg/domain"
)

// InMemoryUserStore keeps users in process memory for development and tests.
type InMemoryUserStore struct {
	mu         sync.RWMutex
	nextID     id.UserID
	byID       map[id.UserID]*models.User
	byUsername map[string]id.UserID
	byEmail    map[string]id.UserID
}

// New constructs an empty in-memory user store.
func New() *InMemoryUserStore {
	return &InMemoryUserStore{
		byID:       make(map[id.UserID]*models.User),
		byUsername: make(map[string]id.UserID),
		byEmail:    make(map[string]id.UserID),
	}
}

// Create assigns the next id and stores a copy of user. The uniqueness check
// and insert happen under one lock.
func (s *InMemoryUserStore) Create(_ context.Context, user *models.User) error {
	if user == nil {
		return fmt.Errorf("create user: nil user")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byUsername[user.Username]; taken {
		return fmt.Errorf("username taken: %w", ErrDuplicate)
	}
	if _, taken := s.byEmail[user.Email]; taken {
		return fmt.Errorf("email taken: %w", ErrDuplicate)
	}

	s.nextID++
	user.ID = s.nextID
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	stored := *user
	s.byID[stored.ID] = &stored
	s.byUsername[stored.Username] = stored.ID
	s.byEmail[stored.Email] = stored.ID
	return nil
}

func (s *InMemoryUserStore) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.byID[userID]; ok {
		found := *u
		return &found, nil
	}
	return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
}

func (s *InMemoryUserStore) FindByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if uid, ok := s.byUsername[username]; ok {
		found := *s.byID[uid]
		return &found, nil
	}
	return nil, fmt.Errorf("user %q: %w", username, ErrNotFound)
}

func (s *InMemoryUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if uid, ok := s.byEmail[email]; ok {
		found := *s.byID[uid]
		return &found, nil
	}
	return nil, fmt.Errorf("user with email: %w", ErrNotFound)
}
