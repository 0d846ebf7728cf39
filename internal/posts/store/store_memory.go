package store

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"wanderlog/internal/posts/models"
	id "wanderlog/pkg/domain"
)

// InMemoryPostStore keeps posts in process memory. RunInTx serializes callers
// with a coarse lock separate from the data lock, so store methods stay
// callable inside fn.
type InMemoryPostStore struct {
	txMu   sync.Mutex
	mu     sync.RWMutex
	nextID id.PostID
	posts  map[id.PostID]*models.Post
}

// New constructs an empty in-memory post store.
func New() *InMemoryPostStore {
	return &InMemoryPostStore{posts: make(map[id.PostID]*models.Post)}
}

func (s *InMemoryPostStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(ctx)
}

func (s *InMemoryPostStore) Create(_ context.Context, post *models.Post) error {
	if post == nil {
		return fmt.Errorf("create post: nil post")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	post.ID = s.nextID
	stored := *post
	s.posts[stored.ID] = &stored
	return nil
}

func (s *InMemoryPostStore) FindByID(_ context.Context, postID id.PostID) (*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.posts[postID]; ok {
		found := *p
		return &found, nil
	}
	return nil, fmt.Errorf("post %s: %w", postID, ErrNotFound)
}

// UpdateDescription replaces the description of a post owned by ownerID.
// A post that is missing or owned by someone else is ErrNotFound.
func (s *InMemoryPostStore) UpdateDescription(_ context.Context, postID id.PostID, ownerID id.UserID, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[postID]
	if !ok || p.UserID != ownerID {
		return fmt.Errorf("post %s: %w", postID, ErrNotFound)
	}
	p.Description = description
	return nil
}

// Delete removes a post owned by ownerID, with the same not-found rule as
// UpdateDescription.
func (s *InMemoryPostStore) Delete(_ context.Context, postID id.PostID, ownerID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[postID]
	if !ok || p.UserID != ownerID {
		return fmt.Errorf("post %s: %w", postID, ErrNotFound)
	}
	delete(s.posts, postID)
	return nil
}

func (s *InMemoryPostStore) ListByOwner(_ context.Context, ownerID id.UserID) ([]*models.Post, error) {
	return s.filter(func(p *models.Post) bool { return p.UserID == ownerID }), nil
}

func (s *InMemoryPostStore) ListAll(_ context.Context) ([]*models.Post, error) {
	return s.filter(func(*models.Post) bool { return true }), nil
}

// Search matches Text against description or city and Country against
// country, all as case-insensitive substrings.
func (s *InMemoryPostStore) Search(_ context.Context, q models.SearchQuery) ([]*models.Post, error) {
	text := strings.ToLower(q.Text)
	country := strings.ToLower(q.Country)
	return s.filter(func(p *models.Post) bool {
		if text != "" &&
			!strings.Contains(strings.ToLower(p.Description), text) &&
			!strings.Contains(strings.ToLower(p.City), text) {
			return false
		}
		if country != "" && !strings.Contains(strings.ToLower(p.Country), country) {
			return false
		}
		return true
	}), nil
}

func (s *InMemoryPostStore) filter(keep func(*models.Post) bool) []*models.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Post, 0, len(s.posts))
	for _, p := range s.posts {
		if keep(p) {
			found := *p
			out = append(out, &found)
		}
	}
	sortNewestFirst(out)
	return out
}
