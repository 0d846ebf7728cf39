package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"wanderlog/internal/auth/models"
	id "wanderlog/pkg/domain"
)

const sessionKeyPrefix = "session:"

// RedisStore keeps sessions as JSON values whose key TTL matches ExpiresAt,
// so Redis evicts them without a sweeper.
type RedisStore struct {
	client *redis.Client
	clock  func() time.Time
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithRedisClock overrides the time source used to derive key TTLs.
func WithRedisClock(clock func() time.Time) RedisOption {
	return func(s *RedisStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewRedis constructs a Redis-backed session store.
func NewRedis(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func sessionKey(sessionID id.SessionID) string {
	return sessionKeyPrefix + sessionID.String()
}

func (s *RedisStore) Create(ctx context.Context, session *models.Session) error {
	if session == nil || session.ID.IsNil() {
		return fmt.Errorf("create session: missing id")
	}
	ttl := session.ExpiresAt.Sub(s.clock())
	if ttl <= 0 {
		return fmt.Errorf("create session: already expired")
	}
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(session.ID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func (s *RedisStore) FindByID(ctx context.Context, sessionID id.SessionID) (*models.Session, error) {
	raw, err := s.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("session not found: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	var sess models.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if sess.IsExpired(s.clock()) {
		return nil, fmt.Errorf("session expired: %w", ErrNotFound)
	}
	return &sess, nil
}

// Delete removes a session. Deleting an unknown id is not an error.
func (s *RedisStore) Delete(ctx context.Context, sessionID id.SessionID) error {
	if err := s.client.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
