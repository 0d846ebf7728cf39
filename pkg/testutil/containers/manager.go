//go:build integration

package containers

import (
	"context"
	"sync"
	"testing"

	"github.com/testcontainers/testcontainers-go"
)

// Manager shares one container per backend across every suite in a test
// binary. Ryuk reaps the containers when the binary exits.
type Manager struct {
	mu       sync.Mutex
	postgres *PostgresContainer
	redis    *RedisContainer
}

var (
	managerOnce sync.Once
	manager     *Manager
)

// GetManager returns the process-wide container manager.
func GetManager() *Manager {
	managerOnce.Do(func() {
		manager = &Manager{}
	})
	return manager
}

// GetPostgres starts Postgres on first use and returns the shared instance.
func (m *Manager) GetPostgres(t *testing.T) *PostgresContainer {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.postgres == nil {
		m.postgres = NewPostgresContainer(t)
	}
	return m.postgres
}

// GetRedis starts Redis on first use and returns the shared instance.
func (m *Manager) GetRedis(t *testing.T) *RedisContainer {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.redis == nil {
		m.redis = NewRedisContainer(t)
	}
	return m.redis
}

// abort terminates a container that failed to come up and fails the test.
func abort(ctx context.Context, t *testing.T, c testcontainers.Container, format string, args ...any) {
	t.Helper()
	_ = c.Terminate(ctx)
	t.Fatalf(format, args...)
}
