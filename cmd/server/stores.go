package main

import (
	"context"
	"fmt"
	"log/slog"

	authservice "wanderlog/internal/auth/service"
	sessionstore "wanderlog/internal/auth/store/session"
	userstore "wanderlog/internal/auth/store/user"
	"wanderlog/internal/platform/config"
	"wanderlog/internal/platform/database"
	"wanderlog/internal/platform/redis"
	postservice "wanderlog/internal/posts/service"
	poststore "wanderlog/internal/posts/store"
	httptransport "wanderlog/internal/transport/http"
)

// stores holds the backends chosen by configuration.
type stores struct {
	kind     string
	users    authservice.UserStore
	sessions authservice.SessionStore
	posts    postservice.Store
	sweeper  expiredSessionSweeper
	health   []httptransport.HealthCheck
	closers  []func() error
}

// openStores picks SQL users and posts when DATABASE_URL is set and Redis
// sessions when REDIS_URL is set; anything unset runs in memory.
func openStores(ctx context.Context, cfg config.Server, log *slog.Logger) (*stores, error) {
	st := &stores{kind: "memory"}

	if cfg.Database.URL == "" {
		st.users = userstore.New()
		st.posts = poststore.New()
	} else {
		db, err := database.Open(ctx, database.Config{
			Driver:          cfg.Database.Driver,
			URL:             cfg.Database.URL,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		})
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, db.Close)
		if err := database.Migrate(ctx, db, cfg.Database.Driver, log); err != nil {
			st.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		st.kind = "sql"
		st.users = userstore.NewSQL(db)
		st.posts = poststore.NewSQL(db)
		st.health = append(st.health, httptransport.HealthCheck{Name: "database", Ping: db.PingContext})
		log.Info("using SQL storage", "driver", cfg.Database.Driver)
	}

	client, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		st.Close()
		return nil, err
	}
	if client == nil {
		mem := sessionstore.New()
		st.sessions = mem
		st.sweeper = mem
	} else {
		st.closers = append(st.closers, client.Close)
		st.sessions = sessionstore.NewRedis(client.Client)
		st.health = append(st.health, httptransport.HealthCheck{Name: "redis", Ping: client.Health})
		log.Info("using redis sessions")
	}
	return st, nil
}

// Close releases connections in reverse order of opening.
func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i]()
	}
	s.closers = nil
}
