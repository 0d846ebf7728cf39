package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"wanderlog/internal/auth/password"
	authservice "wanderlog/internal/auth/service"
	"wanderlog/internal/platform/config"
	"wanderlog/internal/platform/httpserver"
	"wanderlog/internal/platform/logger"
	"wanderlog/internal/platform/metrics"
	postservice "wanderlog/internal/posts/service"
	"wanderlog/internal/ratelimit"
	httptransport "wanderlog/internal/transport/http"
)

const (
	shutdownTimeout = 10 * time.Second
	sweepInterval   = 10 * time.Minute
)

// main wires configuration, stores, services and the router, then runs the
// server until SIGINT or SIGTERM.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "wanderlog: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(".env")
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	if cfg.UsesDevSecret() {
		log.Warn("SECRET_KEY is the development default; set it before deploying")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	auth, err := authservice.New(st.users, st.sessions,
		authservice.WithLogger(log),
		authservice.WithMetrics(m),
		authservice.WithHasher(password.NewHasher(cfg.BcryptCost)),
		authservice.WithSessionTTL(cfg.SessionTTL),
		authservice.WithRememberTTL(cfg.RememberTTL),
	)
	if err != nil {
		return fmt.Errorf("auth service: %w", err)
	}
	posts, err := postservice.New(st.posts,
		postservice.WithLogger(log),
		postservice.WithMetrics(m),
		postservice.WithAuthorDirectory(auth),
	)
	if err != nil {
		return fmt.Errorf("post service: %w", err)
	}

	limits := ratelimit.NewInMemoryBucketStore()
	handler := httptransport.NewHandler(auth, posts, []byte(cfg.SecretKey), cfg.SecureCookies, log)
	router := httptransport.NewRouter(handler, httptransport.RouterConfig{
		Logger:            log,
		Metrics:           m,
		Gatherer:          reg,
		SecureCookies:     cfg.SecureCookies,
		HealthChecks:      st.health,
		AuthRateLimit:     cfg.AuthRateLimit,
		AuthRateWindow:    cfg.AuthRateWindow,
		RateLimitStore:    limits,
		TrustProxyHeaders: cfg.TrustProxyHeaders,
	})
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting wanderlog", "addr", cfg.Addr, "storage", st.kind)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		sweep(gctx, st.sweeper, limits, log)
		return nil
	})
	return g.Wait()
}

type expiredSessionSweeper interface {
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// sweep periodically drops expired in-memory sessions and idle rate limit
// buckets until ctx ends. sessions is nil when Redis holds them; Redis
// expires its own keys.
func sweep(ctx context.Context, sessions expiredSessionSweeper, limits *ratelimit.InMemoryBucketStore, log *slog.Logger) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			limits.Sweep(now)
			if sessions == nil {
				continue
			}
			n, err := sessions.DeleteExpired(ctx, now)
			if err != nil {
				log.WarnContext(ctx, "session sweep failed", "error", err)
				continue
			}
			if n > 0 {
				log.DebugContext(ctx, "expired sessions removed", "count", n)
			}
		}
	}
}
