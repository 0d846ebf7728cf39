// Package database opens the relational store behind the SQL-backed user and
// post stores, applies embedded goose migrations, and classifies driver errors.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"wanderlog/internal/platform/database/migrations"
)

// Supported driver names.
const (
	DriverPgx      = "pgx"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// Config selects a driver and DSN.
type Config struct {
	Driver          string
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open connects, pings, and returns the pool. SQLite connections get foreign
// keys enabled and are limited to a single writer.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	driver, dsn, err := normalize(cfg.Driver, cfg.URL)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}

	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	} else {
		if cfg.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			db.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		if cfg.ConnMaxLifetime > 0 {
			db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s database: %w", driver, err)
	}
	return db, nil
}

func normalize(driver, dsn string) (string, string, error) {
	if dsn == "" {
		return "", "", errors.New("database URL is empty")
	}
	switch driver {
	case "", DriverPgx:
		return DriverPgx, dsn, nil
	case DriverPostgres:
		return DriverPostgres, dsn, nil
	case DriverSQLite, "sqlite":
		if !strings.Contains(dsn, "_foreign_keys") && !strings.Contains(dsn, "_fk=") {
			sep := "?"
			if strings.Contains(dsn, "?") {
				sep = "&"
			}
			dsn += sep + "_foreign_keys=on"
		}
		return DriverSQLite, dsn, nil
	default:
		return "", "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Migrate applies the embedded migrations for driver, reporting progress to
// logger.
func Migrate(ctx context.Context, db *sql.DB, driver string, logger *slog.Logger) error {
	dialect, dir := "postgres", "postgres"
	if driver == DriverSQLite || driver == "sqlite" {
		dialect, dir = "sqlite3", "sqlite"
	}
	if logger == nil {
		logger = slog.Default()
	}

	goose.SetLogger(&gooseLogger{ctx: ctx, logger: logger})
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db, dir); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// gooseLogger adapts slog to goose.Logger.
type gooseLogger struct {
	ctx    context.Context
	logger *slog.Logger
}

func (l *gooseLogger) Printf(format string, v ...any) {
	l.logger.InfoContext(l.ctx, strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "migrations")
}

func (l *gooseLogger) Fatalf(format string, v ...any) {
	l.logger.ErrorContext(l.ctx, strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "migrations")
	os.Exit(1)
}

// IsUniqueViolation reports whether err is a unique-constraint failure from
// any supported driver.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgUniqueViolation
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// EscapeLike escapes LIKE wildcards so user input matches literally. Queries
// must declare ESCAPE '\'.
func EscapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
