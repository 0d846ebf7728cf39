package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"wanderlog/internal/auth/models"
	"wanderlog/internal/platform/database"
	id "wanderlog/pkg/domain"
	"wanderlog/pkg/platform/tx"
)

const userColumns = `id, username, email, password_hash, created_at`

// SQLStore persists users in any database/sql driver the platform supports.
type SQLStore struct {
	db *sql.DB
}

// NewSQL constructs a SQL-backed user store.
func NewSQL(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Create inserts user and fills in the generated id. Unique constraint
// failures on username or email surface as ErrDuplicate.
func (s *SQLStore) Create(ctx context.Context, user *models.User) error {
	if user == nil {
		return fmt.Errorf("create user: nil user")
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	return tx.Run(ctx, s.db, func(ctx context.Context) error {
		var newID int64
		err := tx.Executor(ctx, s.db).QueryRowContext(ctx, `
			INSERT INTO users (username, email, password_hash, created_at)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`, user.Username, user.Email, user.PasswordHash, user.CreatedAt).Scan(&newID)
		if err != nil {
			if database.IsUniqueViolation(err) {
				return fmt.Errorf("insert user: %w", ErrDuplicate)
			}
			return fmt.Errorf("insert user: %w", err)
		}
		user.ID = id.UserID(newID)
		return nil
	})
}

func (s *SQLStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	return s.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, int64(userID))
}

func (s *SQLStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

func (s *SQLStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (s *SQLStore) findOne(ctx context.Context, query string, arg any) (*models.User, error) {
	var (
		u     models.User
		rawID int64
	)
	err := tx.Executor(ctx, s.db).QueryRowContext(ctx, query, arg).
		Scan(&rawID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	u.ID = id.UserID(rawID)
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}
