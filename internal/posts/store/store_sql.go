package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"wanderlog/internal/platform/database"
	"wanderlog/internal/posts/models"
	id "wanderlog/pkg/domain"
	"wanderlog/pkg/platform/tx"
)

const selectPosts = `
	SELECT p.id, p.user_id, p.city, p.country, p.description, p.created_at, u.username
	FROM posts p
	JOIN users u ON u.id = p.user_id`

const orderNewestFirst = ` ORDER BY p.created_at DESC, p.id DESC`

// SQLStore persists posts through database/sql. Reads join users to fill
// Post.Author.
type SQLStore struct {
	db *sql.DB
}

// NewSQL constructs a SQL-backed post store.
func NewSQL(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return tx.Run(ctx, s.db, fn)
}

func (s *SQLStore) Create(ctx context.Context, post *models.Post) error {
	if post == nil {
		return fmt.Errorf("create post: nil post")
	}
	var newID int64
	err := tx.Executor(ctx, s.db).QueryRowContext(ctx, `
		INSERT INTO posts (user_id, city, country, description, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, int64(post.UserID), post.City, post.Country, post.Description, post.CreatedAt).Scan(&newID)
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	post.ID = id.PostID(newID)
	return nil
}

func (s *SQLStore) FindByID(ctx context.Context, postID id.PostID) (*models.Post, error) {
	rows, err := tx.Executor(ctx, s.db).QueryContext(ctx, selectPosts+` WHERE p.id = $1`, int64(postID))
	if err != nil {
		return nil, fmt.Errorf("find post: %w", err)
	}
	posts, err := scanPosts(rows)
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, fmt.Errorf("post %s: %w", postID, ErrNotFound)
	}
	return posts[0], nil
}

// UpdateDescription only touches a row owned by ownerID; zero affected rows
// is ErrNotFound.
func (s *SQLStore) UpdateDescription(ctx context.Context, postID id.PostID, ownerID id.UserID, description string) error {
	res, err := tx.Executor(ctx, s.db).ExecContext(ctx,
		`UPDATE posts SET description = $1 WHERE id = $2 AND user_id = $3`,
		description, int64(postID), int64(ownerID))
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	return requireAffected(res, postID)
}

func (s *SQLStore) Delete(ctx context.Context, postID id.PostID, ownerID id.UserID) error {
	res, err := tx.Executor(ctx, s.db).ExecContext(ctx,
		`DELETE FROM posts WHERE id = $1 AND user_id = $2`,
		int64(postID), int64(ownerID))
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return requireAffected(res, postID)
}

func (s *SQLStore) ListByOwner(ctx context.Context, ownerID id.UserID) ([]*models.Post, error) {
	return s.list(ctx, selectPosts+` WHERE p.user_id = $1`+orderNewestFirst, int64(ownerID))
}

func (s *SQLStore) ListAll(ctx context.Context) ([]*models.Post, error) {
	return s.list(ctx, selectPosts+orderNewestFirst)
}

// Search escapes LIKE wildcards so user input matches literally.
func (s *SQLStore) Search(ctx context.Context, q models.SearchQuery) ([]*models.Post, error) {
	var (
		where []string
		args  []any
	)
	if q.Text != "" {
		args = append(args, database.EscapeLike(q.Text))
		n := placeholder(len(args))
		where = append(where, `(`+likeExpr("p.description", n)+` OR `+likeExpr("p.city", n)+`)`)
	}
	if q.Country != "" {
		args = append(args, database.EscapeLike(q.Country))
		where = append(where, likeExpr("p.country", placeholder(len(args))))
	}

	query := selectPosts
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	return s.list(ctx, query+orderNewestFirst, args...)
}

func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

func likeExpr(column, param string) string {
	return `LOWER(` + column + `) LIKE '%' || LOWER(` + param + `) || '%' ESCAPE '\'`
}

func (s *SQLStore) list(ctx context.Context, query string, args ...any) ([]*models.Post, error) {
	rows, err := tx.Executor(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return scanPosts(rows)
}

func scanPosts(rows *sql.Rows) ([]*models.Post, error) {
	defer rows.Close()
	posts := make([]*models.Post, 0)
	for rows.Next() {
		var (
			p              models.Post
			postID, userID int64
		)
		if err := rows.Scan(&postID, &userID, &p.City, &p.Country, &p.Description, &p.CreatedAt, &p.Author); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		p.ID = id.PostID(postID)
		p.UserID = id.UserID(userID)
		p.CreatedAt = p.CreatedAt.UTC()
		posts = append(posts, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	return posts, nil
}

func requireAffected(res sql.Result, postID id.PostID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("post %s: %w", postID, ErrNotFound)
	}
	return nil
}

