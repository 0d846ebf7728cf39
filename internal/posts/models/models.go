package models

import (
	"time"

	id "wanderlog/pkg/domain"
)

// Field limits match the posts table.
const (
	MaxCityLength        = 100
	MaxCountryLength     = 100
	MaxDescriptionLength = 2000
)

// Post is a destination entry owned by one user. Only Description changes
// after creation.
type Post struct {
	ID          id.PostID
	UserID      id.UserID
	City        string
	Country     string
	Description string
	CreatedAt   time.Time

	// Author is the owner's username, filled on reads.
	Author string
}

// OwnedBy reports whether userID owns the post.
func (p *Post) OwnedBy(userID id.UserID) bool {
	return p != nil && p.UserID == userID
}

// CreateInput is the destination form after trimming.
type CreateInput struct {
	City        string
	Country     string
	Description string
}

// SearchQuery filters the feed. Empty fields do not constrain.
type SearchQuery struct {
	Text    string
	Country string
}

// IsEmpty reports whether the query places no constraint.
func (q SearchQuery) IsEmpty() bool {
	return q.Text == "" && q.Country == ""
}
