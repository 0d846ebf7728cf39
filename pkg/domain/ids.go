// Package domain holds the typed identifiers shared across modules. Distinct
// types keep a post id from being passed where a user id is expected.
package domain

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	dErrors "wanderlog/pkg/domain-errors"
)

// UserID is the store-assigned primary key of a user.
type UserID int64

// PostID is the store-assigned primary key of a post.
type PostID int64

// SessionID identifies a server-side login session.
type SessionID uuid.UUID

// maxNumericIDLen bounds path parameters before strconv sees them.
const maxNumericIDLen = 19

func (id UserID) String() string { return strconv.FormatInt(int64(id), 10) }

// IsZero reports whether the id was never assigned.
func (id UserID) IsZero() bool { return id <= 0 }

func (id PostID) String() string { return strconv.FormatInt(int64(id), 10) }

// IsZero reports whether the id was never assigned.
func (id PostID) IsZero() bool { return id <= 0 }

func (id SessionID) String() string { return uuid.UUID(id).String() }

// IsNil reports whether the session id is the nil UUID.
func (id SessionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// MarshalText encodes the session id in canonical UUID form.
func (id SessionID) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}

// UnmarshalText decodes a canonical UUID.
func (id *SessionID) UnmarshalText(data []byte) error {
	var u uuid.UUID
	if err := u.UnmarshalText(data); err != nil {
		return err
	}
	*id = SessionID(u)
	return nil
}

// NewSessionID returns a fresh random session id.
func NewSessionID() SessionID { return SessionID(uuid.New()) }

// ParsePostID parses a positive decimal post id from a URL path segment.
func ParsePostID(s string) (PostID, error) {
	n, err := parsePositiveInt(s)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "invalid post id")
	}
	return PostID(n), nil
}

// ParseUserID parses a positive decimal user id.
func ParseUserID(s string) (UserID, error) {
	n, err := parsePositiveInt(s)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "invalid user id")
	}
	return UserID(n), nil
}

// ParseSessionID parses a non-nil UUID, typically read from a cookie.
func ParseSessionID(s string) (SessionID, error) {
	if s == "" || len(s) > 64 {
		return SessionID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid session id")
	}
	u, err := uuid.Parse(s)
	if err != nil || u == uuid.Nil {
		return SessionID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid session id")
	}
	return SessionID(u), nil
}

func parsePositiveInt(s string) (int64, error) {
	if s == "" || len(s) > maxNumericIDLen || strings.TrimSpace(s) != s {
		return 0, strconv.ErrSyntax
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, strconv.ErrSyntax
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, strconv.ErrRange
	}
	return n, nil
}
