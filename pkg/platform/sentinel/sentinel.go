package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors.
//
//   - ErrNotFound: entity does not exist in store
//   - ErrAlreadyUsed: a unique key (username, email) is already taken
//   - ErrExpired: session has passed its expiry
//   - ErrUnavailable: backing store temporarily unavailable
var (
	ErrNotFound    = errors.New("not found")
	ErrAlreadyUsed = errors.New("already used")
	ErrExpired     = errors.New("expired")
	ErrUnavailable = errors.New("unavailable")
)
