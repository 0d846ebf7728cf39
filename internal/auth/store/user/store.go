// Package user persists registered accounts. Both implementations enforce
// username and email uniqueness and report a collision as ErrDuplicate.
package user

import "wanderlog/pkg/platform/sentinel"

var (
	ErrNotFound  = sentinel.ErrNotFound
	ErrDuplicate = sentinel.ErrAlreadyUsed
)
