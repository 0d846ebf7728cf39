// Package session holds login sessions keyed by their random id. Expired
// sessions are never returned by FindByID.
package session

import "wanderlog/pkg/platform/sentinel"

var ErrNotFound = sentinel.ErrNotFound
