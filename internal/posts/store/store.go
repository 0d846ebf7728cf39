// Package store persists destination posts. Every listing is ordered by
// CreatedAt descending, ties broken by ID descending.
package store

import (
	"sort"

	"wanderlog/internal/posts/models"
	"wanderlog/pkg/platform/sentinel"
)

var ErrNotFound = sentinel.ErrNotFound

func sortNewestFirst(posts []*models.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		if !posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].CreatedAt.After(posts[j].CreatedAt)
		}
		return posts[i].ID > posts[j].ID
	})
}
