package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"wanderlog/internal/posts/models"
	id "wanderlog/pkg/domain"
	"wanderlog/pkg/platform/sentinel"
)

type InMemoryPostStoreSuite struct {
	suite.Suite
	store *InMemoryPostStore
	base  time.Time
}

func TestInMemoryPostStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryPostStoreSuite))
}

func (s *InMemoryPostStoreSuite) SetupTest() {
	s.store = New()
	s.base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
}

func (s *InMemoryPostStoreSuite) add(owner id.UserID, city, country, description string, offset time.Duration) *models.Post {
	p := &models.Post{
		UserID:      owner,
		City:        city,
		Country:     country,
		Description: description,
		CreatedAt:   s.base.Add(offset),
	}
	s.Require().NoError(s.store.Create(context.Background(), p))
	return p
}

func ids(posts []*models.Post) []id.PostID {
	out := make([]id.PostID, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.ID)
	}
	return out
}

func (s *InMemoryPostStoreSuite) TestListAllNewestFirstWithIDTieBreak() {
	older := s.add(1, "Paris", "France", "croissants", 0)
	tieA := s.add(1, "Lyon", "France", "food", time.Hour)
	tieB := s.add(2, "Nice", "France", "beach", time.Hour)
	newest := s.add(2, "Kyoto", "Japan", "temples", 2*time.Hour)

	posts, err := s.store.ListAll(context.Background())
	s.Require().NoError(err)
	s.Equal([]id.PostID{newest.ID, tieB.ID, tieA.ID, older.ID}, ids(posts))
}

func (s *InMemoryPostStoreSuite) TestListByOwner() {
	mine := s.add(1, "Paris", "France", "a", 0)
	s.add(2, "Rome", "Italy", "b", time.Minute)

	posts, err := s.store.ListByOwner(context.Background(), 1)
	s.Require().NoError(err)
	s.Equal([]id.PostID{mine.ID}, ids(posts))

	none, err := s.store.ListByOwner(context.Background(), 3)
	s.Require().NoError(err)
	s.Empty(none)
}

func (s *InMemoryPostStoreSuite) TestSearch() {
	parisCity := s.add(1, "Paris", "France", "Eiffel tower", 0)
	parisDesc := s.add(2, "Las Vegas", "USA", "A fake PARIS on the strip", time.Minute)
	s.add(1, "Kyoto", "Japan", "temples", 2*time.Minute)
	tokyo := s.add(2, "Tokyo", "Japan", "neon", 3*time.Minute)
	percent := s.add(1, "Berlin", "Germany", "100% worth it", 4*time.Minute)

	s.Run("text matches description or city case-insensitively", func() {
		posts, err := s.store.Search(context.Background(), models.SearchQuery{Text: "paris"})
		s.Require().NoError(err)
		s.ElementsMatch([]id.PostID{parisCity.ID, parisDesc.ID}, ids(posts))
	})

	s.Run("country alone", func() {
		posts, err := s.store.Search(context.Background(), models.SearchQuery{Country: "JAPAN"})
		s.Require().NoError(err)
		s.Len(posts, 2)
		s.Equal(tokyo.ID, posts[0].ID, "newest first")
	})

	s.Run("text and country combine with AND", func() {
		posts, err := s.store.Search(context.Background(), models.SearchQuery{Text: "temple", Country: "france"})
		s.Require().NoError(err)
		s.Empty(posts)
	})

	s.Run("wildcards match literally", func() {
		posts, err := s.store.Search(context.Background(), models.SearchQuery{Text: "%"})
		s.Require().NoError(err)
		s.Equal([]id.PostID{percent.ID}, ids(posts))

		posts, err = s.store.Search(context.Background(), models.SearchQuery{Text: "_"})
		s.Require().NoError(err)
		s.Empty(posts)
	})

	s.Run("empty query returns everything", func() {
		posts, err := s.store.Search(context.Background(), models.SearchQuery{})
		s.Require().NoError(err)
		s.Len(posts, 5)
	})
}

func (s *InMemoryPostStoreSuite) TestOwnerGuardedMutations() {
	p := s.add(1, "Paris", "France", "original", 0)

	s.Run("non-owner update is not found and leaves post unchanged", func() {
		err := s.store.UpdateDescription(context.Background(), p.ID, 2, "hijacked")
		s.ErrorIs(err, sentinel.ErrNotFound)

		found, err := s.store.FindByID(context.Background(), p.ID)
		s.Require().NoError(err)
		s.Equal("original", found.Description)
	})

	s.Run("owner update", func() {
		s.Require().NoError(s.store.UpdateDescription(context.Background(), p.ID, 1, "revised"))
		found, err := s.store.FindByID(context.Background(), p.ID)
		s.Require().NoError(err)
		s.Equal("revised", found.Description)
		s.Equal("Paris", found.City)
	})

	s.Run("non-owner delete keeps post", func() {
		s.ErrorIs(s.store.Delete(context.Background(), p.ID, 2), ErrNotFound)
		_, err := s.store.FindByID(context.Background(), p.ID)
		s.NoError(err)
	})

	s.Run("owner delete", func() {
		s.Require().NoError(s.store.Delete(context.Background(), p.ID, 1))
		_, err := s.store.FindByID(context.Background(), p.ID)
		s.ErrorIs(err, ErrNotFound)
	})
}

func (s *InMemoryPostStoreSuite) TestRunInTxAllowsNestedStoreCalls() {
	p := s.add(1, "Paris", "France", "original", 0)
	err := s.store.RunInTx(context.Background(), func(ctx context.Context) error {
		found, err := s.store.FindByID(ctx, p.ID)
		if err != nil {
			return err
		}
		return s.store.UpdateDescription(ctx, found.ID, found.UserID, "inside tx")
	})
	s.Require().NoError(err)
}
