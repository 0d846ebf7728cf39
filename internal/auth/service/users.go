package service

import (
	"context"
	"errors"

	"wanderlog/internal/auth/models"
	id "wanderlog/pkg/domain"
	dErrors "wanderlog/pkg/domain-errors"
	"wanderlog/pkg/platform/sentinel"
)

// UserByUsername resolves a profile page owner.
func (s *Service) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, translateUserErr(err)
	}
	return user, nil
}

// UserByID resolves a post author.
func (s *Service) UserByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	if userID.IsZero() {
		return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, translateUserErr(err)
	}
	return user, nil
}

func translateUserErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "user not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
}
