package service

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	authmodels "wanderlog/internal/auth/models"
	"wanderlog/internal/posts/models"
	id "wanderlog/pkg/domain"
	dErrors "wanderlog/pkg/domain-errors"
	"wanderlog/pkg/requestcontext"
)

// Create stores a new post owned by the session's user.
func (s *Service) Create(ctx context.Context, sess *authmodels.Session, in models.CreateInput) (*models.Post, error) {
	ctx, span := tracer.Start(ctx, "posts.Create")
	defer span.End()

	if err := requireSession(ctx, sess); err != nil {
		return nil, err
	}
	in, err := normalizeCreate(in)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		UserID:      sess.UserID,
		City:        in.City,
		Country:     in.Country,
		Description: in.Description,
		CreatedAt:   requestcontext.Now(ctx),
		Author:      sess.Username,
	}
	if err := s.store.Create(ctx, post); err != nil {
		return nil, translateStoreErr(err, "failed to create post")
	}

	span.SetAttributes(attribute.Int64("post_id", int64(post.ID)))
	s.metrics.IncrementPostsCreated()
	s.logger.InfoContext(ctx, "post created",
		"post_id", post.ID.String(),
		"user_id", sess.UserID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return post, nil
}

// UpdateDescription replaces the description of a post the session owns.
// Ownership is checked before the description is validated, so a non-owner
// always sees CodeForbidden.
func (s *Service) UpdateDescription(ctx context.Context, sess *authmodels.Session, postID id.PostID, description string) error {
	ctx, span := tracer.Start(ctx, "posts.UpdateDescription")
	defer span.End()

	if err := requireSession(ctx, sess); err != nil {
		return err
	}
	description = strings.TrimSpace(description)

	err := s.store.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.authorize(ctx, sess, postID, "edit"); err != nil {
			return err
		}
		if err := requireField("description", description, models.MaxDescriptionLength); err != nil {
			return err
		}
		if err := s.store.UpdateDescription(ctx, postID, sess.UserID, description); err != nil {
			return translateStoreErr(err, "failed to update post")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.IncrementPostsUpdated()
	s.logger.InfoContext(ctx, "post updated",
		"post_id", postID.String(),
		"user_id", sess.UserID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

// Delete removes a post the session owns.
func (s *Service) Delete(ctx context.Context, sess *authmodels.Session, postID id.PostID) error {
	ctx, span := tracer.Start(ctx, "posts.Delete")
	defer span.End()

	if err := requireSession(ctx, sess); err != nil {
		return err
	}

	err := s.store.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.authorize(ctx, sess, postID, "delete"); err != nil {
			return err
		}
		if err := s.store.Delete(ctx, postID, sess.UserID); err != nil {
			return translateStoreErr(err, "failed to delete post")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.IncrementPostsDeleted()
	s.logger.InfoContext(ctx, "post deleted",
		"post_id", postID.String(),
		"user_id", sess.UserID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

func (s *Service) authorize(ctx context.Context, sess *authmodels.Session, postID id.PostID, action string) error {
	post, err := s.store.FindByID(ctx, postID)
	if err != nil {
		return translateStoreErr(err, "failed to load post")
	}
	if !post.OwnedBy(sess.UserID) {
		s.metrics.IncrementOwnershipDenied(action)
		s.logger.WarnContext(ctx, "post ownership denied",
			"action", action,
			"post_id", postID.String(),
			"owner_id", post.UserID.String(),
			"user_id", sess.UserID.String(),
			"request_id", requestcontext.RequestID(ctx),
		)
		return dErrors.New(dErrors.CodeForbidden, "you can only "+action+" your own posts")
	}
	return nil
}
