package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/asaskevich/govalidator"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"wanderlog/internal/auth/models"
	dErrors "wanderlog/pkg/domain-errors"
	"wanderlog/pkg/email"
	"wanderlog/pkg/platform/sentinel"
	"wanderlog/pkg/requestcontext"
)

// Field limits match the users table.
const (
	MaxUsernameLength = 64
	MaxEmailLength    = 120
)

// ConflictMessage is returned for any username or email collision. It does
// not say which field collided.
const ConflictMessage = "username or email already exists"

// Register hashes the password and creates the account. Uniqueness is left to
// the store, so concurrent registrations of one username yield one account
// and CodeConflict for the rest.
func (s *Service) Register(ctx context.Context, in models.RegisterInput) (*models.User, error) {
	ctx, span := tracer.Start(ctx, "auth.Register")
	defer span.End()

	in.Username = strings.TrimSpace(in.Username)
	in.Email = email.Normalize(in.Email)
	if err := validateRegistration(in); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvalidInput) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	user := &models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		CreatedAt:    requestcontext.Now(ctx),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			span.SetAttributes(attribute.Bool("conflict", true))
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, ConflictMessage)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "create user")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}

	s.metrics.IncrementUsersRegistered()
	s.logAudit(ctx, "user_registered",
		"user_id", user.ID.String(),
		"username", user.Username,
		"request_id", requestcontext.RequestID(ctx),
	)
	return user, nil
}

func validateRegistration(in models.RegisterInput) error {
	switch {
	case in.Username == "":
		return dErrors.New(dErrors.CodeInvalidInput, "username is required")
	case utf8.RuneCountInString(in.Username) > MaxUsernameLength:
		return dErrors.New(dErrors.CodeInvalidInput, "username is too long")
	case in.Email == "":
		return dErrors.New(dErrors.CodeInvalidInput, "email is required")
	case utf8.RuneCountInString(in.Email) > MaxEmailLength:
		return dErrors.New(dErrors.CodeInvalidInput, "email is too long")
	case !govalidator.IsEmail(in.Email):
		return dErrors.New(dErrors.CodeInvalidInput, "email is not a valid address")
	case in.Password == "":
		return dErrors.New(dErrors.CodeInvalidInput, "password is required")
	}
	return nil
}
