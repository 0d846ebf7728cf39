package service

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"wanderlog/internal/auth/device"
	"wanderlog/internal/auth/models"
	"wanderlog/internal/auth/password"
	"wanderlog/internal/platform/metrics"
	id "wanderlog/pkg/domain"
	dErrors "wanderlog/pkg/domain-errors"
	"wanderlog/pkg/platform/sentinel"
	"wanderlog/pkg/requestcontext"
)

// InvalidCredentialsMessage is shared by the unknown-user and wrong-password
// paths.
const InvalidCredentialsMessage = "invalid username or password"

// Login checks credentials and opens a session. The session lives for
// RememberTTL when in.Remember is set and SessionTTL otherwise.
func (s *Service) Login(ctx context.Context, in models.LoginInput) (*models.Session, error) {
	ctx, span := tracer.Start(ctx, "auth.Login")
	defer span.End()

	username := strings.TrimSpace(in.Username)
	if username == "" || in.Password == "" {
		s.loginFailed(ctx, username, "missing_credentials")
		return nil, dErrors.New(dErrors.CodeUnauthorized, InvalidCredentialsMessage)
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.verifyDummy(in.Password)
			s.loginFailed(ctx, username, "unknown_user")
			return nil, dErrors.New(dErrors.CodeUnauthorized, InvalidCredentialsMessage)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}

	if err := s.hasher.Verify(in.Password, user.PasswordHash); err != nil {
		if errors.Is(err, password.ErrMismatch) {
			s.loginFailed(ctx, username, "bad_password")
			return nil, dErrors.New(dErrors.CodeUnauthorized, InvalidCredentialsMessage)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify password")
	}

	now := requestcontext.Now(ctx)
	ttl := s.SessionTTL
	if in.Remember {
		ttl = s.RememberTTL
	}
	userAgent := in.UserAgent
	if userAgent == "" {
		userAgent = requestcontext.UserAgent(ctx)
	}
	session := &models.Session{
		ID:                id.NewSessionID(),
		UserID:            user.ID,
		Username:          user.Username,
		Remember:          in.Remember,
		DeviceDisplayName: device.ParseUserAgent(userAgent),
		CreatedAt:         now,
		ExpiresAt:         now.Add(ttl),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create session")
	}

	span.SetAttributes(attribute.Bool("remember", in.Remember))
	s.metrics.IncrementLogin(metrics.LoginSucceeded)
	s.logAudit(ctx, "login_succeeded",
		"user_id", user.ID.String(),
		"session_id", session.ID.String(),
		"device", session.DeviceDisplayName,
		"remember", in.Remember,
		"request_id", requestcontext.RequestID(ctx),
	)
	return session, nil
}

func (s *Service) loginFailed(ctx context.Context, username, reason string) {
	s.metrics.IncrementLogin(metrics.LoginFailed)
	s.logAudit(ctx, "login_failed",
		"username", username,
		"reason", reason,
		"client_ip", requestcontext.ClientIP(ctx),
		"request_id", requestcontext.RequestID(ctx),
	)
}

// Logout deletes the session. A missing or unknown session is not an error.
func (s *Service) Logout(ctx context.Context, sessionID id.SessionID) error {
	if sessionID.IsNil() {
		return nil
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete session")
	}
	s.logAudit(ctx, "logout",
		"session_id", sessionID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

// CurrentIdentity returns the live session for sessionID.
func (s *Service) CurrentIdentity(ctx context.Context, sessionID id.SessionID) (*models.Session, error) {
	if sessionID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "login required")
	}
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "session expired or invalid")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load session")
	}
	if session.IsExpired(requestcontext.Now(ctx)) {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "session expired or invalid")
	}
	return session, nil
}
