package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"wanderlog/internal/auth/models"
	id "wanderlog/pkg/domain"
	dErrors "wanderlog/pkg/domain-errors"
	"wanderlog/pkg/requestcontext"
)

// SessionResolver turns a session cookie value into a live session.
type SessionResolver interface {
	CurrentIdentity(ctx context.Context, sessionID id.SessionID) (*models.Session, error)
}

type contextKeySession struct{}

// SessionFrom returns the session loaded for this request, or nil.
func SessionFrom(ctx context.Context) *models.Session {
	sess, _ := ctx.Value(contextKeySession{}).(*models.Session)
	return sess
}

// WithSession stores sess in ctx along with its user and session ids.
func WithSession(ctx context.Context, sess *models.Session) context.Context {
	if sess == nil {
		return ctx
	}
	ctx = context.WithValue(ctx, contextKeySession{}, sess)
	ctx = requestcontext.WithUserID(ctx, sess.UserID)
	return requestcontext.WithSessionID(ctx, sess.ID)
}

// LoadSession resolves the session cookie named cookieName. A stale or
// malformed cookie is cleared and the request continues anonymously.
func LoadSession(resolver SessionResolver, cookieName string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(cookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			sessionID, err := id.ParseSessionID(cookie.Value)
			if err != nil {
				clearCookie(w, cookieName)
				next.ServeHTTP(w, r)
				return
			}
			sess, err := resolver.CurrentIdentity(ctx, sessionID)
			if err != nil {
				if !dErrors.HasCode(err, dErrors.CodeUnauthorized) {
					logger.ErrorContext(ctx, "session lookup failed",
						"error", err,
						"request_id", requestcontext.RequestID(ctx),
					)
				}
				clearCookie(w, cookieName)
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(ctx, sess)))
		})
	}
}

// RequireSession redirects anonymous callers to loginPath with the original
// path in "next". The wrapped handler never runs for them.
func RequireSession(loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if SessionFrom(r.Context()) == nil {
				target := loginPath + "?next=" + url.QueryEscape(r.URL.RequestURI())
				http.Redirect(w, r, target, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
