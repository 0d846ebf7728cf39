package middleware

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"log/slog"
	"net/http"

	"wanderlog/pkg/requestcontext"
)

// CSRF form field and header names.
const (
	CSRFFieldName  = "csrf_token"
	CSRFHeaderName = "X-CSRF-Token"
)

type contextKeyCSRF struct{}

// CSRFToken returns the token forms on this request must echo.
func CSRFToken(ctx context.Context) string {
	tok, _ := ctx.Value(contextKeyCSRF{}).(string)
	return tok
}

// CSRFConfig configures the double-submit cookie check.
type CSRFConfig struct {
	CookieName string
	Secure     bool
	Logger     *slog.Logger
	// Failure renders the rejection; a plain 403 when nil.
	Failure http.Handler
}

// CSRF issues a random token cookie and, on unsafe methods, requires the same
// token in the csrf_token form field or the X-CSRF-Token header.
func CSRF(cfg CSRFConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ""
			if c, err := r.Cookie(cfg.CookieName); err == nil && len(c.Value) >= 32 {
				token = c.Value
			} else {
				token = newCSRFToken()
				http.SetCookie(w, &http.Cookie{
					Name:     cfg.CookieName,
					Value:    token,
					Path:     "/",
					HttpOnly: true,
					Secure:   cfg.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			ctx := context.WithValue(r.Context(), contextKeyCSRF{}, token)
			r = r.WithContext(ctx)

			if !isSafeMethod(r.Method) {
				submitted := r.Header.Get(CSRFHeaderName)
				if submitted == "" {
					submitted = r.PostFormValue(CSRFFieldName)
				}
				if subtle.ConstantTimeCompare([]byte(submitted), []byte(token)) != 1 {
					if cfg.Logger != nil {
						cfg.Logger.WarnContext(ctx, "csrf token mismatch",
							"path", r.URL.Path,
							"request_id", requestcontext.RequestID(ctx),
						)
					}
					if cfg.Failure != nil {
						cfg.Failure.ServeHTTP(w, r)
						return
					}
					http.Error(w, "invalid CSRF token", http.StatusForbidden)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}

func newCSRFToken() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
