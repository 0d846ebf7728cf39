package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	authmodels "wanderlog/internal/auth/models"
	"wanderlog/internal/platform/middleware"
	postmodels "wanderlog/internal/posts/models"
	"wanderlog/internal/transport/http/flash"
	"wanderlog/internal/transport/http/forms"
	id "wanderlog/pkg/domain"
	dErrors "wanderlog/pkg/domain-errors"
	"wanderlog/pkg/requestcontext"
)

// Cookie names.
const (
	SessionCookieName = "wanderlog_session"
	FlashCookieName   = "wanderlog_flash"
	CSRFCookieName    = "wanderlog_csrf"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks AuthService,PostService

// AuthService is the account and session surface the routes need.
type AuthService interface {
	Register(ctx context.Context, in authmodels.RegisterInput) (*authmodels.User, error)
	Login(ctx context.Context, in authmodels.LoginInput) (*authmodels.Session, error)
	Logout(ctx context.Context, sessionID id.SessionID) error
	CurrentIdentity(ctx context.Context, sessionID id.SessionID) (*authmodels.Session, error)
	UserByUsername(ctx context.Context, username string) (*authmodels.User, error)
}

// PostService is the destination surface the routes need. Mutations take the
// caller's session.
type PostService interface {
	Create(ctx context.Context, sess *authmodels.Session, in postmodels.CreateInput) (*postmodels.Post, error)
	UpdateDescription(ctx context.Context, sess *authmodels.Session, postID id.PostID, description string) error
	Delete(ctx context.Context, sess *authmodels.Session, postID id.PostID) error
	ListForUser(ctx context.Context, userID id.UserID) ([]*postmodels.Post, error)
	ListAll(ctx context.Context) ([]*postmodels.Post, error)
	Search(ctx context.Context, q postmodels.SearchQuery) ([]*postmodels.Post, error)
}

// Handler renders pages and turns form posts into service calls.
type Handler struct {
	auth          AuthService
	posts         PostService
	flash         *flash.Store
	logger        *slog.Logger
	secureCookies bool
}

// NewHandler builds the page handler. secret signs the flash cookie.
func NewHandler(auth AuthService, posts PostService, secret []byte, secureCookies bool, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		auth:          auth,
		posts:         posts,
		flash:         flash.New(FlashCookieName, secret, secureCookies),
		logger:        logger,
		secureCookies: secureCookies,
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name, title string, errs forms.FieldErrors, content any) {
	ctx := r.Context()
	data := pageData{
		Title:     title,
		Session:   middleware.SessionFrom(ctx),
		CSRFToken: middleware.CSRFToken(ctx),
		Flashes:   h.flash.Pop(w, r),
		Errors:    errs,
		Content:   content,
	}
	if err := renderPage(w, status, name, data); err != nil {
		h.logger.ErrorContext(ctx, "failed to render page",
			"page", name,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.render(w, r, status, pageError, http.StatusText(status), nil, errorContent{Status: status, Message: message})
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	h.renderError(w, r, http.StatusNotFound, "The page you were looking for does not exist.")
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request) {
	h.renderError(w, r, http.StatusInternalServerError, "Something went wrong. Please try again.")
}

func (h *Handler) csrfFailure(w http.ResponseWriter, r *http.Request) {
	h.renderError(w, r, http.StatusBadRequest, "The form has expired. Please go back and try again.")
}

func (h *Handler) tooManyRequests(w http.ResponseWriter, r *http.Request) {
	h.renderError(w, r, http.StatusTooManyRequests, "Too many attempts. Please wait a moment and try again.")
}

// fail maps service errors that have no route-specific handling.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch dErrors.CodeOf(err) {
	case dErrors.CodeNotFound:
		h.notFound(w, r)
	case dErrors.CodeUnauthorized:
		h.addFlash(w, r, flash.Warning, "Please log in to access this page.")
		redirect(w, r, loginPath(r.URL.RequestURI()))
	case dErrors.CodeTimeout:
		h.renderError(w, r, http.StatusServiceUnavailable, "The request took too long. Please try again.")
	default:
		h.logger.ErrorContext(ctx, "request failed",
			"path", r.URL.Path,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		h.serverError(w, r)
	}
}

func (h *Handler) addFlash(w http.ResponseWriter, r *http.Request, category flash.Category, text string) {
	h.flash.Add(w, r, flash.Message{Category: category, Text: text})
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, r *http.Request, sess *authmodels.Session) {
	c := &http.Cookie{
		Name:     SessionCookieName,
		Value:    sess.ID.String(),
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	if sess.Remember {
		c.MaxAge = int(sess.ExpiresAt.Sub(requestcontext.Now(r.Context())).Seconds())
		c.Expires = sess.ExpiresAt
	}
	http.SetCookie(w, c)
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
