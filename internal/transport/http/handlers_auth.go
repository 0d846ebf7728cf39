package httptransport

import (
	"net/http"

	authmodels "wanderlog/internal/auth/models"
	"wanderlog/internal/platform/middleware"
	"wanderlog/internal/transport/http/flash"
	"wanderlog/internal/transport/http/forms"
	dErrors "wanderlog/pkg/domain-errors"
	"wanderlog/pkg/requestcontext"
)

// Flash texts shown by the account routes.
const (
	FlashInvalidLogin = "Invalid username or password"
	FlashRegistered   = "Congratulations, you are now a registered user!"
	FlashConflict     = "Username or email already exists. Please choose a different one."
)

func (h *Handler) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	if middleware.SessionFrom(r.Context()) != nil {
		redirect(w, r, "/")
		return
	}
	h.render(w, r, http.StatusOK, pageLogin, "Sign In", nil, loginContent{Next: keptNext(nextParam(r))})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if middleware.SessionFrom(ctx) != nil {
		redirect(w, r, "/")
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	next := keptNext(nextParam(r))
	form := forms.ParseLogin(r.PostForm)
	if !form.Valid() {
		form.Data.Password = ""
		h.render(w, r, http.StatusUnprocessableEntity, pageLogin, "Sign In", form.Errors, loginContent{Form: form.Data, Next: next})
		return
	}

	sess, err := h.auth.Login(ctx, authmodels.LoginInput{
		Username:  form.Data.Username,
		Password:  form.Data.Password,
		Remember:  form.Data.Remember,
		UserAgent: requestcontext.UserAgent(ctx),
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			h.addFlash(w, r, flash.Error, FlashInvalidLogin)
			redirect(w, r, loginPath(next))
			return
		}
		h.fail(w, r, err)
		return
	}

	h.setSessionCookie(w, r, sess)
	redirect(w, r, safeNext(next))
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if sess := middleware.SessionFrom(ctx); sess != nil {
		if err := h.auth.Logout(ctx, sess.ID); err != nil {
			h.logger.ErrorContext(ctx, "failed to delete session",
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
	}
	h.clearSessionCookie(w)
	redirect(w, r, "/login")
}

func (h *Handler) handleRegisterForm(w http.ResponseWriter, r *http.Request) {
	if middleware.SessionFrom(r.Context()) != nil {
		redirect(w, r, "/")
		return
	}
	h.render(w, r, http.StatusOK, pageRegister, "Register", nil, registerContent{})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if middleware.SessionFrom(ctx) != nil {
		redirect(w, r, "/")
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	form := forms.ParseRegister(r.PostForm)
	if !form.Valid() {
		h.renderRegister(w, r, form)
		return
	}

	_, err := h.auth.Register(ctx, authmodels.RegisterInput{
		Username: form.Data.Username,
		Email:    form.Data.Email,
		Password: form.Data.Password,
	})
	switch {
	case err == nil:
		h.addFlash(w, r, flash.Success, FlashRegistered)
		redirect(w, r, "/login")
	case dErrors.HasCode(err, dErrors.CodeConflict):
		h.addFlash(w, r, flash.Error, FlashConflict)
		redirect(w, r, "/register")
	case dErrors.HasCode(err, dErrors.CodeInvalidInput):
		form.Errors = forms.FieldErrors{}
		form.Errors.Add("form", dErrors.MessageOf(err))
		h.renderRegister(w, r, form)
	default:
		h.fail(w, r, err)
	}
}

func (h *Handler) renderRegister(w http.ResponseWriter, r *http.Request, form forms.Result[forms.Register]) {
	form.Data.Password, form.Data.Confirm = "", ""
	h.render(w, r, http.StatusUnprocessableEntity, pageRegister, "Register", form.Errors, registerContent{Form: form.Data})
}

// nextParam reads "next" from the query string, falling back to the form.
func nextParam(r *http.Request) string {
	if next := r.URL.Query().Get("next"); next != "" {
		return next
	}
	return r.PostFormValue("next")
}
