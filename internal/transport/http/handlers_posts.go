package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	authmodels "wanderlog/internal/auth/models"
	"wanderlog/internal/platform/middleware"
	"wanderlog/internal/transport/http/flash"
	"wanderlog/internal/transport/http/forms"
	id "wanderlog/pkg/domain"
	dErrors "wanderlog/pkg/domain-errors"
)

// Flash texts shown by the destination routes.
const (
	FlashPostCreated      = "Destination added successfully!"
	FlashPostUpdated      = "Your post has been updated!"
	FlashPostDeleted      = "Your post has been deleted!"
	FlashEditForbidden    = "You can only edit your own posts!"
	FlashDeleteForbidden  = "You can only delete your own posts!"
	FlashBlankDescription = "Description cannot be empty. Your post was not changed."
)

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.ListAll(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, pageLanding, "Home", nil, feedContent{Posts: posts})
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	search := forms.ParseSearch(r.URL.Query())
	query := search.SearchQuery()
	posts, err := h.posts.Search(r.Context(), query)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, pageLanding, "Search", nil, feedContent{
		Posts:     posts,
		Query:     search.Query,
		Country:   search.Country,
		Searching: !query.IsEmpty(),
	})
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.UserByUsername(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.showProfile(w, r, http.StatusOK, user, forms.Result[forms.Destination]{})
}

func (h *Handler) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := middleware.SessionFrom(ctx)

	user, err := h.auth.UserByUsername(ctx, chi.URLParam(r, "username"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}

	form := forms.ParseDestination(r.PostForm)
	if !form.Valid() {
		for _, msg := range form.Errors.Messages() {
			h.addFlash(w, r, flash.Error, msg)
		}
		h.showProfile(w, r, http.StatusUnprocessableEntity, user, form)
		return
	}

	if _, err := h.posts.Create(ctx, sess, form.Data.Input()); err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvalidInput) {
			form.Errors = forms.FieldErrors{}
			form.Errors.Add("form", dErrors.MessageOf(err))
			h.addFlash(w, r, flash.Error, dErrors.MessageOf(err))
			h.showProfile(w, r, http.StatusUnprocessableEntity, user, form)
			return
		}
		h.fail(w, r, err)
		return
	}
	h.addFlash(w, r, flash.Success, FlashPostCreated)
	redirect(w, r, profilePath(user.Username))
}

// showProfile renders user's posts with form echoed back.
func (h *Handler) showProfile(w http.ResponseWriter, r *http.Request, status int, user *authmodels.User, form forms.Result[forms.Destination]) {
	ctx := r.Context()
	sess := middleware.SessionFrom(ctx)

	posts, err := h.posts.ListForUser(ctx, user.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, status, pageUser, user.Username, form.Errors, profileContent{
		User:    user,
		Posts:   posts,
		Form:    form.Data,
		IsOwner: sess.Owns(user.ID),
	})
}

func (h *Handler) handleEditPost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := middleware.SessionFrom(ctx)

	postID, ok := postIDParam(r)
	if !ok {
		h.notFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}

	err := h.posts.UpdateDescription(ctx, sess, postID, r.PostForm.Get("description"))
	switch {
	case err == nil:
		h.addFlash(w, r, flash.Success, FlashPostUpdated)
		redirect(w, r, profilePath(sess.Username))
	case dErrors.HasCode(err, dErrors.CodeForbidden):
		h.addFlash(w, r, flash.Error, FlashEditForbidden)
		redirect(w, r, "/")
	case dErrors.HasCode(err, dErrors.CodeInvalidInput):
		h.addFlash(w, r, flash.Warning, FlashBlankDescription)
		redirect(w, r, profilePath(sess.Username))
	default:
		h.fail(w, r, err)
	}
}

func (h *Handler) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := middleware.SessionFrom(ctx)

	postID, ok := postIDParam(r)
	if !ok {
		h.notFound(w, r)
		return
	}

	err := h.posts.Delete(ctx, sess, postID)
	switch {
	case err == nil:
		h.addFlash(w, r, flash.Success, FlashPostDeleted)
		redirect(w, r, profilePath(sess.Username))
	case dErrors.HasCode(err, dErrors.CodeForbidden):
		h.addFlash(w, r, flash.Error, FlashDeleteForbidden)
		redirect(w, r, "/")
	default:
		h.fail(w, r, err)
	}
}

func postIDParam(r *http.Request) (id.PostID, bool) {
	postID, err := id.ParsePostID(chi.URLParam(r, "id"))
	return postID, err == nil
}
