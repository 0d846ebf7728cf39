package httptransport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/mock/gomock"

	authmodels "wanderlog/internal/auth/models"
	"wanderlog/internal/platform/middleware"
	postmodels "wanderlog/internal/posts/models"
	"wanderlog/internal/transport/http/flash"
	"wanderlog/internal/transport/http/mocks"
	id "wanderlog/pkg/domain"
	dErrors "wanderlog/pkg/domain-errors"
	"wanderlog/pkg/testutil"
)

const testCSRFToken = "test-csrf-token-abcdefghijklmnopqrstuvwxyz012345"

type HandlerSuite struct {
	suite.Suite
	alice *authmodels.Session
	bob   *authmodels.Session
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	now := time.Now()
	s.alice = &authmodels.Session{
		ID:        id.NewSessionID(),
		UserID:    1,
		Username:  "alice",
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
	s.bob = &authmodels.Session{
		ID:        id.NewSessionID(),
		UserID:    2,
		Username:  "bob",
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
}

type harness struct {
	auth    *mocks.MockAuthService
	posts   *mocks.MockPostService
	handler *Handler
	router  http.Handler
}

func (s *HandlerSuite) newHandler(t *testing.T) *harness {
	ctrl := gomock.NewController(t)
	auth := mocks.NewMockAuthService(ctrl)
	posts := mocks.NewMockPostService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(auth, posts, []byte("test-secret"), false, logger)
	return &harness{
		auth:    auth,
		posts:   posts,
		handler: h,
		router:  NewRouter(h, RouterConfig{Logger: logger}),
	}
}

// as makes sess the caller; nil means anonymous.
func (hs *harness) as(sess *authmodels.Session) {
	if sess == nil {
		return
	}
	hs.auth.EXPECT().CurrentIdentity(gomock.Any(), sess.ID).Return(sess, nil).AnyTimes()
}

func (hs *harness) get(t *testing.T, path string, sess *authmodels.Session) *httptest.ResponseRecorder {
	t.Helper()
	req := testutil.NewRequest(t, http.MethodGet, path)
	addSessionCookie(req, sess)
	return testutil.DoRequest(hs.router, req)
}

func (hs *harness) post(t *testing.T, path string, form url.Values, sess *authmodels.Session) *httptest.ResponseRecorder {
	t.Helper()
	if form == nil {
		form = url.Values{}
	}
	form.Set(middleware.CSRFFieldName, testCSRFToken)
	req := testutil.NewFormRequest(t, http.MethodPost, path, form)
	req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: testCSRFToken})
	addSessionCookie(req, sess)
	return testutil.DoRequest(hs.router, req)
}

// flashes decodes the flash cookie set on rr.
func (hs *harness) flashes(t *testing.T, rr *httptest.ResponseRecorder) []flash.Message {
	t.Helper()
	c := testutil.ResponseCookie(rr, FlashCookieName)
	if c == nil || c.MaxAge < 0 {
		return nil
	}
	req := testutil.NewRequest(t, http.MethodGet, "/")
	req.AddCookie(c)
	return hs.handler.flash.Pop(httptest.NewRecorder(), req)
}

func addSessionCookie(req *http.Request, sess *authmodels.Session) {
	if sess != nil {
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: sess.ID.String()})
	}
}

func (s *HandlerSuite) TestLogin() {
	s.T().Run("renders the form with a csrf token", func(t *testing.T) {
		hs := s.newHandler(t)
		rr := hs.get(t, "/login?next=/user/alice", nil)

		testutil.AssertStatus(t, rr, http.StatusOK)
		assert.Contains(t, rr.Body.String(), `name="csrf_token"`)
		assert.Contains(t, rr.Body.String(), `value="/user/alice"`)
		assert.NotNil(t, testutil.ResponseCookie(rr, CSRFCookieName))
	})

	s.T().Run("authenticated caller is sent to the feed", func(t *testing.T) {
		hs := s.newHandler(t)
		hs.as(s.alice)
		hs.auth.EXPECT().Login(gomock.Any(), gomock.Any()).Times(0)

		testutil.AssertRedirect(t, hs.get(t, "/login", s.alice), "/")
		testutil.AssertRedirect(t, hs.post(t, "/login", url.Values{"username": {"alice"}, "password": {"pw"}}, s.alice), "/")
	})

	s.T().Run("valid credentials open a session and honour next", func(t *testing.T) {
		hs := s.newHandler(t)
		hs.auth.EXPECT().Login(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, in authmodels.LoginInput) (*authmodels.Session, error) {
				assert.Equal(t, "alice", in.Username)
				assert.Equal(t, "pw", in.Password)
				assert.False(t, in.Remember)
				return s.alice, nil
			})

		rr := hs.post(t, "/login?next=%2Fuser%2Falice", url.Values{"username": {" alice "}, "password": {"pw"}}, nil)

		testutil.AssertRedirect(t, rr, "/user/alice")
		cookie := testutil.ResponseCookie(rr, SessionCookieName)
		require.NotNil(t, cookie)
		assert.Equal(t, s.alice.ID.String(), cookie.Value)
		assert.True(t, cookie.HttpOnly)
		assert.Zero(t, cookie.MaxAge, "browser-session cookie without remember me")
	})

	s.T().Run("remember me makes the cookie persistent", func(t *testing.T) {
		hs := s.newHandler(t)
		remembered := *s.alice
		remembered.Remember = true
		remembered.ExpiresAt = time.Now().Add(24 * time.Hour)
		hs.auth.EXPECT().Login(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, in authmodels.LoginInput) (*authmodels.Session, error) {
				assert.True(t, in.Remember)
				return &remembered, nil
			})

		rr := hs.post(t, "/login", url.Values{"username": {"alice"}, "password": {"pw"}, "remember_me": {"y"}}, nil)

		testutil.AssertRedirect(t, rr, "/")
		cookie := testutil.ResponseCookie(rr, SessionCookieName)
		require.NotNil(t, cookie)
		assert.Greater(t, cookie.MaxAge, 0)
	})

	s.T().Run("offsite next falls back to the feed", func(t *testing.T) {
		for _, next := range []string{"//evil.example", "https://evil.example/", `/\evil.example`} {
			hs := s.newHandler(t)
			hs.auth.EXPECT().Login(gomock.Any(), gomock.Any()).Return(s.alice, nil)

			form := url.Values{"username": {"alice"}, "password": {"pw"}, "next": {next}}
			testutil.AssertRedirect(t, hs.post(t, "/login", form, nil), "/")
		}
	})

	s.T().Run("bad credentials flash and return to the form", func(t *testing.T) {
		hs := s.newHandler(t)
		hs.auth.EXPECT().Login(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeUnauthorized, "invalid username or password"))

		rr := hs.post(t, "/login", url.Values{"username": {"alice"}, "password": {"wrong"}}, nil)

		testutil.AssertRedirect(t, rr, "/login")
		assert.Nil(t, testutil.ResponseCookie(rr, SessionCookieName))
		assert.Equal(t, []flash.Message{{Category: flash.Error, Text: FlashInvalidLogin}}, hs.flashes(t, rr))
	})

	s.T().Run("missing fields re-render without calling the service", func(t *testing.T) {
		hs := s.newHandler(t)
		hs.auth.EXPECT().Login(gomock.Any(), gomock.Any()).Times(0)

		rr := hs.post(t, "/login", url.Values{"username": {"alice"}}, nil)

		testutil.AssertStatus(t, rr, http.StatusUnprocessableEntity)
		assert.Contains(t, rr.Body.String(), "This field is required.")
	})

	s.T().Run("missing csrf token is rejected", func(t *testing.T) {
		hs := s.newHandler(t)
		hs.auth.EXPECT().Login(gomock.Any(), gomock.Any()).Times(0)

		req := testutil.NewFormRequest(t, http.MethodPost, "/login", url.Values{"username": {"alice"}, "password": {"pw"}})
		rr := testutil.DoRequest(hs.router, req)

		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})

	s.T().Run("store failure renders the error page", func(t *testing.T) {
		hs := s.newHandler(t)
		hs.auth.EXPECT().Login(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.Wrap(errors.New("connection refused"), dErrors.CodeInternal, "failed to load user"))

		rr := hs.post(t, "/login", url.Values{"username": {"alice"}, "password": {"pw"}}, nil)

		testutil.AssertStatus(t, rr, http.StatusInternalServerError)
		assert.NotContains(t, rr.Body.String(), "connection refused")
	})
}

func (s *HandlerSuite) TestLogout() {
	s.T().Run("deletes the session and clears the cookie", func(t *testing.T) {
		hs := s.newHandler(t)
		hs.as(s.alice)
		hs.auth.EXPECT().Logout(gomock.Any(), s.alice.ID).Return(nil)

		rr := hs.get(t, "/logout", s.alice)

		testutil.AssertRedirect(t, rr, "/login")
		cookie := testutil.ResponseCookie(rr, SessionCookieName)
		require.NotNil(t, cookie)
		assert.Less(t, cookie.MaxAge, 0)
	})

	s.T().Run("anonymous logout still redirects", func(t *testing.T) {
		hs := s.newHandler(t)
		hs.auth.EXPECT().Logout(gomock.Any(), gomock.Any()).Times(0)

		testutil.AssertRedirect(t, hs.get(t, "/logout", nil), "/login")
	})
}

func (s *HandlerSuite) TestRegister() {
	valid := func() url.Values {
		return url.Values{
			"username":  {"alice"},
			"email":     {"alice@example.com"},
			"password":  {"pw"},
			"password2": {"pw"},
		}
	}

	s.T().Run("success flashes and sends to login", func(t *testing.T) {
		hs := s.newHandler(t)
		hs.auth.EXPECT().Register(gomock.Any(), authmodels.RegisterInput{
			Username: "alice",
			Email:    "alice@example.com",
			Password: "pw",
		}).Return(&authmodels.User{ID: 1, Username: "alice"}, nil)

		rr := hs.post(t, "/register", valid(), nil)

		testutil.AssertRedirect(t, rr, "/login")
		assert.Equal(t, []flash.Message{{Category: flash.Success, Text: FlashRegistered}}, hs.flashes(t, rr))
	})

	s.T().Run("conflict flashes without naming the field", func(t *testing.T) {
		hs := s.newHandler(t)
		hs.auth.EXPECT().Register(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeConflict, "username or email already exists"))

		rr := hs.post(t, "/register", valid(), nil)

		testutil.AssertRedirect(t, rr, "/register")
		assert.Equal(t, []flash.Message{{Category: flash.Error, Text: FlashConflict}}, hs.flashes(t, rr))
	})

	s.T().Run("mismatched confirmation re-renders", func(t *testing.T) {
		hs := s.newHandler(t)
		hs.auth.EXPECT().Register(gomock.Any(), gomock.Any()).Times(0)
		form := valid()
		form.Set("password2", "other")

		rr := hs.post(t, "/register", form, nil)

		testutil.AssertStatus(t, rr, http.StatusUnprocessableEntity)
		testutil.AssertBodyContains(t, rr, "Passwords must match.", `value="alice@example.com"`)
	})

	s.T().Run("service validation error is shown on the form", func(t *testing.T) {
		hs := s.newHandler(t)
		hs.auth.EXPECT().Register(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeInvalidInput, "email is not a valid address"))

		rr := hs.post(t, "/register", valid(), nil)

		testutil.AssertStatus(t, rr, http.StatusUnprocessableEntity)
		assert.Contains(t, rr.Body.String(), "email is not a valid address")
	})

	s.T().Run("authenticated caller is sent to the feed", func(t *testing.T) {
		hs := s.newHandler(t)
		hs.as(s.alice)
		hs.auth.EXPECT().Register(gomock.Any(), gomock.Any()).Times(0)

		testutil.AssertRedirect(t, hs.get(t, "/register", s.alice), "/")
		testutil.AssertRedirect(t, hs.post(t, "/register", valid(), s.alice), "/")
	})
}

func (s *HandlerSuite) TestProfile() {
	aliceUser := &authmodels.User{ID: 1, Username: "alice"}
	kyoto := &postmodels.Post{ID: 7, UserID: 1, City: "Kyoto", Country: "Japan", Description: "Loved the temples", Author: "alice", CreatedAt: time.Now()}

	s.T().Run("anonymous caller is sent to login with next", func(t *testing.T) {
		hs := s.newHandler(t)
		hs.auth.EXPECT().UserByUsername(gomock.Any(), gomock.Any()).Times(0)

		testutil.AssertRedirect(t, hs.get(t, "/user/alice", nil), "/login?next=%2Fuser%2Falice")
	})

	s.T().Run("renders the user's posts with owner controls", func(t *testing.T) {
		hs := s.newHandler(t)
		hs.as(s.alice)
		hs.auth.EXPECT().UserByUsername(gomock.Any(), "alice").Return(aliceUser, nil)
		hs.posts.EXPECT().ListForUser(gomock.Any(), id.UserID(1)).Return([]*postmodels.Post{kyoto}, nil)

		rr := hs.get(t, "/user/alice", s.alice)

		testutil.AssertStatus(t, rr, http.StatusOK)
		testutil.AssertBodyContains(t, rr, "Kyoto, Japan", "Loved the temples", `action="/post/7/edit"`, `action="/post/7/delete"`)
	})

	s.T().Run("visitors see posts without owner controls", func(t *testing.T) {
		hs := s.newHandler(t)
		hs.as(s.bob)
		hs.auth.EXPECT().UserByUsername(gomock.Any(), "alice").Return(aliceUser, nil)
		hs.posts.EXPECT().ListForUser(gomock.Any(), id.UserID(1)).Return([]*postmodels.Post{kyoto}, nil)

		rr := hs.get(t, "/user/alice", s.bob)

		testutil.AssertStatus(t, rr, http.StatusOK)
		assert.Contains(t, rr.Body.String(), "Kyoto, Japan")
		assert.NotContains(t, rr.Body.String(), `action="/post/7/delete"`)
	})

	s.T().Run("unknown user is a 404", func(t *testing.T) {
		hs := s.newHandler(t)
		hs.as(s.alice)
		hs.auth.EXPECT().UserByUsername(gomock.Any(), "nobody").
			Return(nil, dErrors.New(dErrors.CodeNotFound, "user not found"))

		testutil.AssertStatus(t, hs.get(t, "/user/nobody", s.alice), http.StatusNotFound)
	})

	s.T().Run("valid destination is created for the acting user", func(t *testing.T) {
		hs := s.newHandler(t)
		hs.as(s.alice)
		hs.auth.EXPECT().UserByUsername(gomock.Any(), "alice").Return(aliceUser, nil)
		hs.posts.EXPECT().Create(gomock.Any(), s.alice, postmodels.CreateInput{
			City:        "Kyoto",
			Country:     "Japan",
			Description: "Loved the temples",
		}).Return(kyoto, nil)

		rr := hs.post(t, "/user/alice", url.Values{
			"city":        {"Kyoto"},
			"country":     {"Japan"},
			"description": {"Loved the temples"},
		}, s.alice)

		testutil.AssertRedirect(t, rr, "/user/alice")
		assert.Equal(t, []flash.Message{{Category: flash.Success, Text: FlashPostCreated}}, hs.flashes(t, rr))
	})

	s.T().Run("invalid destination re-renders with errors", func(t *testing.T) {
		hs := s.newHandler(t)
		hs.as(s.alice)
		hs.auth.EXPECT().UserByUsername(gomock.Any(), "alice").Return(aliceUser, nil)
		hs.posts.EXPECT().ListForUser(gomock.Any(), id.UserID(1)).Return(nil, nil)
		hs.posts.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		rr := hs.post(t, "/user/alice", url.Values{"city": {"Kyoto"}, "description": {"kept"}}, s.alice)

		testutil.AssertStatus(t, rr, http.StatusUnprocessableEntity)
		testutil.AssertBodyContains(t, rr, "This field is required.", `value="Kyoto"`, ">kept</textarea>", "country: This field is required.")
	})
}

func (s *HandlerSuite) TestEditPost() {
	s.T().Run("owner update redirects to the profile", func(t *testing.T) {
		hs := s.newHandler(t)
		hs.as(s.alice)
		hs.posts.EXPECT().UpdateDescription(gomock.Any(), s.alice, id.PostID(7), "Even better").Return(nil)

		rr := hs.post(t, "/post/7/edit", url.Values{"description": {"Even better"}}, s.alice)

		testutil.AssertRedirect(t, rr, "/user/alice")
		assert.Equal(t, []flash.Message{{Category: flash.Success, Text: FlashPostUpdated}}, hs.flashes(t, rr))
	})

	s.T().Run("non-owner is denied and sent to the feed", func(t *testing.T) {
		hs := s.newHandler(t)
		hs.as(s.bob)
		hs.posts.EXPECT().UpdateDescription(gomock.Any(), s.bob, id.PostID(7), "hijack").
			Return(dErrors.New(dErrors.CodeForbidden, "post belongs to another user"))

		rr := hs.post(t, "/post/7/edit", url.Values{"description": {"hijack"}}, s.bob)

		testutil.AssertRedirect(t, rr, "/")
		assert.Equal(t, []flash.Message{{Category: flash.Error, Text: FlashEditForbidden}}, hs.flashes(t, rr))
	})

	s.T().Run("blank description warns without changing the post", func(t *testing.T) {
		hs := s.newHandler(t)
		hs.as(s.alice)
		hs.posts.EXPECT().UpdateDescription(gomock.Any(), s.alice, id.PostID(7), "  ").
			Return(dErrors.New(dErrors.CodeInvalidInput, "description is required"))

		rr := hs.post(t, "/post/7/edit", url.Values{"description": {"  "}}, s.alice)

		testutil.AssertRedirect(t, rr, "/user/alice")
		assert.Equal(t, []flash.Message{{Category: flash.Warning, Text: FlashBlankDescription}}, hs.flashes(t, rr))
	})

	s.T().Run("unknown or malformed id is a 404", func(t *testing.T) {
		hs := s.newHandler(t)
		hs.as(s.alice)
		hs.posts.EXPECT().UpdateDescription(gomock.Any(), s.alice, id.PostID(99), "x").
			Return(dErrors.New(dErrors.CodeNotFound, "post not found"))

		testutil.AssertStatus(t, hs.post(t, "/post/99/edit", url.Values{"description": {"x"}}, s.alice), http.StatusNotFound)
		testutil.AssertStatus(t, hs.post(t, "/post/abc/edit", url.Values{"description": {"x"}}, s.alice), http.StatusNotFound)
	})

	s.T().Run("anonymous edit never reaches the service", func(t *testing.T) {
		hs := s.newHandler(t)
		hs.posts.EXPECT().UpdateDescription(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		rr := hs.post(t, "/post/7/edit", url.Values{"description": {"x"}}, nil)

		testutil.AssertRedirect(t, rr, "/login?next=%2Fpost%2F7%2Fedit")
	})
}

func (s *HandlerSuite) TestDeletePost() {
	s.T().Run("owner delete redirects to the profile", func(t *testing.T) {
		hs := s.newHandler(t)
		hs.as(s.alice)
		hs.posts.EXPECT().Delete(gomock.Any(), s.alice, id.PostID(7)).Return(nil)

		rr := hs.post(t, "/post/7/delete", nil, s.alice)

		testutil.AssertRedirect(t, rr, "/user/alice")
		assert.Equal(t, []flash.Message{{Category: flash.Success, Text: FlashPostDeleted}}, hs.flashes(t, rr))
	})

	s.T().Run("non-owner is denied", func(t *testing.T) {
		hs := s.newHandler(t)
		hs.as(s.bob)
		hs.posts.EXPECT().Delete(gomock.Any(), s.bob, id.PostID(7)).
			Return(dErrors.New(dErrors.CodeForbidden, "post belongs to another user"))

		rr := hs.post(t, "/post/7/delete", nil, s.bob)

		testutil.AssertRedirect(t, rr, "/")
		assert.Equal(t, []flash.Message{{Category: flash.Error, Text: FlashDeleteForbidden}}, hs.flashes(t, rr))
	})

	s.T().Run("GET is not allowed", func(t *testing.T) {
		hs := s.newHandler(t)
		hs.as(s.alice)
		hs.posts.EXPECT().Delete(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		testutil.AssertStatus(t, hs.get(t, "/post/7/delete", s.alice), http.StatusMethodNotAllowed)
	})
}

func (s *HandlerSuite) TestFeed() {
	posts := []*postmodels.Post{
		{ID: 2, UserID: 1, City: "Kyoto", Country: "Japan", Description: "Loved the temples", Author: "alice", CreatedAt: time.Now()},
		{ID: 1, UserID: 2, City: "Paris", Country: "France", Description: "Croissants", Author: "bob", CreatedAt: time.Now().Add(-time.Hour)},
	}

	s.T().Run("landing lists every post", func(t *testing.T) {
		hs := s.newHandler(t)
		hs.posts.EXPECT().ListAll(gomock.Any()).Return(posts, nil)

		rr := hs.get(t, "/", nil)

		testutil.AssertStatus(t, rr, http.StatusOK)
		testutil.AssertBodyContains(t, rr, "Kyoto, Japan", "Paris, France", `href="/user/alice"`)
	})

	s.T().Run("search passes the filter and echoes it", func(t *testing.T) {
		hs := s.newHandler(t)
		hs.posts.EXPECT().Search(gomock.Any(), postmodels.SearchQuery{Text: " temple", Country: "japan"}).Return(posts[:1], nil)

		rr := hs.get(t, "/search?query=+temple&country=japan", nil)

		testutil.AssertStatus(t, rr, http.StatusOK)
		testutil.AssertBodyContains(t, rr, "Kyoto, Japan", `value=" temple"`, `value="japan"`, "Search results")
		assert.NotContains(t, rr.Body.String(), "Paris, France")
	})

	s.T().Run("empty search lists everything as the feed", func(t *testing.T) {
		hs := s.newHandler(t)
		hs.posts.EXPECT().Search(gomock.Any(), postmodels.SearchQuery{}).Return(posts, nil)

		rr := hs.get(t, "/search", nil)

		testutil.AssertStatus(t, rr, http.StatusOK)
		testutil.AssertBodyContains(t, rr, "Latest destinations", "Kyoto, Japan", "Paris, France")
	})

	s.T().Run("search output is escaped", func(t *testing.T) {
		hs := s.newHandler(t)
		hs.posts.EXPECT().Search(gomock.Any(), gomock.Any()).Return(nil, nil)

		rr := hs.get(t, "/search?query=%3Cscript%3E", nil)

		testutil.AssertStatus(t, rr, http.StatusOK)
		assert.NotContains(t, rr.Body.String(), "<script>")
		assert.Contains(t, rr.Body.String(), "No destinations match your search.")
	})

	s.T().Run("unknown path renders the 404 page", func(t *testing.T) {
		hs := s.newHandler(t)

		rr := hs.get(t, "/nowhere", nil)

		testutil.AssertStatus(t, rr, http.StatusNotFound)
		assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")
	})
}

func (s *HandlerSuite) TestHealth() {
	s.T().Run("ok without checks", func(t *testing.T) {
		hs := s.newHandler(t)
		rr := hs.get(t, "/healthz", nil)

		testutil.AssertStatus(t, rr, http.StatusOK)
		assert.Equal(t, "ok", testutil.UnmarshalResponse[healthResponse](t, rr).Status)
	})

	s.T().Run("failing dependency degrades", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		h := NewHandler(mocks.NewMockAuthService(ctrl), mocks.NewMockPostService(ctrl), []byte("k"), false, logger)
		router := NewRouter(h, RouterConfig{Logger: logger, HealthChecks: []HealthCheck{
			{Name: "database", Ping: func(context.Context) error { return nil }},
			{Name: "redis", Ping: func(context.Context) error { return errors.New("dial tcp: refused") }},
		}})

		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/healthz"))

		testutil.AssertStatus(t, rr, http.StatusServiceUnavailable)
		resp := testutil.UnmarshalResponse[healthResponse](t, rr)
		assert.Equal(t, "degraded", resp.Status)
		assert.Equal(t, map[string]string{"database": "ok", "redis": "unavailable"}, resp.Checks)
	})
}

func (s *HandlerSuite) TestLoginRateLimit() {
	ctrl := gomock.NewController(s.T())
	auth := mocks.NewMockAuthService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(auth, mocks.NewMockPostService(ctrl), []byte("k"), false, logger)
	router := NewRouter(h, RouterConfig{Logger: logger, AuthRateLimit: 2, AuthRateWindow: time.Minute})
	hs := &harness{auth: auth, handler: h, router: router}

	auth.EXPECT().Login(gomock.Any(), gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeUnauthorized, "invalid username or password")).
		Times(2)

	form := func() url.Values { return url.Values{"username": {"alice"}, "password": {"guess"}} }
	testutil.AssertRedirect(s.T(), hs.post(s.T(), "/login", form(), nil), "/login")
	testutil.AssertRedirect(s.T(), hs.post(s.T(), "/login", form(), nil), "/login")

	rr := hs.post(s.T(), "/login", form(), nil)
	testutil.AssertStatus(s.T(), rr, http.StatusTooManyRequests)
	s.NotEmpty(rr.Header().Get("Retry-After"))
	s.Contains(rr.Body.String(), "Too many attempts.")

	// the login form itself is never throttled
	testutil.AssertStatus(s.T(), hs.get(s.T(), "/login", nil), http.StatusOK)
}

func (s *HandlerSuite) TestServerSpansUseRoutePattern() {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	ctrl := gomock.NewController(s.T())
	auth := mocks.NewMockAuthService(ctrl)
	posts := mocks.NewMockPostService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(auth, posts, []byte("k"), false, logger)
	router := NewRouter(h, RouterConfig{Logger: logger, TracerProvider: tp})

	for _, sess := range []*authmodels.Session{s.alice, s.bob} {
		auth.EXPECT().CurrentIdentity(gomock.Any(), sess.ID).Return(sess, nil).AnyTimes()
		auth.EXPECT().UserByUsername(gomock.Any(), sess.Username).
			Return(&authmodels.User{ID: sess.UserID, Username: sess.Username}, nil)
		posts.EXPECT().ListForUser(gomock.Any(), sess.UserID).Return(nil, nil)

		req := testutil.NewRequest(s.T(), http.MethodGet, "/user/"+sess.Username)
		addSessionCookie(req, sess)
		testutil.AssertStatus(s.T(), testutil.DoRequest(router, req), http.StatusOK)
	}

	spans := recorder.Ended()
	s.Require().Len(spans, 2)
	for _, span := range spans {
		s.Equal("GET /user/{username}", span.Name())
	}
}

func (s *HandlerSuite) TestTrustProxyHeaders() {
	for _, trusted := range []bool{false, true} {
		ctrl := gomock.NewController(s.T())
		auth := mocks.NewMockAuthService(ctrl)
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		h := NewHandler(auth, mocks.NewMockPostService(ctrl), []byte("k"), false, logger)
		router := NewRouter(h, RouterConfig{Logger: logger, AuthRateLimit: 1, AuthRateWindow: time.Minute, TrustProxyHeaders: trusted})

		auth.EXPECT().Login(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeUnauthorized, "invalid username or password")).
			AnyTimes()

		send := func(forwarded string) int {
			form := url.Values{"username": {"alice"}, "password": {"guess"}, middleware.CSRFFieldName: {testCSRFToken}}
			req := testutil.NewFormRequest(s.T(), http.MethodPost, "/login", form)
			req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: testCSRFToken})
			req.RemoteAddr = "192.0.2.1:1234"
			req.Header.Set("X-Forwarded-For", forwarded)
			return testutil.DoRequest(router, req).Code
		}

		s.Equal(http.StatusSeeOther, send("198.51.100.1"))
		if trusted {
			s.Equal(http.StatusSeeOther, send("198.51.100.2"), "each forwarded client has its own budget")
		} else {
			s.Equal(http.StatusTooManyRequests, send("198.51.100.2"), "rotating the header changes nothing")
		}
	}
}
