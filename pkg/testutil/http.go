// Package testutil provides common test utilities for handler and integration tests.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NewFormRequest creates a request with a url-encoded form body.
func NewFormRequest(t *testing.T, method, path string, form url.Values) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// NewRequest creates a simple HTTP request without a body.
func NewRequest(t *testing.T, method, path string) *http.Request {
	t.Helper()
	return httptest.NewRequest(method, path, nil)
}

// DoRequest executes a request against a handler and returns the recorder.
func DoRequest(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

// ResponseCookie returns the last Set-Cookie named name, or nil.
func ResponseCookie(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	var found *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			found = c
		}
	}
	return found
}

// AssertStatus asserts the response status code matches expected.
func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	assert.Equal(t, expected, rr.Code, "unexpected status code")
}

// AssertRedirect asserts a 303 See Other to location.
func AssertRedirect(t *testing.T, rr *httptest.ResponseRecorder, location string) {
	t.Helper()
	assert.Equal(t, http.StatusSeeOther, rr.Code, "expected a redirect")
	assert.Equal(t, location, rr.Header().Get("Location"), "unexpected redirect target")
}

// AssertBodyContains asserts the response body contains each fragment.
func AssertBodyContains(t *testing.T, rr *httptest.ResponseRecorder, fragments ...string) {
	t.Helper()
	body := rr.Body.String()
	for _, f := range fragments {
		assert.Contains(t, body, f)
	}
}

// UnmarshalResponse unmarshals the response body into the target struct.
func UnmarshalResponse[T any](t *testing.T, rr *httptest.ResponseRecorder) *T {
	t.Helper()
	var result T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result), "failed to unmarshal response")
	return &result
}

// Browser drives a handler the way a browser would: it keeps cookies
// between requests and, when CSRFCookie is set, copies that cookie's value
// into CSRFField of every form it posts.
type Browser struct {
	t          *testing.T
	handler    http.Handler
	jar        map[string]*http.Cookie
	CSRFCookie string
	CSRFField  string
}

// NewBrowser returns a Browser with an empty cookie jar.
func NewBrowser(t *testing.T, handler http.Handler) *Browser {
	return &Browser{t: t, handler: handler, jar: map[string]*http.Cookie{}}
}

// On returns a copy of b bound to t that shares b's cookie jar, for use
// inside subtests.
func (b *Browser) On(t *testing.T) *Browser {
	c := *b
	c.t = t
	return &c
}

// Get issues a GET and records any cookies set.
func (b *Browser) Get(path string) *httptest.ResponseRecorder {
	b.t.Helper()
	return b.do(NewRequest(b.t, http.MethodGet, path))
}

// PostForm posts form, adding the CSRF field when configured.
func (b *Browser) PostForm(path string, form url.Values) *httptest.ResponseRecorder {
	b.t.Helper()
	if form == nil {
		form = url.Values{}
	}
	if b.CSRFCookie != "" {
		if c, ok := b.jar[b.CSRFCookie]; ok {
			form.Set(b.CSRFField, c.Value)
		}
	}
	return b.do(NewFormRequest(b.t, http.MethodPost, path, form))
}

// Follow issues a GET to the Location of a redirect response.
func (b *Browser) Follow(rr *httptest.ResponseRecorder) *httptest.ResponseRecorder {
	b.t.Helper()
	loc := rr.Header().Get("Location")
	require.NotEmpty(b.t, loc, "response is not a redirect")
	return b.Get(loc)
}

// Cookie returns the jar's value for name.
func (b *Browser) Cookie(name string) string {
	if c, ok := b.jar[name]; ok {
		return c.Value
	}
	return ""
}

func (b *Browser) do(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range b.jar {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
	rr := DoRequest(b.handler, req)
	for _, c := range rr.Result().Cookies() {
		if c.MaxAge < 0 || c.Value == "" {
			delete(b.jar, c.Name)
			continue
		}
		b.jar[c.Name] = c
	}
	return rr
}
