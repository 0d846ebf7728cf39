package httptransport

import (
	"net/http"
	"net/url"
	"strings"
)

// safeNext returns next when it is a same-origin path, and "/" otherwise.
func safeNext(next string) string {
	if next == "" || next[0] != '/' || strings.HasPrefix(next, "//") || strings.ContainsAny(next, "\\\r\n\t") {
		return "/"
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" || u.User != nil {
		return "/"
	}
	return next
}

func loginPath(next string) string {
	if next = safeNext(next); next == "/" {
		return "/login"
	}
	return "/login?next=" + url.QueryEscape(next)
}

func redirect(w http.ResponseWriter, r *http.Request, target string) {
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// keptNext is the "next" value worth carrying through the login form: the
// safe path, or empty when it would resolve to the feed anyway.
func keptNext(next string) string {
	if next = safeNext(next); next == "/" {
		return ""
	}
	return next
}
