package httptransport

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"net/url"
	"time"

	authmodels "wanderlog/internal/auth/models"
	postmodels "wanderlog/internal/posts/models"
	"wanderlog/internal/transport/http/flash"
	"wanderlog/internal/transport/http/forms"
)

//go:embed templates/*.html
var templateFS embed.FS

var templateFuncs = template.FuncMap{
	"profileURL":  profilePath,
	"isoTime":     func(t time.Time) string { return t.UTC().Format(time.RFC3339) },
	"displayTime": func(t time.Time) string { return t.UTC().Format("2 Jan 2006 15:04") },
}

// Page names.
const (
	pageLogin    = "login.html"
	pageRegister = "register.html"
	pageUser     = "user.html"
	pageLanding  = "landing.html"
	pageError    = "error.html"
)

var pages = mustParsePages(pageLogin, pageRegister, pageUser, pageLanding, pageError)

func mustParsePages(names ...string) map[string]*template.Template {
	base := template.Must(template.New("layout.html").Funcs(templateFuncs).ParseFS(templateFS, "templates/layout.html"))
	out := make(map[string]*template.Template, len(names))
	for _, name := range names {
		t := template.Must(base.Clone())
		out[name] = template.Must(t.ParseFS(templateFS, "templates/"+name))
	}
	return out
}

// pageData is what every template receives. Content holds the page-specific
// view model.
type pageData struct {
	Title     string
	Session   *authmodels.Session
	CSRFToken string
	Flashes   []flash.Message
	Errors    forms.FieldErrors
	Content   any
}

type loginContent struct {
	Form forms.Login
	Next string
}

type registerContent struct {
	Form forms.Register
}

type profileContent struct {
	User    *authmodels.User
	Posts   []*postmodels.Post
	Form    forms.Destination
	IsOwner bool
}

type feedContent struct {
	Posts     []*postmodels.Post
	Query     string
	Country   string
	Searching bool
}

type errorContent struct {
	Status  int
	Message string
}

func renderPage(w http.ResponseWriter, status int, name string, data pageData) error {
	t, ok := pages[name]
	if !ok {
		return errUnknownPage(name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

type errUnknownPage string

func (e errUnknownPage) Error() string { return "unknown page " + string(e) }

func profilePath(username string) string {
	return "/user/" + url.PathEscape(username)
}
