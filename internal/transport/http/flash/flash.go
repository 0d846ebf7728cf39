// Package flash carries one-shot user messages across a redirect in a signed
// cookie. Messages are read once and the cookie is cleared on read.
package flash

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// Category styles a message.
type Category string

const (
	Info    Category = "info"
	Success Category = "success"
	Warning Category = "warning"
	Error   Category = "error"
)

// Message is a single flashed line.
type Message struct {
	Category Category `json:"c"`
	Text     string   `json:"m"`
}

// maxMessages bounds the cookie so it stays under browser size limits.
const maxMessages = 10

var errBadSignature = errors.New("flash: bad signature")

// Store reads and writes the flash cookie.
type Store struct {
	name   string
	key    []byte
	secure bool
}

// New returns a Store signing cookieName with secret.
func New(cookieName string, secret []byte, secure bool) *Store {
	return &Store{name: cookieName, key: secret, secure: secure}
}

// Add queues msgs for the next page render, after any already queued on r.
func (s *Store) Add(w http.ResponseWriter, r *http.Request, msgs ...Message) {
	pending, _ := s.read(r)
	pending = append(pending, msgs...)
	if len(pending) > maxMessages {
		pending = pending[len(pending)-maxMessages:]
	}
	value, err := s.encode(pending)
	if err != nil {
		return
	}
	http.SetCookie(w, s.cookie(value, 0))
	// Later reads within the same request see the queued messages.
	r.Header.Set("Cookie", replaceCookie(r, s.name, value))
}

// Pop returns queued messages and clears the cookie. A tampered or
// unreadable cookie yields no messages.
func (s *Store) Pop(w http.ResponseWriter, r *http.Request) []Message {
	if _, err := r.Cookie(s.name); err != nil {
		return nil
	}
	msgs, _ := s.read(r)
	http.SetCookie(w, s.cookie("", -1))
	return msgs
}

func (s *Store) read(r *http.Request) ([]Message, error) {
	c, err := r.Cookie(s.name)
	if err != nil || c.Value == "" {
		return nil, err
	}
	return s.decode(c.Value)
}

func (s *Store) encode(msgs []Message) (string, error) {
	payload, err := json.Marshal(msgs)
	if err != nil {
		return "", err
	}
	body := base64.RawURLEncoding.EncodeToString(payload)
	return body + "." + base64.RawURLEncoding.EncodeToString(s.sign(body)), nil
}

func (s *Store) decode(value string) ([]Message, error) {
	body, sig, ok := strings.Cut(value, ".")
	if !ok {
		return nil, errBadSignature
	}
	got, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil || !hmac.Equal(got, s.sign(body)) {
		return nil, errBadSignature
	}
	payload, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return nil, err
	}
	var msgs []Message
	if err := json.Unmarshal(payload, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (s *Store) sign(body string) []byte {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(body))
	return mac.Sum(nil)
}

func (s *Store) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     s.name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func replaceCookie(r *http.Request, name, value string) string {
	parts := []string{name + "=" + value}
	for _, c := range r.Cookies() {
		if c.Name != name {
			parts = append(parts, c.Name+"="+c.Value)
		}
	}
	return strings.Join(parts, "; ")
}
