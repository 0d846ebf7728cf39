package forms

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogin(t *testing.T) {
	t.Run("binds and trims", func(t *testing.T) {
		res := ParseLogin(url.Values{
			"username":    {"  alice "},
			"password":    {" secret "},
			"remember_me": {"y"},
		})
		require.True(t, res.Valid())
		assert.Equal(t, "alice", res.Data.Username)
		assert.Equal(t, " secret ", res.Data.Password, "password is not trimmed")
		assert.True(t, res.Data.Remember)
	})

	t.Run("missing fields", func(t *testing.T) {
		res := ParseLogin(url.Values{"username": {"   "}})
		assert.False(t, res.Valid())
		assert.NotEmpty(t, res.Errors.Get("username"))
		assert.NotEmpty(t, res.Errors.Get("password"))
		assert.Empty(t, res.Errors.Get("remember_me"))
	})

	t.Run("remember checkbox values", func(t *testing.T) {
		for v, want := range map[string]bool{"": false, "on": true, "true": true, "false": false, "0": false, "y": true} {
			res := ParseLogin(url.Values{"username": {"a"}, "password": {"b"}, "remember_me": {v}})
			assert.Equal(t, want, res.Data.Remember, "remember_me=%q", v)
		}
	})
}

func TestParseRegister(t *testing.T) {
	valid := func() url.Values {
		return url.Values{
			"username":  {"alice"},
			"email":     {"alice@example.com"},
			"password":  {"pw"},
			"password2": {"pw"},
		}
	}

	t.Run("valid", func(t *testing.T) {
		res := ParseRegister(valid())
		require.True(t, res.Valid(), res.Errors.Messages())
		assert.Equal(t, Register{Username: "alice", Email: "alice@example.com", Password: "pw", Confirm: "pw"}, res.Data)
	})

	t.Run("password confirmation must match", func(t *testing.T) {
		v := valid()
		v.Set("password2", "other")
		res := ParseRegister(v)
		assert.False(t, res.Valid())
		assert.Equal(t, []string{"Passwords must match."}, res.Errors.Get("password2"))
	})

	t.Run("email must be an address", func(t *testing.T) {
		v := valid()
		v.Set("email", "not-an-email")
		res := ParseRegister(v)
		assert.False(t, res.Valid())
		assert.Equal(t, []string{"Invalid email address."}, res.Errors.Get("email"))
	})

	t.Run("username length counts characters", func(t *testing.T) {
		v := valid()
		v.Set("username", strings.Repeat("é", 64))
		assert.True(t, ParseRegister(v).Valid())

		v.Set("username", strings.Repeat("é", 65))
		res := ParseRegister(v)
		assert.False(t, res.Valid())
		assert.Len(t, res.Errors.Get("username"), 1)
	})

	t.Run("each missing field reported once", func(t *testing.T) {
		res := ParseRegister(url.Values{})
		assert.Len(t, res.Errors, 4)
		for _, f := range []string{"username", "email", "password", "password2"} {
			assert.Equal(t, []string{"This field is required."}, res.Errors.Get(f), f)
		}
	})
}

func TestParseDestination(t *testing.T) {
	t.Run("valid and trimmed", func(t *testing.T) {
		res := ParseDestination(url.Values{
			"city":        {" Kyoto "},
			"country":     {"Japan"},
			"description": {" Loved the temples\n"},
		})
		require.True(t, res.Valid())
		in := res.Data.Input()
		assert.Equal(t, "Kyoto", in.City)
		assert.Equal(t, "Japan", in.Country)
		assert.Equal(t, "Loved the temples", in.Description)
	})

	t.Run("blank and oversized fields", func(t *testing.T) {
		res := ParseDestination(url.Values{
			"city":        {"  "},
			"country":     {strings.Repeat("x", 101)},
			"description": {"ok"},
		})
		assert.False(t, res.Valid())
		assert.Equal(t, []string{"This field is required."}, res.Errors.Get("city"))
		assert.Equal(t, []string{"Field cannot be longer than 100 characters."}, res.Errors.Get("country"))
		assert.Empty(t, res.Errors.Get("description"))
		assert.Equal(t, "ok", res.Data.Description, "submitted values are kept for re-rendering")
	})
}

func TestParseSearch(t *testing.T) {
	s := ParseSearch(url.Values{"query": {" temple "}, "country": {"japan"}})
	assert.Equal(t, Search{Query: " temple ", Country: "japan"}, s)
	q := s.SearchQuery()
	assert.Equal(t, " temple ", q.Text)
	assert.Equal(t, "japan", q.Country)

	assert.True(t, ParseSearch(url.Values{}).SearchQuery().IsEmpty())
}

func TestFieldErrorsMessages(t *testing.T) {
	errs := FieldErrors{}
	errs.Add("country", "too long")
	errs.Add("city", "required")
	errs.Add("city", "again")
	assert.Equal(t, []string{"city: required", "city: again", "country: too long"}, errs.Messages())

	var empty FieldErrors
	assert.Nil(t, empty.Get("city"))
	assert.Empty(t, empty.Messages())
}
