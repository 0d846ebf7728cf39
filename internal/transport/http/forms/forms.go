// Package forms binds and validates the HTML forms. Each Parse function is
// pure: it trims the submitted values and returns them with any field errors.
// Rendering is left to the caller.
package forms

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/asaskevich/govalidator"

	authservice "wanderlog/internal/auth/service"
	postmodels "wanderlog/internal/posts/models"
)

// FieldErrors maps a form field name to its validation messages.
type FieldErrors map[string][]string

// Add appends msg to field.
func (fe FieldErrors) Add(field, msg string) {
	fe[field] = append(fe[field], msg)
}

// Get returns the messages for field. Safe on a nil map, so templates can
// call it unconditionally.
func (fe FieldErrors) Get(field string) []string {
	return fe[field]
}

// Messages flattens the errors into "field: message" lines ordered by field.
func (fe FieldErrors) Messages() []string {
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var out []string
	for _, f := range fields {
		for _, msg := range fe[f] {
			out = append(out, f+": "+msg)
		}
	}
	return out
}

// Result is the outcome of binding one form. Data always holds the trimmed
// submission so an invalid form can be re-rendered with the user's values.
type Result[T any] struct {
	Data   T
	Errors FieldErrors
}

// Valid reports whether binding produced no field errors.
func (r Result[T]) Valid() bool {
	return len(r.Errors) == 0
}

func result[T any](data T, errs FieldErrors) Result[T] {
	if len(errs) == 0 {
		errs = nil
	}
	return Result[T]{Data: data, Errors: errs}
}

// Login is the sign-in form.
type Login struct {
	Username string
	Password string
	Remember bool
}

// ParseLogin binds username, password and remember_me.
func ParseLogin(values url.Values) Result[Login] {
	data := Login{
		Username: strings.TrimSpace(values.Get("username")),
		Password: values.Get("password"),
		Remember: checkbox(values.Get("remember_me")),
	}
	errs := FieldErrors{}
	required(errs, "username", data.Username)
	required(errs, "password", data.Password)
	return result(data, errs)
}

// Register is the account creation form.
type Register struct {
	Username string
	Email    string
	Password string
	Confirm  string
}

// ParseRegister binds username, email, password and password2.
func ParseRegister(values url.Values) Result[Register] {
	data := Register{
		Username: strings.TrimSpace(values.Get("username")),
		Email:    strings.TrimSpace(values.Get("email")),
		Password: values.Get("password"),
		Confirm:  values.Get("password2"),
	}
	errs := FieldErrors{}
	if required(errs, "username", data.Username) {
		maxLength(errs, "username", data.Username, authservice.MaxUsernameLength)
	}
	if required(errs, "email", data.Email) {
		if maxLength(errs, "email", data.Email, authservice.MaxEmailLength) && !govalidator.IsEmail(data.Email) {
			errs.Add("email", "Invalid email address.")
		}
	}
	required(errs, "password", data.Password)
	if required(errs, "password2", data.Confirm) && data.Confirm != data.Password {
		errs.Add("password2", "Passwords must match.")
	}
	return result(data, errs)
}

// Destination is the profile page's new-post form.
type Destination struct {
	City        string
	Country     string
	Description string
}

// ParseDestination binds city, country and description.
func ParseDestination(values url.Values) Result[Destination] {
	data := Destination{
		City:        strings.TrimSpace(values.Get("city")),
		Country:     strings.TrimSpace(values.Get("country")),
		Description: strings.TrimSpace(values.Get("description")),
	}
	errs := FieldErrors{}
	if required(errs, "city", data.City) {
		maxLength(errs, "city", data.City, postmodels.MaxCityLength)
	}
	if required(errs, "country", data.Country) {
		maxLength(errs, "country", data.Country, postmodels.MaxCountryLength)
	}
	if required(errs, "description", data.Description) {
		maxLength(errs, "description", data.Description, postmodels.MaxDescriptionLength)
	}
	return result(data, errs)
}

// Input converts the form into the service's create input.
func (d Destination) Input() postmodels.CreateInput {
	return postmodels.CreateInput{City: d.City, Country: d.Country, Description: d.Description}
}

// Search holds the feed filter. Both fields are optional.
type Search struct {
	Query   string
	Country string
}

// ParseSearch binds the query and country parameters.
func ParseSearch(values url.Values) Search {
	return Search{
		Query:   values.Get("query"),
		Country: values.Get("country"),
	}
}

// SearchQuery converts the filter into the service's search query.
func (s Search) SearchQuery() postmodels.SearchQuery {
	return postmodels.SearchQuery{Text: s.Query, Country: s.Country}
}

func required(errs FieldErrors, field, value string) bool {
	if value == "" {
		errs.Add(field, "This field is required.")
		return false
	}
	return true
}

func maxLength(errs FieldErrors, field, value string, limit int) bool {
	if !govalidator.StringLength(value, "1", strconv.Itoa(limit)) {
		errs.Add(field, "Field cannot be longer than "+strconv.Itoa(limit)+" characters.")
		return false
	}
	return true
}

func checkbox(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "0", "false", "off", "n", "no":
		return false
	}
	return true
}
