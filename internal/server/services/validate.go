package services

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"
)

const (
	maxNameLen        = 20
	minPasswordLength = 6
	maxPasswordLength = 72
)

// SignUpRequest is the input of UserService.SignUp.
type SignUpRequest struct {
	GivenName  string
	FamilyName string
	Email      string
	Password   string
}

// SignInRequest is the input of UserService.SignIn.
type SignInRequest struct {
	Email    string
	Password string
}

// normalizeEmail trims and lower-cases s so that one mailbox always maps to
// one lookup key.
func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// validEmail accepts a bare address only, no display name or angle brackets.
func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return false
	}
	return addr.Name == "" && addr.Address == s
}

// validationErrors collects every problem with a request so the caller can
// see them all at once.
type validationErrors []string

func (v *validationErrors) addf(format string, args ...any) {
	*v = append(*v, fmt.Sprintf(format, args...))
}

func (v validationErrors) message() string {
	return strings.Join(v, "; ")
}

func checkName(v *validationErrors, field, value string, required bool) {
	n := utf8.RuneCountInString(value)
	switch {
	case n == 0 && required:
		v.addf("%s should not be empty", field)
	case n > maxNameLen:
		v.addf("%s must be shorter than or equal to %d characters", field, maxNameLen)
	}
}

func checkEmail(v *validationErrors, email string) {
	switch {
	case email == "":
		v.addf("email should not be empty")
	case !validEmail(email):
		v.addf("email must be an email")
	}
}

// normalize trims the request fields in place and validates them.
func (r *SignUpRequest) normalize() validationErrors {
	r.GivenName = strings.TrimSpace(r.GivenName)
	r.FamilyName = strings.TrimSpace(r.FamilyName)
	r.Email = normalizeEmail(r.Email)

	var v validationErrors
	checkName(&v, "givenName", r.GivenName, true)
	checkName(&v, "familyName", r.FamilyName, true)
	checkEmail(&v, r.Email)

	switch {
	case len(r.Password) < minPasswordLength:
		v.addf("password must be longer than or equal to %d characters", minPasswordLength)
	case len(r.Password) > maxPasswordLength:
		v.addf("password must be shorter than or equal to %d bytes", maxPasswordLength)
	}
	return v
}

func (r *SignInRequest) normalize() validationErrors {
	r.Email = normalizeEmail(r.Email)

	var v validationErrors
	checkEmail(&v, r.Email)
	if r.Password == "" {
		v.addf("password should not be empty")
	}
	return v
}
