package services

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode"

	"github.com/dmitrijs2005/blogauth/internal/common"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidationError lists every problem found in a request. It matches
// common.ErrorValidation under errors.Is.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return common.ErrorValidation.Error() + ": " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == common.ErrorValidation }

// RegisterInput is the user-supplied part of a registration.
type RegisterInput struct {
	Email    string
	Username string
	Password string
}

// Normalize trims the input and lower-cases the email.
func (in RegisterInput) Normalize() RegisterInput {
	return RegisterInput{
		Email:    strings.ToLower(strings.TrimSpace(in.Email)),
		Username: strings.TrimSpace(in.Username),
		Password: in.Password,
	}
}

// Validate checks email, username and password rules.
func (in RegisterInput) Validate() error {
	var problems []string

	if !validEmail(in.Email) {
		problems = append(problems, "email must be a valid address")
	}

	if n := len(in.Username); n < 3 || n > 30 {
		problems = append(problems, "username must be between 3 and 30 characters")
	} else if !usernamePattern.MatchString(in.Username) {
		problems = append(problems, "username may contain only letters, digits, underscores and hyphens")
	}

	if len(in.Password) < 8 {
		problems = append(problems, "password must be at least 8 characters")
	}
	var upper, lower, digit bool
	for _, r := range in.Password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		problems = append(problems, "password must contain an upper-case letter, a lower-case letter and a digit")
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func validEmail(s string) bool {
	if s == "" {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}
	at := strings.LastIndex(s, "@")
	return at > 0 && strings.Contains(s[at+1:], ".")
}
