// Package validation holds input rules shared by services and tools.
package validation

import (
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MaxUsernameLength = 150
	MinPasswordLength = 8
	MaxPasswordLength = 128
	MaxEmailLength    = 254
)

var (
	usernameRegex  = regexp.MustCompile(`^[\w.@+-]+$`)
	groupSlugRegex = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
	allDigitsRegex = regexp.MustCompile(`^[0-9]+$`)
)

// ValidateUsername accepts 1-150 letters, digits and @/./+/-/_ characters.
func ValidateUsername(username string) error {
	if username == "" {
		return errors.New("username is required")
	}
	if utf8.RuneCountInString(username) > MaxUsernameLength {
		return fmt.Errorf("username must be at most %d characters", MaxUsernameLength)
	}
	if !usernameRegex.MatchString(username) {
		return errors.New("username may contain only letters, numbers, and @/./+/-/_ characters")
	}
	return nil
}

// ValidatePassword enforces a minimum length and rejects numeric-only passwords.
func ValidatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	if n > MaxPasswordLength {
		return fmt.Errorf("password must be at most %d characters", MaxPasswordLength)
	}
	if allDigitsRegex.MatchString(password) {
		return errors.New("password cannot be entirely numeric")
	}
	return nil
}

// ValidateEmail accepts a bare address; empty is allowed.
func ValidateEmail(email string) error {
	if email == "" {
		return nil
	}
	if len(email) > MaxEmailLength {
		return fmt.Errorf("email must be at most %d characters", MaxEmailLength)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(addr.Address[strings.LastIndex(addr.Address, "@")+1:], ".") {
		return errors.New("enter a valid email address")
	}
	return nil
}

// ValidateGroupSlug accepts letters, digits, hyphens and underscores up to 50 characters.
func ValidateGroupSlug(slug string) error {
	if slug == "" {
		return errors.New("slug is required")
	}
	if len(slug) > 50 {
		return errors.New("slug must be at most 50 characters")
	}
	if !groupSlugRegex.MatchString(slug) {
		return errors.New("slug may contain only letters, numbers, underscores or hyphens")
	}
	return nil
}
