// Package validate holds the field checks shared by every record constructor.
package validate

import (
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/joshsymonds/gworkspace/internal/apierr"
)

var emailPattern = regexp.MustCompile(`^[\w.+-]+@[\w.-]+\.\w{2,}$`)

// IsEmail reports whether s looks like a deliverable address.
func IsEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// Email returns an ErrInvalid error naming field when s is not an address.
func Email(field, s string) error {
	if !IsEmail(s) {
		return apierr.Invalidf("%s: invalid email address %q", field, s)
	}
	return nil
}

// MaxLen caps a text field by character count.
func MaxLen(field, s string, limit int) error {
	if n := utf8.RuneCountInString(s); n > limit {
		return apierr.Invalidf("%s cannot exceed %d characters (got %d)", field, limit, n)
	}
	return nil
}

// OneOf checks enum membership.
func OneOf(field, s string, allowed ...string) error {
	if !slices.Contains(allowed, s) {
		return apierr.Invalidf("%s must be one of %s, got %q", field, strings.Join(allowed, ", "), s)
	}
	return nil
}

// Limit checks 1 <= n <= ceiling.
func Limit(n, ceiling int) error {
	if n < 1 || n > ceiling {
		return apierr.Invalidf("limit must be between 1 and %d, got %d", ceiling, n)
	}
	return nil
}

// Positive checks n >= 1.
func Positive(field string, n int) error {
	if n < 1 {
		return apierr.Invalidf("%s must be at least 1, got %d", field, n)
	}
	return nil
}
