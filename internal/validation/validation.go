// Package validation holds the pure input rules shared by the API handlers.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// MinYear is the lowest accepted title year (smallint floor).
const MinYear = -32768

// Score bounds for reviews, inclusive.
const (
	MinScore = 1
	MaxScore = 10
)

// Sentinel failure classes, matchable with errors.Is.
var (
	ErrOutOfRange    = errors.New("out of range")
	ErrReserved      = errors.New("reserved")
	ErrInvalidFormat = errors.New("invalid format")
)

// usernamePattern covers the full set of allowed username characters.
var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.@+-]+$`)

// emailPattern is a light-weight shape check, not full RFC parsing.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// slugPattern covers the allowed slug characters for categories and genres.
var slugPattern = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

// ValidateYear rejects years below MinYear or after the current calendar year.
func ValidateYear(year int) error {
	if current := time.Now().Year(); year < MinYear || year > current {
		return fmt.Errorf("%w: %d is not a valid year, try again", ErrOutOfRange, year)
	}
	return nil
}

// ValidateScore rejects scores outside 1..10.
func ValidateScore(score int) error {
	if score < MinScore || score > MaxScore {
		return fmt.Errorf("%w: score must be between %d and %d", ErrOutOfRange, MinScore, MaxScore)
	}
	return nil
}

// ValidateUsername rejects the reserved name "me" (any case) and any name
// with characters outside letters, digits and _.@+- . The error names the
// exact offending characters so the caller knows what to fix.
func ValidateUsername(name string) error {
	if strings.EqualFold(name, "me") {
		return fmt.Errorf("%w: username %q is not allowed", ErrReserved, name)
	}
	if name == "" || len(name) > 150 {
		return fmt.Errorf("%w: username must be between 1 and 150 characters", ErrInvalidFormat)
	}
	if !usernamePattern.MatchString(name) {
		return fmt.Errorf(
			"%w: username contains forbidden characters: %s",
			ErrInvalidFormat, offendingChars(name),
		)
	}
	return nil
}

// ValidateEmail checks the basic address shape and the length cap.
func ValidateEmail(email string) error {
	if len(email) > 254 || !emailPattern.MatchString(email) {
		return fmt.Errorf("%w: %q is not a valid email address", ErrInvalidFormat, email)
	}
	return nil
}

// ValidateSlug checks the slug charset and length cap for categories and genres.
func ValidateSlug(slug string) error {
	if slug == "" || len(slug) > 50 || !slugPattern.MatchString(slug) {
		return fmt.Errorf("%w: slug may only contain letters, digits, hyphens and underscores, at most 50 characters", ErrInvalidFormat)
	}
	return nil
}

// offendingChars lists every distinct forbidden character in name, quoted,
// in order of first appearance.
func offendingChars(name string) string {
	seen := make(map[rune]bool)
	var quoted []string
	for _, r := range name {
		if seen[r] || usernamePattern.MatchString(string(r)) {
			continue
		}
		seen[r] = true
		quoted = append(quoted, fmt.Sprintf("%q", r))
	}
	return strings.Join(quoted, ", ")
}
