// Package mediaid normalizes free-form references to short public-video
// identifiers. All functions are pure.
package mediaid

import (
	"regexp"
	"strings"
)

// IDLength is the length of a canonical identifier.
const IDLength = 11

var (
	// referencePattern matches the recognized URL shapes (watch, embed,
	// shorts, short-host) as well as a bare identifier, capturing the
	// 11-character token.
	referencePattern = regexp.MustCompile(`(?:https?://)?(?:www\.)?(?:youtube\.com/(?:watch\?v=|embed/|shorts/)|youtu\.be/)?([0-9A-Za-z_-]{11})`)

	// barePattern matches input that is exactly one identifier.
	barePattern = regexp.MustCompile(`^[0-9A-Za-z_-]{11}$`)
)

// Extract returns the 11-character identifier contained in input, which may
// be a recognized URL shape or a bare identifier. ok is false when no
// identifier is recognized.
func Extract(input string) (id string, ok bool) {
	input = strings.TrimSpace(input)
	if m := referencePattern.FindStringSubmatch(input); m != nil {
		return m[1], true
	}
	if barePattern.MatchString(input) {
		return input, true
	}
	return "", false
}

// Normalize returns the canonical reference URL for the identifier found in
// input. Unrecognized input is returned trimmed and otherwise unchanged.
func Normalize(input string) string {
	input = strings.TrimSpace(input)
	if id, ok := Extract(input); ok {
		return "https://www.youtube.com/watch?v=" + id
	}
	return input
}
