package util

import (
	"regexp"
	"strings"
)

var (
	whitespaceRun  = regexp.MustCompile(`\s+`)
	unsafeFilename  = regexp.MustCompile(`[^a-z0-9-]`)
)

// SanitizeFilename lowercases s, turns whitespace runs into hyphens and drops anything that isn't a lowercase letter,
// digit or hyphen, e.g. "Ada Lovelace Jr." becomes "ada-lovelace-jr".
func SanitizeFilename(s string) string {
	s = strings.ToLower(s)
	s = whitespaceRun.ReplaceAllString(s, "-")
	return unsafeFilename.ReplaceAllString(s, "")
}
