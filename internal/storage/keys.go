package storage

import (
	"fmt"
	"regexp"
	"strings"
)

const maxTitleLen = 80

var (
	titleStrip = regexp.MustCompile(`[^A-Za-z0-9_\- ]+`)
	whitespace = regexp.MustCompile(`\s+`)
)

// AssignKey composes the storage key for an upload:
//
//	users/{ownerID}/notes/{timestampMillis}_{sanitizedTitle}.{extension}
//
// The timestamp is caller-supplied so retries can be made idempotent. Keys
// are collision-resistant, not guaranteed unique: two uploads by the same
// owner with the same title in the same millisecond collide, and the
// database unique constraint decides the loser. That is an accepted
// limitation of this scheme.
func AssignKey(ownerID, title string, timestampMillis int64, extension string) string {
	return fmt.Sprintf("users/%s/notes/%d_%s.%s",
		ownerID, timestampMillis, sanitizeTitle(title), strings.ToLower(extension))
}

// sanitizeTitle strips characters outside [A-Za-z0-9_- ], collapses
// whitespace runs to single underscores and truncates to 80 characters.
// An empty result falls back to "file".
func sanitizeTitle(title string) string {
	s := titleStrip.ReplaceAllString(title, "")
	s = whitespace.ReplaceAllString(strings.TrimSpace(s), "_")
	if len(s) > maxTitleLen {
		s = s[:maxTitleLen]
	}
	if s == "" {
		return "file"
	}
	return s
}
