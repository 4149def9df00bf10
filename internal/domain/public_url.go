package domain

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const publicExercisePath = "/public/exercise/"

var publicUUIDPattern = regexp.MustCompile(`(?i)/public/exercise/([a-f0-9-]{36})`)

// PublicURL builds the share link for a public exercise
func PublicURL(base, exerciseUUID string) string {
	return strings.TrimRight(base, "/") + publicExercisePath + exerciseUUID
}

// ExtractUUID returns the exercise uuid embedded in a share link
func ExtractUUID(url string) (string, bool) {
	m := publicUUIDPattern.FindStringSubmatch(url)
	if m == nil {
		return "", false
	}
	if _, err := uuid.Parse(m[1]); err != nil {
		return "", false
	}
	return m[1], true
}

// IsPublicURL reports whether url points at a shared exercise
func IsPublicURL(url string) bool {
	return strings.Contains(url, publicExercisePath)
}
