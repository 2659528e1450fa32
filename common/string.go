package common

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// RandomID returns a fresh UUID string, used for invoice references and
// widget session identifiers.
func RandomID() string {
	u, _ := uuid.NewRandom()
	return u.String()
}

var safeStringRegex = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// SafeString lowercases s and replaces anything outside [a-z0-9_], producing
// identifiers that are valid Postgres schema names.
func SafeString(s string) string {
	return safeStringRegex.ReplaceAllString(strings.ToLower(s), "_")
}
