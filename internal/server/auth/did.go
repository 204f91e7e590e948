package auth

import "regexp"

// didPattern follows the DID syntax used by atproto: "did:" method ":" id,
// with a lowercase method and an identifier that does not end in ':'.
var didPattern = regexp.MustCompile(`^did:[a-z]+:[a-zA-Z0-9._:%-]*[a-zA-Z0-9._-]$`)

const maxDIDLength = 2048

// IsValidDID reports whether s is a syntactically well-formed DID.
func IsValidDID(s string) bool {
	return len(s) <= maxDIDLength && didPattern.MatchString(s)
}
