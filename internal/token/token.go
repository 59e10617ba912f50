// Package token generates and checks form access tokens.
//
// A token is 32 bytes from crypto/rand rendered as 64 lowercase hex
// characters. Holding a token is what authorizes viewing and submitting
// the form it belongs to, so tokens are never derived from form data.
package token

import (
	"crypto/rand"
	"encoding/hex"
	"regexp"
)

const (
	// ByteLength is the number of random bytes behind a token.
	ByteLength = 32
	// Length is the length of the hex-encoded token.
	Length = ByteLength * 2
)

var pattern = regexp.MustCompile(`^[a-f0-9]{64}$`)

// Generate returns a new random token.
func Generate() (string, error) {
	b := make([]byte, ByteLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// IsValid reports whether candidate is a string in token format.
// It does not check that a form with this token exists.
func IsValid(candidate any) bool {
	s, ok := candidate.(string)
	if !ok {
		return false
	}
	return pattern.MatchString(s)
}

// AccessURL builds the public URL of a form. baseURL must not end in a slash.
func AccessURL(baseURL, tok string) string {
	return baseURL + "/form/" + tok
}

// Short returns a prefix of tok that is safe to put in logs.
func Short(tok string) string {
	if len(tok) <= 8 {
		return tok
	}
	return tok[:8] + "..."
}
