package utils

import (
	"crypto/rand"
	"encoding/hex"
	"io"
)

// SessionTokenBytes is the entropy of an interview token; hex encoding doubles it.
const SessionTokenBytes = 16

// NewSessionToken returns a 32 character lowercase hex token read from crypto/rand.
func NewSessionToken() (string, error) {
	b := make([]byte, SessionTokenBytes)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// ValidSessionToken reports whether s has the shape produced by NewSessionToken.
func ValidSessionToken(s string) bool {
	if len(s) != SessionTokenBytes*2 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
