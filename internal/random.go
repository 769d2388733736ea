package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
)

const (
	// SessionIDLength is the encoded length of every session identifier.
	SessionIDLength = 32
	sessionIDRaw    = SessionIDLength / 4 * 3

	csrfTokenRaw = 18
)

var errShortRead = errors.New("short random read")

func randomString(raw int) (string, error) {
	buf := make([]byte, raw)
	n, err := rand.Read(buf)
	if err != nil {
		return "", err
	}
	if n != raw {
		return "", errShortRead
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// NewSessionID returns a fixed-length, URL-safe, crypto-random identifier.
func NewSessionID() (string, error) {
	return randomString(sessionIDRaw)
}

// ValidSessionID reports whether id has the shape produced by NewSessionID.
func ValidSessionID(id string) bool {
	if len(id) != SessionIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}

// NewCSRFToken returns a random token for form protection.
func NewCSRFToken() (string, error) {
	return randomString(csrfTokenRaw)
}

// RedactID returns a short stable digest of a bearer identifier, safe for logs.
func RedactID(id string) string {
	if id == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:6])
}
