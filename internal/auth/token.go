package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

var (
	ErrMissingToken = errors.New("missing auth token")
	ErrInvalidToken = errors.New("invalid auth token")
)

// NewToken generates a cryptographically secure opaque token.
// Returns a 32-byte secret encoded as URL-safe base64 (44 characters).
func NewToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// HashToken hashes a token with SHA-256 for storage. The plaintext token is
// only ever held by the client; lookups go through the hash.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.URLEncoding.EncodeToString(sum[:])
}

// TokenFromRequest extracts the opaque token from the Authorization header.
func TokenFromRequest(r *http.Request) (string, error) {
	if r == nil {
		return "", ErrMissingToken
	}
	return TokenFromHeader(r.Header.Get("Authorization"))
}

// TokenFromHeader parses an "Authorization: Token <value>" header.
func TokenFromHeader(authHeader string) (string, error) {
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "token") {
		return "", ErrMissingToken
	}
	token := strings.TrimSpace(parts[1])
	if token == "" || !utf8.ValidString(token) {
		return "", ErrInvalidToken
	}
	return token, nil
}
