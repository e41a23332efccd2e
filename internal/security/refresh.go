package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
)

// refreshTokenBytes is the entropy of an opaque refresh token before encoding.
const refreshTokenBytes = 32

// ErrRefreshTokenFormat is returned when a refresh token is not a value this
// service could have issued.
var ErrRefreshTokenFormat = errors.New("malformed refresh token")

// NewRefreshToken generates an opaque, URL-safe refresh token. The raw value
// is handed to the client once; only its hash is persisted.
func NewRefreshToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// ValidateRefreshTokenFormat checks that token has the shape of an issued
// refresh token (base64url of the expected length) without touching storage.
func ValidateRefreshTokenFormat(token string) error {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(raw) != refreshTokenBytes {
		return ErrRefreshTokenFormat
	}
	return nil
}

// HashRefreshToken returns the hex-encoded SHA-256 of the refresh token.
// Sessions store and compare hashes, never raw tokens.
func HashRefreshToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// RefreshTokenHashEqual compares the provided token's hash with the stored
// hash in constant time.
func RefreshTokenHashEqual(providedToken, storedHash string) bool {
	providedHash := HashRefreshToken(providedToken)
	return subtle.ConstantTimeCompare([]byte(providedHash), []byte(storedHash)) == 1
}
