// Package auth provides authentication and authorization utilities
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidToken is returned when a token is malformed
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired is returned when a token has expired
	ErrTokenExpired = errors.New("token expired")
	// ErrInvalidSignature is returned when a token's signature is invalid
	ErrInvalidSignature = errors.New("invalid signature")
)

// Signer creates and verifies signed session tokens carried in cookies
type Signer struct {
	secret []byte
	now    func() time.Time
}

// NewSigner creates a new Signer with the given secret key
func NewSigner(secret string) *Signer {
	return &Signer{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// GenerateToken creates a signed token binding a session ID to an expiry.
// Format: sessionID.expiresUnix.signature
func (s *Signer) GenerateToken(sessionID string, ttl time.Duration) string {
	expiresAt := s.now().Add(ttl).Unix()
	data := fmt.Sprintf("%s.%d", sessionID, expiresAt)
	return fmt.Sprintf("%s.%s", data, s.sign(data))
}

// VerifyToken validates a token and returns the session ID it carries
func (s *Signer) VerifyToken(token string) (string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 || parts[0] == "" {
		return "", ErrInvalidToken
	}

	sessionID := parts[0]
	providedSig := parts[2]

	expiresAt, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", ErrInvalidToken
	}

	data := fmt.Sprintf("%s.%d", sessionID, expiresAt)
	if !hmac.Equal([]byte(s.sign(data)), []byte(providedSig)) {
		return "", ErrInvalidSignature
	}

	if s.now().Unix() > expiresAt {
		return "", ErrTokenExpired
	}

	return sessionID, nil
}

// sign creates an HMAC-SHA256 signature of the data
func (s *Signer) sign(data string) string {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(data))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
