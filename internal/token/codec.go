// internal/token/codec.go
//
// Session token codec.
// A token is an HS256 JWT carrying only the session id (subject) and an
// expiry. Possession of a valid token is the sole proof of session
// ownership; there is no account or login behind it.

package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verification failures. The HTTP layer reports all of them as the same
// Unauthorized payload; the distinction exists for logs and tests.
var (
	ErrMissing   = errors.New("token: missing")
	ErrMalformed = errors.New("token: malformed")
	ErrExpired   = errors.New("token: expired")
	ErrInvalid   = errors.New("token: invalid")
)

// Codec issues and verifies session tokens. It is stateless: the same secret
// and TTL produce interchangeable codecs, so any replica can verify a token
// issued by any other.
type Codec struct {
	secret []byte
	ttl    time.Duration
}

// New builds a Codec from the process secret and token lifetime.
func New(secret string, ttl time.Duration) *Codec {
	return &Codec{secret: []byte(secret), ttl: ttl}
}

// Issue signs a token for sessionID, valid until now+ttl.
func (c *Codec) Issue(sessionID string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(c.ttl)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   sessionID,
		ExpiresAt: jwt.NewNumericDate(exp),
		IssuedAt:  jwt.NewNumericDate(now),
	})
	ss, err := t.SignedString(c.secret)
	return ss, exp, err
}

// Verify checks signature and expiry and returns the embedded session id.
// The empty string maps to ErrMissing so callers can pass a cookie/header
// value through without pre-checking.
func (c *Codec) Verify(tokenStr string) (string, error) {
	if tokenStr == "" {
		return "", ErrMissing
	}
	claims := jwt.RegisteredClaims{}
	t, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "", ErrMalformed
	case errors.Is(err, jwt.ErrTokenExpired):
		return "", ErrExpired
	case err != nil || !t.Valid:
		return "", ErrInvalid
	}
	if claims.Subject == "" {
		return "", ErrInvalid
	}
	return claims.Subject, nil
}
