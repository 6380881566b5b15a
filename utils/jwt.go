package utils

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"
	"io"
	"time"
)

const (
	csrfPurpose = "csrf"

	// CSRFCookie holds the client id every form token is bound to.
	CSRFCookie = "cafes_csrf"
)

var (
	ErrTokenMissing = errors.New("csrf token missing")
	ErrTokenInvalid = errors.New("csrf token invalid")
	ErrTokenExpired = errors.New("csrf token expired")
	ErrTokenForeign = errors.New("csrf token issued to another client")
)

// CSRF issues and checks signed form tokens. Tokens are HS256 JWTs whose key
// is derived from the application secret, so rotating the secret invalidates
// every outstanding form. Each token carries the client id from the
// CSRFCookie as its jti and is only accepted alongside that cookie.
type CSRF struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func NewCSRF(secret string, ttl time.Duration) (*CSRF, error) {
	if secret == "" {
		return nil, errors.New("csrf: empty secret")
	}
	key := make([]byte, 32)
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte("cafes form token"))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("csrf: derive key: %w", err)
	}
	return &CSRF{key: key, ttl: ttl, now: time.Now}, nil
}

// NewClientID returns a fresh value for the CSRFCookie.
func NewClientID() string {
	return uuid.NewString()
}

func (c *CSRF) GenerateToken(clientID string) (string, error) {
	if clientID == "" {
		return "", errors.New("csrf: empty client id")
	}
	now := c.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"purpose": csrfPurpose,
		"jti":     clientID,
		"iat":     now.Unix(),
		"exp":     now.Add(c.ttl).Unix(),
	})
	return token.SignedString(c.key)
}

// ValidateToken checks the signature, expiry and purpose of tokenString and
// that it was issued for clientID.
func (c *CSRF) ValidateToken(tokenString, clientID string) error {
	if tokenString == "" || clientID == "" {
		return ErrTokenMissing
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.key, nil
	}, jwt.WithTimeFunc(c.now), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return ErrTokenInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return ErrTokenInvalid
	}
	if purpose, _ := claims["purpose"].(string); purpose != csrfPurpose {
		return ErrTokenInvalid
	}
	jti, _ := claims["jti"].(string)
	if subtle.ConstantTimeCompare([]byte(jti), []byte(clientID)) != 1 {
		return ErrTokenForeign
	}
	return nil
}
