// Package auth validates the JWT bearer tokens that protect the API and
// the event stream. Token issuance lives in the upstream identity
// service; this package only verifies.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Validation failures, mapped to wire error codes by the API layer.
var (
	ErrMissingToken    = errors.New("missing authentication token")
	ErrInvalidToken    = errors.New("invalid authentication token")
	ErrExpiredToken    = errors.New("authentication token has expired")
	ErrMalformedHeader = errors.New("malformed authorization header")
)

// Claims is the JWT payload issued by the identity service.
type Claims struct {
	UserID string `json:"id"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// User is the caller identity extracted from a validated token.
type User struct {
	ID    string
	Email string
	Role  string
}

// IsAdmin reports whether the user carries an administrative role.
func (u *User) IsAdmin() bool {
	return u.Role == "admin" || u.Role == "super_admin"
}

// Validator verifies HS256-signed tokens against a shared secret.
type Validator struct {
	secret []byte
	leeway time.Duration
}

// NewValidator creates a Validator. leeway absorbs clock skew between the
// token issuer and this process.
func NewValidator(secret string, leeway time.Duration) *Validator {
	return &Validator{secret: []byte(secret), leeway: leeway}
}

// Validate checks the token's signature and expiry and returns the caller
// identity. Expired tokens are distinguished from otherwise-invalid ones.
func (v *Validator) Validate(token string) (*User, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithLeeway(v.leeway),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	if claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return &User{ID: claims.UserID, Email: claims.Email, Role: claims.Role}, nil
}

// ExtractBearer pulls the token out of an Authorization header value.
// The "Bearer " prefix is matched case-insensitively.
func ExtractBearer(header string) (string, error) {
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return "", ErrMalformedHeader
	}
	token := strings.TrimSpace(header[7:])
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}
