// Package auth issues and verifies the HS256 bearer tokens that identify a
// caller, and carries the resulting user id through request contexts.
package auth

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is the lifetime of tokens issued by GenerateToken when the
// manager was built with a zero ttl.
const DefaultTTL = 24 * time.Hour

var (
	// ErrNoToken is returned when a request carries no bearer token.
	ErrNoToken = errors.New("no token provided")
	// ErrInvalidToken is returned for tokens that fail verification or
	// carry no user id.
	ErrInvalidToken = errors.New("invalid token")
)

// UserID is the user_id claim. Tokens may encode it as a JSON string or a
// JSON number; both decode to the same textual id.
type UserID string

// UnmarshalJSON accepts "42", 42 and null.
func (u *UserID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*u = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("user_id: %w", err)
		}
		*u = UserID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("user_id must be a string or number: %w", err)
	}
	if i, err := n.Int64(); err == nil {
		*u = UserID(strconv.FormatInt(i, 10))
		return nil
	}
	*u = UserID(n.String())
	return nil
}

// Claims are the JWT claims understood by the service.
type Claims struct {
	UserID UserID `json:"user_id,omitempty"`
	jwt.RegisteredClaims
}

// User returns the user id, falling back to the subject claim.
func (c *Claims) User() string {
	if c.UserID != "" {
		return string(c.UserID)
	}
	return c.Subject
}

// Manager creates and validates tokens signed with a shared secret.
type Manager struct {
	secret []byte
	ttl    time.Duration
}

// NewManager returns a Manager for secret. An empty secret is an error.
func NewManager(secret string, ttl time.Duration) (*Manager, error) {
	if secret == "" {
		return nil, errors.New("JWT secret is required but was empty")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{secret: []byte(secret), ttl: ttl}, nil
}

// GenerateToken signs a token for userID valid for the manager's ttl.
func (m *Manager) GenerateToken(userID string) (string, error) {
	if userID == "" {
		return "", errors.New("user id is required")
	}

	now := time.Now()
	claims := &Claims{
		UserID: UserID(userID),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken verifies the signature and time claims of tokenString and
// returns its claims. Only HMAC signing methods are accepted.
func (m *Manager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.User() == "" {
		return nil, fmt.Errorf("%w: missing user_id", ErrInvalidToken)
	}
	return claims, nil
}
