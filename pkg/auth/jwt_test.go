package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestNewManager_RequiresSecret(t *testing.T) {
	if _, err := NewManager("", time.Hour); err == nil {
		t.Error("expected error for empty secret")
	}
}

func TestManager_RoundTrip(t *testing.T) {
	m, err := NewManager("test-secret", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	token, err := m.GenerateToken("42")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.User() != "42" {
		t.Errorf("User() = %q, want 42", claims.User())
	}
	if claims.ExpiresAt == nil || time.Until(claims.ExpiresAt.Time) > time.Hour {
		t.Errorf("unexpected expiry %v", claims.ExpiresAt)
	}
}

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestManager_ValidateToken(t *testing.T) {
	m, _ := NewManager("test-secret", time.Hour)
	future := jwt.NewNumericDate(time.Now().Add(time.Hour))

	tests := []struct {
		name     string
		token    string
		wantUser string
		wantErr  bool
	}{
		{
			name:     "numeric user_id",
			token:    sign(t, jwt.SigningMethodHS256, []byte("test-secret"), jwt.MapClaims{"user_id": 7, "exp": future.Unix()}),
			wantUser: "7",
		},
		{
			name:     "string user_id",
			token:    sign(t, jwt.SigningMethodHS256, []byte("test-secret"), jwt.MapClaims{"user_id": "alice"}),
			wantUser: "alice",
		},
		{
			name:     "subject fallback",
			token:    sign(t, jwt.SigningMethodHS256, []byte("test-secret"), jwt.MapClaims{"sub": "bob"}),
			wantUser: "bob",
		},
		{
			name:    "wrong secret",
			token:   sign(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"user_id": 1}),
			wantErr: true,
		},
		{
			name:    "expired",
			token:   sign(t, jwt.SigningMethodHS256, []byte("test-secret"), jwt.MapClaims{"user_id": 1, "exp": time.Now().Add(-time.Minute).Unix()}),
			wantErr: true,
		},
		{
			name:    "no user",
			token:   sign(t, jwt.SigningMethodHS256, []byte("test-secret"), jwt.MapClaims{"exp": future.Unix()}),
			wantErr: true,
		},
		{
			name:    "none algorithm",
			token:   sign(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, jwt.MapClaims{"user_id": 1}),
			wantErr: true,
		},
		{
			name:    "garbage",
			token:   "not.a.token",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := m.ValidateToken(tt.token)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidToken) {
					t.Errorf("expected ErrInvalidToken, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ValidateToken: %v", err)
			}
			if claims.User() != tt.wantUser {
				t.Errorf("User() = %q, want %q", claims.User(), tt.wantUser)
			}
		})
	}
}

func TestUserID_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in   string
		want UserID
	}{
		{`"abc"`, "abc"},
		{`12`, "12"},
		{`1.5`, "1.5"},
		{`null`, ""},
	}
	for _, tt := range tests {
		var u UserID
		if err := u.UnmarshalJSON([]byte(tt.in)); err != nil {
			t.Errorf("UnmarshalJSON(%s): %v", tt.in, err)
			continue
		}
		if u != tt.want {
			t.Errorf("UnmarshalJSON(%s) = %q, want %q", tt.in, u, tt.want)
		}
	}

	var u UserID
	if err := u.UnmarshalJSON([]byte(`{"a":1}`)); err == nil {
		t.Error("expected error for object")
	}
}
