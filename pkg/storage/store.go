// Package storage keeps a per-user log of predictions.
//
// Three backends implement Store: MemoryStore for single-instance
// deployments and tests, RedisStore for shared short-lived history, and
// PostgresStore for durable history.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxEntries caps how many entries a capped backend keeps per user.
const DefaultMaxEntries = 500

// MaxRecent is the largest limit Recent accepts.
const MaxRecent = 100

// Entry is one logged prediction.
type Entry struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Type      string    `json:"type" db:"type"`
	Input     string    `json:"input" db:"input"`
	Value     float64   `json:"value" db:"value"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NewEntry stamps a new entry with a random ID and the current time.
func NewEntry(userID, typ, input string, value float64) Entry {
	return Entry{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      typ,
		Input:     input,
		Value:     value,
		CreatedAt: time.Now().UTC(),
	}
}

// Store is an append-only prediction log.
type Store interface {
	// Append records an entry.
	Append(ctx context.Context, e Entry) error
	// Recent returns up to limit entries of the user, newest first.
	Recent(ctx context.Context, userID string, limit int) ([]Entry, error)
}

// Pinger is implemented by backends with a connection worth health checking.
type Pinger interface {
	Ping(ctx context.Context) error
}

var (
	_ Pinger = (*RedisStore)(nil)
	_ Pinger = (*PostgresStore)(nil)
)

var errEmptyUser = errors.New("user id cannot be empty")

// checkUserID restricts user IDs to characters that are safe in keys.
func checkUserID(userID string) error {
	if userID == "" {
		return errEmptyUser
	}
	for _, c := range userID {
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
			(c >= '0' && c <= '9') || c == '-' || c == '_' || c == '.' || c == '@') {
			return fmt.Errorf("invalid user id %q: only alphanumeric, '-', '_', '.', '@' allowed", userID)
		}
	}
	return nil
}

func checkEntry(e Entry) error {
	if err := checkUserID(e.UserID); err != nil {
		return err
	}
	if e.ID == uuid.Nil {
		return errors.New("entry id cannot be empty")
	}
	return nil
}

// clampLimit bounds limit to [1, MaxRecent]; non-positive means MaxRecent.
func clampLimit(limit int) int {
	if limit <= 0 || limit > MaxRecent {
		return MaxRecent
	}
	return limit
}
