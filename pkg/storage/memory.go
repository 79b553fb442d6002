package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements Store in process memory.
// It is safe for concurrent use by multiple goroutines.
//
// Each user keeps at most maxEntries entries, oldest dropped first. If TTL
// is configured, a background goroutine removes entries older than the TTL.
// History is lost on restart; use RedisStore or PostgresStore to share or
// persist it.
type MemoryStore struct {
	mu            sync.RWMutex
	entries       map[string][]Entry // oldest first
	maxEntries    int
	ttl           time.Duration
	cleanupTicker *time.Ticker
	stopCleanup   chan struct{}
	cleanupDone   chan struct{}
	stopped       bool
	stopMu        sync.Mutex
}

// NewMemoryStore creates a store with no TTL.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries:    make(map[string][]Entry),
		maxEntries: DefaultMaxEntries,
	}
}

// NewMemoryStoreWithTTL creates a store that drops entries older than ttl.
// A background goroutine runs every cleanupInterval (default one minute).
//
// Stop must be called when the store is no longer needed.
func NewMemoryStoreWithTTL(ttl, cleanupInterval time.Duration) *MemoryStore {
	if ttl <= 0 {
		panic("TTL must be positive")
	}
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}

	store := &MemoryStore{
		entries:       make(map[string][]Entry),
		maxEntries:    DefaultMaxEntries,
		ttl:           ttl,
		cleanupTicker: time.NewTicker(cleanupInterval),
		stopCleanup:   make(chan struct{}),
		cleanupDone:   make(chan struct{}),
	}

	go store.runCleanup()

	return store
}

// Stop shuts down the cleanup goroutine and waits for it to exit.
// Calling Stop multiple times or on a store without TTL is safe.
func (s *MemoryStore) Stop() {
	if s.cleanupTicker == nil {
		return
	}

	s.stopMu.Lock()
	defer s.stopMu.Unlock()

	if s.stopped {
		return
	}

	close(s.stopCleanup)
	<-s.cleanupDone
	s.cleanupTicker.Stop()
	s.stopped = true
}

func (s *MemoryStore) runCleanup() {
	defer close(s.cleanupDone)

	for {
		select {
		case <-s.cleanupTicker.C:
			s.cleanup()
		case <-s.stopCleanup:
			return
		}
	}
}

// cleanup removes entries older than the TTL.
func (s *MemoryStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ttl == 0 {
		return
	}

	cutoff := time.Now().Add(-s.ttl)
	for user, list := range s.entries {
		i := 0
		for i < len(list) && list[i].CreatedAt.Before(cutoff) {
			i++
		}
		switch {
		case i == len(list):
			delete(s.entries, user)
		case i > 0:
			s.entries[user] = append([]Entry(nil), list[i:]...)
		}
	}
}

// Append adds an entry to the user's log.
func (s *MemoryStore) Append(ctx context.Context, e Entry) error {
	if err := checkEntry(e); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list := append(s.entries[e.UserID], e)
	if len(list) > s.maxEntries {
		list = list[len(list)-s.maxEntries:]
	}
	s.entries[e.UserID] = list
	return nil
}

// Recent returns up to limit entries for userID, newest first.
func (s *MemoryStore) Recent(ctx context.Context, userID string, limit int) ([]Entry, error) {
	if err := checkUserID(userID); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.entries[userID]
	n := min(clampLimit(limit), len(list))
	out := make([]Entry, 0, n)
	for i := len(list) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, list[i])
	}
	return out, nil
}

// Len returns the number of entries stored across all users.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, list := range s.entries {
		n += len(list)
	}
	return n
}
