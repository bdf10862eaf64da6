// Package memory provides in-memory implementations of outbound ports.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Respawn-Gate/Respawngate/internal/domain/session"
)

// Defaults for the idle sweep. Records idle beyond the TTL are dropped,
// forcing a fresh wallet approval on the next login.
const (
	DefaultIdleTTL         = 720 * time.Hour
	DefaultCleanupInterval = 1 * time.Minute
)

// SessionStore implements session.Store with an in-memory map.
// Thread-safe for concurrent access. Nothing survives a restart; the
// serve path and tests use it, the CLI persists to sessions.json instead.
// A background cleanup goroutine removes idle records periodically.
type SessionStore struct {
	records         map[string]*session.Record
	mu              sync.RWMutex
	stopChan        chan struct{}
	wg              sync.WaitGroup
	idleTTL         time.Duration
	cleanupInterval time.Duration
	once            sync.Once // Prevent double-close panic on Stop()
}

// NewSessionStore creates an in-memory session store with default TTL
// and cleanup interval.
func NewSessionStore() *SessionStore {
	return NewSessionStoreWithConfig(DefaultIdleTTL, DefaultCleanupInterval)
}

// NewSessionStoreWithConfig creates an in-memory session store with a
// custom idle TTL and cleanup interval. An idleTTL of zero or less
// disables expiry.
func NewSessionStoreWithConfig(idleTTL, cleanupInterval time.Duration) *SessionStore {
	return &SessionStore{
		records:         make(map[string]*session.Record),
		stopChan:        make(chan struct{}),
		idleTTL:         idleTTL,
		cleanupInterval: cleanupInterval,
	}
}

// StartCleanup starts the background cleanup goroutine, which
// periodically removes records idle beyond the TTL.
// Call Stop() to stop it gracefully.
func (s *SessionStore) StartCleanup(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.cleanup()
			}
		}
	}()
}

// cleanup removes all idle-expired records from the store.
func (s *SessionStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	cleaned := 0
	for id, rec := range s.records {
		if s.expired(rec, now) {
			delete(s.records, id)
			cleaned++
		}
	}

	if cleaned > 0 {
		slog.Debug("cleaned idle session records", "count", cleaned)
	}
}

// Stop stops the background cleanup goroutine and waits for it to exit.
// Safe to call multiple times.
func (s *SessionStore) Stop() {
	s.once.Do(func() {
		close(s.stopChan)
	})
	s.wg.Wait()
}

// Save writes a record, replacing any record with the same ID.
func (s *SessionStore) Save(ctx context.Context, rec *session.Record) error {
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("session record needs an id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Store a copy to prevent external mutation
	c := *rec
	s.records[rec.ID] = &c
	return nil
}

// Get retrieves a record by ID.
// Returns session.ErrRecordNotFound if no record exists or it is idle
// beyond the TTL. Expired records are NOT deleted here; the background
// cleanup handles deletion.
func (s *SessionStore) Get(ctx context.Context, id string) (*session.Record, error) {
	s.mu.RLock()
	rec, ok := s.records[id]
	s.mu.RUnlock()

	if !ok || s.expired(rec, time.Now().UTC()) {
		return nil, session.ErrRecordNotFound
	}

	c := *rec
	return &c, nil
}

// Newest returns the most recently used live record for a chain.
func (s *SessionStore) Newest(ctx context.Context, chainID string) (*session.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now().UTC()
	var newest *session.Record
	for _, rec := range s.records {
		if rec.ChainID != chainID || s.expired(rec, now) {
			continue
		}
		if newest == nil || rec.LastUsed.After(newest.LastUsed) {
			newest = rec
		}
	}
	if newest == nil {
		return nil, session.ErrRecordNotFound
	}
	c := *newest
	return &c, nil
}

// List returns all live records, newest first.
func (s *SessionStore) List(ctx context.Context) ([]*session.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now().UTC()
	recs := make([]*session.Record, 0, len(s.records))
	for _, rec := range s.records {
		if s.expired(rec, now) {
			continue
		}
		c := *rec
		recs = append(recs, &c)
	}
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].LastUsed.After(recs[j].LastUsed)
	})
	return recs, nil
}

// Delete removes a record. Deleting an absent record is not an error.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, id)
	return nil
}

// Size returns the number of records currently held, expired ones
// included. Feeds the sessions gauge and cleanup tests.
func (s *SessionStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *SessionStore) expired(rec *session.Record, now time.Time) bool {
	return s.idleTTL > 0 && rec.IdleSince(now) > s.idleTTL
}

// Compile-time interface verification.
var _ session.Store = (*SessionStore)(nil)
