package session

import (
	"context"
	"errors"
)

// Store persists session records across process restarts.
// Implementations: JSON file store (prod), in-memory (tests, serve).
type Store interface {
	// Save writes a record, replacing any record with the same ID.
	Save(ctx context.Context, rec *Record) error

	// Get retrieves a record by ID.
	// Returns ErrRecordNotFound if no such record exists.
	Get(ctx context.Context, id string) (*Record, error)

	// Newest returns the most recently used record for a chain, the one
	// silent restore should try first.
	// Returns ErrRecordNotFound when the store holds none for chainID.
	Newest(ctx context.Context, chainID string) (*Record, error)

	// List returns all records, newest first.
	List(ctx context.Context) ([]*Record, error)

	// Delete removes a record. Deleting an absent record is not an error.
	Delete(ctx context.Context, id string) error
}

// ErrRecordNotFound is returned when no session record matches.
var ErrRecordNotFound = errors.New("session record not found")
