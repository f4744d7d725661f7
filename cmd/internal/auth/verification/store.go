package verification

import (
	"context"
	"time"
)

// Record is one persisted token. Only the hash of the token is stored.
type Record struct {
	TokenHash  string
	Identifier string
	Purpose    Purpose
	Expires    time.Time
	CreatedAt  time.Time
}

// Store persists verification tokens.
type Store interface {
	// Insert adds rec. A duplicate hash yields ErrConflict.
	Insert(ctx context.Context, rec Record) error

	// Replace deletes every token for (rec.Identifier, rec.Purpose) and inserts rec,
	// as one step with respect to concurrent Replace calls for the same identifier.
	Replace(ctx context.Context, rec Record) (replaced int64, err error)

	// Take atomically deletes and returns the row matching hash and purpose.
	// Exactly one concurrent caller can receive a given row; the rest get ErrNotFound.
	Take(ctx context.Context, tokenHash string, purpose Purpose) (Record, error)

	// Delete removes a row by hash. Deleting an absent row is not an error.
	Delete(ctx context.Context, tokenHash string) error

	// PurgeExpired removes every row with expires <= now.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
