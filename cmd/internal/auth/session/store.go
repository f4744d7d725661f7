package session

import (
	"context"
	"time"
)

// Session is a live session as seen by callers.
type Session struct {
	UserID    string
	Expires   time.Time
	CreatedAt time.Time
}

// Row mirrors the sessions table.
type Row struct {
	TokenHash string
	UserID    string
	Expires   time.Time
	CreatedAt time.Time
}

// Store abstracts persistence for sessions.
type Store interface {
	// Create inserts a new row.
	Create(ctx context.Context, row Row) error

	// Get returns the row for tokenHash if it expires after now, else ErrNotFound.
	Get(ctx context.Context, tokenHash string, now time.Time) (Row, error)

	// Delete removes the row; an absent row is not an error.
	Delete(ctx context.Context, tokenHash string) error

	// PurgeExpired removes rows with expires <= now.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
