package transcribe

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

// DefaultListLimit bounds GET /transcriptions.
const DefaultListLimit = 50

// Transcription is one archived transcript.
type Transcription struct {
	ID                string    `json:"id"`
	UserID            string    `json:"-"`
	Text              string    `json:"text"`
	Language          string    `json:"language"`
	RequestedLanguage string    `json:"requestedLanguage"`
	CreatedAt         time.Time `json:"createdAt"`
}

// Store persists transcripts.
type Store interface {
	Save(ctx context.Context, t Transcription) error
	ListByUser(ctx context.Context, userID string, limit int) ([]Transcription, error)
}

func validate(t Transcription) error {
	if strings.TrimSpace(t.ID) == "" || strings.TrimSpace(t.UserID) == "" || t.CreatedAt.IsZero() {
		return ErrInvalidInput
	}
	return nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > DefaultListLimit {
		return DefaultListLimit
	}
	return limit
}

// SQLStore is the Postgres archive, accessed through database/sql.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) (*SQLStore, error) {
	if db == nil {
		return nil, errors.New("transcribe: nil db")
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Save(ctx context.Context, t Transcription) error {
	if err := validate(t); err != nil {
		return err
	}
	const q = `
INSERT INTO transcriptions (id, user_id, text, language, requested_language, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
`
	if _, err := s.db.ExecContext(ctx, q, t.ID, t.UserID, t.Text, t.Language, t.RequestedLanguage, t.CreatedAt.UTC()); err != nil {
		return fmt.Errorf("transcribe: insert transcription: %w", err)
	}
	return nil
}

func (s *SQLStore) ListByUser(ctx context.Context, userID string, limit int) ([]Transcription, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidInput
	}
	const q = `
SELECT id, user_id, text, language, requested_language, created_at
FROM transcriptions
WHERE user_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2
`
	rows, err := s.db.QueryContext(ctx, q, userID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("transcribe: list transcriptions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]Transcription, 0)
	for rows.Next() {
		var t Transcription
		if err := rows.Scan(&t.ID, &t.UserID, &t.Text, &t.Language, &t.RequestedLanguage, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("transcribe: scan transcription: %w", err)
		}
		t.CreatedAt = t.CreatedAt.UTC()
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("transcribe: iterate transcriptions: %w", err)
	}
	return out, nil
}

// MemoryStore keeps transcripts in process (dev mode and tests).
type MemoryStore struct {
	mu    sync.Mutex
	items []Transcription
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Save(_ context.Context, t Transcription) error {
	if err := validate(t); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, t)
	return nil
}

func (s *MemoryStore) ListByUser(_ context.Context, userID string, limit int) ([]Transcription, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidInput
	}
	s.mu.Lock()
	out := make([]Transcription, 0)
	for _, t := range s.items {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	s.mu.Unlock()

	slices.SortFunc(out, func(a, b Transcription) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	if n := clampLimit(limit); len(out) > n {
		out = out[:n]
	}
	return out, nil
}
