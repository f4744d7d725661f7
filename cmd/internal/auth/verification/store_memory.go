package verification

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used when no database is configured.
type MemoryStore struct {
	mu   sync.Mutex
	rows map[string]Record
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string]Record)}
}

func (s *MemoryStore) Insert(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rows[rec.TokenHash]; ok {
		return ErrConflict
	}
	s.rows[rec.TokenHash] = rec
	return nil
}

func (s *MemoryStore) Replace(ctx context.Context, rec Record) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rows[rec.TokenHash]; ok {
		return 0, ErrConflict
	}
	var n int64
	for h, r := range s.rows {
		if r.Identifier == rec.Identifier && r.Purpose == rec.Purpose {
			delete(s.rows, h)
			n++
		}
	}
	s.rows[rec.TokenHash] = rec
	return n, nil
}

func (s *MemoryStore) Take(ctx context.Context, tokenHash string, purpose Purpose) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.rows[tokenHash]
	if !ok || rec.Purpose != purpose {
		return Record{}, ErrNotFound
	}
	delete(s.rows, tokenHash)
	return rec, nil
}

func (s *MemoryStore) Delete(ctx context.Context, tokenHash string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.rows, tokenHash)
	return nil
}

func (s *MemoryStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for h, r := range s.rows {
		if !r.Expires.After(now) {
			delete(s.rows, h)
			n++
		}
	}
	return n, nil
}

// Len reports the number of stored rows.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}
