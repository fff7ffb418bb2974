package numbering

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGSequencer keeps one counter row per (doc_type, year). The upsert takes a
// row lock, so concurrent callers serialise on it and never observe the same value.
type PGSequencer struct {
	pool *pgxpool.Pool
}

// NewPGSequencer constructs a Postgres-backed sequencer.
func NewPGSequencer(pool *pgxpool.Pool) *PGSequencer {
	return &PGSequencer{pool: pool}
}

// Next increments and returns the counter.
func (s *PGSequencer) Next(ctx context.Context, docType DocType, year int) (int64, error) {
	var seq int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO document_sequences (doc_type, year, seq)
		VALUES ($1, $2, 1)
		ON CONFLICT (doc_type, year)
		DO UPDATE SET seq = document_sequences.seq + 1, updated_at = NOW()
		RETURNING seq
	`, string(docType), year).Scan(&seq)
	if err != nil {
		return 0, err
	}
	return seq, nil
}

type seqKey struct {
	docType DocType
	year    int
}

// MemorySequencer is an in-process Sequencer for tests and tooling.
type MemorySequencer struct {
	mu       sync.Mutex
	counters map[seqKey]int64
}

// NewMemorySequencer constructs an empty MemorySequencer.
func NewMemorySequencer() *MemorySequencer {
	return &MemorySequencer{counters: make(map[seqKey]int64)}
}

// Next increments and returns the counter.
func (s *MemorySequencer) Next(_ context.Context, docType DocType, year int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := seqKey{docType: docType, year: year}
	s.counters[key]++
	return s.counters[key], nil
}
