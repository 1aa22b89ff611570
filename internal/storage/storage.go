package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BookEntry is a cached AI decision for one position.
type BookEntry struct {
	Key      string
	Depth    int
	Strategy string
	Column   int
	Outcome  string
	Value    int
	SavedAt  time.Time
}

type MoveBook interface {
	LookupMove(ctx context.Context, key string, depth int, strategy string) (BookEntry, bool, error)
	SaveMove(ctx context.Context, entry BookEntry) error
	Size(ctx context.Context) (int, error)
}

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, url string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (p *PostgresStore) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

func (p *PostgresStore) EnsureTables(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS move_book (
	board_key TEXT NOT NULL,
	depth INTEGER NOT NULL,
	strategy TEXT NOT NULL,
	best_column INTEGER NOT NULL,
	outcome TEXT NOT NULL,
	value INTEGER NOT NULL,
	saved_at TIMESTAMP NOT NULL DEFAULT NOW(),
	PRIMARY KEY (board_key, depth, strategy)
);
`)
	return err
}

func (p *PostgresStore) SaveMove(ctx context.Context, e BookEntry) error {
	if p == nil || p.pool == nil {
		return nil
	}
	_, err := p.pool.Exec(ctx, `INSERT INTO move_book (board_key, depth, strategy, best_column, outcome, value)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (board_key, depth, strategy) DO UPDATE
SET best_column = EXCLUDED.best_column, outcome = EXCLUDED.outcome, value = EXCLUDED.value, saved_at = NOW()`,
		e.Key, e.Depth, e.Strategy, e.Column, e.Outcome, e.Value)
	if err != nil {
		return fmt.Errorf("save move: %w", err)
	}
	return nil
}

func (p *PostgresStore) LookupMove(ctx context.Context, key string, depth int, strategy string) (BookEntry, bool, error) {
	if p == nil || p.pool == nil {
		return BookEntry{}, false, nil
	}
	e := BookEntry{Key: key, Depth: depth, Strategy: strategy}
	err := p.pool.QueryRow(ctx, `
SELECT best_column, outcome, value, saved_at
FROM move_book
WHERE board_key = $1 AND depth = $2 AND strategy = $3`, key, depth, strategy).
		Scan(&e.Column, &e.Outcome, &e.Value, &e.SavedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return BookEntry{}, false, nil
	}
	if err != nil {
		return BookEntry{}, false, fmt.Errorf("lookup move: %w", err)
	}
	return e, true, nil
}

// Size counts stored positions.
func (p *PostgresStore) Size(ctx context.Context) (int, error) {
	if p == nil || p.pool == nil {
		return 0, nil
	}
	var n int
	if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM move_book`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

type bookKey struct {
	key      string
	depth    int
	strategy string
}

// MemoryBook keeps entries in process. It is the fallback when no
// database is configured.
type MemoryBook struct {
	mu      sync.RWMutex
	entries map[bookKey]BookEntry
}

func NewMemoryBook() *MemoryBook {
	return &MemoryBook{entries: make(map[bookKey]BookEntry)}
}

func (m *MemoryBook) LookupMove(_ context.Context, key string, depth int, strategy string) (BookEntry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[bookKey{key, depth, strategy}]
	return e, ok, nil
}

func (m *MemoryBook) SaveMove(_ context.Context, e BookEntry) error {
	if e.SavedAt.IsZero() {
		e.SavedAt = time.Now()
	}
	m.mu.Lock()
	m.entries[bookKey{e.Key, e.Depth, e.Strategy}] = e
	m.mu.Unlock()
	return nil
}

func (m *MemoryBook) Size(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries), nil
}
