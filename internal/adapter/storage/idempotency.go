package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrIdempotencyInFlight is returned by Claim while another request holds the key.
var ErrIdempotencyInFlight = errors.New("idempotency key is in flight")

// CachedResponse is the response replayed for a repeated Idempotency-Key.
type CachedResponse struct {
	Status int
	Body   []byte
}

// IdempotencyStore remembers the first response produced for each key.
//
// Claim reserves a key before the request runs. claimed is true for the first
// caller only; later callers get the recorded response, or
// ErrIdempotencyInFlight until Save or Release is called for the key.
type IdempotencyStore interface {
	Claim(ctx context.Context, key string) (resp CachedResponse, claimed bool, err error)
	Save(ctx context.Context, key string, resp CachedResponse) error
	Release(ctx context.Context, key string) error
}

type idempotencyEntry struct {
	done bool
	resp CachedResponse
}

type MemoryIdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]*idempotencyEntry
}

func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{entries: make(map[string]*idempotencyEntry)}
}

func (s *MemoryIdempotencyStore) Claim(_ context.Context, key string) (CachedResponse, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		s.entries[key] = &idempotencyEntry{}
		return CachedResponse{}, true, nil
	}
	if !e.done {
		return CachedResponse{}, false, ErrIdempotencyInFlight
	}
	return e.resp, false, nil
}

// Save keeps the first response; later saves for the same key are ignored.
func (s *MemoryIdempotencyStore) Save(_ context.Context, key string, resp CachedResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok && e.done {
		return nil
	}
	body := make([]byte, len(resp.Body))
	copy(body, resp.Body)
	s.entries[key] = &idempotencyEntry{done: true, resp: CachedResponse{Status: resp.Status, Body: body}}
	return nil
}

// Release drops a pending claim. A saved response is kept.
func (s *MemoryIdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok && !e.done {
		delete(s.entries, key)
	}
	return nil
}

type PostgresIdempotencyStore struct {
	Db *pgxpool.Pool
}

func NewPostgresIdempotencyStore(db *pgxpool.Pool) *PostgresIdempotencyStore {
	return &PostgresIdempotencyStore{Db: db}
}

// Claim inserts a pending row; the primary key decides the single winner.
func (s *PostgresIdempotencyStore) Claim(ctx context.Context, key string) (CachedResponse, bool, error) {
	tag, err := s.Db.Exec(ctx,
		"INSERT INTO idempotency_keys (key_id) VALUES ($1) ON CONFLICT DO NOTHING", key)
	if err != nil {
		return CachedResponse{}, false, fmt.Errorf("failed to claim idempotency key: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return CachedResponse{}, true, nil
	}

	var (
		status *int
		body   []byte
	)
	err = s.Db.QueryRow(ctx,
		"SELECT response_status, response_body FROM idempotency_keys WHERE key_id = $1",
		key).Scan(&status, &body)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && status == nil) {
		// Released between the insert and the read, or still running.
		return CachedResponse{}, false, ErrIdempotencyInFlight
	}
	if err != nil {
		return CachedResponse{}, false, fmt.Errorf("failed to read idempotency key: %w", err)
	}
	return CachedResponse{Status: *status, Body: body}, false, nil
}

func (s *PostgresIdempotencyStore) Save(ctx context.Context, key string, resp CachedResponse) error {
	_, err := s.Db.Exec(ctx,
		`INSERT INTO idempotency_keys (key_id, response_status, response_body) VALUES ($1, $2, $3)
		 ON CONFLICT (key_id) DO UPDATE SET response_status = EXCLUDED.response_status, response_body = EXCLUDED.response_body
		 WHERE idempotency_keys.response_status IS NULL`,
		key, resp.Status, resp.Body)
	if err != nil {
		return fmt.Errorf("failed to save idempotency key: %w", err)
	}
	return nil
}

func (s *PostgresIdempotencyStore) Release(ctx context.Context, key string) error {
	_, err := s.Db.Exec(ctx,
		"DELETE FROM idempotency_keys WHERE key_id = $1 AND response_status IS NULL", key)
	if err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}
