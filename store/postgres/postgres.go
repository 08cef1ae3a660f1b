// Package postgres implements relay.ConversationStore on PostgreSQL.
//
// Store accepts an externally-owned *pgxpool.Pool via constructor
// injection. The caller creates and closes the pool.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okonen/relay"
)

// Store persists conversation threads in PostgreSQL. Thread names map to
// generated thread ids; the mapping lives in the threads table.
type Store struct {
	pool *pgxpool.Pool
}

var _ relay.ConversationStore = (*Store)(nil)

// New creates a Store using an existing pgxpool.Pool.
// The caller owns the pool and is responsible for closing it.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Init creates the required tables and indexes.
// Safe to call multiple times (all statements are idempotent).
func (s *Store) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS threads (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			created_at BIGINT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			thread_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			metadata JSONB,
			created_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS messages_thread_idx ON messages(thread_id, id)`,
	}

	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: init schema: %w", err)
		}
	}
	return nil
}

// threadID returns the id mapped to a thread name, creating the thread on
// first use. Concurrent creators race through ON CONFLICT and converge on
// a single row.
func (s *Store) threadID(ctx context.Context, name string) (string, error) {
	var id string
	err := s.pool.QueryRow(ctx,
		`SELECT id FROM threads WHERE name = $1`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != pgx.ErrNoRows {
		return "", fmt.Errorf("postgres: lookup thread %q: %w", name, err)
	}

	id = relay.NewID()
	err = s.pool.QueryRow(ctx,
		`INSERT INTO threads (id, name, created_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id`,
		id, name, relay.NowUnix()).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("postgres: create thread %q: %w", name, err)
	}
	return id, nil
}

// AppendMessage persists one turn on the named thread.
func (s *Store) AppendMessage(ctx context.Context, thread string, role relay.Role, content string, metadata map[string]string) error {
	id, err := s.threadID(ctx, thread)
	if err != nil {
		return err
	}

	var meta any
	if len(metadata) > 0 {
		meta = metadata
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO messages (id, thread_id, role, content, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		relay.NewID(), id, string(role), content, meta, relay.NowUnix())
	if err != nil {
		return fmt.Errorf("postgres: append message: %w", err)
	}
	return nil
}

// Retrieve returns the thread's turns in chronological order. Message ids
// are UUIDv7 and therefore time-sortable; ordering by id keeps turns
// appended within the same second in insertion order. An unknown thread
// yields an empty slice, not an error.
func (s *Store) Retrieve(ctx context.Context, thread string, maxRecent int) ([]relay.Turn, error) {
	var threadID string
	err := s.pool.QueryRow(ctx,
		`SELECT id FROM threads WHERE name = $1`, thread).Scan(&threadID)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: lookup thread %q: %w", thread, err)
	}

	query := `SELECT role, content FROM messages WHERE thread_id = $1 ORDER BY id`
	args := []any{threadID}
	if maxRecent > 0 {
		query = `SELECT role, content FROM (
			SELECT id, role, content FROM messages WHERE thread_id = $1 ORDER BY id DESC LIMIT $2
		) recent ORDER BY id`
		args = append(args, maxRecent)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: retrieve thread %q: %w", thread, err)
	}
	defer rows.Close()

	var turns []relay.Turn
	for rows.Next() {
		var role, content string
		if err := rows.Scan(&role, &content); err != nil {
			return nil, fmt.Errorf("postgres: scan message: %w", err)
		}
		turns = append(turns, relay.Turn{Role: relay.Role(role), Content: content})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate messages: %w", err)
	}
	return turns, nil
}
