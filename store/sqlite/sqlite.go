// Package sqlite implements relay.ConversationStore on pure-Go SQLite.
// Zero CGO required.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/okonen/relay"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets a structured logger for store operations.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// Store persists conversation threads in a local SQLite file. Thread
// names map to generated thread ids; the mapping lives in the threads
// table and survives restarts.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ relay.ConversationStore = (*Store)(nil)

// New creates a Store at dbPath. It opens a single shared connection pool
// with SetMaxOpenConns(1) so all goroutines serialize through one
// connection, eliminating SQLITE_BUSY errors from concurrent writers.
func New(dbPath string, opts ...StoreOption) *Store {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		// sql.Open only fails when the driver is not registered; with the
		// blank import above that never happens.
		panic(fmt.Sprintf("sqlite: open driver: %v", err))
	}
	db.SetMaxOpenConns(1)
	s := &Store{db: db, logger: slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(127)}))}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Init creates the required tables.
func (s *Store) Init(ctx context.Context) error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS threads (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			thread_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			metadata TEXT,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_thread ON messages(thread_id, id)`,
	}
	for _, ddl := range tables {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// threadID returns the id mapped to a thread name, creating the thread on
// first use.
func (s *Store) threadID(ctx context.Context, name string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM threads WHERE name = ?`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("lookup thread %q: %w", name, err)
	}

	id = relay.NewID()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO threads (id, name, created_at) VALUES (?, ?, ?)`,
		id, name, relay.NowUnix())
	if err != nil {
		return "", fmt.Errorf("create thread %q: %w", name, err)
	}
	s.logger.Debug("sqlite: thread created", "name", name, "id", id)
	return id, nil
}

// AppendMessage persists one turn on the named thread.
func (s *Store) AppendMessage(ctx context.Context, thread string, role relay.Role, content string, metadata map[string]string) error {
	id, err := s.threadID(ctx, thread)
	if err != nil {
		return err
	}

	var meta sql.NullString
	if len(metadata) > 0 {
		raw, err := json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		meta = sql.NullString{String: string(raw), Valid: true}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO messages (id, thread_id, role, content, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		relay.NewID(), id, string(role), content, meta, relay.NowUnix())
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// Retrieve returns the thread's turns in chronological order. Message ids
// are UUIDv7 and therefore time-sortable; ordering by id keeps turns
// appended within the same second in insertion order. An unknown thread
// yields an empty slice, not an error.
func (s *Store) Retrieve(ctx context.Context, thread string, maxRecent int) ([]relay.Turn, error) {
	var threadID string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM threads WHERE name = ?`, thread).Scan(&threadID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup thread %q: %w", thread, err)
	}

	query := `SELECT role, content FROM messages WHERE thread_id = ? ORDER BY id`
	args := []any{threadID}
	if maxRecent > 0 {
		query = `SELECT role, content FROM (
			SELECT id, role, content FROM messages WHERE thread_id = ? ORDER BY id DESC LIMIT ?
		) ORDER BY id`
		args = append(args, maxRecent)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("retrieve thread %q: %w", thread, err)
	}
	defer rows.Close()

	var turns []relay.Turn
	for rows.Next() {
		var role, content string
		if err := rows.Scan(&role, &content); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		turns = append(turns, relay.Turn{Role: relay.Role(role), Content: content})
	}
	return turns, rows.Err()
}
