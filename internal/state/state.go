// Package state persists which inbound messages the pipeline has already
// handled, so restarts never reprocess the same message.
//
// The store is a single-file SQLite database. Schema bootstrap is idempotent
// and tracked via PRAGMA user_version, so Open is safe on every start.
package state

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// Outcome statuses recorded for a message.
const (
	StatusProcessed = "processed"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"
)

// Record is one dedup entry keyed by message ID. A re-write with the same
// key overwrites the prior record.
type Record struct {
	MessageID    int64
	ChatID       string
	URL          string
	Status       string
	ErrorMessage string
	ProcessedAt  time.Time
}

// Stats aggregates record counts grouped by status.
type Stats struct {
	Total     int
	Processed int
	Failed    int
	Skipped   int
}

// Store wraps the SQLite connection holding processed-message records.
type Store struct {
	conn   *sql.DB
	path   string
	logger *zerolog.Logger
}

const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS processed_messages (
	message_id INTEGER PRIMARY KEY,
	chat_id TEXT NOT NULL,
	url TEXT,
	processed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	status TEXT DEFAULT 'processed',
	error_message TEXT
);
CREATE INDEX IF NOT EXISTS idx_message_id ON processed_messages(message_id);
`

// Open creates or opens the state database at dbPath and bootstraps the
// schema. Failure here is fatal for the process: running without dedup
// state would silently reprocess everything.
func Open(dbPath string, logger *zerolog.Logger) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open state database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()

		return nil, fmt.Errorf("set journal mode: %w", err)
	}

	if err := migrate(conn); err != nil {
		conn.Close()

		return nil, fmt.Errorf("migrate state schema: %w", err)
	}

	logger.Info().Str("path", dbPath).Msg("state database initialized")

	return &Store{conn: conn, path: dbPath, logger: logger}, nil
}

func migrate(conn *sql.DB) error {
	var version int
	if err := conn.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	if version >= schemaVersion {
		return nil
	}

	if _, err := conn.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	if _, err := conn.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("stamp schema version: %w", err)
	}

	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Ping checks store connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

// IsProcessed reports whether a record exists for messageID. Errors are
// propagated; callers decide whether to treat a store error as unprocessed.
func (s *Store) IsProcessed(ctx context.Context, messageID int64) (bool, error) {
	var one int

	err := s.conn.QueryRowContext(ctx,
		"SELECT 1 FROM processed_messages WHERE message_id = ?", messageID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("query processed message %d: %w", messageID, err)
	}

	return true, nil
}

// MarkProcessed upserts the record for messageID. Last write wins; calling
// it twice with the same ID leaves exactly one record.
func (s *Store) MarkProcessed(ctx context.Context, messageID int64, chatID, url, status, errorMessage string) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT OR REPLACE INTO processed_messages
		(message_id, chat_id, url, processed_at, status, error_message)
		VALUES (?, ?, ?, ?, ?, ?)`,
		messageID, chatID, nullable(url), time.Now().UTC(), status, nullable(errorMessage),
	)
	if err != nil {
		return fmt.Errorf("mark message %d: %w", messageID, err)
	}

	return nil
}

// Get returns the record for messageID, or nil when none exists.
func (s *Store) Get(ctx context.Context, messageID int64) (*Record, error) {
	var (
		rec      Record
		url      sql.NullString
		errorMsg sql.NullString
	)

	err := s.conn.QueryRowContext(ctx, `
		SELECT message_id, chat_id, url, processed_at, status, error_message
		FROM processed_messages WHERE message_id = ?`, messageID,
	).Scan(&rec.MessageID, &rec.ChatID, &url, &rec.ProcessedAt, &rec.Status, &errorMsg)
	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("get record %d: %w", messageID, err)
	}

	rec.URL = url.String
	rec.ErrorMessage = errorMsg.String

	return &rec, nil
}

// Stats returns aggregate record counts grouped by status.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	rows, err := s.conn.QueryContext(ctx,
		"SELECT status, COUNT(*) FROM processed_messages GROUP BY status")
	if err != nil {
		return Stats{}, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	var stats Stats

	for rows.Next() {
		var (
			status string
			count  int
		)

		if err := rows.Scan(&status, &count); err != nil {
			return Stats{}, fmt.Errorf("scan stats row: %w", err)
		}

		stats.Total += count

		switch status {
		case StatusProcessed:
			stats.Processed = count
		case StatusFailed:
			stats.Failed = count
		case StatusSkipped:
			stats.Skipped = count
		}
	}

	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("iterate stats rows: %w", err)
	}

	return stats, nil
}

// Prune deletes records older than maxAge and returns the number deleted.
// This is storage hygiene only; correctness never depends on pruning.
func (s *Store) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-maxAge)

	res, err := s.conn.ExecContext(ctx,
		"DELETE FROM processed_messages WHERE processed_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune records: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count pruned records: %w", err)
	}

	if deleted > 0 {
		s.logger.Info().Int64("deleted", deleted).Msg("pruned old state records")
	}

	return deleted, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}

	return s
}
