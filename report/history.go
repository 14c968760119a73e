package report

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// HistoryStore persists settled transactions to Postgres.
type HistoryStore struct {
	db *sql.DB
}

// NewHistoryStore opens the database and ensures the history table
// exists.
func NewHistoryStore(connStr string) (*HistoryStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach history database: %w", err)
	}

	schema := `CREATE TABLE IF NOT EXISTS tx_history (
		id         BIGSERIAL PRIMARY KEY,
		kind       TEXT        NOT NULL,
		tx_hash    TEXT        NOT NULL,
		summary    TEXT        NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create history table: %w", err)
	}
	return &HistoryStore{db: db}, nil
}

// Record inserts one settled transaction.
func (h *HistoryStore) Record(ctx context.Context, entry Entry) error {
	query := `INSERT INTO tx_history(kind, tx_hash, summary, created_at) VALUES ($1, $2, $3, $4)`
	if _, err := h.db.ExecContext(ctx, query, entry.Kind, entry.TxHash, entry.Summary, entry.Timestamp); err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}
	return nil
}

// Recent returns the latest n entries, newest first.
func (h *HistoryStore) Recent(ctx context.Context, n int) ([]Entry, error) {
	query := `SELECT kind, tx_hash, summary, created_at FROM tx_history ORDER BY created_at DESC LIMIT $1`
	rows, err := h.db.QueryContext(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Kind, &e.TxHash, &e.Summary, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history: %w", err)
	}
	return entries, nil
}

// Close releases the database handle.
func (h *HistoryStore) Close() error {
	return h.db.Close()
}
