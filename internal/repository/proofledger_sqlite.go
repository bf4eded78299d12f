package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// SQLiteProofLedger implements ProofLedger on a local SQLite file.
// Thread-safe with WAL mode.
type SQLiteProofLedger struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteProofLedger opens (or creates) the ledger database.
func NewSQLiteProofLedger(dbPath string) (*SQLiteProofLedger, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite only supports 1 writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := createLedgerTable(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &SQLiteProofLedger{db: db}, nil
}

func createLedgerTable(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS proof_uploads (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		object_key TEXT NOT NULL UNIQUE,
		user_id TEXT NOT NULL,
		uploaded_at DATETIME NOT NULL,
		linked INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_proof_linked ON proof_uploads(linked, uploaded_at);
	`
	_, err := db.Exec(query)
	return err
}

// RecordUpload inserts a ledger row before the deposit insert runs.
func (l *SQLiteProofLedger) RecordUpload(ctx context.Context, objectKey, userID string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	result, err := l.db.ExecContext(ctx,
		`INSERT INTO proof_uploads (object_key, user_id, uploaded_at, linked) VALUES (?, ?, ?, 0)`,
		objectKey, userID, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to record upload: %w", err)
	}

	return result.LastInsertId()
}

// MarkLinked flags a row once its deposit insert succeeded.
func (l *SQLiteProofLedger) MarkLinked(ctx context.Context, id int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, err := l.db.ExecContext(ctx, `UPDATE proof_uploads SET linked = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to mark upload linked: %w", err)
	}
	return nil
}

// ListOrphans returns unlinked rows older than the threshold.
func (l *SQLiteProofLedger) ListOrphans(ctx context.Context, olderThan time.Duration) ([]ProofUpload, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	cutoff := time.Now().UTC().Add(-olderThan)

	rows, err := l.db.QueryContext(ctx,
		`SELECT id, object_key, user_id, uploaded_at, linked FROM proof_uploads WHERE linked = 0 AND uploaded_at < ?`,
		cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list orphans: %w", err)
	}
	defer rows.Close()

	var orphans []ProofUpload
	for rows.Next() {
		var p ProofUpload
		if err := rows.Scan(&p.ID, &p.ObjectKey, &p.UserID, &p.UploadedAt, &p.Linked); err != nil {
			return nil, fmt.Errorf("failed to scan orphan row: %w", err)
		}
		orphans = append(orphans, p)
	}

	return orphans, rows.Err()
}

// Delete removes a ledger row.
func (l *SQLiteProofLedger) Delete(ctx context.Context, id int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, err := l.db.ExecContext(ctx, `DELETE FROM proof_uploads WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete ledger row: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (l *SQLiteProofLedger) Close() error {
	return l.db.Close()
}

// Ensure SQLiteProofLedger implements ProofLedger
var _ ProofLedger = (*SQLiteProofLedger)(nil)
