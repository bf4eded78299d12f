package repository

import (
	"context"
	"time"
)

// ProofUpload is one payment-proof object recorded locally at upload time.
// A row that never gets linked to a deposit insert marks an orphaned
// object in remote storage.
type ProofUpload struct {
	ID         int64
	ObjectKey  string
	UserID     string
	UploadedAt time.Time
	Linked     bool
}

// ProofLedger tracks payment-proof uploads so the sweep can reclaim
// objects whose deposit insert failed.
type ProofLedger interface {
	// RecordUpload inserts a ledger row before the deposit insert runs.
	RecordUpload(ctx context.Context, objectKey, userID string) (int64, error)

	// MarkLinked flags a row once its deposit insert succeeded.
	MarkLinked(ctx context.Context, id int64) error

	// ListOrphans returns unlinked rows older than the threshold.
	ListOrphans(ctx context.Context, olderThan time.Duration) ([]ProofUpload, error)

	// Delete removes a ledger row.
	Delete(ctx context.Context, id int64) error

	// Close closes the ledger.
	Close() error
}
