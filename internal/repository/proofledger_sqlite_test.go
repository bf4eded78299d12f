package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLedger(t *testing.T) *SQLiteProofLedger {
	t.Helper()

	ledger, err := NewSQLiteProofLedger(filepath.Join(t.TempDir(), "proofs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { ledger.Close() })
	return ledger
}

func TestLedgerRecordAndLink(t *testing.T) {
	ledger := testLedger(t)
	ctx := context.Background()

	id, err := ledger.RecordUpload(ctx, "u1-1700000000000.png", "u1")
	require.NoError(t, err)
	require.NotZero(t, id)

	// fresh and unlinked: visible as orphan only past the threshold
	orphans, err := ledger.ListOrphans(ctx, time.Hour)
	require.NoError(t, err)
	assert.Empty(t, orphans)

	orphans, err = ledger.ListOrphans(ctx, -time.Second)
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, id, orphans[0].ID)
	assert.Equal(t, "u1-1700000000000.png", orphans[0].ObjectKey)
	assert.Equal(t, "u1", orphans[0].UserID)
	assert.False(t, orphans[0].Linked)

	// linking removes it from every orphan listing
	require.NoError(t, ledger.MarkLinked(ctx, id))
	orphans, err = ledger.ListOrphans(ctx, -time.Second)
	require.NoError(t, err)
	assert.Empty(t, orphans)
}

func TestLedgerDelete(t *testing.T) {
	ledger := testLedger(t)
	ctx := context.Background()

	id, err := ledger.RecordUpload(ctx, "u2-1700000000001.jpg", "u2")
	require.NoError(t, err)

	require.NoError(t, ledger.Delete(ctx, id))

	orphans, err := ledger.ListOrphans(ctx, -time.Second)
	require.NoError(t, err)
	assert.Empty(t, orphans)
}

func TestLedgerDuplicateKeyRejected(t *testing.T) {
	ledger := testLedger(t)
	ctx := context.Background()

	_, err := ledger.RecordUpload(ctx, "u1-1700000000002.png", "u1")
	require.NoError(t, err)

	_, err = ledger.RecordUpload(ctx, "u1-1700000000002.png", "u1")
	assert.Error(t, err)
}

func TestLedgerListsOnlyUnlinked(t *testing.T) {
	ledger := testLedger(t)
	ctx := context.Background()

	orphanID, err := ledger.RecordUpload(ctx, "u1-a.png", "u1")
	require.NoError(t, err)

	linkedID, err := ledger.RecordUpload(ctx, "u1-b.png", "u1")
	require.NoError(t, err)
	require.NoError(t, ledger.MarkLinked(ctx, linkedID))

	orphans, err := ledger.ListOrphans(ctx, -time.Second)
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, orphanID, orphans[0].ID)
}
