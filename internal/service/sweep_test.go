package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeProofStorage struct {
	mu      sync.Mutex
	deleted []string
	failKey string
}

func (f *fakeProofStorage) DeleteProof(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if key == f.failKey {
		return fmt.Errorf("storage unavailable")
	}
	f.deleted = append(f.deleted, key)
	return nil
}

func TestSweepReclaimsOrphans(t *testing.T) {
	ledger := newMemoryLedger()
	ctx := context.Background()

	_, err := ledger.RecordUpload(ctx, "u1-100.png", "u1")
	require.NoError(t, err)

	linkedID, err := ledger.RecordUpload(ctx, "u1-200.png", "u1")
	require.NoError(t, err)
	require.NoError(t, ledger.MarkLinked(ctx, linkedID))

	storage := &fakeProofStorage{}
	sweeper := NewProofSweeper(ledger, storage, SweepConfig{
		Interval:        time.Hour,
		OrphanThreshold: time.Nanosecond,
	}, zap.NewNop())

	time.Sleep(time.Millisecond)

	reclaimed, err := sweeper.RunNow()
	require.NoError(t, err)
	assert.Equal(t, 1, reclaimed)
	assert.Equal(t, []string{"u1-100.png"}, storage.deleted)

	// the linked row survives; a second pass finds nothing
	reclaimed, err = sweeper.RunNow()
	require.NoError(t, err)
	assert.Zero(t, reclaimed)
}

func TestSweepKeepsRowWhenDeleteFails(t *testing.T) {
	ledger := newMemoryLedger()
	ctx := context.Background()

	_, err := ledger.RecordUpload(ctx, "u1-300.png", "u1")
	require.NoError(t, err)

	storage := &fakeProofStorage{failKey: "u1-300.png"}
	sweeper := NewProofSweeper(ledger, storage, SweepConfig{
		Interval:        time.Hour,
		OrphanThreshold: time.Nanosecond,
	}, zap.NewNop())

	time.Sleep(time.Millisecond)

	reclaimed, err := sweeper.RunNow()
	require.NoError(t, err)
	assert.Zero(t, reclaimed)

	// the row stays for the next pass
	orphans, err := ledger.ListOrphans(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, orphans, 1)
}

func TestSweepStopIsIdempotent(t *testing.T) {
	sweeper := NewProofSweeper(newMemoryLedger(), &fakeProofStorage{}, SweepConfig{Interval: time.Hour}, zap.NewNop())
	sweeper.Start()
	sweeper.Stop()
	sweeper.Stop()
}
