package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"victor-smm-api/internal/model"
	"victor-smm-api/internal/notify"
	"victor-smm-api/internal/repository"
	"victor-smm-api/pkg/apierror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAccountStore struct {
	mu          sync.Mutex
	user        model.User
	orders      []model.Order
	deposits    []model.DepositRequest
	uploads     map[string][]byte
	insertErr   error
	purchaseErr error
	purchased   []string
}

func newFakeAccountStore(user model.User) *fakeAccountStore {
	return &fakeAccountStore{user: user, uploads: make(map[string][]byte)}
}

func (f *fakeAccountStore) FetchUser(ctx context.Context, accessToken, userID string) (*model.User, error) {
	if userID != f.user.ID {
		return nil, fmt.Errorf("fetch user: not found")
	}
	user := f.user
	return &user, nil
}

func (f *fakeAccountStore) FetchOrders(ctx context.Context, accessToken, userID string) ([]model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Order, len(f.orders))
	copy(out, f.orders)
	return out, nil
}

func (f *fakeAccountStore) FetchDeposits(ctx context.Context, accessToken, userID string) ([]model.DepositRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.DepositRequest, len(f.deposits))
	copy(out, f.deposits)
	return out, nil
}

func (f *fakeAccountStore) InsertDeposit(ctx context.Context, accessToken string, deposit model.DepositRequest) (model.DepositRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return model.DepositRequest{}, f.insertErr
	}
	deposit.ID = fmt.Sprintf("d-%d", len(f.deposits)+1)
	deposit.CreatedAt = time.Now()
	f.deposits = append(f.deposits, deposit)
	return deposit, nil
}

func (f *fakeAccountStore) UploadProof(ctx context.Context, key, contentType string, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads[key] = data
	return "https://storage.example/payment-proofs/" + key, nil
}

func (f *fakeAccountStore) InvokePurchase(ctx context.Context, accessToken, listingID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.purchaseErr != nil {
		return f.purchaseErr
	}
	f.purchased = append(f.purchased, listingID)
	return nil
}

// memoryLedger is an in-memory ProofLedger for service tests.
type memoryLedger struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]repository.ProofUpload
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{rows: make(map[int64]repository.ProofUpload)}
}

func (m *memoryLedger) RecordUpload(ctx context.Context, objectKey, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.rows[m.nextID] = repository.ProofUpload{
		ID:         m.nextID,
		ObjectKey:  objectKey,
		UserID:     userID,
		UploadedAt: time.Now(),
	}
	return m.nextID, nil
}

func (m *memoryLedger) MarkLinked(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return fmt.Errorf("ledger row %d not found", id)
	}
	row.Linked = true
	m.rows[id] = row
	return nil
}

func (m *memoryLedger) ListOrphans(ctx context.Context, olderThan time.Duration) ([]repository.ProofUpload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().Add(-olderThan)
	var orphans []repository.ProofUpload
	for _, row := range m.rows {
		if !row.Linked && row.UploadedAt.Before(cutoff) {
			orphans = append(orphans, row)
		}
	}
	return orphans, nil
}

func (m *memoryLedger) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

func (m *memoryLedger) Close() error { return nil }

func (m *memoryLedger) linkedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, row := range m.rows {
		if row.Linked {
			n++
		}
	}
	return n
}

func attachTestUser(t *testing.T, store *fakeAccountStore, ledger repository.ProofLedger) *AccountService {
	t.Helper()
	svc := NewAccountService(store, nil, ledger, zap.NewNop())
	require.NoError(t, svc.Attach(context.Background(), store.user.ID, "token"))
	return svc
}

func TestAccountAttachLoadsState(t *testing.T) {
	store := newFakeAccountStore(model.User{ID: "u1", Username: "alice", Balance: 50})
	store.orders = []model.Order{{ID: "o1", UserID: "u1", Amount: 10}}
	store.deposits = []model.DepositRequest{{ID: "d0", UserID: "u1", Amount: 20, Status: model.DepositStatusPending}}

	svc := attachTestUser(t, store, nil)

	user, ok := svc.Profile("u1")
	require.True(t, ok)
	assert.Equal(t, "alice", user.Username)
	assert.Len(t, svc.Orders("u1"), 1)
	assert.Len(t, svc.Deposits("u1"), 1)
}

func TestAccountDetachDropsState(t *testing.T) {
	store := newFakeAccountStore(model.User{ID: "u1", Username: "alice"})
	svc := attachTestUser(t, store, nil)

	// a second login holds a reference
	require.NoError(t, svc.Attach(context.Background(), "u1", "token2"))
	svc.Detach("u1")

	_, ok := svc.Profile("u1")
	assert.True(t, ok, "state survives while a reference remains")

	svc.Detach("u1")
	_, ok = svc.Profile("u1")
	assert.False(t, ok)
	assert.Nil(t, svc.Orders("u1"))
}

func TestSubmitDepositRejectsInvalidInput(t *testing.T) {
	store := newFakeAccountStore(model.User{ID: "u1"})
	svc := attachTestUser(t, store, nil)
	q := notify.NewQueue(time.Minute)

	err := svc.SubmitDeposit(context.Background(), q, "u1", "token", 0, "proof.png", "image/png", []byte("img"))
	require.Error(t, err)
	apiErr, ok := err.(*apierror.Error)
	require.True(t, ok)
	assert.Equal(t, "VALIDATION_ERROR", apiErr.Code)

	err = svc.SubmitDeposit(context.Background(), q, "u1", "token", -5, "proof.png", "image/png", []byte("img"))
	require.Error(t, err)

	err = svc.SubmitDeposit(context.Background(), q, "u1", "token", 100, "proof.png", "image/png", nil)
	require.Error(t, err)

	// nothing reached the remote side
	assert.Empty(t, store.uploads)
	assert.Empty(t, store.deposits)
}

func TestSubmitDepositHappyPath(t *testing.T) {
	store := newFakeAccountStore(model.User{ID: "u1"})
	ledger := newMemoryLedger()
	svc := attachTestUser(t, store, ledger)
	q := notify.NewQueue(time.Minute)

	err := svc.SubmitDeposit(context.Background(), q, "u1", "token", 150, "receipt.png", "image/png", []byte("img-bytes"))
	require.NoError(t, err)

	require.Len(t, store.deposits, 1)
	deposit := store.deposits[0]
	assert.Equal(t, "u1", deposit.UserID)
	assert.Equal(t, 150.0, deposit.Amount)
	assert.Equal(t, model.DepositStatusPending, deposit.Status)
	assert.Contains(t, deposit.PaymentProof, "payment-proofs/u1-")
	assert.True(t, strings.HasSuffix(deposit.PaymentProof, ".png"))

	// the object key is user-scoped and keeps the file extension
	require.Len(t, store.uploads, 1)
	for key := range store.uploads {
		assert.True(t, strings.HasPrefix(key, "u1-"))
		assert.True(t, strings.HasSuffix(key, ".png"))
	}

	// ledger row was linked once the insert succeeded
	assert.Equal(t, 1, ledger.linkedCount())

	// local mirror now shows the pending request
	assert.Len(t, svc.Deposits("u1"), 1)

	notes := q.Active()
	require.Len(t, notes, 1)
	assert.Equal(t, notify.TypeSuccess, notes[0].Type)
}

func TestSubmitDepositInsertFailureLeavesOrphan(t *testing.T) {
	store := newFakeAccountStore(model.User{ID: "u1"})
	store.insertErr = fmt.Errorf("permission denied")
	ledger := newMemoryLedger()
	svc := attachTestUser(t, store, ledger)
	q := notify.NewQueue(time.Minute)

	err := svc.SubmitDeposit(context.Background(), q, "u1", "token", 80, "receipt.jpg", "image/jpeg", []byte("img"))
	require.Error(t, err)

	// the upload happened but the row did not; the ledger keeps the
	// unlinked entry for the sweep
	assert.Len(t, store.uploads, 1)
	assert.Equal(t, 0, ledger.linkedCount())
	orphans, err := ledger.ListOrphans(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, orphans, 1)

	assert.Empty(t, svc.Deposits("u1"))
}

func TestPurchaseNotifications(t *testing.T) {
	store := newFakeAccountStore(model.User{ID: "u1"})
	svc := attachTestUser(t, store, nil)

	q := notify.NewQueue(time.Minute)
	require.NoError(t, svc.Purchase(context.Background(), q, "u1", "token", "l-9"))
	assert.Equal(t, []string{"l-9"}, store.purchased)

	store.purchaseErr = fmt.Errorf("Insufficient balance")
	require.Error(t, svc.Purchase(context.Background(), q, "u1", "token", "l-9"))

	notes := q.Active()
	require.Len(t, notes, 2)
	assert.Equal(t, "Purchase successful!", notes[0].Message)
	assert.Equal(t, notify.TypeError, notes[1].Type)
	assert.Contains(t, notes[1].Message, "Insufficient balance")
}

func TestPurchaseNeverMutatesLocalState(t *testing.T) {
	store := newFakeAccountStore(model.User{ID: "u1", Balance: 100})
	svc := attachTestUser(t, store, nil)

	q := notify.NewQueue(time.Minute)
	require.NoError(t, svc.Purchase(context.Background(), q, "u1", "token", "l-1"))

	user, ok := svc.Profile("u1")
	require.True(t, ok)
	assert.Equal(t, 100.0, user.Balance, "balance only changes on server-confirmed data")
	assert.Empty(t, svc.Orders("u1"))
}
