package service

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sync"
	"time"

	"victor-smm-api/internal/backend"
	"victor-smm-api/internal/model"
	"victor-smm-api/internal/notify"
	"victor-smm-api/internal/repository"
	"victor-smm-api/pkg/apierror"

	"go.uber.org/zap"
)

// AccountStore is the per-user slice of the remote service: the profile
// row, own orders and deposits, the purchase function, and proof storage.
type AccountStore interface {
	FetchUser(ctx context.Context, accessToken, userID string) (*model.User, error)
	FetchOrders(ctx context.Context, accessToken, userID string) ([]model.Order, error)
	FetchDeposits(ctx context.Context, accessToken, userID string) ([]model.DepositRequest, error)
	InsertDeposit(ctx context.Context, accessToken string, deposit model.DepositRequest) (model.DepositRequest, error)
	UploadProof(ctx context.Context, key, contentType string, data []byte) (string, error)
	InvokePurchase(ctx context.Context, accessToken, listingID string) error
}

// userState is the cached remote state of one attached user.
type userState struct {
	user        *model.User
	orders      []model.Order
	deposits    []model.DepositRequest
	accessToken string
	refs        int
	streams     []backend.Stream
	stop        chan struct{}
}

// AccountService mirrors each authenticated user's orders, deposits and
// profile, kept fresh by three per-user realtime channels. State attaches
// on login and detaches on logout.
type AccountService struct {
	store  AccountStore
	rt     Realtime
	ledger repository.ProofLedger
	log    *zap.Logger

	mu     sync.RWMutex
	states map[string]*userState
}

// NewAccountService creates the per-user cache.
func NewAccountService(store AccountStore, rt Realtime, ledger repository.ProofLedger, log *zap.Logger) *AccountService {
	return &AccountService{
		store:  store,
		rt:     rt,
		ledger: ledger,
		log:    log,
		states: make(map[string]*userState),
	}
}

// Attach loads a user's remote state and subscribes to their change
// channels. Ref-counted: a second login from another device reuses the
// existing state.
func (s *AccountService) Attach(ctx context.Context, userID, accessToken string) error {
	s.mu.Lock()
	if state, ok := s.states[userID]; ok {
		state.refs++
		state.accessToken = accessToken
		s.mu.Unlock()
		return nil
	}

	state := &userState{
		accessToken: accessToken,
		refs:        1,
		stop:        make(chan struct{}),
	}
	s.states[userID] = state
	s.mu.Unlock()

	user, err := s.store.FetchUser(ctx, accessToken, userID)
	if err != nil {
		s.mu.Lock()
		delete(s.states, userID)
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	state.user = user
	s.mu.Unlock()

	if err := s.refreshUserData(ctx, userID); err != nil {
		s.log.Warn("initial account fetch failed", zap.String("user_id", userID), zap.Error(err))
	}

	if s.rt != nil {
		s.subscribeUser(userID, state)
	}

	return nil
}

// Detach drops one reference; the last detach tears the state down.
func (s *AccountService) Detach(userID string) {
	s.mu.Lock()
	state, ok := s.states[userID]
	if !ok {
		s.mu.Unlock()
		return
	}
	state.refs--
	if state.refs > 0 {
		s.mu.Unlock()
		return
	}
	delete(s.states, userID)
	s.mu.Unlock()

	close(state.stop)
	for _, stream := range state.streams {
		_ = stream.Close()
	}
}

// subscribeUser opens the three per-user channels: orders, deposits, and
// the user's own row for balance pushes.
func (s *AccountService) subscribeUser(userID string, state *userState) {
	ordersStream, err := s.rt.Subscribe("orders", "user_id=eq."+userID)
	if err != nil {
		s.log.Warn("orders subscription failed", zap.String("user_id", userID), zap.Error(err))
		return
	}
	depositsStream, err := s.rt.Subscribe("deposits", "user_id=eq."+userID)
	if err != nil {
		s.log.Warn("deposits subscription failed", zap.String("user_id", userID), zap.Error(err))
		_ = ordersStream.Close()
		return
	}
	userStream, err := s.rt.Subscribe("users", "id=eq."+userID)
	if err != nil {
		s.log.Warn("user subscription failed", zap.String("user_id", userID), zap.Error(err))
		_ = ordersStream.Close()
		_ = depositsStream.Close()
		return
	}

	s.mu.Lock()
	state.streams = []backend.Stream{ordersStream, depositsStream, userStream}
	s.mu.Unlock()

	go s.watchUser(userID, state, ordersStream, depositsStream, userStream)
}

func (s *AccountService) watchUser(userID string, state *userState, orders, deposits, user backend.Stream) {
	for {
		select {
		case _, ok := <-orders.Events():
			if !ok {
				return
			}
			s.refetch(userID)
		case _, ok := <-deposits.Events():
			if !ok {
				return
			}
			s.refetch(userID)
		case event, ok := <-user.Events():
			if !ok {
				return
			}
			if event.Type == "UPDATE" {
				s.applyUserUpdate(userID, event.Record)
			}
		case <-state.stop:
			return
		}
	}
}

func (s *AccountService) refetch(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := s.refreshUserData(ctx, userID); err != nil {
		s.log.Warn("account refresh failed", zap.String("user_id", userID), zap.Error(err))
	}
}

// refreshUserData refetches orders and deposits together, mirroring the
// remote rows exactly.
func (s *AccountService) refreshUserData(ctx context.Context, userID string) error {
	s.mu.RLock()
	state, ok := s.states[userID]
	var token string
	if ok {
		token = state.accessToken
	}
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	orders, err := s.store.FetchOrders(ctx, token, userID)
	if err != nil {
		return err
	}
	deposits, err := s.store.FetchDeposits(ctx, token, userID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if state, ok := s.states[userID]; ok {
		state.orders = orders
		state.deposits = deposits
	}
	s.mu.Unlock()
	return nil
}

// applyUserUpdate replaces the cached profile with the pushed row.
func (s *AccountService) applyUserUpdate(userID string, record json.RawMessage) {
	var user model.User
	if err := json.Unmarshal(record, &user); err != nil {
		s.log.Debug("user push decode failed", zap.Error(err))
		return
	}

	s.mu.Lock()
	if state, ok := s.states[userID]; ok {
		state.user = &user
	}
	s.mu.Unlock()
}

// Profile returns the cached profile of an attached user.
func (s *AccountService) Profile(userID string) (*model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.states[userID]
	if !ok || state.user == nil {
		return nil, false
	}
	user := *state.user
	return &user, true
}

// Orders returns the cached orders of an attached user.
func (s *AccountService) Orders(userID string) []model.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.states[userID]
	if !ok {
		return nil
	}
	out := make([]model.Order, len(state.orders))
	copy(out, state.orders)
	return out
}

// Deposits returns the cached deposit requests of an attached user.
func (s *AccountService) Deposits(userID string) []model.DepositRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.states[userID]
	if !ok {
		return nil
	}
	out := make([]model.DepositRequest, len(state.deposits))
	copy(out, state.deposits)
	return out
}

// setBalance patches the cached profile balance. Used by the admin
// balance update so the affected session sees the new value immediately.
func (s *AccountService) setBalance(userID string, balance float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if state, ok := s.states[userID]; ok && state.user != nil {
		state.user.Balance = balance
	}
}

// Purchase invokes the remote purchase settlement function. Nothing is
// mutated locally: balance and listing status change remotely, and the
// caches catch up from the realtime push.
func (s *AccountService) Purchase(ctx context.Context, q *notify.Queue, userID, accessToken, listingID string) error {
	if err := s.store.InvokePurchase(ctx, accessToken, listingID); err != nil {
		q.Push("Purchase failed: "+err.Error(), notify.TypeError)
		return err
	}

	q.Push("Purchase successful!", notify.TypeSuccess)
	s.log.Info("purchase settled", zap.String("user_id", userID), zap.String("listing_id", listingID))
	return nil
}

// SubmitDeposit validates the submission, uploads the proof, records the
// upload in the local ledger, inserts the pending deposit row and links
// the ledger entry. Invalid input never reaches the remote insert. A
// failure after the upload leaves the ledger row unlinked for the orphan
// sweep to reclaim.
func (s *AccountService) SubmitDeposit(ctx context.Context, q *notify.Queue, userID, accessToken string, amount float64, filename, contentType string, data []byte) error {
	if amount <= 0 {
		return apierror.ValidationError("deposit amount must be a positive number",
			apierror.FieldError{Field: "amount", Message: "must be greater than zero"})
	}
	if len(data) == 0 {
		return apierror.ValidationError("payment proof file is required",
			apierror.FieldError{Field: "proof", Message: "no file selected"})
	}

	key := fmt.Sprintf("%s-%d%s", userID, time.Now().UnixMilli(), path.Ext(filename))

	proofURL, err := s.store.UploadProof(ctx, key, contentType, data)
	if err != nil {
		q.Push("Deposit failed: "+err.Error(), notify.TypeError)
		return err
	}

	var ledgerID int64
	if s.ledger != nil {
		ledgerID, err = s.ledger.RecordUpload(ctx, key, userID)
		if err != nil {
			// bookkeeping only; the deposit flow continues
			s.log.Warn("proof ledger record failed", zap.String("key", key), zap.Error(err))
			ledgerID = 0
		}
	}

	deposit, err := s.store.InsertDeposit(ctx, accessToken, model.DepositRequest{
		UserID:       userID,
		Amount:       amount,
		PaymentProof: proofURL,
		Status:       model.DepositStatusPending,
	})
	if err != nil {
		q.Push("Deposit failed: "+err.Error(), notify.TypeError)
		return err
	}

	if s.ledger != nil && ledgerID != 0 {
		if err := s.ledger.MarkLinked(ctx, ledgerID); err != nil {
			s.log.Warn("proof ledger link failed", zap.Int64("id", ledgerID), zap.Error(err))
		}
	}

	s.mu.Lock()
	if state, ok := s.states[userID]; ok {
		state.deposits = append(state.deposits, deposit)
	}
	s.mu.Unlock()

	q.Push("Deposit request submitted successfully.", notify.TypeSuccess)
	return nil
}
