package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"victor-smm-api/internal/backend"
	"victor-smm-api/internal/model"
	"victor-smm-api/internal/notify"

	"go.uber.org/zap"
)

// AdminStore is the admin-wide slice of the remote service.
type AdminStore interface {
	FetchUsers(ctx context.Context) ([]model.User, error)
	FetchAllOrders(ctx context.Context) ([]model.Order, error)
	FetchAllDeposits(ctx context.Context) ([]model.DepositRequest, error)
	UpdateUserBalance(ctx context.Context, userID string, balance float64) error
	InvokeProcessDeposit(ctx context.Context, requestID, status string) error
}

// AdminService mirrors the admin-wide tables: all users, all deposits
// (joined with username) and all orders (joined with listing name), kept
// fresh by three global realtime channels. The mirror exists only while
// at least one admin session is live.
type AdminService struct {
	store    AdminStore
	rt       Realtime
	accounts *AccountService
	log      *zap.Logger

	mu       sync.RWMutex
	users    []model.User
	orders   []model.Order
	deposits []model.DepositRequest

	refs    int
	streams []backend.Stream
	stop    chan struct{}
}

// NewAdminService creates the admin-wide cache.
func NewAdminService(store AdminStore, rt Realtime, accounts *AccountService, log *zap.Logger) *AdminService {
	return &AdminService{
		store:    store,
		rt:       rt,
		accounts: accounts,
		log:      log,
	}
}

// Attach starts the admin mirror on the first admin login; further admin
// sessions just take a reference.
func (s *AdminService) Attach(ctx context.Context) error {
	s.mu.Lock()
	s.refs++
	first := s.refs == 1
	if first {
		s.stop = make(chan struct{})
	}
	s.mu.Unlock()

	if !first {
		return nil
	}

	if err := s.Refresh(ctx); err != nil {
		return err
	}

	if s.rt != nil {
		s.subscribe()
	}
	return nil
}

// Detach drops a reference; the last admin logout clears the mirror.
func (s *AdminService) Detach() {
	s.mu.Lock()
	if s.refs == 0 {
		s.mu.Unlock()
		return
	}
	s.refs--
	if s.refs > 0 {
		s.mu.Unlock()
		return
	}

	streams := s.streams
	stop := s.stop
	s.streams = nil
	s.users = nil
	s.orders = nil
	s.deposits = nil
	s.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	for _, stream := range streams {
		_ = stream.Close()
	}
}

func (s *AdminService) subscribe() {
	tables := []string{"users", "orders", "deposits"}
	var streams []backend.Stream
	for _, table := range tables {
		stream, err := s.rt.Subscribe(table, "")
		if err != nil {
			s.log.Warn("admin subscription failed", zap.String("table", table), zap.Error(err))
			continue
		}
		streams = append(streams, stream)
	}

	s.mu.Lock()
	s.streams = streams
	stop := s.stop
	s.mu.Unlock()

	for _, stream := range streams {
		go s.watch(stream, stop)
	}
}

// watch refetches all three admin tables on any change event.
func (s *AdminService) watch(stream backend.Stream, stop chan struct{}) {
	for {
		select {
		case _, ok := <-stream.Events():
			if !ok {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			if err := s.Refresh(ctx); err != nil {
				s.log.Warn("admin refresh failed", zap.Error(err))
			}
			cancel()
		case <-stop:
			return
		}
	}
}

// Refresh refetches users, deposits and orders.
func (s *AdminService) Refresh(ctx context.Context) error {
	users, err := s.store.FetchUsers(ctx)
	if err != nil {
		return err
	}
	deposits, err := s.store.FetchAllDeposits(ctx)
	if err != nil {
		return err
	}
	orders, err := s.store.FetchAllOrders(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.users = users
	s.deposits = deposits
	s.orders = orders
	s.mu.Unlock()
	return nil
}

// Users returns the cached admin user list.
func (s *AdminService) Users() []model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.User, len(s.users))
	copy(out, s.users)
	return out
}

// Orders returns the cached admin order list.
func (s *AdminService) Orders() []model.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Order, len(s.orders))
	copy(out, s.orders)
	return out
}

// Deposits returns the cached admin deposit list.
func (s *AdminService) Deposits() []model.DepositRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.DepositRequest, len(s.deposits))
	copy(out, s.deposits)
	return out
}

// ProcessDeposit invokes the remote deposit settlement function. The new
// balance is never computed here; the pending -> final transition and the
// credit happen remotely in one transaction.
func (s *AdminService) ProcessDeposit(ctx context.Context, q *notify.Queue, requestID, status string) error {
	if status != model.DepositStatusApproved && status != model.DepositStatusRejected {
		return fmt.Errorf("invalid deposit status %q", status)
	}

	if err := s.store.InvokeProcessDeposit(ctx, requestID, status); err != nil {
		q.Push("Failed to process deposit: "+err.Error(), notify.TypeError)
		return err
	}

	q.Push("Deposit request has been "+status+".", notify.TypeSuccess)
	return nil
}

// UpdateUserBalance writes the balance field directly, then patches the
// admin user list and, when that user is attached, their live profile.
func (s *AdminService) UpdateUserBalance(ctx context.Context, q *notify.Queue, userID string, balance float64) error {
	if err := s.store.UpdateUserBalance(ctx, userID, balance); err != nil {
		q.Push("Failed to update balance: "+err.Error(), notify.TypeError)
		return err
	}

	s.mu.Lock()
	for i := range s.users {
		if s.users[i].ID == userID {
			s.users[i].Balance = balance
			break
		}
	}
	s.mu.Unlock()

	if s.accounts != nil {
		s.accounts.setBalance(userID, balance)
	}

	q.Push("Balance updated for user.", notify.TypeSuccess)
	return nil
}

// AdminStats are the aggregate dashboard metrics.
type AdminStats struct {
	TotalRevenue    float64 `json:"total_revenue"`
	TotalOrders     int     `json:"total_orders"`
	TotalUsers      int     `json:"total_users"`
	PendingDeposits int     `json:"pending_deposits"`
}

// Stats aggregates the cached admin tables.
func (s *AdminService) Stats() AdminStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := AdminStats{
		TotalOrders: len(s.orders),
		TotalUsers:  len(s.users),
	}
	for _, o := range s.orders {
		stats.TotalRevenue += o.Amount
	}
	for _, d := range s.deposits {
		if d.Status == model.DepositStatusPending {
			stats.PendingDeposits++
		}
	}
	return stats
}
