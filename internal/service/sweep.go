package service

import (
	"context"
	"sync"
	"time"

	"victor-smm-api/internal/repository"

	"go.uber.org/zap"
)

// ProofStorage deletes stored proof objects.
type ProofStorage interface {
	DeleteProof(ctx context.Context, key string) error
}

// SweepConfig holds configuration for the proof sweeper.
type SweepConfig struct {
	// Interval is how often the sweep runs.
	Interval time.Duration

	// OrphanThreshold is how old an unlinked upload must be before it is
	// reclaimed. Young rows may belong to an insert still in flight.
	OrphanThreshold time.Duration
}

// ProofSweeper periodically reclaims payment-proof objects whose deposit
// insert never succeeded: the upload happened, the row did not, and
// nothing else will ever reference the file.
type ProofSweeper struct {
	ledger   repository.ProofLedger
	storage  ProofStorage
	config   SweepConfig
	log      *zap.Logger
	ticker   *time.Ticker
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewProofSweeper creates the sweeper.
func NewProofSweeper(ledger repository.ProofLedger, storage ProofStorage, config SweepConfig, log *zap.Logger) *ProofSweeper {
	if config.Interval == 0 {
		config.Interval = time.Hour
	}
	if config.OrphanThreshold == 0 {
		config.OrphanThreshold = 24 * time.Hour
	}

	return &ProofSweeper{
		ledger:  ledger,
		storage: storage,
		config:  config,
		log:     log,
		stopCh:  make(chan struct{}),
	}
}

// Start begins the sweep loop.
func (s *ProofSweeper) Start() {
	s.ticker = time.NewTicker(s.config.Interval)

	s.log.Info("proof sweeper started",
		zap.Duration("interval", s.config.Interval),
		zap.Duration("threshold", s.config.OrphanThreshold))

	go s.run()
}

func (s *ProofSweeper) run() {
	for {
		select {
		case <-s.ticker.C:
			if _, err := s.RunNow(); err != nil {
				s.log.Warn("proof sweep failed", zap.Error(err))
			}
		case <-s.stopCh:
			return
		}
	}
}

// RunNow performs one sweep pass and returns how many objects were
// reclaimed.
func (s *ProofSweeper) RunNow() (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	orphans, err := s.ledger.ListOrphans(ctx, s.config.OrphanThreshold)
	if err != nil {
		return 0, err
	}

	reclaimed := 0
	for _, orphan := range orphans {
		if err := s.storage.DeleteProof(ctx, orphan.ObjectKey); err != nil {
			s.log.Warn("orphan delete failed", zap.String("key", orphan.ObjectKey), zap.Error(err))
			continue
		}
		if err := s.ledger.Delete(ctx, orphan.ID); err != nil {
			s.log.Warn("ledger delete failed", zap.Int64("id", orphan.ID), zap.Error(err))
			continue
		}
		reclaimed++
	}

	if reclaimed > 0 {
		s.log.Info("reclaimed orphaned proof uploads", zap.Int("count", reclaimed))
	}
	return reclaimed, nil
}

// Stop stops the sweep loop.
func (s *ProofSweeper) Stop() {
	s.stopOnce.Do(func() {
		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.stopCh)
	})
}
