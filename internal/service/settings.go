package service

import (
	"context"
	"sync"

	"victor-smm-api/internal/model"
	"victor-smm-api/internal/notify"

	"go.uber.org/zap"
)

// SettingsStore is the remote site_settings singleton (row id=1).
type SettingsStore interface {
	FetchSiteSettings(ctx context.Context) (*model.SiteSettings, error)
	UpdateSiteSettings(ctx context.Context, settings model.SiteSettings) error
}

// SettingsService caches the singleton bank-transfer settings record.
type SettingsService struct {
	store SettingsStore
	log   *zap.Logger

	mu      sync.RWMutex
	current model.SiteSettings
}

// NewSettingsService creates the settings cache, seeded with defaults
// until the remote row is fetched.
func NewSettingsService(store SettingsStore, log *zap.Logger) *SettingsService {
	return &SettingsService{
		store:   store,
		log:     log,
		current: model.DefaultSiteSettings(),
	}
}

// Start fetches the remote row. On failure the defaults stay in place.
func (s *SettingsService) Start(ctx context.Context) {
	settings, err := s.store.FetchSiteSettings(ctx)
	if err != nil {
		s.log.Warn("could not fetch site settings, using defaults", zap.Error(err))
		return
	}

	s.mu.Lock()
	s.current = *settings
	s.mu.Unlock()
}

// Get returns the cached settings.
func (s *SettingsService) Get() model.SiteSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update applies the new settings optimistically, writes them remotely,
// and reverts the cache if the write fails.
func (s *SettingsService) Update(ctx context.Context, q *notify.Queue, settings model.SiteSettings) error {
	s.mu.Lock()
	previous := s.current
	s.current = settings
	s.mu.Unlock()

	if err := s.store.UpdateSiteSettings(ctx, settings); err != nil {
		s.mu.Lock()
		s.current = previous
		s.mu.Unlock()

		q.Push("Failed to update settings: "+err.Error(), notify.TypeError)
		return err
	}

	q.Push("Site settings updated successfully!", notify.TypeSuccess)
	return nil
}
