package service

import (
	"context"
	"sort"
	"strings"
	"sync"

	"victor-smm-api/internal/backend"
	"victor-smm-api/internal/model"
	"victor-smm-api/internal/notify"

	"go.uber.org/zap"
)

// MarketplacePageSize is the fixed marketplace page size.
const MarketplacePageSize = 6

// CatalogStore is the remote listings table.
type CatalogStore interface {
	FetchListings(ctx context.Context) ([]model.Listing, error)
	InsertListing(ctx context.Context, listing model.Listing) (model.Listing, error)
	UpdateListing(ctx context.Context, listing model.Listing) error
	DeleteListing(ctx context.Context, id string) error
}

// Realtime opens change streams on remote tables.
type Realtime interface {
	Subscribe(table, filter string) (backend.Stream, error)
}

// CatalogService holds the listing cache: the full catalog ordered by
// creation time descending, refetched in full on every realtime change
// (no incremental patching). Admin CRUD patches the cache optimistically
// so views need not wait for the push round-trip.
type CatalogService struct {
	store CatalogStore
	rt    Realtime
	log   *zap.Logger

	mu       sync.RWMutex
	listings []model.Listing

	stream   backend.Stream
	stop     chan struct{}
	stopOnce sync.Once
}

// NewCatalogService creates the listing cache.
func NewCatalogService(store CatalogStore, rt Realtime, log *zap.Logger) *CatalogService {
	return &CatalogService{
		store: store,
		rt:    rt,
		log:   log,
		stop:  make(chan struct{}),
	}
}

// Start populates the cache and subscribes to the listings channel.
func (s *CatalogService) Start(ctx context.Context) error {
	if err := s.Refresh(ctx); err != nil {
		return err
	}

	if s.rt != nil {
		stream, err := s.rt.Subscribe("listings", "")
		if err != nil {
			return err
		}
		s.stream = stream
		go s.watch(stream)
	}

	return nil
}

// Stop tears down the realtime subscription.
func (s *CatalogService) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
		if s.stream != nil {
			_ = s.stream.Close()
		}
	})
}

func (s *CatalogService) watch(stream backend.Stream) {
	for {
		select {
		case _, ok := <-stream.Events():
			if !ok {
				return
			}
			if err := s.Refresh(context.Background()); err != nil {
				s.log.Warn("listing refresh failed", zap.Error(err))
			}
		case <-s.stop:
			return
		}
	}
}

// Refresh refetches the full catalog.
func (s *CatalogService) Refresh(ctx context.Context) error {
	listings, err := s.store.FetchListings(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.listings = listings
	s.mu.Unlock()

	s.log.Debug("listing cache refreshed", zap.Int("count", len(listings)))
	return nil
}

// Listings returns a copy of the cached catalog.
func (s *CatalogService) Listings() []model.Listing {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Listing, len(s.listings))
	copy(out, s.listings)
	return out
}

// Add creates a listing remotely and prepends the stored row.
func (s *CatalogService) Add(ctx context.Context, q *notify.Queue, listing model.Listing) (model.Listing, error) {
	listing.Status = model.ListingStatusAvailable

	created, err := s.store.InsertListing(ctx, listing)
	if err != nil {
		q.Push("Failed to add listing: "+err.Error(), notify.TypeError)
		return model.Listing{}, err
	}

	s.mu.Lock()
	s.listings = append([]model.Listing{created}, s.listings...)
	s.mu.Unlock()

	q.Push("Listing added successfully.", notify.TypeSuccess)
	return created, nil
}

// Update writes a listing remotely, then patches the cache by id.
// The patch is an upsert: repeating the same call leaves one entry.
func (s *CatalogService) Update(ctx context.Context, q *notify.Queue, listing model.Listing) error {
	if err := s.store.UpdateListing(ctx, listing); err != nil {
		q.Push("Failed to update listing: "+err.Error(), notify.TypeError)
		return err
	}

	s.mu.Lock()
	replaced := false
	for i := range s.listings {
		if s.listings[i].ID == listing.ID {
			s.listings[i] = listing
			replaced = true
			break
		}
	}
	if !replaced {
		s.listings = append([]model.Listing{listing}, s.listings...)
	}
	s.mu.Unlock()

	q.Push("Listing updated successfully.", notify.TypeSuccess)
	return nil
}

// Delete removes a listing remotely, then from the cache.
func (s *CatalogService) Delete(ctx context.Context, q *notify.Queue, id string) error {
	if err := s.store.DeleteListing(ctx, id); err != nil {
		q.Push("Failed to delete listing: "+err.Error(), notify.TypeError)
		return err
	}

	s.mu.Lock()
	for i := range s.listings {
		if s.listings[i].ID == id {
			s.listings = append(s.listings[:i], s.listings[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	q.Push("Listing deleted successfully.", notify.TypeSuccess)
	return nil
}

// Categories returns the distinct categories in catalog order.
func (s *CatalogService) Categories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	var categories []string
	for _, l := range s.listings {
		if !seen[l.Category] {
			seen[l.Category] = true
			categories = append(categories, l.Category)
		}
	}
	return categories
}

// Regions returns the sorted distinct regions of virtual-number listings.
// Region filtering only applies to those categories.
func (s *CatalogService) Regions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	var regions []string
	for _, l := range s.listings {
		if isVirtualNumberCategory(l.Category) && l.Region != "" && !seen[l.Region] {
			seen[l.Region] = true
			regions = append(regions, l.Region)
		}
	}
	sort.Strings(regions)
	return regions
}

// MarketplaceFilter is the client-side marketplace query. Empty or "All"
// values disable the corresponding filter.
type MarketplaceFilter struct {
	Category string
	Region   string
	Search   string
	Page     int
}

// MarketplacePage is one page of filtered marketplace results.
type MarketplacePage struct {
	Items      []model.Listing `json:"items"`
	Page       int             `json:"page"`
	PerPage    int             `json:"per_page"`
	Total      int             `json:"total"`
	TotalPages int             `json:"total_pages"`
}

// Query filters, searches and paginates the cached catalog.
func (s *CatalogService) Query(filter MarketplaceFilter) MarketplacePage {
	return FilterListings(s.Listings(), filter)
}

// FilterListings applies the marketplace rules to a catalog snapshot:
// only available listings, category match, region match for
// virtual-number categories only, case-insensitive name substring search,
// fixed page size of 6.
func FilterListings(listings []model.Listing, filter MarketplaceFilter) MarketplacePage {
	categoryActive := filter.Category != "" && filter.Category != "All"
	regionActive := filter.Region != "" && filter.Region != "All"
	regionApplies := categoryActive && isVirtualNumberCategory(filter.Category)
	search := strings.ToLower(filter.Search)

	var matched []model.Listing
	for _, l := range listings {
		if l.Status != model.ListingStatusAvailable {
			continue
		}
		if categoryActive && l.Category != filter.Category {
			continue
		}
		if regionApplies && regionActive && l.Region != filter.Region {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(l.Name), search) {
			continue
		}
		matched = append(matched, l)
	}

	total := len(matched)
	totalPages := (total + MarketplacePageSize - 1) / MarketplacePageSize

	page := filter.Page
	if page < 1 {
		page = 1
	}

	start := (page - 1) * MarketplacePageSize
	if start > total {
		start = total
	}
	end := start + MarketplacePageSize
	if end > total {
		end = total
	}

	return MarketplacePage{
		Items:      matched[start:end],
		Page:       page,
		PerPage:    MarketplacePageSize,
		Total:      total,
		TotalPages: totalPages,
	}
}

func isVirtualNumberCategory(category string) bool {
	return strings.Contains(strings.ToLower(category), "virtual")
}
