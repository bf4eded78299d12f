package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"victor-smm-api/internal/model"
	"victor-smm-api/internal/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCatalogStore struct {
	listings  []model.Listing
	insertErr error
	updateErr error
	deleteErr error
}

func (f *fakeCatalogStore) FetchListings(ctx context.Context) ([]model.Listing, error) {
	out := make([]model.Listing, len(f.listings))
	copy(out, f.listings)
	return out, nil
}

func (f *fakeCatalogStore) InsertListing(ctx context.Context, listing model.Listing) (model.Listing, error) {
	if f.insertErr != nil {
		return model.Listing{}, f.insertErr
	}
	listing.ID = fmt.Sprintf("l-%d", len(f.listings)+1)
	f.listings = append(f.listings, listing)
	return listing, nil
}

func (f *fakeCatalogStore) UpdateListing(ctx context.Context, listing model.Listing) error {
	return f.updateErr
}

func (f *fakeCatalogStore) DeleteListing(ctx context.Context, id string) error {
	return f.deleteErr
}

func sampleListings() []model.Listing {
	return []model.Listing{
		{ID: "1", Name: "Instagram Aged Account", Category: "Social Media", Type: model.ListingTypeSocial, Price: 25, Status: model.ListingStatusAvailable},
		{ID: "2", Name: "WhatsApp Virtual Number", Category: "Virtual Numbers", Type: model.ListingTypeNumber, Region: "US", Price: 5, Status: model.ListingStatusAvailable},
		{ID: "3", Name: "Telegram Virtual Number", Category: "Virtual Numbers", Type: model.ListingTypeNumber, Region: "UK", Price: 4, Status: model.ListingStatusAvailable},
		{ID: "4", Name: "TikTok Account", Category: "Social Media", Type: model.ListingTypeSocial, Price: 30, Status: model.ListingStatusSold},
		{ID: "5", Name: "WhatsApp Virtual Number", Category: "Virtual Numbers", Type: model.ListingTypeNumber, Region: "UK", Price: 6, Status: model.ListingStatusAvailable},
	}
}

func TestFilterListingsExcludesSold(t *testing.T) {
	page := FilterListings(sampleListings(), MarketplaceFilter{})

	require.Equal(t, 4, page.Total)
	for _, l := range page.Items {
		assert.Equal(t, model.ListingStatusAvailable, l.Status)
	}
}

func TestFilterListingsCategory(t *testing.T) {
	page := FilterListings(sampleListings(), MarketplaceFilter{Category: "Social Media"})

	require.Len(t, page.Items, 1)
	assert.Equal(t, "1", page.Items[0].ID)

	// "All" disables the filter
	page = FilterListings(sampleListings(), MarketplaceFilter{Category: "All"})
	assert.Equal(t, 4, page.Total)
}

func TestFilterListingsRegionOnlyForVirtualNumbers(t *testing.T) {
	listings := sampleListings()

	// Region narrows virtual-number results
	page := FilterListings(listings, MarketplaceFilter{Category: "Virtual Numbers", Region: "UK"})
	require.Len(t, page.Items, 2)
	for _, l := range page.Items {
		assert.Equal(t, "UK", l.Region)
	}

	// Region is ignored when the category is not a virtual-number one
	page = FilterListings(listings, MarketplaceFilter{Category: "Social Media", Region: "UK"})
	require.Len(t, page.Items, 1)
	assert.Equal(t, "1", page.Items[0].ID)

	// Region is ignored with no category at all
	page = FilterListings(listings, MarketplaceFilter{Region: "UK"})
	assert.Equal(t, 4, page.Total)
}

func TestFilterListingsSearch(t *testing.T) {
	page := FilterListings(sampleListings(), MarketplaceFilter{Search: "whatsapp"})

	require.Len(t, page.Items, 2)
	for _, l := range page.Items {
		assert.Contains(t, l.Name, "WhatsApp")
	}
}

func TestFilterListingsPagination(t *testing.T) {
	var listings []model.Listing
	for i := 0; i < 13; i++ {
		listings = append(listings, model.Listing{
			ID:     fmt.Sprintf("l-%d", i),
			Name:   fmt.Sprintf("Listing %d", i),
			Status: model.ListingStatusAvailable,
		})
	}

	first := FilterListings(listings, MarketplaceFilter{Page: 1})
	assert.Len(t, first.Items, MarketplacePageSize)
	assert.Equal(t, 13, first.Total)
	assert.Equal(t, 3, first.TotalPages)

	last := FilterListings(listings, MarketplaceFilter{Page: 3})
	assert.Len(t, last.Items, 1)

	// out-of-range pages return empty items, never panic
	beyond := FilterListings(listings, MarketplaceFilter{Page: 10})
	assert.Empty(t, beyond.Items)

	// page < 1 clamps to 1
	clamped := FilterListings(listings, MarketplaceFilter{Page: 0})
	assert.Equal(t, 1, clamped.Page)
	assert.Len(t, clamped.Items, MarketplacePageSize)
}

func TestCatalogCategoriesAndRegions(t *testing.T) {
	store := &fakeCatalogStore{listings: sampleListings()}
	svc := NewCatalogService(store, nil, zap.NewNop())
	require.NoError(t, svc.Start(context.Background()))
	defer svc.Stop()

	assert.Equal(t, []string{"Social Media", "Virtual Numbers"}, svc.Categories())
	assert.Equal(t, []string{"UK", "US"}, svc.Regions())
}

func TestCatalogAddPrepends(t *testing.T) {
	store := &fakeCatalogStore{listings: sampleListings()}
	svc := NewCatalogService(store, nil, zap.NewNop())
	require.NoError(t, svc.Start(context.Background()))
	defer svc.Stop()

	q := notify.NewQueue(time.Minute)
	created, err := svc.Add(context.Background(), q, model.Listing{Name: "New Number", Category: "Virtual Numbers", Price: 3})
	require.NoError(t, err)
	assert.Equal(t, model.ListingStatusAvailable, created.Status)

	listings := svc.Listings()
	require.Len(t, listings, 6)
	assert.Equal(t, created.ID, listings[0].ID)

	notes := q.Active()
	require.Len(t, notes, 1)
	assert.Equal(t, notify.TypeSuccess, notes[0].Type)
}

func TestCatalogUpdateIsUpsert(t *testing.T) {
	store := &fakeCatalogStore{listings: sampleListings()}
	svc := NewCatalogService(store, nil, zap.NewNop())
	require.NoError(t, svc.Start(context.Background()))
	defer svc.Stop()

	q := notify.NewQueue(time.Minute)
	patched := model.Listing{ID: "2", Name: "WhatsApp Virtual Number", Category: "Virtual Numbers", Region: "US", Price: 7, Status: model.ListingStatusAvailable}

	// Applying the same update twice leaves exactly one entry
	require.NoError(t, svc.Update(context.Background(), q, patched))
	require.NoError(t, svc.Update(context.Background(), q, patched))

	count := 0
	for _, l := range svc.Listings() {
		if l.ID == "2" {
			count++
			assert.Equal(t, 7.0, l.Price)
		}
	}
	assert.Equal(t, 1, count)
	assert.Len(t, svc.Listings(), 5)
}

func TestCatalogDeleteRemovesFromCache(t *testing.T) {
	store := &fakeCatalogStore{listings: sampleListings()}
	svc := NewCatalogService(store, nil, zap.NewNop())
	require.NoError(t, svc.Start(context.Background()))
	defer svc.Stop()

	q := notify.NewQueue(time.Minute)
	require.NoError(t, svc.Delete(context.Background(), q, "3"))

	for _, l := range svc.Listings() {
		assert.NotEqual(t, "3", l.ID)
	}
	assert.Len(t, svc.Listings(), 4)
}

func TestCatalogAddFailureLeavesCacheUntouched(t *testing.T) {
	store := &fakeCatalogStore{listings: sampleListings(), insertErr: fmt.Errorf("row level security")}
	svc := NewCatalogService(store, nil, zap.NewNop())
	require.NoError(t, svc.Start(context.Background()))
	defer svc.Stop()

	q := notify.NewQueue(time.Minute)
	_, err := svc.Add(context.Background(), q, model.Listing{Name: "X", Price: 1})
	require.Error(t, err)

	assert.Len(t, svc.Listings(), 5)

	notes := q.Active()
	require.Len(t, notes, 1)
	assert.Equal(t, notify.TypeError, notes[0].Type)
}
