package handler

import (
	"net/http"
	"strconv"

	"victor-smm-api/internal/middleware"
	"victor-smm-api/internal/model"
	"victor-smm-api/internal/notify"
	"victor-smm-api/internal/service"
	"victor-smm-api/pkg/apierror"
	"victor-smm-api/pkg/response"

	"github.com/go-chi/chi/v5"
)

// MarketplaceHandler serves the public storefront: the filtered,
// searched, paginated catalog and the purchase action.
type MarketplaceHandler struct {
	catalog  *service.CatalogService
	accounts *service.AccountService
	center   *notify.Center
}

// NewMarketplaceHandler creates a new marketplace handler.
func NewMarketplaceHandler(catalog *service.CatalogService, accounts *service.AccountService, center *notify.Center) *MarketplaceHandler {
	return &MarketplaceHandler{
		catalog:  catalog,
		accounts: accounts,
		center:   center,
	}
}

// List handles GET /api/v1/marketplace. Query params: category, region,
// search, page. Clients reset page to 1 whenever a filter changes.
func (h *MarketplaceHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))

	result := h.catalog.Query(service.MarketplaceFilter{
		Category: r.URL.Query().Get("category"),
		Region:   r.URL.Query().Get("region"),
		Search:   r.URL.Query().Get("search"),
		Page:     page,
	})

	response.JSONWithMeta(w, http.StatusOK, result.Items, response.Meta{
		Page:       result.Page,
		PerPage:    result.PerPage,
		Total:      result.Total,
		TotalPages: result.TotalPages,
	})
}

// Filters handles GET /api/v1/marketplace/filters, returning the
// available category and region options.
func (h *MarketplaceHandler) Filters(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]interface{}{
		"categories": h.catalog.Categories(),
		"regions":    h.catalog.Regions(),
	})
}

// Purchase handles POST /api/v1/marketplace/listings/{id}/purchase.
// Settlement is entirely remote; this only rejects the obvious case of a
// listing the cache already knows is sold.
func (h *MarketplaceHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	listingID := chi.URLParam(r, "id")
	if listingID == "" {
		response.Error(w, apierror.BadRequest("listing id is required"))
		return
	}

	session := middleware.SessionFromContext(r.Context())

	for _, listing := range h.catalog.Listings() {
		if listing.ID == listingID && listing.Status == model.ListingStatusSold {
			response.Error(w, apierror.BadRequest("listing is no longer available"))
			return
		}
	}

	queue := h.center.Queue(session.Token)
	if err := h.accounts.Purchase(r.Context(), queue, session.UserID, session.AccessToken, listingID); err != nil {
		response.Error(w, apierror.BadGateway(err.Error()))
		return
	}

	response.OK(w, map[string]string{"status": "purchased", "listing_id": listingID})
}
