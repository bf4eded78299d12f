package handler

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"victor-smm-api/internal/middleware"
	"victor-smm-api/internal/model"
	"victor-smm-api/internal/notify"
	"victor-smm-api/internal/service"
	"victor-smm-api/pkg/apierror"
	"victor-smm-api/pkg/response"

	"github.com/go-chi/chi/v5"
)

// AdminHandler serves the admin console: user/order/deposit panels,
// inventory management, site settings and aggregate metrics.
type AdminHandler struct {
	admins    *service.AdminService
	catalog   *service.CatalogService
	settings  *service.SettingsService
	center    *notify.Center
	startTime time.Time
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(admins *service.AdminService, catalog *service.CatalogService, settings *service.SettingsService, center *notify.Center) *AdminHandler {
	return &AdminHandler{
		admins:    admins,
		catalog:   catalog,
		settings:  settings,
		center:    center,
		startTime: time.Now(),
	}
}

func (h *AdminHandler) queue(r *http.Request) *notify.Queue {
	return h.center.Queue(middleware.TokenFromRequest(r))
}

// Users handles GET /api/v1/admin/users with search/sort query params.
func (h *AdminHandler) Users(w http.ResponseWriter, r *http.Request) {
	users := service.QueryUsers(h.admins.Users(), service.UserQuery{
		Search: r.URL.Query().Get("search"),
		SortBy: r.URL.Query().Get("sort"),
		Asc:    r.URL.Query().Get("dir") == "asc",
	})
	response.OK(w, users)
}

// Orders handles GET /api/v1/admin/orders with search/status/sort query
// params. Default order is created_at descending.
func (h *AdminHandler) Orders(w http.ResponseWriter, r *http.Request) {
	orders := service.QueryOrders(h.admins.Orders(), service.OrderQuery{
		Search: r.URL.Query().Get("search"),
		Status: r.URL.Query().Get("status"),
		SortBy: r.URL.Query().Get("sort"),
		Asc:    r.URL.Query().Get("dir") == "asc",
	})
	response.OK(w, orders)
}

// Deposits handles GET /api/v1/admin/deposits
func (h *AdminHandler) Deposits(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.admins.Deposits())
}

// processDepositRequest is the body of the process-deposit action.
type processDepositRequest struct {
	Status string `json:"status"`
}

// ProcessDeposit handles POST /api/v1/admin/deposits/{id}/process. The
// settlement itself is remote and happens exactly once per request.
func (h *AdminHandler) ProcessDeposit(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "id")

	var req processDepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	if req.Status != model.DepositStatusApproved && req.Status != model.DepositStatusRejected {
		response.Error(w, apierror.ValidationError("status must be approved or rejected"))
		return
	}

	if err := h.admins.ProcessDeposit(r.Context(), h.queue(r), requestID, req.Status); err != nil {
		response.Error(w, apierror.BadGateway(err.Error()))
		return
	}

	response.OK(w, map[string]string{"status": req.Status})
}

// balanceRequest is the body of the balance update action.
type balanceRequest struct {
	Balance float64 `json:"balance"`
}

// UpdateBalance handles PUT /api/v1/admin/users/{id}/balance
func (h *AdminHandler) UpdateBalance(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	var req balanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	if err := h.admins.UpdateUserBalance(r.Context(), h.queue(r), userID, req.Balance); err != nil {
		response.Error(w, apierror.BadGateway(err.Error()))
		return
	}

	response.OK(w, map[string]interface{}{"user_id": userID, "balance": req.Balance})
}

// AddListing handles POST /api/v1/admin/listings
func (h *AdminHandler) AddListing(w http.ResponseWriter, r *http.Request) {
	var listing model.Listing
	if err := json.NewDecoder(r.Body).Decode(&listing); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	if listing.Name == "" || listing.Price <= 0 {
		response.Error(w, apierror.ValidationError("name and a positive price are required"))
		return
	}

	created, err := h.catalog.Add(r.Context(), h.queue(r), listing)
	if err != nil {
		response.Error(w, apierror.BadGateway(err.Error()))
		return
	}

	response.Created(w, created)
}

// UpdateListing handles PUT /api/v1/admin/listings/{id}
func (h *AdminHandler) UpdateListing(w http.ResponseWriter, r *http.Request) {
	var listing model.Listing
	if err := json.NewDecoder(r.Body).Decode(&listing); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	listing.ID = chi.URLParam(r, "id")

	if err := h.catalog.Update(r.Context(), h.queue(r), listing); err != nil {
		response.Error(w, apierror.BadGateway(err.Error()))
		return
	}

	response.OK(w, listing)
}

// DeleteListing handles DELETE /api/v1/admin/listings/{id}
func (h *AdminHandler) DeleteListing(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.catalog.Delete(r.Context(), h.queue(r), id); err != nil {
		response.Error(w, apierror.BadGateway(err.Error()))
		return
	}

	response.NoContent(w)
}

// Settings handles GET /api/v1/admin/settings
func (h *AdminHandler) Settings(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.settings.Get())
}

// UpdateSettings handles PUT /api/v1/admin/settings
func (h *AdminHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var settings model.SiteSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	if err := h.settings.Update(r.Context(), h.queue(r), settings); err != nil {
		response.Error(w, apierror.BadGateway(err.Error()))
		return
	}

	response.OK(w, settings)
}

// Stats handles GET /api/v1/admin/stats: the dashboard aggregates plus
// process runtime info.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	response.OK(w, map[string]interface{}{
		"metrics":        h.admins.Stats(),
		"uptime_seconds": int64(time.Since(h.startTime).Seconds()),
		"server_time":    time.Now().UTC().Format(time.RFC3339),
		"runtime": map[string]interface{}{
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
			"alloc_mb":   float64(memStats.Alloc) / 1024 / 1024,
		},
	})
}
