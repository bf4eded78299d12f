package handler

import (
	"io"
	"net/http"
	"strconv"

	"victor-smm-api/internal/middleware"
	"victor-smm-api/internal/notify"
	"victor-smm-api/internal/service"
	"victor-smm-api/pkg/apierror"
	"victor-smm-api/pkg/response"
)

// maxProofSize caps payment-proof uploads at 10 MiB.
const maxProofSize = 10 << 20

// AccountHandler serves the user dashboard: profile, orders, deposits and
// the deposit submission form.
type AccountHandler struct {
	accounts *service.AccountService
	settings *service.SettingsService
	center   *notify.Center
}

// NewAccountHandler creates a new account handler.
func NewAccountHandler(accounts *service.AccountService, settings *service.SettingsService, center *notify.Center) *AccountHandler {
	return &AccountHandler{
		accounts: accounts,
		settings: settings,
		center:   center,
	}
}

// Profile handles GET /api/v1/account/profile
func (h *AccountHandler) Profile(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())

	user, ok := h.accounts.Profile(session.UserID)
	if !ok {
		response.Error(w, apierror.NotFound("profile not loaded"))
		return
	}

	response.OK(w, user)
}

// Orders handles GET /api/v1/account/orders. Credentials ride along only
// when the remote side has populated them.
func (h *AccountHandler) Orders(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	response.OK(w, h.accounts.Orders(session.UserID))
}

// Deposits handles GET /api/v1/account/deposits
func (h *AccountHandler) Deposits(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	response.OK(w, h.accounts.Deposits(session.UserID))
}

// SubmitDeposit handles POST /api/v1/account/deposits as a multipart
// form: a numeric amount field plus the proof file. Malformed input is
// rejected here and never reaches the remote insert.
func (h *AccountHandler) SubmitDeposit(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())

	if err := r.ParseMultipartForm(maxProofSize); err != nil {
		response.Error(w, apierror.BadRequest("invalid multipart form"))
		return
	}

	amount, err := strconv.ParseFloat(r.FormValue("amount"), 64)
	if err != nil {
		response.Error(w, apierror.ValidationError("deposit amount must be a number",
			apierror.FieldError{Field: "amount", Message: "not a valid number"}))
		return
	}

	file, header, err := r.FormFile("proof")
	if err != nil {
		response.Error(w, apierror.ValidationError("payment proof file is required",
			apierror.FieldError{Field: "proof", Message: "no file selected"}))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxProofSize))
	if err != nil {
		response.Error(w, apierror.BadRequest("failed to read proof file"))
		return
	}

	queue := h.center.Queue(session.Token)
	err = h.accounts.SubmitDeposit(r.Context(), queue, session.UserID, session.AccessToken,
		amount, header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		if _, ok := err.(*apierror.Error); ok {
			response.Error(w, err)
		} else {
			response.Error(w, apierror.BadGateway(err.Error()))
		}
		return
	}

	response.Created(w, map[string]string{"status": "submitted"})
}

// Settings handles GET /api/v1/settings, the public bank-transfer
// instructions shown on the deposit page.
func (h *AccountHandler) Settings(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.settings.Get())
}
