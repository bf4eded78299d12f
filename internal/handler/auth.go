package handler

import (
	"encoding/json"
	"net/http"

	"victor-smm-api/internal/middleware"
	"victor-smm-api/internal/notify"
	"victor-smm-api/internal/service"
	"victor-smm-api/pkg/apierror"
	"victor-smm-api/pkg/response"

	"go.uber.org/zap"
)

// AuthHandler handles login, signup, logout and the admin console login.
type AuthHandler struct {
	sessions *service.SessionService
	accounts *service.AccountService
	admins   *service.AdminService
	center   *notify.Center
	log      *zap.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(sessions *service.SessionService, accounts *service.AccountService, admins *service.AdminService, center *notify.Center, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		sessions: sessions,
		accounts: accounts,
		admins:   admins,
		center:   center,
		log:      log,
	}
}

// credentialsRequest is the login/admin-login request body.
type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// signupRequest is the signup request body.
type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// sessionResponse is returned by login and admin login.
type sessionResponse struct {
	Token string      `json:"token"`
	Admin bool        `json:"admin"`
	User  interface{} `json:"user,omitempty"`
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	if req.Email == "" || req.Password == "" {
		response.Error(w, apierror.ValidationError("email and password are required"))
		return
	}

	session, err := h.sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		response.Error(w, apierror.Unauthorized(err.Error()))
		return
	}

	if err := h.accounts.Attach(r.Context(), session.UserID, session.AccessToken); err != nil {
		h.log.Warn("account attach failed", zap.String("user_id", session.UserID), zap.Error(err))
	}

	h.setSessionCookie(w, session.Token)
	h.center.Queue(session.Token).Push("Logged in successfully!", notify.TypeSuccess)

	user, _ := h.accounts.Profile(session.UserID)
	response.OK(w, sessionResponse{Token: session.Token, Admin: session.Admin, User: user})
}

// SignUp handles POST /api/v1/auth/signup
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	if req.Username == "" || req.Email == "" || req.Password == "" {
		response.Error(w, apierror.ValidationError("username, email and password are required"))
		return
	}

	if err := h.sessions.SignUp(r.Context(), req.Username, req.Email, req.Password); err != nil {
		response.Error(w, apierror.BadGateway(err.Error()))
		return
	}

	response.Created(w, map[string]string{
		"status":  "registered",
		"message": "Signup successful! Please check your email for a confirmation link.",
	})
}

// Logout handles POST /api/v1/auth/logout. Dropping the session clears
// the user state and the admin flag together.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := middleware.TokenFromRequest(r)
	session := middleware.SessionFromContext(r.Context())

	if session != nil {
		if session.UserID != "" {
			h.accounts.Detach(session.UserID)
		}
		if session.Admin {
			h.admins.Detach()
		}
	}

	if err := h.sessions.Logout(r.Context(), token); err != nil {
		h.log.Warn("logout failed", zap.Error(err))
	}
	h.center.Drop(token)

	h.clearSessionCookie(w)
	response.OK(w, map[string]string{"status": "logged_out"})
}

// AdminLogin handles POST /api/v1/auth/admin/login. The credential pair
// is checked against configuration; an existing user session is upgraded
// in place.
func (h *AuthHandler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	token := middleware.TokenFromRequest(r)
	session, err := h.sessions.AdminLogin(r.Context(), token, req.Email, req.Password)
	if err != nil {
		response.Error(w, apierror.Unauthorized("Invalid admin credentials"))
		return
	}

	if err := h.admins.Attach(r.Context()); err != nil {
		h.log.Warn("admin attach failed", zap.Error(err))
	}

	h.setSessionCookie(w, session.Token)
	response.OK(w, sessionResponse{Token: session.Token, Admin: true})
}

// AdminLogout handles POST /api/v1/auth/admin/logout. The user session,
// if any, stays live; only the admin flag is dropped.
func (h *AuthHandler) AdminLogout(w http.ResponseWriter, r *http.Request) {
	token := middleware.TokenFromRequest(r)
	session := middleware.SessionFromContext(r.Context())

	if session != nil && session.Admin {
		h.admins.Detach()
	}

	if err := h.sessions.AdminLogout(r.Context(), token); err != nil {
		h.log.Warn("admin logout failed", zap.Error(err))
	}

	response.OK(w, map[string]string{"status": "admin_logged_out"})
}

// Me handles GET /api/v1/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	if session == nil {
		response.Error(w, apierror.Unauthorized(""))
		return
	}

	var user interface{}
	if session.UserID != "" {
		if profile, ok := h.accounts.Profile(session.UserID); ok {
			user = profile
		}
	}

	response.OK(w, sessionResponse{Token: session.Token, Admin: session.Admin, User: user})
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
