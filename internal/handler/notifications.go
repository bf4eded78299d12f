package handler

import (
	"net/http"

	"victor-smm-api/internal/middleware"
	"victor-smm-api/internal/notify"
	"victor-smm-api/pkg/response"
)

// NotificationHandler exposes the per-session toast feed. Entries expire
// on their own a few seconds after being pushed, so polling clients see
// each one only briefly.
type NotificationHandler struct {
	center *notify.Center
}

// NewNotificationHandler creates a new notification handler.
func NewNotificationHandler(center *notify.Center) *NotificationHandler {
	return &NotificationHandler{center: center}
}

// List handles GET /api/v1/notifications
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	token := middleware.TokenFromRequest(r)
	if token == "" {
		response.OK(w, []notify.Notification{})
		return
	}
	response.OK(w, h.center.Queue(token).Active())
}
