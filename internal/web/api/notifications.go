package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/patcharin/perkstream/internal/store"
)

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

type notificationJSON struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Type      string         `json:"type"`
	Data      map[string]any `json:"data,omitempty"`
	ReadAt    *time.Time     `json:"read_at,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	ExpiresAt *time.Time     `json:"expires_at,omitempty"`
}

func toNotificationJSON(n *store.Notification) notificationJSON {
	return notificationJSON{
		ID:        n.ID,
		UserID:    n.UserID,
		Title:     n.Title,
		Message:   n.Message,
		Type:      n.Type,
		Data:      n.Data,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
		ExpiresAt: n.ExpiresAt,
	}
}

// handleNotifications dispatches /api/v1/notifications requests.
func (a *API) handleNotifications(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.handleListNotifications(w, r)
	case http.MethodPost:
		a.handleCreateNotification(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	}
}

// handleListNotifications returns the caller's own notifications.
func (a *API) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r, a.HeaderAuth)
	if !ok {
		return
	}

	opts := store.ListOpts{UserID: user.ID, Limit: defaultListLimit}
	q := r.URL.Query()
	if q.Get("unread") == "true" {
		opts.UnreadOnly = true
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			writeError(w, http.StatusBadRequest, "validation_error", "limit must be a positive integer")
			return
		}
		if limit > maxListLimit {
			limit = maxListLimit
		}
		opts.Limit = limit
	}
	if v := q.Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			writeError(w, http.StatusBadRequest, "validation_error", "offset must be a non-negative integer")
			return
		}
		opts.Offset = offset
	}

	notifications, err := a.Store.ListNotifications(r.Context(), opts)
	if err != nil {
		log.Printf("ERROR: failed to list notifications for user %s: %v", user.ID, err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list notifications")
		return
	}
	unread, err := a.Store.UnreadCount(r.Context(), user.ID)
	if err != nil {
		log.Printf("ERROR: failed to count unread notifications for user %s: %v", user.ID, err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to count notifications")
		return
	}

	out := make([]notificationJSON, 0, len(notifications))
	for _, n := range notifications {
		out = append(out, toNotificationJSON(n))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"notifications": out,
		"unread":        unread,
	})
}

type createNotificationRequest struct {
	UserID    string         `json:"user_id"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Type      string         `json:"type"`
	Data      map[string]any `json:"data"`
	ExpiresAt *time.Time     `json:"expires_at"`
}

// handleCreateNotification persists a notification for a user and pushes
// the corresponding realtime event to their open streams. Delivery is
// best-effort; the stored record is the durable copy.
func (a *API) handleCreateNotification(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireAdmin(w, r); !ok {
		return
	}

	var req createNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid JSON body")
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	req.Title = strings.TrimSpace(req.Title)
	req.Message = strings.TrimSpace(req.Message)
	if req.UserID == "" || req.Title == "" || req.Message == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "user_id, title and message are required")
		return
	}

	n := &store.Notification{
		UserID:    req.UserID,
		Title:     req.Title,
		Message:   req.Message,
		Type:      req.Type,
		Data:      req.Data,
		ExpiresAt: req.ExpiresAt,
	}
	if err := a.Store.CreateNotification(r.Context(), n); err != nil {
		log.Printf("ERROR: failed to create notification for user %s: %v", req.UserID, err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to create notification")
		return
	}

	a.Publisher.Notification(n.UserID, map[string]any{
		"id":        n.ID,
		"title":     n.Title,
		"message":   n.Message,
		"type":      n.Type,
		"data":      n.Data,
		"createdAt": n.CreatedAt.UnixMilli(),
	})

	writeJSON(w, http.StatusCreated, toNotificationJSON(n))
}

// routeNotifications dispatches /api/v1/notifications/{id}/read and
// /api/v1/notifications/read-all requests.
func (a *API) routeNotifications(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/notifications/")
	if path == "" {
		a.handleNotifications(w, r)
		return
	}

	if r.Method != http.MethodPut {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	user, ok := requireUser(w, r, a.HeaderAuth)
	if !ok {
		return
	}

	if path == "read-all" {
		updated, err := a.Store.MarkAllRead(r.Context(), user.ID)
		if err != nil {
			log.Printf("ERROR: failed to mark notifications read for user %s: %v", user.ID, err)
			writeError(w, http.StatusInternalServerError, "internal_error", "failed to mark notifications read")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"updated": updated})
		return
	}

	id, action, found := strings.Cut(path, "/")
	if !found || action != "read" || id == "" {
		writeError(w, http.StatusNotFound, "not_found", "not found")
		return
	}

	updated, err := a.Store.MarkRead(r.Context(), user.ID, id)
	if err != nil {
		log.Printf("ERROR: failed to mark notification %s read: %v", id, err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to mark notification read")
		return
	}
	if !updated {
		writeError(w, http.StatusNotFound, "not_found", "notification not found or already read")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "read"})
}
