package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/patcharin/perkstream/internal/auth"
	"github.com/patcharin/perkstream/internal/publish"
	"github.com/patcharin/perkstream/internal/registry"
	"github.com/patcharin/perkstream/internal/store"
)

// DefaultHeartbeatInterval is the keep-alive interval for event streams
// when none is configured.
const DefaultHeartbeatInterval = 30 * time.Second

// API holds dependencies for all API handlers.
type API struct {
	Registry  *registry.Registry
	Publisher *publish.Publisher
	Store     store.NotificationStore

	// StreamAuth resolves identity for the stream endpoint: bearer
	// header first, then the token query parameter (EventSource cannot
	// set headers). HeaderAuth accepts the header only.
	StreamAuth *auth.Chain
	HeaderAuth *auth.Chain

	Heartbeat time.Duration
}

// RegisterRoutes registers all API routes on the given ServeMux.
func (a *API) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/events", a.handleEvents)
	mux.HandleFunc("/api/v1/events/info", a.handleEventsInfo)
	mux.HandleFunc("/api/v1/notifications", a.handleNotifications)
	mux.HandleFunc("/api/v1/notifications/", a.routeNotifications)
	mux.HandleFunc("/api/v1/admin/", a.routeAdmin)
	mux.HandleFunc("/api/v1/health", a.handleHealth)
	mux.HandleFunc("/api/v1/stats", a.handleStats)
}

// heartbeatInterval returns the configured keep-alive interval.
func (a *API) heartbeatInterval() time.Duration {
	if a.Heartbeat > 0 {
		return a.Heartbeat
	}
	return DefaultHeartbeatInterval
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("ERROR: failed to write JSON response: %v", err)
	}
}

// writeError writes the structured error envelope used across the API.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}

// writeAuthError maps an authentication failure to its wire error code.
func writeAuthError(w http.ResponseWriter, err error) {
	code := "unauthorized"
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		code = "token_expired"
	case errors.Is(err, auth.ErrInvalidToken):
		code = "invalid_token"
	}
	writeError(w, http.StatusUnauthorized, code, err.Error())
}

// requireUser resolves the caller identity via chain, writing a 401
// envelope and returning false on failure.
func requireUser(w http.ResponseWriter, r *http.Request, chain *auth.Chain) (*auth.User, bool) {
	user, err := chain.Resolve(r)
	if err != nil {
		writeAuthError(w, err)
		return nil, false
	}
	return user, true
}

// requireAdmin is requireUser plus an administrative-role gate.
func (a *API) requireAdmin(w http.ResponseWriter, r *http.Request) (*auth.User, bool) {
	user, ok := requireUser(w, r, a.HeaderAuth)
	if !ok {
		return nil, false
	}
	if !user.IsAdmin() {
		writeError(w, http.StatusForbidden, "forbidden", "admin access required")
		return nil, false
	}
	return user, true
}
