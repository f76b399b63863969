package api

import (
	"log"
	"net/http"
)

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statsResponse struct {
	ConnectedUsers     int `json:"connected_users"`
	ConnectedClients   int `json:"connected_clients"`
	TotalNotifications int `json:"total_notifications"`
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	if _, ok := a.requireAdmin(w, r); !ok {
		return
	}

	total, err := a.Store.TotalCount(r.Context())
	if err != nil {
		log.Printf("ERROR: failed to count notifications: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to count notifications")
		return
	}

	writeJSON(w, http.StatusOK, statsResponse{
		ConnectedUsers:     a.Registry.UserCount(),
		ConnectedClients:   a.Registry.TotalClientCount(),
		TotalNotifications: total,
	})
}
