package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/patcharin/perkstream/internal/event"
)

// routeAdmin dispatches /api/v1/admin/{action} requests. These endpoints
// let back-office tooling push realtime events; all of them are
// fire-and-forget, so success means "accepted", not "delivered".
func (a *API) routeAdmin(w http.ResponseWriter, r *http.Request) {
	action := strings.TrimPrefix(r.URL.Path, "/api/v1/admin/")

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	if _, ok := a.requireAdmin(w, r); !ok {
		return
	}

	switch action {
	case "loyalty-update":
		a.handleLoyaltyUpdate(w, r)
	case "coupon-assigned":
		a.handleCouponAssigned(w, r)
	case "slip-uploaded":
		a.handleSlipUploaded(w, r)
	case "broadcast":
		a.handleBroadcast(w, r)
	default:
		writeError(w, http.StatusNotFound, "not_found", "not found")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid JSON body")
		return false
	}
	return true
}

func accepted(w http.ResponseWriter) {
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (a *API) handleLoyaltyUpdate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID      string `json:"user_id"`
		Points      int    `json:"points"`
		Tier        string `json:"tier"`
		TotalNights int    `json:"total_nights"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "user_id is required")
		return
	}
	a.Publisher.LoyaltyUpdate(req.UserID, req.Points, req.Tier, req.TotalNights)
	accepted(w)
}

func (a *API) handleCouponAssigned(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string         `json:"user_id"`
		Coupon map[string]any `json:"coupon"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "user_id is required")
		return
	}
	a.Publisher.CouponAssigned(req.UserID, req.Coupon)
	accepted(w)
}

func (a *API) handleSlipUploaded(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BookingID string `json:"booking_id"`
		SlipID    string `json:"slip_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.BookingID == "" || req.SlipID == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "booking_id and slip_id are required")
		return
	}
	a.Publisher.SlipUploaded(req.BookingID, req.SlipID)
	accepted(w)
}

func (a *API) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Event string         `json:"event"`
		Data  map[string]any `json:"data"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	t := event.Type(req.Event)
	if !t.Valid() {
		writeError(w, http.StatusBadRequest, "validation_error", "unknown event type")
		return
	}
	a.Publisher.Broadcast(t, req.Data)
	accepted(w)
}
