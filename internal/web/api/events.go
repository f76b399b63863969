package api

import (
	"net/http"
	"time"

	"github.com/patcharin/perkstream/internal/event"
)

// connectedMessage is the payload of the first frame on every stream.
const connectedMessage = "Connected to real-time updates"

// handleEvents serves the long-lived event stream. The caller
// authenticates via bearer header or token query parameter, is registered
// with the connection registry, and then receives its channel's events as
// SSE frames interleaved with keep-alive heartbeats. Deregistration is
// guaranteed on every exit path, including abnormal disconnects.
func (a *API) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	user, ok := requireUser(w, r, a.StreamAuth)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming_unsupported", "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	connID, events := a.Registry.AddClient(user.ID)
	// The registry removal must run no matter how the stream ends:
	// client disconnect, write error, or a panic mid-stream. RemoveClient
	// is idempotent, so a second trigger is harmless.
	defer a.Registry.RemoveClient(user.ID, connID)

	if _, err := w.Write(event.Connected(connectedMessage).MarshalSSE()); err != nil {
		return
	}
	flusher.Flush()

	heartbeat := time.NewTicker(a.heartbeatInterval())
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-events:
			if !open {
				return
			}
			if _, err := w.Write(ev.MarshalSSE()); err != nil {
				return
			}
			flusher.Flush()
			// A real event proves liveness; push the next heartbeat out.
			heartbeat.Reset(a.heartbeatInterval())
		case <-heartbeat.C:
			if _, err := w.Write(event.Heartbeat().MarshalSSE()); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// handleEventsInfo reports the caller's current connection state.
func (a *API) handleEventsInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	user, ok := requireUser(w, r, a.HeaderAuth)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"userId":           user.ID,
		"connectedClients": a.Registry.ClientCount(user.ID),
		"supportedEvents":  event.TypeStrings(),
	})
}
