package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/resource-booking/internal/model"
)

// Heartbeat handles POST /resources/{id}/presence/heartbeat
func (h *Handler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	var req model.HeartbeatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	updated, err := h.presence.Heartbeat(r.Context(), chi.URLParam(r, "id"), req.Slots, req.User, req.Data)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"updated":   updated,
		"expiresAt": updated.Add(h.presence.Timeout()),
	})
}

// Leave handles POST /resources/{id}/presence/leave
func (h *Handler) Leave(w http.ResponseWriter, r *http.Request) {
	var req model.LeaveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := h.presence.Leave(r.Context(), chi.URLParam(r, "id"), req.Slots, req.User); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DatePresence handles GET /resources/{id}/presence?date=
func (h *Handler) DatePresence(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().UTC().Format(time.DateOnly)
	}
	recs, err := h.presence.DatePresence(r.Context(), chi.URLParam(r, "id"), date)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if recs == nil {
		recs = []model.PresenceRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

// PresenceFeed handles GET /resources/{id}/presence/ws
// Streams presence events of the resource over a websocket.
func (h *Handler) PresenceFeed(w http.ResponseWriter, r *http.Request) {
	h.hub.Serve(w, r, chi.URLParam(r, "id"))
}
