package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// GetAvailability handles GET /resources/{id}/availability?start=&end=
func (h *Handler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	start, err := queryMillis(r, "start")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	end, err := queryMillis(r, "end")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ok, err := h.avail.GetAvailability(r.Context(), id, start, end)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"available": ok})
}

// GetMonthAvailability handles
// GET /resources/{id}/availability/month?dateFrom=&dateTo=&eventLength=&slotInterval=
func (h *Handler) GetMonthAvailability(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	q := r.URL.Query()
	length, interval, err := lengthAndInterval(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	days, err := h.avail.GetMonthAvailability(r.Context(), id, q.Get("dateFrom"), q.Get("dateTo"), length, interval)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, days)
}

// GetDaySlots handles GET /resources/{id}/slots?date=&eventLength=&slotInterval=
func (h *Handler) GetDaySlots(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	length, interval, err := lengthAndInterval(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	slots, err := h.avail.GetDaySlots(r.Context(), id, r.URL.Query().Get("date"), length, interval)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, slots)
}

// GetEventTypeSlots handles
// GET /event-types/{id}/slots?resourceId=&date=&length=
// Free starts after the event type's notice, horizon and buffers.
func (h *Handler) GetEventTypeSlots(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	q := r.URL.Query()
	length, err := queryInt(r, "length", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	slots, err := h.avail.GetEventTypeSlots(r.Context(), id, q.Get("resourceId"), q.Get("date"), length)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, slots)
}

func lengthAndInterval(r *http.Request) (int, int, error) {
	length, err := queryInt(r, "eventLength", 0)
	if err != nil {
		return 0, 0, err
	}
	interval, err := queryInt(r, "slotInterval", 0)
	if err != nil {
		return 0, 0, err
	}
	return length, interval, nil
}
