package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/resource-booking/internal/model"
)

// ─── Resources ────────────────────────────────────────────────────────────────

// CreateResource handles POST /admin/resources
func (h *Handler) CreateResource(w http.ResponseWriter, r *http.Request) {
	var in model.ResourceInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	res, err := h.registry.CreateResource(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// ListResources handles GET /admin/resources?organizationId=
func (h *Handler) ListResources(w http.ResponseWriter, r *http.Request) {
	list, err := h.registry.ListResources(r.Context(), r.URL.Query().Get("organizationId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if list == nil {
		list = []model.Resource{}
	}
	writeJSON(w, http.StatusOK, list)
}

// GetResource handles GET /admin/resources/{id}
func (h *Handler) GetResource(w http.ResponseWriter, r *http.Request) {
	res, err := h.registry.GetResource(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// UpdateResource handles PUT /admin/resources/{id}
func (h *Handler) UpdateResource(w http.ResponseWriter, r *http.Request) {
	var in model.ResourceInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	id := chi.URLParam(r, "id")
	in.ID = id
	res, err := h.registry.UpdateResource(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// DeleteResource handles DELETE /admin/resources/{id}
func (h *Handler) DeleteResource(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.DeleteResource(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LinkEventType handles PUT /admin/resources/{id}/event-types/{eventTypeId}
func (h *Handler) LinkEventType(w http.ResponseWriter, r *http.Request) {
	err := h.registry.LinkEventType(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "eventTypeId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UnlinkEventType handles DELETE /admin/resources/{id}/event-types/{eventTypeId}
func (h *Handler) UnlinkEventType(w http.ResponseWriter, r *http.Request) {
	err := h.registry.UnlinkEventType(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "eventTypeId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ─── Event types ──────────────────────────────────────────────────────────────

// CreateEventType handles POST /admin/event-types
func (h *Handler) CreateEventType(w http.ResponseWriter, r *http.Request) {
	var in model.EventTypeInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	et, err := h.registry.CreateEventType(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, et)
}

// ListEventTypes handles GET /admin/event-types?organizationId=
func (h *Handler) ListEventTypes(w http.ResponseWriter, r *http.Request) {
	list, err := h.registry.ListEventTypes(r.Context(), r.URL.Query().Get("organizationId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if list == nil {
		list = []model.EventType{}
	}
	writeJSON(w, http.StatusOK, list)
}

// GetEventType handles GET /admin/event-types/{id}
func (h *Handler) GetEventType(w http.ResponseWriter, r *http.Request) {
	et, err := h.registry.GetEventType(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, et)
}

// UpdateEventType handles PUT /admin/event-types/{id}
func (h *Handler) UpdateEventType(w http.ResponseWriter, r *http.Request) {
	var in model.EventTypeInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	et, err := h.registry.UpdateEventType(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, et)
}

// DeleteEventType handles DELETE /admin/event-types/{id}
func (h *Handler) DeleteEventType(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.DeleteEventType(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LinkedResources handles GET /admin/event-types/{id}/resources
func (h *Handler) LinkedResources(w http.ResponseWriter, r *http.Request) {
	ids, err := h.registry.LinkedResources(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, ids)
}

// ─── Schedules ────────────────────────────────────────────────────────────────

// CreateSchedule handles POST /admin/schedules
func (h *Handler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	var in model.ScheduleInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	sc, err := h.registry.CreateSchedule(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sc)
}

// ListSchedules handles GET /admin/schedules?organizationId=
func (h *Handler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	list, err := h.registry.ListSchedules(r.Context(), r.URL.Query().Get("organizationId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if list == nil {
		list = []model.Schedule{}
	}
	writeJSON(w, http.StatusOK, list)
}

// UpdateSchedule handles PUT /admin/schedules/{id}
func (h *Handler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	var in model.ScheduleInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	sc, err := h.registry.UpdateSchedule(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

// DeleteSchedule handles DELETE /admin/schedules/{id}
func (h *Handler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.DeleteSchedule(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
