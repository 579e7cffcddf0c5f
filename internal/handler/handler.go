// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/Shivanand-hulikatti/resource-booking/internal/model"
	"github.com/Shivanand-hulikatti/resource-booking/internal/presence"
	"github.com/Shivanand-hulikatti/resource-booking/internal/repository"
	"github.com/Shivanand-hulikatti/resource-booking/internal/service"
)

// Handler holds all HTTP handlers for the booking API.
type Handler struct {
	avail    *service.AvailabilityService
	bookings *service.BookingService
	registry *service.RegistryService
	presence *presence.Engine
	hub      *Hub
	baseURL  string
	log      *slog.Logger
}

// Deps are the collaborators of a Handler. Presence and Hub may be nil,
// which disables the presence routes.
type Deps struct {
	Availability *service.AvailabilityService
	Bookings     *service.BookingService
	Registry     *service.RegistryService
	Presence     *presence.Engine
	Hub          *Hub
	// PublicBaseURL prefixes management links encoded in QR codes.
	PublicBaseURL string
	Logger        *slog.Logger
}

// New constructs a Handler.
func New(d Deps) *Handler {
	h := &Handler{
		avail:    d.Availability,
		bookings: d.Bookings,
		registry: d.Registry,
		presence: d.Presence,
		hub:      d.Hub,
		baseURL:  d.PublicBaseURL,
		log:      d.Logger,
	}
	if h.log == nil {
		h.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return h
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// fail maps a service error onto a status code.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var conflict *repository.ConflictError
	switch {
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, model.ErrorResponse{
			Error:     err.Error(),
			Code:      "conflict",
			Resources: conflict.Resources,
		})
	case errors.Is(err, repository.ErrConflict):
		writeJSON(w, http.StatusConflict, model.ErrorResponse{Error: err.Error(), Code: "conflict"})
	case errors.Is(err, repository.ErrNotFound):
		writeJSON(w, http.StatusNotFound, model.ErrorResponse{Error: err.Error(), Code: "not_found"})
	case errors.Is(err, repository.ErrDuplicate):
		writeJSON(w, http.StatusConflict, model.ErrorResponse{Error: err.Error(), Code: "duplicate"})
	case errors.Is(err, repository.ErrInvalidState):
		writeJSON(w, http.StatusConflict, model.ErrorResponse{Error: err.Error(), Code: "invalid_state"})
	case errors.Is(err, service.ErrValidation):
		writeJSON(w, http.StatusUnprocessableEntity, model.ErrorResponse{Error: err.Error(), Code: "validation"})
	case errors.Is(err, service.ErrForbidden):
		writeJSON(w, http.StatusForbidden, model.ErrorResponse{Error: err.Error(), Code: "forbidden"})
	case errors.Is(err, presence.ErrInvalidRequest):
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: err.Error(), Code: "bad_request"})
	default:
		h.log.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// queryInt reads an optional integer query parameter.
func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.New(key + " must be an integer")
	}
	return n, nil
}

// queryMillis reads an optional epoch millisecond query parameter.
func queryMillis(r *http.Request, key string) (int64, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, errors.New(key + " must be epoch milliseconds")
	}
	return n, nil
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
