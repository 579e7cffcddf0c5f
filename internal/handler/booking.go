package handler

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/skip2/go-qrcode"

	"github.com/Shivanand-hulikatti/resource-booking/internal/model"
)

// tokenHeader carries a management token on self-service requests.
// GET links may pass it as ?token= instead.
const tokenHeader = "X-Booking-Token"

const qrSize = 256

// CreateReservation handles POST /reservations
// Reserves an interval on one resource without an event type.
func (h *Handler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	var req model.CreateReservationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if a := actor(r); a != "" {
		req.ActorID = a
	}

	id, err := h.bookings.CreateReservation(r.Context(), req.ResourceID, req.ActorID, req.Start, req.End)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// CreateBooking handles POST /bookings
// Books an event type on a resource. The response carries the management
// token; it is never returned again.
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req model.CreateBookingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	req.ActorID = actor(r)

	b, err := h.bookings.CreateBooking(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// ListBookings handles
// GET /bookings?resourceId=&organizationId=&status=&from=&to=&limit=
func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := model.BookingFilter{
		ResourceID:     q.Get("resourceId"),
		OrganizationID: q.Get("organizationId"),
		Status:         model.BookingStatus(q.Get("status")),
	}
	var err error
	if f.From, err = queryMillis(r, "from"); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if f.To, err = queryMillis(r, "to"); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if f.Limit, err = queryInt(r, "limit", 0); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	list, err := h.bookings.ListBookings(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// GetBooking handles GET /bookings/{id}
func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.bookings.GetBooking(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// ListHistory handles GET /bookings/{id}/history
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	hist, err := h.bookings.ListHistory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hist)
}

// CancelBooking handles POST /bookings/{id}/cancel
func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(id, reason, by string) (*model.Booking, error) {
		return h.bookings.CancelBooking(r.Context(), id, reason, by)
	})
}

// ConfirmBooking handles POST /bookings/{id}/confirm
func (h *Handler) ConfirmBooking(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(id, _, by string) (*model.Booking, error) {
		return h.bookings.ConfirmBooking(r.Context(), id, by)
	})
}

// DeclineBooking handles POST /bookings/{id}/decline
func (h *Handler) DeclineBooking(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(id, reason, by string) (*model.Booking, error) {
		return h.bookings.DeclineBooking(r.Context(), id, reason, by)
	})
}

// CompleteBooking handles POST /bookings/{id}/complete
func (h *Handler) CompleteBooking(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(id, _, by string) (*model.Booking, error) {
		return h.bookings.CompleteBooking(r.Context(), id, by)
	})
}

// transition decodes an optional reason and runs fn for the booking in
// the URL.
func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn func(id, reason, by string) (*model.Booking, error)) {
	var req model.TransitionRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}
	b, err := fn(chi.URLParam(r, "id"), req.Reason, actor(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// RescheduleBooking handles POST /bookings/{id}/reschedule
func (h *Handler) RescheduleBooking(w http.ResponseWriter, r *http.Request) {
	var req model.RescheduleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	b, err := h.bookings.RescheduleBooking(r.Context(), chi.URLParam(r, "id"), req, actor(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// ─── Self-service management ──────────────────────────────────────────────────

func manageToken(r *http.Request) string {
	if t := r.Header.Get(tokenHeader); t != "" {
		return t
	}
	return r.URL.Query().Get("token")
}

// ManageBooking handles GET /manage/{uid}
func (h *Handler) ManageBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.bookings.ManageBooking(r.Context(), chi.URLParam(r, "uid"), manageToken(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// CancelWithToken handles POST /manage/{uid}/cancel
func (h *Handler) CancelWithToken(w http.ResponseWriter, r *http.Request) {
	var req model.TransitionRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}
	b, err := h.bookings.CancelWithToken(r.Context(), chi.URLParam(r, "uid"), manageToken(r), req.Reason)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// RescheduleWithToken handles POST /manage/{uid}/reschedule
// The response carries the new booking's management token.
func (h *Handler) RescheduleWithToken(w http.ResponseWriter, r *http.Request) {
	var req model.RescheduleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	b, err := h.bookings.RescheduleWithToken(r.Context(), chi.URLParam(r, "uid"), manageToken(r), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// ManagementQR handles GET /manage/{uid}/qr?token=
// Renders the management link as a PNG QR code.
func (h *Handler) ManagementQR(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")
	token := manageToken(r)
	if _, err := h.bookings.ManageBooking(r.Context(), uid, token); err != nil {
		h.fail(w, r, err)
		return
	}

	link := h.baseURL + "/manage/" + url.PathEscape(uid) + "?token=" + url.QueryEscape(token)
	png, err := qrcode.Encode(link, qrcode.Medium, qrSize)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// ─── Multi-resource ───────────────────────────────────────────────────────────

// CheckMultiResourceAvailability handles POST /multi/availability
func (h *Handler) CheckMultiResourceAvailability(w http.ResponseWriter, r *http.Request) {
	var req model.CheckMultiResourceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	res, err := h.bookings.CheckMultiResourceAvailability(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// CreateMultiResourceBooking handles POST /multi/bookings
func (h *Handler) CreateMultiResourceBooking(w http.ResponseWriter, r *http.Request) {
	var req model.CreateMultiResourceBookingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	req.ActorID = actor(r)

	b, err := h.bookings.CreateMultiResourceBooking(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}
