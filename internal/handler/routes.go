package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// RouterOptions configures the middleware stack around the API.
type RouterOptions struct {
	// Logger enables the access log when set.
	Logger      *slog.Logger
	CORSOrigins []string
	// Auth defaults to an Authenticator without a secret.
	Auth    *Authenticator
	Limiter *RateLimiter
}

// Routes builds the API router.
func (h *Handler) Routes(opts RouterOptions) http.Handler {
	auth := opts.Auth
	if auth == nil {
		auth = NewAuthenticator("", "")
	}
	limit := func(next http.Handler) http.Handler { return next }
	if opts.Limiter != nil {
		limit = opts.Limiter.Limit
	}

	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	if opts.Logger != nil {
		r.Use(Logger(opts.Logger))
	}
	if len(opts.CORSOrigins) > 0 {
		r.Use(CORS(opts.CORSOrigins))
	}

	// Health
	r.Get("/health", HealthCheck)

	r.Group(func(r chi.Router) {
		r.Use(auth.Identify)

		r.Route("/resources/{id}", func(r chi.Router) {
			r.Get("/availability", h.GetAvailability)
			r.Get("/availability/month", h.GetMonthAvailability)
			r.Get("/slots", h.GetDaySlots)
			if h.presence != nil {
				r.Get("/presence", h.DatePresence)
				r.With(limit).Post("/presence/heartbeat", h.Heartbeat)
				r.With(limit).Post("/presence/leave", h.Leave)
			}
			if h.hub != nil {
				r.Get("/presence/ws", h.PresenceFeed)
			}
		})
		r.Get("/event-types/{id}/slots", h.GetEventTypeSlots)

		r.With(limit, RequireAuth).Post("/reservations", h.CreateReservation)

		r.Route("/bookings", func(r chi.Router) {
			r.With(limit).Post("/", h.CreateBooking)
			r.Group(func(r chi.Router) {
				r.Use(RequireAdmin)
				r.Get("/", h.ListBookings)
				r.Get("/{id}", h.GetBooking)
				r.Get("/{id}/history", h.ListHistory)
				r.Post("/{id}/cancel", h.CancelBooking)
				r.Post("/{id}/confirm", h.ConfirmBooking)
				r.Post("/{id}/decline", h.DeclineBooking)
				r.Post("/{id}/complete", h.CompleteBooking)
				r.Post("/{id}/reschedule", h.RescheduleBooking)
			})
		})

		r.Route("/manage/{uid}", func(r chi.Router) {
			r.Use(limit)
			r.Get("/", h.ManageBooking)
			r.Get("/qr", h.ManagementQR)
			r.Post("/cancel", h.CancelWithToken)
			r.Post("/reschedule", h.RescheduleWithToken)
		})

		r.Route("/multi", func(r chi.Router) {
			r.Post("/availability", h.CheckMultiResourceAvailability)
			r.With(limit).Post("/bookings", h.CreateMultiResourceBooking)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireAdmin)
			r.Route("/resources", func(r chi.Router) {
				r.Get("/", h.ListResources)
				r.Post("/", h.CreateResource)
				r.Get("/{id}", h.GetResource)
				r.Put("/{id}", h.UpdateResource)
				r.Delete("/{id}", h.DeleteResource)
				r.Put("/{id}/event-types/{eventTypeId}", h.LinkEventType)
				r.Delete("/{id}/event-types/{eventTypeId}", h.UnlinkEventType)
			})
			r.Route("/event-types", func(r chi.Router) {
				r.Get("/", h.ListEventTypes)
				r.Post("/", h.CreateEventType)
				r.Get("/{id}", h.GetEventType)
				r.Put("/{id}", h.UpdateEventType)
				r.Delete("/{id}", h.DeleteEventType)
				r.Get("/{id}/resources", h.LinkedResources)
			})
			r.Route("/schedules", func(r chi.Router) {
				r.Get("/", h.ListSchedules)
				r.Post("/", h.CreateSchedule)
				r.Put("/{id}", h.UpdateSchedule)
				r.Delete("/{id}", h.DeleteSchedule)
			})
		})
	})

	return r
}
