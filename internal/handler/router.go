package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mmeshcher/foodrescue/internal/apperr"
	"github.com/mmeshcher/foodrescue/internal/metrics"
	custommiddleware "github.com/mmeshcher/foodrescue/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса.
func (h *Handler) SetupRouter(allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(custommiddleware.Logger(h.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "Content-Encoding"},
		MaxAge:         300,
	}))

	// promhttp сжимает ответ самостоятельно.
	r.Handle("/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(custommiddleware.GzipMiddleware)

		r.Get("/healthz", h.Health)
		r.Route("/api", h.apiRoutes)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.writeError(w, r, apperr.New(apperr.KindNotFound, "route not found"))
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		h.writeJSON(w, http.StatusMethodNotAllowed, envelope{Success: false, Message: http.StatusText(http.StatusMethodNotAllowed)})
	})

	return r
}

func (h *Handler) apiRoutes(r chi.Router) {
	r.Use(h.authMiddleware.Middleware)

	r.Route("/donations", func(r chi.Router) {
		r.Post("/", h.CreateDonation)
		r.Get("/available", h.ListAvailable)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetDonation)
			r.Delete("/", h.DeleteDonation)
			r.Post("/assign", h.AssignVolunteer)
			r.Post("/cancel-assignment", h.CancelAssignment)
			r.Post("/withdraw", h.WithdrawDonation)
			r.Post("/complete", h.CompleteDelivery)
		})
	})

	r.Route("/suppliers/{supplierId}", func(r chi.Router) {
		r.Post("/confirm-pickup", h.ConfirmPickup)
		r.Get("/listed", h.SupplierListed)
		r.Get("/receipts", h.Receipts)
		r.Get("/overview", h.SupplierOverview)
	})

	r.Route("/volunteers/{volunteerId}", func(r chi.Router) {
		r.Get("/scheduled", h.VolunteerScheduled)
		r.Get("/completed", h.VolunteerCompleted)
		r.Get("/completed-count", h.VolunteerCompletedCount)
		r.Get("/pickup-code", h.PickupCode)
	})

	r.Get("/organizer/dashboard", h.Dashboard)
}
