package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	custommiddleware "github.com/mmeshcher/milesmarket/internal/middleware"
	"github.com/mmeshcher/milesmarket/internal/model"
)

// SetupRouter настраивает HTTP-маршруты и middleware маркетплейса.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", h.Register)
		r.Post("/auth/login", h.Login)

		r.Get("/airlines", h.ListAirlines)
		r.Get("/offers", h.ListOffers)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Get("/offers/mine", h.ListMyOffers)
			r.Post("/offers", h.CreateOffer)
			r.Patch("/offers/{id}", h.UpdateOffer)
			r.Delete("/offers/{id}", h.CancelOffer)
			r.Post("/offers/{id}/purchase", h.Purchase)

			r.Get("/transactions", h.ListTransactions)
			r.Get("/transactions/stats", h.GetStats)
			r.Get("/transactions/{id}", h.GetTransaction)
			r.Patch("/transactions/{id}/status", h.UpdateTransactionStatus)

			r.Get("/me/balance", h.GetBalance)

			r.Post("/verification", h.SubmitVerification)
			r.Get("/verification", h.GetVerification)

			r.Route("/admin", func(r chi.Router) {
				r.Use(custommiddleware.RequireRole(model.RoleAdmin))

				r.Get("/verifications/pending", h.ListPendingVerifications)
				r.Post("/verifications/{id}/review", h.ReviewVerification)
				r.Post("/users/{id}/credit", h.GrantCredit)
			})
		})

		r.Get("/offers/{id}", h.GetOffer)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "NOT_FOUND", Message: http.StatusText(http.StatusNotFound)})
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "METHOD_NOT_ALLOWED", Message: http.StatusText(http.StatusMethodNotAllowed)})
	})

	return r
}
