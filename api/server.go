/*
server.go - HTTP router and middleware configuration.

ROUTER: chi, with the same middleware stack the teacher uses
  (Logger, Recoverer, RequestID, CORS).

ROUTE GROUPS:
  /api/currencies/*            Currency registry administration
  /api/players/{player}/*      Balance reads and mutations
  /api/snapshots/*             Backup/rollback

SECURITY NOTE:
  No authentication middleware. All endpoints are public; deploy behind
  a trusted network boundary or add auth middleware before exposing
  this outside a private network.

GROUNDING:
  Grounded on the teacher's api/server.go NewRouter, carrying over its
  middleware stack and CORS options verbatim and replacing its
  employee/policy route tree with the currency/player/snapshot tree.
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a router with every administrative route wired to h.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/currencies", func(r chi.Router) {
			r.Get("/", h.ListCurrencies)
			r.Post("/", h.CreateCurrency)
			r.Post("/{id}/enable", h.EnableCurrency)
			r.Post("/{id}/disable", h.DisableCurrency)
			r.Post("/{id}/primary", h.SetPrimaryCurrency)
			r.Delete("/{id}", h.DeleteCurrency)
		})

		r.Route("/players/{player}", func(r chi.Router) {
			r.Get("/balance", h.GetBalance)
			r.Post("/deposit", h.Deposit)
			r.Post("/withdraw", h.Withdraw)
			r.Post("/set", h.SetBalance)
			r.Post("/max-balance", h.SetMaxBalance)
			r.Get("/transactions", h.Transactions)
		})

		r.Route("/snapshots", func(r chi.Router) {
			r.Get("/", h.ListSnapshots)
			r.Post("/", h.CreateSnapshot)
			r.Post("/{id}/rollback", h.Rollback)
			r.Post("/{id}/rollback/{player}", h.RollbackPlayer)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return r
}
