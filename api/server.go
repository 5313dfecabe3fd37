/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the admin frontend

ROUTE GROUPS:
  /api/tenants/{tenantID}/*   Reports and capture, tenant-scoped
  /api/scenarios/*            Demo scenarios

SECURITY NOTE:
  No authentication middleware. Auth lives in the gateway in front of
  this service; every tenant path segment is trusted as already
  authorized.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured. origins is
// the CORS allow-list; empty falls back to the local dev frontends.
func NewRouter(h *Handler, origins []string) *chi.Mux {
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/tenants/{tenantID}", func(r chi.Router) {
			// Reports
			r.Get("/statement", h.GetStatement)
			r.Get("/cash-report", h.GetCashReport)
			r.Get("/opening-balance", h.GetOpeningBalance)
			r.Get("/dashboard", h.GetDashboard)

			// Payment capture
			r.Route("/payments", func(r chi.Router) {
				r.Post("/capture", h.CapturePayment)
				r.Delete("/{paymentID}", h.ClearPayment)
				r.Post("/{paymentID}/entries", h.AddEntry)
				r.Put("/{paymentID}/entries/{entryID}", h.UpdateEntry)
				r.Delete("/{paymentID}/entries/{entryID}", h.RemoveEntry)
			})

			// Period closing
			r.Route("/closed-periods", func(r chi.Router) {
				r.Get("/", h.ListClosedPeriods)
				r.Post("/", h.ClosePeriod)
			})
			r.Route("/reopen-requests", func(r chi.Router) {
				r.Get("/", h.ListReopenRequests)
				r.Post("/", h.FileReopenRequest)
				r.Post("/{requestID}/approve", h.ApproveReopen)
				r.Post("/{requestID}/reject", h.RejectReopen)
			})

			// Cash-view records
			r.Route("/expenses", func(r chi.Router) {
				r.Get("/", h.ListExpenses)
				r.Post("/", h.AddExpense)
			})
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/load", h.LoadScenario)
		})
	})

	// Minimal index so a browser hit on the root is not a 404.
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Condominium Billing Engine</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Condominium Billing Engine API</h1>
<ul>
<li><a href="/api/scenarios">/api/scenarios</a> - List demo scenarios</li>
<li>/api/tenants/{id}/statement?unit_id=&amp;from=&amp;to= - Unit statement</li>
<li>/api/tenants/{id}/cash-report?period= - Bank reconciliation</li>
<li>/api/tenants/{id}/dashboard?period= - Collection dashboard</li>
</ul>
</body>
</html>`))
	})

	return r
}
