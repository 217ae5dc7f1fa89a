/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     zerolog request line (method, path, status, duration)
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the seating editor
  5. Actor:      X-Actor-ID / X-Actor-Role -> seating.Actor

ROUTE GROUPS:
  /api/projects/{projectID}/*   Directory, seating, constraints, audit, ws
  /api/scenarios/*              Demo scenarios
  /healthz                      Liveness

SECURITY NOTE:
  Identity is established upstream. This service trusts the actor headers
  and only enforces what each role may do.

SEE ALSO:
  - handlers.go: Handler implementations
  - middleware.go: Actor and logging middleware
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(requestLogger(h.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", HeaderActorID, HeaderActorRole},
		AllowCredentials: true,
	}))

	r.Get("/healthz", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Use(withActor)

		r.Route("/projects/{projectID}", func(r chi.Router) {
			r.Delete("/", h.DeleteProject)

			// Directory routes
			r.Route("/guests", func(r chi.Router) {
				r.Get("/", h.ListGuests)
				r.Post("/", h.CreateGuest)
				r.Delete("/{guestID}", h.DeleteGuest)
			})
			r.Route("/tables", func(r chi.Router) {
				r.Get("/", h.ListTables)
				r.Post("/", h.CreateTable)
				r.Delete("/{tableID}", h.DeleteTable)
			})
			r.Get("/assignments", h.ListAssignments)

			// Seating routes
			r.Route("/seating", func(r chi.Router) {
				r.Post("/assign", h.Assign)
				r.Post("/unassign", h.Unassign)
				r.Post("/move", h.Move)
				r.Get("/suggestions/{guestID}", h.Suggestions)
				r.Post("/auto-assign", h.AutoAssign)
			})

			// Constraint routes
			r.Route("/constraints", func(r chi.Router) {
				r.Get("/", h.ListConstraints)
				r.Post("/", h.CreateConstraint)
				r.Delete("/{constraintID}", h.DeleteConstraint)
			})

			r.Get("/audit", h.ListAudit)
			r.Get("/ws", h.ServeWS)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}
