package handlers

import (
	"net/http"
	"time"

	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/abrezinsky/pizzarate/internal/identity"
)

// conditionalHTTPLogger only logs HTTP requests when HTTP logging is enabled
func (h *Handlers) conditionalHTTPLogger(next http.Handler) http.Handler {
	logger := middleware.Logger(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Log != nil && h.Log.IsHTTPLoggingEnabled() {
			logger.ServeHTTP(w, r)
		} else {
			next.ServeHTTP(w, r)
		}
	})
}

// tokenFromQuery lets browsers, which cannot set headers on a websocket
// handshake, pass the bearer token as ?token=
func tokenFromQuery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := r.URL.Query().Get("token"); token != "" && r.Header.Get("Authorization") == "" {
			r.Header.Set("Authorization", "Bearer "+token)
		}
		next.ServeHTTP(w, r)
	})
}

// Router returns a configured chi router with all routes
func (h *Handlers) Router() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.conditionalHTTPLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RedirectSlashes)

	r.Get("/healthz", h.handleHealth)

	// WebSocket
	r.With(tokenFromQuery, h.Auth.RequireUser).Get("/ws", h.handleWebSocket)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		// Public
		r.Get("/criteria", h.handleGetCriteria)
		r.Post("/identity/anonymous", h.handleCreateAnonymous)
		r.Post("/session", h.handleCreateSession)
		r.Post("/session/logout", h.handleLogout)

		// Signed in
		r.Group(func(r chi.Router) {
			r.Use(h.Auth.RequireUser)

			// Profile
			r.Get("/me", h.handleGetMe)
			r.Put("/me", h.handleUpdateMe)
			r.Post("/me/upgrade", h.handleUpgradeMe)
			r.Post("/me/link", h.handleLinkCredential)

			// Events
			r.Get("/events", h.handleListEvents)
			r.Post("/events", h.handleCreateEvent)
			r.Get("/events/{id}", h.handleGetEvent)
			r.Put("/events/{id}/status", h.handleAdvanceStatus)
			r.Get("/events/{id}/invite.png", h.handleInviteQR)

			// Membership
			r.Post("/events/{id}/join-requests", h.handleRequestJoin)
			r.Delete("/events/{id}/join-requests/{uid}", h.handleDeleteJoinRequest)
			r.Post("/events/{id}/participants", h.handleAddParticipant)
			r.Delete("/events/{id}/participants/me", h.handleLeave)

			// Pizzas & ratings
			r.Get("/events/{id}/pizzas", h.handleListPizzas)
			r.Post("/events/{id}/pizzas", h.handleAddPizza)
			r.Get("/events/{id}/pizzas/{pizzaID}/rating", h.handleGetMyRating)
			r.Put("/events/{id}/pizzas/{pizzaID}/rating", h.handleUpsertRating)
			r.Get("/events/{id}/scores", h.handleGetScores)
		})
	})

	return r
}

var allowedHeaders = []string{
	"Content-Type", "Authorization",
	identity.HeaderUserID, identity.HeaderAnonymous, identity.HeaderName, identity.HeaderEmail,
}

// Handler wraps the router with CORS and Sentry panic reporting
func (h *Handlers) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   h.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   allowedHeaders,
		AllowCredentials: true,
	})
	sentryHandler := sentryhttp.New(sentryhttp.Options{Repanic: true})
	return sentryHandler.Handle(c.Handler(h.Router()))
}
