package handlers

import (
	"context"

	"github.com/abrezinsky/pizzarate/internal/auth"
	"github.com/abrezinsky/pizzarate/internal/identity"
	"github.com/abrezinsky/pizzarate/internal/logger"
	"github.com/abrezinsky/pizzarate/internal/services"
	"github.com/abrezinsky/pizzarate/internal/websocket"
)

// Pinger reports whether the document store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps holds all HTTP handler dependencies
type Deps struct {
	Identity   services.IdentityServicer
	Membership services.MembershipServicer
	Events     services.EventServicer
	Pizzas     services.PizzaServicer
	Ratings    services.RatingServicer
	Provider   identity.Provider
	Auth       *auth.Auth
	Hub        *websocket.Hub
	Store      Pinger
	Log        logger.Logger

	// BaseURL is the public address used in invite links
	BaseURL     string
	CORSOrigins []string
}

// Handlers serves the JSON API and the live update socket
type Handlers struct {
	Deps
}

// New creates a new Handlers instance. The auth middleware is set to answer
// in the API's error format and the hub to authorize event topics by role.
func New(d Deps) *Handlers {
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	h := &Handlers{Deps: d}
	if h.Auth != nil {
		h.Auth.SetErrorWriter(h.fail)
	}
	if h.Hub != nil {
		h.Hub.SetAuthorizer(h.authorizeTopic)
	}
	return h
}
