package handlers

import (
	"github.com/abrezinsky/pizzarate/internal/membership"
	"github.com/abrezinsky/pizzarate/internal/models"
	"github.com/abrezinsky/pizzarate/internal/scoring"
)

// HealthResponse is the response for the health check
type HealthResponse struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
	Clients int    `json:"clients"`
}

// AnonymousResponse is the response for guest account creation
type AnonymousResponse struct {
	UID   string `json:"uid"`
	Token string `json:"token"`
}

// SessionResponse is the response for a successful sign-in
type SessionResponse struct {
	Profile *models.UserProfile `json:"profile"`
	// Degraded is true when the profile could not be loaded from storage
	Degraded bool `json:"degraded,omitempty"`
}

// EventResponse is an event together with the caller's role in it
type EventResponse struct {
	Event *models.Event   `json:"event"`
	Role  membership.Role `json:"role"`
}

// EventListResponse is the response for the caller's events
type EventListResponse struct {
	Events []models.Event `json:"events"`
}

// PizzaListResponse is the response for an event's pizzas
type PizzaListResponse struct {
	Pizzas []models.Pizza `json:"pizzas"`
}

// RatingResponse is the caller's rating of one pizza with its score
type RatingResponse struct {
	Rating *models.Rating `json:"rating"`
	Score  float64        `json:"score"`
}

// ScoresResponse is the event scoreboard
type ScoresResponse struct {
	Scores []scoring.PizzaScore `json:"scores"`
}

// CriteriaResponse lists the rating criteria
type CriteriaResponse struct {
	Criteria     []scoring.Criterion `json:"criteria"`
	DefaultScore int                 `json:"default_score"`
}
