package repository

import (
	"context"

	"github.com/abrezinsky/pizzarate/internal/membership"
	"github.com/abrezinsky/pizzarate/internal/models"
)

// UserRepository defines user profile operations
type UserRepository interface {
	GetUserProfile(ctx context.Context, uid string) (*models.UserProfile, error)
	// CreateUserProfile returns ErrDuplicate if the uid already has a profile
	CreateUserProfile(ctx context.Context, p *models.UserProfile) error
	UpdateUserProfile(ctx context.Context, p *models.UserProfile) error
}

// EventRepository defines event operations
type EventRepository interface {
	CreateEvent(ctx context.Context, e *models.Event) error
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	ListEventsCreatedBy(ctx context.Context, uid string) ([]models.Event, error)
	ListEventsWithParticipant(ctx context.Context, uid string) ([]models.Event, error)
	// ApplyMembership performs every edit in change for uid as one atomic write
	ApplyMembership(ctx context.Context, eventID, uid string, change membership.Change) error
	// AdvanceEventStatus moves the event to status only if that is forward.
	// It reports whether the stored status changed.
	AdvanceEventStatus(ctx context.Context, eventID string, status models.EventStatus) (bool, error)
}

// PizzaRepository defines pizza operations
type PizzaRepository interface {
	CreatePizza(ctx context.Context, p *models.Pizza) error
	GetPizza(ctx context.Context, id string) (*models.Pizza, error)
	ListPizzasForEvent(ctx context.Context, eventID string) ([]models.Pizza, error)
}

// RatingRepository defines rating operations
type RatingRepository interface {
	FindRating(ctx context.Context, eventID, pizzaID, userID string) (*models.Rating, error)
	// CreateRating returns ErrDuplicate if the user already rated the pizza
	CreateRating(ctx context.Context, r *models.Rating) error
	UpdateRating(ctx context.Context, r *models.Rating) error
	ListRatingsForEvent(ctx context.Context, eventID string) ([]models.Rating, error)
}

// FullRepository combines all repository interfaces
// Use this when a service needs access to multiple domains
type FullRepository interface {
	UserRepository
	EventRepository
	PizzaRepository
	RatingRepository
	Ping(ctx context.Context) error
	Close() error
}

// Ensure Repository implements all interfaces
var _ FullRepository = (*Repository)(nil)
