package services

import (
	"context"

	"github.com/abrezinsky/pizzarate/internal/identity"
	"github.com/abrezinsky/pizzarate/internal/membership"
	"github.com/abrezinsky/pizzarate/internal/models"
	"github.com/abrezinsky/pizzarate/internal/scoring"
)

// Live update message types
const (
	MsgProfileUpdated  = "profile_updated"
	MsgEventUpdated    = "event_updated"
	MsgRatingSubmitted = "rating_submitted"
	MsgPizzaAdded      = "pizza_added"

	// MsgTopicRevoked goes to a user's topic with the event topic they lost
	// access to as payload
	MsgTopicRevoked = "topic_revoked"
)

// UserTopic is the topic profile changes for uid are published on
func UserTopic(uid string) string { return "user:" + uid }

// EventTopic is the topic event and rating changes are published on
func EventTopic(eventID string) string { return "event:" + eventID }

// Broadcaster defines the interface for pushing live updates to clients
type Broadcaster interface {
	Publish(msg models.WSMessage)
}

type nopBroadcaster struct{}

func (nopBroadcaster) Publish(models.WSMessage) {}

// IdentityServicer defines the interface for profile operations
type IdentityServicer interface {
	Resolve(ctx context.Context, id identity.Identity) (*models.UserProfile, error)
	FallbackProfile(id identity.Identity) *models.UserProfile
	EnsureIdentity(ctx context.Context, id identity.Identity) (*models.UserProfile, error)
	Upgrade(ctx context.Context, id identity.Identity) (*models.UserProfile, error)
	GetProfile(ctx context.Context, uid string) (*models.UserProfile, error)
	UpdateProfile(ctx context.Context, uid string, update ProfileUpdate) (*models.UserProfile, error)
	Subscribe(uid string) (<-chan models.UserProfile, func())
}

// MembershipServicer defines the interface for join/leave operations
type MembershipServicer interface {
	RequestJoin(ctx context.Context, eventID, uid string) (*models.Event, error)
	ApproveOrJoin(ctx context.Context, eventID, actor, uid string) (*models.Event, error)
	Deny(ctx context.Context, eventID, actor, uid string) (*models.Event, error)
	Leave(ctx context.Context, eventID, uid string) (*models.Event, error)
	Withdraw(ctx context.Context, eventID, uid string) (*models.Event, error)
	RoleOf(ctx context.Context, eventID, uid string) (membership.Role, error)
}

// EventServicer defines the interface for event operations
type EventServicer interface {
	ListEventsForUser(ctx context.Context, uid string) ([]models.Event, error)
	CreateEvent(ctx context.Context, input EventInput, creatorUID string) (*models.Event, error)
	GetEvent(ctx context.Context, eventID string) (*models.Event, error)
	AdvanceStatus(ctx context.Context, eventID, actor string, status models.EventStatus) (*models.Event, error)
	InviteQR(ctx context.Context, eventID, actor, baseURL string) ([]byte, error)
}

// PizzaServicer defines the interface for pizza operations
type PizzaServicer interface {
	ListPizzasForEvent(ctx context.Context, eventID, viewer string) ([]models.Pizza, error)
	AddPizza(ctx context.Context, eventID string, input PizzaInput, creatorUID string) (*models.Pizza, error)
}

// RatingServicer defines the interface for rating operations
type RatingServicer interface {
	UpsertRating(ctx context.Context, eventID, pizzaID, userID string, criteria map[string]int, comments string) (*models.Rating, error)
	GetMyRating(ctx context.Context, eventID, pizzaID, userID string) (*models.Rating, error)
	EventScores(ctx context.Context, eventID, viewer string) ([]scoring.PizzaScore, error)
}

// Ensure concrete types implement interfaces
var (
	_ IdentityServicer   = (*IdentityService)(nil)
	_ MembershipServicer = (*MembershipService)(nil)
	_ EventServicer      = (*EventService)(nil)
	_ PizzaServicer      = (*PizzaService)(nil)
	_ RatingServicer     = (*RatingService)(nil)
)
