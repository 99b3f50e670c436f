package handlers

import "github.com/abrezinsky/pizzarate/internal/models"

// SessionRequest carries a provider token when it is not sent as a bearer header
type SessionRequest struct {
	Token string `json:"token"`
}

// ProfileUpdateRequest represents a request to edit the caller's profile
type ProfileUpdateRequest struct {
	DisplayName *string `json:"display_name"`
	AvatarColor *string `json:"avatar_color"`
}

// LinkRequest represents a request to attach an email credential to the caller
type LinkRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// EventCreateRequest represents a request to create an event
type EventCreateRequest struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Date        string            `json:"date"`
	Location    string            `json:"location"`
	JoinPolicy  models.JoinPolicy `json:"join_policy"`
}

// EventStatusRequest represents a request to move an event forward
type EventStatusRequest struct {
	Status models.EventStatus `json:"status"`
}

// ParticipantRequest names the user to admit. An empty UID means the caller.
type ParticipantRequest struct {
	UID string `json:"uid"`
}

// PizzaCreateRequest represents a request to add a pizza
type PizzaCreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
}

// RatingRequest represents a request to submit or replace the caller's rating
type RatingRequest struct {
	Criteria map[string]int `json:"criteria"`
	Comments string         `json:"comments"`
}
