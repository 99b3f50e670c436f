package models

import "time"

// EventStatus is the lifecycle stage of a tasting event
type EventStatus string

const (
	StatusUpcoming   EventStatus = "upcoming"
	StatusInProgress EventStatus = "in-progress"
	StatusCompleted  EventStatus = "completed"
)

// Valid reports whether s is one of the known statuses
func (s EventStatus) Valid() bool {
	switch s {
	case StatusUpcoming, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Rank orders statuses so transitions can be checked for monotonicity
func (s EventStatus) Rank() int {
	switch s {
	case StatusUpcoming:
		return 0
	case StatusInProgress:
		return 1
	case StatusCompleted:
		return 2
	}
	return -1
}

// JoinPolicy controls whether outsiders may join without approval
type JoinPolicy string

const (
	JoinOpen  JoinPolicy = "open"
	JoinGated JoinPolicy = "gated"
)

// UserProfile is the durable application profile behind an identity
type UserProfile struct {
	UID                 string     `json:"uid" firestore:"uid"`
	DisplayName         string     `json:"display_name" firestore:"displayName"`
	Email               string     `json:"email,omitempty" firestore:"email,omitempty"`
	IsAnonymous         bool       `json:"is_anonymous" firestore:"isAnonymous"`
	AvatarColor         string     `json:"avatar_color" firestore:"avatarColor"`
	CreatedAt           time.Time  `json:"created_at" firestore:"createdAt"`
	UpgradedAt          *time.Time `json:"upgraded_at,omitempty" firestore:"upgradedAt,omitempty"`
	OriginalAnonymousID string     `json:"original_anonymous_id,omitempty" firestore:"originalAnonymousId,omitempty"`

	// Persisted is false for a profile synthesized locally after a storage failure
	Persisted bool `json:"persisted" firestore:"-"`
}

// Event is a pizza tasting event
type Event struct {
	ID              string      `json:"id" firestore:"-"`
	CreatedBy       string      `json:"created_by" firestore:"createdBy"`
	Title           string      `json:"title" firestore:"title"`
	Description     string      `json:"description" firestore:"description"`
	Date            string      `json:"date" firestore:"date"`
	Location        string      `json:"location" firestore:"location"`
	Participants    []string    `json:"participants" firestore:"participants"`
	PendingRequests []string    `json:"pending_requests" firestore:"pendingRequests"`
	Status          EventStatus `json:"status" firestore:"status"`
	JoinPolicy      JoinPolicy  `json:"join_policy" firestore:"joinPolicy"`
	CreatedAt       time.Time   `json:"created_at" firestore:"createdAt"`
}

// Normalize replaces nil sets with empty ones and fills defaults
func (e *Event) Normalize() {
	if e.Participants == nil {
		e.Participants = []string{}
	}
	if e.PendingRequests == nil {
		e.PendingRequests = []string{}
	}
	if e.JoinPolicy == "" {
		e.JoinPolicy = JoinGated
	}
	if e.Status == "" {
		e.Status = StatusUpcoming
	}
}

// Pizza is a pizza entered into an event
type Pizza struct {
	ID          string    `json:"id" firestore:"-"`
	EventID     string    `json:"event_id" firestore:"eventId"`
	Name        string    `json:"name" firestore:"name"`
	Description string    `json:"description" firestore:"description"`
	ImageURL    string    `json:"image_url,omitempty" firestore:"imageUrl,omitempty"`
	CreatedBy   string    `json:"created_by" firestore:"createdBy"`
	CreatedAt   time.Time `json:"created_at" firestore:"createdAt"`
}

// Rating is one user's multi-criteria score for one pizza
type Rating struct {
	ID        string         `json:"id" firestore:"-"`
	EventID   string         `json:"event_id" firestore:"eventId"`
	PizzaID   string         `json:"pizza_id" firestore:"pizzaId"`
	UserID    string         `json:"user_id" firestore:"userId"`
	CreatedAt time.Time      `json:"created_at" firestore:"createdAt"`
	UpdatedAt *time.Time     `json:"updated_at,omitempty" firestore:"updatedAt,omitempty"`
	Criteria  map[string]int `json:"criteria" firestore:"criteria"`
	Comments  string         `json:"comments" firestore:"comments"`
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string      `json:"type"`
	Topic   string      `json:"topic,omitempty"`
	Payload interface{} `json:"payload"`
}
