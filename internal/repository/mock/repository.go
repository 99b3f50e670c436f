package mock

import (
	"context"
	"sync"

	"github.com/abrezinsky/pizzarate/internal/membership"
	"github.com/abrezinsky/pizzarate/internal/models"
	"github.com/abrezinsky/pizzarate/internal/repository"
)

// Repository wraps a real repository and allows injecting errors for testing.
//
// Usage:
//
//	realRepo := testutil.NewTestRepository(t)
//	mockRepo := mock.NewRepository(realRepo)
//	mockRepo.CreateUserProfileError = errors.New("unavailable")
//	svc := services.NewIdentityService(log, mockRepo, nil)
//	_, err := svc.Resolve(ctx, id)
//	// err is now a storage error
type Repository struct {
	repository.FullRepository

	// ===== User Errors =====
	GetUserProfileError    error
	CreateUserProfileError error
	UpdateUserProfileError error

	// ===== Event Errors =====
	CreateEventError               error
	GetEventError                  error
	ListEventsCreatedByError       error
	ListEventsWithParticipantError error
	ApplyMembershipError           error
	AdvanceEventStatusError        error

	// ===== Pizza Errors =====
	CreatePizzaError        error
	GetPizzaError           error
	ListPizzasForEventError error

	// ===== Rating Errors =====
	FindRatingError          error
	CreateRatingError        error
	UpdateRatingError        error
	ListRatingsForEventError error

	// FindRatingMisses makes the next n FindRating calls report ErrNotFound
	// even when a rating exists, simulating a concurrent first write.
	FindRatingMisses int

	mu    sync.Mutex
	calls map[string]int
}

// NewRepository creates a mock repository wrapping a real one
func NewRepository(real repository.FullRepository) *Repository {
	return &Repository{
		FullRepository: real,
		calls:          make(map[string]int),
	}
}

func (m *Repository) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[name]++
}

// Calls returns how many times the named method was invoked
func (m *Repository) Calls(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

// ===== User Methods =====

func (m *Repository) GetUserProfile(ctx context.Context, uid string) (*models.UserProfile, error) {
	m.record("GetUserProfile")
	if m.GetUserProfileError != nil {
		return nil, m.GetUserProfileError
	}
	return m.FullRepository.GetUserProfile(ctx, uid)
}

func (m *Repository) CreateUserProfile(ctx context.Context, p *models.UserProfile) error {
	m.record("CreateUserProfile")
	if m.CreateUserProfileError != nil {
		return m.CreateUserProfileError
	}
	return m.FullRepository.CreateUserProfile(ctx, p)
}

func (m *Repository) UpdateUserProfile(ctx context.Context, p *models.UserProfile) error {
	m.record("UpdateUserProfile")
	if m.UpdateUserProfileError != nil {
		return m.UpdateUserProfileError
	}
	return m.FullRepository.UpdateUserProfile(ctx, p)
}

// ===== Event Methods =====

func (m *Repository) CreateEvent(ctx context.Context, e *models.Event) error {
	m.record("CreateEvent")
	if m.CreateEventError != nil {
		return m.CreateEventError
	}
	return m.FullRepository.CreateEvent(ctx, e)
}

func (m *Repository) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	m.record("GetEvent")
	if m.GetEventError != nil {
		return nil, m.GetEventError
	}
	return m.FullRepository.GetEvent(ctx, id)
}

func (m *Repository) ListEventsCreatedBy(ctx context.Context, uid string) ([]models.Event, error) {
	m.record("ListEventsCreatedBy")
	if m.ListEventsCreatedByError != nil {
		return nil, m.ListEventsCreatedByError
	}
	return m.FullRepository.ListEventsCreatedBy(ctx, uid)
}

func (m *Repository) ListEventsWithParticipant(ctx context.Context, uid string) ([]models.Event, error) {
	m.record("ListEventsWithParticipant")
	if m.ListEventsWithParticipantError != nil {
		return nil, m.ListEventsWithParticipantError
	}
	return m.FullRepository.ListEventsWithParticipant(ctx, uid)
}

func (m *Repository) ApplyMembership(ctx context.Context, eventID, uid string, change membership.Change) error {
	m.record("ApplyMembership")
	if m.ApplyMembershipError != nil {
		return m.ApplyMembershipError
	}
	return m.FullRepository.ApplyMembership(ctx, eventID, uid, change)
}

func (m *Repository) AdvanceEventStatus(ctx context.Context, eventID string, status models.EventStatus) (bool, error) {
	m.record("AdvanceEventStatus")
	if m.AdvanceEventStatusError != nil {
		return false, m.AdvanceEventStatusError
	}
	return m.FullRepository.AdvanceEventStatus(ctx, eventID, status)
}

// ===== Pizza Methods =====

func (m *Repository) CreatePizza(ctx context.Context, p *models.Pizza) error {
	m.record("CreatePizza")
	if m.CreatePizzaError != nil {
		return m.CreatePizzaError
	}
	return m.FullRepository.CreatePizza(ctx, p)
}

func (m *Repository) GetPizza(ctx context.Context, id string) (*models.Pizza, error) {
	m.record("GetPizza")
	if m.GetPizzaError != nil {
		return nil, m.GetPizzaError
	}
	return m.FullRepository.GetPizza(ctx, id)
}

func (m *Repository) ListPizzasForEvent(ctx context.Context, eventID string) ([]models.Pizza, error) {
	m.record("ListPizzasForEvent")
	if m.ListPizzasForEventError != nil {
		return nil, m.ListPizzasForEventError
	}
	return m.FullRepository.ListPizzasForEvent(ctx, eventID)
}

// ===== Rating Methods =====

func (m *Repository) FindRating(ctx context.Context, eventID, pizzaID, userID string) (*models.Rating, error) {
	m.record("FindRating")
	if m.FindRatingError != nil {
		return nil, m.FindRatingError
	}
	m.mu.Lock()
	if m.FindRatingMisses > 0 {
		m.FindRatingMisses--
		m.mu.Unlock()
		return nil, repository.ErrNotFound
	}
	m.mu.Unlock()
	return m.FullRepository.FindRating(ctx, eventID, pizzaID, userID)
}

func (m *Repository) CreateRating(ctx context.Context, r *models.Rating) error {
	m.record("CreateRating")
	if m.CreateRatingError != nil {
		return m.CreateRatingError
	}
	return m.FullRepository.CreateRating(ctx, r)
}

func (m *Repository) UpdateRating(ctx context.Context, r *models.Rating) error {
	m.record("UpdateRating")
	if m.UpdateRatingError != nil {
		return m.UpdateRatingError
	}
	return m.FullRepository.UpdateRating(ctx, r)
}

func (m *Repository) ListRatingsForEvent(ctx context.Context, eventID string) ([]models.Rating, error) {
	m.record("ListRatingsForEvent")
	if m.ListRatingsForEventError != nil {
		return nil, m.ListRatingsForEventError
	}
	return m.FullRepository.ListRatingsForEvent(ctx, eventID)
}
