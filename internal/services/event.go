package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"

	"github.com/abrezinsky/pizzarate/internal/errors"
	"github.com/abrezinsky/pizzarate/internal/logger"
	"github.com/abrezinsky/pizzarate/internal/membership"
	"github.com/abrezinsky/pizzarate/internal/models"
	"github.com/abrezinsky/pizzarate/internal/repository"
)

// EventService handles event-related business logic
type EventService struct {
	log         logger.Logger
	repo        repository.EventRepository
	broadcaster Broadcaster
	now         func() time.Time
}

// NewEventService creates a new EventService
func NewEventService(log logger.Logger, repo repository.EventRepository, b Broadcaster) *EventService {
	if b == nil {
		b = nopBroadcaster{}
	}
	return &EventService{log: log, repo: repo, broadcaster: b, now: time.Now}
}

// EventInput holds the creator-supplied event fields
type EventInput struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Date        string            `json:"date"`
	Location    string            `json:"location"`
	JoinPolicy  models.JoinPolicy `json:"join_policy,omitempty"`
}

// ListEventsForUser returns events uid created or participates in, newest first.
// If the created-by lookup fails the participant lookup alone is returned,
// which still includes every event uid created.
func (s *EventService) ListEventsForUser(ctx context.Context, uid string) ([]models.Event, error) {
	joined, err := s.repo.ListEventsWithParticipant(ctx, uid)
	if err != nil {
		return nil, repoError(err, nil)
	}

	created, err := s.repo.ListEventsCreatedBy(ctx, uid)
	if err != nil {
		s.log.Warn("Created-by event query failed, using participant events only", "uid", uid, "error", err)
		created = nil
	}

	seen := make(map[string]bool, len(joined)+len(created))
	events := make([]models.Event, 0, len(joined)+len(created))
	for _, list := range [][]models.Event{created, joined} {
		for _, e := range list {
			if seen[e.ID] {
				continue
			}
			seen[e.ID] = true
			events = append(events, e)
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].CreatedAt.After(events[j].CreatedAt)
	})
	return events, nil
}

// CreateEvent creates an upcoming event with the creator as its only participant
func (s *EventService) CreateEvent(ctx context.Context, input EventInput, creatorUID string) (*models.Event, error) {
	if creatorUID == "" {
		return nil, errors.InvalidInput("creator is required")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	switch input.JoinPolicy {
	case "", models.JoinOpen, models.JoinGated:
	default:
		return nil, errors.Validationf("unknown join policy %q", input.JoinPolicy)
	}

	e := &models.Event{
		ID:              uuid.NewString(),
		CreatedBy:       creatorUID,
		Title:           title,
		Description:     strings.TrimSpace(input.Description),
		Date:            input.Date,
		Location:        strings.TrimSpace(input.Location),
		Participants:    []string{creatorUID},
		PendingRequests: []string{},
		Status:          models.StatusUpcoming,
		JoinPolicy:      input.JoinPolicy,
		CreatedAt:       s.now().UTC(),
	}
	e.Normalize()

	if err := s.repo.CreateEvent(ctx, e); err != nil {
		return nil, repoError(err, nil)
	}

	s.log.Info("Event created", "event_id", e.ID, "creator", creatorUID, "title", e.Title)
	return e, nil
}

// GetEvent returns an event by ID
func (s *EventService) GetEvent(ctx context.Context, eventID string) (*models.Event, error) {
	e, err := s.repo.GetEvent(ctx, eventID)
	if err != nil {
		return nil, repoError(err, ErrEventNotFound)
	}
	return e, nil
}

// AdvanceStatus moves the event forward through upcoming, in-progress and completed
func (s *EventService) AdvanceStatus(ctx context.Context, eventID, actor string, status models.EventStatus) (*models.Event, error) {
	if !status.Valid() {
		return nil, errors.InvalidInputf("unknown status %q", status)
	}

	e, err := s.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !membership.CanManage(e, actor) {
		return nil, errors.Authorization("only the event creator can change its status")
	}
	if status.Rank() < e.Status.Rank() {
		return nil, errors.Conflictf("event is already %s", e.Status)
	}
	if status == e.Status {
		return e, nil
	}

	changed, err := s.repo.AdvanceEventStatus(ctx, eventID, status)
	if err != nil {
		return nil, repoError(err, ErrEventNotFound)
	}
	if !changed {
		// a concurrent writer already moved it at least this far
		return s.GetEvent(ctx, eventID)
	}

	e.Status = status
	s.log.Info("Event status changed", "event_id", eventID, "status", status)
	s.broadcaster.Publish(models.WSMessage{Type: MsgEventUpdated, Topic: EventTopic(eventID), Payload: e})
	return e, nil
}

// InviteQR renders a PNG QR code linking to the event's page
func (s *EventService) InviteQR(ctx context.Context, eventID, actor, baseURL string) ([]byte, error) {
	if baseURL == "" {
		return nil, errors.Validation("base_url not configured")
	}
	e, err := s.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !membership.IsParticipant(e, actor) {
		return nil, errors.Authorization("only participants can share an invite")
	}

	inviteURL := fmt.Sprintf("%s/events/%s", strings.TrimSuffix(baseURL, "/"), e.ID)
	return qrcode.Encode(inviteURL, qrcode.Medium, 256)
}
