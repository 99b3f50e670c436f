package services

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/abrezinsky/pizzarate/internal/errors"
	"github.com/abrezinsky/pizzarate/internal/logger"
	"github.com/abrezinsky/pizzarate/internal/membership"
	"github.com/abrezinsky/pizzarate/internal/models"
	"github.com/abrezinsky/pizzarate/internal/repository"
	"github.com/abrezinsky/pizzarate/internal/scoring"
)

// RatingServiceRepository defines the repository methods needed by RatingService
type RatingServiceRepository interface {
	repository.EventRepository
	repository.PizzaRepository
	repository.RatingRepository
}

// RatingService handles rating submission and score aggregation
type RatingService struct {
	log         logger.Logger
	repo        RatingServiceRepository
	broadcaster Broadcaster
	now         func() time.Time
}

// NewRatingService creates a new RatingService
func NewRatingService(log logger.Logger, repo RatingServiceRepository, b Broadcaster) *RatingService {
	if b == nil {
		b = nopBroadcaster{}
	}
	return &RatingService{log: log, repo: repo, broadcaster: b, now: time.Now}
}

// UpsertRating stores userID's rating for a pizza, replacing any earlier one.
// The first rating of an upcoming event moves it to in-progress.
func (s *RatingService) UpsertRating(ctx context.Context, eventID, pizzaID, userID string, criteria map[string]int, comments string) (*models.Rating, error) {
	e, err := s.repo.GetEvent(ctx, eventID)
	if err != nil {
		return nil, repoError(err, ErrEventNotFound)
	}
	if !membership.CanRate(e, userID) {
		return nil, errors.Authorization("only participants can rate pizzas")
	}
	if e.Status == models.StatusCompleted {
		return nil, errors.Conflict("event is completed, ratings are closed")
	}
	if err := s.checkPizza(ctx, eventID, pizzaID); err != nil {
		return nil, err
	}
	if err := scoring.ValidateCriteria(criteria); err != nil {
		return nil, err
	}
	comments = strings.TrimSpace(comments)

	rt, err := s.write(ctx, eventID, pizzaID, userID, criteria, comments)
	if err != nil {
		return nil, err
	}

	s.log.Info("Rating saved", "event_id", eventID, "pizza_id", pizzaID, "uid", userID, "score", scoring.PerRatingScore(*rt))
	s.broadcaster.Publish(models.WSMessage{Type: MsgRatingSubmitted, Topic: EventTopic(eventID), Payload: map[string]interface{}{
		"event_id": eventID,
		"pizza_id": pizzaID,
		"user_id":  userID,
	}})

	if e.Status == models.StatusUpcoming {
		s.startEvent(ctx, e)
	}
	return rt, nil
}

// write updates the existing rating or creates one. A create that loses a
// race against a concurrent first write falls back to updating that rating.
func (s *RatingService) write(ctx context.Context, eventID, pizzaID, userID string, criteria map[string]int, comments string) (*models.Rating, error) {
	for attempt := 0; attempt < 2; attempt++ {
		existing, err := s.repo.FindRating(ctx, eventID, pizzaID, userID)
		switch {
		case err == nil:
			now := s.now().UTC()
			existing.Criteria = criteria
			existing.Comments = comments
			existing.UpdatedAt = &now
			if err := s.repo.UpdateRating(ctx, existing); err != nil {
				return nil, repoError(err, ErrRatingNotFound)
			}
			return existing, nil

		case stderrors.Is(err, repository.ErrNotFound):
			rt := &models.Rating{
				ID:        uuid.NewString(),
				EventID:   eventID,
				PizzaID:   pizzaID,
				UserID:    userID,
				Criteria:  criteria,
				Comments:  comments,
				CreatedAt: s.now().UTC(),
			}
			err := s.repo.CreateRating(ctx, rt)
			if err == nil {
				return rt, nil
			}
			if !stderrors.Is(err, repository.ErrDuplicate) {
				return nil, repoError(err, nil)
			}
			s.log.Debug("Concurrent first rating, retrying as update", "pizza_id", pizzaID, "uid", userID)

		default:
			return nil, repoError(err, nil)
		}
	}
	return nil, errors.Conflict("rating changed concurrently, try again")
}

func (s *RatingService) startEvent(ctx context.Context, e *models.Event) {
	changed, err := s.repo.AdvanceEventStatus(ctx, e.ID, models.StatusInProgress)
	if err != nil {
		s.log.Warn("Failed to start event on first rating", "event_id", e.ID, "error", err)
		return
	}
	if changed {
		started := *e
		started.Status = models.StatusInProgress
		s.log.Info("Event status changed", "event_id", e.ID, "status", started.Status)
		s.broadcaster.Publish(models.WSMessage{Type: MsgEventUpdated, Topic: EventTopic(e.ID), Payload: &started})
	}
}

func (s *RatingService) checkPizza(ctx context.Context, eventID, pizzaID string) error {
	p, err := s.repo.GetPizza(ctx, pizzaID)
	if err != nil {
		return repoError(err, ErrPizzaNotFound)
	}
	if p.EventID != eventID {
		return ErrPizzaNotFound
	}
	return nil
}

// GetMyRating returns userID's rating for a pizza
func (s *RatingService) GetMyRating(ctx context.Context, eventID, pizzaID, userID string) (*models.Rating, error) {
	e, err := s.repo.GetEvent(ctx, eventID)
	if err != nil {
		return nil, repoError(err, ErrEventNotFound)
	}
	if !membership.CanRate(e, userID) {
		return nil, errors.Authorization("only participants can rate pizzas")
	}
	if err := s.checkPizza(ctx, eventID, pizzaID); err != nil {
		return nil, err
	}

	rt, err := s.repo.FindRating(ctx, eventID, pizzaID, userID)
	if err != nil {
		return nil, repoError(err, ErrRatingNotFound)
	}
	return rt, nil
}

// EventScores returns the event's scoreboard as seen by viewer
func (s *RatingService) EventScores(ctx context.Context, eventID, viewer string) ([]scoring.PizzaScore, error) {
	e, err := s.repo.GetEvent(ctx, eventID)
	if err != nil {
		return nil, repoError(err, ErrEventNotFound)
	}
	if !membership.CanViewPizzas(e, viewer) {
		return nil, errors.Authorization("join the event to see its scores")
	}

	pizzas, err := s.repo.ListPizzasForEvent(ctx, eventID)
	if err != nil {
		return nil, repoError(err, nil)
	}
	ratings, err := s.repo.ListRatingsForEvent(ctx, eventID)
	if err != nil {
		return nil, repoError(err, nil)
	}
	return scoring.Scoreboard(pizzas, ratings, viewer), nil
}
