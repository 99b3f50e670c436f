package services

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/abrezinsky/pizzarate/internal/errors"
	"github.com/abrezinsky/pizzarate/internal/logger"
	"github.com/abrezinsky/pizzarate/internal/membership"
	"github.com/abrezinsky/pizzarate/internal/models"
	"github.com/abrezinsky/pizzarate/internal/repository"
)

// PizzaServiceRepository defines the repository methods needed by PizzaService
type PizzaServiceRepository interface {
	repository.EventRepository
	repository.PizzaRepository
}

// PizzaService handles pizza-related business logic
type PizzaService struct {
	log         logger.Logger
	repo        PizzaServiceRepository
	broadcaster Broadcaster
}

// NewPizzaService creates a new PizzaService
func NewPizzaService(log logger.Logger, repo PizzaServiceRepository, b Broadcaster) *PizzaService {
	if b == nil {
		b = nopBroadcaster{}
	}
	return &PizzaService{log: log, repo: repo, broadcaster: b}
}

// PizzaInput holds the fields supplied when adding a pizza
type PizzaInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url,omitempty"`
}

// ListPizzasForEvent returns the event's pizzas if viewer may see them
func (s *PizzaService) ListPizzasForEvent(ctx context.Context, eventID, viewer string) ([]models.Pizza, error) {
	e, err := s.repo.GetEvent(ctx, eventID)
	if err != nil {
		return nil, repoError(err, ErrEventNotFound)
	}
	if !membership.CanViewPizzas(e, viewer) {
		return nil, errors.Authorization("join the event to see its pizzas")
	}

	pizzas, err := s.repo.ListPizzasForEvent(ctx, eventID)
	if err != nil {
		return nil, repoError(err, nil)
	}
	return pizzas, nil
}

// AddPizza adds a pizza to the event. Only the creator may add pizzas.
func (s *PizzaService) AddPizza(ctx context.Context, eventID string, input PizzaInput, creatorUID string) (*models.Pizza, error) {
	e, err := s.repo.GetEvent(ctx, eventID)
	if err != nil {
		return nil, repoError(err, ErrEventNotFound)
	}
	if !membership.CanAddPizza(e, creatorUID) {
		return nil, errors.Authorization("only the event creator can add pizzas")
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	imageURL := strings.TrimSpace(input.ImageURL)
	if imageURL != "" {
		if u, err := url.Parse(imageURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return nil, errors.Validation("image_url must be an http(s) URL")
		}
	}

	p := &models.Pizza{
		ID:          uuid.NewString(),
		EventID:     eventID,
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		ImageURL:    imageURL,
		CreatedBy:   creatorUID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.CreatePizza(ctx, p); err != nil {
		return nil, repoError(err, nil)
	}

	s.log.Info("Pizza added", "event_id", eventID, "pizza_id", p.ID, "name", p.Name)
	s.broadcaster.Publish(models.WSMessage{Type: MsgPizzaAdded, Topic: EventTopic(eventID), Payload: p})
	return p, nil
}
