package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/abrezinsky/pizzarate/internal/models"
	"github.com/abrezinsky/pizzarate/internal/repository"
	"github.com/abrezinsky/pizzarate/internal/scoring"
)

// NewTestRepository creates a new in-memory repository for testing.
// Each call creates a fresh database with all migrations applied.
func NewTestRepository(t *testing.T) *repository.Repository {
	t.Helper()

	repo, err := repository.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test repository: %v", err)
	}

	t.Cleanup(func() { repo.Close() })

	return repo
}

// SeedEvent stores a gated, upcoming event owned by creator
func SeedEvent(t *testing.T, repo repository.EventRepository, id, creator string) *models.Event {
	t.Helper()

	e := &models.Event{
		ID:           id,
		CreatedBy:    creator,
		Title:        "Friday slices",
		Participants: []string{creator},
		CreatedAt:    time.Now().UTC(),
	}
	e.Normalize()
	if err := repo.CreateEvent(context.Background(), e); err != nil {
		t.Fatalf("failed to seed event %s: %v", id, err)
	}
	return e
}

// SeedPizza stores a pizza in eventID
func SeedPizza(t *testing.T, repo repository.PizzaRepository, id, eventID, creator string) *models.Pizza {
	t.Helper()

	p := &models.Pizza{ID: id, EventID: eventID, Name: "Pizza " + id, CreatedBy: creator, CreatedAt: time.Now().UTC()}
	if err := repo.CreatePizza(context.Background(), p); err != nil {
		t.Fatalf("failed to seed pizza %s: %v", id, err)
	}
	return p
}

// UniformCriteria scores every criterion with v
func UniformCriteria(v int) map[string]int {
	m := make(map[string]int, scoring.CriterionCount)
	for _, c := range scoring.Criteria() {
		m[c.Key] = v
	}
	return m
}
