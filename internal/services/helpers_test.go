package services_test

import (
	"sync"
	"testing"

	"github.com/abrezinsky/pizzarate/internal/logger"
	"github.com/abrezinsky/pizzarate/internal/models"
	"github.com/abrezinsky/pizzarate/internal/repository"
	"github.com/abrezinsky/pizzarate/internal/repository/mock"
	"github.com/abrezinsky/pizzarate/internal/testutil"
)

// recordingBroadcaster captures published messages
type recordingBroadcaster struct {
	mu       sync.Mutex
	messages []models.WSMessage
}

func (b *recordingBroadcaster) Publish(msg models.WSMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, msg)
}

func (b *recordingBroadcaster) ofType(msgType string) []models.WSMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []models.WSMessage
	for _, m := range b.messages {
		if m.Type == msgType {
			out = append(out, m)
		}
	}
	return out
}

// setupRepo returns a fresh in-memory repository wrapped for error injection
func setupRepo(t *testing.T) (*mock.Repository, *repository.Repository) {
	t.Helper()
	real := testutil.NewTestRepository(t)
	return mock.NewRepository(real), real
}

func testLogger() logger.Logger {
	return logger.Nop()
}
