package services

import (
	stderrors "errors"

	"github.com/abrezinsky/pizzarate/internal/errors"
	"github.com/abrezinsky/pizzarate/internal/repository"
)

// Service errors
var (
	ErrEventNotFound  = errors.NotFound("event not found")
	ErrPizzaNotFound  = errors.NotFound("pizza not found")
	ErrRatingNotFound = errors.NotFound("rating not found")
	ErrUserNotFound   = errors.NotFound("user not found")
	ErrTitleRequired  = errors.Validation("title is required")
	ErrNameRequired   = errors.Validation("name is required")
)

// repoError maps a repository failure onto the application taxonomy.
// ErrNotFound becomes notFound; everything else is a retryable storage error.
func repoError(err error, notFound *errors.Error) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, repository.ErrNotFound) && notFound != nil {
		return notFound
	}
	var appErr *errors.Error
	if stderrors.As(err, &appErr) {
		return err
	}
	return errors.Storage(err)
}
