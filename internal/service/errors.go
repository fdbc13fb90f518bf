package service

import (
	"errors"
	"fmt"

	"github.com/Shiyikai2002/student-trading-platform/internal/domain"
	"github.com/Shiyikai2002/student-trading-platform/internal/repository"
)

var errOpenPurchase = errors.New("item has an open purchase")

// translateRepoErr maps storage errors onto the domain taxonomy. what names
// the entity or operation for the error message.
func translateRepoErr(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: %s", domain.ErrNotFound, what)
	case errors.Is(err, repository.ErrOptimisticLock):
		return fmt.Errorf("%w: %s was modified concurrently", domain.ErrConflict, what)
	case errors.Is(err, repository.ErrAlreadyExists):
		return fmt.Errorf("%w: %s already exists", domain.ErrConflict, what)
	case errors.Is(err, repository.ErrInsufficientBalance):
		return fmt.Errorf("%w: %s", domain.ErrInsufficientFunds, what)
	}
	return fmt.Errorf("%s: %w", what, err)
}
