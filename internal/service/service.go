package service

import (
	"errors"

	"github.com/gasmarket/marketplace-api/internal/repository"
	apperrors "github.com/gasmarket/marketplace-api/pkg/errors"
)

// translateStoreError maps repository sentinel errors to domain error
// kinds. ErrStatusConflict is not mapped here: its meaning depends on the
// operation that lost the race, so each caller maps it itself.
func translateStoreError(err error, notFoundMessage string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFoundError(notFoundMessage)
	case errors.Is(err, repository.ErrInsufficientStock):
		return apperrors.NewOutOfStockError("not enough cylinders in stock")
	default:
		return apperrors.NewInternalError("internal server error")
	}
}
