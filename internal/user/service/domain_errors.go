package service

import (
	"context"
	"errors"
	"net/http"

	commonerrors "github.com/AlibekovAA/defis-users/internal/common/errors"
	userrepo "github.com/AlibekovAA/defis-users/internal/user/repository"
)

var (
	ErrValidation = commonerrors.NewDomainError(
		"VALIDATION_FAILED",
		commonerrors.CategoryValidation,
		http.StatusBadRequest,
		"validation failed",
	)

	ErrServiceUnavailable = commonerrors.NewDomainError(
		"SERVICE_UNAVAILABLE",
		commonerrors.CategoryExternal,
		http.StatusServiceUnavailable,
		"service temporarily unavailable",
	)
)

// countsAsFailure keeps ordinary outcomes such as a missing user or a taken
// username from tripping the circuit breaker.
func countsAsFailure(err error) bool {
	switch {
	case errors.Is(err, userrepo.ErrUserNotFound),
		errors.Is(err, userrepo.ErrUsernameAlreadyExists),
		errors.Is(err, context.Canceled):
		return false
	default:
		return true
	}
}

func mapRepositoryError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, userrepo.ErrUserNotFound):
		return commonerrors.ErrUserNotFound
	case errors.Is(err, userrepo.ErrUsernameAlreadyExists):
		return commonerrors.ErrUsernameAlreadyExists.WithCause(err)
	case errors.Is(err, commonerrors.ErrCircuitOpen):
		return ErrServiceUnavailable.WithCause(err)
	case errors.Is(err, context.DeadlineExceeded):
		return ErrServiceUnavailable.WithCause(err)
	default:
		return commonerrors.ErrDatabaseError.WithCause(err)
	}
}
