package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"strategyhub/internal/service"
	"strategyhub/internal/strategy"
)

// writeStrategyError maps domain errors to HTTP statuses. Anything it does not
// recognise is a 500.
func writeStrategyError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, strategy.ErrStrategyNotFound):
		Error(c, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, strategy.ErrIncorrectConditionType),
		errors.Is(err, strategy.ErrIncorrectStatusType),
		errors.Is(err, strategy.ErrInvalidStrategyField),
		errors.Is(err, strategy.ErrInvalidConditionData),
		errors.Is(err, strategy.ErrInvalidConditionDataStructure),
		errors.Is(err, strategy.ErrMissingConditionForIndicator),
		errors.Is(err, strategy.ErrRequiredField),
		errors.Is(err, service.ErrEmptySeries),
		errors.Is(err, service.ErrSeriesTooLong):
		Error(c, http.StatusBadRequest, err.Error(), nil)
	default:
		_ = c.Error(err)
		Error(c, http.StatusInternalServerError, "internal server error", nil)
	}
}

// writeBodyError handles a request body that failed to decode. Anything that is
// not a domain error is a 400.
func writeBodyError(c *gin.Context, err error) {
	if isDomainError(err) {
		writeStrategyError(c, err)
		return
	}
	Error(c, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
}

func isDomainError(err error) bool {
	for _, target := range []error{
		strategy.ErrStrategyNotFound,
		strategy.ErrIncorrectConditionType,
		strategy.ErrIncorrectStatusType,
		strategy.ErrInvalidStrategyField,
		strategy.ErrInvalidConditionData,
		strategy.ErrInvalidConditionDataStructure,
		strategy.ErrMissingConditionForIndicator,
		strategy.ErrRequiredField,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func writeAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrMissingCredentials):
		Error(c, http.StatusBadRequest, "Username and password are required", nil)
	case errors.Is(err, service.ErrUsernameTaken):
		Error(c, http.StatusBadRequest, "Username has already taken", nil)
	case errors.Is(err, service.ErrUsernameTooLong), errors.Is(err, service.ErrPasswordTooLong):
		Error(c, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrInactiveUser):
		c.Header("WWW-Authenticate", "Bearer")
		Error(c, http.StatusUnauthorized, err.Error(), nil)
	default:
		_ = c.Error(err)
		Error(c, http.StatusInternalServerError, "internal server error", nil)
	}
}
