// Package handlers maps HTTP requests onto services and service errors onto
// status codes.
package handlers

import (
	"errors"
	"net/http"

	apperrors "anjoman/internal/errors"
	"anjoman/internal/models"
	"anjoman/internal/service"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	services            *service.Services
	frontendCallbackURL string
}

func New(services *service.Services, frontendCallbackURL string) *Handlers {
	return &Handlers{
		services:            services,
		frontendCallbackURL: frontendCallbackURL,
	}
}

// respondError maps a service error onto the uniform error body.
func respondError(c *gin.Context, err error) {
	c.Error(err)
	c.JSON(statusFor(err), models.ErrorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrInvalidCredentials),
		errors.Is(err, apperrors.ErrInvalidRefreshToken),
		errors.Is(err, apperrors.ErrUnauthorized):
		return http.StatusUnauthorized

	case errors.Is(err, apperrors.ErrForbidden),
		errors.Is(err, apperrors.ErrRegistrationClosed):
		return http.StatusForbidden

	case errors.Is(err, apperrors.ErrEventNotFound),
		errors.Is(err, apperrors.ErrRegistrationNotFound),
		errors.Is(err, apperrors.ErrPaymentNotFound),
		errors.Is(err, apperrors.ErrTicketNotFound),
		errors.Is(err, apperrors.ErrUnknownReference):
		return http.StatusNotFound

	case errors.Is(err, apperrors.ErrInvalidCode),
		errors.Is(err, apperrors.ErrCodeExpired),
		errors.Is(err, apperrors.ErrCodeExhausted),
		errors.Is(err, apperrors.ErrCodeNotApplicable),
		errors.Is(err, apperrors.ErrAmountBelowMinimum):
		return http.StatusBadRequest

	case errors.Is(err, apperrors.ErrCapacityExceeded),
		errors.Is(err, apperrors.ErrAlreadyRegistered),
		errors.Is(err, apperrors.ErrRegistrationNotPending),
		errors.Is(err, apperrors.ErrSettlementConflict):
		return http.StatusConflict

	case errors.Is(err, apperrors.ErrGatewaySession):
		return http.StatusBadGateway

	default:
		return http.StatusInternalServerError
	}
}

func currentUserID(c *gin.Context) int64 {
	return c.GetInt64("user_id")
}
