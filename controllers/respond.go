package controllers

import (
	"errors"
	"net/http"

	"checkout-service/services"

	"github.com/gin-gonic/gin"
)

// statusFor maps the service error taxonomy onto HTTP statuses. Anything
// unrecognized is an internal fault and surfaces as a 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrVersionConflict):
		return http.StatusConflict
	case errors.Is(err, services.ErrCartLocked):
		return http.StatusConflict
	case errors.Is(err, services.ErrProductUnavailable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrGatewayRejected):
		return http.StatusBadGateway
	case errors.Is(err, services.ErrGatewayUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	c.JSON(status, gin.H{"error": msg})
}
