package httpserver

import (
	"errors"
	"net/http"

	"tienda-marketplace/internal/domain"

	"github.com/gin-gonic/gin"
)

// writeError maps domain errors onto HTTP statuses. Everything in the
// taxonomy is user-facing; only infrastructure failures become a 500.
func writeError(c *gin.Context, err error) {
	var insufficient *domain.InsufficientStockError
	var missingDelivery *domain.MissingDeliveryInfoError
	var invalidTransition *domain.InvalidTransitionError

	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrEmptyCart),
		errors.Is(err, domain.ErrProductInactive),
		errors.Is(err, domain.ErrUnsupportedPaymentMethod),
		errors.Is(err, domain.ErrUnknownStatus),
		errors.Is(err, domain.ErrMissingPaymentProof):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &missingDelivery):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": missingDelivery.Field})
	case errors.As(err, &insufficient):
		c.JSON(http.StatusConflict, gin.H{
			"error":     err.Error(),
			"requested": insufficient.Requested,
			"available": insufficient.Available,
		})
	case errors.As(err, &invalidTransition):
		c.JSON(http.StatusConflict, gin.H{
			"error": err.Error(),
			"from":  invalidTransition.From,
			"to":    invalidTransition.To,
		})
	case errors.Is(err, domain.ErrNoAffiliate),
		errors.Is(err, domain.ErrOrderSequenceExhausted):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func writeValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
