package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ErlanBelekov/shop-backend/internal/domain"
	"github.com/gin-gonic/gin"
)

// Error codes returned in the failure envelope.
const (
	codeValidation        = "VALIDATION_ERROR"
	codeInternal          = "INTERNAL_ERROR"
	codeInvalidToken      = "INVALID_TOKEN"
	codeProfileRequired   = "PROFILE_REQUIRED"
	codeUserDisabled      = "USER_DISABLED"
	codeUserNotFound      = "USER_NOT_FOUND"
	codeCartEmpty         = "CART_EMPTY"
	codeOutOfStock        = "OUT_OF_STOCK"
	codeVariantNotFound   = "VARIANT_NOT_FOUND"
	codeInvalidMergeMode  = "INVALID_MERGE_MODE"
	codeOrderNotFound     = "ORDER_NOT_FOUND"
	codeInvalidTransition = "INVALID_TRANSITION"
	codeInvalidStatus     = "INVALID_STATUS"
)

const (
	errInternalServer = "Internal server error"
	errTokenInvalid   = "Token is invalid or expired"
	errUserDisabled   = "User disabled"
)

type errorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func respondError(c *gin.Context, status int, code, message string, details map[string]any) {
	c.AbortWithStatusJSON(status, errorResponse{Error: errorBody{Code: code, Message: message, Details: details}})
}

func respondValidation(c *gin.Context, err error) {
	respondError(c, http.StatusBadRequest, codeValidation, err.Error(), nil)
}

// respondDomainError maps the domain errors shared by several handlers.
// Anything unrecognized is logged and reported as a 500.
func respondDomainError(c *gin.Context, logger *slog.Logger, op string, err error) {
	var oos *domain.OutOfStockError
	switch {
	case errors.As(err, &oos):
		respondError(c, http.StatusBadRequest, codeOutOfStock, "Some items are out of stock",
			map[string]any{"variants": oos.VariantIDs})
	case errors.Is(err, domain.ErrCartEmpty):
		respondError(c, http.StatusBadRequest, codeCartEmpty, "Cart is empty", nil)
	case errors.Is(err, domain.ErrVariantNotFound):
		respondError(c, http.StatusNotFound, codeVariantNotFound, "Variant not found", nil)
	case errors.Is(err, domain.ErrInvalidMergeMode):
		respondError(c, http.StatusBadRequest, codeInvalidMergeMode, "Invalid merge mode", nil)
	case errors.Is(err, domain.ErrOrderNotFound):
		respondError(c, http.StatusNotFound, codeOrderNotFound, "Order not found", nil)
	case errors.Is(err, domain.ErrInvalidTransition):
		respondError(c, http.StatusBadRequest, codeInvalidTransition, "Order cannot move to this status", nil)
	case errors.Is(err, domain.ErrInvalidStatus):
		respondError(c, http.StatusBadRequest, codeInvalidStatus, "Unknown order status", nil)
	case errors.Is(err, domain.ErrUserNotFound):
		respondError(c, http.StatusNotFound, codeUserNotFound, "User not found", nil)
	case errors.Is(err, domain.ErrUserDisabled):
		respondError(c, http.StatusForbidden, codeUserDisabled, errUserDisabled, nil)
	default:
		logger.ErrorContext(c.Request.Context(), op, "error", err)
		respondError(c, http.StatusInternalServerError, codeInternal, errInternalServer, nil)
	}
}
