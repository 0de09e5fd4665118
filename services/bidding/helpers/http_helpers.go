package helpers

import (
	"errors"
	"fmt"
	"net/http"

	"art-marketplace/internal/biddingerrors"
	"art-marketplace/utils"

	"github.com/gin-gonic/gin"
)

// CallerIDKey is the gin context key holding the authenticated caller's user id
const CallerIDKey = "caller_id"

// RetryAfterSeconds is sent with every 503 response
const RetryAfterSeconds = 1

// HandleBindError sends a standardized JSON error for binding failures
func HandleBindError(c *gin.Context, handlerName string, err error) {
	wrappedErr := fmt.Errorf("invalid request payload: %w", err)
	utils.JSONError(c, http.StatusBadRequest, wrappedErr, "invalid request payload")
	utils.Warn(handlerName+": binding error", map[string]any{"error": err.Error()})
}

// MapErrorToHTTP maps domain/service errors to HTTP status code and message
func MapErrorToHTTP(err error) (int, string) {
	var tooLow *biddingerrors.BidTooLowError
	switch {
	case errors.As(err, &tooLow):
		return http.StatusConflict, tooLow.Error()
	case errors.Is(err, biddingerrors.ErrBidTooLow):
		return http.StatusConflict, "bid amount too low"
	case errors.Is(err, biddingerrors.ErrInvalidBid):
		return http.StatusBadRequest, "invalid bid details"
	case errors.Is(err, biddingerrors.ErrInvalidListing):
		return http.StatusBadRequest, "invalid listing details"
	case errors.Is(err, biddingerrors.ErrValidation):
		return http.StatusBadRequest, "invalid request"

	case errors.Is(err, biddingerrors.ErrSelfBid):
		return http.StatusForbidden, "you cannot bid on your own auction"
	case errors.Is(err, biddingerrors.ErrNotOwner):
		return http.StatusForbidden, "only the artwork's owner can do this"
	case errors.Is(err, biddingerrors.ErrAuthorization):
		return http.StatusForbidden, "not allowed"

	case errors.Is(err, biddingerrors.ErrAuctionNotFound):
		return http.StatusNotFound, "auction not found"
	case errors.Is(err, biddingerrors.ErrArtworkNotFound):
		return http.StatusNotFound, "artwork not found"
	case errors.Is(err, biddingerrors.ErrAuctionExpired):
		return http.StatusUnprocessableEntity, "this auction has ended"
	case errors.Is(err, biddingerrors.ErrAuctionNotStarted):
		return http.StatusUnprocessableEntity, "this auction has not started yet"
	case errors.Is(err, biddingerrors.ErrAuctionNotEnded):
		return http.StatusUnprocessableEntity, "this auction is still running"
	case errors.Is(err, biddingerrors.ErrArtworkSold):
		return http.StatusUnprocessableEntity, "this artwork has already been sold"
	case errors.Is(err, biddingerrors.ErrState):
		return http.StatusUnprocessableEntity, "the request cannot be applied in the current state"

	case errors.Is(err, biddingerrors.ErrConflict):
		return http.StatusConflict, "the auction changed while your bid was processed, please review the current bid and retry"
	case errors.Is(err, biddingerrors.ErrTransient):
		return http.StatusServiceUnavailable, "service temporarily unavailable, please retry"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// RespondError writes the mapped error response and logs it. Server-side
// failures log at error level, client mistakes at warn.
func RespondError(c *gin.Context, handlerName string, err error, fields map[string]any) {
	status, message := MapErrorToHTTP(err)
	wrapped := fmt.Errorf("%s: %w", message, err)
	if status == http.StatusServiceUnavailable {
		utils.JSONRetryableError(c, status, wrapped, message, RetryAfterSeconds)
	} else {
		utils.JSONError(c, status, wrapped, message)
	}

	logFields := map[string]any{"handler": handlerName, "status": status, "error": err.Error()}
	for k, v := range fields {
		logFields[k] = v
	}
	if status >= http.StatusInternalServerError {
		utils.Error(handlerName+": request failed", logFields)
	} else {
		utils.Warn(handlerName+": request rejected", logFields)
	}
}

// CallerID returns the identity set by the RequireIdentity middleware
func CallerID(c *gin.Context) string {
	return c.GetString(CallerIDKey)
}

// LogSuccess is a small helper to standardize logging of successful operations
func LogSuccess(handlerName, message string, ctx map[string]any) {
	utils.Info(handlerName+": "+message, ctx)
}
