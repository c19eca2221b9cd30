package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/kudos/internal/service"
)

const (
	jsonKeyError   = "error"
	jsonKeyMessage = "message"

	errorValueInvalidJSON       = "invalid_json"
	errorValueNotFound          = "not_found"
	errorValueForbidden         = "forbidden"
	errorValueConflict          = "conflict"
	errorValueValidationFailed  = "validation_failed"
	errorValueInternal          = "internal_error"
	errorValueRateLimited       = "rate_limited"
	errorValueIdentityMismatch  = "identity_mismatch"
	errorValueStreamUnavailable = "stream_unavailable"

	messageInternalError = "something went wrong, please try again"
)

// writeServiceError maps a service error onto its HTTP status. Internal
// failures are logged and never echoed to the caller.
func writeServiceError(context *gin.Context, logger *zap.Logger, event string, err error) {
	status, code := classifyServiceError(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		if logger != nil {
			logger.Error(event, zap.Error(err), zap.String("path", context.Request.URL.Path))
		}
		message = messageInternalError
	}
	context.JSON(status, gin.H{jsonKeyError: code, jsonKeyMessage: message})
}

func classifyServiceError(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, errorValueNotFound
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, errorValueForbidden
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, errorValueConflict
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, errorValueValidationFailed
	default:
		return http.StatusInternalServerError, errorValueInternal
	}
}

func writeError(context *gin.Context, status int, code string, message string) {
	context.JSON(status, gin.H{jsonKeyError: code, jsonKeyMessage: message})
}

func requireCurrentUser(context *gin.Context) (*CurrentUser, bool) {
	currentUser, ok := CurrentUserFromContext(context)
	if !ok {
		writeError(context, http.StatusUnauthorized, authErrorUnauthorized, "a valid bearer token is required")
		return nil, false
	}
	return currentUser, true
}
