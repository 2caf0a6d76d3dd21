package errorhandler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/promptforge/marketplace-api/internal/middleware"
	"github.com/promptforge/marketplace-api/internal/pkg/logger"
	"github.com/promptforge/marketplace-api/internal/pkg/response"
)

// HandleError logs the failure with the request logger and sends the error envelope.
// The underlying error is logged, never returned to the client.
func HandleError(ctx context.Context, w http.ResponseWriter, status int, code, message string, err error) {
	event := logger.FromContext(ctx).Error().
		Str("request_id", middleware.GetRequestID(ctx)).
		Str("error_code", code).
		Str("error_message", message).
		Int("status_code", status)

	if err != nil {
		event.Err(err)
	}

	event.Msg("Request error")

	response.Error(w, status, code, message)
}

// InternalError is HandleError for unexpected failures
func InternalError(ctx context.Context, w http.ResponseWriter, err error) {
	HandleError(ctx, w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", err)
}

// HandleErrorWithDetails handles an error response with additional details and logging
func HandleErrorWithDetails(ctx context.Context, w http.ResponseWriter, status int, code, message string, details map[string]string, err error) {
	event := logger.FromContext(ctx).Error().
		Str("request_id", middleware.GetRequestID(ctx)).
		Str("error_code", code).
		Str("error_message", message).
		Int("status_code", status)

	if err != nil {
		event.Err(err)
	}

	if details != nil {
		event.Interface("error_details", details)
	}

	event.Msg("Request error with details")

	response.ErrorWithDetails(w, status, code, message, details)
}

// ValidationFailed logs field errors at warn level and sends a 422
func ValidationFailed(ctx context.Context, w http.ResponseWriter, fieldErrors map[string]string) {
	errJSON, _ := json.Marshal(fieldErrors)
	logger.FromContext(ctx).Warn().
		Str("request_id", middleware.GetRequestID(ctx)).
		RawJSON("validation_errors", errJSON).
		Msg("Validation error")

	response.ValidationError(w, fieldErrors)
}

// LogExternalServiceError logs errors from external service calls
func LogExternalServiceError(ctx context.Context, service string, operation string, err error) {
	logger.FromContext(ctx).Error().
		Str("request_id", middleware.GetRequestID(ctx)).
		Str("external_service", service).
		Str("operation", operation).
		Err(err).
		Msg("External service error")
}
