package errorhandler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/unimart/unimart-api/internal/pkg/apperror"
	"github.com/unimart/unimart-api/internal/pkg/logger"
	"github.com/unimart/unimart-api/internal/pkg/money"
	"github.com/unimart/unimart-api/internal/pkg/response"
)

// HandleDomainError renders err as an API error. Caller-facing kinds map to
// their status codes; anything else is logged and answered with 500.
func HandleDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	var funds *apperror.InsufficientFundsError
	if errors.As(err, &funds) {
		response.ErrorWithDetails(w, http.StatusPaymentRequired, "INSUFFICIENT_FUNDS", funds.Error(), map[string]string{
			"required":  money.Format(funds.Required),
			"available": money.Format(funds.Available),
			"shortage":  money.Format(funds.Shortage()),
		})
		return
	}

	var expired *apperror.ExpiredWindowError
	if errors.As(err, &expired) {
		response.ErrorWithDetails(w, http.StatusConflict, "CANCELLATION_WINDOW_EXPIRED", expired.Error(), map[string]string{
			"ordered_at": expired.OrderedAt.UTC().Format(time.RFC3339),
			"cutoff":     expired.Cutoff.UTC().Format(time.RFC3339),
		})
		return
	}

	var cancelled *apperror.AlreadyCancelledError
	if errors.As(err, &cancelled) {
		var details map[string]string
		if cancelled.CancelledAt != nil {
			details = map[string]string{"cancelled_at": cancelled.CancelledAt.UTC().Format(time.RFC3339)}
		}
		response.ErrorWithDetails(w, http.StatusConflict, "ORDER_ALREADY_CANCELLED", cancelled.Error(), details)
		return
	}

	var domainErr *apperror.Error
	if errors.As(err, &domainErr) {
		response.ErrorWithDetails(w, statusFor(domainErr.Kind()), domainErr.Code, domainErr.Message, domainErr.Details)
		return
	}

	// A bare kind sentinel wrapped with fmt.Errorf still gets its status.
	if kind := apperror.KindOf(err); kind != nil {
		logger.FromContext(ctx).Warn().Err(err).Msg("Domain error without a code")
		response.Error(w, statusFor(kind), codeFor(kind), kind.Error())
		return
	}

	HandleError(ctx, w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", err)
}

// HandleError logs the failure with the request id and sends the error response.
func HandleError(ctx context.Context, w http.ResponseWriter, status int, code, message string, err error) {
	event := logger.FromContext(ctx).Error().
		Str("request_id", logger.RequestID(ctx)).
		Str("error_code", code).
		Int("status_code", status)
	if err != nil {
		event = event.Err(err)
	}
	event.Msg("Request error")

	response.Error(w, status, code, message)
}

// LogValidationError logs validation errors with details
func LogValidationError(ctx context.Context, fieldErrors map[string]string) {
	logger.FromContext(ctx).Warn().
		Str("request_id", logger.RequestID(ctx)).
		Interface("validation_errors", fieldErrors).
		Msg("Validation error")
}

func codeFor(kind error) string {
	switch kind {
	case apperror.ErrValidation:
		return "VALIDATION_ERROR"
	case apperror.ErrNotFound:
		return "NOT_FOUND"
	case apperror.ErrPermission:
		return "FORBIDDEN"
	case apperror.ErrInsufficientFunds:
		return "INSUFFICIENT_FUNDS"
	case apperror.ErrExpiredWindow:
		return "CANCELLATION_WINDOW_EXPIRED"
	case apperror.ErrAlreadyCancelled:
		return "ORDER_ALREADY_CANCELLED"
	default:
		return "CONFLICT"
	}
}

func statusFor(kind error) int {
	switch kind {
	case apperror.ErrValidation:
		return http.StatusUnprocessableEntity
	case apperror.ErrNotFound:
		return http.StatusNotFound
	case apperror.ErrPermission:
		return http.StatusForbidden
	case apperror.ErrConflict, apperror.ErrAlreadyCancelled, apperror.ErrExpiredWindow:
		return http.StatusConflict
	case apperror.ErrInsufficientFunds:
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}
