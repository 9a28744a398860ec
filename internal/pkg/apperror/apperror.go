package apperror

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/unimart/unimart-api/internal/pkg/money"
)

// Kinds. Every caller-facing error unwraps to exactly one of these.
var (
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("not found")
	ErrPermission        = errors.New("permission denied")
	ErrConflict          = errors.New("conflict")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrExpiredWindow     = errors.New("cancellation window expired")
	ErrAlreadyCancelled  = errors.New("order already cancelled")
)

// Error is a caller-facing domain error with a stable code.
type Error struct {
	kind    error
	Code    string
	Message string
	Details map[string]string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.kind }

// Kind returns the kind sentinel the error belongs to.
func (e *Error) Kind() error { return e.kind }

func newError(kind error, code, message string, details map[string]string) *Error {
	return &Error{kind: kind, Code: code, Message: message, Details: details}
}

func Validation(message string) *Error {
	return newError(ErrValidation, "VALIDATION_ERROR", message, nil)
}

func ValidationWithDetails(message string, details map[string]string) *Error {
	return newError(ErrValidation, "VALIDATION_ERROR", message, details)
}

func NotFound(message string) *Error {
	return newError(ErrNotFound, "NOT_FOUND", message, nil)
}

func Permission(message string) *Error {
	return newError(ErrPermission, "FORBIDDEN", message, nil)
}

func Conflict(code, message string) *Error {
	return newError(ErrConflict, code, message, nil)
}

// InsufficientFunds is used where the amounts are not at hand, such as a
// balance constraint tripping inside storage.
func InsufficientFunds(message string) *Error {
	return newError(ErrInsufficientFunds, "INSUFFICIENT_FUNDS", message, nil)
}

// KindOf returns the kind sentinel err wraps, or nil.
func KindOf(err error) error {
	for _, kind := range []error{
		ErrValidation, ErrNotFound, ErrPermission, ErrConflict,
		ErrInsufficientFunds, ErrExpiredWindow, ErrAlreadyCancelled,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// InsufficientFundsError reports that a wallet cannot cover an amount.
type InsufficientFundsError struct {
	Required  decimal.Decimal
	Available decimal.Decimal
}

func NewInsufficientFunds(required, available decimal.Decimal) *InsufficientFundsError {
	return &InsufficientFundsError{Required: required, Available: available}
}

// Shortage is the amount missing from the wallet.
func (e *InsufficientFundsError) Shortage() decimal.Decimal {
	s := e.Required.Sub(e.Available)
	if s.IsNegative() {
		return decimal.Zero
	}
	return s
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient wallet balance: short by RM%s", money.Format(e.Shortage()))
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

// ExpiredWindowError reports a cancellation attempted after the cutoff.
type ExpiredWindowError struct {
	OrderedAt time.Time
	Cutoff    time.Time
	Window    time.Duration
}

func NewExpiredWindow(orderedAt time.Time, window time.Duration) *ExpiredWindowError {
	return &ExpiredWindowError{OrderedAt: orderedAt, Cutoff: orderedAt.Add(window), Window: window}
}

func (e *ExpiredWindowError) Error() string {
	return fmt.Sprintf("orders can only be cancelled within %s of purchase; the cutoff was %s",
		formatWindow(e.Window), e.Cutoff.UTC().Format(time.RFC3339))
}

func (e *ExpiredWindowError) Unwrap() error { return ErrExpiredWindow }

// AlreadyCancelledError reports a repeated cancellation.
type AlreadyCancelledError struct {
	OrderID     uuid.UUID
	CancelledAt *time.Time
}

func NewAlreadyCancelled(orderID uuid.UUID, cancelledAt *time.Time) *AlreadyCancelledError {
	return &AlreadyCancelledError{OrderID: orderID, CancelledAt: cancelledAt}
}

func (e *AlreadyCancelledError) Error() string {
	return fmt.Sprintf("order %s has already been cancelled", e.OrderID)
}

func (e *AlreadyCancelledError) Unwrap() error { return ErrAlreadyCancelled }

// IsDomain reports whether err belongs to one of the caller-facing kinds.
func IsDomain(err error) bool {
	for _, kind := range []error{
		ErrValidation, ErrNotFound, ErrPermission, ErrConflict,
		ErrInsufficientFunds, ErrExpiredWindow, ErrAlreadyCancelled,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

func formatWindow(d time.Duration) string {
	if d%time.Hour == 0 {
		hours := int(d / time.Hour)
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	return d.String()
}
