package errorhandler_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/unimart/unimart-api/internal/pkg/apperror"
	"github.com/unimart/unimart-api/internal/pkg/errorhandler"
	"github.com/unimart/unimart-api/internal/pkg/money"
)

func render(t *testing.T, err error) (int, string, map[string]string) {
	t.Helper()
	w := httptest.NewRecorder()
	errorhandler.HandleDomainError(context.Background(), w, err)

	var body struct {
		Error struct {
			Code    string            `json:"code"`
			Details map[string]string `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return w.Code, body.Error.Code, body.Error.Details
}

func TestHandleDomainError(t *testing.T) {
	orderedAt := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"shortage", apperror.NewInsufficientFunds(money.MustParse("60"), money.MustParse("50")), http.StatusPaymentRequired, "INSUFFICIENT_FUNDS"},
		{"insufficient without amounts", apperror.InsufficientFunds("balance would become negative"), http.StatusPaymentRequired, "INSUFFICIENT_FUNDS"},
		{"wrapped kind sentinel", fmt.Errorf("%w: balance would become negative", apperror.ErrInsufficientFunds), http.StatusPaymentRequired, "INSUFFICIENT_FUNDS"},
		{"expired window", apperror.NewExpiredWindow(orderedAt, 24*time.Hour), http.StatusConflict, "CANCELLATION_WINDOW_EXPIRED"},
		{"already cancelled", apperror.NewAlreadyCancelled(uuid.New(), &orderedAt), http.StatusConflict, "ORDER_ALREADY_CANCELLED"},
		{"not found", apperror.NotFound("order not found"), http.StatusNotFound, "NOT_FOUND"},
		{"infrastructure", errors.New("connection reset"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code, _ := render(t, tt.err)
			if status != tt.status || code != tt.code {
				t.Fatalf("expected %d %s, got %d %s", tt.status, tt.code, status, code)
			}
		})
	}
}

func TestHandleDomainErrorShortageDetails(t *testing.T) {
	_, _, details := render(t, apperror.NewInsufficientFunds(money.MustParse("60"), money.MustParse("50")))
	if details["shortage"] != "10.00" || details["required"] != "60.00" {
		t.Fatalf("unexpected details %v", details)
	}
}
