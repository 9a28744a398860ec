package wallet

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TopUpRequest accepts the amount as a JSON string or number.
type TopUpRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required,money"`
	Method string          `json:"method" validate:"required"`
}

type CheckBalanceQuery struct {
	Amount string `query:"amount" validate:"required,money"`
}

type BalanceResponse struct {
	WalletID  uuid.UUID `json:"wallet_id"`
	Balance   string    `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type StatsResponse struct {
	TotalToppedUp    string `json:"total_topped_up"`
	TotalSpent       string `json:"total_spent"`
	TotalRefunded    string `json:"total_refunded"`
	TopUpCount       int    `json:"top_up_count"`
	PurchaseCount    int    `json:"purchase_count"`
	RefundCount      int    `json:"refund_count"`
	TransactionCount int    `json:"transaction_count"`
}

type SummaryResponse struct {
	BalanceResponse
	Stats StatsResponse `json:"stats"`
}

type TransactionResponse struct {
	ID            uuid.UUID  `json:"transaction_id"`
	Type          string     `json:"type"`
	Amount        string     `json:"amount"`
	BalanceBefore string     `json:"balance_before"`
	BalanceAfter  string     `json:"balance_after"`
	OrderID       *uuid.UUID `json:"order_id,omitempty"`
	ProductName   *string    `json:"product_name,omitempty"`
	Method        *string    `json:"method,omitempty"`
	Description   string     `json:"description"`
	CreatedAt     time.Time  `json:"created_at"`
}

type BalanceCheckResponse struct {
	Sufficient bool   `json:"sufficient"`
	Balance    string `json:"balance"`
	Required   string `json:"required"`
	Shortage   string `json:"shortage"`
}

func BalanceResponseFrom(w *Wallet) BalanceResponse {
	return BalanceResponse{
		WalletID:  w.ID,
		Balance:   w.Balance.StringFixed(2),
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
}

func StatsResponseFrom(s *Stats) StatsResponse {
	return StatsResponse{
		TotalToppedUp:    s.TotalToppedUp.StringFixed(2),
		TotalSpent:       s.TotalSpent.StringFixed(2),
		TotalRefunded:    s.TotalRefunded.StringFixed(2),
		TopUpCount:       s.TopUpCount,
		PurchaseCount:    s.PurchaseCount,
		RefundCount:      s.RefundCount,
		TransactionCount: s.TransactionCount,
	}
}

func TransactionResponseFrom(t *Transaction) TransactionResponse {
	return TransactionResponse{
		ID:            t.ID,
		Type:          string(t.Type),
		Amount:        t.Amount.StringFixed(2),
		BalanceBefore: t.BalanceBefore.StringFixed(2),
		BalanceAfter:  t.BalanceAfter.StringFixed(2),
		OrderID:       t.OrderID,
		ProductName:   t.ProductName,
		Method:        t.Method,
		Description:   t.Description,
		CreatedAt:     t.CreatedAt,
	}
}
