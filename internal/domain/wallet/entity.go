package wallet

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeTopUp    TransactionType = "top_up"
	TransactionTypePurchase TransactionType = "purchase"
	TransactionTypeRefund   TransactionType = "refund"
)

// IsCredit reports whether the type adds to the balance.
func (t TransactionType) IsCredit() bool {
	return t == TransactionTypeTopUp || t == TransactionTypeRefund
}

// Apply returns the balance after an entry of this type.
func (t TransactionType) Apply(balance, amount decimal.Decimal) decimal.Decimal {
	if t.IsCredit() {
		return balance.Add(amount)
	}
	return balance.Sub(amount)
}

// Wallet holds one user's balance. It is created lazily and never deleted.
type Wallet struct {
	ID        uuid.UUID       `db:"id" json:"wallet_id"`
	UserID    uuid.UUID       `db:"user_id" json:"user_id"`
	Balance   decimal.Decimal `db:"balance" json:"balance"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// Transaction is an immutable ledger entry.
type Transaction struct {
	ID            uuid.UUID       `db:"id" json:"transaction_id"`
	WalletID      uuid.UUID       `db:"wallet_id" json:"wallet_id"`
	UserID        uuid.UUID       `db:"user_id" json:"user_id"`
	Type          TransactionType `db:"type" json:"type"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	BalanceBefore decimal.Decimal `db:"balance_before" json:"balance_before"`
	BalanceAfter  decimal.Decimal `db:"balance_after" json:"balance_after"`
	OrderID       *uuid.UUID      `db:"order_id" json:"order_id,omitempty"`
	ProductName   *string         `db:"product_name" json:"product_name,omitempty"`
	Method        *string         `db:"method" json:"method,omitempty"`
	Description   string          `db:"description" json:"description"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// Entry describes a balance change before it is written.
type Entry struct {
	Type        TransactionType
	Amount      decimal.Decimal
	OrderID     *uuid.UUID
	ProductName *string
	Method      *string
	Description string
}

// Stats aggregates a user's ledger. All totals are zero for an empty ledger.
type Stats struct {
	TotalToppedUp    decimal.Decimal `db:"total_topped_up" json:"total_topped_up"`
	TotalSpent       decimal.Decimal `db:"total_spent" json:"total_spent"`
	TotalRefunded    decimal.Decimal `db:"total_refunded" json:"total_refunded"`
	TopUpCount       int             `db:"top_up_count" json:"top_up_count"`
	PurchaseCount    int             `db:"purchase_count" json:"purchase_count"`
	RefundCount      int             `db:"refund_count" json:"refund_count"`
	TransactionCount int             `db:"transaction_count" json:"transaction_count"`
}

// Net is the balance implied by the ledger.
func (s Stats) Net() decimal.Decimal {
	return s.TotalToppedUp.Sub(s.TotalSpent).Add(s.TotalRefunded)
}

// BalanceCheck answers whether a wallet covers an amount.
type BalanceCheck struct {
	Sufficient bool            `json:"sufficient"`
	Balance    decimal.Decimal `json:"balance"`
	Required   decimal.Decimal `json:"required"`
	Shortage   decimal.Decimal `json:"shortage"`
}

// Summary is the wallet plus its aggregate stats.
type Summary struct {
	Wallet *Wallet `json:"wallet"`
	Stats  *Stats  `json:"stats"`
}
