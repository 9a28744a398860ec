package events

import (
	"time"

	"github.com/google/uuid"
)

type OrderCompleted struct {
	OrderID     uuid.UUID `json:"order_id"`
	BuyerID     uuid.UUID `json:"buyer_id"`
	SellerID    uuid.UUID `json:"seller_id"`
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Amount      string    `json:"amount"`
	OrderDate   time.Time `json:"order_date"`
}

type OrderCancelled struct {
	OrderID            uuid.UUID `json:"order_id"`
	BuyerID            uuid.UUID `json:"buyer_id"`
	SellerID           uuid.UUID `json:"seller_id"`
	ProductID          uuid.UUID `json:"product_id"`
	ProductName        string    `json:"product_name"`
	RefundAmount       string    `json:"refund_amount"`
	ProductReactivated bool      `json:"product_reactivated"`
	CancelledAt        time.Time `json:"cancelled_at"`
}

type WalletToppedUp struct {
	UserID        uuid.UUID `json:"user_id"`
	TransactionID uuid.UUID `json:"transaction_id"`
	Amount        string    `json:"amount"`
	BalanceAfter  string    `json:"balance_after"`
	Method        string    `json:"method"`
}
