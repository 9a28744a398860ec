package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// ImageStatus tracks the receipt image snapshot of an item.
type ImageStatus string

const (
	ImageStatusPending    ImageStatus = "pending"
	ImageStatusProcessing ImageStatus = "processing"
	ImageStatusDone       ImageStatus = "done"
	ImageStatusFailed     ImageStatus = "failed"
	ImageStatusSkipped    ImageStatus = "skipped"
)

// DefaultCancelWindow is how long after purchase a buyer may cancel.
const DefaultCancelWindow = 24 * time.Hour

// Order moves completed -> cancelled exactly once.
type Order struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	BuyerID     uuid.UUID       `db:"buyer_id" json:"buyer_id"`
	TotalAmount decimal.Decimal `db:"total_amount" json:"total_amount"`
	Status      Status          `db:"status" json:"status"`
	OrderDate   time.Time       `db:"order_date" json:"order_date"`
	CancelledAt *time.Time      `db:"cancelled_at" json:"cancelled_at,omitempty"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

func (o *Order) IsCancelled() bool {
	return o.Status == StatusCancelled
}

// CancelCutoff is the last instant a cancellation is accepted.
func (o *Order) CancelCutoff(window time.Duration) time.Time {
	return o.OrderDate.Add(window)
}

// WithinCancelWindow reports whether now is no later than the cutoff.
func (o *Order) WithinCancelWindow(now time.Time, window time.Duration) bool {
	return !now.After(o.CancelCutoff(window))
}

// Item is the immutable snapshot of the product as sold.
type Item struct {
	ID               uuid.UUID       `db:"id" json:"id"`
	OrderID          uuid.UUID       `db:"order_id" json:"order_id"`
	ProductID        uuid.UUID       `db:"product_id" json:"product_id"`
	Name             string          `db:"name" json:"name"`
	Price            decimal.Decimal `db:"price" json:"price"`
	Category         string          `db:"category" json:"category"`
	Condition        string          `db:"condition" json:"condition"`
	Description      string          `db:"description" json:"description"`
	SellerID         uuid.UUID       `db:"seller_id" json:"seller_id"`
	SellerName       string          `db:"seller_name" json:"seller_name"`
	SellerEmail      string          `db:"seller_email" json:"seller_email"`
	SellerPhone      string          `db:"seller_phone" json:"seller_phone"`
	ImageKey         string          `db:"image_key" json:"image_key"`
	SnapshotImageKey *string         `db:"snapshot_image_key" json:"snapshot_image_key,omitempty"`
	ImageStatus      ImageStatus     `db:"image_status" json:"image_status"`
	ImageAttempts    int             `db:"image_attempts" json:"image_attempts"`
	ImageError       *string         `db:"image_error" json:"image_error,omitempty"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
}

// DisplayImageKey prefers the receipt snapshot over the live product image.
func (i *Item) DisplayImageKey() string {
	if i.ImageStatus == ImageStatusDone && i.SnapshotImageKey != nil && *i.SnapshotImageKey != "" {
		return *i.SnapshotImageKey
	}
	return i.ImageKey
}

// Record is an order joined with its single item.
type Record struct {
	Order Order `db:"o"`
	Item  Item  `db:"i"`
}

// LedgerEntry is a wallet movement tied to an order.
type LedgerEntry struct {
	TransactionID uuid.UUID       `db:"id" json:"transaction_id"`
	Type          string          `db:"type" json:"type"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	BalanceAfter  decimal.Decimal `db:"balance_after" json:"balance_after"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// SearchFilter drives the admin order search.
type SearchFilter struct {
	Status   *Status
	BuyerID  *uuid.UUID
	SellerID *uuid.UUID
	From     *time.Time
	To       *time.Time
	Limit    int
	Offset   int
}
