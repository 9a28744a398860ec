package product

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the sale state of a listing. Listing CRUD lives elsewhere; this
// service only moves active <-> sold.
type Status string

const (
	StatusActive  Status = "active"
	StatusSold    Status = "sold"
	StatusRemoved Status = "removed"
)

type Product struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	SellerID    uuid.UUID       `db:"seller_id" json:"seller_id"`
	Name        string          `db:"name" json:"name"`
	Description string          `db:"description" json:"description"`
	Category    string          `db:"category" json:"category"`
	Condition   string          `db:"condition" json:"condition"`
	Price       decimal.Decimal `db:"price" json:"price"`
	ImageKey    string          `db:"image_key" json:"image_key"`
	Status      Status          `db:"status" json:"status"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// Listing is a product with the seller display info snapshotted on sale.
type Listing struct {
	Product
	SellerName  string `db:"seller_name" json:"seller_name"`
	SellerEmail string `db:"seller_email" json:"seller_email"`
	SellerPhone string `db:"seller_phone" json:"seller_phone"`
}

// IsActive reports whether the listing can be bought.
func (p *Product) IsActive() bool {
	return p.Status == StatusActive
}

// IsOwnedBy reports whether userID is the seller.
func (p *Product) IsOwnedBy(userID uuid.UUID) bool {
	return p.SellerID == userID
}

// Availability is the answer to a pre-purchase check.
type Availability struct {
	Listing *Listing
	Total   decimal.Decimal
}
