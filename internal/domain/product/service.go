package product

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Catalog is the slice of the product catalog that settlement depends on.
type Catalog struct {
	repo Repository
}

func NewCatalog(repo Repository) *Catalog {
	return &Catalog{repo: repo}
}

// CheckAvailability reports whether buyerID may buy the product right now.
// It takes no lock; Purchase re-checks under the row lock.
func (c *Catalog) CheckAvailability(ctx context.Context, productID, buyerID uuid.UUID) (*Availability, error) {
	if productID == uuid.Nil {
		return nil, ErrMissingProduct
	}
	l, err := c.repo.GetListing(ctx, productID)
	if err != nil {
		return nil, err
	}
	if l.IsOwnedBy(buyerID) {
		return nil, ErrOwnListing
	}
	if !l.IsActive() {
		return nil, ErrNotAvailable
	}
	return &Availability{Listing: l, Total: l.Price}, nil
}

// LockForPurchase locks the product row inside tx and returns its current state.
func (c *Catalog) LockForPurchase(ctx context.Context, tx *sqlx.Tx, productID uuid.UUID) (*Listing, error) {
	if productID == uuid.Nil {
		return nil, ErrMissingProduct
	}
	return c.repo.LockListingTx(ctx, tx, productID)
}

// MarkSold moves active -> sold inside tx.
func (c *Catalog) MarkSold(ctx context.Context, tx *sqlx.Tx, productID uuid.UUID) error {
	return c.repo.MarkSoldTx(ctx, tx, productID)
}

// Reactivate moves sold -> active inside tx. It is a no-op for products that
// were removed by moderation in the meantime.
func (c *Catalog) Reactivate(ctx context.Context, tx *sqlx.Tx, productID uuid.UUID) (bool, error) {
	return c.repo.ReactivateTx(ctx, tx, productID)
}
