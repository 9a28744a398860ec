package product

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository touches only the sale status of products.
type Repository interface {
	GetListing(ctx context.Context, id uuid.UUID) (*Listing, error)
	LockListingTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*Listing, error)
	MarkSoldTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error
	ReactivateTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (bool, error)
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const listingQuery = `
	SELECT p.id, p.seller_id, p.name, p.description, p.category, p.condition, p.price,
	       p.image_key, p.status, p.created_at, p.updated_at,
	       u.full_name AS seller_name, u.email AS seller_email, u.phone AS seller_phone
	FROM products p
	JOIN users u ON u.id = p.seller_id
	WHERE p.id = $1
`

func (r *repository) GetListing(ctx context.Context, id uuid.UUID) (*Listing, error) {
	var l Listing
	if err := r.db.GetContext(ctx, &l, listingQuery, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("product repository get listing: %w", err)
	}
	return &l, nil
}

// LockListingTx locks the product row; the seller row is read but not locked.
func (r *repository) LockListingTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*Listing, error) {
	var l Listing
	if err := tx.GetContext(ctx, &l, listingQuery+` FOR UPDATE OF p`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("product repository lock listing: %w", err)
	}
	return &l, nil
}

// MarkSoldTx re-checks the active status in the same statement.
func (r *repository) MarkSoldTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE products SET status = 'sold', updated_at = NOW()
		WHERE id = $1 AND status = 'active'
	`, id)
	if err != nil {
		return fmt.Errorf("product repository mark sold: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotAvailable
	}
	return nil
}

// ReactivateTx moves a sold product back to active and reports whether it did.
// Products in any other state are left alone.
func (r *repository) ReactivateTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE products SET status = 'active', updated_at = NOW()
		WHERE id = $1 AND status = 'sold'
	`, id)
	if err != nil {
		return false, fmt.Errorf("product repository reactivate: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
