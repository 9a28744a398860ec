package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/unimart/unimart-api/internal/pkg/apperror"
)

// Repository owns orders and their item snapshots.
type Repository interface {
	CreateTx(ctx context.Context, tx *sqlx.Tx, o *Order, item *Item) error
	LockForBuyerTx(ctx context.Context, tx *sqlx.Tx, orderID, buyerID uuid.UUID) (*Record, error)
	MarkCancelledTx(ctx context.Context, tx *sqlx.Tx, orderID uuid.UUID, at time.Time) error

	GetByID(ctx context.Context, orderID uuid.UUID) (*Record, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID, limit, offset int) ([]Record, int, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID, limit, offset int) ([]Record, int, error)
	Search(ctx context.Context, f SearchFilter) ([]Record, int, error)
	ListLedgerEntries(ctx context.Context, orderID uuid.UUID) ([]LedgerEntry, error)
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const recordColumns = `
	o.id AS "o.id", o.buyer_id AS "o.buyer_id", o.total_amount AS "o.total_amount",
	o.status AS "o.status", o.order_date AS "o.order_date", o.cancelled_at AS "o.cancelled_at",
	o.updated_at AS "o.updated_at",
	i.id AS "i.id", i.order_id AS "i.order_id", i.product_id AS "i.product_id", i.name AS "i.name",
	i.price AS "i.price", i.category AS "i.category", i.condition AS "i.condition",
	i.description AS "i.description", i.seller_id AS "i.seller_id", i.seller_name AS "i.seller_name",
	i.seller_email AS "i.seller_email", i.seller_phone AS "i.seller_phone", i.image_key AS "i.image_key",
	i.snapshot_image_key AS "i.snapshot_image_key", i.image_status AS "i.image_status",
	i.image_attempts AS "i.image_attempts", i.image_error AS "i.image_error", i.created_at AS "i.created_at"
`

const recordFrom = ` FROM orders o JOIN order_items i ON i.order_id = o.id `

func (r *repository) CreateTx(ctx context.Context, tx *sqlx.Tx, o *Order, item *Item) error {
	if err := tx.QueryRowxContext(ctx, `
		INSERT INTO orders (id, buyer_id, total_amount, status, order_date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING updated_at
	`, o.ID, o.BuyerID, o.TotalAmount, string(o.Status), o.OrderDate).Scan(&o.UpdatedAt); err != nil {
		return mapCreateDBError(err)
	}

	if err := tx.QueryRowxContext(ctx, `
		INSERT INTO order_items (
			id, order_id, product_id, name, price, category, condition, description,
			seller_id, seller_name, seller_email, seller_phone, image_key, image_status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at
	`, item.ID, item.OrderID, item.ProductID, item.Name, item.Price, item.Category, item.Condition,
		item.Description, item.SellerID, item.SellerName, item.SellerEmail, item.SellerPhone,
		item.ImageKey, string(item.ImageStatus),
	).Scan(&item.CreatedAt); err != nil {
		return mapCreateDBError(err)
	}
	return nil
}

// LockForBuyerTx locks the order row. Orders of other buyers are not found.
func (r *repository) LockForBuyerTx(ctx context.Context, tx *sqlx.Tx, orderID, buyerID uuid.UUID) (*Record, error) {
	var rec Record
	err := tx.GetContext(ctx, &rec, `SELECT `+recordColumns+recordFrom+`
		WHERE o.id = $1 AND o.buyer_id = $2
		FOR UPDATE OF o
	`, orderID, buyerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("order repository lock: %w", err)
	}
	return &rec, nil
}

func (r *repository) MarkCancelledTx(ctx context.Context, tx *sqlx.Tx, orderID uuid.UUID, at time.Time) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE orders SET status = 'cancelled', cancelled_at = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'completed'
	`, orderID, at)
	if err != nil {
		return fmt.Errorf("order repository mark cancelled: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NewAlreadyCancelled(orderID, nil)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, orderID uuid.UUID) (*Record, error) {
	var rec Record
	err := r.db.GetContext(ctx, &rec, `SELECT `+recordColumns+recordFrom+`WHERE o.id = $1`, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("order repository get: %w", err)
	}
	return &rec, nil
}

func (r *repository) ListByBuyer(ctx context.Context, buyerID uuid.UUID, limit, offset int) ([]Record, int, error) {
	return r.Search(ctx, SearchFilter{BuyerID: &buyerID, Limit: limit, Offset: offset})
}

func (r *repository) ListBySeller(ctx context.Context, sellerID uuid.UUID, limit, offset int) ([]Record, int, error) {
	return r.Search(ctx, SearchFilter{SellerID: &sellerID, Limit: limit, Offset: offset})
}

func (r *repository) Search(ctx context.Context, f SearchFilter) ([]Record, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	argIndex := 1

	if f.Status != nil {
		where = append(where, fmt.Sprintf("o.status = $%d", argIndex))
		args = append(args, string(*f.Status))
		argIndex++
	}
	if f.BuyerID != nil {
		where = append(where, fmt.Sprintf("o.buyer_id = $%d", argIndex))
		args = append(args, *f.BuyerID)
		argIndex++
	}
	if f.SellerID != nil {
		where = append(where, fmt.Sprintf("i.seller_id = $%d", argIndex))
		args = append(args, *f.SellerID)
		argIndex++
	}
	if f.From != nil {
		where = append(where, fmt.Sprintf("o.order_date >= $%d", argIndex))
		args = append(args, *f.From)
		argIndex++
	}
	if f.To != nil {
		where = append(where, fmt.Sprintf("o.order_date < $%d", argIndex))
		args = append(args, *f.To)
		argIndex++
	}
	cond := " WHERE " + strings.Join(where, " AND ")

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*)`+recordFrom+cond, args...); err != nil {
		return nil, 0, fmt.Errorf("order repository count: %w", err)
	}

	query := `SELECT ` + recordColumns + recordFrom + cond +
		fmt.Sprintf(" ORDER BY o.order_date DESC, o.id DESC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, f.Limit, f.Offset)

	records := []Record{}
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("order repository search: %w", err)
	}
	return records, total, nil
}

func (r *repository) ListLedgerEntries(ctx context.Context, orderID uuid.UUID) ([]LedgerEntry, error) {
	entries := []LedgerEntry{}
	err := r.db.SelectContext(ctx, &entries, `
		SELECT id, type, amount, balance_after, created_at
		FROM wallet_transactions
		WHERE order_id = $1
		ORDER BY created_at ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("order repository ledger entries: %w", err)
	}
	return entries, nil
}

func mapCreateDBError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case "23505":
		return apperror.Conflict("ORDER_EXISTS", "order already exists")
	case "23503":
		return apperror.NotFound("referenced buyer, seller or product not found")
	case "23514":
		return apperror.Validation("order violates a value constraint")
	}
	return err
}
