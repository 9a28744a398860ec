package order

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/unimart/unimart-api/internal/domain/product"
	"github.com/unimart/unimart-api/internal/domain/wallet"
	"github.com/unimart/unimart-api/internal/pkg/apperror"
	"github.com/unimart/unimart-api/internal/pkg/database"
	"github.com/unimart/unimart-api/internal/pkg/events"
	"github.com/unimart/unimart-api/internal/pkg/logger"
	"github.com/unimart/unimart-api/internal/pkg/money"
)

// Catalog is the product status slice the coordinator drives.
type Catalog interface {
	LockForPurchase(ctx context.Context, tx *sqlx.Tx, productID uuid.UUID) (*product.Listing, error)
	MarkSold(ctx context.Context, tx *sqlx.Tx, productID uuid.UUID) error
	Reactivate(ctx context.Context, tx *sqlx.Tx, productID uuid.UUID) (bool, error)
}

// Ledger is the wallet side of a settlement.
type Ledger interface {
	LockForUpdate(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (*wallet.Wallet, error)
	Deduct(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, amount decimal.Decimal, orderID uuid.UUID, label string) (*wallet.Transaction, error)
	Refund(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, amount decimal.Decimal, orderID uuid.UUID, label string) (*wallet.Transaction, error)
}

type PurchaseResult struct {
	Order       *Order
	Item        *Item
	Transaction *wallet.Transaction
}

type CancelResult struct {
	Order              *Order
	Item               *Item
	Refund             *wallet.Transaction
	ProductReactivated bool
}

// Coordinator settles purchases and cancellations. Each call is one
// database transaction: product, wallet and order rows are locked in that
// order and every mutation commits or rolls back together.
type Coordinator struct {
	repo      Repository
	txm       database.Transactor
	catalog   Catalog
	ledger    Ledger
	publisher events.Publisher
	window    time.Duration
	now       func() time.Time
}

type Option func(*Coordinator)

// WithCancelWindow overrides DefaultCancelWindow.
func WithCancelWindow(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.window = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

func WithPublisher(p events.Publisher) Option {
	return func(c *Coordinator) {
		if p != nil {
			c.publisher = p
		}
	}
}

func NewCoordinator(repo Repository, txm database.Transactor, catalog Catalog, ledger Ledger, opts ...Option) *Coordinator {
	c := &Coordinator{
		repo:      repo,
		txm:       txm,
		catalog:   catalog,
		ledger:    ledger,
		publisher: events.Noop{},
		window:    DefaultCancelWindow,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CancelWindow returns the configured cancellation window.
func (c *Coordinator) CancelWindow() time.Duration { return c.window }

func (c *Coordinator) Purchase(ctx context.Context, buyerID, productID uuid.UUID) (*PurchaseResult, error) {
	if buyerID == uuid.Nil {
		return nil, ErrMissingBuyer
	}

	var res PurchaseResult
	err := c.txm.WithinTx(ctx, func(tx *sqlx.Tx) error {
		listing, err := c.catalog.LockForPurchase(ctx, tx, productID)
		if err != nil {
			return err
		}
		if listing.IsOwnedBy(buyerID) {
			return ErrSelfPurchase
		}
		if !listing.IsActive() {
			return ErrSoldOut
		}

		amount := listing.Price
		w, err := c.ledger.LockForUpdate(ctx, tx, buyerID)
		if err != nil {
			return err
		}
		if w.Balance.LessThan(amount) {
			return apperror.NewInsufficientFunds(amount, w.Balance)
		}

		now := c.now().UTC()
		o := &Order{
			ID:          uuid.New(),
			BuyerID:     buyerID,
			TotalAmount: amount,
			Status:      StatusCompleted,
			OrderDate:   now,
		}
		item := snapshotItem(o.ID, listing)
		if err := c.repo.CreateTx(ctx, tx, o, item); err != nil {
			return err
		}

		if err := c.catalog.MarkSold(ctx, tx, productID); err != nil {
			return err
		}

		t, err := c.ledger.Deduct(ctx, tx, buyerID, amount, o.ID, listing.Name)
		if err != nil {
			return err
		}

		res = PurchaseResult{Order: o, Item: item, Transaction: t}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.LogInfo(ctx, "Order completed",
		"order_id", res.Order.ID.String(),
		"buyer_id", buyerID.String(),
		"seller_id", res.Item.SellerID.String(),
		"product_id", productID.String(),
		"amount", money.Format(res.Order.TotalAmount),
		"balance_after", money.Format(res.Transaction.BalanceAfter),
	)
	c.publisher.Publish(ctx, events.Event{
		Type:       events.TypeOrderCompleted,
		Key:        res.Order.ID.String(),
		Recipients: []uuid.UUID{buyerID, res.Item.SellerID},
		Payload: events.OrderCompleted{
			OrderID:     res.Order.ID,
			BuyerID:     buyerID,
			SellerID:    res.Item.SellerID,
			ProductID:   productID,
			ProductName: res.Item.Name,
			Amount:      money.Format(res.Order.TotalAmount),
			OrderDate:   res.Order.OrderDate,
		},
	})
	return &res, nil
}

func (c *Coordinator) Cancel(ctx context.Context, buyerID, orderID uuid.UUID) (*CancelResult, error) {
	if buyerID == uuid.Nil {
		return nil, ErrMissingBuyer
	}
	if orderID == uuid.Nil {
		return nil, ErrMissingOrder
	}

	var res CancelResult
	err := c.txm.WithinTx(ctx, func(tx *sqlx.Tx) error {
		rec, err := c.repo.LockForBuyerTx(ctx, tx, orderID, buyerID)
		if err != nil {
			return err
		}
		o, item := &rec.Order, &rec.Item

		if o.IsCancelled() {
			return apperror.NewAlreadyCancelled(o.ID, o.CancelledAt)
		}

		now := c.now().UTC()
		if !o.WithinCancelWindow(now, c.window) {
			return apperror.NewExpiredWindow(o.OrderDate, c.window)
		}

		if err := c.repo.MarkCancelledTx(ctx, tx, o.ID, now); err != nil {
			return err
		}
		o.Status = StatusCancelled
		o.CancelledAt = &now
		o.UpdatedAt = now

		reactivated, err := c.catalog.Reactivate(ctx, tx, item.ProductID)
		if err != nil {
			return err
		}

		refund, err := c.ledger.Refund(ctx, tx, buyerID, o.TotalAmount, o.ID, item.Name)
		if err != nil {
			return err
		}

		res = CancelResult{Order: o, Item: item, Refund: refund, ProductReactivated: reactivated}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !res.ProductReactivated {
		logger.LogWarn(ctx, "Cancelled order's product was not in sold state; left as is",
			"order_id", orderID.String(), "product_id", res.Item.ProductID.String())
	}
	logger.LogInfo(ctx, "Order cancelled",
		"order_id", orderID.String(),
		"buyer_id", buyerID.String(),
		"product_id", res.Item.ProductID.String(),
		"refund", money.Format(res.Refund.Amount),
		"balance_after", money.Format(res.Refund.BalanceAfter),
	)
	c.publisher.Publish(ctx, events.Event{
		Type:       events.TypeOrderCancelled,
		Key:        orderID.String(),
		Recipients: []uuid.UUID{buyerID, res.Item.SellerID},
		Payload: events.OrderCancelled{
			OrderID:            orderID,
			BuyerID:            buyerID,
			SellerID:           res.Item.SellerID,
			ProductID:          res.Item.ProductID,
			ProductName:        res.Item.Name,
			RefundAmount:       money.Format(res.Refund.Amount),
			ProductReactivated: res.ProductReactivated,
			CancelledAt:        *res.Order.CancelledAt,
		},
	})
	return &res, nil
}

func snapshotItem(orderID uuid.UUID, l *product.Listing) *Item {
	status := ImageStatusPending
	if l.ImageKey == "" {
		status = ImageStatusSkipped
	}
	return &Item{
		ID:          uuid.New(),
		OrderID:     orderID,
		ProductID:   l.ID,
		Name:        l.Name,
		Price:       l.Price,
		Category:    l.Category,
		Condition:   l.Condition,
		Description: l.Description,
		SellerID:    l.SellerID,
		SellerName:  l.SellerName,
		SellerEmail: l.SellerEmail,
		SellerPhone: l.SellerPhone,
		ImageKey:    l.ImageKey,
		ImageStatus: status,
	}
}
