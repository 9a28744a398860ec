package order_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/unimart/unimart-api/internal/domain/order"
	"github.com/unimart/unimart-api/internal/domain/product"
	"github.com/unimart/unimart-api/internal/domain/wallet"
	"github.com/unimart/unimart-api/internal/pkg/apperror"
	"github.com/unimart/unimart-api/internal/pkg/database"
	"github.com/unimart/unimart-api/internal/pkg/events"
)

// world is an in-memory store behind every interface the coordinator uses.
// Transactions are serialized and roll back by restoring a snapshot, which
// mirrors row locking for a single product and wallet.
type world struct {
	txMu sync.Mutex
	mu   sync.Mutex

	products map[uuid.UUID]product.Listing
	balances map[uuid.UUID]decimal.Decimal
	ledger   []wallet.Transaction
	records  map[uuid.UUID]order.Record

	failDeduct error
}

func newWorld() *world {
	return &world{
		products: map[uuid.UUID]product.Listing{},
		balances: map[uuid.UUID]decimal.Decimal{},
		records:  map[uuid.UUID]order.Record{},
	}
}

type snapshot struct {
	products map[uuid.UUID]product.Listing
	balances map[uuid.UUID]decimal.Decimal
	ledger   []wallet.Transaction
	records  map[uuid.UUID]order.Record
}

func (w *world) snapshot() snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	s := snapshot{
		products: make(map[uuid.UUID]product.Listing, len(w.products)),
		balances: make(map[uuid.UUID]decimal.Decimal, len(w.balances)),
		ledger:   append([]wallet.Transaction(nil), w.ledger...),
		records:  make(map[uuid.UUID]order.Record, len(w.records)),
	}
	for k, v := range w.products {
		s.products[k] = v
	}
	for k, v := range w.balances {
		s.balances[k] = v
	}
	for k, v := range w.records {
		s.records[k] = v
	}
	return s
}

func (w *world) restore(s snapshot) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.products, w.balances, w.ledger, w.records = s.products, s.balances, s.ledger, s.records
}

func (w *world) WithinTx(ctx context.Context, fn database.TxFunc) error {
	w.txMu.Lock()
	defer w.txMu.Unlock()

	s := w.snapshot()
	if err := fn(nil); err != nil {
		w.restore(s)
		return err
	}
	return nil
}

// seeding helpers

func (w *world) addProduct(sellerID uuid.UUID, name, price string) uuid.UUID {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := uuid.New()
	w.products[id] = product.Listing{
		Product: product.Product{
			ID:       id,
			SellerID: sellerID,
			Name:     name,
			Category: "Books",
			Price:    decimal.RequireFromString(price),
			ImageKey: "products/" + id.String() + ".jpg",
			Status:   product.StatusActive,
		},
		SellerName:  "Seller",
		SellerEmail: "seller@campus.test",
	}
	return id
}

func (w *world) fund(userID uuid.UUID, amount string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	before := w.balances[userID]
	after := before.Add(decimal.RequireFromString(amount))
	w.balances[userID] = after
	w.ledger = append(w.ledger, wallet.Transaction{
		ID: uuid.New(), UserID: userID, Type: wallet.TransactionTypeTopUp,
		Amount: decimal.RequireFromString(amount), BalanceBefore: before, BalanceAfter: after,
	})
}

func (w *world) balance(userID uuid.UUID) decimal.Decimal {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balances[userID]
}

func (w *world) productStatus(id uuid.UUID) product.Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.products[id].Status
}

func (w *world) setProductStatus(id uuid.UUID, s product.Status) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p := w.products[id]
	p.Status = s
	w.products[id] = p
}

func (w *world) entries(userID uuid.UUID) []wallet.Transaction {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []wallet.Transaction
	for _, t := range w.ledger {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out
}

func (w *world) liveOrdersFor(productID uuid.UUID) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, r := range w.records {
		if r.Item.ProductID == productID && r.Order.Status == order.StatusCompleted {
			n++
		}
	}
	return n
}

func (w *world) orderCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.records)
}

// order.Catalog

func (w *world) LockForPurchase(_ context.Context, _ *sqlx.Tx, id uuid.UUID) (*product.Listing, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	l, ok := w.products[id]
	if !ok {
		return nil, product.ErrProductNotFound
	}
	return &l, nil
}

func (w *world) MarkSold(_ context.Context, _ *sqlx.Tx, id uuid.UUID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	l, ok := w.products[id]
	if !ok || l.Status != product.StatusActive {
		return product.ErrNotAvailable
	}
	l.Status = product.StatusSold
	w.products[id] = l
	return nil
}

func (w *world) Reactivate(_ context.Context, _ *sqlx.Tx, id uuid.UUID) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	l, ok := w.products[id]
	if !ok || l.Status != product.StatusSold {
		return false, nil
	}
	l.Status = product.StatusActive
	w.products[id] = l
	return true, nil
}

// order.Ledger

func (w *world) LockForUpdate(_ context.Context, _ *sqlx.Tx, userID uuid.UUID) (*wallet.Wallet, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return &wallet.Wallet{UserID: userID, Balance: w.balances[userID]}, nil
}

func (w *world) Deduct(_ context.Context, _ *sqlx.Tx, userID uuid.UUID, amount decimal.Decimal, orderID uuid.UUID, label string) (*wallet.Transaction, error) {
	if w.failDeduct != nil {
		return nil, w.failDeduct
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	before := w.balances[userID]
	if before.LessThan(amount) {
		return nil, apperror.NewInsufficientFunds(amount, before)
	}
	return w.appendLocked(userID, wallet.TransactionTypePurchase, amount, orderID, label), nil
}

func (w *world) Refund(_ context.Context, _ *sqlx.Tx, userID uuid.UUID, amount decimal.Decimal, orderID uuid.UUID, label string) (*wallet.Transaction, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, t := range w.ledger {
		if t.OrderID != nil && *t.OrderID == orderID && t.Type == wallet.TransactionTypeRefund {
			return nil, errors.New("duplicate refund")
		}
	}
	return w.appendLocked(userID, wallet.TransactionTypeRefund, amount, orderID, label), nil
}

func (w *world) appendLocked(userID uuid.UUID, typ wallet.TransactionType, amount decimal.Decimal, orderID uuid.UUID, label string) *wallet.Transaction {
	before := w.balances[userID]
	after := typ.Apply(before, amount)
	w.balances[userID] = after
	t := wallet.Transaction{
		ID: uuid.New(), UserID: userID, Type: typ, Amount: amount,
		BalanceBefore: before, BalanceAfter: after, OrderID: &orderID, ProductName: &label,
		CreatedAt: time.Now(),
	}
	w.ledger = append(w.ledger, t)
	return &t
}

// order.Repository

func (w *world) CreateTx(_ context.Context, _ *sqlx.Tx, o *order.Order, item *order.Item) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	o.UpdatedAt = o.OrderDate
	item.CreatedAt = o.OrderDate
	w.records[o.ID] = order.Record{Order: *o, Item: *item}
	return nil
}

func (w *world) LockForBuyerTx(_ context.Context, _ *sqlx.Tx, orderID, buyerID uuid.UUID) (*order.Record, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	r, ok := w.records[orderID]
	if !ok || r.Order.BuyerID != buyerID {
		return nil, order.ErrOrderNotFound
	}
	return &r, nil
}

func (w *world) MarkCancelledTx(_ context.Context, _ *sqlx.Tx, orderID uuid.UUID, at time.Time) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	r := w.records[orderID]
	if r.Order.Status != order.StatusCompleted {
		return apperror.NewAlreadyCancelled(orderID, nil)
	}
	r.Order.Status = order.StatusCancelled
	r.Order.CancelledAt = &at
	w.records[orderID] = r
	return nil
}

func (w *world) GetByID(_ context.Context, orderID uuid.UUID) (*order.Record, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	r, ok := w.records[orderID]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	return &r, nil
}

func (w *world) ListByBuyer(ctx context.Context, buyerID uuid.UUID, limit, offset int) ([]order.Record, int, error) {
	return w.Search(ctx, order.SearchFilter{BuyerID: &buyerID, Limit: limit, Offset: offset})
}

func (w *world) ListBySeller(ctx context.Context, sellerID uuid.UUID, limit, offset int) ([]order.Record, int, error) {
	return w.Search(ctx, order.SearchFilter{SellerID: &sellerID, Limit: limit, Offset: offset})
}

func (w *world) Search(_ context.Context, f order.SearchFilter) ([]order.Record, int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []order.Record
	for _, r := range w.records {
		if f.BuyerID != nil && r.Order.BuyerID != *f.BuyerID {
			continue
		}
		if f.SellerID != nil && r.Item.SellerID != *f.SellerID {
			continue
		}
		if f.Status != nil && r.Order.Status != *f.Status {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order.OrderDate.After(out[j].Order.OrderDate) })
	total := len(out)
	if f.Offset >= total {
		return []order.Record{}, total, nil
	}
	return out[f.Offset:min(f.Offset+f.Limit, total)], total, nil
}

func (w *world) ListLedgerEntries(_ context.Context, orderID uuid.UUID) ([]order.LedgerEntry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := []order.LedgerEntry{}
	for _, t := range w.ledger {
		if t.OrderID != nil && *t.OrderID == orderID {
			out = append(out, order.LedgerEntry{TransactionID: t.ID, Type: string(t.Type), Amount: t.Amount, BalanceAfter: t.BalanceAfter})
		}
	}
	return out, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
