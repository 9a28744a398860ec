package wallet_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/unimart/unimart-api/internal/domain/wallet"
	"github.com/unimart/unimart-api/internal/pkg/database"
	"github.com/unimart/unimart-api/internal/pkg/events"
)

// memStore is an in-memory Repository and Transactor. Transactions are
// serialized and roll back by restoring a snapshot.
type memStore struct {
	txMu    sync.Mutex
	mu      sync.Mutex
	wallets map[uuid.UUID]*wallet.Wallet
	txs     []wallet.Transaction
}

func newMemStore() *memStore {
	return &memStore{wallets: map[uuid.UUID]*wallet.Wallet{}}
}

func (m *memStore) WithinTx(ctx context.Context, fn database.TxFunc) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	wallets := make(map[uuid.UUID]*wallet.Wallet, len(m.wallets))
	for k, w := range m.wallets {
		cp := *w
		wallets[k] = &cp
	}
	txs := append([]wallet.Transaction(nil), m.txs...)
	m.mu.Unlock()

	if err := fn(nil); err != nil {
		m.mu.Lock()
		m.wallets, m.txs = wallets, txs
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memStore) ensure(userID uuid.UUID) *wallet.Wallet {
	w, ok := m.wallets[userID]
	if !ok {
		now := time.Now()
		w = &wallet.Wallet{ID: uuid.New(), UserID: userID, CreatedAt: now, UpdatedAt: now}
		m.wallets[userID] = w
	}
	return w
}

func (m *memStore) Get(ctx context.Context, userID uuid.UUID) (*wallet.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *m.ensure(userID)
	return &cp, nil
}

func (m *memStore) LockTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (*wallet.Wallet, error) {
	return m.Get(ctx, userID)
}

func (m *memStore) AppendTx(ctx context.Context, tx *sqlx.Tx, w *wallet.Wallet, e wallet.Entry) (*wallet.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := m.ensure(w.UserID)
	before := stored.Balance
	after := e.Type.Apply(before, e.Amount)
	stored.Balance = after
	stored.UpdatedAt = time.Now()

	t := wallet.Transaction{
		ID:            uuid.New(),
		WalletID:      stored.ID,
		UserID:        stored.UserID,
		Type:          e.Type,
		Amount:        e.Amount,
		BalanceBefore: before,
		BalanceAfter:  after,
		OrderID:       e.OrderID,
		ProductName:   e.ProductName,
		Method:        e.Method,
		Description:   e.Description,
		CreatedAt:     time.Now(),
	}
	m.txs = append(m.txs, t)
	*w = *stored
	return &t, nil
}

func (m *memStore) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]wallet.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var mine []wallet.Transaction
	for i := len(m.txs) - 1; i >= 0; i-- {
		if m.txs[i].UserID == userID {
			mine = append(mine, m.txs[i])
		}
	}
	if offset >= len(mine) {
		return []wallet.Transaction{}, nil
	}
	end := min(offset+limit, len(mine))
	return mine[offset:end], nil
}

func (m *memStore) CountTransactions(ctx context.Context, userID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, t := range m.txs {
		if t.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (m *memStore) GetStats(ctx context.Context, userID uuid.UUID) (*wallet.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := &wallet.Stats{}
	for _, t := range m.txs {
		if t.UserID != userID {
			continue
		}
		s.TransactionCount++
		switch t.Type {
		case wallet.TransactionTypeTopUp:
			s.TotalToppedUp = s.TotalToppedUp.Add(t.Amount)
			s.TopUpCount++
		case wallet.TransactionTypePurchase:
			s.TotalSpent = s.TotalSpent.Add(t.Amount)
			s.PurchaseCount++
		case wallet.TransactionTypeRefund:
			s.TotalRefunded = s.TotalRefunded.Add(t.Amount)
			s.RefundCount++
		}
	}
	return s, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e.Type)
}
