package wallet

import (
	"context"
	"slices"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/unimart/unimart-api/internal/pkg/apperror"
	"github.com/unimart/unimart-api/internal/pkg/database"
	"github.com/unimart/unimart-api/internal/pkg/events"
	"github.com/unimart/unimart-api/internal/pkg/logger"
	"github.com/unimart/unimart-api/internal/pkg/money"
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// TopUpPolicy bounds internal ledger credits.
type TopUpPolicy struct {
	Min     decimal.Decimal
	Max     decimal.Decimal
	Methods []string
}

func DefaultTopUpPolicy() TopUpPolicy {
	return TopUpPolicy{
		Min:     decimal.NewFromInt(10),
		Max:     decimal.NewFromInt(1000),
		Methods: []string{"online_banking", "card", "e_wallet"},
	}
}

// Service is the wallet ledger. Deduct and Refund join the caller's
// transaction when one is passed and open their own otherwise.
type Service struct {
	repo      Repository
	txm       database.Transactor
	policy    TopUpPolicy
	publisher events.Publisher
}

func NewService(repo Repository, txm database.Transactor, policy TopUpPolicy, publisher events.Publisher) *Service {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Service{repo: repo, txm: txm, policy: policy, publisher: publisher}
}

// Policy returns the active top-up policy.
func (s *Service) Policy() TopUpPolicy { return s.policy }

// GetBalance returns the wallet, creating an empty one on first access.
func (s *Service) GetBalance(ctx context.Context, userID uuid.UUID) (*Wallet, error) {
	if userID == uuid.Nil {
		return nil, ErrMissingUser
	}
	return s.repo.Get(ctx, userID)
}

func (s *Service) HasSufficientBalance(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*BalanceCheck, error) {
	if money.ValidatePositive(amount) != nil {
		return nil, ErrInvalidAmount
	}
	w, err := s.GetBalance(ctx, userID)
	if err != nil {
		return nil, err
	}

	check := &BalanceCheck{
		Sufficient: w.Balance.GreaterThanOrEqual(amount),
		Balance:    w.Balance,
		Required:   amount,
		Shortage:   decimal.Zero,
	}
	if !check.Sufficient {
		check.Shortage = amount.Sub(w.Balance)
	}
	return check, nil
}

func (s *Service) TopUp(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, method string) (*Transaction, error) {
	if userID == uuid.Nil {
		return nil, ErrMissingUser
	}
	if money.ValidatePositive(amount) != nil {
		return nil, ErrInvalidAmount
	}
	if !money.Between(amount, s.policy.Min, s.policy.Max) {
		return nil, errTopUpOutOfRange(s.policy.Min, s.policy.Max)
	}
	if !slices.Contains(s.policy.Methods, method) {
		return nil, errInvalidMethod(s.policy.Methods)
	}

	var t *Transaction
	err := s.txm.WithinTx(ctx, func(tx *sqlx.Tx) error {
		w, err := s.repo.LockTx(ctx, tx, userID)
		if err != nil {
			return err
		}
		t, err = s.repo.AppendTx(ctx, tx, w, Entry{
			Type:        TransactionTypeTopUp,
			Amount:      amount,
			Method:      &method,
			Description: "Wallet top-up via " + method,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.LogInfo(ctx, "Wallet topped up",
		"user_id", userID.String(),
		"amount", money.Format(amount),
		"balance_after", money.Format(t.BalanceAfter),
		"method", method,
	)
	s.publisher.Publish(ctx, events.Event{
		Type:       events.TypeWalletToppedUp,
		Key:        userID.String(),
		Recipients: []uuid.UUID{userID},
		Payload: events.WalletToppedUp{
			UserID:        userID,
			TransactionID: t.ID,
			Amount:        money.Format(t.Amount),
			BalanceAfter:  money.Format(t.BalanceAfter),
			Method:        method,
		},
	})
	return t, nil
}

// LockForUpdate takes the wallet row lock inside tx.
func (s *Service) LockForUpdate(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (*Wallet, error) {
	return s.repo.LockTx(ctx, tx, userID)
}

// Deduct debits amount for a purchase. It fails with an insufficient funds
// error when the locked balance does not cover amount.
func (s *Service) Deduct(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, amount decimal.Decimal, orderID uuid.UUID, label string) (*Transaction, error) {
	if err := validateOrderEntry(userID, amount, orderID); err != nil {
		return nil, err
	}

	var t *Transaction
	owned, err := s.within(ctx, tx, func(tx *sqlx.Tx) error {
		w, err := s.repo.LockTx(ctx, tx, userID)
		if err != nil {
			return err
		}
		if w.Balance.LessThan(amount) {
			return apperror.NewInsufficientFunds(amount, w.Balance)
		}
		t, err = s.repo.AppendTx(ctx, tx, w, Entry{
			Type:        TransactionTypePurchase,
			Amount:      amount,
			OrderID:     &orderID,
			ProductName: &label,
			Description: "Purchase: " + label,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if owned {
		logger.LogInfo(ctx, "Wallet debited", "user_id", userID.String(), "order_id", orderID.String(), "amount", money.Format(amount))
	}
	return t, nil
}

// Refund credits amount back for a cancelled order. It never checks balance.
func (s *Service) Refund(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, amount decimal.Decimal, orderID uuid.UUID, label string) (*Transaction, error) {
	if err := validateOrderEntry(userID, amount, orderID); err != nil {
		return nil, err
	}

	var t *Transaction
	owned, err := s.within(ctx, tx, func(tx *sqlx.Tx) error {
		w, err := s.repo.LockTx(ctx, tx, userID)
		if err != nil {
			return err
		}
		t, err = s.repo.AppendTx(ctx, tx, w, Entry{
			Type:        TransactionTypeRefund,
			Amount:      amount,
			OrderID:     &orderID,
			ProductName: &label,
			Description: "Refund: " + label,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if owned {
		logger.LogInfo(ctx, "Wallet refunded", "user_id", userID.String(), "order_id", orderID.String(), "amount", money.Format(amount))
	}
	return t, nil
}

// GetTransactionHistory returns a page of entries, newest first, and the total count.
func (s *Service) GetTransactionHistory(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Transaction, int, error) {
	if userID == uuid.Nil {
		return nil, 0, ErrMissingUser
	}
	limit, offset = normalizePage(limit, offset)

	txs, err := s.repo.ListTransactions(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.CountTransactions(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	return txs, total, nil
}

func (s *Service) GetStats(ctx context.Context, userID uuid.UUID) (*Stats, error) {
	if userID == uuid.Nil {
		return nil, ErrMissingUser
	}
	return s.repo.GetStats(ctx, userID)
}

func (s *Service) GetSummary(ctx context.Context, userID uuid.UUID) (*Summary, error) {
	w, err := s.GetBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	stats, err := s.GetStats(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Summary{Wallet: w, Stats: stats}, nil
}

// within runs fn on tx, or on a transaction of its own when tx is nil.
// owned reports which one happened.
func (s *Service) within(ctx context.Context, tx *sqlx.Tx, fn database.TxFunc) (owned bool, err error) {
	if tx != nil {
		return false, fn(tx)
	}
	return true, s.txm.WithinTx(ctx, fn)
}

func validateOrderEntry(userID uuid.UUID, amount decimal.Decimal, orderID uuid.UUID) error {
	if userID == uuid.Nil {
		return ErrMissingUser
	}
	if orderID == uuid.Nil {
		return ErrMissingOrder
	}
	if money.ValidatePositive(amount) != nil {
		return ErrInvalidAmount
	}
	return nil
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
