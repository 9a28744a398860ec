package wallet

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/unimart/unimart-api/internal/pkg/apperror"
)

// Repository is the wallet ledger store. Methods ending in Tx run on the
// caller's transaction.
type Repository interface {
	Get(ctx context.Context, userID uuid.UUID) (*Wallet, error)
	LockTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (*Wallet, error)
	AppendTx(ctx context.Context, tx *sqlx.Tx, w *Wallet, e Entry) (*Transaction, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Transaction, error)
	CountTransactions(ctx context.Context, userID uuid.UUID) (int, error)
	GetStats(ctx context.Context, userID uuid.UUID) (*Stats, error)
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const ensureWalletQuery = `
	INSERT INTO wallets (user_id, balance)
	VALUES ($1, 0)
	ON CONFLICT (user_id) DO NOTHING
`

const walletColumns = `id, user_id, balance, created_at, updated_at`

func (r *repository) Get(ctx context.Context, userID uuid.UUID) (*Wallet, error) {
	if _, err := r.db.ExecContext(ctx, ensureWalletQuery, userID); err != nil {
		return nil, mapWalletError(err)
	}

	var w Wallet
	if err := r.db.GetContext(ctx, &w, `SELECT `+walletColumns+` FROM wallets WHERE user_id = $1`, userID); err != nil {
		return nil, err
	}
	return &w, nil
}

// LockTx creates the wallet if needed and takes its row lock.
func (r *repository) LockTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (*Wallet, error) {
	if _, err := tx.ExecContext(ctx, ensureWalletQuery, userID); err != nil {
		return nil, mapWalletError(err)
	}

	var w Wallet
	err := tx.GetContext(ctx, &w, `SELECT `+walletColumns+` FROM wallets WHERE user_id = $1 FOR UPDATE`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("wallet not found")
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// AppendTx writes e against a wallet locked by LockTx and moves its balance.
// w is updated in place.
func (r *repository) AppendTx(ctx context.Context, tx *sqlx.Tx, w *Wallet, e Entry) (*Transaction, error) {
	before := w.Balance
	after := e.Type.Apply(before, e.Amount)

	updatedAt := w.UpdatedAt
	if err := tx.GetContext(ctx, &updatedAt, `
		UPDATE wallets SET balance = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING updated_at
	`, after, w.ID); err != nil {
		return nil, mapWalletError(err)
	}

	t := &Transaction{
		WalletID:      w.ID,
		UserID:        w.UserID,
		Type:          e.Type,
		Amount:        e.Amount,
		BalanceBefore: before,
		BalanceAfter:  after,
		OrderID:       e.OrderID,
		ProductName:   e.ProductName,
		Method:        e.Method,
		Description:   e.Description,
	}
	if err := tx.QueryRowxContext(ctx, `
		INSERT INTO wallet_transactions
			(wallet_id, user_id, type, amount, balance_before, balance_after, order_id, product_name, method, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at
	`, t.WalletID, t.UserID, string(t.Type), t.Amount, t.BalanceBefore, t.BalanceAfter,
		t.OrderID, t.ProductName, t.Method, t.Description,
	).Scan(&t.ID, &t.CreatedAt); err != nil {
		return nil, mapWalletError(err)
	}

	w.Balance = after
	w.UpdatedAt = updatedAt
	return t, nil
}

const transactionColumns = `
	id, wallet_id, user_id, type, amount, balance_before, balance_after,
	order_id, product_name, method, description, created_at
`

func (r *repository) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Transaction, error) {
	txs := []Transaction{}
	err := r.db.SelectContext(ctx, &txs, `
		SELECT `+transactionColumns+`
		FROM wallet_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return txs, nil
}

func (r *repository) CountTransactions(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM wallet_transactions WHERE user_id = $1`, userID)
	return n, err
}

func (r *repository) GetStats(ctx context.Context, userID uuid.UUID) (*Stats, error) {
	var s Stats
	err := r.db.GetContext(ctx, &s, `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE type = 'top_up'), 0)   AS total_topped_up,
			COALESCE(SUM(amount) FILTER (WHERE type = 'purchase'), 0) AS total_spent,
			COALESCE(SUM(amount) FILTER (WHERE type = 'refund'), 0)   AS total_refunded,
			COUNT(*) FILTER (WHERE type = 'top_up')                   AS top_up_count,
			COUNT(*) FILTER (WHERE type = 'purchase')                 AS purchase_count,
			COUNT(*) FILTER (WHERE type = 'refund')                   AS refund_count,
			COUNT(*)                                                  AS transaction_count
		FROM wallet_transactions
		WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// mapWalletError turns constraint violations into domain errors.
func mapWalletError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case "23505":
		if pqErr.Constraint == "uniq_wallet_tx_order_type" {
			return apperror.Conflict("DUPLICATE_LEDGER_ENTRY", "a ledger entry of this type already exists for the order")
		}
	case "23503":
		if pqErr.Constraint == "wallets_user_id_fkey" {
			return apperror.NotFound("user not found")
		}
	case "23514":
		if pqErr.Constraint == "wallet_balance_non_negative" {
			return apperror.InsufficientFunds("balance would become negative")
		}
	}
	return err
}
