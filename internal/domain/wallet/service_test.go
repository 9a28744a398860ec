package wallet_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/unimart/unimart-api/internal/domain/wallet"
	"github.com/unimart/unimart-api/internal/pkg/apperror"
	"github.com/unimart/unimart-api/internal/pkg/events"
	"github.com/unimart/unimart-api/internal/pkg/money"
)

func newTestService() (*wallet.Service, *memStore, *recordingPublisher) {
	store := newMemStore()
	pub := &recordingPublisher{}
	return wallet.NewService(store, store, wallet.DefaultTopUpPolicy(), pub), store, pub
}

func TestGetBalanceCreatesEmptyWallet(t *testing.T) {
	svc, _, _ := newTestService()

	w, err := svc.GetBalance(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if !w.Balance.IsZero() {
		t.Fatalf("expected zero balance, got %s", w.Balance)
	}
}

func TestTopUpRecordsTransaction(t *testing.T) {
	svc, _, pub := newTestService()
	ctx := context.Background()
	userID := uuid.New()

	tx, err := svc.TopUp(ctx, userID, money.MustParse("100.00"), "online_banking")
	if err != nil {
		t.Fatalf("top up: %v", err)
	}
	if tx.Type != wallet.TransactionTypeTopUp {
		t.Fatalf("expected top_up, got %s", tx.Type)
	}
	if money.Format(tx.BalanceBefore) != "0.00" || money.Format(tx.BalanceAfter) != "100.00" {
		t.Fatalf("unexpected before/after %s/%s", tx.BalanceBefore, tx.BalanceAfter)
	}
	if tx.Method == nil || *tx.Method != "online_banking" {
		t.Fatalf("expected method to be recorded, got %v", tx.Method)
	}

	w, _ := svc.GetBalance(ctx, userID)
	if money.Format(w.Balance) != "100.00" {
		t.Fatalf("expected balance 100.00, got %s", w.Balance)
	}
	if len(pub.events) != 1 || pub.events[0] != events.TypeWalletToppedUp {
		t.Fatalf("expected one wallet.topped_up event, got %v", pub.events)
	}
}

func TestTopUpValidation(t *testing.T) {
	svc, store, _ := newTestService()
	userID := uuid.New()

	tests := []struct {
		name   string
		amount string
		method string
	}{
		{"below minimum", "9.99", "card"},
		{"above maximum", "1000.01", "card"},
		{"zero", "0", "card"},
		{"negative", "-20", "card"},
		{"three decimals", "10.005", "card"},
		{"unknown method", "50", "crypto"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.TopUp(context.Background(), userID, money.MustParse(tt.amount), tt.method)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	if n, _ := store.CountTransactions(context.Background(), userID); n != 0 {
		t.Fatalf("expected no transactions, got %d", n)
	}
}

func TestTopUpBoundsAreInclusive(t *testing.T) {
	svc, _, _ := newTestService()
	userID := uuid.New()

	for _, amount := range []string{"10.00", "1000.00"} {
		if _, err := svc.TopUp(context.Background(), userID, money.MustParse(amount), "e_wallet"); err != nil {
			t.Fatalf("top up %s: %v", amount, err)
		}
	}
}

func TestDeductInsufficientFunds(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()
	userID := uuid.New()

	if _, err := svc.TopUp(ctx, userID, money.MustParse("50.00"), "card"); err != nil {
		t.Fatalf("top up: %v", err)
	}

	_, err := svc.Deduct(ctx, nil, userID, money.MustParse("60.00"), uuid.New(), "Calculus textbook")
	var funds *apperror.InsufficientFundsError
	if !errors.As(err, &funds) {
		t.Fatalf("expected InsufficientFundsError, got %v", err)
	}
	if money.Format(funds.Shortage()) != "10.00" {
		t.Fatalf("expected shortage 10.00, got %s", funds.Shortage())
	}

	w, _ := svc.GetBalance(ctx, userID)
	if money.Format(w.Balance) != "50.00" {
		t.Fatalf("balance changed: %s", w.Balance)
	}
	if n, _ := store.CountTransactions(ctx, userID); n != 1 {
		t.Fatalf("expected only the top-up, got %d transactions", n)
	}
}

func TestDeductAndRefundKeepLedgerBalanced(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	userID := uuid.New()
	orderID := uuid.New()

	if _, err := svc.TopUp(ctx, userID, money.MustParse("100.00"), "card"); err != nil {
		t.Fatalf("top up: %v", err)
	}
	debit, err := svc.Deduct(ctx, nil, userID, money.MustParse("60.00"), orderID, "Desk lamp")
	if err != nil {
		t.Fatalf("deduct: %v", err)
	}
	if money.Format(debit.BalanceBefore) != "100.00" || money.Format(debit.BalanceAfter) != "40.00" {
		t.Fatalf("unexpected debit before/after %s/%s", debit.BalanceBefore, debit.BalanceAfter)
	}
	if debit.ProductName == nil || *debit.ProductName != "Desk lamp" {
		t.Fatalf("expected product name on ledger entry")
	}

	credit, err := svc.Refund(ctx, nil, userID, money.MustParse("60.00"), orderID, "Desk lamp")
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if money.Format(credit.BalanceAfter) != "100.00" {
		t.Fatalf("expected 100.00 after refund, got %s", credit.BalanceAfter)
	}

	summary, err := svc.GetSummary(ctx, userID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if !summary.Stats.Net().Equal(summary.Wallet.Balance) {
		t.Fatalf("ledger drift: net %s, balance %s", summary.Stats.Net(), summary.Wallet.Balance)
	}
	if summary.Stats.PurchaseCount != 1 || summary.Stats.RefundCount != 1 || summary.Stats.TopUpCount != 1 {
		t.Fatalf("unexpected counts %+v", summary.Stats)
	}
}

func TestRefundNeverChecksBalance(t *testing.T) {
	svc, _, _ := newTestService()

	tx, err := svc.Refund(context.Background(), nil, uuid.New(), money.MustParse("25.50"), uuid.New(), "Headphones")
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if money.Format(tx.BalanceAfter) != "25.50" {
		t.Fatalf("expected 25.50, got %s", tx.BalanceAfter)
	}
}

func TestOrderEntriesRequireIDs(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Deduct(ctx, nil, uuid.New(), money.MustParse("1"), uuid.Nil, "x"); !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("expected validation error for missing order, got %v", err)
	}
	if _, err := svc.Refund(ctx, nil, uuid.Nil, money.MustParse("1"), uuid.New(), "x"); !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("expected validation error for missing user, got %v", err)
	}
	if _, err := svc.Deduct(ctx, nil, uuid.New(), money.MustParse("0"), uuid.New(), "x"); !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("expected validation error for zero amount, got %v", err)
	}
}

func TestHasSufficientBalance(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	userID := uuid.New()

	if _, err := svc.TopUp(ctx, userID, money.MustParse("50.00"), "card"); err != nil {
		t.Fatalf("top up: %v", err)
	}

	check, err := svc.HasSufficientBalance(ctx, userID, money.MustParse("60.00"))
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if check.Sufficient || money.Format(check.Shortage) != "10.00" {
		t.Fatalf("unexpected check %+v", check)
	}

	check, _ = svc.HasSufficientBalance(ctx, userID, money.MustParse("50.00"))
	if !check.Sufficient || !check.Shortage.IsZero() {
		t.Fatalf("exact balance should be sufficient: %+v", check)
	}

	if _, err := svc.HasSufficientBalance(ctx, userID, money.MustParse("-1")); !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestStatsEmptyLedger(t *testing.T) {
	svc, _, _ := newTestService()

	stats, err := svc.GetStats(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if !stats.TotalToppedUp.IsZero() || stats.TransactionCount != 0 {
		t.Fatalf("expected zeros, got %+v", stats)
	}
}

func TestTransactionHistoryPaging(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	userID := uuid.New()

	for i := 0; i < 3; i++ {
		if _, err := svc.TopUp(ctx, userID, money.MustParse("10"), "card"); err != nil {
			t.Fatalf("top up: %v", err)
		}
	}

	page, total, err := svc.GetTransactionHistory(ctx, userID, 2, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if total != 3 || len(page) != 2 {
		t.Fatalf("expected 2 of 3, got %d of %d", len(page), total)
	}
	if money.Format(page[0].BalanceAfter) != "30.00" {
		t.Fatalf("expected newest first, got %s", page[0].BalanceAfter)
	}
}

func TestConcurrentDeductsNeverOverdraw(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	userID := uuid.New()

	if _, err := svc.TopUp(ctx, userID, money.MustParse("50.00"), "card"); err != nil {
		t.Fatalf("top up: %v", err)
	}

	const workers = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	success := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Deduct(ctx, nil, userID, money.MustParse("10.00"), uuid.New(), "item")
			if err == nil {
				mu.Lock()
				success++
				mu.Unlock()
				return
			}
			if !errors.Is(err, apperror.ErrInsufficientFunds) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if success != 5 {
		t.Fatalf("expected 5 successful deducts, got %d", success)
	}
	w, _ := svc.GetBalance(ctx, userID)
	if !w.Balance.IsZero() {
		t.Fatalf("expected zero balance, got %s", w.Balance)
	}
}
