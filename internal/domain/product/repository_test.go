package product_test

import (
	"context"
	"errors"
	"testing"

	_ "github.com/lib/pq"

	"github.com/unimart/unimart-api/internal/domain/product"
	"github.com/unimart/unimart-api/internal/pkg/apperror"
	"github.com/unimart/unimart-api/internal/pkg/database/dbtest"
	"github.com/unimart/unimart-api/internal/pkg/money"
)

func TestDBStatusTransitions(t *testing.T) {
	db := dbtest.Open(t)
	repo := product.NewRepository(db)
	ctx := context.Background()
	sellerID := dbtest.CreateUser(t, db)
	productID := dbtest.CreateProduct(t, db, sellerID, "Graphing calculator", money.MustParse("45.00"))

	l, err := repo.GetListing(ctx, productID)
	if err != nil {
		t.Fatalf("get listing: %v", err)
	}
	if l.SellerEmail == "" || l.Status != product.StatusActive {
		t.Fatalf("unexpected listing %+v", l)
	}

	tx := db.MustBegin()
	locked, err := repo.LockListingTx(ctx, tx, productID)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if !locked.Price.Equal(money.MustParse("45.00")) {
		t.Fatalf("unexpected price %s", locked.Price)
	}
	if err := repo.MarkSoldTx(ctx, tx, productID); err != nil {
		t.Fatalf("mark sold: %v", err)
	}
	if err := repo.MarkSoldTx(ctx, tx, productID); !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("expected conflict on second mark, got %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	tx = db.MustBegin()
	if _, err := tx.Exec(`UPDATE products SET status = 'removed' WHERE id = $1`, productID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	ok, err := repo.ReactivateTx(ctx, tx, productID)
	if err != nil || ok {
		t.Fatalf("removed product must stay removed: %v %v", ok, err)
	}
	tx.Rollback()

	tx = db.MustBegin()
	defer tx.Rollback()
	ok, err = repo.ReactivateTx(ctx, tx, productID)
	if err != nil || !ok {
		t.Fatalf("reactivate: %v %v", ok, err)
	}
}
