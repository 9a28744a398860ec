package product_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/unimart/unimart-api/internal/domain/product"
	"github.com/unimart/unimart-api/internal/middleware"
	"github.com/unimart/unimart-api/internal/pkg/apperror"
	"github.com/unimart/unimart-api/internal/pkg/money"
)

type stubRepo struct {
	listings map[uuid.UUID]*product.Listing
}

func (s *stubRepo) GetListing(_ context.Context, id uuid.UUID) (*product.Listing, error) {
	l, ok := s.listings[id]
	if !ok {
		return nil, product.ErrProductNotFound
	}
	cp := *l
	return &cp, nil
}

func (s *stubRepo) LockListingTx(ctx context.Context, _ *sqlx.Tx, id uuid.UUID) (*product.Listing, error) {
	return s.GetListing(ctx, id)
}

func (s *stubRepo) MarkSoldTx(_ context.Context, _ *sqlx.Tx, id uuid.UUID) error {
	l, ok := s.listings[id]
	if !ok || l.Status != product.StatusActive {
		return product.ErrNotAvailable
	}
	l.Status = product.StatusSold
	return nil
}

func (s *stubRepo) ReactivateTx(_ context.Context, _ *sqlx.Tx, id uuid.UUID) (bool, error) {
	l, ok := s.listings[id]
	if !ok || l.Status != product.StatusSold {
		return false, nil
	}
	l.Status = product.StatusActive
	return true, nil
}

func newListing(status product.Status) *product.Listing {
	return &product.Listing{
		Product: product.Product{
			ID:       uuid.New(),
			SellerID: uuid.New(),
			Name:     "Organic Chemistry, 8th ed.",
			Category: "Books",
			Price:    money.MustParse("60.00"),
			ImageKey: "products/chem.jpg",
			Status:   status,
		},
		SellerName:  "Aina",
		SellerEmail: "aina@campus.test",
	}
}

func TestCheckAvailability(t *testing.T) {
	active := newListing(product.StatusActive)
	sold := newListing(product.StatusSold)
	removed := newListing(product.StatusRemoved)
	catalog := product.NewCatalog(&stubRepo{listings: map[uuid.UUID]*product.Listing{
		active.ID: active, sold.ID: sold, removed.ID: removed,
	}})

	tests := []struct {
		name      string
		productID uuid.UUID
		buyerID   uuid.UUID
		wantKind  error
	}{
		{"active", active.ID, uuid.New(), nil},
		{"own listing", active.ID, active.SellerID, apperror.ErrPermission},
		{"sold", sold.ID, uuid.New(), apperror.ErrConflict},
		{"removed", removed.ID, uuid.New(), apperror.ErrConflict},
		{"missing", uuid.New(), uuid.New(), apperror.ErrNotFound},
		{"nil id", uuid.Nil, uuid.New(), apperror.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := catalog.CheckAvailability(context.Background(), tt.productID, tt.buyerID)
			if tt.wantKind == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if !a.Total.Equal(active.Price) {
					t.Fatalf("expected total %s, got %s", active.Price, a.Total)
				}
				return
			}
			if !errors.Is(err, tt.wantKind) {
				t.Fatalf("expected %v, got %v", tt.wantKind, err)
			}
		})
	}
}

func TestMarkSoldAndReactivate(t *testing.T) {
	l := newListing(product.StatusActive)
	removed := newListing(product.StatusRemoved)
	catalog := product.NewCatalog(&stubRepo{listings: map[uuid.UUID]*product.Listing{l.ID: l, removed.ID: removed}})
	ctx := context.Background()

	if err := catalog.MarkSold(ctx, nil, l.ID); err != nil {
		t.Fatalf("mark sold: %v", err)
	}
	if err := catalog.MarkSold(ctx, nil, l.ID); !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("second mark sold must conflict, got %v", err)
	}
	if ok, err := catalog.Reactivate(ctx, nil, l.ID); err != nil || !ok {
		t.Fatalf("reactivate: %v %v", ok, err)
	}
	if ok, _ := catalog.Reactivate(ctx, nil, removed.ID); ok {
		t.Fatal("removed product must not be reactivated")
	}
}

type staticURLs struct{}

func (staticURLs) GetURL(key string) string { return "https://cdn.test/" + key }

func TestAvailabilityHandler(t *testing.T) {
	l := newListing(product.StatusActive)
	catalog := product.NewCatalog(&stubRepo{listings: map[uuid.UUID]*product.Listing{l.ID: l}})
	h := product.NewHandler(catalog, staticURLs{})

	serve := func(buyerID uuid.UUID, id string) *httptest.ResponseRecorder {
		r := chi.NewRouter()
		r.Mount("/products", h.Routes(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				next.ServeHTTP(w, req.WithContext(middleware.WithUser(req.Context(), buyerID, "student")))
			})
		}))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/products/"+id+"/availability", nil))
		return w
	}

	w := serve(uuid.New(), l.ID.String())
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var body struct {
		Data product.AvailabilityResponse `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &body)
	if body.Data.Total != "60.00" || body.Data.Seller.Name != "Aina" || body.Data.ImageURL != "https://cdn.test/products/chem.jpg" {
		t.Fatalf("unexpected body %+v", body.Data)
	}

	if w := serve(l.SellerID, l.ID.String()); w.Code != http.StatusForbidden {
		t.Fatalf("self purchase check: expected 403, got %d", w.Code)
	}
	if w := serve(uuid.New(), "not-a-uuid"); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if w := serve(uuid.New(), uuid.NewString()); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
