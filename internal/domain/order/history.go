package order

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// URLResolver turns a storage key into a public URL.
type URLResolver interface {
	GetURL(key string) string
}

// View is an order as shown to one viewer.
type View struct {
	Record
	ImageURL    string
	Cancellable bool
	CancelBy    *time.Time
}

// Receipt is a view plus the ledger movements of the order.
type Receipt struct {
	View
	Ledger []LedgerEntry
}

// History serves read-only projections of orders.
type History struct {
	repo   Repository
	urls   URLResolver
	window time.Duration
	now    func() time.Time
}

func NewHistory(repo Repository, urls URLResolver, window time.Duration) *History {
	if window <= 0 {
		window = DefaultCancelWindow
	}
	return &History{repo: repo, urls: urls, window: window, now: time.Now}
}

// WithClock replaces time.Now for cancellable flags.
func (h *History) WithClock(now func() time.Time) *History {
	h.now = now
	return h
}

// ListForBuyer returns the buyer's orders, newest first.
func (h *History) ListForBuyer(ctx context.Context, buyerID uuid.UUID, limit, offset int) ([]View, int, error) {
	if buyerID == uuid.Nil {
		return nil, 0, ErrMissingBuyer
	}
	limit, offset = NormalizePage(limit, offset)
	recs, total, err := h.repo.ListByBuyer(ctx, buyerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return h.views(recs, buyerID), total, nil
}

// ListSales returns orders for items the seller sold.
func (h *History) ListSales(ctx context.Context, sellerID uuid.UUID, limit, offset int) ([]View, int, error) {
	limit, offset = NormalizePage(limit, offset)
	recs, total, err := h.repo.ListBySeller(ctx, sellerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return h.views(recs, sellerID), total, nil
}

// Search is the admin projection.
func (h *History) Search(ctx context.Context, f SearchFilter) ([]View, int, error) {
	f.Limit, f.Offset = NormalizePage(f.Limit, f.Offset)
	recs, total, err := h.repo.Search(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	return h.views(recs, uuid.Nil), total, nil
}

// Receipt returns one order to its buyer, its seller or an admin.
func (h *History) Receipt(ctx context.Context, orderID, viewerID uuid.UUID, isAdmin bool) (*Receipt, error) {
	if orderID == uuid.Nil {
		return nil, ErrMissingOrder
	}
	rec, err := h.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && rec.Order.BuyerID != viewerID && rec.Item.SellerID != viewerID {
		return nil, ErrNotOrderViewer
	}

	entries, err := h.repo.ListLedgerEntries(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &Receipt{View: h.view(*rec, viewerID), Ledger: entries}, nil
}

func (h *History) views(recs []Record, viewerID uuid.UUID) []View {
	out := make([]View, 0, len(recs))
	for _, rec := range recs {
		out = append(out, h.view(rec, viewerID))
	}
	return out
}

// view marks an order cancellable only for its buyer while the window is open.
func (h *History) view(rec Record, viewerID uuid.UUID) View {
	v := View{Record: rec}
	if key := rec.Item.DisplayImageKey(); key != "" && h.urls != nil {
		v.ImageURL = h.urls.GetURL(key)
	}
	if rec.Order.Status == StatusCompleted {
		cutoff := rec.Order.CancelCutoff(h.window)
		v.CancelBy = &cutoff
		v.Cancellable = viewerID == rec.Order.BuyerID && rec.Order.WithinCancelWindow(h.now(), h.window)
	}
	return v
}

// NormalizePage clamps list paging to sane bounds.
func NormalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
