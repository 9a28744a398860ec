package order

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/unimart/unimart-api/internal/domain/wallet"
	"github.com/unimart/unimart-api/internal/middleware"
	"github.com/unimart/unimart-api/internal/pkg/errorhandler"
	"github.com/unimart/unimart-api/internal/pkg/response"
	"github.com/unimart/unimart-api/internal/pkg/validator"
)

type Handler struct {
	coordinator *Coordinator
	history     *History
	urls        URLResolver
}

func NewHandler(coordinator *Coordinator, history *History, urls URLResolver) *Handler {
	return &Handler{coordinator: coordinator, history: history, urls: urls}
}

// Purchase handles POST /orders
func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request) {
	buyerID := middleware.GetUserID(r.Context())
	if buyerID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req PurchaseRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		errorhandler.LogValidationError(r.Context(), errs)
		response.ValidationError(w, errs)
		return
	}
	productID := uuid.MustParse(req.ProductID)

	res, err := h.coordinator.Purchase(r.Context(), buyerID, productID)
	if err != nil {
		errorhandler.HandleDomainError(r.Context(), w, err)
		return
	}

	order := orderResponse(res.Order, res.Item, h.imageURL(res.Item))
	cutoff := res.Order.CancelCutoff(h.coordinator.CancelWindow())
	order.Cancellable = true
	order.CancelBy = &cutoff
	response.Created(w, PurchaseResponse{
		OrderID:     res.Order.ID,
		Order:       order,
		Transaction: wallet.TransactionResponseFrom(res.Transaction),
	})
}

// Cancel handles POST /orders/{id}/cancel
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	buyerID := middleware.GetUserID(r.Context())
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid order ID")
		return
	}

	res, err := h.coordinator.Cancel(r.Context(), buyerID, orderID)
	if err != nil {
		errorhandler.HandleDomainError(r.Context(), w, err)
		return
	}

	response.OK(w, CancelResponse{
		Order:              orderResponse(res.Order, res.Item, h.imageURL(res.Item)),
		Refund:             wallet.TransactionResponseFrom(res.Refund),
		ProductReactivated: res.ProductReactivated,
	})
}

// List handles GET /orders
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	buyerID := middleware.GetUserID(r.Context())
	limit, offset := pageParams(r)

	views, total, err := h.history.ListForBuyer(r.Context(), buyerID, limit, offset)
	if err != nil {
		errorhandler.HandleDomainError(r.Context(), w, err)
		return
	}
	h.writeViews(w, views, total, limit, offset)
}

// Sales handles GET /orders/sales
func (h *Handler) Sales(w http.ResponseWriter, r *http.Request) {
	sellerID := middleware.GetUserID(r.Context())
	limit, offset := pageParams(r)

	views, total, err := h.history.ListSales(r.Context(), sellerID, limit, offset)
	if err != nil {
		errorhandler.HandleDomainError(r.Context(), w, err)
		return
	}
	h.writeViews(w, views, total, limit, offset)
}

// Get handles GET /orders/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid order ID")
		return
	}
	viewerID := middleware.GetUserID(r.Context())
	isAdmin := middleware.IsAdmin(r.Context())

	receipt, err := h.history.Receipt(r.Context(), orderID, viewerID, isAdmin)
	if err != nil {
		errorhandler.HandleDomainError(r.Context(), w, err)
		return
	}
	response.OK(w, ReceiptResponseFrom(receipt))
}

// Search handles GET /admin/orders
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sq := SearchQuery{
		Status:   q.Get("status"),
		BuyerID:  q.Get("buyer_id"),
		SellerID: q.Get("seller_id"),
		From:     q.Get("from"),
		To:       q.Get("to"),
	}
	if errs := validator.Validate(sq); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	limit, offset := pageParams(r)
	f := SearchFilter{Limit: limit, Offset: offset}
	if sq.Status != "" {
		s := Status(sq.Status)
		f.Status = &s
	}
	if sq.BuyerID != "" {
		id := uuid.MustParse(sq.BuyerID)
		f.BuyerID = &id
	}
	if sq.SellerID != "" {
		id := uuid.MustParse(sq.SellerID)
		f.SellerID = &id
	}
	if sq.From != "" {
		from, _ := time.Parse(time.DateOnly, sq.From)
		f.From = &from
	}
	if sq.To != "" {
		// inclusive day
		to, _ := time.Parse(time.DateOnly, sq.To)
		to = to.AddDate(0, 0, 1)
		f.To = &to
	}

	views, total, err := h.history.Search(r.Context(), f)
	if err != nil {
		errorhandler.HandleDomainError(r.Context(), w, err)
		return
	}
	h.writeViews(w, views, total, limit, offset)
}

func (h *Handler) writeViews(w http.ResponseWriter, views []View, total, limit, offset int) {
	items := make([]OrderResponse, 0, len(views))
	for i := range views {
		items = append(items, ViewResponse(&views[i]))
	}
	limit, offset = NormalizePage(limit, offset)
	response.WithMeta(w, items, response.NewMeta(total, limit, offset))
}

func (h *Handler) imageURL(i *Item) string {
	if key := i.DisplayImageKey(); key != "" && h.urls != nil {
		return h.urls.GetURL(key)
	}
	return ""
}

func pageParams(r *http.Request) (limit, offset int) {
	limit = DefaultPageLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 {
			limit = v
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if v, err := strconv.Atoi(o); err == nil && v >= 0 {
			offset = v
		}
	}
	return limit, offset
}
