package order

import (
	"time"

	"github.com/google/uuid"

	"github.com/unimart/unimart-api/internal/domain/wallet"
	"github.com/unimart/unimart-api/internal/pkg/money"
)

type PurchaseRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
}

type SearchQuery struct {
	Status   string `query:"status" validate:"omitempty,order_status"`
	BuyerID  string `query:"buyer_id" validate:"omitempty,uuid"`
	SellerID string `query:"seller_id" validate:"omitempty,uuid"`
	From     string `query:"from" validate:"omitempty,datetime=2006-01-02"`
	To       string `query:"to" validate:"omitempty,datetime=2006-01-02"`
}

type SellerResponse struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Phone string    `json:"phone"`
}

type ItemResponse struct {
	ID          uuid.UUID      `json:"id"`
	ProductID   uuid.UUID      `json:"product_id"`
	Name        string         `json:"name"`
	Price       string         `json:"price"`
	Category    string         `json:"category"`
	Condition   string         `json:"condition"`
	Description string         `json:"description"`
	ImageURL    string         `json:"image_url,omitempty"`
	ImageStatus string         `json:"image_status"`
	Seller      SellerResponse `json:"seller"`
}

type OrderResponse struct {
	ID          uuid.UUID    `json:"id"`
	BuyerID     uuid.UUID    `json:"buyer_id"`
	TotalAmount string       `json:"total_amount"`
	Status      string       `json:"status"`
	OrderDate   time.Time    `json:"order_date"`
	CancelledAt *time.Time   `json:"cancelled_at,omitempty"`
	Cancellable bool         `json:"cancellable"`
	CancelBy    *time.Time   `json:"cancel_by,omitempty"`
	Item        ItemResponse `json:"item"`
}

type LedgerEntryResponse struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	Type          string    `json:"type"`
	Amount        string    `json:"amount"`
	BalanceAfter  string    `json:"balance_after"`
	CreatedAt     time.Time `json:"created_at"`
}

type ReceiptResponse struct {
	OrderResponse
	Ledger []LedgerEntryResponse `json:"ledger"`
}

type PurchaseResponse struct {
	OrderID     uuid.UUID                  `json:"order_id"`
	Order       OrderResponse              `json:"order"`
	Transaction wallet.TransactionResponse `json:"wallet_transaction"`
}

type CancelResponse struct {
	Order              OrderResponse              `json:"order"`
	Refund             wallet.TransactionResponse `json:"refund"`
	ProductReactivated bool                       `json:"product_reactivated"`
}

func itemResponse(i *Item, imageURL string) ItemResponse {
	return ItemResponse{
		ID:          i.ID,
		ProductID:   i.ProductID,
		Name:        i.Name,
		Price:       money.Format(i.Price),
		Category:    i.Category,
		Condition:   i.Condition,
		Description: i.Description,
		ImageURL:    imageURL,
		ImageStatus: string(i.ImageStatus),
		Seller: SellerResponse{
			ID:    i.SellerID,
			Name:  i.SellerName,
			Email: i.SellerEmail,
			Phone: i.SellerPhone,
		},
	}
}

func orderResponse(o *Order, i *Item, imageURL string) OrderResponse {
	return OrderResponse{
		ID:          o.ID,
		BuyerID:     o.BuyerID,
		TotalAmount: money.Format(o.TotalAmount),
		Status:      string(o.Status),
		OrderDate:   o.OrderDate,
		CancelledAt: o.CancelledAt,
		Item:        itemResponse(i, imageURL),
	}
}

func ViewResponse(v *View) OrderResponse {
	resp := orderResponse(&v.Order, &v.Item, v.ImageURL)
	resp.Cancellable = v.Cancellable
	resp.CancelBy = v.CancelBy
	return resp
}

func ReceiptResponseFrom(r *Receipt) ReceiptResponse {
	entries := make([]LedgerEntryResponse, 0, len(r.Ledger))
	for _, e := range r.Ledger {
		entries = append(entries, LedgerEntryResponse{
			TransactionID: e.TransactionID,
			Type:          e.Type,
			Amount:        money.Format(e.Amount),
			BalanceAfter:  money.Format(e.BalanceAfter),
			CreatedAt:     e.CreatedAt,
		})
	}
	return ReceiptResponse{OrderResponse: ViewResponse(&r.View), Ledger: entries}
}
