package product

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/unimart/unimart-api/internal/middleware"
	"github.com/unimart/unimart-api/internal/pkg/errorhandler"
	"github.com/unimart/unimart-api/internal/pkg/money"
	"github.com/unimart/unimart-api/internal/pkg/response"
)

// URLResolver turns a storage key into a public URL.
type URLResolver interface {
	GetURL(key string) string
}

type Handler struct {
	catalog *Catalog
	urls    URLResolver
}

func NewHandler(catalog *Catalog, urls URLResolver) *Handler {
	return &Handler{catalog: catalog, urls: urls}
}

type SellerResponse struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Phone string    `json:"phone"`
}

type AvailabilityResponse struct {
	Available   bool           `json:"available"`
	ProductID   uuid.UUID      `json:"product_id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Category    string         `json:"category"`
	Condition   string         `json:"condition"`
	Price       string         `json:"price"`
	ImageURL    string         `json:"image_url,omitempty"`
	Seller      SellerResponse `json:"seller"`
	Total       string         `json:"total"`
}

// Availability handles GET /products/{id}/availability
func (h *Handler) Availability(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid product ID")
		return
	}
	buyerID := middleware.GetUserID(r.Context())

	a, err := h.catalog.CheckAvailability(r.Context(), productID, buyerID)
	if err != nil {
		errorhandler.HandleDomainError(r.Context(), w, err)
		return
	}

	l := a.Listing
	resp := AvailabilityResponse{
		Available:   true,
		ProductID:   l.ID,
		Name:        l.Name,
		Description: l.Description,
		Category:    l.Category,
		Condition:   l.Condition,
		Price:       money.Format(l.Price),
		Seller: SellerResponse{
			ID:    l.SellerID,
			Name:  l.SellerName,
			Email: l.SellerEmail,
			Phone: l.SellerPhone,
		},
		Total: money.Format(a.Total),
	}
	if l.ImageKey != "" && h.urls != nil {
		resp.ImageURL = h.urls.GetURL(l.ImageKey)
	}
	response.OK(w, resp)
}

// Routes mounts under /products.
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Get("/{id}/availability", h.Availability)
	return r
}
