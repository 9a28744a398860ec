package wallet

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/unimart/unimart-api/internal/middleware"
	"github.com/unimart/unimart-api/internal/pkg/errorhandler"
	"github.com/unimart/unimart-api/internal/pkg/money"
	"github.com/unimart/unimart-api/internal/pkg/response"
	"github.com/unimart/unimart-api/internal/pkg/validator"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Balance handles GET /wallet/balance
func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	wallet, err := h.svc.GetBalance(r.Context(), userID)
	if err != nil {
		errorhandler.HandleDomainError(r.Context(), w, err)
		return
	}
	response.OK(w, BalanceResponseFrom(wallet))
}

// Summary handles GET /wallet/summary
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	summary, err := h.svc.GetSummary(r.Context(), userID)
	if err != nil {
		errorhandler.HandleDomainError(r.Context(), w, err)
		return
	}
	response.OK(w, SummaryResponse{
		BalanceResponse: BalanceResponseFrom(summary.Wallet),
		Stats:           StatsResponseFrom(summary.Stats),
	})
}

// TopUp handles POST /wallet/topup
func (h *Handler) TopUp(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req TopUpRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		errorhandler.LogValidationError(r.Context(), errs)
		response.ValidationError(w, errs)
		return
	}

	t, err := h.svc.TopUp(r.Context(), userID, req.Amount, req.Method)
	if err != nil {
		errorhandler.HandleDomainError(r.Context(), w, err)
		return
	}
	response.Created(w, TransactionResponseFrom(t))
}

// Transactions handles GET /wallet/transactions
func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	limit, offset := pageParams(r)
	txs, total, err := h.svc.GetTransactionHistory(r.Context(), userID, limit, offset)
	if err != nil {
		errorhandler.HandleDomainError(r.Context(), w, err)
		return
	}

	items := make([]TransactionResponse, 0, len(txs))
	for i := range txs {
		items = append(items, TransactionResponseFrom(&txs[i]))
	}
	limit, offset = normalizePage(limit, offset)
	response.WithMeta(w, items, response.NewMeta(total, limit, offset))
}

// CheckBalance handles GET /wallet/check-balance?amount=
func (h *Handler) CheckBalance(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	q := CheckBalanceQuery{Amount: r.URL.Query().Get("amount")}
	if errs := validator.Validate(q); errs != nil {
		response.ValidationError(w, errs)
		return
	}
	amount, err := money.Parse(q.Amount)
	if err != nil {
		response.ValidationError(w, map[string]string{"amount": "Must be a positive amount with at most two decimal places"})
		return
	}

	check, err := h.svc.HasSufficientBalance(r.Context(), userID, amount)
	if err != nil {
		errorhandler.HandleDomainError(r.Context(), w, err)
		return
	}
	response.OK(w, BalanceCheckResponse{
		Sufficient: check.Sufficient,
		Balance:    money.Format(check.Balance),
		Required:   money.Format(check.Required),
		Shortage:   money.Format(check.Shortage),
	})
}

func pageParams(r *http.Request) (limit, offset int) {
	limit = DefaultHistoryLimit
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
