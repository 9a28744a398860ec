package order

import "github.com/unimart/unimart-api/internal/pkg/apperror"

var (
	ErrOrderNotFound  = apperror.NotFound("order not found")
	ErrNotOrderViewer = apperror.Permission("you are not a party to this order")
	ErrMissingOrder   = apperror.Validation("order id is required")
	ErrMissingBuyer   = apperror.Validation("buyer id is required")
	ErrSelfPurchase   = apperror.Conflict("PRODUCT_NOT_AVAILABLE", "you cannot buy your own listing")
	ErrSoldOut        = apperror.Conflict("PRODUCT_NOT_AVAILABLE", "product is no longer available")
)
