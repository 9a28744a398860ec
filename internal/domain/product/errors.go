package product

import "github.com/unimart/unimart-api/internal/pkg/apperror"

var (
	ErrProductNotFound = apperror.NotFound("product not found")
	ErrNotAvailable    = apperror.Conflict("PRODUCT_NOT_AVAILABLE", "product is no longer available")
	ErrOwnListing      = apperror.Permission("you cannot buy your own listing")
	ErrMissingProduct  = apperror.Validation("product id is required")
)
