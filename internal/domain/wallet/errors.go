package wallet

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/unimart/unimart-api/internal/pkg/apperror"
	"github.com/unimart/unimart-api/internal/pkg/money"
)

var (
	ErrInvalidAmount = apperror.Validation("amount must be greater than zero with at most two decimal places")
	ErrMissingUser   = apperror.Validation("user id is required")
	ErrMissingOrder  = apperror.Validation("order id is required")
)

func errTopUpOutOfRange(min, max decimal.Decimal) error {
	return apperror.ValidationWithDetails(
		fmt.Sprintf("top-up amount must be between RM%s and RM%s", money.Format(min), money.Format(max)),
		map[string]string{"min": money.Format(min), "max": money.Format(max)},
	)
}

func errInvalidMethod(allowed []string) error {
	return apperror.ValidationWithDetails(
		"unsupported top-up method",
		map[string]string{"allowed_methods": strings.Join(allowed, ",")},
	)
}
