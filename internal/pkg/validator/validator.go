package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/unimart/unimart-api/internal/pkg/money"
)

// Validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()

	// Use JSON tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("query"), ",", 2)[0]
		}
		if name == "-" {
			return ""
		}
		return name
	})

	// Amounts are validated through their string form. String() expands the
	// exponent, so unstorable values are replaced before it runs.
	validate.RegisterCustomTypeFunc(func(v reflect.Value) interface{} {
		d, ok := v.Interface().(decimal.Decimal)
		if !ok {
			return nil
		}
		if money.CheckBounds(d) != nil {
			return outOfRangeAmount
		}
		return d.String()
	}, decimal.Decimal{})

	registerCustomValidations()
}

// outOfRangeAmount never parses, so the money tag fails on it.
const outOfRangeAmount = "out-of-range"

func registerCustomValidations() {
	// Positive amount with at most two decimals
	validate.RegisterValidation("money", func(fl validator.FieldLevel) bool {
		d, err := money.Parse(fl.Field().String())
		if err != nil {
			return false
		}
		return money.ValidatePositive(d) == nil
	})

	validate.RegisterValidation("order_status", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "completed", "cancelled", "":
			return true
		default:
			return false
		}
	})
}

// Validate validates a struct and returns a map of field errors
func Validate(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"_": err.Error()}
	}

	errors := make(map[string]string)
	for _, err := range validationErrors {
		field := err.Field()
		switch err.Tag() {
		case "required":
			errors[field] = "This field is required"
		case "uuid", "uuid4":
			errors[field] = "Must be a valid UUID"
		case "min":
			errors[field] = "Value is too small (min: " + err.Param() + ")"
		case "max":
			errors[field] = "Value is too large (max: " + err.Param() + ")"
		case "gte":
			errors[field] = "Value must be at least " + err.Param()
		case "lte":
			errors[field] = "Value must be at most " + err.Param()
		case "money":
			errors[field] = "Must be a positive amount with at most two decimal places"
		case "order_status":
			errors[field] = "Invalid status. Must be: completed or cancelled"
		default:
			errors[field] = "Invalid value"
		}
	}

	return errors
}

// ValidateVar validates a single variable
func ValidateVar(field interface{}, tag string) error {
	return validate.Var(field, tag)
}
