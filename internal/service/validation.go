package service

import (
	"errors"
	"fmt"
	"reflect"
	"storefront-checkout/internal/dto"
	"storefront-checkout/internal/model"
	"strings"

	"github.com/go-playground/validator/v10"
)

// totals may drift by one minor unit from rounding on the client
const totalTolerance model.Money = 1

const maxUserIDLength = 64

var paymentFields = map[string]bool{
	"cardNumber":     true,
	"expiryMonth":    true,
	"expiryYear":     true,
	"cvv":            true,
	"cardholderName": true,
}

// RequestValidationError turns a failed field check into a ValidationError naming the field.
func RequestValidationError(err error) *ValidationError {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return vErr
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return invalid("body", "Invalid request body")
	}

	fe := fieldErrs[0]
	// drop the struct name: "CheckoutRequest.items[0].productId" -> "items[0].productId"
	path := fe.Namespace()
	if i := strings.IndexByte(path, '.'); i >= 0 {
		path = path[i+1:]
	}
	field := path
	if i := strings.IndexAny(field, ".["); i >= 0 {
		field = field[:i]
	}

	if paymentFields[field] {
		if fe.Tag() == "notblank" {
			return invalid("payment", "Missing required payment information")
		}
		return invalid("payment", "Invalid payment information")
	}

	switch fe.Tag() {
	case "required", "notblank":
		if field == "items" && path == "items" {
			return invalid(field, "Order must contain at least one item")
		}
		return invalid(field, "%s is required", path)
	case "min":
		if field == "items" && path == "items" {
			return invalid(field, "Order must contain at least one item")
		}
		return invalid(field, "%s must have at least %s entries", path, fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice {
			return invalid(field, "%s must have at most %s entries", path, fe.Param())
		}
		return invalid(field, "%s must be at most %s characters", path, fe.Param())
	case "gte":
		return invalid(field, "%s must be at least %s", path, fe.Param())
	case "lte":
		return invalid(field, "%s must be at most %s", path, fe.Param())
	}
	return invalid(field, "%s is invalid", path)
}

func validateCheckout(userID string, req *dto.CheckoutRequest) error {
	if req == nil {
		return invalid("body", "Request body is required")
	}
	if len(userID) > maxUserIDLength {
		return invalid("userId", "User id must be at most %d characters", maxUserIDLength)
	}
	if err := dto.Validate(req); err != nil {
		return RequestValidationError(err)
	}

	itemsTotal, err := sumItems(req.Items)
	if err != nil {
		return invalid("items", "Item total is out of range")
	}
	if !req.Subtotal.Within(itemsTotal, totalTolerance) {
		return invalid("subtotal", "Subtotal %s does not match item total %s", req.Subtotal, itemsTotal)
	}

	computed := req.Subtotal + req.Tax + req.Shipping - req.Discount
	if !req.Total.Within(computed, totalTolerance) {
		return invalid("total", "Total %s does not match subtotal + tax + shipping - discount (%s)", req.Total, computed)
	}
	if req.Total <= 0 {
		return invalid("total", "Order total must be greater than zero")
	}

	return nil
}

func sumItems(items []*dto.Item) (model.Money, error) {
	var total model.Money
	for _, item := range items {
		line, err := item.Price.Times(int64(item.Quantity))
		if err != nil {
			return 0, fmt.Errorf("item %s: %w", item.ProductID, err)
		}
		if total, err = total.Plus(line); err != nil {
			return 0, fmt.Errorf("item %s: %w", item.ProductID, err)
		}
	}
	return total, nil
}
