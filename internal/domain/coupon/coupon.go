// Package coupon defines discount rules and their validation against a cart
// subtotal.
package coupon

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Type enumerates the supported coupon discount strategies.
type Type string

const (
	// TypePercentage applies a percentage-based discount to the subtotal.
	TypePercentage Type = "percentage"
	// TypeFreeShipping waives the standard shipping fee.
	TypeFreeShipping Type = "free_shipping"
)

// ErrInvalidCoupon is returned when a coupon code does not exist or is
// inactive. The message is user-facing.
var ErrInvalidCoupon = errors.New("Invalid coupon code")

// MinimumNotMetError indicates the cart subtotal is below the coupon's
// minimum order amount.
type MinimumNotMetError struct {
	Code    string
	Minimum decimal.Decimal
}

func (e *MinimumNotMetError) Error() string {
	return fmt.Sprintf("Minimum order amount of $%s required", e.Minimum.StringFixed(2))
}

// Rule defines a coupon's discount behaviour and its minimum-order gate.
type Rule struct {
	Code        string
	Type        Type
	Value       decimal.Decimal
	MinSubtotal decimal.Decimal
	Description string
}

// Discount is the outcome of applying a rule to a subtotal. The rule
// parameters (Value, MinSubtotal) are carried along so callers can re-apply
// the discount when the subtotal changes.
type Discount struct {
	Code         string
	Type         Type
	Value        decimal.Decimal
	MinSubtotal  decimal.Decimal
	Amount       decimal.Decimal
	FreeShipping bool
	Description  string
}

// Repository provides lookup of coupon rules by code. Lookups are
// case-insensitive; implementations receive the code as entered.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Rule, error)
}
