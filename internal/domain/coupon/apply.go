package coupon

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Apply computes the discount for the given rule against a cart subtotal.
// Validation order: minimum-order gate first, then the discount strategy.
func Apply(rule *Rule, subtotal decimal.Decimal) (*Discount, error) {
	if rule.MinSubtotal.IsPositive() && subtotal.LessThan(rule.MinSubtotal) {
		return nil, &MinimumNotMetError{Code: rule.Code, Minimum: rule.MinSubtotal}
	}

	d := &Discount{
		Code:        rule.Code,
		Type:        rule.Type,
		Value:       rule.Value,
		MinSubtotal: rule.MinSubtotal,
		Amount:      decimal.Zero,
		Description: rule.Description,
	}

	switch rule.Type {
	case TypePercentage:
		amount := subtotal.Mul(rule.Value).Div(hundred).Round(2)
		if amount.IsNegative() {
			amount = decimal.Zero
		}
		d.Amount = amount
	case TypeFreeShipping:
		d.FreeShipping = true
	default:
		return nil, errors.Errorf("unsupported discount type: %q", rule.Type)
	}

	return d, nil
}
