// Package pricing computes cart and order totals.
//
// All arithmetic uses decimal values. Rounding happens at the aggregate level:
// subtotal, tax, shipping, discount, and total are each rounded to two decimal
// places independently; individual line items are never pre-rounded.
package pricing

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ShippingMethod selects one of the fixed-fee shipping tiers.
type ShippingMethod string

const (
	ShippingStandard  ShippingMethod = "standard"
	ShippingExpress   ShippingMethod = "express"
	ShippingOvernight ShippingMethod = "overnight"
)

// ErrUnknownShippingMethod is returned for a method outside the fixed tiers.
var ErrUnknownShippingMethod = errors.New("unknown shipping method")

var (
	// TaxRate is the flat, geography-unaware tax rate applied to the subtotal.
	TaxRate = decimal.RequireFromString("0.08")

	// FreeShippingThreshold is the subtotal above which standard shipping is
	// free. The bound is exclusive: at exactly 50.00 shipping is still charged.
	FreeShippingThreshold = decimal.RequireFromString("50.00")

	standardFee  = decimal.RequireFromString("9.99")
	expressFee   = decimal.RequireFromString("19.99")
	overnightFee = decimal.RequireFromString("39.99")
)

// Item is a priced line item: a unit price and a quantity.
type Item struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Total returns the line total, unrounded.
func (i Item) Total() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Totals is the aggregate price breakdown of a cart or order.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Tax      decimal.Decimal `json:"tax"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
}

// ShippingFee returns the flat fee for the given method. FreeShipping applies
// only to the standard tier: either the subtotal strictly exceeds the
// threshold or a free-shipping coupon is active. Express and overnight fees
// are never waived.
func ShippingFee(method ShippingMethod, subtotal decimal.Decimal, freeShipping bool) (decimal.Decimal, error) {
	switch method {
	case ShippingStandard:
		if subtotal.GreaterThan(FreeShippingThreshold) || freeShipping {
			return decimal.Zero, nil
		}
		return standardFee, nil
	case ShippingExpress:
		return expressFee, nil
	case ShippingOvernight:
		return overnightFee, nil
	default:
		return decimal.Zero, errors.Wrapf(ErrUnknownShippingMethod, "%q", method)
	}
}

// Compute derives the full breakdown for the given items, discount amount, and
// shipping method. The invariant is total = subtotal - discount + tax +
// shipping, floored at zero.
func Compute(items []Item, discount decimal.Decimal, method ShippingMethod, freeShipping bool) (Totals, error) {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.Total())
	}
	subtotal = subtotal.Round(2)

	shipping, err := ShippingFee(method, subtotal, freeShipping)
	if err != nil {
		return Totals{}, err
	}

	tax := subtotal.Mul(TaxRate).Round(2)
	discount = decimal.Min(discount, subtotal).Round(2)

	total := subtotal.Sub(discount).Add(tax).Add(shipping).Round(2)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return Totals{
		Subtotal: subtotal,
		Discount: discount,
		Tax:      tax,
		Shipping: shipping.Round(2),
		Total:    total,
	}, nil
}
