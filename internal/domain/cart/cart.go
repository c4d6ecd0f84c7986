// Package cart holds the per-user shopping cart: line items, an optional
// coupon, and derived totals recomputed on every mutation.
package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-api/internal/domain/coupon"
	"github.com/xenking/storefront-api/internal/domain/pricing"
)

// ErrNotFound is returned by a Store when no cart exists for the user.
var ErrNotFound = errors.New("cart not found")

// ErrItemNotFound is returned when a line item ID is not present in the cart.
var ErrItemNotFound = errors.New("cart item not found")

// LineItem is one product/variant/quantity entry. TotalPrice is always
// UnitPrice * Quantity rounded to cents.
type LineItem struct {
	ID         string          `json:"id"`
	ProductID  string          `json:"productId"`
	VariantID  string          `json:"variantId,omitempty"`
	Name       string          `json:"name"`
	Image      string          `json:"image,omitempty"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	Quantity   int             `json:"quantity"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

// AppliedCoupon records the active coupon and its computed discount. The rule
// parameters are kept so the discount can be recomputed (and the minimum
// re-checked) when the cart changes.
type AppliedCoupon struct {
	Code         string          `json:"code"`
	Type         coupon.Type     `json:"type"`
	Value        decimal.Decimal `json:"value"`
	MinSubtotal  decimal.Decimal `json:"minSubtotal"`
	Discount     decimal.Decimal `json:"discount"`
	FreeShipping bool            `json:"freeShipping,omitempty"`
}

// Cart is the per-user cart aggregate. It is a value object as far as the
// Store is concerned: mutations go through the Service, which saves the whole
// cart back.
type Cart struct {
	UserID    string         `json:"userId"`
	Items     []LineItem     `json:"items"`
	Coupon    *AppliedCoupon `json:"coupon,omitempty"`
	Totals    pricing.Totals `json:"totals"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Item returns the line item with the given ID.
func (c *Cart) Item(itemID string) (*LineItem, error) {
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			return &c.Items[i], nil
		}
	}
	return nil, ErrItemNotFound
}

// Find returns the line item matching product and variant, or nil.
func (c *Cart) Find(productID, variantID string) *LineItem {
	for i := range c.Items {
		if c.Items[i].ProductID == productID && c.Items[i].VariantID == variantID {
			return &c.Items[i]
		}
	}
	return nil
}

// Quantity returns the quantity already in the cart for product/variant.
func (c *Cart) Quantity(productID, variantID string) int {
	if item := c.Find(productID, variantID); item != nil {
		return item.Quantity
	}
	return 0
}

// IsEmpty reports whether the cart has no line items.
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// PricingItems converts the line items for the pricing engine.
func (c *Cart) PricingItems() []pricing.Item {
	items := make([]pricing.Item, len(c.Items))
	for i, it := range c.Items {
		items[i] = pricing.Item{UnitPrice: it.UnitPrice, Quantity: it.Quantity}
	}
	return items
}

// Clone returns a deep copy. Stores hand out clones so callers never alias
// the stored cart.
func (c *Cart) Clone() *Cart {
	cp := *c
	cp.Items = make([]LineItem, len(c.Items))
	copy(cp.Items, c.Items)
	if c.Coupon != nil {
		couponCopy := *c.Coupon
		cp.Coupon = &couponCopy
	}
	return &cp
}

// Store is the keyed cart persistence abstraction. Implementations must be
// safe for concurrent use; Get returns ErrNotFound when the user has no cart.
type Store interface {
	Get(ctx context.Context, userID string) (*Cart, error)
	Save(ctx context.Context, c *Cart) error
	Delete(ctx context.Context, userID string) error
}
