package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-api/internal/domain/coupon"
	"github.com/xenking/storefront-api/internal/domain/pricing"
	"github.com/xenking/storefront-api/internal/domain/product"
)

// ErrInvalidQuantity is returned for non-positive quantities on add.
var ErrInvalidQuantity = errors.New("quantity must be greater than 0")

// UnavailableError indicates the requested product cannot be purchased.
type UnavailableError struct {
	Name string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("Product %s is no longer available", e.Name)
}

// Service implements cart mutations. Every mutation re-validates the applied
// coupon and recomputes totals from scratch before saving.
type Service struct {
	store    Store
	products product.Repository
	coupons  coupon.Validator
	newID    func() string
	now      func() time.Time
}

// NewService creates a cart Service.
func NewService(store Store, products product.Repository, coupons coupon.Validator) *Service {
	return &Service{
		store:    store,
		products: products,
		coupons:  coupons,
		newID:    func() string { return uuid.New().String() },
		now:      time.Now,
	}
}

// Get returns the user's cart, creating an empty one on first access.
func (s *Service) Get(ctx context.Context, userID string) (*Cart, error) {
	c, err := s.store.Get(ctx, userID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, errors.Wrap(err, "load cart")
	}

	c = s.empty(userID)
	if err := s.store.Save(ctx, c); err != nil {
		return nil, errors.Wrap(err, "save cart")
	}
	return c, nil
}

// AddItem adds quantity units of product/variant to the cart, merging into an
// existing line when present. The product must be available and tracked stock
// must cover the cumulative quantity.
func (s *Service) AddItem(ctx context.Context, userID, productID, variantID string, quantity int) (*Cart, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !p.Available() {
		return nil, &UnavailableError{Name: p.Name}
	}

	unitPrice, err := p.UnitPrice(variantID)
	if err != nil {
		return nil, err
	}

	c, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	wanted := c.Quantity(productID, variantID) + quantity
	if available, bounded := p.AvailableQuantity(variantID); bounded && wanted > available {
		return nil, &product.InsufficientStockError{
			ProductID: p.ID,
			Name:      p.Name,
			Requested: wanted,
			Available: available,
		}
	}

	if item := c.Find(productID, variantID); item != nil {
		item.Quantity = wanted
	} else {
		c.Items = append(c.Items, LineItem{
			ID:        s.newID(),
			ProductID: p.ID,
			VariantID: variantID,
			Name:      p.Name,
			Image:     p.PrimaryImage(),
			UnitPrice: unitPrice,
			Quantity:  quantity,
		})
	}

	return s.saveRecomputed(ctx, c)
}

// UpdateItem sets the quantity of an existing line item. Quantity 0 removes
// the line. Tracked stock must cover the new quantity.
func (s *Service) UpdateItem(ctx context.Context, userID, itemID string, quantity int) (*Cart, error) {
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}

	c, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	item, err := c.Item(itemID)
	if err != nil {
		return nil, err
	}

	if quantity == 0 {
		c.remove(itemID)
		return s.saveRecomputed(ctx, c)
	}

	p, err := s.products.GetByID(ctx, item.ProductID)
	if err != nil {
		return nil, err
	}
	if available, bounded := p.AvailableQuantity(item.VariantID); bounded && quantity > available {
		return nil, &product.InsufficientStockError{
			ProductID: p.ID,
			Name:      p.Name,
			Requested: quantity,
			Available: available,
		}
	}

	item.Quantity = quantity
	return s.saveRecomputed(ctx, c)
}

// RemoveItem deletes a line item from the cart.
func (s *Service) RemoveItem(ctx context.Context, userID, itemID string) (*Cart, error) {
	c, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, err := c.Item(itemID); err != nil {
		return nil, err
	}

	c.remove(itemID)
	return s.saveRecomputed(ctx, c)
}

// Clear deletes the user's cart entirely.
func (s *Service) Clear(ctx context.Context, userID string) error {
	if err := s.store.Delete(ctx, userID); err != nil && !errors.Is(err, ErrNotFound) {
		return errors.Wrap(err, "delete cart")
	}
	return nil
}

// ApplyCoupon validates and attaches a coupon. Applying a new coupon replaces
// any active one; coupons never stack.
func (s *Service) ApplyCoupon(ctx context.Context, userID, code string) (*Cart, error) {
	c, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	subtotal := decimal.Zero
	for _, item := range c.PricingItems() {
		subtotal = subtotal.Add(item.Total())
	}

	d, err := s.coupons.Validate(ctx, code, subtotal.Round(2))
	if err != nil {
		return nil, err
	}

	c.Coupon = &AppliedCoupon{
		Code:         d.Code,
		Type:         d.Type,
		Value:        d.Value,
		MinSubtotal:  d.MinSubtotal,
		Discount:     d.Amount,
		FreeShipping: d.FreeShipping,
	}
	return s.saveRecomputed(ctx, c)
}

// RemoveCoupon detaches the active coupon, if any.
func (s *Service) RemoveCoupon(ctx context.Context, userID string) (*Cart, error) {
	c, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	c.Coupon = nil
	return s.saveRecomputed(ctx, c)
}

func (s *Service) empty(userID string) *Cart {
	return &Cart{
		UserID:    userID,
		Items:     []LineItem{},
		Totals:    pricing.Totals{Subtotal: decimal.Zero, Discount: decimal.Zero, Tax: decimal.Zero, Shipping: decimal.Zero, Total: decimal.Zero},
		UpdatedAt: s.now(),
	}
}

func (c *Cart) remove(itemID string) {
	items := c.Items[:0]
	for _, it := range c.Items {
		if it.ID != itemID {
			items = append(items, it)
		}
	}
	c.Items = items
}

// saveRecomputed refreshes line totals, the coupon discount, and the
// aggregate totals, then persists the cart. A coupon whose minimum is no
// longer met is dropped rather than left stale.
func (s *Service) saveRecomputed(ctx context.Context, c *Cart) (*Cart, error) {
	subtotal := decimal.Zero
	for i := range c.Items {
		item := &c.Items[i]
		item.TotalPrice = item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2)
		subtotal = subtotal.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	subtotal = subtotal.Round(2)

	discount := decimal.Zero
	freeShipping := false
	if c.Coupon != nil {
		rule := &coupon.Rule{
			Code:        c.Coupon.Code,
			Type:        c.Coupon.Type,
			Value:       c.Coupon.Value,
			MinSubtotal: c.Coupon.MinSubtotal,
		}
		d, err := coupon.Apply(rule, subtotal)
		if err != nil {
			// Minimum no longer met after the mutation: drop the coupon.
			c.Coupon = nil
		} else {
			c.Coupon.Discount = d.Amount
			discount = d.Amount
			freeShipping = d.FreeShipping
		}
	}

	totals, err := pricing.Compute(c.PricingItems(), discount, pricing.ShippingStandard, freeShipping)
	if err != nil {
		return nil, errors.Wrap(err, "compute totals")
	}
	c.Totals = totals
	c.UpdatedAt = s.now()

	if err := s.store.Save(ctx, c); err != nil {
		return nil, errors.Wrap(err, "save cart")
	}
	return c, nil
}
