package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/storefront-api/internal/domain/cart"
	"github.com/xenking/storefront-api/internal/domain/coupon"
	"github.com/xenking/storefront-api/internal/domain/pricing"
	"github.com/xenking/storefront-api/internal/domain/product"
)

// Sentinel errors for checkout and lifecycle validation.
var (
	ErrCartEmpty     = errors.New("Cart is empty")
	ErrNotFound      = errors.New("order not found")
	ErrNotOwner      = errors.New("order belongs to another user")
	ErrRefundPayment = errors.New("order has no completed payment to refund")
)

// UnavailableError indicates a cart line references a product that can no
// longer be purchased.
type UnavailableError struct {
	Name string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("Product %s is no longer available", e.Name)
}

// NotCancellableError indicates cancellation was requested past the
// cancellable stages.
type NotCancellableError struct {
	Status Status
}

func (e *NotCancellableError) Error() string {
	return fmt.Sprintf("Order in status %s cannot be cancelled at this stage", e.Status)
}

// CheckoutRequest is the input to Checkout.
type CheckoutRequest struct {
	ShippingAddress Address
	BillingAddress  Address
	PaymentMethod   PaymentMethod
	ShippingMethod  pricing.ShippingMethod
	CustomerNotes   string
}

// SummaryRequest is the input to Summary.
type SummaryRequest struct {
	ShippingMethod pricing.ShippingMethod
	CouponCode     string
}

// Summary is a priced checkout preview. Nothing is persisted to produce it.
type Summary struct {
	Items          []cart.LineItem        `json:"items"`
	ShippingMethod pricing.ShippingMethod `json:"shippingMethod"`
	CouponCode     string                 `json:"couponCode,omitempty"`
	Totals         pricing.Totals         `json:"totals"`
}

// Service assembles orders from carts and drives the order lifecycle.
type Service struct {
	orders   Repository
	products product.Repository
	carts    cart.Store
	coupons  coupon.Validator
	lg       *zap.Logger
	now      func() time.Time
	newID    func() string
}

// NewService creates an order Service.
func NewService(
	orders Repository,
	products product.Repository,
	carts cart.Store,
	coupons coupon.Validator,
	lg *zap.Logger,
) *Service {
	return &Service{
		orders:   orders,
		products: products,
		carts:    carts,
		coupons:  coupons,
		lg:       lg,
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
}

// Checkout converts the user's cart into a persisted order.
//
// Steps: re-fetch every product live, re-check availability and stock,
// snapshot items, price the order, reserve inventory atomically, persist the
// order, delete the cart. Reservation and persistence cannot partially
// succeed: reservation is a single transaction, and a failed persist releases
// the reservation.
func (s *Service) Checkout(ctx context.Context, userID string, req CheckoutRequest) (*Order, error) {
	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, cart.ErrNotFound) {
			return nil, ErrCartEmpty
		}
		return nil, errors.Wrap(err, "load cart")
	}
	if c.IsEmpty() {
		return nil, ErrCartEmpty
	}

	items, err := s.snapshotItems(ctx, c)
	if err != nil {
		return nil, err
	}

	totals, couponCode, err := s.price(c, req.ShippingMethod)
	if err != nil {
		return nil, err
	}

	now := s.now()
	o := &Order{
		ID:              s.newID(),
		Number:          NewNumber(now),
		UserID:          userID,
		Items:           items,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
		PaymentInfo: PaymentInfo{
			Method: req.PaymentMethod,
			Status: PaymentStatusPending,
		},
		ShippingInfo: ShippingInfo{
			Method: req.ShippingMethod,
			Cost:   totals.Shipping,
		},
		Totals:        totals,
		CouponCode:    couponCode,
		CustomerNotes: req.CustomerNotes,
		Status:        StatusPending,
		StatusHistory: []StatusChange{{
			Status:    StatusPending,
			Timestamp: now,
			Note:      "Order created",
		}},
		RefundAmount: decimal.Zero,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// All-or-nothing: the repository reserves every line in one transaction.
	reservations := toProductReservations(o.Reservations())
	if err := s.products.Reserve(ctx, reservations); err != nil {
		return nil, err
	}

	if err := s.orders.Create(ctx, o); err != nil {
		// Compensate: return the stock we just took.
		if relErr := s.products.Release(ctx, reservations); relErr != nil {
			s.lg.Error("release reservation after failed order create",
				zap.String("order", o.ID), zap.Error(relErr))
		}
		return nil, errors.Wrap(err, "create order")
	}

	if err := s.carts.Delete(ctx, userID); err != nil && !errors.Is(err, cart.ErrNotFound) {
		// The order exists; a stale cart is an inconvenience, not a failure.
		s.lg.Warn("delete cart after checkout", zap.String("user", userID), zap.Error(err))
	}

	return o, nil
}

// Summary prices the user's current cart for the given shipping method and
// optional coupon without persisting anything.
func (s *Service) Summary(ctx context.Context, userID string, req SummaryRequest) (*Summary, error) {
	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, cart.ErrNotFound) {
			return nil, ErrCartEmpty
		}
		return nil, errors.Wrap(err, "load cart")
	}
	if c.IsEmpty() {
		return nil, ErrCartEmpty
	}

	discount := decimal.Zero
	freeShipping := false
	couponCode := ""

	switch {
	case req.CouponCode != "":
		subtotal := decimal.Zero
		for _, item := range c.PricingItems() {
			subtotal = subtotal.Add(item.Total())
		}
		d, err := s.coupons.Validate(ctx, req.CouponCode, subtotal.Round(2))
		if err != nil {
			return nil, err
		}
		discount = d.Amount
		freeShipping = d.FreeShipping
		couponCode = d.Code
	case c.Coupon != nil:
		discount = c.Coupon.Discount
		freeShipping = c.Coupon.FreeShipping
		couponCode = c.Coupon.Code
	}

	totals, err := pricing.Compute(c.PricingItems(), discount, req.ShippingMethod, freeShipping)
	if err != nil {
		return nil, err
	}

	return &Summary{
		Items:          c.Items,
		ShippingMethod: req.ShippingMethod,
		CouponCode:     couponCode,
		Totals:         totals,
	}, nil
}

// Get returns the order, enforcing ownership.
func (s *Service) Get(ctx context.Context, userID, orderID string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrNotOwner
	}
	return o, nil
}

// List returns the user's orders, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

// Cancel cancels a pending or confirmed order and releases its reserved
// inventory. Release is best-effort: a failure is logged, not surfaced.
func (s *Service) Cancel(ctx context.Context, userID, orderID, reason string) (*Order, error) {
	o, err := s.Get(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}

	if !o.Status.Cancellable() {
		return nil, &NotCancellableError{Status: o.Status}
	}

	note := "Order cancelled"
	if reason != "" {
		note = "Order cancelled: " + reason
	}
	o.Transition(StatusCancelled, s.now(), note, userID)

	if err := s.orders.Update(ctx, o); err != nil {
		return nil, errors.Wrap(err, "update order")
	}

	if err := s.products.Release(ctx, toProductReservations(o.Reservations())); err != nil {
		s.lg.Error("release inventory on cancellation",
			zap.String("order", o.ID), zap.Error(err))
	}

	return o, nil
}

// UpdateStatus performs an admin-driven transition, optionally attaching
// tracking details when the order ships.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, next Status, note, trackingNumber, carrier, actor string) (*Order, error) {
	if !next.Valid() {
		return nil, errors.Errorf("unknown order status %q", next)
	}

	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !o.Status.CanTransitionTo(next) {
		return nil, &InvalidTransitionError{From: o.Status, To: next}
	}

	if next == StatusShipped {
		o.ShippingInfo.TrackingNumber = trackingNumber
		o.ShippingInfo.Carrier = carrier
	}
	o.Transition(next, s.now(), note, actor)

	if err := s.orders.Update(ctx, o); err != nil {
		return nil, errors.Wrap(err, "update order")
	}
	return o, nil
}

// Refund records a (possibly partial) refund. The order must carry a
// completed payment. The status becomes refunded once the cumulative refund
// covers the order total, partially_refunded otherwise.
func (s *Service) Refund(ctx context.Context, orderID string, amount decimal.Decimal, note, actor string) (*Order, error) {
	if !amount.IsPositive() {
		return nil, errors.New("refund amount must be greater than 0")
	}

	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.PaymentInfo.Status != PaymentStatusCompleted && o.PaymentInfo.Status != PaymentStatusRefunded {
		return nil, ErrRefundPayment
	}

	o.RefundAmount = o.RefundAmount.Add(amount).Round(2)

	next := StatusPartiallyRefunded
	if o.RefundAmount.GreaterThanOrEqual(o.Totals.Total) {
		next = StatusRefunded
		o.PaymentInfo.Status = PaymentStatusRefunded
	}

	refundNote := fmt.Sprintf("Refunded $%s", amount.StringFixed(2))
	if note != "" {
		refundNote += ": " + note
	}
	o.Transition(next, s.now(), refundNote, actor)

	if err := s.orders.Update(ctx, o); err != nil {
		return nil, errors.Wrap(err, "update order")
	}
	return o, nil
}

// snapshotItems re-fetches every product on the cart and freezes the line
// items. The whole checkout fails when any product is gone, inactive, or
// short on stock.
func (s *Service) snapshotItems(ctx context.Context, c *cart.Cart) ([]Item, error) {
	ids := make([]string, len(c.Items))
	for i, item := range c.Items {
		ids[i] = item.ProductID
	}

	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	byID := make(map[string]*product.Product, len(fetched))
	for i := range fetched {
		byID[fetched[i].ID] = &fetched[i]
	}

	items := make([]Item, len(c.Items))
	for i, line := range c.Items {
		p, ok := byID[line.ProductID]
		if !ok || !p.Available() {
			name := line.Name
			if p != nil {
				name = p.Name
			}
			return nil, &UnavailableError{Name: name}
		}

		if available, bounded := p.AvailableQuantity(line.VariantID); bounded && line.Quantity > available {
			return nil, &product.InsufficientStockError{
				ProductID: p.ID,
				Name:      p.Name,
				Requested: line.Quantity,
				Available: available,
			}
		}

		unitPrice, err := p.UnitPrice(line.VariantID)
		if err != nil {
			return nil, err
		}

		sku := ""
		if line.VariantID != "" {
			if v, err := p.Variant(line.VariantID); err == nil {
				sku = v.SKU
			}
		}

		items[i] = Item{
			ProductID:  p.ID,
			VariantID:  line.VariantID,
			Name:       p.Name,
			Slug:       p.Slug,
			SKU:        sku,
			Image:      p.PrimaryImage(),
			UnitPrice:  unitPrice,
			Quantity:   line.Quantity,
			TotalPrice: unitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))).Round(2),
		}
	}

	return items, nil
}

// price computes order totals identically to the cart pricing engine, using
// the cart's applied coupon.
func (s *Service) price(c *cart.Cart, method pricing.ShippingMethod) (pricing.Totals, string, error) {
	discount := decimal.Zero
	freeShipping := false
	couponCode := ""
	if c.Coupon != nil {
		discount = c.Coupon.Discount
		freeShipping = c.Coupon.FreeShipping
		couponCode = c.Coupon.Code
	}

	totals, err := pricing.Compute(c.PricingItems(), discount, method, freeShipping)
	if err != nil {
		return pricing.Totals{}, "", err
	}
	return totals, couponCode, nil
}

func toProductReservations(in []Reservation) []product.Reservation {
	out := make([]product.Reservation, len(in))
	for i, r := range in {
		out[i] = product.Reservation{ProductID: r.ProductID, VariantID: r.VariantID, Quantity: r.Quantity}
	}
	return out
}
