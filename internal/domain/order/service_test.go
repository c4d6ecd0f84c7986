package order

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xenking/storefront-api/internal/domain/cart"
	"github.com/xenking/storefront-api/internal/domain/coupon"
	"github.com/xenking/storefront-api/internal/domain/pricing"
	"github.com/xenking/storefront-api/internal/domain/product"
)

type mockOrderRepo struct {
	byID      map[string]*Order
	createErr error
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{byID: make(map[string]*Order)}
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	if m.createErr != nil {
		return m.createErr
	}
	cp := *o
	m.byID[o.ID] = &cp
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) ListByUser(_ context.Context, userID string) ([]Order, error) {
	var out []Order
	for _, o := range m.byID {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *mockOrderRepo) Update(_ context.Context, o *Order) error {
	if _, ok := m.byID[o.ID]; !ok {
		return ErrNotFound
	}
	cp := *o
	m.byID[o.ID] = &cp
	return nil
}

type mockProductRepo struct {
	products map[string]*product.Product

	reserved   [][]product.Reservation
	released   [][]product.Reservation
	reserveErr error
	releaseErr error
}

func newMockProductRepo(products ...*product.Product) *mockProductRepo {
	m := &mockProductRepo{products: make(map[string]*product.Product)}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

func (m *mockProductRepo) List(context.Context) ([]product.Product, error) {
	var out []product.Product
	for _, p := range m.products {
		out = append(out, *p)
	}
	return out, nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return p, nil
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	var out []product.Product
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockProductRepo) Reserve(_ context.Context, rs []product.Reservation) error {
	if m.reserveErr != nil {
		return m.reserveErr
	}
	m.reserved = append(m.reserved, rs)
	return nil
}

func (m *mockProductRepo) Release(_ context.Context, rs []product.Reservation) error {
	if m.releaseErr != nil {
		return m.releaseErr
	}
	m.released = append(m.released, rs)
	return nil
}

type mockCartStore struct {
	carts   map[string]*cart.Cart
	deleted []string
}

func newMockCartStore() *mockCartStore {
	return &mockCartStore{carts: make(map[string]*cart.Cart)}
}

func (m *mockCartStore) Get(_ context.Context, userID string) (*cart.Cart, error) {
	c, ok := m.carts[userID]
	if !ok {
		return nil, cart.ErrNotFound
	}
	return c.Clone(), nil
}

func (m *mockCartStore) Save(_ context.Context, c *cart.Cart) error {
	m.carts[c.UserID] = c.Clone()
	return nil
}

func (m *mockCartStore) Delete(_ context.Context, userID string) error {
	if _, ok := m.carts[userID]; !ok {
		return cart.ErrNotFound
	}
	delete(m.carts, userID)
	m.deleted = append(m.deleted, userID)
	return nil
}

func testProduct() *product.Product {
	return &product.Product{
		ID:     "prod-1",
		Name:   "Wireless Mouse",
		Slug:   "wireless-mouse",
		Price:  decimal.RequireFromString("19.99"),
		Active: true,
		Inventory: product.Inventory{
			Count:          10,
			TrackInventory: true,
		},
		Images: []product.Image{{URL: "https://img.example.com/mouse.jpg", Primary: true}},
	}
}

func testCart(userID string) *cart.Cart {
	unit := decimal.RequireFromString("19.99")
	return &cart.Cart{
		UserID: userID,
		Items: []cart.LineItem{{
			ID:         "line-1",
			ProductID:  "prod-1",
			Name:       "Wireless Mouse",
			UnitPrice:  unit,
			Quantity:   2,
			TotalPrice: unit.Mul(decimal.NewFromInt(2)),
		}},
	}
}

func newTestService(orders *mockOrderRepo, products *mockProductRepo, carts *mockCartStore) *Service {
	s := NewService(orders, products, carts, coupon.NewStaticValidator(coupon.DefaultRules()...), zap.NewNop())
	s.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	s.newID = func() string { return "order-1" }
	return s
}

func checkoutRequest() CheckoutRequest {
	return CheckoutRequest{
		ShippingAddress: Address{Street: "1 Main St", City: "Springfield", State: "IL", PostalCode: "62701", Country: "US"},
		BillingAddress:  Address{Street: "1 Main St", City: "Springfield", State: "IL", PostalCode: "62701", Country: "US"},
		PaymentMethod:   PaymentCard,
		ShippingMethod:  pricing.ShippingStandard,
	}
}

func TestCheckout(t *testing.T) {
	ctx := context.Background()
	orders := newMockOrderRepo()
	products := newMockProductRepo(testProduct())
	carts := newMockCartStore()
	require.NoError(t, carts.Save(ctx, testCart("user-1")))

	svc := newTestService(orders, products, carts)
	o, err := svc.Checkout(ctx, "user-1", checkoutRequest())
	require.NoError(t, err)

	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, PaymentStatusPending, o.PaymentInfo.Status)
	assert.Regexp(t, `^ORD-\d+-\d{6}$`, o.Number)
	require.Len(t, o.Items, 1)
	assert.Equal(t, "Wireless Mouse", o.Items[0].Name)
	assert.Equal(t, "https://img.example.com/mouse.jpg", o.Items[0].Image)

	// 39.98 subtotal, 3.20 tax, 9.99 shipping.
	assert.Equal(t, "39.98", o.Totals.Subtotal.StringFixed(2))
	assert.Equal(t, "3.20", o.Totals.Tax.StringFixed(2))
	assert.Equal(t, "9.99", o.Totals.Shipping.StringFixed(2))
	assert.Equal(t, "53.17", o.Totals.Total.StringFixed(2))

	// Inventory reserved and the cart deleted.
	require.Len(t, products.reserved, 1)
	assert.Equal(t, []product.Reservation{{ProductID: "prod-1", Quantity: 2}}, products.reserved[0])
	assert.Equal(t, []string{"user-1"}, carts.deleted)

	require.Len(t, o.StatusHistory, 1)
	assert.Equal(t, StatusPending, o.StatusHistory[0].Status)

	// Persisted.
	stored, err := orders.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.Number, stored.Number)
}

func TestCheckoutEmptyCart(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMockOrderRepo(), newMockProductRepo(), newMockCartStore())

	_, err := svc.Checkout(ctx, "user-1", checkoutRequest())
	require.ErrorIs(t, err, ErrCartEmpty)
	assert.EqualError(t, err, "Cart is empty")
}

func TestCheckoutProductGone(t *testing.T) {
	ctx := context.Background()
	carts := newMockCartStore()
	require.NoError(t, carts.Save(ctx, testCart("user-1")))

	svc := newTestService(newMockOrderRepo(), newMockProductRepo(), carts)
	_, err := svc.Checkout(ctx, "user-1", checkoutRequest())

	var unavailable *UnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, "Product Wireless Mouse is no longer available", err.Error())
}

func TestCheckoutInactiveProduct(t *testing.T) {
	ctx := context.Background()
	p := testProduct()
	p.Active = false
	carts := newMockCartStore()
	require.NoError(t, carts.Save(ctx, testCart("user-1")))

	svc := newTestService(newMockOrderRepo(), newMockProductRepo(p), carts)
	_, err := svc.Checkout(ctx, "user-1", checkoutRequest())

	var unavailable *UnavailableError
	require.ErrorAs(t, err, &unavailable)
}

func TestCheckoutInsufficientStock(t *testing.T) {
	ctx := context.Background()
	p := testProduct()
	p.Inventory.Count = 1
	carts := newMockCartStore()
	require.NoError(t, carts.Save(ctx, testCart("user-1")))

	products := newMockProductRepo(p)
	svc := newTestService(newMockOrderRepo(), products, carts)
	_, err := svc.Checkout(ctx, "user-1", checkoutRequest())

	var stockErr *product.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 1, stockErr.Available)
	assert.Equal(t, 2, stockErr.Requested)
	assert.Empty(t, products.reserved)
}

func TestCheckoutReserveFails(t *testing.T) {
	ctx := context.Background()
	carts := newMockCartStore()
	require.NoError(t, carts.Save(ctx, testCart("user-1")))

	products := newMockProductRepo(testProduct())
	products.reserveErr = &product.InsufficientStockError{
		ProductID: "prod-1", Name: "Wireless Mouse", Requested: 2, Available: 1,
	}
	svc := newTestService(newMockOrderRepo(), products, carts)

	_, err := svc.Checkout(ctx, "user-1", checkoutRequest())
	var stockErr *product.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)

	// Cart survives a failed checkout.
	_, err = carts.Get(ctx, "user-1")
	require.NoError(t, err)
}

func TestCheckoutCreateFailsReleasesReservation(t *testing.T) {
	ctx := context.Background()
	carts := newMockCartStore()
	require.NoError(t, carts.Save(ctx, testCart("user-1")))

	orders := newMockOrderRepo()
	orders.createErr = errors.New("insert failed")
	products := newMockProductRepo(testProduct())
	svc := newTestService(orders, products, carts)

	_, err := svc.Checkout(ctx, "user-1", checkoutRequest())
	require.Error(t, err)
	require.Len(t, products.released, 1)
	assert.Equal(t, products.reserved[0], products.released[0])
}

func TestCheckoutWithCoupon(t *testing.T) {
	ctx := context.Background()
	c := testCart("user-1")
	c.Coupon = &cart.AppliedCoupon{
		Code:     "SAVE10",
		Type:     coupon.TypePercentage,
		Value:    decimal.NewFromInt(10),
		Discount: decimal.RequireFromString("4.00"),
	}
	carts := newMockCartStore()
	require.NoError(t, carts.Save(ctx, c))

	svc := newTestService(newMockOrderRepo(), newMockProductRepo(testProduct()), carts)
	o, err := svc.Checkout(ctx, "user-1", checkoutRequest())
	require.NoError(t, err)

	assert.Equal(t, "SAVE10", o.CouponCode)
	assert.Equal(t, "4.00", o.Totals.Discount.StringFixed(2))
	// 39.98 - 4.00 + 3.20 + 9.99
	assert.Equal(t, "49.17", o.Totals.Total.StringFixed(2))
}

func TestCheckoutExpressShipping(t *testing.T) {
	ctx := context.Background()
	carts := newMockCartStore()
	require.NoError(t, carts.Save(ctx, testCart("user-1")))

	svc := newTestService(newMockOrderRepo(), newMockProductRepo(testProduct()), carts)
	req := checkoutRequest()
	req.ShippingMethod = pricing.ShippingExpress
	o, err := svc.Checkout(ctx, "user-1", req)
	require.NoError(t, err)

	assert.Equal(t, "19.99", o.Totals.Shipping.StringFixed(2))
	assert.Equal(t, pricing.ShippingExpress, o.ShippingInfo.Method)
}

func TestSummary(t *testing.T) {
	ctx := context.Background()
	carts := newMockCartStore()
	require.NoError(t, carts.Save(ctx, testCart("user-1")))

	svc := newTestService(newMockOrderRepo(), newMockProductRepo(testProduct()), carts)
	sum, err := svc.Summary(ctx, "user-1", SummaryRequest{
		ShippingMethod: pricing.ShippingStandard,
		CouponCode:     "save10",
	})
	require.NoError(t, err)

	assert.Equal(t, "SAVE10", sum.CouponCode)
	assert.Equal(t, "4.00", sum.Totals.Discount.StringFixed(2))
	assert.Equal(t, "49.17", sum.Totals.Total.StringFixed(2))

	// Preview persists nothing.
	_, err = carts.Get(ctx, "user-1")
	require.NoError(t, err)
}

func TestSummaryEmptyCart(t *testing.T) {
	svc := newTestService(newMockOrderRepo(), newMockProductRepo(), newMockCartStore())
	_, err := svc.Summary(context.Background(), "user-1", SummaryRequest{ShippingMethod: pricing.ShippingStandard})
	require.ErrorIs(t, err, ErrCartEmpty)
}

func TestGetEnforcesOwnership(t *testing.T) {
	ctx := context.Background()
	orders := newMockOrderRepo()
	orders.byID["order-1"] = &Order{ID: "order-1", UserID: "user-1", Status: StatusPending}

	svc := newTestService(orders, newMockProductRepo(), newMockCartStore())
	_, err := svc.Get(ctx, "user-2", "order-1")
	require.ErrorIs(t, err, ErrNotOwner)

	o, err := svc.Get(ctx, "user-1", "order-1")
	require.NoError(t, err)
	assert.Equal(t, "order-1", o.ID)
}

func TestCancelPendingOrder(t *testing.T) {
	ctx := context.Background()
	orders := newMockOrderRepo()
	orders.byID["order-1"] = &Order{
		ID:     "order-1",
		UserID: "user-1",
		Status: StatusPending,
		Items:  []Item{{ProductID: "prod-1", Quantity: 2}},
	}

	products := newMockProductRepo()
	svc := newTestService(orders, products, newMockCartStore())
	o, err := svc.Cancel(ctx, "user-1", "order-1", "changed my mind")
	require.NoError(t, err)

	assert.Equal(t, StatusCancelled, o.Status)
	require.Len(t, products.released, 1)
	assert.Equal(t, []product.Reservation{{ProductID: "prod-1", Quantity: 2}}, products.released[0])

	last := o.StatusHistory[len(o.StatusHistory)-1]
	assert.Equal(t, StatusCancelled, last.Status)
	assert.Contains(t, last.Note, "changed my mind")
}

func TestCancelShippedOrder(t *testing.T) {
	ctx := context.Background()
	orders := newMockOrderRepo()
	orders.byID["order-1"] = &Order{ID: "order-1", UserID: "user-1", Status: StatusShipped}

	svc := newTestService(orders, newMockProductRepo(), newMockCartStore())
	_, err := svc.Cancel(ctx, "user-1", "order-1", "")

	var notCancellable *NotCancellableError
	require.ErrorAs(t, err, &notCancellable)
	assert.Contains(t, err.Error(), "cannot be cancelled at this stage")

	stored, err := orders.GetByID(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, stored.Status)
}

func TestCancelReleaseFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	orders := newMockOrderRepo()
	orders.byID["order-1"] = &Order{
		ID:     "order-1",
		UserID: "user-1",
		Status: StatusPending,
		Items:  []Item{{ProductID: "prod-1", Quantity: 1}},
	}

	products := newMockProductRepo()
	products.releaseErr = errors.New("connection refused")
	svc := newTestService(orders, products, newMockCartStore())

	o, err := svc.Cancel(ctx, "user-1", "order-1", "")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, o.Status)
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()
	orders := newMockOrderRepo()
	orders.byID["order-1"] = &Order{ID: "order-1", UserID: "user-1", Status: StatusProcessing}

	svc := newTestService(orders, newMockProductRepo(), newMockCartStore())
	o, err := svc.UpdateStatus(ctx, "order-1", StatusShipped, "handed to carrier", "1Z999", "UPS", "admin-1")
	require.NoError(t, err)

	assert.Equal(t, StatusShipped, o.Status)
	assert.Equal(t, "1Z999", o.ShippingInfo.TrackingNumber)
	assert.Equal(t, "UPS", o.ShippingInfo.Carrier)

	last := o.StatusHistory[len(o.StatusHistory)-1]
	assert.Equal(t, "admin-1", last.Actor)
}

func TestUpdateStatusInvalidTransition(t *testing.T) {
	ctx := context.Background()
	orders := newMockOrderRepo()
	orders.byID["order-1"] = &Order{ID: "order-1", UserID: "user-1", Status: StatusDelivered}

	svc := newTestService(orders, newMockProductRepo(), newMockCartStore())
	_, err := svc.UpdateStatus(ctx, "order-1", StatusShipped, "", "", "", "admin-1")

	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
}

func TestUpdateStatusUnknownValue(t *testing.T) {
	svc := newTestService(newMockOrderRepo(), newMockProductRepo(), newMockCartStore())
	_, err := svc.UpdateStatus(context.Background(), "order-1", Status("teleported"), "", "", "", "admin-1")
	require.Error(t, err)
}

func TestRefundPartialThenFull(t *testing.T) {
	ctx := context.Background()
	orders := newMockOrderRepo()
	orders.byID["order-1"] = &Order{
		ID:           "order-1",
		UserID:       "user-1",
		Status:       StatusDelivered,
		PaymentInfo:  PaymentInfo{Method: PaymentCard, Status: PaymentStatusCompleted},
		Totals:       pricing.Totals{Total: decimal.RequireFromString("53.17")},
		RefundAmount: decimal.Zero,
	}

	svc := newTestService(orders, newMockProductRepo(), newMockCartStore())

	o, err := svc.Refund(ctx, "order-1", decimal.RequireFromString("20.00"), "damaged item", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, StatusPartiallyRefunded, o.Status)
	assert.Equal(t, "20.00", o.RefundAmount.StringFixed(2))
	assert.Equal(t, PaymentStatusCompleted, o.PaymentInfo.Status)

	o, err = svc.Refund(ctx, "order-1", decimal.RequireFromString("33.17"), "", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, StatusRefunded, o.Status)
	assert.Equal(t, "53.17", o.RefundAmount.StringFixed(2))
	assert.Equal(t, PaymentStatusRefunded, o.PaymentInfo.Status)

	last := o.StatusHistory[len(o.StatusHistory)-1]
	assert.Contains(t, last.Note, "$33.17")
}

func TestRefundRequiresCompletedPayment(t *testing.T) {
	ctx := context.Background()
	orders := newMockOrderRepo()
	orders.byID["order-1"] = &Order{
		ID:          "order-1",
		UserID:      "user-1",
		Status:      StatusPending,
		PaymentInfo: PaymentInfo{Method: PaymentCard, Status: PaymentStatusPending},
		Totals:      pricing.Totals{Total: decimal.RequireFromString("10.00")},
	}

	svc := newTestService(orders, newMockProductRepo(), newMockCartStore())
	_, err := svc.Refund(ctx, "order-1", decimal.NewFromInt(5), "", "admin-1")
	require.ErrorIs(t, err, ErrRefundPayment)
}

func TestRefundRejectsNonPositiveAmount(t *testing.T) {
	svc := newTestService(newMockOrderRepo(), newMockProductRepo(), newMockCartStore())
	_, err := svc.Refund(context.Background(), "order-1", decimal.Zero, "", "admin-1")
	require.Error(t, err)
}
