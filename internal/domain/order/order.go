// Package order holds the order aggregate, its status state machine, and the
// checkout service that assembles orders from carts.
package order

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-api/internal/domain/pricing"
)

// PaymentMethod enumerates the accepted payment methods.
type PaymentMethod string

const (
	PaymentCard      PaymentMethod = "card"
	PaymentPayPal    PaymentMethod = "paypal"
	PaymentStripe    PaymentMethod = "stripe"
	PaymentApplePay  PaymentMethod = "apple_pay"
	PaymentGooglePay PaymentMethod = "google_pay"
)

// PaymentStatus tracks the payment lifecycle on an order.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// Address is a shipping or billing address snapshot.
type Address struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

// Item is a frozen snapshot of a product/variant at order time. Orders stay
// stable when the catalog changes afterwards.
type Item struct {
	ProductID  string          `json:"productId"`
	VariantID  string          `json:"variantId,omitempty"`
	Name       string          `json:"name"`
	Slug       string          `json:"slug"`
	SKU        string          `json:"sku,omitempty"`
	Image      string          `json:"image,omitempty"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	Quantity   int             `json:"quantity"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

// PaymentInfo records the payment method and its outcome.
type PaymentInfo struct {
	Method        PaymentMethod `json:"method"`
	Status        PaymentStatus `json:"status"`
	TransactionID string        `json:"transactionId,omitempty"`
}

// ShippingInfo records the chosen shipping method and fulfillment details.
type ShippingInfo struct {
	Method         pricing.ShippingMethod `json:"method"`
	Cost           decimal.Decimal        `json:"cost"`
	TrackingNumber string                 `json:"trackingNumber,omitempty"`
	Carrier        string                 `json:"carrier,omitempty"`
}

// StatusChange is one entry in the append-only status history.
type StatusChange struct {
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Note      string    `json:"note,omitempty"`
	Actor     string    `json:"actor,omitempty"`
}

// Order is the persisted order aggregate. Items are immutable once created;
// cancellation and refund are status values, never deletions.
type Order struct {
	ID              string
	Number          string
	UserID          string
	Items           []Item
	ShippingAddress Address
	BillingAddress  Address
	PaymentInfo     PaymentInfo
	ShippingInfo    ShippingInfo
	Totals          pricing.Totals
	CouponCode      string
	CustomerNotes   string
	Status          Status
	StatusHistory   []StatusChange
	RefundAmount    decimal.Decimal
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Transition moves the order to the next status and appends to the history.
// The caller must have checked the transition is allowed.
func (o *Order) Transition(next Status, at time.Time, note, actor string) {
	o.Status = next
	o.StatusHistory = append(o.StatusHistory, StatusChange{
		Status:    next,
		Timestamp: at,
		Note:      note,
		Actor:     actor,
	})
	o.UpdatedAt = at
}

// Reservations maps the order items to inventory reservations.
func (o *Order) Reservations() []Reservation {
	out := make([]Reservation, len(o.Items))
	for i, item := range o.Items {
		out[i] = Reservation{ProductID: item.ProductID, VariantID: item.VariantID, Quantity: item.Quantity}
	}
	return out
}

// Reservation mirrors product.Reservation without importing it, keeping the
// aggregate free of repository dependencies.
type Reservation struct {
	ProductID string
	VariantID string
	Quantity  int
}

// NewNumber generates a customer-facing order number of the form
// ORD-<millisecond timestamp>-<random suffix>.
func NewNumber(now time.Time) string {
	return fmt.Sprintf("ORD-%d-%06d", now.UnixMilli(), rand.IntN(1_000_000))
}

// Repository defines order persistence. Update persists the mutable fields
// (status, history, payment, shipping, refund); items are write-once.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	Update(ctx context.Context, o *Order) error
}
