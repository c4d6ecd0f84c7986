// Package payment simulates a payment gateway and drives payment processing
// on pending orders.
package payment

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-api/internal/domain/order"
)

// Request is a charge attempt against a single order.
type Request struct {
	OrderID string
	Amount  decimal.Decimal
	Method  order.PaymentMethod
}

// Result is the gateway's answer. A decline is a Result, not an error:
// errors are reserved for infrastructure failures.
type Result struct {
	TransactionID string
	Approved      bool
	ProcessedAt   time.Time
}

// Gateway charges payments. Implementations must be safe for concurrent use.
type Gateway interface {
	Charge(ctx context.Context, req Request) (*Result, error)
}

// Simulated approval rates per payment method.
var successRates = map[order.PaymentMethod]float64{
	order.PaymentCard:      0.90,
	order.PaymentPayPal:    0.95,
	order.PaymentStripe:    0.97,
	order.PaymentApplePay:  0.98,
	order.PaymentGooglePay: 0.98,
}

// SimulatedGateway approves charges at a fixed per-method rate after a short
// artificial delay. The random source and sleep are injectable so tests run
// deterministic and fast.
type SimulatedGateway struct {
	rand  func() float64
	sleep func(ctx context.Context, d time.Duration)
}

// NewSimulatedGateway creates a gateway backed by math/rand and real sleeps.
func NewSimulatedGateway() *SimulatedGateway {
	return &SimulatedGateway{
		rand: rand.Float64,
		sleep: func(ctx context.Context, d time.Duration) {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-ctx.Done():
			case <-t.C:
			}
		},
	}
}

// Charge simulates contacting the processor: a 100-400ms latency, then an
// approval decided by the method's success rate.
func (g *SimulatedGateway) Charge(ctx context.Context, req Request) (*Result, error) {
	rate, ok := successRates[req.Method]
	if !ok {
		return nil, &UnsupportedMethodError{Method: req.Method}
	}

	delay := 100*time.Millisecond + time.Duration(g.rand()*300)*time.Millisecond
	g.sleep(ctx, delay)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &Result{
		TransactionID: "txn_" + uuid.New().String(),
		Approved:      g.rand() < rate,
		ProcessedAt:   time.Now(),
	}, nil
}

// UnsupportedMethodError indicates a payment method the gateway does not
// accept.
type UnsupportedMethodError struct {
	Method order.PaymentMethod
}

func (e *UnsupportedMethodError) Error() string {
	return "unsupported payment method: " + string(e.Method)
}
