package payment

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/storefront-api/internal/domain/order"
)

// Processing errors.
var (
	ErrAlreadyPaid = errors.New("Order has already been paid")
	ErrNotPayable  = errors.New("Order is not awaiting payment")
)

// Processor charges pending orders and records the outcome on the order.
type Processor struct {
	orders  order.Repository
	gateway Gateway
	lg      *zap.Logger
	now     func() time.Time
}

// NewProcessor creates a payment Processor.
func NewProcessor(orders order.Repository, gateway Gateway, lg *zap.Logger) *Processor {
	return &Processor{
		orders:  orders,
		gateway: gateway,
		lg:      lg,
		now:     time.Now,
	}
}

// Process charges the order for its total. A non-empty method overrides the
// method chosen at checkout (retrying a declined card with PayPal). An
// approved charge completes the payment and confirms the order; a decline
// marks the payment failed and leaves the order pending so the customer can
// retry. The decline surfaces through the returned order, not an error.
func (p *Processor) Process(ctx context.Context, userID, orderID string, method order.PaymentMethod) (*order.Order, error) {
	o, err := p.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, order.ErrNotOwner
	}
	if o.PaymentInfo.Status == order.PaymentStatusCompleted {
		return nil, ErrAlreadyPaid
	}
	if o.Status != order.StatusPending {
		return nil, ErrNotPayable
	}
	if method != "" {
		o.PaymentInfo.Method = method
	}

	res, err := p.gateway.Charge(ctx, Request{
		OrderID: o.ID,
		Amount:  o.Totals.Total,
		Method:  o.PaymentInfo.Method,
	})
	if err != nil {
		return nil, errors.Wrap(err, "charge")
	}

	now := p.now()
	o.PaymentInfo.TransactionID = res.TransactionID
	if res.Approved {
		o.PaymentInfo.Status = order.PaymentStatusCompleted
		o.Transition(order.StatusConfirmed, now, "Payment completed", userID)
	} else {
		o.PaymentInfo.Status = order.PaymentStatusFailed
		o.UpdatedAt = now
		p.lg.Info("payment declined",
			zap.String("order", o.ID),
			zap.String("method", string(o.PaymentInfo.Method)))
	}

	if err := p.orders.Update(ctx, o); err != nil {
		return nil, errors.Wrap(err, "update order")
	}
	return o, nil
}
