package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-api/internal/domain/order"
	"github.com/xenking/storefront-api/internal/domain/pricing"
)

const (
	createOrderSQL = `INSERT INTO orders (id, order_number, user_id, items,
		shipping_address, billing_address,
		payment_method, payment_status, transaction_id,
		shipping_method, shipping_cost, tracking_number, carrier,
		subtotal, discount, tax, shipping, total,
		coupon_code, customer_notes, status, status_history, refund_amount,
		created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
		$14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)`

	getOrderByIDSQL = `SELECT id, order_number, user_id, items,
		shipping_address, billing_address,
		payment_method, payment_status, transaction_id,
		shipping_method, shipping_cost, tracking_number, carrier,
		subtotal, discount, tax, shipping, total,
		coupon_code, customer_notes, status, status_history, refund_amount,
		created_at, updated_at
	FROM orders WHERE id = $1`

	listOrdersByUserSQL = `SELECT id, order_number, user_id, items,
		shipping_address, billing_address,
		payment_method, payment_status, transaction_id,
		shipping_method, shipping_cost, tracking_number, carrier,
		subtotal, discount, tax, shipping, total,
		coupon_code, customer_notes, status, status_history, refund_amount,
		created_at, updated_at
	FROM orders WHERE user_id = $1 ORDER BY created_at DESC`

	updateOrderSQL = `UPDATE orders SET
		payment_status = $2, transaction_id = $3,
		tracking_number = $4, carrier = $5,
		status = $6, status_history = $7, refund_amount = $8, updated_at = $9
	WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Item
// snapshots, addresses, and the status history are stored as JSONB.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	items, shippingAddr, billingAddr, history, err := marshalOrderJSON(o)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, createOrderSQL,
		o.ID, o.Number, o.UserID, items,
		shippingAddr, billingAddr,
		o.PaymentInfo.Method, o.PaymentInfo.Status, o.PaymentInfo.TransactionID,
		o.ShippingInfo.Method, o.ShippingInfo.Cost, o.ShippingInfo.TrackingNumber, o.ShippingInfo.Carrier,
		o.Totals.Subtotal, o.Totals.Discount, o.Totals.Tax, o.Totals.Shipping, o.Totals.Total,
		o.CouponCode, o.CustomerNotes, o.Status, history, o.RefundAmount,
		o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// GetByID returns a single order by its identifier.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return &o, nil
}

// ListByUser returns the user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for user %q: %w", userID, err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// Update persists the mutable parts of an order: payment outcome, fulfillment
// details, status, history, and refund amount. Item snapshots and addresses
// are immutable after Create.
func (r *OrderRepository) Update(ctx context.Context, o *order.Order) error {
	history, err := json.Marshal(o.StatusHistory)
	if err != nil {
		return fmt.Errorf("marshaling status history: %w", err)
	}

	tag, err := r.pool.Exec(ctx, updateOrderSQL,
		o.ID,
		o.PaymentInfo.Status, o.PaymentInfo.TransactionID,
		o.ShippingInfo.TrackingNumber, o.ShippingInfo.Carrier,
		o.Status, history, o.RefundAmount, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("updating order %q: %w", o.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func marshalOrderJSON(o *order.Order) (items, shippingAddr, billingAddr, history []byte, err error) {
	if items, err = json.Marshal(o.Items); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshaling order items: %w", err)
	}
	if shippingAddr, err = json.Marshal(o.ShippingAddress); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshaling shipping address: %w", err)
	}
	if billingAddr, err = json.Marshal(o.BillingAddress); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshaling billing address: %w", err)
	}
	if history, err = json.Marshal(o.StatusHistory); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshaling status history: %w", err)
	}
	return items, shippingAddr, billingAddr, history, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o             order.Order
		items         []byte
		shippingAddr  []byte
		billingAddr   []byte
		history       []byte
		paymentMethod string
		paymentStatus string
		shippingMeth  string
		status        string
	)
	err := row.Scan(
		&o.ID, &o.Number, &o.UserID, &items,
		&shippingAddr, &billingAddr,
		&paymentMethod, &paymentStatus, &o.PaymentInfo.TransactionID,
		&shippingMeth, &o.ShippingInfo.Cost, &o.ShippingInfo.TrackingNumber, &o.ShippingInfo.Carrier,
		&o.Totals.Subtotal, &o.Totals.Discount, &o.Totals.Tax, &o.Totals.Shipping, &o.Totals.Total,
		&o.CouponCode, &o.CustomerNotes, &status, &history, &o.RefundAmount,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return o, err
	}

	o.PaymentInfo.Method = order.PaymentMethod(paymentMethod)
	o.PaymentInfo.Status = order.PaymentStatus(paymentStatus)
	o.ShippingInfo.Method = pricing.ShippingMethod(shippingMeth)
	o.Status = order.Status(status)

	if err := json.Unmarshal(items, &o.Items); err != nil {
		return o, fmt.Errorf("unmarshaling order items: %w", err)
	}
	if err := json.Unmarshal(shippingAddr, &o.ShippingAddress); err != nil {
		return o, fmt.Errorf("unmarshaling shipping address: %w", err)
	}
	if err := json.Unmarshal(billingAddr, &o.BillingAddress); err != nil {
		return o, fmt.Errorf("unmarshaling billing address: %w", err)
	}
	if err := json.Unmarshal(history, &o.StatusHistory); err != nil {
		return o, fmt.Errorf("unmarshaling status history: %w", err)
	}
	return o, nil
}
