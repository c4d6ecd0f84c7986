// Package handler exposes the storefront over JSON REST. Every response is
// wrapped in a {success, data?, error?} envelope.
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront-api/internal/domain/cart"
	"github.com/xenking/storefront-api/internal/domain/category"
	"github.com/xenking/storefront-api/internal/domain/coupon"
	"github.com/xenking/storefront-api/internal/domain/order"
	"github.com/xenking/storefront-api/internal/domain/payment"
	"github.com/xenking/storefront-api/internal/domain/pricing"
	"github.com/xenking/storefront-api/internal/domain/product"
)

// Handler routes storefront API requests to the domain services.
type Handler struct {
	products   product.Repository
	categories category.Repository
	carts      *cart.Service
	orders     *order.Service
	payments   *payment.Processor
	security   *Security
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	products product.Repository,
	categories category.Repository,
	carts *cart.Service,
	orders *order.Service,
	payments *payment.Processor,
	security *Security,
) *Handler {
	return &Handler{
		products:   products,
		categories: categories,
		carts:      carts,
		orders:     orders,
		payments:   payments,
		security:   security,
	}
}

// Register mounts all API routes on the mux. Catalog reads are public; cart,
// checkout, and order routes require an API key; status updates and refunds
// additionally require the admin scope.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("GET /api/products/{id}", h.GetProduct)
	mux.HandleFunc("GET /api/categories", h.ListCategories)
	mux.HandleFunc("GET /api/categories/{id}", h.GetCategory)

	auth := h.security.Require
	mux.Handle("GET /api/cart", auth(h.GetCart))
	mux.Handle("DELETE /api/cart", auth(h.ClearCart))
	mux.Handle("POST /api/cart/items", auth(h.AddCartItem))
	mux.Handle("PUT /api/cart/items/{itemId}", auth(h.UpdateCartItem))
	mux.Handle("DELETE /api/cart/items/{itemId}", auth(h.RemoveCartItem))
	mux.Handle("POST /api/cart/coupon", auth(h.ApplyCoupon))
	mux.Handle("DELETE /api/cart/coupon", auth(h.RemoveCoupon))

	mux.Handle("POST /api/orders/checkout/summary", auth(h.CheckoutSummary))
	mux.Handle("POST /api/orders", auth(h.Checkout))
	mux.Handle("GET /api/orders", auth(h.ListOrders))
	mux.Handle("GET /api/orders/{id}", auth(h.GetOrder))
	mux.Handle("PUT /api/orders/{id}/cancel", auth(h.CancelOrder))
	mux.Handle("POST /api/payments/process", auth(h.ProcessPayment))

	admin := h.security.RequireAdmin
	mux.Handle("PUT /api/orders/{id}/status", admin(h.UpdateOrderStatus))
	mux.Handle("POST /api/orders/{id}/refund", admin(h.RefundOrder))
}

type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Message           string `json:"message"`
	AvailableQuantity *int   `json:"availableQuantity,omitempty"`
}

func respond(ctx context.Context, w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Success: true, Data: data}); err != nil {
		zctx.From(ctx).Error("encode response", zap.Error(err))
	}
}

func respondError(ctx context.Context, w http.ResponseWriter, status int, e *apiError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Success: false, Error: e}); err != nil {
		zctx.From(ctx).Error("encode error response", zap.Error(err))
	}
}

// respondDomainError maps domain errors to the envelope and an HTTP status.
// Unexpected errors are logged and answered with a generic 500 message.
func respondDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	var stockErr *product.InsufficientStockError
	if errors.As(err, &stockErr) {
		available := stockErr.Available
		respondError(ctx, w, http.StatusBadRequest, &apiError{
			Message:           stockErr.Error(),
			AvailableQuantity: &available,
		})
		return
	}

	switch status := domainErrorStatus(err); status {
	case http.StatusInternalServerError:
		zctx.From(ctx).Error("request failed", zap.Error(err))
		respondError(ctx, w, status, &apiError{Message: "Internal server error"})
	default:
		respondError(ctx, w, status, &apiError{Message: err.Error()})
	}
}

func domainErrorStatus(err error) int {
	var (
		minimumErr      *coupon.MinimumNotMetError
		unavailableErr  *order.UnavailableError
		cartUnavailable *cart.UnavailableError
		notCancellable  *order.NotCancellableError
		badTransition   *order.InvalidTransitionError
		unsupportedMeth *payment.UnsupportedMethodError
	)
	switch {
	case errors.Is(err, product.ErrNotFound),
		errors.Is(err, product.ErrVariantNotFound),
		errors.Is(err, category.ErrNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, cart.ErrItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, order.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, coupon.ErrInvalidCoupon),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, order.ErrCartEmpty),
		errors.Is(err, payment.ErrAlreadyPaid),
		errors.Is(err, payment.ErrNotPayable),
		errors.Is(err, pricing.ErrUnknownShippingMethod),
		errors.As(err, &minimumErr),
		errors.As(err, &unavailableErr),
		errors.As(err, &cartUnavailable),
		errors.As(err, &notCancellable),
		errors.As(err, &badTransition),
		errors.As(err, &unsupportedMeth):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// decode reads a JSON request body into dst.
func decode(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.Wrap(err, "invalid JSON body")
	}
	return nil
}
