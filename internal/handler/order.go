package handler

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-api/internal/domain/order"
	"github.com/xenking/storefront-api/internal/domain/pricing"
)

type addressRequest struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

type checkoutRequest struct {
	ShippingAddress addressRequest `json:"shippingAddress"`
	BillingAddress  addressRequest `json:"billingAddress"`
	PaymentMethod   string         `json:"paymentMethod"`
	ShippingMethod  string         `json:"shippingMethod"`
	CustomerNotes   string         `json:"customerNotes,omitempty"`
}

type summaryRequest struct {
	ShippingMethod string `json:"shippingMethod"`
	CouponCode     string `json:"couponCode,omitempty"`
}

type cancelRequest struct {
	Reason string `json:"reason,omitempty"`
}

type updateStatusRequest struct {
	Status         string `json:"status"`
	Note           string `json:"note,omitempty"`
	TrackingNumber string `json:"trackingNumber,omitempty"`
	Carrier        string `json:"carrier,omitempty"`
}

type refundRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Note   string          `json:"note,omitempty"`
}

type orderResponse struct {
	ID              string               `json:"id"`
	OrderNumber     string               `json:"orderNumber"`
	Items           []order.Item         `json:"items"`
	ShippingAddress order.Address        `json:"shippingAddress"`
	BillingAddress  order.Address        `json:"billingAddress"`
	PaymentInfo     order.PaymentInfo    `json:"paymentInfo"`
	ShippingInfo    order.ShippingInfo   `json:"shippingInfo"`
	Totals          pricing.Totals       `json:"totals"`
	CouponCode      string               `json:"couponCode,omitempty"`
	CustomerNotes   string               `json:"customerNotes,omitempty"`
	Status          order.Status         `json:"status"`
	StatusHistory   []order.StatusChange `json:"statusHistory"`
	RefundAmount    decimal.Decimal      `json:"refundAmount"`
	CreatedAt       time.Time            `json:"createdAt"`
	UpdatedAt       time.Time            `json:"updatedAt"`
}

// Checkout converts the user's cart into an order.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decode(r, &req); err != nil {
		respondError(r.Context(), w, http.StatusBadRequest, &apiError{Message: err.Error()})
		return
	}
	if msg, ok := validateCheckout(&req); !ok {
		respondError(r.Context(), w, http.StatusBadRequest, &apiError{Message: msg})
		return
	}

	o, err := h.orders.Checkout(r.Context(), Identity(r.Context()).UserID, order.CheckoutRequest{
		ShippingAddress: toAddress(req.ShippingAddress),
		BillingAddress:  toAddress(req.BillingAddress),
		PaymentMethod:   order.PaymentMethod(req.PaymentMethod),
		ShippingMethod:  pricing.ShippingMethod(req.ShippingMethod),
		CustomerNotes:   req.CustomerNotes,
	})
	if err != nil {
		respondDomainError(r.Context(), w, err)
		return
	}
	respond(r.Context(), w, http.StatusCreated, map[string]interface{}{"order": toOrderResponse(o)})
}

// CheckoutSummary prices the cart for a shipping method and optional coupon
// without creating anything.
func (h *Handler) CheckoutSummary(w http.ResponseWriter, r *http.Request) {
	var req summaryRequest
	if err := decode(r, &req); err != nil {
		respondError(r.Context(), w, http.StatusBadRequest, &apiError{Message: err.Error()})
		return
	}

	sum, err := h.orders.Summary(r.Context(), Identity(r.Context()).UserID, order.SummaryRequest{
		ShippingMethod: pricing.ShippingMethod(req.ShippingMethod),
		CouponCode:     req.CouponCode,
	})
	if err != nil {
		respondDomainError(r.Context(), w, err)
		return
	}
	respond(r.Context(), w, http.StatusOK, map[string]interface{}{"summary": sum})
}

// ListOrders returns the authenticated user's orders, newest first.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.List(r.Context(), Identity(r.Context()).UserID)
	if err != nil {
		respondDomainError(r.Context(), w, err)
		return
	}

	out := make([]orderResponse, len(orders))
	for i := range orders {
		out[i] = toOrderResponse(&orders[i])
	}
	respond(r.Context(), w, http.StatusOK, map[string]interface{}{"orders": out})
}

// GetOrder returns one of the user's orders by ID.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), Identity(r.Context()).UserID, r.PathValue("id"))
	if err != nil {
		respondDomainError(r.Context(), w, err)
		return
	}
	respond(r.Context(), w, http.StatusOK, map[string]interface{}{"order": toOrderResponse(o)})
}

// CancelOrder cancels a pending or confirmed order.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if r.ContentLength > 0 {
		if err := decode(r, &req); err != nil {
			respondError(r.Context(), w, http.StatusBadRequest, &apiError{Message: err.Error()})
			return
		}
	}

	o, err := h.orders.Cancel(r.Context(), Identity(r.Context()).UserID, r.PathValue("id"), req.Reason)
	if err != nil {
		respondDomainError(r.Context(), w, err)
		return
	}
	respond(r.Context(), w, http.StatusOK, map[string]interface{}{"order": toOrderResponse(o)})
}

// UpdateOrderStatus performs an admin transition on any order.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := decode(r, &req); err != nil {
		respondError(r.Context(), w, http.StatusBadRequest, &apiError{Message: err.Error()})
		return
	}
	if req.Status == "" {
		respondError(r.Context(), w, http.StatusBadRequest, &apiError{Message: "status is required"})
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), r.PathValue("id"),
		order.Status(req.Status), req.Note, req.TrackingNumber, req.Carrier,
		Identity(r.Context()).UserID)
	if err != nil {
		respondDomainError(r.Context(), w, err)
		return
	}
	respond(r.Context(), w, http.StatusOK, map[string]interface{}{"order": toOrderResponse(o)})
}

// RefundOrder records an admin refund against a paid order.
func (h *Handler) RefundOrder(w http.ResponseWriter, r *http.Request) {
	var req refundRequest
	if err := decode(r, &req); err != nil {
		respondError(r.Context(), w, http.StatusBadRequest, &apiError{Message: err.Error()})
		return
	}
	if !req.Amount.IsPositive() {
		respondError(r.Context(), w, http.StatusBadRequest, &apiError{Message: "amount must be greater than 0"})
		return
	}

	o, err := h.orders.Refund(r.Context(), r.PathValue("id"), req.Amount, req.Note,
		Identity(r.Context()).UserID)
	if err != nil {
		respondDomainError(r.Context(), w, err)
		return
	}
	respond(r.Context(), w, http.StatusOK, map[string]interface{}{"order": toOrderResponse(o)})
}

func validateCheckout(req *checkoutRequest) (string, bool) {
	switch {
	case req.PaymentMethod == "":
		return "paymentMethod is required", false
	case req.ShippingMethod == "":
		return "shippingMethod is required", false
	case !validAddress(req.ShippingAddress):
		return "shippingAddress is incomplete", false
	case !validAddress(req.BillingAddress):
		return "billingAddress is incomplete", false
	}
	return "", true
}

func validAddress(a addressRequest) bool {
	return a.Street != "" && a.City != "" && a.PostalCode != "" && a.Country != ""
}

func toAddress(a addressRequest) order.Address {
	return order.Address{
		FirstName:  a.FirstName,
		LastName:   a.LastName,
		Street:     a.Street,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		Phone:      a.Phone,
	}
}

func toOrderResponse(o *order.Order) orderResponse {
	return orderResponse{
		ID:              o.ID,
		OrderNumber:     o.Number,
		Items:           o.Items,
		ShippingAddress: o.ShippingAddress,
		BillingAddress:  o.BillingAddress,
		PaymentInfo:     o.PaymentInfo,
		ShippingInfo:    o.ShippingInfo,
		Totals:          o.Totals,
		CouponCode:      o.CouponCode,
		CustomerNotes:   o.CustomerNotes,
		Status:          o.Status,
		StatusHistory:   o.StatusHistory,
		RefundAmount:    o.RefundAmount,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}
