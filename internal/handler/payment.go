package handler

import (
	"net/http"

	"github.com/xenking/storefront-api/internal/domain/order"
)

type processPaymentRequest struct {
	OrderID       string `json:"orderId"`
	PaymentMethod string `json:"paymentMethod,omitempty"`
	PaymentToken  string `json:"paymentToken,omitempty"`
}

type paymentResponse struct {
	Status        order.PaymentStatus `json:"status"`
	TransactionID string              `json:"transactionId,omitempty"`
}

// ProcessPayment charges a pending order. A declined charge answers 400 with
// the order left pending for retry; the token is accepted but unused by the
// simulated gateway.
func (h *Handler) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	var req processPaymentRequest
	if err := decode(r, &req); err != nil {
		respondError(r.Context(), w, http.StatusBadRequest, &apiError{Message: err.Error()})
		return
	}
	if req.OrderID == "" {
		respondError(r.Context(), w, http.StatusBadRequest, &apiError{Message: "orderId is required"})
		return
	}

	o, err := h.payments.Process(r.Context(), Identity(r.Context()).UserID, req.OrderID,
		order.PaymentMethod(req.PaymentMethod))
	if err != nil {
		respondDomainError(r.Context(), w, err)
		return
	}

	if o.PaymentInfo.Status != order.PaymentStatusCompleted {
		respondError(r.Context(), w, http.StatusBadRequest, &apiError{
			Message: "Payment failed. Please try again or use a different payment method.",
		})
		return
	}

	respond(r.Context(), w, http.StatusOK, map[string]interface{}{
		"payment": paymentResponse{
			Status:        o.PaymentInfo.Status,
			TransactionID: o.PaymentInfo.TransactionID,
		},
		"order": toOrderResponse(o),
	})
}
