package handler

import (
	"net/http"

	"github.com/xenking/storefront-api/internal/domain/cart"
)

type addItemRequest struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId,omitempty"`
	Quantity  int    `json:"quantity"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

type applyCouponRequest struct {
	CouponCode string `json:"couponCode"`
}

// GetCart returns the user's cart, creating an empty one on first access.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.Get(r.Context(), Identity(r.Context()).UserID)
	if err != nil {
		respondDomainError(r.Context(), w, err)
		return
	}
	respondCart(w, r, c)
}

// AddCartItem adds a product (or variant) to the cart.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decode(r, &req); err != nil {
		respondError(r.Context(), w, http.StatusBadRequest, &apiError{Message: err.Error()})
		return
	}
	if req.ProductID == "" {
		respondError(r.Context(), w, http.StatusBadRequest, &apiError{Message: "productId is required"})
		return
	}

	c, err := h.carts.AddItem(r.Context(), Identity(r.Context()).UserID, req.ProductID, req.VariantID, req.Quantity)
	if err != nil {
		respondDomainError(r.Context(), w, err)
		return
	}
	respondCart(w, r, c)
}

// UpdateCartItem sets a line item's quantity. Zero removes the line.
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req updateItemRequest
	if err := decode(r, &req); err != nil {
		respondError(r.Context(), w, http.StatusBadRequest, &apiError{Message: err.Error()})
		return
	}

	c, err := h.carts.UpdateItem(r.Context(), Identity(r.Context()).UserID, r.PathValue("itemId"), req.Quantity)
	if err != nil {
		respondDomainError(r.Context(), w, err)
		return
	}
	respondCart(w, r, c)
}

// RemoveCartItem deletes a line item.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.RemoveItem(r.Context(), Identity(r.Context()).UserID, r.PathValue("itemId"))
	if err != nil {
		respondDomainError(r.Context(), w, err)
		return
	}
	respondCart(w, r, c)
}

// ClearCart removes every line item and the coupon.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.carts.Clear(r.Context(), Identity(r.Context()).UserID); err != nil {
		respondDomainError(r.Context(), w, err)
		return
	}
	respond(r.Context(), w, http.StatusOK, nil)
}

// ApplyCoupon applies a coupon code to the cart, replacing any active one.
func (h *Handler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	var req applyCouponRequest
	if err := decode(r, &req); err != nil {
		respondError(r.Context(), w, http.StatusBadRequest, &apiError{Message: err.Error()})
		return
	}
	if req.CouponCode == "" {
		respondError(r.Context(), w, http.StatusBadRequest, &apiError{Message: "couponCode is required"})
		return
	}

	c, err := h.carts.ApplyCoupon(r.Context(), Identity(r.Context()).UserID, req.CouponCode)
	if err != nil {
		respondDomainError(r.Context(), w, err)
		return
	}
	respondCart(w, r, c)
}

// RemoveCoupon removes the active coupon from the cart.
func (h *Handler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.RemoveCoupon(r.Context(), Identity(r.Context()).UserID)
	if err != nil {
		respondDomainError(r.Context(), w, err)
		return
	}
	respondCart(w, r, c)
}

func respondCart(w http.ResponseWriter, r *http.Request, c *cart.Cart) {
	respond(r.Context(), w, http.StatusOK, map[string]interface{}{"cart": c})
}
