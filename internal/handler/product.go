package handler

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-api/internal/domain/category"
	"github.com/xenking/storefront-api/internal/domain/product"
)

type productResponse struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Slug           string            `json:"slug"`
	Description    string            `json:"description,omitempty"`
	Price          decimal.Decimal   `json:"price"`
	CompareAtPrice *decimal.Decimal  `json:"compareAtPrice,omitempty"`
	CategoryID     string            `json:"categoryId,omitempty"`
	Available      bool              `json:"available"`
	InventoryCount int               `json:"inventoryCount"`
	Images         []imageResponse   `json:"images,omitempty"`
	Variants       []variantResponse `json:"variants,omitempty"`
}

type imageResponse struct {
	URL     string `json:"url"`
	Alt     string `json:"alt,omitempty"`
	Primary bool   `json:"primary"`
}

type variantResponse struct {
	ID             string          `json:"id"`
	SKU            string          `json:"sku"`
	Name           string          `json:"name"`
	Price          decimal.Decimal `json:"price"`
	InventoryCount int             `json:"inventoryCount"`
}

type categoryResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	ParentID     string `json:"parentId,omitempty"`
	Level        int    `json:"level"`
	Path         string `json:"path"`
	ProductCount int    `json:"productCount"`
}

// ListProducts returns the catalog, optionally filtered by category ID or a
// case-insensitive name substring (?category=..., ?q=...).
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		respondDomainError(r.Context(), w, err)
		return
	}

	categoryID := r.URL.Query().Get("category")
	query := strings.ToLower(r.URL.Query().Get("q"))

	out := make([]productResponse, 0, len(products))
	for i := range products {
		p := &products[i]
		if categoryID != "" && p.CategoryID != categoryID {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(p.Name), query) {
			continue
		}
		out = append(out, toProductResponse(p))
	}

	respond(r.Context(), w, http.StatusOK, map[string]interface{}{"products": out})
}

// GetProduct returns a single product by ID.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		respondDomainError(r.Context(), w, err)
		return
	}
	respond(r.Context(), w, http.StatusOK, map[string]interface{}{"product": toProductResponse(p)})
}

// ListCategories returns the category tree ordered so parents precede
// children.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.List(r.Context())
	if err != nil {
		respondDomainError(r.Context(), w, err)
		return
	}

	out := make([]categoryResponse, len(categories))
	for i, c := range categories {
		out[i] = toCategoryResponse(c)
	}
	respond(r.Context(), w, http.StatusOK, map[string]interface{}{"categories": out})
}

// GetCategory returns a single category by ID.
func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	c, err := h.categories.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		respondDomainError(r.Context(), w, err)
		return
	}
	respond(r.Context(), w, http.StatusOK, map[string]interface{}{"category": toCategoryResponse(*c)})
}

func toProductResponse(p *product.Product) productResponse {
	resp := productResponse{
		ID:             p.ID,
		Name:           p.Name,
		Slug:           p.Slug,
		Description:    p.Description,
		Price:          p.Price,
		CompareAtPrice: p.CompareAtPrice,
		CategoryID:     p.CategoryID,
		Available:      p.Available(),
		InventoryCount: p.Inventory.Count,
	}
	for _, img := range p.Images {
		resp.Images = append(resp.Images, imageResponse{URL: img.URL, Alt: img.Alt, Primary: img.Primary})
	}
	for _, v := range p.Variants {
		resp.Variants = append(resp.Variants, variantResponse{
			ID:             v.ID,
			SKU:            v.SKU,
			Name:           v.Name,
			Price:          v.Price,
			InventoryCount: v.InventoryCount,
		})
	}
	return resp
}

func toCategoryResponse(c category.Category) categoryResponse {
	return categoryResponse{
		ID:           c.ID,
		Name:         c.Name,
		Slug:         c.Slug,
		ParentID:     c.ParentID,
		Level:        c.Level,
		Path:         c.Path,
		ProductCount: c.ProductCount,
	}
}
