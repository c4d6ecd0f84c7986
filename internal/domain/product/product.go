// Package product defines the catalog model: products, variants, images, and
// tracked inventory.
package product

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// ErrVariantNotFound is returned when a requested variant does not exist on
// the product.
var ErrVariantNotFound = errors.New("product variant not found")

// InsufficientStockError indicates a requested quantity exceeds the available
// tracked inventory. Available is surfaced to clients so they can adjust.
type InsufficientStockError struct {
	ProductID string
	Name      string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d",
		e.Name, e.Requested, e.Available)
}

// Inventory holds stock tracking configuration and the current count.
type Inventory struct {
	Count             int
	TrackInventory    bool
	AllowBackorder    bool
	LowStockThreshold int
}

// Image is a single product image. Exactly one image per product is primary.
type Image struct {
	URL     string
	Alt     string
	Primary bool
}

// Variant is a purchasable variation of a product with its own SKU, price,
// and stock count.
type Variant struct {
	ID             string
	SKU            string
	Name           string
	Price          decimal.Decimal
	InventoryCount int
}

// Product is a catalog item. CompareAtPrice, when set, must exceed Price.
type Product struct {
	ID             string
	Name           string
	Slug           string
	Description    string
	Price          decimal.Decimal
	CompareAtPrice *decimal.Decimal
	CategoryID     string
	Active         bool
	Images         []Image
	Variants       []Variant
	Inventory      Inventory
	CreatedAt      time.Time
}

// Available reports whether the product can currently be purchased: it must
// be active, and either inventory is untracked, stock remains, or backorders
// are allowed.
func (p *Product) Available() bool {
	if !p.Active {
		return false
	}
	if !p.Inventory.TrackInventory {
		return true
	}
	return p.Inventory.Count > 0 || p.Inventory.AllowBackorder
}

// Variant returns the variant with the given ID.
func (p *Product) Variant(variantID string) (*Variant, error) {
	for i := range p.Variants {
		if p.Variants[i].ID == variantID {
			return &p.Variants[i], nil
		}
	}
	return nil, errors.Wrapf(ErrVariantNotFound, "%s on product %s", variantID, p.ID)
}

// UnitPrice returns the effective unit price: the variant price when a
// variant is selected, the product price otherwise.
func (p *Product) UnitPrice(variantID string) (decimal.Decimal, error) {
	if variantID == "" {
		return p.Price, nil
	}
	v, err := p.Variant(variantID)
	if err != nil {
		return decimal.Zero, err
	}
	return v.Price, nil
}

// AvailableQuantity returns how many units can be ordered. When inventory is
// untracked or backorders are allowed the quantity is unbounded and the
// second return is false.
func (p *Product) AvailableQuantity(variantID string) (int, bool) {
	if !p.Inventory.TrackInventory || p.Inventory.AllowBackorder {
		return 0, false
	}
	if variantID != "" {
		if v, err := p.Variant(variantID); err == nil {
			return v.InventoryCount, true
		}
		return 0, true
	}
	return p.Inventory.Count, true
}

// PrimaryImage returns the URL of the primary image, or the first image when
// none is flagged, or "" for an imageless product.
func (p *Product) PrimaryImage() string {
	for _, img := range p.Images {
		if img.Primary {
			return img.URL
		}
	}
	if len(p.Images) > 0 {
		return p.Images[0].URL
	}
	return ""
}

// Reservation is a request to decrement tracked stock for one line item.
type Reservation struct {
	ProductID string
	VariantID string
	Quantity  int
}

// Repository defines catalog persistence. Reserve and Release operate on all
// reservations atomically: either every tracked line is decremented or none
// are.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)

	// Reserve decrements tracked inventory for every reservation in a single
	// transaction. Lines whose product is untracked or backorderable are
	// skipped. Returns an *InsufficientStockError naming the first offending
	// product when stock cannot cover a line; no decrement survives a failure.
	Reserve(ctx context.Context, reservations []Reservation) error

	// Release returns previously reserved stock. Best-effort counterpart to
	// Reserve with the same skip rules.
	Release(ctx context.Context, reservations []Reservation) error
}
