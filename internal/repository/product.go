package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-api/internal/domain/product"
)

const (
	listProductsSQL = `SELECT id, name, slug, description, price, compare_at_price, COALESCE(category_id, '') AS category_id, active,
		inventory_count, track_inventory, allow_backorder, low_stock_threshold, created_at
		FROM products ORDER BY id`

	getProductByIDSQL = `SELECT id, name, slug, description, price, compare_at_price, COALESCE(category_id, '') AS category_id, active,
		inventory_count, track_inventory, allow_backorder, low_stock_threshold, created_at
		FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT id, name, slug, description, price, compare_at_price, COALESCE(category_id, '') AS category_id, active,
		inventory_count, track_inventory, allow_backorder, low_stock_threshold, created_at
		FROM products WHERE id = ANY($1)`

	listImagesSQL = `SELECT product_id, url, alt, is_primary
		FROM product_images WHERE product_id = ANY($1) ORDER BY product_id, position`

	listVariantsSQL = `SELECT id, product_id, sku, name, price, inventory_count
		FROM product_variants WHERE product_id = ANY($1) ORDER BY product_id, sku`

	// Conditional decrements: the WHERE clause refuses to go below zero, so a
	// zero rows-affected result means insufficient stock.
	reserveProductSQL = `UPDATE products SET inventory_count = inventory_count - $2
		WHERE id = $1 AND track_inventory AND NOT allow_backorder AND inventory_count >= $2`

	reserveVariantSQL = `UPDATE product_variants SET inventory_count = inventory_count - $3
		WHERE id = $1 AND product_id = $2 AND inventory_count >= $3`

	releaseProductSQL = `UPDATE products SET inventory_count = inventory_count + $2
		WHERE id = $1 AND track_inventory AND NOT allow_backorder`

	releaseVariantSQL = `UPDATE product_variants v SET inventory_count = v.inventory_count + $3
		FROM products p
		WHERE v.id = $1 AND v.product_id = $2 AND p.id = v.product_id
			AND p.track_inventory AND NOT p.allow_backorder`

	productStockSQL = `SELECT name, inventory_count, track_inventory, allow_backorder
		FROM products WHERE id = $1 FOR UPDATE`

	variantStockSQL = `SELECT p.name, v.inventory_count, p.track_inventory, p.allow_backorder
		FROM product_variants v JOIN products p ON p.id = v.product_id
		WHERE v.id = $1 AND v.product_id = $2 FOR UPDATE`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns the whole catalog ordered by ID, with images and variants
// attached.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}

	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	if err := r.attach(ctx, products); err != nil {
		return nil, err
	}
	return products, nil
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	products := []product.Product{p}
	if err := r.attach(ctx, products); err != nil {
		return nil, err
	}
	return &products[0], nil
}

// GetByIDs returns products matching any of the given IDs.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}

	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	if err := r.attach(ctx, products); err != nil {
		return nil, err
	}
	return products, nil
}

// Reserve decrements tracked inventory for every reservation in one
// transaction. Rows are locked before the check so concurrent checkouts
// cannot both pass on the same stock. Untracked and backorderable products
// are skipped. Any shortage rolls the whole transaction back.
func (r *ProductRepository) Reserve(ctx context.Context, reservations []product.Reservation) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for _, res := range reservations {
			if err := reserveOne(ctx, tx, res); err != nil {
				return err
			}
		}
		return nil
	})
}

func reserveOne(ctx context.Context, tx pgx.Tx, res product.Reservation) error {
	var (
		name           string
		count          int
		trackInventory bool
		allowBackorder bool
		err            error
	)
	if res.VariantID != "" {
		err = tx.QueryRow(ctx, variantStockSQL, res.VariantID, res.ProductID).
			Scan(&name, &count, &trackInventory, &allowBackorder)
	} else {
		err = tx.QueryRow(ctx, productStockSQL, res.ProductID).
			Scan(&name, &count, &trackInventory, &allowBackorder)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return product.ErrNotFound
		}
		return fmt.Errorf("locking stock for product %q: %w", res.ProductID, err)
	}

	if !trackInventory || allowBackorder {
		return nil
	}
	if count < res.Quantity {
		return &product.InsufficientStockError{
			ProductID: res.ProductID,
			Name:      name,
			Requested: res.Quantity,
			Available: count,
		}
	}

	var tag pgconn.CommandTag
	if res.VariantID != "" {
		tag, err = tx.Exec(ctx, reserveVariantSQL, res.VariantID, res.ProductID, res.Quantity)
	} else {
		tag, err = tx.Exec(ctx, reserveProductSQL, res.ProductID, res.Quantity)
	}
	if err != nil {
		return fmt.Errorf("reserving stock for product %q: %w", res.ProductID, err)
	}
	if tag.RowsAffected() == 0 {
		// The row was locked above, so this only happens on a logic error.
		return fmt.Errorf("reserving stock for product %q: no rows updated", res.ProductID)
	}
	return nil
}

// Release returns previously reserved stock, mirroring Reserve's skip rules.
func (r *ProductRepository) Release(ctx context.Context, reservations []product.Reservation) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for _, res := range reservations {
			var err error
			if res.VariantID != "" {
				_, err = tx.Exec(ctx, releaseVariantSQL, res.VariantID, res.ProductID, res.Quantity)
			} else {
				_, err = tx.Exec(ctx, releaseProductSQL, res.ProductID, res.Quantity)
			}
			if err != nil {
				return fmt.Errorf("releasing stock for product %q: %w", res.ProductID, err)
			}
		}
		return nil
	})
}

// attach loads images and variants for the given products in two queries.
func (r *ProductRepository) attach(ctx context.Context, products []product.Product) error {
	if len(products) == 0 {
		return nil
	}

	ids := make([]string, len(products))
	index := make(map[string]*product.Product, len(products))
	for i := range products {
		ids[i] = products[i].ID
		index[products[i].ID] = &products[i]
	}

	imgRows, err := r.pool.Query(ctx, listImagesSQL, ids)
	if err != nil {
		return fmt.Errorf("listing product images: %w", err)
	}
	images, err := pgx.CollectRows(imgRows, func(row pgx.CollectableRow) (productImage, error) {
		var img productImage
		err := row.Scan(&img.ProductID, &img.URL, &img.Alt, &img.Primary)
		return img, err
	})
	if err != nil {
		return fmt.Errorf("listing product images: %w", err)
	}
	for _, img := range images {
		if p, ok := index[img.ProductID]; ok {
			p.Images = append(p.Images, product.Image{URL: img.URL, Alt: img.Alt, Primary: img.Primary})
		}
	}

	varRows, err := r.pool.Query(ctx, listVariantsSQL, ids)
	if err != nil {
		return fmt.Errorf("listing product variants: %w", err)
	}
	variants, err := pgx.CollectRows(varRows, func(row pgx.CollectableRow) (productVariant, error) {
		var v productVariant
		err := row.Scan(&v.ID, &v.ProductID, &v.SKU, &v.Name, &v.Price, &v.InventoryCount)
		return v, err
	})
	if err != nil {
		return fmt.Errorf("listing product variants: %w", err)
	}
	for _, v := range variants {
		if p, ok := index[v.ProductID]; ok {
			p.Variants = append(p.Variants, product.Variant{
				ID:             v.ID,
				SKU:            v.SKU,
				Name:           v.Name,
				Price:          v.Price,
				InventoryCount: v.InventoryCount,
			})
		}
	}

	return nil
}

type productImage struct {
	ProductID string
	URL       string
	Alt       string
	Primary   bool
}

type productVariant struct {
	ID             string
	ProductID      string
	SKU            string
	Name           string
	Price          decimal.Decimal
	InventoryCount int
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Slug, &p.Description, &p.Price, &p.CompareAtPrice,
		&p.CategoryID, &p.Active,
		&p.Inventory.Count, &p.Inventory.TrackInventory,
		&p.Inventory.AllowBackorder, &p.Inventory.LowStockThreshold,
		&p.CreatedAt,
	)
	return p, err
}
