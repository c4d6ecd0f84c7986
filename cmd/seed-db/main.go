// Command seed-db populates the database with sample catalog data, the
// built-in coupons, and API keys for local development and integration tests.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-api/internal/domain/coupon"
	"github.com/xenking/storefront-api/internal/handler"
	"github.com/xenking/storefront-api/internal/repository"
)

type catalogJSON struct {
	Categories []categoryJSON `json:"categories"`
	Products   []productJSON  `json:"products"`
}

type categoryJSON struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	ParentID string `json:"parentId"`
	Level    int    `json:"level"`
	Path     string `json:"path"`
}

type productJSON struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Slug           string           `json:"slug"`
	Description    string           `json:"description"`
	Price          decimal.Decimal  `json:"price"`
	CompareAtPrice *decimal.Decimal `json:"compareAtPrice"`
	CategoryID     string           `json:"categoryId"`
	Active         *bool            `json:"active"`
	InventoryCount int              `json:"inventoryCount"`
	TrackInventory *bool            `json:"trackInventory"`
	AllowBackorder bool             `json:"allowBackorder"`
	Images         []imageJSON      `json:"images"`
	Variants       []variantJSON    `json:"variants"`
}

type imageJSON struct {
	URL       string `json:"url"`
	Alt       string `json:"alt"`
	IsPrimary bool   `json:"isPrimary"`
}

type variantJSON struct {
	ID             string          `json:"id"`
	SKU            string          `json:"sku"`
	Name           string          `json:"name"`
	Price          decimal.Decimal `json:"price"`
	InventoryCount int             `json:"inventoryCount"`
}

func main() {
	var (
		databaseURL  string
		catalogFile  string
		customerKey  string
		adminKey     string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog-file", "db/seed/catalog.json", "path to catalog JSON file")
	flag.StringVar(&customerKey, "customer-key", "", "customer API key to seed (or STOREFRONT_SEED_CUSTOMER_KEY env)")
	flag.StringVar(&adminKey, "admin-key", "", "admin API key to seed (or STOREFRONT_SEED_ADMIN_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or STOREFRONT_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if customerKey == "" {
		customerKey = os.Getenv("STOREFRONT_SEED_CUSTOMER_KEY")
	}
	if adminKey == "" {
		adminKey = os.Getenv("STOREFRONT_SEED_ADMIN_KEY")
	}
	if customerKey == "" || adminKey == "" {
		slog.Error("API keys are required: set --customer-key/--admin-key or the STOREFRONT_SEED_* envs")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("STOREFRONT_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, catalogFile, customerKey, adminKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, catalogFile, customerKey, adminKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedCatalog(ctx, pool, catalogFile); err != nil {
		return errors.Wrap(err, "seed catalog")
	}

	if err := seedCoupons(ctx, pool); err != nil {
		return errors.Wrap(err, "seed coupons")
	}

	if err := seedAPIKeys(ctx, pool, customerKey, adminKey, pepper); err != nil {
		return errors.Wrap(err, "seed api keys")
	}

	return nil
}

func seedCatalog(ctx context.Context, pool *pgxpool.Pool, catalogFile string) error {
	slog.Info("reading catalog file", slog.String("path", catalogFile))

	data, err := os.ReadFile(catalogFile)
	if err != nil {
		return errors.Wrap(err, "read catalog file")
	}

	var catalog catalogJSON
	if err := json.Unmarshal(data, &catalog); err != nil {
		return errors.Wrap(err, "parse catalog JSON")
	}

	slog.Info("upserting categories", slog.Int("count", len(catalog.Categories)))

	const upsertCategory = `
INSERT INTO categories (id, name, slug, parent_id, level, path)
VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)
ON CONFLICT (id) DO UPDATE SET
    name = EXCLUDED.name, slug = EXCLUDED.slug, parent_id = EXCLUDED.parent_id,
    level = EXCLUDED.level, path = EXCLUDED.path`

	for _, c := range catalog.Categories {
		if _, err := pool.Exec(ctx, upsertCategory, c.ID, c.Name, c.Slug, c.ParentID, c.Level, c.Path); err != nil {
			return errors.Wrapf(err, "upsert category %s", c.ID)
		}
	}

	slog.Info("upserting products", slog.Int("count", len(catalog.Products)))

	const upsertProduct = `
INSERT INTO products (id, name, slug, description, price, compare_at_price, category_id,
                      active, inventory_count, track_inventory, allow_backorder)
VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, $10, $11)
ON CONFLICT (id) DO UPDATE SET
    name = EXCLUDED.name, slug = EXCLUDED.slug, description = EXCLUDED.description,
    price = EXCLUDED.price, compare_at_price = EXCLUDED.compare_at_price,
    category_id = EXCLUDED.category_id, active = EXCLUDED.active,
    inventory_count = EXCLUDED.inventory_count, track_inventory = EXCLUDED.track_inventory,
    allow_backorder = EXCLUDED.allow_backorder`

	const upsertImage = `
INSERT INTO product_images (product_id, url, alt, is_primary, position)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (product_id, position) DO UPDATE SET
    url = EXCLUDED.url, alt = EXCLUDED.alt, is_primary = EXCLUDED.is_primary`

	const upsertVariant = `
INSERT INTO product_variants (id, product_id, sku, name, price, inventory_count)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET
    sku = EXCLUDED.sku, name = EXCLUDED.name, price = EXCLUDED.price,
    inventory_count = EXCLUDED.inventory_count`

	for _, p := range catalog.Products {
		active := p.Active == nil || *p.Active
		track := p.TrackInventory == nil || *p.TrackInventory

		if _, err := pool.Exec(ctx, upsertProduct,
			p.ID, p.Name, p.Slug, p.Description, p.Price, p.CompareAtPrice, p.CategoryID,
			active, p.InventoryCount, track, p.AllowBackorder,
		); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}

		for i, img := range p.Images {
			if _, err := pool.Exec(ctx, upsertImage, p.ID, img.URL, img.Alt, img.IsPrimary, i); err != nil {
				return errors.Wrapf(err, "upsert image %d for product %s", i, p.ID)
			}
		}
		for _, v := range p.Variants {
			if _, err := pool.Exec(ctx, upsertVariant, v.ID, p.ID, v.SKU, v.Name, v.Price, v.InventoryCount); err != nil {
				return errors.Wrapf(err, "upsert variant %s", v.ID)
			}
		}

		slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name))
	}

	return nil
}

func seedCoupons(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding built-in coupons")

	const upsertCoupon = `
INSERT INTO coupons (code, discount_type, value, min_subtotal, description, active)
VALUES ($1, $2, $3, $4, $5, TRUE)
ON CONFLICT (code) DO UPDATE SET
    discount_type = EXCLUDED.discount_type, value = EXCLUDED.value,
    min_subtotal = EXCLUDED.min_subtotal, description = EXCLUDED.description,
    active = TRUE`

	for _, r := range coupon.DefaultRules() {
		if _, err := pool.Exec(ctx, upsertCoupon, r.Code, string(r.Type), r.Value, r.MinSubtotal, r.Description); err != nil {
			return errors.Wrapf(err, "upsert coupon %s", r.Code)
		}

		slog.Info("upserted coupon", slog.String("code", r.Code), slog.String("description", r.Description))
	}

	return nil
}

func seedAPIKeys(ctx context.Context, pool *pgxpool.Pool, customerKey, adminKey, pepper string) error {
	slog.Info("seeding API keys")

	const upsertAPIKey = `
INSERT INTO api_keys (id, user_id, key_hash, name, scopes, active)
VALUES ($1, $2, $3, $4, $5, TRUE)
ON CONFLICT (id) DO UPDATE SET
    user_id = EXCLUDED.user_id, key_hash = EXCLUDED.key_hash,
    name = EXCLUDED.name, scopes = EXCLUDED.scopes, active = TRUE`

	keys := []struct {
		id     string
		userID string
		key    string
		name   string
		scopes []string
	}{
		{"seed-customer", "user-seed-customer", customerKey, "Seed customer key", []string{"customer"}},
		{"seed-admin", "user-seed-admin", adminKey, "Seed admin key", []string{"customer", "admin"}},
	}

	for _, k := range keys {
		hash := handler.HashKey(k.key, []byte(pepper))
		if _, err := pool.Exec(ctx, upsertAPIKey, k.id, k.userID, hash, k.name, k.scopes); err != nil {
			return errors.Wrapf(err, "upsert API key %s", k.id)
		}

		slog.Info("upserted API key", slog.String("id", k.id), slog.String("name", k.name))
	}

	return nil
}
