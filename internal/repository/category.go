package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-api/internal/domain/category"
)

const (
	listCategoriesSQL = `SELECT c.id, c.name, c.slug, COALESCE(c.parent_id, ''), c.level, c.path,
		COUNT(p.id) FILTER (WHERE p.active)
		FROM categories c LEFT JOIN products p ON p.category_id = c.id
		GROUP BY c.id ORDER BY c.path`

	getCategoryByIDSQL = `SELECT c.id, c.name, c.slug, COALESCE(c.parent_id, ''), c.level, c.path,
		COUNT(p.id) FILTER (WHERE p.active)
		FROM categories c LEFT JOIN products p ON p.category_id = c.id
		WHERE c.id = $1 GROUP BY c.id`

	getCategoryPathSQL = `SELECT level, path FROM categories WHERE id = $1`

	insertCategorySQL = `INSERT INTO categories (id, name, slug, parent_id, level, path)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)`
)

var _ category.Repository = (*CategoryRepository)(nil)

// CategoryRepository implements category.Repository backed by PostgreSQL.
type CategoryRepository struct {
	pool *pgxpool.Pool
}

// NewCategoryRepository returns a CategoryRepository that uses the given pool.
func NewCategoryRepository(pool *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{pool: pool}
}

// List returns every category with its active product count, ordered by path
// so parents precede their children.
func (r *CategoryRepository) List(ctx context.Context) ([]category.Category, error) {
	rows, err := r.pool.Query(ctx, listCategoriesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return pgx.CollectRows(rows, scanCategory)
}

// GetByID returns a single category by its identifier.
func (r *CategoryRepository) GetByID(ctx context.Context, id string) (*category.Category, error) {
	rows, err := r.pool.Query(ctx, getCategoryByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting category %q: %w", id, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCategory)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, category.ErrNotFound
		}
		return nil, fmt.Errorf("getting category %q: %w", id, err)
	}
	return &c, nil
}

// Create inserts a category, deriving Level and Path from the parent chain.
func (r *CategoryRepository) Create(ctx context.Context, c *category.Category) error {
	c.Level = 0
	c.Path = c.Slug

	if c.ParentID != "" {
		var parentLevel int
		var parentPath string
		err := r.pool.QueryRow(ctx, getCategoryPathSQL, c.ParentID).Scan(&parentLevel, &parentPath)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return category.ErrNotFound
			}
			return fmt.Errorf("getting parent category %q: %w", c.ParentID, err)
		}
		c.Level = parentLevel + 1
		c.Path = parentPath + "/" + c.Slug
	}

	_, err := r.pool.Exec(ctx, insertCategorySQL, c.ID, c.Name, c.Slug, c.ParentID, c.Level, c.Path)
	if err != nil {
		return fmt.Errorf("creating category %q: %w", c.ID, err)
	}
	return nil
}

func scanCategory(row pgx.CollectableRow) (category.Category, error) {
	var c category.Category
	err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.ParentID, &c.Level, &c.Path, &c.ProductCount)
	return c, err
}
