// Package category models the hierarchical product category tree.
package category

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a requested category does not exist.
var ErrNotFound = errors.New("category not found")

// Category is a node in the category tree. Level and Path are derived from
// the parent chain at creation time (root categories have level 0 and a path
// equal to their slug). ProductCount is computed at read time from the active
// products in the category.
type Category struct {
	ID           string
	Name         string
	Slug         string
	ParentID     string
	Level        int
	Path         string
	ProductCount int
}

// Repository defines persistence for the category tree.
type Repository interface {
	List(ctx context.Context) ([]Category, error)
	GetByID(ctx context.Context, id string) (*Category, error)

	// Create inserts a category, deriving Level and Path from the parent
	// chain. A missing parent yields ErrNotFound.
	Create(ctx context.Context, c *Category) error
}
