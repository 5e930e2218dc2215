package book

import (
	"context"
	"slices"
)

// Orderings accepted by Store.List.
const (
	OrderCreatedDesc = "-created_at"
	OrderRatingDesc  = "-rating"
	OrderRatingAsc   = "rating"
	OrderPriceAsc    = "price"
	OrderPriceDesc   = "-price"
	OrderTitleAsc    = "title"
)

var orderings = []string{
	OrderCreatedDesc,
	OrderRatingDesc,
	OrderRatingAsc,
	OrderPriceAsc,
	OrderPriceDesc,
	OrderTitleAsc,
}

// ValidOrdering reports whether s is an ordering Store.List understands.
func ValidOrdering(s string) bool {
	return slices.Contains(orderings, s)
}

// Page size bounds for Store.List.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ListParams selects a page of the stored catalog.
type ListParams struct {
	// Page is 1-based.
	Page     int
	PageSize int
	Ordering string
	// Search matches title, author, or description, case-insensitively.
	Search string
	// Category is a slug; empty or CategoryAll means every category.
	Category string
}

// Offset returns the number of rows preceding the page.
func (p ListParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Category is a catalog category.
type Category struct {
	Slug string
	Name string
}

// Store is the persistent catalog served by the API.
type Store interface {
	// List returns the requested page and the total number of matching books.
	List(ctx context.Context, p ListParams) ([]Book, int, error)
	// GetByID returns ErrNotFound when no book has the id.
	GetByID(ctx context.Context, id int64) (*Book, error)
	Categories(ctx context.Context) ([]Category, error)
	Upsert(ctx context.Context, books []Book) error
}
