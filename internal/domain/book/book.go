package book

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// CategoryAll is the sentinel category slug that selects the whole catalog.
const CategoryAll = "all"

// ErrNotFound is returned when a requested book does not exist.
var ErrNotFound = errors.New("book not found")

// Book is a canonical catalog entry. Values are immutable once loaded.
type Book struct {
	ID            int64
	Title         string
	Author        string
	Category      string
	Price         decimal.Decimal
	OriginalPrice decimal.Decimal
	Rating        float64
	RatingCount   int
	// CoverImageURL is empty when the book has no cover; renderers show Icon instead.
	CoverImageURL string
	Icon          string
	Description   string
}

// HasCover reports whether the book carries a cover image.
func (b Book) HasCover() bool {
	return b.CoverImageURL != ""
}

// Discount returns the display discount percentage for the book.
func (b Book) Discount() int {
	return DiscountPercent(b.OriginalPrice, b.Price)
}

var categoryNames = map[string]string{
	CategoryAll: "Barchasi",
	"klassik":   "Klassik",
	"zamonaviy": "Zamonaviy",
	"yoshlar":   "Yoshlar",
	"texnik":    "Texnik",
	"dostoner":  "Doston",
	"sherlar":   "She'rlar",
}

// CategoryName returns the display name of a category slug, or the slug itself
// when it is unknown.
func CategoryName(slug string) string {
	if name, ok := categoryNames[slug]; ok {
		return name
	}
	return slug
}

// Clone returns a copy of books that does not share the backing array.
func Clone(books []Book) []Book {
	if books == nil {
		return nil
	}
	out := make([]Book, len(books))
	copy(out, books)
	return out
}
