package catalog

import (
	"cmp"
	"slices"
	"strings"

	"github.com/xenking/booknest/internal/domain/book"
)

// FilterByCategory returns the books in the given category. The sentinel
// book.CategoryAll returns all unchanged. An unknown slug yields an empty,
// non-nil result.
func FilterByCategory(all []book.Book, slug string) []book.Book {
	if slug == book.CategoryAll {
		return book.Clone(all)
	}
	out := make([]book.Book, 0)
	for _, b := range all {
		if b.Category == slug {
			out = append(out, b)
		}
	}
	return out
}

// Search returns the books whose title, author, or category contains query,
// ignoring case. Callers reject blank queries before searching.
func Search(all []book.Book, query string) []book.Book {
	q := strings.ToLower(query)
	out := make([]book.Book, 0)
	for _, b := range all {
		if matches(b, q) {
			out = append(out, b)
		}
	}
	return out
}

func matches(b book.Book, lowered string) bool {
	return strings.Contains(strings.ToLower(b.Title), lowered) ||
		strings.Contains(strings.ToLower(b.Author), lowered) ||
		strings.Contains(strings.ToLower(b.Category), lowered)
}

// RankByRating returns a copy of books ordered by rating, highest first.
// Books with equal ratings keep their source order.
func RankByRating(books []book.Book) []book.Book {
	out := book.Clone(books)
	slices.SortStableFunc(out, func(a, b book.Book) int {
		return cmp.Compare(b.Rating, a.Rating)
	})
	return out
}
