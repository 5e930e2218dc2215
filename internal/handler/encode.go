package handler

import (
	"strings"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/booknest/internal/domain/book"
)

// encodeBook writes b in the catalog wire schema: prices as two-place
// decimal strings, nested author and category objects, and null for absent
// optional values.
func (h *Handler) encodeBook(e *jx.Encoder, b book.Book) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int64(b.ID) })
		e.Field("title", func(e *jx.Encoder) { e.Str(b.Title) })
		e.Field("author", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("name", func(e *jx.Encoder) { e.Str(b.Author) })
			})
		})
		e.Field("category", func(e *jx.Encoder) {
			if b.Category == "" {
				e.Null()
				return
			}
			e.Obj(func(e *jx.Encoder) {
				e.Field("slug", func(e *jx.Encoder) { e.Str(b.Category) })
				e.Field("name", func(e *jx.Encoder) { e.Str(book.CategoryName(b.Category)) })
			})
		})
		e.Field("price", func(e *jx.Encoder) { e.Str(b.Price.StringFixed(2)) })
		e.Field("discount_price", func(e *jx.Encoder) {
			if !b.OriginalPrice.IsPositive() {
				e.Null()
				return
			}
			e.Str(b.OriginalPrice.StringFixed(2))
		})
		e.Field("discount_percentage", func(e *jx.Encoder) { e.Int(b.Discount()) })
		e.Field("rating", func(e *jx.Encoder) { e.Str(decimal.NewFromFloat(b.Rating).StringFixed(1)) })
		e.Field("review_count", func(e *jx.Encoder) { e.Int(b.RatingCount) })
		e.Field("cover_image", func(e *jx.Encoder) {
			if b.CoverImageURL == "" {
				e.Null()
				return
			}
			e.Str(h.coverURL(b.CoverImageURL))
		})
		e.Field("icon", func(e *jx.Encoder) { e.Str(b.Icon) })
		e.Field("description", func(e *jx.Encoder) { e.Str(b.Description) })
	})
}

func (h *Handler) coverURL(p string) string {
	if h.mediaBaseURL == "" || strings.Contains(p, "://") {
		return p
	}
	return strings.TrimRight(h.mediaBaseURL, "/") + "/" + strings.TrimLeft(p, "/")
}
