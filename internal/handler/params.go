package handler

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/go-faster/errors"

	"github.com/xenking/booknest/internal/domain/book"
)

// parseListParams validates the book list query string.
func parseListParams(q url.Values) (book.ListParams, error) {
	p := book.ListParams{
		Page:     1,
		PageSize: book.DefaultPageSize,
		Ordering: book.OrderCreatedDesc,
		Search:   strings.TrimSpace(q.Get("search")),
		Category: strings.TrimSpace(q.Get("category")),
	}

	if s := q.Get("page"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return p, errors.Errorf("invalid page %q", s)
		}
		p.Page = n
	}
	if s := q.Get("page_size"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > book.MaxPageSize {
			return p, errors.Errorf("page_size must be between 1 and %d", book.MaxPageSize)
		}
		p.PageSize = n
	}
	if s := q.Get("ordering"); s != "" {
		if !book.ValidOrdering(s) {
			return p, errors.Errorf("unsupported ordering %q", s)
		}
		p.Ordering = s
	}
	return p, nil
}
