// Package handler serves the catalog HTTP API.
package handler

import (
	"net/http"

	"github.com/xenking/booknest/internal/domain/book"
)

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// MediaBaseURL is prepended to relative cover image paths. When empty,
	// paths are returned as stored.
	MediaBaseURL string
	// Cache, when set, serves repeated reads without touching the store.
	Cache ResponseCache
}

// Handler serves the page-number paginated book list, single books, and
// categories from a book.Store.
type Handler struct {
	books        book.Store
	cache        ResponseCache
	mediaBaseURL string
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig, books book.Store) *Handler {
	return &Handler{
		books:        books,
		cache:        cfg.Cache,
		mediaBaseURL: cfg.MediaBaseURL,
	}
}

// Register mounts the API routes on mux under /api/books/.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/books/books/{$}", h.ListBooks)
	mux.HandleFunc("GET /api/books/books/{id}/{$}", h.GetBook)
	mux.HandleFunc("GET /api/books/categories/{$}", h.ListCategories)
}
