package handler

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/booknest/internal/domain/book"
	"github.com/xenking/booknest/pkg/httpmiddleware"
)

// ListBooks serves GET /api/books/books/.
func (h *Handler) ListBooks(w http.ResponseWriter, r *http.Request) {
	params, err := parseListParams(r.URL.Query())
	if err != nil {
		httpmiddleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if h.serveCached(w, r) {
		return
	}

	timing := httpmiddleware.StartTiming(r.Context(), "db")
	books, total, err := h.books.List(r.Context(), params)
	timing.Stop()
	if err != nil {
		h.internalError(w, r, errors.Wrap(err, "list books"))
		return
	}
	if params.Page > 1 && params.Offset() >= total {
		httpmiddleware.WriteError(w, http.StatusNotFound, "invalid page")
		return
	}

	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.ObjStart()
	e.Field("count", func(e *jx.Encoder) { e.Int(total) })
	e.Field("next", func(e *jx.Encoder) {
		if params.Offset()+len(books) < total {
			e.Str(pageLink(r, params.Page+1))
			return
		}
		e.Null()
	})
	e.Field("previous", func(e *jx.Encoder) {
		if params.Page > 1 {
			e.Str(pageLink(r, params.Page-1))
			return
		}
		e.Null()
	})
	e.FieldStart("results")
	e.ArrStart()
	for _, b := range books {
		h.encodeBook(e, b)
	}
	e.ArrEnd()
	e.ObjEnd()

	h.respond(w, r, e.Bytes())
}

// GetBook serves GET /api/books/books/{id}/.
func (h *Handler) GetBook(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		httpmiddleware.WriteError(w, http.StatusNotFound, "book not found")
		return
	}
	if h.serveCached(w, r) {
		return
	}

	timing := httpmiddleware.StartTiming(r.Context(), "db")
	b, err := h.books.GetByID(r.Context(), id)
	timing.Stop()
	if err != nil {
		if errors.Is(err, book.ErrNotFound) {
			httpmiddleware.WriteError(w, http.StatusNotFound, "book not found")
			return
		}
		h.internalError(w, r, errors.Wrap(err, "get book"))
		return
	}

	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	h.encodeBook(e, *b)
	h.respond(w, r, e.Bytes())
}

// ListCategories serves GET /api/books/categories/.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	if h.serveCached(w, r) {
		return
	}

	timing := httpmiddleware.StartTiming(r.Context(), "db")
	cats, err := h.books.Categories(r.Context())
	timing.Stop()
	if err != nil {
		h.internalError(w, r, errors.Wrap(err, "list categories"))
		return
	}

	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	e.ArrStart()
	for _, c := range cats {
		e.Obj(func(e *jx.Encoder) {
			e.Field("slug", func(e *jx.Encoder) { e.Str(c.Slug) })
			e.Field("name", func(e *jx.Encoder) { e.Str(c.Name) })
		})
	}
	e.ArrEnd()
	h.respond(w, r, e.Bytes())
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Error("Request failed", zap.Error(err))
	httpmiddleware.WriteError(w, http.StatusInternalServerError, "internal server error")
}

func writeJSON(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// requestScheme returns the scheme the client used, honoring a proxy's
// X-Forwarded-Proto.
func requestScheme(r *http.Request) string {
	if p := r.Header.Get("X-Forwarded-Proto"); p != "" {
		scheme, _, _ := strings.Cut(p, ",")
		return strings.TrimSpace(scheme)
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

// pageLink returns the absolute URL of the request with page replaced.
func pageLink(r *http.Request, page int) string {
	q := r.URL.Query()
	q.Set("page", strconv.Itoa(page))
	u := url.URL{
		Scheme:   requestScheme(r),
		Host:     r.Host,
		Path:     r.URL.Path,
		RawQuery: q.Encode(),
	}
	return u.String()
}
