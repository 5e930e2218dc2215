package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/booknest/pkg/httpmiddleware"
)

// ResponseCache stores encoded 200 responses by request key.
type ResponseCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, body []byte) error
}

// cacheKey identifies a response. Scheme and host are part of it because
// list responses embed absolute page links.
func cacheKey(r *http.Request) string {
	return requestScheme(r) + "://" + r.Host + r.URL.Path + "?" + r.URL.Query().Encode()
}

// serveCached writes the cached response for r and reports whether there was
// one. Cache failures are logged and treated as misses.
func (h *Handler) serveCached(w http.ResponseWriter, r *http.Request) bool {
	if h.cache == nil {
		return false
	}
	defer httpmiddleware.StartTiming(r.Context(), "cache").Stop()

	body, ok, err := h.cache.Get(r.Context(), cacheKey(r))
	if err != nil {
		zctx.From(r.Context()).Warn("Cache read failed", zap.Error(err))
		return false
	}
	if !ok {
		return false
	}
	w.Header().Set("X-Cache", "HIT")
	writeJSON(w, body)
	return true
}

func (h *Handler) storeCached(r *http.Request, body []byte) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Set(r.Context(), cacheKey(r), body); err != nil {
		zctx.From(r.Context()).Warn("Cache write failed", zap.Error(err))
	}
}

// respond writes body and offers it to the cache.
func (h *Handler) respond(w http.ResponseWriter, r *http.Request, body []byte) {
	h.storeCached(r, body)
	writeJSON(w, body)
}
