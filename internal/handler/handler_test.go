package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/booknest/internal/client/booknest"
	"github.com/xenking/booknest/internal/domain/book"
	"github.com/xenking/booknest/internal/domain/catalog"
	"github.com/xenking/booknest/internal/storefront"
)

// --- Mock implementations ---

// memoryStore keeps books in seed order and supports the orderings the
// tests use.
type memoryStore struct {
	books   []book.Book
	listErr error
	last    book.ListParams
}

func (m *memoryStore) List(_ context.Context, p book.ListParams) ([]book.Book, int, error) {
	m.last = p
	if m.listErr != nil {
		return nil, 0, m.listErr
	}

	matched := catalog.FilterByCategory(m.books, cmpOr(p.Category, book.CategoryAll))
	if p.Search != "" {
		matched = catalog.Search(matched, strings.ToLower(p.Search))
	}
	if p.Ordering == book.OrderRatingDesc {
		matched = catalog.RankByRating(matched)
	}

	total := len(matched)
	start := min(p.Offset(), total)
	end := min(start+p.PageSize, total)
	return slices.Clone(matched[start:end]), total, nil
}

func (m *memoryStore) GetByID(_ context.Context, id int64) (*book.Book, error) {
	for _, b := range m.books {
		if b.ID == id {
			return &b, nil
		}
	}
	return nil, book.ErrNotFound
}

func (m *memoryStore) Categories(context.Context) ([]book.Category, error) {
	return []book.Category{{Slug: "klassik", Name: "Klassik"}}, nil
}

func (m *memoryStore) Upsert(context.Context, []book.Book) error { return nil }

func cmpOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

type memoryCache struct {
	mu     sync.Mutex
	bodies map[string][]byte
	err    error
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, false, c.err
	}
	body, ok := c.bodies[key]
	return body, ok, nil
}

func (c *memoryCache) Set(_ context.Context, key string, body []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	if c.bodies == nil {
		c.bodies = make(map[string][]byte)
	}
	c.bodies[key] = slices.Clone(body)
	return nil
}

// --- Helpers ---

type listBody struct {
	Count    int               `json:"count"`
	Next     *string           `json:"next"`
	Previous *string           `json:"previous"`
	Results  []json.RawMessage `json:"results"`
}

type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func newTestServer(t *testing.T, store book.Store) *httptest.Server {
	t.Helper()
	return newCachedTestServer(t, store, nil)
}

func newCachedTestServer(t *testing.T, store book.Store, cache ResponseCache) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	NewHandler(HandlerConfig{MediaBaseURL: "https://cdn.booknest.uz", Cache: cache}, store).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, srv *httptest.Server, path string) (int, []byte) {
	t.Helper()
	resp, err := srv.Client().Get(srv.URL + path)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, []byte(buf.String())
}

// --- Tests ---

func TestListBooks_Pagination(t *testing.T) {
	srv := newTestServer(t, &memoryStore{books: book.Seed()})

	code, raw := get(t, srv, "/api/books/books/?page_size=4")
	require.Equal(t, http.StatusOK, code)

	var body listBody
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, 6, body.Count)
	assert.Len(t, body.Results, 4)
	require.NotNil(t, body.Next)
	assert.Contains(t, *body.Next, "page=2")
	assert.Contains(t, *body.Next, "page_size=4")
	assert.Nil(t, body.Previous)

	code, raw = get(t, srv, "/api/books/books/?page_size=4&page=2")
	require.Equal(t, http.StatusOK, code)
	body = listBody{}
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Len(t, body.Results, 2)
	assert.Nil(t, body.Next)
	require.NotNil(t, body.Previous)
	assert.Contains(t, *body.Previous, "page=1")
}

func TestListBooks_BookShape(t *testing.T) {
	b := book.Seed()[0]
	b.CoverImageURL = "/covers/otgan.jpg"
	srv := newTestServer(t, &memoryStore{books: []book.Book{b}})

	code, raw := get(t, srv, "/api/books/books/")
	require.Equal(t, http.StatusOK, code)

	var body listBody
	require.NoError(t, json.Unmarshal(raw, &body))
	require.Len(t, body.Results, 1)
	assert.JSONEq(t, `{
		"id": 1,
		"title": "O'tgan kunlar",
		"author": {"name": "Abdulla Qodiriy"},
		"category": {"slug": "klassik", "name": "Klassik"},
		"price": "45000.00",
		"discount_price": "60000.00",
		"discount_percentage": 25,
		"rating": "4.8",
		"review_count": 256,
		"cover_image": "https://cdn.booknest.uz/covers/otgan.jpg",
		"icon": "📚",
		"description": "O'zbek adabiyotining bepul klassikasi"
	}`, string(body.Results[0]))
}

func TestListBooks_Params(t *testing.T) {
	store := &memoryStore{books: book.Seed()}
	srv := newTestServer(t, store)

	code, _ := get(t, srv, "/api/books/books/?ordering=-rating&page_size=5&category=klassik&search=%20qodiriy%20")
	require.Equal(t, http.StatusOK, code)

	assert.Equal(t, book.ListParams{
		Page:     1,
		PageSize: 5,
		Ordering: book.OrderRatingDesc,
		Search:   "qodiriy",
		Category: "klassik",
	}, store.last)
}

func TestListBooks_BadParams(t *testing.T) {
	srv := newTestServer(t, &memoryStore{books: book.Seed()})

	for _, q := range []string{
		"page=0",
		"page=abc",
		"page_size=0",
		"page_size=101",
		"ordering=stock",
	} {
		t.Run(q, func(t *testing.T) {
			code, raw := get(t, srv, "/api/books/books/?"+q)
			assert.Equal(t, http.StatusBadRequest, code)

			var body errorBody
			require.NoError(t, json.Unmarshal(raw, &body))
			assert.Equal(t, http.StatusBadRequest, body.Code)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestListBooks_PagePastEnd(t *testing.T) {
	srv := newTestServer(t, &memoryStore{books: book.Seed()})

	code, _ := get(t, srv, "/api/books/books/?page=3")

	assert.Equal(t, http.StatusNotFound, code)
}

func TestListBooks_EmptyFirstPage(t *testing.T) {
	srv := newTestServer(t, &memoryStore{})

	code, raw := get(t, srv, "/api/books/books/")

	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"count":0,"next":null,"previous":null,"results":[]}`, string(raw))
}

func TestListBooks_StoreError(t *testing.T) {
	srv := newTestServer(t, &memoryStore{listErr: errors.New("db down")})

	code, raw := get(t, srv, "/api/books/books/")

	assert.Equal(t, http.StatusInternalServerError, code)
	assert.JSONEq(t, `{"code":500,"message":"internal server error"}`, string(raw))
}

func TestGetBook(t *testing.T) {
	srv := newTestServer(t, &memoryStore{books: book.Seed()})

	code, raw := get(t, srv, "/api/books/books/2/")
	require.Equal(t, http.StatusOK, code)
	var b struct {
		ID    int64  `json:"id"`
		Title string `json:"title"`
	}
	require.NoError(t, json.Unmarshal(raw, &b))
	assert.Equal(t, int64(2), b.ID)
	assert.Equal(t, "Alpomish", b.Title)

	for _, path := range []string{"/api/books/books/99/", "/api/books/books/abc/"} {
		code, raw = get(t, srv, path)
		assert.Equal(t, http.StatusNotFound, code, path)
		assert.JSONEq(t, `{"code":404,"message":"book not found"}`, string(raw))
	}
}

func TestListCategories(t *testing.T) {
	srv := newTestServer(t, &memoryStore{})

	code, raw := get(t, srv, "/api/books/categories/")

	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[{"slug":"klassik","name":"Klassik"}]`, string(raw))
}

func TestResponseCache(t *testing.T) {
	store := &memoryStore{books: book.Seed()}
	cache := &memoryCache{}
	srv := newCachedTestServer(t, store, cache)

	code, first := get(t, srv, "/api/books/books/?page_size=2")
	require.Equal(t, http.StatusOK, code)
	require.Len(t, cache.bodies, 1)

	store.books = nil
	code, second := get(t, srv, "/api/books/books/?page_size=2")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, string(first), string(second))

	// Errors are not cached.
	code, _ = get(t, srv, "/api/books/books/99/")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Len(t, cache.bodies, 1)
}

func TestResponseCache_FailureIsMiss(t *testing.T) {
	cache := &memoryCache{err: errors.New("redis down")}
	srv := newCachedTestServer(t, &memoryStore{books: book.Seed()}, cache)

	code, raw := get(t, srv, "/api/books/books/1/")

	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(raw), "O'tgan kunlar")
}

// The storefront reading this API through the HTTP client sees exactly the
// stored catalog, pages through it, and ranks bestsellers remotely.
func TestStorefrontOverAPI(t *testing.T) {
	srv := newTestServer(t, &memoryStore{books: book.Seed()})

	client, err := booknest.New(srv.URL+"/api", booknest.Options{})
	require.NoError(t, err)
	repo, err := catalog.NewRepository(client, book.NewNormalizer(srv.URL))
	require.NoError(t, err)

	first := repo.Load(context.Background())
	require.False(t, first.Fallback)
	require.Len(t, first.Books, 6)
	assert.Empty(t, first.Next)
	assert.Equal(t, "Alpomish", first.Books[1].Title)
	assert.Equal(t, 25, first.Books[0].Discount())

	sf := storefront.New(repo)
	require.True(t, sf.Init(context.Background()))
	assert.False(t, sf.Fallback())

	top := sf.RequestTopBestsellers(context.Background(), 2)
	require.Len(t, top, 2)
	assert.Equal(t, []int64{2, 3}, []int64{top[0].ID, top[1].ID})

	_, err = sf.RequestLoadMore(context.Background())
	assert.ErrorIs(t, err, catalog.ErrNoMorePages)
}
