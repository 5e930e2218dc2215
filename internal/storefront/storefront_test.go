package storefront

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/booknest/internal/domain/book"
	"github.com/xenking/booknest/internal/domain/catalog"
)

// --- Mock implementations ---

type mockCatalog struct {
	first   catalog.Page
	pages   map[string]catalog.Page
	pageErr error
	ranked  []book.Book
	rankErr error
}

func (m *mockCatalog) Load(_ context.Context) catalog.Page {
	return m.first
}

func (m *mockCatalog) LoadPage(_ context.Context, token string) (catalog.Page, error) {
	if m.pageErr != nil {
		return catalog.Page{}, m.pageErr
	}
	return m.pages[token], nil
}

func (m *mockCatalog) Ranked(_ context.Context, _ string, _ int) ([]book.Book, error) {
	return m.ranked, m.rankErr
}

type recordingRenderer struct {
	titles      []string
	catalogs    [][]ViewModel
	bestsellers [][]ViewModel
	badges      []Badges
	notices     []string
}

func (r *recordingRenderer) RenderCatalog(title string, books []ViewModel) error {
	r.titles = append(r.titles, title)
	r.catalogs = append(r.catalogs, books)
	return nil
}

func (r *recordingRenderer) RenderBestsellers(books []ViewModel) error {
	r.bestsellers = append(r.bestsellers, books)
	return nil
}

func (r *recordingRenderer) RenderBadges(b Badges) error {
	r.badges = append(r.badges, b)
	return nil
}

func (r *recordingRenderer) Notify(msg string) error {
	r.notices = append(r.notices, msg)
	return nil
}

func (r *recordingRenderer) lastCatalog() []ViewModel {
	return r.catalogs[len(r.catalogs)-1]
}

// --- Helpers ---

func seedCatalog() *mockCatalog {
	return &mockCatalog{first: catalog.Page{Books: book.Seed(), Fallback: true}}
}

func ids(books []book.Book) []int64 {
	out := make([]int64, len(books))
	for i, b := range books {
		out[i] = b.ID
	}
	return out
}

// --- Tests ---

func TestInit_RendersLoadedCatalog(t *testing.T) {
	r := &recordingRenderer{}
	s := New(seedCatalog(), WithRenderer(r))

	require.True(t, s.Init(context.Background()))

	assert.Equal(t, catalog.StateLoaded, s.State())
	assert.True(t, s.Fallback())
	assert.False(t, s.HasMore())
	assert.Len(t, s.Filtered(), 6)
	require.Len(t, r.catalogs, 1)
	assert.Equal(t, "Barchasi", r.titles[0])
	assert.Equal(t, Badges{}, r.badges[0])
}

func TestSelectCategoryAndSearch(t *testing.T) {
	r := &recordingRenderer{}
	s := New(seedCatalog(), WithRenderer(r))
	s.Init(context.Background())

	got := s.SelectCategory("dostoner")
	assert.Equal(t, []int64{2}, ids(got))
	assert.Equal(t, "Doston", r.titles[len(r.titles)-1])
	assert.Equal(t, catalog.StateFiltered, s.State())

	got, ok := s.SubmitSearch("  XAMSA ")
	require.True(t, ok)
	assert.Equal(t, []int64{3}, ids(got))
	assert.Equal(t, []int64{3}, ids(s.Filtered()))
	assert.Contains(t, r.notices[len(r.notices)-1], "1 ta kitob topildi")

	got = s.SelectCategory(book.CategoryAll)
	assert.Len(t, got, 6)
}

func TestSubmitSearch_BlankIsNoop(t *testing.T) {
	r := &recordingRenderer{}
	s := New(seedCatalog(), WithRenderer(r))
	s.Init(context.Background())
	s.SelectCategory("klassik")
	renders := len(r.catalogs)

	got, ok := s.SubmitSearch("   ")

	assert.False(t, ok)
	assert.Nil(t, got)
	assert.Equal(t, []int64{1}, ids(s.Filtered()))
	assert.Len(t, r.catalogs, renders)
}

func TestToggles(t *testing.T) {
	r := &recordingRenderer{}
	s := New(seedCatalog(), WithRenderer(r))
	s.Init(context.Background())

	assert.True(t, s.ToggleCart(1))
	assert.False(t, s.ToggleCart(1))
	assert.Zero(t, s.CartCount())

	assert.True(t, s.ToggleFavorite(3))
	assert.Equal(t, 1, s.FavoritesCount())
	assert.True(t, s.InFavorites(3))

	assert.Equal(t, Badges{Cart: 0, Favorites: 1}, r.badges[len(r.badges)-1])
	assert.Equal(t, `"Xamsa" sevimlilarga qo'shildi`, r.notices[len(r.notices)-1])

	var xamsa ViewModel
	for _, vm := range r.lastCatalog() {
		if vm.ID == 3 {
			xamsa = vm
		}
	}
	assert.True(t, xamsa.InFavorites)
	assert.False(t, xamsa.InCart)
}

func TestToggleCart_UnknownBook(t *testing.T) {
	r := &recordingRenderer{}
	s := New(seedCatalog(), WithRenderer(r))
	s.Init(context.Background())

	assert.True(t, s.ToggleCart(777))
	assert.True(t, s.InCart(777))
	assert.Equal(t, `"#777" savatga qo'shildi`, r.notices[len(r.notices)-1])
}

func TestSetCartQuantity(t *testing.T) {
	s := New(seedCatalog())
	s.Init(context.Background())

	s.ToggleCart(2)
	s.SetCartQuantity(2, 3)
	assert.Equal(t, 3, s.CartQuantity(2))
	assert.Equal(t, 1, s.CartCount())

	s.SetCartQuantity(2, 0)
	assert.Zero(t, s.CartCount())
}

func TestRequestTopBestsellers_SeedFallback(t *testing.T) {
	r := &recordingRenderer{}
	c := seedCatalog()
	c.rankErr = errors.New("offline")
	s := New(c, WithRenderer(r))
	s.Init(context.Background())

	got := s.RequestTopBestsellers(context.Background(), 1)

	assert.Equal(t, []int64{2}, ids(got))
	require.Len(t, r.bestsellers, 1)
	assert.Equal(t, "Alpomish", r.bestsellers[0][0].Title)
}

func TestRequestLoadMore(t *testing.T) {
	c := &mockCatalog{
		first: catalog.Page{Books: book.Seed()[:3], Next: "2"},
		pages: map[string]catalog.Page{
			"2": {Books: book.Seed()[3:]},
		},
	}
	s := New(c)
	s.Init(context.Background())
	s.SelectCategory("texnik")
	require.Empty(t, s.Filtered())

	added, err := s.RequestLoadMore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, added)
	assert.Len(t, s.All(), 6)
	assert.Equal(t, []int64{6}, ids(s.Filtered()))
	assert.False(t, s.HasMore())

	_, err = s.RequestLoadMore(context.Background())
	require.ErrorIs(t, err, catalog.ErrNoMorePages)
}

func TestRequestLoadMore_Failure(t *testing.T) {
	c := &mockCatalog{
		first:   catalog.Page{Books: book.Seed(), Next: "2"},
		pageErr: &catalog.TransportError{Op: "fetch books", Err: errors.New("502")},
	}
	s := New(c)
	s.Init(context.Background())

	_, err := s.RequestLoadMore(context.Background())

	var tErr *catalog.TransportError
	require.ErrorAs(t, err, &tErr)
	assert.True(t, s.HasMore(), "the page can be retried")
	assert.Len(t, s.All(), 6)
}

// reloadingCatalog serves first on the first Load and blocks later loads
// until release is closed.
type reloadingCatalog struct {
	mockCatalog
	loads   atomic.Int32
	started chan struct{}
	release chan struct{}
	reload  catalog.Page
}

func (c *reloadingCatalog) Load(context.Context) catalog.Page {
	if c.loads.Add(1) == 1 {
		return c.first
	}
	close(c.started)
	<-c.release
	return c.reload
}

func TestRequestLoadMore_FailureKeepsPendingReload(t *testing.T) {
	c := &reloadingCatalog{
		mockCatalog: mockCatalog{
			first:   catalog.Page{Books: book.Seed()[:2], Next: "2"},
			pageErr: &catalog.TransportError{Op: "fetch books", Err: errors.New("boom")},
		},
		started: make(chan struct{}),
		release: make(chan struct{}),
		reload:  catalog.Page{Books: book.Seed()[2:5]},
	}
	s := New(c)
	require.True(t, s.Init(context.Background()))

	installed := make(chan bool, 1)
	go func() { installed <- s.Init(context.Background()) }()
	<-c.started

	_, err := s.RequestLoadMore(context.Background())
	require.Error(t, err)

	close(c.release)
	assert.True(t, <-installed)
	assert.Equal(t, []int64{3, 4, 5}, ids(s.All()))
}

func TestGreeting(t *testing.T) {
	assert.Equal(t, "Mehmon", New(seedCatalog()).Greeting())

	s := New(seedCatalog(), WithIdentity(StaticIdentity{User: User{Username: "nodira"}}))
	assert.Equal(t, "nodira", s.Greeting())
}

func TestProject(t *testing.T) {
	b := book.Book{
		ID:            9,
		Title:         "Sinov",
		Category:      "sherlar",
		Price:         decimal.NewFromInt(75000),
		OriginalPrice: decimal.NewFromInt(95000),
		Rating:        4.5,
	}

	vm := Project(b, nil)

	assert.Equal(t, "She'rlar", vm.CategoryName)
	assert.Equal(t, 21, vm.Discount)
	assert.Equal(t, "★★★★⯪", vm.Stars)
	assert.Equal(t, book.DefaultIcon, vm.Icon)
	assert.Contains(t, vm.Price, book.CurrencySuffix)
	assert.False(t, vm.InCart)
}
