// Package storefront wires the catalog view, the ranker, and the selection
// ledgers into the state object a presentation layer drives with intents.
package storefront

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/booknest/internal/domain/book"
	"github.com/xenking/booknest/internal/domain/catalog"
	"github.com/xenking/booknest/internal/domain/selection"
)

// Catalog is the data-access boundary the storefront loads from.
// *catalog.Repository implements it.
type Catalog interface {
	catalog.RankedSource
	Load(ctx context.Context) catalog.Page
	LoadPage(ctx context.Context, token string) (catalog.Page, error)
}

// Option configures a Storefront.
type Option func(*Storefront)

// WithLogger sets the storefront logger.
func WithLogger(lg *zap.Logger) Option {
	return func(s *Storefront) {
		if lg != nil {
			s.lg = lg
		}
	}
}

// WithRenderer attaches a presentation layer that is refreshed after every
// intent.
func WithRenderer(r Renderer) Option {
	return func(s *Storefront) { s.renderer = r }
}

// WithIdentity sets the authentication capability. Defaults to Guest.
func WithIdentity(id Identity) Option {
	return func(s *Storefront) {
		if id != nil {
			s.identity = id
		}
	}
}

// Storefront is the catalog state and selection engine for one visitor.
type Storefront struct {
	catalog   Catalog
	view      *catalog.View
	ranker    *catalog.Ranker
	cart      *selection.Cart
	favorites *selection.Favorites
	identity  Identity
	renderer  Renderer
	lg        *zap.Logger

	mu       sync.Mutex
	next     string
	fallback bool
	title    string
}

// New creates a Storefront over c. The catalog is not loaded until Init.
func New(c Catalog, opts ...Option) *Storefront {
	s := &Storefront{
		catalog:   c,
		cart:      selection.NewCart(),
		favorites: selection.NewFavorites(),
		identity:  Guest{},
		lg:        zap.NewNop(),
		title:     book.CategoryName(book.CategoryAll),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.view = catalog.NewView(s.lg.Named("view"))
	s.ranker = catalog.NewRanker(c, s.view.All, catalog.WithLogger(s.lg.Named("ranker")))
	return s
}

// Init loads the catalog and renders it. A load that was overtaken by a newer
// one is discarded and Init reports false.
func (s *Storefront) Init(ctx context.Context) bool {
	ticket := s.view.BeginLoad()
	page := s.catalog.Load(ctx)
	if !s.view.Install(ticket, page.Books) {
		return false
	}

	s.mu.Lock()
	s.next = page.Next
	s.fallback = page.Fallback
	s.title = book.CategoryName(book.CategoryAll)
	s.mu.Unlock()

	s.lg.Info("Catalog loaded",
		zap.Int("books", len(page.Books)),
		zap.Bool("fallback", page.Fallback),
	)
	s.renderCatalog()
	s.renderBadges()
	return true
}

// SelectCategory shows the books in slug, replacing any active search.
func (s *Storefront) SelectCategory(slug string) []book.Book {
	books := s.view.ApplyCategory(slug)
	s.setTitle(book.CategoryName(slug))

	s.renderCatalog()
	s.notify(fmt.Sprintf("%d ta kitob ko'rsatilmoqda", len(books)))
	return books
}

// SubmitSearch shows the books matching text, replacing the active category
// view. Blank input is ignored and reported as false.
func (s *Storefront) SubmitSearch(text string) ([]book.Book, bool) {
	query := strings.ToLower(strings.TrimSpace(text))
	if query == "" {
		return nil, false
	}

	books := s.view.ApplySearch(query)
	s.setTitle(fmt.Sprintf("%q bo'yicha qidiruv natijalari", query))

	s.renderCatalog()
	s.notify(fmt.Sprintf("%d ta kitob topildi: %q", len(books), query))
	return books, true
}

// ToggleCart adds or removes id from the cart and reports whether it was added.
func (s *Storefront) ToggleCart(id int64) bool {
	added := s.cart.Toggle(id)
	if added {
		s.notifyAbout(id, "%q savatga qo'shildi")
	} else {
		s.notifyAbout(id, "%q savatdan o'chirildi")
	}
	s.renderBadges()
	s.renderCatalog()
	return added
}

// ToggleFavorite adds or removes id from favorites and reports whether it was added.
func (s *Storefront) ToggleFavorite(id int64) bool {
	added := s.favorites.Toggle(id)
	if added {
		s.notifyAbout(id, "%q sevimlilarga qo'shildi")
	} else {
		s.notifyAbout(id, "%q sevimlilardan o'chirildi")
	}
	s.renderBadges()
	s.renderCatalog()
	return added
}

// SetCartQuantity sets the cart quantity of id; n <= 0 removes it.
func (s *Storefront) SetCartQuantity(id int64, n int) {
	s.cart.SetQuantity(id, n)
	s.renderBadges()
}

// RequestTopBestsellers returns and renders the n best rated books.
func (s *Storefront) RequestTopBestsellers(ctx context.Context, n int) []book.Book {
	books := s.ranker.TopN(ctx, n)
	if s.renderer != nil {
		if err := s.renderer.RenderBestsellers(ProjectAll(books, s)); err != nil {
			s.lg.Warn("Render bestsellers failed", zap.Error(err))
		}
	}
	return books
}

// RequestLoadMore appends the next catalog page and returns how many books
// were added. It returns catalog.ErrNoMorePages when the catalog is exhausted
// or served from the seed collection.
func (s *Storefront) RequestLoadMore(ctx context.Context) (int, error) {
	s.mu.Lock()
	token := s.next
	s.mu.Unlock()
	if token == "" {
		return 0, catalog.ErrNoMorePages
	}

	s.notify("Qo'shimcha kitoblar yuklanmoqda...")

	ticket := s.view.Current()
	before := len(s.view.All())
	page, err := s.catalog.LoadPage(ctx, token)
	if err != nil {
		s.lg.Warn("Load more failed", zap.String("page", token), zap.Error(err))
		return 0, errors.Wrap(err, "load more")
	}
	if !s.view.Append(ticket, page.Books) {
		return 0, nil
	}

	s.mu.Lock()
	if s.next == token {
		s.next = page.Next
	}
	s.mu.Unlock()

	s.renderCatalog()
	return len(s.view.All()) - before, nil
}

// Filtered returns the current view.
func (s *Storefront) Filtered() []book.Book { return s.view.Filtered() }

// All returns the loaded collection.
func (s *Storefront) All() []book.Book { return s.view.All() }

// State returns the catalog view state.
func (s *Storefront) State() catalog.State { return s.view.State() }

// HasMore reports whether RequestLoadMore has a page to fetch.
func (s *Storefront) HasMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next != ""
}

// Fallback reports whether the loaded catalog is the seed collection.
func (s *Storefront) Fallback() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fallback
}

// InCart reports cart membership of id.
func (s *Storefront) InCart(id int64) bool { return s.cart.Has(id) }

// InFavorites reports favorites membership of id.
func (s *Storefront) InFavorites(id int64) bool { return s.favorites.Has(id) }

// CartCount is the cart badge value.
func (s *Storefront) CartCount() int { return s.cart.Count() }

// FavoritesCount is the favorites badge value.
func (s *Storefront) FavoritesCount() int { return s.favorites.Count() }

// CartQuantity returns the quantity of id in the cart.
func (s *Storefront) CartQuantity(id int64) int { return s.cart.Quantity(id) }

// CartEntries returns the cart lines in insertion order.
func (s *Storefront) CartEntries() []selection.CartEntry { return s.cart.Entries() }

// FavoriteIDs returns the favorite ids in insertion order.
func (s *Storefront) FavoriteIDs() []int64 { return s.favorites.IDs() }

// Badges returns both badge values.
func (s *Storefront) Badges() Badges {
	return Badges{Cart: s.CartCount(), Favorites: s.FavoritesCount()}
}

// ViewModels projects the current view for rendering.
func (s *Storefront) ViewModels() []ViewModel {
	return ProjectAll(s.view.Filtered(), s)
}

// Refresh re-renders the current view and badges.
func (s *Storefront) Refresh() {
	s.renderCatalog()
	s.renderBadges()
}

// Greeting returns the header label for the current visitor.
func (s *Storefront) Greeting() string {
	if u, ok := s.identity.CurrentUser(); ok && s.identity.IsAuthenticated() {
		return u.Username
	}
	return "Mehmon"
}

func (s *Storefront) setTitle(title string) {
	s.mu.Lock()
	s.title = title
	s.mu.Unlock()
}

func (s *Storefront) renderCatalog() {
	if s.renderer == nil {
		return
	}
	s.mu.Lock()
	title := s.title
	s.mu.Unlock()

	if err := s.renderer.RenderCatalog(title, s.ViewModels()); err != nil {
		s.lg.Warn("Render catalog failed", zap.Error(err))
	}
}

func (s *Storefront) renderBadges() {
	if s.renderer == nil {
		return
	}
	if err := s.renderer.RenderBadges(s.Badges()); err != nil {
		s.lg.Warn("Render badges failed", zap.Error(err))
	}
}

func (s *Storefront) notify(msg string) {
	if s.renderer == nil {
		return
	}
	if err := s.renderer.Notify(msg); err != nil {
		s.lg.Warn("Notify failed", zap.Error(err))
	}
}

// notifyAbout formats format with the title of id, or the id itself when the
// book is not in the loaded catalog.
func (s *Storefront) notifyAbout(id int64, format string) {
	name := fmt.Sprintf("#%d", id)
	if b, ok := s.view.Lookup(id); ok {
		name = b.Title
	}
	s.notify(fmt.Sprintf(format, name))
}
