package storefront

import (
	"github.com/xenking/booknest/internal/domain/book"
)

// ViewModel is the render-ready projection of a book.
type ViewModel struct {
	ID            int64
	Title         string
	Author        string
	Category      string
	CategoryName  string
	Price         string
	OriginalPrice string
	// Discount is the badge percentage; zero means no badge.
	Discount      int
	Stars         string
	Rating        float64
	RatingCount   int
	CoverImageURL string
	Icon          string
	Description   string
	InCart        bool
	InFavorites   bool
}

// Membership answers per-item selection state.
type Membership interface {
	InCart(id int64) bool
	InFavorites(id int64) bool
}

// Project maps b into a ViewModel. m may be nil, in which case selection
// flags are false.
func Project(b book.Book, m Membership) ViewModel {
	vm := ViewModel{
		ID:            b.ID,
		Title:         b.Title,
		Author:        b.Author,
		Category:      b.Category,
		CategoryName:  book.CategoryName(b.Category),
		Price:         book.FormatPrice(b.Price),
		OriginalPrice: book.FormatPrice(b.OriginalPrice),
		Discount:      b.Discount(),
		Stars:         book.Stars(b.Rating),
		Rating:        b.Rating,
		RatingCount:   b.RatingCount,
		CoverImageURL: b.CoverImageURL,
		Icon:          b.Icon,
		Description:   b.Description,
	}
	if vm.Icon == "" {
		vm.Icon = book.DefaultIcon
	}
	if m != nil {
		vm.InCart = m.InCart(b.ID)
		vm.InFavorites = m.InFavorites(b.ID)
	}
	return vm
}

// ProjectAll maps every book with Project.
func ProjectAll(books []book.Book, m Membership) []ViewModel {
	out := make([]ViewModel, len(books))
	for i, b := range books {
		out[i] = Project(b, m)
	}
	return out
}

// Badges are the header counters.
type Badges struct {
	Cart      int
	Favorites int
}

// Renderer draws storefront state. Implementations own all markup or
// terminal output; the storefront only hands them data.
type Renderer interface {
	RenderCatalog(title string, books []ViewModel) error
	RenderBestsellers(books []ViewModel) error
	RenderBadges(b Badges) error
	Notify(message string) error
}
