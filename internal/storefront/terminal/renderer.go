// Package terminal is a line-oriented presentation layer for the storefront.
package terminal

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/go-faster/errors"

	"github.com/xenking/booknest/internal/storefront"
)

var _ storefront.Renderer = (*Renderer)(nil)

// Renderer prints storefront state as plain text.
type Renderer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewRenderer returns a Renderer writing to w.
func NewRenderer(w io.Writer) *Renderer {
	return &Renderer{w: w}
}

// RenderCatalog prints the current view under title.
func (r *Renderer) RenderCatalog(title string, books []storefront.ViewModel) error {
	var b strings.Builder
	fmt.Fprintf(&b, "\n== %s (%d) ==\n", title, len(books))
	if len(books) == 0 {
		b.WriteString("  Kitoblar topilmadi\n")
	}
	for _, vm := range books {
		writeBook(&b, vm)
	}
	return r.write(b.String())
}

// RenderBestsellers prints the ranked list.
func (r *Renderer) RenderBestsellers(books []storefront.ViewModel) error {
	var b strings.Builder
	b.WriteString("\n== Eng yaxshi kitoblar ==\n")
	for i, vm := range books {
		fmt.Fprintf(&b, "%2d. %s %s - %s  %s %.1f\n", i+1, vm.Icon, vm.Title, vm.Author, vm.Stars, vm.Rating)
	}
	return r.write(b.String())
}

// RenderBadges prints the header counters.
func (r *Renderer) RenderBadges(badges storefront.Badges) error {
	return r.write(fmt.Sprintf("[Savat: %d | Sevimlilar: %d]\n", badges.Cart, badges.Favorites))
}

// Notify prints a transient message.
func (r *Renderer) Notify(message string) error {
	return r.write("» " + message + "\n")
}

func writeBook(b *strings.Builder, vm storefront.ViewModel) {
	fmt.Fprintf(b, "  #%-4d %s %s - %s [%s]\n", vm.ID, vm.Icon, vm.Title, vm.Author, vm.CategoryName)
	fmt.Fprintf(b, "        %s", vm.Price)
	if vm.Discount > 0 {
		fmt.Fprintf(b, " (%s, -%d%%)", vm.OriginalPrice, vm.Discount)
	}
	fmt.Fprintf(b, "  %s %.1f (%d)", vm.Stars, vm.Rating, vm.RatingCount)
	if vm.InCart {
		b.WriteString("  [savatda]")
	}
	if vm.InFavorites {
		b.WriteString("  [♥]")
	}
	b.WriteByte('\n')
}

func (r *Renderer) write(s string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := io.WriteString(r.w, s)
	return errors.Wrap(err, "write")
}
