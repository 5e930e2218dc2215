package catalog

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/xenking/booknest/internal/domain/book"
)

// State is the lifecycle state of a View.
type State int

const (
	StateUnloaded State = iota
	StateLoading
	StateLoaded
	StateFiltered
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateFiltered:
		return "filtered"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Ticket identifies a load started with View.BeginLoad.
type Ticket uint64

type transform int

const (
	transformNone transform = iota
	transformCategory
	transformSearch
)

// View owns the loaded collection and the derived filtered subset.
//
// Results are installed only for the most recently started load, so a slow
// response can never overwrite a newer one. Filtered is recomputed from All
// on every filter or search and is always a subset of All.
type View struct {
	lg *zap.Logger

	mu       sync.Mutex
	state    State
	gen      Ticket
	all      []book.Book
	filtered []book.Book
	mode     transform
	arg      string
}

// NewView returns an unloaded View.
func NewView(lg *zap.Logger) *View {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &View{lg: lg}
}

// BeginLoad starts a new load and returns its ticket. Any earlier ticket
// becomes stale.
func (v *View) BeginLoad() Ticket {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.gen++
	if v.state == StateUnloaded {
		v.state = StateLoading
	}
	return v.gen
}

// Current returns the latest ticket without starting a load. Work that
// extends the loaded collection, such as fetching a further page, holds it so
// that a reload started meanwhile wins, while a failed fetch leaves pending
// loads untouched.
func (v *View) Current() Ticket {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.gen
}

// Install replaces the collection with books if t is the latest ticket and
// resets the view to Loaded with Filtered equal to All. It reports whether
// the result was installed.
func (v *View) Install(t Ticket, books []book.Book) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if t != v.gen {
		v.lg.Debug("Discarding stale catalog load",
			zap.Uint64("ticket", uint64(t)),
			zap.Uint64("latest", uint64(v.gen)),
		)
		return false
	}

	v.all = book.Clone(books)
	v.filtered = book.Clone(v.all)
	v.mode, v.arg = transformNone, ""
	v.state = StateLoaded
	return true
}

// Append adds a further page to the collection if t is the latest ticket.
// Books whose ID is already loaded are skipped. The active filter or search
// is re-applied to the grown collection.
func (v *View) Append(t Ticket, books []book.Book) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if t != v.gen {
		v.lg.Debug("Discarding stale catalog page",
			zap.Uint64("ticket", uint64(t)),
			zap.Uint64("latest", uint64(v.gen)),
		)
		return false
	}

	seen := make(map[int64]struct{}, len(v.all))
	for _, b := range v.all {
		seen[b.ID] = struct{}{}
	}
	all := book.Clone(v.all)
	for _, b := range books {
		if _, ok := seen[b.ID]; ok {
			continue
		}
		seen[b.ID] = struct{}{}
		all = append(all, b)
	}
	v.all = all
	if v.state == StateLoading || v.state == StateUnloaded {
		v.state = StateLoaded
	}
	v.recompute()
	return true
}

// ApplyCategory replaces Filtered with the books in slug and returns it.
func (v *View) ApplyCategory(slug string) []book.Book {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.mode, v.arg = transformCategory, slug
	v.recompute()
	return book.Clone(v.filtered)
}

// ApplySearch replaces Filtered with the books matching query and returns it.
func (v *View) ApplySearch(query string) []book.Book {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.mode, v.arg = transformSearch, query
	v.recompute()
	return book.Clone(v.filtered)
}

// recompute derives filtered from all. Must hold mu.
func (v *View) recompute() {
	switch v.mode {
	case transformCategory:
		v.filtered = FilterByCategory(v.all, v.arg)
	case transformSearch:
		v.filtered = Search(v.all, v.arg)
	default:
		v.filtered = book.Clone(v.all)
	}
	if v.mode != transformNone && (v.state == StateLoaded || v.state == StateFiltered) {
		v.state = StateFiltered
	}
}

// All returns a copy of the loaded collection.
func (v *View) All() []book.Book {
	v.mu.Lock()
	defer v.mu.Unlock()
	return book.Clone(v.all)
}

// Filtered returns a copy of the current filtered view.
func (v *View) Filtered() []book.Book {
	v.mu.Lock()
	defer v.mu.Unlock()
	return book.Clone(v.filtered)
}

// State returns the current lifecycle state.
func (v *View) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Lookup returns the loaded book with the given id.
func (v *View) Lookup(id int64) (book.Book, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, b := range v.all {
		if b.ID == id {
			return b, true
		}
	}
	return book.Book{}, false
}
