// Package selection holds the visitor's cart and favorites.
//
// Both are ledgers of book ids with idempotent toggle semantics. Ledgers do not
// know about the loaded catalog: ids that are no longer (or were never) in the
// catalog are accepted and kept until the visitor toggles them off.
package selection

import (
	"slices"
	"sync"
)

// Ledger is an insertion-ordered membership set of book ids with a per-entry
// payload E.
type Ledger[E any] struct {
	newEntry func(id int64) E

	mu      sync.Mutex
	entries map[int64]E
	order   []int64
}

// NewLedger returns an empty ledger; newEntry builds the payload for ids added
// by Toggle.
func NewLedger[E any](newEntry func(id int64) E) *Ledger[E] {
	return &Ledger[E]{
		newEntry: newEntry,
		entries:  make(map[int64]E),
	}
}

// Toggle removes id if present, otherwise adds it with a fresh entry. It
// reports whether the id was added.
func (l *Ledger[E]) Toggle(id int64) (added bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.entries[id]; ok {
		l.removeLocked(id)
		return false
	}
	l.putLocked(id, l.newEntry(id))
	return true
}

// Has reports whether id is in the ledger.
func (l *Ledger[E]) Has(id int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, ok := l.entries[id]
	return ok
}

// Count returns the number of distinct entries.
func (l *Ledger[E]) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.entries)
}

// IDs returns the ids in insertion order.
func (l *Ledger[E]) IDs() []int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	return slices.Clone(l.order)
}

// Entries returns the entries in insertion order.
func (l *Ledger[E]) Entries() []E {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]E, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.entries[id])
	}
	return out
}

// Get returns the entry for id.
func (l *Ledger[E]) Get(id int64) (E, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[id]
	return e, ok
}

// update applies fn to the entry for id under the lock. fn returns the new
// entry and whether to keep it.
func (l *Ledger[E]) update(id int64, fn func(e E, present bool) (E, bool)) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cur, present := l.entries[id]
	next, keep := fn(cur, present)
	switch {
	case !keep && present:
		l.removeLocked(id)
	case keep:
		l.putLocked(id, next)
	}
}

func (l *Ledger[E]) putLocked(id int64, e E) {
	if _, ok := l.entries[id]; !ok {
		l.order = append(l.order, id)
	}
	l.entries[id] = e
}

func (l *Ledger[E]) removeLocked(id int64) {
	delete(l.entries, id)
	if i := slices.Index(l.order, id); i >= 0 {
		l.order = slices.Delete(l.order, i, i+1)
	}
}
