package selection

// CartEntry is a cart line.
type CartEntry struct {
	BookID   int64
	Quantity int
}

// FavoriteEntry is a favorites membership. It carries no quantity.
type FavoriteEntry struct {
	BookID int64
}

// Cart is the ledger of books the visitor intends to buy.
type Cart struct {
	*Ledger[CartEntry]
}

// NewCart returns an empty cart. Toggle adds entries with quantity 1.
func NewCart() *Cart {
	return &Cart{Ledger: NewLedger(func(id int64) CartEntry {
		return CartEntry{BookID: id, Quantity: 1}
	})}
}

// SetQuantity sets the quantity of id. n <= 0 removes the entry; n >= 1 sets
// it, adding the entry when absent.
func (c *Cart) SetQuantity(id int64, n int) {
	c.update(id, func(e CartEntry, _ bool) (CartEntry, bool) {
		if n <= 0 {
			return e, false
		}
		return CartEntry{BookID: id, Quantity: n}, true
	})
}

// Quantity returns the quantity of id, or 0 when it is not in the cart.
func (c *Cart) Quantity(id int64) int {
	e, ok := c.Get(id)
	if !ok {
		return 0
	}
	return e.Quantity
}

// Units returns the summed quantity over all entries.
func (c *Cart) Units() int {
	total := 0
	for _, e := range c.Entries() {
		total += e.Quantity
	}
	return total
}

// Favorites is the ledger of books the visitor marked as favorite.
type Favorites struct {
	*Ledger[FavoriteEntry]
}

// NewFavorites returns an empty favorites ledger.
func NewFavorites() *Favorites {
	return &Favorites{Ledger: NewLedger(func(id int64) FavoriteEntry {
		return FavoriteEntry{BookID: id}
	})}
}
