package cart

import (
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store holds the line items of a single cart in insertion order.
//
// Every mutation recomputes the cached total and item count before returning,
// so reads always reflect the last completed operation. Invalid input never
// fails: quantities are clamped and unknown line IDs are ignored.
type Store struct {
	mu        sync.Mutex
	items     []LineItem
	total     decimal.Decimal
	itemCount int
	newID     func() string
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator overrides the line ID generator (uuid v4 by default).
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) {
		s.newID = fn
	}
}

// NewStore returns an empty Store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		total: decimal.Zero,
		newID: uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Restore returns a Store pre-populated with items. Lines violating the cart
// invariants are dropped or merged: non-positive quantities are skipped,
// duplicate products are folded into the first line, quantities are capped at
// MaxLineQuantity and lines without an ID receive a fresh one.
func Restore(items []LineItem, opts ...Option) *Store {
	s := NewStore(opts...)
	for _, li := range items {
		if !li.Valid() {
			continue
		}
		if i := s.indexByProduct(li.ProductID); i >= 0 {
			s.items[i].Quantity = addQuantity(s.items[i].Quantity, li.Quantity)
			continue
		}
		li.Quantity = clampQuantity(li.Quantity)
		if li.ID == "" {
			li.ID = s.newID()
		}
		if li.Price.IsNegative() {
			li.Price = decimal.Zero
		}
		s.items = append(s.items, li)
	}
	s.recompute()
	return s
}

// AddItem merges c into the cart. An existing line for the same product has
// its quantity increased up to MaxLineQuantity; otherwise a new line is
// appended. It returns the
// resulting line.
func (s *Store) AddItem(c Candidate) LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	qty := clampQuantity(c.Quantity)

	if i := s.indexByProduct(c.ProductID); i >= 0 {
		s.items[i].Quantity = addQuantity(s.items[i].Quantity, qty)
		s.recompute()
		return s.items[i]
	}

	price := c.Price
	if price.IsNegative() {
		price = decimal.Zero
	}
	li := LineItem{
		ID:          s.newID(),
		ProductID:   c.ProductID,
		ProductName: c.ProductName,
		Price:       price,
		Quantity:    qty,
		Image:       c.Image,
	}
	s.items = append(s.items, li)
	s.recompute()
	return li
}

// RemoveItem deletes the line with the given ID. Unknown IDs are ignored.
// It reports whether a line was removed.
func (s *Store) RemoveItem(lineID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.remove(lineID)
}

// UpdateQuantity sets the quantity of a line. A quantity of zero or less
// removes the line and larger values are capped at MaxLineQuantity. Unknown
// IDs are ignored. It reports whether the cart
// changed.
func (s *Store) UpdateQuantity(lineID string, quantity int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity <= 0 {
		return s.remove(lineID)
	}
	quantity = clampQuantity(quantity)

	i := s.indexByID(lineID)
	if i < 0 {
		return false
	}
	if s.items[i].Quantity == quantity {
		return false
	}
	s.items[i].Quantity = quantity
	s.recompute()
	return true
}

// Clear removes every line.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	s.recompute()
}

// Items returns a copy of the lines in insertion order.
func (s *Store) Items() []LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.items)
}

// Item returns the line with the given ID.
func (s *Store) Item(lineID string) (LineItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexByID(lineID); i >= 0 {
		return s.items[i], true
	}
	return LineItem{}, false
}

// Total returns the sum of price * quantity over all lines.
func (s *Store) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.total
}

// ItemCount returns the sum of quantities over all lines.
func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.itemCount
}

// Len returns the number of lines.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.items)
}

func (s *Store) remove(lineID string) bool {
	i := s.indexByID(lineID)
	if i < 0 {
		return false
	}
	s.items = slices.Delete(s.items, i, i+1)
	s.recompute()
	return true
}

func (s *Store) indexByID(lineID string) int {
	return slices.IndexFunc(s.items, func(li LineItem) bool { return li.ID == lineID })
}

func (s *Store) indexByProduct(productID string) int {
	return slices.IndexFunc(s.items, func(li LineItem) bool { return li.ProductID == productID })
}

// recompute refreshes the cached derived values. Callers hold s.mu.
func (s *Store) recompute() {
	s.total = Total(s.items)
	s.itemCount = ItemCount(s.items)
}
