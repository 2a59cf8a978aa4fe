// Package cart holds shopping carts in memory. A cart lives as long as the
// shopper's session and is never written to durable storage.
package cart

import (
	"context"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"horeca/storefront/internal/catalog"
)

// MaxQuantity caps the units on a single cart line.
const MaxQuantity = 9999

func clampQuantity(q int) int {
	switch {
	case q < 1:
		return 1
	case q > MaxQuantity:
		return MaxQuantity
	}
	return q
}

// Options are the per-item selections made on the product page.
type Options struct {
	Size       string `json:"size,omitempty"`
	Upholstery string `json:"upholstery,omitempty"`
}

func (o Options) normalized() Options {
	return Options{Size: strings.TrimSpace(o.Size), Upholstery: strings.TrimSpace(o.Upholstery)}
}

// Item is one cart line. Product is a copy taken when the line was created.
type Item struct {
	Product  catalog.Product `json:"product"`
	Quantity int             `json:"quantity"`
	Options  Options         `json:"options"`
}

func (i Item) Subtotal() decimal.Decimal {
	return i.Product.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// MergePolicy decides what happens to options when a product that is
// already in the cart is added again.
type MergePolicy int

const (
	// MergeKeepFirst keeps the selection made when the line was created.
	MergeKeepFirst MergePolicy = iota
	// MergeReplace takes every non-empty option from the latest add.
	MergeReplace
)

func ParseMergePolicy(v string) MergePolicy {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "replace", "latest":
		return MergeReplace
	default:
		return MergeKeepFirst
	}
}

func (p MergePolicy) String() string {
	if p == MergeReplace {
		return "replace"
	}
	return "keep-first"
}

// Snapshot is an immutable copy of the cart at one version.
type Snapshot struct {
	Items   []Item          `json:"items"`
	Count   int             `json:"count"`
	Total   decimal.Decimal `json:"total"`
	Version uint64          `json:"version"`
}

// Store is a single shopper's cart. It is safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	items   []Item
	policy  MergePolicy
	version uint64
	subs    map[uint64]chan Snapshot
	nextSub uint64
}

type Option func(*Store)

func WithMergePolicy(p MergePolicy) Option {
	return func(s *Store) { s.policy = p }
}

func NewStore(opts ...Option) *Store {
	s := &Store{subs: make(map[uint64]chan Snapshot)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Policy() MergePolicy { return s.policy }

// Add puts quantity units of p into the cart. A product already in the cart
// keeps its single line and the quantity accumulates. Quantities below one
// count as one and a line never exceeds MaxQuantity.
func (s *Store) Add(p catalog.Product, quantity int, opts Options) {
	quantity = clampQuantity(quantity)
	opts = opts.normalized()

	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(p.ID); i >= 0 {
		s.items[i].Quantity = clampQuantity(s.items[i].Quantity + quantity)
		if s.policy == MergeReplace {
			if opts.Size != "" {
				s.items[i].Options.Size = opts.Size
			}
			if opts.Upholstery != "" {
				s.items[i].Options.Upholstery = opts.Upholstery
			}
		}
	} else {
		s.items = append(s.items, Item{Product: p, Quantity: quantity, Options: opts})
	}
	s.changed()
}

// Remove deletes the line for productID. Unknown ids are ignored.
func (s *Store) Remove(productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removeLocked(productID) {
		s.changed()
	}
}

// UpdateQuantity sets the quantity of an existing line. A quantity below one
// removes the line and larger ones are capped at MaxQuantity; unknown ids
// are ignored.
func (s *Store) UpdateQuantity(productID string, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if quantity < 1 {
		if s.removeLocked(productID) {
			s.changed()
		}
		return
	}
	quantity = clampQuantity(quantity)
	i := s.indexOf(productID)
	if i < 0 || s.items[i].Quantity == quantity {
		return
	}
	s.items[i].Quantity = quantity
	s.changed()
}

// Settle takes the given lines out of the cart once they have been ordered.
// Each line loses the ordered quantity, so units added after items was read
// stay in the cart.
func (s *Store) Settle(items []Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := false
	for _, it := range items {
		i := s.indexOf(it.Product.ID)
		if i < 0 {
			continue
		}
		if left := s.items[i].Quantity - it.Quantity; left >= 1 {
			s.items[i].Quantity = left
		} else {
			s.removeLocked(it.Product.ID)
		}
		changed = true
	}
	if changed {
		s.changed()
	}
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.items) == 0 {
		return
	}
	s.items = nil
	s.changed()
}

// Total sums price × quantity over the current lines. It is computed on
// every call; nothing is cached.
func (s *Store) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return total(s.items)
}

// Count is the number of units across all lines.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return count(s.items)
}

// Items returns a copy of the lines in insertion order.
func (s *Store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneItems(s.items)
}

// Item returns the line for productID.
func (s *Store) Item(productID string) (Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(productID); i >= 0 {
		return s.items[i], true
	}
	return Item{}, false
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe streams a snapshot now and after every change until ctx is
// done, then closes the channel. A slow reader only sees the latest
// snapshot; writers never block on subscribers.
func (s *Store) Subscribe(ctx context.Context) <-chan Snapshot {
	ch := make(chan Snapshot, 1)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()
	return ch
}

// Select applies fn to the current snapshot.
func Select[T any](s *Store, fn func(Snapshot) T) T {
	return fn(s.Snapshot())
}

func (s *Store) indexOf(productID string) int {
	for i := range s.items {
		if s.items[i].Product.ID == productID {
			return i
		}
	}
	return -1
}

func (s *Store) removeLocked(productID string) bool {
	i := s.indexOf(productID)
	if i < 0 {
		return false
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	return true
}

// changed must be called with mu held.
func (s *Store) changed() {
	s.version++
	if len(s.subs) == 0 {
		return
	}
	snap := s.snapshotLocked()
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Items:   cloneItems(s.items),
		Count:   count(s.items),
		Total:   total(s.items),
		Version: s.version,
	}
}

func cloneItems(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	return out
}

func total(items []Item) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.Subtotal())
	}
	return sum
}

func count(items []Item) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}
