// Package cart is the shopper's in-session cart. Lines snapshot the unit price at add time and
// quantities are clamped to the variant's stock on every path.
package cart

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/fankick/storefront/internal/pkg/logger"
	"github.com/fankick/storefront/internal/pkg/money"
	"github.com/fankick/storefront/internal/storefront/catalog"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrOutOfStock      = errors.New("variant is out of stock")
	ErrUnknownVariant  = errors.New("variant does not belong to product")
)

// Line is one (product, variant) pair in the cart
type Line struct {
	ID           string
	ProductID    string
	VariantID    string
	Name         string
	Size         string
	Color        string
	SKU          string
	Quantity     int
	Stock        int
	UnitPrice    money.Money
	ShippingDays int
	CODAvailable bool
}

// Total is UnitPrice × Quantity
func (l Line) Total() money.Money {
	return l.UnitPrice.Mul(l.Quantity)
}

// State is an immutable view of the cart
type State struct {
	OwnerID    string
	Lines      []Line
	TotalItems int
	TotalPrice money.Money
}

// IsEmpty reports whether the cart has no lines
func (s State) IsEmpty() bool {
	return len(s.Lines) == 0
}

// Store holds the cart. Writers are serialized and every mutation publishes a new State.
type Store struct {
	log *logrus.Entry

	mu      sync.Mutex
	state   *State
	subs    map[int]func(State)
	nextSub int
}

// NewStore creates an empty cart
func NewStore(log *logrus.Entry) *Store {
	return &Store{
		log:   logger.OrDiscard(log).WithField("component", "cart"),
		state: &State{TotalPrice: money.New(0, money.Base)},
		subs:  map[int]func(State){},
	}
}

// AddToCart adds quantity of variant, merging into an existing line for the same pair.
// The resulting quantity is clamped to the variant's stock.
func (s *Store) AddToCart(product catalog.Product, variant catalog.Variant, quantity int) (Line, error) {
	if quantity < 1 {
		return Line{}, ErrInvalidQuantity
	}
	if _, ok := product.Variant(variant.ID); !ok {
		return Line{}, fmt.Errorf("%w: product %s, variant %s", ErrUnknownVariant, product.ID, variant.ID)
	}
	if variant.Stock <= 0 {
		return Line{}, fmt.Errorf("%w: %s", ErrOutOfStock, variant.SKU)
	}

	var added Line
	s.mutate(func(lines []Line) []Line {
		for i, line := range lines {
			if line.ProductID == product.ID && line.VariantID == variant.ID {
				line.Stock = variant.Stock
				line.Quantity = clamp(line.Quantity+quantity, variant.Stock)
				lines[i] = line
				added = line
				return lines
			}
		}
		added = Line{
			ID:           uuid.NewString(),
			ProductID:    product.ID,
			VariantID:    variant.ID,
			Name:         product.Name,
			Size:         variant.Size,
			Color:        variant.Color,
			SKU:          variant.SKU,
			Quantity:     clamp(quantity, variant.Stock),
			Stock:        variant.Stock,
			UnitPrice:    variant.UnitPrice(),
			ShippingDays: product.ShippingDays,
			CODAvailable: product.CODAvailable,
		}
		return append(lines, added)
	})

	if added.Quantity < quantity {
		s.log.WithFields(logrus.Fields{
			"product_id": product.ID,
			"variant_id": variant.ID,
			"quantity":   added.Quantity,
		}).Debug("Cart quantity clamped to stock")
	}
	return added, nil
}

// RemoveFromCart deletes a line. Unknown ids are ignored.
func (s *Store) RemoveFromCart(lineID string) {
	s.mutate(func(lines []Line) []Line {
		for i, line := range lines {
			if line.ID == lineID {
				return append(lines[:i], lines[i+1:]...)
			}
		}
		return nil
	})
}

// UpdateQuantity sets a line's quantity. quantity <= 0 removes the line; otherwise it is clamped to [1, stock].
func (s *Store) UpdateQuantity(lineID string, quantity int) {
	if quantity <= 0 {
		s.RemoveFromCart(lineID)
		return
	}
	s.mutate(func(lines []Line) []Line {
		for i, line := range lines {
			if line.ID == lineID {
				lines[i].Quantity = clamp(quantity, line.Stock)
				return lines
			}
		}
		return nil
	})
}

// ClearCart empties the cart
func (s *Store) ClearCart() {
	s.mutate(func(lines []Line) []Line {
		if len(lines) == 0 {
			return nil
		}
		return []Line{}
	})
}

// SetOwner scopes the cart to a user id. Switching to a different owner starts an empty cart.
func (s *Store) SetOwner(userID string) {
	s.mu.Lock()
	if s.state.OwnerID == userID {
		s.mu.Unlock()
		return
	}
	next := &State{OwnerID: userID, TotalPrice: money.New(0, money.Base)}
	s.state = next
	listeners := s.listeners()
	s.mu.Unlock()

	s.notify(listeners, *next)
}

// Snapshot returns the current state. Callers may not modify the returned lines.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.state
}

// TotalItems is the sum of line quantities
func (s *Store) TotalItems() int {
	return s.Snapshot().TotalItems
}

// TotalPrice is the sum of line totals in the base currency
func (s *Store) TotalPrice() money.Money {
	return s.Snapshot().TotalPrice
}

// Subscribe registers fn to receive every new state. The returned func unsubscribes.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// mutate applies fn to a private copy of the lines. fn returns nil to signal no change.
func (s *Store) mutate(fn func([]Line) []Line) {
	s.mu.Lock()
	lines := append([]Line(nil), s.state.Lines...)
	lines = fn(lines)
	if lines == nil {
		s.mu.Unlock()
		return
	}
	next := build(s.state.OwnerID, lines)
	s.state = next
	listeners := s.listeners()
	s.mu.Unlock()

	s.notify(listeners, *next)
}

func build(owner string, lines []Line) *State {
	state := &State{OwnerID: owner, Lines: lines, TotalPrice: money.New(0, money.Base)}
	for _, line := range lines {
		state.TotalItems += line.Quantity
		state.TotalPrice.Amount += line.Total().Amount
	}
	return state
}

func clamp(quantity, stock int) int {
	if quantity > stock {
		quantity = stock
	}
	if quantity < 1 {
		quantity = 1
	}
	return quantity
}

// listeners must be called with mu held
func (s *Store) listeners() []func(State) {
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]func(State), 0, len(ids))
	for _, id := range ids {
		out = append(out, s.subs[id])
	}
	return out
}

func (s *Store) notify(listeners []func(State), state State) {
	for _, fn := range listeners {
		fn(state)
	}
}
