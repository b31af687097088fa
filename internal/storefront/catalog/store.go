// Package catalog keeps the in-memory product list the storefront browses and searches.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fankick/storefront/internal/pkg/logger"
	"github.com/sirupsen/logrus"
)

// Source fetches the full product list
type Source interface {
	FetchAll(ctx context.Context) ([]Product, error)
}

// LoadError is returned when a load fails. The previous list stays in place.
type LoadError struct {
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("catalog: load failed: %v", e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Store holds the current catalog. It is safe for concurrent use.
type Store struct {
	source  Source
	timeout time.Duration
	log     *logrus.Entry

	mu       sync.RWMutex
	products []Product
	index    map[string]int
	issued   uint64
	applied  uint64
	subs     map[int]func([]Product)
	nextSub  int
}

// Option configures a Store
type Option func(*Store)

// WithLoadTimeout bounds each Load. Zero leaves the bound to the caller's context.
func WithLoadTimeout(d time.Duration) Option {
	return func(s *Store) { s.timeout = d }
}

// NewStore creates an empty store backed by source
func NewStore(source Source, log *logrus.Entry, opts ...Option) *Store {
	s := &Store{
		source: source,
		log:    logger.OrDiscard(log).WithField("component", "catalog"),
		index:  map[string]int{},
		subs:   map[int]func([]Product){},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load fetches the catalog and replaces the current list once the fetch completes.
// A result is dropped if a load issued later has already been applied.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	s.issued++
	seq := s.issued
	s.mu.Unlock()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	products, err := s.source.FetchAll(ctx)
	if err != nil {
		s.log.WithError(err).WithField("seq", seq).Warn("Catalog load failed")
		return &LoadError{Err: err}
	}

	s.mu.Lock()
	if seq < s.applied {
		s.mu.Unlock()
		s.log.WithField("seq", seq).Debug("Discarding stale catalog load")
		return nil
	}
	s.applied = seq
	s.products = products
	s.index = make(map[string]int, len(products))
	for i, p := range products {
		s.index[p.ID] = i
	}
	listeners := s.listeners()
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{"seq": seq, "count": len(products)}).Info("Catalog loaded")
	for _, fn := range listeners {
		fn(products)
	}
	return nil
}

// Products returns the current list in catalog order
func (s *Store) Products() []Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Product(nil), s.products...)
}

// GetByID looks up a product
func (s *Store) GetByID(id string) (Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return Product{}, false
	}
	return s.products[i], true
}

// GetByCategory returns the products of a category in catalog order
func (s *Store) GetByCategory(category Category) []Product {
	return s.filter(func(p Product) bool { return p.Category == category })
}

// Search matches query case-insensitively against name, description and tags.
// An empty query returns the whole catalog.
func (s *Store) Search(query string) []Product {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return s.Products()
	}
	return s.filter(func(p Product) bool { return p.matches(needle) })
}

// GetTrending returns trending products by review count, most reviewed first.
// limit <= 0 means no limit.
func (s *Store) GetTrending(limit int) []Product {
	trending := s.filter(func(p Product) bool { return p.IsTrending })
	sort.SliceStable(trending, func(i, j int) bool {
		return trending[i].Reviews > trending[j].Reviews
	})
	if limit > 0 && len(trending) > limit {
		trending = trending[:limit]
	}
	return trending
}

// Subscribe registers fn to be called after every successful load. The returned func unsubscribes.
func (s *Store) Subscribe(fn func([]Product)) func() {
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

func (s *Store) filter(keep func(Product) bool) []Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Product
	for _, p := range s.products {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

// listeners must be called with mu held
func (s *Store) listeners() []func([]Product) {
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]func([]Product), 0, len(ids))
	for _, id := range ids {
		out = append(out, s.subs[id])
	}
	return out
}
