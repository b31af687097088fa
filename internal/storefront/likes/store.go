// Package likes keeps the signed-in user's wishlist with optimistic toggles.
package likes

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/fankick/storefront/internal/pkg/logger"
	"github.com/fankick/storefront/internal/storefront/session"
	"github.com/sirupsen/logrus"
)

// Wishlist is the remote wishlist API
type Wishlist interface {
	WishlistIDs(ctx context.Context) ([]string, error)
	AddToWishlist(ctx context.Context, productID string) error
	RemoveFromWishlist(ctx context.Context, productID string) error
}

// Authorizer resolves the signed-in user. *session.Store satisfies it.
type Authorizer interface {
	RequireUser(op string) (session.User, error)
}

// SyncOp names the wishlist call that failed
type SyncOp string

const (
	SyncLike    SyncOp = "like"
	SyncUnlike  SyncOp = "unlike"
	SyncRefresh SyncOp = "refresh"
)

// SyncError is returned when a remote wishlist call failed. For a toggle the local change has been
// rolled back; for a refresh the previous liked set is kept.
type SyncError struct {
	Op        SyncOp
	ProductID string
	Liked     bool
	Err       error
}

func (e *SyncError) Error() string {
	if e.Op == SyncRefresh {
		return fmt.Sprintf("wishlist: refresh failed: %v", e.Err)
	}
	return fmt.Sprintf("wishlist: %s %s failed: %v", e.Op, e.ProductID, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// Store holds the liked product ids
type Store struct {
	remote Wishlist
	auth   Authorizer
	log    *logrus.Entry

	mu      sync.Mutex
	liked   map[string]struct{}
	issued  uint64
	applied uint64
	subs    map[int]func([]string)
	nextSub int
}

// NewStore creates an empty liked set
func NewStore(remote Wishlist, auth Authorizer, log *logrus.Entry) *Store {
	return &Store{
		remote: remote,
		auth:   auth,
		log:    logger.OrDiscard(log).WithField("component", "likes"),
		liked:  map[string]struct{}{},
		subs:   map[int]func([]string){},
	}
}

// ToggleLike flips membership of productID locally, then confirms it remotely.
// On remote failure that product's membership is restored and a SyncError returned.
func (s *Store) ToggleLike(ctx context.Context, productID string) (bool, error) {
	user, err := s.auth.RequireUser("toggle like")
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	_, wasLiked := s.liked[productID]
	nowLiked := !wasLiked
	s.setLocked(productID, nowLiked)
	// refreshes issued before this toggle carry an older server view
	s.issued++
	s.applied = s.issued
	listeners, ids := s.publishLocked()
	s.mu.Unlock()
	notify(listeners, ids)

	if nowLiked {
		err = s.remote.AddToWishlist(ctx, productID)
	} else {
		err = s.remote.RemoveFromWishlist(ctx, productID)
	}
	if err == nil {
		return nowLiked, nil
	}

	s.log.WithError(err).WithFields(logrus.Fields{
		"user_id":    user.ID,
		"product_id": productID,
	}).Warn("Wishlist sync failed, rolling back")

	s.mu.Lock()
	s.setLocked(productID, wasLiked)
	listeners, ids = s.publishLocked()
	s.mu.Unlock()
	notify(listeners, ids)

	op := SyncUnlike
	if nowLiked {
		op = SyncLike
	}
	return wasLiked, &SyncError{Op: op, ProductID: productID, Liked: nowLiked, Err: err}
}

// IsLiked reports membership
func (s *Store) IsLiked(productID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.liked[productID]
	return ok
}

// Liked returns the liked ids in sorted order
func (s *Store) Liked() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedLocked()
}

// Refresh replaces the liked set with the server's. Results of a refresh issued before an
// already-applied refresh or toggle are dropped. On failure the current set is kept and a
// SyncError returned.
func (s *Store) Refresh(ctx context.Context) error {
	if _, err := s.auth.RequireUser("refresh wishlist"); err != nil {
		return err
	}

	s.mu.Lock()
	s.issued++
	seq := s.issued
	s.mu.Unlock()

	productIDs, err := s.remote.WishlistIDs(ctx)
	if err != nil {
		s.log.WithError(err).Warn("Wishlist refresh failed, keeping current set")
		return &SyncError{Op: SyncRefresh, Err: err}
	}

	s.mu.Lock()
	if seq < s.applied {
		s.mu.Unlock()
		return nil
	}
	s.applied = seq
	s.liked = make(map[string]struct{}, len(productIDs))
	for _, id := range productIDs {
		s.liked[id] = struct{}{}
	}
	listeners, ids := s.publishLocked()
	s.mu.Unlock()
	notify(listeners, ids)
	return nil
}

// Reset empties the liked set, used on sign-out
func (s *Store) Reset() {
	s.mu.Lock()
	s.issued++
	s.applied = s.issued
	s.liked = map[string]struct{}{}
	listeners, ids := s.publishLocked()
	s.mu.Unlock()
	notify(listeners, ids)
}

// Subscribe registers fn to receive the liked ids after every change
func (s *Store) Subscribe(fn func([]string)) func() {
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

func (s *Store) setLocked(productID string, liked bool) {
	if liked {
		s.liked[productID] = struct{}{}
	} else {
		delete(s.liked, productID)
	}
}

func (s *Store) sortedLocked() []string {
	ids := make([]string, 0, len(s.liked))
	for id := range s.liked {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Store) publishLocked() ([]func([]string), []string) {
	keys := make([]int, 0, len(s.subs))
	for k := range s.subs {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	listeners := make([]func([]string), 0, len(keys))
	for _, k := range keys {
		listeners = append(listeners, s.subs[k])
	}
	return listeners, s.sortedLocked()
}

func notify(listeners []func([]string), ids []string) {
	for _, fn := range listeners {
		fn(append([]string(nil), ids...))
	}
}
