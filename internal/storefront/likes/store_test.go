package likes

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/fankick/storefront/internal/storefront/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWishlist struct {
	mu       sync.Mutex
	ids      []string
	failList error
	failAdd  error
	failDel  error
	adds     []string
	removes  []string
	calls    int
	started  chan int
	gates    []chan []string
}

func (f *fakeWishlist) WishlistIDs(ctx context.Context) ([]string, error) {
	if f.failList != nil {
		return nil, f.failList
	}
	if f.gates == nil {
		return f.ids, nil
	}
	f.mu.Lock()
	call := f.calls
	f.calls++
	f.mu.Unlock()

	f.started <- call
	return <-f.gates[call], nil
}

func (f *fakeWishlist) AddToWishlist(ctx context.Context, productID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.adds = append(f.adds, productID)
	return f.failAdd
}

func (f *fakeWishlist) RemoveFromWishlist(ctx context.Context, productID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removes = append(f.removes, productID)
	return f.failDel
}

type fakeAuth struct {
	signedIn bool
}

func (a fakeAuth) RequireUser(op string) (session.User, error) {
	if !a.signedIn {
		return session.User{}, &session.AuthRequiredError{Op: op}
	}
	return session.User{ID: "u1"}, nil
}

func TestToggleLikeIsItsOwnInverse(t *testing.T) {
	remote := &fakeWishlist{}
	store := NewStore(remote, fakeAuth{signedIn: true}, nil)

	liked, err := store.ToggleLike(context.Background(), "p1")
	require.NoError(t, err)
	assert.True(t, liked)
	assert.True(t, store.IsLiked("p1"))

	liked, err = store.ToggleLike(context.Background(), "p1")
	require.NoError(t, err)
	assert.False(t, liked)
	assert.False(t, store.IsLiked("p1"))

	assert.Equal(t, []string{"p1"}, remote.adds)
	assert.Equal(t, []string{"p1"}, remote.removes)
}

func TestToggleLikeRequiresAuth(t *testing.T) {
	remote := &fakeWishlist{}
	store := NewStore(remote, fakeAuth{}, nil)

	_, err := store.ToggleLike(context.Background(), "p1")
	assert.ErrorIs(t, err, session.ErrAuthRequired)
	assert.False(t, store.IsLiked("p1"))
	assert.Empty(t, remote.adds)

	assert.ErrorIs(t, store.Refresh(context.Background()), session.ErrAuthRequired)
}

func TestToggleLikeRollsBackOnlyThatProduct(t *testing.T) {
	remote := &fakeWishlist{}
	store := NewStore(remote, fakeAuth{signedIn: true}, nil)
	_, err := store.ToggleLike(context.Background(), "p1")
	require.NoError(t, err)

	var seen [][]string
	store.Subscribe(func(ids []string) { seen = append(seen, ids) })

	cause := errors.New("503 service unavailable")
	remote.failAdd = cause
	liked, err := store.ToggleLike(context.Background(), "p2")

	var syncErr *SyncError
	require.True(t, errors.As(err, &syncErr))
	assert.Equal(t, "p2", syncErr.ProductID)
	assert.Equal(t, SyncLike, syncErr.Op)
	assert.True(t, syncErr.Liked)
	assert.ErrorIs(t, err, cause)
	assert.False(t, liked)
	assert.Equal(t, []string{"p1"}, store.Liked())

	// optimistic apply, then rollback
	require.Len(t, seen, 2)
	assert.Equal(t, []string{"p1", "p2"}, seen[0])
	assert.Equal(t, []string{"p1"}, seen[1])

	remote.failDel = cause
	_, err = store.ToggleLike(context.Background(), "p1")
	require.Error(t, err)
	assert.True(t, store.IsLiked("p1"))
}

func TestRefreshReplacesSet(t *testing.T) {
	remote := &fakeWishlist{ids: []string{"p3", "p1"}}
	store := NewStore(remote, fakeAuth{signedIn: true}, nil)

	require.NoError(t, store.Refresh(context.Background()))
	assert.Equal(t, []string{"p1", "p3"}, store.Liked())

	store.Reset()
	assert.Empty(t, store.Liked())
}

func TestStaleRefreshIsDiscarded(t *testing.T) {
	remote := &fakeWishlist{
		started: make(chan int, 2),
		gates:   []chan []string{make(chan []string, 1), make(chan []string, 1)},
	}
	store := NewStore(remote, fakeAuth{signedIn: true}, nil)

	first := make(chan error, 1)
	go func() { first <- store.Refresh(context.Background()) }()
	require.Equal(t, 0, <-remote.started)

	second := make(chan error, 1)
	go func() { second <- store.Refresh(context.Background()) }()
	require.Equal(t, 1, <-remote.started)

	remote.gates[1] <- []string{"fresh"}
	require.NoError(t, <-second)
	remote.gates[0] <- []string{"stale"}
	require.NoError(t, <-first)

	assert.Equal(t, []string{"fresh"}, store.Liked())
}

func TestFailedRefreshKeepsCurrentSet(t *testing.T) {
	remote := &fakeWishlist{ids: []string{"p1", "p2"}}
	store := NewStore(remote, fakeAuth{signedIn: true}, nil)
	require.NoError(t, store.Refresh(context.Background()))

	cause := errors.New("connection reset")
	remote.failList = cause
	err := store.Refresh(context.Background())

	var syncErr *SyncError
	require.True(t, errors.As(err, &syncErr))
	assert.Equal(t, SyncRefresh, syncErr.Op)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, []string{"p1", "p2"}, store.Liked())
}

func TestRefreshIssuedBeforeToggleIsDiscarded(t *testing.T) {
	remote := &fakeWishlist{
		started: make(chan int, 1),
		gates:   []chan []string{make(chan []string, 1)},
	}
	store := NewStore(remote, fakeAuth{signedIn: true}, nil)

	refreshed := make(chan error, 1)
	go func() { refreshed <- store.Refresh(context.Background()) }()
	require.Equal(t, 0, <-remote.started)

	liked, err := store.ToggleLike(context.Background(), "p9")
	require.NoError(t, err)
	require.True(t, liked)

	remote.gates[0] <- []string{"p1"}
	require.NoError(t, <-refreshed)

	assert.True(t, store.IsLiked("p9"))
	assert.Equal(t, []string{"p9"}, store.Liked())
}
