// Package session tracks the signed-in user and the bearer token other stores send with their calls.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/fankick/storefront/internal/pkg/logger"
	"github.com/sirupsen/logrus"
)

// ErrAuthRequired is the cause of every AuthRequiredError
var ErrAuthRequired = errors.New("authentication required")

// AuthRequiredError is returned when an operation needs a signed-in user
type AuthRequiredError struct {
	Op string
}

func (e *AuthRequiredError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, ErrAuthRequired)
}

func (e *AuthRequiredError) Unwrap() error {
	return ErrAuthRequired
}

// Authenticator is the remote auth API
type Authenticator interface {
	Login(ctx context.Context, creds Credentials) (*AuthResult, error)
	Register(ctx context.Context, reg Registration) (*AuthResult, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*User, error)
}

// Store holds the current session. It is safe for concurrent use.
type Store struct {
	auth Authenticator
	log  *logrus.Entry

	mu      sync.RWMutex
	user    *User
	token   string
	subs    map[int]func(*User)
	nextSub int
}

// NewStore creates a signed-out session
func NewStore(auth Authenticator, log *logrus.Entry) *Store {
	return &Store{
		auth: auth,
		log:  logger.OrDiscard(log).WithField("component", "session"),
		subs: map[int]func(*User){},
	}
}

// Login signs in with email and password
func (s *Store) Login(ctx context.Context, creds Credentials) (User, error) {
	creds.Email = strings.ToLower(strings.TrimSpace(creds.Email))
	if creds.Email == "" || creds.Password == "" {
		return User{}, errors.New("email and password are required")
	}

	result, err := s.auth.Login(ctx, creds)
	if err != nil {
		return User{}, fmt.Errorf("login failed: %w", err)
	}
	s.set(&result.User, result.Token)
	s.log.WithField("user_id", result.User.ID).Info("User logged in")
	return result.User, nil
}

// Register creates an account and signs it in
func (s *Store) Register(ctx context.Context, reg Registration) (User, error) {
	reg.Email = strings.ToLower(strings.TrimSpace(reg.Email))
	reg.Name = strings.TrimSpace(reg.Name)
	if reg.Email == "" || reg.Password == "" || reg.Name == "" {
		return User{}, errors.New("email, password and name are required")
	}

	result, err := s.auth.Register(ctx, reg)
	if err != nil {
		return User{}, fmt.Errorf("registration failed: %w", err)
	}
	s.set(&result.User, result.Token)
	s.log.WithField("user_id", result.User.ID).Info("User registered")
	return result.User, nil
}

// Logout revokes the token remotely and always clears the local session.
// The returned error only reports the remote revocation.
func (s *Store) Logout(ctx context.Context) error {
	if !s.Authenticated() {
		return nil
	}

	var remoteErr error
	if err := s.auth.Logout(ctx); err != nil {
		remoteErr = fmt.Errorf("logout failed: %w", err)
		s.log.WithError(err).Warn("Token revocation failed, clearing local session anyway")
	}
	s.set(nil, "")
	return remoteErr
}

// Restore resumes a session from a previously issued token. On failure the session stays signed out.
func (s *Store) Restore(ctx context.Context, token string) (User, error) {
	if token == "" {
		return User{}, &AuthRequiredError{Op: "restore session"}
	}

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	user, err := s.auth.Me(ctx)
	if err != nil {
		s.set(nil, "")
		return User{}, fmt.Errorf("restore session: %w", err)
	}
	s.set(user, token)
	return *user, nil
}

// CurrentUser returns the signed-in user
func (s *Store) CurrentUser() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return User{}, false
	}
	return *s.user, true
}

// Authenticated reports whether a user is signed in
func (s *Store) Authenticated() bool {
	_, ok := s.CurrentUser()
	return ok
}

// RequireUser returns the signed-in user or an AuthRequiredError naming op
func (s *Store) RequireUser(op string) (User, error) {
	user, ok := s.CurrentUser()
	if !ok {
		return User{}, &AuthRequiredError{Op: op}
	}
	return user, nil
}

// Token returns the bearer token, empty when signed out
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Subscribe registers fn to be called whenever the signed-in user changes. fn receives nil on sign-out.
func (s *Store) Subscribe(fn func(*User)) func() {
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

func (s *Store) set(user *User, token string) {
	s.mu.Lock()
	var snapshot *User
	if user != nil {
		u := *user
		snapshot = &u
	}
	s.user = snapshot
	s.token = token

	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	listeners := make([]func(*User), 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, s.subs[id])
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		if snapshot == nil {
			fn(nil)
			continue
		}
		u := *snapshot
		fn(&u)
	}
}
