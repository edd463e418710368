package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"abisal/client/internal/token"
)

var ErrInvalidToken = errors.New("invalid token")

// Identity is the user view derived from decoded token claims. It is handed
// out by value so callers cannot write session state through it.
type Identity struct {
	UserID string     `json:"userId"`
	Email  string     `json:"email"`
	Role   token.Role `json:"role"`
}

// Snapshot is a point-in-time read of the session, as published to
// observers.
type Snapshot struct {
	Loading       bool
	Authenticated bool
	User          Identity
	HasUser       bool
}

// Store is the single source of truth for who is logged in. Token and user
// change only through Init, Login and Logout; everything else reads.
type Store struct {
	persist Persistence
	log     zerolog.Logger

	// now is swapped in tests to move the clock.
	now func() time.Time

	// opMu serializes Init/Login/Logout end to end: persistence write,
	// in-memory update and observer notification of one call all complete
	// before the next call begins.
	opMu sync.Mutex

	stateMu sync.RWMutex
	raw     string
	claims  *token.Claims
	user    *Identity
	loading bool

	subMu   sync.Mutex
	subs    []subscriber
	nextSub int
}

type subscriber struct {
	id int
	fn func(Snapshot)
}

func New(persist Persistence, log zerolog.Logger) *Store {
	return &Store{
		persist: persist,
		log:     log,
		now:     time.Now,
		loading: true,
	}
}

// Init reads any persisted session at process start. A record that fails to
// decode or has already expired is cleared from storage. This is the only
// place persisted state is read.
func (s *Store) Init(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	rec, err := s.persist.Load(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoSession) {
			s.log.Warn().Err(err).Msg("could not read persisted session")
		}
		s.set("", nil, nil)
		s.notify()
		return nil
	}

	claims := token.Decode(rec.Token)
	if claims == nil || token.IsExpired(claims, s.now()) {
		if err := s.persist.Clear(ctx); err != nil {
			s.log.Warn().Err(err).Msg("could not clear stale session")
		}
		s.set("", nil, nil)
		s.notify()
		return nil
	}

	ident := identityFrom(claims)
	s.set(rec.Token, claims, &ident)
	s.notify()

	s.log.Debug().Str("user_id", ident.UserID).Msg("session restored")
	return nil
}

// Login decodes and adopts a freshly issued token. An undecodable token
// leaves the session untouched.
func (s *Store) Login(ctx context.Context, raw string) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	claims := token.Decode(raw)
	if claims == nil {
		s.log.Warn().Msg("login rejected: token does not decode")
		return ErrInvalidToken
	}

	ident := identityFrom(claims)
	if err := s.persist.Save(ctx, Record{Token: raw, User: ident}); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}

	s.set(raw, claims, &ident)
	s.notify()

	s.log.Info().Str("user_id", ident.UserID).Str("role", string(ident.Role)).Msg("logged in")
	return nil
}

// Logout clears persisted and in-memory state unconditionally. Safe to call
// when already logged out.
func (s *Store) Logout(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	err := s.persist.Clear(ctx)

	s.set("", nil, nil)
	s.notify()

	if err != nil {
		return fmt.Errorf("clear persisted session: %w", err)
	}
	return nil
}

// IsAuthenticated re-evaluates token presence and expiry against the current
// clock on every call; it is never memoized.
func (s *Store) IsAuthenticated() bool {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.claims != nil && !token.IsExpired(s.claims, s.now())
}

func (s *Store) HasRole(required token.Role) bool {
	return s.HasAnyRole(required)
}

func (s *Store) HasAnyRole(roles ...token.Role) bool {
	if !s.IsAuthenticated() {
		return false
	}
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	if s.user == nil {
		return false
	}
	for _, role := range roles {
		if s.user.Role == role {
			return true
		}
	}
	return false
}

func (s *Store) Loading() bool {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.loading
}

// Token returns the raw bearer token, but only while the session counts as
// authenticated.
func (s *Store) Token() (string, bool) {
	if !s.IsAuthenticated() {
		return "", false
	}
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.raw, s.raw != ""
}

func (s *Store) CurrentUser() (Identity, bool) {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	if s.user == nil {
		return Identity{}, false
	}
	return *s.user, true
}

func (s *Store) Snapshot() Snapshot {
	snap := Snapshot{
		Loading:       s.Loading(),
		Authenticated: s.IsAuthenticated(),
	}
	if user, ok := s.CurrentUser(); ok {
		snap.User = user
		snap.HasUser = true
	}
	return snap
}

// Subscribe registers an observer for session changes and returns its
// unsubscribe function. Observers run synchronously in commit order and must
// not call Init, Login or Logout.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs = append(s.subs, subscriber{id: id, fn: fn})

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// set replaces token, claims and user together; they are never written
// separately. Any state write also ends the loading phase.
func (s *Store) set(raw string, claims *token.Claims, user *Identity) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.raw = raw
	s.claims = claims
	s.user = user
	s.loading = false
}

func (s *Store) notify() {
	snap := s.Snapshot()

	s.subMu.Lock()
	subs := make([]subscriber, len(s.subs))
	copy(subs, s.subs)
	s.subMu.Unlock()

	for _, sub := range subs {
		sub.fn(snap)
	}
}

func identityFrom(claims *token.Claims) Identity {
	return Identity{
		UserID: string(claims.UserID),
		Email:  claims.Email,
		Role:   claims.Role,
	}
}
