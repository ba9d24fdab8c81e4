package cart

import (
	"sync"
	"time"

	"github.com/krisalay/storefront-cache/eviction"
	"github.com/krisalay/storefront-cache/platform"
	"github.com/krisalay/storefront-cache/types"
)

const (
	DefaultIdleTTL     = 30 * time.Minute
	DefaultMaxSessions = 10000
)

/*
Sessions hands out one Store per shopper session.

BEHAVIOR:
---------
  - A session unused for longer than the idle TTL is forgotten. Idle sessions are
    swept by Get, at most once every quarter of the idle TTL.
  - At most maxSessions Stores are held; creating one more forgets the least
    recently used session.
  - Forgetting a session never touches its platform basket. The next Get for that
    id builds a fresh Store that re-reads the basket.
*/
type Sessions struct {
	storeOpts   []Option
	idleTTL     time.Duration
	maxSessions int
	clock       types.Clock

	mu        sync.Mutex
	provider  platform.BasketProvider
	stores    map[string]*session
	order     eviction.Policy
	nextSweep time.Time
}

type session struct {
	store    *Store
	lastUsed time.Time
}

type SessionsOption func(*Sessions)

// WithStoreOptions applies opts to every Store the registry builds.
func WithStoreOptions(opts ...Option) SessionsOption {
	return func(s *Sessions) { s.storeOpts = append(s.storeOpts, opts...) }
}

// WithIdleTTL sets how long an unused session is kept. Zero or less keeps sessions
// until they are dropped or pushed out by the size bound.
func WithIdleTTL(d time.Duration) SessionsOption {
	return func(s *Sessions) { s.idleTTL = d }
}

// WithMaxSessions bounds the number of Stores held. Zero or less means no bound.
func WithMaxSessions(n int) SessionsOption {
	return func(s *Sessions) { s.maxSessions = n }
}

func WithSessionClock(c types.Clock) SessionsOption {
	return func(s *Sessions) {
		if c != nil {
			s.clock = c
		}
	}
}

// NewSessions builds a registry. provider may be nil until the platform is ready.
func NewSessions(provider platform.BasketProvider, opts ...SessionsOption) *Sessions {
	s := &Sessions{
		idleTTL:     DefaultIdleTTL,
		maxSessions: DefaultMaxSessions,
		clock:       types.SystemClock{},
		provider:    provider,
		stores:      make(map[string]*session),
		order:       eviction.NewEvictionPolicy(eviction.LRU),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the Store of sessionID, creating it on first use.
func (s *Sessions) Get(sessionID string) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	s.sweep(now)

	if sess, ok := s.stores[sessionID]; ok {
		sess.lastUsed = now
		s.order.OnGet(sessionID)
		return sess.store
	}

	if s.maxSessions > 0 {
		for len(s.stores) >= s.maxSessions {
			victim := s.order.Evict()
			if victim == "" {
				break
			}
			delete(s.stores, victim)
		}
	}

	st := NewStore(s.storeOpts...)
	if s.provider != nil {
		st.Attach(s.provider.Basket(sessionID))
	}
	s.stores[sessionID] = &session{store: st, lastUsed: now}
	s.order.OnPut(sessionID)
	return st
}

// sweep forgets idle sessions. Callers hold mu.
func (s *Sessions) sweep(now time.Time) {
	if s.idleTTL <= 0 || now.Before(s.nextSweep) {
		return
	}
	s.nextSweep = now.Add(s.idleTTL / 4)
	for id, sess := range s.stores {
		if now.Sub(sess.lastUsed) > s.idleTTL {
			delete(s.stores, id)
			s.order.Remove(id)
		}
	}
}

// Attach binds every existing and future Store to provider.
func (s *Sessions) Attach(provider platform.BasketProvider) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.provider = provider
	for id, sess := range s.stores {
		sess.store.Attach(provider.Basket(id))
	}
}

func (s *Sessions) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.provider != nil
}

// Drop forgets a session's Store. The platform basket is untouched.
func (s *Sessions) Drop(sessionID string) {
	s.mu.Lock()
	delete(s.stores, sessionID)
	s.order.Remove(sessionID)
	s.mu.Unlock()
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stores)
}
