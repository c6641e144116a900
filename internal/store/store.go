package store

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"marketsync/internal/action"
	"marketsync/internal/logging"
)

// Dispatch applies a single action to the store.
type Dispatch func(action.Action)

// Middleware wraps dispatch without altering action or resulting state.
type Middleware func(next Dispatch) Dispatch

// Dispatcher is the write-side contract exposed to gateways and facades.
type Dispatcher interface {
	Dispatch(a action.Action)
}

// Store owns the application state. It is the single shared mutable
// resource; every mutation goes through Dispatch, which serializes
// reducer application so each action is one atomic state transition.
type Store struct {
	logger zerolog.Logger

	dispatchMu sync.Mutex
	dispatch   Dispatch

	stateMu sync.RWMutex
	state   State

	subsMu sync.RWMutex
	subs   map[int]func(State)
	nextID int
}

// Option configures a Store.
type Option func(*Store)

// WithMiddleware wraps the store's dispatch chain. Middleware runs in the
// order given, outermost first.
func WithMiddleware(mw ...Middleware) Option {
	return func(s *Store) {
		for i := len(mw) - 1; i >= 0; i-- {
			s.dispatch = mw[i](s.dispatch)
		}
	}
}

// WithMaxNotifications overrides the notification retention bound.
func WithMaxNotifications(max int) Option {
	return func(s *Store) {
		if max > 0 {
			s.stateMu.Lock()
			s.state.UI.MaxNotifications = max
			s.stateMu.Unlock()
		}
	}
}

// New creates a store with an empty initial state.
func New(logger zerolog.Logger, opts ...Option) *Store {
	s := &Store{
		logger: logging.WithComponent(logger, "store"),
		state:  NewState(),
		subs:   map[int]func(State){},
	}
	s.dispatch = s.apply
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dispatch applies an action through the middleware chain. Actions are
// processed strictly in the order their Dispatch calls acquire the lock.
func (s *Store) Dispatch(a action.Action) {
	if a == nil {
		return
	}
	s.dispatchMu.Lock()
	s.dispatch(a)
	s.dispatchMu.Unlock()
}

// apply is the innermost dispatch: reduce, swap, notify, schedule effects.
func (s *Store) apply(a action.Action) {
	s.stateMu.Lock()
	next := Reduce(s.state, a)
	s.state = next
	s.stateMu.Unlock()

	s.notify(next)
	s.scheduleEffects(a)
}

// State returns a snapshot of the current state. Maps inside the snapshot
// must be treated as read-only; reducers never mutate them in place.
func (s *Store) State() State {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// Subscribe registers a change listener and returns an unsubscribe func.
// Listeners are invoked synchronously after each applied action, while
// the dispatch lock is still held, so each listener observes every state
// transition in order. A listener must therefore never call Dispatch
// synchronously; react from a new goroutine instead.
func (s *Store) Subscribe(fn func(State)) func() {
	s.subsMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subsMu.Unlock()

	return func() {
		s.subsMu.Lock()
		delete(s.subs, id)
		s.subsMu.Unlock()
	}
}

func (s *Store) notify(state State) {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()
	for _, fn := range s.subs {
		fn(state)
	}
}

// scheduleEffects runs the store's only built-in side effect: expiring
// auto-hide notifications. Reducers stay pure; the timer lives here.
func (s *Store) scheduleEffects(a action.Action) {
	added, ok := a.(action.NotificationAdded)
	if !ok || added.Notification.AutoHide <= 0 {
		return
	}
	id := added.Notification.ID
	time.AfterFunc(added.Notification.AutoHide, func() {
		s.Dispatch(action.NotificationDismissed{ID: id})
	})
}
