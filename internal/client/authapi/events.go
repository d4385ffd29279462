package authapi

import (
	"sync"

	"github.com/google/uuid"
)

// EventType is the transport-level auth state signal. Consumers derive their
// own state from these; they are not UI state.
type EventType string

const (
	EventInitialSession   EventType = "initial_session"
	EventSignedIn         EventType = "signed_in"
	EventSignedOut        EventType = "signed_out"
	EventTokenRefreshed   EventType = "token_refreshed"
	EventPasswordRecovery EventType = "password_recovery"
)

// Event is delivered to OnAuthStateChange subscribers. Session is nil for
// signed_out.
type Event struct {
	Type    EventType
	Session *Session
}

// Subscription is an owned handle to an auth-state listener. Unsubscribe is
// idempotent and must be called on teardown.
type Subscription struct {
	ID     uuid.UUID
	once   sync.Once
	cancel func()
}

func (s *Subscription) Unsubscribe() {
	s.once.Do(s.cancel)
}

// Broadcaster fans events out to subscribers. Delivery is synchronous on the
// emitting goroutine, in unspecified subscriber order. Service
// implementations (and test fakes) embed it.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[uuid.UUID]func(Event)
}

func (b *Broadcaster) Subscribe(fn func(Event)) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs == nil {
		b.subs = make(map[uuid.UUID]func(Event))
	}
	id := uuid.New()
	b.subs[id] = fn
	return &Subscription{ID: id, cancel: func() { b.remove(id) }}
}

func (b *Broadcaster) remove(id uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, id)
}

func (b *Broadcaster) Emit(ev Event) {
	b.mu.Lock()
	fns := make([]func(Event), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
