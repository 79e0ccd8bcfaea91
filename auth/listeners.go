package auth

import (
	"context"
	"sort"
	"sync"
)

// Event tells listeners what happened to a session
type Event string

// Session events
const (
	EventSignedIn  Event = "SIGNED_IN"
	EventSignedOut Event = "SIGNED_OUT"
)

// Listener is called for every session change. user is nil on EventSignedOut
// when the session could not be attributed.
type Listener func(ctx context.Context, event Event, user *User)

// Listeners is the list of subscribers to session changes
type Listeners struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]Listener
}

// NewListeners returns an empty subscriber list
func NewListeners() *Listeners {
	return &Listeners{
		subs: make(map[int]Listener),
	}
}

// Subscribe adds fn to the list. Calling the returned func removes it again.
func (l *Listeners) Subscribe(fn Listener) (unsubscribe func()) {
	l.mu.Lock()
	id := l.nextID
	l.nextID++
	l.subs[id] = fn
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.subs, id)
			l.mu.Unlock()
		})
	}
}

// Notify calls every subscriber in subscription order
func (l *Listeners) Notify(ctx context.Context, event Event, user *User) {
	l.mu.RLock()
	ids := make([]int, 0, len(l.subs))
	fns := make(map[int]Listener, len(l.subs))
	for id, fn := range l.subs {
		ids = append(ids, id)
		fns[id] = fn
	}
	l.mu.RUnlock()

	sort.Ints(ids)
	for _, id := range ids {
		fns[id](ctx, event, user)
	}
}
