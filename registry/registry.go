package registry

import (
	"math"
	"sync"

	"github.com/wippyai/tsgo-bridge/errors"
)

// Token is an opaque callback identity. Token 0 is reserved and always invalid.
type Token uint32

// EventType identifies a registry lifecycle notification.
type EventType uint8

const (
	EventRegistered EventType = iota
	EventUnregistered
)

// Event describes one registration change.
type Event struct {
	Value any
	Token Token
	Type  EventType
}

// Observer receives notifications about registry changes.
type Observer interface {
	OnRegistryEvent(Event)
}

// Dropper is implemented by state that must be torn down when its token is
// unregistered. Drop runs outside the registry lock.
type Dropper interface {
	Drop()
}

// Registry maps tokens to callback state.
type Registry struct {
	entries   map[Token]any
	observers []Observer
	next      uint32
	mu        sync.Mutex
	obsMu     sync.RWMutex
}

var defaultRegistry = New()

// Default returns the process-wide registry.
func Default() *Registry {
	return defaultRegistry
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		entries: make(map[Token]any, 16),
	}
}

// Register stores state and returns a fresh token.
func (r *Registry) Register(state any) (Token, error) {
	if state == nil {
		return 0, errors.NilPointer(errors.PhaseRegistry, nil, "callback state")
	}

	r.mu.Lock()
	if r.next == math.MaxUint32 {
		r.mu.Unlock()
		return 0, errors.New(errors.PhaseRegistry, errors.KindResourceExhausted).
			Detail("callback tokens exhausted").
			Build()
	}
	r.next++
	token := Token(r.next)
	r.entries[token] = state
	r.mu.Unlock()

	r.notify(Event{Type: EventRegistered, Token: token, Value: state})
	return token, nil
}

// Lookup returns the state registered under token.
func (r *Registry) Lookup(token Token) (any, bool) {
	if token == 0 {
		return nil, false
	}
	r.mu.Lock()
	state, ok := r.entries[token]
	r.mu.Unlock()
	return state, ok
}

// Unregister removes token. Unregistering an unknown or already removed token
// is a no-op and reports false.
func (r *Registry) Unregister(token Token) bool {
	if token == 0 {
		return false
	}
	r.mu.Lock()
	state, ok := r.entries[token]
	delete(r.entries, token)
	r.mu.Unlock()

	if !ok {
		return false
	}
	if d, ok := state.(Dropper); ok {
		d.Drop()
	}
	r.notify(Event{Type: EventUnregistered, Token: token, Value: state})
	return true
}

// Len returns the number of registered tokens.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Subscribe adds an observer for registry events.
func (r *Registry) Subscribe(o Observer) {
	r.obsMu.Lock()
	defer r.obsMu.Unlock()
	r.observers = append(r.observers, o)
}

// Unsubscribe removes an observer.
func (r *Registry) Unsubscribe(o Observer) {
	r.obsMu.Lock()
	defer r.obsMu.Unlock()
	for i, obs := range r.observers {
		if obs == o {
			r.observers = append(r.observers[:i], r.observers[i+1:]...)
			return
		}
	}
}

func (r *Registry) notify(e Event) {
	r.obsMu.RLock()
	observers := make([]Observer, len(r.observers))
	copy(observers, r.observers)
	r.obsMu.RUnlock()

	for _, o := range observers {
		o.OnRegistryEvent(e)
	}
}

var errClosedScope = errors.New(errors.PhaseRegistry, errors.KindInvalidData).
	Detail("registry scope is closed").
	Build()
