package statesync

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Lifecycle events
const (
	EventBeforeDestroy = "before:destroy"
	EventDestroy       = "destroy"
)

// Handler is a named operation on a target, invoked by bindings
type Handler func(args ...any)

// HandlerResolver looks up handlers by name at dispatch time
type HandlerResolver interface {
	Handler(name string) (Handler, bool)
}

// Target is what bindings and syncings attach to: it resolves handler names,
// emits its own events (including EventDestroy) and tracks the listeners it
// installs on other emitters.
type Target interface {
	Emitter
	Observer
	HandlerResolver
}

// syncTracker is implemented by targets that remember their syncings so they
// can be stopped by entity.
type syncTracker interface {
	trackSyncing(s *Syncing)
	untrackSyncing(s *Syncing)
	syncingsFor(entity Entity) []*Syncing
}

// Object is the base for anything with a lifecycle: it emits events, owns a
// handler table and can be destroyed exactly once.
type Object struct {
	*Events

	cid       string
	handlers  map[string]Handler
	syncings  []*Syncing
	destroyed atomic.Bool
	hmu       sync.RWMutex
}

// NewObject creates an Object with a fresh client id
func NewObject() *Object {
	return &Object{
		Events:   NewEvents(),
		cid:      uuid.NewString(),
		handlers: make(map[string]Handler),
	}
}

// CID returns the object's unique client id
func (o *Object) CID() string {
	return o.cid
}

// Handle registers or replaces the named handler
func (o *Object) Handle(name string, h Handler) {
	o.hmu.Lock()
	defer o.hmu.Unlock()

	o.handlers[name] = h
}

// Handler returns the named handler
func (o *Object) Handler(name string) (Handler, bool) {
	o.hmu.RLock()
	defer o.hmu.RUnlock()

	h, ok := o.handlers[name]
	return h, ok && h != nil
}

// RemoveHandler deletes the named handler
func (o *Object) RemoveHandler(name string) {
	o.hmu.Lock()
	defer o.hmu.Unlock()

	delete(o.handlers, name)
}

// TriggerMethod triggers the event and then calls the matching "on" handler,
// if any: "before:render" calls "onBeforeRender".
func (o *Object) TriggerMethod(name string, args ...any) {
	o.Trigger(name, args...)
	if h, ok := o.Handler(MethodName(name)); ok {
		h(args...)
	}
}

// MethodName converts an event name to its handler name: "change:foo" becomes "onChangeFoo".
func MethodName(event string) string {
	var b strings.Builder
	b.WriteString("on")
	for _, part := range strings.Split(event, ":") {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}

// Destroy emits EventBeforeDestroy and EventDestroy, then removes every
// listener the object installed or owns. Only the first call has any effect.
func (o *Object) Destroy() {
	if !o.destroyed.CompareAndSwap(false, true) {
		return
	}
	logDebug().Str("cid", o.cid).Msg("destroying object")

	o.TriggerMethod(EventBeforeDestroy)
	o.TriggerMethod(EventDestroy)

	o.StopListeningAll()
	o.OffAll()
}

// IsDestroyed returns true once Destroy has been called
func (o *Object) IsDestroyed() bool {
	return o.destroyed.Load()
}

func (o *Object) trackSyncing(s *Syncing) {
	o.hmu.Lock()
	defer o.hmu.Unlock()

	o.syncings = append(o.syncings, s)
}

func (o *Object) untrackSyncing(s *Syncing) {
	o.hmu.Lock()
	defer o.hmu.Unlock()

	for i, other := range o.syncings {
		if other == s {
			o.syncings = append(o.syncings[:i:i], o.syncings[i+1:]...)
			return
		}
	}
}

func (o *Object) syncingsFor(entity Entity) []*Syncing {
	o.hmu.RLock()
	defer o.hmu.RUnlock()

	var out []*Syncing
	for _, s := range o.syncings {
		if s.entity == entity {
			out = append(out, s)
		}
	}
	return out
}
