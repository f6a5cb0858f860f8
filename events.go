package statesync

import (
	"sync"
	"sync/atomic"
)

// EventAll is the catch-all event. Its listeners receive the event name
// followed by the event arguments.
const EventAll = "all"

// Callback is an event listener
type Callback func(args ...any)

// ListenerID identifies a registered listener. IDs are unique across all emitters.
type ListenerID uint64

// Emitter is an object listeners can be attached to
type Emitter interface {
	On(name string, cb Callback) ListenerID
	Once(name string, cb Callback) ListenerID
	Off(id ListenerID) bool
	Trigger(name string, args ...any)
}

// Observer installs listeners on other emitters and can remove them again.
type Observer interface {
	ListenTo(source Emitter, name string, cb Callback) ListenerID
	ListenToOnce(source Emitter, name string, cb Callback) ListenerID
	StopListening(source Emitter, names ...string)
	StopListeningID(id ListenerID) bool
}

// PanicHandler is called when a listener panics
type PanicHandler func(name string, args []any, panicValue any)

var lastListenerID atomic.Uint64

func nextListenerID() ListenerID {
	return ListenerID(lastListenerID.Add(1))
}

// listener wraps a callback with metadata
type listener struct {
	id       ListenerID
	name     string
	callback Callback
	once     bool
	executed int32 // For once listeners, atomically tracks if executed
	removed  atomic.Bool
}

// listening records a listener this emitter installed on another one
type listening struct {
	source Emitter
	name   string
}

// Events is a named-event emitter. Listeners for one event run synchronously
// in registration order, followed by the listeners of EventAll.
type Events struct {
	handlers     map[string][]*listener
	index        map[ListenerID]*listener
	listeningTo  map[ListenerID]listening
	panicHandler PanicHandler
	mu           sync.RWMutex
}

// NewEvents creates an empty emitter
func NewEvents() *Events {
	return &Events{
		handlers:    make(map[string][]*listener),
		index:       make(map[ListenerID]*listener),
		listeningTo: make(map[ListenerID]listening),
	}
}

// On registers cb for the named event
func (e *Events) On(name string, cb Callback) ListenerID {
	return e.add(name, cb, false)
}

// Once registers cb to be called at most once for the named event
func (e *Events) Once(name string, cb Callback) ListenerID {
	return e.add(name, cb, true)
}

func (e *Events) add(name string, cb Callback, once bool) ListenerID {
	l := &listener{
		id:       nextListenerID(),
		name:     name,
		callback: cb,
		once:     once,
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.handlers[name] = append(e.handlers[name], l)
	e.index[l.id] = l
	return l.id
}

// Off removes a single listener. It reports whether the listener was registered.
func (e *Events) Off(id ListenerID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.removeLocked(id)
}

func (e *Events) removeLocked(id ListenerID) bool {
	l, exists := e.index[id]
	if !exists {
		return false
	}
	l.removed.Store(true)
	delete(e.index, id)

	listeners := e.handlers[l.name]
	// Create a new slice so in-flight dispatches keep their copy
	remaining := make([]*listener, 0, len(listeners))
	for _, other := range listeners {
		if other != l {
			remaining = append(remaining, other)
		}
	}
	if len(remaining) == 0 {
		delete(e.handlers, l.name)
	} else {
		e.handlers[l.name] = remaining
	}
	return true
}

// OffEvent removes every listener of the named event
func (e *Events) OffEvent(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, l := range e.handlers[name] {
		l.removed.Store(true)
		delete(e.index, l.id)
	}
	delete(e.handlers, name)
}

// OffAll removes all listeners
func (e *Events) OffAll() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, l := range e.index {
		l.removed.Store(true)
	}
	e.handlers = make(map[string][]*listener)
	e.index = make(map[ListenerID]*listener)
}

// HasListeners returns true if the named event has any listeners
func (e *Events) HasListeners(name string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return len(e.handlers[name]) > 0
}

// ListenerCount returns the number of listeners for the named event
func (e *Events) ListenerCount(name string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return len(e.handlers[name])
}

// Trigger calls every listener of the named event with args, then every
// EventAll listener with the name prepended. Listeners removed while the
// dispatch is running are skipped; listeners added are not called until the
// next Trigger.
func (e *Events) Trigger(name string, args ...any) {
	e.mu.RLock()
	named := copyListeners(e.handlers[name])
	var all []*listener
	if name != EventAll {
		all = copyListeners(e.handlers[EventAll])
	}
	panicHandler := e.panicHandler
	e.mu.RUnlock()

	for _, l := range named {
		e.invoke(l, name, args, panicHandler)
	}
	if len(all) == 0 {
		return
	}

	allArgs := make([]any, 0, len(args)+1)
	allArgs = append(allArgs, name)
	allArgs = append(allArgs, args...)
	for _, l := range all {
		e.invoke(l, name, allArgs, panicHandler)
	}
}

func copyListeners(listeners []*listener) []*listener {
	if len(listeners) == 0 {
		return nil
	}
	out := make([]*listener, len(listeners))
	copy(out, listeners)
	return out
}

// invoke executes a listener, recovering panics only when a PanicHandler is set
func (e *Events) invoke(l *listener, name string, args []any, panicHandler PanicHandler) {
	if l.removed.Load() {
		return
	}

	if l.once {
		if !atomic.CompareAndSwapInt32(&l.executed, 0, 1) {
			// Already executed, skip
			return
		}
		e.Off(l.id)
	}

	if panicHandler != nil {
		defer func() {
			if r := recover(); r != nil {
				logWarn().Str("event", name).Interface("panic", r).Msg("listener panicked")
				panicHandler(name, args, r)
			}
		}()
	}

	l.callback(args...)
}

// SetPanicHandler sets a function to be called when a listener panics.
// Without one, panics propagate to the caller of Trigger.
func (e *Events) SetPanicHandler(handler PanicHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.panicHandler = handler
}

// ListenTo registers cb on source and remembers it so StopListening can remove it
func (e *Events) ListenTo(source Emitter, name string, cb Callback) ListenerID {
	id := source.On(name, cb)
	e.track(id, source, name)
	return id
}

// ListenToOnce is ListenTo for a listener that fires at most once
func (e *Events) ListenToOnce(source Emitter, name string, cb Callback) ListenerID {
	var id ListenerID
	id = source.Once(name, func(args ...any) {
		e.untrack(id)
		cb(args...)
	})
	e.track(id, source, name)
	return id
}

func (e *Events) track(id ListenerID, source Emitter, name string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.listeningTo[id] = listening{source: source, name: name}
}

func (e *Events) untrack(id ListenerID) (listening, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, ok := e.listeningTo[id]
	delete(e.listeningTo, id)
	return rec, ok
}

// StopListening removes listeners this emitter installed on source. With
// names, only listeners for those events are removed.
func (e *Events) StopListening(source Emitter, names ...string) {
	e.mu.Lock()
	var toRemove []ListenerID
	for id, rec := range e.listeningTo {
		if rec.source != source {
			continue
		}
		if len(names) > 0 && !containsString(names, rec.name) {
			continue
		}
		toRemove = append(toRemove, id)
		delete(e.listeningTo, id)
	}
	e.mu.Unlock()

	// Calling back into source without holding our lock
	for _, id := range toRemove {
		source.Off(id)
	}
}

// StopListeningID removes one listener installed through ListenTo
func (e *Events) StopListeningID(id ListenerID) bool {
	rec, ok := e.untrack(id)
	if !ok {
		return false
	}
	return rec.source.Off(id)
}

// StopListeningAll removes every listener this emitter installed elsewhere
func (e *Events) StopListeningAll() {
	e.mu.Lock()
	records := e.listeningTo
	e.listeningTo = make(map[ListenerID]listening)
	e.mu.Unlock()

	for id, rec := range records {
		rec.source.Off(id)
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
