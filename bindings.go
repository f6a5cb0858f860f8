package statesync

import (
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// HandlerSpec is either a single function or an ordered list of handler
// names resolved on the target when the event fires.
type HandlerSpec struct {
	fn    Handler
	names []string
}

// Func wraps a function as a handler spec
func Func(h Handler) HandlerSpec {
	return HandlerSpec{fn: h}
}

// Names builds a handler spec from a space-separated list of handler names
func Names(names string) HandlerSpec {
	return HandlerSpec{names: strings.Fields(names)}
}

// IsFunc returns true if the spec wraps a function
func (h HandlerSpec) IsFunc() bool {
	return h.fn != nil
}

// HandlerNames returns the handler names in declaration order
func (h HandlerSpec) HandlerNames() []string {
	out := make([]string, len(h.names))
	copy(out, h.names)
	return out
}

// String returns the names joined by spaces, or "<func>".
func (h HandlerSpec) String() string {
	if h.fn != nil {
		return "<func>"
	}
	return strings.Join(h.names, " ")
}

// Binding maps one event pattern (space-separated event names) to handlers
type Binding struct {
	Events   string
	Handlers HandlerSpec
}

// EventNames splits the pattern into individual event names
func (b Binding) EventNames() []string {
	return strings.Fields(b.Events)
}

// Bindings is an ordered binding map
type Bindings []Binding

// On is shorthand for a binding of event names to handler names
func On(events, handlers string) Binding {
	return Binding{Events: events, Handlers: Names(handlers)}
}

// OnFunc is shorthand for a binding of event names to a function
func OnFunc(events string, h Handler) Binding {
	return Binding{Events: events, Handlers: Func(h)}
}

// UnmarshalYAML decodes a YAML mapping of event patterns to handler names,
// keeping document order.
func (b *Bindings) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("bindings: expected a mapping, got line %d", node.Line)
	}
	out := make(Bindings, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if key.Kind != yaml.ScalarNode || value.Kind != yaml.ScalarNode {
			return fmt.Errorf("bindings: entry at line %d must map a string to a string", key.Line)
		}
		out = append(out, On(key.Value, value.Value))
	}
	*b = out
	return nil
}

// ParseBindings decodes a YAML binding map
func ParseBindings(data []byte) (Bindings, error) {
	var b Bindings
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, err
	}
	return b, nil
}

// validate checks that every named handler exists on target
func (b Bindings) validate(target HandlerResolver) error {
	for _, binding := range b {
		if binding.Handlers.fn != nil {
			continue
		}
		for _, name := range binding.Handlers.names {
			if _, ok := target.Handler(name); !ok {
				return &HandlerError{Handler: name, Event: binding.Events, Err: ErrMissingHandler}
			}
		}
	}
	return nil
}

// call invokes the spec with args, resolving names on target now
func (h HandlerSpec) call(target HandlerResolver, event string, args []any) error {
	if h.fn != nil {
		h.fn(args...)
		return nil
	}
	for _, name := range h.names {
		fn, ok := target.Handler(name)
		if !ok {
			return &HandlerError{Handler: name, Event: event, Err: ErrMissingHandler}
		}
		fn(args...)
	}
	return nil
}

// EntityBinding is a set of live listeners installed by BindEntityEvents
type EntityBinding struct {
	target Target
	ids    []ListenerID
	once   sync.Once
}

// BindEntityEvents installs a listener on entity for every event name in
// bindings, calling the target's handlers with the event arguments. No
// priming happens and no event class filtering applies. Handler names must
// exist when binding; they are resolved again each time an event fires.
func BindEntityEvents(target Target, entity Emitter, bindings Bindings) (*EntityBinding, error) {
	if target == nil {
		return nil, ErrNilTarget
	}
	if entity == nil {
		return nil, ErrNilEntity
	}
	if err := bindings.validate(target); err != nil {
		return nil, err
	}

	eb := &EntityBinding{target: target}
	for _, binding := range bindings {
		handlers := binding.Handlers
		for _, event := range binding.EventNames() {
			id := target.ListenTo(entity, event, func(args ...any) {
				if err := handlers.call(target, event, args); err != nil {
					// A handler removed after binding is a programming error
					panic(err)
				}
			})
			eb.ids = append(eb.ids, id)
		}
	}
	return eb, nil
}

// Unbind removes the listeners. Calling it more than once is safe.
func (eb *EntityBinding) Unbind() {
	if eb == nil {
		return
	}
	eb.once.Do(func() {
		for _, id := range eb.ids {
			eb.target.StopListeningID(id)
		}
	})
}
