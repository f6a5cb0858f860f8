package statesync

import (
	"encoding/json"
	"reflect"

	"github.com/google/uuid"
)

// Model events
const (
	EventChange = "change"
	EventReset  = "reset"
	EventAdd    = "add"
	EventRemove = "remove"

	changePrefix = "change:"
)

// ModelOption configures a Model
type ModelOption func(*Model)

// WithDefaults sets attribute values applied under the constructor attributes
func WithDefaults(defaults Attributes) ModelOption {
	return func(m *Model) {
		m.defaults = defaults.Clone()
	}
}

// Model is an observable attribute set. Every Set emits "change:<attr>" with
// (model, value, options) for each attribute whose value changed, then a
// single "change" with (model, options).
//
// A Model is not safe for concurrent mutation: like the event dispatch that
// drives it, it is meant to be used from one goroutine.
type Model struct {
	*Events

	cid        string
	defaults   Attributes
	attributes Attributes
	previous   Attributes
	changed    Attributes
	changing   bool
	pending    *Options
}

// NewModel creates a model holding defaults ⊕ attrs
func NewModel(attrs Attributes, opts ...ModelOption) *Model {
	m := &Model{
		Events:  NewEvents(),
		cid:     uuid.NewString(),
		changed: Attributes{},
	}
	for _, opt := range opts {
		opt(m)
	}
	m.attributes = m.defaults.Merge(attrs)
	m.previous = m.attributes.Clone()
	return m
}

// CID returns the model's unique client id
func (m *Model) CID() string {
	return m.cid
}

// EntityKind implements Entity
func (m *Model) EntityKind() EntityKind {
	return KindModel
}

// Get returns the attribute value, or nil
func (m *Model) Get(attr string) any {
	return m.attributes[attr]
}

// Has returns true if the attribute is present
func (m *Model) Has(attr string) bool {
	_, ok := m.attributes[attr]
	return ok
}

// Set sets a single attribute
func (m *Model) Set(key string, value any, opts ...SetOption) {
	m.SetAttributes(Attributes{key: value}, opts...)
}

// Unset removes a single attribute
func (m *Model) Unset(key string, opts ...SetOption) {
	m.SetAttributes(Attributes{key: nil}, append(opts, WithUnset())...)
}

// Clear removes every attribute
func (m *Model) Clear(opts ...SetOption) {
	attrs := make(Attributes, len(m.attributes))
	for k := range m.attributes {
		attrs[k] = nil
	}
	m.SetAttributes(attrs, append(opts, WithUnset())...)
}

// SetAttributes applies attrs in sorted key order and emits change events.
// Sets made by change listeners are folded into the outer call and produce
// one more "change" event each.
func (m *Model) SetAttributes(attrs Attributes, opts ...SetOption) {
	o := applySetOptions(opts)

	changing := m.changing
	m.changing = true
	if !changing {
		m.previous = m.attributes.Clone()
		m.changed = Attributes{}
		// Also reset when a listener panics
		defer func() {
			m.pending = nil
			m.changing = false
		}()
	}

	var changes []string
	for _, key := range attrs.Keys() {
		val := attrs[key]

		cur, has := m.attributes[key]
		if o.Unset {
			if has {
				changes = append(changes, key)
			}
		} else if !has || !reflect.DeepEqual(cur, val) {
			changes = append(changes, key)
		}

		prev, hadPrev := m.previous[key]
		if o.Unset == hadPrev || (hadPrev && !reflect.DeepEqual(prev, val)) {
			m.changed[key] = val
		} else {
			delete(m.changed, key)
		}

		if o.Unset {
			delete(m.attributes, key)
		} else {
			m.attributes[key] = val
		}
	}

	if !o.Silent {
		if len(changes) > 0 {
			pending := o
			m.pending = &pending
		}
		for _, key := range changes {
			m.Trigger(changePrefix+key, m, m.attributes[key], o)
		}
	}

	// Nested sets return here; the outermost call emits "change"
	if changing {
		return
	}
	if !o.Silent {
		for m.pending != nil {
			pending := *m.pending
			m.pending = nil
			m.Trigger(EventChange, m, pending)
		}
	}
}

// Attributes returns a copy of the current attributes
func (m *Model) Attributes() Attributes {
	return m.attributes.Clone()
}

// ReplaceAttributes swaps the attribute map without emitting events
func (m *Model) ReplaceAttributes(attrs Attributes) {
	m.attributes = attrs.Clone()
}

// Changed returns the attributes touched by the last Set, with their new values
func (m *Model) Changed() Attributes {
	return m.changed.Clone()
}

// HasChanged reports whether the last Set changed anything, or with names,
// whether it changed any of them.
func (m *Model) HasChanged(attrs ...string) bool {
	if len(attrs) == 0 {
		return len(m.changed) > 0
	}
	for _, attr := range attrs {
		if _, ok := m.changed[attr]; ok {
			return true
		}
	}
	return false
}

// ChangedAttributes returns the attributes changed by the last Set, or nil
// if nothing changed.
func (m *Model) ChangedAttributes() Attributes {
	if len(m.changed) == 0 {
		return nil
	}
	return m.changed.Clone()
}

// PreviousAttributes returns the attributes as they were before the last Set
func (m *Model) PreviousAttributes() Attributes {
	return m.previous.Clone()
}

// Previous returns an attribute's value before the last Set
func (m *Model) Previous(attr string) any {
	return m.previous[attr]
}

// ToJSON returns a copy of the attributes for serialization
func (m *Model) ToJSON() Attributes {
	return m.attributes.Clone()
}

// MarshalJSON implements json.Marshaler
func (m *Model) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.attributes)
}
