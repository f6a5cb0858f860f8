package statesync

import (
	"sort"
)

// EntityKind declares which syncable event classes an entity supports
type EntityKind int

const (
	// KindUnknown entities only sync on "all"
	KindUnknown EntityKind = iota

	// KindModel entities sync on "all", "change" and "change:<attr>"
	KindModel

	// KindCollection entities sync on "all" and "reset"
	KindCollection
)

// String returns a human-readable kind name.
func (k EntityKind) String() string {
	switch k {
	case KindModel:
		return "model"
	case KindCollection:
		return "collection"
	default:
		return "unknown"
	}
}

// Entity is an observable data source whose events can be synced
type Entity interface {
	Emitter
	EntityKind() EntityKind
}

// ModelLike entities expose attribute values for "change:<attr>" priming
type ModelLike interface {
	Entity
	Get(attr string) any
}

// CollectionLike entities hold an ordered set of members
type CollectionLike interface {
	Entity
	Len() int
}

// Attributes is a set of named values
type Attributes map[string]any

// Clone returns a shallow copy. Cloning nil returns an empty map.
func (a Attributes) Clone() Attributes {
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Merge returns a shallow copy of a with every other map applied in order;
// later values win.
func (a Attributes) Merge(others ...Attributes) Attributes {
	out := a.Clone()
	for _, other := range others {
		for k, v := range other {
			out[k] = v
		}
	}
	return out
}

// Keys returns the attribute names in sorted order
func (a Attributes) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Options accompanies change notifications as the last callback argument
type Options struct {
	// Silent suppresses change events
	Silent bool

	// Unset removes the attributes instead of setting them
	Unset bool

	// Sync marks a priming call made by Sync rather than a real change
	Sync bool
}

// SetOption configures a mutation
type SetOption func(*Options)

// WithSilent suppresses change events for the mutation
func WithSilent() SetOption {
	return func(o *Options) {
		o.Silent = true
	}
}

// WithUnset removes the given attributes
func WithUnset() SetOption {
	return func(o *Options) {
		o.Unset = true
	}
}

func applySetOptions(opts []SetOption) Options {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// IsSync reports whether a handler's arguments come from a priming call
func IsSync(args []any) bool {
	if len(args) == 0 {
		return false
	}
	o, ok := args[len(args)-1].(Options)
	return ok && o.Sync
}
