// Package behavior attaches a statesync.State to a view.
//
// The view gets the state's model, never the State itself, so views talk to
// state through their StateEvents and through component events the State
// listens to:
//
//	def := &statesync.Definition{
//	    DefaultState:    statesync.Attributes{"open": false},
//	    ComponentEvents: statesync.Bindings{statesync.On("toggle", "onToggle")},
//	}
//
//	view := behavior.NewView(behavior.ViewConfig{
//	    StateEvents: statesync.Bindings{statesync.On("change:open", "onChangeOpen")},
//	    Handlers:    map[string]statesync.Handler{"onChangeOpen": updateDOM},
//	})
//
//	b, err := behavior.Attach(view, behavior.Config{State: def, Serialize: true})
//
// onChangeOpen runs on every real change and once per render, so freshly
// rendered output always reflects the current state.
package behavior

import (
	"strings"

	statesync "github.com/jilio/statesync"
)

// DefaultSyncEvent is the view event that primes state handlers
const DefaultSyncEvent = EventRender

// serializeKey is the template data key holding state attributes
const serializeKey = "state"

// MapFunc computes a state option from the view's options
type MapFunc func(v *View, options statesync.Attributes) any

// Config configures Attach
type Config struct {
	// State is the definition to instantiate. Required.
	State *statesync.Definition

	// SyncEvent is the view event that primes StateEvents; "render" by default
	SyncEvent string

	// InitialState is passed to the State as its initial state
	InitialState statesync.Attributes

	// StateOptions are passed to the State as they are
	StateOptions statesync.Attributes

	// MapOptions derives state options from view options. Values are:
	//   true      the view option with the same key
	//   string    a dotted path into the view options ("a.b.c"), also used to rename
	//   MapFunc   a computed value
	MapOptions map[string]any

	// Serialize merges state attributes into the view's template data under "state"
	Serialize bool
}

// Behavior is a State attached to a View
type Behavior struct {
	view       *View
	state      *statesync.State
	syncing    *statesync.Syncing
	serializer Serializer
}

// Attach creates a State for view and wires it up
func Attach(view *View, cfg Config) (*Behavior, error) {
	if cfg.State == nil {
		return nil, ErrMissingStateClass
	}
	if view.stateModel != nil {
		return nil, ErrStateModelExists
	}
	syncEvent := cfg.SyncEvent
	if syncEvent == "" {
		syncEvent = DefaultSyncEvent
	}

	mapped, err := mapOptions(view, cfg.MapOptions)
	if err != nil {
		return nil, err
	}
	opts := statesync.Attributes{
		statesync.OptionInitialState: cfg.InitialState,
		statesync.OptionComponent:    view,
	}.Merge(cfg.StateOptions, mapped)

	stateCfg, err := statesync.ConfigFromOptions(opts)
	if err != nil {
		return nil, err
	}
	state, err := cfg.State.New(stateCfg)
	if err != nil {
		return nil, err
	}

	b := &Behavior{view: view, state: state}
	view.stateModel = state.Model()

	if len(view.stateEvents) > 0 {
		syncing, err := statesync.SyncEntityEvents(view, view.stateModel, view.stateEvents, statesync.When(syncEvent))
		if err != nil {
			view.stateModel = nil
			state.Destroy()
			return nil, err
		}
		b.syncing = syncing
	}

	if cfg.Serialize {
		b.wrapSerializeData()
	}
	return b, nil
}

// State returns the attached State
func (b *Behavior) State() *statesync.State {
	return b.state
}

// Syncing returns the state events syncing, or nil if the view has no StateEvents
func (b *Behavior) Syncing() *statesync.Syncing {
	return b.syncing
}

// Detach stops syncing, restores the view's serializer, removes the state
// model from the view and destroys the State.
func (b *Behavior) Detach() {
	if b.syncing != nil {
		b.syncing.Stop()
	}
	if b.serializer != nil {
		b.view.serializer = b.serializer
		b.serializer = nil
	}
	b.view.stateModel = nil
	b.state.Destroy()
}

func mapOptions(view *View, mappings map[string]any) (statesync.Attributes, error) {
	out := statesync.Attributes{}
	for key, spec := range mappings {
		value, err := mapOption(view, key, spec)
		if err != nil {
			return nil, err
		}
		out[key] = value
	}
	return out, nil
}

func mapOption(view *View, stateKey string, spec any) (any, error) {
	switch v := spec.(type) {
	case bool:
		if !v {
			return nil, &MapOptionError{Key: stateKey, Value: spec}
		}
		return view.options[stateKey], nil
	case string:
		return lookupPath(view.options, v), nil
	case MapFunc:
		return v(view, view.Options()), nil
	case func(*View, statesync.Attributes) any:
		return v(view, view.Options()), nil
	default:
		return nil, &MapOptionError{Key: stateKey, Value: spec}
	}
}

// lookupPath walks a dotted path through nested option maps. A missing or
// non-map intermediate value yields nil.
func lookupPath(options statesync.Attributes, path string) any {
	var current any = options
	for _, key := range strings.Split(path, ".") {
		switch m := current.(type) {
		case statesync.Attributes:
			current = m[key]
		case map[string]any:
			current = m[key]
		default:
			return nil
		}
	}
	return current
}

// wrapSerializeData merges state attributes into the view's template data
func (b *Behavior) wrapSerializeData() {
	serialize := b.view.serializer
	model := b.view.stateModel
	b.serializer = serialize

	b.view.serializer = func() (statesync.Attributes, error) {
		data, err := serialize()
		if err != nil {
			return nil, err
		}
		// The inner serializer may hand out a map it reuses
		data = data.Clone()
		stateAttrs := model.Attributes()

		switch existing := data[serializeKey].(type) {
		case nil:
			data[serializeKey] = stateAttrs
		case statesync.Attributes:
			merged, err := mergeAttrs(existing, stateAttrs)
			if err != nil {
				return nil, err
			}
			data[serializeKey] = merged
		case map[string]any:
			merged, err := mergeAttrs(existing, stateAttrs)
			if err != nil {
				return nil, err
			}
			data[serializeKey] = map[string]any(merged)
		default:
			return nil, ErrStateNotExtensible
		}
		return data, nil
	}
}

// mergeAttrs returns a copy of target with attrs added, failing rather than
// overwriting a non-nil value
func mergeAttrs(target map[string]any, attrs statesync.Attributes) (statesync.Attributes, error) {
	for _, key := range attrs.Keys() {
		if existing, ok := target[key]; ok && existing != nil {
			return nil, &AttributeError{Attribute: key}
		}
	}
	return statesync.Attributes(target).Merge(attrs), nil
}
