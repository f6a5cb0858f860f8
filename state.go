package statesync

import (
	"encoding/json"
	"fmt"
)

// ModelFactory creates the model backing a State
type ModelFactory func(attrs Attributes) *Model

// StateHandler is a handler declared on a Definition. It receives the State
// it is registered on.
type StateHandler func(s *State, args ...any)

func defaultModelFactory(attrs Attributes) *Model {
	return NewModel(attrs)
}

// Definition describes a kind of State: its default attributes, the
// component events it reacts to and the handlers those events call.
type Definition struct {
	// DefaultState is applied under the constructor's InitialState
	DefaultState Attributes

	// ComponentEvents binds component events to handlers on the State
	ComponentEvents Bindings

	// ModelFactory creates the backing model; NewModel by default
	ModelFactory ModelFactory

	// Handlers are registered on every State created from the definition
	Handlers map[string]StateHandler
}

// Config holds per-instance construction options
type Config struct {
	// InitialState overrides DefaultState
	InitialState Attributes

	// Component is bound for lifecycle and ComponentEvents
	Component Emitter

	// PreventDestroy keeps the State alive when Component is destroyed
	PreventDestroy bool

	// ModelFactory overrides the definition's factory
	ModelFactory ModelFactory

	// Options holds any further values, readable through State.Option
	Options Attributes
}

// Well-known option keys understood by ConfigFromOptions
const (
	OptionInitialState   = "initialState"
	OptionComponent      = "component"
	OptionPreventDestroy = "preventDestroy"
	OptionModelFactory   = "modelFactory"
)

// ConfigFromOptions converts an untyped option map into a Config. Known keys
// are type checked; nil values are ignored; other keys land in Config.Options.
func ConfigFromOptions(opts Attributes) (Config, error) {
	var cfg Config
	extra := Attributes{}
	for key, value := range opts {
		if value == nil {
			continue
		}
		switch key {
		case OptionInitialState:
			switch v := value.(type) {
			case Attributes:
				cfg.InitialState = v
			case map[string]any:
				cfg.InitialState = Attributes(v)
			default:
				return Config{}, &OptionError{Key: key, Want: "attributes", Got: value}
			}
		case OptionComponent:
			c, ok := value.(Emitter)
			if !ok {
				return Config{}, &OptionError{Key: key, Want: "emitter", Got: value}
			}
			cfg.Component = c
		case OptionPreventDestroy:
			b, ok := value.(bool)
			if !ok {
				return Config{}, &OptionError{Key: key, Want: "bool", Got: value}
			}
			cfg.PreventDestroy = b
		case OptionModelFactory:
			switch v := value.(type) {
			case ModelFactory:
				cfg.ModelFactory = v
			case func(Attributes) *Model:
				cfg.ModelFactory = v
			default:
				return Config{}, &OptionError{Key: key, Want: "model factory", Got: value}
			}
		default:
			extra[key] = value
		}
	}
	cfg.Options = extra
	return cfg, nil
}

// BindOptions configures BindComponent
type BindOptions struct {
	PreventDestroy bool
}

// State owns one observable model and stands in for it: every model event is
// re-emitted by the State with the model argument replaced by the State.
type State struct {
	*Object

	def          *Definition
	modelFactory ModelFactory
	model        *Model
	initialState Attributes
	options      Attributes

	component          Emitter
	componentBinding   *EntityBinding
	componentDestroyID ListenerID

	// ComponentEvents bindings installed by SyncComponent
	syncedComponents map[Emitter]*EntityBinding
}

// NewState creates a State without defaults or component events
func NewState(cfg Config) (*State, error) {
	return (&Definition{}).New(cfg)
}

// New creates a State from the definition
func (d *Definition) New(cfg Config) (*State, error) {
	s := &State{
		Object:  NewObject(),
		def:     d,
		options: cfg.Options.Clone(),
	}
	for name, h := range d.Handlers {
		if h == nil {
			continue
		}
		s.Handle(name, func(args ...any) {
			h(s, args...)
		})
	}

	switch {
	case cfg.ModelFactory != nil:
		s.modelFactory = cfg.ModelFactory
	case d.ModelFactory != nil:
		s.modelFactory = d.ModelFactory
	default:
		s.modelFactory = defaultModelFactory
	}

	if err := s.ResetState(cfg.InitialState); err != nil {
		return nil, err
	}

	if cfg.Component != nil {
		if err := s.BindComponent(cfg.Component, BindOptions{PreventDestroy: cfg.PreventDestroy}); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// ResetState recomputes the initial state as DefaultState ⊕ attrs. The
// model is created on first use and reset to the new initial state after.
func (s *State) ResetState(attrs Attributes, opts ...SetOption) error {
	if s.Object == nil || s.def == nil || s.modelFactory == nil {
		return ErrNotInitialized
	}
	s.initialState = s.def.DefaultState.Merge(attrs)

	if s.model != nil {
		return s.Reset(nil, opts...)
	}

	model := s.modelFactory(s.initialState.Clone())
	if model == nil {
		return fmt.Errorf("model factory returned nil: %w", ErrNotInitialized)
	}
	s.model = model
	StartRelay(s, model, s, func(arg any) (any, bool) {
		if m, ok := arg.(*Model); ok && m == s.model {
			return s, true
		}
		return nil, false
	})
	return nil
}

// EntityKind implements Entity
func (s *State) EntityKind() EntityKind {
	return KindModel
}

// Model returns the underlying model
func (s *State) Model() *Model {
	return s.model
}

// Get returns an attribute value. It panics with ErrNotInitialized on a
// State that was not created through New.
func (s *State) Get(attr string) any {
	if s.model == nil {
		panic(ErrNotInitialized)
	}
	return s.model.Get(attr)
}

// Set sets a single attribute
func (s *State) Set(key string, value any, opts ...SetOption) error {
	if s.model == nil {
		return ErrNotInitialized
	}
	s.model.Set(key, value, opts...)
	return nil
}

// SetAttributes sets several attributes at once
func (s *State) SetAttributes(attrs Attributes, opts ...SetOption) error {
	if s.model == nil {
		return ErrNotInitialized
	}
	s.model.SetAttributes(attrs, opts...)
	return nil
}

// Reset returns the model to the initial state. attrs override initial values
// for this call only; the stored initial state is not changed.
func (s *State) Reset(attrs Attributes, opts ...SetOption) error {
	if s.model == nil {
		return ErrNotInitialized
	}
	logDebug().Str("cid", s.CID()).Int("overrides", len(attrs)).Msg("resetting state")
	s.model.SetAttributes(s.initialState.Merge(attrs), opts...)
	return nil
}

// InitialState returns a copy of the attributes Reset reverts to
func (s *State) InitialState() Attributes {
	return s.initialState.Clone()
}

// Attributes returns a copy of the current attributes
func (s *State) Attributes() Attributes {
	if s.model == nil {
		return nil
	}
	return s.model.Attributes()
}

// ReplaceAttributes swaps the model's attributes without emitting events
func (s *State) ReplaceAttributes(attrs Attributes) error {
	if s.model == nil {
		return ErrNotInitialized
	}
	s.model.ReplaceAttributes(attrs)
	return nil
}

// ChangedAttributes proxies Model.ChangedAttributes
func (s *State) ChangedAttributes() Attributes {
	if s.model == nil {
		return nil
	}
	return s.model.ChangedAttributes()
}

// PreviousAttributes proxies Model.PreviousAttributes
func (s *State) PreviousAttributes() Attributes {
	if s.model == nil {
		return nil
	}
	return s.model.PreviousAttributes()
}

// Previous proxies Model.Previous
func (s *State) Previous(attr string) any {
	if s.model == nil {
		return nil
	}
	return s.model.Previous(attr)
}

// HasAnyChanged reports whether the last modification changed any of attrs
func (s *State) HasAnyChanged(attrs ...string) bool {
	if s.model == nil || len(attrs) == 0 {
		return false
	}
	return s.model.HasChanged(attrs...)
}

// ToJSON returns the model's attributes
func (s *State) ToJSON() Attributes {
	if s.model == nil {
		return nil
	}
	return s.model.ToJSON()
}

// MarshalJSON implements json.Marshaler
func (s *State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.ToJSON())
}

// Option returns a construction option that is not one of the Config fields
func (s *State) Option(key string) any {
	return s.options[key]
}

// Component returns the bound component, or nil
func (s *State) Component() Emitter {
	return s.component
}

// BindComponent binds the definition's ComponentEvents from component to
// this State and, unless PreventDestroy is set, destroys the State when
// component is destroyed. A previously bound component is unbound first.
func (s *State) BindComponent(component Emitter, opts BindOptions) error {
	if component == nil {
		return ErrNilEntity
	}
	if s.component != nil {
		s.UnbindComponent(s.component)
	}

	if len(s.def.ComponentEvents) > 0 {
		binding, err := BindEntityEvents(s, component, s.def.ComponentEvents)
		if err != nil {
			return err
		}
		s.componentBinding = binding
	}
	if !opts.PreventDestroy {
		s.componentDestroyID = s.ListenToOnce(component, EventDestroy, func(...any) {
			s.Destroy()
		})
	}
	s.component = component
	return nil
}

// UnbindComponent undoes BindComponent
func (s *State) UnbindComponent(component Emitter) {
	if component == nil || s.component != component {
		return
	}
	s.componentBinding.Unbind()
	s.componentBinding = nil
	if s.componentDestroyID != 0 {
		s.StopListeningID(s.componentDestroyID)
		s.componentDestroyID = 0
	}
	s.component = nil
}

// SyncComponent binds the definition's ComponentEvents from component to this
// State and syncs stateEvents from this State to handlers on component, priming
// them now or on the trigger given by When or WhenOn. Unlike BindComponent it
// does not tie the State's lifecycle to the component. The returned Syncing is
// nil when stateEvents is empty.
func (s *State) SyncComponent(component Target, stateEvents Bindings, opts ...SyncOption) (*Syncing, error) {
	if component == nil {
		return nil, ErrNilTarget
	}
	if s.model == nil {
		return nil, ErrNotInitialized
	}

	var binding *EntityBinding
	if len(s.def.ComponentEvents) > 0 {
		b, err := BindEntityEvents(s, component, s.def.ComponentEvents)
		if err != nil {
			return nil, err
		}
		binding = b
	}

	var syncing *Syncing
	if len(stateEvents) > 0 {
		var err error
		syncing, err = SyncEntityEvents(component, s, stateEvents, opts...)
		if err != nil {
			binding.Unbind()
			return nil, err
		}
	}

	if binding != nil {
		if s.syncedComponents == nil {
			s.syncedComponents = make(map[Emitter]*EntityBinding)
		}
		s.syncedComponents[component].Unbind()
		s.syncedComponents[component] = binding
	}
	return syncing, nil
}

// StopSyncingComponent undoes SyncComponent: it removes the ComponentEvents
// binding and stops every syncing component holds for this State. It returns
// the number of syncings stopped.
func (s *State) StopSyncingComponent(component Target) int {
	if component == nil {
		return 0
	}
	if binding, ok := s.syncedComponents[component]; ok {
		binding.Unbind()
		delete(s.syncedComponents, component)
	}
	return StopSyncingEntityEvents(component, s)
}

// SyncEntityEvents syncs entity events to handlers on this State
func (s *State) SyncEntityEvents(entity Entity, bindings Bindings, opts ...SyncOption) (*Syncing, error) {
	return SyncEntityEvents(s, entity, bindings, opts...)
}

// StopSyncingEntityEvents stops every syncing this State holds for entity
func (s *State) StopSyncingEntityEvents(entity Entity) int {
	return StopSyncingEntityEvents(s, entity)
}
