package behavior

import (
	statesync "github.com/jilio/statesync"
)

// View events
const (
	EventBeforeRender = "before:render"
	EventRender       = "render"
)

// Serializer produces a view's template data
type Serializer func() (statesync.Attributes, error)

// ViewConfig configures a View
type ViewConfig struct {
	// Options are the view's construction options, the input of mapOptions
	Options statesync.Attributes

	// StateEvents binds state model events to view handlers
	StateEvents statesync.Bindings

	// Serializer produces template data; empty data by default
	Serializer Serializer

	// Handlers are registered on the view
	Handlers map[string]statesync.Handler
}

// View is a minimal component that state can be attached to. It emits
// "before:render" and "render" and produces template data on demand.
type View struct {
	*statesync.Object

	options     statesync.Attributes
	stateEvents statesync.Bindings
	stateModel  *statesync.Model
	serializer  Serializer
	data        statesync.Attributes
}

// NewView creates a view
func NewView(cfg ViewConfig) *View {
	v := &View{
		Object:      statesync.NewObject(),
		options:     cfg.Options.Clone(),
		stateEvents: cfg.StateEvents,
		serializer:  cfg.Serializer,
	}
	if v.serializer == nil {
		v.serializer = func() (statesync.Attributes, error) {
			return statesync.Attributes{}, nil
		}
	}
	for name, h := range cfg.Handlers {
		v.Handle(name, h)
	}
	return v
}

// Options returns a copy of the construction options
func (v *View) Options() statesync.Attributes {
	return v.options.Clone()
}

// Option returns a single construction option
func (v *View) Option(key string) any {
	return v.options[key]
}

// StateEvents returns the view's state binding map
func (v *View) StateEvents() statesync.Bindings {
	return v.stateEvents
}

// StateModel returns the attached state model, or nil
func (v *View) StateModel() *statesync.Model {
	return v.stateModel
}

// SerializeData returns the view's template data
func (v *View) SerializeData() (statesync.Attributes, error) {
	return v.serializer()
}

// Render serializes the template data and emits "before:render" and "render".
func (v *View) Render() error {
	data, err := v.SerializeData()
	if err != nil {
		return err
	}
	v.TriggerMethod(EventBeforeRender, v)
	v.data = data
	v.TriggerMethod(EventRender, v)
	return nil
}

// Data returns the template data of the last Render
func (v *View) Data() statesync.Attributes {
	return v.data
}
