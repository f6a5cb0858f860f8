package statesync

import (
	"github.com/google/uuid"
)

// Collection is an ordered set of models. It emits "add" and "remove" with
// (model, collection, options), "reset" with (collection, options), and
// re-emits every event of its members.
type Collection struct {
	*Events

	cid    string
	models []*Model
	byCID  map[string]*Model
}

// NewCollection creates a collection holding models, without emitting events
func NewCollection(models ...*Model) *Collection {
	c := &Collection{
		Events: NewEvents(),
		cid:    uuid.NewString(),
		byCID:  make(map[string]*Model),
	}
	for _, m := range models {
		c.addModel(m)
	}
	return c
}

// CID returns the collection's unique client id
func (c *Collection) CID() string {
	return c.cid
}

// EntityKind implements Entity
func (c *Collection) EntityKind() EntityKind {
	return KindCollection
}

// Len returns the number of models
func (c *Collection) Len() int {
	return len(c.models)
}

// At returns the model at index i
func (c *Collection) At(i int) *Model {
	return c.models[i]
}

// Get returns the model with the given client id
func (c *Collection) Get(cid string) (*Model, bool) {
	m, ok := c.byCID[cid]
	return m, ok
}

// Models returns a copy of the model list
func (c *Collection) Models() []*Model {
	out := make([]*Model, len(c.models))
	copy(out, c.models)
	return out
}

// Add appends models that are not already members
func (c *Collection) Add(models []*Model, opts ...SetOption) {
	o := applySetOptions(opts)
	for _, m := range models {
		if !c.addModel(m) {
			continue
		}
		if !o.Silent {
			c.Trigger(EventAdd, m, c, o)
		}
	}
}

// Remove drops models that are members
func (c *Collection) Remove(models []*Model, opts ...SetOption) {
	o := applySetOptions(opts)
	for _, m := range models {
		if !c.removeModel(m) {
			continue
		}
		if !o.Silent {
			c.Trigger(EventRemove, m, c, o)
		}
	}
}

// Reset replaces all members and emits a single "reset"
func (c *Collection) Reset(models []*Model, opts ...SetOption) {
	o := applySetOptions(opts)
	for _, m := range c.Models() {
		c.removeModel(m)
	}
	for _, m := range models {
		c.addModel(m)
	}
	if !o.Silent {
		c.Trigger(EventReset, c, o)
	}
}

// ToJSON returns the attributes of every member
func (c *Collection) ToJSON() []Attributes {
	out := make([]Attributes, len(c.models))
	for i, m := range c.models {
		out[i] = m.ToJSON()
	}
	return out
}

func (c *Collection) addModel(m *Model) bool {
	if m == nil {
		return false
	}
	if _, exists := c.byCID[m.cid]; exists {
		return false
	}
	c.models = append(c.models, m)
	c.byCID[m.cid] = m
	c.ListenTo(m, EventAll, c.forward)
	return true
}

func (c *Collection) removeModel(m *Model) bool {
	if m == nil {
		return false
	}
	if _, exists := c.byCID[m.cid]; !exists {
		return false
	}
	delete(c.byCID, m.cid)
	for i, other := range c.models {
		if other == m {
			c.models = append(c.models[:i:i], c.models[i+1:]...)
			break
		}
	}
	c.StopListening(m)
	return true
}

// forward re-emits a member event on the collection
func (c *Collection) forward(args ...any) {
	if len(args) == 0 {
		return
	}
	name, ok := args[0].(string)
	if !ok {
		return
	}
	c.Trigger(name, args[1:]...)
}
