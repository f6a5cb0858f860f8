package statesync

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedEvent struct {
	name string
	args []any
}

func recordEvents(e Emitter) *[]recordedEvent {
	var events []recordedEvent
	e.On(EventAll, func(args ...any) {
		events = append(events, recordedEvent{name: args[0].(string), args: args[1:]})
	})
	return &events
}

func eventNames(events []recordedEvent) []string {
	names := make([]string, len(events))
	for i, e := range events {
		names[i] = e.name
	}
	return names
}

func TestNewModel(t *testing.T) {
	m := NewModel(Attributes{"bar": -2, "baz": 3}, WithDefaults(Attributes{"foo": 1, "bar": 2}))

	assert.Equal(t, Attributes{"foo": 1, "bar": -2, "baz": 3}, m.Attributes())
	assert.Equal(t, KindModel, m.EntityKind())
	assert.NotEmpty(t, m.CID())
	assert.False(t, m.HasChanged())
	assert.Nil(t, m.ChangedAttributes())
}

func TestModelSet(t *testing.T) {
	m := NewModel(Attributes{"foo": 1})
	events := recordEvents(m)

	m.Set("foo", 2)

	require.Equal(t, []string{"change:foo", "change"}, eventNames(*events))
	assert.Equal(t, []any{m, 2, Options{}}, (*events)[0].args)
	assert.Equal(t, []any{m, Options{}}, (*events)[1].args)

	assert.Equal(t, 2, m.Get("foo"))
	assert.Equal(t, 1, m.Previous("foo"))
	assert.True(t, m.HasChanged("foo"))
	assert.False(t, m.HasChanged("bar"))
	assert.Equal(t, Attributes{"foo": 2}, m.ChangedAttributes())
	assert.Equal(t, Attributes{"foo": 1}, m.PreviousAttributes())
}

func TestModelSetUnchanged(t *testing.T) {
	m := NewModel(Attributes{"foo": []int{1, 2}})
	events := recordEvents(m)

	m.Set("foo", []int{1, 2})

	assert.Empty(t, *events, "deep-equal values do not change")
	assert.False(t, m.HasChanged())
}

func TestModelSetAttributesOrder(t *testing.T) {
	m := NewModel(nil)
	events := recordEvents(m)

	m.SetAttributes(Attributes{"b": 2, "a": 1, "c": 3})

	assert.Equal(t, []string{"change:a", "change:b", "change:c", "change"}, eventNames(*events))
}

func TestModelSilent(t *testing.T) {
	m := NewModel(Attributes{"foo": 1})
	events := recordEvents(m)

	m.Set("foo", 2, WithSilent())

	assert.Empty(t, *events)
	assert.Equal(t, 2, m.Get("foo"))
	assert.True(t, m.HasChanged("foo"))
}

func TestModelUnsetAndClear(t *testing.T) {
	m := NewModel(Attributes{"foo": 1, "bar": 2})
	events := recordEvents(m)

	m.Unset("foo")
	assert.False(t, m.Has("foo"))
	assert.Nil(t, m.Get("foo"))
	require.Equal(t, []string{"change:foo", "change"}, eventNames(*events))
	assert.Equal(t, Options{Unset: true}, (*events)[1].args[1])

	m.Unset("missing")
	assert.Len(t, *events, 2)

	m.Clear()
	assert.Empty(t, m.Attributes())
	assert.Equal(t, []string{"change:foo", "change", "change:bar", "change"}, eventNames(*events))
}

// recordNamed records the named events through their own listeners, which
// run in trigger order, unlike "all" listeners that run after them.
func recordNamed(e Emitter, names ...string) *[]string {
	var events []string
	for _, name := range names {
		e.On(name, func(...any) {
			events = append(events, name)
		})
	}
	return &events
}

func TestModelNestedSet(t *testing.T) {
	m := NewModel(Attributes{"a": 0, "b": 0})
	events := recordNamed(m, "change:a", "change:b", "change")

	m.On("change:a", func(args ...any) {
		m.Set("b", args[1])
	})

	m.Set("a", 5)

	assert.Equal(t, []string{"change:a", "change:b", "change"}, *events)
	assert.Equal(t, Attributes{"a": 5, "b": 5}, m.ChangedAttributes())
	assert.Equal(t, Attributes{"a": 0, "b": 0}, m.PreviousAttributes())
}

func TestModelSetInChangeHandler(t *testing.T) {
	m := NewModel(Attributes{"a": 0, "b": 0})
	events := recordNamed(m, "change:a", "change:b", "change")

	fired := false
	m.On("change", func(...any) {
		if fired {
			return
		}
		fired = true
		m.Set("b", 1)
	})

	m.Set("a", 1)

	assert.Equal(t, []string{"change:a", "change", "change:b", "change"}, *events)
}

func TestModelNestedSetAllListener(t *testing.T) {
	m := NewModel(Attributes{"a": 0, "b": 0})
	events := recordEvents(m)

	m.On("change:a", func(args ...any) {
		m.Set("b", args[1])
	})

	m.Set("a", 5)

	// The nested change:b dispatch completes before change:a reaches "all"
	assert.Equal(t, []string{"change:b", "change:a", "change"}, eventNames(*events))
}

func TestModelRecoversFromListenerPanic(t *testing.T) {
	m := NewModel(Attributes{"a": 0})

	boom := true
	m.On("change:a", func(...any) {
		if boom {
			panic("listener failed")
		}
	})

	assert.Panics(t, func() { m.Set("a", 1) })

	boom = false
	events := recordNamed(m, "change")
	m.Set("a", 2)

	assert.Equal(t, []string{"change"}, *events)
	assert.Equal(t, Attributes{"a": 2}, m.ChangedAttributes())
	assert.Equal(t, Attributes{"a": 1}, m.PreviousAttributes())
}

func TestModelReplaceAttributes(t *testing.T) {
	m := NewModel(Attributes{"foo": 1})
	events := recordEvents(m)

	attrs := Attributes{"bar": 2}
	m.ReplaceAttributes(attrs)
	attrs["bar"] = 3

	assert.Empty(t, *events)
	assert.Equal(t, Attributes{"bar": 2}, m.Attributes())
}

func TestModelJSON(t *testing.T) {
	m := NewModel(Attributes{"foo": 1, "bar": "x"})

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"foo":1,"bar":"x"}`, string(data))

	out := m.ToJSON()
	out["foo"] = 2
	assert.Equal(t, 1, m.Get("foo"), "ToJSON returns a copy")
}

func TestAttributes(t *testing.T) {
	var nilAttrs Attributes
	assert.Equal(t, Attributes{}, nilAttrs.Clone())

	base := Attributes{"a": 1, "b": 2}
	merged := base.Merge(Attributes{"b": 3}, nil, Attributes{"c": 4})
	assert.Equal(t, Attributes{"a": 1, "b": 3, "c": 4}, merged)
	assert.Equal(t, Attributes{"a": 1, "b": 2}, base)

	assert.Equal(t, []string{"a", "b", "c"}, merged.Keys())
}

func TestIsSync(t *testing.T) {
	assert.False(t, IsSync(nil))
	assert.False(t, IsSync([]any{1}))
	assert.False(t, IsSync([]any{1, Options{}}))
	assert.True(t, IsSync([]any{1, Options{Sync: true}}))
}
