package statesync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMethodName(t *testing.T) {
	tests := []struct {
		event string
		want  string
	}{
		{"render", "onRender"},
		{"before:render", "onBeforeRender"},
		{"change:foo", "onChangeFoo"},
		{"before:destroy", "onBeforeDestroy"},
		{"a::b", "onAB"},
	}

	for _, tt := range tests {
		t.Run(tt.event, func(t *testing.T) {
			assert.Equal(t, tt.want, MethodName(tt.event))
		})
	}
}

func TestObjectHandlers(t *testing.T) {
	o := NewObject()

	_, ok := o.Handler("missing")
	assert.False(t, ok)

	calls := 0
	o.Handle("onPing", func(...any) { calls++ })
	h, ok := o.Handler("onPing")
	require.True(t, ok)
	h()
	assert.Equal(t, 1, calls)

	o.Handle("nilHandler", nil)
	_, ok = o.Handler("nilHandler")
	assert.False(t, ok)

	o.RemoveHandler("onPing")
	_, ok = o.Handler("onPing")
	assert.False(t, ok)
}

func TestObjectCID(t *testing.T) {
	a, b := NewObject(), NewObject()
	assert.NotEmpty(t, a.CID())
	assert.NotEqual(t, a.CID(), b.CID())
}

func TestTriggerMethod(t *testing.T) {
	o := NewObject()

	var order []string
	o.On("before:render", func(args ...any) {
		order = append(order, "event")
	})
	o.Handle("onBeforeRender", func(args ...any) {
		order = append(order, "method")
		assert.Equal(t, []any{"arg"}, args)
	})

	o.TriggerMethod("before:render", "arg")
	assert.Equal(t, []string{"event", "method"}, order)

	// No handler is fine
	assert.NotPanics(t, func() { o.TriggerMethod("render") })
}

func TestObjectDestroy(t *testing.T) {
	o := NewObject()
	source := NewEvents()

	var order []string
	o.On(EventBeforeDestroy, func(...any) { order = append(order, "before:destroy") })
	o.On(EventDestroy, func(...any) { order = append(order, "destroy") })
	o.Handle("onDestroy", func(...any) { order = append(order, "onDestroy") })
	o.ListenTo(source, "ping", func(...any) {})

	assert.False(t, o.IsDestroyed())
	o.Destroy()
	o.Destroy()

	assert.True(t, o.IsDestroyed())
	assert.Equal(t, []string{"before:destroy", "destroy", "onDestroy"}, order)
	assert.False(t, source.HasListeners("ping"), "listeners installed elsewhere are removed")
	assert.False(t, o.HasListeners(EventDestroy), "own listeners are removed")
}
