package behavior

import (
	"testing"

	statesync "github.com/jilio/statesync"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	def := toggleDefinition()

	cfg, err := LoadConfig([]byte(`
sync_event: show
initial_state:
  open: true
state_options:
  preventDestroy: true
map_options:
  title: true
  width: layout.width
serialize: true
`), def)
	require.NoError(t, err)

	assert.Same(t, def, cfg.State)
	assert.Equal(t, "show", cfg.SyncEvent)
	assert.Equal(t, statesync.Attributes{"open": true}, cfg.InitialState)
	assert.Equal(t, statesync.Attributes{"preventDestroy": true}, cfg.StateOptions)
	assert.Equal(t, map[string]any{"title": true, "width": "layout.width"}, cfg.MapOptions)
	assert.True(t, cfg.Serialize)

	view := NewView(ViewConfig{Options: statesync.Attributes{
		"title":  "hi",
		"layout": map[string]any{"width": 4},
	}})
	b, err := Attach(view, cfg)
	require.NoError(t, err)
	assert.Equal(t, "hi", b.State().Option("title"))
	assert.Equal(t, 4, b.State().Option("width"))
	assert.Equal(t, true, b.State().Get("open"))
}

func TestLoadConfigEmpty(t *testing.T) {
	cfg, err := LoadConfig(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, cfg.SyncEvent)
	assert.Nil(t, cfg.InitialState)
	assert.Nil(t, cfg.MapOptions)
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr error
	}{
		{
			name:    "invalid_map_option",
			yaml:    "map_options:\n  size: 3\n",
			wantErr: ErrInvalidMapOption,
		},
		{
			name: "malformed",
			yaml: "sync_event: [unterminated",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig([]byte(tt.yaml), toggleDefinition())
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}
