package behavior

import (
	"fmt"

	statesync "github.com/jilio/statesync"
	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML form of Config
type fileConfig struct {
	SyncEvent    string         `yaml:"sync_event"`
	InitialState map[string]any `yaml:"initial_state"`
	StateOptions map[string]any `yaml:"state_options"`
	MapOptions   map[string]any `yaml:"map_options"`
	Serialize    bool           `yaml:"serialize"`
}

// LoadConfig reads a Config from YAML. The state definition cannot be
// expressed in YAML and is passed in; map_options values may be true or a
// dotted path.
//
//	sync_event: show
//	initial_state:
//	  open: false
//	map_options:
//	  title: true
//	  size: layout.size
//	serialize: true
func LoadConfig(data []byte, def *statesync.Definition) (Config, error) {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return Config{}, fmt.Errorf("behavior config: %w", err)
	}
	for key, value := range fc.MapOptions {
		switch value.(type) {
		case bool, string:
		default:
			return Config{}, &MapOptionError{Key: key, Value: value}
		}
	}

	cfg := Config{
		State:     def,
		SyncEvent: fc.SyncEvent,
		Serialize: fc.Serialize,
	}
	if fc.InitialState != nil {
		cfg.InitialState = statesync.Attributes(fc.InitialState)
	}
	if fc.StateOptions != nil {
		cfg.StateOptions = statesync.Attributes(fc.StateOptions)
	}
	if fc.MapOptions != nil {
		cfg.MapOptions = fc.MapOptions
	}
	return cfg, nil
}
