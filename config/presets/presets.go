// Package presets holds named configurations that replace the defaults before
// the config file and flags are applied.
package presets

import (
	"fmt"
	"maps"
	"slices"

	"github.com/spacemeshos/plotsync/config"
)

var presets = map[string]config.Config{}

func register(name string, conf config.Config) {
	if _, exists := presets[name]; exists {
		panic(fmt.Sprintf("preset %s already registered", name))
	}
	presets[name] = conf
}

// Options returns the names of all registered presets.
func Options() []string {
	return slices.Sorted(maps.Keys(presets))
}

// Get returns the preset registered as name.
func Get(name string) (config.Config, error) {
	conf, exists := presets[name]
	if !exists {
		return config.Config{}, fmt.Errorf("preset %s is not registered. select one of: %v", name, Options())
	}
	return conf, nil
}
