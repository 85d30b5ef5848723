package config

import "sort"

// presets are named tuning scenarios layered over the defaults.
var presets = map[string]func(*Config){
	"standard": func(*Config) {},
	"quick": func(c *Config) {
		// Smoke-test sized session.
		c.PSO.Particles = 10
		c.PSO.Iterations = 25
		c.Sim.Duration = 3
	},
	"thorough": func(c *Config) {
		c.PSO.Particles = 50
		c.PSO.Iterations = 200
		c.Sim.Duration = 10
		c.Sim.Timeout = 30
	},
	"recovery": func(c *Config) {
		// Large opposed lean; rewards robust switching gains.
		c.Sim.InitState = InitState{Theta1: 0.3, Theta2: -0.2}
		c.Sim.Duration = 8
	},
	"gentle": func(c *Config) {
		// Near-upright regulation; chattering dominates the cost.
		c.Sim.InitState = InitState{Theta1: 0.02, Theta2: 0.01}
	},
}

// GetPreset returns the named scenario, or nil if there is none.
func GetPreset(name string) *Config {
	apply, ok := presets[name]
	if !ok {
		return nil
	}
	cfg := Default()
	apply(cfg)
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
