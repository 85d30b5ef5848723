// Package config is the yaml surface of the tuner. Load starts from the
// defaults and lets the file override, so a partial file is a valid file;
// Validate is loud and runs on every load.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mwielgat/swingtune/internal/cost"
	"github.com/mwielgat/swingtune/internal/integrators"
	"github.com/mwielgat/swingtune/internal/plant"
	"github.com/mwielgat/swingtune/internal/sim"
	"github.com/mwielgat/swingtune/internal/smc"
	"github.com/mwielgat/swingtune/internal/tune"
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

type Config struct {
	Controller ControllerConfig `yaml:"controller"`
	Plant      plant.Params     `yaml:"plant"`
	Sim        SimConfig        `yaml:"sim"`
	PSO        PSOConfig        `yaml:"pso"`
	Cost       CostConfig       `yaml:"cost"`
	// DataDir is where tuning runs are persisted.
	DataDir string `yaml:"data_dir"`
}

type ControllerConfig struct {
	Type string `yaml:"type"`
	// Gains pins an explicit vector for simulate/validate; empty means the
	// registry defaults (or whatever the tuner finds).
	Gains       []float64  `yaml:"gains,omitempty"`
	Feedforward bool       `yaml:"feedforward"`
	Params      smc.Params `yaml:"params"`
}

type SimConfig struct {
	Dt             float64   `yaml:"dt"`
	Duration       float64   `yaml:"duration"`
	ConvergenceTol float64   `yaml:"convergence_tol"`
	GracePeriod    float64   `yaml:"grace_period"`
	ConvWindow     float64   `yaml:"conv_window"`
	StateCeiling   float64   `yaml:"state_ceiling"`
	Integrator     string    `yaml:"integrator"`
	InitState      InitState `yaml:"init_state"`
	// Timeout bounds one candidate simulation, in seconds. Zero disables.
	Timeout float64 `yaml:"timeout"`
	Workers int     `yaml:"workers"`
}

// InitState is the named form of the 6-dim initial condition.
type InitState struct {
	X      float64 `yaml:"x"`
	Theta1 float64 `yaml:"theta1"`
	Theta2 float64 `yaml:"theta2"`
	XDot   float64 `yaml:"x_dot"`
	Omega1 float64 `yaml:"omega1"`
	Omega2 float64 `yaml:"omega2"`
}

func (i InitState) Vector() sim.State {
	return sim.State{i.X, i.Theta1, i.Theta2, i.XDot, i.Omega1, i.Omega2}
}

type PSOConfig struct {
	Particles  int     `yaml:"particles"`
	Iterations int     `yaml:"iterations"`
	W          float64 `yaml:"w"`
	C1         float64 `yaml:"c1"`
	C2         float64 `yaml:"c2"`
	Seed       int64   `yaml:"seed"`
	// Bound overrides replace the registry search box when both are set.
	LowerBounds []float64 `yaml:"lower_bounds,omitempty"`
	UpperBounds []float64 `yaml:"upper_bounds,omitempty"`
}

type CostConfig struct {
	Weights cost.Weights `yaml:"weights"`
	Penalty float64      `yaml:"penalty"`
}

func Default() *Config {
	simDef := sim.DefaultConfig()
	return &Config{
		Controller: ControllerConfig{
			Type:        smc.Classical.String(),
			Feedforward: true,
			Params:      smc.DefaultParams(),
		},
		Plant: plant.DefaultParams(),
		Sim: SimConfig{
			Dt:             simDef.Dt,
			Duration:       simDef.Duration,
			ConvergenceTol: simDef.ConvergenceTol,
			GracePeriod:    simDef.GracePeriod,
			ConvWindow:     simDef.ConvWindow,
			StateCeiling:   simDef.StateCeiling,
			Integrator:     "rk4",
			InitState:      InitState{Theta1: 0.1, Theta2: -0.05},
			Timeout:        10,
		},
		PSO: PSOConfig{
			Particles:  30,
			Iterations: 100,
			W:          0.7298,
			C1:         1.49618,
			C2:         1.49618,
		},
		Cost: CostConfig{
			Weights: cost.DefaultWeights(),
			Penalty: cost.DefaultPenalty,
		},
		DataDir: "runs",
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	typ, err := smc.Parse(c.Controller.Type)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if len(c.Controller.Gains) > 0 {
		if err := smc.Validate(typ, c.Controller.Gains); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	if err := c.Controller.Params.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := c.Plant.Validate(); err != nil {
		return fmt.Errorf("%w: plant: %v", ErrInvalidConfig, err)
	}
	if err := c.simConfig().Validate(); err != nil {
		return fmt.Errorf("%w: sim: %v", ErrInvalidConfig, err)
	}
	if _, err := integrators.New(c.Sim.Integrator); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Sim.Timeout < 0 {
		return fmt.Errorf("%w: sim: timeout must be non-negative, got %g", ErrInvalidConfig, c.Sim.Timeout)
	}
	if c.Sim.Workers < 0 {
		return fmt.Errorf("%w: sim: workers must be non-negative, got %d", ErrInvalidConfig, c.Sim.Workers)
	}

	if c.PSO.Particles < 1 {
		return fmt.Errorf("%w: pso: particles must be positive, got %d", ErrInvalidConfig, c.PSO.Particles)
	}
	if c.PSO.Iterations < 1 {
		return fmt.Errorf("%w: pso: iterations must be positive, got %d", ErrInvalidConfig, c.PSO.Iterations)
	}
	if c.PSO.W < 0 || c.PSO.C1 < 0 || c.PSO.C2 < 0 {
		return fmt.Errorf("%w: pso: negative velocity coefficient", ErrInvalidConfig)
	}
	if err := c.validateBounds(typ); err != nil {
		return err
	}

	if c.Cost.Penalty <= 0 {
		return fmt.Errorf("%w: cost: penalty must be positive, got %g", ErrInvalidConfig, c.Cost.Penalty)
	}
	if c.Cost.Weights.StateError < 0 || c.Cost.Weights.ControlEffort < 0 ||
		c.Cost.Weights.ControlRate < 0 || c.Cost.Weights.SurfaceEnergy < 0 {
		return fmt.Errorf("%w: cost: negative weight", ErrInvalidConfig)
	}
	return nil
}

func (c *Config) validateBounds(typ smc.Type) error {
	lo, up := c.PSO.LowerBounds, c.PSO.UpperBounds
	if len(lo) == 0 && len(up) == 0 {
		return nil
	}
	spec, err := smc.Get(typ)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if len(lo) != spec.GainCount || len(up) != spec.GainCount {
		return fmt.Errorf("%w: pso: %s needs %d bounds, got %d lower / %d upper",
			ErrInvalidConfig, typ, spec.GainCount, len(lo), len(up))
	}
	for i := range lo {
		if lo[i] > up[i] {
			return fmt.Errorf("%w: pso: lower bound %g above upper %g for %s",
				ErrInvalidConfig, lo[i], up[i], spec.GainNames[i])
		}
	}
	return nil
}

func (c *Config) simConfig() sim.Config {
	return sim.Config{
		Dt:             c.Sim.Dt,
		Duration:       c.Sim.Duration,
		ConvergenceTol: c.Sim.ConvergenceTol,
		GracePeriod:    c.Sim.GracePeriod,
		ConvWindow:     c.Sim.ConvWindow,
		StateCeiling:   c.Sim.StateCeiling,
	}
}

// ToOptions bridges the file surface to a tuning session.
func (c *Config) ToOptions() (tune.Options, error) {
	typ, err := smc.Parse(c.Controller.Type)
	if err != nil {
		return tune.Options{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	o := tune.Options{
		Controller:  typ,
		Particles:   c.PSO.Particles,
		Iterations:  c.PSO.Iterations,
		W:           c.PSO.W,
		C1:          c.PSO.C1,
		C2:          c.PSO.C2,
		Seed:        c.PSO.Seed,
		Plant:       c.Plant,
		Control:     c.Controller.Params,
		Integrator:  c.Sim.Integrator,
		X0:          c.Sim.InitState.Vector(),
		Sim:         c.simConfig(),
		Feedforward: c.Controller.Feedforward,
		Timeout:     time.Duration(c.Sim.Timeout * float64(time.Second)),
		Workers:     c.Sim.Workers,
		Weights:     c.Cost.Weights,
		Penalty:     c.Cost.Penalty,
	}
	if len(c.PSO.LowerBounds) > 0 || len(c.PSO.UpperBounds) > 0 {
		o.Bounds = &tune.Bounds{
			Lower: append([]float64(nil), c.PSO.LowerBounds...),
			Upper: append([]float64(nil), c.PSO.UpperBounds...),
		}
	}
	return o, nil
}
