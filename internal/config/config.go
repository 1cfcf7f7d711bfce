package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultTickRate         = 60.0
	DefaultGravityY         = -9.81
	DefaultSleepVelocity    = 0.08
	DefaultSleepTime        = 0.5
	DefaultSolverIterations = 4
	DefaultBroadphaseCell   = 5.0
)

type Config struct {
	// Timing selects the step-delta form Integrate accepts: "fixed"
	// (tick counts at TickRate) or "variable" (elapsed seconds).
	Timing   string  `yaml:"timing"`
	TickRate float32 `yaml:"tick_rate"`

	Gravity Vec3 `yaml:"gravity"`

	// Immediate applies enqueued messages synchronously instead of
	// deferring them to the next integration call.
	Immediate bool `yaml:"immediate"`

	SleepVelocity    float32 `yaml:"sleep_velocity"`
	SleepTime        float32 `yaml:"sleep_time"`
	SolverIterations int     `yaml:"solver_iterations"`
	BroadphaseCell   float32 `yaml:"broadphase_cell"`

	ForwardAxis Vec3 `yaml:"forward_axis"`
}

type Vec3 struct {
	X float32 `yaml:"x"`
	Y float32 `yaml:"y"`
	Z float32 `yaml:"z"`
}

func DefaultConfig() *Config {
	return &Config{
		Timing:           "fixed",
		TickRate:         DefaultTickRate,
		Gravity:          Vec3{Y: DefaultGravityY},
		SleepVelocity:    DefaultSleepVelocity,
		SleepTime:        DefaultSleepTime,
		SolverIterations: DefaultSolverIterations,
		BroadphaseCell:   DefaultBroadphaseCell,
		ForwardAxis:      Vec3{Z: -1},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
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
	if c.Timing != "fixed" && c.Timing != "variable" {
		return fmt.Errorf("timing must be fixed or variable, got %q", c.Timing)
	}
	if c.TickRate <= 0 {
		return fmt.Errorf("tick_rate must be positive, got %v", c.TickRate)
	}
	if c.SolverIterations <= 0 {
		return fmt.Errorf("solver_iterations must be positive, got %d", c.SolverIterations)
	}
	return nil
}
