package config

import (
	"log/slog"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/keel-engine/keel/internal/engine"
)

// EngineOptions converts the file-facing config into engine construction
// options.
func (c *Config) EngineOptions(logger *slog.Logger) engine.Options {
	timing := engine.FixedTiming
	if c.Timing == "variable" {
		timing = engine.VariableTiming
	}
	return engine.Options{
		Timing:           timing,
		TickRate:         c.TickRate,
		Immediate:        c.Immediate,
		Gravity:          c.Gravity.Vec(),
		ForwardAxis:      c.ForwardAxis.Vec(),
		SleepVelocity:    c.SleepVelocity,
		SleepTime:        c.SleepTime,
		SolverIterations: c.SolverIterations,
		BroadphaseCell:   c.BroadphaseCell,
		Logger:           logger,
	}
}

func (v Vec3) Vec() mgl32.Vec3 {
	return mgl32.Vec3{v.X, v.Y, v.Z}
}
