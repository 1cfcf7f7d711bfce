package collide

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// Positional correction keeps a small penetration slop so resting contacts
// regenerate every step instead of flickering.
const (
	correctionSlop    = 0.01
	correctionPercent = 0.8
	wakeFactor        = 2.0
)

type Config struct {
	Gravity          mgl32.Vec3
	SleepVelocity    float32
	SleepTime        float32
	SolverIterations int
	CellSize         float32
}

func DefaultConfig() Config {
	return Config{
		Gravity:          mgl32.Vec3{0, -9.81, 0},
		SleepVelocity:    0.08,
		SleepTime:        0.5,
		SolverIterations: 4,
		CellSize:         5,
	}
}

// World owns every body, ghost, and constraint registered with it. It is not
// safe for concurrent use; one goroutine drives Step and all mutation.
type World struct {
	cfg     Config
	gravity mgl32.Vec3

	dynamics []*Body
	statics  []*Body
	ghosts   []*Ghost

	constraints []*Constraint

	grid      *grid
	manifolds []Manifold
}

func NewWorld(cfg Config) *World {
	if cfg.SolverIterations <= 0 {
		cfg.SolverIterations = 1
	}
	return &World{
		cfg:     cfg,
		gravity: cfg.Gravity,
		grid:    newGrid(cfg.CellSize),
	}
}

func (w *World) Gravity() mgl32.Vec3        { return w.gravity }
func (w *World) SetGravity(g mgl32.Vec3)    { w.gravity = g }
func (w *World) Manifolds() []Manifold      { return w.manifolds }
func (w *World) Constraints() []*Constraint { return w.constraints }

func (w *World) AddBody(b *Body) {
	b.recomputeMass()
	if b.Motion == Dynamic {
		w.dynamics = append(w.dynamics, b)
	} else {
		w.statics = append(w.statics, b)
	}
}

func (w *World) RemoveBody(b *Body) {
	w.dynamics = removeBody(w.dynamics, b)
	w.statics = removeBody(w.statics, b)
}

func (w *World) AddGhost(g *Ghost) {
	w.ghosts = append(w.ghosts, g)
}

func (w *World) RemoveGhost(g *Ghost) {
	for i, other := range w.ghosts {
		if other == g {
			w.ghosts = append(w.ghosts[:i], w.ghosts[i+1:]...)
			return
		}
	}
}

func (w *World) AddConstraint(c *Constraint) {
	w.constraints = append(w.constraints, c)
}

func (w *World) RemoveConstraint(c *Constraint) {
	for i, other := range w.constraints {
		if other == c {
			w.constraints = append(w.constraints[:i], w.constraints[i+1:]...)
			return
		}
	}
}

// Clear drops every body, ghost, constraint, and manifold at once.
func (w *World) Clear() {
	w.dynamics = nil
	w.statics = nil
	w.ghosts = nil
	w.constraints = nil
	w.manifolds = nil
}

func removeBody(list []*Body, b *Body) []*Body {
	for i, other := range list {
		if other == b {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// Step advances the simulation by dt seconds: integrate velocities and
// transforms, regenerate contacts, resolve them, solve constraints, harvest
// ghost overlaps, then update sleep state.
func (w *World) Step(dt float32) {
	if dt <= 0 {
		return
	}

	w.integrate(dt)
	w.generateContacts()
	for i := 0; i < w.cfg.SolverIterations; i++ {
		for j := range w.manifolds {
			w.resolveManifold(&w.manifolds[j])
		}
		for _, c := range w.constraints {
			c.solve()
		}
	}
	w.harvestGhosts()

	for _, b := range w.dynamics {
		if b.Disabled || b.Sleeping {
			continue
		}
		b.updateSleep(dt, w.cfg.SleepVelocity, w.cfg.SleepTime)
	}
}

func (w *World) integrate(dt float32) {
	for _, b := range w.dynamics {
		if b.Disabled || b.Sleeping {
			b.force = mgl32.Vec3{}
			b.torque = mgl32.Vec3{}
			continue
		}

		accel := b.gravityIn(w.gravity).Add(b.force.Mul(b.invMass))
		b.Velocity = b.Velocity.Add(accel.Mul(dt))
		b.AngularVelocity = b.AngularVelocity.Add(b.torque.Mul(b.invInertia * dt))
		b.force = mgl32.Vec3{}
		b.torque = mgl32.Vec3{}

		// Time-based damping, framerate independent.
		b.Velocity = b.Velocity.Mul(dampingFactor(b.LinearDamping, dt))
		b.AngularVelocity = b.AngularVelocity.Mul(dampingFactor(b.AngularDamping, dt))

		travel := b.Velocity.Mul(dt)
		if b.MaxStepTravel > 0 && travel.Len() > b.MaxStepTravel {
			travel = travel.Normalize().Mul(b.MaxStepTravel)
		}
		b.Position = b.Position.Add(travel)

		if b.AngularVelocity.Len() > 1e-6 {
			spin := mgl32.Quat{W: 0, V: b.AngularVelocity}
			dq := spin.Mul(b.Rotation).Scale(0.5 * dt)
			b.Rotation = b.Rotation.Add(dq).Normalize()
		}
	}

	// Kinematic bodies move by their velocity but ignore forces and
	// collision response.
	for _, b := range w.statics {
		if b.Motion != Kinematic || b.Disabled {
			continue
		}
		b.Position = b.Position.Add(b.Velocity.Mul(dt))
	}
}

func dampingFactor(damping, dt float32) float32 {
	f := 1 - damping*dt
	if f < 0 {
		return 0
	}
	return f
}

// generateContacts regenerates the manifold list from scratch. Sleeping
// bodies still participate so contact queries keep seeing resting pairs;
// resolution is a no-op for them, sleeping zeroes velocity and resting
// penetration sits inside the correction slop.
func (w *World) generateContacts() {
	w.manifolds = w.manifolds[:0]
	w.grid.rebuild(w.dynamics)

	checked := make(map[[2]*Body]bool)
	for _, a := range w.dynamics {
		if a.Disabled {
			continue
		}
		for _, b := range w.grid.neighbors(a) {
			if a == b || b.Disabled {
				continue
			}
			pa, pb := a, b
			if uintptr(unsafe.Pointer(pa)) > uintptr(unsafe.Pointer(pb)) {
				pa, pb = pb, pa
			}
			key := [2]*Body{pa, pb}
			if checked[key] {
				continue
			}
			checked[key] = true
			w.manifolds = append(w.manifolds, collidePair(pa, pb)...)
		}
	}

	for _, a := range w.dynamics {
		if a.Disabled {
			continue
		}
		for _, s := range w.statics {
			if s.Disabled {
				continue
			}
			w.manifolds = append(w.manifolds, collidePair(a, s)...)
		}
	}
}

func (w *World) resolveManifold(m *Manifold) {
	a, b := m.A, m.B
	invSum := a.invMass + b.invMass
	if invSum == 0 {
		return
	}

	for _, pt := range m.Points {
		wakeOnContact(a, b, w.cfg.SleepVelocity)

		// Positional correction with slop.
		pen := pt.Depth - correctionSlop
		if pen > 0 {
			correction := pt.Normal.Mul(pen * correctionPercent / invSum)
			if a.invMass > 0 {
				a.Position = a.Position.Add(correction.Mul(a.invMass))
			}
			if b.invMass > 0 {
				b.Position = b.Position.Sub(correction.Mul(b.invMass))
			}
		}

		relVel := a.Velocity.Sub(b.Velocity)
		along := relVel.Dot(pt.Normal)
		if along > 0 {
			continue
		}

		e := (a.Restitution + b.Restitution) / 2
		j := -(1 + e) * along / invSum
		impulse := pt.Normal.Mul(j)
		if a.invMass > 0 {
			a.Velocity = a.Velocity.Add(impulse.Mul(a.invMass))
		}
		if b.invMass > 0 {
			b.Velocity = b.Velocity.Sub(impulse.Mul(b.invMass))
		}

		// Tangential friction damps the velocity component perpendicular
		// to the contact normal.
		mu := (a.Friction + b.Friction) / 2
		tangential := relVel.Sub(pt.Normal.Mul(along))
		if tangential.Len() > 1e-5 {
			fr := tangential.Mul(mu * 0.5)
			if a.invMass > 0 {
				a.Velocity = a.Velocity.Sub(fr.Mul(a.invMass / invSum))
			}
			if b.invMass > 0 {
				b.Velocity = b.Velocity.Add(fr.Mul(b.invMass / invSum))
			}
		}

		// Contact torque from the lever arm between center and point.
		if a.invInertia > 0 {
			ra := pt.Point.Sub(a.Position)
			a.AngularVelocity = a.AngularVelocity.Add(ra.Cross(impulse).Mul(a.invInertia))
		}
		if b.invInertia > 0 {
			rb := pt.Point.Sub(b.Position)
			b.AngularVelocity = b.AngularVelocity.Sub(rb.Cross(impulse).Mul(b.invInertia))
		}
	}
}

// wakeOnContact wakes a sleeping participant when the other side moves fast
// enough; micro-contacts are left alone so settled stacks stay asleep.
func wakeOnContact(a, b *Body, sleepVelocity float32) {
	relSpeed := a.Velocity.Sub(b.Velocity).Len()
	if relSpeed < sleepVelocity*wakeFactor {
		return
	}
	if a.Sleeping {
		a.Wake()
	}
	if b.Sleeping {
		b.Wake()
	}
}

func (w *World) harvestGhosts() {
	for _, g := range w.ghosts {
		g.overlaps = g.overlaps[:0]
		if g.Disabled {
			continue
		}
		for _, b := range w.dynamics {
			if b.Disabled {
				continue
			}
			if overlaps(g.Shape, g.Position, g.Rotation, b.Shape, b.Position, b.Rotation) {
				g.overlaps = append(g.overlaps, b)
			}
		}
	}
}
