package collide

import "github.com/go-gl/mathgl/mgl32"

type Motion int

const (
	Dynamic Motion = iota
	Static
	Kinematic
)

// Body is one rigid body owned by a World. Fields may be mutated freely
// between Step calls; mutating them during a Step is not supported.
type Body struct {
	Shape *Compound

	Position mgl32.Vec3
	Rotation mgl32.Quat

	Velocity        mgl32.Vec3
	AngularVelocity mgl32.Vec3

	Mass           float32
	Motion         Motion
	Friction       float32
	Restitution    float32
	LinearDamping  float32
	AngularDamping float32

	// GravityOverride replaces the world gravity for this body when non-nil.
	GravityOverride *mgl32.Vec3

	// Activation controls. Disabled bodies are skipped entirely by Step;
	// AlwaysAwake bodies never enter the sleeping state.
	Disabled        bool
	AlwaysAwake     bool
	SleepingAllowed bool
	Sleeping        bool

	// MaxStepTravel clamps per-step displacement when positive. Stands in
	// for continuous collision detection against tunneling.
	MaxStepTravel float32

	invMass    float32
	invInertia float32
	idleTime   float32

	force  mgl32.Vec3
	torque mgl32.Vec3
}

func NewBody(shape *Compound, mass float32, motion Motion) *Body {
	b := &Body{
		Shape:           shape,
		Rotation:        mgl32.QuatIdent(),
		Mass:            mass,
		Motion:          motion,
		Friction:        0.5,
		SleepingAllowed: true,
	}
	b.recomputeMass()
	return b
}

func (b *Body) recomputeMass() {
	if b.Motion != Dynamic || b.Mass <= 0 {
		b.invMass = 0
		b.invInertia = 0
		return
	}
	b.invMass = 1 / b.Mass
	// Solid-sphere inertia approximation over the bounding radius. The
	// solver only needs a stable scalar here.
	r := b.Shape.BoundingRadius()
	b.invInertia = 1 / (0.4 * b.Mass * r * r)
}

func (b *Body) Wake() {
	b.Sleeping = false
	b.idleTime = 0
}

func (b *Body) ApplyImpulse(impulse mgl32.Vec3) {
	if b.invMass == 0 {
		return
	}
	b.Wake()
	b.Velocity = b.Velocity.Add(impulse.Mul(b.invMass))
}

func (b *Body) ApplyAngularImpulse(impulse mgl32.Vec3) {
	if b.invMass == 0 {
		return
	}
	b.Wake()
	b.AngularVelocity = b.AngularVelocity.Add(impulse.Mul(b.invInertia))
}

// AddForce accumulates a force applied over the next step.
func (b *Body) AddForce(force mgl32.Vec3) {
	if b.invMass == 0 {
		return
	}
	b.Wake()
	b.force = b.force.Add(force)
}

func (b *Body) AddTorque(torque mgl32.Vec3) {
	if b.invMass == 0 {
		return
	}
	b.Wake()
	b.torque = b.torque.Add(torque)
}

func (b *Body) gravityIn(world mgl32.Vec3) mgl32.Vec3 {
	if b.GravityOverride != nil {
		return *b.GravityOverride
	}
	return world
}

// updateSleep advances the idle timer and puts the body to sleep once it has
// stayed below the velocity thresholds for sleepTime seconds.
func (b *Body) updateSleep(dt, sleepVelocity, sleepTime float32) {
	if !b.SleepingAllowed || b.AlwaysAwake || b.Motion != Dynamic {
		return
	}
	if b.Velocity.Len() < sleepVelocity && b.AngularVelocity.Len() < sleepVelocity {
		b.idleTime += dt
		if b.idleTime >= sleepTime {
			b.Sleeping = true
			b.Velocity = mgl32.Vec3{}
			b.AngularVelocity = mgl32.Vec3{}
		}
	} else {
		b.idleTime = 0
	}
}
