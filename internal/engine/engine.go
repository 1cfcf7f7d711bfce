// Package engine is the bridge between a declarative simulation model and
// the mutable rigid-body backend. Callers submit intent as messages and
// receive per-step transform snapshots back; backend handles never cross the
// boundary.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/keel-engine/keel/internal/collide"
)

// ErrWrongDeltaForm is returned when the StepDelta form does not match the
// configured timing mode. This is the fatal tier: a configuration error, not
// a runtime condition to retry.
var ErrWrongDeltaForm = errors.New("step delta form does not match timing mode")

// TimingMode selects which StepDelta form Integrate accepts.
type TimingMode int

const (
	FixedTiming TimingMode = iota
	VariableTiming
)

// StepDelta is the per-call time advance: a tick count under FixedTiming or
// an elapsed duration in seconds under VariableTiming. Exactly one form is
// valid per configured mode.
type StepDelta struct {
	ticks   int64
	elapsed float32
	fixed   bool
}

func Ticks(n int64) StepDelta           { return StepDelta{ticks: n, fixed: true} }
func Elapsed(seconds float32) StepDelta { return StepDelta{elapsed: seconds} }

// Options configure an Engine at construction. None of them can change at
// runtime.
type Options struct {
	Timing   TimingMode
	TickRate float32 // ticks per second under FixedTiming

	// Immediate applies enqueued messages synchronously instead of
	// deferring them to the next Integrate call.
	Immediate bool

	Gravity     mgl32.Vec3
	ForwardAxis mgl32.Vec3

	SleepVelocity    float32
	SleepTime        float32
	SolverIterations int
	BroadphaseCell   float32

	Logger *slog.Logger
}

func DefaultOptions() Options {
	wc := collide.DefaultConfig()
	return Options{
		Timing:           FixedTiming,
		TickRate:         60,
		Gravity:          wc.Gravity,
		ForwardAxis:      mgl32.Vec3{0, 0, -1},
		SleepVelocity:    wc.SleepVelocity,
		SleepTime:        wc.SleepTime,
		SolverIterations: wc.SolverIterations,
		BroadphaseCell:   wc.CellSize,
	}
}

type bodyRecord struct {
	id   PhysicsID
	def  BodyDefinition
	body *collide.Body
}

type ghostRecord struct {
	id    PhysicsID
	def   BodyDefinition
	ghost *collide.Ghost
}

type jointRecord struct {
	id         PhysicsID
	def        JointDefinition
	constraint *collide.Constraint
}

// Engine owns the backend world and every tracked entity. One logical
// simulation thread drives Integrate and all entity mutation; only the
// inbound and outbound queues are safe to touch from other goroutines.
type Engine struct {
	opts Options
	log  *slog.Logger

	world *collide.World

	bodies     map[PhysicsID]*bodyRecord
	ghosts     map[PhysicsID]*ghostRecord
	objects    map[PhysicsID]any // *bodyRecord or *ghostRecord
	joints     map[PhysicsID]*jointRecord
	order      []PhysicsID // body insertion order for outbound emission
	ghostOrder []PhysicsID // ghost insertion order for render snapshots

	inboxMu sync.Mutex
	inbox   []Message

	outboxMu sync.Mutex
	outbox   []IntegrationMessage

	// rebuilding suppresses missing-entity logging for the remainder of
	// the current batch after a rebuild message.
	rebuilding bool
}

func New(opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.TickRate <= 0 {
		opts.TickRate = 60
	}
	if opts.ForwardAxis == (mgl32.Vec3{}) {
		opts.ForwardAxis = mgl32.Vec3{0, 0, -1}
	}
	world := collide.NewWorld(collide.Config{
		Gravity:          opts.Gravity,
		SleepVelocity:    opts.SleepVelocity,
		SleepTime:        opts.SleepTime,
		SolverIterations: opts.SolverIterations,
		CellSize:         opts.BroadphaseCell,
	})
	return &Engine{
		opts:    opts,
		log:     opts.Logger,
		world:   world,
		bodies:  make(map[PhysicsID]*bodyRecord),
		ghosts:  make(map[PhysicsID]*ghostRecord),
		objects: make(map[PhysicsID]any),
		joints:  make(map[PhysicsID]*jointRecord),
	}
}

// EnqueueMessage records one command. In deferred mode (the default) it is
// applied by the next Integrate call; in immediate mode it is applied
// synchronously and fatal-tier errors are returned to the caller.
func (e *Engine) EnqueueMessage(msg Message) error {
	if e.opts.Immediate {
		err := e.applyMessage(msg)
		e.rebuilding = false
		return err
	}
	e.inboxMu.Lock()
	e.inbox = append(e.inbox, msg)
	e.inboxMu.Unlock()
	return nil
}

// PopMessages atomically swaps out and returns the pending inbound batch,
// leaving the queue empty. The returned slice preserves arrival order.
func (e *Engine) PopMessages() []Message {
	e.inboxMu.Lock()
	defer e.inboxMu.Unlock()
	batch := e.inbox
	e.inbox = nil
	return batch
}

// ClearMessages discards the pending inbound batch without applying it.
func (e *Engine) ClearMessages() {
	e.inboxMu.Lock()
	e.inbox = nil
	e.inboxMu.Unlock()
}

// Integrate applies the given command batch in order, advances the backend
// by the resolved time delta, and returns the outbound snapshot batch. A
// non-positive delta applies commands but does not step. The outbound buffer
// is drained atomically with the return, so no snapshot is delivered twice.
func (e *Engine) Integrate(delta StepDelta, batch []Message) ([]IntegrationMessage, error) {
	if err := e.applyBatch(batch); err != nil {
		return nil, err
	}

	dt, err := e.resolveDelta(delta)
	if err != nil {
		return nil, err
	}

	if dt > 0 {
		e.world.Step(dt)
		e.emitSnapshots()
	}

	return e.drainOutbox(), nil
}

func (e *Engine) applyBatch(batch []Message) error {
	// The suppression flag never outlives the batch, rebuild or not.
	defer func() { e.rebuilding = false }()
	for _, msg := range batch {
		if err := e.applyMessage(msg); err != nil {
			return err
		}
	}
	return nil
}

// applyMessage is the dispatch table: one handler per message variant.
// Recoverable conditions are logged inside the handlers; only fatal-tier
// errors propagate.
func (e *Engine) applyMessage(msg Message) error {
	switch m := msg.(type) {
	case CreateBodyMessage:
		e.createBody(m.Body)
	case CreateBodiesMessage:
		for _, decl := range m.Bodies {
			e.createBody(decl)
		}
	case DestroyBodyMessage:
		e.destroyBody(m.ID)
	case DestroyBodiesMessage:
		for _, id := range m.IDs {
			e.destroyBody(id)
		}
	case CreateJointMessage:
		return e.createJoint(m.Joint)
	case CreateJointsMessage:
		for _, decl := range m.Joints {
			if err := e.createJoint(decl); err != nil {
				return err
			}
		}
	case DestroyJointMessage:
		e.destroyJoint(m.ID)
	case DestroyJointsMessage:
		for _, id := range m.IDs {
			e.destroyJoint(id)
		}
	case SetBodyEnabledMessage:
		e.setEnabled(m.ID, m.Enabled)
	case SetBodyCenterMessage:
		e.setCenter(m.ID, m.Center)
	case SetBodyRotationMessage:
		e.setRotation(m.ID, m.Rotation)
	case SetBodyLinearVelocityMessage:
		e.setLinearVelocity(m.ID, m.Velocity)
	case SetBodyAngularVelocityMessage:
		e.setAngularVelocity(m.ID, m.Velocity)
	case ApplyBodyLinearImpulseMessage:
		e.applyLinearImpulse(m.ID, m.Impulse)
	case ApplyBodyAngularImpulseMessage:
		e.applyAngularImpulse(m.ID, m.Impulse)
	case ApplyBodyForceMessage:
		e.applyForce(m.ID, m.Force)
	case ApplyBodyTorqueMessage:
		e.applyTorque(m.ID, m.Torque)
	case SetGravityMessage:
		e.world.SetGravity(m.Gravity)
	case RebuildPhysicsMessage:
		e.rebuild()
	default:
		return fmt.Errorf("unrecognized message variant %T", msg)
	}
	return nil
}

func (e *Engine) resolveDelta(delta StepDelta) (float32, error) {
	switch e.opts.Timing {
	case FixedTiming:
		if !delta.fixed {
			return 0, fmt.Errorf("%w: got elapsed time under fixed timing", ErrWrongDeltaForm)
		}
		return float32(delta.ticks) / e.opts.TickRate, nil
	case VariableTiming:
		if delta.fixed {
			return 0, fmt.Errorf("%w: got tick count under variable timing", ErrWrongDeltaForm)
		}
		return delta.elapsed, nil
	}
	return 0, fmt.Errorf("unknown timing mode %d", e.opts.Timing)
}

// emitSnapshots appends one transform message per awake, enabled dynamic
// body, in body insertion order.
func (e *Engine) emitSnapshots() {
	e.outboxMu.Lock()
	defer e.outboxMu.Unlock()
	for _, id := range e.order {
		rec, ok := e.bodies[id]
		if !ok {
			continue
		}
		b := rec.body
		if b.Sleeping || b.Disabled || b.Motion != collide.Dynamic {
			continue
		}
		e.outbox = append(e.outbox, BodyTransformMessage{
			BodySource:      rec.id,
			Center:          b.Position,
			Rotation:        b.Rotation,
			LinearVelocity:  b.Velocity,
			AngularVelocity: b.AngularVelocity,
		})
	}
}

func (e *Engine) drainOutbox() []IntegrationMessage {
	e.outboxMu.Lock()
	defer e.outboxMu.Unlock()
	batch := e.outbox
	e.outbox = nil
	return batch
}

// BodyExists reports whether id names a tracked body or ghost.
func (e *Engine) BodyExists(id PhysicsID) bool {
	_, ok := e.objects[id]
	return ok
}

// BodyCount returns the number of tracked rigid bodies (ghosts excluded).
func (e *Engine) BodyCount() int {
	return len(e.bodies)
}

// JointExists reports whether id names a tracked joint.
func (e *Engine) JointExists(id PhysicsID) bool {
	_, ok := e.joints[id]
	return ok
}

// GetBodyLinearVelocity returns the body's linear velocity. Ghosts have no
// dynamics and report zero; an id that is neither fails loudly because the
// caller is operating on an entity that was never valid.
func (e *Engine) GetBodyLinearVelocity(id PhysicsID) (mgl32.Vec3, error) {
	if rec, ok := e.bodies[id]; ok {
		return rec.body.Velocity, nil
	}
	if _, ok := e.ghosts[id]; ok {
		return mgl32.Vec3{}, nil
	}
	return mgl32.Vec3{}, fmt.Errorf("no body or ghost tracked under %s", id)
}

// BodyCenter returns the current world translation of a tracked body or
// ghost.
func (e *Engine) BodyCenter(id PhysicsID) (mgl32.Vec3, error) {
	switch rec := e.objects[id].(type) {
	case *bodyRecord:
		return rec.body.Position, nil
	case *ghostRecord:
		return rec.ghost.Position, nil
	}
	return mgl32.Vec3{}, fmt.Errorf("no body or ghost tracked under %s", id)
}

// Gravity returns the current world gravity.
func (e *Engine) Gravity() mgl32.Vec3 {
	return e.world.Gravity()
}

// BodyView is a read-only render snapshot of one tracked entity.
type BodyView struct {
	ID       PhysicsID
	Center   mgl32.Vec3
	Radius   float32
	Ghost    bool
	Static   bool
	Sleeping bool
}

// Views returns one snapshot per tracked body and ghost, bodies first, each
// group in insertion order.
func (e *Engine) Views() []BodyView {
	views := make([]BodyView, 0, len(e.bodies)+len(e.ghosts))
	for _, id := range e.order {
		rec, ok := e.bodies[id]
		if !ok {
			continue
		}
		views = append(views, BodyView{
			ID:       rec.id,
			Center:   rec.body.Position,
			Radius:   rec.body.Shape.BoundingRadius(),
			Static:   rec.body.Motion != collide.Dynamic,
			Sleeping: rec.body.Sleeping,
		})
	}
	for _, id := range e.ghostOrder {
		rec, ok := e.ghosts[id]
		if !ok {
			continue
		}
		views = append(views, BodyView{
			ID:     rec.id,
			Center: rec.ghost.Position,
			Radius: rec.ghost.Shape.BoundingRadius(),
			Ghost:  true,
		})
	}
	return views
}
