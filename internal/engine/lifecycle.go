package engine

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/keel-engine/keel/internal/collide"
)

// createBody registers one rigid body or sensor ghost under a fresh id.
// Duplicate ids are rejected and logged; nothing is silently overwritten.
func (e *Engine) createBody(decl BodyDeclaration) {
	if _, exists := e.objects[decl.ID]; exists {
		e.log.Debug("duplicate body id rejected", "id", decl.ID)
		return
	}

	shape, mass := e.composeShape(decl.ID, decl.Definition.Shape, decl.Definition.Substance)

	if decl.Definition.Sensor {
		ghost := collide.NewGhost(shape)
		ghost.Position = decl.Definition.Center
		ghost.Rotation = rotationOrIdent(decl.Definition.Rotation)
		ghost.Owner = ColliderData{Source: decl.ID.Source, BodyID: decl.ID}
		rec := &ghostRecord{id: decl.ID, def: decl.Definition, ghost: ghost}
		e.configureGhost(rec)
		e.world.AddGhost(ghost)
		e.ghosts[decl.ID] = rec
		e.objects[decl.ID] = rec
		e.ghostOrder = append(e.ghostOrder, decl.ID)
		return
	}

	body := collide.NewBody(shape, mass, decl.Definition.Motion)
	body.Position = decl.Definition.Center
	body.Rotation = rotationOrIdent(decl.Definition.Rotation)
	rec := &bodyRecord{id: decl.ID, def: decl.Definition, body: body}
	e.configureBody(rec)
	e.world.AddBody(body)
	e.bodies[decl.ID] = rec
	e.objects[decl.ID] = rec
	e.order = append(e.order, decl.ID)
}

// configureBody derives every mutable body property from the definition.
// It is idempotent: reapplying it recomputes the same activation and
// collision flags rather than toggling live state.
func (e *Engine) configureBody(rec *bodyRecord) {
	def, b := rec.def, rec.body
	b.Friction = def.Friction
	b.Restitution = def.Restitution
	b.Velocity = def.LinearVelocity
	b.AngularVelocity = def.AngularVelocity
	b.LinearDamping = def.LinearDamping
	b.AngularDamping = def.AngularDamping
	b.GravityOverride = def.GravityOverride
	b.MaxStepTravel = def.CCDTravelThreshold
	b.Disabled = !def.Enabled
	b.AlwaysAwake = def.AwakeAlways
	b.SleepingAllowed = def.SleepingAllowed && !def.AwakeAlways
}

func (e *Engine) configureGhost(rec *ghostRecord) {
	rec.ghost.Disabled = !rec.def.Enabled
}

// destroyBody removes a body or ghost from the backend world and all
// tracking maps. An absent id is a logged no-op; the log is suppressed while
// a rebuild batch is in flight because the destroy originated from stale
// caller-side state.
func (e *Engine) destroyBody(id PhysicsID) {
	switch rec := e.objects[id].(type) {
	case *bodyRecord:
		e.world.RemoveBody(rec.body)
		delete(e.bodies, id)
		delete(e.objects, id)
		e.order = dropID(e.order, id)
	case *ghostRecord:
		e.world.RemoveGhost(rec.ghost)
		delete(e.ghosts, id)
		delete(e.objects, id)
		e.ghostOrder = dropID(e.ghostOrder, id)
	default:
		if !e.rebuilding {
			e.log.Debug("destroy for untracked body", "id", id)
		}
	}
}

func dropID(list []PhysicsID, id PhysicsID) []PhysicsID {
	for i, other := range list {
		if other == id {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// createJoint binds two existing rigid bodies. A missing endpoint is logged
// and skipped (recoverable); an unrecognized joint kind aborts the step.
func (e *Engine) createJoint(decl JointDeclaration) error {
	if _, exists := e.joints[decl.ID]; exists {
		e.log.Debug("duplicate joint id rejected", "id", decl.ID)
		return nil
	}
	recA, okA := e.bodies[decl.Definition.BodyA]
	recB, okB := e.bodies[decl.Definition.BodyB]
	if !okA || !okB {
		e.log.Debug("joint endpoint missing",
			"joint", decl.ID,
			"bodyA", decl.Definition.BodyA, "bodyAFound", okA,
			"bodyB", decl.Definition.BodyB, "bodyBFound", okB)
		return nil
	}

	var kind collide.ConstraintKind
	switch decl.Definition.Kind {
	case BallSocketJoint:
		kind = collide.BallSocket
	case DistanceJointKind:
		kind = collide.DistanceJoint
	case HingeJoint:
		kind = collide.Hinge
	default:
		return fmt.Errorf("unrecognized joint device variant %d for %s", decl.Definition.Kind, decl.ID)
	}

	constraint := &collide.Constraint{
		Kind:       kind,
		A:          recA.body,
		B:          recB.body,
		AnchorA:    decl.Definition.AnchorA,
		AnchorB:    decl.Definition.AnchorB,
		Axis:       decl.Definition.Axis,
		RestLength: decl.Definition.RestLength,
	}
	e.world.AddConstraint(constraint)
	e.joints[decl.ID] = &jointRecord{id: decl.ID, def: decl.Definition, constraint: constraint}
	return nil
}

func (e *Engine) destroyJoint(id PhysicsID) {
	rec, ok := e.joints[id]
	if !ok {
		if !e.rebuilding {
			e.log.Debug("destroy for untracked joint", "id", id)
		}
		return
	}
	e.world.RemoveConstraint(rec.constraint)
	delete(e.joints, id)
}

// rebuild forcibly clears every tracked joint, ghost, and body along with
// the outbound buffer, and suppresses missing-entity logging until the end
// of the current batch.
func (e *Engine) rebuild() {
	e.world.Clear()
	e.bodies = make(map[PhysicsID]*bodyRecord)
	e.ghosts = make(map[PhysicsID]*ghostRecord)
	e.objects = make(map[PhysicsID]any)
	e.joints = make(map[PhysicsID]*jointRecord)
	e.order = nil
	e.ghostOrder = nil

	e.outboxMu.Lock()
	e.outbox = nil
	e.outboxMu.Unlock()

	e.rebuilding = true
	e.log.Debug("physics world rebuilt")
}

// Per-id setters dispatch on object kind. Transform and enablement apply to
// both kinds; dynamics-only operations succeed without effect on ghosts.

func (e *Engine) setEnabled(id PhysicsID, enabled bool) {
	switch rec := e.objects[id].(type) {
	case *bodyRecord:
		rec.def.Enabled = enabled
		e.configureBody(rec)
		if enabled {
			rec.body.Wake()
		}
	case *ghostRecord:
		rec.def.Enabled = enabled
		e.configureGhost(rec)
	default:
		e.logMissing("set enabled", id)
	}
}

func (e *Engine) setCenter(id PhysicsID, center mgl32.Vec3) {
	switch rec := e.objects[id].(type) {
	case *bodyRecord:
		rec.body.Position = center
		rec.body.Wake()
	case *ghostRecord:
		rec.ghost.Position = center
	default:
		e.logMissing("set center", id)
	}
}

func (e *Engine) setRotation(id PhysicsID, rotation mgl32.Quat) {
	switch rec := e.objects[id].(type) {
	case *bodyRecord:
		rec.body.Rotation = rotationOrIdent(rotation)
		rec.body.Wake()
	case *ghostRecord:
		rec.ghost.Rotation = rotationOrIdent(rotation)
	default:
		e.logMissing("set rotation", id)
	}
}

func (e *Engine) setLinearVelocity(id PhysicsID, v mgl32.Vec3) {
	e.withBody("set linear velocity", id, func(b *collide.Body) {
		b.Velocity = v
		b.Wake()
	})
}

func (e *Engine) setAngularVelocity(id PhysicsID, v mgl32.Vec3) {
	e.withBody("set angular velocity", id, func(b *collide.Body) {
		b.AngularVelocity = v
		b.Wake()
	})
}

func (e *Engine) applyLinearImpulse(id PhysicsID, impulse mgl32.Vec3) {
	e.withBody("apply linear impulse", id, func(b *collide.Body) {
		b.ApplyImpulse(impulse)
	})
}

func (e *Engine) applyAngularImpulse(id PhysicsID, impulse mgl32.Vec3) {
	e.withBody("apply angular impulse", id, func(b *collide.Body) {
		b.ApplyAngularImpulse(impulse)
	})
}

func (e *Engine) applyForce(id PhysicsID, force mgl32.Vec3) {
	e.withBody("apply force", id, func(b *collide.Body) {
		b.AddForce(force)
	})
}

func (e *Engine) applyTorque(id PhysicsID, torque mgl32.Vec3) {
	e.withBody("apply torque", id, func(b *collide.Body) {
		b.AddTorque(torque)
	})
}

// withBody runs fn against a rigid body. Ghosts are a silent success: they
// have no dynamics, so the operation is a no-op rather than a failure.
func (e *Engine) withBody(op string, id PhysicsID, fn func(*collide.Body)) {
	switch rec := e.objects[id].(type) {
	case *bodyRecord:
		fn(rec.body)
	case *ghostRecord:
		// No dynamics on ghosts.
	default:
		e.logMissing(op, id)
	}
}

func (e *Engine) logMissing(op string, id PhysicsID) {
	if !e.rebuilding {
		e.log.Debug("operation on untracked entity", "op", op, "id", id)
	}
}

func rotationOrIdent(q mgl32.Quat) mgl32.Quat {
	if q == (mgl32.Quat{}) {
		return mgl32.QuatIdent()
	}
	return q
}
