package engine

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/keel-engine/keel/internal/collide"
)

// Message is one inbound command. Messages are applied in arrival order:
// later messages may reference entities created by earlier ones in the same
// batch, so ordering is a hard contract.
type Message interface {
	isMessage()
}

// JointKind selects the constraint device. An unrecognized kind is a
// programming error and aborts the step.
type JointKind int

const (
	BallSocketJoint JointKind = iota
	DistanceJointKind
	HingeJoint
)

// BodyDefinition is the full declarative description of one body. Sensor
// bodies become overlap-only ghosts; everything else becomes a rigid body.
type BodyDefinition struct {
	Center   mgl32.Vec3
	Rotation mgl32.Quat

	Shape     Shape
	Substance Substance

	Sensor  bool
	Motion  collide.Motion
	Enabled bool

	Friction    float32
	Restitution float32

	LinearVelocity  mgl32.Vec3
	AngularVelocity mgl32.Vec3
	LinearDamping   float32
	AngularDamping  float32

	// GravityOverride replaces world gravity for this body when non-nil.
	GravityOverride *mgl32.Vec3

	SleepingAllowed bool
	AwakeAlways     bool

	// CCDTravelThreshold clamps per-step displacement when positive,
	// standing in for continuous collision detection.
	CCDTravelThreshold float32
}

// DefaultBodyDefinition returns a dynamic, enabled, density-1 definition.
func DefaultBodyDefinition() BodyDefinition {
	return BodyDefinition{
		Rotation:        mgl32.QuatIdent(),
		Substance:       Substance{Policy: DensityMass, Density: 1},
		Enabled:         true,
		Friction:        0.5,
		SleepingAllowed: true,
	}
}

type BodyDeclaration struct {
	ID         PhysicsID
	Definition BodyDefinition
}

type JointDefinition struct {
	Kind       JointKind
	BodyA      PhysicsID
	BodyB      PhysicsID
	AnchorA    mgl32.Vec3 // local to body A
	AnchorB    mgl32.Vec3 // local to body B
	Axis       mgl32.Vec3 // hinge only
	RestLength float32    // distance only
}

type JointDeclaration struct {
	ID         PhysicsID
	Definition JointDefinition
}

type CreateBodyMessage struct{ Body BodyDeclaration }

type CreateBodiesMessage struct{ Bodies []BodyDeclaration }

type DestroyBodyMessage struct{ ID PhysicsID }

type DestroyBodiesMessage struct{ IDs []PhysicsID }

type CreateJointMessage struct{ Joint JointDeclaration }

type CreateJointsMessage struct{ Joints []JointDeclaration }

type DestroyJointMessage struct{ ID PhysicsID }

type DestroyJointsMessage struct{ IDs []PhysicsID }

type SetBodyEnabledMessage struct {
	ID      PhysicsID
	Enabled bool
}

type SetBodyCenterMessage struct {
	ID     PhysicsID
	Center mgl32.Vec3
}

type SetBodyRotationMessage struct {
	ID       PhysicsID
	Rotation mgl32.Quat
}

type SetBodyLinearVelocityMessage struct {
	ID       PhysicsID
	Velocity mgl32.Vec3
}

type SetBodyAngularVelocityMessage struct {
	ID       PhysicsID
	Velocity mgl32.Vec3
}

type ApplyBodyLinearImpulseMessage struct {
	ID      PhysicsID
	Impulse mgl32.Vec3
}

type ApplyBodyAngularImpulseMessage struct {
	ID      PhysicsID
	Impulse mgl32.Vec3
}

type ApplyBodyForceMessage struct {
	ID    PhysicsID
	Force mgl32.Vec3
}

type ApplyBodyTorqueMessage struct {
	ID     PhysicsID
	Torque mgl32.Vec3
}

type SetGravityMessage struct{ Gravity mgl32.Vec3 }

// RebuildPhysicsMessage destructively removes every tracked joint, ghost,
// and body. The caller is expected to immediately resubmit creation messages
// from its own authoritative state; missing-entity logging is suppressed for
// the remainder of the batch so stale destroy messages stay quiet.
type RebuildPhysicsMessage struct{}

func (CreateBodyMessage) isMessage()              {}
func (CreateBodiesMessage) isMessage()            {}
func (DestroyBodyMessage) isMessage()             {}
func (DestroyBodiesMessage) isMessage()           {}
func (CreateJointMessage) isMessage()             {}
func (CreateJointsMessage) isMessage()            {}
func (DestroyJointMessage) isMessage()            {}
func (DestroyJointsMessage) isMessage()           {}
func (SetBodyEnabledMessage) isMessage()          {}
func (SetBodyCenterMessage) isMessage()           {}
func (SetBodyRotationMessage) isMessage()         {}
func (SetBodyLinearVelocityMessage) isMessage()   {}
func (SetBodyAngularVelocityMessage) isMessage()  {}
func (ApplyBodyLinearImpulseMessage) isMessage()  {}
func (ApplyBodyAngularImpulseMessage) isMessage() {}
func (ApplyBodyForceMessage) isMessage()          {}
func (ApplyBodyTorqueMessage) isMessage()         {}
func (SetGravityMessage) isMessage()              {}
func (RebuildPhysicsMessage) isMessage()          {}

// IntegrationMessage is one outbound result of an integration step.
type IntegrationMessage interface {
	isIntegrationMessage()
}

// BodyTransformMessage is the per-body snapshot emitted once per awake
// dynamic body per step.
type BodyTransformMessage struct {
	BodySource      PhysicsID
	Center          mgl32.Vec3
	Rotation        mgl32.Quat
	LinearVelocity  mgl32.Vec3
	AngularVelocity mgl32.Vec3
}

func (BodyTransformMessage) isIntegrationMessage() {}
