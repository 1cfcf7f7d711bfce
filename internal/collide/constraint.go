package collide

import "github.com/go-gl/mathgl/mgl32"

type ConstraintKind int

const (
	BallSocket ConstraintKind = iota
	DistanceJoint
	Hinge
)

// Constraint binds exactly two bodies. Anchors are expressed in each body's
// local frame. Hinge additionally keeps relative rotation near the given
// local axis by damping off-axis angular velocity; it shares the positional
// core with BallSocket.
type Constraint struct {
	Kind       ConstraintKind
	A, B       *Body
	AnchorA    mgl32.Vec3
	AnchorB    mgl32.Vec3
	Axis       mgl32.Vec3
	RestLength float32
}

func (c *Constraint) worldAnchors() (mgl32.Vec3, mgl32.Vec3) {
	pa := c.A.Position.Add(c.A.Rotation.Rotate(c.AnchorA))
	pb := c.B.Position.Add(c.B.Rotation.Rotate(c.AnchorB))
	return pa, pb
}

// solve applies one relaxation pass: positional correction split by inverse
// mass plus a velocity impulse along the constraint error.
func (c *Constraint) solve() {
	pa, pb := c.worldAnchors()
	err := pb.Sub(pa)

	if c.Kind == DistanceJoint {
		dist := err.Len()
		if dist < 1e-5 {
			return
		}
		dir := err.Mul(1 / dist)
		err = dir.Mul(dist - c.RestLength)
	}

	invSum := c.A.invMass + c.B.invMass
	if invSum == 0 {
		return
	}

	// Positional correction.
	c.A.Position = c.A.Position.Add(err.Mul(c.A.invMass / invSum))
	c.B.Position = c.B.Position.Sub(err.Mul(c.B.invMass / invSum))

	// Kill relative velocity along the error direction.
	errLen := err.Len()
	if errLen > 1e-5 {
		dir := err.Mul(1 / errLen)
		relVel := c.A.Velocity.Sub(c.B.Velocity)
		along := relVel.Dot(dir)
		if along < 0 {
			impulse := dir.Mul(-along / invSum)
			if c.A.invMass > 0 {
				c.A.Velocity = c.A.Velocity.Add(impulse.Mul(c.A.invMass))
			}
			if c.B.invMass > 0 {
				c.B.Velocity = c.B.Velocity.Sub(impulse.Mul(c.B.invMass))
			}
		}
	}

	if c.Kind == Hinge {
		c.dampOffAxis()
	}
}

func (c *Constraint) dampOffAxis() {
	axis := c.A.Rotation.Rotate(c.Axis)
	if axis.Len() < 1e-5 {
		return
	}
	axis = axis.Normalize()
	rel := c.A.AngularVelocity.Sub(c.B.AngularVelocity)
	offAxis := rel.Sub(axis.Mul(rel.Dot(axis)))
	if c.A.invMass > 0 {
		c.A.AngularVelocity = c.A.AngularVelocity.Sub(offAxis.Mul(0.5))
	}
	if c.B.invMass > 0 {
		c.B.AngularVelocity = c.B.AngularVelocity.Add(offAxis.Mul(0.5))
	}
}
