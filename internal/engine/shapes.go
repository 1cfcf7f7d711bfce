package engine

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/keel-engine/keel/internal/collide"
)

// MassPolicy selects how a body's mass is derived from its shape tree.
type MassPolicy int

const (
	// DensityMass derives each child's mass from its volume times the
	// substance density.
	DensityMass MassPolicy = iota
	// FixedMass uses the substance mass directly, ignoring volume.
	FixedMass
)

// Substance is the body-level mass policy applied to every child shape that
// does not carry its own override.
type Substance struct {
	Policy  MassPolicy
	Density float32
	Mass    float32
}

// ShapeProps are optional per-shape properties. ShapeID stays zero when the
// caller sets none, which is how contact metadata distinguishes "unset".
type ShapeProps struct {
	ShapeID      uint64
	MassOverride *float32
}

// Shape is the declarative geometry submitted in a create-body message.
type Shape interface {
	isShape()
}

type Box struct {
	Center mgl32.Vec3
	Size   mgl32.Vec3
	Orient mgl32.Quat
	Props  ShapeProps
}

type Sphere struct {
	Center mgl32.Vec3
	Radius float32
	Props  ShapeProps
}

type Capsule struct {
	Center mgl32.Vec3
	Radius float32
	Height float32 // cylinder section, excluding the caps
	Orient mgl32.Quat
	Props  ShapeProps
}

// RoundedBox degrades to a plain Box with the same center and size; the
// bevel radius is ignored. A one-time warning is logged on first use.
type RoundedBox struct {
	Center mgl32.Vec3
	Size   mgl32.Vec3
	Bevel  float32
	Orient mgl32.Quat
	Props  ShapeProps
}

// Shapes nests a list of child shapes; contributions are summed recursively.
type Shapes struct {
	Items []Shape
}

// Mesh shapes are not supported by the backend and contribute nothing to
// either geometry or mass. Documented gap, kept so callers can submit full
// shape trees without filtering.
type Mesh struct {
	Vertices []mgl32.Vec3
	Props    ShapeProps
}

func (Box) isShape()        {}
func (Sphere) isShape()     {}
func (Capsule) isShape()    {}
func (RoundedBox) isShape() {}
func (Shapes) isShape()     {}
func (Mesh) isShape()       {}

var roundedBoxWarn sync.Once

// composeShape converts a declarative shape tree into one backend compound
// plus the aggregated mass under the given substance policy.
func (e *Engine) composeShape(id PhysicsID, shape Shape, sub Substance) (*collide.Compound, float32) {
	var children []collide.Collider
	var mass float32
	e.appendShape(id, shape, sub, &children, &mass)
	return collide.NewCompound(children), mass
}

func (e *Engine) appendShape(id PhysicsID, shape Shape, sub Substance, out *[]collide.Collider, mass *float32) {
	switch s := shape.(type) {
	case Box:
		*out = append(*out, collide.Collider{
			Kind:   collide.BoxShape,
			Offset: s.Center,
			Orient: rotationOrIdent(s.Orient),
			Half:   s.Size.Mul(0.5),
			Owner:  ColliderData{Source: id.Source, BodyID: id, ShapeID: s.Props.ShapeID},
		})
		volume := s.Size.X() * s.Size.Y() * s.Size.Z()
		*mass += shapeMass(sub, s.Props, volume)
	case Sphere:
		*out = append(*out, collide.Collider{
			Kind:   collide.SphereShape,
			Offset: s.Center,
			Orient: mgl32.QuatIdent(),
			Radius: s.Radius,
			Owner:  ColliderData{Source: id.Source, BodyID: id, ShapeID: s.Props.ShapeID},
		})
		volume := 4.0 / 3.0 * math.Pi * float64(s.Radius*s.Radius*s.Radius)
		*mass += shapeMass(sub, s.Props, float32(volume))
	case Capsule:
		*out = append(*out, collide.Collider{
			Kind:   collide.CapsuleShape,
			Offset: s.Center,
			Orient: rotationOrIdent(s.Orient),
			Radius: s.Radius,
			Height: s.Height,
			Owner:  ColliderData{Source: id.Source, BodyID: id, ShapeID: s.Props.ShapeID},
		})
		// Cylinder plus hemisphere caps approximation, kept verbatim for
		// compatibility with existing content tuned against it.
		volume := math.Pi * float64(s.Radius*s.Radius) * (4.0/3.0*float64(s.Radius) + float64(s.Height))
		*mass += shapeMass(sub, s.Props, float32(volume))
	case RoundedBox:
		roundedBoxWarn.Do(func() {
			e.log.Warn("rounded boxes degrade to plain boxes", "body", id)
		})
		e.appendShape(id, Box{Center: s.Center, Size: s.Size, Orient: s.Orient, Props: s.Props}, sub, out, mass)
	case Shapes:
		for _, item := range s.Items {
			e.appendShape(id, item, sub, out, mass)
		}
	case Mesh:
		// Unsupported; contributes nothing.
	}
}

func shapeMass(sub Substance, props ShapeProps, volume float32) float32 {
	if props.MassOverride != nil {
		return *props.MassOverride
	}
	if sub.Policy == FixedMass {
		return sub.Mass
	}
	return sub.Density * volume
}
