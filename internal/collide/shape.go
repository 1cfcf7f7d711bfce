package collide

import "github.com/go-gl/mathgl/mgl32"

type ShapeKind int

const (
	SphereShape ShapeKind = iota
	BoxShape
	CapsuleShape
)

// Collider is one primitive inside a compound. Offset and Orient are local to
// the owning body's frame. Owner is opaque metadata set by the embedding
// layer and carried through to contact manifolds.
type Collider struct {
	Kind   ShapeKind
	Offset mgl32.Vec3
	Orient mgl32.Quat
	Radius float32    // sphere and capsule
	Half   mgl32.Vec3 // box half extents
	Height float32    // capsule cylinder height (excluding caps)
	Owner  any
}

// Compound aggregates the colliders that form one body's geometry. It is
// owned by exactly one body and its child list is fixed after construction.
type Compound struct {
	Children []Collider
}

func NewCompound(children []Collider) *Compound {
	return &Compound{Children: children}
}

// BoundingRadius returns the radius of a sphere centered on the body origin
// that encloses every child collider. Used for broad-phase cell sizing and
// the scalar inertia approximation.
func (c *Compound) BoundingRadius() float32 {
	var max float32
	for i := range c.Children {
		ch := &c.Children[i]
		r := ch.Offset.Len() + ch.extent()
		if r > max {
			max = r
		}
	}
	if max == 0 {
		return 0.5
	}
	return max
}

func (col *Collider) extent() float32 {
	switch col.Kind {
	case SphereShape:
		return col.Radius
	case BoxShape:
		return col.Half.Len()
	case CapsuleShape:
		return col.Radius + col.Height/2
	}
	return 0
}

// worldCenter returns the collider center in world space for a body at the
// given transform.
func (col *Collider) worldCenter(pos mgl32.Vec3, rot mgl32.Quat) mgl32.Vec3 {
	return pos.Add(rot.Rotate(col.Offset))
}

// capCenters returns the two capsule cap-sphere centers in world space.
// Capsules collide as their two cap spheres; the cylinder body is not tested
// separately.
func (col *Collider) capCenters(pos mgl32.Vec3, rot mgl32.Quat) (mgl32.Vec3, mgl32.Vec3) {
	axis := rot.Mul(col.Orient).Rotate(mgl32.Vec3{0, 1, 0})
	center := col.worldCenter(pos, rot)
	h := col.Height / 2
	return center.Add(axis.Mul(h)), center.Sub(axis.Mul(h))
}
