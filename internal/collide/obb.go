package collide

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// obb is an oriented box in world space used by the narrow phase.
type obb struct {
	center mgl32.Vec3
	half   mgl32.Vec3
	axes   [3]mgl32.Vec3
}

func newOBB(center mgl32.Vec3, half mgl32.Vec3, rot mgl32.Quat) obb {
	return obb{
		center: center,
		half:   half,
		axes: [3]mgl32.Vec3{
			rot.Rotate(mgl32.Vec3{1, 0, 0}),
			rot.Rotate(mgl32.Vec3{0, 1, 0}),
			rot.Rotate(mgl32.Vec3{0, 0, 1}),
		},
	}
}

func (o obb) project(axis mgl32.Vec3) float32 {
	return o.half.X()*abs32(o.axes[0].Dot(axis)) +
		o.half.Y()*abs32(o.axes[1].Dot(axis)) +
		o.half.Z()*abs32(o.axes[2].Dot(axis))
}

// resolve returns the minimum translation vector that pushes a out of b and
// its length. A zero vector means the boxes are separated. Fifteen candidate
// axes per the separating axis theorem: both boxes' face normals plus the
// nine edge cross products.
func (a obb) resolve(b obb) (mgl32.Vec3, float32) {
	t := b.center.Sub(a.center)
	minPen := float32(math.MaxFloat32)
	var mtv mgl32.Vec3
	hit := true

	test := func(axis mgl32.Vec3) {
		if !hit {
			return
		}
		if axis.Len() < 1e-4 {
			return
		}
		axis = axis.Normalize()
		dist := t.Dot(axis)
		pen := a.project(axis) + b.project(axis) - abs32(dist)
		if pen <= 0 {
			hit = false
			return
		}
		if pen < minPen {
			minPen = pen
			if dist < 0 {
				mtv = axis.Mul(pen)
			} else {
				mtv = axis.Mul(-pen)
			}
		}
	}

	for i := 0; i < 3; i++ {
		test(a.axes[i])
	}
	for i := 0; i < 3; i++ {
		test(b.axes[i])
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			test(a.axes[i].Cross(b.axes[j]))
		}
	}

	if !hit {
		return mgl32.Vec3{}, 0
	}
	return mtv, minPen
}

// closestPoint returns the point on the box closest to p.
func (o obb) closestPoint(p mgl32.Vec3) mgl32.Vec3 {
	local := p.Sub(o.center)
	result := o.center
	half := [3]float32{o.half.X(), o.half.Y(), o.half.Z()}
	for i := 0; i < 3; i++ {
		d := clamp32(local.Dot(o.axes[i]), -half[i], half[i])
		result = result.Add(o.axes[i].Mul(d))
	}
	return result
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func clamp32(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
