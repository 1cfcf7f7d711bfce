package collide

import "github.com/go-gl/mathgl/mgl32"

// ContactPoint is one touching point between two colliders. Normal points
// from the second participant toward the first and is unit length.
type ContactPoint struct {
	Point  mgl32.Vec3
	Normal mgl32.Vec3
	Depth  float32
}

// Manifold groups the contact points between one pair of colliders for a
// single step. A is the first participant.
type Manifold struct {
	A, B      *Body
	ColliderA *Collider
	ColliderB *Collider
	Points    []ContactPoint
}

// collidePair generates manifolds for every touching child pair of two
// bodies. The returned manifolds use a as first participant.
func collidePair(a, b *Body) []Manifold {
	var out []Manifold
	for i := range a.Shape.Children {
		ca := &a.Shape.Children[i]
		for j := range b.Shape.Children {
			cb := &b.Shape.Children[j]
			points := collideChildren(ca, a.Position, a.Rotation, cb, b.Position, b.Rotation)
			if len(points) > 0 {
				out = append(out, Manifold{A: a, B: b, ColliderA: ca, ColliderB: cb, Points: points})
			}
		}
	}
	return out
}

// collideChildren dispatches on the child shape kinds. Capsules are expanded
// into their two cap spheres before dispatch.
func collideChildren(ca *Collider, posA mgl32.Vec3, rotA mgl32.Quat, cb *Collider, posB mgl32.Vec3, rotB mgl32.Quat) []ContactPoint {
	if ca.Kind == CapsuleShape {
		topA, botA := ca.capCenters(posA, rotA)
		var pts []ContactPoint
		for _, c := range [2]mgl32.Vec3{topA, botA} {
			pts = append(pts, collideSphereAgainst(c, ca.Radius, cb, posB, rotB)...)
		}
		return pts
	}
	if cb.Kind == CapsuleShape {
		topB, botB := cb.capCenters(posB, rotB)
		var pts []ContactPoint
		for _, c := range [2]mgl32.Vec3{topB, botB} {
			for _, p := range collideSphereAgainst(c, cb.Radius, ca, posA, rotA) {
				pts = append(pts, flip(p))
			}
		}
		return pts
	}

	switch {
	case ca.Kind == SphereShape:
		return collideSphereAgainst(ca.worldCenter(posA, rotA), ca.Radius, cb, posB, rotB)
	case cb.Kind == SphereShape:
		var pts []ContactPoint
		for _, p := range collideSphereAgainst(cb.worldCenter(posB, rotB), cb.Radius, ca, posA, rotA) {
			pts = append(pts, flip(p))
		}
		return pts
	default:
		oa := newOBB(ca.worldCenter(posA, rotA), ca.Half, rotA.Mul(ca.Orient))
		ob := newOBB(cb.worldCenter(posB, rotB), cb.Half, rotB.Mul(cb.Orient))
		return boxBox(oa, ob)
	}
}

// collideSphereAgainst tests a world-space sphere (first participant)
// against a collider of any kind.
func collideSphereAgainst(center mgl32.Vec3, radius float32, cb *Collider, posB mgl32.Vec3, rotB mgl32.Quat) []ContactPoint {
	switch cb.Kind {
	case SphereShape:
		return sphereSphere(center, radius, cb.worldCenter(posB, rotB), cb.Radius)
	case BoxShape:
		ob := newOBB(cb.worldCenter(posB, rotB), cb.Half, rotB.Mul(cb.Orient))
		return sphereBox(center, radius, ob)
	case CapsuleShape:
		top, bot := cb.capCenters(posB, rotB)
		var pts []ContactPoint
		pts = append(pts, sphereSphere(center, radius, top, cb.Radius)...)
		pts = append(pts, sphereSphere(center, radius, bot, cb.Radius)...)
		return pts
	}
	return nil
}

func flip(p ContactPoint) ContactPoint {
	p.Normal = p.Normal.Mul(-1)
	return p
}

func sphereSphere(cA mgl32.Vec3, rA float32, cB mgl32.Vec3, rB float32) []ContactPoint {
	diff := cA.Sub(cB)
	dist := diff.Len()
	if dist >= rA+rB || dist < 1e-5 {
		return nil
	}
	normal := diff.Mul(1 / dist)
	return []ContactPoint{{
		Point:  cB.Add(normal.Mul(rB)),
		Normal: normal,
		Depth:  rA + rB - dist,
	}}
}

func sphereBox(center mgl32.Vec3, radius float32, box obb) []ContactPoint {
	closest := box.closestPoint(center)
	diff := center.Sub(closest)
	dist := diff.Len()
	if dist >= radius {
		return nil
	}
	var normal mgl32.Vec3
	if dist < 1e-5 {
		// Center inside the box: push out toward the box-to-sphere axis,
		// falling back to up when the centers coincide.
		axis := center.Sub(box.center)
		if axis.Len() < 1e-5 {
			axis = mgl32.Vec3{0, 1, 0}
		}
		normal = axis.Normalize()
		dist = 0
	} else {
		normal = diff.Mul(1 / dist)
	}
	return []ContactPoint{{
		Point:  closest,
		Normal: normal,
		Depth:  radius - dist,
	}}
}

func boxBox(a, b obb) []ContactPoint {
	mtv, pen := a.resolve(b)
	if pen <= 0 {
		return nil
	}
	normal := mtv.Mul(1 / pen)
	// Support point of a opposite the push direction approximates the
	// contact location.
	point := a.center.Sub(normal.Mul(a.project(normal)))
	return []ContactPoint{{Point: point, Normal: normal, Depth: pen}}
}

// overlaps reports whether any child pair of the two compounds intersects.
func overlaps(sa *Compound, posA mgl32.Vec3, rotA mgl32.Quat, sb *Compound, posB mgl32.Vec3, rotB mgl32.Quat) bool {
	for i := range sa.Children {
		for j := range sb.Children {
			if len(collideChildren(&sa.Children[i], posA, rotA, &sb.Children[j], posB, rotB)) > 0 {
				return true
			}
		}
	}
	return false
}
