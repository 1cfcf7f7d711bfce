package engine

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Ground contacts are normals within 45 degrees of up.
var groundNormalCos = float32(math.Cos(math.Pi / 4))

var up = mgl32.Vec3{0, 1, 0}

// GetBodyContactNormals scans the backend's active contact manifolds and
// collects every contact normal whose manifold lists the queried body as
// first participant. Normals point from the second participant toward the
// first. Unknown ids yield an empty list, never an error.
func (e *Engine) GetBodyContactNormals(id PhysicsID) []mgl32.Vec3 {
	var normals []mgl32.Vec3
	for _, m := range e.world.Manifolds() {
		data, ok := m.ColliderA.Owner.(ColliderData)
		if !ok || data.BodyID != id {
			continue
		}
		for _, pt := range m.Points {
			normals = append(normals, pt.Normal)
		}
	}
	return normals
}

// GetBodyToGroundContactNormals filters the body's contact normals to those
// within 45 degrees of the up axis.
func (e *Engine) GetBodyToGroundContactNormals(id PhysicsID) []mgl32.Vec3 {
	var ground []mgl32.Vec3
	for _, n := range e.GetBodyContactNormals(id) {
		if n.Dot(up) > groundNormalCos {
			ground = append(ground, n)
		}
	}
	return ground
}

// GetBodyToGroundContactNormalOpt reduces the ground normals pairwise:
// each normal is averaged against the running value in turn. With more than
// two normals this weights later entries heavier than a true vector mean
// would; existing content is tuned against that reduction, so it is kept
// verbatim.
func (e *Engine) GetBodyToGroundContactNormalOpt(id PhysicsID) (mgl32.Vec3, bool) {
	ground := e.GetBodyToGroundContactNormals(id)
	if len(ground) == 0 {
		return mgl32.Vec3{}, false
	}
	avg := ground[0]
	for _, n := range ground[1:] {
		avg = avg.Add(n).Mul(0.5)
	}
	return avg, true
}

// GetBodyToGroundContactTangentOpt returns the forward axis crossed with the
// ground normal, or false when the body has no ground contact.
func (e *Engine) GetBodyToGroundContactTangentOpt(id PhysicsID) (mgl32.Vec3, bool) {
	normal, ok := e.GetBodyToGroundContactNormalOpt(id)
	if !ok {
		return mgl32.Vec3{}, false
	}
	return e.opts.ForwardAxis.Cross(normal), true
}

// IsBodyOnGround reports whether any contact normal qualifies as ground.
func (e *Engine) IsBodyOnGround(id PhysicsID) bool {
	return len(e.GetBodyToGroundContactNormals(id)) > 0
}

// GhostOverlaps returns the ids of rigid bodies currently overlapping the
// given sensor ghost. Unknown ids yield an empty list.
func (e *Engine) GhostOverlaps(id PhysicsID) []PhysicsID {
	rec, ok := e.ghosts[id]
	if !ok {
		return nil
	}
	var out []PhysicsID
	for _, b := range rec.ghost.Overlaps() {
		if len(b.Shape.Children) == 0 {
			continue
		}
		if data, ok := b.Shape.Children[0].Owner.(ColliderData); ok {
			out = append(out, data.BodyID)
		}
	}
	return out
}
