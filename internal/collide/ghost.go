package collide

import "github.com/go-gl/mathgl/mgl32"

// Ghost is an overlap-only object: it detects which bodies intersect its
// shape each step but carries no mass, velocity, or collision response.
type Ghost struct {
	Shape *Compound

	Position mgl32.Vec3
	Rotation mgl32.Quat

	Disabled bool

	Owner any

	overlaps []*Body
}

func NewGhost(shape *Compound) *Ghost {
	return &Ghost{Shape: shape, Rotation: mgl32.QuatIdent()}
}

// Overlaps returns the bodies found intersecting the ghost during the most
// recent Step. The slice is rebuilt each step.
func (g *Ghost) Overlaps() []*Body {
	return g.overlaps
}
