package engine

import "fmt"

// PhysicsID names one logical body or joint across its create/destroy
// lifecycle, independent of any backend handle. Source identifies the
// originating simulant; Correlation disambiguates multiple entities owned by
// the same source. Both are opaque comparable tokens chosen by the caller.
type PhysicsID struct {
	Source      string
	Correlation uint64
}

func (id PhysicsID) String() string {
	return fmt.Sprintf("%s/%d", id.Source, id.Correlation)
}

// ColliderData is attached to every backend collider so contact queries can
// recover the logical owner of a manifold participant. ShapeID is zero when
// no shape-level properties were set on the source shape.
type ColliderData struct {
	Source  string
	BodyID  PhysicsID
	ShapeID uint64
}
