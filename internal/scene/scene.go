// Package scene holds demo worlds for the sandbox CLI, expressed purely as
// inbound message batches so they exercise the same path as a real caller.
package scene

import (
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/keel-engine/keel/internal/collide"
	"github.com/keel-engine/keel/internal/engine"
)

// Scene is a named message batch plus the body the sandbox traces.
type Scene struct {
	Name        string
	Description string
	Messages    []engine.Message
	Watch       engine.PhysicsID
}

type builder func() *Scene

var scenes = map[string]builder{
	"stack":    stackScene,
	"shapes":   shapesScene,
	"pendulum": pendulumScene,
	"sensor":   sensorScene,
	"hammer":   hammerScene,
}

func Get(name string) (*Scene, error) {
	b, ok := scenes[name]
	if !ok {
		return nil, fmt.Errorf("unknown scene %q (available: %v)", name, List())
	}
	return b(), nil
}

func List() []string {
	names := make([]string, 0, len(scenes))
	for name := range scenes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func id(source string, n uint64) engine.PhysicsID {
	return engine.PhysicsID{Source: source, Correlation: n}
}

func floor() engine.BodyDeclaration {
	def := engine.DefaultBodyDefinition()
	def.Motion = collide.Static
	def.Center = mgl32.Vec3{0, -0.5, 0}
	def.Shape = engine.Box{Size: mgl32.Vec3{40, 1, 40}}
	def.Friction = 0.8
	return engine.BodyDeclaration{ID: id("floor", 1), Definition: def}
}

func dynamicBox(source string, n uint64, center mgl32.Vec3, size float32) engine.BodyDeclaration {
	def := engine.DefaultBodyDefinition()
	def.Center = center
	def.Shape = engine.Box{Size: mgl32.Vec3{size, size, size}}
	def.Restitution = 0.1
	return engine.BodyDeclaration{ID: id(source, n), Definition: def}
}

// stackScene drops a column of boxes onto the floor.
func stackScene() *Scene {
	decls := []engine.BodyDeclaration{floor()}
	for i := 0; i < 5; i++ {
		decls = append(decls, dynamicBox("crate", uint64(i+1), mgl32.Vec3{0, 2 + float32(i)*1.5, 0}, 1))
	}
	return &Scene{
		Name:        "stack",
		Description: "five crates falling into a column",
		Messages:    []engine.Message{engine.CreateBodiesMessage{Bodies: decls}},
		Watch:       id("crate", 5),
	}
}

// shapesScene drops one of each supported shape, including a rounded box
// that degrades to a plain box.
func shapesScene() *Scene {
	sphere := engine.DefaultBodyDefinition()
	sphere.Center = mgl32.Vec3{-3, 6, 0}
	sphere.Shape = engine.Sphere{Radius: 0.5}
	sphere.Restitution = 0.6

	capsule := engine.DefaultBodyDefinition()
	capsule.Center = mgl32.Vec3{0, 6, 0}
	capsule.Shape = engine.Capsule{Radius: 0.4, Height: 1}

	rounded := engine.DefaultBodyDefinition()
	rounded.Center = mgl32.Vec3{3, 6, 0}
	rounded.Shape = engine.RoundedBox{Size: mgl32.Vec3{1, 1, 1}, Bevel: 0.1}

	return &Scene{
		Name:        "shapes",
		Description: "sphere, capsule, and rounded box on the floor",
		Messages: []engine.Message{
			engine.CreateBodyMessage{Body: floor()},
			engine.CreateBodiesMessage{Bodies: []engine.BodyDeclaration{
				{ID: id("ball", 1), Definition: sphere},
				{ID: id("pill", 1), Definition: capsule},
				{ID: id("block", 1), Definition: rounded},
			}},
		},
		Watch: id("ball", 1),
	}
}

// pendulumScene hangs a bob from a static anchor with a ball-socket joint
// and gives it a sideways shove.
func pendulumScene() *Scene {
	anchor := engine.DefaultBodyDefinition()
	anchor.Motion = collide.Static
	anchor.Center = mgl32.Vec3{0, 8, 0}
	anchor.Shape = engine.Box{Size: mgl32.Vec3{0.5, 0.5, 0.5}}

	bob := engine.DefaultBodyDefinition()
	bob.Center = mgl32.Vec3{0, 5, 0}
	bob.Shape = engine.Sphere{Radius: 0.5}
	bob.SleepingAllowed = false

	return &Scene{
		Name:        "pendulum",
		Description: "a bob swinging from a ball-socket joint",
		Messages: []engine.Message{
			engine.CreateBodiesMessage{Bodies: []engine.BodyDeclaration{
				{ID: id("anchor", 1), Definition: anchor},
				{ID: id("bob", 1), Definition: bob},
			}},
			engine.CreateJointMessage{Joint: engine.JointDeclaration{
				ID: id("rope", 1),
				Definition: engine.JointDefinition{
					Kind:       engine.DistanceJointKind,
					BodyA:      id("anchor", 1),
					BodyB:      id("bob", 1),
					RestLength: 3,
				},
			}},
			engine.ApplyBodyLinearImpulseMessage{ID: id("bob", 1), Impulse: mgl32.Vec3{8, 0, 0}},
		},
		Watch: id("bob", 1),
	}
}

// sensorScene throws a ball through an overlap-only gate.
func sensorScene() *Scene {
	gate := engine.DefaultBodyDefinition()
	gate.Sensor = true
	gate.Center = mgl32.Vec3{2, 2, 0}
	gate.Shape = engine.Box{Size: mgl32.Vec3{1, 4, 4}}

	ball := engine.DefaultBodyDefinition()
	ball.Center = mgl32.Vec3{0, 3, 0}
	ball.Shape = engine.Sphere{Radius: 0.5}
	ball.SleepingAllowed = false

	return &Scene{
		Name:        "sensor",
		Description: "a ball thrown through a sensor gate",
		Messages: []engine.Message{
			engine.CreateBodyMessage{Body: floor()},
			engine.CreateBodiesMessage{Bodies: []engine.BodyDeclaration{
				{ID: id("gate", 1), Definition: gate},
				{ID: id("ball", 1), Definition: ball},
			}},
			engine.SetBodyLinearVelocityMessage{ID: id("ball", 1), Velocity: mgl32.Vec3{4, 0, 0}},
		},
		Watch: id("ball", 1),
	}
}

// hammerScene drops a compound body: a head and handle composed from a
// nested shape list.
func hammerScene() *Scene {
	hammer := engine.DefaultBodyDefinition()
	hammer.Center = mgl32.Vec3{0, 5, 0}
	hammer.Shape = engine.Shapes{Items: []engine.Shape{
		engine.Box{Center: mgl32.Vec3{0, 0.8, 0}, Size: mgl32.Vec3{1.2, 0.4, 0.4}},
		engine.Capsule{Center: mgl32.Vec3{0, 0, 0}, Radius: 0.12, Height: 1.2},
	}}
	hammer.AngularVelocity = mgl32.Vec3{0, 0, 2}

	return &Scene{
		Name:        "hammer",
		Description: "a tumbling compound hammer",
		Messages: []engine.Message{
			engine.CreateBodyMessage{Body: floor()},
			engine.CreateBodyMessage{Body: engine.BodyDeclaration{ID: id("hammer", 1), Definition: hammer}},
		},
		Watch: id("hammer", 1),
	}
}
