package engine

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// velocityPerUnitImpulse derives the aggregated mass behaviorally: a unit
// impulse yields a velocity of 1/mass.
func velocityPerUnitImpulse(def BodyDefinition) float32 {
	eng := New(weightlessOptions())
	id := testID("probe", 1)
	mustIntegrate(eng, Ticks(0), []Message{
		CreateBodyMessage{Body: BodyDeclaration{ID: id, Definition: def}},
		ApplyBodyLinearImpulseMessage{ID: id, Impulse: mgl32.Vec3{1, 0, 0}},
	})
	vel, err := eng.GetBodyLinearVelocity(id)
	Expect(err).NotTo(HaveOccurred())
	return vel.X()
}

var _ = Describe("shape mass aggregation", func() {
	It("derives box mass from volume and density", func() {
		def := DefaultBodyDefinition()
		def.Substance = Substance{Policy: DensityMass, Density: 2}
		def.Shape = Box{Size: mgl32.Vec3{1, 1, 1}}

		Expect(velocityPerUnitImpulse(def)).To(BeNumerically("~", 0.5, 1e-4))
	})

	It("sums contributions across a compound", func() {
		def := DefaultBodyDefinition()
		def.Shape = Shapes{Items: []Shape{
			Box{Size: mgl32.Vec3{1, 1, 1}},
			Sphere{Center: mgl32.Vec3{0, 1, 0}, Radius: 0.5},
		}}

		mass := 1 + 4.0/3.0*math.Pi*0.125
		Expect(velocityPerUnitImpulse(def)).To(BeNumerically("~", 1/mass, 1e-3))
	})

	It("uses the cylinder-plus-caps capsule volume", func() {
		def := DefaultBodyDefinition()
		def.Shape = Capsule{Radius: 0.5, Height: 1}

		volume := math.Pi * 0.25 * (4.0/3.0*0.5 + 1)
		Expect(velocityPerUnitImpulse(def)).To(BeNumerically("~", 1/volume, 1e-3))
	})

	It("uses the substance mass per shape under the fixed policy", func() {
		def := DefaultBodyDefinition()
		def.Substance = Substance{Policy: FixedMass, Mass: 4}
		def.Shape = Sphere{Radius: 0.1}

		Expect(velocityPerUnitImpulse(def)).To(BeNumerically("~", 0.25, 1e-4))
	})

	It("prefers a per-shape mass override over the substance", func() {
		override := float32(5)
		def := DefaultBodyDefinition()
		def.Shape = Sphere{Radius: 0.1, Props: ShapeProps{MassOverride: &override}}

		Expect(velocityPerUnitImpulse(def)).To(BeNumerically("~", 0.2, 1e-4))
	})

	It("degrades rounded boxes to plain boxes", func() {
		rounded := DefaultBodyDefinition()
		rounded.Shape = RoundedBox{Size: mgl32.Vec3{1, 2, 1}, Bevel: 0.3}

		plain := DefaultBodyDefinition()
		plain.Shape = Box{Size: mgl32.Vec3{1, 2, 1}}

		Expect(velocityPerUnitImpulse(rounded)).To(Equal(velocityPerUnitImpulse(plain)))
	})

	It("gives mesh shapes no geometry or mass", func() {
		def := DefaultBodyDefinition()
		def.Shape = Mesh{Vertices: []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}}

		// Zero aggregated mass leaves the body immobile to impulses.
		Expect(velocityPerUnitImpulse(def)).To(BeZero())
	})
})
