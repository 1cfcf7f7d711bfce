package engine

import (
	"io"
	"log/slog"

	"github.com/go-gl/mathgl/mgl32"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/keel-engine/keel/internal/collide"
)

func testOptions() Options {
	opts := DefaultOptions()
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return opts
}

func weightlessOptions() Options {
	opts := testOptions()
	opts.Gravity = mgl32.Vec3{}
	return opts
}

func testID(source string, n uint64) PhysicsID {
	return PhysicsID{Source: source, Correlation: n}
}

func sphereDecl(id PhysicsID, center mgl32.Vec3) BodyDeclaration {
	def := DefaultBodyDefinition()
	def.Center = center
	def.Shape = Sphere{Radius: 0.5}
	return BodyDeclaration{ID: id, Definition: def}
}

func floorDecl() BodyDeclaration {
	def := DefaultBodyDefinition()
	def.Motion = collide.Static
	def.Center = mgl32.Vec3{0, -0.5, 0}
	def.Shape = Box{Size: mgl32.Vec3{40, 1, 40}}
	return BodyDeclaration{ID: testID("floor", 1), Definition: def}
}

func mustIntegrate(e *Engine, delta StepDelta, batch []Message) []IntegrationMessage {
	GinkgoHelper()
	out, err := e.Integrate(delta, batch)
	Expect(err).NotTo(HaveOccurred())
	return out
}

var _ = Describe("body lifecycle", func() {
	var eng *Engine

	BeforeEach(func() {
		eng = New(weightlessOptions())
	})

	It("tracks created bodies", func() {
		id := testID("crate", 1)
		mustIntegrate(eng, Ticks(0), []Message{CreateBodyMessage{Body: sphereDecl(id, mgl32.Vec3{0, 2, 0})}})

		Expect(eng.BodyExists(id)).To(BeTrue())
		Expect(eng.BodyCount()).To(Equal(1))
		center, err := eng.BodyCenter(id)
		Expect(err).NotTo(HaveOccurred())
		Expect(center).To(Equal(mgl32.Vec3{0, 2, 0}))
	})

	It("keeps the first body on duplicate create", func() {
		id := testID("crate", 1)
		mustIntegrate(eng, Ticks(0), []Message{
			CreateBodyMessage{Body: sphereDecl(id, mgl32.Vec3{0, 2, 0})},
			CreateBodyMessage{Body: sphereDecl(id, mgl32.Vec3{9, 9, 9})},
		})

		Expect(eng.BodyCount()).To(Equal(1))
		center, _ := eng.BodyCenter(id)
		Expect(center).To(Equal(mgl32.Vec3{0, 2, 0}))
	})

	It("destroys bodies and ignores unknown ids", func() {
		id := testID("crate", 1)
		mustIntegrate(eng, Ticks(0), []Message{CreateBodyMessage{Body: sphereDecl(id, mgl32.Vec3{})}})
		mustIntegrate(eng, Ticks(0), []Message{
			DestroyBodyMessage{ID: id},
			DestroyBodyMessage{ID: testID("never", 7)},
		})

		Expect(eng.BodyExists(id)).To(BeFalse())
		Expect(eng.BodyCount()).To(BeZero())
	})

	It("lets later messages see earlier ones in the same batch", func() {
		id := testID("crate", 1)
		out := mustIntegrate(eng, Ticks(1), []Message{
			CreateBodyMessage{Body: sphereDecl(id, mgl32.Vec3{0, 5, 0})},
			ApplyBodyLinearImpulseMessage{ID: id, Impulse: mgl32.Vec3{1, 0, 0}},
		})

		Expect(out).To(HaveLen(1))
		vel, err := eng.GetBodyLinearVelocity(id)
		Expect(err).NotTo(HaveOccurred())
		Expect(vel.X()).To(BeNumerically(">", 0))
	})

	It("creates and destroys in bulk", func() {
		ids := []PhysicsID{testID("a", 1), testID("b", 1), testID("c", 1)}
		decls := make([]BodyDeclaration, len(ids))
		for i, id := range ids {
			decls[i] = sphereDecl(id, mgl32.Vec3{float32(i) * 3, 0, 0})
		}
		mustIntegrate(eng, Ticks(0), []Message{CreateBodiesMessage{Bodies: decls}})
		Expect(eng.BodyCount()).To(Equal(3))

		mustIntegrate(eng, Ticks(0), []Message{DestroyBodiesMessage{IDs: ids[:2]}})
		Expect(eng.BodyCount()).To(Equal(1))
		Expect(eng.BodyExists(ids[2])).To(BeTrue())
	})

	It("reports an error when querying an id that never existed", func() {
		_, err := eng.GetBodyLinearVelocity(testID("never", 1))
		Expect(err).To(HaveOccurred())
		_, err = eng.BodyCenter(testID("never", 1))
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("step timing", func() {
	It("rejects elapsed deltas under fixed timing", func() {
		eng := New(testOptions())
		_, err := eng.Integrate(Elapsed(0.016), nil)
		Expect(err).To(MatchError(ErrWrongDeltaForm))
	})

	It("rejects tick deltas under variable timing", func() {
		opts := testOptions()
		opts.Timing = VariableTiming
		eng := New(opts)
		_, err := eng.Integrate(Ticks(1), nil)
		Expect(err).To(MatchError(ErrWrongDeltaForm))
	})

	It("applies messages without stepping on a zero delta", func() {
		eng := New(weightlessOptions())
		id := testID("crate", 1)
		out := mustIntegrate(eng, Ticks(0), []Message{CreateBodyMessage{Body: sphereDecl(id, mgl32.Vec3{})}})

		Expect(out).To(BeEmpty())
		Expect(eng.BodyExists(id)).To(BeTrue())
	})

	It("steps by elapsed seconds under variable timing", func() {
		opts := testOptions()
		opts.Timing = VariableTiming
		opts.Gravity = mgl32.Vec3{0, -9.8, 0}
		eng := New(opts)

		id := testID("crate", 1)
		mustIntegrate(eng, Elapsed(0), []Message{CreateBodyMessage{Body: sphereDecl(id, mgl32.Vec3{0, 10, 0})}})
		mustIntegrate(eng, Elapsed(0.5), nil)

		vel, _ := eng.GetBodyLinearVelocity(id)
		Expect(vel.Y()).To(BeNumerically("~", -9.8*0.5, 1e-4))
	})
})

var _ = Describe("message queueing", func() {
	It("defers enqueued messages until the next integrate", func() {
		eng := New(weightlessOptions())
		id := testID("crate", 1)

		Expect(eng.EnqueueMessage(CreateBodyMessage{Body: sphereDecl(id, mgl32.Vec3{})})).To(Succeed())
		Expect(eng.BodyExists(id)).To(BeFalse())

		mustIntegrate(eng, Ticks(1), eng.PopMessages())
		Expect(eng.BodyExists(id)).To(BeTrue())
	})

	It("pops the queue atomically", func() {
		eng := New(weightlessOptions())
		eng.EnqueueMessage(SetGravityMessage{Gravity: mgl32.Vec3{0, -5, 0}})

		Expect(eng.PopMessages()).To(HaveLen(1))
		Expect(eng.PopMessages()).To(BeEmpty())
	})

	It("discards the queue on clear", func() {
		eng := New(weightlessOptions())
		eng.EnqueueMessage(SetGravityMessage{Gravity: mgl32.Vec3{0, -5, 0}})
		eng.ClearMessages()

		Expect(eng.PopMessages()).To(BeEmpty())
	})

	It("applies synchronously in immediate mode", func() {
		opts := weightlessOptions()
		opts.Immediate = true
		eng := New(opts)

		id := testID("crate", 1)
		Expect(eng.EnqueueMessage(CreateBodyMessage{Body: sphereDecl(id, mgl32.Vec3{})})).To(Succeed())
		Expect(eng.BodyExists(id)).To(BeTrue())
	})

	It("returns fatal errors to the caller in immediate mode", func() {
		opts := weightlessOptions()
		opts.Immediate = true
		eng := New(opts)

		err := eng.EnqueueMessage(CreateJointMessage{Joint: JointDeclaration{
			ID:         testID("joint", 1),
			Definition: JointDefinition{Kind: JointKind(99)},
		}})
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("gravity", func() {
	It("accelerates a free body by exactly one tick of gravity", func() {
		opts := testOptions()
		opts.Gravity = mgl32.Vec3{0, -9.8, 0}
		eng := New(opts)

		id := testID("crate", 1)
		out := mustIntegrate(eng, Ticks(1), []Message{CreateBodyMessage{Body: sphereDecl(id, mgl32.Vec3{0, 10, 0})}})

		Expect(out).To(HaveLen(1))
		snap := out[0].(BodyTransformMessage)
		Expect(snap.LinearVelocity.Y()).To(BeNumerically("~", -9.8/60.0, 1e-6))
	})

	It("changes world gravity by message", func() {
		eng := New(weightlessOptions())
		mustIntegrate(eng, Ticks(0), []Message{SetGravityMessage{Gravity: mgl32.Vec3{0, -3, 0}}})
		Expect(eng.Gravity()).To(Equal(mgl32.Vec3{0, -3, 0}))
	})

	It("honors per-body gravity overrides", func() {
		opts := testOptions()
		opts.Gravity = mgl32.Vec3{0, -9.8, 0}
		eng := New(opts)

		id := testID("float", 1)
		decl := sphereDecl(id, mgl32.Vec3{0, 5, 0})
		decl.Definition.GravityOverride = &mgl32.Vec3{}
		mustIntegrate(eng, Ticks(1), []Message{CreateBodyMessage{Body: decl}})

		vel, _ := eng.GetBodyLinearVelocity(id)
		Expect(vel).To(Equal(mgl32.Vec3{}))
	})
})

var _ = Describe("outbound snapshots", func() {
	It("emits one transform per awake dynamic body in insertion order", func() {
		eng := New(weightlessOptions())
		a, b, c := testID("a", 1), testID("b", 1), testID("c", 1)
		mustIntegrate(eng, Ticks(0), []Message{CreateBodiesMessage{Bodies: []BodyDeclaration{
			sphereDecl(a, mgl32.Vec3{0, 0, 0}),
			sphereDecl(b, mgl32.Vec3{5, 0, 0}),
			sphereDecl(c, mgl32.Vec3{10, 0, 0}),
		}}})

		out := mustIntegrate(eng, Ticks(1), nil)
		Expect(out).To(HaveLen(3))
		Expect(out[0].(BodyTransformMessage).BodySource).To(Equal(a))
		Expect(out[1].(BodyTransformMessage).BodySource).To(Equal(b))
		Expect(out[2].(BodyTransformMessage).BodySource).To(Equal(c))

		mustIntegrate(eng, Ticks(0), []Message{DestroyBodyMessage{ID: b}})
		out = mustIntegrate(eng, Ticks(1), nil)
		Expect(out).To(HaveLen(2))
		Expect(out[0].(BodyTransformMessage).BodySource).To(Equal(a))
		Expect(out[1].(BodyTransformMessage).BodySource).To(Equal(c))
	})

	It("skips static and disabled bodies", func() {
		eng := New(weightlessOptions())
		crate := testID("crate", 1)
		mustIntegrate(eng, Ticks(0), []Message{
			CreateBodyMessage{Body: floorDecl()},
			CreateBodyMessage{Body: sphereDecl(crate, mgl32.Vec3{0, 5, 0})},
		})

		out := mustIntegrate(eng, Ticks(1), nil)
		Expect(out).To(HaveLen(1))
		Expect(out[0].(BodyTransformMessage).BodySource).To(Equal(crate))

		mustIntegrate(eng, Ticks(0), []Message{SetBodyEnabledMessage{ID: crate, Enabled: false}})
		Expect(mustIntegrate(eng, Ticks(1), nil)).To(BeEmpty())

		mustIntegrate(eng, Ticks(0), []Message{SetBodyEnabledMessage{ID: crate, Enabled: true}})
		Expect(mustIntegrate(eng, Ticks(1), nil)).To(HaveLen(1))
	})

	It("stops emitting once a settled body sleeps", func() {
		eng := New(testOptions())
		crate := testID("crate", 1)
		mustIntegrate(eng, Ticks(0), []Message{
			CreateBodyMessage{Body: floorDecl()},
			CreateBodyMessage{Body: sphereDecl(crate, mgl32.Vec3{0, 0.52, 0})},
		})

		Expect(mustIntegrate(eng, Ticks(1), nil)).To(HaveLen(1))

		for i := 0; i < 180; i++ {
			mustIntegrate(eng, Ticks(1), nil)
		}
		Expect(mustIntegrate(eng, Ticks(1), nil)).To(BeEmpty())

		// A fresh impulse wakes the body and emission resumes.
		mustIntegrate(eng, Ticks(0), []Message{
			ApplyBodyLinearImpulseMessage{ID: crate, Impulse: mgl32.Vec3{2, 0, 0}},
		})
		Expect(mustIntegrate(eng, Ticks(1), nil)).To(HaveLen(1))
	})

	It("drains the outbound buffer exactly once", func() {
		eng := New(weightlessOptions())
		mustIntegrate(eng, Ticks(0), []Message{CreateBodyMessage{Body: sphereDecl(testID("a", 1), mgl32.Vec3{})}})

		Expect(mustIntegrate(eng, Ticks(1), nil)).To(HaveLen(1))
		Expect(mustIntegrate(eng, Ticks(0), nil)).To(BeEmpty())
	})
})

var _ = Describe("sensors", func() {
	var eng *Engine
	gate := testID("gate", 1)

	BeforeEach(func() {
		eng = New(weightlessOptions())
		def := DefaultBodyDefinition()
		def.Sensor = true
		def.Shape = Box{Size: mgl32.Vec3{2, 2, 2}}
		mustIntegrate(eng, Ticks(0), []Message{CreateBodyMessage{Body: BodyDeclaration{ID: gate, Definition: def}}})
	})

	It("tracks ghosts without counting them as rigid bodies", func() {
		Expect(eng.BodyExists(gate)).To(BeTrue())
		Expect(eng.BodyCount()).To(BeZero())
	})

	It("emits no transform snapshots for ghosts", func() {
		Expect(mustIntegrate(eng, Ticks(1), nil)).To(BeEmpty())
	})

	It("reports zero velocity and tolerates dynamics operations", func() {
		vel, err := eng.GetBodyLinearVelocity(gate)
		Expect(err).NotTo(HaveOccurred())
		Expect(vel).To(Equal(mgl32.Vec3{}))

		mustIntegrate(eng, Ticks(1), []Message{
			ApplyBodyLinearImpulseMessage{ID: gate, Impulse: mgl32.Vec3{5, 0, 0}},
		})
		vel, _ = eng.GetBodyLinearVelocity(gate)
		Expect(vel).To(Equal(mgl32.Vec3{}))
	})

	It("reports bodies overlapping the ghost volume", func() {
		ball := testID("ball", 1)
		mustIntegrate(eng, Ticks(1), []Message{CreateBodyMessage{Body: sphereDecl(ball, mgl32.Vec3{0.5, 0, 0})}})
		Expect(eng.GhostOverlaps(gate)).To(ConsistOf(ball))

		mustIntegrate(eng, Ticks(1), []Message{SetBodyCenterMessage{ID: ball, Center: mgl32.Vec3{20, 0, 0}}})
		Expect(eng.GhostOverlaps(gate)).To(BeEmpty())
	})

	It("repositions ghosts by message", func() {
		mustIntegrate(eng, Ticks(0), []Message{SetBodyCenterMessage{ID: gate, Center: mgl32.Vec3{7, 0, 0}}})
		center, err := eng.BodyCenter(gate)
		Expect(err).NotTo(HaveOccurred())
		Expect(center).To(Equal(mgl32.Vec3{7, 0, 0}))
	})

	It("snapshots ghosts in creation order", func() {
		second, third := testID("gate", 2), testID("gate", 3)
		def := DefaultBodyDefinition()
		def.Sensor = true
		def.Shape = Box{Size: mgl32.Vec3{1, 1, 1}}
		mustIntegrate(eng, Ticks(0), []Message{
			CreateBodyMessage{Body: BodyDeclaration{ID: second, Definition: def}},
			CreateBodyMessage{Body: BodyDeclaration{ID: third, Definition: def}},
		})

		ghostIDs := func() []PhysicsID {
			var ids []PhysicsID
			for _, v := range eng.Views() {
				if v.Ghost {
					ids = append(ids, v.ID)
				}
			}
			return ids
		}

		Expect(ghostIDs()).To(Equal([]PhysicsID{gate, second, third}))

		mustIntegrate(eng, Ticks(0), []Message{DestroyBodyMessage{ID: second}})
		Expect(ghostIDs()).To(Equal([]PhysicsID{gate, third}))
	})
})

var _ = Describe("joints", func() {
	var eng *Engine
	a, b := testID("a", 1), testID("b", 1)

	BeforeEach(func() {
		eng = New(weightlessOptions())
		mustIntegrate(eng, Ticks(0), []Message{CreateBodiesMessage{Bodies: []BodyDeclaration{
			sphereDecl(a, mgl32.Vec3{0, 5, 0}),
			sphereDecl(b, mgl32.Vec3{3, 5, 0}),
		}}})
	})

	jointDecl := func(kind JointKind) JointDeclaration {
		return JointDeclaration{
			ID: testID("joint", 1),
			Definition: JointDefinition{
				Kind:       kind,
				BodyA:      a,
				BodyB:      b,
				RestLength: 3,
			},
		}
	}

	It("creates and destroys joints", func() {
		mustIntegrate(eng, Ticks(0), []Message{CreateJointMessage{Joint: jointDecl(DistanceJointKind)}})
		Expect(eng.JointExists(testID("joint", 1))).To(BeTrue())

		mustIntegrate(eng, Ticks(0), []Message{DestroyJointMessage{ID: testID("joint", 1)}})
		Expect(eng.JointExists(testID("joint", 1))).To(BeFalse())
	})

	It("skips joints with missing endpoints", func() {
		decl := jointDecl(BallSocketJoint)
		decl.Definition.BodyB = testID("never", 1)
		mustIntegrate(eng, Ticks(0), []Message{CreateJointMessage{Joint: decl}})
		Expect(eng.JointExists(testID("joint", 1))).To(BeFalse())
	})

	It("fails the step on an unrecognized joint kind", func() {
		_, err := eng.Integrate(Ticks(0), []Message{CreateJointMessage{Joint: jointDecl(JointKind(42))}})
		Expect(err).To(HaveOccurred())
	})

	It("rejects duplicate joint ids without error", func() {
		mustIntegrate(eng, Ticks(0), []Message{
			CreateJointMessage{Joint: jointDecl(DistanceJointKind)},
			CreateJointMessage{Joint: jointDecl(BallSocketJoint)},
		})
		Expect(eng.JointExists(testID("joint", 1))).To(BeTrue())
	})

	It("keeps stepping after an endpoint body is destroyed", func() {
		mustIntegrate(eng, Ticks(0), []Message{CreateJointMessage{Joint: jointDecl(DistanceJointKind)}})
		mustIntegrate(eng, Ticks(0), []Message{DestroyBodyMessage{ID: b}})

		for i := 0; i < 10; i++ {
			mustIntegrate(eng, Ticks(1), nil)
		}
		Expect(eng.JointExists(testID("joint", 1))).To(BeTrue())
		Expect(eng.BodyExists(a)).To(BeTrue())
	})

	It("pulls jointed bodies toward the rest length", func() {
		decl := jointDecl(DistanceJointKind)
		decl.Definition.RestLength = 1
		mustIntegrate(eng, Ticks(0), []Message{CreateJointMessage{Joint: decl}})

		for i := 0; i < 60; i++ {
			mustIntegrate(eng, Ticks(1), nil)
		}

		ca, _ := eng.BodyCenter(a)
		cb, _ := eng.BodyCenter(b)
		Expect(cb.Sub(ca).Len()).To(BeNumerically("~", 1, 0.1))
	})
})

var _ = Describe("rebuild", func() {
	It("drops every tracked entity and accepts resubmission", func() {
		eng := New(weightlessOptions())
		a, b := testID("a", 1), testID("b", 1)
		gate := testID("gate", 1)
		joint := testID("joint", 1)

		gateDef := DefaultBodyDefinition()
		gateDef.Sensor = true
		gateDef.Shape = Box{Size: mgl32.Vec3{1, 1, 1}}

		mustIntegrate(eng, Ticks(1), []Message{
			CreateBodiesMessage{Bodies: []BodyDeclaration{
				sphereDecl(a, mgl32.Vec3{0, 0, 0}),
				sphereDecl(b, mgl32.Vec3{3, 0, 0}),
			}},
			CreateBodyMessage{Body: BodyDeclaration{ID: gate, Definition: gateDef}},
			CreateJointMessage{Joint: JointDeclaration{
				ID:         joint,
				Definition: JointDefinition{Kind: BallSocketJoint, BodyA: a, BodyB: b},
			}},
		})
		Expect(eng.BodyCount()).To(Equal(2))

		// The resubmission batch carries stale destroys ahead of fresh
		// creates, the way a caller replaying its model would.
		out := mustIntegrate(eng, Ticks(1), []Message{
			RebuildPhysicsMessage{},
			DestroyBodyMessage{ID: a},
			DestroyJointMessage{ID: joint},
			CreateBodyMessage{Body: sphereDecl(a, mgl32.Vec3{1, 1, 1})},
		})

		Expect(eng.BodyExists(a)).To(BeTrue())
		Expect(eng.BodyExists(b)).To(BeFalse())
		Expect(eng.BodyExists(gate)).To(BeFalse())
		Expect(eng.JointExists(joint)).To(BeFalse())
		Expect(eng.BodyCount()).To(Equal(1))
		Expect(out).To(HaveLen(1))
		Expect(out[0].(BodyTransformMessage).BodySource).To(Equal(a))
	})
})
