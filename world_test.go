package ephysics

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

const testTimeStep = 1.0 / 60.0

var gravity = mgl64.Vec3{0, -9.81, 0}

func TestDynamicsWorld_FreeFall(t *testing.T) {
	world := NewDynamicsWorld(gravity)

	body := world.CreateRigidBody(NewTransform(mgl64.Vec3{0, 10, 0}, mgl64.QuatIdent()))
	sphere, _ := NewSphereShape(0.5)
	if _, err := body.AddCollisionShape(sphere, TransformIdentity(), 1); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 60; i++ {
		world.Update(testTimeStep)
	}

	v := body.LinearVelocity()
	if math.Abs(v.Y()+9.81) > 0.01 {
		t.Error("after 1s of free fall velocity should be -9.81, got", v.Y())
	}
	if body.Transform().Position.Y() >= 10 {
		t.Error("body should have fallen, position", body.Transform().Position)
	}
}

func TestDynamicsWorld_StaticBodyDoesNotMove(t *testing.T) {
	world := NewDynamicsWorld(gravity)

	body := world.CreateRigidBody(NewTransform(mgl64.Vec3{0, 5, 0}, mgl64.QuatIdent()))
	box, _ := NewBoxShape(mgl64.Vec3{1, 1, 1})
	body.AddCollisionShape(box, TransformIdentity(), 1)
	body.SetType(STATIC)

	for i := 0; i < 30; i++ {
		world.Update(testTimeStep)
	}

	if body.Transform().Position != (mgl64.Vec3{0, 5, 0}) {
		t.Error("static body moved to", body.Transform().Position)
	}
}

func makeFloorAndBox(t *testing.T, world *DynamicsWorld, dropHeight float64) *RigidBody {
	t.Helper()

	floor := world.CreateRigidBody(TransformIdentity())
	floorShape, _ := NewBoxShape(mgl64.Vec3{10, 1, 10})
	if _, err := floor.AddCollisionShape(floorShape, TransformIdentity(), 1); err != nil {
		t.Fatal(err)
	}
	floor.SetType(STATIC)
	floor.Material().SetBounciness(0)

	box := world.CreateRigidBody(NewTransform(mgl64.Vec3{0, dropHeight, 0}, mgl64.QuatIdent()))
	boxShape, _ := NewBoxShape(mgl64.Vec3{0.5, 0.5, 0.5})
	if _, err := box.AddCollisionShape(boxShape, TransformIdentity(), 2); err != nil {
		t.Fatal(err)
	}
	box.Material().SetBounciness(0)
	return box
}

func TestDynamicsWorld_BoxSettlesOnFloor(t *testing.T) {
	world := NewDynamicsWorld(gravity)
	box := makeFloorAndBox(t, world, 2.0)

	for i := 0; i < 120; i++ {
		world.Update(testTimeStep)
	}

	y := box.Transform().Position.Y()
	if y < 1.3 || y > 1.7 {
		t.Error("box should rest on the floor near y=1.5, got", y)
	}
	if box.LinearVelocity().Len() > 0.5 {
		t.Error("box should be nearly at rest, velocity", box.LinearVelocity())
	}
}

func TestDynamicsWorld_SleepAndWake(t *testing.T) {
	world := NewDynamicsWorld(gravity)
	box := makeFloorAndBox(t, world, 1.55)

	// Enough steps to settle and exceed the time before sleep.
	for i := 0; i < 300; i++ {
		world.Update(testTimeStep)
	}
	if !box.IsSleeping() {
		t.Fatal("resting box should be asleep")
	}

	box.ApplyForceToCenterOfMass(mgl64.Vec3{100, 0, 0})
	if box.IsSleeping() {
		t.Error("applying a force should wake the body")
	}

	world.EnableSleeping(false)
	for i := 0; i < 300; i++ {
		world.Update(testTimeStep)
	}
	if box.IsSleeping() {
		t.Error("body should not sleep while sleeping is disabled")
	}
}

func TestDynamicsWorld_BallAndSocketJoint(t *testing.T) {
	world := NewDynamicsWorld(gravity)

	anchor := world.CreateRigidBody(TransformIdentity())
	anchorShape, _ := NewSphereShape(0.1)
	anchor.AddCollisionShape(anchorShape, TransformIdentity(), 1)
	anchor.SetType(STATIC)

	pendulum := world.CreateRigidBody(NewTransform(mgl64.Vec3{1, -1, 0}, mgl64.QuatIdent()))
	bobShape, _ := NewSphereShape(0.2)
	pendulum.AddCollisionShape(bobShape, TransformIdentity(), 1)

	joint := world.CreateBallAndSocketJoint(BallAndSocketJointInfo{
		JointInfo:             JointInfo{Body1: anchor, Body2: pendulum},
		AnchorPointWorldSpace: mgl64.Vec3{0, 0, 0},
	})
	if world.NbJoints() != 1 {
		t.Fatal("joint not registered")
	}

	restLength := pendulum.Transform().Position.Len()
	for i := 0; i < 120; i++ {
		world.Update(testTimeStep)
	}

	// The pendulum swings but its distance to the anchor holds.
	length := pendulum.Transform().Position.Len()
	if math.Abs(length-restLength) > 0.05 {
		t.Error("joint should keep the pendulum at constant length, got", length)
	}

	world.DestroyJoint(joint)
	if world.NbJoints() != 0 {
		t.Error("joint not removed")
	}
	if pendulum.JointsList() != nil {
		t.Error("joint list of the body should be empty")
	}
}

func TestDynamicsWorld_FixedJointFollows(t *testing.T) {
	world := NewDynamicsWorld(gravity)

	body1 := world.CreateRigidBody(TransformIdentity())
	shape1, _ := NewBoxShape(mgl64.Vec3{0.5, 0.5, 0.5})
	body1.AddCollisionShape(shape1, TransformIdentity(), 1)

	body2 := world.CreateRigidBody(NewTransform(mgl64.Vec3{2, 0, 0}, mgl64.QuatIdent()))
	shape2, _ := NewBoxShape(mgl64.Vec3{0.5, 0.5, 0.5})
	body2.AddCollisionShape(shape2, TransformIdentity(), 1)

	world.CreateFixedJoint(FixedJointInfo{
		JointInfo:             JointInfo{Body1: body1, Body2: body2},
		AnchorPointWorldSpace: mgl64.Vec3{1, 0, 0},
	})

	for i := 0; i < 120; i++ {
		world.Update(testTimeStep)
	}

	// Both fall together, keeping their relative placement.
	offset := body2.Transform().Position.Sub(body1.Transform().Position)
	if offset.Sub(mgl64.Vec3{2, 0, 0}).Len() > 0.1 {
		t.Error("welded bodies should keep their offset, got", offset)
	}
	relRot := body2.Transform().Orientation.Inverse().Mul(body1.Transform().Orientation)
	if math.Abs(math.Abs(relRot.W)-1) > 0.01 {
		t.Error("welded bodies should keep their relative orientation")
	}
}

func TestCollisionWorld_Raycast(t *testing.T) {
	world := NewCollisionWorld()

	body := world.CreateCollisionBody(NewTransform(mgl64.Vec3{5, 0, 0}, mgl64.QuatIdent()))
	sphere, _ := NewSphereShape(1)
	body.AddCollisionShape(sphere, TransformIdentity())

	var hit *RaycastInfo
	world.Raycast(NewRay(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{10, 0, 0}), func(info *RaycastInfo) float64 {
		copied := *info
		hit = &copied
		return info.HitFraction
	})
	if hit == nil {
		t.Fatal("ray should hit the sphere")
	}
	if hit.Body != body {
		t.Error("wrong body reported")
	}
	if math.Abs(hit.HitFraction-0.4) > 1e-9 {
		t.Error("wrong hit fraction", hit.HitFraction)
	}
	if hit.WorldPoint.Sub(mgl64.Vec3{4, 0, 0}).Len() > 1e-9 {
		t.Error("wrong hit point", hit.WorldPoint)
	}

	hit = nil
	world.Raycast(NewRay(mgl64.Vec3{0, 5, 0}, mgl64.Vec3{10, 5, 0}), func(info *RaycastInfo) float64 {
		copied := *info
		hit = &copied
		return info.HitFraction
	})
	if hit != nil {
		t.Error("offset ray should miss")
	}
}

func TestCollisionWorld_TestAABBOverlap(t *testing.T) {
	world := NewCollisionWorld()
	sphere, _ := NewSphereShape(1)

	body1 := world.CreateCollisionBody(TransformIdentity())
	body1.AddCollisionShape(sphere, TransformIdentity())
	body2 := world.CreateCollisionBody(NewTransform(mgl64.Vec3{1.5, 0, 0}, mgl64.QuatIdent()))
	body2.AddCollisionShape(sphere, TransformIdentity())
	body3 := world.CreateCollisionBody(NewTransform(mgl64.Vec3{10, 0, 0}, mgl64.QuatIdent()))
	body3.AddCollisionShape(sphere, TransformIdentity())

	if !world.TestAABBOverlap(body1, body2) {
		t.Error("close bodies should overlap in the broad phase")
	}
	if world.TestAABBOverlap(body1, body3) {
		t.Error("far bodies should not overlap")
	}
}

func TestCollisionBody_CompoundPointInside(t *testing.T) {
	world := NewCollisionWorld()

	// A dumbbell: two spheres on one body, offset along x.
	body := world.CreateCollisionBody(TransformIdentity())
	sphere, _ := NewSphereShape(1)
	body.AddCollisionShape(sphere, NewTransform(mgl64.Vec3{-2, 0, 0}, mgl64.QuatIdent()))
	body.AddCollisionShape(sphere, NewTransform(mgl64.Vec3{2, 0, 0}, mgl64.QuatIdent()))

	if !body.TestPointInside(mgl64.Vec3{-2, 0.5, 0}) {
		t.Error("point in the left sphere should be inside")
	}
	if !body.TestPointInside(mgl64.Vec3{2, -0.5, 0}) {
		t.Error("point in the right sphere should be inside")
	}
	if body.TestPointInside(mgl64.Vec3{0, 0, 0}) {
		t.Error("point between the spheres should be outside")
	}

	aabb := body.AABB()
	if !aabb.ContainsPoint(mgl64.Vec3{-2.5, 0, 0}) || !aabb.ContainsPoint(mgl64.Vec3{2.5, 0, 0}) {
		t.Error("body AABB should cover both spheres", aabb)
	}
}

func TestDynamicsWorld_SphereContact(t *testing.T) {
	world := NewDynamicsWorld(gravity)

	a := world.CreateRigidBody(TransformIdentity())
	b := world.CreateRigidBody(NewTransform(mgl64.Vec3{1.5, 0, 0}, mgl64.QuatIdent()))
	sphere, _ := NewSphereShape(1)
	a.AddCollisionShape(sphere, TransformIdentity(), 1)
	b.AddCollisionShape(sphere, TransformIdentity(), 1)

	world.Update(testTimeStep)

	manifolds := world.ContactManifolds()
	if len(manifolds) != 1 {
		t.Fatal("expected one manifold, got", len(manifolds))
	}
	point := manifolds[0].ContactPoint(0)
	if math.Abs(point.PenetrationDepth()-0.5) > 0.05 {
		t.Error("wrong sphere contact depth", point.PenetrationDepth())
	}
}

func TestDynamicsWorld_Islands(t *testing.T) {
	world := NewDynamicsWorld(gravity)

	// Two boxes far apart over the same floor form one island each once in
	// contact with it, or separate islands while airborne.
	a := world.CreateRigidBody(NewTransform(mgl64.Vec3{-5, 5, 0}, mgl64.QuatIdent()))
	b := world.CreateRigidBody(NewTransform(mgl64.Vec3{5, 5, 0}, mgl64.QuatIdent()))
	shape, _ := NewBoxShape(mgl64.Vec3{0.5, 0.5, 0.5})
	a.AddCollisionShape(shape, TransformIdentity(), 1)
	b.AddCollisionShape(shape, TransformIdentity(), 1)

	world.Update(testTimeStep)
	if len(world.Islands()) != 2 {
		t.Error("two airborne bodies should form two islands, got", len(world.Islands()))
	}
}
