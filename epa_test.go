package ephysics

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestEPA_DeepBoxes(t *testing.T) {
	box1, _ := NewBoxShape(mgl64.Vec3{1, 1, 1})
	box2, _ := NewBoxShape(mgl64.Vec3{1, 1, 1})

	// Half overlapping along x. The shrunk boxes intersect so the depth
	// comes from EPA on the enlarged shapes.
	t1 := TransformIdentity()
	t2 := NewTransform(mgl64.Vec3{1, 0, 0}, mgl64.QuatIdent())

	var gjk gjkAlgorithm
	axis := mgl64.Vec3{1, 1, 1}
	info, hit := gjk.testCollision(box1, t1, box2, t2, &axis)
	if !hit {
		t.Fatal("half overlapping boxes should collide")
	}
	if math.Abs(info.PenetrationDepth-1.0) > 0.05 {
		t.Error("expected depth near 1.0, got", info.PenetrationDepth)
	}
	if math.Abs(info.Normal.X()) < 0.99 {
		t.Error("normal should be along x", info.Normal)
	}
	if math.Abs(info.Normal.Len()-1) > 1e-6 {
		t.Error("normal should be unit length", info.Normal)
	}
}

func TestEPA_BoxOnBoxVertical(t *testing.T) {
	floor, _ := NewBoxShape(mgl64.Vec3{10, 1, 10})
	box, _ := NewBoxShape(mgl64.Vec3{0.5, 0.5, 0.5})

	// Box resting 0.3 into the floor's top face.
	t1 := TransformIdentity()
	t2 := NewTransform(mgl64.Vec3{0, 1.2, 0}, mgl64.QuatIdent())

	var gjk gjkAlgorithm
	axis := mgl64.Vec3{1, 1, 1}
	info, hit := gjk.testCollision(floor, t1, box, t2, &axis)
	if !hit {
		t.Fatal("embedded box should collide with the floor")
	}
	if math.Abs(info.PenetrationDepth-0.3) > 0.05 {
		t.Error("expected depth near 0.3, got", info.PenetrationDepth)
	}
	if math.Abs(info.Normal.Y()) < 0.99 {
		t.Error("normal should be vertical", info.Normal)
	}
}

func TestEPA_RotatedBox(t *testing.T) {
	box1, _ := NewBoxShape(mgl64.Vec3{1, 1, 1})
	box2, _ := NewBoxShape(mgl64.Vec3{1, 1, 1})

	// Second box rotated 45 degrees around y and pushed into the first.
	rot := mgl64.QuatRotate(math.Pi/4, mgl64.Vec3{0, 1, 0})
	t1 := TransformIdentity()
	t2 := NewTransform(mgl64.Vec3{1.8, 0, 0}, rot)

	var gjk gjkAlgorithm
	axis := mgl64.Vec3{1, 1, 1}
	info, hit := gjk.testCollision(box1, t1, box2, t2, &axis)
	if !hit {
		t.Fatal("rotated overlapping boxes should collide")
	}
	if info.PenetrationDepth <= 0 {
		t.Error("depth should be positive", info.PenetrationDepth)
	}
	// The edge of the rotated box reaches x = 1.8 - sqrt(2), so the
	// overlap along x is about 0.61.
	if info.PenetrationDepth > 0.75 {
		t.Error("depth too large", info.PenetrationDepth)
	}
}

func TestEPA_OriginInTetrahedron(t *testing.T) {
	var epa epaAlgorithm

	inside := epa.isOriginInTetrahedron(
		mgl64.Vec3{1, 1, 1}, mgl64.Vec3{-1, 1, -1},
		mgl64.Vec3{1, -1, -1}, mgl64.Vec3{-1, -1, 1})
	if inside != 0 {
		t.Error("origin should be inside the regular tetrahedron, got", inside)
	}

	outside := epa.isOriginInTetrahedron(
		mgl64.Vec3{5, 1, 1}, mgl64.Vec3{3, 1, -1},
		mgl64.Vec3{5, -1, -1}, mgl64.Vec3{3, -1, 1})
	if outside == 0 {
		t.Error("origin should be outside the shifted tetrahedron")
	}
}
