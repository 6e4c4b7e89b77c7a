package ephysics

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestGJK_SeparatedSpheres(t *testing.T) {
	sphere1, _ := NewSphereShape(1)
	sphere2, _ := NewSphereShape(1)

	t1 := TransformIdentity()
	t2 := NewTransform(mgl64.Vec3{3, 0, 0}, mgl64.QuatIdent())

	var gjk gjkAlgorithm
	axis := mgl64.Vec3{1, 1, 1}
	if _, hit := gjk.testCollision(sphere1, t1, sphere2, t2, &axis); hit {
		t.Error("spheres 3 apart with radius 1 should not collide")
	}
	if axis.Dot(axis) < MACHINE_EPSILON {
		t.Error("separating axis should be cached")
	}
}

func TestGJK_OverlappingSpheres(t *testing.T) {
	sphere1, _ := NewSphereShape(1)
	sphere2, _ := NewSphereShape(1)

	t1 := TransformIdentity()
	t2 := NewTransform(mgl64.Vec3{1.5, 0, 0}, mgl64.QuatIdent())

	var gjk gjkAlgorithm
	axis := mgl64.Vec3{1, 1, 1}
	info, hit := gjk.testCollision(sphere1, t1, sphere2, t2, &axis)
	if !hit {
		t.Fatal("spheres 1.5 apart with radius 1 should collide")
	}
	if math.Abs(info.PenetrationDepth-0.5) > 1e-6 {
		t.Error("wrong penetration depth", info.PenetrationDepth)
	}
	if math.Abs(info.Normal.X()-1) > 1e-6 {
		t.Error("normal should point along +x", info.Normal)
	}
	if info.LocalPoint1.Sub(mgl64.Vec3{1, 0, 0}).Len() > 1e-6 {
		t.Error("wrong contact point on sphere 1", info.LocalPoint1)
	}
	if info.LocalPoint2.Sub(mgl64.Vec3{-1, 0, 0}).Len() > 1e-6 {
		t.Error("wrong contact point on sphere 2", info.LocalPoint2)
	}
}

func TestGJK_DeepSpheres(t *testing.T) {
	// Deep overlap still resolves through the margins for spheres since the
	// shrunk shapes are points.
	sphere1, _ := NewSphereShape(2)
	sphere2, _ := NewSphereShape(1)

	t1 := TransformIdentity()
	t2 := NewTransform(mgl64.Vec3{0.5, 0, 0}, mgl64.QuatIdent())

	var gjk gjkAlgorithm
	axis := mgl64.Vec3{1, 1, 1}
	info, hit := gjk.testCollision(sphere1, t1, sphere2, t2, &axis)
	if !hit {
		t.Fatal("deeply overlapping spheres should collide")
	}
	if math.Abs(info.PenetrationDepth-2.5) > 1e-6 {
		t.Error("wrong penetration depth", info.PenetrationDepth)
	}
}

func TestGJK_SeparatedBoxes(t *testing.T) {
	box1, _ := NewBoxShape(mgl64.Vec3{1, 1, 1})
	box2, _ := NewBoxShape(mgl64.Vec3{1, 1, 1})

	t1 := TransformIdentity()
	t2 := NewTransform(mgl64.Vec3{0, 5, 0}, mgl64.QuatIdent())

	var gjk gjkAlgorithm
	axis := mgl64.Vec3{1, 1, 1}
	if _, hit := gjk.testCollision(box1, t1, box2, t2, &axis); hit {
		t.Error("boxes 5 apart should not collide")
	}
}

func TestGJK_BoxesTouchingInMargins(t *testing.T) {
	box1, _ := NewBoxShape(mgl64.Vec3{1, 1, 1})
	box2, _ := NewBoxShape(mgl64.Vec3{1, 1, 1})

	// Surfaces overlap by 0.05, less than the two margins, so the contact
	// is found between the shrunk shapes without EPA.
	t1 := TransformIdentity()
	t2 := NewTransform(mgl64.Vec3{1.95, 0, 0}, mgl64.QuatIdent())

	var gjk gjkAlgorithm
	axis := mgl64.Vec3{1, 1, 1}
	info, hit := gjk.testCollision(box1, t1, box2, t2, &axis)
	if !hit {
		t.Fatal("slightly overlapping boxes should report a contact")
	}
	if math.Abs(info.PenetrationDepth-0.05) > 1e-6 {
		t.Error("wrong penetration depth", info.PenetrationDepth)
	}
	if math.Abs(info.Normal.X()) < 0.99 {
		t.Error("normal should be along x", info.Normal)
	}
}
