package ephysics

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestAABB_Merge(t *testing.T) {
	a := NewAABB(mgl64.Vec3{-1, -1, -1}, mgl64.Vec3{1, 1, 1})
	b := NewAABB(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{3, 2, 1})

	merged := a.MergeWith(b)
	if merged.Min != (mgl64.Vec3{-1, -1, -1}) {
		t.Error("wrong merged min", merged.Min)
	}
	if merged.Max != (mgl64.Vec3{3, 2, 1}) {
		t.Error("wrong merged max", merged.Max)
	}
	if !merged.Contains(a) || !merged.Contains(b) {
		t.Error("merged AABB should contain both inputs")
	}
}

func TestAABB_TestCollision(t *testing.T) {
	a := NewAABB(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{2, 2, 2})

	if !a.TestCollision(NewAABB(mgl64.Vec3{1, 1, 1}, mgl64.Vec3{3, 3, 3})) {
		t.Error("overlapping boxes should collide")
	}
	if a.TestCollision(NewAABB(mgl64.Vec3{2.1, 0, 0}, mgl64.Vec3{3, 1, 1})) {
		t.Error("boxes separated on x should not collide")
	}
	// Touching faces count as colliding.
	if !a.TestCollision(NewAABB(mgl64.Vec3{2, 0, 0}, mgl64.Vec3{3, 1, 1})) {
		t.Error("touching boxes should collide")
	}
}

func TestAABB_ContainsPoint(t *testing.T) {
	a := NewAABB(mgl64.Vec3{-1, -1, -1}, mgl64.Vec3{1, 1, 1})
	if !a.ContainsPoint(mgl64.Vec3{0, 0.5, -0.5}) {
		t.Error("interior point should be contained")
	}
	if a.ContainsPoint(mgl64.Vec3{0, 1.5, 0}) {
		t.Error("outside point should not be contained")
	}
}

func TestAABB_TestRayIntersect(t *testing.T) {
	a := NewAABB(mgl64.Vec3{-1, -1, -1}, mgl64.Vec3{1, 1, 1})

	hit := NewRay(mgl64.Vec3{-5, 0, 0}, mgl64.Vec3{5, 0, 0})
	if !a.TestRayIntersect(hit) {
		t.Error("ray through the center should intersect")
	}

	miss := NewRay(mgl64.Vec3{-5, 3, 0}, mgl64.Vec3{5, 3, 0})
	if a.TestRayIntersect(miss) {
		t.Error("ray above the box should miss")
	}

	short := NewRay(mgl64.Vec3{-5, 0, 0}, mgl64.Vec3{5, 0, 0})
	short.MaxFraction = 0.1
	if a.TestRayIntersect(short) {
		t.Error("clipped ray should stop before the box")
	}
}

func TestAABB_Inflate(t *testing.T) {
	a := NewAABB(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1}).Inflate(0.5)
	if a.Min != (mgl64.Vec3{-0.5, -0.5, -0.5}) || a.Max != (mgl64.Vec3{1.5, 1.5, 1.5}) {
		t.Error("inflate should grow both sides", a)
	}
}
