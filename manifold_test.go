package ephysics

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func makeManifold(t *testing.T) (*ContactManifold, *ContactPointPool) {
	t.Helper()
	world := NewCollisionWorld()
	sphere, err := NewSphereShape(1)
	if err != nil {
		t.Fatal(err)
	}
	body1 := world.CreateCollisionBody(TransformIdentity())
	body2 := world.CreateCollisionBody(NewTransform(mgl64.Vec3{1.5, 0, 0}, mgl64.QuatIdent()))
	p1 := body1.AddCollisionShape(sphere, TransformIdentity())
	p2 := body2.AddCollisionShape(sphere, TransformIdentity())
	return newContactManifold(p1, p2, world.contactPointPool), world.contactPointPool
}

func pointAt(pool *ContactPointPool, local mgl64.Vec3, depth float64) *ContactPoint {
	info := ContactPointInfo{
		Normal:           mgl64.Vec3{0, 1, 0},
		PenetrationDepth: depth,
		LocalPoint1:      local,
		LocalPoint2:      local,
	}
	return pool.NewContactPoint(info, TransformIdentity(), TransformIdentity())
}

func TestContactManifold_AddContactPoint(t *testing.T) {
	manifold, pool := makeManifold(t)

	manifold.AddContactPoint(pointAt(pool, mgl64.Vec3{0, 0, 0}, 0.1))
	if manifold.NbContactPoints() != 1 {
		t.Fatal("expected 1 point")
	}

	// A point within the coalescing distance keeps the cached one.
	manifold.AddContactPoint(pointAt(pool, mgl64.Vec3{0.01, 0, 0}, 0.2))
	if manifold.NbContactPoints() != 1 {
		t.Error("near-duplicate point should coalesce, got", manifold.NbContactPoints())
	}
	if pool.NbInUse() != 1 {
		t.Error("coalesced point should go back to the pool, in use:", pool.NbInUse())
	}

	// A point further away is a new point.
	manifold.AddContactPoint(pointAt(pool, mgl64.Vec3{1, 0, 0}, 0.1))
	if manifold.NbContactPoints() != 2 {
		t.Error("distinct point should be added, got", manifold.NbContactPoints())
	}
}

func TestContactManifold_MaxPoints(t *testing.T) {
	manifold, pool := makeManifold(t)

	corners := []mgl64.Vec3{
		{-1, 0, -1}, {1, 0, -1}, {1, 0, 1}, {-1, 0, 1},
	}
	for _, c := range corners {
		manifold.AddContactPoint(pointAt(pool, c, 0.1))
	}
	if manifold.NbContactPoints() != MAX_CONTACT_POINTS_IN_MANIFOLD {
		t.Fatal("expected a full manifold, got", manifold.NbContactPoints())
	}

	// A fifth shallow point in the middle must not grow the manifold. The
	// four corners maximize the contact area and the new point is not the
	// deepest, so the set stays at four.
	manifold.AddContactPoint(pointAt(pool, mgl64.Vec3{0, 0, 0}, 0.05))
	if manifold.NbContactPoints() != MAX_CONTACT_POINTS_IN_MANIFOLD {
		t.Error("manifold should stay capped, got", manifold.NbContactPoints())
	}
	if pool.NbInUse() != MAX_CONTACT_POINTS_IN_MANIFOLD {
		t.Error("evicted point should be released, in use:", pool.NbInUse())
	}
}

func TestContactManifold_Update(t *testing.T) {
	manifold, pool := makeManifold(t)
	manifold.AddContactPoint(pointAt(pool, mgl64.Vec3{0, 0, 0}, 0.1))

	// Bodies unchanged: the point survives.
	manifold.Update(TransformIdentity(), TransformIdentity())
	if manifold.NbContactPoints() != 1 {
		t.Fatal("resting contact should survive an update")
	}

	// Body 2 moved far along the normal: the point separates and is dropped.
	moved := NewTransform(mgl64.Vec3{0, 1, 0}, mgl64.QuatIdent())
	manifold.Update(TransformIdentity(), moved)
	if manifold.NbContactPoints() != 0 {
		t.Error("separated contact should be dropped, got", manifold.NbContactPoints())
	}
	if pool.NbInUse() != 0 {
		t.Error("dropped point should be released, in use:", pool.NbInUse())
	}
}

func TestContactManifold_Clear(t *testing.T) {
	manifold, pool := makeManifold(t)
	manifold.AddContactPoint(pointAt(pool, mgl64.Vec3{0, 0, 0}, 0.1))
	manifold.AddContactPoint(pointAt(pool, mgl64.Vec3{1, 0, 0}, 0.1))

	manifold.clear()
	if manifold.NbContactPoints() != 0 {
		t.Error("clear should drop all points")
	}
	if pool.NbInUse() != 0 {
		t.Error("clear should release all points, in use:", pool.NbInUse())
	}
}
