package ephysics

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestShape_InvalidParameters(t *testing.T) {
	if _, err := NewSphereShape(0); err != ErrInvalidShapeParameter {
		t.Error("zero radius sphere should be rejected")
	}
	if _, err := NewSphereShape(-1); err != ErrInvalidShapeParameter {
		t.Error("negative radius sphere should be rejected")
	}
	if _, err := NewBoxShape(mgl64.Vec3{1, 0, 1}); err != ErrInvalidShapeParameter {
		t.Error("flat box should be rejected")
	}
	if _, err := NewCapsuleShape(1, 0); err != ErrInvalidShapeParameter {
		t.Error("zero height capsule should be rejected")
	}
	if _, err := NewConeShape(-1, 2); err != ErrInvalidShapeParameter {
		t.Error("negative radius cone should be rejected")
	}
	if _, err := NewCylinderShape(1, -2); err != ErrInvalidShapeParameter {
		t.Error("negative height cylinder should be rejected")
	}
	if _, err := NewHeightFieldShape(1, 2, []float64{0, 0}, 1, 1); err != ErrInvalidShapeParameter {
		t.Error("1-column height field should be rejected")
	}
	if _, err := NewHeightFieldShape(2, 2, []float64{0, 0, 0}, 1, 1); err != ErrInvalidShapeParameter {
		t.Error("height field with a short sample slice should be rejected")
	}
}

func TestSphereShape_Inertia(t *testing.T) {
	sphere, _ := NewSphereShape(2)
	inertia := sphere.ComputeLocalInertiaTensor(5)

	expected := 0.4 * 5.0 * 4.0
	if math.Abs(inertia.At(0, 0)-expected) > 1e-12 {
		t.Error("wrong sphere inertia", inertia.At(0, 0))
	}
	if inertia.At(0, 1) != 0 || inertia.At(1, 2) != 0 {
		t.Error("sphere inertia should be diagonal")
	}
}

func TestBoxShape_Inertia(t *testing.T) {
	box, _ := NewBoxShape(mgl64.Vec3{1, 2, 3})
	inertia := box.ComputeLocalInertiaTensor(6)

	// (1/3) m (ey^2 + ez^2) around x.
	expected := 2.0 * (4.0 + 9.0)
	if math.Abs(inertia.At(0, 0)-expected) > 1e-9 {
		t.Error("wrong box inertia around x", inertia.At(0, 0))
	}
}

func TestShape_TestPointInside(t *testing.T) {
	sphere, _ := NewSphereShape(1)
	if !sphere.TestPointInside(mgl64.Vec3{0.5, 0.5, 0}, nil) {
		t.Error("point inside sphere not detected")
	}
	if sphere.TestPointInside(mgl64.Vec3{1.5, 0, 0}, nil) {
		t.Error("point outside sphere detected as inside")
	}

	box, _ := NewBoxShape(mgl64.Vec3{1, 2, 3})
	if !box.TestPointInside(mgl64.Vec3{0.9, -1.9, 2.9}, nil) {
		t.Error("point inside box not detected")
	}
	if box.TestPointInside(mgl64.Vec3{1.1, 0, 0}, nil) {
		t.Error("point outside box detected as inside")
	}

	capsule, _ := NewCapsuleShape(0.5, 2)
	if !capsule.TestPointInside(mgl64.Vec3{0, 1.2, 0}, nil) {
		t.Error("point in capsule cap not detected")
	}
	if capsule.TestPointInside(mgl64.Vec3{0, 1.6, 0}, nil) {
		t.Error("point above capsule detected as inside")
	}
}

func TestSphereShape_Raycast(t *testing.T) {
	sphere, _ := NewSphereShape(1)

	var info RaycastInfo
	ray := NewRay(mgl64.Vec3{-5, 0, 0}, mgl64.Vec3{5, 0, 0})
	if !sphere.Raycast(ray, &info, nil) {
		t.Fatal("ray through the center should hit")
	}
	if math.Abs(info.HitFraction-0.4) > 1e-9 {
		t.Error("wrong hit fraction", info.HitFraction)
	}
	if info.WorldPoint.Sub(mgl64.Vec3{-1, 0, 0}).Len() > 1e-9 {
		t.Error("wrong hit point", info.WorldPoint)
	}
	if info.WorldNormal.Sub(mgl64.Vec3{-1, 0, 0}).Len() > 1e-9 {
		t.Error("wrong hit normal", info.WorldNormal)
	}

	miss := NewRay(mgl64.Vec3{-5, 2, 0}, mgl64.Vec3{5, 2, 0})
	if sphere.Raycast(miss, &info, nil) {
		t.Error("offset ray should miss")
	}

	// Ray starting inside reports no hit.
	inside := NewRay(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{5, 0, 0})
	if sphere.Raycast(inside, &info, nil) {
		t.Error("ray from inside should not hit")
	}
}

func TestBoxShape_Raycast(t *testing.T) {
	box, _ := NewBoxShape(mgl64.Vec3{1, 1, 1})

	var info RaycastInfo
	ray := NewRay(mgl64.Vec3{0, 5, 0}, mgl64.Vec3{0, -5, 0})
	if !box.Raycast(ray, &info, nil) {
		t.Fatal("vertical ray should hit the box")
	}
	if math.Abs(info.HitFraction-0.4) > 1e-9 {
		t.Error("wrong hit fraction", info.HitFraction)
	}
	if info.WorldNormal.Sub(mgl64.Vec3{0, 1, 0}).Len() > 1e-9 {
		t.Error("normal should be the top face", info.WorldNormal)
	}
}

func TestConvexMeshShape_Support(t *testing.T) {
	// A tetrahedron.
	vertices := []mgl64.Vec3{
		{0, 0, 0}, {2, 0, 0}, {0, 2, 0}, {0, 0, 2},
	}
	indices := []int{
		0, 1, 2, 0, 1, 3, 0, 2, 3, 1, 2, 3,
	}
	mesh, err := NewConvexMeshShapeWithMargin(vertices, indices, 0)
	if err != nil {
		t.Fatal(err)
	}

	support := mesh.SupportPointWithoutMargin(mgl64.Vec3{1, 0, 0})
	if support != (mgl64.Vec3{2, 0, 0}) {
		t.Error("wrong support point along x", support)
	}
	support = mesh.SupportPointWithoutMargin(mgl64.Vec3{-1, -1, -1})
	if support != (mgl64.Vec3{0, 0, 0}) {
		t.Error("wrong support point along the negative diagonal", support)
	}
}

func TestConcaveMeshShape_TestAllTriangles(t *testing.T) {
	// Two triangles forming a unit quad in the xz plane.
	mesh := &TriangleMesh{
		Vertices: []mgl64.Vec3{
			{0, 0, 0}, {1, 0, 0}, {1, 0, 1}, {0, 0, 1},
		},
		Indices: []int{0, 1, 2, 0, 2, 3},
	}
	shape, err := NewConcaveMeshShape(mesh)
	if err != nil {
		t.Fatal(err)
	}

	var count int
	shape.TestAllTriangles(func(points [3]mgl64.Vec3) {
		count++
	}, NewAABB(mgl64.Vec3{-1, -1, -1}, mgl64.Vec3{2, 1, 2}))
	if count != 2 {
		t.Error("expected both triangles, got", count)
	}

	count = 0
	shape.TestAllTriangles(func(points [3]mgl64.Vec3) {
		count++
	}, NewAABB(mgl64.Vec3{5, 5, 5}, mgl64.Vec3{6, 6, 6}))
	if count != 0 {
		t.Error("expected no triangles far away, got", count)
	}
}

func TestHeightFieldShape_Triangles(t *testing.T) {
	heights := []float64{
		0, 0, 0,
		0, 1, 0,
		0, 0, 0,
	}
	field, err := NewHeightFieldShape(3, 3, heights, 2, 2)
	if err != nil {
		t.Fatal(err)
	}

	// The full field is a 2x2 grid of cells, two triangles each.
	var count int
	field.TestAllTriangles(func(points [3]mgl64.Vec3) {
		count++
	}, NewAABB(mgl64.Vec3{-2, -2, -2}, mgl64.Vec3{2, 2, 2}))
	if count != 8 {
		t.Error("expected 8 triangles, got", count)
	}

	// Every emitted vertex stays inside the field's bounds.
	min, max := field.LocalBounds()
	field.TestAllTriangles(func(points [3]mgl64.Vec3) {
		for _, p := range points {
			if p.X() < min.X()-1e-9 || p.X() > max.X()+1e-9 ||
				p.Y() < min.Y()-1e-9 || p.Y() > max.Y()+1e-9 ||
				p.Z() < min.Z()-1e-9 || p.Z() > max.Z()+1e-9 {
				t.Error("triangle vertex outside local bounds", p)
			}
		}
	}, NewAABB(min, max))
}

func TestTriangleShape_Raycast(t *testing.T) {
	tri := NewTriangleShape(
		mgl64.Vec3{-1, 0, -1}, mgl64.Vec3{1, 0, -1}, mgl64.Vec3{0, 0, 1})

	var info RaycastInfo
	hit := NewRay(mgl64.Vec3{0, 2, 0}, mgl64.Vec3{0, -2, 0})
	if !tri.Raycast(hit, &info, nil) {
		t.Fatal("ray through the triangle should hit")
	}
	if math.Abs(info.HitFraction-0.5) > 1e-9 {
		t.Error("wrong hit fraction", info.HitFraction)
	}

	miss := NewRay(mgl64.Vec3{5, 2, 0}, mgl64.Vec3{5, -2, 0})
	if tri.Raycast(miss, &info, nil) {
		t.Error("ray beside the triangle should miss")
	}
}
