package ephysics

import (
	"errors"

	"github.com/go-gl/mathgl/mgl64"
)

// ErrInvalidShapeParameter is returned by shape constructors for
// non-positive radii, heights or extents.
var ErrInvalidShapeParameter = errors.New("ephysics: invalid shape parameter")

type ShapeType int

const (
	SHAPE_SPHERE ShapeType = iota
	SHAPE_BOX
	SHAPE_CAPSULE
	SHAPE_CONE
	SHAPE_CYLINDER
	SHAPE_CONVEX_MESH
	SHAPE_TRIANGLE
	SHAPE_CONCAVE_MESH
	SHAPE_HEIGHTFIELD
)

// CollisionShape is the immutable local geometry attached to a body through
// a ProxyShape. Implementations are either convex (support-function based)
// or concave (triangle decomposition based).
type CollisionShape interface {
	Type() ShapeType
	IsConvex() bool

	// LocalBounds returns the shape's bounds in local space, margin included.
	LocalBounds() (min, max mgl64.Vec3)

	// ComputeAABB returns the world-space AABB of the shape under transform.
	ComputeAABB(transform Transform) AABB

	// ComputeLocalInertiaTensor returns the local inertia tensor for the
	// given mass, expressed around the shape's local origin.
	ComputeLocalInertiaTensor(mass float64) mgl64.Mat3

	// TestPointInside reports whether a local-space point lies inside the
	// shape.
	TestPointInside(localPoint mgl64.Vec3, proxyShape *ProxyShape) bool

	// Raycast tests a ray given in the shape's local space. On a hit it
	// fills info (with local-space point/normal, converted by the caller)
	// and returns true.
	Raycast(ray Ray, info *RaycastInfo, proxyShape *ProxyShape) bool
}

// ConvexShape is a CollisionShape with a support-point function. The support
// point with margin is the exact geometric support pushed outward along the
// direction by the collision margin, which rounds corners and keeps GJK away
// from polytope degeneracies.
type ConvexShape interface {
	CollisionShape

	Margin() float64
	SupportPointWithoutMargin(direction mgl64.Vec3) mgl64.Vec3
}

// ConcaveShape decomposes into triangles on demand. Callbacks receive each
// triangle overlapping the query AABB, in the shape's local space.
type ConcaveShape interface {
	CollisionShape

	// TriangleMargin is the collision margin applied to the decomposed
	// triangles.
	TriangleMargin() float64

	// TestAllTriangles calls the callback for every triangle whose AABB
	// overlaps localAABB.
	TestAllTriangles(callback func(points [3]mgl64.Vec3), localAABB AABB)
}

// convexShape carries the pieces shared by all convex variants.
type convexShape struct {
	shapeType ShapeType
	margin    float64
}

func (s *convexShape) Type() ShapeType { return s.shapeType }
func (s *convexShape) IsConvex() bool  { return true }
func (s *convexShape) Margin() float64 { return s.margin }

// supportPointWithMargin adds the margin displacement to a support point
// computed without margin.
func supportPointWithMargin(shape ConvexShape, direction mgl64.Vec3) mgl64.Vec3 {
	support := shape.SupportPointWithoutMargin(direction)
	if shape.Margin() > 0 {
		unit := mgl64.Vec3{0, -1, 0}
		if direction.Dot(direction) > MACHINE_EPSILON*MACHINE_EPSILON {
			unit = direction.Normalize()
		}
		support = support.Add(unit.Mul(shape.Margin()))
	}
	return support
}

// computeConvexAABB builds a world AABB from the six axis support points.
func computeConvexAABB(shape ConvexShape, transform Transform) AABB {
	localMin, localMax := shape.LocalBounds()

	// Transform the 8 corners of the local bounds and take the extremes.
	var aabb AABB
	first := true
	for i := 0; i < 8; i++ {
		corner := mgl64.Vec3{localMin.X(), localMin.Y(), localMin.Z()}
		if i&1 != 0 {
			corner[0] = localMax.X()
		}
		if i&2 != 0 {
			corner[1] = localMax.Y()
		}
		if i&4 != 0 {
			corner[2] = localMax.Z()
		}
		p := transform.Point(corner)
		if first {
			aabb = AABB{Min: p, Max: p}
			first = false
		} else {
			aabb = MergeTwoAABBs(aabb, AABB{Min: p, Max: p})
		}
	}
	return aabb
}
