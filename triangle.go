package ephysics

import (
	"github.com/go-gl/mathgl/mgl64"
)

// triangleMargin is the collision margin of triangles produced by concave
// shape decomposition. Triangles are flat, so a thin margin is enough to
// keep GJK away from its degenerate cases.
const triangleMargin = 0.008

// TriangleShape is a single triangle face, used as the convex partner when
// colliding a convex shape against a decomposed concave mesh.
type TriangleShape struct {
	convexShape
	points [3]mgl64.Vec3
}

func NewTriangleShape(p1, p2, p3 mgl64.Vec3) *TriangleShape {
	return &TriangleShape{
		convexShape: convexShape{shapeType: SHAPE_TRIANGLE, margin: triangleMargin},
		points:      [3]mgl64.Vec3{p1, p2, p3},
	}
}

func (s *TriangleShape) SupportPointWithoutMargin(direction mgl64.Vec3) mgl64.Vec3 {
	dot0 := s.points[0].Dot(direction)
	dot1 := s.points[1].Dot(direction)
	dot2 := s.points[2].Dot(direction)
	if dot0 >= dot1 && dot0 >= dot2 {
		return s.points[0]
	}
	if dot1 >= dot2 {
		return s.points[1]
	}
	return s.points[2]
}

func (s *TriangleShape) LocalBounds() (mgl64.Vec3, mgl64.Vec3) {
	aabb := AABBForTriangle(s.points).Inflate(s.margin)
	return aabb.Min, aabb.Max
}

func (s *TriangleShape) ComputeAABB(transform Transform) AABB {
	return AABBForTriangle([3]mgl64.Vec3{
		transform.Point(s.points[0]),
		transform.Point(s.points[1]),
		transform.Point(s.points[2]),
	}).Inflate(s.margin)
}

func (s *TriangleShape) ComputeLocalInertiaTensor(mass float64) mgl64.Mat3 {
	// Triangles only appear on static concave geometry.
	return mgl64.Mat3{}
}

func (s *TriangleShape) TestPointInside(localPoint mgl64.Vec3, proxyShape *ProxyShape) bool {
	return false
}

func (s *TriangleShape) Raycast(ray Ray, info *RaycastInfo, proxyShape *ProxyShape) bool {
	return raycastTriangle(s.points, ray, info)
}

// raycastTriangle intersects a ray segment with a triangle (Möller-Trumbore)
// and reports the hit with a normal facing the ray origin.
func raycastTriangle(points [3]mgl64.Vec3, ray Ray, info *RaycastInfo) bool {
	direction := ray.Point2.Sub(ray.Point1)

	edge1 := points[1].Sub(points[0])
	edge2 := points[2].Sub(points[0])
	pvec := direction.Cross(edge2)
	det := edge1.Dot(pvec)
	if det > -MACHINE_EPSILON && det < MACHINE_EPSILON {
		return false
	}
	invDet := 1.0 / det

	tvec := ray.Point1.Sub(points[0])
	u := tvec.Dot(pvec) * invDet
	if u < 0 || u > 1 {
		return false
	}

	qvec := tvec.Cross(edge1)
	v := direction.Dot(qvec) * invDet
	if v < 0 || u+v > 1 {
		return false
	}

	t := edge2.Dot(qvec) * invDet
	if t < 0 || t > ray.MaxFraction {
		return false
	}

	normal := edge1.Cross(edge2).Normalize()
	if normal.Dot(direction) > 0 {
		normal = normal.Mul(-1)
	}

	info.HitFraction = t
	info.WorldPoint = ray.Point1.Add(direction.Mul(t))
	info.WorldNormal = normal
	return true
}
