package ephysics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ConvexMeshShape is a convex hull described by caller-owned vertex and
// triangle index arrays. The arrays are referenced, not copied; they must
// stay alive and unchanged for the lifetime of the shape. The hull must be
// convex and the triangles must wind consistently; neither is verified.
type ConvexMeshShape struct {
	convexShape
	vertices []mgl64.Vec3
	indices  []int

	localMin mgl64.Vec3
	localMax mgl64.Vec3
	centroid mgl64.Vec3
}

func NewConvexMeshShape(vertices []mgl64.Vec3, indices []int) (*ConvexMeshShape, error) {
	return NewConvexMeshShapeWithMargin(vertices, indices, OBJECT_MARGIN)
}

func NewConvexMeshShapeWithMargin(vertices []mgl64.Vec3, indices []int, margin float64) (*ConvexMeshShape, error) {
	if len(vertices) < 4 || len(indices)%3 != 0 || margin < 0 {
		return nil, ErrInvalidShapeParameter
	}
	s := &ConvexMeshShape{
		convexShape: convexShape{shapeType: SHAPE_CONVEX_MESH, margin: margin},
		vertices:    vertices,
		indices:     indices,
	}

	s.localMin = vertices[0]
	s.localMax = vertices[0]
	for _, v := range vertices {
		s.centroid = s.centroid.Add(v)
		for c := 0; c < 3; c++ {
			s.localMin[c] = math.Min(s.localMin[c], v[c])
			s.localMax[c] = math.Max(s.localMax[c], v[c])
		}
	}
	s.centroid = s.centroid.Mul(1.0 / float64(len(vertices)))
	return s, nil
}

// SupportPointWithoutMargin scans all vertices for the extreme one. A linear
// scan is fine for the hull sizes this engine targets; a hill-climbing walk
// over an edge adjacency would be the upgrade path for very large hulls.
func (s *ConvexMeshShape) SupportPointWithoutMargin(direction mgl64.Vec3) mgl64.Vec3 {
	best := s.vertices[0]
	bestDot := best.Dot(direction)
	for _, v := range s.vertices[1:] {
		d := v.Dot(direction)
		if d > bestDot {
			bestDot = d
			best = v
		}
	}
	return best
}

func (s *ConvexMeshShape) LocalBounds() (mgl64.Vec3, mgl64.Vec3) {
	g := mgl64.Vec3{s.margin, s.margin, s.margin}
	return s.localMin.Sub(g), s.localMax.Add(g)
}

func (s *ConvexMeshShape) ComputeAABB(transform Transform) AABB {
	return computeConvexAABB(s, transform)
}

// ComputeLocalInertiaTensor approximates the hull by its bounding box, which
// is the usual cheap estimate for arbitrary convex meshes.
func (s *ConvexMeshShape) ComputeLocalInertiaTensor(mass float64) mgl64.Mat3 {
	factor := (1.0 / 3.0) * mass
	extent := s.localMax.Sub(s.localMin).Mul(0.5)
	xx := extent.X() * extent.X()
	yy := extent.Y() * extent.Y()
	zz := extent.Z() * extent.Z()
	return mgl64.Diag3(mgl64.Vec3{
		factor * (yy + zz),
		factor * (xx + zz),
		factor * (xx + yy),
	})
}

// TestPointInside checks the point against the half space of every triangle
// face, oriented away from the hull centroid.
func (s *ConvexMeshShape) TestPointInside(localPoint mgl64.Vec3, proxyShape *ProxyShape) bool {
	for i := 0; i+2 < len(s.indices); i += 3 {
		p0 := s.vertices[s.indices[i]]
		p1 := s.vertices[s.indices[i+1]]
		p2 := s.vertices[s.indices[i+2]]

		normal := p1.Sub(p0).Cross(p2.Sub(p0))
		if normal.Dot(s.centroid.Sub(p0)) > 0 {
			normal = normal.Mul(-1)
		}
		if normal.Dot(localPoint.Sub(p0)) > 0 {
			return false
		}
	}
	return true
}

func (s *ConvexMeshShape) Raycast(ray Ray, info *RaycastInfo, proxyShape *ProxyShape) bool {
	hit := false
	bestFraction := ray.MaxFraction
	for i := 0; i+2 < len(s.indices); i += 3 {
		points := [3]mgl64.Vec3{
			s.vertices[s.indices[i]],
			s.vertices[s.indices[i+1]],
			s.vertices[s.indices[i+2]],
		}
		var triInfo RaycastInfo
		if raycastTriangle(points, Ray{ray.Point1, ray.Point2, bestFraction}, &triInfo) {
			hit = true
			bestFraction = triInfo.HitFraction
			info.HitFraction = triInfo.HitFraction
			info.WorldPoint = triInfo.WorldPoint
			info.WorldNormal = triInfo.WorldNormal
		}
	}
	return hit
}
