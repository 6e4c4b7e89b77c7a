package ephysics

import (
	"github.com/go-gl/mathgl/mgl64"
)

// TriangleMesh is static triangle soup referenced by ConcaveMeshShape. The
// vertex and index slices are referenced, not copied, so the same mesh can
// back many shapes.
type TriangleMesh struct {
	Vertices []mgl64.Vec3
	Indices  []int // three per triangle
}

// NbTriangles returns the number of triangles in the mesh.
func (m *TriangleMesh) NbTriangles() int { return len(m.Indices) / 3 }

// Triangle returns the three vertices of triangle i.
func (m *TriangleMesh) Triangle(i int) [3]mgl64.Vec3 {
	return [3]mgl64.Vec3{
		m.Vertices[m.Indices[3*i]],
		m.Vertices[m.Indices[3*i+1]],
		m.Vertices[m.Indices[3*i+2]],
	}
}

// ConcaveMeshShape is a static triangle mesh. Collision against it goes
// through the middle phase: each triangle overlapping the convex partner's
// AABB is tested as a TriangleShape. Per-triangle AABBs are precomputed and
// filtered by a linear scan.
type ConcaveMeshShape struct {
	mesh         *TriangleMesh
	triangleAABB []AABB
	bounds       AABB
	margin       float64
}

func NewConcaveMeshShape(mesh *TriangleMesh) (*ConcaveMeshShape, error) {
	if mesh == nil || len(mesh.Vertices) < 3 || len(mesh.Indices) < 3 || len(mesh.Indices)%3 != 0 {
		return nil, ErrInvalidShapeParameter
	}

	s := &ConcaveMeshShape{
		mesh:         mesh,
		triangleAABB: make([]AABB, mesh.NbTriangles()),
		margin:       triangleMargin,
	}
	for i := 0; i < mesh.NbTriangles(); i++ {
		s.triangleAABB[i] = AABBForTriangle(mesh.Triangle(i))
		if i == 0 {
			s.bounds = s.triangleAABB[i]
		} else {
			s.bounds = MergeTwoAABBs(s.bounds, s.triangleAABB[i])
		}
	}
	return s, nil
}

func (s *ConcaveMeshShape) Type() ShapeType         { return SHAPE_CONCAVE_MESH }
func (s *ConcaveMeshShape) IsConvex() bool          { return false }
func (s *ConcaveMeshShape) TriangleMargin() float64 { return s.margin }

func (s *ConcaveMeshShape) LocalBounds() (mgl64.Vec3, mgl64.Vec3) {
	inflated := s.bounds.Inflate(s.margin)
	return inflated.Min, inflated.Max
}

func (s *ConcaveMeshShape) ComputeAABB(transform Transform) AABB {
	localMin, localMax := s.LocalBounds()

	var aabb AABB
	for i := 0; i < 8; i++ {
		corner := localMin
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
		if i == 0 {
			aabb = AABB{Min: p, Max: p}
		} else {
			aabb = MergeTwoAABBs(aabb, AABB{Min: p, Max: p})
		}
	}
	return aabb
}

func (s *ConcaveMeshShape) ComputeLocalInertiaTensor(mass float64) mgl64.Mat3 {
	// Concave meshes are static. Use the bounding box tensor so a caller that
	// asks anyway gets something finite.
	extent := s.bounds.Extent()
	factor := (1.0 / 3.0) * mass
	x2 := extent.X() * extent.X()
	y2 := extent.Y() * extent.Y()
	z2 := extent.Z() * extent.Z()
	return mgl64.Diag3(mgl64.Vec3{factor * (y2 + z2), factor * (x2 + z2), factor * (x2 + y2)})
}

func (s *ConcaveMeshShape) TestPointInside(localPoint mgl64.Vec3, proxyShape *ProxyShape) bool {
	// A triangle soup has no interior.
	return false
}

func (s *ConcaveMeshShape) TestAllTriangles(callback func(points [3]mgl64.Vec3), localAABB AABB) {
	for i := range s.triangleAABB {
		if s.triangleAABB[i].TestCollision(localAABB) {
			callback(s.mesh.Triangle(i))
		}
	}
}

func (s *ConcaveMeshShape) Raycast(ray Ray, info *RaycastInfo, proxyShape *ProxyShape) bool {
	// Walk every triangle crossed by the ray's AABB and keep the closest hit.
	rayAABB := AABB{
		Min: ray.Point1,
		Max: ray.Point1,
	}
	end := ray.Point1.Add(ray.Point2.Sub(ray.Point1).Mul(ray.MaxFraction))
	rayAABB = MergeTwoAABBs(rayAABB, AABB{Min: end, Max: end})

	hit := false
	clipped := ray
	var triInfo RaycastInfo
	for i := range s.triangleAABB {
		if !s.triangleAABB[i].TestCollision(rayAABB) {
			continue
		}
		if raycastTriangle(s.mesh.Triangle(i), clipped, &triInfo) {
			hit = true
			clipped.MaxFraction = triInfo.HitFraction
			*info = triInfo
		}
	}
	return hit
}
