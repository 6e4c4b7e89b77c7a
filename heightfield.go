package ephysics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// HeightFieldShape is a static terrain grid. Heights are sampled on a regular
// nbColumns by nbRows lattice in the local XZ plane (Y up) and the field is
// centered on the local origin. Triangles are produced lazily for the grid
// cells overlapping a query AABB.
type HeightFieldShape struct {
	nbColumns int
	nbRows    int
	minHeight float64
	maxHeight float64
	heights   []float64
	width     float64 // X span
	length    float64 // Z span
	margin    float64
}

// NewHeightFieldShape builds a height field from row-major samples. width and
// length are the total spans along local X and Z.
func NewHeightFieldShape(nbColumns, nbRows int, heights []float64, width, length float64) (*HeightFieldShape, error) {
	if nbColumns < 2 || nbRows < 2 || len(heights) != nbColumns*nbRows ||
		width <= 0 || length <= 0 {
		return nil, ErrInvalidShapeParameter
	}

	minH, maxH := heights[0], heights[0]
	for _, h := range heights[1:] {
		minH = math.Min(minH, h)
		maxH = math.Max(maxH, h)
	}
	return &HeightFieldShape{
		nbColumns: nbColumns,
		nbRows:    nbRows,
		minHeight: minH,
		maxHeight: maxH,
		heights:   heights,
		width:     width,
		length:    length,
		margin:    triangleMargin,
	}, nil
}

func (s *HeightFieldShape) Type() ShapeType         { return SHAPE_HEIGHTFIELD }
func (s *HeightFieldShape) IsConvex() bool          { return false }
func (s *HeightFieldShape) TriangleMargin() float64 { return s.margin }

// vertexAt returns the local-space vertex at grid coordinate (column, row).
func (s *HeightFieldShape) vertexAt(column, row int) mgl64.Vec3 {
	cellX := s.width / float64(s.nbColumns-1)
	cellZ := s.length / float64(s.nbRows-1)
	return mgl64.Vec3{
		-0.5*s.width + float64(column)*cellX,
		s.heights[row*s.nbColumns+column] - 0.5*(s.minHeight+s.maxHeight),
		-0.5*s.length + float64(row)*cellZ,
	}
}

func (s *HeightFieldShape) LocalBounds() (mgl64.Vec3, mgl64.Vec3) {
	halfY := 0.5 * (s.maxHeight - s.minHeight)
	min := mgl64.Vec3{-0.5 * s.width, -halfY - s.margin, -0.5 * s.length}
	max := mgl64.Vec3{0.5 * s.width, halfY + s.margin, 0.5 * s.length}
	return min, max
}

func (s *HeightFieldShape) ComputeAABB(transform Transform) AABB {
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

func (s *HeightFieldShape) ComputeLocalInertiaTensor(mass float64) mgl64.Mat3 {
	localMin, localMax := s.LocalBounds()
	extent := localMax.Sub(localMin)
	factor := (1.0 / 3.0) * mass
	x2 := 0.25 * extent.X() * extent.X()
	y2 := 0.25 * extent.Y() * extent.Y()
	z2 := 0.25 * extent.Z() * extent.Z()
	return mgl64.Diag3(mgl64.Vec3{factor * (y2 + z2), factor * (x2 + z2), factor * (x2 + y2)})
}

func (s *HeightFieldShape) TestPointInside(localPoint mgl64.Vec3, proxyShape *ProxyShape) bool {
	return false
}

// gridRange clamps a local AABB to the grid cells it covers.
func (s *HeightFieldShape) gridRange(localAABB AABB) (minC, maxC, minR, maxR int) {
	cellX := s.width / float64(s.nbColumns-1)
	cellZ := s.length / float64(s.nbRows-1)
	minC = int(math.Floor((localAABB.Min.X() + 0.5*s.width) / cellX))
	maxC = int(math.Ceil((localAABB.Max.X() + 0.5*s.width) / cellX))
	minR = int(math.Floor((localAABB.Min.Z() + 0.5*s.length) / cellZ))
	maxR = int(math.Ceil((localAABB.Max.Z() + 0.5*s.length) / cellZ))
	minC = maxInt(0, minC)
	minR = maxInt(0, minR)
	if maxC > s.nbColumns-1 {
		maxC = s.nbColumns - 1
	}
	if maxR > s.nbRows-1 {
		maxR = s.nbRows - 1
	}
	return
}

func (s *HeightFieldShape) TestAllTriangles(callback func(points [3]mgl64.Vec3), localAABB AABB) {
	minC, maxC, minR, maxR := s.gridRange(localAABB)
	for r := minR; r < maxR; r++ {
		for c := minC; c < maxC; c++ {
			p00 := s.vertexAt(c, r)
			p10 := s.vertexAt(c+1, r)
			p01 := s.vertexAt(c, r+1)
			p11 := s.vertexAt(c+1, r+1)
			callback([3]mgl64.Vec3{p00, p01, p10})
			callback([3]mgl64.Vec3{p10, p01, p11})
		}
	}
}

func (s *HeightFieldShape) Raycast(ray Ray, info *RaycastInfo, proxyShape *ProxyShape) bool {
	// Test the cells under the ray's AABB footprint and keep the closest hit.
	end := ray.Point1.Add(ray.Point2.Sub(ray.Point1).Mul(ray.MaxFraction))
	rayAABB := MergeTwoAABBs(AABB{Min: ray.Point1, Max: ray.Point1}, AABB{Min: end, Max: end})

	hit := false
	clipped := ray
	var triInfo RaycastInfo
	s.TestAllTriangles(func(points [3]mgl64.Vec3) {
		if raycastTriangle(points, clipped, &triInfo) {
			hit = true
			clipped.MaxFraction = triInfo.HitFraction
			*info = triInfo
		}
	}, rayAABB)
	return hit
}
