package ephysics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// BoxShape is a box centered at the local origin, defined by its half
// extents. The margin is carried outside the stored extents: the support
// point without margin shrinks the box by the margin on each axis so the
// total extent with margin equals the requested one.
type BoxShape struct {
	convexShape
	extent mgl64.Vec3
}

func NewBoxShape(halfExtents mgl64.Vec3) (*BoxShape, error) {
	return NewBoxShapeWithMargin(halfExtents, OBJECT_MARGIN)
}

func NewBoxShapeWithMargin(halfExtents mgl64.Vec3, margin float64) (*BoxShape, error) {
	if halfExtents.X() <= 0 || halfExtents.Y() <= 0 || halfExtents.Z() <= 0 {
		return nil, ErrInvalidShapeParameter
	}
	if margin < 0 || margin >= halfExtents.X() || margin >= halfExtents.Y() || margin >= halfExtents.Z() {
		return nil, ErrInvalidShapeParameter
	}
	return &BoxShape{
		convexShape: convexShape{shapeType: SHAPE_BOX, margin: margin},
		extent:      halfExtents,
	}, nil
}

func (s *BoxShape) HalfExtents() mgl64.Vec3 { return s.extent }

func (s *BoxShape) SupportPointWithoutMargin(direction mgl64.Vec3) mgl64.Vec3 {
	support := mgl64.Vec3{
		s.extent.X() - s.margin,
		s.extent.Y() - s.margin,
		s.extent.Z() - s.margin,
	}
	for c := 0; c < 3; c++ {
		if direction[c] < 0 {
			support[c] = -support[c]
		}
	}
	return support
}

func (s *BoxShape) LocalBounds() (mgl64.Vec3, mgl64.Vec3) {
	return s.extent.Mul(-1), s.extent
}

func (s *BoxShape) ComputeAABB(transform Transform) AABB {
	return computeConvexAABB(s, transform)
}

func (s *BoxShape) ComputeLocalInertiaTensor(mass float64) mgl64.Mat3 {
	factor := (1.0 / 3.0) * mass
	xx := s.extent.X() * s.extent.X()
	yy := s.extent.Y() * s.extent.Y()
	zz := s.extent.Z() * s.extent.Z()
	return mgl64.Diag3(mgl64.Vec3{
		factor * (yy + zz),
		factor * (xx + zz),
		factor * (xx + yy),
	})
}

func (s *BoxShape) TestPointInside(localPoint mgl64.Vec3, proxyShape *ProxyShape) bool {
	return localPoint.X() < s.extent.X() && localPoint.X() > -s.extent.X() &&
		localPoint.Y() < s.extent.Y() && localPoint.Y() > -s.extent.Y() &&
		localPoint.Z() < s.extent.Z() && localPoint.Z() > -s.extent.Z()
}

// Raycast uses the slab method against the box faces.
func (s *BoxShape) Raycast(ray Ray, info *RaycastInfo, proxyShape *ProxyShape) bool {
	rayDirection := ray.Point2.Sub(ray.Point1)
	tMin := math.Inf(-1)
	tMax := math.Inf(1)
	var normalDirection mgl64.Vec3

	for c := 0; c < 3; c++ {
		if math.Abs(rayDirection[c]) < MACHINE_EPSILON {
			// Parallel to the slab, missing it entirely.
			if ray.Point1[c] > s.extent[c] || ray.Point1[c] < -s.extent[c] {
				return false
			}
			continue
		}

		oneOverD := 1.0 / rayDirection[c]
		t1 := (-s.extent[c] - ray.Point1[c]) * oneOverD
		t2 := (s.extent[c] - ray.Point1[c]) * oneOverD

		var currentNormal mgl64.Vec3
		currentNormal[c] = -1
		if t1 > t2 {
			t1, t2 = t2, t1
			currentNormal[c] = 1
		}

		if t1 > tMin {
			tMin = t1
			normalDirection = currentNormal
		}
		tMax = math.Min(tMax, t2)

		if tMin > ray.MaxFraction || tMin > tMax {
			return false
		}
	}

	if tMin < 0 || tMin > ray.MaxFraction {
		return false
	}

	info.HitFraction = tMin
	info.WorldPoint = ray.Point1.Add(rayDirection.Mul(tMin))
	info.WorldNormal = normalDirection
	return true
}
