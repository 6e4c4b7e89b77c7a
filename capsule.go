package ephysics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// CapsuleShape is a sphere-swept segment along the local Y axis. Like the
// sphere, its radius acts as margin: the inner segment is the support
// geometry without margin.
type CapsuleShape struct {
	convexShape
	radius     float64
	halfHeight float64
}

func NewCapsuleShape(radius, height float64) (*CapsuleShape, error) {
	if radius <= 0 || height <= 0 {
		return nil, ErrInvalidShapeParameter
	}
	return &CapsuleShape{
		convexShape: convexShape{shapeType: SHAPE_CAPSULE, margin: radius},
		radius:      radius,
		halfHeight:  height * 0.5,
	}, nil
}

func (s *CapsuleShape) Radius() float64 { return s.radius }
func (s *CapsuleShape) Height() float64 { return s.halfHeight * 2 }

func (s *CapsuleShape) SupportPointWithoutMargin(direction mgl64.Vec3) mgl64.Vec3 {
	if direction.Y() > 0 {
		return mgl64.Vec3{0, s.halfHeight, 0}
	}
	return mgl64.Vec3{0, -s.halfHeight, 0}
}

func (s *CapsuleShape) LocalBounds() (mgl64.Vec3, mgl64.Vec3) {
	max := mgl64.Vec3{s.radius, s.halfHeight + s.radius, s.radius}
	return max.Mul(-1), max
}

func (s *CapsuleShape) ComputeAABB(transform Transform) AABB {
	return computeConvexAABB(s, transform)
}

func (s *CapsuleShape) ComputeLocalInertiaTensor(mass float64) mgl64.Mat3 {
	// Cylinder part plus the two hemispherical caps, masses split by volume.
	height := s.halfHeight * 2
	radiusSquare := s.radius * s.radius
	heightSquare := height * height

	cylinderMass := mass * height / (height + (4.0/3.0)*s.radius)
	capsMass := mass - cylinderMass

	ixx := cylinderMass*(0.25*radiusSquare+(1.0/12.0)*heightSquare) +
		capsMass*(0.4*radiusSquare+0.25*heightSquare+(3.0/8.0)*height*s.radius)
	iyy := cylinderMass*0.5*radiusSquare + capsMass*0.4*radiusSquare
	return mgl64.Diag3(mgl64.Vec3{ixx, iyy, ixx})
}

func (s *CapsuleShape) TestPointInside(localPoint mgl64.Vec3, proxyShape *ProxyShape) bool {
	xzSquare := localPoint.X()*localPoint.X() + localPoint.Z()*localPoint.Z()
	radiusSquare := s.radius * s.radius

	// Cylindrical middle section.
	if xzSquare < radiusSquare &&
		localPoint.Y() < s.halfHeight && localPoint.Y() > -s.halfHeight {
		return true
	}

	// Spherical caps.
	top := localPoint.Sub(mgl64.Vec3{0, s.halfHeight, 0})
	bottom := localPoint.Sub(mgl64.Vec3{0, -s.halfHeight, 0})
	return top.Dot(top) < radiusSquare || bottom.Dot(bottom) < radiusSquare
}

// Raycast treats the capsule as an infinite cylinder clipped to the segment
// plus two spheres at the segment ends.
func (s *CapsuleShape) Raycast(ray Ray, info *RaycastInfo, proxyShape *ProxyShape) bool {
	n := ray.Point2.Sub(ray.Point1)

	p := mgl64.Vec3{0, -s.halfHeight, 0}
	q := mgl64.Vec3{0, s.halfHeight, 0}
	d := q.Sub(p)
	m := ray.Point1.Sub(p)

	mDotD := m.Dot(d)
	nDotD := n.Dot(d)
	dDotD := d.Dot(d)

	a := dDotD*n.Dot(n) - nDotD*nDotD
	k := m.Dot(m) - s.radius*s.radius
	c := dDotD*k - mDotD*mDotD

	if math.Abs(a) < MACHINE_EPSILON {
		// Ray parallel to the capsule axis: only the caps can be hit.
		return s.raycastSphereCap(ray, p, info) || s.raycastSphereCap(ray, q, info)
	}

	b := dDotD*m.Dot(n) - nDotD*mDotD
	discriminant := b*b - a*c
	if discriminant < 0 {
		return false
	}

	t := (-b - math.Sqrt(discriminant)) / a
	if t < 0 || t > ray.MaxFraction {
		return false
	}

	value := mDotD + t*nDotD
	switch {
	case value < 0:
		// Beyond the bottom of the cylindrical section, test the cap.
		return s.raycastSphereCap(ray, p, info)
	case value > dDotD:
		return s.raycastSphereCap(ray, q, info)
	}

	hitPoint := ray.Point1.Add(n.Mul(t))
	axisPoint := p.Add(d.Mul(value / dDotD))

	info.HitFraction = t
	info.WorldPoint = hitPoint
	info.WorldNormal = hitPoint.Sub(axisPoint).Normalize()
	return true
}

func (s *CapsuleShape) raycastSphereCap(ray Ray, center mgl64.Vec3, info *RaycastInfo) bool {
	m := ray.Point1.Sub(center)
	c := m.Dot(m) - s.radius*s.radius
	if c < 0 {
		return false
	}

	rayDirection := ray.Point2.Sub(ray.Point1)
	b := m.Dot(rayDirection)
	if b > 0 {
		return false
	}

	raySquareLength := rayDirection.Dot(rayDirection)
	discriminant := b*b - raySquareLength*c
	if discriminant < 0 || raySquareLength < MACHINE_EPSILON {
		return false
	}

	t := (-b - math.Sqrt(discriminant)) / raySquareLength
	if t < 0 || t > ray.MaxFraction {
		return false
	}

	info.HitFraction = t
	info.WorldPoint = ray.Point1.Add(rayDirection.Mul(t))
	info.WorldNormal = info.WorldPoint.Sub(center).Normalize()
	return true
}
