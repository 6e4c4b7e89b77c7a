package ephysics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// SphereShape is a sphere centered at the local origin. The whole radius is
// treated as collision margin, so the support point without margin is the
// origin itself.
type SphereShape struct {
	convexShape
	radius float64
}

func NewSphereShape(radius float64) (*SphereShape, error) {
	if radius <= 0 {
		return nil, ErrInvalidShapeParameter
	}
	return &SphereShape{
		convexShape: convexShape{shapeType: SHAPE_SPHERE, margin: radius},
		radius:      radius,
	}, nil
}

func (s *SphereShape) Radius() float64 { return s.radius }

func (s *SphereShape) SupportPointWithoutMargin(direction mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{}
}

func (s *SphereShape) LocalBounds() (mgl64.Vec3, mgl64.Vec3) {
	e := mgl64.Vec3{s.radius, s.radius, s.radius}
	return e.Mul(-1), e
}

func (s *SphereShape) ComputeAABB(transform Transform) AABB {
	extent := mgl64.Vec3{s.radius, s.radius, s.radius}
	return AABB{Min: transform.Position.Sub(extent), Max: transform.Position.Add(extent)}
}

func (s *SphereShape) ComputeLocalInertiaTensor(mass float64) mgl64.Mat3 {
	diag := 0.4 * mass * s.radius * s.radius
	return mgl64.Diag3(mgl64.Vec3{diag, diag, diag})
}

func (s *SphereShape) TestPointInside(localPoint mgl64.Vec3, proxyShape *ProxyShape) bool {
	return localPoint.Dot(localPoint) < s.radius*s.radius
}

func (s *SphereShape) Raycast(ray Ray, info *RaycastInfo, proxyShape *ProxyShape) bool {
	m := ray.Point1
	c := m.Dot(m) - s.radius*s.radius

	// Inside the sphere counts as no hit.
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

	t := -b - math.Sqrt(discriminant)
	if t < 0 {
		return false
	}
	t /= raySquareLength
	if t > ray.MaxFraction {
		return false
	}

	info.HitFraction = t
	info.WorldPoint = ray.Point1.Add(rayDirection.Mul(t))
	info.WorldNormal = info.WorldPoint
	if info.WorldNormal.Dot(info.WorldNormal) > MACHINE_EPSILON {
		info.WorldNormal = info.WorldNormal.Normalize()
	}
	return true
}
