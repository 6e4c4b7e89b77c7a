package ephysics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// CylinderShape is a cylinder aligned with the local Y axis, centered at the
// origin.
type CylinderShape struct {
	convexShape
	radius     float64
	halfHeight float64
}

func NewCylinderShape(radius, height float64) (*CylinderShape, error) {
	return NewCylinderShapeWithMargin(radius, height, OBJECT_MARGIN)
}

func NewCylinderShapeWithMargin(radius, height, margin float64) (*CylinderShape, error) {
	if radius <= 0 || height <= 0 || margin < 0 {
		return nil, ErrInvalidShapeParameter
	}
	return &CylinderShape{
		convexShape: convexShape{shapeType: SHAPE_CYLINDER, margin: margin},
		radius:      radius,
		halfHeight:  height * 0.5,
	}, nil
}

func (s *CylinderShape) Radius() float64 { return s.radius }
func (s *CylinderShape) Height() float64 { return s.halfHeight * 2 }

func (s *CylinderShape) SupportPointWithoutMargin(direction mgl64.Vec3) mgl64.Vec3 {
	var support mgl64.Vec3
	if direction.Y() < 0 {
		support[1] = -s.halfHeight
	} else {
		support[1] = s.halfHeight
	}

	lengthW := math.Sqrt(direction.X()*direction.X() + direction.Z()*direction.Z())
	if lengthW > MACHINE_EPSILON {
		support[0] = direction.X() * s.radius / lengthW
		support[2] = direction.Z() * s.radius / lengthW
	}
	return support
}

func (s *CylinderShape) LocalBounds() (mgl64.Vec3, mgl64.Vec3) {
	max := mgl64.Vec3{s.radius + s.margin, s.halfHeight + s.margin, s.radius + s.margin}
	return max.Mul(-1), max
}

func (s *CylinderShape) ComputeAABB(transform Transform) AABB {
	return computeConvexAABB(s, transform)
}

func (s *CylinderShape) ComputeLocalInertiaTensor(mass float64) mgl64.Mat3 {
	height := s.halfHeight * 2
	diag := (1.0 / 12.0) * mass * (3*s.radius*s.radius + height*height)
	return mgl64.Diag3(mgl64.Vec3{
		diag,
		0.5 * mass * s.radius * s.radius,
		diag,
	})
}

func (s *CylinderShape) TestPointInside(localPoint mgl64.Vec3, proxyShape *ProxyShape) bool {
	return localPoint.X()*localPoint.X()+localPoint.Z()*localPoint.Z() < s.radius*s.radius &&
		localPoint.Y() < s.halfHeight && localPoint.Y() > -s.halfHeight
}

// Raycast follows the segment-vs-cylinder intersection from Real-Time
// Collision Detection (pp. 194-198), with the endcap cases handled
// explicitly.
func (s *CylinderShape) Raycast(ray Ray, info *RaycastInfo, proxyShape *ProxyShape) bool {
	n := ray.Point2.Sub(ray.Point1)

	const epsilon = 0.01
	p := mgl64.Vec3{0, -s.halfHeight, 0}
	q := mgl64.Vec3{0, s.halfHeight, 0}
	d := q.Sub(p)
	m := ray.Point1.Sub(p)

	mDotD := m.Dot(d)
	nDotD := n.Dot(d)
	dDotD := d.Dot(d)

	// Segment entirely outside the endcap planes.
	if mDotD < 0 && mDotD+nDotD < 0 {
		return false
	}
	if mDotD > dDotD && mDotD+nDotD > dDotD {
		return false
	}

	nDotN := n.Dot(n)
	mDotN := m.Dot(n)

	a := dDotD*nDotN - nDotD*nDotD
	k := m.Dot(m) - s.radius*s.radius
	c := dDotD*k - mDotD*mDotD

	var t float64

	// Ray parallel to the cylinder axis.
	if math.Abs(a) < epsilon {
		if c > 0 {
			return false
		}
		switch {
		case mDotD < 0:
			t = -mDotN / nDotN
			if t < 0 || t > ray.MaxFraction {
				return false
			}
			info.HitFraction = t
			info.WorldPoint = ray.Point1.Add(n.Mul(t))
			info.WorldNormal = mgl64.Vec3{0, -1, 0}
			return true
		case mDotD > dDotD:
			t = (nDotD - mDotN) / nDotN
			if t < 0 || t > ray.MaxFraction {
				return false
			}
			info.HitFraction = t
			info.WorldPoint = ray.Point1.Add(n.Mul(t))
			info.WorldNormal = mgl64.Vec3{0, 1, 0}
			return true
		default:
			// Ray origin inside the cylinder.
			return false
		}
	}

	b := dDotD*mDotN - nDotD*mDotD
	discriminant := b*b - a*c
	if discriminant < 0 {
		return false
	}

	t0 := (-b - math.Sqrt(discriminant)) / a
	t = t0

	value := mDotD + t*nDotD
	switch {
	case value < 0:
		// Intersection beyond the "p" endcap plane.
		if nDotD <= 0 {
			return false
		}
		t = -mDotD / nDotD
		if k+t*(2.0*mDotN+t) > 0 {
			return false
		}
		if t < 0 || t > ray.MaxFraction {
			return false
		}
		info.HitFraction = t
		info.WorldPoint = ray.Point1.Add(n.Mul(t))
		info.WorldNormal = mgl64.Vec3{0, -1, 0}
		return true
	case value > dDotD:
		// Intersection beyond the "q" endcap plane.
		if nDotD >= 0 {
			return false
		}
		t = (dDotD - mDotD) / nDotD
		if k+dDotD-2.0*mDotD+t*(2.0*(mDotN-nDotD)+t) > 0 {
			return false
		}
		if t < 0 || t > ray.MaxFraction {
			return false
		}
		info.HitFraction = t
		info.WorldPoint = ray.Point1.Add(n.Mul(t))
		info.WorldNormal = mgl64.Vec3{0, 1, 0}
		return true
	}

	t = t0
	if t < 0 || t > ray.MaxFraction {
		return false
	}

	localHitPoint := ray.Point1.Add(n.Mul(t))
	v := localHitPoint.Sub(p)
	w := d.Mul(v.Dot(d) / dDotD)

	info.HitFraction = t
	info.WorldPoint = localHitPoint
	info.WorldNormal = localHitPoint.Sub(p.Add(w)).Normalize()
	return true
}
