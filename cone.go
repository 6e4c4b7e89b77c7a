package ephysics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ConeShape is a cone aligned with the local Y axis, apex up, base down,
// centered at half its height.
type ConeShape struct {
	convexShape
	radius     float64
	halfHeight float64
	sinTheta   float64 // sine of the apex semi-angle
}

func NewConeShape(radius, height float64) (*ConeShape, error) {
	return NewConeShapeWithMargin(radius, height, OBJECT_MARGIN)
}

func NewConeShapeWithMargin(radius, height, margin float64) (*ConeShape, error) {
	if radius <= 0 || height <= 0 || margin < 0 {
		return nil, ErrInvalidShapeParameter
	}
	return &ConeShape{
		convexShape: convexShape{shapeType: SHAPE_CONE, margin: margin},
		radius:      radius,
		halfHeight:  height * 0.5,
		sinTheta:    radius / math.Sqrt(radius*radius+height*height),
	}, nil
}

func (s *ConeShape) Radius() float64 { return s.radius }
func (s *ConeShape) Height() float64 { return s.halfHeight * 2 }

func (s *ConeShape) SupportPointWithoutMargin(direction mgl64.Vec3) mgl64.Vec3 {
	v := direction
	sinThetaTimesLengthV := s.sinTheta * v.Len()

	if v.Y() > sinThetaTimesLengthV {
		return mgl64.Vec3{0, s.halfHeight, 0}
	}

	projectedLength := math.Sqrt(v.X()*v.X() + v.Z()*v.Z())
	if projectedLength > MACHINE_EPSILON {
		d := s.radius / projectedLength
		return mgl64.Vec3{v.X() * d, -s.halfHeight, v.Z() * d}
	}
	return mgl64.Vec3{0, -s.halfHeight, 0}
}

func (s *ConeShape) LocalBounds() (mgl64.Vec3, mgl64.Vec3) {
	max := mgl64.Vec3{s.radius + s.margin, s.halfHeight + s.margin, s.radius + s.margin}
	return max.Mul(-1), max
}

func (s *ConeShape) ComputeAABB(transform Transform) AABB {
	return computeConvexAABB(s, transform)
}

func (s *ConeShape) ComputeLocalInertiaTensor(mass float64) mgl64.Mat3 {
	rSquare := s.radius * s.radius
	diagXZ := 0.15 * (rSquare + s.halfHeight*s.halfHeight)
	return mgl64.Diag3(mgl64.Vec3{
		mass * diagXZ,
		mass * 0.3 * rSquare,
		mass * diagXZ,
	})
}

func (s *ConeShape) TestPointInside(localPoint mgl64.Vec3, proxyShape *ProxyShape) bool {
	radiusHeight := s.radius * (-localPoint.Y() + s.halfHeight) / (s.halfHeight * 2)
	return localPoint.Y() < s.halfHeight && localPoint.Y() > -s.halfHeight &&
		localPoint.X()*localPoint.X()+localPoint.Z()*localPoint.Z() < radiusHeight*radiusHeight
}

// Raycast intersects the ray with the infinite double cone and keeps roots
// on the single-cone side, then tests the base cap disk.
func (s *ConeShape) Raycast(ray Ray, info *RaycastInfo, proxyShape *ProxyShape) bool {
	r := ray.Point2.Sub(ray.Point1)

	epsilon := 0.00001
	point1 := ray.Point1.Add(mgl64.Vec3{0, s.halfHeight, 0}) // origin moved to the apex
	halfHeight := 2.0 * s.halfHeight

	// Quadratic for the infinite cone x²+z² = (r/h)²·y² with apex at origin,
	// axis -y.
	kSquare := s.radius * s.radius / (halfHeight * halfHeight)
	a := r.X()*r.X() + r.Z()*r.Z() - kSquare*r.Y()*r.Y()
	b := 2.0 * (point1.X()*r.X() + point1.Z()*r.Z() - kSquare*point1.Y()*r.Y())
	c := point1.X()*point1.X() + point1.Z()*point1.Z() - kSquare*point1.Y()*point1.Y()

	tHit := []float64{-1, -1, -1}
	var hitLocal [3]mgl64.Vec3
	var isHit [3]bool

	if math.Abs(a) > epsilon {
		discriminant := b*b - 4.0*a*c
		if discriminant >= 0 {
			sqrtDisc := math.Sqrt(discriminant)
			t1 := (-b - sqrtDisc) / (2.0 * a)
			t2 := (-b + sqrtDisc) / (2.0 * a)
			if t1 > t2 {
				t1, t2 = t2, t1
			}
			for i, t := range []float64{t1, t2} {
				if t < 0 || t > ray.MaxFraction {
					continue
				}
				p := point1.Add(r.Mul(t))
				// Keep roots on the cone side between apex and base.
				if p.Y() <= 0 && p.Y() >= -halfHeight {
					isHit[i] = true
					tHit[i] = t
					hitLocal[i] = p
				}
			}
		}
	}

	// Base cap disk at y = -halfHeight (apex space).
	if math.Abs(r.Y()) > epsilon {
		t := (-halfHeight - point1.Y()) / r.Y()
		if t >= 0 && t <= ray.MaxFraction {
			p := point1.Add(r.Mul(t))
			if p.X()*p.X()+p.Z()*p.Z() <= s.radius*s.radius {
				isHit[2] = true
				tHit[2] = t
				hitLocal[2] = p
			}
		}
	}

	// Keep the smallest valid fraction.
	best := -1
	for i := 0; i < 3; i++ {
		if isHit[i] && (best < 0 || tHit[i] < tHit[best]) {
			best = i
		}
	}
	if best < 0 {
		return false
	}

	localHit := hitLocal[best].Sub(mgl64.Vec3{0, s.halfHeight, 0})
	info.HitFraction = tHit[best]
	info.WorldPoint = localHit

	if best == 2 {
		info.WorldNormal = mgl64.Vec3{0, -1, 0}
	} else {
		// Surface normal of the lateral cone wall.
		h := hitLocal[best]
		v := mgl64.Vec3{h.X(), 0, h.Z()}
		if v.Dot(v) < MACHINE_EPSILON {
			info.WorldNormal = mgl64.Vec3{0, 1, 0}
		} else {
			slope := s.radius / halfHeight
			n := mgl64.Vec3{h.X(), math.Sqrt(h.X()*h.X()+h.Z()*h.Z()) * slope, h.Z()}
			info.WorldNormal = n.Normalize()
		}
	}
	return true
}
