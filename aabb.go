package ephysics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// AABB is an axis-aligned bounding box. Min <= Max holds componentwise for
// every box built through this file.
type AABB struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

func NewAABB(min, max mgl64.Vec3) AABB {
	return AABB{Min: min, Max: max}
}

func (a AABB) Center() mgl64.Vec3 {
	return a.Min.Add(a.Max).Mul(0.5)
}

func (a AABB) Extent() mgl64.Vec3 {
	return a.Max.Sub(a.Min).Mul(0.5)
}

func (a AABB) Volume() float64 {
	d := a.Max.Sub(a.Min)
	return d.X() * d.Y() * d.Z()
}

// MergeWith grows a to also contain b.
func (a AABB) MergeWith(b AABB) AABB {
	return MergeTwoAABBs(a, b)
}

// MergeTwoAABBs returns the smallest AABB containing both inputs.
func MergeTwoAABBs(a, b AABB) AABB {
	return AABB{
		Min: mgl64.Vec3{
			math.Min(a.Min.X(), b.Min.X()),
			math.Min(a.Min.Y(), b.Min.Y()),
			math.Min(a.Min.Z(), b.Min.Z()),
		},
		Max: mgl64.Vec3{
			math.Max(a.Max.X(), b.Max.X()),
			math.Max(a.Max.Y(), b.Max.Y()),
			math.Max(a.Max.Z(), b.Max.Z()),
		},
	}
}

// Contains reports whether b lies entirely inside a.
func (a AABB) Contains(b AABB) bool {
	return a.Min.X() <= b.Min.X() && a.Min.Y() <= b.Min.Y() && a.Min.Z() <= b.Min.Z() &&
		a.Max.X() >= b.Max.X() && a.Max.Y() >= b.Max.Y() && a.Max.Z() >= b.Max.Z()
}

// ContainsPoint reports whether the world point lies inside a.
func (a AABB) ContainsPoint(p mgl64.Vec3) bool {
	return p.X() >= a.Min.X() && p.X() <= a.Max.X() &&
		p.Y() >= a.Min.Y() && p.Y() <= a.Max.Y() &&
		p.Z() >= a.Min.Z() && p.Z() <= a.Max.Z()
}

// TestCollision reports whether the two boxes overlap.
func (a AABB) TestCollision(b AABB) bool {
	if a.Max.X() < b.Min.X() || b.Max.X() < a.Min.X() {
		return false
	}
	if a.Max.Y() < b.Min.Y() || b.Max.Y() < a.Min.Y() {
		return false
	}
	if a.Max.Z() < b.Min.Z() || b.Max.Z() < a.Min.Z() {
		return false
	}
	return true
}

// Inflate returns a copy grown by gap in every direction.
func (a AABB) Inflate(gap float64) AABB {
	g := mgl64.Vec3{gap, gap, gap}
	return AABB{Min: a.Min.Sub(g), Max: a.Max.Add(g)}
}

// AABBForTriangle returns the bounding box of a triangle.
func AABBForTriangle(points [3]mgl64.Vec3) AABB {
	min := points[0]
	max := points[0]
	for i := 1; i < 3; i++ {
		for c := 0; c < 3; c++ {
			if points[i][c] < min[c] {
				min[c] = points[i][c]
			}
			if points[i][c] > max[c] {
				max[c] = points[i][c]
			}
		}
	}
	return AABB{Min: min, Max: max}
}

// TestRayIntersect reports whether the ray segment intersects the box. This
// is the segment/AABB separating-axis test from Real-Time Collision
// Detection by Christer Ericson.
func (a AABB) TestRayIntersect(ray Ray) bool {
	point2 := ray.Point1.Add(ray.Point2.Sub(ray.Point1).Mul(ray.MaxFraction))
	e := a.Max.Sub(a.Min)
	d := point2.Sub(ray.Point1)
	m := ray.Point1.Add(point2).Sub(a.Min).Sub(a.Max)

	// Face normals of the box as separating axes.
	adx := math.Abs(d.X())
	if math.Abs(m.X()) > e.X()+adx {
		return false
	}
	ady := math.Abs(d.Y())
	if math.Abs(m.Y()) > e.Y()+ady {
		return false
	}
	adz := math.Abs(d.Z())
	if math.Abs(m.Z()) > e.Z()+adz {
		return false
	}

	// Epsilon guards the cross-product axes when the segment is nearly
	// parallel to a coordinate axis.
	const epsilon = 0.00001
	adx += epsilon
	ady += epsilon
	adz += epsilon

	if math.Abs(m.Y()*d.Z()-m.Z()*d.Y()) > e.Y()*adz+e.Z()*ady {
		return false
	}
	if math.Abs(m.Z()*d.X()-m.X()*d.Z()) > e.X()*adz+e.Z()*adx {
		return false
	}
	if math.Abs(m.X()*d.Y()-m.Y()*d.X()) > e.X()*ady+e.Y()*adx {
		return false
	}
	return true
}
