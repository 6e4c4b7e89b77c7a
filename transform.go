package ephysics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Transform is a rigid transformation: a rotation followed by a translation.
// It maps points from a body's local space into world space.
type Transform struct {
	Position    mgl64.Vec3
	Orientation mgl64.Quat
}

func NewTransform(position mgl64.Vec3, orientation mgl64.Quat) Transform {
	return Transform{Position: position, Orientation: orientation.Normalize()}
}

func TransformIdentity() Transform {
	return Transform{Orientation: mgl64.QuatIdent()}
}

// Point maps a local-space point to world space.
func (t Transform) Point(p mgl64.Vec3) mgl64.Vec3 {
	return t.Orientation.Rotate(p).Add(t.Position)
}

// Vector maps a local-space direction to world space (no translation).
func (t Transform) Vector(v mgl64.Vec3) mgl64.Vec3 {
	return t.Orientation.Rotate(v)
}

func (t Transform) Inverse() Transform {
	inv := t.Orientation.Inverse()
	return Transform{
		Position:    inv.Rotate(t.Position.Mul(-1)),
		Orientation: inv,
	}
}

// Mul composes two transforms: (t.Mul(u)).Point(p) == t.Point(u.Point(p)).
func (t Transform) Mul(u Transform) Transform {
	return Transform{
		Position:    t.Orientation.Rotate(u.Position).Add(t.Position),
		Orientation: t.Orientation.Mul(u.Orientation),
	}
}

// Ray is a segment between two world points. The hit fraction runs from 0 at
// Point1 to MaxFraction towards Point2.
type Ray struct {
	Point1      mgl64.Vec3
	Point2      mgl64.Vec3
	MaxFraction float64
}

func NewRay(point1, point2 mgl64.Vec3) Ray {
	return Ray{Point1: point1, Point2: point2, MaxFraction: 1}
}

// RaycastInfo carries the result of a successful raycast.
type RaycastInfo struct {
	WorldPoint  mgl64.Vec3
	WorldNormal mgl64.Vec3
	HitFraction float64
	Body        *CollisionBody
	ProxyShape  *ProxyShape
}

// RaycastCallback is called once per proxy shape hit during a world raycast.
// The returned value clips the ray for the rest of the traversal: return the
// hit fraction to clip at the hit, zero to stop, or a negative value to
// ignore the hit and continue with the unclipped ray.
type RaycastCallback func(info *RaycastInfo) float64

// quatIntegrate advances an orientation by an angular velocity over dt using
// the first-order update q' = q + 0.5*dt*(0,w)*q, renormalized.
func quatIntegrate(q mgl64.Quat, w mgl64.Vec3, dt float64) mgl64.Quat {
	dq := mgl64.Quat{W: 0, V: w}.Mul(q).Scale(0.5 * dt)
	return q.Add(dq).Normalize()
}

// orthoVector returns a unit vector orthogonal to v (v need not be unit).
func orthoVector(v mgl64.Vec3) mgl64.Vec3 {
	if math.Abs(v.Y()) > math.Abs(v.X()) && math.Abs(v.Y()) > math.Abs(v.Z()) {
		// v is mostly along y, cross with x stays well conditioned
		return mgl64.Vec3{1, 0, 0}.Cross(v).Normalize()
	}
	return mgl64.Vec3{0, 1, 0}.Cross(v).Normalize()
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// skewMat3 returns the cross-product matrix of v, so that skew(v)*u == v×u.
func skewMat3(v mgl64.Vec3) mgl64.Mat3 {
	return mgl64.Mat3{
		0, v[2], -v[1],
		-v[2], 0, v[0],
		v[1], -v[0], 0,
	}
}

func mat3Add(a, b mgl64.Mat3) mgl64.Mat3 {
	var r mgl64.Mat3
	for i := range a {
		r[i] = a[i] + b[i]
	}
	return r
}
