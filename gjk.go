package ephysics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Relative error bound for the GJK termination test.
const (
	relError       = 1.0e-3
	relErrorSquare = relError * relError
)

// gjkAlgorithm computes collision between two convex shapes with GJK on the
// Minkowski difference of the shapes shrunk by their margins. When the
// shrunk shapes are separated the contact, if any, lies in the margins and
// is recovered from the closest points. When they overlap the enlarged
// shapes are handed to EPA for the penetration depth.
type gjkAlgorithm struct {
	epa epaAlgorithm
}

// testCollision returns the contact between two convex shapes, or false if
// they are separated. cachedAxis carries the separating axis across steps
// for temporal coherence. Transforms are shape-to-world.
func (g *gjkAlgorithm) testCollision(shape1 ConvexShape, transform1 Transform,
	shape2 ConvexShape, transform2 Transform, cachedAxis *mgl64.Vec3) (ContactPointInfo, bool) {

	// Work in shape1's local space.
	body2ToBody1 := transform1.Inverse().Mul(transform2)
	rotateToBody2 := transform2.Orientation.Inverse().Mul(transform1.Orientation)

	margin := shape1.Margin() + shape2.Margin()
	marginSquare := margin * margin

	var simplex simplex

	v := *cachedAxis
	if v.Dot(v) < MACHINE_EPSILON {
		v = mgl64.Vec3{0, 1, 0}
	}

	distSquare := INFINITY

	// Builds the contact for two shapes overlapping only in their margins,
	// where v is the vector between the closest points of the shrunk shapes.
	contactInMargins := func(dSquare float64) (ContactPointInfo, bool) {
		pA, pB := simplex.computeClosestPointsOfAandB()
		dist := math.Sqrt(dSquare)
		if dist <= MACHINE_EPSILON {
			return ContactPointInfo{}, false
		}
		pA = pA.Sub(v.Mul(shape1.Margin() / dist))
		pB = body2ToBody1.Inverse().Point(pB.Add(v.Mul(shape2.Margin() / dist)))

		normal := transform1.Orientation.Rotate(v.Mul(-1.0 / dist))
		penetrationDepth := margin - dist
		if penetrationDepth <= 0 {
			return ContactPointInfo{}, false
		}
		return ContactPointInfo{
			Normal:           normal,
			PenetrationDepth: penetrationDepth,
			LocalPoint1:      pA,
			LocalPoint2:      pB,
		}, true
	}

	for {
		suppA := shape1.SupportPointWithoutMargin(v.Mul(-1))
		suppB := body2ToBody1.Point(
			shape2.SupportPointWithoutMargin(rotateToBody2.Rotate(v)))
		w := suppA.Sub(suppB)

		vDotw := v.Dot(w)

		// Separating axis found for the enlarged shapes.
		if vDotw > 0.0 && vDotw*vDotw > distSquare*marginSquare {
			*cachedAxis = v
			return ContactPointInfo{}, false
		}

		// The closest point cannot improve past the margins.
		if simplex.isPointInSimplex(w) || distSquare-vDotw <= distSquare*relErrorSquare {
			return contactInMargins(distSquare)
		}

		simplex.addPoint(w, suppA, suppB)

		if simplex.isAffinelyDependent() {
			return contactInMargins(distSquare)
		}

		closest, ok := simplex.computeClosestPoint()
		if !ok {
			return contactInMargins(distSquare)
		}
		v = closest

		prevDistSquare := distSquare
		distSquare = v.Dot(v)

		// No progress, fall back to the best subset found so far.
		if prevDistSquare-distSquare <= MACHINE_EPSILON*prevDistSquare {
			v = simplex.backupClosestPointInSimplex()
			distSquare = v.Dot(v)
			return contactInMargins(distSquare)
		}

		if simplex.isFull() || distSquare <= MACHINE_EPSILON*simplex.getMaxLengthSquareOfAPoint() {
			break
		}
	}

	// The shrunk shapes themselves overlap. EPA computes the penetration
	// depth of the enlarged shapes.
	return g.epa.computePenetrationDepthAndContactPoints(&simplex,
		shape1, transform1, shape2, transform2, v)
}
