package ephysics

import (
	"container/heap"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const maxEPASupportPoints = 100

// triangleHeap orders candidate faces by squared distance to the origin,
// closest first.
type triangleHeap []*triangleEPA

func (h triangleHeap) Len() int            { return len(h) }
func (h triangleHeap) Less(i, j int) bool  { return h[i].distSquare < h[j].distSquare }
func (h triangleHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *triangleHeap) Push(x interface{}) { *h = append(*h, x.(*triangleEPA)) }
func (h *triangleHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// epaAlgorithm computes the penetration depth of two overlapping convex
// shapes by expanding a polytope inside the Minkowski difference until the
// face closest to the origin lies on the difference boundary.
type epaAlgorithm struct{}

// addFaceCandidate pushes a face onto the heap if its closest point is
// internal and could still beat the current penetration depth upper bound.
func (e *epaAlgorithm) addFaceCandidate(triangle *triangleEPA, candidates *triangleHeap, upperBoundSquare float64) {
	if triangle.isClosestPointInternal() && triangle.distSquare <= upperBoundSquare {
		heap.Push(candidates, triangle)
	}
}

// isOriginInTetrahedron returns 0 when the origin is strictly inside the
// tetrahedron, otherwise the 1-based index of a vertex on the wrong side.
func (e *epaAlgorithm) isOriginInTetrahedron(p1, p2, p3, p4 mgl64.Vec3) int {
	normal1 := p2.Sub(p1).Cross(p3.Sub(p1))
	if (normal1.Dot(p1) > 0.0) == (normal1.Dot(p4) > 0.0) {
		return 4
	}
	normal2 := p4.Sub(p2).Cross(p3.Sub(p2))
	if (normal2.Dot(p2) > 0.0) == (normal2.Dot(p1) > 0.0) {
		return 1
	}
	normal3 := p4.Sub(p3).Cross(p1.Sub(p3))
	if (normal3.Dot(p3) > 0.0) == (normal3.Dot(p2) > 0.0) {
		return 2
	}
	normal4 := p2.Sub(p4).Cross(p1.Sub(p4))
	if (normal4.Dot(p4) > 0.0) == (normal4.Dot(p3) > 0.0) {
		return 3
	}
	return 0
}

// computePenetrationDepthAndContactPoints expands the final GJK simplex into
// a polytope of the enlarged shapes and reports the contact along the face
// closest to the origin.
func (e *epaAlgorithm) computePenetrationDepthAndContactPoints(sx *simplex,
	shape1 ConvexShape, transform1 Transform,
	shape2 ConvexShape, transform2 Transform, v mgl64.Vec3) (ContactPointInfo, bool) {

	suppPointsA := make([]mgl64.Vec3, maxEPASupportPoints)
	suppPointsB := make([]mgl64.Vec3, maxEPASupportPoints)
	points := make([]mgl64.Vec3, maxEPASupportPoints)

	var store trianglesStore
	candidates := make(triangleHeap, 0, 64)

	body2ToBody1 := transform1.Inverse().Mul(transform2)
	rotateToBody2 := transform2.Orientation.Inverse().Mul(transform1.Orientation)

	// Support of the Minkowski difference of the enlarged shapes, in
	// shape1's local space.
	supportPoint := func(dir mgl64.Vec3, index int) {
		suppPointsA[index] = supportPointWithMargin(shape1, dir)
		suppPointsB[index] = body2ToBody1.Point(
			supportPointWithMargin(shape2, rotateToBody2.Rotate(dir.Mul(-1))))
		points[index] = suppPointsA[index].Sub(suppPointsB[index])
	}

	nbVertices := sx.getSimplex(suppPointsA, suppPointsB, points)
	tolerance := MACHINE_EPSILON * sx.getMaxLengthSquareOfAPoint()

	switch nbVertices {
	case 1:
		// Touching contact at a single point, dropped.
		return ContactPointInfo{}, false

	case 2:
		// The simplex is a segment through the origin. Build a hexahedron
		// around it from three supports 120 degrees apart, then keep the
		// half that contains the origin.
		d := points[1].Sub(points[0]).Normalize()
		minAxis := minAbsAxis(d)

		sin60 := math.Sqrt(3.0) * 0.5
		rotationQuat := mgl64.Quat{W: 0.5, V: d.Mul(sin60)}

		var axis mgl64.Vec3
		axis[minAxis] = 1
		v1 := d.Cross(axis)
		v2 := rotationQuat.Rotate(v1)
		v3 := rotationQuat.Rotate(v2)

		supportPoint(v1, 2)
		supportPoint(v2, 3)
		supportPoint(v3, 4)

		if e.isOriginInTetrahedron(points[0], points[2], points[3], points[4]) == 0 {
			suppPointsA[1] = suppPointsA[4]
			suppPointsB[1] = suppPointsB[4]
			points[1] = points[4]
		} else if e.isOriginInTetrahedron(points[1], points[2], points[3], points[4]) == 0 {
			suppPointsA[0] = suppPointsA[4]
			suppPointsB[0] = suppPointsB[4]
			points[0] = points[4]
		} else {
			return ContactPointInfo{}, false
		}
		nbVertices = 4
		fallthrough

	case 4:
		badVertex := e.isOriginInTetrahedron(points[0], points[1], points[2], points[3])
		if badVertex == 0 {
			face0 := store.newTriangle(points, 0, 1, 2)
			face1 := store.newTriangle(points, 0, 3, 1)
			face2 := store.newTriangle(points, 0, 2, 3)
			face3 := store.newTriangle(points, 1, 3, 2)
			if face0 == nil || face1 == nil || face2 == nil || face3 == nil ||
				face0.distSquare <= 0 || face1.distSquare <= 0 ||
				face2.distSquare <= 0 || face3.distSquare <= 0 {
				return ContactPointInfo{}, false
			}

			linked := linkEdges(edgeEPA{face0, 0}, edgeEPA{face1, 2}) &&
				linkEdges(edgeEPA{face0, 1}, edgeEPA{face3, 2}) &&
				linkEdges(edgeEPA{face0, 2}, edgeEPA{face2, 0}) &&
				linkEdges(edgeEPA{face1, 0}, edgeEPA{face2, 2}) &&
				linkEdges(edgeEPA{face1, 1}, edgeEPA{face3, 0}) &&
				linkEdges(edgeEPA{face2, 1}, edgeEPA{face3, 1})
			if !linked {
				return ContactPointInfo{}, false
			}

			e.addFaceCandidate(face0, &candidates, INFINITY)
			e.addFaceCandidate(face1, &candidates, INFINITY)
			e.addFaceCandidate(face2, &candidates, INFINITY)
			e.addFaceCandidate(face3, &candidates, INFINITY)
			break
		}

		// The origin is outside the tetrahedron. Drop the wrong vertex and
		// handle the remaining triangle below.
		if badVertex < 4 {
			suppPointsA[badVertex-1] = suppPointsA[3]
			suppPointsB[badVertex-1] = suppPointsB[3]
			points[badVertex-1] = points[3]
		}
		nbVertices = 3
		fallthrough

	case 3:
		// The simplex is a triangle through the origin. Take supports along
		// both normals and keep the tetrahedron that contains the origin.
		n := points[1].Sub(points[0]).Cross(points[2].Sub(points[0]))

		supportPoint(n, 3)
		supportPoint(n.Mul(-1), 4)

		if e.isOriginInTetrahedron(points[0], points[1], points[2], points[4]) == 0 &&
			e.isOriginInTetrahedron(points[0], points[1], points[2], points[3]) != 0 {
			suppPointsA[3] = suppPointsA[4]
			suppPointsB[3] = suppPointsB[4]
			points[3] = points[4]
		} else if e.isOriginInTetrahedron(points[0], points[1], points[2], points[3]) != 0 {
			return ContactPointInfo{}, false
		}

		face0 := store.newTriangle(points, 0, 1, 2)
		face1 := store.newTriangle(points, 0, 3, 1)
		face2 := store.newTriangle(points, 0, 2, 3)
		face3 := store.newTriangle(points, 1, 3, 2)
		if face0 == nil || face1 == nil || face2 == nil || face3 == nil ||
			face0.distSquare <= 0 || face1.distSquare <= 0 ||
			face2.distSquare <= 0 || face3.distSquare <= 0 {
			return ContactPointInfo{}, false
		}

		linked := linkEdges(edgeEPA{face0, 0}, edgeEPA{face1, 2}) &&
			linkEdges(edgeEPA{face0, 1}, edgeEPA{face3, 2}) &&
			linkEdges(edgeEPA{face0, 2}, edgeEPA{face2, 0}) &&
			linkEdges(edgeEPA{face1, 0}, edgeEPA{face2, 2}) &&
			linkEdges(edgeEPA{face1, 1}, edgeEPA{face3, 0}) &&
			linkEdges(edgeEPA{face2, 1}, edgeEPA{face3, 1})
		if !linked {
			return ContactPointInfo{}, false
		}

		e.addFaceCandidate(face0, &candidates, INFINITY)
		e.addFaceCandidate(face1, &candidates, INFINITY)
		e.addFaceCandidate(face2, &candidates, INFINITY)
		e.addFaceCandidate(face3, &candidates, INFINITY)
		nbVertices = 4
	}

	if candidates.Len() == 0 {
		return ContactPointInfo{}, false
	}

	var triangle *triangleEPA
	upperBoundSquare := INFINITY

	for {
		triangle = heap.Pop(&candidates).(*triangleEPA)

		if !triangle.isObsolete {
			if nbVertices == maxEPASupportPoints {
				break
			}

			// Expand toward the face's closest point.
			supportPoint(triangle.closestPoint, nbVertices)
			indexNewVertex := nbVertices
			nbVertices++

			wDotv := points[indexNewVertex].Dot(triangle.closestPoint)
			if wDotv <= 0 {
				break
			}
			wDotvSquare := wDotv * wDotv / triangle.distSquare
			if wDotvSquare < upperBoundSquare {
				upperBoundSquare = wDotvSquare
			}

			// Stop when the new vertex no longer improves the bound.
			errorBound := wDotv - triangle.distSquare
			if errorBound <= math.Max(tolerance, relErrorSquare*wDotv) ||
				points[indexNewVertex] == points[triangle.indices[0]] ||
				points[indexNewVertex] == points[triangle.indices[1]] ||
				points[indexNewVertex] == points[triangle.indices[2]] {
				break
			}

			first := store.nbTriangles()
			if !triangle.computeSilhouette(points, indexNewVertex, &store) {
				break
			}

			for i := first; i != store.nbTriangles(); i++ {
				e.addFaceCandidate(store.triangle(i), &candidates, upperBoundSquare)
			}
		}

		if candidates.Len() == 0 || candidates[0].distSquare > upperBoundSquare {
			break
		}
	}

	v = triangle.closestPoint
	pALocal := triangle.computeClosestPointOfObject(suppPointsA)
	pBLocal := body2ToBody1.Inverse().Point(triangle.computeClosestPointOfObject(suppPointsB))

	penetrationDepth := v.Len()
	if penetrationDepth*penetrationDepth < MACHINE_EPSILON {
		return ContactPointInfo{}, false
	}
	normal := transform1.Orientation.Rotate(v.Mul(1.0 / penetrationDepth))

	return ContactPointInfo{
		Normal:           normal,
		PenetrationDepth: penetrationDepth,
		LocalPoint1:      pALocal,
		LocalPoint2:      pBLocal,
	}, true
}

// minAbsAxis returns the index of the component of smallest magnitude.
func minAbsAxis(v mgl64.Vec3) int {
	x, y, z := math.Abs(v.X()), math.Abs(v.Y()), math.Abs(v.Z())
	if x < y {
		if x < z {
			return 0
		}
		return 2
	}
	if y < z {
		return 1
	}
	return 2
}
