package ephysics

import (
	"github.com/go-gl/mathgl/mgl64"
)

const maxEPATriangles = 200

// edgeEPA identifies one directed edge of a polytope triangle. Edge i runs
// from vertex i to vertex (i+1)%3 of the owner triangle.
type edgeEPA struct {
	owner *triangleEPA
	index int
}

func nextCCWEdge(i int) int { return (i + 1) % 3 }
func prevCCWEdge(i int) int { return (i + 2) % 3 }

func (e edgeEPA) sourceVertexIndex() int { return e.owner.indices[e.index] }
func (e edgeEPA) targetVertexIndex() int { return e.owner.indices[nextCCWEdge(e.index)] }

// triangleEPA is a face of the expanding polytope. It caches the point of
// its affine hull closest to the origin and the barycentric coordinates of
// that point.
type triangleEPA struct {
	indices       [3]int
	adjacentEdges [3]edgeEPA
	isObsolete    bool
	det           float64
	closestPoint  mgl64.Vec3
	lambda1       float64
	lambda2       float64
	distSquare    float64
}

// computeClosestPoint finds the point of the triangle's affine hull closest
// to the origin. Returns false for a degenerate triangle.
func (t *triangleEPA) computeClosestPoint(vertices []mgl64.Vec3) bool {
	p0 := vertices[t.indices[0]]
	v1 := vertices[t.indices[1]].Sub(p0)
	v2 := vertices[t.indices[2]].Sub(p0)

	v1Dotv1 := v1.Dot(v1)
	v1Dotv2 := v1.Dot(v2)
	v2Dotv2 := v2.Dot(v2)
	p0Dotv1 := p0.Dot(v1)
	p0Dotv2 := p0.Dot(v2)

	t.det = v1Dotv1*v2Dotv2 - v1Dotv2*v1Dotv2
	t.lambda1 = p0Dotv2*v1Dotv2 - p0Dotv1*v2Dotv2
	t.lambda2 = p0Dotv1*v1Dotv2 - p0Dotv2*v1Dotv1

	if t.det > 0.0 {
		t.closestPoint = p0.Add(v1.Mul(t.lambda1).Add(v2.Mul(t.lambda2)).Mul(1.0 / t.det))
		t.distSquare = t.closestPoint.Dot(t.closestPoint)
		return true
	}
	return false
}

// isClosestPointInternal reports whether the closest point lies inside the
// triangle rather than on its affine hull outside it.
func (t *triangleEPA) isClosestPointInternal() bool {
	return t.lambda1 >= 0.0 && t.lambda2 >= 0.0 && t.lambda1+t.lambda2 <= t.det
}

// isVisibleFromVertex reports whether the triangle faces the given vertex.
func (t *triangleEPA) isVisibleFromVertex(vertices []mgl64.Vec3, index int) bool {
	closestToVert := vertices[index].Sub(t.closestPoint)
	return t.closestPoint.Dot(closestToVert) > 0.0
}

// computeClosestPointOfObject maps the cached barycentric coordinates onto
// one shape's support points.
func (t *triangleEPA) computeClosestPointOfObject(supportPoints []mgl64.Vec3) mgl64.Vec3 {
	p0 := supportPoints[t.indices[0]]
	return p0.Add(supportPoints[t.indices[1]].Sub(p0).Mul(t.lambda1).
		Add(supportPoints[t.indices[2]].Sub(p0).Mul(t.lambda2)).Mul(1.0 / t.det))
}

// link associates two half edges that run between the same vertices in
// opposite directions.
func linkEdges(edge0, edge1 edgeEPA) bool {
	possible := edge0.sourceVertexIndex() == edge1.targetVertexIndex() &&
		edge0.targetVertexIndex() == edge1.sourceVertexIndex()
	if possible {
		edge0.owner.adjacentEdges[edge0.index] = edge1
		edge1.owner.adjacentEdges[edge1.index] = edge0
	}
	return possible
}

func halfLinkEdges(edge0, edge1 edgeEPA) {
	edge0.owner.adjacentEdges[edge0.index] = edge1
}

// trianglesStore owns the triangles created during one EPA run.
type trianglesStore struct {
	triangles []*triangleEPA
}

func (s *trianglesStore) nbTriangles() int { return len(s.triangles) }

// setNbTriangles truncates the store, dropping triangles created after a
// silhouette attempt that had to be rolled back.
func (s *trianglesStore) setNbTriangles(n int) {
	s.triangles = s.triangles[:n]
}

func (s *trianglesStore) triangle(i int) *triangleEPA { return s.triangles[i] }

// newTriangle creates a triangle face, or nil if the store is full or the
// face is degenerate.
func (s *trianglesStore) newTriangle(vertices []mgl64.Vec3, v0, v1, v2 int) *triangleEPA {
	if len(s.triangles) >= maxEPATriangles {
		return nil
	}
	triangle := &triangleEPA{indices: [3]int{v0, v1, v2}}
	if !triangle.computeClosestPoint(vertices) {
		return nil
	}
	s.triangles = append(s.triangles, triangle)
	return triangle
}

// computeSilhouette marks the triangle obsolete and expands the silhouette
// seen from the new vertex across the adjacent faces, creating the new
// faces that fill the hole.
func (t *triangleEPA) computeSilhouette(vertices []mgl64.Vec3, indexNewVertex int, store *trianglesStore) bool {
	first := store.nbTriangles()

	t.isObsolete = true
	result := t.adjacentEdges[0].computeSilhouette(vertices, indexNewVertex, store) &&
		t.adjacentEdges[1].computeSilhouette(vertices, indexNewVertex, store) &&
		t.adjacentEdges[2].computeSilhouette(vertices, indexNewVertex, store)

	if result {
		for i, j := first, store.nbTriangles()-1; i != store.nbTriangles(); j, i = i, i+1 {
			triangle := store.triangle(i)
			halfLinkEdges(triangle.adjacentEdges[1], edgeEPA{triangle, 1})
			if !linkEdges(edgeEPA{triangle, 0}, edgeEPA{store.triangle(j), 2}) {
				return false
			}
		}
	}
	return result
}

func (e edgeEPA) computeSilhouette(vertices []mgl64.Vec3, indexNewVertex int, store *trianglesStore) bool {
	if e.owner.isObsolete {
		return true
	}

	makeFace := func() bool {
		triangle := store.newTriangle(vertices, indexNewVertex,
			e.targetVertexIndex(), e.sourceVertexIndex())
		if triangle != nil {
			halfLinkEdges(edgeEPA{triangle, 1}, e)
			return true
		}
		return false
	}

	if !e.owner.isVisibleFromVertex(vertices, indexNewVertex) {
		// The neighbour is not visible, so this edge is on the silhouette.
		return makeFace()
	}

	e.owner.isObsolete = true
	backup := store.nbTriangles()
	if !e.owner.adjacentEdges[nextCCWEdge(e.index)].computeSilhouette(vertices, indexNewVertex, store) {
		e.owner.isObsolete = false
		return makeFace()
	}
	if !e.owner.adjacentEdges[prevCCWEdge(e.index)].computeSilhouette(vertices, indexNewVertex, store) {
		e.owner.isObsolete = false
		store.setNbTriangles(backup)
		return makeFace()
	}
	return true
}
