package ephysics

import (
	"github.com/go-gl/mathgl/mgl64"
)

// simplexBits is a 4-bit set selecting vertices of the GJK simplex.
type simplexBits uint

func overlapBits(a, b simplexBits) bool { return a&b != 0 }

// isSubsetOf reports whether every bit of a is set in b.
func (a simplexBits) isSubsetOf(b simplexBits) bool { return a&b == a }

// simplex is the working simplex of GJK, with Johnson's distance
// subalgorithm. Determinants of every vertex subset are cached so subsets
// can be validated and closest points recomputed incrementally as vertices
// are added and dropped.
type simplex struct {
	points       [4]mgl64.Vec3
	pointsLenSq  [4]float64
	maxLengthSq  float64
	suppPointsA  [4]mgl64.Vec3
	suppPointsB  [4]mgl64.Vec3
	diffLength   [4][4]mgl64.Vec3 // points[i] - points[j]
	det          [16][4]float64
	normSq       [4][4]float64
	bitsCurrent  simplexBits // vertices of the current simplex
	lastFound    int         // index of the last added vertex
	lastFoundBit simplexBits
	allBits      simplexBits // bitsCurrent | lastFoundBit
}

func (s *simplex) isFull() bool  { return s.bitsCurrent == 0xf }
func (s *simplex) isEmpty() bool { return s.bitsCurrent == 0x0 }

func (s *simplex) getMaxLengthSquareOfAPoint() float64 { return s.maxLengthSq }

// addPoint adds a Minkowski difference vertex and its two support points to
// the free slot of the simplex.
func (s *simplex) addPoint(point, suppA, suppB mgl64.Vec3) {
	s.lastFound = 0
	s.lastFoundBit = 0x1
	for overlapBits(s.bitsCurrent, s.lastFoundBit) {
		s.lastFound++
		s.lastFoundBit <<= 1
	}

	s.points[s.lastFound] = point
	s.pointsLenSq[s.lastFound] = point.Dot(point)
	s.suppPointsA[s.lastFound] = suppA
	s.suppPointsB[s.lastFound] = suppB

	s.allBits = s.bitsCurrent | s.lastFoundBit

	s.updateCache()
	s.computeDeterminants()
}

// isPointInSimplex reports whether the candidate vertex already occurs in
// the simplex. GJK uses this to detect that it stopped making progress.
func (s *simplex) isPointInSimplex(point mgl64.Vec3) bool {
	for i, bit := 0, simplexBits(0x1); i < 4; i, bit = i+1, bit<<1 {
		if overlapBits(s.allBits, bit) && s.points[i] == point {
			return true
		}
	}
	return false
}

// updateCache refreshes the pairwise difference vectors between the last
// added vertex and the rest of the simplex.
func (s *simplex) updateCache() {
	for i, bit := 0, simplexBits(0x1); i < 4; i, bit = i+1, bit<<1 {
		if !overlapBits(s.bitsCurrent, bit) {
			continue
		}
		s.diffLength[i][s.lastFound] = s.points[i].Sub(s.points[s.lastFound])
		s.diffLength[s.lastFound][i] = s.diffLength[i][s.lastFound].Mul(-1)
		normSq := s.diffLength[i][s.lastFound].Dot(s.diffLength[i][s.lastFound])
		s.normSq[i][s.lastFound] = normSq
		s.normSq[s.lastFound][i] = normSq
	}
}

// computeDeterminants fills the determinant cache for every subset that
// includes the last added vertex (Johnson's recursion).
func (s *simplex) computeDeterminants() {
	s.det[s.lastFoundBit][s.lastFound] = 1.0

	if s.isEmpty() {
		return
	}

	for i, bitI := 0, simplexBits(0x1); i < 4; i, bitI = i+1, bitI<<1 {
		if !overlapBits(s.bitsCurrent, bitI) {
			continue
		}
		bit2 := bitI | s.lastFoundBit

		s.det[bit2][i] = s.diffLength[s.lastFound][i].Dot(s.points[s.lastFound])
		s.det[bit2][s.lastFound] = s.diffLength[i][s.lastFound].Dot(s.points[i])

		for j, bitJ := 0, simplexBits(0x1); j < i; j, bitJ = j+1, bitJ<<1 {
			if !overlapBits(s.bitsCurrent, bitJ) {
				continue
			}
			bit3 := bitJ | bit2

			k := s.lastFound
			if s.normSq[i][j] < s.normSq[s.lastFound][j] {
				k = i
			}
			s.det[bit3][j] = s.det[bit2][i]*s.diffLength[k][j].Dot(s.points[i]) +
				s.det[bit2][s.lastFound]*s.diffLength[k][j].Dot(s.points[s.lastFound])

			k = s.lastFound
			if s.normSq[j][i] < s.normSq[s.lastFound][i] {
				k = j
			}
			s.det[bit3][i] = s.det[bitJ|s.lastFoundBit][j]*s.diffLength[k][i].Dot(s.points[j]) +
				s.det[bitJ|s.lastFoundBit][s.lastFound]*s.diffLength[k][i].Dot(s.points[s.lastFound])

			k = j
			if s.normSq[i][s.lastFound] < s.normSq[j][s.lastFound] {
				k = i
			}
			s.det[bit3][s.lastFound] = s.det[bitJ|bitI][j]*s.diffLength[k][s.lastFound].Dot(s.points[j]) +
				s.det[bitJ|bitI][i]*s.diffLength[k][s.lastFound].Dot(s.points[i])
		}
	}

	if s.allBits == 0xf {
		k := pickMinNorm3(s.normSq[1][0], s.normSq[2][0], s.normSq[3][0], 1, 2, 3)
		s.det[0xf][0] = s.det[0xe][1]*s.diffLength[k][0].Dot(s.points[1]) +
			s.det[0xe][2]*s.diffLength[k][0].Dot(s.points[2]) +
			s.det[0xe][3]*s.diffLength[k][0].Dot(s.points[3])

		k = pickMinNorm3(s.normSq[0][1], s.normSq[2][1], s.normSq[3][1], 0, 2, 3)
		s.det[0xf][1] = s.det[0xd][0]*s.diffLength[k][1].Dot(s.points[0]) +
			s.det[0xd][2]*s.diffLength[k][1].Dot(s.points[2]) +
			s.det[0xd][3]*s.diffLength[k][1].Dot(s.points[3])

		k = pickMinNorm3(s.normSq[0][2], s.normSq[1][2], s.normSq[3][2], 0, 1, 3)
		s.det[0xf][2] = s.det[0xb][0]*s.diffLength[k][2].Dot(s.points[0]) +
			s.det[0xb][1]*s.diffLength[k][2].Dot(s.points[1]) +
			s.det[0xb][3]*s.diffLength[k][2].Dot(s.points[3])

		k = pickMinNorm3(s.normSq[0][3], s.normSq[1][3], s.normSq[2][3], 0, 1, 2)
		s.det[0xf][3] = s.det[0x7][0]*s.diffLength[k][3].Dot(s.points[0]) +
			s.det[0x7][1]*s.diffLength[k][3].Dot(s.points[1]) +
			s.det[0x7][2]*s.diffLength[k][3].Dot(s.points[2])
	}
}

func pickMinNorm3(a, b, c float64, ia, ib, ic int) int {
	if a < b {
		if a < c {
			return ia
		}
		return ic
	}
	if b < c {
		return ib
	}
	return ic
}

// isProperSubset reports whether every determinant of the subset is
// strictly positive.
func (s *simplex) isProperSubset(subset simplexBits) bool {
	for i, bit := 0, simplexBits(0x1); i < 4; i, bit = i+1, bit<<1 {
		if overlapBits(subset, bit) && s.det[subset][i] <= 0.0 {
			return false
		}
	}
	return true
}

// isAffinelyDependent reports whether the simplex vertices are affinely
// dependent (coplanar tetrahedron, collinear triangle and so on).
func (s *simplex) isAffinelyDependent() bool {
	sum := 0.0
	for i, bit := 0, simplexBits(0x1); i < 4; i, bit = i+1, bit<<1 {
		if overlapBits(s.allBits, bit) {
			sum += s.det[s.allBits][i]
		}
	}
	return sum <= 0.0
}

// isValidSubset checks the Johnson conditions: determinants of vertices in
// the subset are positive and adding any outside vertex would not improve.
func (s *simplex) isValidSubset(subset simplexBits) bool {
	for i, bit := 0, simplexBits(0x1); i < 4; i, bit = i+1, bit<<1 {
		if !overlapBits(s.allBits, bit) {
			continue
		}
		if overlapBits(subset, bit) {
			if s.det[subset][i] <= 0.0 {
				return false
			}
		} else if s.det[subset|bit][i] > 0.0 {
			return false
		}
	}
	return true
}

// computeClosestPointsOfAandB maps the barycentric weights of the current
// simplex back to points on the two original shapes.
func (s *simplex) computeClosestPointsOfAandB() (pA, pB mgl64.Vec3) {
	deltaX := 0.0
	for i, bit := 0, simplexBits(0x1); i < 4; i, bit = i+1, bit<<1 {
		if !overlapBits(s.bitsCurrent, bit) {
			continue
		}
		deltaX += s.det[s.bitsCurrent][i]
		pA = pA.Add(s.suppPointsA[i].Mul(s.det[s.bitsCurrent][i]))
		pB = pB.Add(s.suppPointsB[i].Mul(s.det[s.bitsCurrent][i]))
	}
	factor := 1.0 / deltaX
	return pA.Mul(factor), pB.Mul(factor)
}

// computeClosestPoint finds the valid subset containing the last added
// vertex, reduces the simplex to it and returns the closest point of the
// simplex to the origin. It fails when numerical trouble leaves no valid
// subset.
func (s *simplex) computeClosestPoint() (mgl64.Vec3, bool) {
	for subset := s.bitsCurrent; subset != 0x0; subset-- {
		if subset.isSubsetOf(s.bitsCurrent) && s.isValidSubset(subset|s.lastFoundBit) {
			s.bitsCurrent = subset | s.lastFoundBit
			return s.computeClosestPointForSubset(s.bitsCurrent), true
		}
	}

	if s.isValidSubset(s.lastFoundBit) {
		s.bitsCurrent = s.lastFoundBit
		s.maxLengthSq = s.pointsLenSq[s.lastFound]
		return s.points[s.lastFound], true
	}

	return mgl64.Vec3{}, false
}

// computeClosestPointForSubset evaluates the barycentric combination of a
// subset, updating the max vertex length for the termination test.
func (s *simplex) computeClosestPointForSubset(subset simplexBits) mgl64.Vec3 {
	var v mgl64.Vec3
	s.maxLengthSq = 0.0
	deltaX := 0.0

	for i, bit := 0, simplexBits(0x1); i < 4; i, bit = i+1, bit<<1 {
		if !overlapBits(subset, bit) {
			continue
		}
		deltaX += s.det[subset][i]
		if s.maxLengthSq < s.pointsLenSq[i] {
			s.maxLengthSq = s.pointsLenSq[i]
		}
		v = v.Add(s.points[i].Mul(s.det[subset][i]))
	}
	return v.Mul(1.0 / deltaX)
}

// backupClosestPointInSimplex scans every proper subset for the closest
// point, used when the main update cannot find a valid subset.
func (s *simplex) backupClosestPointInSimplex() mgl64.Vec3 {
	var v mgl64.Vec3
	minDistSq := INFINITY

	for bits := s.allBits; bits != 0x0; bits-- {
		if bits.isSubsetOf(s.allBits) && s.isProperSubset(bits) {
			u := s.computeClosestPointForSubset(bits)
			distSq := u.Dot(u)
			if distSq < minDistSq {
				minDistSq = distSq
				s.bitsCurrent = bits
				v = u
			}
		}
	}
	return v
}

// getSimplex copies out the current vertices, used to seed EPA.
func (s *simplex) getSimplex(suppPointsA, suppPointsB, points []mgl64.Vec3) int {
	nb := 0
	for i, bit := 0, simplexBits(0x1); i < 4; i, bit = i+1, bit<<1 {
		if !overlapBits(s.bitsCurrent, bit) {
			continue
		}
		suppPointsA[nb] = s.suppPointsA[i]
		suppPointsB[nb] = s.suppPointsB[i]
		points[nb] = s.points[i]
		nb++
	}
	return nb
}
