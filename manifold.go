package ephysics

import (
	"github.com/go-gl/mathgl/mgl64"
)

// ContactPointInfo is the raw narrow phase result for one contact point.
// The normal is in world space and points from body1 toward body2. Local
// points are in the local space of each proxy shape.
type ContactPointInfo struct {
	Normal           mgl64.Vec3
	PenetrationDepth float64
	LocalPoint1      mgl64.Vec3
	LocalPoint2      mgl64.Vec3
}

// ContactPoint is one persistent contact point of a manifold, carrying the
// impulses accumulated on it for warm starting the solver.
type ContactPoint struct {
	normal           mgl64.Vec3
	penetrationDepth float64
	localPointBody1  mgl64.Vec3
	localPointBody2  mgl64.Vec3
	worldPointBody1  mgl64.Vec3
	worldPointBody2  mgl64.Vec3

	isRestingContact bool

	penetrationImpulse       float64
	frictionImpulse1         float64
	frictionImpulse2         float64
	rollingResistanceImpulse mgl64.Vec3
}

func (c *ContactPoint) Normal() mgl64.Vec3            { return c.normal }
func (c *ContactPoint) PenetrationDepth() float64     { return c.penetrationDepth }
func (c *ContactPoint) WorldPointOnBody1() mgl64.Vec3 { return c.worldPointBody1 }
func (c *ContactPoint) WorldPointOnBody2() mgl64.Vec3 { return c.worldPointBody2 }
func (c *ContactPoint) PenetrationImpulse() float64   { return c.penetrationImpulse }

// ContactManifold is the persistent set of up to four contact points between
// two proxy shapes, kept across steps so the solver can warm start.
type ContactManifold struct {
	proxyShape1 *ProxyShape
	proxyShape2 *ProxyShape

	contactPoints   [MAX_CONTACT_POINTS_IN_MANIFOLD]*ContactPoint
	nbContactPoints int

	// accumulated friction state at the manifold center
	frictionVector1          mgl64.Vec3
	frictionVector2          mgl64.Vec3
	frictionImpulse1         float64
	frictionImpulse2         float64
	frictionTwistImpulse     float64
	rollingResistanceImpulse mgl64.Vec3

	isAlreadyInIsland bool

	pool *ContactPointPool
}

func newContactManifold(proxyShape1, proxyShape2 *ProxyShape, pool *ContactPointPool) *ContactManifold {
	return &ContactManifold{proxyShape1: proxyShape1, proxyShape2: proxyShape2, pool: pool}
}

func (m *ContactManifold) Body1() *CollisionBody    { return m.proxyShape1.body }
func (m *ContactManifold) Body2() *CollisionBody    { return m.proxyShape2.body }
func (m *ContactManifold) ProxyShape1() *ProxyShape { return m.proxyShape1 }
func (m *ContactManifold) ProxyShape2() *ProxyShape { return m.proxyShape2 }
func (m *ContactManifold) NbContactPoints() int     { return m.nbContactPoints }

func (m *ContactManifold) ContactPoint(i int) *ContactPoint { return m.contactPoints[i] }

// AddContactPoint inserts a new point into the manifold. A point landing on
// top of an existing one is dropped so the old point keeps its accumulated
// impulses. When the manifold is full, the kept four are the deepest point
// plus the three spanning the largest area.
func (m *ContactManifold) AddContactPoint(contact *ContactPoint) {
	for i := 0; i < m.nbContactPoints; i++ {
		distanceSq := m.contactPoints[i].worldPointBody1.Sub(contact.worldPointBody1)
		if distanceSq.Dot(distanceSq) <= PERSISTENT_CONTACT_DIST_THRESHOLD*PERSISTENT_CONTACT_DIST_THRESHOLD {
			m.pool.Release(contact)
			return
		}
	}

	if m.nbContactPoints == MAX_CONTACT_POINTS_IN_MANIFOLD {
		indexMaxPenetration := m.indexOfDeepestPenetration(contact)
		indexToRemove := m.indexToRemove(indexMaxPenetration, contact.localPointBody1)
		m.removeContactPoint(indexToRemove)
	}

	m.contactPoints[m.nbContactPoints] = contact
	m.nbContactPoints++
}

func (m *ContactManifold) removeContactPoint(index int) {
	m.pool.Release(m.contactPoints[index])
	m.nbContactPoints--
	if index < m.nbContactPoints {
		m.contactPoints[index] = m.contactPoints[m.nbContactPoints]
	}
	m.contactPoints[m.nbContactPoints] = nil
}

// Update refreshes world coordinates and penetration depths after the
// bodies moved and drops the points that no longer describe the contact:
// points that separated along the normal or drifted apart tangentially.
func (m *ContactManifold) Update(transform1, transform2 Transform) {
	if m.nbContactPoints == 0 {
		return
	}

	for i := 0; i < m.nbContactPoints; i++ {
		point := m.contactPoints[i]
		point.worldPointBody1 = transform1.Point(point.localPointBody1)
		point.worldPointBody2 = transform2.Point(point.localPointBody2)
		point.penetrationDepth = point.worldPointBody1.Sub(point.worldPointBody2).Dot(point.normal)
	}

	const squareThreshold = PERSISTENT_CONTACT_DIST_THRESHOLD * PERSISTENT_CONTACT_DIST_THRESHOLD

	for i := m.nbContactPoints - 1; i >= 0; i-- {
		point := m.contactPoints[i]
		distanceNormal := -point.penetrationDepth
		if distanceNormal > squareThreshold {
			m.removeContactPoint(i)
			continue
		}
		projOfPoint1 := point.worldPointBody1.Add(point.normal.Mul(distanceNormal))
		projDifference := point.worldPointBody2.Sub(projOfPoint1)
		if projDifference.Dot(projDifference) > squareThreshold {
			m.removeContactPoint(i)
		}
	}
}

// indexOfDeepestPenetration returns the index of the point deeper than the
// candidate, or -1 if the candidate is the deepest.
func (m *ContactManifold) indexOfDeepestPenetration(newContact *ContactPoint) int {
	index := -1
	maxDepth := newContact.penetrationDepth
	for i := 0; i < m.nbContactPoints; i++ {
		if m.contactPoints[i].penetrationDepth > maxDepth {
			maxDepth = m.contactPoints[i].penetrationDepth
			index = i
		}
	}
	return index
}

// indexToRemove picks which existing point to evict so that the deepest
// point stays and the remaining quadrilateral covers the largest area. The
// area of each candidate set is measured by the cross product of its
// diagonals.
func (m *ContactManifold) indexToRemove(indexMaxPenetration int, newPoint mgl64.Vec3) int {
	var area0, area1, area2, area3 float64

	if indexMaxPenetration != 0 {
		vector1 := newPoint.Sub(m.contactPoints[1].localPointBody1)
		vector2 := m.contactPoints[3].localPointBody1.Sub(m.contactPoints[2].localPointBody1)
		cross := vector1.Cross(vector2)
		area0 = cross.Dot(cross)
	}
	if indexMaxPenetration != 1 {
		vector1 := newPoint.Sub(m.contactPoints[0].localPointBody1)
		vector2 := m.contactPoints[3].localPointBody1.Sub(m.contactPoints[2].localPointBody1)
		cross := vector1.Cross(vector2)
		area1 = cross.Dot(cross)
	}
	if indexMaxPenetration != 2 {
		vector1 := newPoint.Sub(m.contactPoints[0].localPointBody1)
		vector2 := m.contactPoints[3].localPointBody1.Sub(m.contactPoints[1].localPointBody1)
		cross := vector1.Cross(vector2)
		area2 = cross.Dot(cross)
	}
	if indexMaxPenetration != 3 {
		vector1 := newPoint.Sub(m.contactPoints[0].localPointBody1)
		vector2 := m.contactPoints[2].localPointBody1.Sub(m.contactPoints[1].localPointBody1)
		cross := vector1.Cross(vector2)
		area3 = cross.Dot(cross)
	}

	return maxAreaIndex(area0, area1, area2, area3)
}

func maxAreaIndex(area0, area1, area2, area3 float64) int {
	if area0 < area1 {
		if area1 < area2 {
			if area2 < area3 {
				return 3
			}
			return 2
		}
		if area1 < area3 {
			return 3
		}
		return 1
	}
	if area0 < area2 {
		if area2 < area3 {
			return 3
		}
		return 2
	}
	if area0 < area3 {
		return 3
	}
	return 0
}

// clear drops every contact point.
func (m *ContactManifold) clear() {
	for i := 0; i < m.nbContactPoints; i++ {
		m.pool.Release(m.contactPoints[i])
		m.contactPoints[i] = nil
	}
	m.nbContactPoints = 0
}
