package ephysics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// overlappingPairID keys a pair of proxy shapes by their broad phase IDs,
// smaller first.
type overlappingPairID struct {
	id1 int
	id2 int
}

func makePairID(proxy1, proxy2 *ProxyShape) overlappingPairID {
	if proxy1.broadPhaseID < proxy2.broadPhaseID {
		return overlappingPairID{proxy1.broadPhaseID, proxy2.broadPhaseID}
	}
	return overlappingPairID{proxy2.broadPhaseID, proxy1.broadPhaseID}
}

// overlappingPair tracks two proxy shapes whose fat AABBs overlap, with the
// persistent manifold between them and the separating axis cached for GJK.
type overlappingPair struct {
	proxyShape1 *ProxyShape
	proxyShape2 *ProxyShape

	manifold *ContactManifold

	cachedSeparatingAxis mgl64.Vec3
}

func newOverlappingPair(proxy1, proxy2 *ProxyShape, pool *ContactPointPool) *overlappingPair {
	return &overlappingPair{
		proxyShape1:          proxy1,
		proxyShape2:          proxy2,
		manifold:             newContactManifold(proxy1, proxy2, pool),
		cachedSeparatingAxis: mgl64.Vec3{1, 1, 1},
	}
}

// collisionDetection runs the broad phase, maintains the set of overlapping
// pairs and dispatches the narrow phase on each of them.
type collisionDetection struct {
	world      *CollisionWorld
	broadPhase *BroadPhaseAlgorithm
	gjk        gjkAlgorithm

	overlappingPairs map[overlappingPairID]*overlappingPair
}

func newCollisionDetection(world *CollisionWorld) *collisionDetection {
	detection := &collisionDetection{
		world:            world,
		overlappingPairs: make(map[overlappingPairID]*overlappingPair),
	}
	detection.broadPhase = newBroadPhaseAlgorithm(detection)
	return detection
}

func (d *collisionDetection) addProxyShape(proxy *ProxyShape) {
	aabb := proxy.shape.ComputeAABB(proxy.LocalToWorldTransform())
	d.broadPhase.addProxyShape(proxy, aabb)
}

func (d *collisionDetection) removeProxyShape(proxy *ProxyShape) {
	for id, pair := range d.overlappingPairs {
		if pair.proxyShape1 == proxy || pair.proxyShape2 == proxy {
			pair.manifold.clear()
			delete(d.overlappingPairs, id)
		}
	}
	d.broadPhase.removeProxyShape(proxy)
}

func (d *collisionDetection) updateProxyShape(proxy *ProxyShape, displacement mgl64.Vec3) {
	if proxy.broadPhaseID == -1 {
		return
	}
	aabb := proxy.shape.ComputeAABB(proxy.LocalToWorldTransform())
	d.broadPhase.updateProxyShape(proxy, aabb, displacement)
}

// broadPhaseNotifyOverlappingPair receives a candidate pair from the broad
// phase and registers it unless filtered out.
func (d *collisionDetection) broadPhaseNotifyOverlappingPair(proxy1, proxy2 *ProxyShape) {
	if proxy1.body == proxy2.body {
		return
	}
	if proxy1.collisionCategoryBits&proxy2.collideWithMaskBits == 0 ||
		proxy2.collisionCategoryBits&proxy1.collideWithMaskBits == 0 {
		return
	}
	if d.jointDisablesCollision(proxy1.body, proxy2.body) {
		return
	}

	id := makePairID(proxy1, proxy2)
	if _, exists := d.overlappingPairs[id]; exists {
		return
	}
	d.overlappingPairs[id] = newOverlappingPair(proxy1, proxy2, d.world.contactPointPool)
}

// jointDisablesCollision reports whether a joint links the two bodies with
// collision between them turned off.
func (d *collisionDetection) jointDisablesCollision(body1, body2 *CollisionBody) bool {
	rigid1, ok := d.world.rigidBodyOf(body1)
	if !ok {
		return false
	}
	rigid2, ok := d.world.rigidBodyOf(body2)
	if !ok {
		return false
	}
	for elem := rigid1.jointsList; elem != nil; elem = elem.Next {
		joint := elem.Joint
		if joint.IsCollisionEnabled() {
			continue
		}
		if (joint.Body1() == rigid1 && joint.Body2() == rigid2) ||
			(joint.Body1() == rigid2 && joint.Body2() == rigid1) {
			return true
		}
	}
	return false
}

// computeCollisionDetection runs one full detection pass.
func (d *collisionDetection) computeCollisionDetection() {
	d.broadPhase.computeOverlappingPairs()
	d.computeNarrowPhase()
}

// computeNarrowPhase tests every overlapping pair, updates its persistent
// manifold and rebuilds the per body manifold lists.
func (d *collisionDetection) computeNarrowPhase() {
	for _, body := range d.world.bodies {
		body.resetContactManifoldsList()
	}

	for id, pair := range d.overlappingPairs {
		proxy1 := pair.proxyShape1
		proxy2 := pair.proxyShape2

		// Destroy the pair once the fat AABBs separate.
		if !d.broadPhase.testOverlappingShapes(proxy1, proxy2) {
			pair.manifold.clear()
			delete(d.overlappingPairs, id)
			continue
		}

		body1 := proxy1.body
		body2 := proxy2.body
		rigid1, isRigid1 := d.world.rigidBodyOf(body1)
		rigid2, isRigid2 := d.world.rigidBodyOf(body2)

		// Two bodies that cannot move relative to each other need no
		// contacts.
		if isRigid1 && isRigid2 {
			if rigid1.bodyType != DYNAMIC && rigid2.bodyType != DYNAMIC {
				continue
			}
			if rigid1.isSleeping && rigid2.isSleeping {
				continue
			}
		}

		transform1 := proxy1.LocalToWorldTransform()
		transform2 := proxy2.LocalToWorldTransform()

		pair.manifold.Update(transform1, transform2)

		d.testNarrowPhase(pair, transform1, transform2)

		if pair.manifold.nbContactPoints > 0 {
			d.addContactManifoldToBodies(pair.manifold)
		}
	}
}

// testNarrowPhase dispatches on the shape kinds of a pair and adds the
// contact points found to the pair's manifold.
func (d *collisionDetection) testNarrowPhase(pair *overlappingPair, transform1, transform2 Transform) {
	shape1 := pair.proxyShape1.shape
	shape2 := pair.proxyShape2.shape

	switch {
	case shape1.Type() == SHAPE_SPHERE && shape2.Type() == SHAPE_SPHERE:
		info, ok := testSphereVsSphere(shape1.(*SphereShape), transform1,
			shape2.(*SphereShape), transform2)
		if ok {
			pair.manifold.AddContactPoint(d.world.contactPointPool.NewContactPoint(info, transform1, transform2))
		}

	case shape1.IsConvex() && shape2.IsConvex():
		info, ok := d.gjk.testCollision(shape1.(ConvexShape), transform1,
			shape2.(ConvexShape), transform2, &pair.cachedSeparatingAxis)
		if ok {
			pair.manifold.AddContactPoint(d.world.contactPointPool.NewContactPoint(info, transform1, transform2))
		}

	case !shape1.IsConvex() && shape2.IsConvex():
		d.testConvexVsConcave(pair, shape2.(ConvexShape), transform2,
			shape1.(ConcaveShape), transform1, true)

	case shape1.IsConvex() && !shape2.IsConvex():
		d.testConvexVsConcave(pair, shape1.(ConvexShape), transform1,
			shape2.(ConcaveShape), transform2, false)

		// Two concave shapes are not tested against each other.
	}
}

// testSphereVsSphere is the analytic sphere pair test, cheaper and exact
// compared to running GJK on two points with margins.
func testSphereVsSphere(sphere1 *SphereShape, transform1 Transform,
	sphere2 *SphereShape, transform2 Transform) (ContactPointInfo, bool) {

	betweenCenters := transform2.Position.Sub(transform1.Position)
	distSquare := betweenCenters.Dot(betweenCenters)
	sumRadius := sphere1.Radius() + sphere2.Radius()

	if distSquare >= sumRadius*sumRadius || distSquare < MACHINE_EPSILON {
		return ContactPointInfo{}, false
	}

	center2InBody1 := transform1.Inverse().Point(transform2.Position)
	center1InBody2 := transform2.Inverse().Point(transform1.Position)

	return ContactPointInfo{
		Normal:           betweenCenters.Normalize(),
		PenetrationDepth: sumRadius - math.Sqrt(distSquare),
		LocalPoint1:      center2InBody1.Normalize().Mul(sphere1.Radius()),
		LocalPoint2:      center1InBody2.Normalize().Mul(sphere2.Radius()),
	}, true
}

// testConvexVsConcave decomposes the concave shape into the triangles
// overlapping the convex shape's bounds and runs GJK against each of them.
// concaveIsFirst tells which proxy of the pair the concave shape belongs
// to, so contact info is stored in pair order.
func (d *collisionDetection) testConvexVsConcave(pair *overlappingPair,
	convexShape ConvexShape, convexTransform Transform,
	concaveShape ConcaveShape, concaveTransform Transform, concaveIsFirst bool) {

	// Convex AABB in the concave shape's local space.
	convexAABB := convexShape.ComputeAABB(concaveTransform.Inverse().Mul(convexTransform))
	convexAABB = convexAABB.Inflate(concaveShape.TriangleMargin())

	concaveShape.TestAllTriangles(func(points [3]mgl64.Vec3) {
		triangle := NewTriangleShape(points[0], points[1], points[2])

		var info ContactPointInfo
		var ok bool
		if concaveIsFirst {
			info, ok = d.gjk.testCollision(triangle, concaveTransform,
				convexShape, convexTransform, &pair.cachedSeparatingAxis)
		} else {
			info, ok = d.gjk.testCollision(convexShape, convexTransform,
				triangle, concaveTransform, &pair.cachedSeparatingAxis)
		}
		if ok {
			transform1 := concaveTransform
			transform2 := convexTransform
			if !concaveIsFirst {
				transform1, transform2 = convexTransform, concaveTransform
			}
			pair.manifold.AddContactPoint(d.world.contactPointPool.NewContactPoint(info, transform1, transform2))
		}
	}, convexAABB)
}

func (d *collisionDetection) addContactManifoldToBodies(manifold *ContactManifold) {
	body1 := manifold.Body1()
	body2 := manifold.Body2()
	body1.contactsList = &ContactManifoldListElement{Manifold: manifold, Next: body1.contactsList}
	body2.contactsList = &ContactManifoldListElement{Manifold: manifold, Next: body2.contactsList}
}

// raycast tests a ray against every shape in the world whose category is in
// the mask, reporting hits through the callback.
func (d *collisionDetection) raycast(ray Ray, callback RaycastCallback, categoryMask uint16) {
	d.broadPhase.raycast(ray, callback, categoryMask)
}
