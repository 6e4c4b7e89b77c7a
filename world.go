package ephysics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// CollisionWorld holds bodies and runs collision detection on them without
// simulating any dynamics.
type CollisionWorld struct {
	bodies             []*CollisionBody
	collisionDetection *collisionDetection
	contactPointPool   *ContactPointPool

	currentBodyID uint64
}

func NewCollisionWorld() *CollisionWorld {
	world := &CollisionWorld{
		contactPointPool: newContactPointPool(),
	}
	world.collisionDetection = newCollisionDetection(world)
	return world
}

// CreateCollisionBody creates a collision-only body at the given transform.
func (w *CollisionWorld) CreateCollisionBody(transform Transform) *CollisionBody {
	body := newCollisionBody(transform, w, w.nextBodyID())
	w.bodies = append(w.bodies, body)
	return body
}

// DestroyCollisionBody removes a body and all its shapes from the world.
func (w *CollisionWorld) DestroyCollisionBody(body *CollisionBody) {
	body.removeAllCollisionShapes()
	w.removeBody(body)
}

func (w *CollisionWorld) nextBodyID() uint64 {
	w.currentBodyID++
	return w.currentBodyID
}

func (w *CollisionWorld) removeBody(body *CollisionBody) {
	for i, b := range w.bodies {
		if b == body {
			w.bodies = append(w.bodies[:i], w.bodies[i+1:]...)
			return
		}
	}
}

// rigidBodyOf returns the rigid body behind a collision body, if any.
func (w *CollisionWorld) rigidBodyOf(body *CollisionBody) (*RigidBody, bool) {
	return body.rigid, body.rigid != nil
}

// Raycast tests a ray against every body in the world. The callback decides
// how the ray continues: return 0 to stop, the hit fraction to clip the ray,
// or 1 to keep going unclipped.
func (w *CollisionWorld) Raycast(ray Ray, callback RaycastCallback) {
	w.collisionDetection.raycast(ray, callback, 0xFFFF)
}

// RaycastWithMask is Raycast restricted to shapes whose collision category
// is in the mask.
func (w *CollisionWorld) RaycastWithMask(ray Ray, callback RaycastCallback, categoryMask uint16) {
	w.collisionDetection.raycast(ray, callback, categoryMask)
}

// ContactManifolds returns the manifolds currently holding contact points,
// for inspection and debugging.
func (w *CollisionWorld) ContactManifolds() []*ContactManifold {
	var manifolds []*ContactManifold
	for _, pair := range w.collisionDetection.overlappingPairs {
		if pair.manifold.NbContactPoints() > 0 {
			manifolds = append(manifolds, pair.manifold)
		}
	}
	return manifolds
}

// TestAABBOverlap reports whether the fat AABBs of two bodies overlap in
// the broad phase.
func (w *CollisionWorld) TestAABBOverlap(body1, body2 *CollisionBody) bool {
	for p1 := body1.proxyShapes; p1 != nil; p1 = p1.next {
		for p2 := body2.proxyShapes; p2 != nil; p2 = p2.next {
			if w.collisionDetection.broadPhase.testOverlappingShapes(p1, p2) {
				return true
			}
		}
	}
	return false
}

// DynamicsWorld simulates rigid body dynamics on top of collision
// detection. Update advances the simulation by one fixed time step.
type DynamicsWorld struct {
	CollisionWorld

	gravity          mgl64.Vec3
	isGravityEnabled bool

	rigidBodies []*RigidBody
	joints      []Joint
	islands     []*Island

	contactSolver    *ContactSolver
	constraintSolver *ConstraintSolver

	nbVelocityIterations int
	nbPositionIterations int

	isSleepingEnabled    bool
	sleepLinearVelocity  float64
	sleepAngularVelocity float64
	timeBeforeSleep      float64

	constrainedLinearVelocities  []mgl64.Vec3
	constrainedAngularVelocities []mgl64.Vec3
	splitLinearVelocities        []mgl64.Vec3
	splitAngularVelocities       []mgl64.Vec3
	constrainedPositions         []mgl64.Vec3
	constrainedOrientations      []mgl64.Quat
}

func NewDynamicsWorld(gravity mgl64.Vec3) *DynamicsWorld {
	return NewDynamicsWorldWithSettings(gravity, DefaultWorldSettings())
}

func NewDynamicsWorldWithSettings(gravity mgl64.Vec3, settings WorldSettings) *DynamicsWorld {
	world := &DynamicsWorld{
		gravity:              gravity,
		isGravityEnabled:     true,
		contactSolver:        newContactSolver(),
		constraintSolver:     newConstraintSolver(),
		nbVelocityIterations: settings.VelocitySolverIterations,
		nbPositionIterations: settings.PositionSolverIterations,
		isSleepingEnabled:    settings.IsSleepingEnabled,
		sleepLinearVelocity:  settings.SleepLinearVelocity,
		sleepAngularVelocity: settings.SleepAngularVelocity,
		timeBeforeSleep:      settings.TimeBeforeSleep,
	}
	world.contactPointPool = newContactPointPool()
	world.collisionDetection = newCollisionDetection(&world.CollisionWorld)
	world.contactSolver.isWarmStartingActive = settings.IsWarmStartingEnabled
	world.contactSolver.isSplitImpulseActive = settings.IsSplitImpulseEnabled
	world.constraintSolver.data.isWarmStartingActive = settings.IsWarmStartingEnabled
	return world
}

func (w *DynamicsWorld) Gravity() mgl64.Vec3 { return w.gravity }

func (w *DynamicsWorld) SetGravity(gravity mgl64.Vec3) { w.gravity = gravity }

func (w *DynamicsWorld) IsGravityEnabled() bool { return w.isGravityEnabled }

func (w *DynamicsWorld) EnableGravity(enabled bool) { w.isGravityEnabled = enabled }

func (w *DynamicsWorld) IsSleepingEnabled() bool { return w.isSleepingEnabled }

// EnableSleeping toggles automatic deactivation. Disabling it wakes every
// sleeping body.
func (w *DynamicsWorld) EnableSleeping(enabled bool) {
	w.isSleepingEnabled = enabled
	if !enabled {
		for _, body := range w.rigidBodies {
			body.SetIsSleeping(false)
		}
	}
}

func (w *DynamicsWorld) SetNbVelocitySolverIterations(n int) {
	if n > 0 {
		w.nbVelocityIterations = n
	}
}

func (w *DynamicsWorld) SetNbPositionSolverIterations(n int) {
	if n > 0 {
		w.nbPositionIterations = n
	}
}

// CreateRigidBody creates a dynamic body at the given transform.
func (w *DynamicsWorld) CreateRigidBody(transform Transform) *RigidBody {
	body := newRigidBody(transform, &w.CollisionWorld, w.nextBodyID())
	w.bodies = append(w.bodies, &body.CollisionBody)
	w.rigidBodies = append(w.rigidBodies, body)
	return body
}

// DestroyRigidBody removes a body, its shapes and every joint attached to
// it.
func (w *DynamicsWorld) DestroyRigidBody(body *RigidBody) {
	for body.jointsList != nil {
		w.DestroyJoint(body.jointsList.Joint)
	}
	body.removeAllCollisionShapes()
	w.removeBody(&body.CollisionBody)
	for i, b := range w.rigidBodies {
		if b == body {
			w.rigidBodies = append(w.rigidBodies[:i], w.rigidBodies[i+1:]...)
			break
		}
	}
}

// CreateBallAndSocketJoint constrains two bodies around a world anchor
// point.
func (w *DynamicsWorld) CreateBallAndSocketJoint(info BallAndSocketJointInfo) *BallAndSocketJoint {
	joint := newBallAndSocketJoint(info)
	w.registerJoint(joint)
	return joint
}

// CreateFixedJoint welds two bodies together at a world anchor point.
func (w *DynamicsWorld) CreateFixedJoint(info FixedJointInfo) *FixedJoint {
	joint := newFixedJoint(info)
	w.registerJoint(joint)
	return joint
}

func (w *DynamicsWorld) registerJoint(joint Joint) {
	w.joints = append(w.joints, joint)

	body1 := joint.Body1()
	body2 := joint.Body2()
	body1.jointsList = &JointListElement{Joint: joint, Next: body1.jointsList}
	body2.jointsList = &JointListElement{Joint: joint, Next: body2.jointsList}
	body1.SetIsSleeping(false)
	body2.SetIsSleeping(false)
}

// DestroyJoint removes a joint and wakes the two bodies it linked.
func (w *DynamicsWorld) DestroyJoint(joint Joint) {
	joint.Body1().SetIsSleeping(false)
	joint.Body2().SetIsSleeping(false)
	joint.Body1().removeJointFromJointsList(joint)
	joint.Body2().removeJointFromJointsList(joint)
	for i, j := range w.joints {
		if j == joint {
			w.joints = append(w.joints[:i], w.joints[i+1:]...)
			return
		}
	}
}

// NbRigidBodies returns the number of rigid bodies in the world.
func (w *DynamicsWorld) NbRigidBodies() int { return len(w.rigidBodies) }

// NbJoints returns the number of joints in the world.
func (w *DynamicsWorld) NbJoints() int { return len(w.joints) }

// Islands returns the islands built by the last Update call.
func (w *DynamicsWorld) Islands() []*Island { return w.islands }

// Update advances the simulation by dt seconds: collision detection,
// island decomposition, velocity integration, constraint solving, position
// integration and sleeping.
func (w *DynamicsWorld) Update(dt float64) {
	if dt <= 0 {
		return
	}

	w.collisionDetection.computeCollisionDetection()
	w.computeIslands()
	w.integrateRigidBodiesVelocities(dt)
	w.solveContactsAndConstraints(dt)
	w.integrateRigidBodiesPositions(dt)
	w.solvePositionCorrection()
	w.updateBodiesState(dt)
	if w.isSleepingEnabled {
		w.updateSleepingBodies(dt)
	}
	w.resetBodiesForceAndTorque()
}

// computeIslands splits the awake bodies into independent islands by depth
// first traversal over contacts and joints. Static bodies stop the
// propagation and may belong to several islands.
func (w *DynamicsWorld) computeIslands() {
	for i, body := range w.rigidBodies {
		body.arrayIndex = i
		body.isAlreadyInIsland = false
	}
	for _, pair := range w.collisionDetection.overlappingPairs {
		pair.manifold.isAlreadyInIsland = false
	}
	for _, joint := range w.joints {
		joint.setInIsland(false)
	}

	w.islands = w.islands[:0]
	stack := make([]*RigidBody, 0, len(w.rigidBodies))

	for _, seed := range w.rigidBodies {
		if seed.isAlreadyInIsland || seed.bodyType == STATIC || seed.isSleeping || !seed.isActive {
			continue
		}

		island := newIsland(len(w.rigidBodies))
		stack = append(stack[:0], seed)
		seed.isAlreadyInIsland = true

		for len(stack) > 0 {
			body := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			body.SetIsSleeping(false)
			island.addBody(body)

			// Contacts and joints of a static body are visited through
			// its dynamic neighbours.
			if body.bodyType == STATIC {
				continue
			}

			for elem := body.contactsList; elem != nil; elem = elem.Next {
				manifold := elem.Manifold
				if manifold.isAlreadyInIsland {
					continue
				}
				island.addManifold(manifold)
				manifold.isAlreadyInIsland = true

				other := manifold.Body1()
				if other == &body.CollisionBody {
					other = manifold.Body2()
				}
				otherRigid, ok := w.rigidBodyOf(other)
				if !ok || otherRigid.isAlreadyInIsland {
					continue
				}
				stack = append(stack, otherRigid)
				otherRigid.isAlreadyInIsland = true
			}

			for elem := body.jointsList; elem != nil; elem = elem.Next {
				joint := elem.Joint
				if joint.isInIsland() {
					continue
				}
				island.addJoint(joint)
				joint.setInIsland(true)

				other := joint.Body1()
				if other == body {
					other = joint.Body2()
				}
				if other.isAlreadyInIsland {
					continue
				}
				stack = append(stack, other)
				other.isAlreadyInIsland = true
			}
		}

		for _, body := range island.bodies {
			if body.bodyType == STATIC {
				body.isAlreadyInIsland = false
			}
		}

		w.islands = append(w.islands, island)
	}
}

func (w *DynamicsWorld) resizeSolverArrays() {
	n := len(w.rigidBodies)
	if cap(w.constrainedLinearVelocities) < n {
		w.constrainedLinearVelocities = make([]mgl64.Vec3, n)
		w.constrainedAngularVelocities = make([]mgl64.Vec3, n)
		w.splitLinearVelocities = make([]mgl64.Vec3, n)
		w.splitAngularVelocities = make([]mgl64.Vec3, n)
		w.constrainedPositions = make([]mgl64.Vec3, n)
		w.constrainedOrientations = make([]mgl64.Quat, n)
	} else {
		w.constrainedLinearVelocities = w.constrainedLinearVelocities[:n]
		w.constrainedAngularVelocities = w.constrainedAngularVelocities[:n]
		w.splitLinearVelocities = w.splitLinearVelocities[:n]
		w.splitAngularVelocities = w.splitAngularVelocities[:n]
		w.constrainedPositions = w.constrainedPositions[:n]
		w.constrainedOrientations = w.constrainedOrientations[:n]
	}
}

// integrateRigidBodiesVelocities computes the pre-solve velocities of every
// body: current velocity plus gravity, external forces and damping over dt.
func (w *DynamicsWorld) integrateRigidBodiesVelocities(dt float64) {
	w.resizeSolverArrays()

	for _, body := range w.rigidBodies {
		i := body.arrayIndex

		w.splitLinearVelocities[i] = mgl64.Vec3{}
		w.splitAngularVelocities[i] = mgl64.Vec3{}

		if body.bodyType != DYNAMIC || body.isSleeping {
			w.constrainedLinearVelocities[i] = body.linearVelocity
			w.constrainedAngularVelocities[i] = body.angularVelocity
			continue
		}

		linear := body.linearVelocity.Add(body.externalForce.Mul(dt * body.massInverse))
		angular := body.angularVelocity.Add(body.inertiaTensorInverseWorld.Mul3x1(body.externalTorque).Mul(dt))

		if w.isGravityEnabled && body.isGravityEnabled {
			linear = linear.Add(w.gravity.Mul(dt))
		}

		if body.linearDamping > 0 {
			linear = linear.Mul(math.Pow(1.0-body.linearDamping, dt))
		}
		if body.angularDamping > 0 {
			angular = angular.Mul(math.Pow(1.0-body.angularDamping, dt))
		}

		w.constrainedLinearVelocities[i] = linear
		w.constrainedAngularVelocities[i] = angular
	}
}

// solveContactsAndConstraints runs the velocity iterations island by
// island, interleaving joints and contacts.
func (w *DynamicsWorld) solveContactsAndConstraints(dt float64) {
	w.contactSolver.setVelocityArrays(
		w.constrainedLinearVelocities, w.constrainedAngularVelocities,
		w.splitLinearVelocities, w.splitAngularVelocities)
	w.constraintSolver.setVelocityArrays(
		w.constrainedLinearVelocities, w.constrainedAngularVelocities)

	for _, island := range w.islands {
		hasContacts := len(island.manifolds) > 0
		hasJoints := len(island.joints) > 0
		if !hasContacts && !hasJoints {
			continue
		}

		if hasContacts {
			w.contactSolver.initializeForIsland(dt, island)
			w.contactSolver.warmStart()
		}
		if hasJoints {
			w.constraintSolver.initializeForIsland(dt, island)
		}

		for it := 0; it < w.nbVelocityIterations; it++ {
			if hasJoints {
				w.constraintSolver.solveVelocityConstraints(island)
			}
			if hasContacts {
				w.contactSolver.solve()
			}
		}

		if hasContacts {
			w.contactSolver.storeImpulses()
		}
	}
}

// integrateRigidBodiesPositions advances centers of mass and orientations
// with the solved velocities, split impulse correction included.
func (w *DynamicsWorld) integrateRigidBodiesPositions(dt float64) {
	for _, body := range w.rigidBodies {
		i := body.arrayIndex

		if body.bodyType == STATIC || body.isSleeping {
			w.constrainedPositions[i] = body.centerOfMassWorld
			w.constrainedOrientations[i] = body.transform.Orientation
			continue
		}

		newLinear := w.constrainedLinearVelocities[i]
		newAngular := w.constrainedAngularVelocities[i]

		if w.contactSolver.isSplitImpulseActive {
			newLinear = newLinear.Add(w.splitLinearVelocities[i])
			newAngular = newAngular.Add(w.splitAngularVelocities[i])
		}

		w.constrainedPositions[i] = body.centerOfMassWorld.Add(newLinear.Mul(dt))
		w.constrainedOrientations[i] = quatIntegrate(body.transform.Orientation, newAngular, dt)
	}
}

// solvePositionCorrection fixes the joint drift left after integration with
// non-linear Gauss-Seidel iterations on positions.
func (w *DynamicsWorld) solvePositionCorrection() {
	w.constraintSolver.setPositionArrays(w.constrainedPositions, w.constrainedOrientations)

	for _, island := range w.islands {
		if len(island.joints) == 0 {
			continue
		}
		for it := 0; it < w.nbPositionIterations; it++ {
			w.constraintSolver.solvePositionConstraints(island)
		}
	}
}

// updateBodiesState writes the solved velocities and integrated transforms
// back to the bodies and re-syncs the broad phase.
func (w *DynamicsWorld) updateBodiesState(dt float64) {
	for _, body := range w.rigidBodies {
		if body.bodyType == STATIC || body.isSleeping {
			continue
		}
		i := body.arrayIndex

		body.linearVelocity = w.constrainedLinearVelocities[i]
		body.angularVelocity = w.constrainedAngularVelocities[i]
		body.centerOfMassWorld = w.constrainedPositions[i]
		body.transform.Orientation = w.constrainedOrientations[i].Normalize()
		body.updateTransformWithCenterOfMass()
		body.updateInertiaTensorInverseWorld()

		body.updateProxyShapes(body.linearVelocity.Mul(dt))
	}
}

// updateSleepingBodies accumulates per body rest time and puts a whole
// island to sleep when every body in it has been at rest long enough.
func (w *DynamicsWorld) updateSleepingBodies(dt float64) {
	sleepLinearSquare := w.sleepLinearVelocity * w.sleepLinearVelocity
	sleepAngularSquare := w.sleepAngularVelocity * w.sleepAngularVelocity

	for _, island := range w.islands {
		minSleepTime := INFINITY

		for _, body := range island.bodies {
			if body.bodyType == STATIC {
				continue
			}

			if body.linearVelocity.Dot(body.linearVelocity) > sleepLinearSquare ||
				body.angularVelocity.Dot(body.angularVelocity) > sleepAngularSquare ||
				!body.isAllowedToSleep {
				body.sleepTime = 0
				minSleepTime = 0
				continue
			}

			body.sleepTime += dt
			if body.sleepTime < minSleepTime {
				minSleepTime = body.sleepTime
			}
		}

		if minSleepTime >= w.timeBeforeSleep {
			for _, body := range island.bodies {
				if body.bodyType != STATIC {
					body.SetIsSleeping(true)
				}
			}
		}
	}
}

func (w *DynamicsWorld) resetBodiesForceAndTorque() {
	for _, body := range w.rigidBodies {
		body.clearForces()
	}
}
