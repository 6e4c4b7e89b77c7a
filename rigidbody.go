package ephysics

import (
	"github.com/go-gl/mathgl/mgl64"
)

type BodyType int

const (
	// STATIC bodies never move and collide only with non-static bodies.
	STATIC BodyType = iota
	// KINEMATIC bodies move by velocity set explicitly, unaffected by forces.
	KINEMATIC
	// DYNAMIC bodies are fully simulated.
	DYNAMIC
)

// JointListElement is a node of a body's intrusive list of attached joints.
type JointListElement struct {
	Joint Joint
	Next  *JointListElement
}

// RigidBody is a simulated body with mass, velocity and forces. Mass
// properties are recomputed from the attached shapes unless set explicitly.
type RigidBody struct {
	CollisionBody

	bodyType BodyType

	initMass    float64
	massInverse float64

	inertiaTensorLocal        mgl64.Mat3
	inertiaTensorLocalInverse mgl64.Mat3
	inertiaTensorInverseWorld mgl64.Mat3

	centerOfMassLocal mgl64.Vec3
	centerOfMassWorld mgl64.Vec3

	linearVelocity  mgl64.Vec3
	angularVelocity mgl64.Vec3
	externalForce   mgl64.Vec3
	externalTorque  mgl64.Vec3

	material       Material
	linearDamping  float64
	angularDamping float64

	jointsList *JointListElement

	isGravityEnabled bool
	isAllowedToSleep bool
	isSleeping       bool
	sleepTime        float64

	// scratch used while building islands and indexing solver arrays
	isAlreadyInIsland bool
	arrayIndex        int
}

func newRigidBody(transform Transform, world *CollisionWorld, id uint64) *RigidBody {
	body := &RigidBody{
		CollisionBody:      *newCollisionBody(transform, world, id),
		bodyType:           DYNAMIC,
		initMass:           1.0,
		massInverse:        1.0,
		inertiaTensorLocal: mgl64.Ident3(),
		material:           NewMaterial(),
		linearDamping:      0.0,
		angularDamping:     0.0,
		isGravityEnabled:   true,
		isAllowedToSleep:   true,
	}
	body.inertiaTensorLocalInverse = mgl64.Ident3()
	body.centerOfMassWorld = transform.Position
	body.rigid = body
	body.updateInertiaTensorInverseWorld()
	return body
}

func (b *RigidBody) Type() BodyType { return b.bodyType }

// SetType changes how the body is simulated. Static and kinematic bodies get
// infinite mass, and a new dynamic body gets its mass recomputed from its
// shapes.
func (b *RigidBody) SetType(bodyType BodyType) {
	if b.bodyType == bodyType {
		return
	}
	b.bodyType = bodyType

	b.SetIsSleeping(false)

	if bodyType == STATIC {
		b.linearVelocity = mgl64.Vec3{}
		b.angularVelocity = mgl64.Vec3{}
	}
	if bodyType == STATIC || bodyType == KINEMATIC {
		b.massInverse = 0
		b.inertiaTensorLocalInverse = mgl64.Mat3{}
		b.inertiaTensorInverseWorld = mgl64.Mat3{}
	} else {
		b.massInverse = 1.0 / b.initMass
		b.RecomputeMassInformation()
	}

	// Pairs involving the body must be retested under the new type.
	b.updateProxyShapes(mgl64.Vec3{})
	b.resetContactManifoldsList()
}

func (b *RigidBody) Mass() float64        { return b.initMass }
func (b *RigidBody) MassInverse() float64 { return b.massInverse }

// SetMass sets the body mass without touching the inertia tensor.
func (b *RigidBody) SetMass(mass float64) {
	if mass <= 0 {
		return
	}
	b.initMass = mass
	if b.bodyType == DYNAMIC {
		b.massInverse = 1.0 / mass
	}
}

func (b *RigidBody) InertiaTensorLocal() mgl64.Mat3 { return b.inertiaTensorLocal }

func (b *RigidBody) SetInertiaTensorLocal(inertia mgl64.Mat3) {
	b.inertiaTensorLocal = inertia
	if b.bodyType == DYNAMIC {
		b.inertiaTensorLocalInverse = inertia.Inv()
		b.updateInertiaTensorInverseWorld()
	}
}

// InertiaTensorInverseWorld returns the world-space inverse inertia tensor,
// updated as the body rotates.
func (b *RigidBody) InertiaTensorInverseWorld() mgl64.Mat3 {
	return b.inertiaTensorInverseWorld
}

func (b *RigidBody) updateInertiaTensorInverseWorld() {
	rotation := b.transform.Orientation.Mat4().Mat3()
	b.inertiaTensorInverseWorld = rotation.Mul3(b.inertiaTensorLocalInverse).Mul3(rotation.Transpose())
}

func (b *RigidBody) LinearVelocity() mgl64.Vec3 { return b.linearVelocity }

func (b *RigidBody) SetLinearVelocity(velocity mgl64.Vec3) {
	if b.bodyType == STATIC {
		return
	}
	b.linearVelocity = velocity
	if velocity.Dot(velocity) > 0 {
		b.SetIsSleeping(false)
	}
}

func (b *RigidBody) AngularVelocity() mgl64.Vec3 { return b.angularVelocity }

func (b *RigidBody) SetAngularVelocity(velocity mgl64.Vec3) {
	if b.bodyType == STATIC {
		return
	}
	b.angularVelocity = velocity
	if velocity.Dot(velocity) > 0 {
		b.SetIsSleeping(false)
	}
}

// SetTransform teleports the body, keeping the center of mass consistent.
func (b *RigidBody) SetTransform(transform Transform) {
	b.transform = transform
	b.centerOfMassWorld = transform.Point(b.centerOfMassLocal)
	b.updateInertiaTensorInverseWorld()
	b.SetIsSleeping(false)
	b.updateProxyShapes(mgl64.Vec3{})
}

func (b *RigidBody) CenterOfMassLocal() mgl64.Vec3 { return b.centerOfMassLocal }
func (b *RigidBody) CenterOfMassWorld() mgl64.Vec3 { return b.centerOfMassWorld }

// ApplyForce accumulates a force applied at a world point. The offset from
// the center of mass also produces a torque. Forces only act on dynamic
// bodies and wake a sleeping one.
func (b *RigidBody) ApplyForce(force, worldPoint mgl64.Vec3) {
	if b.bodyType != DYNAMIC {
		return
	}
	if b.isSleeping {
		b.SetIsSleeping(false)
	}
	b.externalForce = b.externalForce.Add(force)
	b.externalTorque = b.externalTorque.Add(worldPoint.Sub(b.centerOfMassWorld).Cross(force))
}

// ApplyForceToCenterOfMass accumulates a force with no torque contribution.
func (b *RigidBody) ApplyForceToCenterOfMass(force mgl64.Vec3) {
	if b.bodyType != DYNAMIC {
		return
	}
	if b.isSleeping {
		b.SetIsSleeping(false)
	}
	b.externalForce = b.externalForce.Add(force)
}

// ApplyTorque accumulates an external torque.
func (b *RigidBody) ApplyTorque(torque mgl64.Vec3) {
	if b.bodyType != DYNAMIC {
		return
	}
	if b.isSleeping {
		b.SetIsSleeping(false)
	}
	b.externalTorque = b.externalTorque.Add(torque)
}

func (b *RigidBody) clearForces() {
	b.externalForce = mgl64.Vec3{}
	b.externalTorque = mgl64.Vec3{}
}

func (b *RigidBody) Material() *Material { return &b.material }

func (b *RigidBody) SetMaterial(material Material) { b.material = material }

func (b *RigidBody) LinearDamping() float64 { return b.linearDamping }

func (b *RigidBody) SetLinearDamping(damping float64) {
	if damping >= 0 {
		b.linearDamping = damping
	}
}

func (b *RigidBody) AngularDamping() float64 { return b.angularDamping }

func (b *RigidBody) SetAngularDamping(damping float64) {
	if damping >= 0 {
		b.angularDamping = damping
	}
}

func (b *RigidBody) IsGravityEnabled() bool { return b.isGravityEnabled }

func (b *RigidBody) EnableGravity(enabled bool) { b.isGravityEnabled = enabled }

func (b *RigidBody) IsAllowedToSleep() bool { return b.isAllowedToSleep }

func (b *RigidBody) SetIsAllowedToSleep(allowed bool) {
	b.isAllowedToSleep = allowed
	if !allowed {
		b.SetIsSleeping(false)
	}
}

func (b *RigidBody) IsSleeping() bool { return b.isSleeping }

// SetIsSleeping puts the body to sleep or wakes it. Falling asleep zeroes
// velocities and pending forces.
func (b *RigidBody) SetIsSleeping(sleeping bool) {
	if sleeping {
		b.linearVelocity = mgl64.Vec3{}
		b.angularVelocity = mgl64.Vec3{}
		b.externalForce = mgl64.Vec3{}
		b.externalTorque = mgl64.Vec3{}
		b.sleepTime = 0
	} else if b.isSleeping {
		// Reset only on a real wake-up so the rest timer keeps
		// accumulating across steps for awake bodies.
		b.sleepTime = 0
	}
	b.isSleeping = sleeping
}

// AddCollisionShape attaches a shape and folds its mass into the body.
func (b *RigidBody) AddCollisionShape(shape CollisionShape, transform Transform, mass float64) (*ProxyShape, error) {
	if mass <= 0 {
		return nil, ErrInvalidShapeParameter
	}
	proxy := newProxyShape(&b.CollisionBody, shape, transform, mass)
	proxy.next = b.proxyShapes
	b.proxyShapes = proxy
	b.nbProxyShapes++

	if b.isActive {
		b.world.collisionDetection.addProxyShape(proxy)
	}
	b.RecomputeMassInformation()
	return proxy, nil
}

// RemoveCollisionShape detaches a proxy and recomputes the mass properties.
func (b *RigidBody) RemoveCollisionShape(proxy *ProxyShape) {
	b.CollisionBody.RemoveCollisionShape(proxy)
	b.RecomputeMassInformation()
}

// JointsList returns the head of the body's joint list.
func (b *RigidBody) JointsList() *JointListElement { return b.jointsList }

func (b *RigidBody) removeJointFromJointsList(joint Joint) {
	prev := (*JointListElement)(nil)
	for current := b.jointsList; current != nil; current = current.Next {
		if current.Joint == joint {
			if prev == nil {
				b.jointsList = current.Next
			} else {
				prev.Next = current.Next
			}
			return
		}
		prev = current
	}
}

// RecomputeMassInformation rebuilds mass, center of mass and inertia tensor
// from the attached shapes, shifting each shape tensor to the center of mass
// with the parallel axis theorem.
func (b *RigidBody) RecomputeMassInformation() {
	b.initMass = 0
	b.massInverse = 0
	b.inertiaTensorLocal = mgl64.Mat3{}
	b.inertiaTensorLocalInverse = mgl64.Mat3{}
	b.inertiaTensorInverseWorld = mgl64.Mat3{}
	b.centerOfMassLocal = mgl64.Vec3{}
	oldCenterOfMassWorld := b.centerOfMassWorld

	if b.bodyType != DYNAMIC {
		b.centerOfMassWorld = b.transform.Position
		return
	}

	for proxy := b.proxyShapes; proxy != nil; proxy = proxy.next {
		b.initMass += proxy.mass
		offset := proxy.localToBody.Point(mgl64.Vec3{})
		b.centerOfMassLocal = b.centerOfMassLocal.Add(offset.Mul(proxy.mass))
	}

	if b.initMass > 0 {
		b.massInverse = 1.0 / b.initMass
	} else {
		b.initMass = 1.0
		b.massInverse = 1.0
	}

	b.centerOfMassLocal = b.centerOfMassLocal.Mul(b.massInverse)
	b.centerOfMassWorld = b.transform.Point(b.centerOfMassLocal)

	for proxy := b.proxyShapes; proxy != nil; proxy = proxy.next {
		inertia := proxy.shape.ComputeLocalInertiaTensor(proxy.mass)

		// Rotate the shape tensor into body space.
		rotation := proxy.localToBody.Orientation.Mat4().Mat3()
		inertia = rotation.Mul3(inertia).Mul3(rotation.Transpose())

		// Shift it to the body's center of mass.
		offset := proxy.localToBody.Point(mgl64.Vec3{}).Sub(b.centerOfMassLocal)
		offsetSquare := offset.Dot(offset)
		shift := mgl64.Diag3(mgl64.Vec3{offsetSquare, offsetSquare, offsetSquare})
		shift = mat3Sub(shift, outerProduct(offset, offset))
		shift = mat3Scale(shift, proxy.mass)

		b.inertiaTensorLocal = mat3Add(b.inertiaTensorLocal, mat3Add(inertia, shift))
	}

	if b.inertiaTensorLocal.Det() > MACHINE_EPSILON {
		b.inertiaTensorLocalInverse = b.inertiaTensorLocal.Inv()
	} else {
		b.inertiaTensorLocal = mgl64.Ident3()
		b.inertiaTensorLocalInverse = mgl64.Ident3()
	}
	b.updateInertiaTensorInverseWorld()

	// Moving the center of mass changes the point whose velocity the body
	// tracks.
	b.linearVelocity = b.linearVelocity.Add(
		b.angularVelocity.Cross(b.centerOfMassWorld.Sub(oldCenterOfMassWorld)))
}

// updateTransformWithCenterOfMass recovers the body origin from the
// integrated center of mass position.
func (b *RigidBody) updateTransformWithCenterOfMass() {
	b.transform.Position = b.centerOfMassWorld.Sub(
		b.transform.Orientation.Rotate(b.centerOfMassLocal))
}

// KineticEnergy returns the body's current kinetic energy.
func (b *RigidBody) KineticEnergy() float64 {
	if b.bodyType != DYNAMIC {
		return 0
	}
	linear := 0.5 * b.initMass * b.linearVelocity.Dot(b.linearVelocity)
	inertiaWorld := b.inertiaTensorInverseWorld
	if inertiaWorld.Det() <= MACHINE_EPSILON {
		return linear
	}
	l := inertiaWorld.Inv().Mul3x1(b.angularVelocity)
	return linear + 0.5*l.Dot(b.angularVelocity)
}

func outerProduct(a, c mgl64.Vec3) mgl64.Mat3 {
	return mgl64.Mat3{
		a.X() * c.X(), a.Y() * c.X(), a.Z() * c.X(),
		a.X() * c.Y(), a.Y() * c.Y(), a.Z() * c.Y(),
		a.X() * c.Z(), a.Y() * c.Z(), a.Z() * c.Z(),
	}
}

func mat3Sub(a, c mgl64.Mat3) mgl64.Mat3 {
	var out mgl64.Mat3
	for i := range a {
		out[i] = a[i] - c[i]
	}
	return out
}

func mat3Scale(a mgl64.Mat3, s float64) mgl64.Mat3 {
	var out mgl64.Mat3
	for i := range a {
		out[i] = a[i] * s
	}
	return out
}
