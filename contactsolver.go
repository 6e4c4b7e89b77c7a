package ephysics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	// Baumgarte position correction factor.
	betaBaumgarte = 0.2
	// Split impulse position correction factor.
	betaSplitImpulse = 0.2
	// Allowed penetration before position correction kicks in.
	contactSlop = 0.01
)

// contactPointSolver is the per contact point working state of the solver.
type contactPointSolver struct {
	penetrationImpulse      float64
	penetrationSplitImpulse float64

	normal mgl64.Vec3
	r1     mgl64.Vec3 // contact point relative to body1 center of mass
	r2     mgl64.Vec3

	r1CrossN mgl64.Vec3
	r2CrossN mgl64.Vec3

	penetrationDepth       float64
	restitutionBias        float64
	inversePenetrationMass float64

	isRestingContact bool

	externalContact *ContactPoint
}

// contactManifoldSolver is the per manifold working state. Friction is
// solved once per manifold at the center of the contact points.
type contactManifoldSolver struct {
	indexBody1 int
	indexBody2 int

	massInverseBody1 float64
	massInverseBody2 float64

	inverseInertiaTensorBody1 mgl64.Mat3
	inverseInertiaTensorBody2 mgl64.Mat3

	contacts   [MAX_CONTACT_POINTS_IN_MANIFOLD]contactPointSolver
	nbContacts int

	restitutionFactor       float64
	frictionCoefficient     float64
	rollingResistanceFactor float64

	externalManifold *ContactManifold

	normal mgl64.Vec3

	frictionPointBody1 mgl64.Vec3
	frictionPointBody2 mgl64.Vec3
	r1Friction         mgl64.Vec3
	r2Friction         mgl64.Vec3

	oldFrictionVector1 mgl64.Vec3
	oldFrictionVector2 mgl64.Vec3
	frictionVector1    mgl64.Vec3
	frictionVector2    mgl64.Vec3

	r1CrossT1 mgl64.Vec3
	r1CrossT2 mgl64.Vec3
	r2CrossT1 mgl64.Vec3
	r2CrossT2 mgl64.Vec3

	friction1Mass     float64
	friction2Mass     float64
	frictionTwistMass float64

	friction1Impulse     float64
	friction2Impulse     float64
	frictionTwistImpulse float64

	rollingResistanceImpulse mgl64.Vec3
	inverseRollingResistance mgl64.Mat3
	hasRollingResistance     bool
}

// ContactSolver solves the contact constraints of one island with the
// sequential impulse technique. Velocities are read from and written to the
// world's constrained velocity arrays; split velocities accumulate the pure
// position correction part.
type ContactSolver struct {
	linearVelocities  []mgl64.Vec3
	angularVelocities []mgl64.Vec3

	splitLinearVelocities  []mgl64.Vec3
	splitAngularVelocities []mgl64.Vec3

	manifolds []contactManifoldSolver

	timeStep             float64
	isSplitImpulseActive bool
	isWarmStartingActive bool
	restitutionThreshold float64
}

func newContactSolver() *ContactSolver {
	return &ContactSolver{
		isSplitImpulseActive: true,
		isWarmStartingActive: true,
		restitutionThreshold: RESTITUTION_VELOCITY_THRESHOLD,
	}
}

func (s *ContactSolver) setVelocityArrays(linear, angular, splitLinear, splitAngular []mgl64.Vec3) {
	s.linearVelocities = linear
	s.angularVelocities = angular
	s.splitLinearVelocities = splitLinear
	s.splitAngularVelocities = splitAngular
}

// initializeForIsland builds the solver state for every manifold of an
// island before the velocity iterations.
func (s *ContactSolver) initializeForIsland(dt float64, island *Island) {
	s.timeStep = dt
	s.manifolds = s.manifolds[:0]

	for _, externalManifold := range island.manifolds {
		body1 := bodyToRigid(externalManifold.Body1())
		body2 := bodyToRigid(externalManifold.Body2())

		var m contactManifoldSolver
		m.externalManifold = externalManifold
		m.indexBody1 = body1.arrayIndex
		m.indexBody2 = body2.arrayIndex
		m.massInverseBody1 = body1.massInverse
		m.massInverseBody2 = body2.massInverse
		m.inverseInertiaTensorBody1 = body1.inertiaTensorInverseWorld
		m.inverseInertiaTensorBody2 = body2.inertiaTensorInverseWorld
		m.nbContacts = externalManifold.nbContactPoints
		m.restitutionFactor = mixBounciness(body1.material.bounciness, body2.material.bounciness)
		m.frictionCoefficient = mixFriction(body1.material.frictionCoefficient, body2.material.frictionCoefficient)
		m.rollingResistanceFactor = mixRollingResistance(body1.material.rollingResistance, body2.material.rollingResistance)

		x1 := body1.centerOfMassWorld
		x2 := body2.centerOfMassWorld

		v1 := s.linearVelocities[m.indexBody1]
		w1 := s.angularVelocities[m.indexBody1]
		v2 := s.linearVelocities[m.indexBody2]
		w2 := s.angularVelocities[m.indexBody2]

		for c := 0; c < m.nbContacts; c++ {
			externalContact := externalManifold.contactPoints[c]
			point := &m.contacts[c]

			p1 := externalContact.worldPointBody1
			p2 := externalContact.worldPointBody2

			point.externalContact = externalContact
			point.normal = externalContact.normal
			point.r1 = p1.Sub(x1)
			point.r2 = p2.Sub(x2)
			point.penetrationDepth = externalContact.penetrationDepth
			point.isRestingContact = externalContact.isRestingContact
			externalContact.isRestingContact = true

			point.r1CrossN = point.r1.Cross(point.normal)
			point.r2CrossN = point.r2.Cross(point.normal)

			massPenetration := m.massInverseBody1 + m.massInverseBody2 +
				m.inverseInertiaTensorBody1.Mul3x1(point.r1CrossN).Cross(point.r1).Dot(point.normal) +
				m.inverseInertiaTensorBody2.Mul3x1(point.r2CrossN).Cross(point.r2).Dot(point.normal)
			point.inversePenetrationMass = 0
			if massPenetration > 0 {
				point.inversePenetrationMass = 1.0 / massPenetration
			}

			deltaV := v2.Add(w2.Cross(point.r2)).Sub(v1).Sub(w1.Cross(point.r1))
			deltaVDotN := deltaV.Dot(point.normal)
			point.restitutionBias = 0
			if deltaVDotN < -s.restitutionThreshold {
				point.restitutionBias = m.restitutionFactor * deltaVDotN
			}

			if s.isWarmStartingActive {
				point.penetrationImpulse = externalContact.penetrationImpulse
			}
			point.penetrationSplitImpulse = 0

			m.frictionPointBody1 = m.frictionPointBody1.Add(p1)
			m.frictionPointBody2 = m.frictionPointBody2.Add(p2)
			m.normal = m.normal.Add(point.normal)
		}

		m.frictionPointBody1 = m.frictionPointBody1.Mul(1.0 / float64(m.nbContacts))
		m.frictionPointBody2 = m.frictionPointBody2.Mul(1.0 / float64(m.nbContacts))
		m.normal = m.normal.Normalize()

		m.r1Friction = m.frictionPointBody1.Sub(x1)
		m.r2Friction = m.frictionPointBody2.Sub(x2)

		m.oldFrictionVector1 = externalManifold.frictionVector1
		m.oldFrictionVector2 = externalManifold.frictionVector2

		if s.isWarmStartingActive {
			m.friction1Impulse = externalManifold.frictionImpulse1
			m.friction2Impulse = externalManifold.frictionImpulse2
			m.frictionTwistImpulse = externalManifold.frictionTwistImpulse
			m.rollingResistanceImpulse = externalManifold.rollingResistanceImpulse
		}

		deltaVFriction := v2.Add(w2.Cross(m.r2Friction)).Sub(v1).Sub(w1.Cross(m.r1Friction))
		s.computeFrictionVectors(deltaVFriction, &m)

		m.r1CrossT1 = m.r1Friction.Cross(m.frictionVector1)
		m.r1CrossT2 = m.r1Friction.Cross(m.frictionVector2)
		m.r2CrossT1 = m.r2Friction.Cross(m.frictionVector1)
		m.r2CrossT2 = m.r2Friction.Cross(m.frictionVector2)

		friction1Mass := m.massInverseBody1 + m.massInverseBody2 +
			m.inverseInertiaTensorBody1.Mul3x1(m.r1CrossT1).Cross(m.r1Friction).Dot(m.frictionVector1) +
			m.inverseInertiaTensorBody2.Mul3x1(m.r2CrossT1).Cross(m.r2Friction).Dot(m.frictionVector1)
		friction2Mass := m.massInverseBody1 + m.massInverseBody2 +
			m.inverseInertiaTensorBody1.Mul3x1(m.r1CrossT2).Cross(m.r1Friction).Dot(m.frictionVector2) +
			m.inverseInertiaTensorBody2.Mul3x1(m.r2CrossT2).Cross(m.r2Friction).Dot(m.frictionVector2)
		frictionTwistMass := m.normal.Dot(m.inverseInertiaTensorBody1.Mul3x1(m.normal)) +
			m.normal.Dot(m.inverseInertiaTensorBody2.Mul3x1(m.normal))

		m.friction1Mass, m.friction2Mass, m.frictionTwistMass = 0, 0, 0
		if friction1Mass > 0 {
			m.friction1Mass = 1.0 / friction1Mass
		}
		if friction2Mass > 0 {
			m.friction2Mass = 1.0 / friction2Mass
		}
		if frictionTwistMass > 0 {
			m.frictionTwistMass = 1.0 / frictionTwistMass
		}

		if m.rollingResistanceFactor > 0 {
			rollingMass := mat3Add(m.inverseInertiaTensorBody1, m.inverseInertiaTensorBody2)
			if rollingMass.Det() > MACHINE_EPSILON {
				m.inverseRollingResistance = rollingMass.Inv()
				m.hasRollingResistance = true
			}
		}

		s.manifolds = append(s.manifolds, m)
	}
}

// computeFrictionVectors picks two tangents at the manifold center, the
// first aligned with the tangential relative velocity when there is one.
func (s *ContactSolver) computeFrictionVectors(deltaV mgl64.Vec3, m *contactManifoldSolver) {
	normalVelocity := m.normal.Mul(deltaV.Dot(m.normal))
	tangentVelocity := deltaV.Sub(normalVelocity)

	if tangentVelocity.Dot(tangentVelocity) > MACHINE_EPSILON {
		m.frictionVector1 = tangentVelocity.Normalize()
	} else {
		m.frictionVector1 = orthoVector(m.normal)
	}
	m.frictionVector2 = m.normal.Cross(m.frictionVector1).Normalize()
}

// warmStart applies the impulses cached from the previous step so the
// iterations start near the converged solution.
func (s *ContactSolver) warmStart() {
	if !s.isWarmStartingActive {
		return
	}

	for i := range s.manifolds {
		m := &s.manifolds[i]

		for c := 0; c < m.nbContacts; c++ {
			point := &m.contacts[c]

			if point.isRestingContact {
				s.applyImpulse(m,
					point.normal.Mul(-point.penetrationImpulse),
					point.r1CrossN.Mul(-point.penetrationImpulse),
					point.normal.Mul(point.penetrationImpulse),
					point.r2CrossN.Mul(point.penetrationImpulse))
			} else {
				point.penetrationImpulse = 0
			}
		}

		// Project the cached friction impulses onto the new tangents.
		oldImpulse := m.oldFrictionVector1.Mul(m.friction1Impulse).
			Add(m.oldFrictionVector2.Mul(m.friction2Impulse))
		m.friction1Impulse = oldImpulse.Dot(m.frictionVector1)
		m.friction2Impulse = oldImpulse.Dot(m.frictionVector2)

		s.applyImpulse(m,
			m.frictionVector1.Mul(-m.friction1Impulse),
			m.r1CrossT1.Mul(-m.friction1Impulse),
			m.frictionVector1.Mul(m.friction1Impulse),
			m.r2CrossT1.Mul(m.friction1Impulse))

		s.applyImpulse(m,
			m.frictionVector2.Mul(-m.friction2Impulse),
			m.r1CrossT2.Mul(-m.friction2Impulse),
			m.frictionVector2.Mul(m.friction2Impulse),
			m.r2CrossT2.Mul(m.friction2Impulse))

		s.applyImpulse(m, mgl64.Vec3{},
			m.normal.Mul(-m.frictionTwistImpulse),
			mgl64.Vec3{},
			m.normal.Mul(m.frictionTwistImpulse))

		if m.hasRollingResistance {
			s.applyImpulse(m, mgl64.Vec3{},
				m.rollingResistanceImpulse.Mul(-1),
				mgl64.Vec3{},
				m.rollingResistanceImpulse)
		}
	}
}

func (s *ContactSolver) applyImpulse(m *contactManifoldSolver, linear1, angular1, linear2, angular2 mgl64.Vec3) {
	s.linearVelocities[m.indexBody1] = s.linearVelocities[m.indexBody1].Add(linear1.Mul(m.massInverseBody1))
	s.angularVelocities[m.indexBody1] = s.angularVelocities[m.indexBody1].Add(m.inverseInertiaTensorBody1.Mul3x1(angular1))
	s.linearVelocities[m.indexBody2] = s.linearVelocities[m.indexBody2].Add(linear2.Mul(m.massInverseBody2))
	s.angularVelocities[m.indexBody2] = s.angularVelocities[m.indexBody2].Add(m.inverseInertiaTensorBody2.Mul3x1(angular2))
}

func (s *ContactSolver) applySplitImpulse(m *contactManifoldSolver, linear1, angular1, linear2, angular2 mgl64.Vec3) {
	s.splitLinearVelocities[m.indexBody1] = s.splitLinearVelocities[m.indexBody1].Add(linear1.Mul(m.massInverseBody1))
	s.splitAngularVelocities[m.indexBody1] = s.splitAngularVelocities[m.indexBody1].Add(m.inverseInertiaTensorBody1.Mul3x1(angular1))
	s.splitLinearVelocities[m.indexBody2] = s.splitLinearVelocities[m.indexBody2].Add(linear2.Mul(m.massInverseBody2))
	s.splitAngularVelocities[m.indexBody2] = s.splitAngularVelocities[m.indexBody2].Add(m.inverseInertiaTensorBody2.Mul3x1(angular2))
}

// solve runs one velocity iteration over every manifold: the penetration
// constraint of each point, then friction, twist and rolling resistance at
// the manifold center clamped by the total normal impulse.
func (s *ContactSolver) solve() {
	for i := range s.manifolds {
		m := &s.manifolds[i]
		sumPenetrationImpulse := 0.0

		v1 := s.linearVelocities[m.indexBody1]
		w1 := s.angularVelocities[m.indexBody1]
		v2 := s.linearVelocities[m.indexBody2]
		w2 := s.angularVelocities[m.indexBody2]

		for c := 0; c < m.nbContacts; c++ {
			point := &m.contacts[c]

			deltaV := v2.Add(w2.Cross(point.r2)).Sub(v1).Sub(w1.Cross(point.r1))
			deltaVDotN := deltaV.Dot(point.normal)

			biasPenetrationDepth := 0.0
			if point.penetrationDepth > contactSlop {
				biasPenetrationDepth = -(betaBaumgarte / s.timeStep) *
					math.Max(0, point.penetrationDepth-contactSlop)
			}
			b := biasPenetrationDepth + point.restitutionBias
			if s.isSplitImpulseActive {
				b = point.restitutionBias
			}

			deltaLambda := -(deltaVDotN + b) * point.inversePenetrationMass
			lambdaTemp := point.penetrationImpulse
			point.penetrationImpulse = math.Max(point.penetrationImpulse+deltaLambda, 0)
			deltaLambda = point.penetrationImpulse - lambdaTemp

			s.applyImpulse(m,
				point.normal.Mul(-deltaLambda),
				point.r1CrossN.Mul(-deltaLambda),
				point.normal.Mul(deltaLambda),
				point.r2CrossN.Mul(deltaLambda))

			v1 = s.linearVelocities[m.indexBody1]
			w1 = s.angularVelocities[m.indexBody1]
			v2 = s.linearVelocities[m.indexBody2]
			w2 = s.angularVelocities[m.indexBody2]

			sumPenetrationImpulse += point.penetrationImpulse

			if s.isSplitImpulseActive {
				v1Split := s.splitLinearVelocities[m.indexBody1]
				w1Split := s.splitAngularVelocities[m.indexBody1]
				v2Split := s.splitLinearVelocities[m.indexBody2]
				w2Split := s.splitAngularVelocities[m.indexBody2]

				deltaVSplit := v2Split.Add(w2Split.Cross(point.r2)).
					Sub(v1Split).Sub(w1Split.Cross(point.r1))
				jvSplit := deltaVSplit.Dot(point.normal)

				biasSplit := -(betaSplitImpulse / s.timeStep) *
					math.Max(0, point.penetrationDepth-contactSlop)
				deltaLambdaSplit := -(jvSplit + biasSplit) * point.inversePenetrationMass
				lambdaTempSplit := point.penetrationSplitImpulse
				point.penetrationSplitImpulse = math.Max(point.penetrationSplitImpulse+deltaLambdaSplit, 0)
				deltaLambdaSplit = point.penetrationSplitImpulse - lambdaTempSplit

				s.applySplitImpulse(m,
					point.normal.Mul(-deltaLambdaSplit),
					point.r1CrossN.Mul(-deltaLambdaSplit),
					point.normal.Mul(deltaLambdaSplit),
					point.r2CrossN.Mul(deltaLambdaSplit))
			}
		}

		frictionLimit := m.frictionCoefficient * sumPenetrationImpulse

		// First friction direction.
		deltaV := v2.Add(w2.Cross(m.r2Friction)).Sub(v1).Sub(w1.Cross(m.r1Friction))
		jv := deltaV.Dot(m.frictionVector1)
		deltaLambda := -jv * m.friction1Mass
		lambdaTemp := m.friction1Impulse
		m.friction1Impulse = clamp(m.friction1Impulse+deltaLambda, -frictionLimit, frictionLimit)
		deltaLambda = m.friction1Impulse - lambdaTemp

		s.applyImpulse(m,
			m.frictionVector1.Mul(-deltaLambda),
			m.r1CrossT1.Mul(-deltaLambda),
			m.frictionVector1.Mul(deltaLambda),
			m.r2CrossT1.Mul(deltaLambda))

		v1 = s.linearVelocities[m.indexBody1]
		w1 = s.angularVelocities[m.indexBody1]
		v2 = s.linearVelocities[m.indexBody2]
		w2 = s.angularVelocities[m.indexBody2]

		// Second friction direction.
		deltaV = v2.Add(w2.Cross(m.r2Friction)).Sub(v1).Sub(w1.Cross(m.r1Friction))
		jv = deltaV.Dot(m.frictionVector2)
		deltaLambda = -jv * m.friction2Mass
		lambdaTemp = m.friction2Impulse
		m.friction2Impulse = clamp(m.friction2Impulse+deltaLambda, -frictionLimit, frictionLimit)
		deltaLambda = m.friction2Impulse - lambdaTemp

		s.applyImpulse(m,
			m.frictionVector2.Mul(-deltaLambda),
			m.r1CrossT2.Mul(-deltaLambda),
			m.frictionVector2.Mul(deltaLambda),
			m.r2CrossT2.Mul(deltaLambda))

		w1 = s.angularVelocities[m.indexBody1]
		w2 = s.angularVelocities[m.indexBody2]

		// Twist friction around the contact normal.
		jv = w2.Sub(w1).Dot(m.normal)
		deltaLambda = -jv * m.frictionTwistMass
		lambdaTemp = m.frictionTwistImpulse
		m.frictionTwistImpulse = clamp(m.frictionTwistImpulse+deltaLambda, -frictionLimit, frictionLimit)
		deltaLambda = m.frictionTwistImpulse - lambdaTemp

		s.applyImpulse(m, mgl64.Vec3{},
			m.normal.Mul(-deltaLambda),
			mgl64.Vec3{},
			m.normal.Mul(deltaLambda))

		// Rolling resistance.
		if m.hasRollingResistance {
			w1 = s.angularVelocities[m.indexBody1]
			w2 = s.angularVelocities[m.indexBody2]

			jvRolling := w2.Sub(w1)
			deltaRolling := m.inverseRollingResistance.Mul3x1(jvRolling.Mul(-1))
			rollingLimit := m.rollingResistanceFactor * sumPenetrationImpulse

			before := m.rollingResistanceImpulse
			m.rollingResistanceImpulse = clampVectorLength(before.Add(deltaRolling), rollingLimit)
			deltaRolling = m.rollingResistanceImpulse.Sub(before)

			s.applyImpulse(m, mgl64.Vec3{},
				deltaRolling.Mul(-1),
				mgl64.Vec3{},
				deltaRolling)
		}
	}
}

// storeImpulses writes the accumulated impulses back into the manifolds so
// the next step can warm start from them.
func (s *ContactSolver) storeImpulses() {
	for i := range s.manifolds {
		m := &s.manifolds[i]

		for c := 0; c < m.nbContacts; c++ {
			m.contacts[c].externalContact.penetrationImpulse = m.contacts[c].penetrationImpulse
		}
		m.externalManifold.frictionImpulse1 = m.friction1Impulse
		m.externalManifold.frictionImpulse2 = m.friction2Impulse
		m.externalManifold.frictionTwistImpulse = m.frictionTwistImpulse
		m.externalManifold.rollingResistanceImpulse = m.rollingResistanceImpulse
		m.externalManifold.frictionVector1 = m.frictionVector1
		m.externalManifold.frictionVector2 = m.frictionVector2
	}
}

// clampVectorLength limits a vector to the given magnitude.
func clampVectorLength(v mgl64.Vec3, maxLength float64) mgl64.Vec3 {
	lengthSq := v.Dot(v)
	if lengthSq > maxLength*maxLength {
		if lengthSq < MACHINE_EPSILON {
			return mgl64.Vec3{}
		}
		return v.Mul(maxLength / math.Sqrt(lengthSq))
	}
	return v
}
