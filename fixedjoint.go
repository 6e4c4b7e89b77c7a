package ephysics

import (
	"github.com/go-gl/mathgl/mgl64"
)

// FixedJointInfo describes a fixed joint by its anchor point in world
// space.
type FixedJointInfo struct {
	JointInfo
	AnchorPointWorldSpace mgl64.Vec3
}

// FixedJoint locks all six relative degrees of freedom between two bodies,
// welding them together at the anchor.
type FixedJoint struct {
	jointBase

	localAnchorPointBody1 mgl64.Vec3
	localAnchorPointBody2 mgl64.Vec3

	r1World mgl64.Vec3
	r2World mgl64.Vec3

	i1 mgl64.Mat3
	i2 mgl64.Mat3

	impulseTranslation mgl64.Vec3
	impulseRotation    mgl64.Vec3

	inverseMassMatrixTranslation mgl64.Mat3
	inverseMassMatrixRotation    mgl64.Mat3

	initOrientationDifferenceInv mgl64.Quat
}

func newFixedJoint(info FixedJointInfo) *FixedJoint {
	joint := &FixedJoint{
		jointBase: jointBase{
			body1:            info.Body1,
			body2:            info.Body2,
			jointType:        FIXEDJOINT,
			collisionEnabled: info.IsCollisionEnabled,
		},
	}
	joint.localAnchorPointBody1 = info.Body1.transform.Inverse().Point(info.AnchorPointWorldSpace)
	joint.localAnchorPointBody2 = info.Body2.transform.Inverse().Point(info.AnchorPointWorldSpace)

	diff := info.Body2.transform.Orientation.Mul(info.Body1.transform.Orientation.Inverse())
	joint.initOrientationDifferenceInv = diff.Normalize().Inverse()
	return joint
}

func (j *FixedJoint) initBeforeSolve(data *constraintSolverData) {
	j.i1 = j.body1.inertiaTensorInverseWorld
	j.i2 = j.body2.inertiaTensorInverseWorld

	q1 := j.body1.transform.Orientation
	q2 := j.body2.transform.Orientation

	j.r1World = q1.Rotate(j.localAnchorPointBody1.Sub(j.body1.centerOfMassLocal))
	j.r2World = q2.Rotate(j.localAnchorPointBody2.Sub(j.body2.centerOfMassLocal))

	j.inverseMassMatrixTranslation = j.computeTranslationMassMatrixInverse()
	j.inverseMassMatrixRotation = j.computeRotationMassMatrixInverse()

	if !data.isWarmStartingActive {
		j.impulseTranslation = mgl64.Vec3{}
		j.impulseRotation = mgl64.Vec3{}
	}
}

func (j *FixedJoint) computeTranslationMassMatrixInverse() mgl64.Mat3 {
	skewR1 := skewMat3(j.r1World)
	skewR2 := skewMat3(j.r2World)

	sumInverse := j.body1.massInverse + j.body2.massInverse
	massMatrix := mgl64.Diag3(mgl64.Vec3{sumInverse, sumInverse, sumInverse})
	massMatrix = mat3Add(massMatrix, skewR1.Mul3(j.i1).Mul3(skewR1.Transpose()))
	massMatrix = mat3Add(massMatrix, skewR2.Mul3(j.i2).Mul3(skewR2.Transpose()))

	if massMatrix.Det() > MACHINE_EPSILON {
		return massMatrix.Inv()
	}
	return mgl64.Mat3{}
}

func (j *FixedJoint) computeRotationMassMatrixInverse() mgl64.Mat3 {
	massMatrix := mat3Add(j.i1, j.i2)
	if massMatrix.Det() > MACHINE_EPSILON {
		return massMatrix.Inv()
	}
	return mgl64.Mat3{}
}

func (j *FixedJoint) warmStart(data *constraintSolverData) {
	j.applyTranslationImpulse(data, j.impulseTranslation)
	j.applyRotationImpulse(data, j.impulseRotation)
}

func (j *FixedJoint) applyTranslationImpulse(data *constraintSolverData, lambda mgl64.Vec3) {
	i1 := j.body1.arrayIndex
	i2 := j.body2.arrayIndex

	data.linearVelocities[i1] = data.linearVelocities[i1].Sub(lambda.Mul(j.body1.massInverse))
	data.angularVelocities[i1] = data.angularVelocities[i1].Add(j.i1.Mul3x1(lambda.Cross(j.r1World)))
	data.linearVelocities[i2] = data.linearVelocities[i2].Add(lambda.Mul(j.body2.massInverse))
	data.angularVelocities[i2] = data.angularVelocities[i2].Sub(j.i2.Mul3x1(lambda.Cross(j.r2World)))
}

func (j *FixedJoint) applyRotationImpulse(data *constraintSolverData, lambda mgl64.Vec3) {
	i1 := j.body1.arrayIndex
	i2 := j.body2.arrayIndex

	data.angularVelocities[i1] = data.angularVelocities[i1].Sub(j.i1.Mul3x1(lambda))
	data.angularVelocities[i2] = data.angularVelocities[i2].Add(j.i2.Mul3x1(lambda))
}

func (j *FixedJoint) solveVelocityConstraint(data *constraintSolverData) {
	i1 := j.body1.arrayIndex
	i2 := j.body2.arrayIndex

	v1 := data.linearVelocities[i1]
	w1 := data.angularVelocities[i1]
	v2 := data.linearVelocities[i2]
	w2 := data.angularVelocities[i2]

	jvTranslation := v2.Add(w2.Cross(j.r2World)).Sub(v1).Sub(w1.Cross(j.r1World))
	deltaLambda := j.inverseMassMatrixTranslation.Mul3x1(jvTranslation.Mul(-1))
	j.impulseTranslation = j.impulseTranslation.Add(deltaLambda)
	j.applyTranslationImpulse(data, deltaLambda)

	w1 = data.angularVelocities[i1]
	w2 = data.angularVelocities[i2]

	jvRotation := w2.Sub(w1)
	deltaLambdaRotation := j.inverseMassMatrixRotation.Mul3x1(jvRotation.Mul(-1))
	j.impulseRotation = j.impulseRotation.Add(deltaLambdaRotation)
	j.applyRotationImpulse(data, deltaLambdaRotation)
}

func (j *FixedJoint) solvePositionConstraint(data *constraintSolverData) {
	i1 := j.body1.arrayIndex
	i2 := j.body2.arrayIndex

	x1 := data.positions[i1]
	x2 := data.positions[i2]
	q1 := data.orientations[i1]
	q2 := data.orientations[i2]

	j.r1World = q1.Rotate(j.localAnchorPointBody1.Sub(j.body1.centerOfMassLocal))
	j.r2World = q2.Rotate(j.localAnchorPointBody2.Sub(j.body2.centerOfMassLocal))

	j.i1 = j.body1.inertiaTensorInverseWorld
	j.i2 = j.body2.inertiaTensorInverseWorld
	j.inverseMassMatrixTranslation = j.computeTranslationMassMatrixInverse()
	j.inverseMassMatrixRotation = j.computeRotationMassMatrixInverse()

	// Translation error.
	errorTranslation := x2.Add(j.r2World).Sub(x1).Sub(j.r1World)
	lambda := j.inverseMassMatrixTranslation.Mul3x1(errorTranslation.Mul(-1))

	x1 = x1.Sub(lambda.Mul(j.body1.massInverse))
	q1 = quatIntegrate(q1, j.i1.Mul3x1(lambda.Cross(j.r1World)), 1.0)
	x2 = x2.Add(lambda.Mul(j.body2.massInverse))
	q2 = quatIntegrate(q2, j.i2.Mul3x1(lambda.Cross(j.r2World)).Mul(-1), 1.0)

	// Rotation error from the drift of the initial orientation difference.
	qError := q2.Mul(j.initOrientationDifferenceInv).Mul(q1.Inverse())
	errorRotation := qError.V.Mul(2.0)
	lambdaRotation := j.inverseMassMatrixRotation.Mul3x1(errorRotation.Mul(-1))

	q1 = quatIntegrate(q1, j.i1.Mul3x1(lambdaRotation).Mul(-1), 1.0)
	q2 = quatIntegrate(q2, j.i2.Mul3x1(lambdaRotation), 1.0)

	data.positions[i1] = x1
	data.positions[i2] = x2
	data.orientations[i1] = q1
	data.orientations[i2] = q2
}
