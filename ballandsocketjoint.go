package ephysics

import (
	"github.com/go-gl/mathgl/mgl64"
)

// BallAndSocketJointInfo describes a ball and socket joint by its anchor
// point in world space.
type BallAndSocketJointInfo struct {
	JointInfo
	AnchorPointWorldSpace mgl64.Vec3
}

// BallAndSocketJoint removes the three relative translation degrees of
// freedom between two bodies around a common anchor point.
type BallAndSocketJoint struct {
	jointBase

	localAnchorPointBody1 mgl64.Vec3
	localAnchorPointBody2 mgl64.Vec3

	r1World mgl64.Vec3
	r2World mgl64.Vec3

	i1 mgl64.Mat3
	i2 mgl64.Mat3

	inverseMassMatrix mgl64.Mat3
	impulse           mgl64.Vec3
}

func newBallAndSocketJoint(info BallAndSocketJointInfo) *BallAndSocketJoint {
	joint := &BallAndSocketJoint{
		jointBase: jointBase{
			body1:            info.Body1,
			body2:            info.Body2,
			jointType:        BALLSOCKETJOINT,
			collisionEnabled: info.IsCollisionEnabled,
		},
	}
	joint.localAnchorPointBody1 = info.Body1.transform.Inverse().Point(info.AnchorPointWorldSpace)
	joint.localAnchorPointBody2 = info.Body2.transform.Inverse().Point(info.AnchorPointWorldSpace)
	return joint
}

func (j *BallAndSocketJoint) initBeforeSolve(data *constraintSolverData) {
	j.i1 = j.body1.inertiaTensorInverseWorld
	j.i2 = j.body2.inertiaTensorInverseWorld

	q1 := j.body1.transform.Orientation
	q2 := j.body2.transform.Orientation

	j.r1World = q1.Rotate(j.localAnchorPointBody1.Sub(j.body1.centerOfMassLocal))
	j.r2World = q2.Rotate(j.localAnchorPointBody2.Sub(j.body2.centerOfMassLocal))

	j.inverseMassMatrix = j.computeMassMatrixInverse()

	if !data.isWarmStartingActive {
		j.impulse = mgl64.Vec3{}
	}
}

// computeMassMatrixInverse builds K^-1 for the point-to-point constraint:
// K = (1/m1 + 1/m2) Id + skew(r1) I1 skew(r1)^T + skew(r2) I2 skew(r2)^T.
func (j *BallAndSocketJoint) computeMassMatrixInverse() mgl64.Mat3 {
	skewR1 := skewMat3(j.r1World)
	skewR2 := skewMat3(j.r2World)

	massMatrix := mgl64.Diag3(mgl64.Vec3{
		j.body1.massInverse + j.body2.massInverse,
		j.body1.massInverse + j.body2.massInverse,
		j.body1.massInverse + j.body2.massInverse,
	})
	massMatrix = mat3Add(massMatrix, skewR1.Mul3(j.i1).Mul3(skewR1.Transpose()))
	massMatrix = mat3Add(massMatrix, skewR2.Mul3(j.i2).Mul3(skewR2.Transpose()))

	if massMatrix.Det() > MACHINE_EPSILON {
		return massMatrix.Inv()
	}
	return mgl64.Mat3{}
}

func (j *BallAndSocketJoint) warmStart(data *constraintSolverData) {
	j.applyImpulse(data, j.impulse)
}

func (j *BallAndSocketJoint) applyImpulse(data *constraintSolverData, lambda mgl64.Vec3) {
	i1 := j.body1.arrayIndex
	i2 := j.body2.arrayIndex

	data.linearVelocities[i1] = data.linearVelocities[i1].Sub(lambda.Mul(j.body1.massInverse))
	data.angularVelocities[i1] = data.angularVelocities[i1].Add(j.i1.Mul3x1(lambda.Cross(j.r1World)))
	data.linearVelocities[i2] = data.linearVelocities[i2].Add(lambda.Mul(j.body2.massInverse))
	data.angularVelocities[i2] = data.angularVelocities[i2].Sub(j.i2.Mul3x1(lambda.Cross(j.r2World)))
}

func (j *BallAndSocketJoint) solveVelocityConstraint(data *constraintSolverData) {
	i1 := j.body1.arrayIndex
	i2 := j.body2.arrayIndex

	v1 := data.linearVelocities[i1]
	w1 := data.angularVelocities[i1]
	v2 := data.linearVelocities[i2]
	w2 := data.angularVelocities[i2]

	jv := v2.Add(w2.Cross(j.r2World)).Sub(v1).Sub(w1.Cross(j.r1World))

	deltaLambda := j.inverseMassMatrix.Mul3x1(jv.Mul(-1))
	j.impulse = j.impulse.Add(deltaLambda)

	j.applyImpulse(data, deltaLambda)
}

// solvePositionConstraint corrects the anchor drift directly on positions
// and orientations (non-linear Gauss-Seidel).
func (j *BallAndSocketJoint) solvePositionConstraint(data *constraintSolverData) {
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
	j.inverseMassMatrix = j.computeMassMatrixInverse()

	constraintError := x2.Add(j.r2World).Sub(x1).Sub(j.r1World)
	lambda := j.inverseMassMatrix.Mul3x1(constraintError.Mul(-1))

	// Apply the pseudo impulse to the positions.
	v1 := lambda.Mul(-j.body1.massInverse)
	w1 := j.i1.Mul3x1(lambda.Cross(j.r1World))
	x1 = x1.Add(v1)
	q1 = quatIntegrate(q1, w1, 1.0)

	v2 := lambda.Mul(j.body2.massInverse)
	w2 := j.i2.Mul3x1(lambda.Cross(j.r2World)).Mul(-1)
	x2 = x2.Add(v2)
	q2 = quatIntegrate(q2, w2, 1.0)

	data.positions[i1] = x1
	data.positions[i2] = x2
	data.orientations[i1] = q1
	data.orientations[i2] = q2
}
