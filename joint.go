package ephysics

import (
	"github.com/go-gl/mathgl/mgl64"
)

type JointType int

const (
	BALLSOCKETJOINT JointType = iota
	FIXEDJOINT
)

// constraintSolverData is the per step state shared with the joints while
// they are solved: the constrained velocity arrays for the velocity solver
// and the constrained positions and orientations for the position solver.
type constraintSolverData struct {
	timeStep float64

	linearVelocities  []mgl64.Vec3
	angularVelocities []mgl64.Vec3

	positions    []mgl64.Vec3
	orientations []mgl64.Quat

	isWarmStartingActive bool
}

// Joint is a constraint between two rigid bodies.
type Joint interface {
	Body1() *RigidBody
	Body2() *RigidBody
	Type() JointType

	// IsCollisionEnabled reports whether the two jointed bodies still
	// collide with each other.
	IsCollisionEnabled() bool

	initBeforeSolve(data *constraintSolverData)
	warmStart(data *constraintSolverData)
	solveVelocityConstraint(data *constraintSolverData)
	solvePositionConstraint(data *constraintSolverData)

	isInIsland() bool
	setInIsland(bool)
}

// JointInfo carries the construction parameters common to all joints.
type JointInfo struct {
	Body1              *RigidBody
	Body2              *RigidBody
	IsCollisionEnabled bool
}

type jointBase struct {
	body1     *RigidBody
	body2     *RigidBody
	jointType JointType

	collisionEnabled  bool
	isAlreadyInIsland bool
}

func (j *jointBase) Body1() *RigidBody        { return j.body1 }
func (j *jointBase) Body2() *RigidBody        { return j.body2 }
func (j *jointBase) Type() JointType          { return j.jointType }
func (j *jointBase) IsCollisionEnabled() bool { return j.collisionEnabled }
func (j *jointBase) isInIsland() bool         { return j.isAlreadyInIsland }
func (j *jointBase) setInIsland(in bool)      { j.isAlreadyInIsland = in }
