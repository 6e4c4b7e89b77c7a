package ephysics

import (
	"github.com/go-gl/mathgl/mgl64"
)

// ConstraintSolver drives the joints of one island: one init and warm start
// per step, then one call per velocity iteration and one per position
// iteration.
type ConstraintSolver struct {
	data constraintSolverData
}

func newConstraintSolver() *ConstraintSolver {
	return &ConstraintSolver{
		data: constraintSolverData{isWarmStartingActive: true},
	}
}

func (s *ConstraintSolver) setVelocityArrays(linear, angular []mgl64.Vec3) {
	s.data.linearVelocities = linear
	s.data.angularVelocities = angular
}

func (s *ConstraintSolver) setPositionArrays(positions []mgl64.Vec3, orientations []mgl64.Quat) {
	s.data.positions = positions
	s.data.orientations = orientations
}

func (s *ConstraintSolver) initializeForIsland(dt float64, island *Island) {
	s.data.timeStep = dt
	for _, joint := range island.joints {
		joint.initBeforeSolve(&s.data)
		if s.data.isWarmStartingActive {
			joint.warmStart(&s.data)
		}
	}
}

func (s *ConstraintSolver) solveVelocityConstraints(island *Island) {
	for _, joint := range island.joints {
		joint.solveVelocityConstraint(&s.data)
	}
}

func (s *ConstraintSolver) solvePositionConstraints(island *Island) {
	for _, joint := range island.joints {
		joint.solvePositionConstraint(&s.data)
	}
}
