package ephysics

import "math"

// Default simulation constants. All lengths are in meters, all angles in
// radians. These mirror the tuning the engine was designed around: if your
// bodies are much smaller than ~10cm you probably want a smaller
// ObjectMargin and contact distance threshold.
const (
	// MACHINE_EPSILON is the smallest float difference the geometric
	// algorithms treat as non-zero.
	MACHINE_EPSILON = 1e-9

	// INFINITY is used for "never" thresholds (e.g. sleeping disabled).
	INFINITY = math.MaxFloat64

	// OBJECT_MARGIN is the default collision margin around convex shapes
	// used by GJK/EPA to round off corners.
	OBJECT_MARGIN = 0.04

	// DYNAMIC_TREE_AABB_GAP is the constant inflation applied to AABBs
	// stored in the broad-phase tree.
	DYNAMIC_TREE_AABB_GAP = 0.1

	// DYNAMIC_TREE_AABB_LIN_GAP_MULTIPLIER scales the displacement-biased
	// inflation so fast shapes stay inside their fat AABB a little longer.
	DYNAMIC_TREE_AABB_LIN_GAP_MULTIPLIER = 1.7

	// MAX_CONTACT_POINTS_IN_MANIFOLD caps the persistent contact cache.
	MAX_CONTACT_POINTS_IN_MANIFOLD = 4

	// PERSISTENT_CONTACT_DIST_THRESHOLD is both the coalescing distance for
	// new contact points and the drift distance at which cached points are
	// dropped.
	PERSISTENT_CONTACT_DIST_THRESHOLD = 0.03

	// RESTITUTION_VELOCITY_THRESHOLD is the relative normal speed under
	// which no restitution is applied (resting contact).
	RESTITUTION_VELOCITY_THRESHOLD = 1.0

	DEFAULT_VELOCITY_SOLVER_ITERATIONS = 10
	DEFAULT_POSITION_SOLVER_ITERATIONS = 5

	DEFAULT_SLEEP_LINEAR_VELOCITY  = 0.02
	DEFAULT_SLEEP_ANGULAR_VELOCITY = 3.0 * (math.Pi / 180.0)
	DEFAULT_TIME_BEFORE_SLEEP      = 1.0

	DEFAULT_FRICTION_COEFFICIENT = 0.3
	DEFAULT_BOUNCINESS           = 0.5
	DEFAULT_ROLLING_RESISTANCE   = 0.0
)

// WorldSettings bundles the solver and sleeping configuration of a world.
// It is passed explicitly at world creation so several worlds can run with
// independent tuning.
type WorldSettings struct {
	VelocitySolverIterations int
	PositionSolverIterations int

	IsSleepingEnabled    bool
	SleepLinearVelocity  float64
	SleepAngularVelocity float64
	TimeBeforeSleep      float64

	IsWarmStartingEnabled bool
	IsSplitImpulseEnabled bool
}

// DefaultWorldSettings returns the tuning the engine was validated with.
func DefaultWorldSettings() WorldSettings {
	return WorldSettings{
		VelocitySolverIterations: DEFAULT_VELOCITY_SOLVER_ITERATIONS,
		PositionSolverIterations: DEFAULT_POSITION_SOLVER_ITERATIONS,
		IsSleepingEnabled:        true,
		SleepLinearVelocity:      DEFAULT_SLEEP_LINEAR_VELOCITY,
		SleepAngularVelocity:     DEFAULT_SLEEP_ANGULAR_VELOCITY,
		TimeBeforeSleep:          DEFAULT_TIME_BEFORE_SLEEP,
		IsWarmStartingEnabled:    true,
		IsSplitImpulseEnabled:    true,
	}
}
