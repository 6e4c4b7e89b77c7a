package ephysics

import "math"

// Material holds the surface response properties of a rigid body. Values are
// mixed pairwise by the contact solver when two bodies touch.
type Material struct {
	frictionCoefficient float64
	rollingResistance   float64
	bounciness          float64
}

func NewMaterial() Material {
	return Material{
		frictionCoefficient: DEFAULT_FRICTION_COEFFICIENT,
		rollingResistance:   DEFAULT_ROLLING_RESISTANCE,
		bounciness:          DEFAULT_BOUNCINESS,
	}
}

func (m *Material) Bounciness() float64 { return m.bounciness }

// SetBounciness sets the restitution in [0, 1].
func (m *Material) SetBounciness(bounciness float64) {
	if bounciness < 0 {
		bounciness = 0
	} else if bounciness > 1 {
		bounciness = 1
	}
	m.bounciness = bounciness
}

func (m *Material) FrictionCoefficient() float64 { return m.frictionCoefficient }

func (m *Material) SetFrictionCoefficient(friction float64) {
	if friction < 0 {
		friction = 0
	}
	m.frictionCoefficient = friction
}

func (m *Material) RollingResistance() float64 { return m.rollingResistance }

func (m *Material) SetRollingResistance(resistance float64) {
	if resistance < 0 {
		resistance = 0
	}
	m.rollingResistance = resistance
}

// mixFriction combines two friction coefficients with the geometric mean.
func mixFriction(f1, f2 float64) float64 {
	return math.Sqrt(f1 * f2)
}

// mixBounciness combines two restitutions by taking the larger.
func mixBounciness(b1, b2 float64) float64 {
	return math.Max(b1, b2)
}

// mixRollingResistance combines two rolling resistances with the average.
func mixRollingResistance(r1, r2 float64) float64 {
	return 0.5 * (r1 + r2)
}
