package liftline

import "math"

// SectionModel is the sectional aerodynamic model of a wing. The set of models is closed: Foil,
// VaryingFoil and RotatingCylinder. Each needs a different local state, so the line force model
// dispatches on the concrete type instead of going through a uniform call.
type SectionModel interface {
	// Kind names the model for logs and exports.
	Kind() string
	// InitialState is the internal state the wing starts with.
	InitialState() float64
	sectionModel()
}

// sigmoidWidth makes the sigmoid go from 1% to 99% over the given range.
const sigmoidWidth = 4.5951212

// sigmoidZeroToOne is a sigmoid centred at x0 going from zero to one over width.
func sigmoidZeroToOne(x, x0, width float64) float64 {
	return 1 / (1 + math.Exp(-(sigmoidWidth/width)*(x-x0)))
}
