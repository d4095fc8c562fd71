package liftline

import (
	"fmt"
	"math"
)

// Default rotor sail data, lift and drag against spin ratio.
var (
	defaultSpinRatioData = []float64{0, 0.5, 1, 2, 3, 4, 5, 6, 8}
	defaultCylinderCl    = []float64{0, 1.22, 2.56, 5.93, 9.10, 10.77, 12.80, 13.71, 16.90}
	defaultCylinderCd    = []float64{0.457, 0.411, 0.296, 0.093, 0.066, 0.042, 0.064, 0.05, 0.076}
)

// RotatingCylinder is a tabulated rotor sail model. The chord length of the line elements is the
// cylinder diameter and the internal state is the rotational speed in revolutions per second.
type RotatingCylinder struct {
	RevolutionsPerSecond float64
	SpinRatioData        []float64
	ClData               []float64
	CdData               []float64
	AddedMassFactor      float64
	MomentOfInertia2D    float64
}

// NewRotatingCylinder returns a cylinder with the default experimental tables.
func NewRotatingCylinder(rps float64) *RotatingCylinder {
	c := &RotatingCylinder{RevolutionsPerSecond: rps}
	c.SpinRatioData = append(c.SpinRatioData, defaultSpinRatioData...)
	c.ClData = append(c.ClData, defaultCylinderCl...)
	c.CdData = append(c.CdData, defaultCylinderCd...)
	return c
}

// Kind implements SectionModel.
func (c *RotatingCylinder) Kind() string { return "rotating_cylinder" }

// InitialState implements SectionModel.
func (c *RotatingCylinder) InitialState() float64 { return c.RevolutionsPerSecond }

func (c *RotatingCylinder) sectionModel() {}

func (c *RotatingCylinder) String() string {
	return fmt.Sprintf("rotating cylinder(rps=%.2f)", c.RevolutionsPerSecond)
}

// Validate checks the tables.
func (c *RotatingCylinder) Validate() error {
	n := len(c.SpinRatioData)
	if n == 0 || len(c.ClData) != n || len(c.CdData) != n {
		return fmt.Errorf("%w: rotating cylinder tables (%d, %d, %d)", ErrMismatchedLengths, n, len(c.ClData), len(c.CdData))
	}
	return nil
}

// SpinRatio returns the ratio of surface speed to flow speed. The sign follows the direction of
// rotation, and is zero without flow.
func SpinRatio(diameter, velocity, rps float64) float64 {
	if velocity == 0 {
		return 0
	}
	return -math.Pi * diameter * rps / velocity
}

// RevolutionsPerSecondFromSpinRatio is the inverse of SpinRatio.
func RevolutionsPerSecondFromSpinRatio(spinRatio, diameter, velocity float64) float64 {
	if diameter == 0 {
		return 0
	}
	return -spinRatio * velocity / (math.Pi * diameter)
}

// LiftCoefficient returns Cl at the spin ratio.
func (c *RotatingCylinder) LiftCoefficient(spinRatio float64) float64 {
	return LinearInterpolation(math.Abs(spinRatio), c.SpinRatioData, c.ClData) * sign(spinRatio)
}

// DragCoefficient returns Cd at the spin ratio.
func (c *RotatingCylinder) DragCoefficient(spinRatio float64) float64 {
	return LinearInterpolation(math.Abs(spinRatio), c.SpinRatioData, c.CdData)
}

// AddedMassCoefficient returns the added mass coefficient.
func (c *RotatingCylinder) AddedMassCoefficient(acceleration float64) float64 {
	return c.AddedMassFactor * acceleration
}
