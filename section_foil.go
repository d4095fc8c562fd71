package liftline

import (
	"fmt"
	"math"
)

// StallModel selects the post-stall lift behaviour of a Foil.
type StallModel uint8

const (
	// HarmonicStall blends towards a flat plate sin(2α) lift after stall.
	HarmonicStall StallModel = iota
	// ConstantLiftStall keeps the lift at its value at the mean stall angle.
	ConstantLiftStall
)

// Foil is a smooth parametric lift and drag model. Angles are in radians.
type Foil struct {
	ClZeroAngle            float64
	ClInitialSlope         float64
	ClHighOrderFactor      float64
	ClHighOrderPower       float64
	ClMaxAfterStall        float64
	CdZeroAngle            float64
	CdSecondOrderFactor    float64
	CdMaxAfterStall        float64
	CdPowerAfterStall      float64
	MeanPositiveStallAngle float64
	MeanNegativeStallAngle float64
	StallRange             float64
	AddedMassFactor        float64
	StallModel             StallModel
}

// NewFoil returns a foil with thin airfoil slope, 20° mean stall angles and a 6° stall range.
func NewFoil() *Foil {
	return &Foil{
		ClInitialSlope:         2 * math.Pi,
		ClMaxAfterStall:        1,
		CdMaxAfterStall:        1,
		CdPowerAfterStall:      1.6,
		MeanPositiveStallAngle: Deg2rad(20),
		MeanNegativeStallAngle: Deg2rad(20),
		StallRange:             Deg2rad(6),
	}
}

// Kind implements SectionModel.
func (f *Foil) Kind() string { return "foil" }

// InitialState implements SectionModel.
func (f *Foil) InitialState() float64 { return 0 }

func (f *Foil) sectionModel() {}

func (f *Foil) String() string {
	return fmt.Sprintf("foil(slope=%.3f, stall=%.1f°/%.1f°)", f.ClInitialSlope, Rad2deg(f.MeanPositiveStallAngle), Rad2deg(f.MeanNegativeStallAngle))
}

// postStallAngle folds the angle into [-π, π] keeping its sign.
func postStallAngle(angle float64) float64 {
	effective := math.Abs(angle)
	for effective > math.Pi {
		effective -= math.Pi
	}
	if angle < 0 {
		return -effective
	}
	return effective
}

func (f *Foil) meanStallAngle(angle float64) float64 {
	if angle >= 0 {
		return math.Abs(f.MeanPositiveStallAngle)
	}
	return math.Abs(f.MeanNegativeStallAngle)
}

// LiftCoefficient returns Cl at the angle of attack.
func (f *Foil) LiftCoefficient(angle float64) float64 {
	pre := f.liftPreStall(angle)
	switch f.StallModel {
	case ConstantLiftStall:
		atStall := f.liftPreStall(f.meanStallAngle(angle) * sign(angle))
		return math.Min(math.Abs(pre), math.Abs(atStall)) * sign(pre)
	default:
		post := f.ClMaxAfterStall * math.Sin(2*postStallAngle(angle))
		return f.blend(angle, pre, post)
	}
}

func (f *Foil) liftPreStall(angle float64) float64 {
	var high float64
	if f.ClHighOrderPower > 0 {
		high = math.Pow(math.Abs(angle), f.ClHighOrderPower) * sign(angle)
	}
	return f.ClZeroAngle + f.ClInitialSlope*angle + f.ClHighOrderFactor*high
}

// DragCoefficient returns Cd at the angle of attack.
func (f *Foil) DragCoefficient(angle float64) float64 {
	pre := f.CdZeroAngle + f.CdSecondOrderFactor*angle*angle
	post := f.CdMaxAfterStall * math.Pow(math.Abs(math.Sin(postStallAngle(angle))), f.CdPowerAfterStall)
	return f.blend(angle, pre, post)
}

// AmountOfStall goes from zero before stall to one after stall.
func (f *Foil) AmountOfStall(angle float64) float64 {
	if f.StallRange <= 0 {
		if math.Abs(angle) > f.meanStallAngle(angle) {
			return 1
		}
		return 0
	}
	return sigmoidZeroToOne(math.Abs(angle), f.meanStallAngle(angle), f.StallRange)
}

func (f *Foil) blend(angle, pre, post float64) float64 {
	s := f.AmountOfStall(angle)
	return pre*(1-s) + s*post
}

// AddedMassCoefficient returns the added mass coefficient for a flow acceleration normal to the
// chord.
func (f *Foil) AddedMassCoefficient(acceleration float64) float64 {
	return f.AddedMassFactor * acceleration
}
