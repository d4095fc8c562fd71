package liftline

import "fmt"

// VaryingFoil interpolates Foil parameters over an internal state, such as a flap angle or a
// suction rate. The internal state of the wing selects the foil.
type VaryingFoil struct {
	VariableData []float64
	Foils        []Foil
	InitialValue float64
}

// Kind implements SectionModel.
func (v *VaryingFoil) Kind() string { return "varying_foil" }

// InitialState implements SectionModel.
func (v *VaryingFoil) InitialState() float64 { return v.InitialValue }

func (v *VaryingFoil) sectionModel() {}

// Validate checks the data is consistent and sorted.
func (v *VaryingFoil) Validate() error {
	if len(v.VariableData) == 0 || len(v.VariableData) != len(v.Foils) {
		return fmt.Errorf("%w: varying foil has %d values and %d foils", ErrMismatchedLengths, len(v.VariableData), len(v.Foils))
	}
	for i := 1; i < len(v.VariableData); i++ {
		if v.VariableData[i] <= v.VariableData[i-1] {
			return fmt.Errorf("%w: varying foil data must be strictly increasing", ErrInvalidSetting)
		}
	}
	return nil
}

// FoilAt returns the foil interpolated at the internal state value.
func (v *VaryingFoil) FoilAt(value float64) *Foil {
	if len(v.Foils) == 1 {
		f := v.Foils[0]
		return &f
	}
	field := func(get func(f *Foil) float64) float64 {
		ys := make([]float64, len(v.Foils))
		for i := range v.Foils {
			ys[i] = get(&v.Foils[i])
		}
		return LinearInterpolation(value, v.VariableData, ys)
	}
	i, frac := bracket(value, v.VariableData)
	stall := v.Foils[i].StallModel
	if frac > 0.5 {
		stall = v.Foils[i+1].StallModel
	}
	return &Foil{
		ClZeroAngle:            field(func(f *Foil) float64 { return f.ClZeroAngle }),
		ClInitialSlope:         field(func(f *Foil) float64 { return f.ClInitialSlope }),
		ClHighOrderFactor:      field(func(f *Foil) float64 { return f.ClHighOrderFactor }),
		ClHighOrderPower:       field(func(f *Foil) float64 { return f.ClHighOrderPower }),
		ClMaxAfterStall:        field(func(f *Foil) float64 { return f.ClMaxAfterStall }),
		CdZeroAngle:            field(func(f *Foil) float64 { return f.CdZeroAngle }),
		CdSecondOrderFactor:    field(func(f *Foil) float64 { return f.CdSecondOrderFactor }),
		CdMaxAfterStall:        field(func(f *Foil) float64 { return f.CdMaxAfterStall }),
		CdPowerAfterStall:      field(func(f *Foil) float64 { return f.CdPowerAfterStall }),
		MeanPositiveStallAngle: field(func(f *Foil) float64 { return f.MeanPositiveStallAngle }),
		MeanNegativeStallAngle: field(func(f *Foil) float64 { return f.MeanNegativeStallAngle }),
		StallRange:             field(func(f *Foil) float64 { return f.StallRange }),
		AddedMassFactor:        field(func(f *Foil) float64 { return f.AddedMassFactor }),
		StallModel:             stall,
	}
}

// LiftCoefficient returns Cl at the angle of attack and internal state.
func (v *VaryingFoil) LiftCoefficient(angle, state float64) float64 {
	return v.FoilAt(state).LiftCoefficient(angle)
}

// DragCoefficient returns Cd at the angle of attack and internal state.
func (v *VaryingFoil) DragCoefficient(angle, state float64) float64 {
	return v.FoilAt(state).DragCoefficient(angle)
}

// AddedMassCoefficient returns the added mass coefficient at the internal state.
func (v *VaryingFoil) AddedMassCoefficient(acceleration, state float64) float64 {
	return v.FoilAt(state).AddedMassCoefficient(acceleration)
}
