package actuator

import (
	"fmt"
	"math"

	liftline "github.com/NTNU-IMT/stormbird-sub000"
	"github.com/NTNU-IMT/stormbird-sub000/vortex"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

// TipCorrection adds to the sampled velocity the difference between the velocity induced by a
// lifting line wake and by a wake with a core as wide as the projection kernel. The flow field
// only resolves the smeared wake, so the difference restores the tip loss it misses. Each wing is
// treated on its own.
type TipCorrection struct {
	// ViscousCoreFactor is the core of the smeared wake in mean chord lengths. Zero uses the chord
	// factor of the projection kernel.
	ViscousCoreFactor float64
	WakeLengthFactor  float64
	Damping           float64
	Iterations        int

	sharp, smeared *liftline.QuasiSteadyWake
	estimate       []r3.Vec
}

// NewTipCorrection returns legs of 100 chords, a damping of 0.1 and 20 iterations per step.
func NewTipCorrection() *TipCorrection {
	return &TipCorrection{WakeLengthFactor: 100, Damping: 0.1, Iterations: 20}
}

// Validate checks the settings.
func (t *TipCorrection) Validate() error {
	if t.WakeLengthFactor <= 0 || t.Damping <= 0 || t.Damping > 1 || t.Iterations < 1 || t.ViscousCoreFactor < 0 {
		return fmt.Errorf("%w: tip correction %+v", liftline.ErrInvalidSetting, *t)
	}
	return nil
}

// sharpCoreFactor is the core of the lifting line wake in mean chord lengths. It only keeps the
// kernel finite.
const sharpCoreFactor = 1e-3

func (t *TipCorrection) init(m *liftline.LineForceModel, kernel Gaussian) {
	core := t.ViscousCoreFactor
	if core == 0 {
		core = kernel.ChordFactor
	}
	meanChord := floats.Sum(m.ChordLengths()) / float64(m.NrSpanLines())
	t.sharp = liftline.NewQuasiSteadyWake(liftline.QuasiSteadyWakeSettings{
		WakeLengthFactor: t.WakeLengthFactor,
		ViscousCore:      vortex.Absolute(sharpCoreFactor * meanChord),
		IsolateWings:     true,
	})
	t.smeared = liftline.NewQuasiSteadyWake(liftline.QuasiSteadyWakeSettings{
		WakeLengthFactor: t.WakeLengthFactor,
		ViscousCore:      vortex.Absolute(core * meanChord),
		IsolateWings:     true,
	})
	t.estimate = make([]r3.Vec, m.NrSpanLines())
}

// apply returns the corrected velocity. The estimate is kept between steps.
func (t *TipCorrection) apply(m *liftline.LineForceModel, velocity []r3.Vec) []r3.Vec {
	sharp := t.sharp.Freeze(m, velocity)
	smeared := t.smeared.Freeze(m, velocity)
	corrected := make([]r3.Vec, len(velocity))
	for k := 0; k < t.Iterations; k++ {
		for i := range velocity {
			corrected[i] = r3.Add(velocity[i], t.estimate[i])
		}
		gamma := m.CirculationStrength(corrected)
		us := sharp.InducedVelocities(gamma)
		uw := smeared.InducedVelocities(gamma)
		for i := range t.estimate {
			diff := r3.Sub(us[i], uw[i])
			t.estimate[i] = r3.Add(t.estimate[i], r3.Scale(t.Damping, r3.Sub(diff, t.estimate[i])))
		}
	}
	for i := range velocity {
		corrected[i] = r3.Add(velocity[i], t.estimate[i])
	}
	return corrected
}

// EmpiricalCorrection scales the circulation towards zero at free wing ends with
// f(s) = OverallFactor·(2/π)·acos(exp(-ExpFactor·(0.5-|s|))), s being the effective relative
// span distance.
type EmpiricalCorrection struct {
	ExpFactor     float64
	OverallFactor float64
}

// NewEmpiricalCorrection returns an exponent factor of 10 and no overall scaling.
func NewEmpiricalCorrection() *EmpiricalCorrection {
	return &EmpiricalCorrection{ExpFactor: 10, OverallFactor: 1}
}

// Factor returns f(s).
func (e *EmpiricalCorrection) Factor(s float64) float64 {
	d := 0.5 - math.Abs(s)
	if d <= 0 {
		return 0
	}
	return e.OverallFactor * 2 / math.Pi * math.Acos(math.Exp(-e.ExpFactor*d))
}

func (e *EmpiricalCorrection) apply(m *liftline.LineForceModel, gamma []float64) {
	for i, s := range m.EffectiveRelativeSpanDistance() {
		gamma[i] *= e.Factor(s)
	}
}
