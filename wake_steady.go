package liftline

import (
	"fmt"

	"github.com/NTNU-IMT/stormbird-sub000/vortex"
	"gonum.org/v1/gonum/spatial/r3"
)

// QuasiSteadyWakeSettings configures a horseshoe wake.
type QuasiSteadyWakeSettings struct {
	// WakeLengthFactor is the length of the trailing legs in mean chord lengths of the wing.
	WakeLengthFactor float64
	Symmetry         vortex.SymmetryCondition
	ViscousCore      vortex.ViscousCoreLength
	// IsolateWings ignores the interaction between wings, so that each wing is solved as if alone.
	IsolateWings bool
}

// DefaultQuasiSteadyWakeSettings returns legs of 100 chords and a relative viscous core.
func DefaultQuasiSteadyWakeSettings() QuasiSteadyWakeSettings {
	return QuasiSteadyWakeSettings{WakeLengthFactor: 100, ViscousCore: vortex.DefaultViscousCoreLength()}
}

// Validate checks the settings.
func (s QuasiSteadyWakeSettings) Validate() error {
	if s.WakeLengthFactor <= 0 {
		return fmt.Errorf("%w: wake length factor %f", ErrInvalidSetting, s.WakeLengthFactor)
	}
	return nil
}

// QuasiSteadyWake is a set of horseshoe vortices, one per line element, trailing along the mean
// felt velocity of each wing. It holds no history: the horseshoes are rebuilt on every step.
type QuasiSteadyWake struct {
	Settings QuasiSteadyWakeSettings

	horseshoes []vortex.Horseshoe
	strengths  []float64
}

// NewQuasiSteadyWake returns an empty wake with the given settings.
func NewQuasiSteadyWake(s QuasiSteadyWakeSettings) *QuasiSteadyWake {
	return &QuasiSteadyWake{Settings: s}
}

// Kind implements Wake.
func (w *QuasiSteadyWake) Kind() string { return "quasi_steady" }

// Points implements Wake. The legs follow the control point flow, so no extra points are needed.
func (w *QuasiSteadyWake) Points() []r3.Vec { return nil }

// Horseshoes returns the current horseshoe vortices.
func (w *QuasiSteadyWake) Horseshoes() []vortex.Horseshoe { return w.horseshoes }

func (w *QuasiSteadyWake) updateBeforeSolving(m *LineForceModel, felt []r3.Vec, _ float64) {
	dirs := wakeDirections(m, felt)
	lines := m.SpanLines()
	meanChord := m.WingAveraged(m.chordLengths)
	if len(w.horseshoes) != len(lines) {
		w.horseshoes = make([]vortex.Horseshoe, len(lines))
		w.strengths = make([]float64, len(lines))
	}
	for i, line := range lines {
		wi := m.wingOf[i]
		w.horseshoes[i] = vortex.Horseshoe{
			Start:      line.Start,
			End:        line.End,
			Wake:       r3.Scale(w.Settings.WakeLengthFactor*meanChord[wi], dirs[wi]),
			CoreLength: w.Settings.ViscousCore.Length(line.Length()),
		}
	}
}

func (w *QuasiSteadyWake) frozen(m *LineForceModel) *FrozenWake {
	ctrl := m.CtrlPoints()
	f := newFrozenWake(len(ctrl), len(w.horseshoes))
	parallelFor(len(ctrl), func(i int) {
		for j, h := range w.horseshoes {
			if w.Settings.IsolateWings && m.wingOf[i] != m.wingOf[j] {
				continue
			}
			f.setFactor(i, j, h.InducedVelocityWithSymmetry(ctrl[i], w.Settings.Symmetry))
		}
	})
	return f
}

// Freeze places the horseshoes for the felt velocity and returns their unit strength velocity
// factors at the control points. It is used by couplings that solve outside a Simulation.
func (w *QuasiSteadyWake) Freeze(m *LineForceModel, felt []r3.Vec) *FrozenWake {
	w.updateBeforeSolving(m, felt, 0)
	return w.frozen(m)
}

func (w *QuasiSteadyWake) updateAfterSolving(_ *LineForceModel, gamma []float64, _, _ []r3.Vec) {
	copy(w.strengths, gamma)
}

// InducedVelocities implements Wake.
func (w *QuasiSteadyWake) InducedVelocities(points []r3.Vec) []r3.Vec {
	out := make([]r3.Vec, len(points))
	parallelFor(len(points), func(i int) {
		var u r3.Vec
		for j, h := range w.horseshoes {
			u = r3.Add(u, r3.Scale(w.strengths[j], h.InducedVelocityWithSymmetry(points[i], w.Settings.Symmetry)))
		}
		out[i] = u
	})
	return out
}

// Shape implements Wake.
func (w *QuasiSteadyWake) Shape() WakeShape {
	var s WakeShape
	for j, h := range w.horseshoes {
		base := len(s.Points)
		pts := h.Points()
		s.Points = append(s.Points, pts[:]...)
		s.Panels = append(s.Panels, [4]int{base, base + 1, base + 2, base + 3})
		s.Strengths = append(s.Strengths, w.strengths[j])
	}
	return s
}
