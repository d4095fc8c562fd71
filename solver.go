package liftline

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// ConvergenceTest passes once the residual has stayed below AllowedError for MinimumSuccesses
// consecutive iterations.
type ConvergenceTest struct {
	AllowedError     float64
	MinimumSuccesses int
}

// DefaultConvergenceTest returns five successes below 1e-4.
func DefaultConvergenceTest() ConvergenceTest {
	return ConvergenceTest{AllowedError: 1e-4, MinimumSuccesses: 5}
}

type convergenceCounter struct {
	ConvergenceTest
	successes int
}

func (c *convergenceCounter) test(residual float64) bool {
	if math.Abs(residual) < c.AllowedError {
		c.successes++
	} else {
		c.successes = 0
	}
	return c.successes >= c.MinimumSuccesses
}

// VelocityCorrectionKind selects how the induced velocity is limited while solving.
type VelocityCorrectionKind uint8

const (
	// NoVelocityCorrection adds the induced velocity as is.
	NoVelocityCorrection VelocityCorrectionKind = iota
	// MaxInducedVelocityMagnitudeRatio caps the induced velocity to a ratio of the freestream.
	MaxInducedVelocityMagnitudeRatio
	// FixedMagnitudeEqualToFreestream keeps the magnitude of the freestream and only lets the
	// induced velocity turn the flow.
	FixedMagnitudeEqualToFreestream
)

// VelocityCorrection stabilizes cases with large circulation, such as rotor sails.
type VelocityCorrection struct {
	Kind  VelocityCorrectionKind
	Ratio float64
}

func (v VelocityCorrection) String() string {
	switch v.Kind {
	case MaxInducedVelocityMagnitudeRatio:
		return fmt.Sprintf("max_induced_ratio(%.3f)", v.Ratio)
	case FixedMagnitudeEqualToFreestream:
		return "fixed_magnitude"
	}
	return "none"
}

// ParseVelocityCorrection returns the correction named kind. The ratio is only used by
// "max_induced_ratio".
func ParseVelocityCorrection(kind string, ratio float64) (VelocityCorrection, error) {
	switch kind {
	case "", "none":
		return VelocityCorrection{}, nil
	case "max_induced_ratio":
		if ratio <= 0 {
			return VelocityCorrection{}, fmt.Errorf("%w: induced velocity ratio %f", ErrInvalidSetting, ratio)
		}
		return VelocityCorrection{Kind: MaxInducedVelocityMagnitudeRatio, Ratio: ratio}, nil
	case "fixed_magnitude":
		return VelocityCorrection{Kind: FixedMagnitudeEqualToFreestream}, nil
	}
	return VelocityCorrection{}, fmt.Errorf("%w: velocity correction `%s`", ErrInvalidSetting, kind)
}

// Apply returns felt + induced, corrected.
func (v VelocityCorrection) Apply(felt, induced []r3.Vec) []r3.Vec {
	out := make([]r3.Vec, len(felt))
	for i := range felt {
		ui := induced[i]
		switch v.Kind {
		case MaxInducedVelocityMagnitudeRatio:
			limit := v.Ratio * r3.Norm(felt[i])
			if r3.Norm(ui) > limit {
				ui = r3.Scale(limit, unit(ui))
			}
			out[i] = r3.Add(felt[i], ui)
		case FixedMagnitudeEqualToFreestream:
			out[i] = r3.Scale(r3.Norm(felt[i]), unit(r3.Add(felt[i], ui)))
		default:
			out[i] = r3.Add(felt[i], ui)
		}
	}
	return out
}

// SolverResult is the outcome of one solve. Non-convergence is reported here and is not an error.
type SolverResult struct {
	CirculationStrength []float64
	CtrlPointVelocity   []r3.Vec
	Iterations          int
	Residual            float64
	Converged           bool
}

// SolverSettings selects the circulation solver. The set is closed: *DampedIterativeSettings and
// *LinearizedSettings.
type SolverSettings interface {
	Kind() string
	Validate() error
	// Solve finds the circulation strength for the felt freestream at the control points and the
	// frozen wake of the step.
	Solve(m *LineForceModel, felt []r3.Vec, frozen *FrozenWake, initial []float64) SolverResult
	solverSettings()
}

// DampedIterativeSettings configures the damped fixed point iteration.
type DampedIterativeSettings struct {
	MaxIterations int
	Damping       float64
	// DampingEnd, when positive, is the damping used as the residual goes to zero. The damping
	// is interpolated linearly between Damping at a residual of one and DampingEnd at zero.
	DampingEnd      float64
	ConvergenceTest ConvergenceTest
	// StrengthDifferenceTolerance, when positive, stops the iteration once the largest change
	// proposed to the circulation is smaller.
	StrengthDifferenceTolerance float64
	VelocityCorrection          VelocityCorrection
}

// DefaultSteadySolverSettings returns 1000 iterations with a damping of 0.05.
func DefaultSteadySolverSettings() *DampedIterativeSettings {
	return &DampedIterativeSettings{MaxIterations: 1000, Damping: 0.05, ConvergenceTest: DefaultConvergenceTest()}
}

// DefaultDynamicSolverSettings returns 20 iterations per time step with a damping of 0.05.
func DefaultDynamicSolverSettings() *DampedIterativeSettings {
	return &DampedIterativeSettings{MaxIterations: 20, Damping: 0.05, ConvergenceTest: DefaultConvergenceTest()}
}

// Kind implements SolverSettings.
func (s *DampedIterativeSettings) Kind() string { return "damped_iterative" }

func (s *DampedIterativeSettings) solverSettings() {}

// Validate implements SolverSettings.
func (s *DampedIterativeSettings) Validate() error {
	switch {
	case s.MaxIterations < 1:
		return fmt.Errorf("%w: max iterations %d", ErrInvalidSetting, s.MaxIterations)
	case s.Damping <= 0 || s.Damping > 1:
		return fmt.Errorf("%w: damping %f", ErrInvalidSetting, s.Damping)
	case s.DampingEnd < 0 || s.DampingEnd > 1:
		return fmt.Errorf("%w: damping end %f", ErrInvalidSetting, s.DampingEnd)
	case s.ConvergenceTest.MinimumSuccesses < 1:
		return fmt.Errorf("%w: minimum successes %d", ErrInvalidSetting, s.ConvergenceTest.MinimumSuccesses)
	}
	return nil
}

func (s *DampedIterativeSettings) damping(residual float64) float64 {
	if s.DampingEnd <= 0 {
		return s.Damping
	}
	r := math.Max(0, math.Min(1, residual))
	return s.DampingEnd + (s.Damping-s.DampingEnd)*r
}

// Solve implements SolverSettings. It always terminates within MaxIterations.
func (s *DampedIterativeSettings) Solve(m *LineForceModel, felt []r3.Vec, frozen *FrozenWake, initial []float64) SolverResult {
	n := m.NrSpanLines()
	gamma := make([]float64, n)
	if len(initial) == n {
		copy(gamma, initial)
	}
	counter := convergenceCounter{ConvergenceTest: s.ConvergenceTest}
	res := SolverResult{CirculationStrength: gamma}

	for res.Iterations < s.MaxIterations {
		res.Iterations++
		velocity := m.RemoveSpanVelocity(s.VelocityCorrection.Apply(felt, frozen.InducedVelocities(gamma)))
		estimate := m.CirculationStrength(velocity)
		res.CtrlPointVelocity = velocity
		res.Residual = m.AverageResidualAbsolute(gamma, velocity)

		if counter.test(res.Residual) {
			res.Converged = true
			break
		}
		var maxDifference float64
		d := s.damping(res.Residual)
		for i := range gamma {
			difference := estimate[i] - gamma[i]
			maxDifference = math.Max(maxDifference, math.Abs(difference))
			gamma[i] += d * difference
		}
		if s.StrengthDifferenceTolerance > 0 && maxDifference < s.StrengthDifferenceTolerance {
			res.Converged = true
			res.CtrlPointVelocity = m.RemoveSpanVelocity(s.VelocityCorrection.Apply(felt, frozen.InducedVelocities(gamma)))
			res.Residual = m.AverageResidualAbsolute(gamma, res.CtrlPointVelocity)
			break
		}
	}
	return res
}

// LinearizedSettings configures the single linear solve.
type LinearizedSettings struct {
	VelocityCorrection VelocityCorrection
	// DisableViscousCorrection keeps the linear circulation instead of scaling it with the ratio of
	// the sectional lift to the linearized lift.
	DisableViscousCorrection bool
}

// Kind implements SolverSettings.
func (s *LinearizedSettings) Kind() string { return "linearized" }

func (s *LinearizedSettings) solverSettings() {}

// Validate implements SolverSettings.
func (s *LinearizedSettings) Validate() error {
	if s.VelocityCorrection.Kind == MaxInducedVelocityMagnitudeRatio && s.VelocityCorrection.Ratio <= 0 {
		return fmt.Errorf("%w: induced velocity ratio %f", ErrInvalidSetting, s.VelocityCorrection.Ratio)
	}
	return nil
}

// ParseSolverSettings returns the default settings of the solver named kind, for a steady or a
// dynamic simulation.
func ParseSolverSettings(kind string, dynamic bool) (SolverSettings, error) {
	switch kind {
	case "", "damped_iterative":
		if dynamic {
			return DefaultDynamicSolverSettings(), nil
		}
		return DefaultSteadySolverSettings(), nil
	case "linearized":
		return &LinearizedSettings{}, nil
	}
	return nil, fmt.Errorf("%w: solver `%s`", ErrInvalidSetting, kind)
}
