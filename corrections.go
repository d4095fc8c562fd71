package liftline

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/spatial/r3"
)

// CirculationCorrection modifies the raw circulation estimate of every solver iteration. The set
// is closed: NoCorrection, GaussianSmoothingCorrection, PolynomialSmoothingCorrection,
// ArtificialViscosity and PrescribedCirculation.
type CirculationCorrection interface {
	Kind() string
	apply(m *LineForceModel, velocity []r3.Vec, raw []float64) []float64
}

// CorrectionSettings holds at most one circulation correction.
type CorrectionSettings struct {
	Gaussian            *GaussianSmoothingCorrection
	Polynomial          *PolynomialSmoothingCorrection
	ArtificialViscosity *ArtificialViscosity
	Prescribed          *PrescribedCirculation
}

// Build returns the configured correction, or an error if more than one is set.
func (s CorrectionSettings) Build() (CirculationCorrection, error) {
	var set []CirculationCorrection
	if s.Gaussian != nil {
		if s.Gaussian.LengthFactor < 0 {
			return nil, fmt.Errorf("%w: negative smoothing length factor", ErrInvalidSetting)
		}
		set = append(set, s.Gaussian)
	}
	if s.Polynomial != nil {
		if err := s.Polynomial.Window.Validate(); err != nil {
			return nil, err
		}
		set = append(set, s.Polynomial)
	}
	if s.ArtificialViscosity != nil {
		if s.ArtificialViscosity.Damping < 0 || s.ArtificialViscosity.Damping > 1 {
			return nil, fmt.Errorf("%w: artificial viscosity damping %f", ErrInvalidSetting, s.ArtificialViscosity.Damping)
		}
		set = append(set, s.ArtificialViscosity)
	}
	if s.Prescribed != nil {
		set = append(set, s.Prescribed)
	}
	switch len(set) {
	case 0:
		return NoCorrection{}, nil
	case 1:
		return set[0], nil
	}
	kinds := make([]string, len(set))
	for i, c := range set {
		kinds[i] = c.Kind()
	}
	return nil, fmt.Errorf("%w: %v", ErrMultipleCorrections, kinds)
}

// ParseCorrection returns the default correction of the given kind.
func ParseCorrection(kind string) (CirculationCorrection, error) {
	switch kind {
	case "", "none":
		return NoCorrection{}, nil
	case "gaussian":
		return NewGaussianSmoothingCorrection(), nil
	case "polynomial":
		return &PolynomialSmoothingCorrection{Window: WindowFive}, nil
	case "artificial_viscosity":
		return NewArtificialViscosity(1e-3), nil
	case "prescribed":
		return NewPrescribedCirculation(), nil
	}
	return nil, fmt.Errorf("%w: circulation correction `%s`", ErrInvalidSetting, kind)
}

// NoCorrection leaves the raw circulation unchanged.
type NoCorrection struct{}

// Kind implements CirculationCorrection.
func (NoCorrection) Kind() string { return "none" }

func (NoCorrection) apply(_ *LineForceModel, _ []r3.Vec, raw []float64) []float64 { return raw }

// endConditions returns the smoothing end conditions of a wing: zero at free ends, linear
// extrapolation where the circulation is expected to be non-zero.
func endConditions(nonZero [2]bool) [2]EndCondition {
	var ends [2]EndCondition
	for i, nz := range nonZero {
		if nz {
			ends[i] = LinearExtrapolation
		}
	}
	return ends
}

// GaussianSmoothingCorrection smooths the circulation along each wing with a Gaussian kernel of
// length LengthFactor times the wing span.
type GaussianSmoothingCorrection struct {
	LengthFactor    float64
	NrEndInsertions int
}

// NewGaussianSmoothingCorrection returns a correction with a kernel of 10% of the span.
func NewGaussianSmoothingCorrection() *GaussianSmoothingCorrection {
	return &GaussianSmoothingCorrection{LengthFactor: 0.1}
}

// Kind implements CirculationCorrection.
func (g *GaussianSmoothingCorrection) Kind() string { return "gaussian" }

func (g *GaussianSmoothingCorrection) apply(m *LineForceModel, _ []r3.Vec, raw []float64) []float64 {
	out := make([]float64, len(raw))
	for w, wg := range m.wings {
		smoother := GaussianSmoothing{
			SmoothingLength: g.LengthFactor * m.wingSpans[w],
			EndConditions:   endConditions(wg.nonZeroAtEnds),
			NrEndInsertions: g.NrEndInsertions,
		}
		copy(out[wg.start:wg.end], smoother.Apply(m.spanDistance[wg.start:wg.end], raw[wg.start:wg.end]))
	}
	return out
}

// PolynomialSmoothingCorrection fits a cubic over a sliding window along each wing.
type PolynomialSmoothingCorrection struct {
	Window WindowSize
}

// Kind implements CirculationCorrection.
func (p *PolynomialSmoothingCorrection) Kind() string { return "polynomial" }

func (p *PolynomialSmoothingCorrection) apply(m *LineForceModel, _ []r3.Vec, raw []float64) []float64 {
	out := make([]float64, len(raw))
	for _, wg := range m.wings {
		smoother := CubicPolynomialSmoothing{Window: p.Window, EndConditions: endConditions(wg.nonZeroAtEnds)}
		copy(out[wg.start:wg.end], smoother.Apply(raw[wg.start:wg.end]))
	}
	return out
}

// ArtificialViscosity solves Γ = Γ_raw + μ·∂²Γ/∂s² along each wing, with s the span position
// divided by the span. The implicit equation is solved by its own damped Jacobi iteration.
type ArtificialViscosity struct {
	Viscosity     float64
	MaxIterations int
	Damping       float64
	Tolerance     float64
}

// NewArtificialViscosity returns the correction with default inner solver settings.
func NewArtificialViscosity(viscosity float64) *ArtificialViscosity {
	return &ArtificialViscosity{Viscosity: viscosity, MaxIterations: 200, Damping: 0.8, Tolerance: 1e-8}
}

// Kind implements CirculationCorrection.
func (a *ArtificialViscosity) Kind() string { return "artificial_viscosity" }

func (a *ArtificialViscosity) apply(m *LineForceModel, _ []r3.Vec, raw []float64) []float64 {
	out := make([]float64, len(raw))
	for w, wg := range m.wings {
		s := make([]float64, wg.end-wg.start)
		for i := range s {
			s[i] = m.spanDistance[wg.start+i] / m.wingSpans[w]
		}
		gamma, _ := a.Solve(s, raw[wg.start:wg.end], wg.nonZeroAtEnds)
		copy(out[wg.start:wg.end], gamma)
	}
	return out
}

// Solve returns the viscous solution on the positions s in [0, 1] and the number of inner
// iterations used. Free ends have zero circulation at s=0 and s=1; non-zero ends are mirrored.
func (a *ArtificialViscosity) Solve(s, raw []float64, nonZero [2]bool) ([]float64, int) {
	n := len(raw)
	gamma := append([]float64(nil), raw...)
	if n < 2 || a.Viscosity == 0 {
		return gamma, 0
	}
	damping := a.Damping
	if damping <= 0 {
		damping = 1
	}
	maxIter := a.MaxIterations
	if maxIter <= 0 {
		maxIter = 200
	}

	// second difference stencil on the nonuniform grid, including a ghost point at each end
	lower := make([]float64, n)
	diag := make([]float64, n)
	upper := make([]float64, n)
	for i := 0; i < n; i++ {
		var xl, xr float64
		switch {
		case i > 0:
			xl = s[i-1]
		case nonZero[0]:
			xl = -s[0]
		default:
			xl = 0
		}
		switch {
		case i < n-1:
			xr = s[i+1]
		case nonZero[1]:
			xr = 2 - s[n-1]
		default:
			xr = 1
		}
		h1, h2 := s[i]-xl, xr-s[i]
		lower[i] = 2 / (h1 * (h1 + h2))
		diag[i] = 2 / (h1 * h2)
		upper[i] = 2 / (h2 * (h1 + h2))
	}

	next := make([]float64, n)
	iterations := 0
	for iterations < maxIter {
		iterations++
		var change, scale float64
		for i := 0; i < n; i++ {
			var left, right float64
			switch {
			case i > 0:
				left = gamma[i-1]
			case nonZero[0]:
				left = gamma[0]
			}
			switch {
			case i < n-1:
				right = gamma[i+1]
			case nonZero[1]:
				right = gamma[n-1]
			}
			jacobi := (raw[i] + a.Viscosity*(lower[i]*left+upper[i]*right)) / (1 + a.Viscosity*diag[i])
			next[i] = gamma[i] + damping*(jacobi-gamma[i])
			change = math.Max(change, math.Abs(next[i]-gamma[i]))
			scale = math.Max(scale, math.Abs(next[i]))
		}
		gamma, next = next, gamma
		if change <= a.Tolerance*math.Max(scale, 1e-12) {
			break
		}
	}
	return gamma, iterations
}

// PrescribedShape is the circulation shape (1 - |2s|^p)^q on s in [-0.5, 0.5].
type PrescribedShape struct {
	InnerPower float64
	OuterPower float64
}

// EllipticShape returns p=2, q=0.5.
func EllipticShape() PrescribedShape {
	return PrescribedShape{InnerPower: 2, OuterPower: 0.5}
}

// Value returns the shape at s. It is zero outside the wing.
func (p PrescribedShape) Value(s float64) float64 {
	base := 1 - math.Pow(math.Abs(2*s), p.InnerPower)
	if base <= 0 {
		return 0
	}
	return math.Pow(base, p.OuterPower)
}

// Shape parameter bounds of the curve fit.
const (
	fitMinScale      = 1e-6
	fitMinInnerPower = 2.0
	fitMaxInnerPower = 4.0
	fitMinOuterPower = 0.1
	fitMaxOuterPower = 1.0
)

// FitPrescribedShape fits scale·shape(s) to values with a Nelder–Mead search, keeping the
// parameters within bounds. It returns the fitted shape, or the initial guess if the search fails.
func FitPrescribedShape(s, values []float64, guess PrescribedShape) PrescribedShape {
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	sgn := sign(mean)

	bounded := func(x []float64) (float64, PrescribedShape) {
		scale := math.Max(fitMinScale, math.Abs(x[0]))
		return scale, PrescribedShape{
			InnerPower: math.Min(fitMaxInnerPower, math.Max(fitMinInnerPower, x[1])),
			OuterPower: math.Min(fitMaxOuterPower, math.Max(fitMinOuterPower, x[2])),
		}
	}
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			scale, shape := bounded(x)
			var sum float64
			for i, si := range s {
				d := sgn*scale*shape.Value(si) - values[i]
				sum += d * d
			}
			return sum
		},
	}
	x0 := []float64{math.Max(fitMinScale, math.Abs(mean)*1.3), guess.InnerPower, guess.OuterPower}
	result, err := optimize.Minimize(problem, x0, &optimize.Settings{MajorIterations: 500}, &optimize.NelderMead{})
	if err != nil || result == nil {
		return guess
	}
	_, shape := bounded(result.X)
	return shape
}

// PrescribedCirculation forces the circulation on each wing to follow a fixed shape. The raw
// estimate is re-evaluated with the wing-averaged velocity, and the shape is scaled so that its span
// integral equals that of the re-evaluated estimate.
type PrescribedCirculation struct {
	Shape PrescribedShape
	// CurveFit refits the shape parameters to the raw estimate of every iteration.
	CurveFit bool
}

// NewPrescribedCirculation returns an elliptic prescribed circulation.
func NewPrescribedCirculation() *PrescribedCirculation {
	return &PrescribedCirculation{Shape: EllipticShape()}
}

// Kind implements CirculationCorrection.
func (p *PrescribedCirculation) Kind() string { return "prescribed" }

func (p *PrescribedCirculation) apply(m *LineForceModel, velocity []r3.Vec, raw []float64) []float64 {
	s := m.EffectiveRelativeSpanDistance()
	base := raw
	if velocity != nil {
		base = m.CirculationStrengthRaw(m.shapeVelocity(velocity))
	}
	out := make([]float64, len(raw))
	for _, wg := range m.wings {
		shape := p.Shape
		if p.CurveFit {
			shape = FitPrescribedShape(s[wg.start:wg.end], raw[wg.start:wg.end], p.Shape)
		}
		var num, den float64
		for i := wg.start; i < wg.end; i++ {
			length := m.spanLinesLocal[i].Length()
			num += base[i] * length
			den += shape.Value(s[i]) * length
		}
		if den == 0 {
			continue
		}
		k := num / den
		for i := wg.start; i < wg.end; i++ {
			out[i] = k * shape.Value(s[i])
		}
	}
	return out
}

// shapeVelocity replaces the velocity of every element by the mean over its wing.
func (m *LineForceModel) shapeVelocity(velocity []r3.Vec) []r3.Vec {
	mean := m.WingAveragedVec(velocity)
	out := make([]r3.Vec, len(velocity))
	for i := range out {
		out[i] = mean[m.wingOf[i]]
	}
	return out
}
