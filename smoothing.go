package liftline

import (
	"fmt"
	"math"
)

// EndCondition decides how a one dimensional series is padded before smoothing.
type EndCondition uint8

const (
	// ZeroValues pads with zeros, with an extra zero half a spacing outside the data.
	ZeroValues EndCondition = iota
	// ExtendedValues repeats the end value.
	ExtendedValues
	// LinearExtrapolation continues the slope of the two outermost values.
	LinearExtrapolation
	// MirroredValues mirrors the data about the end point.
	MirroredValues
)

func (c EndCondition) String() string {
	switch c {
	case ZeroValues:
		return "zero"
	case ExtendedValues:
		return "extended"
	case LinearExtrapolation:
		return "linear"
	case MirroredValues:
		return "mirrored"
	}
	return fmt.Sprintf("EndCondition(%d)", c)
}

// startValues returns n values before the start of y, ordered from the outermost inwards.
func (c EndCondition) startValues(y []float64, n int) []float64 {
	vals := make([]float64, n)
	last := len(y) - 1
	for k := n; k >= 1; k-- {
		var v float64
		switch c {
		case ExtendedValues:
			v = y[0]
		case LinearExtrapolation:
			if last > 0 {
				v = y[0] - float64(k)*(y[1]-y[0])
			} else {
				v = y[0]
			}
		case MirroredValues:
			v = y[min(k, last)]
		}
		vals[n-k] = v
	}
	return vals
}

// endValues returns n values after the end of y, ordered outwards.
func (c EndCondition) endValues(y []float64, n int) []float64 {
	vals := make([]float64, n)
	last := len(y) - 1
	for k := 1; k <= n; k++ {
		var v float64
		switch c {
		case ExtendedValues:
			v = y[last]
		case LinearExtrapolation:
			if last > 0 {
				v = y[last] + float64(k)*(y[last]-y[last-1])
			} else {
				v = y[last]
			}
		case MirroredValues:
			v = y[max(last-k, 0)]
		}
		vals[k-1] = v
	}
	return vals
}

// padSeries pads x and y with n points on each side. When tipPoint is set, a ZeroValues end also
// gets a zero half a spacing outside the data, which is where a free tip sits relative to the
// control points.
func padSeries(x, y []float64, n int, ends [2]EndCondition, tipPoint bool) ([]float64, []float64) {
	nr := len(y)
	xm := make([]float64, 0, nr+2*n+2)
	ym := make([]float64, 0, nr+2*n+2)

	dxStart := 1.0
	dxEnd := 1.0
	if x != nil && nr > 1 {
		dxStart = x[1] - x[0]
		dxEnd = x[nr-1] - x[nr-2]
	}
	x0, x1 := 0.0, float64(nr-1)
	if x != nil {
		x0, x1 = x[0], x[nr-1]
	}

	start := ends[0].startValues(y, n)
	for k := n; k >= 1; k-- {
		xm = append(xm, x0-float64(k)*dxStart)
	}
	ym = append(ym, start...)
	if tipPoint && ends[0] == ZeroValues {
		xm = append(xm, x0-0.5*dxStart)
		ym = append(ym, 0)
	}

	if x != nil {
		xm = append(xm, x...)
	} else {
		for i := 0; i < nr; i++ {
			xm = append(xm, float64(i))
		}
	}
	ym = append(ym, y...)

	if tipPoint && ends[1] == ZeroValues {
		xm = append(xm, x1+0.5*dxEnd)
		ym = append(ym, 0)
	}
	for k := 1; k <= n; k++ {
		xm = append(xm, x1+float64(k)*dxEnd)
	}
	ym = append(ym, ends[1].endValues(y, n)...)

	return xm, ym
}

func gaussianKernel(x, x0, length float64) float64 {
	d := x - x0
	return math.Exp(-d * d / (2 * length * length))
}

// GaussianSmoothing is a kernel smoother with a Gaussian kernel.
type GaussianSmoothing struct {
	SmoothingLength float64
	EndConditions   [2]EndCondition
	// NrEndInsertions is the number of padded points on each side. Zero derives it from the
	// kernel width and the point spacing.
	NrEndInsertions int
}

func (g GaussianSmoothing) endInsertions(x []float64) int {
	if g.NrEndInsertions > 0 {
		return g.NrEndInsertions
	}
	dx := math.Abs(x[1] - x[0])
	if dx == 0 {
		return 1
	}
	n := int(math.Ceil(4 * g.SmoothingLength / dx))
	return max(1, min(n, len(x)))
}

// Apply smooths y sampled at the increasing positions x. A non-positive smoothing length returns
// a copy of y.
func (g GaussianSmoothing) Apply(x, y []float64) []float64 {
	out := make([]float64, len(y))
	copy(out, y)
	if g.SmoothingLength <= 0 || len(y) < 2 {
		return out
	}

	xm, ym := padSeries(x, y, g.endInsertions(x), g.EndConditions, true)

	for i0 := range y {
		var kernelSum, productSum float64
		for i := range xm {
			k := gaussianKernel(xm[i], x[i0], g.SmoothingLength)
			kernelSum += k
			productSum += k * ym[i]
		}
		out[i0] = productSum / kernelSum
	}
	return out
}

// WindowSize is the number of points of a cubic polynomial smoothing window.
type WindowSize int

// Supported window sizes.
const (
	WindowFive  WindowSize = 5
	WindowSeven WindowSize = 7
	WindowNine  WindowSize = 9
)

// Savitzky–Golay weights of a local cubic least squares fit.
func (w WindowSize) weights() ([]float64, float64) {
	switch w {
	case WindowSeven:
		return []float64{-2, 3, 6, 7, 6, 3, -2}, 21
	case WindowNine:
		return []float64{-21, 14, 39, 54, 59, 54, 39, 14, -21}, 231
	default:
		return []float64{-3, 12, 17, 12, -3}, 35
	}
}

// Validate checks the window is one of the supported sizes.
func (w WindowSize) Validate() error {
	switch w {
	case WindowFive, WindowSeven, WindowNine:
		return nil
	}
	return fmt.Errorf("%w: polynomial window %d", ErrInvalidSetting, w)
}

// CubicPolynomialSmoothing fits a cubic over a sliding window of equally spaced points.
type CubicPolynomialSmoothing struct {
	Window        WindowSize
	EndConditions [2]EndCondition
}

// Apply smooths y.
func (p CubicPolynomialSmoothing) Apply(y []float64) []float64 {
	out := make([]float64, len(y))
	copy(out, y)
	if len(y) < 2 {
		return out
	}
	weights, norm := p.Window.weights()
	offset := len(weights) / 2

	_, ym := padSeries(nil, y, offset, p.EndConditions, false)

	for i := range y {
		var v float64
		for j, w := range weights {
			v += w * ym[i+j]
		}
		out[i] = v / norm
	}
	return out
}
