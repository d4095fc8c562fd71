package actuator

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	liftline "github.com/NTNU-IMT/stormbird-sub000"
	"gonum.org/v1/gonum/spatial/r3"
)

// FallbackPolicy decides the velocity of an element that received no samples in a step.
type FallbackPolicy uint8

const (
	// KeepPrevious reuses the velocity of the previous step.
	KeepPrevious FallbackPolicy = iota
	// NearestSample uses the closest sampled element of the same wing.
	NearestSample
)

func (f FallbackPolicy) String() string {
	switch f {
	case KeepPrevious:
		return "keep_previous"
	case NearestSample:
		return "nearest_sample"
	}
	return fmt.Sprintf("FallbackPolicy(%d)", f)
}

// ParseFallbackPolicy returns the policy named s.
func ParseFallbackPolicy(s string) (FallbackPolicy, error) {
	switch s {
	case "", "keep_previous":
		return KeepPrevious, nil
	case "nearest_sample":
		return NearestSample, nil
	}
	return 0, fmt.Errorf("%w: unknown fallback policy `%s`", liftline.ErrInvalidSetting, s)
}

// SamplingSettings controls how the velocity at the control points is taken from the flow field.
type SamplingSettings struct {
	// UsePointSampling takes the velocity interpolated by the host at each control point. Otherwise
	// the velocity is a kernel weighted average over the cells.
	UsePointSampling bool
	// SpanProjectionFactor is the width of the spanwise Gaussian of integral sampling, in element
	// lengths.
	SpanProjectionFactor float64
	WeightLimit          float64
	// ExtrapolateEndVelocities replaces the velocity of the outermost elements of every wing with
	// a linear extrapolation of their two neighbours.
	ExtrapolateEndVelocities bool
	// CorrectionFactor scales the sampled velocities.
	CorrectionFactor float64
	Fallback         FallbackPolicy
}

// DefaultSamplingSettings returns integral sampling with a span width of half an element.
func DefaultSamplingSettings() SamplingSettings {
	return SamplingSettings{SpanProjectionFactor: 0.5, WeightLimit: 0.001, CorrectionFactor: 1}
}

// Validate checks the settings.
func (s SamplingSettings) Validate() error {
	if !s.UsePointSampling && s.SpanProjectionFactor <= 0 {
		return fmt.Errorf("%w: span projection factor %f", liftline.ErrInvalidSetting, s.SpanProjectionFactor)
	}
	if s.CorrectionFactor <= 0 {
		return fmt.Errorf("%w: sampling correction factor %f", liftline.ErrInvalidSetting, s.CorrectionFactor)
	}
	return nil
}

// Cell is one cell of the host flow field.
type Cell struct {
	Center   r3.Vec
	Velocity r3.Vec
	Volume   float64
}

type samples struct {
	numerator   []r3.Vec
	denominator []float64
	point       []r3.Vec
	pointSet    []bool
}

func newSamples(n int) samples {
	return samples{
		numerator:   make([]r3.Vec, n),
		denominator: make([]float64, n),
		point:       make([]r3.Vec, n),
		pointSet:    make([]bool, n),
	}
}

func (s *samples) reset() {
	for i := range s.numerator {
		s.numerator[i] = r3.Vec{}
		s.denominator[i] = 0
		s.point[i] = r3.Vec{}
		s.pointSet[i] = false
	}
}

// SetSampledVelocity sets the velocity the host interpolated at control point i.
func (a *ActuatorLine) SetSampledVelocity(i int, u r3.Vec) {
	a.samples.point[i] = u
	a.samples.pointSet[i] = true
}

// samplingWeight is the kernel of integral sampling for element i at p.
func (a *ActuatorLine) samplingWeight(i int, p r3.Vec) float64 {
	line := a.lines[i]
	lc := line.LineCoordinates(p, a.projectionChord(i))
	k := a.Projection.Kernel
	c := lc.Chord / (k.ChordFactor * a.chordLengths[i])
	t := lc.Thickness / (k.ThicknessFactor * a.chordLengths[i])
	s := lc.Span / (a.Sampling.SpanProjectionFactor * line.Length())
	w := math.Exp(-c*c - t*t - s*s)
	if w < a.Sampling.WeightLimit {
		return 0
	}
	return w
}

// AddCellSample adds the velocity u of a cell centered at p with the given volume to the integral
// estimate of every element. It does nothing under point sampling.
func (a *ActuatorLine) AddCellSample(p, u r3.Vec, volume float64) {
	if a.Sampling.UsePointSampling {
		return
	}
	for i := range a.lines {
		w := a.samplingWeight(i, p) * volume
		if w == 0 {
			continue
		}
		a.samples.numerator[i] = r3.Add(a.samples.numerator[i], r3.Scale(w, u))
		a.samples.denominator[i] += w
	}
}

// SampleCells adds a batch of cells, in parallel. Every worker keeps its own partial sums.
func (a *ActuatorLine) SampleCells(cells []Cell) {
	if a.Sampling.UsePointSampling || len(cells) == 0 {
		return
	}
	n := len(a.lines)
	var mu sync.Mutex
	parallelChunks(len(cells), func(start, end int) {
		part := newSamples(n)
		for _, c := range cells[start:end] {
			for i := 0; i < n; i++ {
				w := a.samplingWeight(i, c.Center) * c.Volume
				if w == 0 {
					continue
				}
				part.numerator[i] = r3.Add(part.numerator[i], r3.Scale(w, c.Velocity))
				part.denominator[i] += w
			}
		}
		mu.Lock()
		for i := 0; i < n; i++ {
			a.samples.numerator[i] = r3.Add(a.samples.numerator[i], part.numerator[i])
			a.samples.denominator[i] += part.denominator[i]
		}
		mu.Unlock()
	})
}

// sampledVelocities turns the samples of the step into control point velocities.
func (a *ActuatorLine) sampledVelocities() ([]r3.Vec, int) {
	n := len(a.lines)
	out := make([]r3.Vec, n)
	valid := make([]bool, n)
	for i := 0; i < n; i++ {
		switch {
		case a.Sampling.UsePointSampling:
			out[i], valid[i] = a.samples.point[i], a.samples.pointSet[i]
		case a.samples.denominator[i] > 0:
			out[i], valid[i] = r3.Scale(1/a.samples.denominator[i], a.samples.numerator[i]), true
		}
	}

	missing := 0
	for i := 0; i < n; i++ {
		if valid[i] {
			continue
		}
		missing++
		if a.Sampling.Fallback == NearestSample {
			if j := nearestValid(a.Model, valid, i); j >= 0 {
				out[i] = out[j]
				continue
			}
		}
		if a.previous != nil {
			out[i] = a.previous[i]
		}
	}

	if a.Sampling.ExtrapolateEndVelocities {
		for w := 0; w < a.Model.NrWings(); w++ {
			start, end := a.Model.WingRange(w)
			if end-start < 3 {
				continue
			}
			out[start] = r3.Sub(r3.Scale(2, out[start+1]), out[start+2])
			out[end-1] = r3.Sub(r3.Scale(2, out[end-2]), out[end-3])
		}
	}
	if a.Sampling.CorrectionFactor != 1 {
		for i := range out {
			out[i] = r3.Scale(a.Sampling.CorrectionFactor, out[i])
		}
	}
	return out, missing
}

// nearestValid returns the closest element to i on the same wing with a valid sample, or -1.
func nearestValid(m *liftline.LineForceModel, valid []bool, i int) int {
	start, end := m.WingRange(m.WingIndex(i))
	for d := 1; d < end-start; d++ {
		if j := i - d; j >= start && valid[j] {
			return j
		}
		if j := i + d; j < end && valid[j] {
			return j
		}
	}
	return -1
}

// parallelChunks splits [0, n) in contiguous chunks, one per available processor.
func parallelChunks(n int, fn func(start, end int)) {
	workers := min(runtime.GOMAXPROCS(0), n)
	if workers <= 1 {
		fn(0, n)
		return
	}
	var wg sync.WaitGroup
	chunk := (n + workers - 1) / workers
	for start := 0; start < n; start += chunk {
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			fn(start, end)
		}(start, min(start+chunk, n))
	}
	wg.Wait()
}
