package liftline

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultDensity is the density of air at sea level, in kg/m³.
const DefaultDensity = 1.225

// WingBuilder describes a single wing by a set of points along the span with a chord vector at
// each point. Chord vectors are linearly interpolated between the points.
type WingBuilder struct {
	SectionPoints []r3.Vec
	ChordVectors  []r3.Vec
	Model         SectionModel
	// NonZeroCirculationAtEnds is set for ends on a symmetry plane or attached to another
	// structure.
	NonZeroCirculationAtEnds [2]bool
	// Virtual wings only contribute to induced velocities, not to integrated forces.
	Virtual bool
	// NrSections overrides the builder's value when positive.
	NrSections int
}

// LineForceModelBuilder collects the settings of a LineForceModel. Only the wings are mandatory.
type LineForceModelBuilder struct {
	Wings           []WingBuilder
	NrSections      int
	Density         float64
	Correction      CorrectionSettings
	OutputFrame     OutputFrame
	RotationOrder   RotationOrder
	Translation     r3.Vec
	Rotation        r3.Vec
	LocalWingAngles []float64
}

// NewLineForceModelBuilder returns a builder with default density and rotation order.
func NewLineForceModelBuilder(nrSections int) *LineForceModelBuilder {
	return &LineForceModelBuilder{NrSections: nrSections, Density: DefaultDensity, RotationOrder: XYZ}
}

// AddWing appends a wing.
func (b *LineForceModelBuilder) AddWing(w WingBuilder) {
	b.Wings = append(b.Wings, w)
}

// Build validates the settings and returns the line force model.
func (b *LineForceModelBuilder) Build() (*LineForceModel, error) {
	return b.BuildWithNrSections(b.NrSections)
}

// BuildWithNrSections is like Build, with a different default number of sections per wing.
func (b *LineForceModelBuilder) BuildWithNrSections(nrSections int) (*LineForceModel, error) {
	if len(b.Wings) == 0 {
		return nil, ErrEmptyWingList
	}
	density := b.Density
	if density == 0 {
		density = DefaultDensity
	}
	if density < 0 {
		return nil, fmt.Errorf("%w: density %f", ErrInvalidSetting, density)
	}
	order := b.RotationOrder
	if order == "" {
		order = XYZ
	}
	if err := order.Validate(); err != nil {
		return nil, err
	}
	if len(b.LocalWingAngles) > 0 && len(b.LocalWingAngles) != len(b.Wings) {
		return nil, fmt.Errorf("%w: %d local wing angles for %d wings", ErrMismatchedLengths, len(b.LocalWingAngles), len(b.Wings))
	}
	correction, err := b.Correction.Build()
	if err != nil {
		return nil, err
	}

	m := &LineForceModel{
		Density:       density,
		OutputFrame:   b.OutputFrame,
		RotationOrder: order,
		correction:    correction,
		translation:   b.Translation,
		rotation:      b.Rotation,
	}
	for w, wb := range b.Wings {
		n := wb.NrSections
		if n <= 0 {
			n = nrSections
		}
		lines, chords, err := wb.discretize(n)
		if err != nil {
			return nil, fmt.Errorf("wing %d: %w", w, err)
		}
		model, err := cloneSectionModel(wb.Model)
		if err != nil {
			return nil, fmt.Errorf("wing %d: %w", w, err)
		}
		start := len(m.spanLinesLocal)
		m.wings = append(m.wings, wing{
			start:         start,
			end:           start + len(lines),
			model:         model,
			nonZeroAtEnds: wb.NonZeroCirculationAtEnds,
			virtual:       wb.Virtual,
			rotationAxis:  lines[0].Vector(),
			initialState:  model.InitialState(),
		})
		m.spanLinesLocal = append(m.spanLinesLocal, lines...)
		m.chordVectorsLocal = append(m.chordVectorsLocal, chords...)
		for range lines {
			m.wingOf = append(m.wingOf, w)
		}
	}
	for _, c := range m.chordVectorsLocal {
		m.chordLengths = append(m.chordLengths, r3.Norm(c))
	}

	m.localWingAngles = make([]float64, len(m.wings))
	copy(m.localWingAngles, b.LocalWingAngles)
	m.internalState = make([]float64, len(m.wings))
	for w := range m.wings {
		m.internalState[w] = m.wings[w].initialState
	}
	m.computeSpanDistances()
	m.motion = newMotionHistory(len(m.spanLinesLocal))
	m.UpdateGlobalGeometry()
	return m, nil
}

// spanDistance returns the cumulative distance along the section points.
func (wb WingBuilder) spanDistance() []float64 {
	d := make([]float64, len(wb.SectionPoints))
	for i := 1; i < len(wb.SectionPoints); i++ {
		d[i] = d[i-1] + r3.Norm(r3.Sub(wb.SectionPoints[i], wb.SectionPoints[i-1]))
	}
	return d
}

// discretize resamples the wing into n span lines of equal length.
func (wb WingBuilder) discretize(n int) ([]SpanLine, []r3.Vec, error) {
	if n < 1 {
		return nil, nil, fmt.Errorf("%w: %d sections", ErrInvalidSetting, n)
	}
	if len(wb.SectionPoints) < 2 {
		return nil, nil, fmt.Errorf("%w: %d section points, need at least two", ErrMismatchedLengths, len(wb.SectionPoints))
	}
	if len(wb.SectionPoints) != len(wb.ChordVectors) {
		return nil, nil, fmt.Errorf("%w: %d section points and %d chord vectors", ErrMismatchedLengths, len(wb.SectionPoints), len(wb.ChordVectors))
	}
	dist := wb.spanDistance()
	for i := 1; i < len(dist); i++ {
		if dist[i] <= dist[i-1] {
			return nil, nil, fmt.Errorf("%w: span segment %d", ErrZeroLength, i-1)
		}
	}
	for i, c := range wb.ChordVectors {
		if r3.Norm(c) == 0 {
			return nil, nil, fmt.Errorf("%w: chord vector %d", ErrZeroLength, i)
		}
	}

	total := dist[len(dist)-1]
	delta := total / float64(n)
	lines := make([]SpanLine, n)
	chords := make([]r3.Vec, n)
	for i := 0; i < n; i++ {
		s0 := float64(i) * delta
		s1 := float64(i+1) * delta
		lines[i] = SpanLine{
			Start: interpolateVec(s0, dist, wb.SectionPoints),
			End:   interpolateVec(s1, dist, wb.SectionPoints),
		}
		chords[i] = interpolateVec(0.5*(s0+s1), dist, wb.ChordVectors)
		if r3.Norm(chords[i]) == 0 {
			return nil, nil, fmt.Errorf("%w: interpolated chord at section %d", ErrZeroLength, i)
		}
	}
	return lines, chords, nil
}

// cloneSectionModel copies the model so the built line force model owns its section data.
func cloneSectionModel(model SectionModel) (SectionModel, error) {
	switch s := model.(type) {
	case *Foil:
		c := *s
		return &c, nil
	case *VaryingFoil:
		if err := s.Validate(); err != nil {
			return nil, err
		}
		c := *s
		c.VariableData = append([]float64(nil), s.VariableData...)
		c.Foils = append([]Foil(nil), s.Foils...)
		return &c, nil
	case *RotatingCylinder:
		if err := s.Validate(); err != nil {
			return nil, err
		}
		c := *s
		c.SpinRatioData = append([]float64(nil), s.SpinRatioData...)
		c.ClData = append([]float64(nil), s.ClData...)
		c.CdData = append([]float64(nil), s.CdData...)
		return &c, nil
	case nil:
		return nil, fmt.Errorf("%w: missing section model", ErrInvalidSetting)
	}
	return nil, fmt.Errorf("%w: unknown section model %T", ErrInvalidSetting, model)
}
