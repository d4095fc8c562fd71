package liftline

import (
	"fmt"
	"math"

	"github.com/NTNU-IMT/stormbird-sub000/vortex"
	"gonum.org/v1/gonum/spatial/r3"
)

// DynamicWakeSettings configures a time stepping doublet panel wake.
type DynamicWakeSettings struct {
	NrPanelsPerLineElement int
	// FirstPanelRelativeLength is the length of the panels next to the wing, in chord lengths.
	FirstPanelRelativeLength float64
	// LastPanelRelativeLength is the length of the far field panels, in chord lengths.
	LastPanelRelativeLength float64
	// InitialRelativeWakeLength is the wake length, in chord lengths, before the first step.
	InitialRelativeWakeLength float64
	// ShapeDampingFactor slows down the convection of the wake points, between 0 and 1.
	ShapeDampingFactor float64
	// RatioOfWakeAffectedByInducedVelocities is the fraction of the wake points, counted from
	// the wing, convected by the induced velocity in addition to the freestream.
	RatioOfWakeAffectedByInducedVelocities float64
	FarFieldRatio                          float64
	NeglectSelfInducedVelocities           bool
	Symmetry                               vortex.SymmetryCondition
	ViscousCore                            vortex.ViscousCoreLength
}

// DefaultDynamicWakeSettings returns 100 panels per line element and a freestream-convected wake.
func DefaultDynamicWakeSettings() DynamicWakeSettings {
	return DynamicWakeSettings{
		NrPanelsPerLineElement:    100,
		FirstPanelRelativeLength:  0.75,
		LastPanelRelativeLength:   25,
		InitialRelativeWakeLength: 100,
		FarFieldRatio:             vortex.DefaultFarFieldRatio,
		ViscousCore:               vortex.DefaultViscousCoreLength(),
	}
}

// Validate checks the settings.
func (s DynamicWakeSettings) Validate() error {
	switch {
	case s.NrPanelsPerLineElement < 3:
		return fmt.Errorf("%w: %d panels per line element, need at least 3", ErrInvalidSetting, s.NrPanelsPerLineElement)
	case s.ShapeDampingFactor < 0 || s.ShapeDampingFactor >= 1:
		return fmt.Errorf("%w: shape damping factor %f", ErrInvalidSetting, s.ShapeDampingFactor)
	case s.RatioOfWakeAffectedByInducedVelocities < 0 || s.RatioOfWakeAffectedByInducedVelocities > 1:
		return fmt.Errorf("%w: ratio of wake affected by induced velocities %f", ErrInvalidSetting, s.RatioOfWakeAffectedByInducedVelocities)
	case s.FirstPanelRelativeLength <= 0 || s.LastPanelRelativeLength <= 0:
		return fmt.Errorf("%w: panel lengths must be positive", ErrInvalidSetting)
	}
	return nil
}

// DynamicWake is a chain of doublet panels behind every line element. The first row of panels
// carries the current bound circulation; every step the strengths move one row downstream and the
// points are convected with the local velocity.
type DynamicWake struct {
	Settings DynamicWakeSettings

	nLines      int
	nStream     int // panels per line element
	nPointsSpan int
	wingOf      []int
	spanWing    []int

	points    []r3.Vec // streamwise major: row s holds nPointsSpan points
	velocity  []r3.Vec
	strengths []float64 // row s holds nLines strengths
	panels    []vortex.Panel

	directions  []r3.Vec // per span point, fallback convection direction
	undisturbed []r3.Vec // per span point, wing averaged felt velocity of the current step
	chordAtSpan []float64
	initialized bool
	steps       int
}

// NewDynamicWake returns a wake for m. The panels are placed on the first step, once the flow is
// known.
func NewDynamicWake(m *LineForceModel, s DynamicWakeSettings) (*DynamicWake, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	nLines := m.NrSpanLines()
	nPS := nLines + m.NrWings()
	nRows := s.NrPanelsPerLineElement + 1
	spanWing := make([]int, 0, nPS)
	for wi := 0; wi < m.NrWings(); wi++ {
		start, end := m.WingRange(wi)
		for i := start; i <= end; i++ {
			spanWing = append(spanWing, wi)
		}
	}
	return &DynamicWake{
		Settings:    s,
		nLines:      nLines,
		nStream:     s.NrPanelsPerLineElement,
		nPointsSpan: nPS,
		wingOf:      m.wingOf,
		spanWing:    spanWing,
		points:      make([]r3.Vec, nRows*nPS),
		velocity:    make([]r3.Vec, nRows*nPS),
		strengths:   make([]float64, s.NrPanelsPerLineElement*nLines),
		panels:      make([]vortex.Panel, s.NrPanelsPerLineElement*nLines),
		directions:  make([]r3.Vec, nPS),
		undisturbed: make([]r3.Vec, nPS),
		chordAtSpan: m.SpanPointValuesFromCtrlPointValues(m.chordLengths, false),
	}, nil
}

// Kind implements Wake.
func (w *DynamicWake) Kind() string { return "dynamic" }

// Points implements Wake. The first row is the wing itself and moves with it.
func (w *DynamicWake) Points() []r3.Vec { return w.points[w.nPointsSpan:] }

// Strengths returns the panel strengths, streamwise major.
func (w *DynamicWake) Strengths() []float64 { return w.strengths }

// Steps returns the number of completed steps.
func (w *DynamicWake) Steps() int { return w.steps }

func (w *DynamicWake) point(s, k int) *r3.Vec { return &w.points[s*w.nPointsSpan+k] }

// spanIndices returns the span point indices of line element j.
func (w *DynamicWake) spanIndices(j int) (int, int) {
	k := j + w.wingOf[j]
	return k, k + 1
}

// setSpanDirections sets the per span point convection direction from the wing averaged felt
// velocity.
func (w *DynamicWake) setSpanDirections(m *LineForceModel, felt []r3.Vec) {
	dirs := wakeDirections(m, felt)
	for k, wi := range w.spanWing {
		w.directions[k] = dirs[wi]
	}
}

func (w *DynamicWake) initialize(m *LineForceModel, felt []r3.Vec, dt float64) {
	w.setSpanDirections(m, felt)
	span := m.SpanPoints()
	speed := m.WingAveraged(speeds(felt))
	nRows := w.nStream + 1
	for k := range span {
		wi := w.spanWing[k]
		c := w.chordAtSpan[k]
		dir := w.directions[k]
		*w.point(0, k) = span[k]
		*w.point(1, k) = r3.Add(span[k], r3.Scale(w.Settings.FirstPanelRelativeLength*c, dir))
		step := w.Settings.InitialRelativeWakeLength * c / float64(nRows-2)
		if dt > 0 && speed[wi] > 0 {
			step = speed[wi] * dt
		}
		for s := 2; s < nRows-1; s++ {
			*w.point(s, k) = r3.Add(*w.point(s-1, k), r3.Scale(step, dir))
		}
		*w.point(nRows-1, k) = r3.Add(*w.point(nRows-2, k), r3.Scale(w.Settings.LastPanelRelativeLength*c, dir))
	}
	for i := range w.velocity {
		w.velocity[i] = r3.Scale(speed[w.spanWing[i%w.nPointsSpan]], w.directions[i%w.nPointsSpan])
	}
	w.initialized = true
}

func (w *DynamicWake) updateBeforeSolving(m *LineForceModel, felt []r3.Vec, dt float64) {
	if !w.initialized {
		w.initialize(m, felt, dt)
	}
	w.setSpanDirections(m, felt)
	mean := m.WingAveragedVec(felt)
	for k, wi := range w.spanWing {
		w.undisturbed[k] = mean[wi]
	}
	nRows := w.nStream + 1
	span := m.SpanPoints()
	for k := range span {
		*w.point(0, k) = span[k]
	}

	relax := 1 - w.Settings.ShapeDampingFactor
	for s := nRows - 2; s >= 2; s-- {
		for k := 0; k < w.nPointsSpan; k++ {
			prev := w.points[(s-1)*w.nPointsSpan+k]
			target := r3.Add(prev, r3.Scale(dt, w.velocity[(s-1)*w.nPointsSpan+k]))
			p := w.point(s, k)
			*p = r3.Add(*p, r3.Scale(relax, r3.Sub(target, *p)))
		}
	}
	for k := range span {
		c := w.chordAtSpan[k]
		*w.point(1, k) = r3.Add(span[k], r3.Scale(w.Settings.FirstPanelRelativeLength*c, w.directions[k]))
		last := w.points[(nRows-2)*w.nPointsSpan+k]
		dir := unit(w.velocity[(nRows-2)*w.nPointsSpan+k])
		if dir == (r3.Vec{}) {
			dir = w.directions[k]
		}
		*w.point(nRows-1, k) = r3.Add(last, r3.Scale(w.Settings.LastPanelRelativeLength*c, dir))
	}

	w.rebuildPanels()
	for s := w.nStream - 1; s >= 1; s-- {
		copy(w.strengths[s*w.nLines:(s+1)*w.nLines], w.strengths[(s-1)*w.nLines:s*w.nLines])
	}
}

func (w *DynamicWake) rebuildPanels() {
	for s := 0; s < w.nStream; s++ {
		for j := 0; j < w.nLines; j++ {
			k0, k1 := w.spanIndices(j)
			pts := [4]r3.Vec{*w.point(s, k0), *w.point(s, k1), *w.point(s+1, k1), *w.point(s+1, k0)}
			core := w.Settings.ViscousCore.Length(r3.Norm(r3.Sub(pts[1], pts[0])))
			w.panels[s*w.nLines+j] = vortex.NewPanel(pts, w.Settings.FarFieldRatio, core)
		}
	}
}

func (w *DynamicWake) frozen(m *LineForceModel) *FrozenWake {
	ctrl := m.CtrlPoints()
	f := newFrozenWake(len(ctrl), w.nLines)
	sym := w.Settings.Symmetry
	parallelFor(len(ctrl), func(i int) {
		var fixed r3.Vec
		for idx, p := range w.panels {
			j := idx % w.nLines
			if w.Settings.NeglectSelfInducedVelocities && w.wingOf[j] == w.wingOf[i] {
				continue
			}
			u := p.InducedVelocityWithSymmetry(ctrl[i], sym)
			if idx < w.nLines {
				f.setFactor(i, j, u)
				continue
			}
			fixed = r3.Add(fixed, r3.Scale(w.strengths[idx], u))
		}
		f.Fixed[i] = fixed
	})
	return f
}

func (w *DynamicWake) updateAfterSolving(_ *LineForceModel, gamma []float64, _, wakeFreestream []r3.Vec) {
	copy(w.strengths[:w.nLines], gamma)
	w.steps++

	wakePoints := w.points[w.nPointsSpan:]
	nAffected := int(math.Ceil(w.Settings.RatioOfWakeAffectedByInducedVelocities * float64(len(wakePoints))))
	var induced []r3.Vec
	if nAffected > 0 && w.steps > 2 {
		induced = w.InducedVelocities(wakePoints[:nAffected])
	}
	// without a freestream at the wake points, the wing averaged flow stands in for it
	for k := range wakePoints {
		u := w.undisturbed[k%w.nPointsSpan]
		if len(wakeFreestream) == len(wakePoints) {
			u = wakeFreestream[k]
		}
		if k < len(induced) {
			u = r3.Add(u, induced[k])
		}
		w.velocity[w.nPointsSpan+k] = u
	}
	// the wing row convects with the velocity of the first wake row
	copy(w.velocity[:w.nPointsSpan], w.velocity[w.nPointsSpan:2*w.nPointsSpan])
}

// InducedVelocities implements Wake.
func (w *DynamicWake) InducedVelocities(points []r3.Vec) []r3.Vec {
	out := make([]r3.Vec, len(points))
	parallelFor(len(points), func(i int) {
		var u r3.Vec
		for idx, p := range w.panels {
			if w.strengths[idx] == 0 {
				continue
			}
			u = r3.Add(u, r3.Scale(w.strengths[idx], p.InducedVelocityWithSymmetry(points[i], w.Settings.Symmetry)))
		}
		out[i] = u
	})
	return out
}

// Shape implements Wake.
func (w *DynamicWake) Shape() WakeShape {
	s := WakeShape{
		Points:    append([]r3.Vec(nil), w.points...),
		Panels:    make([][4]int, 0, len(w.panels)),
		Strengths: append([]float64(nil), w.strengths...),
	}
	for st := 0; st < w.nStream; st++ {
		for j := 0; j < w.nLines; j++ {
			k0, k1 := w.spanIndices(j)
			s.Panels = append(s.Panels, [4]int{
				st*w.nPointsSpan + k0, st*w.nPointsSpan + k1,
				(st+1)*w.nPointsSpan + k1, (st+1)*w.nPointsSpan + k0,
			})
		}
	}
	return s
}
