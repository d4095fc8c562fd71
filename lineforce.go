package liftline

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// OutputFrame is the frame integrated forces and moments are reported in.
type OutputFrame uint8

const (
	// GlobalFrame reports vectors in the fixed frame.
	GlobalFrame OutputFrame = iota
	// BodyFrame reports vectors in the frame moving with the collective translation and rotation.
	BodyFrame
)

func (f OutputFrame) String() string {
	if f == BodyFrame {
		return "body"
	}
	return "global"
}

// ParseOutputFrame returns the frame named s.
func ParseOutputFrame(s string) (OutputFrame, error) {
	switch s {
	case "", "global":
		return GlobalFrame, nil
	case "body":
		return BodyFrame, nil
	}
	return GlobalFrame, fmt.Errorf("%w: output frame `%s`", ErrInvalidSetting, s)
}

type wing struct {
	start, end    int
	model         SectionModel
	nonZeroAtEnds [2]bool
	virtual       bool
	rotationAxis  r3.Vec
	initialState  float64
}

// LineForceModel holds a set of wings discretized into line elements, their sectional models and
// their rigid body motion. Topology is fixed once built; motion and internal state are set by the
// caller, followed by UpdateGlobalGeometry.
type LineForceModel struct {
	Density       float64
	OutputFrame   OutputFrame
	RotationOrder RotationOrder

	spanLinesLocal    []SpanLine
	chordVectorsLocal []r3.Vec
	chordLengths      []float64
	wings             []wing
	wingOf            []int
	correction        CirculationCorrection

	spanDistance         []float64
	relativeSpanDistance []float64
	wingSpans            []float64

	translation     r3.Vec
	rotation        r3.Vec
	localWingAngles []float64
	internalState   []float64
	motion          *motionHistory

	stale            bool
	spanLines        []SpanLine
	chordVectors     []r3.Vec
	ctrlPoints       []r3.Vec
	bodySpanLines    []SpanLine
	bodyChordVectors []r3.Vec
}

// NrSpanLines returns the number of line elements.
func (m *LineForceModel) NrSpanLines() int { return len(m.spanLinesLocal) }

// NrWings returns the number of wings.
func (m *LineForceModel) NrWings() int { return len(m.wings) }

// WingRange returns the element range [start, end) of wing w.
func (m *LineForceModel) WingRange(w int) (int, int) { return m.wings[w].start, m.wings[w].end }

// WingIndex returns the wing of element i.
func (m *LineForceModel) WingIndex(i int) int { return m.wingOf[i] }

// IsVirtual reports whether wing w is excluded from integrated forces.
func (m *LineForceModel) IsVirtual(w int) bool { return m.wings[w].virtual }

// NonZeroCirculationAtEnds returns the end flags of wing w.
func (m *LineForceModel) NonZeroCirculationAtEnds(w int) [2]bool { return m.wings[w].nonZeroAtEnds }

// SectionModel returns the sectional model of wing w.
func (m *LineForceModel) SectionModel(w int) SectionModel { return m.wings[w].model }

// ChordLengths returns the chord length of each element.
func (m *LineForceModel) ChordLengths() []float64 { return append([]float64(nil), m.chordLengths...) }

// Correction returns the active circulation correction.
func (m *LineForceModel) Correction() CirculationCorrection { return m.correction }

// SetCorrection replaces the circulation correction. A nil value disables corrections.
func (m *LineForceModel) SetCorrection(c CirculationCorrection) {
	if c == nil {
		c = NoCorrection{}
	}
	m.correction = c
}

// SetTranslation sets the collective translation.
func (m *LineForceModel) SetTranslation(t r3.Vec) {
	m.translation = t
	m.stale = true
}

// SetRotation sets the collective rotation angles, applied in RotationOrder.
func (m *LineForceModel) SetRotation(rot r3.Vec) {
	m.rotation = rot
	m.stale = true
}

// SetLocalWingAngles sets the rotation of each wing around its own span axis.
func (m *LineForceModel) SetLocalWingAngles(angles []float64) {
	if len(angles) != len(m.wings) {
		panic(fmt.Sprintf("%d local wing angles for %d wings", len(angles), len(m.wings)))
	}
	copy(m.localWingAngles, angles)
	m.stale = true
}

// SetInternalState sets the internal sectional state of each wing, such as flap angle or rotor
// speed.
func (m *LineForceModel) SetInternalState(state []float64) {
	if len(state) != len(m.wings) {
		panic(fmt.Sprintf("%d internal states for %d wings", len(state), len(m.wings)))
	}
	copy(m.internalState, state)
	m.stale = true
}

// Translation returns the collective translation.
func (m *LineForceModel) Translation() r3.Vec { return m.translation }

// Rotation returns the collective rotation angles.
func (m *LineForceModel) Rotation() r3.Vec { return m.rotation }

// LocalWingAngles returns a copy of the local wing angles.
func (m *LineForceModel) LocalWingAngles() []float64 {
	return append([]float64(nil), m.localWingAngles...)
}

// InternalState returns a copy of the internal state of each wing.
func (m *LineForceModel) InternalState() []float64 {
	return append([]float64(nil), m.internalState...)
}

// UpdateGlobalGeometry derives every global quantity from the local geometry and the current
// motion. It must be called after any setter and before the model is used again.
func (m *LineForceModel) UpdateGlobalGeometry() {
	n := len(m.spanLinesLocal)
	if m.spanLines == nil {
		m.spanLines = make([]SpanLine, n)
		m.chordVectors = make([]r3.Vec, n)
		m.ctrlPoints = make([]r3.Vec, n)
		m.bodySpanLines = make([]SpanLine, n)
		m.bodyChordVectors = make([]r3.Vec, n)
	}
	rot := RotationMatrix(m.rotation, m.RotationOrder)
	for i, line := range m.spanLinesLocal {
		w := m.wingOf[i]
		// local wing angles turn the chord only; the span line is the rotation axis
		body := line
		chord := RotateAroundAxis(m.chordVectorsLocal[i], m.localWingAngles[w], m.wings[w].rotationAxis)
		m.bodySpanLines[i] = body
		m.bodyChordVectors[i] = chord
		m.spanLines[i] = body.Rotate(m.rotation, m.RotationOrder).Translate(m.translation)
		m.chordVectors[i] = MxV33(rot, chord)
		m.ctrlPoints[i] = m.spanLines[i].CtrlPoint()
	}
	m.stale = false
}

func (m *LineForceModel) mustBeFresh() {
	if m.stale {
		panic("line force model used after a setter without UpdateGlobalGeometry")
	}
}

// SpanLines returns the span lines in the global frame.
func (m *LineForceModel) SpanLines() []SpanLine {
	m.mustBeFresh()
	return m.spanLines
}

// ChordVectors returns the chord vectors in the global frame.
func (m *LineForceModel) ChordVectors() []r3.Vec {
	m.mustBeFresh()
	return m.chordVectors
}

// CtrlPoints returns the control points in the global frame.
func (m *LineForceModel) CtrlPoints() []r3.Vec {
	m.mustBeFresh()
	return m.ctrlPoints
}

// SpanPoints returns the end points of all line elements, wing by wing: nr elements + 1 points
// per wing.
func (m *LineForceModel) SpanPoints() []r3.Vec {
	m.mustBeFresh()
	points := make([]r3.Vec, 0, len(m.spanLines)+len(m.wings))
	for _, w := range m.wings {
		for i := w.start; i < w.end; i++ {
			points = append(points, m.spanLines[i].Start)
		}
		points = append(points, m.spanLines[w.end-1].End)
	}
	return points
}

// framedGeometry returns the span lines and chord vectors in the output frame.
func (m *LineForceModel) framedGeometry() ([]SpanLine, []r3.Vec) {
	m.mustBeFresh()
	if m.OutputFrame == BodyFrame {
		return m.bodySpanLines, m.bodyChordVectors
	}
	return m.spanLines, m.chordVectors
}

// toOutputFrame expresses a global vector in the output frame.
func (m *LineForceModel) toOutputFrame(v r3.Vec) r3.Vec {
	if m.OutputFrame == BodyFrame {
		return InverseRotateVec(v, m.rotation, m.RotationOrder)
	}
	return v
}

func (m *LineForceModel) computeSpanDistances() {
	n := len(m.spanLinesLocal)
	m.spanDistance = make([]float64, n)
	m.relativeSpanDistance = make([]float64, n)
	m.wingSpans = make([]float64, len(m.wings))
	for w, wg := range m.wings {
		prev := m.spanLinesLocal[wg.start].Start
		var dist float64
		for i := wg.start; i < wg.end; i++ {
			cp := m.spanLinesLocal[i].CtrlPoint()
			dist += r3.Norm(r3.Sub(cp, prev))
			prev = cp
			m.spanDistance[i] = dist
		}
		total := dist + r3.Norm(r3.Sub(m.spanLinesLocal[wg.end-1].End, prev))
		m.wingSpans[w] = total
		for i := wg.start; i < wg.end; i++ {
			m.relativeSpanDistance[i] = m.spanDistance[i]/total - 0.5
		}
	}
}

// SpanDistance returns the distance from the start of its wing to each control point.
func (m *LineForceModel) SpanDistance() []float64 { return m.spanDistance }

// RelativeSpanDistance returns the span position of each control point divided by the wing span,
// going from -0.5 to 0.5 with zero at the middle of the wing.
func (m *LineForceModel) RelativeSpanDistance() []float64 { return m.relativeSpanDistance }

// WingSpans returns the span of each wing.
func (m *LineForceModel) WingSpans() []float64 { return m.wingSpans }

// EffectiveRelativeSpanDistance is RelativeSpanDistance with a wing that has one non-zero end
// treated as half of a wing mirrored about that end.
func (m *LineForceModel) EffectiveRelativeSpanDistance() []float64 {
	out := make([]float64, len(m.relativeSpanDistance))
	for i, s := range m.relativeSpanDistance {
		switch m.wings[m.wingOf[i]].nonZeroAtEnds {
		case [2]bool{true, false}:
			out[i] = (s + 0.5) / 2
		case [2]bool{false, true}:
			out[i] = (s - 0.5) / 2
		default:
			out[i] = s
		}
	}
	return out
}

// AnglesOfAttack returns the angle from the chord to the velocity at each control point, positive
// for a right handed rotation around the span line. Velocities are in the global frame.
func (m *LineForceModel) AnglesOfAttack(velocity []r3.Vec) []float64 {
	m.mustBeFresh()
	angles := make([]float64, len(velocity))
	for i, u := range velocity {
		if r3.Norm(u) == 0 {
			continue
		}
		angles[i] = signedAngle(m.chordVectors[i], u, m.spanLines[i].Direction())
	}
	return angles
}

// LiftCoefficients returns the sectional lift coefficient at each control point.
func (m *LineForceModel) LiftCoefficients(velocity []r3.Vec) []float64 {
	cl, _ := m.sectionCoefficients(m.AnglesOfAttack(velocity), speeds(velocity))
	return cl
}

// DragCoefficients returns the sectional drag coefficient at each control point.
func (m *LineForceModel) DragCoefficients(velocity []r3.Vec) []float64 {
	_, cd := m.sectionCoefficients(m.AnglesOfAttack(velocity), speeds(velocity))
	return cd
}

func speeds(velocity []r3.Vec) []float64 {
	out := make([]float64, len(velocity))
	for i, u := range velocity {
		out[i] = r3.Norm(u)
	}
	return out
}

// sectionCoefficients evaluates the sectional model of each wing with the input it needs: the
// angle of attack for foils, plus the internal state for varying foils, and the spin ratio for
// cylinders.
func (m *LineForceModel) sectionCoefficients(angles, speeds []float64) (cl, cd []float64) {
	cl = make([]float64, len(angles))
	cd = make([]float64, len(angles))
	for w, wg := range m.wings {
		switch model := wg.model.(type) {
		case *Foil:
			for i := wg.start; i < wg.end; i++ {
				cl[i] = model.LiftCoefficient(angles[i])
				cd[i] = model.DragCoefficient(angles[i])
			}
		case *VaryingFoil:
			foil := model.FoilAt(m.internalState[w])
			for i := wg.start; i < wg.end; i++ {
				cl[i] = foil.LiftCoefficient(angles[i])
				cd[i] = foil.DragCoefficient(angles[i])
			}
		case *RotatingCylinder:
			for i := wg.start; i < wg.end; i++ {
				sr := SpinRatio(m.chordLengths[i], speeds[i], m.internalState[w])
				cl[i] = model.LiftCoefficient(sr)
				cd[i] = model.DragCoefficient(sr)
			}
		}
	}
	return cl, cd
}

// AmountOfStall returns how far past stall each section is, from zero to one. Cylinders never
// stall.
func (m *LineForceModel) AmountOfStall(angles []float64) []float64 {
	out := make([]float64, len(angles))
	for w, wg := range m.wings {
		var foil *Foil
		switch model := wg.model.(type) {
		case *Foil:
			foil = model
		case *VaryingFoil:
			foil = model.FoilAt(m.internalState[w])
		default:
			continue
		}
		for i := wg.start; i < wg.end; i++ {
			out[i] = foil.AmountOfStall(angles[i])
		}
	}
	return out
}

// CirculationStrengthRaw returns Γ = -½·c·|U|·Cl at each control point.
func (m *LineForceModel) CirculationStrengthRaw(velocity []r3.Vec) []float64 {
	cl := m.LiftCoefficients(velocity)
	gamma := make([]float64, len(velocity))
	for i, u := range velocity {
		gamma[i] = -0.5 * m.chordLengths[i] * r3.Norm(u) * cl[i]
	}
	return gamma
}

// CirculationStrength returns the raw circulation strength with the active correction applied.
func (m *LineForceModel) CirculationStrength(velocity []r3.Vec) []float64 {
	raw := m.CirculationStrengthRaw(velocity)
	if m.correction == nil {
		return raw
	}
	return m.correction.apply(m, velocity, raw)
}

// Residual returns the difference between the lift coefficient implied by gamma and the sectional
// lift coefficient at each control point. Sections without flow have zero residual.
func (m *LineForceModel) Residual(gamma []float64, velocity []r3.Vec) []float64 {
	cl := m.LiftCoefficients(velocity)
	res := make([]float64, len(velocity))
	for i, u := range velocity {
		speed := r3.Norm(u)
		if speed == 0 || m.chordLengths[i] == 0 {
			continue
		}
		res[i] = -2*gamma[i]/(m.chordLengths[i]*speed) - cl[i]
	}
	return res
}

// AverageResidualAbsolute returns the mean absolute residual.
func (m *LineForceModel) AverageResidualAbsolute(gamma []float64, velocity []r3.Vec) float64 {
	res := m.Residual(gamma, velocity)
	if len(res) == 0 {
		return 0
	}
	var sum float64
	for _, r := range res {
		sum += math.Abs(r)
	}
	return sum / float64(len(res))
}

// RemoveSpanVelocity returns the velocities without their component along each span line.
func (m *LineForceModel) RemoveSpanVelocity(velocity []r3.Vec) []r3.Vec {
	m.mustBeFresh()
	out := make([]r3.Vec, len(velocity))
	for i, u := range velocity {
		out[i] = removeComponent(u, m.spanLines[i].Vector())
	}
	return out
}

// WingAveraged returns the mean of values over each wing.
func (m *LineForceModel) WingAveraged(values []float64) []float64 {
	out := make([]float64, len(m.wings))
	for w, wg := range m.wings {
		var sum float64
		for i := wg.start; i < wg.end; i++ {
			sum += values[i]
		}
		out[w] = sum / float64(wg.end-wg.start)
	}
	return out
}

// WingAveragedVec returns the mean vector over each wing.
func (m *LineForceModel) WingAveragedVec(values []r3.Vec) []r3.Vec {
	out := make([]r3.Vec, len(m.wings))
	for w, wg := range m.wings {
		out[w] = meanVec(values[wg.start:wg.end])
	}
	return out
}

// SectionValuesFromWingValues repeats each wing value over the elements of the wing.
func (m *LineForceModel) SectionValuesFromWingValues(values []float64) []float64 {
	out := make([]float64, len(m.spanLinesLocal))
	for i := range out {
		out[i] = values[m.wingOf[i]]
	}
	return out
}

// SpanPointValuesFromCtrlPointValues maps control point values to the span points by averaging
// neighbours. End values are either extrapolated or copied from the nearest control point.
func (m *LineForceModel) SpanPointValuesFromCtrlPointValues(values []float64, extrapolateEnds bool) []float64 {
	out := make([]float64, 0, len(values)+len(m.wings))
	for _, wg := range m.wings {
		first, last := wg.start, wg.end-1
		if extrapolateEnds && last > first {
			out = append(out, values[first]+(values[first]-values[first+1])/2)
		} else {
			out = append(out, values[first])
		}
		for i := first; i < last; i++ {
			out = append(out, 0.5*(values[i]+values[i+1]))
		}
		if extrapolateEnds && last > first {
			out = append(out, values[last]+(values[last]-values[last-1])/2)
		} else {
			out = append(out, values[last])
		}
	}
	return out
}

func (m *LineForceModel) spanPointVecsFromCtrlPointVecs(values []r3.Vec) []r3.Vec {
	out := make([]r3.Vec, 0, len(values)+len(m.wings))
	for _, wg := range m.wings {
		out = append(out, values[wg.start])
		for i := wg.start; i < wg.end-1; i++ {
			out = append(out, r3.Scale(0.5, r3.Add(values[i], values[i+1])))
		}
		out = append(out, values[wg.end-1])
	}
	return out
}

// TotalProjectedArea returns the sum of chord times span over all non-virtual elements.
func (m *LineForceModel) TotalProjectedArea() float64 {
	var area float64
	for i, line := range m.spanLinesLocal {
		if m.wings[m.wingOf[i]].virtual {
			continue
		}
		area += m.chordLengths[i] * line.Length()
	}
	return area
}

// TotalForceFactor returns ½·ρ·U²·A, used to make integrated forces non-dimensional.
func (m *LineForceModel) TotalForceFactor(speed float64) float64 {
	return 0.5 * m.Density * speed * speed * m.TotalProjectedArea()
}
