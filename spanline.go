package liftline

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// SpanLine is one line element of a wing span.
type SpanLine struct {
	Start, End r3.Vec
}

// LineCoordinates are the coordinates of a point in the frame of a line element: along the chord,
// along the thickness direction (span × chord) and along the span, relative to the control point.
type LineCoordinates struct {
	Chord, Thickness, Span float64
}

func (l SpanLine) String() string {
	return fmt.Sprintf("[%.3f %.3f %.3f] -> [%.3f %.3f %.3f]", l.Start.X, l.Start.Y, l.Start.Z, l.End.X, l.End.Y, l.End.Z)
}

// Vector returns End - Start.
func (l SpanLine) Vector() r3.Vec {
	return r3.Sub(l.End, l.Start)
}

// Length returns the length of the line.
func (l SpanLine) Length() float64 {
	return r3.Norm(l.Vector())
}

// Direction returns the unit vector from Start to End.
func (l SpanLine) Direction() r3.Vec {
	return unit(l.Vector())
}

// CtrlPoint returns the midpoint of the line.
func (l SpanLine) CtrlPoint() r3.Vec {
	return r3.Scale(0.5, r3.Add(l.Start, l.End))
}

// Distance returns the shortest distance from p to the line segment.
func (l SpanLine) Distance(p r3.Vec) float64 {
	v := l.Vector()
	sp := r3.Sub(p, l.Start)
	ep := r3.Sub(p, l.End)
	switch {
	case r3.Dot(sp, v) <= 0:
		return r3.Norm(sp)
	case r3.Dot(ep, v) >= 0:
		return r3.Norm(ep)
	}
	return r3.Norm(r3.Cross(v, sp)) / r3.Norm(v)
}

// LineCoordinates returns the coordinates of p in the frame spanned by the line and the chord
// vector.
func (l SpanLine) LineCoordinates(p, chord r3.Vec) LineCoordinates {
	rel := r3.Sub(p, l.CtrlPoint())
	span := l.Direction()
	c := unit(chord)
	thickness := r3.Cross(span, c)
	return LineCoordinates{
		Chord:     r3.Dot(rel, c),
		Thickness: r3.Dot(rel, thickness),
		Span:      r3.Dot(rel, span),
	}
}

// Translate returns the line moved by t.
func (l SpanLine) Translate(t r3.Vec) SpanLine {
	return SpanLine{r3.Add(l.Start, t), r3.Add(l.End, t)}
}

// Rotate returns the line rotated by the Euler angles rot in the given order.
func (l SpanLine) Rotate(rot r3.Vec, order RotationOrder) SpanLine {
	return SpanLine{RotateVec(l.Start, rot, order), RotateVec(l.End, rot, order)}
}
