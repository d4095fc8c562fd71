package vortex

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultFarFieldRatio is the default distance, in panel lengths, beyond which a panel is
// evaluated as a point doublet.
const DefaultFarFieldRatio = 5.0

// Panel is a quadrilateral vortex ring of constant strength, equivalent to a doublet panel. The
// points are ordered [start, end, end+wake, start+wake] so that the first edge is the bound vortex.
type Panel struct {
	Points          [4]r3.Vec
	Center          r3.Vec
	Normal          r3.Vec
	Area            float64
	FarFieldLength2 float64 // squared distance beyond which the doublet approximation is used
	CoreLength      float64
}

// NewPanel computes the derived geometry of a panel.
func NewPanel(points [4]r3.Vec, farFieldRatio, coreLength float64) Panel {
	p := Panel{Points: points, CoreLength: coreLength}

	p.Center = r3.Scale(0.25, r3.Add(r3.Add(points[0], points[1]), r3.Add(points[2], points[3])))

	diagonals := r3.Cross(r3.Sub(points[2], points[0]), r3.Sub(points[3], points[1]))
	n := r3.Norm(diagonals)
	p.Area = 0.5 * n
	if n > 0 {
		p.Normal = r3.Scale(1/n, diagonals)
	}

	boundLength := r3.Norm(r3.Sub(points[1], points[0]))
	streamLength := r3.Norm(r3.Sub(points[3], points[0]))
	farField := math.Max(boundLength, streamLength) * farFieldRatio
	p.FarFieldLength2 = farField * farField

	return p
}

// BoundLength returns the length of the first edge.
func (p Panel) BoundLength() float64 {
	return r3.Norm(r3.Sub(p.Points[1], p.Points[0]))
}

// InducedVelocity returns the velocity induced at q by the panel with unit strength.
func (p Panel) InducedVelocity(q r3.Vec) r3.Vec {
	t := r3.Sub(q, p.Center)
	if r3.Norm2(t) > p.FarFieldLength2 {
		return p.doubletVelocity(t)
	}
	return p.ringVelocity(q)
}

// InducedVelocityWithSymmetry adds the image panel contribution for an active symmetry condition.
func (p Panel) InducedVelocityWithSymmetry(q r3.Vec, s SymmetryCondition) r3.Vec {
	u := p.InducedVelocity(q)
	if s == NoSymmetry {
		return u
	}
	return s.Combine(u, p.InducedVelocity(s.Mirror(q)))
}

func (p Panel) ringVelocity(q r3.Vec) r3.Vec {
	var u r3.Vec
	for i := 0; i < 4; i++ {
		u = r3.Add(u, LineInducedVelocity(p.Points[i], p.Points[(i+1)%4], q, p.CoreLength))
	}
	return u
}

// doubletVelocity is the far field of the ring: a point doublet of strength Area along Normal.
func (p Panel) doubletVelocity(t r3.Vec) r3.Vec {
	t2 := r3.Norm2(t)
	tn := math.Sqrt(t2)
	t5 := t2 * t2 * tn
	if t5 == 0 {
		return r3.Vec{}
	}
	h := r3.Dot(t, p.Normal)
	v := r3.Sub(r3.Scale(3*h, t), r3.Scale(t2, p.Normal))

	return r3.Scale(p.Area/(fourPi*t5), v)
}
