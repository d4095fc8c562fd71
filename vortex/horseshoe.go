package vortex

import "gonum.org/v1/gonum/spatial/r3"

// Horseshoe is a bound vortex from Start to End with two trailing legs along Wake. The legs are
// closed far downstream, which makes it identical to a vortex ring.
type Horseshoe struct {
	Start, End r3.Vec
	Wake       r3.Vec
	CoreLength float64
}

// Points returns the ring in panel ordering.
func (h Horseshoe) Points() [4]r3.Vec {
	return [4]r3.Vec{h.Start, h.End, r3.Add(h.End, h.Wake), r3.Add(h.Start, h.Wake)}
}

// InducedVelocity returns the velocity induced at p with unit strength.
func (h Horseshoe) InducedVelocity(p r3.Vec) r3.Vec {
	pts := h.Points()
	var u r3.Vec
	for i := 0; i < 4; i++ {
		u = r3.Add(u, LineInducedVelocity(pts[i], pts[(i+1)%4], p, h.CoreLength))
	}
	return u
}

// InducedVelocityWithSymmetry adds the image horseshoe contribution.
func (h Horseshoe) InducedVelocityWithSymmetry(p r3.Vec, s SymmetryCondition) r3.Vec {
	u := h.InducedVelocity(p)
	if s == NoSymmetry {
		return u
	}
	return s.Combine(u, h.InducedVelocity(s.Mirror(p)))
}
