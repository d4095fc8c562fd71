// Package vortex holds the singularity elements used by the wake models: straight vortex lines,
// horseshoe vortices and quadrilateral doublet panels.
package vortex

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

const (
	fourPi = 4 * math.Pi
	// lineTolerance is the denominator below which a query point is considered to lie on the line.
	lineTolerance = 1e-10
)

// LineInducedVelocity returns the velocity induced at p by a straight vortex line from a to b with
// unit strength. A positive coreLength regularizes the velocity close to the line so that it stays
// bounded; a zero coreLength leaves the classical singular kernel.
func LineInducedVelocity(a, b, p r3.Vec, coreLength float64) r3.Vec {
	r1 := r3.Sub(p, a)
	r2 := r3.Sub(p, b)

	n1 := r3.Norm(r1)
	n2 := r3.Norm(r2)

	denominator := n1 * n2 * (n1*n2 + r3.Dot(r1, r2))
	if math.Abs(denominator) < lineTolerance {
		return r3.Vec{}
	}

	k := coreFactor(a, b, p, coreLength) * (n1 + n2) / (denominator * fourPi)

	return r3.Scale(k, r3.Cross(r1, r2))
}

// coreFactor is d²/sqrt(rc⁴+d⁴) where d is the distance from p to the segment.
func coreFactor(a, b, p r3.Vec, coreLength float64) float64 {
	if coreLength <= 0 {
		return 1
	}
	d2 := SegmentDistanceSquared(a, b, p)
	rc2 := coreLength * coreLength

	return d2 / math.Sqrt(rc2*rc2+d2*d2)
}

// SegmentDistanceSquared returns the squared distance from p to the segment a-b. Points whose
// projection falls outside the segment are measured to the closest end point.
func SegmentDistanceSquared(a, b, p r3.Vec) float64 {
	ab := r3.Sub(b, a)
	ap := r3.Sub(p, a)

	if r3.Dot(ap, ab) <= 0 {
		return r3.Norm2(ap)
	}
	bp := r3.Sub(p, b)
	if r3.Dot(bp, ab) >= 0 {
		return r3.Norm2(bp)
	}
	l2 := r3.Norm2(ab)
	if l2 == 0 {
		return r3.Norm2(ap)
	}

	return r3.Norm2(r3.Cross(ab, ap)) / l2
}
