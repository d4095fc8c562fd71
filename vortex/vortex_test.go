package vortex

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/spatial/r3"
)

func vecEqual(a, b r3.Vec, tol float64) bool {
	return scalar.EqualWithinAbs(a.X, b.X, tol) && scalar.EqualWithinAbs(a.Y, b.Y, tol) && scalar.EqualWithinAbs(a.Z, b.Z, tol)
}

func TestLineInfiniteLimit(t *testing.T) {
	a := r3.Vec{Y: -1e4}
	b := r3.Vec{Y: 1e4}
	u := LineInducedVelocity(a, b, r3.Vec{X: 1}, 0)
	exp := r3.Vec{Z: -1 / (2 * math.Pi)}
	if !vecEqual(u, exp, 1e-7) {
		t.Fatalf("u=%+v expected %+v", u, exp)
	}
}

func TestLineFarField(t *testing.T) {
	a := r3.Vec{Y: -0.5}
	b := r3.Vec{Y: 0.5}
	prev := math.Inf(1)
	for _, d := range []float64{1, 10, 100, 1000, 1e5} {
		u := r3.Norm(LineInducedVelocity(a, b, r3.Vec{X: d, Z: 0.3 * d}, 0))
		if u >= prev {
			t.Fatalf("velocity does not decay at distance %f: %e >= %e", d, u, prev)
		}
		prev = u
	}
	if prev > 1e-10 {
		t.Fatalf("velocity far away is %e", prev)
	}
}

func TestLineOnSegment(t *testing.T) {
	a := r3.Vec{Y: -0.5}
	b := r3.Vec{Y: 0.5}
	for _, rc := range []float64{0, 0.1} {
		u := LineInducedVelocity(a, b, r3.Vec{Y: 0.1}, rc)
		if r3.Norm(u) != 0 {
			t.Fatalf("rc=%f: velocity on the line is %+v", rc, u)
		}
	}
	// On the extension of the line.
	u := LineInducedVelocity(a, b, r3.Vec{Y: 3}, 0)
	if r3.Norm(u) != 0 {
		t.Fatalf("velocity on the line extension is %+v", u)
	}
}

func TestLineViscousCore(t *testing.T) {
	a := r3.Vec{Y: -1}
	b := r3.Vec{Y: 1}
	const rc = 0.1
	bound := 1 / (2 * math.Pi * rc)
	for _, h := range []float64{1, 0.1, 1e-2, 1e-3, 1e-4, 1e-6, 1e-8, 0} {
		if u := r3.Norm(LineInducedVelocity(a, b, r3.Vec{X: h}, rc)); u > bound || math.IsNaN(u) {
			t.Fatalf("h=%e: cored velocity %f above %f", h, u, bound)
		}
	}
	var singular float64
	for _, h := range []float64{1, 0.1, 1e-2, 1e-3, 1e-4} {
		u := r3.Norm(LineInducedVelocity(a, b, r3.Vec{X: h}, 0))
		if u < singular {
			t.Fatalf("h=%e: singular velocity decreased", h)
		}
		singular = u
	}
	if singular < 1e3 {
		t.Fatalf("velocity without core should blow up, got %f", singular)
	}
}

func TestSegmentDistance(t *testing.T) {
	a := r3.Vec{}
	b := r3.Vec{X: 1}
	cases := []struct {
		p   r3.Vec
		exp float64
	}{
		{r3.Vec{X: 0.5, Y: 2}, 4},
		{r3.Vec{X: -1}, 1},
		{r3.Vec{X: 3, Z: 1}, 5},
	}
	for _, c := range cases {
		if got := SegmentDistanceSquared(a, b, c.p); !scalar.EqualWithinAbs(got, c.exp, 1e-12) {
			t.Fatalf("distance²(%+v)=%f expected %f", c.p, got, c.exp)
		}
	}
}

func TestHorseshoeMatchesPanel(t *testing.T) {
	h := Horseshoe{Start: r3.Vec{Y: -0.5}, End: r3.Vec{Y: 0.5}, Wake: r3.Vec{X: 50}, CoreLength: 0.01}
	p := NewPanel(h.Points(), 1e9, h.CoreLength)
	for _, q := range []r3.Vec{{X: 0.3, Y: 0.2}, {X: -2, Z: 1}, {X: 10, Y: 3, Z: -0.5}} {
		if !vecEqual(h.InducedVelocity(q), p.InducedVelocity(q), 1e-14) {
			t.Fatalf("horseshoe and panel differ at %+v", q)
		}
	}
}

func TestPanelGeometry(t *testing.T) {
	p := NewPanel([4]r3.Vec{{Y: -1}, {Y: 1}, {X: 1, Y: 1}, {X: 1, Y: -1}}, DefaultFarFieldRatio, 0)
	if !scalar.EqualWithinAbs(p.Area, 2, 1e-12) {
		t.Fatalf("area=%f", p.Area)
	}
	if !vecEqual(p.Normal, r3.Vec{Z: -1}, 1e-12) {
		t.Fatalf("normal=%+v", p.Normal)
	}
	if !vecEqual(p.Center, r3.Vec{X: 0.5}, 1e-12) {
		t.Fatalf("center=%+v", p.Center)
	}
	if !scalar.EqualWithinAbs(p.FarFieldLength2, 100, 1e-12) {
		t.Fatalf("far field length²=%f", p.FarFieldLength2)
	}
}

func TestPanelFarFieldDoublet(t *testing.T) {
	pts := [4]r3.Vec{{Y: -0.5}, {Y: 0.5}, {X: 1, Y: 0.5}, {X: 1, Y: -0.5}}
	ring := NewPanel(pts, 1e9, 0)
	doublet := NewPanel(pts, 0, 0)
	for _, q := range []r3.Vec{{X: 20, Y: 3, Z: 5}, {Z: 25}, {X: -30, Y: 10}} {
		ur := ring.InducedVelocity(q)
		ud := doublet.InducedVelocity(q)
		if diff := r3.Norm(r3.Sub(ur, ud)) / r3.Norm(ur); diff > 0.01 {
			t.Fatalf("doublet approximation off by %.3f%% at %+v", diff*100, q)
		}
	}
}

func TestPanelSymmetry(t *testing.T) {
	pts := [4]r3.Vec{{X: 0.2, Y: 0.3, Z: 0.4}, {X: 0.3, Y: 1.3, Z: 0.5}, {X: 1.5, Y: 1.2, Z: 0.7}, {X: 1.4, Y: 0.2, Z: 0.6}}
	p := NewPanel(pts, 1e9, 0.01)
	q := r3.Vec{X: 0.7, Y: 0.4, Z: -0.3}
	for _, s := range []SymmetryCondition{SymmetryX, SymmetryY, SymmetryZ} {
		// The explicit image is the mirrored ring with reversed orientation.
		image := NewPanel([4]r3.Vec{s.Mirror(pts[1]), s.Mirror(pts[0]), s.Mirror(pts[3]), s.Mirror(pts[2])}, 1e9, 0.01)
		exp := r3.Add(p.InducedVelocity(q), image.InducedVelocity(q))
		if got := p.InducedVelocityWithSymmetry(q, s); !vecEqual(got, exp, 1e-12) {
			t.Fatalf("symmetry %s: got %+v expected %+v", s, got, exp)
		}
	}
	if !vecEqual(p.InducedVelocityWithSymmetry(q, NoSymmetry), p.InducedVelocity(q), 0) {
		t.Fatal("no symmetry should not alter the velocity")
	}
}

func TestViscousCoreLength(t *testing.T) {
	if l := DefaultViscousCoreLength().Length(2); !scalar.EqualWithinAbs(l, 0.2, 1e-12) {
		t.Fatalf("default core length %f", l)
	}
	if l := Absolute(0.3).Length(100); l != 0.3 {
		t.Fatalf("absolute core length %f", l)
	}
	none, err := ParseViscousCoreLength("none", 0)
	if err != nil || none.Length(1) != 0 {
		t.Fatalf("none: %v %f", err, none.Length(1))
	}
	if _, err := ParseViscousCoreLength("gaussian", 1); err == nil {
		t.Fatal("expected an error for an unknown core kind")
	}
	if _, err := ParseSymmetryCondition("w"); err == nil {
		t.Fatal("expected an error for an unknown symmetry")
	}
}
