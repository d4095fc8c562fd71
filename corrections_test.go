package liftline

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/spatial/r3"
)

func constantRaw(n int, v float64) []float64 {
	out := make([]float64, n)
	floats.AddConst(v, out)
	return out
}

func TestGaussianCorrection(t *testing.T) {
	b := NewLineForceModelBuilder(20)
	attached := rectangularWing(4, 1, 0)
	attached.NonZeroCirculationAtEnds = [2]bool{true, true}
	b.AddWing(attached)
	b.AddWing(rectangularWing(4, 1, 0))
	m := mustBuild(b)
	u := uniformFlow(40, r3.Vec{X: 1})

	out := NewGaussianSmoothingCorrection().apply(m, u, constantRaw(40, -1))
	for i := 0; i < 20; i++ {
		if !scalar.EqualWithinAbs(out[i], -1, 1e-9) {
			t.Fatalf("attached wing point %d: %f", i, out[i])
		}
	}
	// free tips pull the ends towards zero, symmetrically
	if out[20] <= out[30] || out[20] >= 0 {
		t.Fatalf("free tip %f, middle %f", out[20], out[30])
	}
	if !scalar.EqualWithinAbs(out[20], out[39], 1e-9) {
		t.Fatalf("asymmetric smoothing %f != %f", out[20], out[39])
	}
}

func TestPolynomialCorrection(t *testing.T) {
	b := NewLineForceModelBuilder(15)
	wb := rectangularWing(3, 1, 0)
	wb.NonZeroCirculationAtEnds = [2]bool{true, true}
	b.AddWing(wb)
	m := mustBuild(b)
	raw := make([]float64, 15)
	for i := range raw {
		raw[i] = float64(i)*0.1 - 0.7
	}
	p := &PolynomialSmoothingCorrection{Window: WindowSeven}
	if out := p.apply(m, nil, raw); !floats.EqualApprox(out, raw, 1e-12) {
		t.Fatalf("linear data changed: %v", out)
	}
	raw[7] += 1
	if out := p.apply(m, nil, raw); out[7] >= raw[7] {
		t.Fatalf("spike not damped: %f", out[7])
	}
}

func TestArtificialViscosity(t *testing.T) {
	s := make([]float64, 20)
	for i := range s {
		s[i] = (float64(i) + 0.5) / 20
	}
	raw := constantRaw(20, 1)

	a := NewArtificialViscosity(0)
	if out, it := a.Solve(s, raw, [2]bool{}); it != 0 || !floats.Equal(out, raw) {
		t.Fatalf("zero viscosity changed the data after %d iterations", it)
	}

	a = NewArtificialViscosity(1e-3)
	out, it := a.Solve(s, raw, [2]bool{true, true})
	if it >= a.MaxIterations {
		t.Fatalf("no convergence with attached ends")
	}
	if !floats.EqualApprox(out, raw, 1e-6) {
		t.Fatalf("constant data with attached ends changed: %v", out)
	}

	out, _ = a.Solve(s, raw, [2]bool{})
	if out[0] >= out[10] || out[0] <= 0 {
		t.Fatalf("free end %f, middle %f", out[0], out[10])
	}
	if !scalar.EqualWithinAbs(out[0], out[19], 1e-6) {
		t.Fatalf("asymmetric solution %f != %f", out[0], out[19])
	}
	if floats.Max(out) > 1+1e-9 {
		t.Fatalf("overshoot %f", floats.Max(out))
	}

	b := NewLineForceModelBuilder(20)
	b.Correction.ArtificialViscosity = &ArtificialViscosity{Viscosity: 1e-3, Damping: 2}
	b.AddWing(rectangularWing(4, 1, 0))
	if _, err := b.Build(); !errors.Is(err, ErrInvalidSetting) {
		t.Fatalf("damping above one: %v", err)
	}
}

func TestPrescribedShape(t *testing.T) {
	e := EllipticShape()
	if e.Value(0) != 1 || e.Value(0.5) != 0 || e.Value(0.7) != 0 {
		t.Fatal("elliptic shape at center or tips")
	}
	if v := e.Value(0.25); !scalar.EqualWithinAbs(v, math.Sqrt(0.75), 1e-12) {
		t.Fatalf("elliptic shape at a quarter span: %f", v)
	}
}

func TestPrescribedCorrection(t *testing.T) {
	b := NewLineForceModelBuilder(20)
	b.AddWing(rectangularWing(4, 1, Deg2rad(5)))
	m := mustBuild(b)
	s := m.RelativeSpanDistance()
	followsShape := func(out []float64) {
		t.Helper()
		for i := range out {
			if !scalar.EqualWithinAbs(out[i]/out[9], EllipticShape().Value(s[i])/EllipticShape().Value(s[9]), 1e-9) {
				t.Fatalf("point %d does not follow the shape: %v", i, out)
			}
		}
	}

	// without velocities the given estimate is reshaped and its span integral kept
	raw := constantRaw(20, -1)
	out := NewPrescribedCirculation().apply(m, nil, raw)
	if !scalar.EqualWithinAbs(floats.Sum(out), floats.Sum(raw), 1e-9) {
		t.Fatalf("integral %f, expected %f", floats.Sum(out), floats.Sum(raw))
	}
	followsShape(out)

	// the speed grows along the span: the shape must still be exact, scaled by the mean flow
	u := make([]r3.Vec, 20)
	for i := range u {
		u[i] = r3.Vec{X: 1 + 0.05*float64(i)}
	}
	out = NewPrescribedCirculation().apply(m, u, raw)
	followsShape(out)
	mean := m.CirculationStrengthRaw(uniformFlow(20, r3.Vec{X: 1.475}))
	if !scalar.EqualWithinRel(floats.Sum(out), floats.Sum(mean), 1e-9) {
		t.Fatalf("integral %f, expected %f", floats.Sum(out), floats.Sum(mean))
	}
	if out[9] >= 0 {
		t.Fatalf("positive angle of attack must give negative circulation, got %f", out[9])
	}
}

func TestFitPrescribedShape(t *testing.T) {
	truth := PrescribedShape{InnerPower: 3, OuterPower: 0.6}
	s := linspace(-0.475, 0.475, 20)
	values := make([]float64, len(s))
	for i, si := range s {
		values[i] = -2.5 * truth.Value(si)
	}
	fit := FitPrescribedShape(s, values, EllipticShape())
	if !scalar.EqualWithinAbs(fit.InnerPower, truth.InnerPower, 0.15) || !scalar.EqualWithinAbs(fit.OuterPower, truth.OuterPower, 0.15) {
		t.Fatalf("fitted %+v, expected %+v", fit, truth)
	}
}

func TestParseCorrection(t *testing.T) {
	for kind, expected := range map[string]string{
		"":                     "none",
		"gaussian":             "gaussian",
		"polynomial":           "polynomial",
		"artificial_viscosity": "artificial_viscosity",
		"prescribed":           "prescribed",
	} {
		c, err := ParseCorrection(kind)
		if err != nil {
			t.Fatal(err)
		}
		if c.Kind() != expected {
			t.Fatalf("`%s` parsed as %s", kind, c.Kind())
		}
	}
	if _, err := ParseCorrection("spline"); !errors.Is(err, ErrInvalidSetting) {
		t.Fatalf("unknown correction: %v", err)
	}
}
