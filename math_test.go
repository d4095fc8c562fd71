package liftline

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestAngles(t *testing.T) {
	for _, tc := range []struct{ deg, expPi float64 }{{0, 0}, {30, 1 / 6.}, {90, 0.5}, {150, 5 / 6.}, {180, 1}, {-90, -0.5}} {
		if !scalar.EqualWithinAbs(Deg2rad(tc.deg)/math.Pi, tc.expPi, 1e-12) {
			t.Fatalf("%f deg = %f π rad, expected %f", tc.deg, Deg2rad(tc.deg)/math.Pi, tc.expPi)
		}
		if !scalar.EqualWithinAbs(Rad2deg(Deg2rad(tc.deg)), tc.deg, 1e-12) {
			t.Fatalf("incorrect conversion for %3.2f", tc.deg)
		}
	}
}

func TestUnit(t *testing.T) {
	if u := unit(r3.Vec{X: 3, Y: 4}); !vecsEqual(u, r3.Vec{X: 0.6, Y: 0.8}, 1e-15) {
		t.Fatalf("unit = %+v", u)
	}
	if u := unit(r3.Vec{X: 1e-14}); u != (r3.Vec{}) {
		t.Fatalf("unit of a tiny vector = %+v", u)
	}
	if sign(0) != 1 || sign(-2) != -1 || sign(3) != 1 {
		t.Fatal("sign")
	}
}

func TestSignedAngle(t *testing.T) {
	z := r3.Vec{Z: 1}
	for _, deg := range []float64{-60, -10, 0, 5, 45, 120} {
		a := Deg2rad(deg)
		chord := RotateAroundAxis(r3.Vec{X: 1}, -a, z)
		got := signedAngle(chord, r3.Vec{X: 2}, z)
		if !scalar.EqualWithinAbs(got, a, 1e-12) {
			t.Fatalf("angle of attack %f deg, got %f", deg, Rad2deg(got))
		}
		if flipped := signedAngle(chord, r3.Vec{X: 2}, r3.Scale(-1, z)); !scalar.EqualWithinAbs(flipped, -a, 1e-12) {
			t.Fatalf("flipped axis %f deg, got %f", deg, Rad2deg(flipped))
		}
	}
	if signedAngle(r3.Vec{}, r3.Vec{X: 1}, z) != 0 {
		t.Fatal("angle with a zero vector should be zero")
	}
}

func TestProjection(t *testing.T) {
	v := r3.Vec{X: 1, Y: 2, Z: 3}
	dir := r3.Vec{Y: 5}
	if p := project(v, dir); !vecsEqual(p, r3.Vec{Y: 2}, 1e-15) {
		t.Fatalf("project = %+v", p)
	}
	if p := removeComponent(v, dir); !vecsEqual(p, r3.Vec{X: 1, Z: 3}, 1e-15) {
		t.Fatalf("removeComponent = %+v", p)
	}
	if m := meanVec([]r3.Vec{{X: 1}, {Y: 2}, {Z: 3}, {X: -1}}); !vecsEqual(m, r3.Vec{Y: 0.5, Z: 0.75}, 1e-15) {
		t.Fatalf("meanVec = %+v", m)
	}
}

func TestLinearInterpolation(t *testing.T) {
	xs := []float64{0, 1, 3}
	ys := []float64{0, 2, -2}
	for _, tc := range []struct{ x, exp float64 }{{-1, 0}, {0, 0}, {0.5, 1}, {1, 2}, {2, 0}, {3, -2}, {10, -2}} {
		if got := LinearInterpolation(tc.x, xs, ys); !scalar.EqualWithinAbs(got, tc.exp, 1e-15) {
			t.Fatalf("f(%f) = %f, expected %f", tc.x, got, tc.exp)
		}
	}
	if LinearInterpolation(4, []float64{1}, []float64{7}) != 7 {
		t.Fatal("single point data should be constant")
	}
	v := interpolateVec(2, xs, []r3.Vec{{}, {X: 1}, {X: 1, Y: 2}})
	if !vecsEqual(v, r3.Vec{X: 1, Y: 1}, 1e-15) {
		t.Fatalf("interpolateVec = %+v", v)
	}
}
