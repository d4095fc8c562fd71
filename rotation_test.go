package liftline

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestR1R2R3(t *testing.T) {
	x := math.Pi / 3.0
	s, c := math.Sincos(x)
	r1 := R1(x)
	r2 := R2(x)
	r3m := R3(x)
	// Test items equal to 1.
	if r1.At(0, 0) != r2.At(1, 1) || r1.At(0, 0) != r3m.At(2, 2) || r3m.At(2, 2) != 1 {
		t.Fatal("expected R1.At(0, 0) = R2.At(1, 1) = R3.At(2, 2) = 1")
	}
	if r1.At(1, 1) != r1.At(2, 2) || r1.At(2, 2) != c || r1.At(2, 1) != -r1.At(1, 2) || r1.At(1, 2) != s {
		t.Fatal("R1 misplaced")
	}
	if r2.At(0, 0) != r2.At(2, 2) || r2.At(2, 2) != c || r2.At(2, 0) != -r2.At(0, 2) || r2.At(2, 0) != s {
		t.Fatal("R2 misplaced")
	}
	if r3m.At(1, 1) != r3m.At(0, 0) || r3m.At(0, 0) != c || r3m.At(0, 1) != -r3m.At(1, 0) || r3m.At(0, 1) != s {
		t.Fatal("R3 misplaced")
	}
}

func TestRotationMatrixOrthonormal(t *testing.T) {
	for _, order := range []RotationOrder{XYZ, ZYX, "yxz"} {
		m := RotationMatrix(r3.Vec{X: 0.3, Y: -1.1, Z: 2.5}, order)
		var mmT mat.Dense
		mmT.Mul(m, m.T())
		if !mat.EqualApprox(&mmT, mat.NewDiagDense(3, []float64{1, 1, 1}), 1e-12) {
			t.Fatalf("%s: R·Rᵀ = %v", order, mat.Formatted(&mmT))
		}
		if d := mat.Det(m); math.Abs(d-1) > 1e-12 {
			t.Fatalf("%s: det = %f", order, d)
		}
	}
}

func TestRotateVec(t *testing.T) {
	// Right handed rotation about z.
	v := RotateVec(r3.Vec{X: 1}, r3.Vec{Z: math.Pi / 2}, XYZ)
	if !vecsEqual(v, r3.Vec{Y: 1}, 1e-12) {
		t.Fatalf("rotated x = %+v", v)
	}
	// Order matters.
	rot := r3.Vec{X: math.Pi / 2, Z: math.Pi / 2}
	a := RotateVec(r3.Vec{Y: 1}, rot, XYZ)
	b := RotateVec(r3.Vec{Y: 1}, rot, ZYX)
	if !vecsEqual(a, r3.Vec{Z: 1}, 1e-12) || !vecsEqual(b, r3.Vec{X: -1}, 1e-12) {
		t.Fatalf("xyz gives %+v, zyx gives %+v", a, b)
	}
	w := r3.Vec{X: 0.2, Y: -3, Z: 1}
	rot = r3.Vec{X: 0.1, Y: 0.2, Z: -0.4}
	if back := InverseRotateVec(RotateVec(w, rot, XYZ), rot, XYZ); !vecsEqual(back, w, 1e-12) {
		t.Fatalf("inverse rotation gives %+v", back)
	}
	if v := RotateAroundAxis(r3.Vec{X: 1}, math.Pi/2, r3.Vec{Z: 2}); !vecsEqual(v, r3.Vec{Y: 1}, 1e-12) {
		t.Fatalf("rotation around z = %+v", v)
	}
}

func TestRotationOrderValidate(t *testing.T) {
	for _, o := range []RotationOrder{XYZ, ZYX, "yzx"} {
		if err := o.Validate(); err != nil {
			t.Fatalf("%s: %s", o, err)
		}
	}
	for _, o := range []RotationOrder{"xx", "xyy", "abc"} {
		if err := o.Validate(); err == nil {
			t.Fatalf("%s should be invalid", o)
		}
	}
}
