package liftline

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
)

func TestFoilPreStall(t *testing.T) {
	f := NewFoil()
	f.CdZeroAngle = 0.01
	f.CdSecondOrderFactor = 0.5
	for _, deg := range []float64{-8, -2, 0, 3, 8} {
		a := Deg2rad(deg)
		if cl := f.LiftCoefficient(a); !scalar.EqualWithinRel(cl, 2*math.Pi*a, 1e-3) && a != 0 {
			t.Fatalf("Cl(%f°) = %f, expected %f", deg, cl, 2*math.Pi*a)
		}
		if cd := f.DragCoefficient(a); !scalar.EqualWithinAbs(cd, 0.01+0.5*a*a, 1e-4) {
			t.Fatalf("Cd(%f°) = %f", deg, cd)
		}
	}
	if cl := f.LiftCoefficient(0); !scalar.EqualWithinAbs(cl, 0, 1e-6) {
		t.Fatalf("Cl(0) = %f", cl)
	}
}

func TestFoilStall(t *testing.T) {
	f := NewFoil()
	if s := f.AmountOfStall(Deg2rad(5)); s > 1e-3 {
		t.Fatalf("stall at 5°: %f", s)
	}
	if s := f.AmountOfStall(Deg2rad(20)); !scalar.EqualWithinAbs(s, 0.5, 1e-12) {
		t.Fatalf("stall at the mean stall angle: %f", s)
	}
	if s := f.AmountOfStall(Deg2rad(-40)); s < 0.999 {
		t.Fatalf("stall at -40°: %f", s)
	}
	// Deep stall follows the flat plate.
	if cl := f.LiftCoefficient(Deg2rad(45)); !scalar.EqualWithinAbs(cl, 1, 1e-3) {
		t.Fatalf("Cl(45°) = %f", cl)
	}
	if cd := f.DragCoefficient(Deg2rad(90)); !scalar.EqualWithinAbs(cd, 1, 1e-3) {
		t.Fatalf("Cd(90°) = %f", cd)
	}
	// Lift is continuous through stall.
	prev := f.LiftCoefficient(Deg2rad(10))
	for deg := 10.1; deg < 40; deg += 0.1 {
		cl := f.LiftCoefficient(Deg2rad(deg))
		if math.Abs(cl-prev) > 0.05 {
			t.Fatalf("jump in lift at %f°: %f -> %f", deg, prev, cl)
		}
		prev = cl
	}
	f.StallModel = ConstantLiftStall
	atStall := f.LiftCoefficient(Deg2rad(20))
	if cl := f.LiftCoefficient(Deg2rad(30)); cl > atStall+1e-12 {
		t.Fatalf("constant lift stall increased the lift: %f > %f", cl, atStall)
	}
}

func TestFoilAsymmetricStall(t *testing.T) {
	f := NewFoil()
	f.MeanNegativeStallAngle = Deg2rad(10)
	if s := f.AmountOfStall(Deg2rad(-15)); s < 0.9 {
		t.Fatalf("negative stall at -15°: %f", s)
	}
	if s := f.AmountOfStall(Deg2rad(15)); s > 0.1 {
		t.Fatalf("positive stall at 15°: %f", s)
	}
}

func TestVaryingFoil(t *testing.T) {
	low := *NewFoil()
	high := *NewFoil()
	high.ClZeroAngle = 1
	v := &VaryingFoil{VariableData: []float64{0, 10}, Foils: []Foil{low, high}, InitialValue: 5}
	if err := v.Validate(); err != nil {
		t.Fatal(err)
	}
	if v.InitialState() != 5 || v.Kind() != "varying_foil" {
		t.Fatal("initial state or kind")
	}
	if cl := v.LiftCoefficient(0, 5); !scalar.EqualWithinAbs(cl, 0.5, 1e-6) {
		t.Fatalf("Cl at the middle state = %f", cl)
	}
	if cl := v.LiftCoefficient(0, 20); !scalar.EqualWithinAbs(cl, 1, 1e-6) {
		t.Fatalf("Cl beyond the data = %f", cl)
	}
	bad := &VaryingFoil{VariableData: []float64{0, 0}, Foils: []Foil{low, high}}
	if err := bad.Validate(); !errors.Is(err, ErrInvalidSetting) {
		t.Fatalf("unsorted data: %v", err)
	}
	bad = &VaryingFoil{VariableData: []float64{0}, Foils: []Foil{low, high}}
	if err := bad.Validate(); !errors.Is(err, ErrMismatchedLengths) {
		t.Fatalf("mismatched data: %v", err)
	}
}

func TestRotatingCylinder(t *testing.T) {
	c := NewRotatingCylinder(2)
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}
	if sr := SpinRatio(1, 0, 5); sr != 0 {
		t.Fatalf("spin ratio without flow = %f", sr)
	}
	sr := SpinRatio(1, 2, -1)
	if !scalar.EqualWithinAbs(sr, math.Pi/2, 1e-12) {
		t.Fatalf("spin ratio = %f", sr)
	}
	if rps := RevolutionsPerSecondFromSpinRatio(sr, 1, 2); !scalar.EqualWithinAbs(rps, -1, 1e-12) {
		t.Fatalf("rps = %f", rps)
	}
	if cl := c.LiftCoefficient(2); cl != 5.93 {
		t.Fatalf("Cl(2) = %f", cl)
	}
	if cl := c.LiftCoefficient(-2); cl != -5.93 {
		t.Fatalf("Cl(-2) = %f", cl)
	}
	if cd := c.DragCoefficient(-2); cd != 0.093 {
		t.Fatalf("Cd(-2) = %f", cd)
	}
	if cl := c.LiftCoefficient(0.25); !scalar.EqualWithinAbs(cl, 0.61, 1e-12) {
		t.Fatalf("Cl(0.25) = %f", cl)
	}
	c.CdData = c.CdData[:3]
	if err := c.Validate(); !errors.Is(err, ErrMismatchedLengths) {
		t.Fatalf("mismatched tables: %v", err)
	}
}
