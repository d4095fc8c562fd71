package liftline

import (
	"errors"
	"math"
	"testing"

	"github.com/NTNU-IMT/stormbird-sub000/vortex"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/spatial/r3"
)

// solveSteady runs a single quasi-steady step of the model in a uniform flow along x.
func solveSteady(t *testing.T, b *SimulationBuilder, speed float64) (*Simulation, SimulationResult) {
	t.Helper()
	sim, err := NewSimulation(b)
	if err != nil {
		t.Fatal(err)
	}
	defer sim.Close()
	res, err := sim.Step(0, 0, uniformFlow(sim.Model.NrSpanLines(), r3.Vec{X: speed}))
	if err != nil {
		t.Fatal(err)
	}
	return sim, res
}

// liftAndDrag returns the circulatory force coefficients for a flow along x.
func liftAndDrag(sim *Simulation, res SimulationResult, speed float64) (cl, cd float64) {
	f := res.IntegratedForcesSum().Circulatory
	q := sim.Model.TotalForceFactor(speed)
	return f.Y / q, f.X / q
}

func TestEllipticWing(t *testing.T) {
	const aspectRatio = 10.0
	alpha := Deg2rad(4)
	wb, _ := ellipticWing(aspectRatio, alpha, 81)
	mb := NewLineForceModelBuilder(40)
	mb.AddWing(wb)
	sim, res := solveSteady(t, quietSimulation(mb, QuasiSteady), 8)
	if !res.Converged {
		t.Fatalf("not converged after %d iterations, residual %g", res.Iterations, res.Residual)
	}

	cl, cd := liftAndDrag(sim, res, 8)
	expectedCl := 2 * math.Pi * alpha / (1 + 2/aspectRatio)
	expectedCd := expectedCl * expectedCl / (math.Pi * aspectRatio)
	if !scalar.EqualWithinRel(cl, expectedCl, 0.05) {
		t.Fatalf("CL = %f, expected %f", cl, expectedCl)
	}
	if !scalar.EqualWithinRel(cd, expectedCd, 0.1) {
		t.Fatalf("CDi = %f, expected %f", cd, expectedCd)
	}

	// the circulation is close to elliptic away from the tips
	gamma := sim.CirculationStrength()
	s := sim.Model.RelativeSpanDistance()
	mid := len(gamma) / 2
	for i := 8; i < len(gamma)-8; i++ {
		expected := gamma[mid] * EllipticShape().Value(s[i]) / EllipticShape().Value(s[mid])
		if !scalar.EqualWithinRel(gamma[i], expected, 0.05) {
			t.Fatalf("circulation %d = %f, elliptic %f", i, gamma[i], expected)
		}
	}
}

func TestLinearizedMatchesDamped(t *testing.T) {
	alpha := Deg2rad(3)
	build := func() *LineForceModelBuilder {
		mb := NewLineForceModelBuilder(30)
		wb, _ := ellipticWing(6, alpha, 61)
		mb.AddWing(wb)
		return mb
	}
	dampedSim, damped := solveSteady(t, quietSimulation(build(), QuasiSteady), 5)
	b := quietSimulation(build(), QuasiSteady)
	b.Solver = &LinearizedSettings{}
	linearSim, linear := solveSteady(t, b, 5)
	if linear.Iterations != 1 {
		t.Fatalf("linearized solve used %d iterations", linear.Iterations)
	}
	clDamped, _ := liftAndDrag(dampedSim, damped, 5)
	clLinear, _ := liftAndDrag(linearSim, linear, 5)
	if !scalar.EqualWithinRel(clLinear, clDamped, 0.01) {
		t.Fatalf("linearized CL %f, damped CL %f", clLinear, clDamped)
	}
	if linear.Residual > 5e-3 {
		t.Fatalf("linearized residual %g", linear.Residual)
	}
}

func TestLinearizedWithoutLift(t *testing.T) {
	mb := NewLineForceModelBuilder(10)
	mb.AddWing(rectangularWing(4, 1, 0))
	b := quietSimulation(mb, QuasiSteady)
	b.Solver = &LinearizedSettings{}
	sim, res := solveSteady(t, b, 3)
	if !res.Converged || floats.Norm(sim.CirculationStrength(), 2) != 0 {
		t.Fatalf("circulation without lift: %v", sim.CirculationStrength())
	}
}

func TestSymmetryPlane(t *testing.T) {
	alpha := Deg2rad(5)
	full := NewLineForceModelBuilder(40)
	full.AddWing(rectangularWing(4, 1, alpha))
	fullSim, fullRes := solveSteady(t, quietSimulation(full, QuasiSteady), 1)

	c := RotateAroundAxis(r3.Vec{X: 1}, -alpha, r3.Vec{Z: 1})
	half := NewLineForceModelBuilder(20)
	half.AddWing(WingBuilder{
		SectionPoints:            []r3.Vec{{}, {Z: 2}},
		ChordVectors:             []r3.Vec{c, c},
		Model:                    NewFoil(),
		NonZeroCirculationAtEnds: [2]bool{true, false},
	})
	b := quietSimulation(half, QuasiSteady)
	b.QuasiSteadyWake.Symmetry = vortex.SymmetryZ
	halfSim, halfRes := solveSteady(t, b, 1)

	fullLift := fullRes.IntegratedForcesSum().Circulatory.Y
	halfLift := halfRes.IntegratedForcesSum().Circulatory.Y
	if !scalar.EqualWithinRel(2*halfLift, fullLift, 1e-3) {
		t.Fatalf("twice the half wing lift %f, full wing %f", 2*halfLift, fullLift)
	}
	g := fullSim.CirculationStrength()
	for i, gh := range halfSim.CirculationStrength() {
		if !scalar.EqualWithinRel(gh, g[20+i], 1e-3) {
			t.Fatalf("half wing circulation %d = %f, full wing %f", i, gh, g[20+i])
		}
	}
}

func TestWingInteraction(t *testing.T) {
	alpha := Deg2rad(5)
	single := NewLineForceModelBuilder(20)
	single.AddWing(rectangularWing(4, 1, alpha))
	_, singleRes := solveSteady(t, quietSimulation(single, QuasiSteady), 1)
	singleLift := singleRes.IntegratedForcesSum().Circulatory.Y

	pair := func(offset r3.Vec, isolate bool) []IntegratedValues {
		mb := NewLineForceModelBuilder(20)
		mb.AddWing(rectangularWing(4, 1, alpha))
		other := rectangularWing(4, 1, alpha)
		for i := range other.SectionPoints {
			other.SectionPoints[i] = r3.Add(other.SectionPoints[i], offset)
		}
		mb.AddWing(other)
		b := quietSimulation(mb, QuasiSteady)
		b.QuasiSteadyWake.IsolateWings = isolate
		_, res := solveSteady(t, b, 1)
		return res.IntegratedForces
	}

	far := pair(r3.Vec{Z: 1000}, false)
	for w, f := range far {
		if !scalar.EqualWithinRel(f.Circulatory.Y, singleLift, 1e-3) {
			t.Fatalf("far apart wing %d lift %f, alone %f", w, f.Circulatory.Y, singleLift)
		}
	}
	isolated := pair(r3.Vec{X: 3}, true)
	for w, f := range isolated {
		if !scalar.EqualWithinRel(f.Circulatory.Y, singleLift, 1e-6) {
			t.Fatalf("isolated wing %d lift %f, alone %f", w, f.Circulatory.Y, singleLift)
		}
	}
	// a wing in the downwash of another one sees less lift
	tandem := pair(r3.Vec{X: 3}, false)
	if tandem[1].Circulatory.Y >= 0.99*singleLift {
		t.Fatalf("downstream wing lift %f, alone %f", tandem[1].Circulatory.Y, singleLift)
	}
}

func TestDampedTermination(t *testing.T) {
	mb := NewLineForceModelBuilder(20)
	mb.AddWing(rectangularWing(4, 1, Deg2rad(5)))
	b := quietSimulation(mb, QuasiSteady)
	b.Solver = &DampedIterativeSettings{MaxIterations: 3, Damping: 0.05, ConvergenceTest: DefaultConvergenceTest()}
	_, res := solveSteady(t, b, 1)
	if res.Iterations != 3 || res.Converged {
		t.Fatalf("expected 3 iterations without convergence, got %d (%v)", res.Iterations, res.Converged)
	}

	b = quietSimulation(mb, QuasiSteady)
	b.Solver = &DampedIterativeSettings{MaxIterations: 1000, Damping: 0.05, ConvergenceTest: DefaultConvergenceTest(), StrengthDifferenceTolerance: 1e-3}
	_, res = solveSteady(t, b, 1)
	if !res.Converged || res.Iterations >= 1000 {
		t.Fatalf("strength tolerance did not stop the iteration: %d", res.Iterations)
	}
}

func TestDampingInterpolation(t *testing.T) {
	s := &DampedIterativeSettings{Damping: 0.1, DampingEnd: 0.3}
	for _, tc := range []struct{ residual, damping float64 }{{2, 0.1}, {1, 0.1}, {0.5, 0.2}, {0, 0.3}} {
		if d := s.damping(tc.residual); !scalar.EqualWithinAbs(d, tc.damping, 1e-12) {
			t.Fatalf("damping at %f: %f", tc.residual, d)
		}
	}
	s.DampingEnd = 0
	if s.damping(0) != 0.1 {
		t.Fatal("constant damping")
	}
}

func TestConvergenceCounter(t *testing.T) {
	c := convergenceCounter{ConvergenceTest: ConvergenceTest{AllowedError: 0.1, MinimumSuccesses: 2}}
	for i, tc := range []struct {
		residual float64
		pass     bool
	}{{0.05, false}, {0.2, false}, {0.05, false}, {-0.05, true}, {0.01, true}} {
		if got := c.test(tc.residual); got != tc.pass {
			t.Fatalf("step %d: %v", i, got)
		}
	}
}

func TestVelocityCorrection(t *testing.T) {
	felt := []r3.Vec{{X: 2}}
	induced := []r3.Vec{{Y: -3}}
	capped := VelocityCorrection{Kind: MaxInducedVelocityMagnitudeRatio, Ratio: 0.5}.Apply(felt, induced)
	if !vecsEqual(capped[0], r3.Vec{X: 2, Y: -1}, 1e-12) {
		t.Fatalf("capped %v", capped[0])
	}
	fixed := VelocityCorrection{Kind: FixedMagnitudeEqualToFreestream}.Apply(felt, induced)
	if !scalar.EqualWithinAbs(r3.Norm(fixed[0]), 2, 1e-12) || fixed[0].Y >= 0 {
		t.Fatalf("fixed magnitude %v", fixed[0])
	}
	if none := (VelocityCorrection{}).Apply(felt, induced); none[0] != (r3.Vec{X: 2, Y: -3}) {
		t.Fatalf("uncorrected %v", none[0])
	}

	if _, err := ParseVelocityCorrection("max_induced_ratio", 0); !errors.Is(err, ErrInvalidSetting) {
		t.Fatalf("zero ratio: %v", err)
	}
	if v, err := ParseVelocityCorrection("fixed_magnitude", 0); err != nil || v.String() != "fixed_magnitude" {
		t.Fatalf("fixed magnitude: %v %v", v, err)
	}
}

func TestRotorSailVelocityCorrection(t *testing.T) {
	mb := NewLineForceModelBuilder(20)
	mb.AddWing(WingBuilder{
		SectionPoints:            []r3.Vec{{}, {Z: 30}},
		ChordVectors:             []r3.Vec{{X: 5}, {X: 5}},
		Model:                    NewRotatingCylinder(RevolutionsPerSecondFromSpinRatio(3, 5, 8)),
		NonZeroCirculationAtEnds: [2]bool{true, false},
	})
	b := quietSimulation(mb, QuasiSteady)
	b.QuasiSteadyWake.Symmetry = vortex.SymmetryZ
	b.Solver = &DampedIterativeSettings{
		MaxIterations:      1000,
		Damping:            0.05,
		ConvergenceTest:    DefaultConvergenceTest(),
		VelocityCorrection: VelocityCorrection{Kind: FixedMagnitudeEqualToFreestream},
	}
	sim, res := solveSteady(t, b, 8)
	for i, u := range res.ForceInput.Velocity {
		if !scalar.EqualWithinRel(r3.Norm(u), 8, 1e-6) {
			t.Fatalf("control point %d speed %f", i, r3.Norm(u))
		}
	}
	if lift := res.IntegratedForcesSum().Circulatory; r3.Norm(lift) == 0 {
		t.Fatal("no lift on a spinning rotor")
	}
	if g := sim.CirculationStrength(); floats.HasNaN(g) {
		t.Fatalf("NaN circulation %v", g)
	}
}

func TestParseSolverSettings(t *testing.T) {
	s, err := ParseSolverSettings("", true)
	if err != nil || s.(*DampedIterativeSettings).MaxIterations != 20 {
		t.Fatalf("dynamic default %+v %v", s, err)
	}
	s, _ = ParseSolverSettings("damped_iterative", false)
	if s.(*DampedIterativeSettings).MaxIterations != 1000 {
		t.Fatalf("steady default %+v", s)
	}
	if s, _ = ParseSolverSettings("linearized", false); s.Kind() != "linearized" {
		t.Fatalf("linearized %s", s.Kind())
	}
	if _, err = ParseSolverSettings("newton", false); !errors.Is(err, ErrInvalidSetting) {
		t.Fatalf("unknown solver: %v", err)
	}
	if err = (&DampedIterativeSettings{MaxIterations: 10, Damping: 1.5, ConvergenceTest: DefaultConvergenceTest()}).Validate(); !errors.Is(err, ErrInvalidSetting) {
		t.Fatalf("damping above one: %v", err)
	}
}
