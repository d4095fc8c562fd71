package liftline

import (
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

func dynamicSimulation(t *testing.T, nrSections int, configure func(*DynamicWakeSettings)) (*Simulation, *DynamicWake) {
	t.Helper()
	mb := NewLineForceModelBuilder(nrSections)
	mb.AddWing(rectangularWing(4, 1, Deg2rad(5)))
	b := quietSimulation(mb, Dynamic)
	b.DynamicWake.NrPanelsPerLineElement = 20
	if configure != nil {
		configure(&b.DynamicWake)
	}
	sim, err := NewSimulation(b)
	if err != nil {
		t.Fatal(err)
	}
	return sim, sim.Wake.(*DynamicWake)
}

// maxWakeDeviation returns the largest difference between the convection velocity of the wake
// points and u.
func maxWakeDeviation(w *DynamicWake, u r3.Vec) float64 {
	var dev float64
	for _, v := range w.velocity[w.nPointsSpan:] {
		if d := r3.Norm(r3.Sub(v, u)); d > dev {
			dev = d
		}
	}
	return dev
}

func TestShapeDampingSlowsWake(t *testing.T) {
	lateral := func(damping float64) float64 {
		sim, wake := dynamicSimulation(t, 8, func(s *DynamicWakeSettings) { s.ShapeDampingFactor = damping })
		defer sim.Close()
		const dt = 0.25
		if _, err := sim.Step(dt, dt, uniformFlow(len(sim.FreestreamPoints()), r3.Vec{X: 1})); err != nil {
			t.Fatal(err)
		}
		// the flow turns, the wake follows
		for step := 2; step <= 4; step++ {
			u := uniformFlow(len(sim.FreestreamPoints()), r3.Vec{X: 1, Y: 0.15})
			if _, err := sim.Step(float64(step)*dt, dt, u); err != nil {
				t.Fatal(err)
			}
		}
		var sum float64
		mid := wake.nPointsSpan / 2
		for s := 2; s < wake.nStream; s++ {
			sum += wake.point(s, mid).Y
		}
		return sum
	}
	free, damped := lateral(0), lateral(0.5)
	if damped <= 0 || free <= 0 {
		t.Fatalf("the wake did not turn with the flow: %f, %f", free, damped)
	}
	if damped >= 0.9*free {
		t.Fatalf("damped lateral drift %f, undamped %f", damped, free)
	}
}

func TestWakeBoundedWithInducedVelocities(t *testing.T) {
	u := r3.Vec{X: 1}
	run := func(allPoints bool) *DynamicWake {
		sim, wake := dynamicSimulation(t, 8, func(s *DynamicWakeSettings) { s.RatioOfWakeAffectedByInducedVelocities = 1 })
		defer sim.Close()
		const dt = 0.25
		for step := 1; step <= 30; step++ {
			n := sim.Model.NrSpanLines()
			if allPoints {
				n = len(sim.FreestreamPoints())
			}
			if _, err := sim.Step(float64(step)*dt, dt, uniformFlow(n, u)); err != nil {
				t.Fatal(err)
			}
			if dev := maxWakeDeviation(wake, u); dev > 0.5 {
				t.Fatalf("step %d: wake velocity deviates by %f from the freestream", step, dev)
			}
		}
		return wake
	}
	full, ctrlOnly := run(true), run(false)
	if maxWakeDeviation(full, u) == 0 {
		t.Fatal("the induced velocities did not reach the wake")
	}
	for i := range full.velocity {
		if !vecsEqual(full.velocity[i], ctrlOnly.velocity[i], 1e-9) {
			t.Fatalf("point %d: %v with the wake freestream, %v without", i, full.velocity[i], ctrlOnly.velocity[i])
		}
	}
}

func TestNeglectSelfInducedVelocities(t *testing.T) {
	circulation := func(neglect bool) ([]float64, *Simulation) {
		sim, _ := dynamicSimulation(t, 10, func(s *DynamicWakeSettings) { s.NeglectSelfInducedVelocities = neglect })
		defer sim.Close()
		const dt = 0.25
		for step := 1; step <= 15; step++ {
			if _, err := sim.Step(float64(step)*dt, dt, uniformFlow(sim.Model.NrSpanLines(), r3.Vec{X: 1})); err != nil {
				t.Fatal(err)
			}
		}
		return sim.CirculationStrength(), sim
	}
	isolated, sim := circulation(true)
	// a single wing without its own wake sees the freestream only: the sectional value everywhere
	twoDimensional := sim.Model.CirculationStrengthRaw(uniformFlow(10, r3.Vec{X: 1}))
	if !floats.EqualApprox(isolated, twoDimensional, 1e-3) {
		t.Fatalf("circulation %v, sectional %v", isolated, twoDimensional)
	}
	withWake, _ := circulation(false)
	if floats.Sum(withWake) <= floats.Sum(isolated) {
		t.Fatalf("the wake should reduce the circulation: %f, %f", floats.Sum(withWake), floats.Sum(isolated))
	}
}
