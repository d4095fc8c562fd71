package liftline

import (
	"runtime"
	"sync"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Wake is the vortex wake of a simulation. The set is closed: *QuasiSteadyWake, rebuilt from the
// current flow on every step, and *DynamicWake, which keeps its panels and strengths between steps.
type Wake interface {
	Kind() string
	// Points returns the wake points that need a freestream velocity on every step.
	Points() []r3.Vec
	// InducedVelocities returns the velocity induced by the whole wake, with its current
	// strengths, at arbitrary points.
	InducedVelocities(points []r3.Vec) []r3.Vec
	// Shape returns the wake geometry for export.
	Shape() WakeShape

	updateBeforeSolving(m *LineForceModel, felt []r3.Vec, dt float64)
	frozen(m *LineForceModel) *FrozenWake
	updateAfterSolving(m *LineForceModel, gamma []float64, ctrlVelocity, wakeFreestream []r3.Vec)
}

// WakeShape is a wake as quadrilaterals with one strength each.
type WakeShape struct {
	Points    []r3.Vec
	Panels    [][4]int
	Strengths []float64
}

// FrozenWake is the wake seen by the control points while solving one time step: a fixed induced
// velocity from the part of the wake that does not depend on the unknown strengths, plus a
// velocity factor per unit strength of each line element.
type FrozenWake struct {
	Fixed []r3.Vec
	// Factors per component: row i is the control point, column j the line element.
	FactorsX, FactorsY, FactorsZ *mat.Dense
}

func newFrozenWake(nCtrl, nLines int) *FrozenWake {
	return &FrozenWake{
		Fixed:    make([]r3.Vec, nCtrl),
		FactorsX: mat.NewDense(nCtrl, nLines, nil),
		FactorsY: mat.NewDense(nCtrl, nLines, nil),
		FactorsZ: mat.NewDense(nCtrl, nLines, nil),
	}
}

func (f *FrozenWake) setFactor(i, j int, u r3.Vec) {
	f.FactorsX.Set(i, j, u.X)
	f.FactorsY.Set(i, j, u.Y)
	f.FactorsZ.Set(i, j, u.Z)
}

// Factor returns the velocity induced at control point i by unit strength on line element j.
func (f *FrozenWake) Factor(i, j int) r3.Vec {
	return r3.Vec{X: f.FactorsX.At(i, j), Y: f.FactorsY.At(i, j), Z: f.FactorsZ.At(i, j)}
}

// InducedVelocities returns the induced velocity at every control point for the strengths gamma.
func (f *FrozenWake) InducedVelocities(gamma []float64) []r3.Vec {
	g := mat.NewVecDense(len(gamma), append([]float64(nil), gamma...))
	var ux, uy, uz mat.VecDense
	ux.MulVec(f.FactorsX, g)
	uy.MulVec(f.FactorsY, g)
	uz.MulVec(f.FactorsZ, g)
	out := make([]r3.Vec, len(f.Fixed))
	for i := range out {
		out[i] = r3.Add(f.Fixed[i], r3.Vec{X: ux.AtVec(i), Y: uy.AtVec(i), Z: uz.AtVec(i)})
	}
	return out
}

// parallelFor calls fn for every index in [0, n), split in contiguous chunks over the available
// CPUs.
func parallelFor(n int, fn func(i int)) {
	workers := runtime.GOMAXPROCS(0)
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}
	var wg sync.WaitGroup
	chunk := (n + workers - 1) / workers
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				fn(i)
			}
		}(start, end)
	}
	wg.Wait()
}

// wakeDirections returns a unit direction per wing for the trailing wake: the mean felt velocity
// on the wing, or the chord direction without flow.
func wakeDirections(m *LineForceModel, felt []r3.Vec) []r3.Vec {
	mean := m.WingAveragedVec(felt)
	chords := m.ChordVectors()
	out := make([]r3.Vec, len(mean))
	for w, u := range mean {
		out[w] = unit(u)
		if out[w] == (r3.Vec{}) {
			start, _ := m.WingRange(w)
			out[w] = unit(chords[start])
		}
	}
	return out
}
