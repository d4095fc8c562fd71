package liftline

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	linearizationStep = 1e-4
	negligibleLift    = 1e-9
)

// liftSlopes returns the lift coefficients at the given flow and their central difference
// derivative with respect to the angle of attack.
func (m *LineForceModel) liftSlopes(angles, speeds []float64) (cl, slope []float64) {
	cl, _ = m.sectionCoefficients(angles, speeds)
	up := make([]float64, len(angles))
	down := make([]float64, len(angles))
	for i, a := range angles {
		up[i] = a + linearizationStep
		down[i] = a - linearizationStep
	}
	clUp, _ := m.sectionCoefficients(up, speeds)
	clDown, _ := m.sectionCoefficients(down, speeds)
	slope = make([]float64, len(angles))
	for i := range angles {
		slope[i] = (clUp[i] - clDown[i]) / (2 * linearizationStep)
	}
	return cl, slope
}

// Solve implements SolverSettings. The sectional lift is linearized around the angle of attack of
// the felt flow plus the fixed part of the wake, which gives a linear system in the circulation:
//
//	2Γi/(ci·Ui) + ki·Σj (fij·ni)·Γj/Ui = -Cl0i
//
// with ki the lift slope, fij the unit strength velocity factors and ni the direction that
// increases the angle of attack.
func (s *LinearizedSettings) Solve(m *LineForceModel, felt []r3.Vec, frozen *FrozenWake, _ []float64) SolverResult {
	n := m.NrSpanLines()
	lines := m.SpanLines()
	base := make([]r3.Vec, n)
	normals := make([]r3.Vec, n)
	for i := range base {
		base[i] = r3.Add(felt[i], frozen.Fixed[i])
		normals[i] = unit(r3.Cross(lines[i].Direction(), unit(base[i])))
	}
	base = m.RemoveSpanVelocity(base)
	speed := speeds(base)
	angles := m.AnglesOfAttack(base)
	cl0, slope := m.liftSlopes(angles, speed)

	res := SolverResult{CirculationStrength: make([]float64, n), CtrlPointVelocity: base, Iterations: 1}
	var anyLift bool
	for _, c := range cl0 {
		if math.Abs(c) > negligibleLift {
			anyLift = true
			break
		}
	}
	if !anyLift {
		res.Converged = true
		return res
	}

	a := mat.NewDense(n, n, nil)
	b := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		if speed[i] == 0 {
			a.Set(i, i, 1)
			continue
		}
		for j := 0; j < n; j++ {
			a.Set(i, j, slope[i]*r3.Dot(frozen.Factor(i, j), normals[i])/speed[i])
		}
		a.Set(i, i, a.At(i, i)+2/(m.chordLengths[i]*speed[i]))
		b.SetVec(i, -cl0[i])
	}
	var x mat.VecDense
	if err := x.SolveVec(a, b); err != nil {
		// singular system: fall back to the circulation of the undisturbed flow
		res.CirculationStrength = m.CirculationStrengthRaw(base)
		res.Residual = m.AverageResidualAbsolute(res.CirculationStrength, base)
		return res
	}
	gamma := make([]float64, n)
	for i := range gamma {
		gamma[i] = x.AtVec(i)
	}

	velocity := m.RemoveSpanVelocity(s.VelocityCorrection.Apply(felt, frozen.InducedVelocities(gamma)))
	if !s.DisableViscousCorrection {
		full := m.LiftCoefficients(velocity)
		current := m.AnglesOfAttack(velocity)
		for i := range gamma {
			linear := cl0[i] + slope[i]*(current[i]-angles[i])
			if math.Abs(linear) > negligibleLift {
				gamma[i] *= full[i] / linear
			}
		}
	}
	res.CirculationStrength = gamma
	res.CtrlPointVelocity = velocity
	res.Residual = m.AverageResidualAbsolute(gamma, velocity)
	res.Converged = true
	return res
}
