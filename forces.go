package liftline

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// SectionalForcesInput is the flow state the forces are computed from, expressed in the output
// frame of the model.
type SectionalForcesInput struct {
	CirculationStrength []float64
	Velocity            []r3.Vec
	AnglesOfAttack      []float64
	Acceleration        []r3.Vec
	RotationVelocity    r3.Vec
	Frame               OutputFrame
}

// SectionalForces are the forces on each line element, split by type.
type SectionalForces struct {
	Circulatory []r3.Vec
	Drag        []r3.Vec
	AddedMass   []r3.Vec
	Gyroscopic  []r3.Vec
	Total       []r3.Vec
}

// IntegratedValues is the sum of a sectional quantity over one wing, split by force type.
type IntegratedValues struct {
	Circulatory r3.Vec
	Drag        r3.Vec
	AddedMass   r3.Vec
	Gyroscopic  r3.Vec
	Total       r3.Vec
}

func (v IntegratedValues) add(o IntegratedValues) IntegratedValues {
	return IntegratedValues{
		Circulatory: r3.Add(v.Circulatory, o.Circulatory),
		Drag:        r3.Add(v.Drag, o.Drag),
		AddedMass:   r3.Add(v.AddedMass, o.AddedMass),
		Gyroscopic:  r3.Add(v.Gyroscopic, o.Gyroscopic),
		Total:       r3.Add(v.Total, o.Total),
	}
}

// SumIntegratedValues adds the values of all wings.
func SumIntegratedValues(values []IntegratedValues) IntegratedValues {
	var sum IntegratedValues
	for _, v := range values {
		sum = sum.add(v)
	}
	return sum
}

// SectionalForceInput converts a solved state into the force input of the output frame. The
// velocity and acceleration are global control point values.
func (m *LineForceModel) SectionalForceInput(gamma []float64, velocity, acceleration []r3.Vec, dt float64) SectionalForcesInput {
	in := SectionalForcesInput{
		CirculationStrength: append([]float64(nil), gamma...),
		Velocity:            make([]r3.Vec, len(velocity)),
		AnglesOfAttack:      m.AnglesOfAttack(velocity),
		Acceleration:        make([]r3.Vec, len(velocity)),
		RotationVelocity:    m.toOutputFrame(m.AngularVelocity(dt)),
		Frame:               m.OutputFrame,
	}
	for i := range velocity {
		in.Velocity[i] = m.toOutputFrame(velocity[i])
		if acceleration != nil {
			in.Acceleration[i] = m.toOutputFrame(acceleration[i])
		}
	}
	return in
}

// SectionalForces computes the force on each line element.
func (m *LineForceModel) SectionalForces(in SectionalForcesInput) SectionalForces {
	n := len(m.spanLinesLocal)
	f := SectionalForces{
		Circulatory: m.circulatoryForces(in.CirculationStrength, in.Velocity),
		Drag:        m.dragForces(in.AnglesOfAttack, in.Velocity),
		AddedMass:   m.addedMassForces(in.Acceleration),
		Gyroscopic:  m.gyroscopicForces(in.RotationVelocity),
		Total:       make([]r3.Vec, n),
	}
	for i := 0; i < n; i++ {
		f.Total[i] = r3.Add(r3.Add(f.Circulatory[i], f.Drag[i]), r3.Add(f.AddedMass[i], f.Gyroscopic[i]))
	}
	return f
}

// circulatoryForces returns ρ·Γ·(U × L) for each element, with L the span line vector.
func (m *LineForceModel) circulatoryForces(gamma []float64, velocity []r3.Vec) []r3.Vec {
	lines, _ := m.framedGeometry()
	out := make([]r3.Vec, len(velocity))
	for i, u := range velocity {
		if r3.Norm(u) == 0 {
			continue
		}
		out[i] = r3.Scale(m.Density*gamma[i], r3.Cross(u, lines[i].Vector()))
	}
	return out
}

func (m *LineForceModel) dragForces(angles []float64, velocity []r3.Vec) []r3.Vec {
	_, cd := m.sectionCoefficients(angles, speeds(velocity))
	out := make([]r3.Vec, len(velocity))
	for i, u := range velocity {
		area := m.chordLengths[i] * m.spanLinesLocal[i].Length()
		out[i] = r3.Scale(cd[i]*0.5*area*m.Density*r3.Norm2(u), unit(u))
	}
	return out
}

// addedMassForces uses the flow acceleration normal to the span, and for foils also normal to the
// chord.
func (m *LineForceModel) addedMassForces(acceleration []r3.Vec) []r3.Vec {
	lines, chords := m.framedGeometry()
	out := make([]r3.Vec, len(acceleration))
	for w, wg := range m.wings {
		for i := wg.start; i < wg.end; i++ {
			a := removeComponent(acceleration[i], lines[i].Vector())
			var coefficient float64
			switch model := wg.model.(type) {
			case *Foil:
				a = removeComponent(a, chords[i])
				coefficient = model.AddedMassCoefficient(r3.Norm(a))
			case *VaryingFoil:
				a = removeComponent(a, chords[i])
				coefficient = model.AddedMassCoefficient(r3.Norm(a), m.internalState[w])
			case *RotatingCylinder:
				coefficient = model.AddedMassCoefficient(r3.Norm(a))
			}
			if r3.Norm(a) == 0 {
				continue
			}
			area := m.chordLengths[i] * lines[i].Length()
			out[i] = r3.Scale(coefficient*m.Density*area, unit(a))
		}
	}
	return out
}

// gyroscopicForces is non-zero for rotating cylinders only. The spin of the rotor is assumed to be
// much faster than the rotation of the model.
func (m *LineForceModel) gyroscopicForces(rotationVelocity r3.Vec) []r3.Vec {
	lines, _ := m.framedGeometry()
	out := make([]r3.Vec, len(lines))
	for w, wg := range m.wings {
		cylinder, ok := wg.model.(*RotatingCylinder)
		if !ok {
			continue
		}
		omega := 2 * math.Pi * m.internalState[w]
		for i := wg.start; i < wg.end; i++ {
			inertia := cylinder.MomentOfInertia2D * lines[i].Length()
			momentum := r3.Scale(inertia*omega, lines[i].Direction())
			out[i] = r3.Cross(momentum, rotationVelocity)
		}
	}
	return out
}

// IntegrateForces sums the sectional forces of each wing. Virtual wings are left at zero.
func (m *LineForceModel) IntegrateForces(f SectionalForces) []IntegratedValues {
	out := make([]IntegratedValues, len(m.wings))
	for w, wg := range m.wings {
		if wg.virtual {
			continue
		}
		for i := wg.start; i < wg.end; i++ {
			out[w] = out[w].add(IntegratedValues{f.Circulatory[i], f.Drag[i], f.AddedMass[i], f.Gyroscopic[i], f.Total[i]})
		}
	}
	return out
}

// IntegrateMoments sums the moments of the sectional forces about the origin of the output frame.
func (m *LineForceModel) IntegrateMoments(f SectionalForces) []IntegratedValues {
	lines, _ := m.framedGeometry()
	out := make([]IntegratedValues, len(m.wings))
	for w, wg := range m.wings {
		if wg.virtual {
			continue
		}
		for i := wg.start; i < wg.end; i++ {
			p := lines[i].CtrlPoint()
			out[w] = out[w].add(IntegratedValues{
				Circulatory: r3.Cross(p, f.Circulatory[i]),
				Drag:        r3.Cross(p, f.Drag[i]),
				AddedMass:   r3.Cross(p, f.AddedMass[i]),
				Gyroscopic:  r3.Cross(p, f.Gyroscopic[i]),
				Total:       r3.Cross(p, f.Total[i]),
			})
		}
	}
	return out
}
