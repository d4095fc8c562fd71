package actuator

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

// PartitionState is what one domain partition of the host knows before a step: its partial
// velocity samples and the control state of the wings. Hosts exchange it between partitions so
// every copy of the actuator line steps with the same input.
type PartitionState struct {
	Numerators      []r3.Vec
	Denominators    []float64
	PointVelocities []r3.Vec
	// PointCounts is the number of partitions that sampled each control point.
	PointCounts     []int
	LocalWingAngles []float64
	InternalState   []float64
}

// PartitionState returns the samples gathered since the last step and the current wing state.
func (a *ActuatorLine) PartitionState() PartitionState {
	s := PartitionState{
		Numerators:      append([]r3.Vec(nil), a.samples.numerator...),
		Denominators:    append([]float64(nil), a.samples.denominator...),
		PointVelocities: append([]r3.Vec(nil), a.samples.point...),
		PointCounts:     make([]int, len(a.samples.pointSet)),
		LocalWingAngles: a.Model.LocalWingAngles(),
		InternalState:   a.Model.InternalState(),
	}
	for i, set := range a.samples.pointSet {
		if set {
			s.PointCounts[i] = 1
		}
	}
	return s
}

// Reduce combines the states of all partitions. Sampling sums are added and point samples found
// in several partitions are averaged. The wing state is taken from the first partition, which
// plays the role of the master that controllers run on.
func Reduce(states ...PartitionState) (PartitionState, error) {
	if len(states) == 0 {
		return PartitionState{}, fmt.Errorf("no partition states to reduce")
	}
	n := len(states[0].Denominators)
	out := PartitionState{
		Numerators:      make([]r3.Vec, n),
		Denominators:    make([]float64, n),
		PointVelocities: make([]r3.Vec, n),
		PointCounts:     make([]int, n),
		LocalWingAngles: append([]float64(nil), states[0].LocalWingAngles...),
		InternalState:   append([]float64(nil), states[0].InternalState...),
	}
	for k, s := range states {
		if len(s.Denominators) != n || len(s.Numerators) != n || len(s.PointVelocities) != n || len(s.PointCounts) != n {
			return PartitionState{}, fmt.Errorf("partition %d has %d elements, expected %d", k, len(s.Denominators), n)
		}
		for i := 0; i < n; i++ {
			out.Numerators[i] = r3.Add(out.Numerators[i], s.Numerators[i])
			out.Denominators[i] += s.Denominators[i]
			out.PointVelocities[i] = r3.Add(out.PointVelocities[i], r3.Scale(float64(s.PointCounts[i]), s.PointVelocities[i]))
			out.PointCounts[i] += s.PointCounts[i]
		}
	}
	for i, c := range out.PointCounts {
		if c > 1 {
			out.PointVelocities[i] = r3.Scale(1/float64(c), out.PointVelocities[i])
			out.PointCounts[i] = 1
		}
	}
	return out, nil
}

// ApplyPartitionState replaces the samples and the wing state with a reduced state. The geometry
// is updated when the wing state changed.
func (a *ActuatorLine) ApplyPartitionState(s PartitionState) {
	n := a.NrCtrlPoints()
	if len(s.Denominators) != n {
		panic(fmt.Sprintf("partition state with %d elements for %d control points", len(s.Denominators), n))
	}
	copy(a.samples.numerator, s.Numerators)
	copy(a.samples.denominator, s.Denominators)
	copy(a.samples.point, s.PointVelocities)
	for i, c := range s.PointCounts {
		a.samples.pointSet[i] = c > 0
	}
	changed := false
	if s.LocalWingAngles != nil && !floats.Equal(s.LocalWingAngles, a.Model.LocalWingAngles()) {
		a.Model.SetLocalWingAngles(s.LocalWingAngles)
		changed = true
	}
	if s.InternalState != nil && !floats.Equal(s.InternalState, a.Model.InternalState()) {
		a.Model.SetInternalState(s.InternalState)
		changed = true
	}
	if changed {
		a.UpdateGeometry()
	}
}
