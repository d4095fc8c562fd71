package actuator

import (
	"fmt"
	"math"

	liftline "github.com/NTNU-IMT/stormbird-sub000"
	"gonum.org/v1/gonum/spatial/r3"
)

// Gaussian is a two dimensional anisotropic Gaussian kernel in the plane normal to a line element,
// held constant along the span of the element and zero beyond it. The widths are multiples of the
// local chord length.
type Gaussian struct {
	ChordFactor     float64
	ThicknessFactor float64
}

// DefaultGaussian returns widths of 0.4 chords along the chord and 0.2 chords across it.
func DefaultGaussian() Gaussian {
	return Gaussian{ChordFactor: 0.4, ThicknessFactor: 0.2}
}

// Shape returns the dimensionless kernel, one on the line element and zero outside its span.
func (g Gaussian) Shape(lc liftline.LineCoordinates, chordLength, spanLength float64) float64 {
	if spanLength <= 0 || math.Abs(lc.Span/spanLength) >= 0.5 {
		return 0
	}
	c := lc.Chord / (g.ChordFactor * chordLength)
	t := lc.Thickness / (g.ThicknessFactor * chordLength)
	return math.Exp(-c*c - t*t)
}

// Value returns the kernel normalized to a unit volume integral.
func (g Gaussian) Value(lc liftline.LineCoordinates, chordLength, spanLength float64) float64 {
	s := g.Shape(lc, chordLength, spanLength)
	if s == 0 {
		return 0
	}
	return s / (math.Pi * g.ChordFactor * g.ThicknessFactor * chordLength * chordLength * spanLength)
}

// ProjectionSettings controls how element forces are spread as body forces.
type ProjectionSettings struct {
	Kernel Gaussian
	// ProjectNormalToVelocity removes the component of the body force along the cell velocity.
	ProjectNormalToVelocity bool
	// WeightLimit is the dimensionless kernel value below which an element is ignored in a cell.
	WeightLimit float64
	// ProjectSectionalDrag adds the sectional drag to the circulatory force.
	ProjectSectionalDrag bool
}

// DefaultProjectionSettings returns the default kernel and a weight limit of 0.001.
func DefaultProjectionSettings() ProjectionSettings {
	return ProjectionSettings{Kernel: DefaultGaussian(), WeightLimit: 0.001}
}

// Validate checks the settings.
func (s ProjectionSettings) Validate() error {
	if s.Kernel.ChordFactor <= 0 || s.Kernel.ThicknessFactor <= 0 {
		return fmt.Errorf("%w: projection kernel widths %f and %f", liftline.ErrInvalidSetting, s.Kernel.ChordFactor, s.Kernel.ThicknessFactor)
	}
	if s.WeightLimit < 0 || s.WeightLimit >= 1 {
		return fmt.Errorf("%w: projection weight limit %f", liftline.ErrInvalidSetting, s.WeightLimit)
	}
	return nil
}

// projectionChord returns the chord vector the kernel of element i is aligned with.
func (a *ActuatorLine) projectionChord(i int) r3.Vec {
	c := a.chords[i]
	if !a.VelocityAlignedProjection || a.velocity == nil {
		return c
	}
	u := a.velocity[i]
	if r3.Norm(u) == 0 {
		return c
	}
	return r3.Scale(r3.Norm(c)/r3.Norm(u), u)
}

// ProjectionWeight returns the summed dimensionless kernel of all elements at p and the element
// with the largest contribution. The index is -1 when no element is above the weight limit.
func (a *ActuatorLine) ProjectionWeight(p r3.Vec) (float64, int) {
	var (
		sum  float64
		top  float64
		best = -1
	)
	for i, line := range a.lines {
		s := a.Projection.Kernel.Shape(line.LineCoordinates(p, a.projectionChord(i)), a.chordLengths[i], line.Length())
		if s < a.Projection.WeightLimit || s == 0 {
			continue
		}
		sum += s
		if s > top {
			top, best = s, i
		}
	}
	return sum, best
}

// BodyForce returns the force per unit volume to apply in a cell centered at p, where the flow
// velocity is velocity. It uses the element forces of the last step.
func (a *ActuatorLine) BodyForce(p, velocity r3.Vec) r3.Vec {
	var f r3.Vec
	if a.forces == nil {
		return f
	}
	k := a.Projection.Kernel
	for i, line := range a.lines {
		lc := line.LineCoordinates(p, a.projectionChord(i))
		if k.Shape(lc, a.chordLengths[i], line.Length()) < a.Projection.WeightLimit {
			continue
		}
		f = r3.Add(f, r3.Scale(k.Value(lc, a.chordLengths[i], line.Length()), a.forces[i]))
	}
	if a.Projection.ProjectNormalToVelocity && r3.Norm(velocity) > 0 {
		f = r3.Sub(f, r3.Scale(r3.Dot(f, velocity)/r3.Norm2(velocity), velocity))
	}
	return f
}

// BodyForces evaluates BodyForce for a batch of cells, in parallel.
func (a *ActuatorLine) BodyForces(cells []Cell) []r3.Vec {
	out := make([]r3.Vec, len(cells))
	parallelChunks(len(cells), func(start, end int) {
		for i := start; i < end; i++ {
			out[i] = a.BodyForce(cells[i].Center, cells[i].Velocity)
		}
	})
	return out
}
