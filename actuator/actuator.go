// Package actuator couples a line force model to a host flow solver as an actuator line: the host
// samples the flow velocity at the line elements, the model turns it into element forces in one
// pass per host step, and the forces are spread back into the host cells as body forces.
package actuator

import (
	"fmt"

	liftline "github.com/NTNU-IMT/stormbird-sub000"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"gonum.org/v1/gonum/spatial/r3"
)

// Builder holds the settings of an actuator line.
type Builder struct {
	Model      *liftline.LineForceModelBuilder
	Projection ProjectionSettings
	Sampling   SamplingSettings
	// StrengthDamping keeps this fraction of the previous circulation on every step.
	StrengthDamping float64
	// RemoveSpanVelocity ignores the flow along the span lines.
	RemoveSpanVelocity bool
	// VelocityAlignedProjection aligns the projection kernel with the sampled velocity instead of
	// the chord.
	VelocityAlignedProjection bool
	TipCorrection             *TipCorrection
	EmpiricalCorrection       *EmpiricalCorrection
	Logger                    log.Logger
}

// NewBuilder returns a builder with default projection and sampling settings.
func NewBuilder(model *liftline.LineForceModelBuilder) *Builder {
	return &Builder{
		Model:      model,
		Projection: DefaultProjectionSettings(),
		Sampling:   DefaultSamplingSettings(),
	}
}

// ActuatorLine is a line force model driven by a host flow solver. It is not safe for concurrent
// use, except for the batch methods that parallelize internally.
type ActuatorLine struct {
	Model      *liftline.LineForceModel
	Projection ProjectionSettings
	Sampling   SamplingSettings

	StrengthDamping           float64
	RemoveSpanVelocity        bool
	VelocityAlignedProjection bool
	TipCorrection             *TipCorrection
	EmpiricalCorrection       *EmpiricalCorrection

	logger  log.Logger
	samples samples
	steps   int

	// geometry of the current step
	lines        []liftline.SpanLine
	chords       []r3.Vec
	chordLengths []float64

	gamma    []float64
	velocity []r3.Vec // solved control point velocity of the last step
	previous []r3.Vec // sampled velocity of the last step
	forces   []r3.Vec // element forces to project
}

// Build validates the settings and returns the actuator line.
func (b *Builder) Build() (*ActuatorLine, error) {
	if b.Model == nil {
		return nil, fmt.Errorf("%w: no line force model", liftline.ErrInvalidSetting)
	}
	if b.Model.OutputFrame != liftline.GlobalFrame {
		return nil, fmt.Errorf("%w: actuator lines project forces in the global frame, not the %s frame", liftline.ErrInvalidSetting, b.Model.OutputFrame)
	}
	if err := b.Projection.Validate(); err != nil {
		return nil, err
	}
	if err := b.Sampling.Validate(); err != nil {
		return nil, err
	}
	if b.StrengthDamping < 0 || b.StrengthDamping >= 1 {
		return nil, fmt.Errorf("%w: strength damping %f", liftline.ErrInvalidSetting, b.StrengthDamping)
	}
	if b.TipCorrection != nil {
		if err := b.TipCorrection.Validate(); err != nil {
			return nil, err
		}
	}
	m, err := b.Model.Build()
	if err != nil {
		return nil, err
	}
	logger := b.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}
	a := &ActuatorLine{
		Model:                     m,
		Projection:                b.Projection,
		Sampling:                  b.Sampling,
		StrengthDamping:           b.StrengthDamping,
		RemoveSpanVelocity:        b.RemoveSpanVelocity,
		VelocityAlignedProjection: b.VelocityAlignedProjection,
		TipCorrection:             b.TipCorrection,
		EmpiricalCorrection:       b.EmpiricalCorrection,
		logger:                    logger,
		samples:                   newSamples(m.NrSpanLines()),
	}
	if a.TipCorrection != nil {
		a.TipCorrection.init(m, a.Projection.Kernel)
	}
	a.refreshGeometry()
	level.Info(a.logger).Log("subsys", "actuator", "status", "built", "elements", m.NrSpanLines(), "wings", m.NrWings(), "point_sampling", a.Sampling.UsePointSampling)
	return a, nil
}

// refreshGeometry caches the global geometry used by the sampling and projection kernels. The
// model must be up to date.
func (a *ActuatorLine) refreshGeometry() {
	a.lines = a.Model.SpanLines()
	a.chords = a.Model.ChordVectors()
	a.chordLengths = a.Model.ChordLengths()
}

// UpdateGeometry must be called after the motion or wing angles of the model have changed, before
// the host samples the flow of the next step.
func (a *ActuatorLine) UpdateGeometry() {
	a.Model.UpdateGlobalGeometry()
	a.refreshGeometry()
}

// NrCtrlPoints returns the number of control points, one per line element.
func (a *ActuatorLine) NrCtrlPoints() int { return a.Model.NrSpanLines() }

// CtrlPoints returns the control points where point sampling is expected.
func (a *ActuatorLine) CtrlPoints() []r3.Vec { return a.Model.CtrlPoints() }

// CirculationStrength returns the circulation of the last step.
func (a *ActuatorLine) CirculationStrength() []float64 {
	return append([]float64(nil), a.gamma...)
}

// ElementForces returns the force on each element that is projected into the flow.
func (a *ActuatorLine) ElementForces() []r3.Vec {
	return append([]r3.Vec(nil), a.forces...)
}

// Step runs one solver pass with the velocities sampled since the previous step and prepares
// the element forces for projection. The samples are cleared afterwards.
func (a *ActuatorLine) Step(t, dt float64) (liftline.SimulationResult, error) {
	if dt < 0 {
		return liftline.SimulationResult{}, fmt.Errorf("%w: negative time step %f", liftline.ErrInvalidSetting, dt)
	}
	sampled, missing := a.sampledVelocities()
	if missing > 0 {
		level.Debug(a.logger).Log("subsys", "actuator", "time", t, "status", "missing samples", "elements", missing, "fallback", a.Sampling.Fallback)
	}

	m := a.Model
	velocity := m.FeltCtrlPointsFreestream(sampled, dt)
	if a.RemoveSpanVelocity {
		velocity = m.RemoveSpanVelocity(velocity)
	}
	if a.TipCorrection != nil {
		velocity = a.TipCorrection.apply(m, velocity)
	}

	gamma := m.CirculationStrength(velocity)
	if a.EmpiricalCorrection != nil {
		a.EmpiricalCorrection.apply(m, gamma)
	}
	if a.gamma != nil {
		for i := range gamma {
			gamma[i] = a.gamma[i] + (1-a.StrengthDamping)*(gamma[i]-a.gamma[i])
		}
	}

	input := m.SectionalForceInput(gamma, velocity, nil, dt)
	forces := m.SectionalForces(input)
	res := liftline.SimulationResult{
		Time:              t,
		CtrlPoints:        m.CtrlPoints(),
		ForceInput:        input,
		SectionalForces:   forces,
		IntegratedForces:  m.IntegrateForces(forces),
		IntegratedMoments: m.IntegrateMoments(forces),
		Iterations:        1,
		Residual:          m.AverageResidualAbsolute(gamma, velocity),
		// a single pass has nothing to converge
		Converged: true,
	}

	a.forces = make([]r3.Vec, len(gamma))
	for i := range a.forces {
		a.forces[i] = forces.Circulatory[i]
		if a.Projection.ProjectSectionalDrag {
			a.forces[i] = r3.Add(a.forces[i], forces.Drag[i])
		}
	}
	a.gamma = gamma
	a.velocity = velocity
	a.previous = sampled
	a.samples.reset()
	m.UpdateMotionHistory()
	a.steps++

	level.Debug(a.logger).Log("subsys", "actuator", "time", t, "step", a.steps, "residual", res.Residual, "force", fmtVec(res.IntegratedForcesSum().Total))
	return res, nil
}

func fmtVec(v r3.Vec) string {
	return fmt.Sprintf("[%.4g %.4g %.4g]", v.X, v.Y, v.Z)
}
