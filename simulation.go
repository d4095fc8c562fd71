package liftline

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// SimulationMode selects the wake and the default solver of a simulation.
type SimulationMode uint8

const (
	// QuasiSteady rebuilds a horseshoe wake on every step.
	QuasiSteady SimulationMode = iota
	// Dynamic keeps a time stepping panel wake.
	Dynamic
)

func (m SimulationMode) String() string {
	if m == Dynamic {
		return "dynamic"
	}
	return "quasi_steady"
}

// ParseSimulationMode returns the mode named s.
func ParseSimulationMode(s string) (SimulationMode, error) {
	switch s {
	case "", "quasi_steady", "steady":
		return QuasiSteady, nil
	case "dynamic":
		return Dynamic, nil
	}
	return QuasiSteady, fmt.Errorf("%w: simulation mode `%s`", ErrInvalidSetting, s)
}

const exportBuffer = 1000

// SimulationBuilder collects everything needed to run a simulation. Only the model is mandatory.
type SimulationBuilder struct {
	Name            string
	Model           *LineForceModelBuilder
	Mode            SimulationMode
	QuasiSteadyWake QuasiSteadyWakeSettings
	DynamicWake     DynamicWakeSettings
	// Solver defaults to the damped iteration with the settings of the mode.
	Solver SolverSettings
	// Multiresolution solves a coarse model first to get the initial guess of the first
	// quasi-steady step.
	Multiresolution bool
	Export          ExportConfig
	// Logger defaults to NewLogger(Name).
	Logger  log.Logger
	Metrics *Metrics
}

// NewSimulationBuilder returns a builder with default wake and solver settings.
func NewSimulationBuilder(name string, model *LineForceModelBuilder, mode SimulationMode) *SimulationBuilder {
	return &SimulationBuilder{
		Name:            name,
		Model:           model,
		Mode:            mode,
		QuasiSteadyWake: DefaultQuasiSteadyWakeSettings(),
		DynamicWake:     DefaultDynamicWakeSettings(),
	}
}

// Simulation steps a line force model through time. It is not safe for concurrent use.
type Simulation struct {
	Name   string
	Model  *LineForceModel
	Wake   Wake
	Solver SolverSettings
	Mode   SimulationMode

	builder         *LineForceModelBuilder
	multiresolution bool
	gamma           []float64
	flow            flowHistory
	steps           int

	export     ExportConfig
	exportChan chan WakeSnapshot
	wg         sync.WaitGroup
	closed     bool

	logger  log.Logger
	metrics *Metrics
}

// NewSimulation validates the builder, builds the model and the wake, and starts the wake export
// if it is configured.
func NewSimulation(b *SimulationBuilder) (*Simulation, error) {
	if b.Model == nil {
		return nil, ErrEmptyWingList
	}
	model, err := b.Model.Build()
	if err != nil {
		return nil, err
	}
	solver := b.Solver
	if solver == nil {
		solver, _ = ParseSolverSettings("", b.Mode == Dynamic)
	}
	if err := solver.Validate(); err != nil {
		return nil, err
	}
	var wake Wake
	switch b.Mode {
	case QuasiSteady:
		if err := b.QuasiSteadyWake.Validate(); err != nil {
			return nil, err
		}
		wake = NewQuasiSteadyWake(b.QuasiSteadyWake)
	case Dynamic:
		dw, err := NewDynamicWake(model, b.DynamicWake)
		if err != nil {
			return nil, err
		}
		wake = dw
	default:
		return nil, fmt.Errorf("%w: simulation mode %d", ErrInvalidSetting, b.Mode)
	}
	logger := b.Logger
	if logger == nil {
		logger = NewLogger(b.Name)
	}

	s := &Simulation{
		Name:            b.Name,
		Model:           model,
		Wake:            wake,
		Solver:          solver,
		Mode:            b.Mode,
		builder:         b.Model,
		multiresolution: b.Multiresolution,
		export:          b.Export,
		logger:          logger,
		metrics:         b.Metrics,
	}
	if !b.Export.IsUseless() {
		s.exportChan = make(chan WakeSnapshot, exportBuffer)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			StreamWakeShapes(b.Export, s.exportChan, logger, b.Metrics)
		}()
	}
	level.Info(logger).Log("subsys", "solver", "mode", b.Mode, "solver", solver.Kind(), "wake", wake.Kind(), "wings", model.NrWings(), "elements", model.NrSpanLines())
	return s, nil
}

// FreestreamPoints returns the points where Step needs the freestream velocity: the control points
// followed by the wake points.
func (s *Simulation) FreestreamPoints() []r3.Vec {
	return append(s.Model.CtrlPoints(), s.Wake.Points()...)
}

// CirculationStrength returns the circulation of the last step.
func (s *Simulation) CirculationStrength() []float64 { return append([]float64(nil), s.gamma...) }

// SetCirculationStrength seeds the next step.
func (s *Simulation) SetCirculationStrength(gamma []float64) {
	if len(gamma) != s.Model.NrSpanLines() {
		panic(fmt.Sprintf("%d strengths for %d line elements", len(gamma), s.Model.NrSpanLines()))
	}
	s.gamma = append([]float64(nil), gamma...)
}

// SimulationResult is the outcome of one time step. Forces and moments are in the output frame of
// the model.
type SimulationResult struct {
	Time              float64
	CtrlPoints        []r3.Vec
	ForceInput        SectionalForcesInput
	SectionalForces   SectionalForces
	IntegratedForces  []IntegratedValues
	IntegratedMoments []IntegratedValues
	Iterations        int
	Residual          float64
	Converged         bool
}

// IntegratedForcesSum returns the forces summed over all wings.
func (r SimulationResult) IntegratedForcesSum() IntegratedValues {
	return SumIntegratedValues(r.IntegratedForces)
}

// IntegratedMomentsSum returns the moments summed over all wings.
func (r SimulationResult) IntegratedMomentsSum() IntegratedValues {
	return SumIntegratedValues(r.IntegratedMoments)
}

// Step solves the time step ending at t. The freestream is given at FreestreamPoints. A zero dt
// is allowed for quasi-steady simulations without motion.
func (s *Simulation) Step(t, dt float64, freestream []r3.Vec) (SimulationResult, error) {
	n := s.Model.NrSpanLines()
	nWake := len(s.Wake.Points())
	if len(freestream) != n && len(freestream) != n+nWake {
		return SimulationResult{}, fmt.Errorf("%w: %d freestream velocities for %d points", ErrMismatchedLengths, len(freestream), n+nWake)
	}
	if s.Mode == Dynamic && dt <= 0 {
		return SimulationResult{}, fmt.Errorf("%w: dynamic simulations need a positive time step, got %f", ErrInvalidSetting, dt)
	}
	ctrlFreestream := freestream[:n]
	wakeFreestream := freestream[n:]

	felt := s.Model.FeltCtrlPointsFreestream(ctrlFreestream, dt)
	if s.gamma == nil && s.Mode == QuasiSteady && s.multiresolution {
		s.gamma = s.multiresolutionGuess(felt)
	}
	s.Wake.updateBeforeSolving(s.Model, felt, dt)
	frozen := s.Wake.frozen(s.Model)
	res := s.Solver.Solve(s.Model, felt, frozen, s.gamma)
	if res.CtrlPointVelocity == nil {
		res.CtrlPointVelocity = s.Model.RemoveSpanVelocity(felt)
	}

	acceleration := s.flow.acceleration(res.CtrlPointVelocity, dt)
	input := s.Model.SectionalForceInput(res.CirculationStrength, res.CtrlPointVelocity, acceleration, dt)
	forces := s.Model.SectionalForces(input)
	out := SimulationResult{
		Time:              t,
		CtrlPoints:        s.Model.CtrlPoints(),
		ForceInput:        input,
		SectionalForces:   forces,
		IntegratedForces:  s.Model.IntegrateForces(forces),
		IntegratedMoments: s.Model.IntegrateMoments(forces),
		Iterations:        res.Iterations,
		Residual:          res.Residual,
		Converged:         res.Converged,
	}

	s.Wake.updateAfterSolving(s.Model, res.CirculationStrength, res.CtrlPointVelocity, wakeFreestream)
	s.Model.UpdateMotionHistory()
	s.flow.update(res.CtrlPointVelocity)
	s.gamma = res.CirculationStrength
	s.steps++

	s.metrics.observeStep(res)
	if !res.Converged {
		level.Warn(s.logger).Log("subsys", "solver", "time", t, "status", "not converged", "iterations", res.Iterations, "residual", res.Residual)
	}
	level.Debug(s.logger).Log("subsys", "solver", "time", t, "iterations", res.Iterations, "residual", res.Residual, "force", fmtVec(out.IntegratedForcesSum().Total))
	s.exportWake(t)
	return out, nil
}

func fmtVec(v r3.Vec) string {
	return fmt.Sprintf("[%.4g %.4g %.4g]", v.X, v.Y, v.Z)
}

// exportWake queues the wake shape without blocking: a full queue drops the shape.
func (s *Simulation) exportWake(t float64) {
	if s.exportChan == nil || s.steps%s.export.Every != 0 {
		return
	}
	snap := WakeSnapshot{Step: s.steps, Time: t, Shape: s.Wake.Shape()}
	select {
	case s.exportChan <- snap:
		s.metrics.setExportQueue(len(s.exportChan))
	default:
		s.metrics.dropExport()
		level.Warn(s.logger).Log("subsys", "export", "status", "queue full, shape dropped", "step", s.steps)
	}
}

// Close flushes the wake export. The simulation must not be stepped afterwards.
func (s *Simulation) Close() {
	if s.closed {
		return
	}
	s.closed = true
	start := time.Now()
	if s.exportChan != nil {
		close(s.exportChan)
	}
	s.wg.Wait() // Don't return until we're done writing all the files.
	level.Info(s.logger).Log("subsys", "solver", "status", "finished", "steps", s.steps, "flush", time.Since(start))
}

// InitializeWithEllipticDistribution seeds the next step with the solution of a quasi-steady solve
// where the circulation of each wing is forced to an elliptic shape. The wake of the simulation is
// left untouched.
func (s *Simulation) InitializeWithEllipticDistribution(freestream []r3.Vec) error {
	n := s.Model.NrSpanLines()
	if len(freestream) < n {
		return fmt.Errorf("%w: %d freestream velocities for %d control points", ErrMismatchedLengths, len(freestream), n)
	}
	settings := DefaultSteadySolverSettings()
	if damped, ok := s.Solver.(*DampedIterativeSettings); ok {
		settings.Damping = math.Max(0.25, damped.Damping)
		settings.VelocityCorrection = damped.VelocityCorrection
	}
	correction := s.Model.Correction()
	s.Model.SetCorrection(NewPrescribedCirculation())
	defer s.Model.SetCorrection(correction)

	res := s.seedSolve(s.Model, s.Model.FeltCtrlPointsFreestream(freestream[:n], 0), settings, nil)
	s.gamma = res.CirculationStrength
	level.Debug(s.logger).Log("subsys", "solver", "status", "elliptic initialization", "iterations", res.Iterations, "residual", res.Residual)
	return nil
}

// seedSolve solves m in a private horseshoe wake sharing the symmetry of the simulation.
func (s *Simulation) seedSolve(m *LineForceModel, felt []r3.Vec, settings SolverSettings, initial []float64) SolverResult {
	ws := DefaultQuasiSteadyWakeSettings()
	switch w := s.Wake.(type) {
	case *QuasiSteadyWake:
		ws = w.Settings
	case *DynamicWake:
		ws.Symmetry = w.Settings.Symmetry
		ws.ViscousCore = w.Settings.ViscousCore
	}
	wake := NewQuasiSteadyWake(ws)
	wake.updateBeforeSolving(m, felt, 0)
	return settings.Solve(m, felt, wake.frozen(m), initial)
}

// multiresolutionGuess solves a model with half the elements and maps its circulation onto the
// model of the simulation.
func (s *Simulation) multiresolutionGuess(felt []r3.Vec) []float64 {
	if s.builder == nil || s.builder.NrSections < 8 {
		return nil
	}
	n := s.builder.NrSections
	coarse, err := s.builder.BuildWithNrSections((n + 1) / 2)
	if err != nil || coarse.NrSpanLines() == s.Model.NrSpanLines() {
		return nil
	}
	coarse.SetTranslation(s.Model.Translation())
	coarse.SetRotation(s.Model.Rotation())
	coarse.SetLocalWingAngles(s.Model.LocalWingAngles())
	coarse.SetInternalState(s.Model.InternalState())
	coarse.UpdateGlobalGeometry()

	toCoarse := spanMapping(s.Model, coarse)
	coarseFelt := make([]r3.Vec, coarse.NrSpanLines())
	x, y, z := splitVecs(felt)
	cx, cy, cz := applyMapping(toCoarse, x), applyMapping(toCoarse, y), applyMapping(toCoarse, z)
	for i := range coarseFelt {
		coarseFelt[i] = r3.Vec{X: cx[i], Y: cy[i], Z: cz[i]}
	}
	res := s.seedSolve(coarse, coarseFelt, s.Solver, nil)
	level.Debug(s.logger).Log("subsys", "solver", "status", "coarse solve", "elements", coarse.NrSpanLines(), "iterations", res.Iterations, "residual", res.Residual)
	return applyMapping(spanMapping(coarse, s.Model), res.CirculationStrength)
}

// spanMapping returns the Gaussian weights that map control point values of from onto the control
// points of to, wing by wing, along the relative span.
func spanMapping(from, to *LineForceModel) *mat.Dense {
	weights := mat.NewDense(to.NrSpanLines(), from.NrSpanLines(), nil)
	sFrom, sTo := from.RelativeSpanDistance(), to.RelativeSpanDistance()
	for w := 0; w < to.NrWings(); w++ {
		fs, fe := from.WingRange(w)
		ts, te := to.WingRange(w)
		sigma := 0.5 / float64(fe-fs)
		for i := ts; i < te; i++ {
			var sum float64
			for j := fs; j < fe; j++ {
				d := (sTo[i] - sFrom[j]) / sigma
				v := math.Exp(-0.5 * d * d)
				weights.Set(i, j, v)
				sum += v
			}
			if sum == 0 {
				continue
			}
			for j := fs; j < fe; j++ {
				weights.Set(i, j, weights.At(i, j)/sum)
			}
		}
	}
	return weights
}

func applyMapping(weights *mat.Dense, values []float64) []float64 {
	r, _ := weights.Dims()
	out := mat.NewVecDense(r, nil)
	out.MulVec(weights, mat.NewVecDense(len(values), append([]float64(nil), values...)))
	return out.RawVector().Data
}

func splitVecs(vs []r3.Vec) (x, y, z []float64) {
	x, y, z = make([]float64, len(vs)), make([]float64, len(vs)), make([]float64, len(vs))
	for i, v := range vs {
		x[i], y[i], z[i] = v.X, v.Y, v.Z
	}
	return x, y, z
}
