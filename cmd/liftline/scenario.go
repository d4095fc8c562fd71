package main

import (
	"fmt"
	"path/filepath"
	"strings"

	liftline "github.com/NTNU-IMT/stormbird-sub000"
	"github.com/NTNU-IMT/stormbird-sub000/vortex"
	"github.com/spf13/viper"
	"gonum.org/v1/gonum/spatial/r3"
)

type modelConfig struct {
	Name        string  `mapstructure:"name"`
	NrSections  int     `mapstructure:"nr_sections"`
	Density     float64 `mapstructure:"density"`
	OutputFrame string  `mapstructure:"output_frame"`
}

type wingConfig struct {
	SectionPoints [][]float64 `mapstructure:"section_points"`
	ChordVectors  [][]float64 `mapstructure:"chord_vectors"`
	// Model is foil or rotating_cylinder.
	Model      string  `mapstructure:"model"`
	SpinRatio  float64 `mapstructure:"spin_ratio"`
	Rps        float64 `mapstructure:"rps"`
	NonZeroEnd []bool  `mapstructure:"non_zero_circulation_at_ends"`
	Virtual    bool    `mapstructure:"virtual"`
	NrSections int     `mapstructure:"nr_sections"`
	// Foil overrides. The stall angle is in degrees.
	ClSlope    float64 `mapstructure:"cl_slope"`
	ClZero     float64 `mapstructure:"cl_zero"`
	CdZero     float64 `mapstructure:"cd_zero"`
	StallAngle float64 `mapstructure:"stall_angle"`
}

type solverConfig struct {
	Kind               string  `mapstructure:"kind"`
	MaxIterations      int     `mapstructure:"max_iterations"`
	Damping            float64 `mapstructure:"damping"`
	DampingEnd         float64 `mapstructure:"damping_end"`
	AllowedError       float64 `mapstructure:"allowed_error"`
	MinimumSuccesses   int     `mapstructure:"minimum_successes"`
	VelocityCorrection string  `mapstructure:"velocity_correction"`
	VelocityRatio      float64 `mapstructure:"velocity_ratio"`
	Multiresolution    bool    `mapstructure:"multiresolution"`
}

type wakeConfig struct {
	Symmetry          string  `mapstructure:"symmetry"`
	ViscousCore       string  `mapstructure:"viscous_core"`
	ViscousCoreValue  float64 `mapstructure:"viscous_core_value"`
	LengthFactor      float64 `mapstructure:"length_factor"`
	IsolateWings      bool    `mapstructure:"isolate_wings"`
	NrPanels          int     `mapstructure:"nr_panels"`
	FirstPanelLength  float64 `mapstructure:"first_panel_length"`
	LastPanelLength   float64 `mapstructure:"last_panel_length"`
	ShapeDamping      float64 `mapstructure:"shape_damping"`
	InducedRatio      float64 `mapstructure:"induced_ratio"`
	NeglectSelfInduce bool    `mapstructure:"neglect_self_induced"`
}

type correctionConfig struct {
	Kind string `mapstructure:"kind"`
	// Value is the smoothing length factor for gaussian and the viscosity for artificial_viscosity.
	Value float64 `mapstructure:"value"`
}

type freestreamConfig struct {
	Velocity []float64 `mapstructure:"velocity"`
	// Angle rotates the velocity around Axis, in degrees.
	Angle float64   `mapstructure:"angle"`
	Axis  []float64 `mapstructure:"axis"`
}

type simulationConfig struct {
	Mode     string  `mapstructure:"mode"`
	TimeStep float64 `mapstructure:"time_step"`
	Steps    int     `mapstructure:"steps"`
	// Elliptic seeds the first step with an elliptic circulation.
	Elliptic bool `mapstructure:"elliptic"`
}

type exportConfig struct {
	Filename  string `mapstructure:"filename"`
	Format    string `mapstructure:"format"`
	Directory string `mapstructure:"directory"`
	Every     int    `mapstructure:"every"`
}

// scenario is a simulation described in a TOML file.
type scenario struct {
	Model      modelConfig      `mapstructure:"model"`
	Wings      []wingConfig     `mapstructure:"wings"`
	Solver     solverConfig     `mapstructure:"solver"`
	Wake       wakeConfig       `mapstructure:"wake"`
	Correction correctionConfig `mapstructure:"correction"`
	Freestream freestreamConfig `mapstructure:"freestream"`
	Simulation simulationConfig `mapstructure:"simulation"`
	Export     exportConfig     `mapstructure:"export"`
}

// loadScenario reads a scenario file. Everything but the wings has a default.
func loadScenario(path string) (*scenario, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	v.SetDefault("model.name", name)
	v.SetDefault("model.nr_sections", 20)
	v.SetDefault("model.density", liftline.DefaultDensity)
	v.SetDefault("model.output_frame", "global")
	v.SetDefault("solver.kind", "damped_iterative")
	v.SetDefault("wake.length_factor", 100)
	dw := liftline.DefaultDynamicWakeSettings()
	v.SetDefault("wake.nr_panels", dw.NrPanelsPerLineElement)
	v.SetDefault("wake.first_panel_length", dw.FirstPanelRelativeLength)
	v.SetDefault("wake.last_panel_length", dw.LastPanelRelativeLength)
	v.SetDefault("correction.kind", "none")
	v.SetDefault("freestream.velocity", []float64{8, 0, 0})
	v.SetDefault("freestream.axis", []float64{0, 0, 1})
	v.SetDefault("simulation.mode", "quasi_steady")
	v.SetDefault("simulation.steps", 1)
	v.SetDefault("export.format", liftline.DefaultExportFormat().String())
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading scenario %s: %w", path, err)
	}
	var sc scenario
	if err := v.Unmarshal(&sc); err != nil {
		return nil, fmt.Errorf("decoding scenario %s: %w", path, err)
	}
	if len(sc.Wings) == 0 {
		return nil, fmt.Errorf("scenario %s: %w", path, liftline.ErrEmptyWingList)
	}
	return &sc, nil
}

func toVec(v []float64) (r3.Vec, error) {
	if len(v) != 3 {
		return r3.Vec{}, fmt.Errorf("%w: vector with %d components", liftline.ErrMismatchedLengths, len(v))
	}
	return r3.Vec{X: v[0], Y: v[1], Z: v[2]}, nil
}

func toVecs(vs [][]float64) ([]r3.Vec, error) {
	out := make([]r3.Vec, len(vs))
	for i, v := range vs {
		var err error
		if out[i], err = toVec(v); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// freestream returns the velocity of the scenario rotated by the given angle, in degrees, on top
// of the configured one.
func (sc *scenario) freestream(extraAngle float64) (r3.Vec, error) {
	u, err := toVec(sc.Freestream.Velocity)
	if err != nil {
		return r3.Vec{}, fmt.Errorf("freestream velocity: %w", err)
	}
	axis, err := toVec(sc.Freestream.Axis)
	if err != nil {
		return r3.Vec{}, fmt.Errorf("freestream axis: %w", err)
	}
	return liftline.RotateAroundAxis(u, liftline.Deg2rad(sc.Freestream.Angle+extraAngle), axis), nil
}

func (w wingConfig) sectionModel(chord, speed float64) (liftline.SectionModel, error) {
	switch w.Model {
	case "", "foil":
		f := liftline.NewFoil()
		if w.ClSlope != 0 {
			f.ClInitialSlope = w.ClSlope
		}
		f.ClZeroAngle = w.ClZero
		f.CdZeroAngle = w.CdZero
		if w.StallAngle != 0 {
			f.MeanPositiveStallAngle = liftline.Deg2rad(w.StallAngle)
			f.MeanNegativeStallAngle = liftline.Deg2rad(w.StallAngle)
		}
		return f, nil
	case "rotating_cylinder":
		rps := w.Rps
		if w.SpinRatio != 0 {
			rps = liftline.RevolutionsPerSecondFromSpinRatio(w.SpinRatio, chord, speed)
		}
		return liftline.NewRotatingCylinder(rps), nil
	}
	return nil, fmt.Errorf("%w: section model `%s`", liftline.ErrInvalidSetting, w.Model)
}

// modelBuilder converts the model and wing tables.
func (sc *scenario) modelBuilder() (*liftline.LineForceModelBuilder, error) {
	u, err := sc.freestream(0)
	if err != nil {
		return nil, err
	}
	b := liftline.NewLineForceModelBuilder(sc.Model.NrSections)
	b.Density = sc.Model.Density
	if b.OutputFrame, err = liftline.ParseOutputFrame(sc.Model.OutputFrame); err != nil {
		return nil, err
	}
	if b.Correction, err = sc.correction(); err != nil {
		return nil, err
	}
	for k, w := range sc.Wings {
		points, err := toVecs(w.SectionPoints)
		if err != nil {
			return nil, fmt.Errorf("wing %d section points: %w", k, err)
		}
		chords, err := toVecs(w.ChordVectors)
		if err != nil {
			return nil, fmt.Errorf("wing %d chord vectors: %w", k, err)
		}
		var chord float64
		if len(chords) > 0 {
			chord = r3.Norm(chords[0])
		}
		model, err := w.sectionModel(chord, r3.Norm(u))
		if err != nil {
			return nil, fmt.Errorf("wing %d: %w", k, err)
		}
		wb := liftline.WingBuilder{
			SectionPoints: points,
			ChordVectors:  chords,
			Model:         model,
			Virtual:       w.Virtual,
			NrSections:    w.NrSections,
		}
		copy(wb.NonZeroCirculationAtEnds[:], w.NonZeroEnd)
		b.AddWing(wb)
	}
	return b, nil
}

func (sc *scenario) correction() (liftline.CorrectionSettings, error) {
	var cs liftline.CorrectionSettings
	c, err := liftline.ParseCorrection(sc.Correction.Kind)
	if err != nil {
		return cs, err
	}
	switch c := c.(type) {
	case *liftline.GaussianSmoothingCorrection:
		if sc.Correction.Value > 0 {
			c.LengthFactor = sc.Correction.Value
		}
		cs.Gaussian = c
	case *liftline.PolynomialSmoothingCorrection:
		cs.Polynomial = c
	case *liftline.ArtificialViscosity:
		if sc.Correction.Value > 0 {
			c.Viscosity = sc.Correction.Value
		}
		cs.ArtificialViscosity = c
	case *liftline.PrescribedCirculation:
		cs.Prescribed = c
	}
	return cs, nil
}

func (sc *scenario) solver(dynamic bool) (liftline.SolverSettings, error) {
	s, err := liftline.ParseSolverSettings(sc.Solver.Kind, dynamic)
	if err != nil {
		return nil, err
	}
	vc, err := liftline.ParseVelocityCorrection(sc.Solver.VelocityCorrection, sc.Solver.VelocityRatio)
	if err != nil {
		return nil, err
	}
	switch s := s.(type) {
	case *liftline.DampedIterativeSettings:
		if sc.Solver.MaxIterations > 0 {
			s.MaxIterations = sc.Solver.MaxIterations
		}
		if sc.Solver.Damping > 0 {
			s.Damping = sc.Solver.Damping
		}
		s.DampingEnd = sc.Solver.DampingEnd
		if sc.Solver.AllowedError > 0 {
			s.ConvergenceTest.AllowedError = sc.Solver.AllowedError
		}
		if sc.Solver.MinimumSuccesses > 0 {
			s.ConvergenceTest.MinimumSuccesses = sc.Solver.MinimumSuccesses
		}
		s.VelocityCorrection = vc
	case *liftline.LinearizedSettings:
		s.VelocityCorrection = vc
	}
	return s, nil
}

// simulationBuilder converts the whole scenario.
func (sc *scenario) simulationBuilder() (*liftline.SimulationBuilder, error) {
	mode, err := liftline.ParseSimulationMode(sc.Simulation.Mode)
	if err != nil {
		return nil, err
	}
	model, err := sc.modelBuilder()
	if err != nil {
		return nil, err
	}
	b := liftline.NewSimulationBuilder(sc.Model.Name, model, mode)
	if b.Solver, err = sc.solver(mode == liftline.Dynamic); err != nil {
		return nil, err
	}
	b.Multiresolution = sc.Solver.Multiresolution

	symmetry, err := vortex.ParseSymmetryCondition(sc.Wake.Symmetry)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", liftline.ErrInvalidSetting, err)
	}
	core, err := vortex.ParseViscousCoreLength(sc.Wake.ViscousCore, sc.Wake.ViscousCoreValue)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", liftline.ErrInvalidSetting, err)
	}
	b.QuasiSteadyWake.WakeLengthFactor = sc.Wake.LengthFactor
	b.QuasiSteadyWake.Symmetry = symmetry
	b.QuasiSteadyWake.ViscousCore = core
	b.QuasiSteadyWake.IsolateWings = sc.Wake.IsolateWings
	b.DynamicWake.NrPanelsPerLineElement = sc.Wake.NrPanels
	b.DynamicWake.FirstPanelRelativeLength = sc.Wake.FirstPanelLength
	b.DynamicWake.LastPanelRelativeLength = sc.Wake.LastPanelLength
	b.DynamicWake.ShapeDampingFactor = sc.Wake.ShapeDamping
	b.DynamicWake.RatioOfWakeAffectedByInducedVelocities = sc.Wake.InducedRatio
	b.DynamicWake.NeglectSelfInducedVelocities = sc.Wake.NeglectSelfInduce
	b.DynamicWake.Symmetry = symmetry
	b.DynamicWake.ViscousCore = core

	if sc.Export.Every > 0 {
		format, err := liftline.ParseExportFormat(sc.Export.Format)
		if err != nil {
			return nil, err
		}
		filename := sc.Export.Filename
		if filename == "" {
			filename = sc.Model.Name
		}
		b.Export = liftline.ExportConfig{Filename: filename, Format: format, Directory: sc.Export.Directory, Every: sc.Export.Every}
	}
	return b, nil
}

// timeStep returns the time step of a dynamic simulation, by default the time the freestream
// takes to travel a quarter of the mean chord.
func (sc *scenario) timeStep(m *liftline.LineForceModel, speed float64) float64 {
	if sc.Simulation.TimeStep > 0 || speed == 0 {
		return sc.Simulation.TimeStep
	}
	var sum float64
	chords := m.ChordLengths()
	for _, c := range chords {
		sum += c
	}
	return 0.25 * sum / float64(len(chords)) / speed
}

// liftAndDrag splits a force in its component along the freestream and the one normal to it in
// the plane normal to the axis.
func liftAndDrag(f, u, axis r3.Vec) (lift, drag float64) {
	speed := r3.Norm(u)
	if speed == 0 {
		return 0, 0
	}
	along := r3.Scale(1/speed, u)
	normal := r3.Cross(axis, along)
	if n := r3.Norm(normal); n > 0 {
		normal = r3.Scale(1/n, normal)
	}
	return r3.Dot(f, normal), r3.Dot(f, along)
}
