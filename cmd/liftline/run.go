package main

import (
	"fmt"

	liftline "github.com/NTNU-IMT/stormbird-sub000"
	"github.com/NTNU-IMT/stormbird-sub000/store"
	"github.com/go-kit/log/level"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/spatial/r3"
)

// stepSummary is the JSON record of one step.
type stepSummary struct {
	Time        float64    `json:"time"`
	Iterations  int        `json:"iterations"`
	Residual    float64    `json:"residual"`
	Converged   bool       `json:"converged"`
	Force       [3]float64 `json:"force"`
	Moment      [3]float64 `json:"moment"`
	Circulation []float64  `json:"circulation"`
}

func array(v r3.Vec) [3]float64 { return [3]float64{v.X, v.Y, v.Z} }

func newRunCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run scenario.toml",
		Short: "Run a steady or dynamic simulation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := loadScenario(args[0])
			if err != nil {
				return err
			}
			summaries, err := runScenario(cmd, opts, sc)
			if err != nil {
				return err
			}
			if opts.jsonPath != "" {
				return writeJSON(opts.jsonPath, summaries)
			}
			return nil
		},
	}
}

func uniform(n int, u r3.Vec) []r3.Vec {
	out := make([]r3.Vec, n)
	for i := range out {
		out[i] = u
	}
	return out
}

func runScenario(cmd *cobra.Command, opts *options, sc *scenario) ([]stepSummary, error) {
	b, err := sc.simulationBuilder()
	if err != nil {
		return nil, err
	}
	logger := opts.logger(sc.Model.Name)
	b.Logger = logger
	metrics, stop := opts.metrics(logger)
	defer stop()
	b.Metrics = metrics

	sim, err := liftline.NewSimulation(b)
	if err != nil {
		return nil, err
	}
	defer sim.Close()

	db, err := opts.openStore(logger)
	if err != nil {
		return nil, err
	}
	if db != nil {
		defer db.Close()
	}

	u, err := sc.freestream(0)
	if err != nil {
		return nil, err
	}
	if sc.Simulation.Elliptic {
		if err := sim.InitializeWithEllipticDistribution(uniform(sim.Model.NrSpanLines(), u)); err != nil {
			return nil, err
		}
	}
	dt := sc.Simulation.TimeStep
	if sim.Mode == liftline.Dynamic {
		dt = sc.timeStep(sim.Model, r3.Norm(u))
	}

	var run *store.Run
	if db != nil {
		if run, err = db.CreateRun(sc.Model.Name, sim.Mode, sim.Model); err != nil {
			return nil, err
		}
	}

	var (
		t         float64
		summaries []stepSummary
		last      liftline.SimulationResult
	)
	for step := 1; step <= sc.Simulation.Steps; step++ {
		t += dt
		res, err := sim.Step(t, dt, uniform(len(sim.FreestreamPoints()), u))
		if err != nil {
			return summaries, fmt.Errorf("step %d: %w", step, err)
		}
		if db != nil {
			if err := db.SaveStep(run, step, res); err != nil {
				return summaries, err
			}
		}
		summaries = append(summaries, stepSummary{
			Time:        res.Time,
			Iterations:  res.Iterations,
			Residual:    res.Residual,
			Converged:   res.Converged,
			Force:       array(res.IntegratedForcesSum().Total),
			Moment:      array(res.IntegratedMomentsSum().Total),
			Circulation: res.ForceInput.CirculationStrength,
		})
		last = res
	}

	axis, _ := toVec(sc.Freestream.Axis)
	lift, drag := liftAndDrag(last.IntegratedForcesSum().Total, u, axis)
	q := sim.Model.TotalForceFactor(r3.Norm(u))
	level.Info(logger).Log("subsys", "solver", "status", "done", "steps", len(summaries), "lift", lift, "drag", drag)
	if q > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: CL = %.4f, CD = %.5f after %d steps (residual %.2e)\n", sc.Model.Name, lift/q, drag/q, len(summaries), last.Residual)
	}
	return summaries, nil
}
