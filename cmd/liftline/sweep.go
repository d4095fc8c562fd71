package main

import (
	"fmt"

	liftline "github.com/NTNU-IMT/stormbird-sub000"
	"github.com/NTNU-IMT/stormbird-sub000/store"
	"github.com/go-kit/log/level"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/spatial/r3"
)

type sweepRange struct {
	from, to, step float64
}

func (r sweepRange) angles() ([]float64, error) {
	if r.step <= 0 || r.to < r.from {
		return nil, fmt.Errorf("%w: sweep from %g to %g by %g", liftline.ErrInvalidSetting, r.from, r.to, r.step)
	}
	var out []float64
	for k := 0; ; k++ {
		a := r.from + float64(k)*r.step
		if a > r.to+1e-9 {
			break
		}
		out = append(out, a)
	}
	return out, nil
}

func newSweepCmd(opts *options) *cobra.Command {
	var r sweepRange
	cmd := &cobra.Command{
		Use:   "sweep scenario.toml",
		Short: "Compute a polar by rotating the freestream around the scenario axis",
		Long: `Solves the scenario as quasi-steady for every angle of the range, in degrees,
added to the freestream angle of the scenario. Each angle starts from the circulation of the
previous one.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := loadScenario(args[0])
			if err != nil {
				return err
			}
			angles, err := r.angles()
			if err != nil {
				return err
			}
			polar, err := sweepScenario(cmd, opts, sc, angles)
			if err != nil {
				return err
			}
			if opts.jsonPath != "" {
				return writeJSON(opts.jsonPath, polar)
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&r.from, "from", -5, "first angle, in degrees")
	cmd.Flags().Float64Var(&r.to, "to", 15, "last angle, in degrees")
	cmd.Flags().Float64Var(&r.step, "step", 1, "angle increment, in degrees")
	return cmd
}

func sweepScenario(cmd *cobra.Command, opts *options, sc *scenario, angles []float64) ([]store.PolarPoint, error) {
	sc.Simulation.Mode = liftline.QuasiSteady.String()
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

	axis, err := toVec(sc.Freestream.Axis)
	if err != nil {
		return nil, err
	}
	polar := make([]store.PolarPoint, 0, len(angles))
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%8s %9s %9s %6s\n", "angle", "CL", "CD", "iter")
	for _, angle := range angles {
		u, err := sc.freestream(angle)
		if err != nil {
			return nil, err
		}
		res, err := sim.Step(0, 0, uniform(sim.Model.NrSpanLines(), u))
		if err != nil {
			return nil, fmt.Errorf("angle %g: %w", angle, err)
		}
		lift, drag := liftAndDrag(res.IntegratedForcesSum().Total, u, axis)
		p := store.PolarPoint{
			Angle:      angle,
			Lift:       lift,
			Drag:       drag,
			Iterations: res.Iterations,
			Residual:   res.Residual,
			Converged:  res.Converged,
		}
		if q := sim.Model.TotalForceFactor(r3.Norm(u)); q > 0 {
			p.CL, p.CD = lift/q, drag/q
		}
		polar = append(polar, p)
		fmt.Fprintf(out, "%8.2f %9.4f %9.5f %6d\n", angle, p.CL, p.CD, p.Iterations)
	}
	level.Info(logger).Log("subsys", "solver", "status", "sweep done", "angles", len(polar))

	db, err := opts.openStore(logger)
	if err != nil {
		return polar, err
	}
	if db == nil {
		return polar, nil
	}
	defer db.Close()
	run, err := db.CreateRun(sc.Model.Name, sim.Mode, sim.Model)
	if err != nil {
		return polar, err
	}
	return polar, db.SavePolar(run, polar)
}
