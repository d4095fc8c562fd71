package store

import (
	"path/filepath"
	"testing"

	liftline "github.com/NTNU-IMT/stormbird-sub000"
	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func twoWings(t *testing.T) *liftline.LineForceModel {
	t.Helper()
	b := liftline.NewLineForceModelBuilder(4)
	for _, x := range []float64{0, 5} {
		b.AddWing(liftline.WingBuilder{
			SectionPoints: []r3.Vec{{X: x, Z: -1}, {X: x, Z: 1}},
			ChordVectors:  []r3.Vec{{X: 0.5}, {X: 0.5}},
			Model:         liftline.NewFoil(),
		})
	}
	m, err := b.Build()
	require.NoError(t, err)
	return m
}

func result(time float64) liftline.SimulationResult {
	return liftline.SimulationResult{
		Time: time,
		IntegratedForces: []liftline.IntegratedValues{
			{Total: r3.Vec{X: 1, Y: 10 * time}, Circulatory: r3.Vec{Y: 10 * time}, Drag: r3.Vec{X: 1}},
			{Total: r3.Vec{X: 2, Y: 20 * time}},
		},
		IntegratedMoments: []liftline.IntegratedValues{
			{Total: r3.Vec{Z: 3}},
			{Total: r3.Vec{Z: 4}},
		},
		Iterations: 12,
		Residual:   1e-5,
		Converged:  true,
	}
}

func TestRunsAndSteps(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "results.db"), log.NewNopLogger())
	require.NoError(t, err)
	defer s.Close()

	m := twoWings(t)
	run, err := s.CreateRun("tandem", liftline.Dynamic, m)
	require.NoError(t, err)
	assert.NotZero(t, run.ID)
	assert.Equal(t, 8, run.NrElements)

	// stored out of order on purpose
	for _, step := range []int{2, 1, 3} {
		require.NoError(t, s.SaveStep(run, step, result(float64(step)*0.1)))
	}
	steps, err := s.Steps(run.ID)
	require.NoError(t, err)
	require.Len(t, steps, 3)
	for i, st := range steps {
		assert.Equal(t, i+1, st.Step)
		require.Len(t, st.Wings, 2)
		assert.Equal(t, 0, st.Wings[0].Wing)
		assert.InDelta(t, float64(i+1), st.Wings[0].ForceY, 1e-12)
		assert.InDelta(t, 2*float64(i+1), st.Wings[1].ForceY, 1e-12)
		assert.Equal(t, 4.0, st.Wings[1].MomentZ)
		assert.Equal(t, 1.0, st.Wings[0].DragX)
	}

	other, err := s.CreateRun("tandem", liftline.QuasiSteady, m)
	require.NoError(t, err)
	latest, err := s.RunByName("tandem")
	require.NoError(t, err)
	assert.Equal(t, other.ID, latest.ID)
	assert.Equal(t, "quasi_steady", latest.Mode)

	runs, err := s.Runs()
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	_, err = s.RunByName("missing")
	assert.Error(t, err)
}

func TestPolar(t *testing.T) {
	s, err := Open("", nil)
	require.NoError(t, err)
	defer s.Close()

	run, err := s.CreateRun("sweep", liftline.QuasiSteady, twoWings(t))
	require.NoError(t, err)
	require.NoError(t, s.SavePolar(run, nil))
	require.NoError(t, s.SavePolar(run, []PolarPoint{
		{Angle: 4, CL: 0.4},
		{Angle: -2, CL: -0.2},
		{Angle: 0, CL: 0},
	}))
	points, err := s.Polar(run.ID)
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, []float64{-2, 0, 4}, []float64{points[0].Angle, points[1].Angle, points[2].Angle})
	assert.Equal(t, run.ID, points[2].RunID)
}

func TestDeleteRun(t *testing.T) {
	s, err := Open("", nil)
	require.NoError(t, err)
	defer s.Close()

	m := twoWings(t)
	keep, err := s.CreateRun("keep", liftline.QuasiSteady, m)
	require.NoError(t, err)
	drop, err := s.CreateRun("drop", liftline.QuasiSteady, m)
	require.NoError(t, err)
	for _, run := range []*Run{keep, drop} {
		require.NoError(t, s.SaveStep(run, 1, result(0.1)))
		require.NoError(t, s.SavePolar(run, []PolarPoint{{Angle: 1}}))
	}

	require.NoError(t, s.DeleteRun(drop.ID))
	steps, err := s.Steps(drop.ID)
	require.NoError(t, err)
	assert.Empty(t, steps)
	points, err := s.Polar(drop.ID)
	require.NoError(t, err)
	assert.Empty(t, points)

	var wings int64
	require.NoError(t, s.db.Model(&WingForces{}).Count(&wings).Error)
	assert.Equal(t, int64(2), wings)

	steps, err = s.Steps(keep.ID)
	require.NoError(t, err)
	assert.Len(t, steps, 1)
}

func TestOpenBadPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "results.db"), nil)
	assert.Error(t, err)
}
