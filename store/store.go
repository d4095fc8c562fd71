// Package store persists simulation results in a sqlite database.
package store

import (
	"fmt"

	liftline "github.com/NTNU-IMT/stormbird-sub000"
	"github.com/glebarez/sqlite"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store is a handle on the results database.
type Store struct {
	db     *gorm.DB
	logger log.Logger
}

// Open opens or creates the database at path and migrates the schema. An empty path uses a private
// in-memory database.
func Open(path string, l log.Logger) (*Store, error) {
	if l == nil {
		l = log.NewNopLogger()
	}
	dsn := path
	if path == "" {
		dsn = ":memory:"
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		CreateBatchSize:        1000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening store %q: %w", path, err)
	}
	if path == "" {
		// every connection to :memory: is a new database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := db.Exec("PRAGMA foreign_keys = ON;").Error; err != nil {
		return nil, fmt.Errorf("setting PRAGMA: %w", err)
	}
	if err := db.AutoMigrate(Models...); err != nil {
		return nil, fmt.Errorf("migrating store: %w", err)
	}
	s := &Store{db: db, logger: log.With(l, "subsys", "store")}
	level.Info(s.logger).Log("status", "opened", "path", dsn)
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CreateRun records a new run for the model.
func (s *Store) CreateRun(name string, mode liftline.SimulationMode, m *liftline.LineForceModel) (*Run, error) {
	run := &Run{
		Name:       name,
		Mode:       mode.String(),
		NrWings:    m.NrWings(),
		NrElements: m.NrSpanLines(),
		Density:    m.Density,
	}
	if err := s.db.Create(run).Error; err != nil {
		return nil, fmt.Errorf("creating run %s: %w", name, err)
	}
	level.Debug(s.logger).Log("run", run.ID, "name", name, "mode", run.Mode)
	return run, nil
}

// SaveStep records the integrated values of a step result.
func (s *Store) SaveStep(run *Run, step int, res liftline.SimulationResult) error {
	rec := StepRecord{
		RunID:      run.ID,
		Step:       step,
		Time:       res.Time,
		Iterations: res.Iterations,
		Residual:   res.Residual,
		Converged:  res.Converged,
	}
	for w, f := range res.IntegratedForces {
		wf := WingForces{
			Wing:   w,
			ForceX: f.Total.X, ForceY: f.Total.Y, ForceZ: f.Total.Z,
			CirculatoryX: f.Circulatory.X, CirculatoryY: f.Circulatory.Y, CirculatoryZ: f.Circulatory.Z,
			DragX: f.Drag.X, DragY: f.Drag.Y, DragZ: f.Drag.Z,
		}
		if w < len(res.IntegratedMoments) {
			mo := res.IntegratedMoments[w].Total
			wf.MomentX, wf.MomentY, wf.MomentZ = mo.X, mo.Y, mo.Z
		}
		rec.Wings = append(rec.Wings, wf)
	}
	if err := s.db.Create(&rec).Error; err != nil {
		return fmt.Errorf("saving step %d of run %d: %w", step, run.ID, err)
	}
	return nil
}

// SavePolar records the points of a sweep.
func (s *Store) SavePolar(run *Run, points []PolarPoint) error {
	if len(points) == 0 {
		return nil
	}
	for i := range points {
		points[i].RunID = run.ID
	}
	if err := s.db.CreateInBatches(points, 500).Error; err != nil {
		return fmt.Errorf("saving polar of run %d: %w", run.ID, err)
	}
	return nil
}

// Runs returns all runs, newest first.
func (s *Store) Runs() ([]Run, error) {
	var runs []Run
	err := s.db.Order("id desc").Find(&runs).Error
	return runs, err
}

// RunByName returns the latest run with the given name.
func (s *Store) RunByName(name string) (*Run, error) {
	var run Run
	if err := s.db.Where("name = ?", name).Order("id desc").First(&run).Error; err != nil {
		return nil, fmt.Errorf("run %s: %w", name, err)
	}
	return &run, nil
}

// Steps returns the steps of a run in order, with their wing forces.
func (s *Store) Steps(runID uint) ([]StepRecord, error) {
	var steps []StepRecord
	err := s.db.Preload("Wings", func(db *gorm.DB) *gorm.DB {
		return db.Order("wing")
	}).Where("run_id = ?", runID).Order("step").Find(&steps).Error
	return steps, err
}

// Polar returns the sweep points of a run by increasing angle.
func (s *Store) Polar(runID uint) ([]PolarPoint, error) {
	var points []PolarPoint
	err := s.db.Where("run_id = ?", runID).Order("angle").Find(&points).Error
	return points, err
}

// DeleteRun removes a run and everything recorded for it.
func (s *Store) DeleteRun(runID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var stepIDs []uint
		if err := tx.Model(&StepRecord{}).Where("run_id = ?", runID).Pluck("id", &stepIDs).Error; err != nil {
			return err
		}
		if len(stepIDs) > 0 {
			if err := tx.Where("step_id IN ?", stepIDs).Delete(&WingForces{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("run_id = ?", runID).Delete(&StepRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("run_id = ?", runID).Delete(&PolarPoint{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&Run{}, runID).Error
	})
}
