package liftline

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the solver and export metrics of one or more simulations. A nil *Metrics records
// nothing.
type Metrics struct {
	steps          prometheus.Counter
	iterations     prometheus.Histogram
	residual       prometheus.Gauge
	nonConverged   prometheus.Counter
	exportQueue    prometheus.Gauge
	exportDropped  prometheus.Counter
	exportedShapes prometheus.Counter
}

// NewMetrics creates the metrics and registers them with reg, unless reg is nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		steps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "liftline", Subsystem: "solver", Name: "steps_total",
			Help: "Number of solved time steps.",
		}),
		iterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "liftline", Subsystem: "solver", Name: "iterations",
			Help:    "Iterations used per time step.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 11),
		}),
		residual: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "liftline", Subsystem: "solver", Name: "residual",
			Help: "Mean absolute lift coefficient residual of the last step.",
		}),
		nonConverged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "liftline", Subsystem: "solver", Name: "non_converged_total",
			Help: "Steps that reached the iteration cap without converging.",
		}),
		exportQueue: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "liftline", Subsystem: "export", Name: "queue_length",
			Help: "Wake shapes waiting to be written.",
		}),
		exportDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "liftline", Subsystem: "export", Name: "dropped_total",
			Help: "Wake shapes dropped because the export queue was full.",
		}),
		exportedShapes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "liftline", Subsystem: "export", Name: "written_total",
			Help: "Wake shapes written to disk.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.steps, m.iterations, m.residual, m.nonConverged, m.exportQueue, m.exportDropped, m.exportedShapes)
	}
	return m
}

func (m *Metrics) observeStep(res SolverResult) {
	if m == nil {
		return
	}
	m.steps.Inc()
	m.iterations.Observe(float64(res.Iterations))
	m.residual.Set(res.Residual)
	if !res.Converged {
		m.nonConverged.Inc()
	}
}

func (m *Metrics) setExportQueue(n int) {
	if m == nil {
		return
	}
	m.exportQueue.Set(float64(n))
}

func (m *Metrics) dropExport() {
	if m == nil {
		return
	}
	m.exportDropped.Inc()
}

func (m *Metrics) wroteExport() {
	if m == nil {
		return
	}
	m.exportedShapes.Inc()
}
