// Package metrics provides Prometheus instrumentation for the action engine.
//
// A nil *Metrics is valid and records nothing, so engine components can take
// one unconditionally.
//
// # Thread Safety
//
// All methods are safe for concurrent use.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "facekit"

// Outcome labels for executed actions.
const (
	OutcomeOK        = "ok"
	OutcomeCancelled = "cancelled"
	OutcomeFault     = "fault"
	OutcomeRejected  = "rejected"
)

// Metrics holds the engine's collectors.
type Metrics struct {
	// ActionsExecuted counts action executions by action and outcome.
	ActionsExecuted *prometheus.CounterVec

	// ActionDuration measures DoWork duration per action.
	ActionDuration *prometheus.HistogramVec

	// DispatchCycles counts outermost Raise calls.
	DispatchCycles prometheus.Counter

	// DispatchDepth records the deepest nesting reached per cycle.
	DispatchDepth prometheus.Histogram

	// WorkersActive is the number of live user-instigated workers.
	WorkersActive prometheus.Gauge

	// UndoOperations counts undo manager operations by op.
	UndoOperations *prometheus.CounterVec
}

// New creates and registers the engine collectors on reg.
// An empty namespace uses DefaultNamespace.
func New(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	m := &Metrics{
		ActionsExecuted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "action",
			Name:      "executed_total",
			Help:      "Action executions by action name and outcome",
		}, []string{"action", "outcome"}),
		ActionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "action",
			Name:      "work_duration_seconds",
			Help:      "Duration of the work step by action name",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 9), // 1ms to ~65s
		}, []string{"action"}),
		DispatchCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "cycles_total",
			Help:      "Completed outermost broadcast cycles",
		}),
		DispatchDepth: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "depth",
			Help:      "Deepest nested broadcast reached per cycle",
			Buckets:   []float64{1, 2, 3, 4, 6, 8, 16, 32},
		}),
		WorkersActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "active",
			Help:      "User-instigated background workers currently running",
		}),
		UndoOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "undo",
			Name:      "operations_total",
			Help:      "Undo manager operations by kind",
		}, []string{"op"}),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{
			m.ActionsExecuted, m.ActionDuration, m.DispatchCycles,
			m.DispatchDepth, m.WorkersActive, m.UndoOperations,
		} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// RecordAction records one execution outcome.
func (m *Metrics) RecordAction(action, outcome string) {
	if m == nil {
		return
	}
	m.ActionsExecuted.WithLabelValues(action, outcome).Inc()
}

// ObserveWork records how long an action's work step ran.
func (m *Metrics) ObserveWork(action string, d time.Duration) {
	if m == nil {
		return
	}
	m.ActionDuration.WithLabelValues(action).Observe(d.Seconds())
}

// RecordCycle records a completed broadcast cycle and its maximum depth.
func (m *Metrics) RecordCycle(depth int) {
	if m == nil {
		return
	}
	m.DispatchCycles.Inc()
	m.DispatchDepth.Observe(float64(depth))
}

// SetActiveWorkers sets the active worker gauge.
func (m *Metrics) SetActiveWorkers(n int) {
	if m == nil {
		return
	}
	m.WorkersActive.Set(float64(n))
}

// RecordUndo counts an undo manager operation ("store", "scrap", "undo",
// "redo", "clear").
func (m *Metrics) RecordUndo(op string) {
	if m == nil {
		return
	}
	m.UndoOperations.WithLabelValues(op).Inc()
}
