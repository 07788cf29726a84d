package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetrics(t *testing.T) *Metrics {
	t.Helper()
	m, err := New(prometheus.NewRegistry(), "test")
	require.NoError(t, err)
	return m
}

func TestRecordAction(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordAction("transform", OutcomeOK)
	m.RecordAction("transform", OutcomeOK)
	m.RecordAction("transform", OutcomeFault)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ActionsExecuted.WithLabelValues("transform", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActionsExecuted.WithLabelValues("transform", OutcomeFault)))
}

func TestRecordCycleAndWorkers(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordCycle(3)
	m.SetActiveWorkers(2)
	m.ObserveWork("detect", 20*time.Millisecond)
	m.RecordUndo("store")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.DispatchCycles))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.WorkersActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UndoOperations.WithLabelValues("store")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.ActionDuration))
}

func TestDuplicateRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg, "dup")
	require.NoError(t, err)

	_, err = New(reg, "dup")
	assert.Error(t, err)
}

func TestNilMetricsIsNoOp(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordAction("a", OutcomeOK)
		m.ObserveWork("a", time.Second)
		m.RecordCycle(1)
		m.SetActiveWorkers(1)
		m.RecordUndo("undo")
	})
}
