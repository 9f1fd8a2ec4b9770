package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Config carries the constant labels attached to every series.
type Config struct {
	ServiceName string
	Environment string
}

// WorkspaceMetrics captures workspace operation health and reconciliation drift.
type WorkspaceMetrics struct {
	operations     *prometheus.CounterVec
	latency        *prometheus.HistogramVec
	orphanInvoices prometheus.Gauge
	reconcileRuns  *prometheus.CounterVec
	liveWorkspaces prometheus.Gauge
}

var (
	workspaceMetricsOnce sync.Once
	workspaceMetrics     *WorkspaceMetrics
)

// NewWorkspaceMetrics returns the process-wide registry, registered with the default registerer.
func NewWorkspaceMetrics(cfg Config) *WorkspaceMetrics {
	workspaceMetricsOnce.Do(func() {
		workspaceMetrics = newWorkspaceMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return workspaceMetrics
}

// NewWorkspaceMetricsWithRegisterer builds an unshared registry. Tests use it with a fresh prometheus.Registry.
func NewWorkspaceMetricsWithRegisterer(registerer prometheus.Registerer, cfg Config) *WorkspaceMetrics {
	return newWorkspaceMetrics(registerer, cfg)
}

func newWorkspaceMetrics(registerer prometheus.Registerer, cfg Config) *WorkspaceMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "invoicenexus"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	m := &WorkspaceMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "invoicenexus_workspace_operations_total",
			Help:        "Workspace operations by name and outcome.",
			ConstLabels: constLabels,
		}, []string{"operation", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "invoicenexus_workspace_operation_duration_seconds",
			Help:        "Workspace operation latency including remote round trips.",
			Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			ConstLabels: constLabels,
		}, []string{"operation"}),
		orphanInvoices: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "invoicenexus_reconcile_orphan_invoices",
			Help:        "Invoices stored without any line items at the last reconciliation run.",
			ConstLabels: constLabels,
		}),
		reconcileRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "invoicenexus_reconcile_runs_total",
			Help:        "Reconciliation runs by outcome.",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		liveWorkspaces: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "invoicenexus_live_workspaces",
			Help:        "Workspaces currently bound to an authenticated session.",
			ConstLabels: constLabels,
		}),
	}

	registerer.MustRegister(m.operations, m.latency, m.orphanInvoices, m.reconcileRuns, m.liveWorkspaces)
	return m
}

// ObserveOperation records one workspace operation.
func (m *WorkspaceMetrics) ObserveOperation(operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, normalizeOutcome(outcome)).Inc()
	m.latency.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// SetLiveWorkspaces reports the number of bound workspaces.
func (m *WorkspaceMetrics) SetLiveWorkspaces(n int) {
	if m == nil {
		return
	}
	m.liveWorkspaces.Set(float64(n))
}

// ObserveReconcile records a reconciliation run and, on success, the orphan count it found.
func (m *WorkspaceMetrics) ObserveReconcile(orphans int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.reconcileRuns.WithLabelValues(OutcomeError).Inc()
		return
	}
	m.reconcileRuns.WithLabelValues(OutcomeSuccess).Inc()
	m.orphanInvoices.Set(float64(orphans))
}

func normalizeOutcome(outcome string) string {
	if outcome == OutcomeSuccess {
		return OutcomeSuccess
	}
	return OutcomeError
}
