package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ukydev/car-maintenance/internal/models"
)

var (
	// PredictionsTotal tracks prediction runs per outcome
	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maintenance_predictions_total",
			Help: "Total number of maintenance prediction runs",
		},
		[]string{"outcome"},
	)

	// TasksReconciledTotal tracks reconciled candidates per task type and action
	TasksReconciledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maintenance_tasks_reconciled_total",
			Help: "Total number of reconciled maintenance candidates",
		},
		[]string{"task_type", "action"},
	)

	// TaskTransitionsTotal tracks completions and updates applied to tasks
	TaskTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maintenance_task_transitions_total",
			Help: "Total number of task completions and updates",
		},
		[]string{"operation", "outcome"},
	)

	// ClassifierAttemptsTotal tracks calls to the external classification model
	ClassifierAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classifier_attempts_total",
			Help: "Total number of classification attempts",
		},
		[]string{"outcome"},
	)

	// ClassifierLatency tracks the latency of a single classification attempt
	ClassifierLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "classifier_attempt_latency_seconds",
			Help:    "Classification attempt latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	// BatchVehiclesTotal tracks per-vehicle results of batch prediction jobs
	BatchVehiclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maintenance_batch_vehicles_total",
			Help: "Total number of vehicles processed by batch prediction",
		},
		[]string{"outcome"},
	)
)

// Handler exposes the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// TaskTypeLabel keeps the task_type label bounded: custom task types share one series.
func TaskTypeLabel(t models.TaskType) string {
	if t.IsKnown() {
		return string(t)
	}
	return "custom"
}

// Outcome labels a result as "ok" or "error".
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
