package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/car-maintenance/internal/apperr"
	"github.com/ukydev/car-maintenance/internal/db"
	"github.com/ukydev/car-maintenance/internal/events"
	"github.com/ukydev/car-maintenance/internal/lock"
	"github.com/ukydev/car-maintenance/internal/metrics"
	"github.com/ukydev/car-maintenance/internal/models"
)

// Config wires the maintenance components to their collaborators.
// Locker, Publisher, Logger and Now have defaults when left nil.
type Config struct {
	Vehicles         db.VehicleStore
	Tasks            db.TaskStore
	Locker           lock.Locker
	Publisher        events.Publisher
	Logger           logrus.FieldLogger
	Now              func() time.Time
	BatchConcurrency int
}

func (c Config) withDefaults() Config {
	if c.Locker == nil {
		c.Locker = lock.NewKeyedMutex()
	}
	if c.Publisher == nil {
		c.Publisher = events.NopPublisher{}
	}
	if c.Logger == nil {
		c.Logger = logrus.StandardLogger()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.BatchConcurrency <= 0 {
		c.BatchConcurrency = 4
	}
	return c
}

// Outcome is the result of reconciling one candidate.
type Outcome struct {
	Candidate models.Candidate
	Task      *models.MaintenanceTask
	Created   bool
	Err       error
}

// Report holds one Outcome per candidate, in candidate order.
type Report struct {
	Outcomes []Outcome
}

// Tasks returns the stored tasks of the successful outcomes, in candidate order.
func (r Report) Tasks() []models.MaintenanceTask {
	tasks := make([]models.MaintenanceTask, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		if o.Err == nil && o.Task != nil {
			tasks = append(tasks, *o.Task)
		}
	}
	return tasks
}

// Err joins the per-candidate failures, or returns nil when every candidate was stored.
func (r Report) Err() error {
	var errs []error
	for _, o := range r.Outcomes {
		if o.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", o.Candidate.TaskType, o.Err))
		}
	}
	return errors.Join(errs...)
}

// Reconciler merges candidates into stored tasks and applies task transitions.
// Every read-modify-write runs under the vehicle's lock.
type Reconciler struct {
	vehicles  db.VehicleStore
	tasks     db.TaskStore
	locker    lock.Locker
	publisher events.Publisher
	log       logrus.FieldLogger
	now       func() time.Time
}

// NewReconciler creates a Reconciler.
func NewReconciler(cfg Config) *Reconciler {
	cfg = cfg.withDefaults()
	return &Reconciler{
		vehicles:  cfg.Vehicles,
		tasks:     cfg.Tasks,
		locker:    cfg.Locker,
		publisher: cfg.Publisher,
		log:       cfg.Logger,
		now:       cfg.Now,
	}
}

func (r *Reconciler) lockVehicle(ctx context.Context, vehicleID string) (func(), error) {
	unlock, err := r.locker.Lock(ctx, lock.VehicleKey(vehicleID))
	if err != nil {
		return nil, apperr.Internal(err, "lock vehicle "+vehicleID)
	}
	return unlock, nil
}

// Reconcile stores each candidate as the vehicle's Pending task of that type, updating
// the existing one in place when present. A failed candidate does not stop the others.
func (r *Reconciler) Reconcile(ctx context.Context, candidates []models.Candidate) Report {
	report := Report{Outcomes: make([]Outcome, 0, len(candidates))}
	for _, c := range candidates {
		report.Outcomes = append(report.Outcomes, r.reconcileOne(ctx, c))
	}
	return report
}

func (r *Reconciler) reconcileOne(ctx context.Context, c models.Candidate) Outcome {
	out := Outcome{Candidate: c}
	logger := r.log.WithFields(logrus.Fields{"vehicle_id": c.VehicleID, "task_type": c.TaskType})

	unlock, err := r.lockVehicle(ctx, c.VehicleID)
	if err != nil {
		out.Err = err
		metrics.TasksReconciledTotal.WithLabelValues(metrics.TaskTypeLabel(c.TaskType), "failed").Inc()
		return out
	}
	defer unlock()

	stored, created, err := r.tasks.UpsertPending(ctx, &models.MaintenanceTask{
		VehicleID:   c.VehicleID,
		TaskType:    c.TaskType,
		Status:      models.StatusPending,
		DueDate:     c.DueDate,
		NextMileage: c.NextMileage,
	})
	if err != nil {
		out.Err = apperr.Internal(err, "upsert task")
		logger.WithError(err).Error("Failed to reconcile task")
		metrics.TasksReconciledTotal.WithLabelValues(metrics.TaskTypeLabel(c.TaskType), "failed").Inc()
		return out
	}

	out.Task, out.Created = stored, created
	action, eventType := "updated", events.TaskUpdated
	if created {
		action, eventType = "created", events.TaskCreated
	}
	metrics.TasksReconciledTotal.WithLabelValues(metrics.TaskTypeLabel(c.TaskType), action).Inc()
	logger.WithFields(logrus.Fields{"task_id": stored.ID, "action": action}).Info("Reconciled task")
	r.publish(ctx, events.TaskEvent(eventType, *stored))
	return out
}

// Complete marks a task Completed. Completing an already Completed task returns it unchanged.
func (r *Reconciler) Complete(ctx context.Context, taskID string) (*models.MaintenanceTask, error) {
	taskID, err := NormalizeTaskID(taskID)
	if err != nil {
		return nil, err
	}

	task, err := r.tasks.FindTaskByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	unlock, err := r.lockVehicle(ctx, task.VehicleID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	// Re-read under the lock; the first read only told us which vehicle to lock.
	task, err = r.tasks.FindTaskByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status == models.StatusCompleted {
		return task, nil
	}

	var vehicle *models.Vehicle
	if task.TaskType == models.TaskTimingChainReplacement {
		if vehicle, err = r.vehicles.GetVehicle(ctx, task.VehicleID); err != nil {
			return nil, err
		}
	}

	task.Status = models.StatusCompleted
	r.applyCompletion(task, true)
	// The vehicle is stamped only once the task is stored as Completed.
	if err := r.tasks.SaveTask(ctx, task); err != nil {
		metrics.TaskTransitionsTotal.WithLabelValues("complete", "error").Inc()
		return nil, apperr.Internal(err, "save task")
	}
	if vehicle != nil {
		r.recordTimingChain(vehicle)
		if err := r.vehicles.SaveVehicle(ctx, vehicle); err != nil {
			metrics.TaskTransitionsTotal.WithLabelValues("complete", "error").Inc()
			return nil, apperr.Internal(err, "save vehicle")
		}
	}
	metrics.TaskTransitionsTotal.WithLabelValues("complete", "ok").Inc()
	r.log.WithFields(logrus.Fields{"task_id": task.ID, "vehicle_id": task.VehicleID, "task_type": task.TaskType}).Info("Completed task")
	r.publish(ctx, events.TaskEvent(events.TaskCompleted, *task))
	return task, nil
}

// UpdateTask applies a patch to a task and optionally advances the vehicle's mileage,
// recomputing the task's next service mileage from it.
func (r *Reconciler) UpdateTask(ctx context.Context, taskID string, patch models.TaskPatch, vehicleID string, newMileage *int) (*models.MaintenanceTask, error) {
	taskID, err := NormalizeTaskID(taskID)
	if err != nil {
		return nil, err
	}
	if vehicleID == "" {
		return nil, apperr.InvalidArgument("vehicle id is required")
	}
	if patch.Status != nil {
		if _, err := models.ParseTaskStatus(string(*patch.Status)); err != nil {
			return nil, apperr.InvalidArgument("%v", err)
		}
	}
	if newMileage != nil && *newMileage < 0 {
		return nil, apperr.InvalidArgument("mileage cannot be negative")
	}

	unlock, err := r.lockVehicle(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	task, err := r.tasks.FindTaskByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	vehicle, err := r.vehicles.GetVehicle(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	if task.VehicleID != vehicle.ID {
		return nil, apperr.InvalidArgument("task %s does not belong to vehicle %s", task.ID, vehicle.ID)
	}
	if newMileage != nil && *newMileage < vehicle.Mileage {
		return nil, apperr.InvalidArgument("new mileage (%d) cannot be less than the current mileage (%d)", *newMileage, vehicle.Mileage)
	}

	wasCompleted := task.Status == models.StatusCompleted
	if patch.Status != nil && *patch.Status == models.StatusPending && wasCompleted {
		pending, err := r.tasks.FindPending(ctx, vehicle.ID, task.TaskType)
		if err != nil {
			return nil, apperr.Internal(err, "find pending task")
		}
		if pending != nil && pending.ID != task.ID {
			return nil, apperr.InvalidArgument("vehicle %s already has a pending %q task", vehicle.ID, task.TaskType)
		}
	}

	vehicleDirty := false
	if newMileage != nil {
		vehicle.Mileage = *newMileage
		task.NextMileage = intPtr(NextMileageAfter(task.TaskType, *newMileage))
		vehicleDirty = true
	}
	if patch.Status != nil {
		task.Status = *patch.Status
	}
	if patch.Comments != nil {
		task.Comments = *patch.Comments
	}

	switch {
	case task.Status == models.StatusCompleted:
		r.applyCompletion(task, !wasCompleted)
		if !wasCompleted && task.TaskType == models.TaskTimingChainReplacement {
			r.recordTimingChain(vehicle)
			vehicleDirty = true
		}
	case wasCompleted:
		task.CompletedAt = nil
	}

	if err := r.tasks.SaveTask(ctx, task); err != nil {
		metrics.TaskTransitionsTotal.WithLabelValues("update", "error").Inc()
		return nil, apperr.Internal(err, "save task")
	}
	if vehicleDirty {
		if err := r.vehicles.SaveVehicle(ctx, vehicle); err != nil {
			metrics.TaskTransitionsTotal.WithLabelValues("update", "error").Inc()
			return nil, apperr.Internal(err, "save vehicle")
		}
	}
	metrics.TaskTransitionsTotal.WithLabelValues("update", "ok").Inc()

	r.log.WithFields(logrus.Fields{
		"task_id":    task.ID,
		"vehicle_id": vehicle.ID,
		"task_type":  task.TaskType,
		"status":     task.Status,
		"mileage":    vehicle.Mileage,
	}).Info("Updated task")

	eventType := events.TaskUpdated
	if task.Status == models.StatusCompleted && !wasCompleted {
		eventType = events.TaskCompleted
	}
	r.publish(ctx, events.TaskEvent(eventType, *task))
	return task, nil
}

// applyCompletion stamps a Completed task. Tasks without a mileage anchor fall back to a
// time-based due date.
func (r *Reconciler) applyCompletion(task *models.MaintenanceTask, justCompleted bool) {
	now := r.now()
	if justCompleted {
		task.CompletedAt = &now
	}
	if task.NextMileage == nil {
		task.DueDate = daysFrom(now, CompletionFallbackDays)
	}
}

func (r *Reconciler) recordTimingChain(vehicle *models.Vehicle) {
	now := r.now()
	mileage := vehicle.Mileage
	vehicle.LastTimingChainReplacementDate = &now
	vehicle.LastTimingChainReplacementMileage = &mileage
}

func (r *Reconciler) publish(ctx context.Context, event events.Event) {
	if err := r.publisher.Publish(ctx, event); err != nil {
		r.log.WithError(err).WithFields(logrus.Fields{"event": event.Type, "vehicle_id": event.VehicleID}).Warn("Failed to publish event")
	}
}
