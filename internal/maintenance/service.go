package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/car-maintenance/internal/apperr"
	"github.com/ukydev/car-maintenance/internal/db"
	"github.com/ukydev/car-maintenance/internal/events"
	"github.com/ukydev/car-maintenance/internal/metrics"
	"github.com/ukydev/car-maintenance/internal/models"
	"golang.org/x/sync/errgroup"
)

// Service runs predictions for vehicles and exposes task operations.
type Service struct {
	*Reconciler

	vehicles    db.VehicleStore
	tasks       db.TaskStore
	log         logrus.FieldLogger
	now         func() time.Time
	concurrency int
}

// NewService creates a Service.
func NewService(cfg Config) *Service {
	cfg = cfg.withDefaults()
	return &Service{
		Reconciler:  NewReconciler(cfg),
		vehicles:    cfg.Vehicles,
		tasks:       cfg.Tasks,
		log:         cfg.Logger,
		now:         cfg.Now,
		concurrency: cfg.BatchConcurrency,
	}
}

func typeSet(types []models.TaskType) map[models.TaskType]bool {
	set := make(map[models.TaskType]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	return set
}

// PredictVehicle computes the candidates for a vehicle and reconciles them into its tasks.
// Store failures while loading the vehicle or its history are returned; per-candidate
// failures are reported in the Report.
func (s *Service) PredictVehicle(ctx context.Context, vehicleID string, excluded []models.TaskType) (Report, error) {
	logger := s.log.WithField("vehicle_id", vehicleID)

	vehicle, err := s.vehicles.GetVehicle(ctx, vehicleID)
	if err != nil {
		metrics.PredictionsTotal.WithLabelValues("error").Inc()
		return Report{}, err
	}

	now := s.now()
	recent, err := s.tasks.FindRecentCompleted(ctx, vehicle.ID, RecentSince(now))
	if err != nil {
		metrics.PredictionsTotal.WithLabelValues("error").Inc()
		return Report{}, apperr.Internal(err, "load recent tasks")
	}

	candidates := Predict(*vehicle, recent, typeSet(excluded), now)
	logger.WithFields(logrus.Fields{
		"mileage":    vehicle.Mileage,
		"recent":     len(recent),
		"excluded":   len(excluded),
		"candidates": len(candidates),
	}).Debug("Computed maintenance candidates")

	report := s.Reconcile(ctx, candidates)
	if err := report.Err(); err != nil {
		metrics.PredictionsTotal.WithLabelValues("partial").Inc()
		logger.WithError(err).Warn("Some maintenance tasks could not be stored")
	} else {
		metrics.PredictionsTotal.WithLabelValues("ok").Inc()
	}
	return report, nil
}

// TaskRequest describes a task added explicitly by a user.
type TaskRequest struct {
	TaskType models.TaskType   `json:"task"`
	DueDate  *time.Time        `json:"due_date,omitempty"`
	Status   models.TaskStatus `json:"status,omitempty"`
	Comments string            `json:"comments,omitempty"`
}

// AddTask records a user-requested task. Known task types get a next service mileage from
// the vehicle's current reading. A Pending request merges into the existing Pending task of
// the same type.
func (s *Service) AddTask(ctx context.Context, vehicleID string, req TaskRequest) (*models.MaintenanceTask, error) {
	if req.TaskType == "" {
		return nil, apperr.InvalidArgument("task type is required")
	}
	if req.Status == "" {
		req.Status = models.StatusPending
	}
	if _, err := models.ParseTaskStatus(string(req.Status)); err != nil {
		return nil, apperr.InvalidArgument("%v", err)
	}

	unlock, err := s.lockVehicle(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	vehicle, err := s.vehicles.GetVehicle(ctx, vehicleID)
	if err != nil {
		return nil, err
	}

	task := &models.MaintenanceTask{
		VehicleID: vehicle.ID,
		TaskType:  req.TaskType,
		Status:    req.Status,
		DueDate:   req.DueDate,
		Comments:  req.Comments,
	}
	if interval, ok := MileageInterval(req.TaskType); ok {
		task.NextMileage = intPtr(vehicle.Mileage + interval)
	}

	if task.Status == models.StatusPending {
		stored, created, err := s.tasks.UpsertPending(ctx, task)
		if err != nil {
			return nil, apperr.Internal(err, "upsert task")
		}
		eventType := events.TaskUpdated
		if created {
			eventType = events.TaskCreated
		}
		s.publish(ctx, events.TaskEvent(eventType, *stored))
		return stored, nil
	}

	now := s.now()
	task.CompletedAt = &now
	if err := s.tasks.InsertTask(ctx, task); err != nil {
		return nil, apperr.Internal(err, "insert task")
	}
	s.publish(ctx, events.TaskEvent(events.TaskCompleted, *task))
	return task, nil
}

// ListTasks returns a vehicle's tasks. An empty status returns every task.
func (s *Service) ListTasks(ctx context.Context, vehicleID string, status string) ([]models.MaintenanceTask, error) {
	var st models.TaskStatus
	if status != "" {
		parsed, err := models.ParseTaskStatus(status)
		if err != nil {
			return nil, apperr.InvalidArgument("%v", err)
		}
		st = parsed
	}
	if _, err := s.vehicles.GetVehicle(ctx, vehicleID); err != nil {
		return nil, err
	}
	tasks, err := s.tasks.FindTasks(ctx, vehicleID, st)
	if err != nil {
		return nil, apperr.Internal(err, "find tasks")
	}
	return tasks, nil
}

// VehicleResult is the outcome of predicting one vehicle in a batch.
type VehicleResult struct {
	VehicleID string
	Tasks     []models.MaintenanceTask
	Err       error
}

// PredictAll predicts every listed vehicle with bounded concurrency. A failure or panic
// for one vehicle is recorded in its result and never stops the others.
func (s *Service) PredictAll(ctx context.Context, vehicleIDs []string, excluded []models.TaskType) []VehicleResult {
	results := make([]VehicleResult, len(vehicleIDs))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, id := range vehicleIDs {
		g.Go(func() error {
			results[i] = s.predictOne(ctx, id, excluded)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	s.log.WithFields(logrus.Fields{"vehicles": len(vehicleIDs), "failed": failed}).Info("Batch prediction finished")
	return results
}

// PredictFleet runs PredictAll over every stored vehicle.
func (s *Service) PredictFleet(ctx context.Context, excluded []models.TaskType) ([]VehicleResult, error) {
	vehicles, err := s.vehicles.ListVehicles(ctx, "")
	if err != nil {
		return nil, apperr.Internal(err, "list vehicles")
	}
	ids := make([]string, 0, len(vehicles))
	for _, v := range vehicles {
		ids = append(ids, v.ID)
	}
	return s.PredictAll(ctx, ids, excluded), nil
}

func (s *Service) predictOne(ctx context.Context, vehicleID string, excluded []models.TaskType) (result VehicleResult) {
	result.VehicleID = vehicleID
	defer func() {
		if p := recover(); p != nil {
			result.Tasks = nil
			result.Err = apperr.Internal(fmt.Errorf("panic: %v", p), "predict vehicle "+vehicleID)
			s.log.WithField("vehicle_id", vehicleID).WithError(result.Err).Error("Prediction panicked")
		}
		metrics.BatchVehiclesTotal.WithLabelValues(metrics.Outcome(result.Err)).Inc()
	}()

	if err := ctx.Err(); err != nil {
		result.Err = apperr.Internal(err, "predict vehicle "+vehicleID)
		return result
	}

	report, err := s.PredictVehicle(ctx, vehicleID, excluded)
	if err != nil {
		result.Err = err
		s.log.WithField("vehicle_id", vehicleID).WithError(err).Warn("Prediction failed")
		return result
	}
	result.Tasks = report.Tasks()
	result.Err = report.Err()
	return result
}
