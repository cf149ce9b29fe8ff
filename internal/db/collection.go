package db

import (
	"context"
	"time"

	"github.com/ukydev/car-maintenance/internal/models"
)

// VehicleStore defines the interface for vehicle data operations.
type VehicleStore interface {
	GetVehicle(ctx context.Context, id string) (*models.Vehicle, error)
	SaveVehicle(ctx context.Context, vehicle *models.Vehicle) error
	ListVehicles(ctx context.Context, ownerID string) ([]models.Vehicle, error)
	// CountByMake groups every vehicle by make, ordered by make.
	CountByMake(ctx context.Context) ([]models.MakeCount, error)
}

// TaskStore defines the interface for maintenance task data operations.
// UpsertPending is keyed on (vehicle ID, task type, Pending) and must never
// leave two Pending tasks of the same type for a vehicle.
type TaskStore interface {
	FindPending(ctx context.Context, vehicleID string, taskType models.TaskType) (*models.MaintenanceTask, error)
	FindRecentCompleted(ctx context.Context, vehicleID string, since time.Time) (map[models.TaskType]bool, error)
	UpsertPending(ctx context.Context, task *models.MaintenanceTask) (*models.MaintenanceTask, bool, error)
	FindTaskByID(ctx context.Context, id string) (*models.MaintenanceTask, error)
	SaveTask(ctx context.Context, task *models.MaintenanceTask) error
	InsertTask(ctx context.Context, task *models.MaintenanceTask) error
	FindTasks(ctx context.Context, vehicleID string, status models.TaskStatus) ([]models.MaintenanceTask, error)
}
