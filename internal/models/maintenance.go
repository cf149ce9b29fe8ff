package models

import (
	"fmt"
	"time"
)

// TaskType names a kind of maintenance action. Values outside the known set are custom types.
type TaskType string

const (
	TaskOilChange              TaskType = "Oil Change"
	TaskTimingChainReplacement TaskType = "Timing Chain Replacement"
	TaskBrakeChange            TaskType = "Brake Change"
	TaskTireReplacement        TaskType = "Tire Replacement"
	TaskFirstOilChange         TaskType = "First Oil Change"
)

// IsKnown reports whether t is one of the predefined task types.
func (t TaskType) IsKnown() bool {
	switch t {
	case TaskOilChange, TaskTimingChainReplacement, TaskBrakeChange, TaskTireReplacement, TaskFirstOilChange:
		return true
	default:
		return false
	}
}

// TaskStatus is the lifecycle state of a maintenance task.
type TaskStatus string

const (
	StatusPending   TaskStatus = "Pending"
	StatusCompleted TaskStatus = "Completed"
)

// ParseTaskStatus validates a status string.
func ParseTaskStatus(s string) (TaskStatus, error) {
	switch TaskStatus(s) {
	case StatusPending, StatusCompleted:
		return TaskStatus(s), nil
	default:
		return "", fmt.Errorf("unknown task status %q", s)
	}
}

// MaintenanceTask is a stored maintenance action for one vehicle.
// At most one Pending task of a given TaskType exists per vehicle.
type MaintenanceTask struct {
	ID          string     `json:"id" bson:"_id,omitempty"`
	VehicleID   string     `json:"vehicle_id" bson:"vehicle_id"`
	TaskType    TaskType   `json:"task_type" bson:"task_type"`
	Status      TaskStatus `json:"status" bson:"status"`
	DueDate     *time.Time `json:"due_date,omitempty" bson:"due_date,omitempty"`
	NextMileage *int       `json:"next_mileage,omitempty" bson:"next_mileage,omitempty"`
	Comments    string     `json:"comments,omitempty" bson:"comments,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" bson:"updated_at"`
}

// Candidate is a task the rule engine thinks should exist.
type Candidate struct {
	VehicleID   string     `json:"vehicle_id"`
	TaskType    TaskType   `json:"task_type"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	NextMileage *int       `json:"next_mileage,omitempty"`
}

// TaskPatch carries optional field updates for a task.
type TaskPatch struct {
	Status   *TaskStatus `json:"status,omitempty"`
	Comments *string     `json:"comments,omitempty"`
}
