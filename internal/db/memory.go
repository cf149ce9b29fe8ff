package db

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ukydev/car-maintenance/internal/apperr"
	"github.com/ukydev/car-maintenance/internal/models"
)

// MemoryVehicleStore is an in-process VehicleStore.
type MemoryVehicleStore struct {
	mu       sync.RWMutex
	vehicles map[string]models.Vehicle
}

// NewMemoryVehicleStore returns an empty MemoryVehicleStore.
func NewMemoryVehicleStore() *MemoryVehicleStore {
	return &MemoryVehicleStore{vehicles: make(map[string]models.Vehicle)}
}

func (s *MemoryVehicleStore) GetVehicle(ctx context.Context, id string) (*models.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.vehicles[id]
	if !ok {
		return nil, apperr.NotFound("vehicle %s", id)
	}
	return &v, nil
}

func (s *MemoryVehicleStore) SaveVehicle(ctx context.Context, vehicle *models.Vehicle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if vehicle.ID == "" {
		vehicle.ID = newID()
	}
	if vehicle.CreatedAt.IsZero() {
		vehicle.CreatedAt = now
	}
	vehicle.UpdatedAt = now
	s.vehicles[vehicle.ID] = *vehicle
	return nil
}

func (s *MemoryVehicleStore) ListVehicles(ctx context.Context, ownerID string) ([]models.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Vehicle{}
	for _, v := range s.vehicles {
		if ownerID == "" || v.OwnerID == ownerID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryVehicleStore) CountByMake(ctx context.Context) ([]models.MakeCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, v := range s.vehicles {
		counts[v.Make]++
	}
	out := make([]models.MakeCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, models.MakeCount{Make: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Make < out[j].Make })
	return out, nil
}

// MemoryTaskStore is an in-process TaskStore. The pending uniqueness rule is checked
// inside the same critical section as every write.
type MemoryTaskStore struct {
	mu    sync.RWMutex
	tasks map[string]models.MaintenanceTask
	order []string
}

// NewMemoryTaskStore returns an empty MemoryTaskStore.
func NewMemoryTaskStore() *MemoryTaskStore {
	return &MemoryTaskStore{tasks: make(map[string]models.MaintenanceTask)}
}

func cloneTask(t models.MaintenanceTask) models.MaintenanceTask {
	if t.DueDate != nil {
		d := *t.DueDate
		t.DueDate = &d
	}
	if t.NextMileage != nil {
		m := *t.NextMileage
		t.NextMileage = &m
	}
	if t.CompletedAt != nil {
		c := *t.CompletedAt
		t.CompletedAt = &c
	}
	return t
}

// pendingLocked returns the ID of the Pending task for (vehicle, type). Caller holds s.mu.
func (s *MemoryTaskStore) pendingLocked(vehicleID string, taskType models.TaskType) (string, bool) {
	for _, id := range s.order {
		t := s.tasks[id]
		if t.VehicleID == vehicleID && t.TaskType == taskType && t.Status == models.StatusPending {
			return id, true
		}
	}
	return "", false
}

func (s *MemoryTaskStore) conflictLocked(task *models.MaintenanceTask) error {
	if task.Status != models.StatusPending {
		return nil
	}
	if id, ok := s.pendingLocked(task.VehicleID, task.TaskType); ok && id != task.ID {
		return apperr.InvalidArgument("vehicle %s already has a pending %q task", task.VehicleID, task.TaskType)
	}
	return nil
}

func (s *MemoryTaskStore) FindPending(ctx context.Context, vehicleID string, taskType models.TaskType) (*models.MaintenanceTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.pendingLocked(vehicleID, taskType)
	if !ok {
		return nil, nil
	}
	t := cloneTask(s.tasks[id])
	return &t, nil
}

func (s *MemoryTaskStore) FindRecentCompleted(ctx context.Context, vehicleID string, since time.Time) (map[models.TaskType]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recent := make(map[models.TaskType]bool)
	for _, t := range s.tasks {
		if t.VehicleID != vehicleID || t.Status != models.StatusCompleted || t.CompletedAt == nil {
			continue
		}
		if !t.CompletedAt.Before(since) {
			recent[t.TaskType] = true
		}
	}
	return recent, nil
}

func (s *MemoryTaskStore) UpsertPending(ctx context.Context, task *models.MaintenanceTask) (*models.MaintenanceTask, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if id, ok := s.pendingLocked(task.VehicleID, task.TaskType); ok {
		existing := s.tasks[id]
		if task.DueDate != nil {
			d := *task.DueDate
			existing.DueDate = &d
		}
		if task.NextMileage != nil {
			m := *task.NextMileage
			existing.NextMileage = &m
		}
		existing.UpdatedAt = now
		s.tasks[id] = existing
		out := cloneTask(existing)
		return &out, false, nil
	}

	created := cloneTask(*task)
	created.ID = newID()
	created.Status = models.StatusPending
	created.CompletedAt = nil
	created.CreatedAt = now
	created.UpdatedAt = now
	s.tasks[created.ID] = created
	s.order = append(s.order, created.ID)
	out := cloneTask(created)
	return &out, true, nil
}

func (s *MemoryTaskStore) FindTaskByID(ctx context.Context, id string) (*models.MaintenanceTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, apperr.NotFound("task %s", id)
	}
	t = cloneTask(t)
	return &t, nil
}

func (s *MemoryTaskStore) SaveTask(ctx context.Context, task *models.MaintenanceTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[task.ID]; !ok {
		return apperr.NotFound("task %s", task.ID)
	}
	if err := s.conflictLocked(task); err != nil {
		return err
	}
	task.UpdatedAt = time.Now()
	s.tasks[task.ID] = cloneTask(*task)
	return nil
}

func (s *MemoryTaskStore) InsertTask(ctx context.Context, task *models.MaintenanceTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if task.ID == "" {
		task.ID = newID()
	}
	if _, ok := s.tasks[task.ID]; ok {
		return apperr.InvalidArgument("task %s already exists", task.ID)
	}
	if err := s.conflictLocked(task); err != nil {
		return err
	}
	now := time.Now()
	task.CreatedAt = now
	task.UpdatedAt = now
	s.tasks[task.ID] = cloneTask(*task)
	s.order = append(s.order, task.ID)
	return nil
}

func (s *MemoryTaskStore) FindTasks(ctx context.Context, vehicleID string, status models.TaskStatus) ([]models.MaintenanceTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.MaintenanceTask{}
	for _, id := range s.order {
		t := s.tasks[id]
		if t.VehicleID != vehicleID {
			continue
		}
		if status != "" && t.Status != status {
			continue
		}
		out = append(out, cloneTask(t))
	}
	return out, nil
}
