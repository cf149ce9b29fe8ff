package maintenance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/car-maintenance/internal/db"
	"github.com/ukydev/car-maintenance/internal/events"
	"github.com/ukydev/car-maintenance/internal/models"
)

type fixture struct {
	svc      *Service
	vehicles *db.MemoryVehicleStore
	tasks    *db.MemoryTaskStore
	events   *events.Recorder
	hook     *test.Hook
}

func newFixture(t *testing.T, opts ...func(*Config)) *fixture {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	f := &fixture{
		vehicles: db.NewMemoryVehicleStore(),
		tasks:    db.NewMemoryTaskStore(),
		events:   &events.Recorder{},
		hook:     hook,
	}
	cfg := Config{
		Vehicles:  f.vehicles,
		Tasks:     f.tasks,
		Publisher: f.events,
		Logger:    logger,
		Now:       func() time.Time { return testNow },
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	f.svc = NewService(cfg)
	return f
}

func (f *fixture) addVehicle(t *testing.T, v models.Vehicle) *models.Vehicle {
	t.Helper()
	require.NoError(t, f.vehicles.SaveVehicle(context.Background(), &v))
	return &v
}

func (f *fixture) vehicle(t *testing.T, id string) *models.Vehicle {
	t.Helper()
	v, err := f.vehicles.GetVehicle(context.Background(), id)
	require.NoError(t, err)
	return v
}

func (f *fixture) pending(t *testing.T, vehicleID string) []models.MaintenanceTask {
	t.Helper()
	tasks, err := f.tasks.FindTasks(context.Background(), vehicleID, models.StatusPending)
	require.NoError(t, err)
	return tasks
}

var errStoreDown = errors.New("store down")

// flakyTasks fails UpsertPending for one task type.
type flakyTasks struct {
	*db.MemoryTaskStore
	failType models.TaskType
}

func (f *flakyTasks) UpsertPending(ctx context.Context, task *models.MaintenanceTask) (*models.MaintenanceTask, bool, error) {
	if task.TaskType == f.failType {
		return nil, false, errStoreDown
	}
	return f.MemoryTaskStore.UpsertPending(ctx, task)
}

// unsaveableTasks rejects every SaveTask.
type unsaveableTasks struct {
	*db.MemoryTaskStore
}

func (u *unsaveableTasks) SaveTask(ctx context.Context, task *models.MaintenanceTask) error {
	return errStoreDown
}

// trappedVehicles panics or fails for selected vehicle ids.
type trappedVehicles struct {
	*db.MemoryVehicleStore
	panicID string
	failID  string
}

func (v *trappedVehicles) GetVehicle(ctx context.Context, id string) (*models.Vehicle, error) {
	switch id {
	case v.panicID:
		panic("corrupt record")
	case v.failID:
		return nil, errStoreDown
	}
	return v.MemoryVehicleStore.GetVehicle(ctx, id)
}
