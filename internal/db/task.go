package db

import (
	"context"
	"errors"
	"time"

	"github.com/ukydev/car-maintenance/internal/apperr"
	"github.com/ukydev/car-maintenance/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PendingTaskIndex is the partial unique index that backs the one-pending-task-per-type rule.
const PendingTaskIndex = "uniq_pending_task"

// MongoTaskCollection implements TaskStore for MongoDB.
type MongoTaskCollection struct {
	Collection *mongo.Collection
}

// EnsureIndexes creates the indexes the task queries rely on.
func (c *MongoTaskCollection) EnsureIndexes(ctx context.Context) error {
	if c.Collection == nil {
		return apperr.Internal(errNilCollection, "ensure indexes")
	}
	_, err := c.Collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "vehicle_id", Value: 1}, {Key: "task_type", Value: 1}},
			Options: options.Index().
				SetName(PendingTaskIndex).
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": string(models.StatusPending)}),
		},
		{
			Keys: bson.D{{Key: "vehicle_id", Value: 1}, {Key: "status", Value: 1}, {Key: "completed_at", Value: -1}},
		},
	})
	if err != nil {
		return apperr.Internal(err, "ensure indexes")
	}
	return nil
}

func pendingFilter(vehicleID string, taskType models.TaskType) bson.M {
	return bson.M{
		"vehicle_id": vehicleID,
		"task_type":  taskType,
		"status":     models.StatusPending,
	}
}

// FindPending returns the Pending task of a type for a vehicle, or nil when there is none.
func (c *MongoTaskCollection) FindPending(ctx context.Context, vehicleID string, taskType models.TaskType) (*models.MaintenanceTask, error) {
	if c.Collection == nil {
		return nil, apperr.Internal(errNilCollection, "find pending task")
	}

	var task models.MaintenanceTask
	err := c.Collection.FindOne(ctx, pendingFilter(vehicleID, taskType)).Decode(&task)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, apperr.Internal(err, "find pending task")
	}
	return &task, nil
}

// FindRecentCompleted returns the task types completed for a vehicle at or after since.
func (c *MongoTaskCollection) FindRecentCompleted(ctx context.Context, vehicleID string, since time.Time) (map[models.TaskType]bool, error) {
	if c.Collection == nil {
		return nil, apperr.Internal(errNilCollection, "find recent tasks")
	}

	filter := bson.M{
		"vehicle_id":   vehicleID,
		"status":       models.StatusCompleted,
		"completed_at": bson.M{"$gte": since},
	}
	cursor, err := c.Collection.Find(ctx, filter, options.Find().SetProjection(bson.M{"task_type": 1}))
	if err != nil {
		return nil, apperr.Internal(err, "find recent tasks")
	}
	defer cursor.Close(ctx)

	var rows []struct {
		TaskType models.TaskType `bson:"task_type"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, apperr.Internal(err, "decode recent tasks")
	}

	recent := make(map[models.TaskType]bool, len(rows))
	for _, r := range rows {
		recent[r.TaskType] = true
	}
	return recent, nil
}

// UpsertPending creates the Pending task for (vehicle, type) or updates the existing one in a
// single atomic write. The bool result reports whether a new task was created.
func (c *MongoTaskCollection) UpsertPending(ctx context.Context, task *models.MaintenanceTask) (*models.MaintenanceTask, bool, error) {
	if c.Collection == nil {
		return nil, false, apperr.Internal(errNilCollection, "upsert task")
	}

	stored, created, err := c.upsertPending(ctx, task)
	if mongo.IsDuplicateKeyError(err) {
		// Lost an insert race against a concurrent upsert; the retry hits the existing document.
		stored, created, err = c.upsertPending(ctx, task)
	}
	if err != nil {
		return nil, false, apperr.Internal(err, "upsert task")
	}
	return stored, created, nil
}

func (c *MongoTaskCollection) upsertPending(ctx context.Context, task *models.MaintenanceTask) (*models.MaintenanceTask, bool, error) {
	now := time.Now()
	id := newID()

	set := bson.M{"updated_at": now}
	if task.DueDate != nil {
		set["due_date"] = *task.DueDate
	}
	if task.NextMileage != nil {
		set["next_mileage"] = *task.NextMileage
	}
	setOnInsert := bson.M{"_id": id, "created_at": now}
	if task.Comments != "" {
		setOnInsert["comments"] = task.Comments
	}

	var stored models.MaintenanceTask
	err := c.Collection.FindOneAndUpdate(
		ctx,
		pendingFilter(task.VehicleID, task.TaskType),
		bson.M{"$set": set, "$setOnInsert": setOnInsert},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&stored)
	if err != nil {
		return nil, false, err
	}
	return &stored, stored.ID == id, nil
}

// FindTaskByID finds a task by its ID.
func (c *MongoTaskCollection) FindTaskByID(ctx context.Context, id string) (*models.MaintenanceTask, error) {
	if c.Collection == nil {
		return nil, apperr.Internal(errNilCollection, "find task")
	}

	var task models.MaintenanceTask
	err := c.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&task)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("task %s", id)
		}
		return nil, apperr.Internal(err, "find task")
	}
	return &task, nil
}

// SaveTask replaces an existing task by its ID.
func (c *MongoTaskCollection) SaveTask(ctx context.Context, task *models.MaintenanceTask) error {
	if c.Collection == nil {
		return apperr.Internal(errNilCollection, "save task")
	}

	task.UpdatedAt = time.Now()
	result, err := c.Collection.ReplaceOne(ctx, bson.M{"_id": task.ID}, task)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperr.InvalidArgument("vehicle %s already has a pending %q task", task.VehicleID, task.TaskType)
		}
		return apperr.Internal(err, "save task")
	}
	if result.MatchedCount == 0 {
		return apperr.NotFound("task %s", task.ID)
	}
	return nil
}

// InsertTask inserts a new task, assigning an ID when it has none.
func (c *MongoTaskCollection) InsertTask(ctx context.Context, task *models.MaintenanceTask) error {
	if c.Collection == nil {
		return apperr.Internal(errNilCollection, "insert task")
	}

	now := time.Now()
	if task.ID == "" {
		task.ID = newID()
	}
	task.CreatedAt = now
	task.UpdatedAt = now

	if _, err := c.Collection.InsertOne(ctx, task); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperr.InvalidArgument("vehicle %s already has a pending %q task", task.VehicleID, task.TaskType)
		}
		return apperr.Internal(err, "insert task")
	}
	return nil
}

// FindTasks lists a vehicle's tasks, optionally filtered by status.
func (c *MongoTaskCollection) FindTasks(ctx context.Context, vehicleID string, status models.TaskStatus) ([]models.MaintenanceTask, error) {
	if c.Collection == nil {
		return nil, apperr.Internal(errNilCollection, "find tasks")
	}

	filter := bson.M{"vehicle_id": vehicleID}
	if status != "" {
		filter["status"] = status
	}
	cursor, err := c.Collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, apperr.Internal(err, "find tasks")
	}
	defer cursor.Close(ctx)

	tasks := []models.MaintenanceTask{}
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, apperr.Internal(err, "decode tasks")
	}
	return tasks, nil
}
