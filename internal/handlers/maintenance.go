package handlers

import (
	"context"
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/car-maintenance/internal/maintenance"
	"github.com/ukydev/car-maintenance/internal/models"
)

// MaintenanceService is the maintenance core as used by the HTTP layer
type MaintenanceService interface {
	PredictVehicle(ctx context.Context, vehicleID string, excluded []models.TaskType) (maintenance.Report, error)
	AddTask(ctx context.Context, vehicleID string, req maintenance.TaskRequest) (*models.MaintenanceTask, error)
	ListTasks(ctx context.Context, vehicleID, status string) ([]models.MaintenanceTask, error)
	Complete(ctx context.Context, taskID string) (*models.MaintenanceTask, error)
	UpdateTask(ctx context.Context, taskID string, patch models.TaskPatch, vehicleID string, newMileage *int) (*models.MaintenanceTask, error)
	PredictAll(ctx context.Context, vehicleIDs []string, excluded []models.TaskType) []maintenance.VehicleResult
	PredictFleet(ctx context.Context, excluded []models.TaskType) ([]maintenance.VehicleResult, error)
}

// MaintenanceHandler handles maintenance requests
type MaintenanceHandler struct {
	service MaintenanceService
	log     log.FieldLogger
}

// NewMaintenanceHandler creates a new maintenance handler
func NewMaintenanceHandler(service MaintenanceService, logger log.FieldLogger) *MaintenanceHandler {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &MaintenanceHandler{service: service, log: logger}
}

type taskError struct {
	TaskType models.TaskType `json:"task_type"`
	Error    string          `json:"error"`
}

// PredictResponse is returned by Predict
type PredictResponse struct {
	VehicleID string                   `json:"vehicle_id"`
	Tasks     []models.MaintenanceTask `json:"tasks"`
	Errors    []taskError              `json:"errors,omitempty"`
}

// ListTasks handles GET /api/maintenance/{vehicleId}?status=
func (h *MaintenanceHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.service.ListTasks(r.Context(), r.PathValue("vehicleId"), r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// Predict handles GET /api/maintenance/{vehicleId}/predict?exclude=a,b
func (h *MaintenanceHandler) Predict(w http.ResponseWriter, r *http.Request) {
	vehicleID := r.PathValue("vehicleId")
	report, err := h.service.PredictVehicle(r.Context(), vehicleID, parseTaskTypes(r.URL.Query().Get("exclude")))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	resp := PredictResponse{VehicleID: vehicleID, Tasks: report.Tasks()}
	for _, o := range report.Outcomes {
		if o.Err != nil {
			resp.Errors = append(resp.Errors, taskError{TaskType: o.Candidate.TaskType, Error: "failed to store task"})
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// AddTask handles POST /api/maintenance/{vehicleId}/task
func (h *MaintenanceHandler) AddTask(w http.ResponseWriter, r *http.Request) {
	var req maintenance.TaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	task, err := h.service.AddTask(r.Context(), r.PathValue("vehicleId"), req)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// CompleteTask handles PUT /api/maintenance/task/{taskId}/complete
func (h *MaintenanceHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.service.Complete(r.Context(), r.PathValue("taskId"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// UpdateTaskRequest is the body of UpdateTask
type UpdateTaskRequest struct {
	Status     *models.TaskStatus `json:"status,omitempty"`
	Comments   *string            `json:"comments,omitempty"`
	VehicleID  string             `json:"vehicle_id"`
	NewMileage *int               `json:"new_mileage,omitempty"`
}

// UpdateTask handles PUT /api/maintenance/task/{taskId}
func (h *MaintenanceHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var req UpdateTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	patch := models.TaskPatch{Status: req.Status, Comments: req.Comments}
	task, err := h.service.UpdateTask(r.Context(), r.PathValue("taskId"), patch, req.VehicleID, req.NewMileage)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// PredictAllRequest is the body of PredictAll. No vehicle ids means every vehicle.
type PredictAllRequest struct {
	VehicleIDs []string          `json:"vehicle_ids,omitempty"`
	Exclude    []models.TaskType `json:"exclude,omitempty"`
}

type vehicleResult struct {
	VehicleID string                   `json:"vehicle_id"`
	Tasks     []models.MaintenanceTask `json:"tasks"`
	Error     string                   `json:"error,omitempty"`
}

// PredictAllResponse is returned by PredictAll
type PredictAllResponse struct {
	Results []vehicleResult `json:"results"`
	Failed  int             `json:"failed"`
}

// PredictAll handles POST /api/maintenance/predict-all
func (h *MaintenanceHandler) PredictAll(w http.ResponseWriter, r *http.Request) {
	var req PredictAllRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	var results []maintenance.VehicleResult
	if len(req.VehicleIDs) == 0 {
		var err error
		if results, err = h.service.PredictFleet(r.Context(), req.Exclude); err != nil {
			writeError(w, r, h.log, err)
			return
		}
	} else {
		results = h.service.PredictAll(r.Context(), req.VehicleIDs, req.Exclude)
	}

	resp := PredictAllResponse{Results: make([]vehicleResult, 0, len(results))}
	for _, res := range results {
		out := vehicleResult{VehicleID: res.VehicleID, Tasks: res.Tasks}
		if out.Tasks == nil {
			out.Tasks = []models.MaintenanceTask{}
		}
		if res.Err != nil {
			out.Error = res.Err.Error()
			resp.Failed++
		}
		resp.Results = append(resp.Results, out)
	}
	writeJSON(w, http.StatusOK, resp)
}
