package handlers

import (
	"net/http"

	"github.com/ukydev/car-maintenance/internal/models"
)

// Permission wraps a handler with an authorization check for action
type Permission func(action string) func(http.Handler) http.Handler

// AllowAll performs no authorization
func AllowAll(string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler { return next }
}

// Routes registers the maintenance endpoints on mux
func (h *MaintenanceHandler) Routes(mux *http.ServeMux, require Permission) {
	mux.Handle("GET /api/maintenance/{vehicleId}", require(models.ActionViewMaintenance)(http.HandlerFunc(h.ListTasks)))
	mux.Handle("GET /api/maintenance/{vehicleId}/predict", require(models.ActionPredictMaintenance)(http.HandlerFunc(h.Predict)))
	mux.Handle("POST /api/maintenance/{vehicleId}/task", require(models.ActionUpdateMaintenance)(http.HandlerFunc(h.AddTask)))
	mux.Handle("PUT /api/maintenance/task/{taskId}/complete", require(models.ActionUpdateMaintenance)(http.HandlerFunc(h.CompleteTask)))
	mux.Handle("PUT /api/maintenance/task/{taskId}", require(models.ActionUpdateMaintenance)(http.HandlerFunc(h.UpdateTask)))
	mux.Handle("POST /api/maintenance/predict-all", require(models.ActionRunBatch)(http.HandlerFunc(h.PredictAll)))
}

// Routes registers the vehicle endpoints on mux
func (h *VehicleHandler) Routes(mux *http.ServeMux, require Permission) {
	mux.Handle("POST /api/vehicles/classify", require(models.ActionClassifyVehicle)(http.HandlerFunc(h.Classify)))
	mux.Handle("GET /api/vehicles/statistics", require(models.ActionViewStatistics)(http.HandlerFunc(h.Statistics)))
	mux.Handle("GET /api/vehicles/{id}", require(models.ActionViewVehicles)(http.HandlerFunc(h.GetVehicle)))
	mux.Handle("GET /api/vehicles", require(models.ActionViewVehicles)(http.HandlerFunc(h.ListVehicles)))
}
