package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/car-maintenance/internal/apperr"
	"github.com/ukydev/car-maintenance/internal/middleware"
	"github.com/ukydev/car-maintenance/internal/models"
)

// MaxImageBytes bounds uploaded images
const MaxImageBytes = 10 << 20

// VehicleService creates and reads vehicles
type VehicleService interface {
	IngestImage(ctx context.Context, ownerID, filename string, image []byte) (*models.Vehicle, error)
	Get(ctx context.Context, id string) (*models.Vehicle, error)
	ListForOwner(ctx context.Context, ownerID string) ([]models.Vehicle, error)
	Statistics(ctx context.Context) (models.VehicleStatistics, error)
}

// VehicleHandler handles vehicle requests
type VehicleHandler struct {
	service VehicleService
	log     log.FieldLogger
}

// NewVehicleHandler creates a new vehicle handler
func NewVehicleHandler(service VehicleService, logger log.FieldLogger) *VehicleHandler {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &VehicleHandler{service: service, log: logger}
}

// seesAllVehicles reports whether a role may read every owner's vehicles
func seesAllVehicles(role models.Role) bool {
	return role == models.RoleAdmin || role == models.RoleManager
}

// Classify handles POST /api/vehicles/classify with a multipart "image" field
func (h *VehicleHandler) Classify(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxImageBytes+1<<20)
	file, header, err := r.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Image too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Image file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	image, err := io.ReadAll(io.LimitReader(file, MaxImageBytes+1))
	if err != nil {
		http.Error(w, "Failed to read image", http.StatusBadRequest)
		return
	}
	if len(image) > MaxImageBytes {
		http.Error(w, "Image too large", http.StatusRequestEntityTooLarge)
		return
	}

	vehicle, err := h.service.IngestImage(r.Context(), id.UserID, header.Filename, image)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, vehicle)
}

// GetVehicle handles GET /api/vehicles/{id}
func (h *VehicleHandler) GetVehicle(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	vehicle, err := h.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if vehicle.OwnerID != id.UserID && !seesAllVehicles(id.Role) {
		writeError(w, r, h.log, apperr.NotFound("vehicle %s", vehicle.ID))
		return
	}
	writeJSON(w, http.StatusOK, vehicle)
}

// ListVehicles handles GET /api/vehicles. Admins and managers may pass ?owner= or list everything.
func (h *VehicleHandler) ListVehicles(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	owner := id.UserID
	if seesAllVehicles(id.Role) {
		owner = r.URL.Query().Get("owner")
	}
	vehicles, err := h.service.ListForOwner(r.Context(), owner)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, vehicles)
}

// Statistics handles GET /api/vehicles/statistics
func (h *VehicleHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Statistics(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
