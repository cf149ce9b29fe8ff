// Package vehicles creates vehicle records from classified photos.
package vehicles

import (
	"context"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/car-maintenance/internal/apperr"
	"github.com/ukydev/car-maintenance/internal/classifier"
	"github.com/ukydev/car-maintenance/internal/db"
	"github.com/ukydev/car-maintenance/internal/events"
	"github.com/ukydev/car-maintenance/internal/models"
)

// Classifier turns an image into a vehicle classification.
type Classifier interface {
	Classify(ctx context.Context, image []byte, meta classifier.ImageMetadata) (models.Classification, error)
}

var imageTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
}

// Config wires an Ingestor.
type Config struct {
	Vehicles   db.VehicleStore
	Classifier Classifier
	Publisher  events.Publisher
	Logger     logrus.FieldLogger
	// BaseURL prefixes the /uploads/<filename> image URL stored on the vehicle.
	BaseURL string
}

// Ingestor classifies uploaded photos and stores the resulting vehicles.
type Ingestor struct {
	vehicles   db.VehicleStore
	classifier Classifier
	publisher  events.Publisher
	log        logrus.FieldLogger
	baseURL    string
}

// NewIngestor creates an Ingestor.
func NewIngestor(cfg Config) *Ingestor {
	if cfg.Publisher == nil {
		cfg.Publisher = events.NopPublisher{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	return &Ingestor{
		vehicles:   cfg.Vehicles,
		classifier: cfg.Classifier,
		publisher:  cfg.Publisher,
		log:        cfg.Logger,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
	}
}

// IngestImage classifies image and saves a new vehicle for ownerID with zero mileage.
func (i *Ingestor) IngestImage(ctx context.Context, ownerID, filename string, image []byte) (*models.Vehicle, error) {
	if ownerID == "" {
		return nil, apperr.InvalidArgument("owner id is required")
	}
	name := filepath.Base(filename)
	mime, ok := imageTypes[strings.ToLower(filepath.Ext(name))]
	if !ok || name == "." || name == "/" {
		return nil, apperr.InvalidArgument("only jpg, jpeg, png and gif images are allowed")
	}
	if len(image) == 0 {
		return nil, apperr.InvalidArgument("image is empty")
	}
	if detected := http.DetectContentType(image); strings.HasPrefix(detected, "image/") {
		mime = detected
	}

	logger := i.log.WithFields(logrus.Fields{"owner_id": ownerID, "filename": name})

	result, err := i.classifier.Classify(ctx, image, classifier.ImageMetadata{Filename: name, MimeType: mime})
	if err != nil {
		return nil, err
	}
	year, err := classifier.YearNumber(result)
	if err != nil {
		return nil, err
	}

	vehicle := &models.Vehicle{
		Make:     result.Brand,
		Model:    result.Model,
		Year:     year,
		Mileage:  0,
		Engine:   result.Engine,
		ImageURL: i.baseURL + "/uploads/" + name,
		OwnerID:  ownerID,
	}
	if err := i.vehicles.SaveVehicle(ctx, vehicle); err != nil {
		logger.WithError(err).Error("Failed to save classified vehicle")
		return nil, apperr.Internal(err, "save vehicle")
	}

	logger.WithFields(logrus.Fields{
		"vehicle_id": vehicle.ID,
		"make":       vehicle.Make,
		"model":      vehicle.Model,
		"year":       vehicle.Year,
	}).Info("Created vehicle from image")

	if err := i.publisher.Publish(ctx, events.VehicleEvent(events.VehicleCreated, *vehicle)); err != nil {
		logger.WithError(err).Warn("Failed to publish event")
	}
	return vehicle, nil
}

// Get returns a vehicle by id.
func (i *Ingestor) Get(ctx context.Context, id string) (*models.Vehicle, error) {
	return i.vehicles.GetVehicle(ctx, id)
}

// ListForOwner returns the vehicles of ownerID, or of every owner when ownerID is empty.
func (i *Ingestor) ListForOwner(ctx context.Context, ownerID string) ([]models.Vehicle, error) {
	vehicles, err := i.vehicles.ListVehicles(ctx, ownerID)
	if err != nil {
		return nil, apperr.Internal(err, "list vehicles")
	}
	return vehicles, nil
}

// Statistics counts the stored vehicles in total and per make.
func (i *Ingestor) Statistics(ctx context.Context) (models.VehicleStatistics, error) {
	counts, err := i.vehicles.CountByMake(ctx)
	if err != nil {
		return models.VehicleStatistics{}, apperr.Internal(err, "count vehicles")
	}
	stats := models.VehicleStatistics{ByMake: counts}
	for _, c := range counts {
		stats.TotalVehicles += c.Count
	}
	return stats, nil
}
