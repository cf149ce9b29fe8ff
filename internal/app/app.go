// Package app assembles the service from its configuration.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/car-maintenance/internal/auth"
	"github.com/ukydev/car-maintenance/internal/classifier"
	"github.com/ukydev/car-maintenance/internal/config"
	"github.com/ukydev/car-maintenance/internal/db"
	"github.com/ukydev/car-maintenance/internal/events"
	"github.com/ukydev/car-maintenance/internal/handlers"
	"github.com/ukydev/car-maintenance/internal/lock"
	"github.com/ukydev/car-maintenance/internal/maintenance"
	"github.com/ukydev/car-maintenance/internal/metrics"
	"github.com/ukydev/car-maintenance/internal/middleware"
	"github.com/ukydev/car-maintenance/internal/vehicles"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	vehiclesCollection = "vehicles"
	tasksCollection    = "maintenance_tasks"

	requestsPerMinute = 120
)

// App holds the wired components.
type App struct {
	Config      config.Config
	Vehicles    db.VehicleStore
	Tasks       db.TaskStore
	Maintenance *maintenance.Service
	Ingestor    *vehicles.Ingestor
	Tokens      *auth.Service

	log     log.FieldLogger
	closers []func()
}

// New connects the configured backends and builds the services.
func New(ctx context.Context, cfg config.Config, logger log.FieldLogger) (*App, error) {
	if logger == nil {
		logger = log.StandardLogger()
	}
	a := &App{Config: cfg, log: logger}

	if err := a.openStores(ctx); err != nil {
		a.Close()
		return nil, err
	}

	locker, err := a.openLocker()
	if err != nil {
		a.Close()
		return nil, err
	}

	publisher, err := a.openPublisher()
	if err != nil {
		a.Close()
		return nil, err
	}

	tokens, err := auth.NewService(cfg.JWTSecret, cfg.JWTExpiry)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("auth: %w", err)
	}
	a.Tokens = tokens

	a.Maintenance = maintenance.NewService(maintenance.Config{
		Vehicles:         a.Vehicles,
		Tasks:            a.Tasks,
		Locker:           locker,
		Publisher:        publisher,
		Logger:           logger.WithField("component", "maintenance"),
		BatchConcurrency: cfg.BatchConcurrency,
	})

	gateway := classifier.NewGateway(
		classifier.NewHTTPClient(classifier.HTTPConfig{
			Endpoint: cfg.ClassifierEndpoint,
			APIKey:   cfg.ClassifierAPIKey,
			Model:    cfg.ClassifierModel,
			RPS:      cfg.ClassifierRPS,
			Timeout:  cfg.ClassifierTimeout,
		}),
		classifier.WithLogger(logger.WithField("component", "classifier")),
	)
	a.Ingestor = vehicles.NewIngestor(vehicles.Config{
		Vehicles:   a.Vehicles,
		Classifier: gateway,
		Publisher:  publisher,
		Logger:     logger.WithField("component", "vehicles"),
		BaseURL:    cfg.PublicBaseURL,
	})
	return a, nil
}

func (a *App) openStores(ctx context.Context) error {
	if a.Config.Store == config.StoreMemory {
		a.Vehicles = db.NewMemoryVehicleStore()
		a.Tasks = db.NewMemoryTaskStore()
		a.log.Warn("Using in-memory store; data is lost on restart")
		return nil
	}

	client, err := db.ConnectMongo(a.Config.MongoURI)
	if err != nil {
		return fmt.Errorf("connect to MongoDB: %w", err)
	}
	a.closers = append(a.closers, func() { disconnect(client) })

	database := client.Database(a.Config.MongoDatabase)
	tasks := &db.MongoTaskCollection{Collection: database.Collection(tasksCollection)}
	if err := tasks.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("ensure task indexes: %w", err)
	}
	a.Vehicles = &db.MongoVehicleCollection{Collection: database.Collection(vehiclesCollection)}
	a.Tasks = tasks
	a.log.WithField("database", a.Config.MongoDatabase).Info("Connected to MongoDB")
	return nil
}

func disconnect(client *mongo.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		log.WithError(err).Warn("Failed to disconnect from MongoDB")
	}
}

func (a *App) openLocker() (lock.Locker, error) {
	if a.Config.RedisURL == "" {
		return lock.NewKeyedMutex(), nil
	}
	locker, err := lock.NewRedisLocker(lock.RedisConfig{URL: a.Config.RedisURL})
	if err != nil {
		return nil, fmt.Errorf("connect to Redis: %w", err)
	}
	a.closers = append(a.closers, func() { _ = locker.Close() })
	a.log.Info("Using Redis vehicle locks")
	return locker, nil
}

func (a *App) openPublisher() (events.Publisher, error) {
	if a.Config.MQTTBroker == "" {
		return events.NopPublisher{}, nil
	}
	publisher, err := events.NewMQTTPublisher(events.MQTTConfig{
		Broker:      a.Config.MQTTBroker,
		ClientID:    a.Config.MQTTClientID,
		TopicPrefix: a.Config.MQTTTopicPrefix,
		QoS:         1,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to MQTT broker: %w", err)
	}
	a.closers = append(a.closers, publisher.Close)
	a.log.WithField("broker", a.Config.MQTTBroker).Info("Publishing events over MQTT")
	return publisher, nil
}

// Handler returns the HTTP API.
func (a *App) Handler() http.Handler {
	authMiddleware := middleware.NewAuthMiddleware(a.Tokens)
	rateLimiter := middleware.NewRateLimitMiddleware()

	mux := http.NewServeMux()
	handlers.NewMaintenanceHandler(a.Maintenance, a.log).Routes(mux, authMiddleware.RequirePermission)
	handlers.NewVehicleHandler(a.Ingestor, a.log).Routes(mux, authMiddleware.RequirePermission)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"status":"ok","store":%q}`, a.Config.Store)
	})

	var h http.Handler = mux
	h = authMiddleware.Authenticate(h)
	h = rateLimiter.RateLimit(requestsPerMinute, time.Minute)(h)
	h = middleware.Logging(a.log)(h)
	return h
}

// Close releases backend connections in reverse order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
