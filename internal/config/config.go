// Package config reads service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

// Config holds every setting of the service and the CLI.
type Config struct {
	Port          string
	Store         string
	MongoURI      string
	MongoDatabase string
	RedisURL      string

	MQTTBroker      string
	MQTTClientID    string
	MQTTTopicPrefix string

	ClassifierEndpoint string
	ClassifierAPIKey   string
	ClassifierModel    string
	ClassifierRPS      float64
	ClassifierTimeout  time.Duration

	JWTSecret string
	JWTExpiry time.Duration

	LogLevel  string
	LogFormat string

	BatchConcurrency int
	PublicBaseURL    string
}

// Load reads .env files (when present) and then the environment.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}
	return FromEnv()
}

// FromEnv reads settings from the environment, applying defaults for unset values.
func FromEnv() (Config, error) {
	cfg := Config{
		Port:               getEnv("PORT", "8080"),
		Store:              getEnv("STORE", StoreMongo),
		MongoURI:           getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:      getEnv("MONGO_DB", "car_maintenance"),
		RedisURL:           os.Getenv("REDIS_URL"),
		MQTTBroker:         os.Getenv("MQTT_BROKER"),
		MQTTClientID:       getEnv("MQTT_CLIENT_ID", "car-maintenance"),
		MQTTTopicPrefix:    getEnv("MQTT_TOPIC_PREFIX", "maintenance"),
		ClassifierEndpoint: os.Getenv("CLASSIFIER_ENDPOINT"),
		ClassifierAPIKey:   os.Getenv("CLASSIFIER_API_KEY"),
		ClassifierModel:    os.Getenv("CLASSIFIER_MODEL"),
		JWTSecret:          getEnv("JWT_SECRET", "default-secret-key-change-in-production"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "text"),
		PublicBaseURL:      os.Getenv("PUBLIC_BASE_URL"),
	}

	var err error
	if cfg.ClassifierRPS, err = getFloat("CLASSIFIER_RPS", 2); err != nil {
		return Config{}, err
	}
	if cfg.ClassifierTimeout, err = getDuration("CLASSIFIER_TIMEOUT", 30*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.JWTExpiry, err = getDuration("JWT_EXPIRY", 24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.BatchConcurrency, err = getInt("BATCH_CONCURRENCY", 4); err != nil {
		return Config{}, err
	}

	switch cfg.Store {
	case StoreMongo, StoreMemory:
	default:
		return Config{}, fmt.Errorf("STORE must be %q or %q, got %q", StoreMongo, StoreMemory, cfg.Store)
	}
	if cfg.BatchConcurrency <= 0 {
		return Config{}, fmt.Errorf("BATCH_CONCURRENCY must be positive, got %d", cfg.BatchConcurrency)
	}
	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = "http://localhost:" + cfg.Port
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
