package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"PORT", "STORE", "MONGO_URI", "MONGO_DB", "REDIS_URL", "MQTT_BROKER", "MQTT_CLIENT_ID",
	"MQTT_TOPIC_PREFIX", "CLASSIFIER_ENDPOINT", "CLASSIFIER_API_KEY", "CLASSIFIER_MODEL",
	"CLASSIFIER_RPS", "CLASSIFIER_TIMEOUT", "JWT_SECRET", "JWT_EXPIRY", "LOG_LEVEL", "LOG_FORMAT",
	"BATCH_CONCURRENCY", "PUBLIC_BASE_URL",
}

func clearEnv(t *testing.T) {
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StoreMongo, cfg.Store)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoURI)
	assert.Equal(t, "car_maintenance", cfg.MongoDatabase)
	assert.Empty(t, cfg.RedisURL)
	assert.Equal(t, "maintenance", cfg.MQTTTopicPrefix)
	assert.Equal(t, 2.0, cfg.ClassifierRPS)
	assert.Equal(t, 30*time.Second, cfg.ClassifierTimeout)
	assert.Equal(t, 24*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, 4, cfg.BatchConcurrency)
	assert.Equal(t, "http://localhost:8080", cfg.PublicBaseURL)
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("STORE", "memory")
	t.Setenv("CLASSIFIER_RPS", "0.5")
	t.Setenv("CLASSIFIER_TIMEOUT", "5s")
	t.Setenv("JWT_EXPIRY", "1h")
	t.Setenv("BATCH_CONCURRENCY", "16")
	t.Setenv("PUBLIC_BASE_URL", "https://cars.example.com")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, 0.5, cfg.ClassifierRPS)
	assert.Equal(t, 5*time.Second, cfg.ClassifierTimeout)
	assert.Equal(t, time.Hour, cfg.JWTExpiry)
	assert.Equal(t, 16, cfg.BatchConcurrency)
	assert.Equal(t, "https://cars.example.com", cfg.PublicBaseURL)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"STORE", "postgres"},
		{"CLASSIFIER_RPS", "fast"},
		{"CLASSIFIER_TIMEOUT", "30"},
		{"JWT_EXPIRY", "tomorrow"},
		{"BATCH_CONCURRENCY", "0"},
		{"BATCH_CONCURRENCY", "four"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("MONGO_DB")
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("MONGO_DB=from_file\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from_file", cfg.MongoDatabase)
}

func TestLoad_MissingFileIsIgnored(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)
}
