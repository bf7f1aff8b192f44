package config

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
)

type AppConfig struct {
	AppEnv   string
	LogLevel slog.Level

	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// StoreBackend selects the record store: memory, sqlite, postgres or mongo.
	StoreBackend string

	// SQL backends.
	DBDriver        string // sqlite3 (mattn) or sqlite (modernc) for the sqlite backend
	DBDSN           string // overrides SQLitePath when set
	SQLitePath      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// Mongo backend.
	MongoURI      string
	MongoDatabase string

	// StoreBreaker guards network stores with a circuit breaker.
	StoreBreaker bool

	// HealthInterval controls how often the store is probed.
	HealthInterval time.Duration

	// MQTT ingest; disabled when MQTTBroker is empty.
	MQTTBroker   string
	MQTTPort     int
	MQTTTopic    string
	MQTTClientID string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.AppEnv = getenvDefault("APP_ENV", "dev")
	switch cfg.AppEnv {
	case "dev", "prod":
	default:
		return nil, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", cfg.AppEnv)
	}

	level, err := ParseLogLevel(getenvDefault("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	cfg.Port = getenvDefault("PORT", "8080")
	if cfg.ReadTimeout, err = getenvDuration("HTTP_READ_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.WriteTimeout, err = getenvDuration("HTTP_WRITE_TIMEOUT", "10s"); err != nil {
		return nil, err
	}

	cfg.StoreBackend = strings.ToLower(getenvDefault("STORE_BACKEND", BackendSQLite))
	switch cfg.StoreBackend {
	case BackendMemory, BackendSQLite, BackendPostgres, BackendMongo:
	default:
		return nil, fmt.Errorf("invalid STORE_BACKEND %q (allowed: memory, sqlite, postgres, mongo)", cfg.StoreBackend)
	}

	defaultDriver := "sqlite3"
	if cfg.StoreBackend == BackendPostgres {
		defaultDriver = "postgres"
	}
	cfg.DBDriver = getenvDefault("DB_DRIVER", defaultDriver)
	cfg.DBDSN = getenvDefault("DB_DSN", "")
	cfg.SQLitePath = getenvDefault("SQLITE_PATH", "data/weather.db")

	if cfg.MaxOpenConns, err = getenvInt("DB_MAX_OPEN_CONNS", 1); err != nil {
		return nil, err
	}
	if cfg.MaxIdleConns, err = getenvInt("DB_MAX_IDLE_CONNS", 1); err != nil {
		return nil, err
	}
	if cfg.ConnMaxLifetime, err = getenvDuration("DB_CONN_MAX_LIFETIME", "0s"); err != nil {
		return nil, err
	}

	cfg.MongoURI = getenvDefault("MONGO_URI", "mongodb://localhost:27017")
	cfg.MongoDatabase = getenvDefault("MONGO_DATABASE", "weather")

	if cfg.StoreBreaker, err = getenvBool("STORE_BREAKER", true); err != nil {
		return nil, err
	}

	if cfg.HealthInterval, err = getenvDuration("HEALTH_INTERVAL", "30s"); err != nil {
		return nil, err
	}
	if cfg.HealthInterval < time.Second {
		return nil, fmt.Errorf("invalid HEALTH_INTERVAL %s: must be at least 1s", cfg.HealthInterval)
	}

	cfg.MQTTBroker = getenvDefault("MQTT_BROKER", "")
	if cfg.MQTTPort, err = getenvInt("MQTT_PORT", 1883); err != nil {
		return nil, err
	}
	cfg.MQTTTopic = getenvDefault("MQTT_TOPIC", "weather/records")
	cfg.MQTTClientID = getenvDefault("MQTT_CLIENT_ID", "weather-records")

	return cfg, nil
}

// ParseLogLevel maps debug/info/warn/error to a slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func getenvDuration(key, def string) (time.Duration, error) {
	v := getenvDefault(key, def)
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getenvBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return b, nil
}
