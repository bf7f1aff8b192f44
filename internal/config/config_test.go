package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"APP_ENV", "LOG_LEVEL", "PORT", "STORE_BACKEND", "DB_DRIVER", "DB_DSN",
		"SQLITE_PATH", "STORE_BREAKER", "HEALTH_INTERVAL", "MQTT_BROKER", "MQTT_PORT",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.AppEnv != "dev" || cfg.LogLevel != slog.LevelInfo || cfg.Port != "8080" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.StoreBackend != BackendSQLite || cfg.DBDriver != "sqlite3" || cfg.SQLitePath != "data/weather.db" {
		t.Fatalf("unexpected store defaults: %+v", cfg)
	}
	if !cfg.StoreBreaker || cfg.HealthInterval != 30*time.Second {
		t.Fatalf("unexpected breaker/health defaults: %+v", cfg)
	}
	if cfg.MQTTBroker != "" || cfg.MQTTPort != 1883 {
		t.Fatalf("unexpected mqtt defaults: %+v", cfg)
	}
}

func TestLoadPostgresDefaultsDriver(t *testing.T) {
	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("DB_DRIVER", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DBDriver != "postgres" {
		t.Fatalf("DBDriver = %q, want postgres", cfg.DBDriver)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		key, value, wantErr string
	}{
		{"APP_ENV", "staging", "APP_ENV"},
		{"LOG_LEVEL", "loud", "LOG_LEVEL"},
		{"STORE_BACKEND", "redis", "STORE_BACKEND"},
		{"DB_MAX_OPEN_CONNS", "many", "DB_MAX_OPEN_CONNS"},
		{"HEALTH_INTERVAL", "soon", "HEALTH_INTERVAL"},
		{"HEALTH_INTERVAL", "10ms", "HEALTH_INTERVAL"},
		{"STORE_BREAKER", "maybe", "STORE_BREAKER"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error mentioning %s, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" INFO ":  slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	} {
		got, err := ParseLogLevel(in)
		if err != nil || got != want {
			t.Fatalf("ParseLogLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
}
