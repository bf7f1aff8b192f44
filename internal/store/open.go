package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	// SQL drivers selectable through DB_DRIVER.
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/i474232898/weather-records/internal/common"
	"github.com/i474232898/weather-records/internal/config"
	"github.com/i474232898/weather-records/internal/weather"
)

// Open builds the record store selected by cfg.StoreBackend.
func Open(ctx context.Context, cfg *config.AppConfig) (weather.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		return NewMemoryStore(), nil

	case config.BackendSQLite:
		dsn, err := sqliteDSN(cfg)
		if err != nil {
			return nil, err
		}
		return OpenSQL(ctx, cfg.DBDriver, dsn, poolConfig(cfg))

	case config.BackendPostgres:
		if cfg.DBDSN == "" {
			return nil, fmt.Errorf("DB_DSN is required for the postgres backend")
		}
		if !common.HasAny(cfg.DBDSN, "postgres://", "postgresql://", "host=") {
			slog.Warn("DB_DSN does not look like a postgres connection string", "driver", cfg.DBDriver)
		}
		s, err := OpenSQL(ctx, "postgres", cfg.DBDSN, poolConfig(cfg))
		if err != nil {
			return nil, err
		}
		return guard(cfg, s, "postgres"), nil

	case config.BackendMongo:
		s, err := OpenMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return guard(cfg, s, "mongo"), nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

func guard(cfg *config.AppConfig, s weather.Store, name string) weather.Store {
	if !cfg.StoreBreaker {
		return s
	}
	return Guard(s, name)
}

func poolConfig(cfg *config.AppConfig) PoolConfig {
	return PoolConfig{
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}
}

// sqliteDSN returns DB_DSN as is, or builds a file DSN from SQLITE_PATH with
// driver-specific pragmas:
//   - foreign keys on
//   - busy timeout of 5s for "database is locked" under concurrent use
//   - WAL journal for concurrent reads
func sqliteDSN(cfg *config.AppConfig) (string, error) {
	if cfg.DBDSN != "" {
		return cfg.DBDSN, nil
	}

	path := cfg.SQLitePath
	if path == ":memory:" {
		return path, nil
	}

	dir := filepath.Dir(strings.TrimPrefix(path, "file:"))
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	var params []string
	switch cfg.DBDriver {
	case "sqlite3":
		params = []string{"_foreign_keys=on", "_busy_timeout=5000", "_journal_mode=WAL"}
	case "sqlite":
		params = []string{"_pragma=foreign_keys(1)", "_pragma=busy_timeout(5000)", "_pragma=journal_mode(WAL)"}
	default:
		return "", fmt.Errorf("unsupported sqlite driver %q (allowed: sqlite3, sqlite)", cfg.DBDriver)
	}

	if strings.HasPrefix(path, "file:") {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return path + sep + strings.Join(params, "&"), nil
	}
	return fmt.Sprintf("file:%s?%s", path, strings.Join(params, "&")), nil
}
