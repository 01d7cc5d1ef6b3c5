package translation

import (
	"context"
	"fmt"
)

// Cache backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Backends lists the known backend names.
var Backends = []string{BackendMemory, BackendRedis, BackendSQLite, BackendPostgres}

// StoreConfig selects and addresses a cache backend.
type StoreConfig struct {
	Backend  string
	RedisURL string
	// DSN is the sqlite file path or the postgres connection string.
	DSN string
}

// OpenStore creates the configured store.
func OpenStore(ctx context.Context, cfg StoreConfig) (Store, error) {
	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendRedis:
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("cache backend %s requires a redis url", cfg.Backend)
		}
		return NewRedisStore(ctx, cfg.RedisURL)
	case BackendSQLite:
		path := cfg.DSN
		if path == "" {
			path = "bubbletrans-cache.db"
		}
		return NewSQLiteStore(ctx, path)
	case BackendPostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("cache backend %s requires a dsn", cfg.Backend)
		}
		return NewPostgresStore(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
