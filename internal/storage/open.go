package storage

import (
	"context"
	"fmt"

	"github.com/odyssey-erp/stockroom/internal/platform/db"
)

// Drivers accepted by Open.
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// Config selects and configures a backend.
type Config struct {
	Driver      string
	Path        string
	RedisAddr   string
	PostgresDSN string
}

// Open builds the configured backend. The postgres backend runs schema
// migrations before returning.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case DriverMemory, "":
		return NewMemory(), nil
	case DriverFile:
		return NewFile(cfg.Path)
	case DriverRedis:
		return DialRedis(ctx, cfg.RedisAddr)
	case DriverPostgres:
		if err := db.Migrate(cfg.PostgresDSN); err != nil {
			return nil, err
		}
		pool, err := db.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return &Postgres{pool: pool, owned: true}, nil
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", cfg.Driver)
	}
}
