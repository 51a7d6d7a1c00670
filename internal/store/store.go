// Package store implements the data-store collaborators the engine drives:
// stage-scoped connection pools, the write/read primitives, schema
// provisioning, and per-backend failure classification.
package store

import (
	"context"
	"fmt"

	"github.com/clementcyberknight/db-stress-test/internal/config"
	"github.com/clementcyberknight/db-stress-test/internal/engine"
	"github.com/clementcyberknight/db-stress-test/internal/logging"
)

// Builder is the full store collaborator surface: stage pool construction
// and error classification for the engine, plus one-time provisioning and
// final cleanup for the run driver.
type Builder interface {
	engine.PoolBuilder
	EnsureSchema(ctx context.Context) error
	Close() error
}

// NewBuilder selects the backend named in the configuration.
func NewBuilder(cfg *config.StoreConfig, logger *logging.Logger) (Builder, error) {
	switch cfg.Backend {
	case "postgres":
		return newPostgresBuilder(cfg, logger), nil
	case "redis":
		return newRedisBuilder(cfg, logger), nil
	case "badger":
		return newBadgerBuilder(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %q", cfg.Backend)
	}
}
