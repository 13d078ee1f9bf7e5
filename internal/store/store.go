// Package store selects and opens the configured storage backend.
//
// The selector validates the configuration up front and fails fast: a
// missing or unknown backend name is an error, never a silent fallback to
// some default. Callers receive the backend behind the models.Store
// interface and should consult Capabilities before issuing range queries.
package store

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/arpeggia/recordkeeper/internal/models"
	"github.com/arpeggia/recordkeeper/internal/shared"
	"github.com/arpeggia/recordkeeper/internal/store/mongo"
	"github.com/arpeggia/recordkeeper/internal/store/postgres"
	"github.com/arpeggia/recordkeeper/internal/store/rediscache"
	"github.com/arpeggia/recordkeeper/internal/store/sqlite"
)

// Open validates cfg and opens the backend it names. Connectivity is
// verified before returning, so a reachable store is the only success
// outcome.
func Open(ctx context.Context, cfg *shared.Config, logger *log.Logger) (models.Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Info("opening storage backend", "backend", cfg.Backend.Name)

	switch cfg.Backend.Name {
	case shared.BackendSQLite:
		return sqlite.Open(ctx, cfg.SQLite, logger)
	case shared.BackendPostgres:
		return postgres.Open(ctx, cfg.Postgres, logger)
	case shared.BackendMongo:
		return mongo.Open(ctx, cfg.Mongo, logger)
	case shared.BackendRedis:
		return rediscache.Open(ctx, cfg.Redis, logger)
	default:
		// Validate rejects unknown names; kept for exhaustiveness.
		return nil, fmt.Errorf("%w: unknown backend %q", shared.ErrConfiguration, cfg.Backend.Name)
	}
}
