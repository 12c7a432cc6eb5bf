package db

import (
	"context"
	"log/slog"

	"github.com/samber/oops"

	multitenancy "github.com/bartventer/gorm-multitenancy/v8"

	"github.com/openkcm/compliance-hub/internal/config"
	"github.com/openkcm/compliance-hub/internal/log"
)

const DBLogDomain = "db"

// StartDB opens the shared store of the process.
func StartDB(
	ctx context.Context,
	cfg *config.Config,
) (*multitenancy.DB, error) {
	log.Info(ctx, "Starting DB connection",
		slog.String("database", cfg.Database.Name),
		slog.Int("replicas", len(cfg.DatabaseReplicas)),
	)

	dbCon, err := StartDBConnection(ctx, cfg.Database, cfg.DatabaseReplicas)
	if err != nil {
		return nil, oops.In(DBLogDomain).Wrapf(err, "failed to initialize DB Connection")
	}

	return dbCon, nil
}
