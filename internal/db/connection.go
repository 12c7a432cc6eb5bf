package db

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/plugin/dbresolver"

	multitenancy "github.com/bartventer/gorm-multitenancy/v8"

	"github.com/openkcm/compliance-hub/internal/config"
	"github.com/openkcm/compliance-hub/internal/db/dialect"
	"github.com/openkcm/compliance-hub/internal/db/dsn"
	"github.com/openkcm/compliance-hub/internal/errs"
)

var (
	ErrStartingDBCon            = errors.New("error starting db connection")
	ErrDBResolver               = errors.New("error starting db resolver")
	ErrLoadingDsnFromDBConfig   = errors.New("error loading dsn from db config")
	ErrLoadingReplicaDialectors = errors.New("error loading replica dialectors")
)

// StartDBConnection opens the shared store using data from `config.Database`.
// Replicas, when given, serve reads through dbresolver.
func StartDBConnection(
	ctx context.Context,
	conf config.Database,
	replicas []config.Database,
) (*multitenancy.DB, error) {
	return StartDBConnectionPlugins(ctx, conf, replicas, map[string]gorm.Plugin{})
}

// StartDBConnectionPlugins opens DB connection using data from `config.DB`
// and plugins that are passed in a form of map because GORM config stores
// them this way.
// It is an extension of `StartDBConnection` functionality.
func StartDBConnectionPlugins(
	ctx context.Context,
	conf config.Database,
	replicas []config.Database,
	plugins map[string]gorm.Plugin,
) (*multitenancy.DB, error) {
	dsnFromConfig, err := dsn.FromDBConfig(conf)
	if err != nil {
		return nil, errs.Wrap(ErrLoadingDsnFromDBConfig, err)
	}

	dialector := dialect.NewFrom(dsnFromConfig)

	db, err := multitenancy.Open(dialector, &gorm.Config{
		Plugins:        plugins,
		TranslateError: true,
	})
	if err != nil {
		return nil, errs.Wrap(ErrStartingDBCon, err)
	}

	db = db.WithContext(ctx)

	err = useReplicas(db.DB, dialector, replicas)
	if err != nil {
		return nil, err
	}

	return db, nil
}

// OpenStore opens a plain gorm store for a tenant DSN.
func OpenStore(tenantDSN string) (*gorm.DB, error) {
	db, err := gorm.Open(dialect.NewFrom(tenantDSN), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		return nil, errs.Wrap(ErrStartingDBCon, err)
	}

	return db, nil
}

// Close releases the pool behind db.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

func useReplicas(db *gorm.DB, source gorm.Dialector, replicas []config.Database) error {
	if len(replicas) == 0 {
		return nil
	}

	replicaDialectorsFromReplicas, err := replicaDialectors(replicas)
	if err != nil {
		return errs.Wrap(ErrLoadingReplicaDialectors, err)
	}

	err = db.Use(dbresolver.Register(dbresolver.Config{
		Sources:  []gorm.Dialector{source},
		Replicas: replicaDialectorsFromReplicas,
		Policy:   dbresolver.RandomPolicy{},
	}))
	if err != nil {
		return errs.Wrap(ErrDBResolver, err)
	}

	return nil
}

func replicaDialectors(replicas []config.Database) ([]gorm.Dialector, error) {
	dialects := make([]gorm.Dialector, 0, len(replicas))

	for _, r := range replicas {
		dsnFromConfig, err := dsn.FromDBConfig(r)
		if err != nil {
			return nil, errs.Wrap(ErrLoadingDsnFromDBConfig, err)
		}

		dialects = append(dialects, dialect.NewFrom(dsnFromConfig))
	}

	return dialects, nil
}
