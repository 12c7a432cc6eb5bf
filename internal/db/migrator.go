package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"
	"github.com/pressly/goose/v3"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the pgx driver goose opens postgres with

	"github.com/openkcm/compliance-hub/internal/config"
	"github.com/openkcm/compliance-hub/internal/db/dsn"
	"github.com/openkcm/compliance-hub/internal/errs"
	"github.com/openkcm/compliance-hub/internal/log"
	"github.com/openkcm/compliance-hub/internal/model"
	"github.com/openkcm/compliance-hub/internal/repo"
	"github.com/openkcm/compliance-hub/utils/crypto"
)

type (
	MigrationType   string
	MigrationTarget string
	migrateFunc     func(ctx context.Context, db *sql.DB, dir string) error
)

const (
	DataMigrationTable                   = "goose_db_data_version"
	SchemaMigrationTable                 = "goose_db_schema_version"
	SharedSchema                         = "public"
	SchemaMigration      MigrationType   = "schema"
	DataMigration        MigrationType   = "data"
	SharedTarget         MigrationTarget = "shared"
	TenantTarget         MigrationTarget = "tenant"
	AllTarget            MigrationTarget = "all"
)

var (
	ErrUnsupportedMigration = errors.New("unsupported migration")
	ErrNoMigrationDir       = errors.New("no migration directory configured")
)

type migrator struct {
	r      repo.Repo
	dsn    string
	cfg    *config.Config
	sealer crypto.Sealer
}

type Migration struct {
	Downgrade bool
	Type      MigrationType
	Target    MigrationTarget
}

type Migrator interface {
	MigrateTenantToLatest(ctx context.Context, tenant *model.Tenant) error
	MigrateToLatest(ctx context.Context, migration Migration) error
	MigrateTo(ctx context.Context, migration Migration, version int64) error
}

// NewMigrator builds a goose migrator. r must reach the shared store, it
// lists the tenants of a TenantTarget run. sealer opens the credentials of
// DATABASE tenants and may be nil when only SCHEMA tenants exist.
func NewMigrator(r repo.Repo, cfg *config.Config, sealer crypto.Sealer) (Migrator, error) {
	dsn, err := dsn.FromDBConfig(cfg.Database)
	if err != nil {
		return nil, err
	}

	return &migrator{
		r:      r,
		dsn:    dsn,
		cfg:    cfg,
		sealer: sealer,
	}, nil
}

// MigrateToLatest runs migrations onto the latest version
// For migrations with Downgrade false, it runs all migrations up to and including the latest version
// For migrations with Downgrade true, it downgrades the latest version
func (m *migrator) MigrateToLatest(
	ctx context.Context,
	migration Migration,
) error {
	return m.migrate(ctx, migration, func(ctx context.Context, db *sql.DB, dir string) error {
		if migration.Downgrade {
			return goose.DownContext(ctx, db, dir)
		}
		return goose.UpContext(ctx, db, dir)
	})
}

// MigrateTo runs migrations up-to a specific version
// For migrations with Downgrade false, it migrates up to the specified version
// For migrations with Downgrade true, it downgrades until the DB is the specified version
func (m *migrator) MigrateTo(
	ctx context.Context,
	migration Migration,
	version int64,
) error {
	return m.migrate(ctx, migration, func(ctx context.Context, db *sql.DB, dir string) error {
		if migration.Downgrade {
			return goose.DownToContext(ctx, db, dir, version)
		}
		return goose.UpToContext(ctx, db, dir, version)
	})
}

// MigrateTenantToLatest brings one tenant store to the latest schema version.
// It is used while provisioning, before the tenant is listed as ACTIVE.
func (m *migrator) MigrateTenantToLatest(ctx context.Context, tenant *model.Tenant) error {
	mig := Migration{
		Type:   SchemaMigration,
		Target: TenantTarget,
	}

	return m.migrateTenant(ctx, mig, tenant, func(ctx context.Context, db *sql.DB, dir string) error {
		return goose.UpContext(ctx, db, dir)
	})
}

func (m *migrator) migrate(
	ctx context.Context,
	migration Migration,
	f migrateFunc,
) error {
	switch migration.Target {
	case SharedTarget:
		return m.runMigration(ctx, migration, m.dsn, SharedSchema, f)
	case TenantTarget:
		return m.migrateTenants(ctx, migration, f)
	case AllTarget:
		mig := migration
		mig.Target = SharedTarget

		err := m.runMigration(ctx, mig, m.dsn, SharedSchema, f)
		if err != nil {
			return err
		}

		mig.Target = TenantTarget

		return m.migrateTenants(ctx, mig, f)
	default:
		return ErrUnsupportedMigration
	}
}

// migrateTenants walks every tenant whose store has been provisioned.
func (m *migrator) migrateTenants(
	ctx context.Context,
	migration Migration,
	f migrateFunc,
) error {
	query := repo.NewQuery().
		Where(repo.NewCompositeKeyGroup(repo.NewCompositeKey().
			Where(repo.ProvisioningStatusField, model.ProvisioningActive))).
		Order(repo.OrderField{Field: repo.CreatedField, Direction: repo.Asc})

	return repo.ProcessInBatch(ctx, m.r, query, repo.DefaultLimit, func(tenants []*model.Tenant) error {
		for _, t := range tenants {
			err := m.migrateTenant(ctx, migration, t, f)
			if err != nil {
				return errs.Wrapf(err, t.Slug)
			}
		}
		return nil
	})
}

func (m *migrator) migrateTenant(
	ctx context.Context,
	migration Migration,
	t *model.Tenant,
	f migrateFunc,
) error {
	if t.IsolationMode == model.IsolationDatabase {
		tenantDSN, err := m.databaseTenantDSN(t)
		if err != nil {
			return err
		}

		return m.runMigration(ctx, migration, tenantDSN, SharedSchema, f)
	}

	return m.runMigration(ctx, migration, m.dsn, t.SchemaName, func(ctx context.Context, db *sql.DB, dir string) error {
		_, err := db.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+pq.QuoteIdentifier(t.SchemaName))
		if err != nil {
			return err
		}
		return f(ctx, db, dir)
	})
}

func (m *migrator) databaseTenantDSN(t *model.Tenant) (string, error) {
	if m.sealer == nil {
		return "", ErrDecryptCredentials
	}

	plain, err := m.sealer.Open(t.DatabasePasswordEncrypted)
	if err != nil {
		return "", errs.Wrap(ErrDecryptCredentials, err)
	}

	return dsn.ForTenant(m.cfg.Database, t.ConnectionParams(), string(plain))
}

func (m *migrator) runMigration(
	ctx context.Context,
	migration Migration,
	baseDSN string,
	schema string,
	f migrateFunc,
) error {
	dir, err := m.getMigrationDir(migration)
	if err != nil {
		return err
	}

	if dir == "" {
		return errs.Wrapf(ErrNoMigrationDir, fmt.Sprintf("%s/%s", migration.Type, migration.Target))
	}

	dbCon, err := newSchemaDBCon(migration, baseDSN, schema)
	if err != nil {
		return err
	}
	defer dbCon.Close()

	log.Debug(ctx, "Running migrations",
		slog.String("schema", schema),
		slog.String("type", string(migration.Type)),
		slog.Bool("downgrade", migration.Downgrade),
	)

	return f(ctx, dbCon, dir)
}

// newSchemaDBCon opens a connection whose search_path and goose version
// table both point at schema.
func newSchemaDBCon(
	migration Migration,
	baseDSN string,
	schema string,
) (*sql.DB, error) {
	var table string

	switch migration.Type {
	case DataMigration:
		table = DataMigrationTable
	case SchemaMigration:
		table = SchemaMigrationTable
	default:
		return nil, ErrUnsupportedMigration
	}

	quoted := pq.QuoteIdentifier(schema)

	db, err := goose.OpenDBWithDriver(string(goose.DialectPostgres), fmt.Sprintf("%s search_path=%s", baseDSN, quoted))
	if err != nil {
		return nil, err
	}

	goose.SetTableName(fmt.Sprintf("%s.%s", quoted, table))

	return db, nil
}

func (m *migrator) getMigrationDir(mig Migration) (string, error) {
	switch {
	case mig.Type == SchemaMigration && mig.Target == SharedTarget:
		return m.cfg.Database.Migrator.Shared.Schema, nil
	case mig.Type == SchemaMigration && mig.Target == TenantTarget:
		return m.cfg.Database.Migrator.Tenant.Schema, nil
	case mig.Type == DataMigration && mig.Target == SharedTarget:
		return m.cfg.Database.Migrator.Shared.Data, nil
	case mig.Type == DataMigration && mig.Target == TenantTarget:
		return m.cfg.Database.Migrator.Tenant.Data, nil
	default:
		return "", ErrUnsupportedMigration
	}
}
