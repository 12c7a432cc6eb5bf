package daemon

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
	"gorm.io/gorm"

	multitenancy "github.com/bartventer/gorm-multitenancy/v8"

	"github.com/openkcm/compliance-hub/internal/auditor"
	"github.com/openkcm/compliance-hub/internal/cache"
	"github.com/openkcm/compliance-hub/internal/config"
	"github.com/openkcm/compliance-hub/internal/db"
	"github.com/openkcm/compliance-hub/internal/handlers"
	"github.com/openkcm/compliance-hub/internal/log"
	"github.com/openkcm/compliance-hub/internal/manager"
	"github.com/openkcm/compliance-hub/internal/repo"
	"github.com/openkcm/compliance-hub/internal/repo/sql"
	"github.com/openkcm/compliance-hub/internal/router"
	"github.com/openkcm/compliance-hub/utils/crypto"
)

const RuntimeLogDomain = "runtime"

// Runtime is the set of services every process of the hub is built on.
type Runtime struct {
	Config   *config.Config
	Shared   *gorm.DB
	Tenancy  *multitenancy.DB
	Router   *router.Router
	Repo     repo.Repo
	Manager  *manager.Manager
	Migrator db.Migrator
	// Audit is nil when no audit collector is configured.
	Audit *auditor.Auditor
}

// NewRuntime opens the shared store and wires the managers on top of it.
// Tenant connections are not loaded; call LoadTenants for that.
func NewRuntime(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	dbCon, err := db.StartDB(ctx, cfg)
	if err != nil {
		return nil, oops.In(RuntimeLogDomain).Wrapf(err, "starting db")
	}

	return NewRuntimeFromDB(ctx, cfg, dbCon)
}

// NewRuntimeFromDB wires the managers on an already opened shared store.
func NewRuntimeFromDB(ctx context.Context, cfg *config.Config, dbCon *multitenancy.DB) (*Runtime, error) {
	sealer, err := crypto.NewSealerFromSourceRef(cfg.Tenancy.CredentialKey)
	if err != nil {
		return nil, oops.In(RuntimeLogDomain).Wrapf(err, "loading credential key")
	}

	tenantCache, err := cache.New(ctx, cfg.Cache)
	if err != nil {
		return nil, oops.In(RuntimeLogDomain).Wrapf(err, "creating tenant cache")
	}

	rt := router.New(router.NewRegistry())
	rt.RegisterShared(dbCon.DB)

	r := sql.NewRepository(rt)

	migrator, err := db.NewMigrator(r, cfg, sealer)
	if err != nil {
		return nil, oops.In(RuntimeLogDomain).Wrapf(err, "creating migrator")
	}

	provisioner := manager.Provisioner{
		Schemas:   db.NewSchemaManager(dbCon.DB, cfg.Database.OperatingRole),
		Connector: db.NewConnector(cfg.Database, sealer, cfg.Tenancy.Probe),
		Materializer: db.NewMaterializer(
			db.NewMigrationStrategy(migrator),
			db.NewCreateTableStrategy(),
		),
	}

	mgr := manager.New(r, rt, provisioner, tenantCache, sealer,
		manager.WithTrialDays(cfg.Tenancy.TrialDays),
	)

	var audit *auditor.Auditor
	if cfg.Audit.Endpoint != "" {
		audit = auditor.New(ctx, &cfg.Audit)
		mgr.Auditor.SetForwarder(audit)
	}

	log.Debug(ctx, "Runtime wired",
		slog.String("cache", string(cfg.Cache.Type)),
		slog.Int("trialDays", cfg.Tenancy.TrialDays),
	)

	return &Runtime{
		Config:   cfg,
		Shared:   dbCon.DB,
		Tenancy:  dbCon,
		Router:   rt,
		Repo:     r,
		Migrator: migrator,
		Manager:  mgr,
		Audit:    audit,
	}, nil
}

// LoadTenants registers the store of every live tenant with the router.
func (rt *Runtime) LoadTenants(ctx context.Context) (int, error) {
	return rt.Manager.Tenants.LoadAllTenantConnections(ctx)
}

// HealthChecks pings every connection the router knows.
func (rt *Runtime) HealthChecks() map[string]handlers.Check {
	registry := rt.Router.Registry()
	ids := registry.IDs()

	checks := make(map[string]handlers.Check, len(ids))

	for _, id := range ids {
		checks[id] = func(ctx context.Context) error {
			store, ok := registry.Lookup(id)
			if !ok {
				return router.ErrConnectionNotRegistered
			}

			sqlDB, err := store.DB()
			if err != nil {
				return err
			}

			return sqlDB.PingContext(ctx)
		}
	}

	return checks
}

// Close releases every connection the router holds.
func (rt *Runtime) Close(ctx context.Context) {
	registry := rt.Router.Registry()

	for _, id := range registry.IDs() {
		store, ok := registry.Unregister(id)
		if !ok {
			continue
		}

		err := db.Close(store)
		if err != nil {
			log.Error(ctx, "Failed to close connection", err, slog.String("connection", id))
		}
	}
}
