package db

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"gorm.io/gorm"

	"github.com/openkcm/compliance-hub/internal/errs"
	"github.com/openkcm/compliance-hub/internal/log"
	"github.com/openkcm/compliance-hub/internal/metrics"
	"github.com/openkcm/compliance-hub/internal/model"
	"github.com/openkcm/compliance-hub/internal/repo/violations"
)

const (
	StrategyMigration         = "migration"
	StrategyForcedCreateTable = "forced_create_table"
)

var (
	ErrMaterialize       = errors.New("failed to materialize tenant tables")
	ErrNoStrategies      = errors.New("no materialization strategy configured")
	ErrCreateTenantTable = errors.New("failed to create tenant table")
)

// MaterializeStrategy creates the tenant scoped tables in a freshly
// opened tenant store.
type MaterializeStrategy interface {
	Name() string
	Materialize(ctx context.Context, tenant *model.Tenant, store *gorm.DB) error
}

// Materializer tries its strategies in order and stops at the first success.
type Materializer struct {
	strategies []MaterializeStrategy
}

func NewMaterializer(strategies ...MaterializeStrategy) *Materializer {
	return &Materializer{strategies: strategies}
}

// Run returns the name of the strategy that materialized the store.
func (m *Materializer) Run(ctx context.Context, tenant *model.Tenant, store *gorm.DB) (string, error) {
	if len(m.strategies) == 0 {
		return "", ErrNoStrategies
	}

	var failures []error

	for _, s := range m.strategies {
		err := s.Materialize(ctx, tenant, store)
		if err == nil {
			log.Info(ctx, "Materialized tenant tables",
				slog.String("tenant", tenant.Slug),
				slog.String("strategy", s.Name()),
			)
			metrics.ProvisioningOutcomes.WithLabelValues(metrics.OutcomeSuccess, s.Name()).Inc()

			return s.Name(), nil
		}

		log.Warn(ctx, "Materialization strategy failed",
			slog.String("tenant", tenant.Slug),
			slog.String("strategy", s.Name()),
			log.ErrorAttr(err),
		)
		metrics.ProvisioningOutcomes.WithLabelValues(metrics.OutcomeFailure, s.Name()).Inc()

		failures = append(failures, errs.Wrapf(err, s.Name()))
	}

	return "", errs.Wrap(ErrMaterialize, errors.Join(failures...))
}

// MigrationStrategy applies the goose tenant migrations.
type MigrationStrategy struct {
	migrator Migrator
}

func NewMigrationStrategy(migrator Migrator) *MigrationStrategy {
	return &MigrationStrategy{migrator: migrator}
}

func (*MigrationStrategy) Name() string { return StrategyMigration }

func (s *MigrationStrategy) Materialize(ctx context.Context, tenant *model.Tenant, _ *gorm.DB) error {
	if s.migrator == nil {
		return ErrUnsupportedMigration
	}

	return s.migrator.MigrateTenantToLatest(ctx, tenant)
}

// CreateTableStrategy creates every tenant model with the gorm migrator.
// Tables already present are left as they are.
type CreateTableStrategy struct {
	models []any
}

func NewCreateTableStrategy() *CreateTableStrategy {
	return &CreateTableStrategy{models: model.TenantModels()}
}

func (*CreateTableStrategy) Name() string { return StrategyForcedCreateTable }

func (s *CreateTableStrategy) Materialize(ctx context.Context, _ *model.Tenant, store *gorm.DB) error {
	migrator := store.WithContext(ctx).Migrator()

	for _, m := range s.models {
		if migrator.HasTable(m) {
			continue
		}

		err := migrator.CreateTable(m)
		if err != nil && !isAlreadyExists(err) {
			return errs.Wrap(ErrCreateTenantTable, err)
		}
	}

	return nil
}

func isAlreadyExists(err error) bool {
	return violations.IsAlreadyExists(err) || strings.Contains(strings.ToLower(err.Error()), "already exists")
}
