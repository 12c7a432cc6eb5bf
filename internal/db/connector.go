package db

import (
	"context"
	"errors"
	"log/slog"

	"github.com/avast/retry-go/v5"
	"gorm.io/gorm"

	"github.com/openkcm/compliance-hub/internal/config"
	"github.com/openkcm/compliance-hub/internal/db/dsn"
	"github.com/openkcm/compliance-hub/internal/errs"
	"github.com/openkcm/compliance-hub/internal/log"
	"github.com/openkcm/compliance-hub/internal/model"
	"github.com/openkcm/compliance-hub/utils/crypto"
)

var (
	ErrOpenTenantStore    = errors.New("failed to open tenant store")
	ErrProbeTenantStore   = errors.New("tenant store did not answer the connection probe")
	ErrDecryptCredentials = errors.New("failed to decrypt tenant credentials")
)

// Connector opens the store of a provisioned tenant.
type Connector interface {
	Open(ctx context.Context, tenant *model.Tenant) (*gorm.DB, error)
}

// PostgresConnector opens tenant stores on the configured postgres cluster.
type PostgresConnector struct {
	base   config.Database
	sealer crypto.Sealer
	probe  config.Probe
}

var _ Connector = (*PostgresConnector)(nil)

func NewConnector(base config.Database, sealer crypto.Sealer, probe config.Probe) *PostgresConnector {
	return &PostgresConnector{
		base:   base,
		sealer: sealer,
		probe:  probe,
	}
}

// Open connects to the tenant store and proves it answers before
// returning it. A store failing the probe is closed.
func (c *PostgresConnector) Open(ctx context.Context, tenant *model.Tenant) (*gorm.DB, error) {
	password := ""

	if tenant.IsolationMode == model.IsolationDatabase {
		plain, err := c.sealer.Open(tenant.DatabasePasswordEncrypted)
		if err != nil {
			return nil, errs.Wrap(ErrDecryptCredentials, err)
		}

		password = string(plain)
	}

	tenantDSN, err := dsn.ForTenant(c.base, tenant.ConnectionParams(), password)
	if err != nil {
		return nil, errs.Wrap(ErrOpenTenantStore, err)
	}

	store, err := OpenStore(tenantDSN)
	if err != nil {
		return nil, errs.Wrap(ErrOpenTenantStore, err)
	}

	err = Probe(ctx, store, c.probe)
	if err != nil {
		_ = Close(store)
		return nil, err
	}

	log.Info(ctx, "Opened tenant store",
		slog.String("tenant", tenant.Slug),
		slog.String("isolationMode", string(tenant.IsolationMode)),
	)

	return store, nil
}

// Probe runs SELECT 1 against store until it succeeds or the attempts run out.
func Probe(ctx context.Context, store *gorm.DB, cfg config.Probe) error {
	attempts := cfg.Attempts
	if attempts == 0 {
		attempts = 1
	}

	retrier := retry.New(
		retry.RetryIf(func(error) bool {
			return ctx.Err() == nil
		}),
		retry.Delay(cfg.Delay),
		retry.DelayType(retry.BackOffDelay),
		retry.Attempts(attempts),
		retry.LastErrorOnly(true),
	)

	err := retrier.Do(func() error {
		probeCtx := ctx

		if cfg.Timeout > 0 {
			var cancel context.CancelFunc

			probeCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
			defer cancel()
		}

		var one int

		return store.WithContext(probeCtx).Raw("SELECT 1").Scan(&one).Error
	})
	if err != nil {
		return errs.Wrap(ErrProbeTenantStore, err)
	}

	return nil
}
