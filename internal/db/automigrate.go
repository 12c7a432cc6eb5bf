package db

import (
	"context"
	"errors"
	"fmt"

	multitenancy "github.com/bartventer/gorm-multitenancy/v8"
	"github.com/bartventer/gorm-multitenancy/v8/pkg/driver"

	"github.com/openkcm/compliance-hub/internal/errs"
	"github.com/openkcm/compliance-hub/internal/model"
)

var ErrAutoMigrate = errors.New("failed to auto migrate shared models")

// Tablers converts model lists to what the multitenancy registry accepts.
func Tablers(models []any) ([]driver.TenantTabler, error) {
	tablers := make([]driver.TenantTabler, 0, len(models))

	for _, m := range models {
		t, ok := m.(driver.TenantTabler)
		if !ok {
			return nil, errs.Wrapf(ErrAutoMigrate, fmt.Sprintf("model %T is not a tenant tabler", m))
		}

		tablers = append(tablers, t)
	}

	return tablers, nil
}

// AutoMigrateShared registers every catalog and tenant model and creates
// the catalog tables from their struct definitions. It bypasses goose and
// is meant for development stores.
func AutoMigrateShared(ctx context.Context, dbCon *multitenancy.DB) error {
	tablers, err := Tablers(append(model.SharedModels(), model.TenantModels()...))
	if err != nil {
		return err
	}

	err = dbCon.RegisterModels(ctx, tablers...)
	if err != nil {
		return errs.Wrap(ErrAutoMigrate, err)
	}

	err = dbCon.MigrateSharedModels(ctx)
	if err != nil {
		return errs.Wrap(ErrAutoMigrate, err)
	}

	return nil
}
