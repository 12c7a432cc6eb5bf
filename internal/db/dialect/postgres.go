package dialect

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	pg "github.com/bartventer/gorm-multitenancy/postgres/v8"
)

// NewFrom returns the gorm-multitenancy postgres dialector for dsn.
// PreferSimpleProtocol avoids prepared statement caching, which breaks once
// search_path points a pooled connection at another schema.
func NewFrom(dsn string) gorm.Dialector {
	return pg.New(pg.Config{
		Config: postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true,
		},
	})
}
