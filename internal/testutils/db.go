package testutils

import (
	"regexp"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/openkcm/compliance-hub/internal/config"
	"github.com/openkcm/compliance-hub/internal/model"
	"github.com/openkcm/compliance-hub/internal/router"
)

var TestDB = config.Database{
	Host: commoncfg.SourceRef{
		Source: commoncfg.EmbeddedSourceValue,
		Value:  "localhost",
	},
	User: commoncfg.SourceRef{
		Source: commoncfg.EmbeddedSourceValue,
		Value:  "postgres",
	},
	Secret: commoncfg.SourceRef{
		Source: commoncfg.EmbeddedSourceValue,
		Value:  "secret",
	},
	Name:          "compliance_hub",
	Port:          "5433",
	OperatingRole: "postgres",
}

var nonIdentChars = regexp.MustCompile(`[^a-z0-9_]+`)

// NewMemoryDB opens a private in-memory store migrated with models.
// The store lives as long as the test.
func NewMemoryDB(tb testing.TB, models ...any) *gorm.DB {
	tb.Helper()

	name := nonIdentChars.ReplaceAllString(strings.ToLower(tb.Name()), "_") + "_" + uuid.NewString()

	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(tb, err)

	sqlDB, err := db.DB()
	require.NoError(tb, err)

	// One connection keeps the shared cache database alive and free of
	// table lock contention.
	sqlDB.SetMaxOpenConns(1)

	tb.Cleanup(func() {
		_ = sqlDB.Close()
	})

	if len(models) > 0 {
		require.NoError(tb, db.AutoMigrate(models...))
	}

	return db
}

// NewSharedStore returns a store holding the system catalog tables.
func NewSharedStore(tb testing.TB) *gorm.DB {
	tb.Helper()

	return NewMemoryDB(tb, model.SharedModels()...)
}

// NewTenantStore returns a store holding the company compliance tables.
func NewTenantStore(tb testing.TB) *gorm.DB {
	tb.Helper()

	return NewMemoryDB(tb, model.TenantModels()...)
}

// NewRouter returns a router with an isolated registry and shared registered.
func NewRouter(tb testing.TB, shared *gorm.DB) *router.Router {
	tb.Helper()

	r := router.New(router.NewRegistry())
	r.RegisterShared(shared)

	return r
}
