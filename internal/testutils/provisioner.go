package testutils

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/openkcm/compliance-hub/internal/cache"
	"github.com/openkcm/compliance-hub/internal/db"
	"github.com/openkcm/compliance-hub/internal/manager"
	"github.com/openkcm/compliance-hub/internal/model"
	"github.com/openkcm/compliance-hub/internal/repo/sql"
	"github.com/openkcm/compliance-hub/internal/router"
	"github.com/openkcm/compliance-hub/utils/crypto"
)

// SchemaCall records one DDL request of FakeSchemas.
type SchemaCall struct {
	Kind string
	Name string
}

// FakeSchemas records schema and database creation instead of running DDL.
type FakeSchemas struct {
	mu    sync.Mutex
	Calls []SchemaCall
	Err   error
}

func (f *FakeSchemas) CreateSchema(_ context.Context, schema string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Calls = append(f.Calls, SchemaCall{Kind: "schema", Name: schema})

	return f.Err
}

func (f *FakeSchemas) CreateDatabase(_ context.Context, name, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Calls = append(f.Calls, SchemaCall{Kind: "database", Name: name})

	return f.Err
}

// FakeConnector hands out one in-memory store per tenant.
type FakeConnector struct {
	tb     testing.TB
	mu     sync.Mutex
	stores map[string]*gorm.DB
	Fail   map[string]error
}

func NewFakeConnector(tb testing.TB) *FakeConnector {
	tb.Helper()

	return &FakeConnector{tb: tb, stores: map[string]*gorm.DB{}, Fail: map[string]error{}}
}

func (f *FakeConnector) Open(_ context.Context, tenant *model.Tenant) (*gorm.DB, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.Fail[tenant.Slug]; ok {
		return nil, err
	}

	store, ok := f.stores[tenant.Slug]
	if !ok {
		store = NewMemoryDB(f.tb)
		f.stores[tenant.Slug] = store
	}

	return store, nil
}

// NewProvisioner wires the fakes into a provisioner that materializes
// tenant tables with goose first and AutoMigrate as fallback.
func NewProvisioner(tb testing.TB) (manager.Provisioner, *FakeSchemas, *FakeConnector) {
	tb.Helper()

	schemas := &FakeSchemas{}
	connector := NewFakeConnector(tb)

	return manager.Provisioner{
		Schemas:      schemas,
		Connector:    connector,
		Materializer: db.NewMaterializer(db.NewMigrationStrategy(nil), db.NewCreateTableStrategy()),
	}, schemas, connector
}

// NewManager builds a manager over shared with fake provisioning and
// returns the router it registers tenant stores in.
func NewManager(tb testing.TB, shared *gorm.DB, opts ...manager.TenantOption) (*manager.Manager, *router.Router) {
	tb.Helper()

	sealer, err := crypto.NewSealer(bytes.Repeat([]byte{7}, 32))
	require.NoError(tb, err)

	rt := NewRouter(tb, shared)
	provisioner, _, _ := NewProvisioner(tb)

	return manager.New(sql.NewRepository(rt), rt, provisioner, cache.NewLocal(time.Minute), sealer, opts...), rt
}
