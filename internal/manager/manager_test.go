package manager_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/openkcm/compliance-hub/internal/cache"
	"github.com/openkcm/compliance-hub/internal/manager"
	"github.com/openkcm/compliance-hub/internal/model"
	"github.com/openkcm/compliance-hub/internal/repo/sql"
	"github.com/openkcm/compliance-hub/internal/router"
	"github.com/openkcm/compliance-hub/internal/testutils"
	"github.com/openkcm/compliance-hub/utils/crypto"
	hubcontext "github.com/openkcm/compliance-hub/utils/context"
)

var errDDL = errors.New("permission denied for database")

type testEnv struct {
	mgr       *manager.Manager
	shared    *gorm.DB
	router    *router.Router
	schemas   *testutils.FakeSchemas
	connector *testutils.FakeConnector
	plans     map[model.PlanCode]*model.SubscriptionPlan
	now       time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	shared := testutils.NewSharedStore(t)
	plans := testutils.SeedPlans(t, shared)
	rt := testutils.NewRouter(t, shared)

	sealer, err := crypto.NewSealer(bytes.Repeat([]byte{7}, 32))
	require.NoError(t, err)

	provisioner, schemas, connector := testutils.NewProvisioner(t)

	env := &testEnv{
		shared:    shared,
		router:    rt,
		schemas:   schemas,
		connector: connector,
		plans:     plans,
		now:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	env.mgr = manager.New(
		sql.NewRepository(rt),
		rt,
		provisioner,
		cache.NewLocal(time.Minute),
		sealer,
		manager.WithClock(func() time.Time { return env.now }),
	)

	return env
}

func (e *testEnv) createTenant(t *testing.T, slug string, plan model.PlanCode) *model.Tenant {
	t.Helper()

	tenant, err := e.mgr.Tenants.CreateTenant(t.Context(), manager.CreateTenantRequest{
		Slug:        slug,
		CompanyName: "Company " + slug,
		PlanCode:    plan,
	})
	require.NoError(t, err)

	return tenant
}

// store returns the registered tenant store of slug.
func (e *testEnv) store(t *testing.T, slug string) *gorm.DB {
	t.Helper()

	store, ok := e.router.Registry().Lookup(router.ConnectionID(slug))
	require.True(t, ok)

	return store
}

func (e *testEnv) reload(t *testing.T, slug string) *model.Tenant {
	t.Helper()

	tenant, err := e.mgr.Tenants.GetTenant(t.Context(), slug)
	require.NoError(t, err)

	return tenant
}

func tenantCtx(t *testing.T, slug string) context.Context {
	t.Helper()

	ctx, ok := hubcontext.Set(t.Context(), slug)
	require.True(t, ok)

	return ctx
}

var smallShape = testutils.FrameworkShape{
	Domains:       2,
	Categories:    2,
	Subcategories: 1,
	Controls:      2,
	Questions:     1,
	Evidence:      1,
}
