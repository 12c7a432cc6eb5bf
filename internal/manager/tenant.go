package manager

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openkcm/compliance-hub/internal/cache"
	"github.com/openkcm/compliance-hub/internal/constants"
	"github.com/openkcm/compliance-hub/internal/db"
	"github.com/openkcm/compliance-hub/internal/errs"
	"github.com/openkcm/compliance-hub/internal/log"
	"github.com/openkcm/compliance-hub/internal/model"
	"github.com/openkcm/compliance-hub/internal/repo"
	"github.com/openkcm/compliance-hub/internal/router"
	"github.com/openkcm/compliance-hub/internal/workflow"
	"github.com/openkcm/compliance-hub/utils/crypto"
)

const userSuffix = "_user"

type CreateTenantRequest struct {
	Slug         string
	CompanyName  string
	CompanyEmail string
	PlanCode     model.PlanCode
	// Trial activates the tenant in TRIAL instead of ACTIVE.
	Trial bool
}

// Provisioner bundles the steps that give a tenant a working store.
type Provisioner struct {
	Schemas      db.SchemaManager
	Connector    db.Connector
	Materializer *db.Materializer
}

// ActivationResult reports a payment gated activation. Stats is nil when
// no framework was distributed.
type ActivationResult struct {
	Tenant *model.Tenant
	Stats  *DistributionStats
}

type ListTenantsFilter struct {
	SubscriptionStatus model.SubscriptionStatus
	Skip               int
	Top                int
}

type TenantOption func(*TenantManager)

func WithTrialDays(days int) TenantOption {
	return func(m *TenantManager) {
		if days > 0 {
			m.trialDays = days
		}
	}
}

func WithClock(now func() time.Time) TenantOption {
	return func(m *TenantManager) {
		m.now = now
	}
}

type TenantManager struct {
	repo         repo.Repo
	router       *router.Router
	provisioner  Provisioner
	cache        cache.TenantInfoCache
	sealer       crypto.Sealer
	auditor      *Auditor
	distribution *DistributionManager

	trialDays int
	now       func() time.Time
}

func NewTenantManager(
	r repo.Repo,
	rt *router.Router,
	provisioner Provisioner,
	tenantCache cache.TenantInfoCache,
	sealer crypto.Sealer,
	auditor *Auditor,
	distribution *DistributionManager,
	opts ...TenantOption,
) *TenantManager {
	m := &TenantManager{
		repo:         r,
		router:       rt,
		provisioner:  provisioner,
		cache:        tenantCache,
		sealer:       sealer,
		auditor:      auditor,
		distribution: distribution,
		trialDays:    constants.DefaultTrialDays,
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// CreateTenant registers a tenant and provisions its store right away.
// A provisioning failure leaves the tenant FAILED with the cause recorded.
func (m *TenantManager) CreateTenant(ctx context.Context, req CreateTenantRequest) (*model.Tenant, error) {
	tenant, err := m.register(ctx, req, false)
	if err != nil {
		return nil, err
	}

	err = m.provision(ctx, tenant, workflow.EventProvision, req.Trial)
	if err != nil {
		return nil, err
	}

	m.auditor.Record(ctx, model.AuditCreateTenant, tenant.Slug, map[string]any{
		"plan":          req.PlanCode,
		"isolationMode": tenant.IsolationMode,
		"trial":         req.Trial,
	})

	return tenant, nil
}

// CreatePendingTenant records a tenant awaiting payment. No DDL runs.
func (m *TenantManager) CreatePendingTenant(ctx context.Context, req CreateTenantRequest) (*model.Tenant, error) {
	tenant, err := m.register(ctx, req, true)
	if err != nil {
		return nil, err
	}

	m.auditor.Record(ctx, model.AuditCreateTenant, tenant.Slug, map[string]any{
		"plan":    req.PlanCode,
		"pending": true,
	})

	return tenant, nil
}

// ActivateTenant provisions a PENDING_PAYMENT tenant and distributes its
// first framework. A zero frameworkID skips the distribution. The tenant
// stays ACTIVE when only the distribution fails. An activation that failed
// may be run again; the schema steps are idempotent.
func (m *TenantManager) ActivateTenant(
	ctx context.Context,
	slug string,
	frameworkID uuid.UUID,
	level model.CustomizationLevel,
) (*ActivationResult, error) {
	tenant, err := m.GetTenant(ctx, slug)
	if err != nil {
		return nil, err
	}

	if tenant.SubscriptionStatus != model.SubscriptionPendingPayment {
		return nil, errs.Wrapf(ErrTenantState, "tenant is "+string(tenant.SubscriptionStatus)+", not PENDING_PAYMENT")
	}

	err = m.provision(ctx, tenant, workflow.EventActivatePayment, false)
	if err != nil {
		return nil, err
	}

	m.auditor.Record(ctx, model.AuditActivateTenant, slug, map[string]any{
		"frameworkId": frameworkID.String(),
	})

	result := &ActivationResult{Tenant: tenant}

	if frameworkID == uuid.Nil || m.distribution == nil {
		return result, nil
	}

	if level == "" && tenant.Plan != nil {
		level = tenant.Plan.DefaultCustomizationLevel
	}

	stats, err := m.distribution.Distribute(ctx, slug, frameworkID, level)
	if err != nil {
		return result, errs.Wrap(ErrDistributionFailed, err)
	}

	result.Stats = stats

	reloaded, err := m.GetTenant(ctx, slug)
	if err == nil {
		result.Tenant = reloaded
	}

	return result, nil
}

// DeletePendingTenant soft deletes a tenant whose store was never provisioned.
func (m *TenantManager) DeletePendingTenant(ctx context.Context, slug string) error {
	tenant, err := m.GetTenant(ctx, slug)
	if err != nil {
		return err
	}

	if tenant.ProvisioningStatus.HasStarted() || tenant.SubscriptionStatus == model.SubscriptionDeleted {
		return errs.Wrapf(ErrTenantState, "tenant is not pending, provisioning is "+string(tenant.ProvisioningStatus))
	}

	_, err = m.transition(ctx, tenant, workflow.EventDelete, nil)
	if err != nil {
		return err
	}

	m.auditor.Record(ctx, model.AuditDeleteTenant, slug, map[string]any{"pending": true})

	return nil
}

func (m *TenantManager) SuspendTenant(ctx context.Context, slug, reason string) error {
	return m.lifecycleOp(ctx, slug, workflow.EventSuspend, model.AuditSuspendTenant, map[string]any{"reason": reason})
}

func (m *TenantManager) ResumeTenant(ctx context.Context, slug string) error {
	return m.lifecycleOp(ctx, slug, workflow.EventResume, model.AuditResumeTenant, nil)
}

func (m *TenantManager) CancelTenant(ctx context.Context, slug, reason string) error {
	return m.lifecycleOp(ctx, slug, workflow.EventCancel, model.AuditCancelTenant, map[string]any{"reason": reason})
}

// DeleteTenant soft deletes the tenant and drops its store from the router.
// The schema or database itself is kept.
func (m *TenantManager) DeleteTenant(ctx context.Context, slug string) error {
	err := m.lifecycleOp(ctx, slug, workflow.EventDelete, model.AuditDeleteTenant, nil)
	if err != nil {
		return err
	}

	store, ok := m.router.UnregisterTenant(slug)
	if ok {
		err = db.Close(store)
		if err != nil {
			log.Warn(ctx, "Failed to close tenant store", slog.String("tenant", slug), log.ErrorAttr(err))
		}
	}

	return nil
}

// ExpireTrials moves every TRIAL tenant past its end date to EXPIRED and
// returns how many were expired. A failing tenant does not stop the run.
func (m *TenantManager) ExpireTrials(ctx context.Context) (int, error) {
	now := m.now().UTC()

	query := repo.NewQuery().
		Where(repo.NewCompositeKeyGroup(repo.NewCompositeKey().
			Where(repo.SubscriptionStatusField, model.SubscriptionTrial).
			Where(repo.TrialEndsAtField, now, repo.Lt))).
		Order(repo.OrderField{Field: repo.CreatedField, Direction: repo.Asc})

	var due []*model.Tenant

	err := repo.ProcessInBatch(ctx, m.repo, query, repo.DefaultLimit, func(tenants []*model.Tenant) error {
		due = append(due, tenants...)
		return nil
	})
	if err != nil {
		return 0, errs.Wrap(ErrListTenants, err)
	}

	expired := 0

	for _, t := range due {
		_, err = m.transition(ctx, t, workflow.EventExpire, nil)
		if err != nil {
			log.Error(ctx, "Failed to expire trial", err, slog.String("tenant", t.Slug))
			continue
		}

		expired++

		log.Info(ctx, "Trial expired", slog.String("tenant", t.Slug))
	}

	return expired, nil
}

// LoadAllTenantConnections registers the store of every live tenant and
// returns how many were registered. Tenants whose store cannot be opened
// are logged and skipped.
func (m *TenantManager) LoadAllTenantConnections(ctx context.Context) (int, error) {
	query := repo.NewQuery().
		Where(repo.NewCompositeKeyGroup(repo.NewCompositeKey().
			Where(repo.ProvisioningStatusField, model.ProvisioningActive).
			Where(repo.SubscriptionStatusField, []model.SubscriptionStatus{
				model.SubscriptionActive, model.SubscriptionTrial,
			}))).
		Order(repo.OrderField{Field: repo.CreatedField, Direction: repo.Asc})

	loaded := 0

	err := repo.ProcessInBatch(ctx, m.repo, query, repo.DefaultLimit, func(tenants []*model.Tenant) error {
		for _, t := range tenants {
			store, err := m.provisioner.Connector.Open(ctx, t)
			if err != nil {
				log.Error(ctx, "Failed to load tenant connection", errs.Wrap(ErrLoadTenantConnection, err),
					slog.String("tenant", t.Slug))

				continue
			}

			m.registerStore(ctx, t.Slug, store)

			loaded++
		}

		return nil
	})
	if err != nil {
		return loaded, errs.Wrap(ErrListTenants, err)
	}

	log.Info(ctx, "Loaded tenant connections", slog.Int("count", loaded))

	return loaded, nil
}

// ProvisionSchemaIdempotent runs the schema, connection and table steps
// again for slug. Running it on a provisioned tenant changes nothing.
func (m *TenantManager) ProvisionSchemaIdempotent(ctx context.Context, slug string) error {
	tenant, err := m.GetTenant(ctx, slug)
	if err != nil {
		return err
	}

	if tenant.SubscriptionStatus == model.SubscriptionDeleted {
		return errs.Wrapf(ErrTenantState, "tenant is deleted")
	}

	return m.materializeStore(ctx, tenant)
}

// GetTenantInfo returns the cached projection of slug, loading it on a miss.
func (m *TenantManager) GetTenantInfo(ctx context.Context, slug string) (*model.TenantInfo, error) {
	info, ok := m.cache.Get(ctx, slug)
	if ok {
		return info, nil
	}

	tenant, err := repo.GetTenantBySlug(ctx, m.repo, slug)
	if err != nil {
		return nil, err
	}

	info = tenant.Info()
	m.cache.Set(ctx, info)

	return info, nil
}

func (m *TenantManager) GetTenant(ctx context.Context, slug string) (*model.Tenant, error) {
	return repo.GetTenantBySlug(ctx, m.repo, slug)
}

func (m *TenantManager) ListTenants(ctx context.Context, filter ListTenantsFilter) ([]*model.Tenant, int, error) {
	var tenants []*model.Tenant

	top := filter.Top
	if top <= 0 {
		top = constants.DefaultTop
	}

	query := repo.NewQuery().
		Preload(repo.Preload{repo.PlanAssociation}).
		Order(repo.OrderField{Field: repo.SlugField, Direction: repo.Asc}).
		SetLimit(top).
		SetOffset(filter.Skip)

	if filter.SubscriptionStatus != "" {
		query = query.Where(repo.NewCompositeKeyGroup(
			repo.NewCompositeKey().Where(repo.SubscriptionStatusField, filter.SubscriptionStatus)))
	}

	count, err := m.repo.List(ctx, model.Tenant{}, &tenants, *query)
	if err != nil {
		return nil, 0, errs.Wrap(ErrListTenants, err)
	}

	return tenants, count, nil
}

// register validates req and stores the tenant record with its isolation
// identity and sealed credentials.
func (m *TenantManager) register(ctx context.Context, req CreateTenantRequest, pendingPayment bool) (*model.Tenant, error) {
	err := model.ValidateSlug(req.Slug)
	if err != nil {
		return nil, err
	}

	companyName := strings.TrimSpace(req.CompanyName)

	err = model.ValidateCompanyName(companyName)
	if err != nil {
		return nil, err
	}

	if req.PlanCode == "" {
		req.PlanCode = model.PlanBasic
	}

	plan, err := repo.GetPlanByCode(ctx, m.repo, req.PlanCode)
	if err != nil {
		return nil, err
	}

	_, err = repo.GetTenantBySlug(ctx, m.repo, req.Slug)
	switch {
	case err == nil:
		return nil, errs.Wrapf(ErrTenantExists, req.Slug)
	case !errors.Is(err, repo.ErrTenantNotFound):
		return nil, errs.Wrap(ErrCreatingTenant, err)
	}

	tenant, err := m.newTenantRecord(req, companyName, plan, pendingPayment)
	if err != nil {
		return nil, errs.Wrap(ErrCreatingTenant, err)
	}

	err = m.repo.Create(ctx, tenant)
	if err != nil {
		if errors.Is(err, repo.ErrUniqueConstraint) {
			return nil, errs.Wrap(ErrTenantExists, err)
		}

		return nil, errs.Wrap(ErrCreatingTenant, err)
	}

	m.cache.Invalidate(ctx, tenant.Slug)

	log.Info(ctx, "Tenant registered",
		slog.String("tenant", tenant.Slug),
		slog.String("plan", string(plan.Code)),
		slog.String("isolationMode", string(tenant.IsolationMode)),
		slog.String("subscriptionStatus", string(tenant.SubscriptionStatus)),
	)

	return tenant, nil
}

func (m *TenantManager) newTenantRecord(
	req CreateTenantRequest,
	companyName string,
	plan *model.SubscriptionPlan,
	pendingPayment bool,
) (*model.Tenant, error) {
	schema, err := model.SchemaNameForSlug(req.Slug)
	if err != nil {
		return nil, err
	}

	_, sealed, err := crypto.GenerateCredential(m.sealer)
	if err != nil {
		return nil, err
	}

	mode := model.IsolationSchema
	if plan.DefaultIsolationMode == model.IsolationDatabase {
		mode = model.IsolationDatabase
	}

	status := model.SubscriptionActive

	switch {
	case pendingPayment:
		status = model.SubscriptionPendingPayment
	case req.Trial:
		status = model.SubscriptionTrial
	}

	tenant := &model.Tenant{
		Slug:                      req.Slug,
		CompanyName:               companyName,
		CompanyEmail:              strings.TrimSpace(req.CompanyEmail),
		PlanID:                    plan.ID,
		IsolationMode:             mode,
		DatabaseUser:              strings.TrimSuffix(schema, "_schema") + userSuffix,
		DatabasePasswordEncrypted: sealed,
		SubscriptionStatus:        status,
		ProvisioningStatus:        model.ProvisioningPending,
	}
	tenant.SchemaName = schema

	if mode == model.IsolationDatabase {
		tenant.DatabaseName = schema
	}

	return tenant, nil
}

// provision moves tenant through PROVISIONING to ACTIVE or TRIAL. start is
// the event leaving the pending state.
func (m *TenantManager) provision(ctx context.Context, tenant *model.Tenant, start workflow.Event, trial bool) error {
	_, err := m.transition(ctx, tenant, start, nil)
	if err != nil {
		return err
	}

	err = m.materializeStore(ctx, tenant)
	if err != nil {
		return m.failProvisioning(ctx, tenant, err)
	}

	now := m.now().UTC()
	done := workflow.EventComplete
	values := map[string]any{"provisioned_at": now}

	if trial {
		done = workflow.EventCompleteTrial
		values["trial_ends_at"] = now.AddDate(0, 0, m.trialDays)
	}

	if tenant.ActivatedAt == nil {
		values["activated_at"] = now
	}

	_, err = m.transition(ctx, tenant, done, values)
	if err != nil {
		return m.failProvisioning(ctx, tenant, err)
	}

	log.Info(ctx, "Tenant provisioned",
		slog.String("tenant", tenant.Slug),
		slog.String("subscriptionStatus", string(tenant.SubscriptionStatus)),
	)

	return nil
}

// materializeStore creates the schema or database, opens the store, creates
// the tenant tables and registers the store with the router.
func (m *TenantManager) materializeStore(ctx context.Context, tenant *model.Tenant) error {
	var err error

	switch tenant.IsolationMode {
	case model.IsolationDatabase:
		var password []byte

		password, err = m.sealer.Open(tenant.DatabasePasswordEncrypted)
		if err != nil {
			return errs.Wrap(db.ErrDecryptCredentials, err)
		}

		err = m.provisioner.Schemas.CreateDatabase(ctx, tenant.DatabaseName, tenant.DatabaseUser, string(password))
	default:
		err = m.provisioner.Schemas.CreateSchema(ctx, tenant.SchemaName)
	}

	if err != nil {
		return err
	}

	store, err := m.provisioner.Connector.Open(ctx, tenant)
	if err != nil {
		return err
	}

	_, err = m.provisioner.Materializer.Run(ctx, tenant, store)
	if err != nil {
		if !m.isRegistered(tenant.Slug, store) {
			_ = db.Close(store)
		}

		return err
	}

	m.registerStore(ctx, tenant.Slug, store)

	return nil
}

// failProvisioning records cause on tenant and returns it wrapped. The
// write ignores cancellation of ctx so the tenant never stays PROVISIONING.
func (m *TenantManager) failProvisioning(ctx context.Context, tenant *model.Tenant, cause error) error {
	writeCtx := context.WithoutCancel(ctx)

	store, ok := m.router.UnregisterTenant(tenant.Slug)
	if ok {
		_ = db.Close(store)
	}

	values := workflow.Changes(workflow.StateFailed)
	values["provisioning_error"] = cause.Error()

	err := m.writeState(writeCtx, tenant, values)
	if err != nil {
		log.Error(writeCtx, "Failed to record provisioning failure", err, slog.String("tenant", tenant.Slug))
	}

	log.Error(ctx, "Tenant provisioning failed", cause, slog.String("tenant", tenant.Slug))

	return errs.Wrap(ErrProvisioningFailed, cause)
}

func (m *TenantManager) lifecycleOp(
	ctx context.Context,
	slug string,
	event workflow.Event,
	action model.AuditAction,
	details map[string]any,
) error {
	tenant, err := m.GetTenant(ctx, slug)
	if err != nil {
		return err
	}

	from := tenant.SubscriptionStatus

	state, err := m.transition(ctx, tenant, event, nil)
	if err != nil {
		return err
	}

	if details == nil {
		details = map[string]any{}
	}

	details["from"] = from
	details["to"] = state

	m.auditor.Record(ctx, action, slug, details)

	return nil
}

// transition fires event on the lifecycle of tenant and persists the
// resulting state together with extra columns.
func (m *TenantManager) transition(
	ctx context.Context,
	tenant *model.Tenant,
	event workflow.Event,
	extra map[string]any,
) (workflow.State, error) {
	lifecycle, err := workflow.NewLifecycle(tenant)
	if err != nil {
		return "", errs.Wrap(ErrTenantState, err)
	}

	next, err := lifecycle.Fire(ctx, event)
	if err != nil {
		return "", errs.Wrap(ErrTenantState, err)
	}

	values := workflow.Changes(next)
	maps.Copy(values, extra)

	err = m.writeState(ctx, tenant, values)
	if err != nil {
		return "", err
	}

	return next, nil
}

// writeState updates the columns of tenant, reloads it in place and drops
// its cached projection.
func (m *TenantManager) writeState(ctx context.Context, tenant *model.Tenant, values map[string]any) error {
	_, err := m.repo.Update(ctx, tenant, values, *repo.NewQuery())
	if err != nil {
		return errs.Wrap(ErrUpdatingTenant, err)
	}

	m.cache.Invalidate(ctx, tenant.Slug)

	fresh, err := repo.GetTenantBySlug(ctx, m.repo, tenant.Slug)
	if err != nil {
		return errs.Wrap(ErrUpdatingTenant, err)
	}

	*tenant = *fresh

	return nil
}

func (m *TenantManager) isRegistered(slug string, store *gorm.DB) bool {
	current, ok := m.router.Registry().Lookup(router.ConnectionID(slug))
	return ok && current == store
}

// registerStore makes store the connection of slug and closes the store it
// replaces.
func (m *TenantManager) registerStore(ctx context.Context, slug string, store *gorm.DB) {
	previous, ok := m.router.Registry().Lookup(router.ConnectionID(slug))

	m.router.RegisterTenant(slug, store)

	if ok && previous != store {
		err := db.Close(previous)
		if err != nil {
			log.Warn(ctx, "Failed to close replaced tenant store", slog.String("tenant", slug), log.ErrorAttr(err))
		}
	}
}
