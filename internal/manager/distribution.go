package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openkcm/compliance-hub/internal/errs"
	"github.com/openkcm/compliance-hub/internal/log"
	"github.com/openkcm/compliance-hub/internal/metrics"
	"github.com/openkcm/compliance-hub/internal/model"
	"github.com/openkcm/compliance-hub/internal/repo"
	"github.com/openkcm/compliance-hub/internal/router"
	hubcontext "github.com/openkcm/compliance-hub/utils/context"
	"github.com/openkcm/compliance-hub/utils/ptr"
)

// DistributionStats counts the nodes copied into a tenant store.
type DistributionStats struct {
	Frameworks    int `json:"frameworks"`
	Domains       int `json:"domains"`
	Categories    int `json:"categories"`
	Subcategories int `json:"subcategories"`
	Controls      int `json:"controls"`
	Questions     int `json:"questions"`
	Evidence      int `json:"evidence"`
}

// VersionStatus compares the copy a tenant holds with its template.
type VersionStatus struct {
	FrameworkID     uuid.UUID           `json:"frameworkId"`
	TemplateVersion string              `json:"templateVersion"`
	CurrentVersion  string              `json:"currentVersion"`
	IsOutdated      bool                `json:"isOutdated"`
	UpgradeStatus   model.UpgradeStatus `json:"upgradeStatus"`
}

type BulkSuccess struct {
	Slug  string
	Stats *DistributionStats
}

type BulkFailure struct {
	Slug string
	Err  error
}

type BulkResult struct {
	Successful []BulkSuccess
	Failed     []BulkFailure
}

// DistributionManager copies framework templates from the system catalog
// into tenant stores.
type DistributionManager struct {
	repo      repo.Repo
	router    *router.Router
	validator *Validator
	auditor   *Auditor
	now       func() time.Time

	// locks serializes distributions of one framework to one tenant
	locks sync.Map
}

func NewDistributionManager(r repo.Repo, rt *router.Router, validator *Validator, auditor *Auditor) *DistributionManager {
	return &DistributionManager{
		repo:      r,
		router:    rt,
		validator: validator,
		auditor:   auditor,
		now:       time.Now,
	}
}

// Subscribe applies the plan rules of the tenant, then distributes.
func (m *DistributionManager) Subscribe(
	ctx context.Context,
	slug string,
	frameworkID uuid.UUID,
	level model.CustomizationLevel,
) (*DistributionStats, error) {
	tenant, err := repo.GetTenantBySlug(ctx, m.repo, slug)
	if err != nil {
		return nil, err
	}

	if tenant.SubscriptionStatus == model.SubscriptionPendingPayment {
		return nil, errs.Wrapf(ErrTenantState, "payment is pending")
	}

	if !tenant.SubscriptionStatus.IsLive() {
		return nil, errs.Wrapf(ErrTenantState, "tenant is "+string(tenant.SubscriptionStatus))
	}

	plan := tenant.Plan
	if plan == nil {
		return nil, errs.Wrapf(ErrTenantState, "tenant has no subscription plan")
	}

	if level == "" {
		level = plan.DefaultCustomizationLevel
	}

	if level == model.CustomizationFull && !plan.CanCreateCustomFrameworks {
		return nil, ErrFullCustomization
	}

	if !plan.WithinFrameworkLimit(tenant.CurrentFrameworks) {
		return nil, errs.Wrapf(ErrFrameworkLimit,
			fmt.Sprintf("%d of %d frameworks in use", tenant.CurrentFrameworks, plan.MaxFrameworks))
	}

	return m.Distribute(ctx, slug, frameworkID, level)
}

// Distribute deep copies the active hierarchy of a framework into the store
// of slug in one transaction and records the subscription.
func (m *DistributionManager) Distribute(
	ctx context.Context,
	slug string,
	frameworkID uuid.UUID,
	level model.CustomizationLevel,
) (*DistributionStats, error) {
	start := time.Now()

	stats, err := m.distribute(ctx, slug, frameworkID, level)

	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeFailure
	}

	metrics.DistributionDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())

	return stats, err
}

func (m *DistributionManager) distribute(
	ctx context.Context,
	slug string,
	frameworkID uuid.UUID,
	level model.CustomizationLevel,
) (*DistributionStats, error) {
	if level == "" {
		level = model.CustomizationControlLevel
	}

	err := level.Validate()
	if err != nil {
		return nil, err
	}

	unlock := m.lock(slug, frameworkID)
	defer unlock()

	tenant, err := repo.GetTenantBySlug(ctx, m.repo, slug)
	if err != nil {
		return nil, err
	}

	if !tenant.IsActive || tenant.ProvisioningStatus != model.ProvisioningActive {
		return nil, errs.Wrapf(ErrTenantState, "tenant store is not active")
	}

	if !m.router.HasTenant(slug) {
		return nil, errs.Wrapf(ErrLoadTenantConnection, slug)
	}

	tree, err := m.validator.distributableTree(ctx, frameworkID)
	if err != nil {
		return nil, err
	}

	existing, err := m.findSubscription(ctx, tenant.ID, frameworkID)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	if existing != nil && existing.Status == model.SubscriptionStateActive {
		return nil, errs.Wrapf(ErrAlreadySubscribed, tree.framework.Name)
	}

	log.Info(ctx, "Distributing framework",
		slog.String("tenant", slug),
		slog.String("framework", tree.framework.Name),
		slog.String("customizationLevel", string(level)),
	)

	now := m.now().UTC()

	var stats *DistributionStats

	err = hubcontext.Scoped(ctx, slug, func(ctx context.Context) error {
		return m.repo.Transaction(ctx, model.ModuleCompanyCompliance, func(ctx context.Context, r repo.Repo) error {
			err := ensureNotCopied(ctx, r, frameworkID)
			if err != nil {
				return err
			}

			stats, err = copyTree(ctx, r, tree, level, now)
			if errors.Is(err, repo.ErrUniqueConstraint) {
				return ErrAlreadySubscribed
			}

			return err
		})
	})
	if errors.Is(err, ErrAlreadySubscribed) {
		return nil, errs.Wrapf(ErrAlreadySubscribed, tree.framework.Name)
	}

	if err != nil {
		log.Error(ctx, "Framework distribution failed", err,
			slog.String("tenant", slug), slog.String("framework", tree.framework.Name))

		return nil, errs.Wrap(ErrDistributionFailed, err)
	}

	err = m.recordSubscription(ctx, tenant, existing, tree.framework, level, now)
	if err != nil {
		withdrawErr := m.withdrawCopy(context.WithoutCancel(ctx), slug, frameworkID)
		if withdrawErr != nil {
			log.Error(ctx, "Failed to withdraw unrecorded framework copy", withdrawErr,
				slog.String("tenant", slug), slog.String("framework", tree.framework.Name))
		}

		return nil, errs.Wrap(ErrDistributionFailed, err)
	}

	_, err = m.repo.Update(ctx, &model.Tenant{ID: tenant.ID}, map[string]any{
		"current_frameworks": gorm.Expr("current_frameworks + ?", stats.Frameworks),
		"current_controls":   gorm.Expr("current_controls + ?", stats.Controls),
	}, *repo.NewQuery())
	if err != nil {
		log.Error(ctx, "Failed to update tenant usage counters", err, slog.String("tenant", slug))
	}

	m.auditor.Record(ctx, model.AuditDistributeFramework, slug, map[string]any{
		"frameworkId":        frameworkID.String(),
		"framework":          tree.framework.Name,
		"version":            tree.framework.Version,
		"customizationLevel": level,
		"controls":           stats.Controls,
	})

	log.Info(ctx, "Framework distributed",
		slog.String("tenant", slug),
		slog.String("framework", tree.framework.Name),
		slog.Int("domains", stats.Domains),
		slog.Int("controls", stats.Controls),
	)

	return stats, nil
}

// CheckFrameworkVersion compares the version the tenant holds with the
// template and records the outcome on the subscription. Nothing is copied.
func (m *DistributionManager) CheckFrameworkVersion(
	ctx context.Context,
	slug string,
	frameworkID uuid.UUID,
) (*VersionStatus, error) {
	tenant, err := repo.GetTenantBySlug(ctx, m.repo, slug)
	if err != nil {
		return nil, err
	}

	fw, err := loadFramework(ctx, m.repo, frameworkID, true)
	if err != nil {
		return nil, err
	}

	sub, err := m.findSubscription(ctx, tenant.ID, frameworkID)
	if err != nil {
		return nil, errs.Wrap(ErrSubscriptionLookup, err)
	}

	return m.checkVersion(ctx, sub, fw)
}

// CheckAllVersions checks every active subscription and returns how many
// have an upgrade available. A failing subscription does not stop the run.
func (m *DistributionManager) CheckAllVersions(ctx context.Context) (int, error) {
	query := repo.NewQuery().
		Where(repo.NewCompositeKeyGroup(repo.NewCompositeKey().
			Where(repo.StatusField, model.SubscriptionStateActive))).
		Order(repo.OrderField{Field: repo.IDField, Direction: repo.Asc})

	var subs []*model.FrameworkSubscription

	err := repo.ProcessInBatch(ctx, m.repo, query, repo.DefaultLimit, func(batch []*model.FrameworkSubscription) error {
		subs = append(subs, batch...)
		return nil
	})
	if err != nil {
		return 0, errs.Wrap(ErrSubscriptionLookup, err)
	}

	frameworks := make(map[uuid.UUID]*model.Framework)
	outdated := 0

	for _, sub := range subs {
		fw, ok := frameworks[sub.FrameworkID]
		if !ok {
			fw, err = loadFramework(ctx, m.repo, sub.FrameworkID, true)
			if err != nil {
				log.Warn(ctx, "Skipping version check", slog.String("subscription", sub.ID.String()), log.ErrorAttr(err))
				continue
			}

			frameworks[sub.FrameworkID] = fw
		}

		status, err := m.checkVersion(ctx, sub, fw)
		if err != nil {
			log.Error(ctx, "Version check failed", err, slog.String("subscription", sub.ID.String()))
			continue
		}

		if status.IsOutdated {
			outdated++
		}
	}

	return outdated, nil
}

// SyncFramework would push template changes into an existing copy.
func (m *DistributionManager) SyncFramework(_ context.Context, _ string, _ uuid.UUID) error {
	return ErrNotImplemented
}

// BulkDistribute subscribes each tenant on its own. One failure does not
// affect the others.
func (m *DistributionManager) BulkDistribute(
	ctx context.Context,
	frameworkID uuid.UUID,
	slugs []string,
	level model.CustomizationLevel,
) BulkResult {
	result := BulkResult{}

	for _, slug := range slugs {
		stats, err := m.Subscribe(ctx, slug, frameworkID, level)
		if err != nil {
			result.Failed = append(result.Failed, BulkFailure{Slug: slug, Err: err})
			continue
		}

		result.Successful = append(result.Successful, BulkSuccess{Slug: slug, Stats: stats})
	}

	log.Info(ctx, "Bulk distribution finished",
		slog.String("frameworkId", frameworkID.String()),
		slog.Int("successful", len(result.Successful)),
		slog.Int("failed", len(result.Failed)),
	)

	return result
}

// VerifyDistribution counts the active copy of a framework in the store of
// slug.
func (m *DistributionManager) VerifyDistribution(
	ctx context.Context,
	slug string,
	frameworkID uuid.UUID,
) (*DistributionStats, error) {
	if !m.router.HasTenant(slug) {
		return nil, errs.Wrapf(ErrLoadTenantConnection, slug)
	}

	stats := &DistributionStats{}

	err := hubcontext.Scoped(ctx, slug, func(ctx context.Context) error {
		copied := &model.CompanyFramework{}

		_, err := m.repo.First(ctx, copied, *repo.NewQuery().Where(repo.NewCompositeKeyGroup(
			repo.NewCompositeKey().
				Where(repo.TemplateFrameworkIDField, frameworkID).
				Where(repo.IsActiveField, true))))
		if err != nil {
			return errs.Wrap(ErrFrameworkNotFound, err)
		}

		stats.Frameworks = 1

		domains, err := listByParent[model.CompanyDomain](ctx, m.repo, repo.FrameworkIDField, []uuid.UUID{copied.ID})
		if err != nil {
			return err
		}

		categories, err := listByParent[model.CompanyCategory](ctx, m.repo, repo.DomainIDField, ids(domains))
		if err != nil {
			return err
		}

		subcategories, err := listByParent[model.CompanySubcategory](ctx, m.repo, repo.CategoryIDField, ids(categories))
		if err != nil {
			return err
		}

		controls, err := listByParent[model.CompanyControl](ctx, m.repo, repo.SubcategoryIDField, ids(subcategories))
		if err != nil {
			return err
		}

		stats.Domains = len(domains)
		stats.Categories = len(categories)
		stats.Subcategories = len(subcategories)
		stats.Controls = len(controls)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// withdrawCopy deactivates the active copy of frameworkID in the store of
// slug, leaving the pair free for another distribution.
func (m *DistributionManager) withdrawCopy(ctx context.Context, slug string, frameworkID uuid.UUID) error {
	return hubcontext.Scoped(ctx, slug, func(ctx context.Context) error {
		return m.repo.Transaction(ctx, model.ModuleCompanyCompliance, func(ctx context.Context, r repo.Repo) error {
			frameworks, err := listByParent[model.CompanyFramework](ctx, r, repo.TemplateFrameworkIDField, []uuid.UUID{frameworkID})
			if err != nil {
				return err
			}

			domains, err := listByParent[model.CompanyDomain](ctx, r, repo.FrameworkIDField, ids(frameworks))
			if err != nil {
				return err
			}

			categories, err := listByParent[model.CompanyCategory](ctx, r, repo.DomainIDField, ids(domains))
			if err != nil {
				return err
			}

			subcategories, err := listByParent[model.CompanySubcategory](ctx, r, repo.CategoryIDField, ids(categories))
			if err != nil {
				return err
			}

			controls, err := listByParent[model.CompanyControl](ctx, r, repo.SubcategoryIDField, ids(subcategories))
			if err != nil {
				return err
			}

			rows := make([]repo.Resource, 0, len(frameworks)+len(domains)+len(categories)+len(subcategories)+len(controls))
			for _, f := range frameworks {
				rows = append(rows, f)
			}

			for _, d := range domains {
				rows = append(rows, d)
			}

			for _, c := range categories {
				rows = append(rows, c)
			}

			for _, sc := range subcategories {
				rows = append(rows, sc)
			}

			for _, c := range controls {
				rows = append(rows, c)
			}

			for _, row := range rows {
				_, err = r.Update(ctx, row, map[string]any{"is_active": false}, *repo.NewQuery())
				if err != nil {
					return err
				}
			}

			log.Warn(ctx, "Withdrew framework copy", slog.String("tenant", slug), slog.Int("nodes", len(rows)))

			return nil
		})
	})
}

// lock serializes distributions of one pair within this process. Other
// processes are held off by the partial unique index on
// company_frameworks(template_framework_id) for active copies. One mutex is
// kept per pair ever distributed and never evicted.
func (m *DistributionManager) lock(slug string, frameworkID uuid.UUID) func() {
	v, _ := m.locks.LoadOrStore(slug+":"+frameworkID.String(), &sync.Mutex{})

	mu, _ := v.(*sync.Mutex)
	mu.Lock()

	return mu.Unlock
}

func (m *DistributionManager) findSubscription(
	ctx context.Context,
	tenantID uuid.UUID,
	frameworkID uuid.UUID,
) (*model.FrameworkSubscription, error) {
	sub := &model.FrameworkSubscription{}

	_, err := m.repo.First(ctx, sub, *repo.NewQuery().Where(repo.NewCompositeKeyGroup(
		repo.NewCompositeKey().
			Where(repo.TenantIDField, tenantID).
			Where(repo.FrameworkIDField, frameworkID))))
	if err != nil {
		return nil, err
	}

	return sub, nil
}

// recordSubscription creates the subscription or reactivates a lapsed one.
func (m *DistributionManager) recordSubscription(
	ctx context.Context,
	tenant *model.Tenant,
	existing *model.FrameworkSubscription,
	fw *model.Framework,
	level model.CustomizationLevel,
	now time.Time,
) error {
	if existing != nil {
		_, err := m.repo.Update(ctx, existing, map[string]any{
			"status":                   model.SubscriptionStateActive,
			"customization_level":      level,
			"subscribed_version":       fw.Version,
			"current_version":          fw.Version,
			"latest_available_version": fw.Version,
			"upgrade_status":           model.UpgradeUpToDate,
			"subscribed_at":            now,
			"last_synced_at":           now,
		}, *repo.NewQuery())

		return err
	}

	return m.repo.Create(ctx, &model.FrameworkSubscription{
		TenantID:               tenant.ID,
		FrameworkID:            fw.ID,
		CustomizationLevel:     level,
		Status:                 model.SubscriptionStateActive,
		SubscribedVersion:      fw.Version,
		CurrentVersion:         fw.Version,
		LatestAvailableVersion: fw.Version,
		UpgradeStatus:          model.UpgradeUpToDate,
		SubscribedAt:           now,
		LastSyncedAt:           ptr.PointTo(now),
	})
}

func (m *DistributionManager) checkVersion(
	ctx context.Context,
	sub *model.FrameworkSubscription,
	fw *model.Framework,
) (*VersionStatus, error) {
	status := &VersionStatus{
		FrameworkID:     fw.ID,
		TemplateVersion: fw.Version,
		CurrentVersion:  sub.CurrentVersion,
		IsOutdated:      sub.CurrentVersion != fw.Version,
		UpgradeStatus:   model.UpgradeUpToDate,
	}

	if status.IsOutdated {
		status.UpgradeStatus = model.UpgradeAvailable
	}

	// A scheduled or running upgrade keeps its status.
	if sub.UpgradeStatus == model.UpgradeScheduled || sub.UpgradeStatus == model.UpgradeRunning {
		status.UpgradeStatus = sub.UpgradeStatus
	}

	if sub.LatestAvailableVersion == fw.Version && sub.UpgradeStatus == status.UpgradeStatus {
		return status, nil
	}

	_, err := m.repo.Update(ctx, sub, map[string]any{
		"latest_available_version": fw.Version,
		"upgrade_status":           status.UpgradeStatus,
	}, *repo.NewQuery())
	if err != nil {
		return nil, errs.Wrap(ErrSubscriptionLookup, err)
	}

	return status, nil
}

// ensureNotCopied refuses a second active copy of the same template in one
// tenant store.
func ensureNotCopied(ctx context.Context, r repo.Repo, frameworkID uuid.UUID) error {
	var copies []*model.CompanyFramework

	count, err := r.List(ctx, model.CompanyFramework{}, &copies, *repo.NewQuery().Where(repo.NewCompositeKeyGroup(
		repo.NewCompositeKey().
			Where(repo.TemplateFrameworkIDField, frameworkID).
			Where(repo.IsActiveField, true))).SetLimit(1))
	if err != nil {
		return err
	}

	if count > 0 {
		return ErrAlreadySubscribed
	}

	return nil
}

// copyTree writes the tenant copy depth first. Every copy points at its
// new parent and keeps the id of its template.
func copyTree(
	ctx context.Context,
	r repo.Repo,
	tree *templateTree,
	level model.CustomizationLevel,
	now time.Time,
) (*DistributionStats, error) {
	stats := &DistributionStats{}
	src := tree.framework

	fw := &model.CompanyFramework{
		Node:                copyNode(src.Node),
		TemplateFrameworkID: src.ID,
		Name:                src.Name,
		FullName:            src.FullName,
		Description:         src.Description,
		Version:             src.Version,
		EffectiveDate:       src.EffectiveDate,
		Status:              src.Status,
		CustomizationLevel:  level,
		IsTemplateSynced:    true,
		SubscribedAt:        now,
	}

	err := r.Create(ctx, fw)
	if err != nil {
		return nil, err
	}

	stats.Frameworks = 1

	for _, domain := range tree.domains {
		err = copyDomain(ctx, r, tree, domain, fw.ID, level, stats)
		if err != nil {
			return nil, err
		}
	}

	return stats, nil
}

func copyDomain(
	ctx context.Context,
	r repo.Repo,
	tree *templateTree,
	src *model.Domain,
	parent uuid.UUID,
	level model.CustomizationLevel,
	stats *DistributionStats,
) error {
	domain := &model.CompanyDomain{
		Node:             copyNode(src.Node),
		FrameworkID:      parent,
		TemplateDomainID: src.ID,
		Name:             src.Name,
		Code:             src.Code,
		Description:      src.Description,
	}

	err := r.Create(ctx, domain)
	if err != nil {
		return err
	}

	stats.Domains++

	for _, c := range tree.categories[src.ID] {
		category := &model.CompanyCategory{
			Node:               copyNode(c.Node),
			DomainID:           domain.ID,
			TemplateCategoryID: c.ID,
			Name:               c.Name,
			Code:               c.Code,
			Description:        c.Description,
		}

		err = r.Create(ctx, category)
		if err != nil {
			return err
		}

		stats.Categories++

		for _, s := range tree.subcategories[c.ID] {
			err = copySubcategory(ctx, r, tree, s, category.ID, level, stats)
			if err != nil {
				return err
			}
		}
	}

	return nil
}

func copySubcategory(
	ctx context.Context,
	r repo.Repo,
	tree *templateTree,
	src *model.Subcategory,
	parent uuid.UUID,
	level model.CustomizationLevel,
	stats *DistributionStats,
) error {
	sub := &model.CompanySubcategory{
		Node:                  copyNode(src.Node),
		CategoryID:            parent,
		TemplateSubcategoryID: src.ID,
		Name:                  src.Name,
		Code:                  src.Code,
		Description:           src.Description,
	}

	err := r.Create(ctx, sub)
	if err != nil {
		return err
	}

	stats.Subcategories++

	for _, c := range tree.controls[src.ID] {
		err = copyControl(ctx, r, tree, c, sub.ID, level, stats)
		if err != nil {
			return err
		}
	}

	return nil
}

func copyControl(
	ctx context.Context,
	r repo.Repo,
	tree *templateTree,
	src *model.Control,
	parent uuid.UUID,
	level model.CustomizationLevel,
	stats *DistributionStats,
) error {
	control := &model.CompanyControl{
		Node:              copyNode(src.Node),
		SubcategoryID:     parent,
		TemplateControlID: src.ID,
		ControlCode:       src.ControlCode,
		Title:             src.Title,
		Description:       src.Description,
		Objective:         src.Objective,
		ControlType:       src.ControlType,
		Frequency:         src.Frequency,
		RiskLevel:         src.RiskLevel,
		CanCustomize:      level.AllowsControlEdits(),
	}

	err := r.Create(ctx, control)
	if err != nil {
		return err
	}

	stats.Controls++

	for _, q := range tree.questions[src.ID] {
		err = r.Create(ctx, &model.CompanyAssessmentQuestion{
			Node:               copyNode(q.Node),
			ControlID:          control.ID,
			TemplateQuestionID: q.ID,
			Question:           q.Question,
			QuestionType:       q.QuestionType,
			Options:            q.Options,
			IsMandatory:        q.IsMandatory,
		})
		if err != nil {
			return err
		}

		stats.Questions++
	}

	for _, e := range tree.evidence[src.ID] {
		err = r.Create(ctx, &model.CompanyEvidenceRequirement{
			Node:               copyNode(e.Node),
			ControlID:          control.ID,
			TemplateEvidenceID: e.ID,
			Title:              e.Title,
			Description:        e.Description,
			EvidenceType:       e.EvidenceType,
			FileFormat:         e.FileFormat,
			IsMandatory:        e.IsMandatory,
		})
		if err != nil {
			return err
		}

		stats.Evidence++
	}

	return nil
}

// copyNode keeps the ordering of a template node and gives the copy a new id.
func copyNode(src model.Node) model.Node {
	return model.Node{SortOrder: src.SortOrder, IsActive: true}
}
