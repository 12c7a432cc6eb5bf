package manager

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/openkcm/compliance-hub/internal/errs"
	"github.com/openkcm/compliance-hub/internal/log"
	"github.com/openkcm/compliance-hub/internal/model"
	"github.com/openkcm/compliance-hub/internal/repo"
	hubcontext "github.com/openkcm/compliance-hub/utils/context"
	"github.com/openkcm/compliance-hub/utils/sanitise"
)

// Fields of a control customization request.
const (
	FieldCustomTitle                  = "custom_title"
	FieldCustomDescription            = "custom_description"
	FieldCustomObjective              = "custom_objective"
	FieldCustomProcedures             = "custom_procedures"
	FieldCustomImplementationGuidance = "custom_implementation_guidance"

	FieldTitle       = "title"
	FieldDescription = "description"
	FieldObjective   = "objective"
	FieldControlType = "control_type"
	FieldFrequency   = "frequency"
	FieldRiskLevel   = "risk_level"

	FieldControlID   = "control_id"
	FieldControlCode = "control_code"
	FieldFramework   = "framework"
	FieldDomain      = "domain"
	FieldCategory    = "category"
	FieldSubcategory = "subcategory"
)

var (
	contentFields = []string{
		FieldCustomTitle,
		FieldCustomDescription,
		FieldCustomObjective,
		FieldCustomProcedures,
		FieldCustomImplementationGuidance,
	}

	structuralFields = []string{
		FieldControlID,
		FieldControlCode,
		FieldFramework,
		FieldDomain,
		FieldCategory,
		FieldSubcategory,
	}

	descriptiveFields = []string{
		FieldTitle,
		FieldDescription,
		FieldObjective,
		FieldControlType,
		FieldFrequency,
		FieldRiskLevel,
	}

	// placementFields move the control within the tenant copy. The most
	// specific one named decides the new subcategory.
	placementFields = []string{FieldSubcategory, FieldCategory, FieldDomain, FieldFramework}

	plainTextFields = []string{
		FieldCustomTitle,
		FieldTitle,
		FieldControlType,
		FieldFrequency,
		FieldRiskLevel,
		FieldControlID,
		FieldControlCode,
	}
)

// CustomizationManager applies plan gated edits to the controls of a tenant
// copy.
type CustomizationManager struct {
	repo repo.Repo
	now  func() time.Time
}

func NewCustomizationManager(r repo.Repo) *CustomizationManager {
	return &CustomizationManager{repo: r, now: time.Now}
}

// CustomizeControl edits the control with controlID in the store of the
// tenant set on ctx. The current plan of the tenant decides which fields
// may change; the CanCustomize flag set on the copy is only a default and
// is raised again once an edit is accepted.
func (m *CustomizationManager) CustomizeControl(
	ctx context.Context,
	controlID uuid.UUID,
	changes map[string]string,
	actor string,
) (*model.CompanyControl, error) {
	if len(changes) == 0 {
		return nil, ErrNoChanges
	}

	slug, err := hubcontext.ExtractTenantID(ctx)
	if err != nil {
		return nil, err
	}

	tenant, err := repo.GetTenantBySlug(ctx, m.repo, slug)
	if err != nil {
		return nil, err
	}

	if tenant.Plan == nil {
		return nil, errs.Wrapf(ErrTenantState, "tenant has no subscription plan")
	}

	err = checkPlanFields(tenant.Plan, changes)
	if err != nil {
		return nil, err
	}

	control := &model.CompanyControl{}

	_, err = m.repo.First(ctx, control, *repo.NewQuery().Where(repo.NewCompositeKeyGroup(
		repo.NewCompositeKey().Where(repo.IDField, controlID))))
	if errors.Is(err, repo.ErrNotFound) {
		return nil, errs.Wrapf(ErrControlNotFound, controlID.String())
	}

	if err != nil {
		return nil, err
	}

	if !control.IsActive {
		return nil, ErrControlLocked
	}

	clean, err := sanitise.Fields(changes, func(key string) bool {
		return !slices.Contains(plainTextFields, key)
	})
	if err != nil {
		return nil, err
	}

	if actor == "" {
		actor = hubcontext.ActorName(ctx)
	}

	values, err := m.columns(ctx, clean)
	if err != nil {
		return nil, err
	}

	values["is_customized"] = true
	values["can_customize"] = true
	values["customized_at"] = m.now().UTC()
	values["customized_by"] = actor

	_, err = m.repo.Update(ctx, control, values, *repo.NewQuery())
	if err != nil {
		return nil, err
	}

	_, err = m.repo.First(ctx, control, *repo.NewQuery().Where(repo.NewCompositeKeyGroup(
		repo.NewCompositeKey().Where(repo.IDField, controlID))))
	if err != nil {
		return nil, err
	}

	log.Info(ctx, "Control customized",
		slog.String("tenant", slug),
		slog.String("control", control.ControlCode),
		slog.String("actor", actor),
	)

	return control, nil
}

// checkPlanFields applies the plan rules in order: customization at all,
// then structure, then the fields the plan may write. A plan with custom
// frameworks may write every control field.
func checkPlanFields(plan *model.SubscriptionPlan, changes map[string]string) error {
	if !plan.CanCustomizeControls {
		return ErrPlanCustomization
	}

	if plan.CanCreateCustomFrameworks {
		unknown := refusedFields(changes, slices.Concat(contentFields, descriptiveFields, structuralFields))
		if len(unknown) > 0 {
			return errs.Wrapf(ErrUnknownControlField, strings.Join(unknown, ", "))
		}

		return nil
	}

	for k := range changes {
		if slices.Contains(structuralFields, k) {
			return ErrPlanStructural
		}
	}

	refused := refusedFields(changes, contentFields)
	if len(refused) > 0 {
		return errs.Wrapf(ErrPlanFieldsNotAllowed, strings.Join(refused, ", "))
	}

	return nil
}

// refusedFields returns the sorted keys of changes missing from allowed.
func refusedFields(changes map[string]string, allowed []string) []string {
	var refused []string

	for k := range changes {
		if !slices.Contains(allowed, k) {
			refused = append(refused, k)
		}
	}

	slices.Sort(refused)

	return refused
}

// columns maps request fields to control columns.
func (m *CustomizationManager) columns(ctx context.Context, changes map[string]string) (map[string]any, error) {
	values := make(map[string]any, len(changes))
	moves := false

	for k, v := range changes {
		switch k {
		case FieldControlCode:
			values["control_code"] = v
		case FieldControlID:
			if _, ok := changes[FieldControlCode]; !ok {
				values["control_code"] = v
			}
		case FieldFramework, FieldDomain, FieldCategory, FieldSubcategory:
			moves = true
		default:
			values[k] = v
		}
	}

	if !moves {
		return values, nil
	}

	subcategory, err := m.placement(ctx, changes)
	if err != nil {
		return nil, err
	}

	values["subcategory_id"] = subcategory

	return values, nil
}

// placement resolves the subcategory a control moves to. A framework, domain
// or category on its own moves the control to its first subcategory. Every
// broader node named next to a narrower one must be an ancestor of it.
func (m *CustomizationManager) placement(ctx context.Context, changes map[string]string) (uuid.UUID, error) {
	ids := make(map[string]uuid.UUID, len(placementFields))

	for _, field := range placementFields {
		v, ok := changes[field]
		if !ok {
			continue
		}

		id, err := uuid.Parse(v)
		if err != nil {
			return uuid.Nil, errs.Wrapf(ErrNodeNotFound, field+" "+v)
		}

		ids[field] = id
	}

	var (
		subcategory model.CompanySubcategory
		category    model.CompanyCategory
		domain      model.CompanyDomain
	)

	var err error

	switch {
	case ids[FieldSubcategory] != uuid.Nil:
		err = m.activeNode(ctx, &subcategory, FieldSubcategory, repo.IDField, ids[FieldSubcategory])
	case ids[FieldCategory] != uuid.Nil:
		err = m.firstSubcategoryOf(ctx, &subcategory, ids[FieldCategory])
	case ids[FieldDomain] != uuid.Nil:
		err = m.firstSubcategoryInDomain(ctx, &subcategory, ids[FieldDomain])
	default:
		framework := &model.CompanyFramework{}

		err = m.activeNode(ctx, framework, FieldFramework, repo.IDField, ids[FieldFramework])
		if err == nil {
			err = m.activeNode(ctx, &domain, FieldDomain, repo.FrameworkIDField, framework.ID)
		}

		if err == nil {
			err = m.firstSubcategoryInDomain(ctx, &subcategory, domain.ID)
		}
	}

	if err != nil {
		return uuid.Nil, err
	}

	err = m.activeNode(ctx, &category, FieldCategory, repo.IDField, subcategory.CategoryID)
	if err != nil {
		return uuid.Nil, err
	}

	err = m.activeNode(ctx, &domain, FieldDomain, repo.IDField, category.DomainID)
	if err != nil {
		return uuid.Nil, err
	}

	ancestors := map[string]uuid.UUID{
		FieldCategory:  category.ID,
		FieldDomain:    domain.ID,
		FieldFramework: domain.FrameworkID,
	}

	for field, want := range ancestors {
		id, ok := ids[field]
		if ok && id != want {
			return uuid.Nil, errs.Wrapf(ErrInvalidPlacement, "subcategory "+subcategory.ID.String()+" is not under "+field+" "+id.String())
		}
	}

	return subcategory.ID, nil
}

func (m *CustomizationManager) firstSubcategoryInDomain(ctx context.Context, dst *model.CompanySubcategory, domainID uuid.UUID) error {
	domain := &model.CompanyDomain{}

	err := m.activeNode(ctx, domain, FieldDomain, repo.IDField, domainID)
	if err != nil {
		return err
	}

	category := &model.CompanyCategory{}

	err = m.activeNode(ctx, category, FieldCategory, repo.DomainIDField, domain.ID)
	if err != nil {
		return err
	}

	return m.firstSubcategoryOf(ctx, dst, category.ID)
}

func (m *CustomizationManager) firstSubcategoryOf(ctx context.Context, dst *model.CompanySubcategory, categoryID uuid.UUID) error {
	category := &model.CompanyCategory{}

	err := m.activeNode(ctx, category, FieldCategory, repo.IDField, categoryID)
	if err != nil {
		return err
	}

	return m.activeNode(ctx, dst, FieldSubcategory, repo.CategoryIDField, category.ID)
}

// activeNode loads the first active node of the tenant copy whose field
// equals value, in sort order.
func (m *CustomizationManager) activeNode(
	ctx context.Context,
	node repo.Resource,
	kind string,
	field repo.QueryField,
	value uuid.UUID,
) error {
	_, err := m.repo.First(ctx, node, *repo.NewQuery().
		Where(repo.NewCompositeKeyGroup(repo.NewCompositeKey().
			Where(field, value).
			Where(repo.IsActiveField, true))).
		Order(repo.OrderField{Field: repo.SortOrderField, Direction: repo.Asc}))
	if errors.Is(err, repo.ErrNotFound) {
		return errs.Wrapf(ErrNodeNotFound, kind+" "+value.String())
	}

	return err
}
