package repo

import (
	"context"
	"errors"

	"github.com/openkcm/compliance-hub/internal/errs"
	"github.com/openkcm/compliance-hub/internal/model"
)

// TransactionFunc is func signature for Transaction.
type TransactionFunc func(context.Context, Repo) error

// Repo defines an interface for Repository operations.
// Every call is routed to the store owning the resource.
type Repo interface {
	Create(ctx context.Context, resource Resource) error
	List(ctx context.Context, resource Resource, result any, query Query) (int, error)
	Delete(ctx context.Context, resource Resource, query Query) (bool, error)
	First(ctx context.Context, resource Resource, query Query) (bool, error)
	Patch(ctx context.Context, resource Resource, query Query) (bool, error)
	// Update writes values, keyed by column, to the row of resource.
	// Hooks of resource see the loaded record and the requested values.
	Update(ctx context.Context, resource Resource, values map[string]any, query Query) (bool, error)
	Set(ctx context.Context, resource Resource) error
	// Transaction runs txFunc in one transaction on the store of module.
	// Resources of other stores are refused inside txFunc.
	Transaction(ctx context.Context, module model.Module, txFunc TransactionFunc) error
}

// Resource defines the interface for Resource operations.
type Resource interface {
	TableName() string
	Module() model.Module
}

const DefaultLimit = 100

// ProcessInBatch retrieves and processes records in batches from the database based on the provided query parameters.
// It iterates through all matching records using pagination to avoid loading large datasets into memory.
// Processing stops immediately if processFunc returns an error.
func ProcessInBatch[T Resource](
	ctx context.Context,
	repo Repo,
	baseQuery *Query,
	batchSize int,
	processFunc func([]*T) error,
) error {
	offset := 0

	for {
		var items []*T

		query := baseQuery.SetLimit(batchSize).SetOffset(offset)

		count, err := repo.List(ctx, *new(T), &items, *query)
		if err != nil {
			return err
		}

		err = processFunc(items)
		if err != nil {
			return err
		}

		offset += batchSize

		if offset >= count {
			break
		}
	}

	return nil
}

// GetTenantBySlug loads a tenant together with its plan.
func GetTenantBySlug(ctx context.Context, r Repo, slug string) (*model.Tenant, error) {
	tenant := &model.Tenant{}

	_, err := r.First(ctx, tenant, *NewQuery().
		Where(NewCompositeKeyGroup(NewCompositeKey().Where(SlugField, slug))).
		Preload(Preload{PlanAssociation}))
	if errors.Is(err, ErrNotFound) {
		return nil, errs.Wrap(ErrTenantNotFound, err)
	}

	if err != nil {
		return nil, err
	}

	return tenant, nil
}

// GetPlanByCode loads an active subscription plan.
func GetPlanByCode(ctx context.Context, r Repo, code model.PlanCode) (*model.SubscriptionPlan, error) {
	plan := &model.SubscriptionPlan{}

	_, err := r.First(ctx, plan, *NewQuery().Where(NewCompositeKeyGroup(
		NewCompositeKey().
			Where(CodeField, code).
			Where(IsActiveField, true),
	)))
	if errors.Is(err, ErrNotFound) {
		return nil, errs.Wrap(ErrPlanNotFound, err)
	}

	if err != nil {
		return nil, err
	}

	return plan, nil
}
