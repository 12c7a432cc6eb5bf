package manager

import (
	"context"
	"errors"
	"log/slog"

	"github.com/openkcm/compliance-hub/internal/errs"
	"github.com/openkcm/compliance-hub/internal/log"
	"github.com/openkcm/compliance-hub/internal/model"
	"github.com/openkcm/compliance-hub/internal/repo"
)

type PlanManager struct {
	repo repo.Repo
}

func NewPlanManager(r repo.Repo) *PlanManager {
	return &PlanManager{repo: r}
}

// SeedPlans stores every default plan whose code is missing and returns
// how many were created. Existing plans are left untouched.
func (m *PlanManager) SeedPlans(ctx context.Context) (int, error) {
	plans, err := model.DefaultPlans()
	if err != nil {
		return 0, errs.Wrap(ErrSeedingPlans, err)
	}

	created := 0

	for _, p := range plans {
		existing := &model.SubscriptionPlan{}

		_, err = m.repo.First(ctx, existing, *repo.NewQuery().Where(
			repo.NewCompositeKeyGroup(repo.NewCompositeKey().Where(repo.CodeField, p.Code))))
		if err == nil {
			continue
		}

		if !errors.Is(err, repo.ErrNotFound) {
			return created, errs.Wrap(ErrSeedingPlans, err)
		}

		err = m.repo.Create(ctx, p)
		if err != nil {
			return created, errs.Wrap(ErrSeedingPlans, err)
		}

		created++

		log.Info(ctx, "Seeded subscription plan", slog.String("plan", string(p.Code)))
	}

	return created, nil
}

func (m *PlanManager) GetPlan(ctx context.Context, code model.PlanCode) (*model.SubscriptionPlan, error) {
	return repo.GetPlanByCode(ctx, m.repo, code)
}

// ListPlans returns the active plans ordered by code.
func (m *PlanManager) ListPlans(ctx context.Context) ([]*model.SubscriptionPlan, error) {
	var plans []*model.SubscriptionPlan

	_, err := m.repo.List(ctx, model.SubscriptionPlan{}, &plans, *repo.NewQuery().
		Where(repo.NewCompositeKeyGroup(repo.NewCompositeKey().Where(repo.IsActiveField, true))).
		Order(repo.OrderField{Field: repo.CodeField, Direction: repo.Asc}))
	if err != nil {
		return nil, err
	}

	return plans, nil
}
