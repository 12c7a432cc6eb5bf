package tasks

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/openkcm/compliance-hub/internal/config"
	"github.com/openkcm/compliance-hub/internal/errs"
	"github.com/openkcm/compliance-hub/internal/log"
	"github.com/openkcm/compliance-hub/internal/manager"
	"github.com/openkcm/compliance-hub/internal/model"
)

type TenantActivator interface {
	ActivateTenant(
		ctx context.Context,
		slug string,
		frameworkID uuid.UUID,
		level model.CustomizationLevel,
	) (*manager.ActivationResult, error)
}

// ActivateTenant provisions a tenant whose payment was confirmed.
type ActivateTenant struct {
	activator TenantActivator
}

func NewActivateTenant(activator TenantActivator) *ActivateTenant {
	return &ActivateTenant{activator: activator}
}

func (a *ActivateTenant) ProcessTask(ctx context.Context, task *asynq.Task) error {
	ctx, slug, req, err := parseTenantTask(ctx, task)
	if err != nil {
		log.Error(ctx, "Failed to parse task payload", err)
		return errs.Wrap(ErrRunningTask, err)
	}

	log.Info(ctx, "Started tenant activation", slog.String("framework", req.FrameworkID.String()))

	result, err := a.activator.ActivateTenant(ctx, slug, req.FrameworkID, req.Level)

	switch {
	case errors.Is(err, manager.ErrDistributionFailed):
		// The tenant is live; activating again would be refused.
		log.Error(ctx, "Tenant activated without its first framework", err)
		return errs.Wrap(ErrRunningTask, skipRetry(err))
	case errors.Is(err, manager.ErrTenantState):
		log.Warn(ctx, "Tenant is not waiting for activation", log.ErrorAttr(err))
		return errs.Wrap(ErrRunningTask, skipRetry(err))
	case err != nil:
		log.Error(ctx, "Failed to activate tenant", err)
		return errs.Wrap(ErrRunningTask, err)
	}

	attrs := []slog.Attr{slog.String("status", string(result.Tenant.SubscriptionStatus))}
	if result.Stats != nil {
		attrs = append(attrs, slog.Int("controls", result.Stats.Controls))
	}

	log.Info(ctx, "Tenant activated", attrs...)

	return nil
}

func (a *ActivateTenant) TaskType() string {
	return config.TypeActivateTenant
}
