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

type Subscriber interface {
	Subscribe(
		ctx context.Context,
		slug string,
		frameworkID uuid.UUID,
		level model.CustomizationLevel,
	) (*manager.DistributionStats, error)
}

// DistributeFramework subscribes a tenant to a framework under its plan rules.
type DistributeFramework struct {
	subscriber Subscriber
}

func NewDistributeFramework(subscriber Subscriber) *DistributeFramework {
	return &DistributeFramework{subscriber: subscriber}
}

// permanent are the outcomes another attempt cannot change.
var permanent = []error{
	manager.ErrAlreadySubscribed,
	manager.ErrFrameworkNotFound,
	manager.ErrFrameworkLimit,
	manager.ErrFullCustomization,
	manager.ErrNotDistributable,
	manager.ErrTenantState,
}

func (d *DistributeFramework) ProcessTask(ctx context.Context, task *asynq.Task) error {
	ctx, slug, req, err := parseTenantTask(ctx, task)
	if err != nil {
		log.Error(ctx, "Failed to parse task payload", err)
		return errs.Wrap(ErrRunningTask, err)
	}

	stats, err := d.subscriber.Subscribe(ctx, slug, req.FrameworkID, req.Level)
	if err != nil {
		log.Error(ctx, "Failed to distribute framework", err, slog.String("framework", req.FrameworkID.String()))

		for _, p := range permanent {
			if errors.Is(err, p) {
				return errs.Wrap(ErrRunningTask, skipRetry(err))
			}
		}

		return errs.Wrap(ErrRunningTask, err)
	}

	log.Info(ctx, "Framework distributed",
		slog.String("framework", req.FrameworkID.String()),
		slog.Int("controls", stats.Controls),
	)

	return nil
}

func (d *DistributeFramework) TaskType() string {
	return config.TypeDistributeFramework
}
