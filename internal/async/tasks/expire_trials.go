package tasks

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/openkcm/compliance-hub/internal/config"
	"github.com/openkcm/compliance-hub/internal/errs"
	"github.com/openkcm/compliance-hub/internal/log"
)

type TrialExpirer interface {
	ExpireTrials(ctx context.Context) (int, error)
}

// ExpireTrials moves every TRIAL tenant past its end date to EXPIRED.
type ExpireTrials struct {
	expirer TrialExpirer
}

func NewExpireTrials(expirer TrialExpirer) *ExpireTrials {
	return &ExpireTrials{expirer: expirer}
}

func (e *ExpireTrials) ProcessTask(ctx context.Context, _ *asynq.Task) error {
	expired, err := e.expirer.ExpireTrials(ctx)
	if err != nil {
		log.Error(ctx, "Error during trial expiry", err)
		return errs.Wrap(ErrRunningTask, err)
	}

	log.Info(ctx, "Trial expiry completed", slog.Int("expired", expired))

	return nil
}

func (e *ExpireTrials) TaskType() string {
	return config.TypeExpireTrials
}
