package tasks

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/openkcm/compliance-hub/internal/config"
	"github.com/openkcm/compliance-hub/internal/errs"
	"github.com/openkcm/compliance-hub/internal/log"
)

type VersionChecker interface {
	CheckAllVersions(ctx context.Context) (int, error)
}

// FrameworkVersionCheck flags subscriptions whose template moved on.
type FrameworkVersionCheck struct {
	checker VersionChecker
}

func NewFrameworkVersionCheck(checker VersionChecker) *FrameworkVersionCheck {
	return &FrameworkVersionCheck{checker: checker}
}

func (f *FrameworkVersionCheck) ProcessTask(ctx context.Context, _ *asynq.Task) error {
	outdated, err := f.checker.CheckAllVersions(ctx)
	if err != nil {
		log.Error(ctx, "Error during framework version check", err)
		return errs.Wrap(ErrRunningTask, err)
	}

	log.Info(ctx, "Framework version check completed", slog.Int("outdated", outdated))

	return nil
}

func (f *FrameworkVersionCheck) TaskType() string {
	return config.TypeFrameworkVersionCheck
}
