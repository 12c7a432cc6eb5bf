package tasks

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/openkcm/compliance-hub/internal/config"
	"github.com/openkcm/compliance-hub/internal/errs"
	"github.com/openkcm/compliance-hub/internal/log"
	"github.com/openkcm/compliance-hub/internal/model"
	asyncUtils "github.com/openkcm/compliance-hub/utils/async"
	hubcontext "github.com/openkcm/compliance-hub/utils/context"
)

var (
	ErrRunningTask     = errors.New("error running task")
	ErrInvalidPayload  = errors.New("invalid task payload")
	ErrInvalidTenantID = errors.New("invalid tenant identifier")
)

// FrameworkRequest names the framework a tenant task copies. A zero
// FrameworkID on activation skips the distribution.
type FrameworkRequest struct {
	FrameworkID uuid.UUID                `json:"frameworkId"`
	Level       model.CustomizationLevel `json:"level,omitempty"`
}

// NewActivateTenantTask builds a tenant:activate task for slug.
func NewActivateTenantTask(ctx context.Context, slug string, req FrameworkRequest) (*asynq.Task, error) {
	return newTenantTask(ctx, config.TypeActivateTenant, slug, req)
}

// NewDistributeFrameworkTask builds a framework:distribute task for slug.
func NewDistributeFrameworkTask(ctx context.Context, slug string, req FrameworkRequest) (*asynq.Task, error) {
	if req.FrameworkID == uuid.Nil {
		return nil, errs.Wrapf(ErrInvalidPayload, "framework id is required")
	}

	return newTenantTask(ctx, config.TypeDistributeFramework, slug, req)
}

func newTenantTask(ctx context.Context, taskType, slug string, req FrameworkRequest) (*asynq.Task, error) {
	ctx, ok := hubcontext.Set(ctx, slug)
	if !ok {
		return nil, errs.Wrapf(ErrInvalidTenantID, slug)
	}

	payload, err := asyncUtils.NewJSONTaskPayload(ctx, req)
	if err != nil {
		return nil, err
	}

	data, err := payload.ToBytes()
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(taskType, data), nil
}

// parseTenantTask restores the context of a tenant task and decodes its
// request. Malformed payloads are never retried.
func parseTenantTask(ctx context.Context, task *asynq.Task) (context.Context, string, FrameworkRequest, error) {
	var req FrameworkRequest

	payload, err := asyncUtils.ParseTaskPayload(task.Payload())
	if err != nil {
		return ctx, "", req, skipRetry(errs.Wrap(ErrInvalidPayload, err))
	}

	if !hubcontext.IsValidTenantID(payload.TenantSlug) {
		return ctx, "", req, skipRetry(errs.Wrapf(ErrInvalidTenantID, payload.TenantSlug))
	}

	err = payload.DecodeData(&req)
	if err != nil {
		return ctx, "", req, skipRetry(errs.Wrap(ErrInvalidPayload, err))
	}

	ctx = log.InjectTenant(payload.InjectContext(ctx), payload.TenantSlug)

	return ctx, payload.TenantSlug, req, nil
}

func skipRetry(err error) error {
	return errs.Wrap(err, asynq.SkipRetry)
}
