package async

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/openkcm/compliance-hub/internal/errs"
	hubcontext "github.com/openkcm/compliance-hub/utils/context"
)

var (
	ErrParsingPayload = errors.New("could not parse task payload")
	ErrEncodingData   = errors.New("could not encode task data")
)

// TaskPayload carries the tenant and the acting principal of the enqueuing
// request across the queue.
type TaskPayload struct {
	TenantSlug string
	Actor      string
	Data       []byte
}

func NewTaskPayload(ctx context.Context, data []byte) TaskPayload {
	slug, err := hubcontext.ExtractTenantID(ctx)
	if err != nil {
		slug = ""
	}

	actor := ""
	if principal, err := hubcontext.ExtractPrincipal(ctx); err == nil {
		actor = principal.UserID
	}

	return TaskPayload{
		TenantSlug: slug,
		Actor:      actor,
		Data:       data,
	}
}

// NewJSONTaskPayload encodes v as the data of the payload.
func NewJSONTaskPayload(ctx context.Context, v any) (TaskPayload, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return TaskPayload{}, errs.Wrap(ErrEncodingData, err)
	}

	return NewTaskPayload(ctx, data), nil
}

func ParseTaskPayload(payload []byte) (TaskPayload, error) {
	var p TaskPayload

	err := json.Unmarshal(payload, &p)
	if err != nil {
		return TaskPayload{}, errs.Wrap(ErrParsingPayload, err)
	}

	return p, nil
}

// DecodeData unmarshals the data of the payload into v.
func (p *TaskPayload) DecodeData(v any) error {
	err := json.Unmarshal(p.Data, v)
	if err != nil {
		return errs.Wrap(ErrParsingPayload, err)
	}

	return nil
}

// InjectContext restores the tenant and actor recorded at enqueue time.
// An invalid slug leaves ctx without a tenant.
func (p *TaskPayload) InjectContext(ctx context.Context) context.Context {
	if p.TenantSlug != "" {
		ctx = hubcontext.CreateTenantContext(ctx, p.TenantSlug)
	}

	if p.Actor != "" {
		ctx = hubcontext.InjectPrincipal(ctx, &hubcontext.Principal{UserID: p.Actor})
	}

	return ctx
}

func (p *TaskPayload) ToBytes() ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, errs.Wrap(ErrParsingPayload, err)
	}

	return data, nil
}
