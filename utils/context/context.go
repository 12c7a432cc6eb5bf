package context

import (
	"context"
	"errors"
	"regexp"

	"github.com/bartventer/gorm-multitenancy/middleware/nethttp/v8"
	"github.com/google/uuid"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/compliance-hub/internal/errs"
	"github.com/openkcm/compliance-hub/internal/model"
)

var (
	ErrExtractTenantID   = errors.New("could not extract tenant ID from context")
	ErrInvalidTenantID   = errors.New("invalid tenant identifier")
	ErrGetRequestID      = errors.New("no requestID found in context")
	ErrExtractPrincipal  = errors.New("could not extract principal from context")
	ErrExtractTenantInfo = errors.New("could not extract tenant info from context")
)

// tenantIDPattern is the identifier rule enforced before an id may enter a context.
var tenantIDPattern = regexp.MustCompile(`^[a-z0-9-]{3,50}$`)

type key string

const (
	tenantKey     = key("tenantSlug")
	requestID     = key("requestID")
	principalKey  = key("principal")
	tenantInfoKey = key("tenantInfo")
)

// tenantSlot distinguishes an explicitly cleared slot from an absent one.
type tenantSlot struct {
	id string
}

type Opt func(ctx context.Context) context.Context

//nolint:fatcontext
func New(ctx context.Context, opts ...Opt) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}

	for _, opt := range opts {
		ctx = opt(ctx)
	}

	return ctx
}

// IsValidTenantID reports whether id satisfies the tenant identifier pattern.
func IsValidTenantID(id string) bool {
	return tenantIDPattern.MatchString(id)
}

// Set returns a child context carrying id. The boolean is false and the
// context is returned untouched when id does not match the identifier pattern.
func Set(ctx context.Context, id string) (context.Context, bool) {
	if ctx == nil {
		ctx = context.Background()
	}

	if !IsValidTenantID(id) {
		return ctx, false
	}

	return context.WithValue(ctx, tenantKey, tenantSlot{id: id}), true
}

// Get returns the current tenant id or an empty string.
// When the primary slot was never written, the gorm-multitenancy
// request slot is consulted.
func Get(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	slot, ok := ctx.Value(tenantKey).(tenantSlot)
	if ok {
		return slot.id
	}

	fallback, ok := ctx.Value(nethttp.TenantKey).(string)
	if ok && IsValidTenantID(fallback) {
		return fallback
	}

	return ""
}

// Clear returns a child context where no tenant is visible, including the
// fallback slot. Clearing an already cleared context is a no-op.
func Clear(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}

	slot, ok := ctx.Value(tenantKey).(tenantSlot)
	if ok && slot.id == "" {
		return ctx
	}

	return context.WithValue(ctx, tenantKey, tenantSlot{})
}

// Scoped runs fn with id as the current tenant. The caller's ctx is never
// modified, so the previous tenant is in effect again once fn returns,
// whatever the exit path. An invalid id runs fn against a cleared context.
func Scoped(ctx context.Context, id string, fn func(ctx context.Context) error) error {
	scoped, ok := Set(ctx, id)
	if !ok {
		slogctx.Warn(ctx, "rejected tenant id for scope, running without tenant", "tenantId", id)

		scoped = Clear(ctx)
	}

	return fn(scoped)
}

func ExtractTenantID(ctx context.Context) (string, error) {
	tenantID := Get(ctx)
	if tenantID == "" {
		return "", errs.Wrap(ErrExtractTenantID, nethttp.ErrTenantInvalid)
	}

	return tenantID, nil
}

// CreateTenantContext is Set without the validity report. An invalid slug
// yields a cleared context.
func CreateTenantContext(ctx context.Context, slug string) context.Context {
	scoped, ok := Set(ctx, slug)
	if !ok {
		return Clear(ctx)
	}

	return scoped
}

func WithTenant(slug string) Opt {
	return func(ctx context.Context) context.Context {
		return CreateTenantContext(ctx, slug)
	}
}

func InjectRequestID(ctx context.Context) context.Context {
	return context.WithValue(ctx, requestID, uuid.NewString())
}

func GetRequestID(ctx context.Context) (string, error) {
	requestID, ok := ctx.Value(requestID).(string)
	if !ok || requestID == "" {
		return "", ErrGetRequestID
	}

	return requestID, nil
}

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID      string
	Email       string
	IsSuperuser bool
}

func InjectPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func WithPrincipal(p *Principal) Opt {
	return func(ctx context.Context) context.Context {
		return InjectPrincipal(ctx, p)
	}
}

func ExtractPrincipal(ctx context.Context) (*Principal, error) {
	p, ok := ctx.Value(principalKey).(*Principal)
	if !ok || p == nil {
		return nil, ErrExtractPrincipal
	}

	return p, nil
}

// ActorName returns an identifier suitable for audit trails.
func ActorName(ctx context.Context) string {
	p, err := ExtractPrincipal(ctx)
	if err != nil || p.UserID == "" {
		return "system"
	}

	return p.UserID
}

// InjectTenantInfo attaches the tenant resolved for a request.
func InjectTenantInfo(ctx context.Context, info *model.TenantInfo) context.Context {
	return context.WithValue(ctx, tenantInfoKey, info)
}

func ExtractTenantInfo(ctx context.Context) (*model.TenantInfo, error) {
	info, ok := ctx.Value(tenantInfoKey).(*model.TenantInfo)
	if !ok || info == nil {
		return nil, ErrExtractTenantInfo
	}

	return info, nil
}
