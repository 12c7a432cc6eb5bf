package auditor

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"go.opentelemetry.io/collector/pdata/plog"

	otlpaudit "github.com/openkcm/common-sdk/pkg/otlp/audit"

	"github.com/openkcm/compliance-hub/internal/errs"
	"github.com/openkcm/compliance-hub/internal/log"
	"github.com/openkcm/compliance-hub/internal/model"
	hubcontext "github.com/openkcm/compliance-hub/utils/context"
)

var (
	ErrCreateEvent         = errors.New("failed to create audit event")
	ErrCreateEventMetadata = errors.New("failed to create event metadata")
	ErrSendEvent           = errors.New("failed to send audit event")
	ErrNilAuditor          = errors.New("auditor is nil")
)

// AuditLogger interface for easier testing and dependency injection
type AuditLogger interface {
	SendEvent(ctx context.Context, logs plog.Logs) error
}

// Auditor ships hub audit events to the OTLP audit collector.
type Auditor struct {
	auditLogger AuditLogger
}

// New creates an Auditor. Without a usable collector config the auditor
// is still returned and drops every event.
func New(ctx context.Context, cfg *commoncfg.Audit) *Auditor {
	auditLogger, err := otlpaudit.NewLogger(cfg)
	if err != nil {
		log.Error(ctx, "failed to create audit logger", err)

		return &Auditor{}
	}

	return &Auditor{auditLogger: auditLogger}
}

// NewWithLogger creates an Auditor on top of an existing transport.
func NewWithLogger(l AuditLogger) *Auditor {
	return &Auditor{auditLogger: l}
}

// Forward implements the manager audit forwarder. Only tenant deletion has
// a matching collector event, other actions are kept in the catalog only.
func (a *Auditor) Forward(ctx context.Context, action model.AuditAction, slug string) error {
	if action != model.AuditDeleteTenant {
		return nil
	}

	return a.SendTenantDeleteAuditLog(ctx, slug)
}

// SendTenantDeleteAuditLog records the removal of a tenant.
func (a *Auditor) SendTenantDeleteAuditLog(ctx context.Context, slug string) error {
	return a.sendEvent(ctx, slug, func(metadata otlpaudit.EventMetadata) (plog.Logs, error) {
		return otlpaudit.NewCmkTenantDeleteEvent(metadata, slug)
	})
}

// SendUnauthorizedRequestAuditLog records a request refused by the
// authorization gate.
func (a *Auditor) SendUnauthorizedRequestAuditLog(ctx context.Context, resource, action string) error {
	return a.sendEvent(ctx, hubcontext.Get(ctx), func(metadata otlpaudit.EventMetadata) (plog.Logs, error) {
		return otlpaudit.NewUnauthorizedRequestEvent(metadata, resource, action)
	})
}

// eventMetadata builds the metadata from the actor and request id of ctx.
// Requests started outside HTTP get a fresh request id.
func (a *Auditor) eventMetadata(ctx context.Context, slug string) (otlpaudit.EventMetadata, error) {
	if a == nil {
		return nil, ErrNilAuditor
	}

	if slug == "" {
		return nil, errs.Wrapf(ErrCreateEventMetadata, "no tenant")
	}

	requestID, err := hubcontext.GetRequestID(ctx)
	if err != nil {
		requestID = uuid.NewString()
	}

	metadata, err := otlpaudit.NewEventMetadata(hubcontext.ActorName(ctx), slug, requestID)
	if err != nil {
		return nil, errs.Wrap(ErrCreateEventMetadata, err)
	}

	return metadata, nil
}

func (a *Auditor) sendEvent(
	ctx context.Context,
	slug string,
	createEventFn func(otlpaudit.EventMetadata) (plog.Logs, error),
) error {
	if a == nil {
		return ErrNilAuditor
	}

	if a.auditLogger == nil {
		log.Debug(ctx, "audit logger not available, skipping audit event")

		return nil
	}

	metadata, err := a.eventMetadata(ctx, slug)
	if err != nil {
		return err
	}

	logs, err := createEventFn(metadata)
	if err != nil {
		return errs.Wrap(ErrCreateEvent, err)
	}

	err = a.auditLogger.SendEvent(ctx, logs)
	if err != nil {
		return errs.Wrap(ErrSendEvent, err)
	}

	return nil
}
