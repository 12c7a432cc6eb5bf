package manager

import (
	"context"
	"log/slog"

	"github.com/openkcm/compliance-hub/internal/log"
	"github.com/openkcm/compliance-hub/internal/model"
	"github.com/openkcm/compliance-hub/internal/repo"
	hubcontext "github.com/openkcm/compliance-hub/utils/context"
)

// AuditForwarder ships audit entries to a system outside the catalog.
type AuditForwarder interface {
	Forward(ctx context.Context, action model.AuditAction, slug string) error
}

// Auditor writes the SuperAdmin audit trail. A failed write is logged and
// never fails the audited operation.
type Auditor struct {
	repo      repo.Repo
	forwarder AuditForwarder
}

func NewAuditor(r repo.Repo) *Auditor {
	return &Auditor{repo: r}
}

// SetForwarder makes every recorded entry go to f as well.
func (a *Auditor) SetForwarder(f AuditForwarder) {
	a.forwarder = f
}

func (a *Auditor) Record(ctx context.Context, action model.AuditAction, slug string, details map[string]any) {
	entry := &model.SuperAdminAuditLog{
		Action:     action,
		TenantSlug: slug,
		Actor:      hubcontext.ActorName(ctx),
		Details:    details,
	}

	err := a.repo.Create(ctx, entry)
	if err != nil {
		log.Error(ctx, "Failed to write audit log", err,
			slog.String("action", string(action)),
			slog.String("tenant", slug),
		)
	}

	if a.forwarder == nil {
		return
	}

	err = a.forwarder.Forward(ctx, action, slug)
	if err != nil {
		log.Warn(ctx, "Failed to forward audit log", log.ErrorAttr(err),
			slog.String("action", string(action)),
			slog.String("tenant", slug),
		)
	}
}

// List returns the audit entries of slug, newest first.
func (a *Auditor) List(ctx context.Context, slug string, limit int) ([]*model.SuperAdminAuditLog, error) {
	var entries []*model.SuperAdminAuditLog

	query := repo.NewQuery().
		Where(repo.NewCompositeKeyGroup(repo.NewCompositeKey().Where(repo.TenantSlugField, slug))).
		Order(repo.OrderField{Field: repo.CreatedField, Direction: repo.Desc}).
		SetLimit(limit)

	_, err := a.repo.List(ctx, model.SuperAdminAuditLog{}, &entries, *query)
	if err != nil {
		return nil, err
	}

	return entries, nil
}
