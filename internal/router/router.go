package router

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"gorm.io/gorm"
	"gorm.io/plugin/dbresolver"

	"github.com/openkcm/compliance-hub/internal/constants"
	"github.com/openkcm/compliance-hub/internal/log"
	"github.com/openkcm/compliance-hub/internal/metrics"
	"github.com/openkcm/compliance-hub/internal/model"
	hubcontext "github.com/openkcm/compliance-hub/utils/context"
)

var ErrSharedConnectionMissing = errors.New("shared connection is not registered")

type Operation int

const (
	Read Operation = iota
	Write
)

func (o Operation) String() string {
	if o == Read {
		return "read"
	}

	return "write"
}

// Router decides which physical connection serves an operation on an entity.
type Router struct {
	registry Registry
}

func New(registry Registry) *Router {
	return &Router{registry: registry}
}

func (r *Router) Registry() Registry {
	return r.registry
}

// ConnectionID names the connection of a tenant store.
func ConnectionID(slug string) string {
	return slug + constants.TenantConnectionSuffix
}

// IsTenantConnection reports whether id names a tenant store.
func IsTenantConnection(id string) bool {
	return strings.HasSuffix(id, constants.TenantConnectionSuffix) && id != constants.TenantConnectionSuffix
}

// ResolveConnection returns the connection id for an operation of module.
// It never fails: tenant scoped operations without a usable tenant store
// are served by the shared connection and reported.
func (r *Router) ResolveConnection(ctx context.Context, module model.Module, op Operation) string {
	if !module.IsTenantScoped() {
		return constants.SharedConnectionID
	}

	slug := hubcontext.Get(ctx)
	if slug == "" {
		log.Warn(ctx, "tenant scoped operation without tenant context, using shared connection",
			slog.String("module", string(module)),
			slog.String("operation", op.String()),
		)
		metrics.RouterFallbacks.WithLabelValues(metrics.FallbackNoTenantContext).Inc()

		return constants.SharedConnectionID
	}

	id := ConnectionID(slug)

	_, ok := r.registry.Lookup(id)
	if !ok {
		log.Error(ctx, "tenant connection is not registered, using shared connection",
			ErrConnectionNotRegistered,
			slog.String("tenant", slug),
			slog.String("connection", id),
			slog.String("module", string(module)),
		)
		metrics.RouterFallbacks.WithLabelValues(metrics.FallbackUnregisteredConnection).Inc()

		return constants.SharedConnectionID
	}

	return id
}

var ErrConnectionNotRegistered = errors.New("connection not registered")

// DB returns the connection serving module for op, bound to ctx. Reads go
// to replicas when the connection has a dbresolver configured.
func (r *Router) DB(ctx context.Context, module model.Module, op Operation) (*gorm.DB, error) {
	id := r.ResolveConnection(ctx, module, op)

	db, ok := r.registry.Lookup(id)
	if !ok {
		return nil, ErrSharedConnectionMissing
	}

	db = db.WithContext(ctx)
	if op == Read {
		return db.Clauses(dbresolver.Read), nil
	}

	return db.Clauses(dbresolver.Write), nil
}

// For returns the connection serving the module that owns entity.
func (r *Router) For(ctx context.Context, entity model.Owned, op Operation) (*gorm.DB, error) {
	return r.DB(ctx, entity.Module(), op)
}

func (r *Router) Shared(ctx context.Context) (*gorm.DB, error) {
	db, ok := r.registry.Lookup(constants.SharedConnectionID)
	if !ok {
		return nil, ErrSharedConnectionMissing
	}

	return db.WithContext(ctx), nil
}

func (r *Router) RegisterShared(db *gorm.DB) {
	r.registry.Register(constants.SharedConnectionID, db)
}

func (r *Router) RegisterTenant(slug string, db *gorm.DB) {
	r.registry.Register(ConnectionID(slug), db)
}

func (r *Router) UnregisterTenant(slug string) (*gorm.DB, bool) {
	return r.registry.Unregister(ConnectionID(slug))
}

func (r *Router) HasTenant(slug string) bool {
	_, ok := r.registry.Lookup(ConnectionID(slug))
	return ok
}

// AllowRelation permits relations only between entities of the same module.
func AllowRelation(a, b model.Module) bool {
	return a == b
}

// AllowSchemaChange keeps system catalog tables out of tenant stores and
// tenant tables out of the shared store.
func AllowSchemaChange(connectionID string, module model.Module) bool {
	switch {
	case connectionID == constants.SharedConnectionID:
		return module.IsSystemCatalog()
	case IsTenantConnection(connectionID):
		return module.IsTenantScoped()
	default:
		return false
	}
}
