package db

import (
	"context"
	"errors"
	"log/slog"

	"github.com/bartventer/gorm-multitenancy/v8/pkg/namespace"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/openkcm/compliance-hub/internal/errs"
	"github.com/openkcm/compliance-hub/internal/log"
	"github.com/openkcm/compliance-hub/internal/repo/violations"
)

var (
	ErrInvalidSchemaName = errors.New("invalid schema name")
	ErrCreateSchema      = errors.New("failed to create tenant schema")
	ErrGrantSchema       = errors.New("failed to grant privileges on tenant schema")
	ErrCreateDatabase    = errors.New("failed to create tenant database")
	ErrCreateRole        = errors.New("failed to create tenant role")
)

// SchemaManager performs the physical DDL that gives a tenant its store.
// Every method is check-then-create and safe to call again.
type SchemaManager interface {
	CreateSchema(ctx context.Context, schema string) error
	CreateDatabase(ctx context.Context, name, owner, password string) error
}

// PostgresSchemaManager runs DDL through the shared store connection.
type PostgresSchemaManager struct {
	db            *gorm.DB
	operatingRole string
}

var _ SchemaManager = (*PostgresSchemaManager)(nil)

func NewSchemaManager(db *gorm.DB, operatingRole string) *PostgresSchemaManager {
	return &PostgresSchemaManager{
		db:            db,
		operatingRole: operatingRole,
	}
}

// CreateSchema creates schema if missing and grants it to the operating role.
func (m *PostgresSchemaManager) CreateSchema(ctx context.Context, schema string) error {
	err := namespace.Validate(schema)
	if err != nil {
		return errs.Wrap(ErrInvalidSchemaName, err)
	}

	db := m.db.WithContext(ctx)

	var exists bool

	err = db.Raw("SELECT EXISTS (SELECT 1 FROM information_schema.schemata WHERE schema_name = ?)", schema).
		Scan(&exists).Error
	if err != nil {
		return errs.Wrap(ErrCreateSchema, err)
	}

	if exists {
		log.Info(ctx, "Tenant schema already exists", slog.String("schema", schema))
	} else {
		err = db.Exec("CREATE SCHEMA " + pq.QuoteIdentifier(schema)).Error
		if err != nil && !violations.IsAlreadyExists(err) {
			return errs.Wrap(ErrCreateSchema, err)
		}

		log.Info(ctx, "Created tenant schema", slog.String("schema", schema))
	}

	if m.operatingRole == "" {
		return nil
	}

	err = db.Exec("GRANT ALL ON SCHEMA " + pq.QuoteIdentifier(schema) + " TO " + pq.QuoteIdentifier(m.operatingRole)).Error
	if err != nil {
		return errs.Wrap(ErrGrantSchema, err)
	}

	return nil
}

// CreateDatabase creates the login role owner and a database it owns.
func (m *PostgresSchemaManager) CreateDatabase(ctx context.Context, name, owner, password string) error {
	err := namespace.Validate(name)
	if err != nil {
		return errs.Wrap(ErrInvalidSchemaName, err)
	}

	db := m.db.WithContext(ctx)

	var roleExists bool

	err = db.Raw("SELECT EXISTS (SELECT 1 FROM pg_roles WHERE rolname = ?)", owner).Scan(&roleExists).Error
	if err != nil {
		return errs.Wrap(ErrCreateRole, err)
	}

	if !roleExists {
		err = db.Exec("CREATE ROLE " + pq.QuoteIdentifier(owner) + " LOGIN PASSWORD " + pq.QuoteLiteral(password)).Error
		if err != nil && !violations.IsAlreadyExists(err) {
			return errs.Wrap(ErrCreateRole, err)
		}
	}

	var dbExists bool

	err = db.Raw("SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = ?)", name).Scan(&dbExists).Error
	if err != nil {
		return errs.Wrap(ErrCreateDatabase, err)
	}

	if dbExists {
		log.Info(ctx, "Tenant database already exists", slog.String("database", name))
		return nil
	}

	err = db.Exec("CREATE DATABASE " + pq.QuoteIdentifier(name) + " OWNER " + pq.QuoteIdentifier(owner)).Error
	if err != nil && !violations.IsAlreadyExists(err) {
		return errs.Wrap(ErrCreateDatabase, err)
	}

	log.Info(ctx, "Created tenant database", slog.String("database", name))

	return nil
}
