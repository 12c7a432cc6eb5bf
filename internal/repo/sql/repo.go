package sql

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/openkcm/compliance-hub/internal/errs"
	"github.com/openkcm/compliance-hub/internal/log"
	"github.com/openkcm/compliance-hub/internal/model"
	"github.com/openkcm/compliance-hub/internal/repo"
	"github.com/openkcm/compliance-hub/internal/repo/violations"
	"github.com/openkcm/compliance-hub/internal/router"
)

var ErrUnsupportedOrderDirective = errors.New("unsupported order directive")

// ResourceRepository represents the repository for managing Resource data.
// Outside a transaction every call asks the router for the store of the
// resource. Inside a transaction calls are pinned to one store.
type ResourceRepository struct {
	router *router.Router

	tx     *gorm.DB
	txConn string
}

// NewRepository creates and returns a new instance of ResourceRepository.
func NewRepository(r *router.Router) *ResourceRepository {
	return &ResourceRepository{
		router: r,
	}
}

// WithStore runs fn against the store that owns resource.
func (r *ResourceRepository) WithStore(
	ctx context.Context,
	resource repo.Resource,
	op router.Operation,
	fn func(tx *gorm.DB) error,
) error {
	if r.tx != nil {
		conn := r.router.ResolveConnection(ctx, resource.Module(), op)
		if conn != r.txConn {
			return errs.Wrapf(repo.ErrCrossStore, fmt.Sprintf("%s is served by %s, transaction by %s",
				resource.TableName(), conn, r.txConn))
		}

		return fn(r.tx.WithContext(ctx))
	}

	db, err := r.router.DB(ctx, resource.Module(), op)
	if err != nil {
		return errs.Wrap(repo.ErrResolveConnection, err)
	}

	return fn(db)
}

// Create adds meta information and stores a Resource.
func (r *ResourceRepository) Create(ctx context.Context, resource repo.Resource) error {
	return r.WithStore(
		ctx, resource, router.Write, func(tx *gorm.DB) error {
			err := tx.Create(resource).Error
			if err != nil {
				log.Error(ctx, "error creating resource", err)

				if errors.Is(err, gorm.ErrDuplicatedKey) || violations.IsUniqueConstraint(err) {
					return errs.Wrap(repo.ErrUniqueConstraint, err)
				}

				return errs.Wrap(repo.ErrCreateResource, err)
			}

			return nil
		},
	)
}

// List retrieves records from the database based on the provided query parameters and model.
// Result is an address. The returned count ignores pagination.
func (r *ResourceRepository) List(
	ctx context.Context,
	resource repo.Resource,
	result any,
	query repo.Query,
) (int, error) {
	var count int64

	err := r.WithStore(
		ctx, resource, router.Read, func(tx *gorm.DB) error {
			db, err := applyQuery(tx.Model(result), query)
			if err != nil {
				return err
			}

			db = db.Count(&count)
			if db.Error != nil {
				return errs.Wrap(repo.ErrGetResource, db.Error)
			}

			db, err = applyOrder(db, query)
			if err != nil {
				return err
			}

			res := applyPagination(db, query).Find(result)
			if res.Error != nil {
				return errs.Wrap(repo.ErrGetResource, res.Error)
			}

			return nil
		},
	)
	if err != nil {
		return 0, err
	}

	return int(count), nil
}

// Delete removes the Resource.
//
// It returns true if a record was deleted successfully,
// false if there was no record to delete,
// and error if there was an error during the deletion.
// If no query is provided it deletes the item by the primaryKey
func (r *ResourceRepository) Delete(
	ctx context.Context,
	resource repo.Resource,
	query repo.Query,
) (bool, error) {
	var result *gorm.DB

	err := r.WithStore(
		ctx, resource, router.Write, func(tx *gorm.DB) error {
			db, err := applyQuery(tx, query)
			if err != nil {
				return err
			}

			result = db.Delete(resource)
			if result.Error != nil {
				log.Error(ctx, "error deleting resource", result.Error)
				return errs.Wrap(repo.ErrDeleteResource, result.Error)
			}

			return nil
		},
	)
	if err != nil {
		return false, err
	}

	return result.RowsAffected > 0, nil
}

// First fill given Resource with data, if found. Given Resource is used as query data.
// It will find the resource with the primary key as the where condition by omition
func (r *ResourceRepository) First(
	ctx context.Context,
	resource repo.Resource,
	query repo.Query,
) (bool, error) {
	var res *gorm.DB

	err := r.WithStore(
		ctx, resource, router.Read, func(tx *gorm.DB) error {
			db, err := applyQuery(tx.Model(resource), query)
			if err != nil {
				return err
			}

			db, err = applyOrder(db, query)
			if err != nil {
				return err
			}

			res = db.First(resource)
			if res.Error != nil {
				if errors.Is(res.Error, gorm.ErrRecordNotFound) {
					return errs.Wrap(repo.ErrNotFound, res.Error)
				}

				log.Error(ctx, "error finding the resource", res.Error)

				return errs.Wrap(repo.ErrGetResource, res.Error)
			}

			return nil
		},
	)
	if err != nil {
		return false, err
	}

	return res.RowsAffected > 0, nil
}

// Patch will patch the resource with primary key as the where condition.
//
// It returns true if a record was patched successfully,
// and error if there was an error during the patch.
func (r *ResourceRepository) Patch(
	ctx context.Context,
	resource repo.Resource,
	query repo.Query,
) (bool, error) {
	var res *gorm.DB

	err := r.WithStore(
		ctx, resource, router.Write, func(tx *gorm.DB) error {
			db, err := applyQuery(applyUpdateQuery(tx.Model(resource), query), query)
			if err != nil {
				return err
			}

			res = db.Updates(resource)

			err = res.Error
			if err != nil {
				log.Error(ctx, "error updating resource", err)

				if violations.IsUniqueConstraint(err) ||
					errors.Is(err, gorm.ErrDuplicatedKey) {
					return errs.Wrap(repo.ErrUniqueConstraint, err)
				}

				return err
			}

			return nil
		},
	)
	if err != nil {
		return false, errs.Wrap(repo.ErrUpdateResource, err)
	}

	return res.RowsAffected > 0, nil
}

// Update writes the column values to resource, selected by its primary key
// and the query conditions. Values may be gorm expressions.
func (r *ResourceRepository) Update(
	ctx context.Context,
	resource repo.Resource,
	values map[string]any,
	query repo.Query,
) (bool, error) {
	var res *gorm.DB

	err := r.WithStore(
		ctx, resource, router.Write, func(tx *gorm.DB) error {
			db, err := applyQuery(tx.Model(resource), query)
			if err != nil {
				return err
			}

			res = db.Updates(values)
			if res.Error != nil {
				log.Error(ctx, "error updating resource columns", res.Error)

				if violations.IsUniqueConstraint(res.Error) ||
					errors.Is(res.Error, gorm.ErrDuplicatedKey) {
					return errs.Wrap(repo.ErrUniqueConstraint, res.Error)
				}

				return res.Error
			}

			return nil
		},
	)
	if err != nil {
		return false, errs.Wrap(repo.ErrUpdateResource, err)
	}

	return res.RowsAffected > 0, nil
}

// Set will create an item or update it if it already exists
// It returns an error if there was an error during the operation
func (r *ResourceRepository) Set(ctx context.Context, resource repo.Resource) error {
	return r.WithStore(
		ctx, resource, router.Write, func(tx *gorm.DB) error {
			err := tx.Clauses(
				clause.OnConflict{
					UpdateAll: true,
				},
			).Create(resource).Error
			if err != nil {
				log.Error(ctx, "error setting the resource", err)
				return errs.Wrap(repo.ErrSetResource, err)
			}

			return nil
		},
	)
}

// Transaction wraps a function inside a database transaction on the store of module.
// If txFunc returns no error the transaction is committed, otherwise it is rolled back.
// Note: please dont use Goroutines inside the txFunc as this might lead to panic.
func (r *ResourceRepository) Transaction(ctx context.Context, module model.Module, txFunc repo.TransactionFunc) error {
	if r.tx != nil {
		return txFunc(ctx, r)
	}

	conn := r.router.ResolveConnection(ctx, module, router.Write)

	db, err := r.router.DB(ctx, module, router.Write)
	if err != nil {
		return errs.Wrap(repo.ErrResolveConnection, err)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		return txFunc(ctx, &ResourceRepository{
			router: r.router,
			tx:     tx,
			txConn: conn,
		})
	})
	if err != nil {
		return errs.Wrap(repo.ErrTransaction, err)
	}

	return nil
}

// apply update operations on the db action
//
//nolint:unqueryvet
func applyUpdateQuery(db *gorm.DB, query repo.Query) *gorm.DB {
	if query.UpdateFields.All {
		db = db.Select("*")
	}

	if !query.UpdateFields.All && len(query.UpdateFields.Fields) > 0 {
		db = db.Select(query.UpdateFields.Fields)
	}

	return db
}

// applyQuery applies the query to the database.
func applyQuery(db *gorm.DB, query repo.Query) (*gorm.DB, error) {
	if len(query.CompositeKeyGroup) > 0 {
		baseQuery := db.Session(&gorm.Session{NewDB: true})

		for i, ck := range query.CompositeKeyGroup {
			tk, err := handleCompositeKey(db, ck.CompositeKey)
			if err != nil {
				return nil, err
			}

			if i == 0 {
				baseQuery = baseQuery.Where(tk)
				continue
			}

			if ck.IsStrict {
				baseQuery = baseQuery.Where(tk)
			} else {
				baseQuery = baseQuery.Or(tk)
			}
		}

		db = db.Where(baseQuery)
	}

	for _, pr := range query.PreloadModel {
		db = db.Preload(pr)
	}

	return db, nil
}

func applyOrder(db *gorm.DB, query repo.Query) (*gorm.DB, error) {
	for _, order := range query.OrderFields {
		switch order.Direction {
		case repo.Desc:
			db = db.Order(order.Field + " desc")
		case repo.Asc:
			db = db.Order(order.Field + " asc")
		default:
			return nil, ErrUnsupportedOrderDirective
		}
	}

	return db, nil
}

func applyPagination(db *gorm.DB, query repo.Query) *gorm.DB {
	if query.Limit <= 0 {
		query.Limit = repo.DefaultLimit
	}

	return db.Offset(query.Offset).Limit(query.Limit)
}

// handleCompositeKey applies the composite key to the query.
func handleCompositeKey(db *gorm.DB, compositeKey repo.CompositeKey) (*gorm.DB, error) {
	tx := db.Session(&gorm.Session{NewDB: true})

	for _, cond := range compositeKey.Conds {
		entry := cond.Value
		if entry.Err != nil {
			return nil, entry.Err
		}

		tx = applyFieldCondition(tx, cond.Field, entry.Key, compositeKey.IsStrict)
	}

	return tx, nil
}

func applyFieldCondition(tx *gorm.DB, field string, key repo.Key, isStrict bool) *gorm.DB {
	switch key.Operation {
	case repo.GreaterThan, repo.LessThan, repo.NotEqual:
		return applyCondition(tx, field, string(key.Operation), key.Value, isStrict)
	default:
		return applyFieldEqualCondition(tx, field, key, isStrict)
	}
}

func applyFieldEqualCondition(tx *gorm.DB, field string, key repo.Key, isStrict bool) *gorm.DB {
	switch key.Value {
	case repo.Null:
		return tx.Where(field + " IS NULL")
	case repo.NotNull:
		return tx.Where(field + " IS NOT NULL")
	case repo.NotEmpty:
		return tx.Where(field+" IS NOT NULL").Where(field+" != ?", "")
	case repo.Empty:
		return tx.Where(field+" IS NULL OR "+field+" = ?", "")
	case repo.FalseNull:
		return tx.Where(field+" IS NULL OR "+field+" = ?", false)
	default:
		v := reflect.ValueOf(key.Value)
		isSlice := (v.Kind() == reflect.Slice || v.Kind() == reflect.Array) && v.Type() != reflect.TypeFor[uuid.UUID]()

		if isSlice {
			return applyCondition(tx, field, "IN", key.Value, isStrict)
		}

		return applyCondition(tx, field, "=", key.Value, isStrict)
	}
}

func applyCondition(tx *gorm.DB, field, operator string, value any, isStrict bool) *gorm.DB {
	if isStrict {
		return tx.Where(fmt.Sprintf("%s %s (?)", field, operator), value)
	}

	return tx.Or(fmt.Sprintf("%s %s ?", field, operator), value)
}

