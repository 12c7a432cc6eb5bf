package testutils

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/openkcm/compliance-hub/internal/errs"
)

// callbackError - the error callback name.
const callbackError = "forced_error"

// callback types
const (
	callbackCreate = "create"
	callbackUpdate = "update"
	callbackDelete = "delete"
	callbackQuery  = "query"
	callbackRow    = "row"
	callbackRaw    = "raw"
)

// gorm default callback names
const (
	gormCreate = "gorm:create"
	gormUpdate = "gorm:update"
	gormQuery  = "gorm:query"
	gormDelete = "gorm:delete"
	gormRow    = "gorm:row"
	gormRaw    = "gorm:raw"
)

var allCallbacks = []string{
	callbackCreate,
	callbackUpdate,
	callbackDelete,
	callbackQuery,
	callbackRow,
	callbackRaw,
}

var (
	ErrRegisterFailed   = errors.New("failed to register callback")
	ErrUnregisterFailed = errors.New("failed to unregister callback")
)

// ErrorForced - a helper to force an error in the database using gorm
type ErrorForced struct {
	err       error
	tb        testing.TB
	db        *gorm.DB
	callbacks []string
	onlyFor   []reflect.Type
}

// NewDBErrorForced - creates a new ErrorForced instance.
func NewDBErrorForced(tb testing.TB, db *gorm.DB, forcedErr error) *ErrorForced {
	tb.Helper()

	return &ErrorForced{
		err: forcedErr,
		tb:  tb,
		db:  db,
	}
}

// For restricts the forced error to statements on the given models.
func (e *ErrorForced) For(models ...any) *ErrorForced {
	for _, m := range models {
		t := reflect.TypeOf(m)
		for t.Kind() == reflect.Ptr {
			t = t.Elem()
		}

		e.onlyFor = append(e.onlyFor, t)
	}

	return e
}

func (e *ErrorForced) WithCreate() *ErrorForced {
	e.callbacks = append(e.callbacks, callbackCreate)
	return e
}

func (e *ErrorForced) WithUpdate() *ErrorForced {
	e.callbacks = append(e.callbacks, callbackUpdate)
	return e
}

func (e *ErrorForced) WithDelete() *ErrorForced {
	e.callbacks = append(e.callbacks, callbackDelete)
	return e
}

func (e *ErrorForced) WithQuery() *ErrorForced {
	e.callbacks = append(e.callbacks, callbackQuery)
	return e
}

func (e *ErrorForced) WithRow() *ErrorForced {
	e.callbacks = append(e.callbacks, callbackRow)
	return e
}

func (e *ErrorForced) WithRaw() *ErrorForced {
	e.callbacks = append(e.callbacks, callbackRaw)
	return e
}

// Callbacks lists the registered callback kinds.
func (e *ErrorForced) Callbacks() []string {
	return e.callbacks
}

// Register - registers the error callback and removes it on test cleanup.
func (e *ErrorForced) Register() {
	if len(e.callbacks) == 0 {
		e.callbacks = append([]string(nil), allCallbacks...)
	}

	for _, callback := range e.callbacks {
		err := e.registerCallback(callback)
		assert.NoError(e.tb, err)
	}
}

// Unregister - unregisters the error callback.
func (e *ErrorForced) Unregister() {
	for _, callback := range e.callbacks {
		err := e.unregisterCallback(callback)
		assert.NoError(e.tb, err)
	}

	e.callbacks = nil
}

func (e *ErrorForced) inject(db *gorm.DB) {
	if len(e.onlyFor) > 0 {
		if db.Statement.Schema == nil {
			return
		}

		matched := false

		for _, t := range e.onlyFor {
			if db.Statement.Schema.ModelType == t {
				matched = true
				break
			}
		}

		if !matched {
			return
		}
	}

	_ = db.AddError(e.err)
}

func (e *ErrorForced) registerCallback(callback string) error {
	var err error

	switch callback {
	case callbackCreate:
		err = e.db.Callback().Create().Before(gormCreate).Register(callbackError, e.inject)
	case callbackUpdate:
		err = e.db.Callback().Update().Before(gormUpdate).Register(callbackError, e.inject)
	case callbackDelete:
		err = e.db.Callback().Delete().Before(gormDelete).Register(callbackError, e.inject)
	case callbackQuery:
		err = e.db.Callback().Query().Before(gormQuery).Register(callbackError, e.inject)
	case callbackRow:
		err = e.db.Callback().Row().Before(gormRow).Register(callbackError, e.inject)
	case callbackRaw:
		err = e.db.Callback().Raw().Before(gormRaw).Register(callbackError, e.inject)
	}

	if err != nil {
		return errs.Wrap(ErrRegisterFailed, err)
	}

	return nil
}

func (e *ErrorForced) unregisterCallback(callback string) error {
	var err error

	switch callback {
	case callbackCreate:
		err = e.db.Callback().Create().Remove(callbackError)
	case callbackUpdate:
		err = e.db.Callback().Update().Remove(callbackError)
	case callbackDelete:
		err = e.db.Callback().Delete().Remove(callbackError)
	case callbackQuery:
		err = e.db.Callback().Query().Remove(callbackError)
	case callbackRow:
		err = e.db.Callback().Row().Remove(callbackError)
	case callbackRaw:
		err = e.db.Callback().Raw().Remove(callbackError)
	}

	if err != nil {
		return errs.Wrap(ErrUnregisterFailed, err)
	}

	return nil
}
