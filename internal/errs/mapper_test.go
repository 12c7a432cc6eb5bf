package errs_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/zeebo/assert"

	"github.com/openkcm/compliance-hub/internal/errs"
)

var (
	errA = errors.New("errA")
	errB = errors.New("errB")
	errC = errors.New("errC")
)

func TestTransform(t *testing.T) {
	notFound := errs.ExposedError{Status: http.StatusNotFound, Code: "NOT_FOUND", Message: "not found"}
	conflict := errs.ExposedError{Status: http.StatusConflict, Code: "CONFLICT", Message: "conflict"}
	locked := errs.ExposedError{Status: http.StatusLocked, Code: "LOCKED", Message: "locked"}

	mapper := errs.NewMapper(
		[]errs.Mapping{
			{InternalErrorChain: []error{errA}, Exposed: notFound},
			{InternalErrorChain: []error{errA, errB}, Exposed: conflict},
		},
		[]errs.Mapping{
			{InternalErrorChain: []error{errC}, Exposed: locked},
		},
	)

	tests := []struct {
		name     string
		err      error
		expected errs.ExposedError
	}{
		{name: "SingleMatch", err: errA, expected: notFound},
		{name: "LongestChainWins", err: errs.Wrap(errA, errB), expected: conflict},
		{name: "PriorityWins", err: fmt.Errorf("%w %w %w", errA, errB, errC), expected: locked},
		{name: "PartialChainIgnored", err: errB, expected: errs.DefaultExposedError},
		{name: "Default", err: errors.New("unknown"), expected: errs.DefaultExposedError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, mapper.Transform(tt.err), tt.expected)
		})
	}
}

func TestTransformDetail(t *testing.T) {
	mapper := errs.NewMapper([]errs.Mapping{{
		InternalErrorChain: []error{errA},
		Exposed:            errs.ExposedError{Status: http.StatusForbidden, Code: "FORBIDDEN"},
		Detail:             func(err error) string { return "detail: " + err.Error() },
	}}, nil)

	got := mapper.Transform(errs.Wrapf(errA, "suspended"))
	assert.Equal(t, got.Status, http.StatusForbidden)
	assert.Equal(t, got.Message, "detail: errA: suspended")
}

func TestWrap(t *testing.T) {
	assert.Equal(t, errs.Wrap(errA, nil), errA)
	assert.Equal(t, errors.Is(errs.Wrap(errA, errB), errB), true)
	assert.Equal(t, errors.Is(errs.Wrapf(errA, "x"), errA), true)
}
