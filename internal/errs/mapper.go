package errs

import (
	"errors"
	"net/http"
)

// ExposedError is the caller facing view of an internal error.
type ExposedError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e ExposedError) Error() string {
	return e.Code + ": " + e.Message
}

// Mapping binds a chain of internal errors to the error exposed for them.
// Detail, when set, replaces the exposed message with one derived from the
// matched error.
type Mapping struct {
	InternalErrorChain []error
	Exposed            ExposedError
	Detail             func(err error) string
}

type ErrorMapper struct {
	Mappings         []Mapping
	PriorityMappings []Mapping
	Default          ExposedError
}

var DefaultExposedError = ExposedError{
	Status:  http.StatusInternalServerError,
	Code:    "INTERNAL_ERROR",
	Message: "internal error, contact support",
}

func NewMapper(mappings []Mapping, priority []Mapping) ErrorMapper {
	return ErrorMapper{
		Mappings:         mappings,
		PriorityMappings: priority,
		Default:          DefaultExposedError,
	}
}

// Transform has the following rules to find the best match:
// 1. If error is in priority return the priority one
// 2. Return the mapping containing the highest number of errors in err chain
// 3. If no error found return the default
func (m *ErrorMapper) Transform(internalErr error) ExposedError {
	for _, p := range m.PriorityMappings {
		if countMatchingErrors(internalErr, p.InternalErrorChain) > 0 {
			return expose(p, internalErr)
		}
	}

	best, ok := m.bestMatch(internalErr)
	if !ok {
		return m.Default
	}

	return expose(best, internalErr)
}

func expose(m Mapping, err error) ExposedError {
	exposed := m.Exposed
	if m.Detail != nil {
		exposed.Message = m.Detail(err)
	}

	return exposed
}

// bestMatch returns the first mapping whose whole chain is in err with the
// longest chain winning.
func (m *ErrorMapper) bestMatch(err error) (Mapping, bool) {
	var (
		best     Mapping
		bestSize int
	)

	for _, mapping := range m.Mappings {
		count := countMatchingErrors(err, mapping.InternalErrorChain)
		if count == 0 || count < len(mapping.InternalErrorChain) {
			continue
		}

		if count > bestSize {
			best, bestSize = mapping, count
		}
	}

	return best, bestSize > 0
}

// countMatchingErrors counts the number of errors in candidates that match err
func countMatchingErrors(err error, candidates []error) int {
	matchCount := 0

	for _, candidateErr := range candidates {
		if errors.Is(err, candidateErr) {
			matchCount++
		}
	}

	return matchCount
}
