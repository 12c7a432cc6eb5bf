package apierrors

import (
	"slices"

	"github.com/openkcm/compliance-hub/internal/errs"
)

var APIErrorMapper = errs.NewMapper(slices.Concat(
	tenancy,
	authorization,
	lifecycle,
	distribution,
	customization,
	defaultMapper,
), highPrio)

// Transform resolves err against every API mapping.
func Transform(err error) errs.ExposedError {
	return APIErrorMapper.Transform(err)
}
