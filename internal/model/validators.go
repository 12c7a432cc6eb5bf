package model

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/bartventer/gorm-multitenancy/v8/pkg/namespace"

	"github.com/openkcm/compliance-hub/internal/errs"
)

var (
	ErrInvalidSlug        = errors.New("invalid tenant slug")
	ErrReservedSlug       = errors.New("tenant slug is reserved")
	ErrInvalidCompanyName = errors.New("invalid company name")
	ErrInvalidSchemaName  = errors.New("invalid schema name")
)

const (
	MinSlugLength        = 3
	MaxSlugLength        = 50
	MinCompanyNameLength = 2
	MaxCompanyNameLength = 200

	schemaSuffix = "_schema"
)

var (
	slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

	reservedSlugs = map[string]struct{}{
		"postgres": {}, "template0": {}, "template1": {}, "admin": {}, "default": {},
		"public": {}, "master": {}, "root": {}, "system": {}, "api": {}, "www": {},
		"app": {}, "web": {}, "staging": {}, "production": {}, "dev": {}, "static": {},
		"media": {}, "accounts": {}, "test": {}, "demo": {}, "example": {}, "sample": {},
	}

	companyNameForbidden = `<>"'&;`
)

// ValidateSlug checks a tenant slug before any side effect takes place.
func ValidateSlug(slug string) error {
	switch {
	case len(slug) < MinSlugLength || len(slug) > MaxSlugLength:
		return errs.Wrapf(ErrInvalidSlug, "slug must be between 3 and 50 characters")
	case strings.ContainsAny(slug, "_ "):
		return errs.Wrapf(ErrInvalidSlug, "slug cannot contain underscores or spaces")
	case !slugPattern.MatchString(slug):
		return errs.Wrapf(ErrInvalidSlug, "slug may only contain lowercase letters, digits and hyphens")
	case strings.HasPrefix(slug, "-") || strings.HasSuffix(slug, "-"):
		return errs.Wrapf(ErrInvalidSlug, "slug cannot start or end with a hyphen")
	case strings.Contains(slug, "--"):
		return errs.Wrapf(ErrInvalidSlug, "slug cannot contain consecutive hyphens")
	}

	if _, reserved := reservedSlugs[slug]; reserved {
		return errs.Wrapf(ErrReservedSlug, slug)
	}

	return nil
}

// ValidateCompanyName checks the display name of a tenant.
func ValidateCompanyName(name string) error {
	name = strings.TrimSpace(name)

	length := utf8.RuneCountInString(name)
	if length < MinCompanyNameLength || length > MaxCompanyNameLength {
		return errs.Wrapf(ErrInvalidCompanyName, "company name must be between 2 and 200 characters")
	}

	if strings.ContainsAny(name, companyNameForbidden) {
		return errs.Wrapf(ErrInvalidCompanyName, "company name contains invalid characters")
	}

	return nil
}

// SchemaNameForSlug derives the schema (or database) name of a tenant.
// Hyphens are not valid in unquoted identifiers and a leading digit gets a
// letter prefix.
func SchemaNameForSlug(slug string) (string, error) {
	name := strings.ReplaceAll(slug, "-", "_") + schemaSuffix
	if name[0] >= '0' && name[0] <= '9' {
		name = "t_" + name
	}

	err := namespace.Validate(name)
	if err != nil {
		return "", errs.Wrap(ErrInvalidSchemaName, err)
	}

	return name, nil
}
