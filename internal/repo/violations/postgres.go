package violations

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const (
	PgUniqueErrCode       = "23505" // see https://www.postgresql.org/docs/16/errcodes-appendix.html
	PgDuplicateSchemaCode = "42P06"
	PgDuplicateTableCode  = "42P07"
	PgDuplicateObjectCode = "42710"
	PgDuplicateDBCode     = "42P04"
)

// IsUniqueConstraint checks if the error is a PostgreSQL unique constraint violation
func IsUniqueConstraint(err error) bool {
	return hasCode(err, PgUniqueErrCode)
}

// IsAlreadyExists reports an error raised because a schema, database, role
// or table is already present.
func IsAlreadyExists(err error) bool {
	return hasCode(err, PgDuplicateSchemaCode, PgDuplicateTableCode, PgDuplicateObjectCode, PgDuplicateDBCode)
}

// hasCode matches both driver error shapes: pgx through gorm, lib/pq through goose.
func hasCode(err error, codes ...string) bool {
	var code string

	var pgError *pgconn.PgError

	var pqError *pq.Error

	switch {
	case errors.As(err, &pgError):
		code = pgError.Code
	case errors.As(err, &pqError):
		code = string(pqError.Code)
	default:
		return false
	}

	for _, c := range codes {
		if c == code {
			return true
		}
	}

	return false
}
