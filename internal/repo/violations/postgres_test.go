package violations_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/openkcm/compliance-hub/internal/repo/violations"
)

var errNotPostgres = errors.New("not postgres")

func TestIsUniqueConstraint(t *testing.T) {
	t.Run("should return false when error is not a postgres error", func(t *testing.T) {
		require.False(t, violations.IsUniqueConstraint(errNotPostgres))
	})

	t.Run("should return true for a pgx error", func(t *testing.T) {
		err := fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: violations.PgUniqueErrCode})
		require.True(t, violations.IsUniqueConstraint(err))
	})

	t.Run("should return true for a lib/pq error", func(t *testing.T) {
		require.True(t, violations.IsUniqueConstraint(&pq.Error{Code: violations.PgUniqueErrCode}))
	})
}

func TestIsAlreadyExists(t *testing.T) {
	for _, code := range []string{
		violations.PgDuplicateSchemaCode,
		violations.PgDuplicateTableCode,
		violations.PgDuplicateObjectCode,
		violations.PgDuplicateDBCode,
	} {
		t.Run(code, func(t *testing.T) {
			require.True(t, violations.IsAlreadyExists(&pgconn.PgError{Code: code}))
		})
	}

	require.False(t, violations.IsAlreadyExists(&pgconn.PgError{Code: violations.PgUniqueErrCode}))
	require.False(t, violations.IsAlreadyExists(errNotPostgres))
}
