package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openkcm/compliance-hub/internal/config"
	"github.com/openkcm/compliance-hub/internal/db"
)

func TestDBMigratorRun(t *testing.T) {
	tests := []struct {
		name          string
		migrationType string
		target        string
	}{
		{name: "Should fail on unsupported type", migrationType: "error", target: defaultTarget},
		{name: "Should fail on unsupported target", migrationType: defaultType, target: "everything"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			*migrationType = tt.migrationType
			*target = tt.target

			t.Cleanup(func() {
				*migrationType = defaultType
				*target = defaultTarget
			})

			err := run(t.Context(), &config.Config{})
			assert.ErrorIs(t, err, db.ErrUnsupportedMigration)
		})
	}
}
