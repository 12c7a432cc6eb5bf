package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openkcm/compliance-hub/internal/config"
)

const minimalConfig = `
application:
  name: compliance-hub
logger:
  format: json
  level: info
http:
  address: localhost:8082
`

func TestLoadConfig(t *testing.T) {
	t.Run("Should load config with defaults", func(t *testing.T) {
		dir := t.TempDir()
		err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(minimalConfig), 0o600)
		require.NoError(t, err)

		cfg, err := config.LoadConfig(commoncfg.WithPaths(dir))
		require.NoError(t, err)

		assert.Equal(t, "localhost:8082", cfg.HTTP.Address)
		assert.Equal(t, config.CacheLocal, cfg.Cache.Type)
		assert.Equal(t, 30*time.Minute, cfg.Cache.TTL)
		assert.Equal(t, 14, cfg.Tenancy.TrialDays)
		assert.Contains(t, cfg.Tenancy.ExemptPrefixes, "/health/")
		assert.Contains(t, cfg.Tenancy.ReservedSubdomains, "www")
	})

	t.Run("Should fail on invalid values", func(t *testing.T) {
		dir := t.TempDir()
		err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(minimalConfig+"cache:\n  type: memcached\n"), 0o600)
		require.NoError(t, err)

		_, err = config.LoadConfig(commoncfg.WithPaths(dir))
		assert.Error(t, err)
	})
}
