package async_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openkcm/compliance-hub/internal/async"
	"github.com/openkcm/compliance-hub/internal/config"
)

func TestGetConfigs(t *testing.T) {
	t.Run("Default only", func(t *testing.T) {
		p := async.ScheduledTaskConfigProvider{
			Config: &config.Config{
				Scheduler: config.Scheduler{Tasks: []config.Task{}},
			},
		}

		configs, err := p.GetConfigs()
		require.NoError(t, err)
		require.Len(t, configs, 2)
		assert.Equal(t, config.TypeFrameworkVersionCheck, configs[0].Task.Type())
		assert.Equal(t, config.PeriodicTasks[config.TypeFrameworkVersionCheck].Cronspec, configs[0].Cronspec)
		assert.Equal(t, config.TypeExpireTrials, configs[1].Task.Type())
	})

	t.Run("Config overrides default", func(t *testing.T) {
		p := async.ScheduledTaskConfigProvider{
			Config: &config.Config{
				Scheduler: config.Scheduler{
					Tasks: []config.Task{
						{
							TaskType: config.TypeExpireTrials,
							Cronspec: "*/5 * * * *",
							Retries:  1,
						},
					},
				},
			},
		}

		configs, err := p.GetConfigs()
		require.NoError(t, err)
		require.Len(t, configs, 2)
		assert.Equal(t, config.TypeExpireTrials, configs[1].Task.Type())
		assert.Equal(t, "*/5 * * * *", configs[1].Cronspec)
	})
}
