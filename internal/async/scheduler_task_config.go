package async

import (
	"maps"
	"slices"

	"github.com/hibiken/asynq"

	"github.com/openkcm/compliance-hub/internal/config"
)

// ScheduledTaskConfigProvider implements asynq PeriodicTaskConfigProvider interface.
type ScheduledTaskConfigProvider struct {
	Config *config.Config
}

// GetConfigs returns the default schedule of every periodic task with the
// configured tasks replacing the defaults of their type.
func (p *ScheduledTaskConfigProvider) GetConfigs() ([]*asynq.PeriodicTaskConfig, error) {
	tasks := maps.Clone(config.PeriodicTasks)

	for _, task := range p.Config.Scheduler.Tasks {
		tasks[task.TaskType] = task
	}

	configs := make([]*asynq.PeriodicTaskConfig, 0, len(tasks))

	for _, taskType := range slices.Sorted(maps.Keys(tasks)) {
		cfg := tasks[taskType]

		configs = append(configs, &asynq.PeriodicTaskConfig{
			Cronspec: cfg.Cronspec,
			Task: asynq.NewTask(
				taskType,
				nil,
				asynq.MaxRetry(cfg.Retries),
			),
		})
	}

	return configs, nil
}
