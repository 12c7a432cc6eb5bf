package commands

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/openkcm/compliance-hub/internal/manager"
)

// Enqueuer hands a task to the worker queue.
type Enqueuer interface {
	EnqueueTask(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueFunc opens the task queue on first use. Commands that never enqueue
// do not need a reachable queue.
type QueueFunc func() (Enqueuer, error)

type CommandFactory struct {
	tm        *manager.TenantManager
	dm        *manager.DistributionManager
	pm        *manager.PlanManager
	validator *manager.Validator
	queue     QueueFunc
}

func NewCommandFactory(m *manager.Manager, queue QueueFunc) *CommandFactory {
	return &CommandFactory{
		tm:        m.Tenants,
		dm:        m.Distribution,
		pm:        m.Plans,
		validator: m.Validator,
		queue:     queue,
	}
}

// enqueue builds a task and hands it to the queue.
func (f *CommandFactory) enqueue(cmd *cobra.Command, build func() (*asynq.Task, error)) error {
	if f.queue == nil {
		return ErrQueueNotConfigured
	}

	task, err := build()
	if err != nil {
		cmd.PrintErrf("Failed to build task: %v\n", err)
		return err
	}

	queue, err := f.queue()
	if err != nil {
		cmd.PrintErrf("Failed to open task queue: %v\n", err)
		return err
	}

	info, err := queue.EnqueueTask(cmd.Context(), task)
	if err != nil {
		cmd.PrintErrf("Failed to enqueue task: %v\n", err)
		return err
	}

	cmd.Printf("Task %s enqueued: %s\n", task.Type(), info.ID)

	return nil
}
