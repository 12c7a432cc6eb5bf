package async

import (
	"github.com/hibiken/asynq"
)

// MockClient records enqueued tasks instead of sending them to redis.
type MockClient struct {
	CallCount int
	LastTask  *asynq.Task
	Error     error
}

var _ Client = (*MockClient)(nil)

func (m *MockClient) Close() error {
	return nil
}

func (m *MockClient) Enqueue(task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	m.CallCount++

	m.LastTask = task
	if m.Error != nil {
		return nil, m.Error
	}

	return &asynq.TaskInfo{ID: "mock-task-id"}, nil
}
