package queuesvc

import (
	"context"
	"sync"

	"github.com/trezcool/darasa/core/prediction"
)

// InmemQueue is an in-process prediction.Queue for tests and local dev.
// A publish error can be injected to exercise billed-but-not-queued paths.
type InmemQueue struct {
	mu         sync.Mutex
	tasks      []prediction.Task
	publishErr error
}

var _ prediction.Queue = (*InmemQueue)(nil)

func NewInmemQueue() *InmemQueue {
	return &InmemQueue{tasks: make([]prediction.Task, 0)}
}

func (q *InmemQueue) Publish(ctx context.Context, task prediction.Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.publishErr != nil {
		return q.publishErr
	}
	q.tasks = append(q.tasks, task)
	return nil
}

// FailPublishWith makes subsequent publishes return err; nil restores normal
// operation.
func (q *InmemQueue) FailPublishWith(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.publishErr = err
}

func (q *InmemQueue) Tasks() []prediction.Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	tasks := make([]prediction.Task, len(q.tasks))
	copy(tasks, q.tasks)
	return tasks
}

// Pop removes and returns the oldest queued task, reporting ok=false when the
// queue is empty.
func (q *InmemQueue) Pop() (prediction.Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tasks) == 0 {
		return prediction.Task{}, false
	}
	task := q.tasks[0]
	q.tasks = q.tasks[1:]
	return task, true
}
