package reminder

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"pms/internal/model"
	"pms/internal/repository"

	"github.com/google/uuid"
)

// TaskLoader loads a task together with its assignee.
type TaskLoader interface {
	GetWithAssignee(ctx context.Context, id uuid.UUID) (*model.Task, error)
}

// Worker consumes reminder jobs and passes each task to the notifier.
type Worker struct {
	queue       Queue
	tasks       TaskLoader
	notifier    Notifier
	pollTimeout time.Duration
}

func NewWorker(queue Queue, tasks TaskLoader, notifier Notifier) *Worker {
	return &Worker{queue: queue, tasks: tasks, notifier: notifier, pollTimeout: 5 * time.Second}
}

// Run processes jobs until ctx is cancelled. Failed jobs are logged and dropped.
func (w *Worker) Run(ctx context.Context) error {
	for {
		id, err := w.queue.Dequeue(ctx, w.pollTimeout)
		switch {
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, ErrEmpty):
			continue
		case err != nil:
			log.Printf("⚠️  reminder queue: %v", err)
			// avoid spinning on a broken connection
			select {
			case <-time.After(w.pollTimeout):
			case <-ctx.Done():
				return nil
			}
			continue
		}

		if err := w.Handle(ctx, id); err != nil {
			log.Printf("⚠️  reminder for task %s failed: %v", id, err)
		}
	}
}

// Drain processes jobs until the queue stays empty for one poll, and returns the
// number of reminders sent.
func (w *Worker) Drain(ctx context.Context) (int, error) {
	sent := 0
	for {
		id, err := w.queue.Dequeue(ctx, time.Second)
		if errors.Is(err, ErrEmpty) {
			return sent, nil
		}
		if err != nil {
			return sent, err
		}
		if err := w.Handle(ctx, id); err != nil {
			log.Printf("⚠️  reminder for task %s failed: %v", id, err)
			continue
		}
		sent++
	}
}

// Handle sends the reminder for one task. Tasks that were deleted, finished or
// unassigned since the scan are skipped.
func (w *Worker) Handle(ctx context.Context, taskID uuid.UUID) error {
	task, err := w.tasks.GetWithAssignee(ctx, taskID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load task: %w", err)
	}
	if task.Status == model.TaskDone || task.AssignedTo == nil || task.DueDate == nil {
		return nil
	}
	return w.notifier.SendDeadlineReminder(ctx, task)
}
