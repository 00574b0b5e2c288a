package reminder

import (
	"context"
	"fmt"
	"log"
	"time"

	"pms/internal/model"
	"pms/internal/validation"

	"golang.org/x/sync/singleflight"
)

// DueTasks finds the open, assigned tasks due on a given day.
type DueTasks interface {
	DueOn(ctx context.Context, day time.Time) ([]model.Task, error)
}

// Scanner enqueues a reminder job for every task due the day after today.
type Scanner struct {
	tasks  DueTasks
	queue  Queue
	ledger Ledger
	group  singleflight.Group
}

func NewScanner(tasks DueTasks, queue Queue, ledger Ledger) *Scanner {
	return &Scanner{tasks: tasks, queue: queue, ledger: ledger}
}

// Scan returns how many jobs were enqueued. Concurrent scans for the same day share
// one run, and tasks already claimed in the ledger for that day are skipped, so
// repeated scans never enqueue a task twice.
func (s *Scanner) Scan(ctx context.Context, today time.Time) (int, error) {
	tomorrow := validation.Day(today).AddDate(0, 0, 1)

	v, err, _ := s.group.Do(tomorrow.Format(validation.DateLayout), func() (any, error) {
		tasks, err := s.tasks.DueOn(ctx, tomorrow)
		if err != nil {
			return 0, fmt.Errorf("find tasks due %s: %w", tomorrow.Format(validation.DateLayout), err)
		}
		queued := 0
		for _, t := range tasks {
			fresh, err := s.ledger.Claim(ctx, t.ID, tomorrow)
			if err != nil {
				return queued, err
			}
			if !fresh {
				continue
			}
			if err := s.queue.Enqueue(ctx, t.ID); err != nil {
				if rerr := s.ledger.Release(ctx, t.ID, tomorrow); rerr != nil {
					log.Printf("⚠️  releasing reminder claim for task %s: %v", t.ID, rerr)
				}
				return queued, err
			}
			queued++
		}
		return queued, nil
	})
	return v.(int), err
}
