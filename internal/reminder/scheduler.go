package reminder

import (
	"context"
	"log"
	"time"
)

// Scheduler runs the scanner once at start and then every interval.
type Scheduler struct {
	scanner  *Scanner
	interval time.Duration
	now      func() time.Time
}

func NewScheduler(scanner *Scanner, interval time.Duration) *Scheduler {
	return &Scheduler{scanner: scanner, interval: interval, now: time.Now}
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.scan(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) scan(ctx context.Context) {
	n, err := s.scanner.Scan(ctx, s.now())
	if err != nil {
		log.Printf("⚠️  deadline reminder scan failed: %v", err)
		return
	}
	log.Printf("⏰ Queued %d deadline reminders", n)
}
