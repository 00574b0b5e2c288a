package reminder

import (
	"context"
	"fmt"
	"log"

	"pms/internal/config"

	"github.com/redis/go-redis/v9"
)

// TaskStore is what the scanner and the worker read.
type TaskStore interface {
	DueTasks
	TaskLoader
}

// Pipeline is the configured scanner, worker and the resources they hold.
type Pipeline struct {
	Scanner *Scanner
	Worker  *Worker
	close   func() error
}

func (p *Pipeline) Close() error {
	if p.close == nil {
		return nil
	}
	return p.close()
}

// Setup picks the queue (Redis when REDIS_ADDR is set, memory otherwise) and the
// notifier (SMTP when SMTP_HOST is set, log otherwise).
func Setup(ctx context.Context, cfg *config.Config, tasks TaskStore) (*Pipeline, error) {
	p := &Pipeline{}

	var (
		queue  Queue
		ledger Ledger
	)
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("❌ failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		log.Printf("✅ Reminder queue on redis %s", cfg.RedisAddr)
		queue = NewRedisQueue(client, QueueKey)
		ledger = NewRedisLedger(client, LedgerPrefix)
		p.close = client.Close
	} else {
		log.Println("⚠️  REDIS_ADDR not set, reminder queue is in-process")
		queue = NewMemoryQueue(1024)
		// без Redis повторный запуск процесса может повторить напоминание
		ledger = NewMemoryLedger()
	}

	var notifier Notifier = LogNotifier{}
	if cfg.SMTPHost != "" {
		notifier = NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)
	}

	p.Scanner = NewScanner(tasks, queue, ledger)
	p.Worker = NewWorker(queue, tasks, notifier)
	return p, nil
}
