// Command reminders runs one deadline-reminder scan and sends the queued reminders.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"pms/internal/config"
	"pms/internal/database"
	"pms/internal/reminder"
	"pms/internal/repository"

	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	store := repository.NewStore(db)

	pipeline, err := reminder.Setup(ctx, cfg, store.Tasks)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	defer pipeline.Close()

	scanned := make(chan struct{})
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(scanned)
		n, err := pipeline.Scanner.Scan(ctx, time.Now())
		if err != nil {
			return err
		}
		log.Printf("⏰ Queued %d deadline reminders", n)
		return nil
	})
	g.Go(func() error {
		total := 0
		for {
			sent, err := pipeline.Worker.Drain(ctx)
			total += sent
			if err != nil {
				return err
			}
			select {
			case <-scanned:
				// последний проход после завершения сканирования
				sent, err := pipeline.Worker.Drain(ctx)
				total += sent
				log.Printf("✅ Sent %d deadline reminders", total)
				return err
			default:
			}
		}
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("❌ Deadline reminder run failed: %v", err)
	}
}
