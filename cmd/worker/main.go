package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"

	"classtrack/internal/attendance"
	"classtrack/internal/config"
	"classtrack/internal/queue"
	"classtrack/internal/school"
	"classtrack/internal/store"
)

// Worker consumes submission events and refreshes class daily summaries.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	if err := store.EnsureSchema(ctx, db.Client); err != nil {
		log.Fatalf("schema bootstrap failed: %v", err)
	}

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "classtrack:submissions")
	}

	schoolRepo := school.NewRepository(db.Client)
	attRepo := attendance.NewRepository(db.Client)
	attSvc := attendance.NewService(schoolRepo, attRepo, nil)

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for messages...")
	for msg := range messages {
		if msg.Type != attendance.EventSubmitted {
			continue
		}

		var evt attendance.SubmittedEvent
		if err := json.Unmarshal(msg.Body, &evt); err != nil {
			log.Printf("bad event payload: %v", err)
			continue
		}

		summary, err := attSvc.RefreshSummary(ctx, evt.ClassID, evt.Date)
		if err != nil {
			log.Printf("refresh summary for class %s on %s failed: %v", evt.ClassID, evt.Date, err)
			continue
		}
		log.Printf("summary class %s %s: %d/%d marked (%d present, %d late, %d absent)",
			summary.ClassID, summary.Date, summary.Marked, summary.RosterSize,
			summary.Present, summary.Late, summary.Absent)
	}

	log.Println("worker stopped")
}
