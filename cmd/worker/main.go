package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"campuslibrary/internal/config"
	"campuslibrary/internal/notify"
	"campuslibrary/internal/queue"
	"campuslibrary/internal/store"
)

// Worker drains queued notifications from redis into the mail gateway.
func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("warning: .env not loaded: %v", err)
	}
	cfg := config.Load()
	if cfg.QueueBackend == "memory" {
		log.Fatal("QUEUE_BACKEND=memory is drained by the api process; the worker needs redis")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()
	if !redisClient.Healthy(ctx) {
		log.Printf("WARNING: redis at %s not reachable, consumer will keep retrying", cfg.RedisAddr)
	}

	gateway, err := notify.NewGateway(cfg.SMTP())
	if err != nil {
		log.Fatalf("smtp gateway: %v", err)
	}

	q := queue.NewRedisQueue(redisClient.Client, queue.DefaultKey)
	dispatcher := notify.NewDispatcher(q, gateway, cfg.NotifySendTimeout)

	log.Println("worker started, waiting for messages...")
	if err := dispatcher.Run(ctx); err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}
	log.Println("worker stopped")
}
