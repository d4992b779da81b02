package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"campuslibrary/internal/admin"
	"campuslibrary/internal/auth"
	"campuslibrary/internal/calendar"
	"campuslibrary/internal/config"
	"campuslibrary/internal/httpapi"
	"campuslibrary/internal/httpmiddleware"
	"campuslibrary/internal/ledger"
	"campuslibrary/internal/notify"
	"campuslibrary/internal/queue"
	"campuslibrary/internal/reminder"
	"campuslibrary/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("warning: .env not loaded: %v", err)
	}
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	// Set Gin mode based on environment
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock, err := calendar.NewClock(cfg.LibraryTZ)
	if err != nil {
		return err
	}
	decoder, err := auth.NewDecoder(cfg.AuthMode, cfg.TokenSigningKey, cfg.TokenIssuer)
	if err != nil {
		return err
	}
	if cfg.AuthMode == "passthrough" {
		log.Println("WARNING: identity tokens are not verified (AUTH_MODE=passthrough)")
	}

	health := map[string]httpapi.HealthCheck{}

	var ledgerStore interface {
		ledger.Store
		admin.Accounts
	}
	switch cfg.StoreBackend {
	case "memory":
		ledgerStore = store.NewMemory(clock.Location())
		log.Println("using in-memory store; data is lost on restart")
	default:
		db, err := store.NewDB(ctx, cfg.DatabaseURL)
		if err != nil {
			_ = db.Close()
			return err
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			return err
		}
		ledgerStore = store.NewLedgerRepository(db.Client, clock.Location())
		health["db"] = db.Healthy
	}

	var redisClient *store.Redis
	if cfg.QueueBackend != "memory" {
		redisClient = store.NewRedis(cfg.RedisAddr)
		defer redisClient.Close()
		health["redis"] = redisClient.Healthy
	}

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(256)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, queue.DefaultKey)
	}

	var limiter httpmiddleware.Limiter = httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin)
	if redisClient != nil {
		limiter = httpmiddleware.NewRedisWindow(redisClient.Client, cfg.RateLimitPerMin)
	}

	gateway, err := notify.NewGateway(cfg.SMTP())
	if err != nil {
		return err
	}

	admins := admin.NewService(ledgerStore, cfg.TokenIssuer, cfg.TokenSigningKey, cfg.AdminTokenTTL)
	if _, err := admins.EnsureDefault(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		return err
	}

	dir := ledger.NewDirectory(cfg.EmailDomain)
	hub := httpapi.NewHub(clock.Location())
	job := reminder.NewJob(ledgerStore, gateway, clock, cfg.NotifySendTimeout, cfg.NotifyConcurrency)
	sched, err := reminder.NewScheduler(job, cfg.ReminderCron, clock.Location())
	if err != nil {
		return err
	}

	r := httpapi.NewRouter(httpapi.Deps{
		Attendance:      ledger.NewAttendanceLedger(ledgerStore, dir, clock, hub),
		Lending:         ledger.NewLendingLedger(ledgerStore, dir, clock, notify.NewQueueNotifier(q)),
		Reports:         ledger.NewReports(ledgerStore, clock),
		Admins:          admins,
		Decoder:         decoder,
		Hub:             hub,
		Clock:           clock,
		Reminders:       job,
		SigningKey:      cfg.TokenSigningKey,
		Issuer:          cfg.TokenIssuer,
		DefaultLoanDays: cfg.DefaultLoanDays,
		Limiter:         limiter,
		Health:          health,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	if cfg.QueueBackend == "memory" {
		// Nobody else can drain an in-process queue.
		dispatcher := notify.NewDispatcher(q, gateway, cfg.NotifySendTimeout)
		g.Go(func() error { return dispatcher.Run(gctx) })
	}
	sched.Start()

	g.Go(func() error {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down server...")

		// Give outstanding requests 10 seconds to complete
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server forced shutdown: %v", err)
		}
		if err := sched.Stop(shutdownCtx); err != nil {
			log.Printf("reminder scheduler did not stop cleanly: %v", err)
		}
		return nil
	})

	err = g.Wait()
	log.Println("Server exited")
	return err
}
