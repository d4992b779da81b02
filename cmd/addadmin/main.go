package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"campuslibrary/internal/admin"
	"campuslibrary/internal/config"
	"campuslibrary/internal/store"
)

// addadmin creates an admin account or resets its password.
func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("warning: .env not loaded: %v", err)
	}
	username := flag.String("username", "", "admin username")
	password := flag.String("password", "", "admin password")
	flag.Parse()

	if *username == "" || *password == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Load()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("migrate failed: %v", err)
	}

	repo := store.NewLedgerRepository(db.Client, time.UTC)
	svc := admin.NewService(repo, cfg.TokenIssuer, cfg.TokenSigningKey, cfg.AdminTokenTTL)
	if err := svc.SetPassword(ctx, *username, *password); err != nil {
		log.Fatalf("save admin failed: %v", err)
	}
	log.Printf("admin %q saved", *username)
}
