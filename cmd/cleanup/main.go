// cleanup periodically removes expired and long-idle sessions. Run as a
// sidecar or cron-style job; CLEANUP_INTERVAL controls the period.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ecomconsole/backend/internal/auth/service"
	"ecomconsole/backend/internal/config"
	"ecomconsole/backend/internal/db"
	sessionrepo "ecomconsole/backend/internal/session/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	pool, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	sessions := sessionrepo.NewPostgresRepository(pool)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("cleanup: shutting down...")
		cancel()
	}()

	interval := cfg.CleanupEvery()
	log.Printf("cleanup: removing dead sessions every %v", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	runOnce(ctx, sessions)
	for {
		select {
		case <-ctx.Done():
			log.Println("cleanup: stopped")
			return
		case <-ticker.C:
			runOnce(ctx, sessions)
		}
	}
}

func runOnce(ctx context.Context, sessions *sessionrepo.PostgresRepository) {
	runCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	svc := service.NewSessionJanitor(sessions)
	removed, err := svc.Sweep(runCtx)
	if err != nil {
		log.Printf("cleanup: sweep failed: %v", err)
		return
	}
	if removed > 0 {
		log.Printf("cleanup: removed %d sessions", removed)
	}
}
