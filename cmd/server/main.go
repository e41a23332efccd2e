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

	"ecomconsole/backend/internal/audit"
	auditrepo "ecomconsole/backend/internal/audit/repository"
	authhandler "ecomconsole/backend/internal/auth/handler"
	"ecomconsole/backend/internal/auth/service"
	"ecomconsole/backend/internal/config"
	"ecomconsole/backend/internal/db"
	healthhandler "ecomconsole/backend/internal/health/handler"
	menurepo "ecomconsole/backend/internal/menu/repository"
	"ecomconsole/backend/internal/permission"
	"ecomconsole/backend/internal/security"
	"ecomconsole/backend/internal/server"
	sessionrepo "ecomconsole/backend/internal/session/repository"
	"ecomconsole/backend/internal/telemetry"
	otelsetup "ecomconsole/backend/internal/telemetry/otel"
	"ecomconsole/backend/internal/telemetry/producer"
	userrepo "ecomconsole/backend/internal/user/repository"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()

	pool, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	signer, err := security.LoadSigner(cfg.JWTPrivateKey)
	if err != nil {
		log.Fatalf("jwt private key: %v", err)
	}
	verifier, err := security.LoadVerifier(cfg.JWTPublicKey)
	if err != nil {
		log.Fatalf("jwt public key: %v", err)
	}
	tokens := security.NewTokenProvider(signer, verifier, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL())

	providers, err := otelsetup.NewProviders(ctx, cfg.OTLPEndpoint, "console-auth", cfg.Env != "production")
	if err != nil {
		log.Fatalf("otel: %v", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			log.Printf("otel shutdown: %v", err)
		}
	}()

	emitters := telemetry.Multi{otelsetup.NewEmitter(providers.LoggerProvider)}
	if kafkaEmitter := producer.NewKafkaEmitter(cfg.TelemetryKafkaBrokersList(), cfg.TelemetryKafkaTopic); kafkaEmitter != nil {
		defer kafkaEmitter.Close()
		emitters = append(emitters, kafkaEmitter)
	}

	encoder := permission.NewEncoder(menurepo.NewPostgresRepository(pool))
	tokenSvc := service.NewTokenService(
		userrepo.NewPostgresRepository(pool),
		sessionrepo.NewPostgresRepository(pool),
		encoder,
		tokens,
		security.NewHasher(cfg.BcryptCost),
		cfg.RefreshTTL(),
	)
	auditor := audit.NewLogger(auditrepo.NewPostgresRepository(pool))

	router := server.NewRouter(server.Deps{
		Tokens:        tokens,
		TokenService:  tokenSvc,
		Auth:          authhandler.New(tokenSvc, auditor, cfg.SecureCookies),
		Health:        healthhandler.New(pool),
		AdminRoleIDs:  cfg.AdminRoleIDList(),
		ExtendWindow:  cfg.ExtendWindow(),
		RefreshWindow: cfg.RefreshWindow(),
		Tracer:        providers.TracerProvider.Tracer("console-auth/http"),
		Emitter:       emitters,
		Auditor:       auditor,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	log.Println("HTTP server stopped")
}
