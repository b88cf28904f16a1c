package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chemdist-fulfillment/config"
	httpHandler "chemdist-fulfillment/internal/adapter/http/handler"
	pgStorage "chemdist-fulfillment/internal/adapter/storage/postgres"
	redisStorage "chemdist-fulfillment/internal/adapter/storage/redis"
	"chemdist-fulfillment/internal/core/ports"
	"chemdist-fulfillment/internal/service"
	"chemdist-fulfillment/pkg/logger"
)

const outboxFlushInterval = 30 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting order fulfillment service")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	walletRepo := pgStorage.NewWalletRepo(pool)
	orderRepo := pgStorage.NewOrderRepo(pool)
	verificationRepo := pgStorage.NewVerificationRepo(pool)
	eventRepo := pgStorage.NewEventRepo(pool)
	staffRepo := pgStorage.NewStaffRepo(pool)
	auditRepo := pgStorage.NewAuditRepository(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize core services
	sigSvc := service.NewHMACSignatureService()
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	// Outbox emitter with the logging publisher stub; downstream consumers
	// (SMS dispatch, email, CRM) subscribe out of process.
	publisher := service.NewLogPublisher(log)
	emitter := service.NewEventEmitter(eventRepo, publisher, sigSvc, cfg.Event.Secret, log)

	// SMS sender with Redis-backed daily counters
	smsStats := redisStorage.NewSMSStatsStore(rdb)
	smsSender := redisStorage.NewInstrumentedSMSSender(service.NewLogSMSSender(log), smsStats, log)

	// Initialize business services
	authSvc := service.NewAuthService(staffRepo, hashSvc, tokenSvc)
	walletSvc := service.NewWalletService(walletRepo, orderRepo, emitter, transactor, cfg.Payment.Currency, log)
	orderSvc := service.NewOrderService(orderRepo, cfg.Payment.Currency, log)
	paymentSvc := service.NewPaymentService(orderRepo, walletRepo, walletSvc, emitter, transactor, cfg.Payment.GraceDays, cfg.Payment.Currency, log)
	deliverySvc := service.NewDeliveryService(orderRepo, verificationRepo, smsSender, emitter, transactor, log)
	custodySvc := service.NewCustodyService(orderRepo, walletSvc, deliverySvc, emitter, transactor, log)
	locationSvc := service.NewLocationService(orderRepo)
	reportingSvc := service.NewReportingService(orderRepo)
	auditSvc := service.NewAuditService(auditRepo, log)

	// Initialize rate limit store
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:        authSvc,
		OrderSvc:       orderSvc,
		PaymentSvc:     paymentSvc,
		CustodySvc:     custodySvc,
		DeliverySvc:    deliverySvc,
		WalletSvc:      walletSvc,
		LocationSvc:    locationSvc,
		ReportingSvc:   reportingSvc,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		AuditSvc:       auditSvc,
		Currency:       cfg.Payment.Currency,
		Logger:         log,
	})

	// Background outbox dispatcher: retries events whose initial dispatch
	// failed or was interrupted by a crash.
	flushCtx, stopFlush := context.WithCancel(ctx)
	defer stopFlush()
	go func() {
		ticker := time.NewTicker(outboxFlushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-flushCtx.Done():
				return
			case <-ticker.C:
				sent, err := emitter.Flush(flushCtx, cfg.Event.BatchSize)
				if err != nil {
					log.Warn().Err(err).Msg("outbox flush failed")
					continue
				}
				if sent > 0 {
					log.Info().Int("sent", sent).Msg("outbox backlog flushed")
				}
			}
		}
	}()

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	stopFlush()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
