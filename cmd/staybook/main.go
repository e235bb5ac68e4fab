package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"staybook/internal/app/bootstrap"
	"staybook/internal/app/middleware"
	appoutbox "staybook/internal/app/outbox"
	"staybook/internal/app/policies"
	"staybook/internal/app/uow"
	domainlistings "staybook/internal/domain/listings"
	"staybook/internal/infra/broker/kafka"
	"staybook/internal/infra/config"
	mongodb "staybook/internal/infra/db/mongo"
	ginserver "staybook/internal/infra/http/gin"
	"staybook/internal/infra/lock/redis"
	"staybook/internal/infra/obs"
	"staybook/internal/infra/outbox"
	"staybook/internal/infra/security"
	"staybook/internal/infra/storage/memory"
	"staybook/internal/infra/storage/s3"
	"staybook/internal/infra/validation"
)

const devJWTSecret = "staybook-dev-secret"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		obs.NewLogger("prod", "info").Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env, cfg.LogLevel)
	slog.SetDefault(logger)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("staybook stopped with error", "error", err)
		os.Exit(1)
	}
}

type infrastructure struct {
	uow         uow.UoWFactory
	listings    domainlistings.Repository
	outbox      appoutbox.Outbox
	idempotency middleware.IdempotencyStore
	locker      policies.ListingLocker
	receipts    policies.ReceiptStorage
	checks      map[string]func(context.Context) error
	background  []func(context.Context) error
	closers     []func(context.Context) error
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	infra, err := buildInfrastructure(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for i := len(infra.closers) - 1; i >= 0; i-- {
			if err := infra.closers[i](closeCtx); err != nil {
				logger.Warn("close failed", "error", err)
			}
		}
	}()

	fixturesPath := cfg.ListingsFixtures
	if fixturesPath == "" {
		fixturesPath = defaultListingFixturesPath()
	}
	if err := loadListingFixtures(ctx, infra.listings, fixturesPath, cfg.Currency, logger); err != nil {
		logger.Warn("listing fixtures load failed", "error", err, "path", fixturesPath)
	}

	app := bootstrap.Build(bootstrap.Deps{
		UoW:            infra.uow,
		Outbox:         infra.outbox,
		Idempotency:    infra.idempotency,
		Locker:         infra.locker,
		Receipts:       infra.receipts,
		Validator:      validation.NewStructValidator(),
		Logger:         logger,
		AdvancePercent: cfg.AdvancePercent,
		Currency:       cfg.Currency,
		NewID:          uuid.NewString,
	})

	handlers, err := buildHTTPHandlers(cfg, app, logger)
	if err != nil {
		return err
	}
	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{Checks: infra.checks}, handlers)

	for _, job := range infra.background {
		go func(job func(context.Context) error) {
			if err := job(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("background worker stopped", "error", err)
			}
		}(job)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageMode)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("HTTP server stopped")
	return nil
}

func buildInfrastructure(ctx context.Context, cfg config.Config, logger *slog.Logger) (*infrastructure, error) {
	infra := &infrastructure{checks: map[string]func(context.Context) error{}}

	switch cfg.StorageMode {
	case config.StorageMongo:
		client, err := mongodb.New(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		infra.closers = append(infra.closers, client.Close)
		infra.checks["mongo"] = client.Ping
		if err := client.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		factory := mongodb.NewFactory(client.DB)
		infra.uow = factory
		infra.listings = factory.ListingsRepo

		store, err := outbox.NewStore(ctx, client.DB)
		if err != nil {
			return nil, err
		}
		infra.outbox = store
		if infra.idempotency, err = mongodb.NewIdempotencyStore(ctx, client.DB, cfg.IdempotencyTTL); err != nil {
			return nil, err
		}

		if len(cfg.KafkaBrokers) > 0 {
			producer, err := kafka.NewProducer(cfg.KafkaBrokers, kafka.NewConfig(cfg.KafkaClientID))
			if err != nil {
				return nil, err
			}
			infra.closers = append(infra.closers, func(context.Context) error { return producer.Close() })
			worker := &outbox.Worker{
				Store:       store,
				Producer:    producer,
				Logger:      logger.With("component", "outbox"),
				Interval:    cfg.OutboxPollInterval,
				TopicPrefix: cfg.KafkaTopicPrefix,
				Backoff:     cfg.RetryBackoff,
			}
			infra.background = append(infra.background, worker.Run)
		} else {
			logger.Warn("KAFKA_BROKERS not set, outbox records stay pending")
		}
	default:
		factory := memory.NewFactory()
		infra.uow = factory
		infra.listings = factory.ListingsRepo
		infra.outbox = memory.NewOutbox(obs.LogNotifier{Logger: logger})
		infra.idempotency = memory.NewIdempotencyStore(cfg.IdempotencyTTL)
	}

	if cfg.RedisAddr != "" {
		opts := redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.LockTTL,
			Wait:     cfg.LockWait,
		}
		client := redis.NewClient(opts)
		locker := redis.NewLocker(client, opts)
		infra.closers = append(infra.closers, func(context.Context) error { return client.Close() })
		infra.checks["redis"] = locker.Ping
		infra.locker = locker
	} else {
		if cfg.StorageMode == config.StorageMongo {
			logger.Warn("REDIS_ADDR not set, booking creation is serialized per process only")
		}
		infra.locker = memory.NewLocker(cfg.LockWait)
	}

	if cfg.S3Endpoint != "" {
		store, err := s3.NewReceiptStore(cfg.S3Endpoint, cfg.S3UseSSL, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, logger)
		if err != nil {
			return nil, err
		}
		infra.receipts = store
	} else {
		logger.Warn("S3_ENDPOINT not set, receipt uploads are disabled")
		infra.receipts = s3.NoopStore{}
	}
	return infra, nil
}

func buildHTTPHandlers(cfg config.Config, app bootstrap.Application, logger *slog.Logger) (ginserver.Handlers, error) {
	secret := cfg.JWTSecret
	if secret == "" && cfg.IsDevelopment() {
		logger.Warn("JWT_SECRET not set, using the development secret")
		secret = devJWTSecret
	}
	verifier, err := security.NewJWTVerifier(secret, cfg.JWTIssuer)
	if err != nil {
		return ginserver.Handlers{}, err
	}

	handlers := ginserver.Handlers{
		Booking: ginserver.BookingHandler{
			Commands:        app.Commands,
			Queries:         app.Queries,
			Logger:          logger,
			ReceiptMaxBytes: cfg.ReceiptMaxBytes,
		},
		HostBooking:    ginserver.HostBookingHandler{Commands: app.Commands, Queries: app.Queries, Logger: logger},
		Listing:        ginserver.ListingHandler{Queries: app.Queries, Logger: logger},
		HostListing:    ginserver.HostListingHandler{Commands: app.Commands, Queries: app.Queries, Logger: logger},
		Me:             ginserver.MeHandler{Commands: app.Commands, Queries: app.Queries, Logger: logger},
		AuthMiddleware: ginserver.AuthMiddleware{Verifier: verifier, Logger: logger}.Handle,
	}
	if cfg.IsDevelopment() {
		handlers.DevToken = ginserver.DevTokenHandler{Issuer: verifier}.Issue
	}
	return handlers, nil
}
