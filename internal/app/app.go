package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Shiyikai2002/student-trading-platform/internal/adapter/email"
	mongoadapter "github.com/Shiyikai2002/student-trading-platform/internal/adapter/mongo"
	natsadapter "github.com/Shiyikai2002/student-trading-platform/internal/adapter/nats"
	redisadapter "github.com/Shiyikai2002/student-trading-platform/internal/adapter/redis"
	s3storage "github.com/Shiyikai2002/student-trading-platform/internal/adapter/storage/s3"
	"github.com/Shiyikai2002/student-trading-platform/internal/app/config"
	"github.com/Shiyikai2002/student-trading-platform/internal/domain/entity"
	"github.com/Shiyikai2002/student-trading-platform/internal/middleware"
	"github.com/Shiyikai2002/student-trading-platform/internal/platform/logger"
	"github.com/Shiyikai2002/student-trading-platform/internal/platform/metrics"
	"github.com/Shiyikai2002/student-trading-platform/internal/platform/tracer"
	httpport "github.com/Shiyikai2002/student-trading-platform/internal/port/http"
	"github.com/Shiyikai2002/student-trading-platform/internal/service"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type App struct {
	cfg            *config.Config
	log            logger.Logger
	server         *httpport.Server
	metricsServer  *http.Server
	tracerProvider *sdktrace.TracerProvider
	mongoClient    *mongo.Client
	redisClient    *redis.Client
	natsConn       *nats.Conn
}

func New(cfg *config.Config) (*App, error) {
	ctx := context.Background()

	appLogger := logger.NewZapLogger(logger.ZapLoggerConfig{
		Level:      cfg.Logger.Level,
		Encoding:   cfg.Logger.Encoding,
		TimeFormat: cfg.Logger.TimeFormat,
	})
	appLogger.Info("Logger initialized")
	appLogger.Infof("Configuration loaded: Env=%s, HTTP Port: %s", cfg.Env, cfg.HTTPServer.Port)

	tp := tracer.InitTracer(cfg.Tracing.ServiceName, cfg.Tracing.OTLPEndpoint, appLogger)

	appLogger.Info("Initializing MongoDB client...")
	mongoClient, err := mongoadapter.NewClient(ctx, cfg.MongoDB)
	if err != nil {
		appLogger.Errorf("Failed to initialize MongoDB client: %v", err)
		return nil, fmt.Errorf("failed to initialize MongoDB client: %w", err)
	}
	appLogger.Info("MongoDB client initialized successfully")
	db := mongoClient.Database(cfg.MongoDB.Database)

	appLogger.Info("Initializing Redis client...")
	redisClient, err := redisadapter.NewClient(ctx, cfg.Redis)
	if err != nil {
		appLogger.Errorf("Failed to initialize Redis client: %v", err)
		_ = mongoClient.Disconnect(ctx)
		return nil, fmt.Errorf("failed to initialize Redis client: %w", err)
	}
	appLogger.Info("Redis client initialized successfully")

	natsConn, err := natsadapter.NewConnection(cfg.NATS, appLogger)
	if err != nil {
		_ = mongoClient.Disconnect(ctx)
		_ = redisClient.Close()
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	publisher, err := natsadapter.NewPublisher(natsConn)
	if err != nil {
		natsConn.Close()
		_ = mongoClient.Disconnect(ctx)
		_ = redisClient.Close()
		return nil, fmt.Errorf("failed to create NATS publisher: %w", err)
	}

	storage, err := s3storage.NewS3Storage(ctx, cfg.S3, appLogger)
	if err != nil {
		natsConn.Close()
		_ = mongoClient.Disconnect(ctx)
		_ = redisClient.Close()
		return nil, fmt.Errorf("failed to initialize image storage: %w", err)
	}

	var emailSender service.EmailSender
	if cfg.SMTP.Enabled() {
		sender, err := email.NewSMTPSender(cfg.SMTP, appLogger)
		if err != nil {
			appLogger.Warnf("SMTP sender unavailable, sale notifications disabled: %v", err)
		} else {
			emailSender = sender
		}
	} else {
		appLogger.Info("SMTP is not configured, sale notifications disabled")
	}

	metricsManager := metrics.NewMetricsManager()
	metricsServer := metrics.NewMetricsServer(cfg.Metrics.Port, appLogger, metricsManager.Registry)

	userRepo := mongoadapter.NewUserRepository(db, appLogger)
	itemRepo := mongoadapter.NewItemRepository(db, appLogger)
	txRepo := mongoadapter.NewTransactionRepository(db, appLogger)
	offerRepo := mongoadapter.NewOfferRepository(db, appLogger)
	messageRepo := mongoadapter.NewMessageRepository(db, appLogger)
	reportRepo := mongoadapter.NewReportRepository(db, appLogger)
	reviewRepo := mongoadapter.NewReviewRepository(db, appLogger)
	userRatingRepo := mongoadapter.NewUserRatingRepository(db, appLogger)
	wishlistRepo := mongoadapter.NewWishlistRepository(db, appLogger)
	txManager := mongoadapter.NewTxManager(mongoClient)
	itemCache := redisadapter.NewItemCache(redisClient)
	cartRepo := redisadapter.NewCartRepository(redisClient)
	appLogger.Info("Repositories initialized")

	jwtManager, err := middleware.NewJWTManager(cfg.JWT.Secret, cfg.JWT.TTL)
	if err != nil {
		natsConn.Close()
		_ = mongoClient.Disconnect(ctx)
		_ = redisClient.Close()
		return nil, fmt.Errorf("failed to initialize JWT manager: %w", err)
	}

	userService := service.NewUserService(userRepo, jwtManager, storage, appLogger, service.UserServiceConfig{
		InstitutionalDomain: cfg.Users.InstitutionalDomain,
	})
	catalogService := service.NewCatalogService(service.CatalogDeps{
		Items:        itemRepo,
		Cache:        itemCache,
		Users:        userRepo,
		Offers:       offerRepo,
		Reports:      reportRepo,
		Reviews:      reviewRepo,
		Wishlist:     wishlistRepo,
		Transactions: txRepo,
		TxManager:    txManager,
		Storage:      storage,
		Publisher:    publisher,
		Metrics:      metricsManager,
	}, appLogger, service.CatalogServiceConfig{ItemCacheTTL: cfg.Cache.ItemTTL})
	settlementService := service.NewSettlementService(service.SettlementDeps{
		Users:        userRepo,
		Items:        itemRepo,
		Transactions: txRepo,
		Offers:       offerRepo,
		Carts:        cartRepo,
		Cache:        itemCache,
		TxManager:    txManager,
		Publisher:    publisher,
		Email:        emailSender,
		Metrics:      metricsManager,
	}, appLogger, service.SettlementServiceConfig{CartTTL: cfg.Cart.TTL})
	messagingService := service.NewMessagingService(messageRepo, userRepo, publisher, metricsManager, appLogger)
	moderationService := service.NewModerationService(service.ModerationDeps{
		Reports:     reportRepo,
		Reviews:     reviewRepo,
		UserRatings: userRatingRepo,
		Items:       itemRepo,
		Users:       userRepo,
		Publisher:   publisher,
	}, appLogger, service.ModerationServiceConfig{Policy: entity.ReportPolicy{
		MinDescriptionLength: cfg.Moderation.MinDescriptionLength,
		Denylist:             cfg.Moderation.Denylist,
	}})
	cartService := service.NewCartService(cartRepo, wishlistRepo, catalogService, appLogger, service.CartServiceConfig{
		CartTTL: cfg.Cart.TTL,
	})
	appLogger.Info("Services initialized")

	maxUpload := cfg.HTTPServer.MaxUploadBytes
	router := httpport.NewRouter(httpport.Handlers{
		Users:      httpport.NewUserHandler(userService, moderationService, appLogger, maxUpload),
		Items:      httpport.NewItemHandler(catalogService, moderationService, appLogger, maxUpload),
		Settlement: httpport.NewSettlementHandler(settlementService, appLogger),
		Messages:   httpport.NewMessageHandler(messagingService, appLogger),
		Moderation: httpport.NewModerationHandler(moderationService, appLogger),
		Cart:       httpport.NewCartHandler(cartService, appLogger),
	}, jwtManager, metricsManager, appLogger)

	httpSrv := httpport.NewServer(appLogger, cfg.HTTPServer, router)
	appLogger.Info("HTTP server instance created")

	return &App{
		cfg:            cfg,
		log:            appLogger,
		server:         httpSrv,
		metricsServer:  metricsServer,
		tracerProvider: tp,
		mongoClient:    mongoClient,
		redisClient:    redisClient,
		natsConn:       natsConn,
	}, nil
}

func (a *App) Run() {
	a.log.Info("Starting application components...")

	go func() {
		if err := a.server.Start(); err != nil {
			a.log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	if a.metricsServer != nil {
		go func() {
			if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.Errorf("Metrics server failed: %v", err)
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	receivedSignal := <-quit
	a.log.Infof("Received shutdown signal: %v. Shutting down application...", receivedSignal)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTPServer.ShutdownTimeout+5*time.Second)
	defer cancel()

	if err := a.server.Stop(shutdownCtx); err != nil {
		a.log.Errorf("Error during HTTP server graceful shutdown: %v", err)
	}

	if a.metricsServer != nil {
		if err := a.metricsServer.Shutdown(shutdownCtx); err != nil {
			a.log.Errorf("Error shutting down metrics server: %v", err)
		}
	}

	if a.tracerProvider != nil {
		if err := a.tracerProvider.Shutdown(shutdownCtx); err != nil {
			a.log.Errorf("Error shutting down tracer provider: %v", err)
		}
	}

	if a.natsConn != nil {
		if err := a.natsConn.Drain(); err != nil {
			a.log.Errorf("Error draining NATS connection: %v", err)
		} else {
			a.log.Info("NATS connection drained")
		}
	}

	a.log.Info("Closing database connections...")

	if a.mongoClient != nil {
		if err := a.mongoClient.Disconnect(shutdownCtx); err != nil {
			a.log.Errorf("Error disconnecting from MongoDB: %v", err)
		} else {
			a.log.Info("MongoDB connection closed successfully")
		}
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Errorf("Error closing Redis client: %v", err)
		} else {
			a.log.Info("Redis client closed successfully")
		}
	}

	a.log.Info("Application shut down successfully")
	_ = a.log.Sync()
}
