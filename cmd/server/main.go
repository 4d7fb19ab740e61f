package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fekuna/omnipos-stock-service/config"
	"github.com/fekuna/omnipos-stock-service/internal/auth"
	"github.com/fekuna/omnipos-stock-service/internal/pkg/broker"
	"github.com/fekuna/omnipos-stock-service/internal/pkg/cache"
	"github.com/fekuna/omnipos-stock-service/internal/pkg/keylock"
	"github.com/fekuna/omnipos-stock-service/internal/pkg/logger"
	"github.com/fekuna/omnipos-stock-service/internal/pkg/postgres"

	resolverPkg "github.com/fekuna/omnipos-stock-service/internal/catalog/resolver"
	"github.com/fekuna/omnipos-stock-service/internal/stock"
	stockH "github.com/fekuna/omnipos-stock-service/internal/stock/handler"
	stockRepoPkg "github.com/fekuna/omnipos-stock-service/internal/stock/repository"
	stockUCPkg "github.com/fekuna/omnipos-stock-service/internal/stock/usecase"

	orderH "github.com/fekuna/omnipos-stock-service/internal/order/handler"
	orderListenerPkg "github.com/fekuna/omnipos-stock-service/internal/order/listener"
	orderRepoPkg "github.com/fekuna/omnipos-stock-service/internal/order/repository"
	orderUCPkg "github.com/fekuna/omnipos-stock-service/internal/order/usecase"
	"github.com/fekuna/omnipos-stock-service/internal/order/worker"

	transferH "github.com/fekuna/omnipos-stock-service/internal/transfer/handler"
	transferRepoPkg "github.com/fekuna/omnipos-stock-service/internal/transfer/repository"
	transferUCPkg "github.com/fekuna/omnipos-stock-service/internal/transfer/usecase"

	productionH "github.com/fekuna/omnipos-stock-service/internal/production/handler"
	productionRepoPkg "github.com/fekuna/omnipos-stock-service/internal/production/repository"
	productionUCPkg "github.com/fekuna/omnipos-stock-service/internal/production/usecase"

	"github.com/gofiber/fiber/v2"
	recoverMw "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// 1. Load Configuration
	_ = godotenv.Load()
	cfg := config.LoadEnv()

	// 2. Initialize Logger
	logConfig := &logger.Config{
		IsDevelopment:     cfg.Server.AppEnv == "dev",
		Level:             cfg.Logger.Level,
		Encoding:          cfg.Logger.Encoding,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	}
	appLogger := logger.New(logConfig)
	defer appLogger.Sync()

	// 3. Connect to Database
	db, err := postgres.New(&postgres.Config{
		Host:            cfg.Postgres.Host,
		Port:            cfg.Postgres.Port,
		User:            cfg.Postgres.User,
		Password:        cfg.Postgres.Password,
		DBName:          cfg.Postgres.DBName,
		SSLMode:         cfg.Postgres.SSLMode,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.Postgres.ConnMaxIdleTime) * time.Second,
	})
	if err != nil {
		appLogger.Fatal("Could not connect to database", zap.Error(err))
	}
	defer db.Close()
	appLogger.Info("Connected to PostgreSQL database", zap.String("db_name", cfg.Postgres.DBName))

	// 4. Initialize Lock Manager (Redis, keyed in-process mutexes in dev)
	var locks stock.LockManager
	redisClient, err := cache.NewRedisClient(&cache.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		if cfg.Server.AppEnv != "dev" {
			appLogger.Fatal("Could not connect to Redis", zap.Error(err))
		}
		appLogger.Warn("Could not connect to Redis, using in-process locks", zap.Error(err))
		locks = keylock.New()
	} else {
		defer redisClient.Close()
		appLogger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))
		locks = redisClient
	}

	// 5. Initialize Kafka Consumer
	kafkaConsumer := broker.NewConsumer(&broker.Config{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.Topic,
		GroupID: cfg.Kafka.GroupID,
	})
	defer kafkaConsumer.Close()
	appLogger.Info("Connected to Kafka Consumer", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))

	// 6. Initialize Repositories
	stockRepo := stockRepoPkg.NewPGRepository(db)
	orderRepo := orderRepoPkg.NewPGRepository(db)
	transferRepo := transferRepoPkg.NewPGRepository(db)
	productionRepo := productionRepoPkg.NewPGRepository(db)
	resolver := resolverPkg.NewPGResolver(db)

	// 7. Initialize UseCases
	stockUC := stockUCPkg.NewLedgerUseCase(stockRepo, locks, cfg.Ledger, appLogger)
	orderUC := orderUCPkg.NewReservationUseCase(orderRepo, stockUC, resolver, locks, appLogger)
	transferUC := transferUCPkg.NewTransferUseCase(transferRepo, stockUC, appLogger)
	productionUC := productionUCPkg.NewProductionUseCase(productionRepo, stockUC, resolver, appLogger)

	// 8. Start background workers
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	orderListener := orderListenerPkg.NewOrderListener(kafkaConsumer, orderUC, appLogger)
	go orderListener.Start(ctx)

	sweeper := worker.NewSweeper(orderUC, cfg.Sweeper, appLogger)
	go sweeper.Start(ctx)

	// 9. Initialize HTTP server
	app := fiber.New(fiber.Config{
		AppName: "omnipos-stock-service",
	})
	app.Use(recoverMw.New())
	app.Use(auth.Middleware())

	api := app.Group("/api/v1")
	stockH.NewStockHandler(stockUC, appLogger).Register(api)
	orderH.NewOrderHandler(orderUC, appLogger).Register(api)
	transferH.NewTransferHandler(transferUC, appLogger).Register(api)
	productionH.NewProductionHandler(productionUC, appLogger).Register(api)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	appLogger.Info("Starting HTTP server", zap.String("port", cfg.Server.HTTPPort))
	go func() {
		if err := app.Listen(cfg.Server.HTTPPort); err != nil {
			appLogger.Fatal("failed to serve", zap.Error(err))
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	cancel()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		appLogger.Error("shutdown error", zap.Error(err))
	}
	appLogger.Info("Server stopped")
}
