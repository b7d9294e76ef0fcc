package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/uvgride/grouprides/internal/config"
	"github.com/uvgride/grouprides/internal/database"
	"github.com/uvgride/grouprides/internal/domain"
	"github.com/uvgride/grouprides/internal/group"
	"github.com/uvgride/grouprides/internal/logging"
	"github.com/uvgride/grouprides/internal/notification"
	"github.com/uvgride/grouprides/internal/rating"
	"github.com/uvgride/grouprides/internal/store/memstore"
	"github.com/uvgride/grouprides/internal/store/sqlstore"
	"github.com/uvgride/grouprides/internal/vehicle"
)

// @title        Group Rides API
// @version      1.0
// @description  Shared-ride groups with seat capacity, membership and driver ratings.
// @BasePath     /api/v1
func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, vehicles, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	publisher, err := openPublisher(cfg, logger)
	if err != nil {
		return err
	}
	notifier := notification.NewService(publisher, logger, cfg.NotifierBuffer)

	cache, closeCache, err := openRatingCache(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	policy, err := group.ParseActivePolicy(cfg.ActiveGroupPolicy)
	if err != nil {
		return err
	}

	// Group feature
	groupService := group.NewService(store, group.NewRegistry(policy), vehicles, notifier, logger)
	groupHandler := group.NewHandler(groupService, logger)

	// Rating feature
	aggregator := rating.NewAggregator(store, cfg.RatingRequireFinalized)
	ratingService := rating.NewService(store, aggregator, cache, notifier, logger)
	ratingHandler := rating.NewHandler(ratingService, logger)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      newRouter(cfg, logger, groupHandler, ratingHandler),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("database_driver", cfg.DatabaseDriver),
			zap.String("active_group_policy", string(policy)),
			zap.String("notifier", cfg.Notifier),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed to start: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown incomplete", zap.Error(err))
	}
	if err := notifier.Close(shutdownCtx); err != nil {
		logger.Warn("Notification queue not drained", zap.Error(err))
	}
	return nil
}

// openStore selects the storage backend. The in-memory store serves a single
// process and treats every user as having a vehicle.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (domain.Store, vehicle.Registry, func() error, error) {
	if cfg.DatabaseDriver == "memory" {
		logger.Warn("Using in-memory store; data is lost on restart")
		return memstore.New(memstore.WithLockTimeout(cfg.LockTimeout)), vehicle.AllowAll{}, func() error { return nil }, nil
	}

	dialect, err := database.DialectFor(cfg.DatabaseDriver)
	if err != nil {
		return nil, nil, nil, err
	}

	db, err := database.Connect(ctx, database.Options{
		Driver:      cfg.DatabaseDriver,
		URL:         cfg.DatabaseURL,
		Attempts:    cfg.ConnectAttempts,
		LockTimeout: cfg.LockTimeout,
	}, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.RunMigrations {
		if err := database.Migrate(ctx, db, dialect, logger); err != nil {
			db.Close()
			return nil, nil, nil, err
		}
	}

	return sqlstore.New(db, dialect, cfg.LockTimeout), vehicle.NewSQLRegistry(db, dialect), db.Close, nil
}

func openPublisher(cfg *config.Config, logger *zap.Logger) (notification.Publisher, error) {
	switch cfg.Notifier {
	case "kafka":
		logger.Info("Publishing notifications to Kafka", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
		return notification.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic), nil
	case "amqp":
		p, err := notification.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to AMQP broker: %w", err)
		}
		logger.Info("Publishing notifications to AMQP", zap.String("exchange", cfg.AMQPExchange))
		return p, nil
	default:
		return notification.NewLogPublisher(logger), nil
	}
}

func openRatingCache(ctx context.Context, cfg *config.Config, logger *zap.Logger) (rating.SummaryCache, func() error, error) {
	if cfg.RedisAddr == "" {
		return rating.NopCache{}, func() error { return nil }, nil
	}

	client, err := rating.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Caching rating summaries in Redis", zap.String("addr", cfg.RedisAddr), zap.Duration("ttl", cfg.RatingCacheTTL))
	return rating.NewRedisCache(client, cfg.RatingCacheTTL), client.Close, nil
}
