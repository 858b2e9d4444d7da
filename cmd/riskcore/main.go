package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/defivault/riskcore/internal/auth"
	"github.com/defivault/riskcore/internal/config"
	"github.com/defivault/riskcore/internal/events"
	"github.com/defivault/riskcore/internal/metrics"
	"github.com/defivault/riskcore/internal/oracle"
	"github.com/defivault/riskcore/internal/risk"
	"github.com/defivault/riskcore/internal/server"
	"github.com/defivault/riskcore/pkg/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load configuration: %v", err)
	}

	zapLogger, err := logger.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("create logger: %v", err)
	}
	defer zapLogger.Sync()

	authz := auth.NewRegistry(cfg.Owner, logger.Named(zapLogger, "auth"))
	promMetrics := metrics.New()

	var pub events.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaCfg := events.DefaultKafkaConfig()
		kafkaCfg.Brokers = cfg.Kafka.Brokers
		kafkaCfg.Topic = cfg.Kafka.Topic
		pub = events.NewKafkaPublisher(kafkaCfg, logger.Named(zapLogger, "kafka"))
		zapLogger.Info("publishing events to kafka",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic))
	} else {
		pub = events.NewMemoryBus(logger.Named(zapLogger, "bus"))
		zapLogger.Info("publishing events to in-process bus")
	}
	defer pub.Close()

	feed := oracle.NewHTTPFeed(cfg.Oracle.FeedTimeout)
	orc := oracle.New(authz, feed, pub, promMetrics, logger.Named(zapLogger, "oracle"), oracle.Config{
		ValidityWindow: cfg.Oracle.ValidityWindow,
		MaxDeviationBP: cfg.Oracle.MaxDeviationBP,
		MinConfidence:  cfg.Oracle.MinConfidence,
	})

	if cfg.Redis.Address != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(context.Background()).Err(); err != nil {
			zapLogger.Warn("redis unreachable, price mirror disabled", zap.Error(err))
		} else {
			orc.AttachMirror(oracle.NewRedisMirror(client, cfg.Redis.KeyPrefix, cfg.Redis.TTL,
				logger.Named(zapLogger, "mirror")))
			zapLogger.Info("price mirror enabled", zap.String("redis", cfg.Redis.Address))
		}
	}

	mgr := risk.NewManager(authz, orc, pub, promMetrics, logger.Named(zapLogger, "risk"), risk.Config{
		UpdateInterval: cfg.Risk.GlobalUpdateInterval,
	})

	srv := server.New(cfg.Server, orc, mgr, promMetrics, logger.Named(zapLogger, "http"))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		zapLogger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			zapLogger.Error("http server failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("shutdown incomplete", zap.Error(err))
	}
	zapLogger.Info("stopped")
}
