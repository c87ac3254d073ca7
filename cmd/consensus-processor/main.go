package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/masmi9/FourTenMarkets/internal/consensus-processor/consumer"
	"github.com/masmi9/FourTenMarkets/internal/consensus-processor/repository"
	"github.com/masmi9/FourTenMarkets/internal/exposure"
	sharedcache "github.com/masmi9/FourTenMarkets/internal/shared/cache"
	"github.com/masmi9/FourTenMarkets/internal/shared/config"
	"github.com/masmi9/FourTenMarkets/internal/shared/db"
	"github.com/masmi9/FourTenMarkets/internal/shared/kafka"
	"github.com/masmi9/FourTenMarkets/internal/shared/logger"
	"github.com/masmi9/FourTenMarkets/internal/shared/metrics"
)

func main() {
	// o nome do serviço define as portas padrão em config.Load
	if os.Getenv("SERVICE_NAME") == "" {
		_ = os.Setenv("SERVICE_NAME", "consensus-processor")
	}
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Inicializa dependências: Postgres e Redis
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	redisClient, err := sharedcache.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	brokers := cfg.Brokers()
	if cfg.Env == "local" || cfg.Env == "dev" {
		for _, topic := range []string{cfg.TopicConsensusOdds, cfg.TopicConsensusOddsDLQ} {
			if err := kafka.EnsureTopic(ctx, brokers, topic, log); err != nil {
				log.Warn("ensure topic failed", zap.String("topic", topic), zap.Error(err))
			}
		}
	}

	// Consumer group consensus-processor
	reader := kafka.NewReader(brokers, cfg.TopicConsensusOdds, "consensus-processor")
	defer reader.Close()
	dlq := kafka.NewJSONPublisher(kafka.NewWriter(brokers, cfg.TopicConsensusOddsDLQ), log)
	defer dlq.Close()

	m := metrics.NewProcessor(prometheus.DefaultRegisterer)

	proc := &consumer.Processor{
		Log:        log.Named("consensus"),
		Reader:     reader,
		Repo:       repository.NewPostgresRepo(pg),
		Cache:      exposure.NewRedisStore(redisClient, cfg.ConsensusCacheTTL, cfg.ExposureCacheTTL),
		DLQ:        dlq,
		OnConsumed: func() { m.Consumed.Inc() },
		OnCached:   func() { m.Cached.Inc() },
		OnPersist:  func() { m.Persisted.Inc() },
		OnError:    func(stage string) { m.Errors.WithLabelValues(stage).Inc() },
	}

	// Servidor HTTP para métricas e health check
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return err
		}
		return redisClient.Ping(ctx).Err()
	}, log)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}()
	log.Info("metrics/health listening", zap.String("addr", metricsSrv.Addr))

	log.Info("consensus-processor started", zap.String("topic", cfg.TopicConsensusOdds))
	if err := proc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal("processor stopped with error", zap.Error(err))
	}
	log.Info("consensus-processor stopped")
}
