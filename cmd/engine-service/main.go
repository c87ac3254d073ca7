package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/masmi9/FourTenMarkets/internal/autosettle"
	"github.com/masmi9/FourTenMarkets/internal/betting"
	"github.com/masmi9/FourTenMarkets/internal/domain"
	httpapi "github.com/masmi9/FourTenMarkets/internal/engine-service/http"
	"github.com/masmi9/FourTenMarkets/internal/exposure"
	"github.com/masmi9/FourTenMarkets/internal/pricing"
	"github.com/masmi9/FourTenMarkets/internal/scorefeed"
	"github.com/masmi9/FourTenMarkets/internal/settlement"
	sharedcache "github.com/masmi9/FourTenMarkets/internal/shared/cache"
	"github.com/masmi9/FourTenMarkets/internal/shared/config"
	"github.com/masmi9/FourTenMarkets/internal/shared/db"
	"github.com/masmi9/FourTenMarkets/internal/shared/kafka"
	"github.com/masmi9/FourTenMarkets/internal/shared/logger"
	"github.com/masmi9/FourTenMarkets/internal/shared/metrics"
	"github.com/masmi9/FourTenMarkets/internal/wallet"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "engine-service"
	}

	// Inicializa logger estruturado
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("starting service", zap.String("service", cfg.ServiceName), zap.String("env", cfg.Env))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Postgres
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	// Redis: obrigatório na subida; quedas depois disso caem para o banco no ledger
	rdb, err := sharedcache.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()

	// Kafka: garante tópicos em ambiente local/dev
	brokers := cfg.Brokers()
	if cfg.Env == "local" || cfg.Env == "dev" {
		for _, topic := range []string{cfg.TopicBetConfirmed, cfg.TopicBetSettled, cfg.TopicParlaySettled} {
			if err := kafka.EnsureTopic(ctx, brokers, topic, log); err != nil {
				log.Warn("ensure topic failed", zap.String("topic", topic), zap.Error(err))
			}
		}
	}
	confirmedPub := kafka.NewJSONPublisher(kafka.NewWriter(brokers, cfg.TopicBetConfirmed), log)
	defer confirmedPub.Close()
	betSettledPub := kafka.NewJSONPublisher(kafka.NewWriter(brokers, cfg.TopicBetSettled), log)
	defer betSettledPub.Close()
	parlaySettledPub := kafka.NewJSONPublisher(kafka.NewWriter(brokers, cfg.TopicParlaySettled), log)
	defer parlaySettledPub.Close()

	// Métricas Prometheus
	m := metrics.NewEngine(prometheus.DefaultRegisterer)

	// Ledger de exposição: Redis na frente, Postgres como fonte durável
	ledger := exposure.NewLedger(
		exposure.NewRedisStore(rdb, cfg.ConsensusCacheTTL, cfg.ExposureCacheTTL),
		exposure.NewPostgresStore(pg),
		log,
	)
	ledger.OnFallback = func(op string) { m.ExposureFallbacks.WithLabelValues(op).Inc() }

	// Precificação
	limits := pricing.LimitsFromConfig(cfg, log)
	onDecision := func(kind string, d domain.Decision, elapsed time.Duration) {
		m.PricingDecisions.WithLabelValues(kind, string(d)).Inc()
		m.PricingLatency.WithLabelValues(kind).Observe(elapsed.Seconds())
	}
	single := pricing.NewEngine(ledger, limits, log)
	single.OnDecision = onDecision
	parlay := pricing.NewParlayEngine(ledger, limits, log)
	parlay.OnDecision = onDecision

	// Carteira, apostas e liquidação
	wallets := wallet.NewPostgres(pg)
	bets := betting.NewService(betting.NewPostgresStore(pg, wallets), single, parlay, ledger, confirmedPub, log)

	settler := settlement.NewEngine(settlement.NewPostgresStore(pg, wallets), ledger, betSettledPub, parlaySettledPub, log)
	settler.OnBet = func(result string) { m.SettledBets.WithLabelValues(result).Inc() }
	settler.OnParlay = func(status string) { m.SettledParlays.WithLabelValues(status).Inc() }
	settler.OnError = func() { m.SettlementErrors.Inc() }

	// Liquidação automática
	scores := scorefeed.NewClient(cfg.ScoresAPIURL, cfg.ScoresAPIKey, cfg.ScoresRPS)
	scheduler := autosettle.NewScheduler(autosettle.NewPostgresEvents(pg), scores, settler,
		cfg.AutoSettleInterval, cfg.AutoSettleGrace, log)
	scheduler.OnRun = func() { m.AutoSettleRuns.Inc() }
	scheduler.OnEvent = func(outcome string) { m.AutoSettleEvents.WithLabelValues(outcome).Inc() }

	// Servidor HTTP público
	api := httpapi.NewAPI(log, bets, wallets, settler, scheduler)
	apiSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Servidor de métricas e health check
	metricsSrv := metrics.NewMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return err
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			// degradado, mas o ledger ainda responde pelo banco
			log.Warn("healthz: redis ping failed", zap.Error(err))
		}
		return nil
	})

	// o scheduler roda no máximo uma vez por processo
	var schedulerStarted atomic.Bool

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("api listening", zap.String("addr", apiSrv.Addr))
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info("metrics/health listening", zap.String("addr", metricsSrv.Addr))
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if cfg.AutoSettleEnabled {
		g.Go(func() error { return scheduler.Start(gctx, &schedulerStarted) })
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = apiSrv.Shutdown(shutdownCtx)
		_ = metricsSrv.Shutdown(shutdownCtx)
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Fatal("engine-service stopped with error", zap.Error(err))
	}
	log.Info("engine-service stopped")
}
