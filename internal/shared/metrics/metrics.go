package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Engine agrupa os coletores do engine-service
type Engine struct {
	PricingDecisions  *prometheus.CounterVec
	PricingLatency    *prometheus.HistogramVec
	ExposureFallbacks *prometheus.CounterVec
	SettledBets       *prometheus.CounterVec
	SettledParlays    *prometheus.CounterVec
	SettlementErrors  prometheus.Counter
	AutoSettleRuns    prometheus.Counter
	AutoSettleEvents  *prometheus.CounterVec
}

// NewEngine cria e registra os coletores em reg
func NewEngine(reg prometheus.Registerer) *Engine {
	m := &Engine{
		PricingDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pricing_decisions_total",
			Help: "Pricing decisions by kind (single/parlay) and decision.",
		}, []string{"kind", "decision"}),
		PricingLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pricing_latency_seconds",
			Help:    "Latency of pricing evaluations.",
			Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25},
		}, []string{"kind"}),
		ExposureFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exposure_cache_fallbacks_total",
			Help: "Exposure ledger operations served by the durable store because the cache failed.",
		}, []string{"op"}),
		SettledBets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_bets_total",
			Help: "Single bets settled by result.",
		}, []string{"result"}),
		SettledParlays: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_parlays_total",
			Help: "Parlays settled by result.",
		}, []string{"result"}),
		SettlementErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "settlement_errors_total",
			Help: "Per-bet or per-parlay settlement failures.",
		}),
		AutoSettleRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "autosettle_runs_total",
			Help: "Auto-settle scheduler runs.",
		}),
		AutoSettleEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "autosettle_events_total",
			Help: "Events considered by the auto-settler by outcome (settled/skipped/error).",
		}, []string{"outcome"}),
	}
	reg.MustRegister(
		m.PricingDecisions, m.PricingLatency, m.ExposureFallbacks,
		m.SettledBets, m.SettledParlays, m.SettlementErrors,
		m.AutoSettleRuns, m.AutoSettleEvents,
	)
	return m
}

// Processor agrupa os coletores do consensus-processor
type Processor struct {
	Consumed  prometheus.Counter
	Cached    prometheus.Counter
	Persisted prometheus.Counter
	Errors    *prometheus.CounterVec
}

func NewProcessor(reg prometheus.Registerer) *Processor {
	m := &Processor{
		Consumed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "consensus_consumed_total",
			Help: "Consensus odds messages consumed from Kafka.",
		}),
		Cached: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "consensus_cached_total",
			Help: "Consensus odds written to Redis.",
		}),
		Persisted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "consensus_persisted_total",
			Help: "Consensus odds persisted to Postgres.",
		}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "consensus_errors_total",
			Help: "Consensus processing errors by stage.",
		}, []string{"stage"}),
	}
	reg.MustRegister(m.Consumed, m.Cached, m.Persisted, m.Errors)
	return m
}
