package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SERVICE_NAME", "engine-service")

	cfg := Load()

	assert.Equal(t, "engine-service", cfg.ServiceName)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "9095", cfg.MetricsPort)
	assert.Equal(t, "consensus_odds_updates", cfg.TopicConsensusOdds)
	assert.Equal(t, 0.02, cfg.AcceptThreshold)
	assert.Equal(t, -0.05, cfg.CounterThreshold)
	assert.Equal(t, -110, cfg.FallbackOdds)
	assert.Equal(t, 2*time.Minute, cfg.CounterTTL)
	assert.Equal(t, 120*time.Second, cfg.ConsensusCacheTTL)
	assert.Equal(t, 3*time.Hour, cfg.AutoSettleGrace)
	assert.Equal(t, "5000", cfg.MaxSingleStake.String())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVICE_NAME", "consensus-processor")
	t.Setenv("MAX_SINGLE_STAKE", "250.50")
	t.Setenv("PLATFORM_MARGIN", "0.06")
	t.Setenv("AUTOSETTLE_INTERVAL", "30s")
	t.Setenv("AUTOSETTLE_ENABLED", "false")
	t.Setenv("FALLBACK_ODDS", "not-a-number")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,")

	cfg := Load()

	assert.Equal(t, "", cfg.HTTPPort)
	assert.Equal(t, "9097", cfg.MetricsPort)
	assert.Equal(t, "250.5", cfg.MaxSingleStake.String())
	assert.Equal(t, 0.06, cfg.PlatformMargin)
	assert.Equal(t, 30*time.Second, cfg.AutoSettleInterval)
	assert.False(t, cfg.AutoSettleEnabled)
	assert.Equal(t, -110, cfg.FallbackOdds)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Brokers())
}
