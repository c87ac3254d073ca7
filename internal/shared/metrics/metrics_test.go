package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewEngineRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewEngine(reg)

	m.PricingDecisions.WithLabelValues("single", "ACCEPT").Inc()
	m.SettlementErrors.Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.PricingDecisions.WithLabelValues("single", "ACCEPT")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SettlementErrors))

	// registrar duas vezes no mesmo registry deve falhar
	assert.Panics(t, func() { NewEngine(reg) })
}

func TestHealthz(t *testing.T) {
	healthy := NewMetricsServer("0", func(context.Context) error { return nil })
	rec := httptest.NewRecorder()
	healthy.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	broken := NewMetricsServer("0", func(context.Context) error { return errors.New("db down") })
	rec = httptest.NewRecorder()
	broken.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "db down")
}
