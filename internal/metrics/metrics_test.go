package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveGovernorWait("x", time.Second)
	m.AddInFlight("x", 1)
	m.IncRetry("x")
	m.IncRetryExhausted("x")
	m.AddRows("x", 3)
	m.IncItemError("x")
	m.IncRun("markets", "completed")
	assert.Nil(t, New(nil))
}

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	require.NotNil(t, m)

	m.AddRows("token_prices", 5)
	m.AddRows("token_prices", 0)
	m.IncRetry("gamma.ListMarkets")
	m.IncRun("markets", "completed")

	assert.Equal(t, 5.0, testutil.ToFloat64(m.rowsPersisted.WithLabelValues("token_prices")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.retries.WithLabelValues("gamma.ListMarkets")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("markets", "completed")))
}
