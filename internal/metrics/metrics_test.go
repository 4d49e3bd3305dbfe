package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCheckoutMetrics(t *testing.T) {
	m := NewCheckoutMetrics(prometheus.NewRegistry())

	m.ObserveCheckout(OutcomeConfirmed)
	m.ObserveCheckout(OutcomeConfirmed)
	m.ObserveCheckout(OutcomeDeclined)
	m.ReconciliationRequired()
	m.ObserveGateway("approved", 120*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.orders.WithLabelValues(OutcomeConfirmed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.orders.WithLabelValues(OutcomeDeclined)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reconciliation))
	assert.Equal(t, 1, testutil.CollectAndCount(m.gatewayDuration))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *CheckoutMetrics
	assert.NotPanics(t, func() {
		m.ObserveCheckout(OutcomeConfirmed)
		m.ObserveGateway("approved", time.Second)
		m.ReconciliationRequired()
	})
}
