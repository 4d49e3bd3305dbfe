package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeConfirmed          = "confirmed"
	OutcomeReplayed           = "replayed"
	OutcomeInProgress         = "in_progress"
	OutcomeValidationFailed   = "validation_failed"
	OutcomeDeclined           = "declined"
	OutcomeGatewayUnavailable = "gateway_unavailable"
	OutcomePersistenceFailed  = "persistence_failed"
	OutcomeError              = "error"
)

// CheckoutMetrics is safe to use as a nil pointer.
type CheckoutMetrics struct {
	orders          *prometheus.CounterVec
	gatewayDuration *prometheus.HistogramVec
	reconciliation  prometheus.Counter
}

func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	factory := promauto.With(reg)
	return &CheckoutMetrics{
		orders: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_orders_total",
				Help: "Checkout attempts by outcome",
			},
			[]string{"outcome"},
		),
		gatewayDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "checkout_gateway_duration_seconds",
				Help:    "Payment gateway authorize-and-capture latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		),
		reconciliation: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "checkout_reconciliation_required_total",
				Help: "Charges approved by the gateway whose order could not be persisted",
			},
		),
	}
}

func (m *CheckoutMetrics) ObserveCheckout(outcome string) {
	if m == nil {
		return
	}
	m.orders.WithLabelValues(outcome).Inc()
}

func (m *CheckoutMetrics) ObserveGateway(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.gatewayDuration.WithLabelValues(result).Observe(d.Seconds())
}

func (m *CheckoutMetrics) ReconciliationRequired() {
	if m == nil {
		return
	}
	m.reconciliation.Inc()
}
