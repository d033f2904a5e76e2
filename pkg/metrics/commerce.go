package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CommerceMetrics records checkout and refund outcomes.
type CommerceMetrics struct {
	checkoutDuration *prometheus.HistogramVec
	ordersCreated    *prometheus.CounterVec
	checkoutFailures *prometheus.CounterVec
	refundDecisions  *prometheus.CounterVec
}

// NewCommerceMetrics registers the storefront metrics on the provided registerer.
func NewCommerceMetrics(reg prometheus.Registerer) *CommerceMetrics {
	if reg == nil {
		return &CommerceMetrics{}
	}
	checkoutDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Duration of checkout transactions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"payment_method"})
	ordersCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Orders successfully placed.",
	}, []string{"payment_method"})
	checkoutFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_failures_total",
		Help: "Checkouts aborted before commit.",
	}, []string{"reason"})
	refundDecisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "refund_decisions_total",
		Help: "Refund requests resolved by an admin.",
	}, []string{"decision"})
	reg.MustRegister(checkoutDuration, ordersCreated, checkoutFailures, refundDecisions)
	return &CommerceMetrics{
		checkoutDuration: checkoutDuration,
		ordersCreated:    ordersCreated,
		checkoutFailures: checkoutFailures,
		refundDecisions:  refundDecisions,
	}
}

// ObserveCheckoutDuration records how long a committed checkout took.
func (c *CommerceMetrics) ObserveCheckoutDuration(paymentMethod string, duration time.Duration) {
	if c == nil || c.checkoutDuration == nil {
		return
	}
	c.checkoutDuration.WithLabelValues(normalizeLabel(paymentMethod)).Observe(duration.Seconds())
}

// IncOrderCreated increments the placed-order counter.
func (c *CommerceMetrics) IncOrderCreated(paymentMethod string) {
	if c == nil || c.ordersCreated == nil {
		return
	}
	c.ordersCreated.WithLabelValues(normalizeLabel(paymentMethod)).Inc()
}

// IncCheckoutFailure increments the aborted-checkout counter for the given reason.
func (c *CommerceMetrics) IncCheckoutFailure(reason string) {
	if c == nil || c.checkoutFailures == nil {
		return
	}
	c.checkoutFailures.WithLabelValues(normalizeLabel(reason)).Inc()
}

// IncRefundDecision increments the refund decision counter ("approved" or "rejected").
func (c *CommerceMetrics) IncRefundDecision(decision string) {
	if c == nil || c.refundDecisions == nil {
		return
	}
	c.refundDecisions.WithLabelValues(normalizeLabel(decision)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
