package metrics

import "github.com/prometheus/client_golang/prometheus"

// CheckoutMetrics counts checkout outcomes and the value of created orders.
type CheckoutMetrics struct {
	outcomes   *prometheus.CounterVec
	orderValue prometheus.Histogram
}

func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_total",
		Help: "Checkout attempts by result code.",
	}, []string{"result"})
	orderValue := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_order_total_price",
		Help:    "Total price of created orders in minor currency units.",
		Buckets: prometheus.ExponentialBuckets(100, 4, 8),
	})
	reg.MustRegister(outcomes, orderValue)
	return &CheckoutMetrics{outcomes: outcomes, orderValue: orderValue}
}

// Completed records a successful checkout.
func (c *CheckoutMetrics) Completed(totalPrice int) {
	if c == nil || c.outcomes == nil {
		return
	}
	c.outcomes.WithLabelValues("ok").Inc()
	c.orderValue.Observe(float64(totalPrice))
}

// Failed records a checkout that returned an error with the given code.
func (c *CheckoutMetrics) Failed(code string) {
	if c == nil || c.outcomes == nil {
		return
	}
	c.outcomes.WithLabelValues(normalizeLabel(code)).Inc()
}
