package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PublisherMetrics records outbox publisher throughput.
type PublisherMetrics struct {
	batchDuration prometheus.Histogram
	published     *prometheus.CounterVec
	failed        *prometheus.CounterVec
}

// NewPublisherMetrics registers the publisher metrics on the provided registerer.
func NewPublisherMetrics(reg prometheus.Registerer) *PublisherMetrics {
	if reg == nil {
		return &PublisherMetrics{}
	}
	batchDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "outbox_batch_duration_seconds",
		Help:    "Duration of outbox publish batches in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_published_total",
		Help: "Outbox events published, by event type.",
	}, []string{"event_type"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_failed_total",
		Help: "Outbox publish failures, by event type.",
	}, []string{"event_type"})
	reg.MustRegister(batchDuration, published, failed)
	return &PublisherMetrics{
		batchDuration: batchDuration,
		published:     published,
		failed:        failed,
	}
}

func (p *PublisherMetrics) ObserveBatch(duration time.Duration) {
	if p == nil || p.batchDuration == nil {
		return
	}
	p.batchDuration.Observe(duration.Seconds())
}

func (p *PublisherMetrics) IncPublished(eventType string) {
	if p == nil || p.published == nil {
		return
	}
	p.published.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func (p *PublisherMetrics) IncFailed(eventType string) {
	if p == nil || p.failed == nil {
		return
	}
	p.failed.WithLabelValues(normalizeLabel(eventType)).Inc()
}
