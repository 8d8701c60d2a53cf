// Package metrics exposes Prometheus counters for provider traffic.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "taskrelay"

// Collector groups the counters recorded by the provider client. A nil
// *Collector is valid and records nothing.
type Collector struct {
	requests     *prometheus.CounterVec
	uploads      *prometheus.CounterVec
	fallbacks    *prometheus.CounterVec
	catalogFetch *prometheus.CounterVec
	droppedParts *prometheus.CounterVec
}

// New registers the counters with reg.
func New(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Provider requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		uploads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attachment_uploads_total",
			Help:      "Attachment uploads by outcome (uploaded, failed, skipped).",
		}, []string{"outcome"}),
		fallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vision_fallbacks_total",
			Help:      "Retries against a substitute model after an attachment rejection.",
		}, []string{"from", "to", "outcome"}),
		catalogFetch: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_fetches_total",
			Help:      "Underlying catalog fetches by tier (raw, list).",
		}, []string{"tier"}),
		droppedParts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_parts_total",
			Help:      "Message parts dropped because the request shape cannot carry them.",
		}, []string{"shape"}),
	}
}

// Request records a provider request outcome ("ok" or "error").
func (c *Collector) Request(endpoint, outcome string) {
	if c == nil {
		return
	}
	c.requests.WithLabelValues(endpoint, outcome).Inc()
}

// Upload records an attachment outcome.
func (c *Collector) Upload(outcome string) {
	if c == nil {
		return
	}
	c.uploads.WithLabelValues(outcome).Inc()
}

// Fallback records a substitute-model retry.
func (c *Collector) Fallback(from, to, outcome string) {
	if c == nil {
		return
	}
	c.fallbacks.WithLabelValues(from, to, outcome).Inc()
}

// CatalogFetch records a fetch that went past the cache.
func (c *Collector) CatalogFetch(tier string) {
	if c == nil {
		return
	}
	c.catalogFetch.WithLabelValues(tier).Inc()
}

// DroppedPart records a message part that was not sent.
func (c *Collector) DroppedPart(shape string) {
	if c == nil {
		return
	}
	c.droppedParts.WithLabelValues(shape).Inc()
}
