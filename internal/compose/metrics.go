// SPDX-License-Identifier: MPL-2.0

package compose

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/invowk/palette/pkg/palette"
)

// Cycle results recorded by Metrics.
const (
	ResultPublished    = "published"
	ResultContribution = "contribution_error"
	ResultStructural   = "structural_error"
	ResultCanceled     = "canceled"
)

// Metrics holds the Prometheus collectors of an Engine.
type Metrics struct {
	cycles   *prometheus.CounterVec
	duration prometheus.Histogram
	sizes    *prometheus.GaugeVec
}

// NewMetrics creates the engine collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		cycles: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "palette",
			Name:      "composition_cycles_total",
			Help:      "Composition cycles by result.",
		}, []string{"result"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "palette",
			Name:      "composition_duration_seconds",
			Help:      "Time spent collecting, composing and validating.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		sizes: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "palette",
			Name:      "registry_entries",
			Help:      "Entries in the published registry.",
		}, []string{"kind"}),
	}
}

func (m *Metrics) observe(result string, elapsed time.Duration, published *palette.Registry) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(result).Inc()
	m.duration.Observe(elapsed.Seconds())
	if published != nil {
		m.sizes.WithLabelValues("commands").Set(float64(published.Commands.Len()))
		m.sizes.WithLabelValues("groups").Set(float64(published.Groups.Len()))
		m.sizes.WithLabelValues("removals").Set(float64(len(published.Removals)))
	}
}
