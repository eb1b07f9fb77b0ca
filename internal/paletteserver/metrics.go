// SPDX-License-Identifier: MPL-2.0

package paletteserver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Session outcomes recorded by Metrics.
const (
	SessionAuthenticated = "authenticated"
	SessionAnonymous     = "anonymous"
	SessionFailed        = "failed"
)

// Metrics counts served sessions.
type Metrics struct {
	sessions *prometheus.CounterVec
}

// NewMetrics registers the server collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		sessions: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "palette",
			Subsystem: "ssh",
			Name:      "sessions_total",
			Help:      "Payload sessions served, by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) session(outcome string) {
	if m == nil {
		return
	}
	m.sessions.WithLabelValues(outcome).Inc()
}
