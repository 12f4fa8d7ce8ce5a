// Package metrics exposes Prometheus instruments for name resolution.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/plebnames/go-plebnames/pkg/types"
)

// Resolution outcomes used as the status label.
const (
	StatusUnclaimed = "unclaimed"
	StatusClaimed   = "claimed"
	StatusCached    = "cached"
	StatusError     = "error"
)

// Metrics provides observability for resolutions.
type Metrics struct {
	// Resolutions by status: claimed, unclaimed, cached, error
	Resolutions *prometheus.CounterVec

	// Payloads seen during replay by outcome
	Records *prometheus.CounterVec

	// Duration of uncached resolutions
	ResolutionLatency prometheus.Histogram

	// Ownership transfers followed per resolution
	OwnerTransfers prometheus.Histogram
}

// New creates a Metrics instance registered with reg. A nil reg registers
// with the default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		Resolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "plebnames_resolutions_total",
			Help: "Total name resolutions by status",
		}, []string{"status"}),

		Records: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "plebnames_records_total",
			Help: "Total data-carrier payloads replayed by outcome",
		}, []string{"outcome"}), // applied, unrelated, malformed, rejected, superseded

		ResolutionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "plebnames_resolution_duration_seconds",
			Help:    "Duration of name resolutions including ledger queries",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),

		OwnerTransfers: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "plebnames_owner_transfers",
			Help:    "Ownership transfers followed per resolution",
			Buckets: []float64{0, 1, 2, 4, 8, 16, 32, 64},
		}),
	}
}

// IncrementResolution records a resolution outcome.
func (m *Metrics) IncrementResolution(status string) {
	if m != nil {
		m.Resolutions.WithLabelValues(status).Inc()
	}
}

// ObserveResolutionLatency records the duration of an uncached resolution.
func (m *Metrics) ObserveResolutionLatency(d time.Duration) {
	if m != nil {
		m.ResolutionLatency.Observe(d.Seconds())
	}
}

// ObserveReplay adds the counters of a finished replay.
func (m *Metrics) ObserveReplay(stats types.ReplayStats) {
	if m == nil {
		return
	}
	m.Records.WithLabelValues("applied").Add(float64(stats.Applied))
	m.Records.WithLabelValues("unrelated").Add(float64(stats.Unrelated))
	m.Records.WithLabelValues("malformed").Add(float64(stats.Malformed))
	m.Records.WithLabelValues("rejected").Add(float64(stats.Rejected))
	m.Records.WithLabelValues("superseded").Add(float64(stats.Superseded))
	m.OwnerTransfers.Observe(float64(stats.Transfers))
}
