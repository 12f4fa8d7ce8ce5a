package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plebnames/go-plebnames/pkg/types"
)

func TestMetrics_Resolutions(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncrementResolution(StatusClaimed)
	m.IncrementResolution(StatusClaimed)
	m.IncrementResolution(StatusError)

	assert.InDelta(t, 2, testutil.ToFloat64(m.Resolutions.WithLabelValues(StatusClaimed)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Resolutions.WithLabelValues(StatusError)), 0)
}

func TestMetrics_ObserveReplay(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveReplay(types.ReplayStats{Applied: 3, Malformed: 2, Transfers: 1})
	m.ObserveResolutionLatency(150 * time.Millisecond)

	assert.InDelta(t, 3, testutil.ToFloat64(m.Records.WithLabelValues("applied")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.Records.WithLabelValues("malformed")), 0)

	count, err := testutil.GatherAndCount(reg, "plebnames_owner_transfers", "plebnames_resolution_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncrementResolution(StatusClaimed)
		m.ObserveResolutionLatency(time.Second)
		m.ObserveReplay(types.ReplayStats{})
	})
}
