package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndMeasure(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("custom.answer", func() (Metric, error) {
		return value("custom.answer", 42), nil
	}))

	m, err := r.Measure("custom.answer")
	require.NoError(t, err)
	assert.Equal(t, "custom.answer", m.Name)
	require.Len(t, m.Measurements, 1)
	assert.Equal(t, StatisticValue, m.Measurements[0].Statistic)
	assert.Equal(t, 42.0, m.Measurements[0].Value)
}

func TestDuplicateRegistration(t *testing.T) {
	r := New()
	p := func() (Metric, error) { return value("dup", 1), nil }

	require.NoError(t, r.Register("dup", p))
	assert.ErrorIs(t, r.Register("dup", p), ErrDuplicateMetric)
}

func TestMeasureUnknown(t *testing.T) {
	r := New()
	_, err := r.Measure("no.such.metric")
	assert.ErrorIs(t, err, ErrMetricNotFound)
}

func TestNamesSorted(t *testing.T) {
	r := New()
	for _, name := range []string{"zzz", "aaa", "mmm"} {
		n := name
		require.NoError(t, r.Register(n, func() (Metric, error) { return value(n, 0), nil }))
	}

	assert.Equal(t, []string{"aaa", "mmm", "zzz"}, r.Names().Names)
}

func TestDefaultBuiltins(t *testing.T) {
	r, err := Default(time.Now())
	require.NoError(t, err)

	names := r.Names().Names
	assert.Contains(t, names, MetricMemoryRSS)
	assert.Contains(t, names, MetricThreadCount)
	assert.Contains(t, names, MetricGCCount)
	assert.Contains(t, names, MetricUptime)
}

func TestMemoryRSS(t *testing.T) {
	r, err := Default(time.Now())
	require.NoError(t, err)

	m, err := r.Measure(MetricMemoryRSS)
	require.NoError(t, err)
	require.Len(t, m.Measurements, 1)
	assert.Equal(t, StatisticValue, m.Measurements[0].Statistic)
	// Any running Go process has more than 10KB resident.
	assert.Greater(t, m.Measurements[0].Value, 10000.0)
}

func TestThreadCountTracksGoroutines(t *testing.T) {
	r, err := Default(time.Now())
	require.NoError(t, err)

	m, err := r.Measure(MetricThreadCount)
	require.NoError(t, err)
	require.Len(t, m.Measurements, 1)
	assert.Equal(t, StatisticCount, m.Measurements[0].Statistic)
	before := m.Measurements[0].Value
	assert.GreaterOrEqual(t, before, 1.0)

	// Park one more worker and measure again.
	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		close(started)
		<-release
	}()
	<-started
	defer close(release)

	m, err = r.Measure(MetricThreadCount)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, m.Measurements[0].Value, before+1)
}

func TestUptimeGrowsFromStart(t *testing.T) {
	start := time.Now().Add(-3 * time.Second)
	r, err := Default(start)
	require.NoError(t, err)

	m, err := r.Measure(MetricUptime)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, m.Measurements[0].Value, 3.0)
}
