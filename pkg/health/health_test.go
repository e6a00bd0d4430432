package health

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticIndicator struct {
	name   string
	report Report
}

func (s staticIndicator) Name() string { return s.name }
func (s staticIndicator) Health(context.Context) Report {
	return s.report
}

type panicIndicator struct{}

func (panicIndicator) Name() string                  { return "broken" }
func (panicIndicator) Health(context.Context) Report { panic("boom") }

func TestAllUp(t *testing.T) {
	agg := NewAggregator(nil,
		staticIndicator{"db", Report{Status: StatusUp}},
		staticIndicator{"cache", Report{Status: StatusUp}},
	)

	rep := agg.Health(context.Background())
	assert.Equal(t, StatusUp, rep.Status)
	assert.Equal(t, http.StatusOK, rep.HTTPStatus())
	assert.Len(t, rep.Details, 2)
}

func TestDownDominates(t *testing.T) {
	agg := NewAggregator(nil,
		staticIndicator{"db", Report{Status: StatusUp}},
		staticIndicator{"cache", Report{Status: StatusDown}},
	)

	rep := agg.Health(context.Background())
	assert.Equal(t, StatusDown, rep.Status)
	assert.Equal(t, http.StatusServiceUnavailable, rep.HTTPStatus())

	sub, ok := rep.Details["cache"].(Report)
	require.True(t, ok)
	assert.Equal(t, StatusDown, sub.Status)
}

func TestOutOfServiceIsUnavailable(t *testing.T) {
	agg := NewAggregator(nil,
		staticIndicator{"svc", Report{Status: StatusOutOfService}},
	)

	rep := agg.Health(context.Background())
	assert.Equal(t, StatusOutOfService, rep.Status)
	assert.Equal(t, http.StatusServiceUnavailable, rep.HTTPStatus())
}

func TestUnknownStaysOK(t *testing.T) {
	agg := NewAggregator(nil,
		staticIndicator{"svc", Report{Status: StatusUnknown}},
	)

	rep := agg.Health(context.Background())
	assert.Equal(t, StatusUnknown, rep.Status)
	assert.Equal(t, http.StatusOK, rep.HTTPStatus())
}

func TestPanickingIndicatorDegradesToDown(t *testing.T) {
	agg := NewAggregator(nil,
		staticIndicator{"db", Report{Status: StatusUp}},
		panicIndicator{},
	)

	rep := agg.Health(context.Background())
	assert.Equal(t, StatusDown, rep.Status)

	sub, ok := rep.Details["broken"].(Report)
	require.True(t, ok)
	assert.Equal(t, StatusDown, sub.Status)
	assert.Contains(t, sub.Details["error"], "boom")
}

func TestEmptyAggregatorIsUp(t *testing.T) {
	rep := NewAggregator(nil).Health(context.Background())
	assert.Equal(t, StatusUp, rep.Status)
}

func TestDiskSpaceUp(t *testing.T) {
	d := NewDiskSpace("/", 1024)
	d.usage = func(context.Context, string) (*disk.UsageStat, error) {
		return &disk.UsageStat{Total: 100_000_000, Free: 50_000_000}, nil
	}

	rep := d.Health(context.Background())
	assert.Equal(t, StatusUp, rep.Status)
	assert.Equal(t, uint64(50_000_000), rep.Details["free"])
	assert.Equal(t, uint64(100_000_000), rep.Details["total"])
}

func TestDiskSpaceDownBelowThreshold(t *testing.T) {
	d := NewDiskSpace("/", DefaultDiskThreshold)
	d.usage = func(context.Context, string) (*disk.UsageStat, error) {
		return &disk.UsageStat{Total: 100_000_000, Free: 9_999_999}, nil
	}

	rep := d.Health(context.Background())
	assert.Equal(t, StatusDown, rep.Status)
	assert.Equal(t, uint64(9_999_999), rep.Details["free"])
	assert.Equal(t, uint64(100_000_000), rep.Details["total"])
	assert.Equal(t, uint64(DefaultDiskThreshold), rep.Details["threshold"])
}

func TestDiskSpaceStatError(t *testing.T) {
	d := NewDiskSpace("/nonexistent", 0)
	d.usage = func(context.Context, string) (*disk.UsageStat, error) {
		return nil, errors.New("statfs failed")
	}

	rep := d.Health(context.Background())
	assert.Equal(t, StatusDown, rep.Status)
	assert.Contains(t, rep.Details["error"], "statfs failed")
}

func TestDiskSpaceRealFilesystem(t *testing.T) {
	// With a 1-byte threshold the working directory should report UP.
	d := NewDiskSpace(t.TempDir(), 1)
	rep := d.Health(context.Background())
	assert.Equal(t, StatusUp, rep.Status)
	assert.Positive(t, rep.Details["total"])
}
