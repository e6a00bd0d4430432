// Disk-space health indicator.

package health

import (
	"context"

	"github.com/shirou/gopsutil/v4/disk"
)

// DefaultDiskThreshold is the free-space floor below which the disk-space
// indicator reports DOWN: 10 MiB.
const DefaultDiskThreshold = 10 * 1024 * 1024

// DiskSpace reports DOWN when free space on a path drops below a threshold.
type DiskSpace struct {
	path      string
	threshold uint64

	// usage is swappable for tests; defaults to disk.UsageWithContext.
	usage func(ctx context.Context, path string) (*disk.UsageStat, error)
}

// NewDiskSpace creates the indicator for path. A non-positive threshold
// falls back to DefaultDiskThreshold; an empty path checks the current
// working directory's filesystem.
func NewDiskSpace(path string, threshold uint64) *DiskSpace {
	if path == "" {
		path = "."
	}
	if threshold == 0 {
		threshold = DefaultDiskThreshold
	}
	return &DiskSpace{path: path, threshold: threshold, usage: disk.UsageWithContext}
}

// Name implements Indicator.
func (d *DiskSpace) Name() string { return "diskSpace" }

// Health implements Indicator. A failed statfs call degrades to DOWN with an
// error detail rather than propagating.
func (d *DiskSpace) Health(ctx context.Context) Report {
	stat, err := d.usage(ctx, d.path)
	if err != nil {
		return Report{
			Status:  StatusDown,
			Details: map[string]any{"error": err.Error()},
		}
	}

	status := StatusUp
	if stat.Free < d.threshold {
		status = StatusDown
	}
	return Report{
		Status: status,
		Details: map[string]any{
			"total":     stat.Total,
			"free":      stat.Free,
			"threshold": d.threshold,
		},
	}
}
