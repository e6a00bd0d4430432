// Process introspection providers backing the built-in metrics.

package metrics

import (
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// Built-in metric names.
const (
	MetricMemoryRSS     = "memory.rss"
	MetricMemoryVMS     = "memory.vms"
	MetricThreadCount   = "thread.count"
	MetricOSThreadCount = "thread.os.count"
	MetricGCCount       = "gc.count"
	MetricUptime        = "uptime"
)

// Default creates a Registry pre-populated with the process built-ins.
// start anchors the uptime metric; it is normally the process start time.
func Default(start time.Time) (*Registry, error) {
	r := New()

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("open own process: %w", err)
	}

	builtins := map[string]Provider{
		MetricMemoryRSS: func() (Metric, error) {
			mem, err := proc.MemoryInfo()
			if err != nil {
				return Metric{}, fmt.Errorf("read memory info: %w", err)
			}
			return value(MetricMemoryRSS, float64(mem.RSS)), nil
		},
		MetricMemoryVMS: func() (Metric, error) {
			mem, err := proc.MemoryInfo()
			if err != nil {
				return Metric{}, fmt.Errorf("read memory info: %w", err)
			}
			return value(MetricMemoryVMS, float64(mem.VMS)), nil
		},
		MetricThreadCount: func() (Metric, error) {
			return count(MetricThreadCount, float64(runtime.NumGoroutine())), nil
		},
		MetricOSThreadCount: func() (Metric, error) {
			n, ok := numOSThreads()
			if !ok {
				return Metric{}, fmt.Errorf("%w: threadcreate profile unavailable", ErrMetricNotFound)
			}
			return count(MetricOSThreadCount, float64(n)), nil
		},
		MetricGCCount: func() (Metric, error) {
			var mem runtime.MemStats
			runtime.ReadMemStats(&mem)
			return count(MetricGCCount, float64(mem.NumGC)), nil
		},
		MetricUptime: func() (Metric, error) {
			return value(MetricUptime, time.Since(start).Seconds()), nil
		},
	}

	for name, p := range builtins {
		if err := r.Register(name, p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// numOSThreads returns the OS thread count via the pprof "threadcreate"
// profile, which tracks threads created by the runtime.
func numOSThreads() (int, bool) {
	p := pprof.Lookup("threadcreate")
	if p == nil {
		return 0, false
	}
	return p.Count(), true
}
