// Package metrics computes named point-in-time process metrics for the
// actuator metrics endpoint.
//
// Unlike a scrape-oriented metrics pipeline, nothing is cached or sampled in
// the background: every measurement is computed when asked for, so repeated
// calls reflect the current process state. Providers are registered once at
// wiring time; Measure and Names are safe for concurrent use.
package metrics

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrMetricNotFound is returned when measuring an unregistered metric name.
var ErrMetricNotFound = errors.New("metric not found")

// ErrDuplicateMetric is returned when registering a name twice.
var ErrDuplicateMetric = errors.New("duplicate metric name")

// Statistic is the aggregation kind of a measurement.
type Statistic string

const (
	// StatisticValue is a point-in-time value, e.g. bytes of resident memory.
	StatisticValue Statistic = "VALUE"

	// StatisticCount is a cardinality, e.g. the number of live goroutines.
	StatisticCount Statistic = "COUNT"
)

// Measurement is one statistic of a metric.
type Measurement struct {
	Statistic Statistic `json:"statistic"`
	Value     float64   `json:"value"`
}

// Metric is a named set of measurements, computed fresh per request.
type Metric struct {
	Name         string        `json:"name"`
	Measurements []Measurement `json:"measurements"`
}

// Names is the response shape of the metric-name listing.
type Names struct {
	Names []string `json:"names"`
}

// Provider computes a metric's current measurements.
type Provider func() (Metric, error)

// Registry maps metric names to providers.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// New creates an empty Registry. Most callers want Default, which includes
// the process built-ins.
func New() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider under name.
func (r *Registry) Register(name string, p Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.providers[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateMetric, name)
	}
	r.providers[name] = p
	return nil
}

// Names lists all registered metric names, sorted.
func (r *Registry) Names() Names {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return Names{Names: names}
}

// Measure computes the named metric's current value.
func (r *Registry) Measure(name string) (Metric, error) {
	r.mu.RLock()
	p, ok := r.providers[name]
	r.mu.RUnlock()

	if !ok {
		return Metric{}, fmt.Errorf("%w: %s", ErrMetricNotFound, name)
	}
	return p()
}

// value is a convenience constructor for single-VALUE metrics.
func value(name string, v float64) Metric {
	return Metric{Name: name, Measurements: []Measurement{{Statistic: StatisticValue, Value: v}}}
}

// count is a convenience constructor for single-COUNT metrics.
func count(name string, v float64) Metric {
	return Metric{Name: name, Measurements: []Measurement{{Statistic: StatisticCount, Value: v}}}
}
