// Package agent composes the monitoring subsystems into one engine that
// framework adapters call into.
//
// The engine owns no HTTP surface itself: adapters translate inbound
// requests into method calls and serialize the returned values. Each method
// delegates to exactly one subsystem, with input validation at the boundary.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/bootmon/bootmon/pkg/health"
	"github.com/bootmon/bootmon/pkg/logbuf"
	"github.com/bootmon/bootmon/pkg/loggers"
	"github.com/bootmon/bootmon/pkg/metrics"
	"github.com/bootmon/bootmon/pkg/trace"
)

// ErrInvalidArgument is returned for malformed caller input, e.g. an empty
// logger name. Adapters map it to 400 Bad Request.
var ErrInvalidArgument = errors.New("invalid argument")

// AppDetails is the static application metadata served by the info endpoint.
type AppDetails struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version,omitempty"`
}

// Info is the response shape of the info endpoint.
type Info struct {
	App AppDetails `json:"app"`
}

// PropertyValue wraps a single environment value.
type PropertyValue struct {
	Value string `json:"value"`
}

// PropertySource is one named group of environment properties.
type PropertySource struct {
	Name       string                   `json:"name"`
	Properties map[string]PropertyValue `json:"properties"`
}

// Environment is the response shape of the env endpoint.
type Environment struct {
	ActiveProfiles  []string         `json:"activeProfiles"`
	PropertySources []PropertySource `json:"propertySources"`
}

// Options configures a new Engine. Zero-value fields fall back to defaults;
// pre-built components may be supplied to customize wiring.
type Options struct {
	// App is the static metadata returned by AppInfo.
	App AppDetails

	// TraceCapacity bounds the HTTP trace history. Defaults to the ring
	// package default.
	TraceCapacity int

	// DiskPath and DiskThreshold configure the built-in disk-space health
	// indicator. Defaults: working directory, 10 MiB.
	DiskPath      string
	DiskThreshold uint64

	// Indicators are additional health indicators beyond the built-in
	// disk-space check.
	Indicators []health.Indicator

	// Log is the engine's own operational logger. Defaults to a
	// discarding logger.
	Log *slog.Logger

	// Loggers is the runtime logger-level registry. Required for the
	// loggers endpoint; when nil, a registry over Log's handler is created.
	Loggers *loggers.Registry

	// LogSink is the capture backing the logfile endpoint. Created empty
	// when nil.
	LogSink *logbuf.Capture

	// Metrics overrides the default process metrics registry.
	Metrics *metrics.Registry
}

// Engine is the composition root for all observable state.
type Engine struct {
	app       AppDetails
	startTime time.Time

	traces     *trace.Recorder
	logs       *logbuf.Capture
	metricsReg *metrics.Registry
	loggersReg *loggers.Registry
	healthAgg  *health.Aggregator
	log        *slog.Logger
}

// New wires an Engine from opts.
func New(opts Options) (*Engine, error) {
	log := opts.Log
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	start := time.Now()
	metricsReg := opts.Metrics
	if metricsReg == nil {
		var err error
		metricsReg, err = metrics.Default(start)
		if err != nil {
			return nil, fmt.Errorf("agent: init metrics: %w", err)
		}
	}

	loggersReg := opts.Loggers
	if loggersReg == nil {
		loggersReg = loggers.NewRegistry(log.Handler(), slog.LevelInfo)
	}

	sink := opts.LogSink
	if sink == nil {
		sink = logbuf.New()
	}

	indicators := append([]health.Indicator{
		health.NewDiskSpace(opts.DiskPath, opts.DiskThreshold),
	}, opts.Indicators...)

	return &Engine{
		app:        opts.App,
		startTime:  start,
		traces:     trace.NewRecorder(opts.TraceCapacity),
		logs:       sink,
		metricsReg: metricsReg,
		loggersReg: loggersReg,
		healthAgg:  health.NewAggregator(log, indicators...),
		log:        log,
	}, nil
}

// AppInfo returns the static application metadata.
func (e *Engine) AppInfo() Info {
	return Info{App: e.app}
}

// StartTime returns when the engine was constructed.
func (e *Engine) StartTime() time.Time {
	return e.startTime
}

// Environment snapshots the process environment variables under the
// "systemEnvironment" property source.
func (e *Engine) Environment() Environment {
	props := make(map[string]PropertyValue)
	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		props[key] = PropertyValue{Value: value}
	}
	return Environment{
		ActiveProfiles: []string{},
		PropertySources: []PropertySource{
			{Name: "systemEnvironment", Properties: props},
		},
	}
}

// Health evaluates all health indicators.
func (e *Engine) Health(ctx context.Context) health.Report {
	return e.healthAgg.Health(ctx)
}

// MetricNames lists the available metric names.
func (e *Engine) MetricNames() metrics.Names {
	return e.metricsReg.Names()
}

// Metric computes the named metric's current value.
func (e *Engine) Metric(name string) (metrics.Metric, error) {
	if name == "" {
		return metrics.Metric{}, fmt.Errorf("%w: empty metric name", ErrInvalidArgument)
	}
	return e.metricsReg.Measure(name)
}

// Loggers returns the full logger-level snapshot.
func (e *Engine) Loggers() loggers.Snapshot {
	return e.loggersReg.Loggers()
}

// Logger returns one logger's configuration.
func (e *Engine) Logger(name string) (loggers.Config, error) {
	if name == "" {
		return loggers.Config{}, fmt.Errorf("%w: empty logger name", ErrInvalidArgument)
	}
	return e.loggersReg.Logger(name)
}

// SetLoggerLevel sets or clears (nil level) a logger's configured level.
// The change affects live logging behavior immediately.
func (e *Engine) SetLoggerLevel(name string, level *string) error {
	if name == "" {
		return fmt.Errorf("%w: empty logger name", ErrInvalidArgument)
	}
	if err := e.loggersReg.SetLevel(name, level); err != nil {
		if errors.Is(err, loggers.ErrUnknownLevel) {
			return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
		return err
	}
	return nil
}

// LogfileInfo returns the captured log's size descriptor, used when no Range
// header accompanies a logfile request.
func (e *Engine) LogfileInfo() logbuf.Info {
	return e.logs.Info()
}

// Logfile resolves a byte-range request against the captured log.
func (e *Engine) Logfile(rangeHeader string) (content []byte, start, end int64, err error) {
	return e.logs.Slice(rangeHeader)
}

// LogSink exposes the capture so logging can be teed into it at wiring time.
func (e *Engine) LogSink() *logbuf.Capture {
	return e.logs
}

// AddTrace records one completed HTTP exchange.
func (e *Engine) AddTrace(rec trace.Record) {
	e.traces.Add(rec)
}

// Traces returns the bounded HTTP exchange history, oldest first.
func (e *Engine) Traces() trace.History {
	return e.traces.Traces()
}
