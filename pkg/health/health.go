// Package health runs pluggable health indicators and folds their reports
// into the overall status served by the actuator health endpoint.
package health

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
)

// Status is the health state of a component or of the whole instance.
type Status string

const (
	StatusUp           Status = "UP"
	StatusDown         Status = "DOWN"
	StatusUnknown      Status = "UNKNOWN"
	StatusOutOfService Status = "OUT_OF_SERVICE"
)

// severity orders statuses for aggregation; higher values dominate.
func severity(s Status) int {
	switch s {
	case StatusDown:
		return 3
	case StatusOutOfService:
		return 2
	case StatusUnknown:
		return 1
	default:
		return 0
	}
}

// Report is a health result, possibly carrying named sub-reports or other
// details. Reports are built fresh per request and never persisted.
type Report struct {
	Status  Status         `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}

// HTTPStatus maps the report status to the conventional health-check
// response code: 503 for DOWN and OUT_OF_SERVICE, 200 otherwise.
func (r Report) HTTPStatus() int {
	if r.Status == StatusDown || r.Status == StatusOutOfService {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

// Indicator is one pluggable check contributing a named sub-report.
type Indicator interface {
	// Name identifies the indicator in the aggregate report's details.
	Name() string

	// Health evaluates the check. Implementations should honor ctx
	// cancellation when they perform I/O.
	Health(ctx context.Context) Report
}

// Aggregator evaluates an ordered set of indicators. It holds no mutable
// state beyond its configuration, so concurrent Health calls are independent.
type Aggregator struct {
	indicators []Indicator
	log        *slog.Logger
}

// NewAggregator creates an Aggregator over the given indicators, evaluated
// in order. log may be nil.
func NewAggregator(log *slog.Logger, indicators ...Indicator) *Aggregator {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Aggregator{indicators: indicators, log: log}
}

// Health runs every indicator and folds the results. The overall status is
// DOWN if any indicator reports DOWN and UP only when all report UP. An
// indicator that panics degrades to DOWN with an error detail instead of
// failing the whole request.
func (a *Aggregator) Health(ctx context.Context) Report {
	overall := Report{Status: StatusUp, Details: make(map[string]any, len(a.indicators))}

	for _, ind := range a.indicators {
		sub := a.evaluate(ctx, ind)
		overall.Details[ind.Name()] = sub
		if severity(sub.Status) > severity(overall.Status) {
			overall.Status = sub.Status
		}
	}
	return overall
}

func (a *Aggregator) evaluate(ctx context.Context, ind Indicator) (rep Report) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Error("health indicator panicked", "indicator", ind.Name(), "panic", r)
			rep = Report{
				Status:  StatusDown,
				Details: map[string]any{"error": fmt.Sprintf("indicator panicked: %v", r)},
			}
		}
	}()
	return ind.Health(ctx)
}
