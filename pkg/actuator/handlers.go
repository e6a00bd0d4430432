// Request handlers for the actuator endpoints.

package actuator

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/bootmon/bootmon/pkg/agent"
	"github.com/bootmon/bootmon/pkg/httputil"
	"github.com/bootmon/bootmon/pkg/logbuf"
	"github.com/bootmon/bootmon/pkg/loggers"
	"github.com/bootmon/bootmon/pkg/metrics"
)

// link is one entry of the index document.
type link struct {
	Href      string `json:"href"`
	Templated bool   `json:"templated"`
}

// handleIndex lists the available sub-resources.
func (a *API) handleIndex(w http.ResponseWriter, r *http.Request) {
	base := baseURL(r) + a.basePath
	links := map[string]link{
		"self":       {Href: base},
		"env":        {Href: base + "/env"},
		"info":       {Href: base + "/info"},
		"health":     {Href: base + "/health"},
		"metrics":    {Href: base + "/metrics"},
		"loggers":    {Href: base + "/loggers"},
		"logfile":    {Href: base + "/logfile"},
		"httptrace":  {Href: base + "/httptrace"},
		"threaddump": {Href: base + "/threaddump"},
	}
	httputil.WriteOK(w, map[string]any{"_links": links})
}

func (a *API) handleEnv(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteOK(w, a.engine.Environment())
}

func (a *API) handleInfo(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteOK(w, a.engine.AppInfo())
}

// handleHealth reports aggregated health; the HTTP status follows the
// overall health status.
func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	rep := a.engine.Health(r.Context())
	httputil.WriteJSON(w, rep.HTTPStatus(), rep)
}

func (a *API) handleMetricNames(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteOK(w, a.engine.MetricNames())
}

func (a *API) handleMetric(w http.ResponseWriter, r *http.Request) {
	m, err := a.engine.Metric(r.PathValue("name"))
	if err != nil {
		a.writeEngineError(w, err)
		return
	}
	httputil.WriteOK(w, m)
}

func (a *API) handleLoggers(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteOK(w, a.engine.Loggers())
}

func (a *API) handleLogger(w http.ResponseWriter, r *http.Request) {
	cfg, err := a.engine.Logger(r.PathValue("name"))
	if err != nil {
		a.writeEngineError(w, err)
		return
	}
	httputil.WriteOK(w, cfg)
}

// setLevelRequest is the POST body of the loggers endpoint. A null or absent
// configuredLevel clears the explicit level.
type setLevelRequest struct {
	ConfiguredLevel *string `json:"configuredLevel"`
}

func (a *API) handleSetLoggerLevel(w http.ResponseWriter, r *http.Request) {
	var req setLevelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "invalid_json", "request body must be a JSON object")
		return
	}
	if err := a.engine.SetLoggerLevel(r.PathValue("name"), req.ConfiguredLevel); err != nil {
		a.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleLogfile serves the captured log. Without a Range header it answers
// with the size descriptor; with one it serves 206 Partial Content.
func (a *API) handleLogfile(w http.ResponseWriter, r *http.Request) {
	rangeHeader := r.Header.Get("Range")
	if rangeHeader == "" {
		httputil.WriteOK(w, a.engine.LogfileInfo())
		return
	}

	content, start, end, err := a.engine.Logfile(rangeHeader)
	if err != nil {
		a.writeEngineError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, end))
	w.WriteHeader(http.StatusPartialContent)
	_, _ = w.Write(content)
}

func (a *API) handleTraces(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteOK(w, a.engine.Traces())
}

func (a *API) handleThreadDump(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteOK(w, a.engine.ThreadDump())
}

// writeEngineError maps engine errors onto HTTP status codes.
func (a *API) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, agent.ErrInvalidArgument), errors.Is(err, logbuf.ErrInvalidRange):
		httputil.WriteBadRequest(w, "invalid_argument", err.Error())
	case errors.Is(err, metrics.ErrMetricNotFound), errors.Is(err, loggers.ErrLoggerNotFound):
		httputil.WriteNotFound(w, "not_found", err.Error())
	case errors.Is(err, logbuf.ErrRangeNotSatisfiable):
		httputil.WriteError(w, http.StatusRequestedRangeNotSatisfiable, "range_not_satisfiable", err.Error())
	default:
		a.log.Error("actuator request failed", "error", err)
		httputil.WriteInternalError(w, "internal_error", "unexpected failure")
	}
}

// baseURL reconstructs the scheme and host the client used.
func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
