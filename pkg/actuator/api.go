// Package actuator exposes the agent engine over HTTP using the Spring Boot
// Actuator v2 wire format, so the instance can be monitored by Spring Boot
// Admin and compatible tooling.
//
// The adapter owns everything HTTP: routing, request parsing, status-code
// mapping and response serialization. All observable state lives in the
// engine; handlers are thin translations.
package actuator

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/bootmon/bootmon/pkg/agent"
)

// DefaultBasePath is where the actuator endpoints are mounted unless
// configured otherwise.
const DefaultBasePath = "/actuator"

// Options configures the actuator API.
type Options struct {
	// Engine is the agent engine to expose. Required.
	Engine *agent.Engine

	// BasePath is the mount point of the endpoints. Defaults to
	// DefaultBasePath. Must start with "/" and not end with one.
	BasePath string

	// Log is the adapter's operational logger. May be nil.
	Log *slog.Logger
}

// API serves the actuator endpoints for one engine.
type API struct {
	engine   *agent.Engine
	basePath string
	log      *slog.Logger
}

// New creates the actuator API.
func New(opts Options) (*API, error) {
	if opts.Engine == nil {
		return nil, errors.New("actuator: engine is required")
	}
	basePath := opts.BasePath
	if basePath == "" {
		basePath = DefaultBasePath
	}
	if basePath[0] != '/' || basePath[len(basePath)-1] == '/' {
		return nil, errors.New("actuator: base path must start with '/' and not end with one")
	}
	log := opts.Log
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &API{engine: opts.Engine, basePath: basePath, log: log}, nil
}

// BasePath returns the configured mount point.
func (a *API) BasePath() string {
	return a.basePath
}

// Handler returns the http.Handler serving all actuator routes.
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	a.registerRoutes(mux)
	return mux
}

// registerRoutes sets up all actuator routes.
func (a *API) registerRoutes(mux *http.ServeMux) {
	base := a.basePath

	mux.HandleFunc("GET "+base, a.handleIndex)
	mux.HandleFunc("GET "+base+"/{$}", a.handleIndex)
	mux.HandleFunc("GET "+base+"/env", a.handleEnv)
	mux.HandleFunc("GET "+base+"/info", a.handleInfo)
	mux.HandleFunc("GET "+base+"/health", a.handleHealth)
	mux.HandleFunc("GET "+base+"/metrics", a.handleMetricNames)
	mux.HandleFunc("GET "+base+"/metrics/{name}", a.handleMetric)
	mux.HandleFunc("GET "+base+"/loggers", a.handleLoggers)
	mux.HandleFunc("GET "+base+"/loggers/{name}", a.handleLogger)
	mux.HandleFunc("POST "+base+"/loggers/{name}", a.handleSetLoggerLevel)
	mux.HandleFunc("GET "+base+"/logfile", a.handleLogfile)
	mux.HandleFunc("GET "+base+"/trace", a.handleTraces)
	mux.HandleFunc("GET "+base+"/httptrace", a.handleTraces)
	mux.HandleFunc("GET "+base+"/dump", a.handleThreadDump)
	mux.HandleFunc("GET "+base+"/threaddump", a.handleThreadDump)
}
