// Package loggers tracks named slog loggers in a dotted hierarchy and lets
// their severity be changed at runtime through the actuator loggers endpoint.
//
// Loggers are named like "server.http.access". A logger without a configured
// level inherits from its nearest configured ancestor, falling back to the
// root level. Level changes take effect immediately for every *slog.Logger
// handed out by the registry, because the wrapping handler consults the
// registry on each Enabled check.
package loggers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// ErrLoggerNotFound is returned when querying a logger name the registry has
// never seen.
var ErrLoggerNotFound = errors.New("logger not found")

// ErrUnknownLevel is returned when setting a level name the registry does not
// recognize.
var ErrUnknownLevel = errors.New("unknown log level")

// RootName identifies the root of the logger hierarchy.
const RootName = "ROOT"

// LevelNames lists the configurable levels, most to least verbose.
var LevelNames = []string{"TRACE", "DEBUG", "INFO", "WARN", "ERROR", "OFF"}

const (
	levelTrace = slog.LevelDebug - 4
	levelOff   = slog.LevelError + 4
)

// Config is one logger's level configuration as reported to callers.
type Config struct {
	// ConfiguredLevel is the explicitly set level, empty when inherited.
	ConfiguredLevel string `json:"configuredLevel,omitempty"`

	// EffectiveLevel is the level actually in force.
	EffectiveLevel string `json:"effectiveLevel"`
}

// Snapshot is the full registry state for the loggers endpoint.
type Snapshot struct {
	Levels  []string          `json:"levels"`
	Loggers map[string]Config `json:"loggers"`
}

// Registry owns the logger hierarchy. All methods are safe for concurrent use.
type Registry struct {
	base slog.Handler

	mu         sync.RWMutex
	rootLevel  slog.Level
	configured map[string]slog.Level
	known      map[string]struct{}
}

// NewRegistry creates a Registry whose loggers emit through base at or above
// rootLevel unless configured otherwise.
func NewRegistry(base slog.Handler, rootLevel slog.Level) *Registry {
	if base == nil {
		base = slog.Default().Handler()
	}
	return &Registry{
		base:       base,
		rootLevel:  rootLevel,
		configured: make(map[string]slog.Level),
		known:      make(map[string]struct{}),
	}
}

// Named returns a logger for name, creating the registry entry on first use.
// The returned logger tags records with a "logger" attribute and honors level
// changes made later through SetLevel.
func (r *Registry) Named(name string) *slog.Logger {
	r.mu.Lock()
	r.known[name] = struct{}{}
	r.mu.Unlock()

	h := &registryHandler{reg: r, name: name, next: r.base}
	return slog.New(h).With("logger", name)
}

// Loggers returns the configuration of every known logger plus the root.
func (r *Registry) Loggers() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]Config, len(r.known)+1)
	out[RootName] = Config{
		ConfiguredLevel: levelName(r.rootLevel),
		EffectiveLevel:  levelName(r.rootLevel),
	}

	names := make([]string, 0, len(r.known)+len(r.configured))
	for name := range r.known {
		names = append(names, name)
	}
	for name := range r.configured {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		out[name] = r.configLocked(name)
	}
	return Snapshot{Levels: LevelNames, Loggers: out}
}

// Logger returns the configuration of a single logger.
func (r *Registry) Logger(name string) (Config, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == RootName {
		return Config{
			ConfiguredLevel: levelName(r.rootLevel),
			EffectiveLevel:  levelName(r.rootLevel),
		}, nil
	}
	_, seen := r.known[name]
	_, conf := r.configured[name]
	if !seen && !conf {
		return Config{}, fmt.Errorf("%w: %q", ErrLoggerNotFound, name)
	}
	return r.configLocked(name), nil
}

// SetLevel sets the configured level for name. A nil level clears the
// explicit configuration so the logger inherits again. Setting a level for a
// name the registry has not seen registers it, matching the behavior of
// hierarchical logging frameworks where loggers spring into existence on
// first reference.
func (r *Registry) SetLevel(name string, level *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if level == nil {
		if name == RootName {
			return nil
		}
		delete(r.configured, name)
		return nil
	}

	lvl, ok := parseLevel(*level)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownLevel, *level)
	}
	if name == RootName {
		r.rootLevel = lvl
		return nil
	}
	r.configured[name] = lvl
	r.known[name] = struct{}{}
	return nil
}

// Effective returns the level currently in force for name.
func (r *Registry) Effective(name string) slog.Level {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.effectiveLocked(name)
}

func (r *Registry) configLocked(name string) Config {
	cfg := Config{EffectiveLevel: levelName(r.effectiveLocked(name))}
	if lvl, ok := r.configured[name]; ok {
		cfg.ConfiguredLevel = levelName(lvl)
	}
	return cfg
}

// effectiveLocked walks up the dotted hierarchy to the nearest configured
// ancestor, falling back to the root level.
func (r *Registry) effectiveLocked(name string) slog.Level {
	for name != "" {
		if lvl, ok := r.configured[name]; ok {
			return lvl
		}
		idx := strings.LastIndex(name, ".")
		if idx < 0 {
			break
		}
		name = name[:idx]
	}
	return r.rootLevel
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToUpper(s) {
	case "TRACE":
		return levelTrace, true
	case "DEBUG":
		return slog.LevelDebug, true
	case "INFO":
		return slog.LevelInfo, true
	case "WARN", "WARNING":
		return slog.LevelWarn, true
	case "ERROR":
		return slog.LevelError, true
	case "OFF":
		return levelOff, true
	default:
		return 0, false
	}
}

func levelName(lvl slog.Level) string {
	switch {
	case lvl <= levelTrace:
		return "TRACE"
	case lvl <= slog.LevelDebug:
		return "DEBUG"
	case lvl <= slog.LevelInfo:
		return "INFO"
	case lvl <= slog.LevelWarn:
		return "WARN"
	case lvl <= slog.LevelError:
		return "ERROR"
	default:
		return "OFF"
	}
}

// registryHandler defers the level decision to the registry on every call so
// SetLevel changes apply to loggers that are already in user hands.
type registryHandler struct {
	reg  *Registry
	name string
	next slog.Handler
}

func (h *registryHandler) Enabled(_ context.Context, level slog.Level) bool {
	eff := h.reg.Effective(h.name)
	if eff >= levelOff {
		return false
	}
	return level >= eff
}

func (h *registryHandler) Handle(ctx context.Context, rec slog.Record) error {
	return h.next.Handle(ctx, rec)
}

func (h *registryHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &registryHandler{reg: h.reg, name: h.name, next: h.next.WithAttrs(attrs)}
}

func (h *registryHandler) WithGroup(name string) slog.Handler {
	return &registryHandler{reg: h.reg, name: h.name, next: h.next.WithGroup(name)}
}
