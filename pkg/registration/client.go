// Package registration keeps a remote monitoring registry aware of this
// instance by POSTing a registration document on a fixed interval.
//
// The registry is assumed to expire stale registrations, so the client
// re-registers on every tick rather than once. Failures are logged and
// retried on the next tick; they are never surfaced to the embedding
// application. On Stop, a single best-effort deregistration is issued if an
// instance id was ever obtained.
package registration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// ErrRegistrationFailed wraps network errors and non-2xx responses from the
// registry. It is logged, never returned to the embedding application.
var ErrRegistrationFailed = errors.New("registration failed")

// Defaults for optional Config fields.
const (
	DefaultInterval = 10 * time.Second
	DefaultTimeout  = 5 * time.Second
)

// Config describes this instance to the registry.
type Config struct {
	// RegistryURL is the registration endpoint, e.g.
	// "http://admin.example.com/instances". Deregistration DELETEs
	// RegistryURL/{id}.
	RegistryURL string

	// Name is the application name shown by the registry.
	Name string

	// ServiceURL is the externally reachable base URL of the application.
	ServiceURL string

	// ManagementURL is the base URL of the actuator endpoints.
	ManagementURL string

	// HealthURL is the health endpoint URL.
	HealthURL string

	// Metadata is caller-supplied key/value metadata. The client adds an
	// immutable "startup" timestamp fixed at construction.
	Metadata map[string]string

	// Interval between registration attempts. Defaults to DefaultInterval.
	Interval time.Duration

	// Timeout for each registration HTTP request. Defaults to DefaultTimeout.
	Timeout time.Duration
}

// document is the wire format of a registration request.
type document struct {
	Name          string            `json:"name"`
	ManagementURL string            `json:"managementUrl"`
	HealthURL     string            `json:"healthUrl"`
	ServiceURL    string            `json:"serviceUrl"`
	Metadata      map[string]string `json:"metadata"`
}

// registrationResponse carries the instance id assigned by the registry.
type registrationResponse struct {
	ID string `json:"id"`
}

// State is a snapshot of the client's registration progress.
type State struct {
	// InstanceID is the id returned by the registry, empty until the first
	// successful registration.
	InstanceID string `json:"instanceId,omitempty"`

	// LastAttempt is when the most recent registration attempt started.
	LastAttempt time.Time `json:"lastAttempt"`

	// LastSuccess is when a registration last succeeded.
	LastSuccess time.Time `json:"lastSuccess"`

	// ConsecutiveFailures counts failed attempts since the last success.
	ConsecutiveFailures int `json:"consecutiveFailures"`
}

// Client periodically registers this instance with the remote registry.
// Start launches a dedicated goroutine; inbound introspection requests never
// block on registration I/O.
type Client struct {
	cfg        Config
	body       []byte
	httpClient *http.Client
	clk        clock.Clock
	log        *slog.Logger

	mu      sync.Mutex
	state   State
	started bool
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewClient creates a Client. The "startup" metadata timestamp is fixed here
// and identical across all subsequent registrations. log and clk may be nil,
// defaulting to a discarding logger and the real clock.
func NewClient(cfg Config, log *slog.Logger, clk clock.Clock) (*Client, error) {
	if cfg.RegistryURL == "" {
		return nil, errors.New("registration: registry URL is required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if clk == nil {
		clk = clock.New()
	}

	metadata := map[string]string{
		"startup": clk.Now().Format(time.RFC3339Nano),
	}
	for k, v := range cfg.Metadata {
		metadata[k] = v
	}
	body, err := json.Marshal(document{
		Name:          cfg.Name,
		ManagementURL: cfg.ManagementURL,
		HealthURL:     cfg.HealthURL,
		ServiceURL:    cfg.ServiceURL,
		Metadata:      metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("registration: marshal document: %w", err)
	}

	return &Client{
		cfg:        cfg,
		body:       body,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		clk:        clk,
		log:        log,
	}, nil
}

// Start launches the periodic registration loop. It registers immediately,
// then on every interval tick. Calling Start more than once is a no-op.
func (c *Client) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started || c.stopped {
		return
	}
	c.started = true

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.loop(ctx)
}

// Stop cancels the registration loop, waits for any in-flight attempt to
// finish, and issues one best-effort deregistration if an instance id was
// ever obtained. No tick fires after Stop returns. Stop is idempotent.
func (c *Client) Stop(ctx context.Context) {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	c.mu.Lock()
	id := c.state.InstanceID
	c.mu.Unlock()
	if id == "" {
		return
	}
	if err := c.deregister(ctx, id); err != nil {
		c.log.Warn("deregistration failed", "instance", id, "error", err)
	}
}

// Status returns a snapshot of the registration state.
func (c *Client) Status() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// loop drives registration attempts until ctx is cancelled. At most one
// attempt is in flight at a time; a hung registry only delays the next tick
// by the request timeout.
func (c *Client) loop(ctx context.Context) {
	defer close(c.done)

	ticker := c.clk.Ticker(c.cfg.Interval)
	defer ticker.Stop()

	c.attempt(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.attempt(ctx)
		}
	}
}

// attempt performs one registration round trip and records the outcome.
func (c *Client) attempt(ctx context.Context) {
	c.mu.Lock()
	c.state.LastAttempt = c.clk.Now()
	c.mu.Unlock()

	id, err := c.register(ctx)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state.ConsecutiveFailures++
		c.log.Warn("registration attempt failed",
			"registry", c.cfg.RegistryURL,
			"consecutiveFailures", c.state.ConsecutiveFailures,
			"error", err)
		return
	}
	c.state.InstanceID = id
	c.state.LastSuccess = c.clk.Now()
	c.state.ConsecutiveFailures = 0
	c.log.Debug("registered with monitoring registry", "instance", id)
}

func (c *Client) register(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.RegistryURL, bytes.NewReader(c.body))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRegistrationFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRegistrationFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %w", ErrRegistrationFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: %s (status %d)", ErrRegistrationFailed, string(body), resp.StatusCode)
	}

	var regResp registrationResponse
	if err := json.Unmarshal(body, &regResp); err != nil {
		return "", fmt.Errorf("%w: unmarshal response: %w", ErrRegistrationFailed, err)
	}
	return regResp.ID, nil
}

func (c *Client) deregister(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.cfg.RegistryURL+"/"+id, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		// The registry already expired this instance.
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
