package registration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRegistry records registrations and deregistrations.
type mockRegistry struct {
	*httptest.Server

	mu            sync.Mutex
	registrations []document
	deregistered  []string
	failing       bool
}

func newMockRegistry(t *testing.T) *mockRegistry {
	t.Helper()
	reg := &mockRegistry{}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /instances", func(w http.ResponseWriter, r *http.Request) {
		reg.mu.Lock()
		defer reg.mu.Unlock()
		if reg.failing {
			http.Error(w, "registry on fire", http.StatusInternalServerError)
			return
		}
		var doc document
		if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		reg.registrations = append(reg.registrations, doc)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"id": "instance-1"})
	})
	mux.HandleFunc("DELETE /instances/{id}", func(w http.ResponseWriter, r *http.Request) {
		reg.mu.Lock()
		defer reg.mu.Unlock()
		reg.deregistered = append(reg.deregistered, r.PathValue("id"))
		w.WriteHeader(http.StatusNoContent)
	})

	reg.Server = httptest.NewServer(mux)
	t.Cleanup(reg.Close)
	return reg
}

func (m *mockRegistry) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.registrations)
}

func (m *mockRegistry) setFailing(failing bool) {
	m.mu.Lock()
	m.failing = failing
	m.mu.Unlock()
}

func (m *mockRegistry) docs() []document {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]document(nil), m.registrations...)
}

func (m *mockRegistry) deregistrations() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deregistered...)
}

func newTestClient(t *testing.T, reg *mockRegistry, clk clock.Clock) *Client {
	t.Helper()
	c, err := NewClient(Config{
		RegistryURL:   reg.URL + "/instances",
		Name:          "testapp",
		ServiceURL:    "http://localhost:8080",
		ManagementURL: "http://localhost:8080/actuator",
		HealthURL:     "http://localhost:8080/actuator/health",
		Metadata:      map[string]string{"zone": "test"},
		Interval:      time.Second,
	}, nil, clk)
	require.NoError(t, err)
	return c
}

func waitCount(t *testing.T, reg *mockRegistry, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return reg.count() >= n },
		2*time.Second, 5*time.Millisecond)
}

func TestRecurringRegistration(t *testing.T) {
	reg := newMockRegistry(t)
	clk := clock.NewMock()
	c := newTestClient(t, reg, clk)

	c.Start()
	defer c.Stop(context.Background())

	// One immediate attempt, then one per tick.
	waitCount(t, reg, 1)
	for i := 2; i <= 4; i++ {
		clk.Add(time.Second)
		waitCount(t, reg, i)
	}

	docs := reg.docs()
	require.GreaterOrEqual(t, len(docs), 4)

	// Every registration carries the same immutable startup timestamp and
	// the caller metadata.
	startup := docs[0].Metadata["startup"]
	require.NotEmpty(t, startup)
	for _, doc := range docs {
		assert.Equal(t, "testapp", doc.Name)
		assert.Equal(t, startup, doc.Metadata["startup"])
		assert.Equal(t, "test", doc.Metadata["zone"])
		assert.Equal(t, "http://localhost:8080/actuator", doc.ManagementURL)
	}

	st := c.Status()
	assert.Equal(t, "instance-1", st.InstanceID)
	assert.Zero(t, st.ConsecutiveFailures)
}

func TestStopDeregistersOnce(t *testing.T) {
	reg := newMockRegistry(t)
	clk := clock.NewMock()
	c := newTestClient(t, reg, clk)

	c.Start()
	waitCount(t, reg, 1)

	c.Stop(context.Background())
	require.Equal(t, []string{"instance-1"}, reg.deregistrations())

	// Idempotent: a second Stop must not deregister again.
	c.Stop(context.Background())
	assert.Equal(t, []string{"instance-1"}, reg.deregistrations())

	// No further ticks after Stop returns.
	before := reg.count()
	clk.Add(5 * time.Second)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, before, reg.count())
}

func TestNoDeregistrationWithoutSuccess(t *testing.T) {
	reg := newMockRegistry(t)
	reg.setFailing(true)
	clk := clock.NewMock()
	c := newTestClient(t, reg, clk)

	c.Start()
	require.Eventually(t, func() bool { return c.Status().ConsecutiveFailures >= 1 },
		2*time.Second, 5*time.Millisecond)

	c.Stop(context.Background())
	assert.Empty(t, reg.deregistrations())
}

func TestFailuresRetryAndRecover(t *testing.T) {
	reg := newMockRegistry(t)
	reg.setFailing(true)
	clk := clock.NewMock()
	c := newTestClient(t, reg, clk)

	c.Start()
	defer c.Stop(context.Background())

	require.Eventually(t, func() bool { return c.Status().ConsecutiveFailures >= 1 },
		2*time.Second, 5*time.Millisecond)

	clk.Add(time.Second)
	require.Eventually(t, func() bool { return c.Status().ConsecutiveFailures >= 2 },
		2*time.Second, 5*time.Millisecond)
	assert.Empty(t, c.Status().InstanceID)

	// Registry comes back: the next tick succeeds and resets the counter.
	reg.setFailing(false)
	clk.Add(time.Second)
	require.Eventually(t, func() bool { return c.Status().InstanceID == "instance-1" },
		2*time.Second, 5*time.Millisecond)
	assert.Zero(t, c.Status().ConsecutiveFailures)
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(Config{}, nil, nil)
	assert.Error(t, err)
}

func TestNewClientDefaults(t *testing.T) {
	c, err := NewClient(Config{RegistryURL: "http://registry.local/instances"}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultInterval, c.cfg.Interval)
	assert.Equal(t, DefaultTimeout, c.cfg.Timeout)
}
