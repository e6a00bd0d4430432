// Package trace captures completed HTTP exchanges for user inspection via the
// actuator API.
//
// The adapter layer measures timing and collects headers; this package only
// stores records and serves snapshots. History is bounded: once capacity is
// reached, the oldest record is discarded. This is distinct from operational
// logging (which uses log/slog).
package trace

import (
	"time"

	"github.com/bootmon/bootmon/pkg/ring"
)

// Request describes the request half of a traced exchange.
type Request struct {
	// Method is the HTTP method.
	Method string `json:"method"`

	// URI is the full request URI.
	URI string `json:"uri"`

	// Headers are the request headers (multi-value).
	Headers map[string][]string `json:"headers,omitempty"`
}

// Response describes the response half of a traced exchange.
type Response struct {
	// Status is the HTTP status code returned.
	Status int `json:"status"`

	// Headers are the response headers (multi-value).
	Headers map[string][]string `json:"headers,omitempty"`
}

// Record is one completed request/response exchange.
// Records are immutable once created.
type Record struct {
	// Timestamp is when the request was received.
	Timestamp time.Time `json:"timestamp"`

	// Request holds the request details.
	Request Request `json:"request"`

	// Response holds the response details.
	Response Response `json:"response"`

	// TimeTaken is the request processing time in milliseconds.
	TimeTaken int64 `json:"timeTaken"`
}

// History is the snapshot returned to the actuator trace endpoint,
// oldest record first.
type History struct {
	Traces []Record `json:"traces"`
}

// Recorder stores recent exchanges in a ring buffer.
type Recorder struct {
	buf *ring.Buffer[Record]
}

// NewRecorder creates a Recorder keeping at most capacity records.
// Capacities <= 0 fall back to the ring package default.
func NewRecorder(capacity int) *Recorder {
	return &Recorder{buf: ring.New[Record](capacity)}
}

// Add records a completed exchange. O(1), no I/O.
func (r *Recorder) Add(rec Record) {
	r.buf.Push(rec)
}

// Traces returns the current history, oldest first.
func (r *Recorder) Traces() History {
	return History{Traces: r.buf.Snapshot()}
}
