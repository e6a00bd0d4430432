// Package logbuf accumulates emitted log text in memory and serves it back
// with HTTP byte-range semantics, backing the actuator logfile endpoint.
package logbuf

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// ErrInvalidRange is returned for a malformed Range header value.
var ErrInvalidRange = errors.New("invalid range header")

// ErrRangeNotSatisfiable is returned when the requested range lies outside
// the captured log. Adapters map it to 416 Range Not Satisfiable.
var ErrRangeNotSatisfiable = errors.New("range not satisfiable")

// Info describes the captured log without its content. It is the response to
// a logfile request that carries no Range header.
type Info struct {
	// Size is the total number of captured bytes.
	Size int64 `json:"size"`
}

// Capture is an append-only in-memory log sink.
//
// It implements io.Writer so it can tee the output of a slog handler.
// Appends and slices each take the lock once; a slice observes the total
// length atomically at the start of the call, so concurrent appends never
// shift a resolved range.
type Capture struct {
	mu  sync.RWMutex
	buf []byte
}

// New creates an empty Capture.
func New() *Capture {
	return &Capture{}
}

// Write appends p to the captured log. It never fails.
func (c *Capture) Write(p []byte) (int, error) {
	c.mu.Lock()
	c.buf = append(c.buf, p...)
	c.mu.Unlock()
	return len(p), nil
}

// AppendLine appends line plus a newline terminator.
func (c *Capture) AppendLine(line string) {
	c.mu.Lock()
	c.buf = append(c.buf, line...)
	c.buf = append(c.buf, '\n')
	c.mu.Unlock()
}

// Len returns the total number of captured bytes.
func (c *Capture) Len() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return int64(len(c.buf))
}

// Info returns the size descriptor for the no-Range fallback response.
func (c *Capture) Info() Info {
	return Info{Size: c.Len()}
}

// Reset discards all captured bytes.
func (c *Capture) Reset() {
	c.mu.Lock()
	c.buf = nil
	c.mu.Unlock()
}

// Slice resolves a single-range "bytes=..." specifier against the current
// log and returns the selected content plus the resolved start and end
// offsets. End is exclusive, so the adapter can answer with
// "Content-Range: bytes start-end/end" and a body of end-start bytes.
//
// Supported forms: "bytes=a-b" (inclusive, per RFC 7233), "bytes=a-" (from a
// to the end) and "bytes=-n" (the last n bytes). Returns ErrInvalidRange for
// anything else and ErrRangeNotSatisfiable when the resolved start lies
// beyond the captured log.
func (c *Capture) Slice(rangeHeader string) (content []byte, start, end int64, err error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	size := int64(len(c.buf))
	start, end, err = resolveRange(rangeHeader, size)
	if err != nil {
		return nil, 0, 0, err
	}

	content = make([]byte, end-start)
	copy(content, c.buf[start:end])
	return content, start, end, nil
}

// resolveRange parses a single-range bytes specifier and clamps it to size.
// The returned end is exclusive.
func resolveRange(header string, size int64) (int64, int64, error) {
	spec, ok := strings.CutPrefix(strings.TrimSpace(header), "bytes=")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidRange, header)
	}
	if strings.Contains(spec, ",") {
		// Multi-range requests are not supported for the logfile.
		return 0, 0, fmt.Errorf("%w: multiple ranges in %q", ErrInvalidRange, header)
	}

	first, last, ok := strings.Cut(spec, "-")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidRange, header)
	}
	first = strings.TrimSpace(first)
	last = strings.TrimSpace(last)

	if first == "" {
		// Suffix form: last n bytes.
		n, err := strconv.ParseInt(last, 10, 64)
		if err != nil || n < 0 {
			return 0, 0, fmt.Errorf("%w: %q", ErrInvalidRange, header)
		}
		start := size - n
		if start < 0 {
			start = 0
		}
		return start, size, nil
	}

	start, err := strconv.ParseInt(first, 10, 64)
	if err != nil || start < 0 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidRange, header)
	}
	if start > size {
		return 0, 0, fmt.Errorf("%w: start %d beyond size %d", ErrRangeNotSatisfiable, start, size)
	}

	end := size
	if last != "" {
		inclusiveEnd, err := strconv.ParseInt(last, 10, 64)
		if err != nil || inclusiveEnd < 0 {
			return 0, 0, fmt.Errorf("%w: %q", ErrInvalidRange, header)
		}
		if inclusiveEnd < start {
			return 0, 0, fmt.Errorf("%w: start %d after end %d", ErrRangeNotSatisfiable, start, inclusiveEnd)
		}
		end = inclusiveEnd + 1
		if end > size {
			end = size
		}
	}
	return start, end, nil
}
