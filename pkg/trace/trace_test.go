package trace

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(uri string, status int) Record {
	return Record{
		Timestamp: time.Now(),
		Request: Request{
			Method:  "GET",
			URI:     uri,
			Headers: map[string][]string{"Accept": {"application/json"}},
		},
		Response: Response{
			Status:  status,
			Headers: map[string][]string{"Content-Type": {"application/json"}},
		},
		TimeTaken: 5,
	}
}

func TestRecorderOrder(t *testing.T) {
	r := NewRecorder(10)
	r.Add(record("/a", 200))
	r.Add(record("/b", 404))
	r.Add(record("/c", 500))

	h := r.Traces()
	require.Len(t, h.Traces, 3)
	assert.Equal(t, "/a", h.Traces[0].Request.URI)
	assert.Equal(t, "/c", h.Traces[2].Request.URI)
	assert.Equal(t, 500, h.Traces[2].Response.Status)
}

func TestRecorderBounded(t *testing.T) {
	r := NewRecorder(5)
	for i := 0; i < 12; i++ {
		r.Add(record(fmt.Sprintf("/req/%d", i), 200))
	}

	h := r.Traces()
	require.Len(t, h.Traces, 5)
	assert.Equal(t, "/req/7", h.Traces[0].Request.URI)
	assert.Equal(t, "/req/11", h.Traces[4].Request.URI)
}

func TestRecordJSONShape(t *testing.T) {
	rec := record("/api/users", 200)
	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Contains(t, decoded, "timestamp")
	assert.Contains(t, decoded, "request")
	assert.Contains(t, decoded, "response")
	assert.Contains(t, decoded, "timeTaken")

	req := decoded["request"].(map[string]any)
	assert.Equal(t, "GET", req["method"])
	assert.Equal(t, "/api/users", req["uri"])
}
