// Trace-recording middleware for the embedding application's handlers.

package actuator

import (
	"net/http"
	"time"

	"github.com/bootmon/bootmon/pkg/agent"
	"github.com/bootmon/bootmon/pkg/trace"
)

// statusRecorder captures the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Trace wraps next so every completed exchange is recorded in the engine's
// bounded trace history. The middleware owns timing and header capture; the
// engine only stores the finished record.
func Trace(engine *agent.Engine, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		engine.AddTrace(trace.Record{
			Timestamp: start,
			Request: trace.Request{
				Method:  r.Method,
				URI:     baseURL(r) + r.URL.RequestURI(),
				Headers: r.Header.Clone(),
			},
			Response: trace.Response{
				Status:  rec.status,
				Headers: w.Header().Clone(),
			},
			TimeTaken: time.Since(start).Milliseconds(),
		})
	})
}
