package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tourguide",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Time until the handler returned; for /ask this covers the whole stream",
			Buckets:   []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "path", "status"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tourguide",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route pattern and status",
		},
		[]string{"method", "path", "status"},
	)

	httpTimeToFirstByte = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tourguide",
			Subsystem: "http",
			Name:      "time_to_first_byte_seconds",
			Help:      "Time until the first body byte, i.e. the opening frame of a stream",
			Buckets:   []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)
)

// Middleware records per-route request counts, durations and time to first byte.
// Paths are chi route patterns, so session ids do not explode label cardinality.
func Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &recorder{ResponseWriter: w, status: http.StatusOK, start: time.Now()}
			next.ServeHTTP(rec, r)

			path := routePattern(r)
			status := strconv.Itoa(rec.status)
			httpRequestDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(rec.start).Seconds())
			httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
			if !rec.firstByte.IsZero() {
				httpTimeToFirstByte.WithLabelValues(r.Method, path).Observe(rec.firstByte.Sub(rec.start).Seconds())
			}
		})
	}
}

// routePattern is read after the handler ran, when chi has filled the pattern in.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return "unknown"
	}
	if p := rctx.RoutePattern(); p != "" {
		return p
	}
	return "unknown"
}

// recorder keeps the first status written and when the body started.
type recorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	start       time.Time
	firstByte   time.Time
}

func (w *recorder) WriteHeader(status int) {
	if !w.wroteHeader {
		w.status = status
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *recorder) Write(b []byte) (int, error) {
	w.wroteHeader = true
	if w.firstByte.IsZero() && len(b) > 0 {
		w.firstByte = time.Now()
	}
	return w.ResponseWriter.Write(b) //nolint:wrapcheck // delegating to underlying ResponseWriter
}

// Flush forwards to the underlying writer so event streams are not buffered.
func (w *recorder) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (w *recorder) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
