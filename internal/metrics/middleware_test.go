package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware_RecordsRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/session/{session_id}/history", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, id := range []string{"a", "b", "c"} {
		req := httptest.NewRequest("GET", "/session/"+id+"/history", http.NoBody)
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	val := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/session/{session_id}/history", "200"))
	if val < 3 {
		t.Errorf("expected requests grouped by route pattern >= 3, got %f", val)
	}
	if testutil.CollectAndCount(httpRequestDuration) == 0 {
		t.Error("expected http_request_duration_seconds to have observations")
	}
}

func TestMiddleware_StatusCodes(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Post("/ask", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.WriteHeader(http.StatusInternalServerError) // ignored, first status wins
	})
	r.Get("/stats", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("{}"))
	})

	tests := []struct {
		method, path, status string
	}{
		{"POST", "/ask", "400"},
		{"GET", "/stats", "200"},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, http.NoBody)
			r.ServeHTTP(httptest.NewRecorder(), req)

			val := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(tc.method, tc.path, tc.status))
			if val < 1 {
				t.Errorf("expected requests_total{%s %s %s} >= 1, got %f", tc.method, tc.path, tc.status, val)
			}
		})
	}
}

func TestMiddleware_PreservesFlusher(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())

	var flushable bool
	r.Post("/ask", func(w http.ResponseWriter, _ *http.Request) {
		f, ok := w.(http.Flusher)
		flushable = ok
		_, _ = w.Write([]byte("data: [DONE]\n\n"))
		if ok {
			f.Flush()
		}
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("POST", "/ask", http.NoBody))

	if !flushable {
		t.Fatal("wrapped writer must implement http.Flusher")
	}
	if !rr.Flushed {
		t.Error("flush must reach the underlying writer")
	}
}

func TestMiddleware_TimeToFirstByte(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Post("/ask/{mode}", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("data: {}\n\n"))
	})
	r.Post("/session/new", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	before := testutil.CollectAndCount(httpTimeToFirstByte)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/ask/stream", http.NoBody))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/session/new", http.NoBody))

	if n := testutil.CollectAndCount(httpTimeToFirstByte) - before; n != 1 {
		t.Errorf("expected one new ttfb series (bodyless responses skipped), got %d", n)
	}
}

func TestRoutePattern_Unmatched(t *testing.T) {
	req := httptest.NewRequest("GET", "/nope", http.NoBody)
	if got := routePattern(req); got != "unknown" {
		t.Errorf("routePattern = %q", got)
	}
}
