package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/pkg/ratelimit"
)

func TestRequestIDAssignsAndPropagates(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/search?q=x", nil))
	if seen == "" || rec.Header().Get(RequestIDHeader) != seen {
		t.Errorf("generated id not propagated: ctx=%q header=%q", seen, rec.Header().Get(RequestIDHeader))
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/search?q=x", nil)
	req.Header.Set(RequestIDHeader, "caller-id")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "caller-id" {
		t.Errorf("caller id = %q, want caller-id", seen)
	}
}

func TestTimeoutWritesGatewayTimeout(t *testing.T) {
	h := Timeout(10 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		time.Sleep(5 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/slow", nil))
	if rec.Code != http.StatusGatewayTimeout {
		t.Errorf("status = %d, want 504", rec.Code)
	}
}

func TestMetricsCountsRequests(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	h := Metrics(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/search", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/random/path", nil))

	if got := counterValue(t, m.HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/search", "404")); got != 1 {
		t.Errorf("search counter = %v, want 1", got)
	}
	if got := counterValue(t, m.HTTPRequestsTotal.WithLabelValues("GET", "other", "404")); got != 1 {
		t.Errorf("other counter = %v, want 1", got)
	}
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var out dto.Metric
	if err := c.Write(&out); err != nil {
		t.Fatalf("reading counter: %v", err)
	}
	return out.GetCounter().GetValue()
}

func TestCORS(t *testing.T) {
	var reached int
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached++
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name        string
		origins     []string
		method      string
		origin      string
		preflight   bool
		wantStatus  int
		wantAllow   string
		wantReached bool
	}{
		{"no origin header", []string{"*"}, http.MethodGet, "", false, http.StatusOK, "", true},
		{"wildcard", []string{"*"}, http.MethodGet, "http://ui.local", false, http.StatusOK, "http://ui.local", true},
		{"listed origin", []string{"http://ui.local"}, http.MethodGet, "http://ui.local", false, http.StatusOK, "http://ui.local", true},
		{"unlisted origin", []string{"http://ui.local"}, http.MethodGet, "http://evil.local", false, http.StatusOK, "", true},
		{"disabled", nil, http.MethodGet, "http://ui.local", false, http.StatusOK, "", true},
		{"preflight", []string{"*"}, http.MethodOptions, "http://ui.local", true, http.StatusNoContent, "http://ui.local", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reached = 0
			req := httptest.NewRequest(tt.method, "/api/v1/search?q=x", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodGet)
			}
			rec := httptest.NewRecorder()
			CORS(CORSFromOrigins(tt.origins))(next).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllow {
				t.Errorf("allow origin = %q, want %q", got, tt.wantAllow)
			}
			if (reached == 1) != tt.wantReached {
				t.Errorf("next reached = %v, want %v", reached == 1, tt.wantReached)
			}
		})
	}
}

func TestRateLimitPerClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := RateLimit(ratelimit.New(ctx, 2, time.Minute))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(path, remote, forwarded string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = remote
		if forwarded != "" {
			req.Header.Set("X-Forwarded-For", forwarded)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 2; i++ {
		if code := do("/api/v1/search?q=x", "10.0.0.1:1234", ""); code != http.StatusOK {
			t.Fatalf("request %d: status %d", i+1, code)
		}
	}
	if code := do("/api/v1/search?q=x", "10.0.0.1:5678", ""); code != http.StatusTooManyRequests {
		t.Errorf("third request: status %d, want 429", code)
	}
	if code := do("/health/ready", "10.0.0.1:1234", ""); code != http.StatusOK {
		t.Errorf("health probe limited: status %d", code)
	}
	if code := do("/api/v1/search?q=x", "10.0.0.1:1234", "203.0.113.9, 10.0.0.1"); code != http.StatusOK {
		t.Errorf("forwarded client: status %d", code)
	}
}
