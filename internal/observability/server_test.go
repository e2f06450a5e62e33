package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"ripple/internal/util"
)

func TestServerLimitSheds(t *testing.T) {
	s := &Server{limiter: util.NewLimiter(0, 2)}
	handler := s.limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		codes = append(codes, rec.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Errorf("requests within the burst must pass, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("request past the burst must be shed, got %v", codes)
	}
}

func TestServerHealthDegraded(t *testing.T) {
	checks := map[string]string{"analyzer": "up", "history": "down"}
	s := NewServer("127.0.0.1:0", func(ctx context.Context) map[string]string {
		return checks
	})

	rec := httptest.NewRecorder()
	s.healthHandler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("degraded component must report 503, got %d", rec.Code)
	}
}
