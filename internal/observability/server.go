package observability

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ripple/internal/util"
)

type Health struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
	CheckedAt  time.Time         `json:"checked_at"`
}

// HealthFunc reports component statuses; any value other than "up"
// marks the whole service degraded.
type HealthFunc func(ctx context.Context) map[string]string

// Server exposes /metrics and /health while the process stays alive
// (watch mode). One-shot runs never start it.
type Server struct {
	addr    string
	health  HealthFunc
	limiter *util.Limiter
	server  *http.Server
}

func NewServer(addr string, health HealthFunc) *Server {
	return &Server{
		addr:   addr,
		health: health,
		// Scrapers poll at a few requests per second; anything past
		// this is a misconfigured client.
		limiter: util.NewLimiter(50, 100),
	}
}

func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", s.healthHandler())

	s.server = &http.Server{
		Addr:    s.addr,
		Handler: s.limit(mux),
	}

	slog.Info("observability server starting", "addr", s.addr)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("observability server failed", "error", err)
		}
	}()

	return nil
}

func (s *Server) healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := Health{Status: "up", CheckedAt: time.Now().UTC()}
		if s.health != nil {
			h.Components = s.health(r.Context())
		}

		for _, k := range util.SortedStringKeys(h.Components) {
			if h.Components[k] != "up" {
				h.Status = "degraded"
				break
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if h.Status != "up" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(h)
	}
}

// limit sheds load instead of queueing it; the endpoints are cheap but
// a runaway scraper must not starve the analysis loop.
func (s *Server) limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow(1) {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
