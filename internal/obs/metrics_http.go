package obs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Probe is one dependency checked by /healthz.
type Probe struct {
	Name  string
	Check func(context.Context) error
}

func BootstrapMetricsServer(addr string, l *zap.Logger, probes ...Probe) *http.Server {
	ms := createMetricsServer(addr, probes)

	go func() {
		l.Info("metrics listening", zap.String("addr", addr))
		if err := ms.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error("metrics server error", zap.Error(err))
		}
	}()

	return ms
}

func createMetricsServer(addr string, probes []Probe) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", HealthHandler(probes...))
	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		IdleTimeout:  30 * time.Second,
	}
}

// HealthHandler answers 200 when every probe passes and 503 with the failing
// probe names otherwise.
func HealthHandler(probes ...Probe) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()

		failed := map[string]string{}
		for _, p := range probes {
			if err := p.Check(ctx); err != nil {
				failed[p.Name] = err.Error()
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if len(failed) > 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]any{"status": "unhealthy", "failed": failed})
			return
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok"})
	})
}

// Shutdown stops srv within timeout and logs the outcome.
func Shutdown(srv *http.Server, timeout time.Duration, l *zap.Logger) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		l.Warn("server shutdown", zap.String("addr", srv.Addr), zap.Error(err))
	}
}
