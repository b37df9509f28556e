package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gpuhot/gpuhot/internal/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler returns the mux served by Serve.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// Serve exposes /metrics on addr until ctx is cancelled. The listener is
// bound before Serve returns so a bad address fails fast.
func Serve(ctx context.Context, addr string, log logger.Logger) (<-chan error, error) {
	log = logger.OrDefault(log)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	srv := &http.Server{
		Handler:           Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	done := make(chan error, 1)
	go func() {
		log.Info("serving metrics on %s", ln.Addr())
		err := srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		done <- err
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	return done, nil
}
