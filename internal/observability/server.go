package observability

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/san-kum/labsim/internal/logging"
)

// Serve exposes c on addr at /metrics until ctx is done.
func Serve(ctx context.Context, addr string, c *SimCollector, log logging.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errc := make(chan error, 1)
	go func() {
		log.Info(ctx, "metrics listening", logging.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdown)
	}
}
