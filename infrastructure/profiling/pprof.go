// Package profiling starts opt-in pprof and Pyroscope profilers.
package profiling

import (
	"errors"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // bound to localhost only
	"os"
	"time"

	"github.com/jonesrussell/north-cloud/redirector/infrastructure/logger"
)

const (
	defaultPprofPort  = "6060"
	pprofReadTimeout  = 5 * time.Second
	pprofWriteTimeout = 60 * time.Second
)

// StartPprofServer serves /debug/pprof on localhost:PPROF_PORT when
// ENABLE_PROFILING=true. It returns immediately.
func StartPprofServer(log logger.Logger) {
	if os.Getenv("ENABLE_PROFILING") != "true" {
		return
	}

	port := os.Getenv("PPROF_PORT")
	if port == "" {
		port = defaultPprofPort
	}

	srv := &http.Server{
		Addr:         "localhost:" + port,
		Handler:      http.DefaultServeMux,
		ReadTimeout:  pprofReadTimeout,
		WriteTimeout: pprofWriteTimeout,
	}

	go func() {
		log.Info("Starting pprof server", logger.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("pprof server error", logger.Error(err))
		}
	}()
}
