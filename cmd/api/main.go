// Command api runs the minimal health/readonly HTTP surface (spec.md §8):
// liveness/readiness probes, Prometheus scraping, and a read-only alerts
// listing. The full dashboard REST/WebSocket API is an external
// collaborator (spec.md §1) — this binary exists only so the repo has one
// real HTTP entrypoint in the teacher's idiom.
package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/riskpipe/supplychain/internal/app"
	"github.com/riskpipe/supplychain/internal/apiserver"
	"github.com/riskpipe/supplychain/internal/config"
	"github.com/riskpipe/supplychain/internal/logger"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg)
	log = log.With().Str("component", "api").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build application")
	}
	defer a.Close(context.Background())

	handler := apiserver.NewRouter(a.Store, a.Bus, a.Metrics, cfg.CompanyID, log)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("http server shutdown error")
		}
	}()

	log.Info().Str("addr", cfg.Addr).Msg("api server listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("api server failed")
	}
}
