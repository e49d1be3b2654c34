package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/riskpipe/supplychain/internal/app"
	"github.com/riskpipe/supplychain/internal/config"
	"github.com/riskpipe/supplychain/internal/errkind"
	"github.com/riskpipe/supplychain/internal/logger"
	"github.com/riskpipe/supplychain/internal/worker"
)

func newWorkerCmd() *cobra.Command {
	var stage string

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run one competing-consumer pipeline stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker(cmd.Context(), stage)
		},
	}
	cmd.Flags().StringVar(&stage, "stage", "", "pipeline stage to run: extract|score|alert")
	return cmd
}

func runWorker(ctx context.Context, stage string) error {
	switch stage {
	case "extract", "score", "alert":
	default:
		return errkind.Wrap(errkind.ConfigError, fmt.Errorf("invalid --stage %q, want extract|score|alert", stage))
	}

	cfg := config.Load()
	log := logger.New(cfg)
	log = logger.ForStage(log, stage)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	go app.RefreshLoop(ctx, a, 0, log)

	switch stage {
	case "extract":
		s := worker.NewExtractStage(a.Bus, a.Catalog, a.Relevance, a.Extractor, a.Store, a.Store, a.Metrics, cfg.HandlerTimeout)
		return s.Run(ctx, log)
	case "score":
		s := worker.NewScoreStage(a.Bus, a.Catalog, a.Store, a.Metrics, cfg.HandlerTimeout)
		return s.Run(ctx, log)
	case "alert":
		s := worker.NewAlertStage(a.Bus, a.Catalog, a.Graph, a.Alert, a.Store, a.Store, a.Notify, a.Metrics, cfg.PropagationThreshold, cfg.HandlerTimeout)
		return s.Run(ctx, log)
	}
	return nil
}
