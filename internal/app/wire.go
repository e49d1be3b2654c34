// Package app wires the pipeline's collaborators from config, the shared
// construction logic cmd/riskctl and cmd/api both depend on so the
// wiring lives in one place instead of being duplicated across
// entrypoints, mirroring the teacher's single-main wiring style
// generalized into a reusable constructor.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/riskpipe/supplychain/internal/config"
	"github.com/riskpipe/supplychain/internal/errkind"
	"github.com/riskpipe/supplychain/internal/metrics"
	"github.com/riskpipe/supplychain/pkg/alert"
	"github.com/riskpipe/supplychain/pkg/catalog"
	"github.com/riskpipe/supplychain/pkg/dedup"
	"github.com/riskpipe/supplychain/pkg/fetcher"
	"github.com/riskpipe/supplychain/pkg/graph"
	"github.com/riskpipe/supplychain/pkg/llm"
	"github.com/riskpipe/supplychain/pkg/notify"
	"github.com/riskpipe/supplychain/pkg/relevance"
	"github.com/riskpipe/supplychain/pkg/store"
	"github.com/riskpipe/supplychain/pkg/streambus"
)

// App bundles every long-lived collaborator a worker process or the API
// server needs.
type App struct {
	Config    *config.Config
	Logger    zerolog.Logger
	Bus       *streambus.Bus
	Store     store.Store
	Catalog   *catalog.Cache
	Graph     *graph.Cache
	LLM       llm.Client
	Relevance *relevance.Filter
	Extractor *llm.Extractor
	Alert     *alert.Synth
	Notify    *notify.Dispatcher
	Metrics   *metrics.Metrics
	Dedup     *dedup.Index
	Fetcher   *fetcher.Fetcher
}

// Build connects to every external dependency and constructs the full
// collaborator graph. Connection failures are wrapped in
// errkind.ConfigError so main() can fail fast with a non-zero exit code,
// per spec.md §7.
func Build(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	if cfg.CompanyID == "" {
		return nil, errkind.Wrap(errkind.ConfigError, fmt.Errorf("COMPANY_ID is required"))
	}

	mongoStore, err := store.NewMongoStore(cfg)
	if err != nil {
		return nil, err
	}

	bus, err := streambus.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := bus.Ping(ctx); err != nil {
		return nil, errkind.Wrap(errkind.ConfigError, fmt.Errorf("redis ping: %w", err))
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, errkind.Wrap(errkind.ConfigError, fmt.Errorf("invalid REDIS_URL: %w", err))
	}
	dedupIdx := dedup.New(redis.NewClient(opt))

	llmClient := buildLLMClient(cfg, logger)

	m := metrics.New()

	cat := catalog.New(cfg.CompanyID, catalog.NewStoreLoader(mongoStore))
	if err := cat.Refresh(ctx); err != nil {
		return nil, errkind.Wrap(errkind.ConfigError, fmt.Errorf("initial catalog load: %w", err))
	}

	graphCache := graph.NewCache()
	graphCache.Refresh(cat.Snapshot())

	relFilter := relevance.New(llmClient, cfg.NewsRelevanceThreshold, cfg.EmbeddingTimeout, logger)
	extractor := llm.NewExtractor(llmClient, logger)
	alertSynth := alert.New(llmClient, cfg.AlertThresholdScore, logger)

	dispatcher := notify.NewDispatcher(logger, buildNotifiers(cfg, cat.Snapshot().Company.AlertContacts)...)

	f := fetcher.New(cfg.NewsAPIKey, bus, dedupIdx, cfg.DedupTTL, cfg.NewsTimeout, logger)

	return &App{
		Config:    cfg,
		Logger:    logger,
		Bus:       bus,
		Store:     mongoStore,
		Catalog:   cat,
		Graph:     graphCache,
		LLM:       llmClient,
		Relevance: relFilter,
		Extractor: extractor,
		Alert:     alertSynth,
		Notify:    dispatcher,
		Metrics:   m,
		Dedup:     dedupIdx,
		Fetcher:   f,
	}, nil
}

// buildLLMClient prefers Gemini (the only vendor capable of both
// extraction and embeddings); an operator who sets ANTHROPIC_API_KEY
// instead gets extraction-only behavior, matching the teacher's
// os.Getenv-gated optional-provider registration pattern — RelevanceFilter
// then needs GEMINI_API_KEY set too, or it fails open on every article.
func buildLLMClient(cfg *config.Config, logger zerolog.Logger) llm.Client {
	if cfg.GeminiAPIKey != "" {
		return llm.NewGeminiClient(cfg.GeminiAPIKey, cfg.LLMTimeout)
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		logger.Warn().Msg("ANTHROPIC_API_KEY set without GEMINI_API_KEY: relevance filtering will fail open on every article")
		return llm.NewAnthropicClient(key, cfg.LLMTimeout)
	}
	logger.Warn().Msg("no LLM API key configured: risk extraction and relevance filtering are disabled")
	return noopLLMClient{}
}

func buildNotifiers(cfg *config.Config, alertContacts []string) []notify.Notifier {
	var channels []notify.Notifier
	if sn := notify.NewSlackNotifier(cfg.SlackWebhookURL, cfg.NotificationTimeout); sn != nil {
		channels = append(channels, sn)
	}
	if en := notify.NewEmailNotifier(cfg.SendGridAPIKey, "alerts@riskpipe.local", alertContacts, cfg.NotificationTimeout); en != nil {
		channels = append(channels, en)
	}
	return channels
}

// Close releases every connection App holds.
func (a *App) Close(ctx context.Context) {
	if closer, ok := a.Store.(interface{ Close(context.Context) error }); ok {
		if err := closer.Close(ctx); err != nil {
			a.Logger.Warn().Err(err).Msg("store close failed")
		}
	}
	if err := a.Bus.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("bus close failed")
	}
}

// RefreshLoop reloads the catalog and rebuilds the dependency graph
// every interval and on SIGHUP, the background refresh spec.md §5 calls for.
func RefreshLoop(ctx context.Context, a *App, interval time.Duration, logger zerolog.Logger) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-hup:
			logger.Info().Msg("SIGHUP received, refreshing catalog")
		}
		if err := a.Catalog.Refresh(ctx); err != nil {
			logger.Error().Err(err).Msg("catalog refresh failed")
			continue
		}
		a.Graph.Refresh(a.Catalog.Snapshot())
	}
}

// noopLLMClient lets the pipeline boot (and relevance filtering fail
// open) even when no vendor key is configured, rather than making LLM
// access mandatory for every command (e.g. `seed`).
type noopLLMClient struct{}

func (noopLLMClient) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	return "", fmt.Errorf("no LLM client configured")
}

func (noopLLMClient) Embed(ctx context.Context, text string) ([]float64, error) {
	return nil, fmt.Errorf("no LLM client configured")
}
