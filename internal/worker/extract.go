package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/riskpipe/supplychain/internal/errkind"
	"github.com/riskpipe/supplychain/internal/metrics"
	"github.com/riskpipe/supplychain/pkg/catalog"
	"github.com/riskpipe/supplychain/pkg/llm"
	"github.com/riskpipe/supplychain/pkg/model"
	"github.com/riskpipe/supplychain/pkg/relevance"
	"github.com/riskpipe/supplychain/pkg/store"
	"github.com/riskpipe/supplychain/pkg/streambus"
)

// proTierRelevanceMargin selects the Pro model tier when an article's
// relevance score sits this close above the admission threshold — a
// low-confidence admission warrants the more careful model, per
// spec.md §4.5's "Pro tier is selectable for low-confidence... articles."
const proTierRelevanceMargin = 0.1

// ExtractStage consumes normalized_events, applies the relevance filter
// and LLM risk extraction, and publishes extracted RiskEvents to
// risk_entities, per spec.md §4.4/§4.5.
type ExtractStage struct {
	bus            *streambus.Bus
	catalog        *catalog.Cache
	filter         *relevance.Filter
	extractor      *llm.Extractor
	articles       store.ArticleStore
	events         store.RiskEventStore
	metrics        *metrics.Metrics
	handlerTimeout time.Duration
}

// NewExtractStage wires the collaborators the extraction stage needs.
// handlerTimeout bounds each record's handler invocation (spec.md §5);
// pass 0 to disable the bound.
func NewExtractStage(bus *streambus.Bus, cat *catalog.Cache, filter *relevance.Filter, extractor *llm.Extractor, articles store.ArticleStore, events store.RiskEventStore, m *metrics.Metrics, handlerTimeout time.Duration) *ExtractStage {
	return &ExtractStage{bus: bus, catalog: cat, filter: filter, extractor: extractor, articles: articles, events: events, metrics: m, handlerTimeout: handlerTimeout}
}

// Run blocks, processing normalized_events until ctx is cancelled.
func (s *ExtractStage) Run(ctx context.Context, logger zerolog.Logger) error {
	consumer := "extractor-" + uuid.NewString()
	return Run(ctx, s.bus, streambus.NormalizedEvents, streambus.RiskExtractionGroup, consumer, "extract", s.metrics, logger, s.handlerTimeout, func(ctx context.Context, rec streambus.Record) error {
		return s.handle(ctx, rec)
	})
}

func (s *ExtractStage) handle(ctx context.Context, rec streambus.Record) error {
	article, err := decodeArticle(rec)
	if err != nil {
		return errkind.Wrap(errkind.MalformedExternal, err)
	}

	snap := s.catalog.Snapshot()
	if snap == nil {
		return errkind.Wrap(errkind.TransientExternal, fmt.Errorf("catalog snapshot not ready"))
	}

	keywords := snap.BuildKeywords()
	score := s.filter.Score(ctx, article, keywords)
	if s.metrics != nil {
		s.metrics.RecordRelevanceScore(score)
	}

	// Invariant 1: an Article is persisted only after both relevance
	// acceptance and LLM risk classification. A non-relevant article is
	// skipped with no DB write at all, mirroring the original
	// workers.py's bare `return` on `not relevant`.
	if !s.filter.IsRelevant(score) {
		return nil
	}

	useProTier := score < s.filter.Threshold()+proTierRelevanceMargin
	extraction, err := s.extractor.Extract(ctx, article, snap.Company, snap.Suppliers, useProTier)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordLLMFailure(string(tierFor(useProTier)))
		}
		return err
	}

	if !extraction.IsRisk {
		// Not a risk: the article is persisted and marked processed,
		// with risk_extracted left false and no RiskEvent linked.
		if err := s.articles.UpsertArticle(ctx, article); err != nil {
			return errkind.Wrap(errkind.TransientExternal, fmt.Errorf("upsert article: %w", err))
		}
		return s.articles.MarkProcessed(ctx, article.EventID, "")
	}

	// RiskEvent.ID is derived deterministically from the article's event
	// id (not uuid.NewString()) so that StreamBus redelivering this
	// normalized_events record after a crashed/unacked attempt re-runs
	// this handler and upserts the SAME RiskEvent document instead of
	// inserting a second one (testable property 5; spec.md §5's
	// "idempotent writes keyed by ... article.event_id / risk_event_id").
	riskEventID := riskEventIDFor(article.EventID)

	article.Processed = true
	article.RiskExtracted = true
	article.RiskEventID = &riskEventID
	if err := s.articles.UpsertArticle(ctx, article); err != nil {
		return errkind.Wrap(errkind.TransientExternal, fmt.Errorf("upsert article: %w", err))
	}

	event := model.RiskEvent{
		ID:                       riskEventID,
		ArticleID:                article.EventID,
		CompanyID:                snap.Company.ID,
		Timestamp:                time.Now().UTC(),
		RiskType:                 extraction.RiskType,
		AffectedEntities:         extraction.AffectedEntities,
		AffectedSupplyChainNodes: extraction.AffectedSupplyChainNodes,
		Severity:                 extraction.Severity,
		IsConfirmed:              extraction.IsConfirmed,
		TimeHorizon:              extraction.TimeHorizon,
		Reasoning:                extraction.Reasoning,
		RecommendedAction:        extraction.RecommendedAction,
	}

	if err := s.events.UpsertRiskEvent(ctx, event); err != nil {
		return errkind.Wrap(errkind.TransientExternal, fmt.Errorf("upsert risk event: %w", err))
	}

	if _, err := s.bus.Append(ctx, streambus.RiskEntities, map[string]interface{}{
		"risk_event_id": event.ID,
	}); err != nil {
		return errkind.Wrap(errkind.TransientExternal, fmt.Errorf("append risk entity: %w", err))
	}

	return nil
}

func tierFor(useProTier bool) llm.ModelTier {
	if useProTier {
		return llm.TierPro
	}
	return llm.TierFlash
}

func decodeArticle(rec streambus.Record) (model.Article, error) {
	ts, err := time.Parse(time.RFC3339, rec.String("timestamp"))
	if err != nil {
		return model.Article{}, fmt.Errorf("parse timestamp: %w", err)
	}
	return model.Article{
		EventID:   rec.String("event_id"),
		Timestamp: ts,
		Source:    rec.String("source"),
		Headline:  rec.String("headline"),
		Body:      rec.String("body"),
		URL:       rec.String("url"),
	}, nil
}
