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
	"github.com/riskpipe/supplychain/pkg/model"
	"github.com/riskpipe/supplychain/pkg/scoring"
	"github.com/riskpipe/supplychain/pkg/store"
	"github.com/riskpipe/supplychain/pkg/streambus"
)

// ScoreStage consumes risk_entities, computes the deterministic risk
// score against the primary affected supplier, updates the RiskEvent in
// place, and publishes to risk_scores, per spec.md §4.6.
type ScoreStage struct {
	bus            *streambus.Bus
	catalog        *catalog.Cache
	events         store.RiskEventStore
	metrics        *metrics.Metrics
	handlerTimeout time.Duration
}

// NewScoreStage wires the collaborators the scoring stage needs.
// handlerTimeout bounds each record's handler invocation (spec.md §5);
// pass 0 to disable the bound.
func NewScoreStage(bus *streambus.Bus, cat *catalog.Cache, events store.RiskEventStore, m *metrics.Metrics, handlerTimeout time.Duration) *ScoreStage {
	return &ScoreStage{bus: bus, catalog: cat, events: events, metrics: m, handlerTimeout: handlerTimeout}
}

// Run blocks, processing risk_entities until ctx is cancelled.
func (s *ScoreStage) Run(ctx context.Context, logger zerolog.Logger) error {
	consumer := "scorer-" + uuid.NewString()
	return Run(ctx, s.bus, streambus.RiskEntities, streambus.RiskScoringGroup, consumer, "score", s.metrics, logger, s.handlerTimeout, func(ctx context.Context, rec streambus.Record) error {
		return s.handle(ctx, rec)
	})
}

func (s *ScoreStage) handle(ctx context.Context, rec streambus.Record) error {
	riskEventID := rec.String("risk_event_id")
	if riskEventID == "" {
		return errkind.Wrap(errkind.MalformedExternal, fmt.Errorf("risk_entities record missing risk_event_id"))
	}

	event, err := s.events.GetRiskEvent(ctx, riskEventID)
	if err != nil {
		return err
	}

	snap := s.catalog.Snapshot()
	if snap == nil {
		return errkind.Wrap(errkind.TransientExternal, fmt.Errorf("catalog snapshot not ready"))
	}

	primaryName := ""
	if len(event.AffectedSupplyChainNodes) > 0 {
		primaryName = event.AffectedSupplyChainNodes[0]
	}

	supplier, found := snap.SupplierByName(primaryName)
	if !found {
		// No resolvable supplier to score impact/mitigation against — the
		// extraction stage already filtered nodes to known supplier names,
		// so an empty list here means the risk doesn't touch a specific
		// node. Nothing more to score; drop without scoring.
		return errkind.Wrap(errkind.NotFound, fmt.Errorf("no affected supplier to score"))
	}

	material := "unknown"
	if len(supplier.Supplies) > 0 {
		material = supplier.Supplies[0]
	}
	numAlternates := scoring.CountAlternateSuppliers(snap.Suppliers, material, supplier.ID)

	result := scoring.Score(scoring.Input{
		Extraction:    extractionFromEvent(event),
		Supplier:      supplier,
		Company:       snap.Company,
		NumAlternates: numAlternates,
	})

	event.RiskScoreComponents = result.Components
	event.RiskScore = result.Score
	event.SeverityBand = result.Band

	if err := s.events.UpsertRiskEvent(ctx, event); err != nil {
		return errkind.Wrap(errkind.TransientExternal, fmt.Errorf("upsert scored risk event: %w", err))
	}

	if _, err := s.bus.Append(ctx, streambus.RiskScores, map[string]interface{}{
		"risk_event_id": event.ID,
		"score":         event.RiskScore,
		"band":          string(event.SeverityBand),
		"supplier_name": supplier.Name,
	}); err != nil {
		return errkind.Wrap(errkind.TransientExternal, fmt.Errorf("append risk score: %w", err))
	}

	return nil
}

// extractionFromEvent projects the fields scoring.Score needs back out of
// an already-persisted RiskEvent, since the scoring stage works from the
// stream handoff rather than the original LLM extraction.
func extractionFromEvent(event model.RiskEvent) model.RiskExtraction {
	return model.RiskExtraction{
		Severity:    event.Severity,
		IsConfirmed: event.IsConfirmed,
		TimeHorizon: event.TimeHorizon,
	}
}
