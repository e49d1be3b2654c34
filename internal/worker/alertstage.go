package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/riskpipe/supplychain/internal/errkind"
	"github.com/riskpipe/supplychain/internal/metrics"
	"github.com/riskpipe/supplychain/pkg/alert"
	"github.com/riskpipe/supplychain/pkg/catalog"
	"github.com/riskpipe/supplychain/pkg/graph"
	"github.com/riskpipe/supplychain/pkg/notify"
	"github.com/riskpipe/supplychain/pkg/store"
	"github.com/riskpipe/supplychain/pkg/streambus"
)

// AlertStage consumes risk_scores, propagates the score through the
// supplier graph if needed, synthesizes an Alert when the gating
// conditions hold, persists it, fans out notifications best-effort, and
// publishes to new_alerts, per spec.md §4.8.
type AlertStage struct {
	bus            *streambus.Bus
	catalog        *catalog.Cache
	graph          *graph.Cache
	synth          *alert.Synth
	events         store.RiskEventStore
	alerts         store.AlertStore
	notifier       *notify.Dispatcher
	metrics        *metrics.Metrics
	propThresh     float64
	handlerTimeout time.Duration
}

// NewAlertStage wires the collaborators the alert stage needs. graphCache
// must be kept fresh by the caller (refreshed whenever the catalog
// refreshes). handlerTimeout bounds each record's handler invocation
// (spec.md §5); pass 0 to disable the bound.
func NewAlertStage(bus *streambus.Bus, cat *catalog.Cache, graphCache *graph.Cache, synth *alert.Synth, events store.RiskEventStore, alerts store.AlertStore, notifier *notify.Dispatcher, m *metrics.Metrics, propagationThreshold float64, handlerTimeout time.Duration) *AlertStage {
	return &AlertStage{
		bus:            bus,
		catalog:        cat,
		graph:          graphCache,
		synth:          synth,
		events:         events,
		alerts:         alerts,
		notifier:       notifier,
		metrics:        m,
		propThresh:     propagationThreshold,
		handlerTimeout: handlerTimeout,
	}
}

// Run blocks, processing risk_scores until ctx is cancelled.
func (s *AlertStage) Run(ctx context.Context, logger zerolog.Logger) error {
	consumer := "alerter-" + uuid.NewString()
	return Run(ctx, s.bus, streambus.RiskScores, streambus.AlertGenerationGroup, consumer, "alert", s.metrics, logger, s.handlerTimeout, func(ctx context.Context, rec streambus.Record) error {
		return s.handle(ctx, rec, logger)
	})
}

func (s *AlertStage) handle(ctx context.Context, rec streambus.Record, logger zerolog.Logger) error {
	riskEventID := rec.String("risk_event_id")
	if riskEventID == "" {
		return errkind.Wrap(errkind.MalformedExternal, fmt.Errorf("risk_scores record missing risk_event_id"))
	}

	event, err := s.events.GetRiskEvent(ctx, riskEventID)
	if err != nil {
		return err
	}

	snap := s.catalog.Snapshot()
	if snap == nil {
		return errkind.Wrap(errkind.TransientExternal, fmt.Errorf("catalog snapshot not ready"))
	}

	if len(event.Propagation) == 0 && len(event.AffectedSupplyChainNodes) > 0 {
		g := s.graph.Snapshot()
		if g != nil {
			primary := event.AffectedSupplyChainNodes[0]
			if supplier, found := snap.SupplierByName(primary); found {
				event.Propagation = graph.Propagate(g, supplier.ID, event.RiskScore, s.propThresh)
				if err := s.events.UpsertRiskEvent(ctx, event); err != nil {
					return errkind.Wrap(errkind.TransientExternal, fmt.Errorf("persist propagation: %w", err))
				}
			}
		}
	}

	built, err := s.synth.Build(ctx, event, snap)
	if err != nil {
		return err
	}
	if built == nil {
		return nil
	}

	// Alert.ID is derived deterministically from its source RiskEvent id
	// so a redelivered risk_scores record upserts the same Alert on
	// retry instead of minting a second one (testable property 5).
	built.ID = alertIDFor(event.ID)
	built.CreatedAt = time.Now().UTC()

	if err := s.alerts.UpsertAlert(ctx, *built); err != nil {
		return errkind.Wrap(errkind.TransientExternal, fmt.Errorf("upsert alert: %w", err))
	}
	if s.metrics != nil {
		s.metrics.RecordAlertCreated(string(built.SeverityBand))
	}

	if s.notifier != nil {
		result := s.notifier.Dispatch(ctx, *built)
		if result.Failed > 0 {
			logger.Warn().Int("failed", result.Failed).Int("attempted", result.Attempted).Str("alert_id", built.ID).Msg("some notification channels failed")
		}
	}

	if _, err := s.bus.Append(ctx, streambus.NewAlerts, map[string]interface{}{
		"alert_id": built.ID,
		"band":     string(built.SeverityBand),
		"score":    built.RiskScore,
		"title":    built.Title,
	}); err != nil {
		return errkind.Wrap(errkind.TransientExternal, fmt.Errorf("append new alert: %w", err))
	}

	return nil
}
