package store

import (
	"context"
	"testing"

	"github.com/riskpipe/supplychain/pkg/model"
)

// TestMemoryStore_UpsertIdempotence exercises the storage primitive
// upsert-by-id dedup relies on: writing the same id repeatedly overwrites
// in place rather than accumulating copies. It does not exercise how the
// pipeline derives those ids on a replayed record (internal/worker's
// riskEventIDFor and alertIDFor).
func TestMemoryStore_UpsertIdempotence(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	article := model.Article{EventID: "evt-1", Headline: "Some risk"}
	for i := 0; i < 3; i++ {
		if err := m.UpsertArticle(ctx, article); err != nil {
			t.Fatalf("UpsertArticle attempt %d: %v", i, err)
		}
	}
	got, err := m.GetArticle(ctx, "evt-1")
	if err != nil {
		t.Fatalf("GetArticle: %v", err)
	}
	if got.Headline != "Some risk" {
		t.Errorf("article content mismatch after repeated upsert: %+v", got)
	}

	event := model.RiskEvent{ID: "risk-1", ArticleID: "evt-1", RiskScore: 5}
	for i := 0; i < 3; i++ {
		if err := m.UpsertRiskEvent(ctx, event); err != nil {
			t.Fatalf("UpsertRiskEvent attempt %d: %v", i, err)
		}
	}
	gotEvent, err := m.GetRiskEvent(ctx, "risk-1")
	if err != nil {
		t.Fatalf("GetRiskEvent: %v", err)
	}
	if gotEvent.RiskScore != 5 {
		t.Errorf("risk event content mismatch after repeated upsert: %+v", gotEvent)
	}

	alert := model.Alert{ID: "alert-1", RiskEventID: "risk-1", RiskScore: 5}
	for i := 0; i < 3; i++ {
		if err := m.UpsertAlert(ctx, alert); err != nil {
			t.Fatalf("UpsertAlert attempt %d: %v", i, err)
		}
	}
	gotAlert, err := m.GetAlert(ctx, "alert-1")
	if err != nil {
		t.Fatalf("GetAlert: %v", err)
	}
	if gotAlert.RiskEventID != "risk-1" {
		t.Errorf("alert content mismatch after repeated upsert: %+v", gotAlert)
	}
}

// Scenario D / invariant 1: MarkProcessed with an empty risk event ID
// (the "not a risk" path) must not leave the article linked to a
// RiskEvent or marked risk_extracted.
func TestMemoryStore_MarkProcessed_NoRiskLeavesArticleUnlinked(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	if err := m.UpsertArticle(ctx, model.Article{EventID: "evt-1"}); err != nil {
		t.Fatalf("UpsertArticle: %v", err)
	}
	if err := m.MarkProcessed(ctx, "evt-1", ""); err != nil {
		t.Fatalf("MarkProcessed: %v", err)
	}
	got, err := m.GetArticle(ctx, "evt-1")
	if err != nil {
		t.Fatalf("GetArticle: %v", err)
	}
	if !got.Processed {
		t.Error("expected Processed = true")
	}
	if got.RiskExtracted {
		t.Error("expected RiskExtracted = false when no risk event id given")
	}
	if got.RiskEventID != nil {
		t.Errorf("expected RiskEventID = nil, got %v", *got.RiskEventID)
	}
}

func TestMemoryStore_MarkProcessed_WithRiskLinksEvent(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	if err := m.UpsertArticle(ctx, model.Article{EventID: "evt-2"}); err != nil {
		t.Fatalf("UpsertArticle: %v", err)
	}
	if err := m.MarkProcessed(ctx, "evt-2", "risk-42"); err != nil {
		t.Fatalf("MarkProcessed: %v", err)
	}
	got, err := m.GetArticle(ctx, "evt-2")
	if err != nil {
		t.Fatalf("GetArticle: %v", err)
	}
	if !got.RiskExtracted {
		t.Error("expected RiskExtracted = true")
	}
	if got.RiskEventID == nil || *got.RiskEventID != "risk-42" {
		t.Errorf("expected RiskEventID = risk-42, got %v", got.RiskEventID)
	}
}
