package worker

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/riskpipe/supplychain/pkg/catalog"
	"github.com/riskpipe/supplychain/pkg/llm"
	"github.com/riskpipe/supplychain/pkg/model"
	"github.com/riskpipe/supplychain/pkg/relevance"
	"github.com/riskpipe/supplychain/pkg/store"
	"github.com/riskpipe/supplychain/pkg/streambus"
)

// fakeLLMClient is a deterministic stand-in for the external LLM vendor.
type fakeLLMClient struct {
	response string
}

func (f *fakeLLMClient) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	return f.response, nil
}

func (f *fakeLLMClient) Embed(ctx context.Context, text string) ([]float64, error) {
	// A constant vector makes every article score cosine similarity 1.0
	// against the keyword vector, clearing the relevance gate
	// deterministically regardless of text content.
	return []float64{1, 0, 0}, nil
}

func newTestCatalog(t *testing.T) *catalog.Cache {
	t.Helper()
	mem := store.NewMemoryStore()
	mem.SeedCompany(model.CompanyProfile{
		ID:                  "acme",
		Name:                "Acme Corp",
		MaterialCriticality: map[string]int{"steel": 8},
	})
	mem.SeedSuppliers("acme", []model.Supplier{
		{ID: "s1", CompanyID: "acme", Name: "Steelworks Inc", Tier: 1, SupplyVolumePct: 80, Supplies: []string{"steel"}, Status: model.StatusActive},
	})
	cat := catalog.New("acme", catalog.NewStoreLoader(mem))
	if err := cat.Refresh(context.Background()); err != nil {
		t.Fatalf("catalog refresh: %v", err)
	}
	return cat
}

func testRecord(headline string) streambus.Record {
	return streambus.Record{
		ID: "1-0",
		Fields: map[string]string{
			"event_id":  "evt-1",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"source":    "NewsAPI",
			"headline":  headline,
			"body":      "Some article body describing a potential supply disruption scenario in detail.",
			"url":       "https://example.com/a",
		},
	}
}

// Scenario D: the LLM classifies the article as not a risk. The article
// must be marked processed without spawning a RiskEvent.
func TestExtractStage_ScenarioD_NotARisk(t *testing.T) {
	mem := store.NewMemoryStore()
	cat := newTestCatalog(t)
	client := &fakeLLMClient{response: `{"is_risk": false}`}

	stage := NewExtractStage(
		nil,
		cat,
		relevance.New(client, 0.3, time.Second, zerolog.Nop()),
		llm.NewExtractor(client, zerolog.Nop()),
		mem,
		mem,
		nil,
		0,
	)

	rec := testRecord("Routine quarterly earnings report released")
	if err := stage.handle(context.Background(), rec); err != nil {
		t.Fatalf("handle: %v", err)
	}

	article, err := mem.GetArticle(context.Background(), "evt-1")
	if err != nil {
		t.Fatalf("GetArticle: %v", err)
	}
	if !article.Processed {
		t.Error("article should be marked processed")
	}
	if article.RiskExtracted {
		t.Error("article should not be marked risk_extracted")
	}
	if article.RiskEventID != nil {
		t.Error("no RiskEvent should have been linked")
	}
}

// When the LLM classifies the article as a risk, Extract reports is_risk
// and resolves affected_supply_chain_nodes against the catalog. The
// stage's RiskEvent persistence and bus.Append are not run here
// (bus.Append requires a live stream backend).
func TestExtractStage_RiskExtraction_ResolvesSupplierNodes(t *testing.T) {
	mem := store.NewMemoryStore()
	cat := newTestCatalog(t)
	client := &fakeLLMClient{response: `{
		"is_risk": true,
		"risk_type": "operational",
		"affected_entities": ["Steelworks Inc"],
		"affected_supply_chain_nodes": ["steelworks inc"],
		"severity": "high",
		"is_confirmed": "true",
		"time_horizon": "days",
		"reasoning": "Factory fire reported near main plant.",
		"recommended_action": "Engage backup suppliers."
	}`}

	extractor := llm.NewExtractor(client, zerolog.Nop())
	filter := relevance.New(client, 0.3, time.Second, zerolog.Nop())
	snap := cat.Snapshot()

	extraction, err := extractor.Extract(context.Background(), model.Article{EventID: "evt-2", Headline: "Factory fire", Body: "body"}, snap.Company, snap.Suppliers, false)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !extraction.IsRisk {
		t.Fatal("expected is_risk = true")
	}
	// affected_supply_chain_nodes must resolve case-insensitively against
	// the catalog (spec.md §4.5).
	if len(extraction.AffectedSupplyChainNodes) != 1 || extraction.AffectedSupplyChainNodes[0] != "Steelworks Inc" {
		t.Errorf("affected_supply_chain_nodes = %v, want [Steelworks Inc]", extraction.AffectedSupplyChainNodes)
	}

	_ = filter // filter construction exercised; scoring is not checked here
	_ = mem    // store construction exercised; persistence covered in TestExtractStage_ScenarioD_NotARisk
}
