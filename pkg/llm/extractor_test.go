package llm

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/riskpipe/supplychain/pkg/model"
)

type stubClient struct {
	response string
}

func (s *stubClient) GenerateJSON(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	return s.response, nil
}

func (s *stubClient) Embed(ctx context.Context, text string) ([]float64, error) {
	return []float64{1}, nil
}

func TestExtract_UnknownEnumsCoerceToFallbacks(t *testing.T) {
	client := &stubClient{response: `{
		"is_risk": true,
		"risk_type": "some_new_category_the_model_invented",
		"severity": "catastrophic",
		"is_confirmed": "maybe",
		"time_horizon": "next_decade",
		"reasoning": "test"
	}`}
	e := NewExtractor(client, zerolog.Nop())

	got, err := e.Extract(context.Background(), model.Article{Headline: "h", Body: "b"}, model.CompanyProfile{}, nil, false)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got.RiskType != model.RiskOther {
		t.Errorf("RiskType = %q, want other", got.RiskType)
	}
	if got.Severity != model.SeverityLow {
		t.Errorf("Severity = %q, want low", got.Severity)
	}
	if got.IsConfirmed != model.ConfirmedUncertain {
		t.Errorf("IsConfirmed = %q, want uncertain", got.IsConfirmed)
	}
	if got.TimeHorizon != model.HorizonWeeks {
		t.Errorf("TimeHorizon = %q, want weeks", got.TimeHorizon)
	}
}

func TestExtract_KnownEnumsPassThrough(t *testing.T) {
	client := &stubClient{response: `{
		"is_risk": true,
		"risk_type": "cybersecurity",
		"severity": "critical",
		"is_confirmed": "false",
		"time_horizon": "immediate"
	}`}
	e := NewExtractor(client, zerolog.Nop())

	got, err := e.Extract(context.Background(), model.Article{Headline: "h", Body: "b"}, model.CompanyProfile{}, nil, false)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got.RiskType != model.RiskCybersecurity {
		t.Errorf("RiskType = %q", got.RiskType)
	}
	if got.Severity != model.SeverityCritical {
		t.Errorf("Severity = %q", got.Severity)
	}
	if got.IsConfirmed != model.ConfirmedFalse {
		t.Errorf("IsConfirmed = %q", got.IsConfirmed)
	}
	if got.TimeHorizon != model.HorizonImmediate {
		t.Errorf("TimeHorizon = %q", got.TimeHorizon)
	}
}

func TestExtract_SupplierNodesFilteredToCatalogMatches(t *testing.T) {
	client := &stubClient{response: `{
		"is_risk": true,
		"affected_supply_chain_nodes": ["STEELWORKS INC", "Some Random Company", "steelworks inc"]
	}`}
	e := NewExtractor(client, zerolog.Nop())
	suppliers := []model.Supplier{{Name: "Steelworks Inc"}}

	got, err := e.Extract(context.Background(), model.Article{}, model.CompanyProfile{}, suppliers, false)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(got.AffectedSupplyChainNodes) != 2 {
		t.Fatalf("expected 2 matches (case-insensitive, both occurrences kept), got %v", got.AffectedSupplyChainNodes)
	}
	for _, n := range got.AffectedSupplyChainNodes {
		if n != "Steelworks Inc" {
			t.Errorf("node = %q, want catalog-cased Steelworks Inc", n)
		}
	}
}

func TestExtract_ProseWrappedJSONIsExtracted(t *testing.T) {
	client := &stubClient{response: "Here is the analysis:\n```json\n{\"is_risk\": false}\n```\nHope that helps."}
	e := NewExtractor(client, zerolog.Nop())

	got, err := e.Extract(context.Background(), model.Article{}, model.CompanyProfile{}, nil, false)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got.IsRisk {
		t.Error("expected IsRisk = false")
	}
}
