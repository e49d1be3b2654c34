package scoring

import (
	"math"
	"testing"

	"github.com/riskpipe/supplychain/pkg/model"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// Scenario A (spec.md §8): critical pipeline disruption, single-source
// supplier, forced mitigation floor.
func TestScore_ScenarioA_CriticalSingleSource(t *testing.T) {
	company := model.CompanyProfile{
		MaterialCriticality: map[string]int{"LPG": 5},
		InventoryDays:       map[string]int{"LPG": 10},
	}
	supplier := model.Supplier{
		Supplies:        []string{"LPG"},
		SupplyVolumePct: 100,
		IsSingleSource:  true,
	}
	extraction := model.RiskExtraction{
		Severity:     model.SeverityCritical,
		IsConfirmed:  model.ConfirmedTrue,
		TimeHorizon:  model.HorizonImmediate,
		RiskType:     model.RiskOperational,
	}

	result := Score(Input{Extraction: extraction, Supplier: supplier, Company: company, NumAlternates: 0})

	if !almostEqual(result.Components.Probability, 0.95, 1e-9) {
		t.Errorf("probability = %v, want 0.95", result.Components.Probability)
	}
	if !almostEqual(result.Components.Impact, 3.75, 1e-6) {
		t.Errorf("impact = %v, want 3.75", result.Components.Impact)
	}
	if result.Components.Urgency != 2.0 {
		t.Errorf("urgency = %v, want 2.0", result.Components.Urgency)
	}
	if result.Components.Mitigation != 0.5 {
		t.Errorf("mitigation = %v, want 0.5 (single-source override)", result.Components.Mitigation)
	}
	if !almostEqual(result.Score, 14.25, 1e-6) {
		t.Errorf("score = %v, want 14.25", result.Score)
	}
	if result.Band != model.SeverityCritical {
		t.Errorf("band = %v, want critical", result.Band)
	}
}

// Scenario B: low-severity financial risk with abundant alternates stays
// below the alert threshold.
func TestScore_ScenarioB_LowSeverityAbundantAlternates(t *testing.T) {
	company := model.CompanyProfile{
		MaterialCriticality: map[string]int{"steel": 10},
		InventoryDays:       map[string]int{"steel": 15},
	}
	supplier := model.Supplier{
		Supplies:        []string{"steel"},
		SupplyVolumePct: 35,
		IsSingleSource:  false,
	}
	extraction := model.RiskExtraction{
		Severity:    model.SeverityLow,
		IsConfirmed: model.ConfirmedTrue,
		TimeHorizon: model.HorizonMonths,
	}

	result := Score(Input{Extraction: extraction, Supplier: supplier, Company: company, NumAlternates: 3})

	if !almostEqual(result.Components.Probability, 0.25, 1e-9) {
		t.Errorf("probability = %v, want 0.25", result.Components.Probability)
	}
	if !almostEqual(result.Components.Impact, 2.33, 5e-3) {
		t.Errorf("impact = %v, want ~2.33", result.Components.Impact)
	}
	if result.Components.Urgency != 0.5 {
		t.Errorf("urgency = %v, want 0.5", result.Components.Urgency)
	}
	if !almostEqual(result.Components.Mitigation, 1.6, 1e-9) {
		t.Errorf("mitigation = %v, want 1.6", result.Components.Mitigation)
	}
	if result.Score >= 3.0 {
		t.Errorf("score = %v, should be below alert_threshold_score (3.0)", result.Score)
	}
	if result.Band != model.SeverityLow {
		t.Errorf("band = %v, want low", result.Band)
	}
}

// Testable property 1: severity_band is a pure step function of score.
func TestBandFor_Thresholds(t *testing.T) {
	cases := []struct {
		score float64
		want  model.Severity
	}{
		{9.99, model.SeverityHigh},
		{10.0, model.SeverityCritical},
		{10.01, model.SeverityCritical},
		{5.99, model.SeverityMedium},
		{6.0, model.SeverityHigh},
		{2.99, model.SeverityLow},
		{3.0, model.SeverityMedium},
		{0, model.SeverityLow},
	}
	for _, c := range cases {
		if got := BandFor(c.score); got != c.want {
			t.Errorf("BandFor(%v) = %v, want %v", c.score, got, c.want)
		}
	}
}

// Testable property 2: mitigation/impact/probability stay in their
// documented ranges across a wide sweep of inputs.
func TestScore_ComponentsStayInRange(t *testing.T) {
	severities := []model.Severity{model.SeverityCritical, model.SeverityHigh, model.SeverityMedium, model.SeverityLow, "unknown"}
	confirmations := []model.Confirmation{model.ConfirmedTrue, model.ConfirmedFalse, model.ConfirmedUncertain, "unknown"}
	volumes := []float64{0, 25, 50, 100}
	criticalities := map[string]int{"a": 1, "b": 10}
	inventories := map[string]int{"a": 0, "b": 90}
	altCounts := []int{0, 1, 5, 20}

	for _, sev := range severities {
		for _, conf := range confirmations {
			for _, vol := range volumes {
				for mat, crit := range criticalities {
					for _, days := range inventories {
						for _, alts := range altCounts {
							for _, single := range []bool{true, false} {
								company := model.CompanyProfile{
									MaterialCriticality: map[string]int{mat: crit},
									InventoryDays:       map[string]int{mat: days},
								}
								supplier := model.Supplier{Supplies: []string{mat}, SupplyVolumePct: vol, IsSingleSource: single}
								extraction := model.RiskExtraction{Severity: sev, IsConfirmed: conf, TimeHorizon: model.HorizonWeeks}

								result := Score(Input{Extraction: extraction, Supplier: supplier, Company: company, NumAlternates: alts})

								if result.Components.Mitigation < 0.5 || result.Components.Mitigation > 2.0 {
									t.Fatalf("mitigation out of [0.5,2.0]: %v", result.Components.Mitigation)
								}
								if result.Components.Impact < 1 || result.Components.Impact > 10 {
									t.Fatalf("impact out of [1,10]: %v", result.Components.Impact)
								}
								if result.Components.Probability < 0 || result.Components.Probability > 1 {
									t.Fatalf("probability out of [0,1]: %v", result.Components.Probability)
								}
							}
						}
					}
				}
			}
		}
	}
}

func TestCountAlternateSuppliers(t *testing.T) {
	suppliers := []model.Supplier{
		{ID: "disrupted", Supplies: []string{"steel"}, Status: model.StatusActive},
		{ID: "alt1", Supplies: []string{"steel"}, Status: model.StatusActive},
		{ID: "alt2", Supplies: []string{"steel"}, Status: model.StatusPreQualified},
		{ID: "inactive1", Supplies: []string{"steel"}, Status: model.StatusInactive},
		{ID: "other-material", Supplies: []string{"aluminum"}, Status: model.StatusActive},
	}
	got := CountAlternateSuppliers(suppliers, "steel", "disrupted")
	if got != 2 {
		t.Errorf("CountAlternateSuppliers = %d, want 2", got)
	}
}
