// Package scoring implements the deterministic multi-factor risk scoring
// formula: (Probability × Impact × Urgency) / Mitigation.
package scoring

import (
	"math"

	"github.com/riskpipe/supplychain/pkg/model"
)

var probabilityBySeverity = map[model.Severity]float64{
	model.SeverityCritical: 0.95,
	model.SeverityHigh:     0.80,
	model.SeverityMedium:   0.55,
	model.SeverityLow:      0.25,
}

var confirmationMultiplier = map[model.Confirmation]float64{
	model.ConfirmedTrue:      1.0,
	model.ConfirmedUncertain: 0.7,
	model.ConfirmedFalse:     0.3,
}

var urgencyByHorizon = map[model.TimeHorizon]float64{
	model.HorizonImmediate: 2.0,
	model.HorizonDays:      1.5,
	model.HorizonWeeks:     1.0,
	model.HorizonMonths:    0.5,
}

// Result is the output of Score: the final risk score, its derived band,
// and the component breakdown used to compute it.
type Result struct {
	Score      float64
	Band       model.Severity
	Components model.RiskScoreComponents
}

// Input gathers everything Score needs beyond the extraction itself.
type Input struct {
	Extraction model.RiskExtraction
	Supplier   model.Supplier
	Company    model.CompanyProfile

	// NumAlternates is the count of other suppliers able to serve the
	// affected material right now (status active/alternate/pre_qualified,
	// excluding the affected supplier itself).
	NumAlternates int
}

// Score computes the risk score, band, and component breakdown for a
// single extracted risk event against one affected supplier.
func Score(in Input) Result {
	probability := probability(in.Extraction.Severity, in.Extraction.IsConfirmed)
	impact := impact(in.Supplier, in.Company)
	urgency := urgency(in.Extraction.TimeHorizon)
	mitigation := mitigation(in.Supplier, in.NumAlternates)

	raw := (probability * impact * urgency) / mitigation
	score := round2(raw)

	return Result{
		Score: score,
		Band:  BandFor(score),
		Components: model.RiskScoreComponents{
			Probability: round3(probability),
			Impact:      round2(impact),
			Urgency:     urgency,
			Mitigation:  mitigation,
		},
	}
}

func probability(severity model.Severity, confirmed model.Confirmation) float64 {
	base, ok := probabilityBySeverity[severity]
	if !ok {
		base = probabilityBySeverity[model.SeverityMedium]
	}
	mult, ok := confirmationMultiplier[confirmed]
	if !ok {
		mult = confirmationMultiplier[model.ConfirmedUncertain]
	}
	p := base * mult
	return clamp(p, 0, 1)
}

func impact(supplier model.Supplier, company model.CompanyProfile) float64 {
	dependency := supplier.SupplyVolumePct / 100.0

	material := "unknown"
	if len(supplier.Supplies) > 0 {
		material = supplier.Supplies[0]
	}

	criticality := 5
	if c, ok := company.MaterialCriticality[material]; ok {
		criticality = c
	}

	inventoryDays := 0
	if d, ok := company.InventoryDays[material]; ok {
		inventoryDays = d
	}
	buffer := 1.0 / (1.0 + float64(inventoryDays)/30.0)

	raw := dependency * (float64(criticality) / 10.0) * buffer * 10.0
	return clamp(raw, 1, 10)
}

func urgency(horizon model.TimeHorizon) float64 {
	if u, ok := urgencyByHorizon[horizon]; ok {
		return u
	}
	return urgencyByHorizon[model.HorizonWeeks]
}

func mitigation(supplier model.Supplier, numAlternates int) float64 {
	if supplier.IsSingleSource {
		return 0.5
	}
	m := 1.0 + math.Min(float64(numAlternates)*0.2, 1.0)
	return clamp(m, 0.5, 2.0)
}

// BandFor maps a numeric score to its severity band:
// score ≥ 10 → critical; ≥ 6 → high; ≥ 3 → medium; else low.
func BandFor(score float64) model.Severity {
	switch {
	case score >= 10:
		return model.SeverityCritical
	case score >= 6:
		return model.SeverityHigh
	case score >= 3:
		return model.SeverityMedium
	default:
		return model.SeverityLow
	}
}

// CountAlternateSuppliers counts suppliers in catalog (excluding the
// disrupted supplier) that offer material and are available for it.
func CountAlternateSuppliers(catalog []model.Supplier, material, disruptedSupplierID string) int {
	count := 0
	for _, s := range catalog {
		if s.ID == disruptedSupplierID {
			continue
		}
		if s.AvailableForMaterial(material) {
			count++
		}
	}
	return count
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
