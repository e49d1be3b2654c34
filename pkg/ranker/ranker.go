// Package ranker implements SupplierRanker: weighted multi-factor scoring
// and ranking of alternate suppliers for a disrupted supplier, per
// spec.md §4.9 and the original supplier_finder.py.
package ranker

import (
	"math"
	"sort"

	"github.com/riskpipe/supplychain/pkg/model"
)

// Weights for each scored factor, summing to 1.0 (spec.md §4.9 table).
const (
	weightGeo         = 0.20
	weightCapacity    = 0.25
	weightRelationship = 0.20
	weightESG         = 0.10
	weightFinancial   = 0.10
	weightSwitching   = 0.05
	weightLeadTime    = 0.10
)

// Factors is the per-candidate breakdown behind its final score.
type Factors struct {
	GeographicDiversity float64
	Capacity            float64
	Relationship        float64
	ESG                 float64
	Financial           float64
	SwitchingCost       float64
	LeadTime            float64
}

func (f Factors) asMap() map[string]float64 {
	return map[string]float64{
		"geographic_diversity": round2(f.GeographicDiversity),
		"capacity":             round2(f.Capacity),
		"relationship":         round2(f.Relationship),
		"esg":                  round2(f.ESG),
		"financial":            round2(f.Financial),
		"switching_cost":       round2(f.SwitchingCost),
		"lead_time":            round2(f.LeadTime),
	}
}

// Candidates selects every supplier able to serve as an alternate for
// the disrupted supplier: same company, offers the material with an
// active, alternate or pre_qualified status (Supplier.AvailableForMaterial),
// and not the disrupted supplier itself.
func Candidates(catalog []model.Supplier, disrupted model.Supplier, material string) []model.Supplier {
	out := make([]model.Supplier, 0, len(catalog))
	for _, s := range catalog {
		if s.ID == disrupted.ID {
			continue
		}
		if s.CompanyID != disrupted.CompanyID {
			continue
		}
		if !s.AvailableForMaterial(material) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Score computes a candidate's weighted factor breakdown and its final
// score scaled to 0-10, exactly as spec.md §4.9.
func Score(candidate, disrupted model.Supplier, requiredVolume float64) (float64, Factors) {
	geo := 0.3
	if candidate.Country != disrupted.Country {
		geo = 1.0
	}

	cap := 0.5
	if candidate.MaxCapacity > 0 && requiredVolume > 0 {
		cap = float64(candidate.MaxCapacity) / requiredVolume
		if cap > 1.0 {
			cap = 1.0
		}
	}

	rel := 0.4
	switch {
	case candidate.ApprovedVendor:
		rel = 1.0
	case candidate.PreQualified:
		rel = 0.8
	}

	esg := candidate.ESGScore / 100.0
	if candidate.ESGScore == 0 {
		esg = 0.5
	}

	financial := candidate.FinancialHealthScore / 10.0
	if candidate.FinancialHealthScore == 0 {
		financial = 0.5
	}

	switchCost := candidate.SwitchingCostEstimate
	if switchCost == 0 {
		switchCost = 5.0
	}
	switchScore := 1.0 - switchCost/10.0

	leadWeeks := candidate.LeadTimeWeeks
	if leadWeeks == 0 {
		leadWeeks = 8
	}
	leadScore := 1.0 / (1.0 + float64(leadWeeks)/4.0)

	factors := Factors{
		GeographicDiversity: geo,
		Capacity:            cap,
		Relationship:        rel,
		ESG:                 esg,
		Financial:           financial,
		SwitchingCost:       switchScore,
		LeadTime:            leadScore,
	}

	final := (geo*weightGeo + cap*weightCapacity + rel*weightRelationship +
		esg*weightESG + financial*weightFinancial + switchScore*weightSwitching +
		leadScore*weightLeadTime) * 10

	return round2(final), factors
}

// Rank scores every candidate and returns them sorted descending by
// score, tiebroken by ascending lead time, then approved_vendor true
// first, then name ascending — the exact chain spec.md §4.9 documents.
// Only the top maxResults are returned.
func Rank(candidates []model.Supplier, disrupted model.Supplier, requiredVolume float64, maxResults int) []model.AlternateRec {
	type scored struct {
		supplier model.Supplier
		score    float64
		factors  Factors
	}

	results := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		score, factors := Score(c, disrupted, requiredVolume)
		results = append(results, scored{supplier: c, score: score, factors: factors})
	}

	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.supplier.LeadTimeWeeks != b.supplier.LeadTimeWeeks {
			return a.supplier.LeadTimeWeeks < b.supplier.LeadTimeWeeks
		}
		if a.supplier.ApprovedVendor != b.supplier.ApprovedVendor {
			return a.supplier.ApprovedVendor
		}
		return a.supplier.Name < b.supplier.Name
	})

	if maxResults > 0 && len(results) > maxResults {
		results = results[:maxResults]
	}

	out := make([]model.AlternateRec, 0, len(results))
	for i, r := range results {
		out = append(out, model.AlternateRec{
			SupplierID:   r.supplier.ID,
			SupplierName: r.supplier.Name,
			Score:        r.score,
			Factors:      r.factors.asMap(),
			Rank:         i + 1,
		})
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
