package graph

import (
	"math"
	"testing"

	"github.com/riskpipe/supplychain/pkg/model"
)

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

// Scenario E: propagation through a two-tier chain, Upstream(U) →
// Supplier(S1, single-source) → Company(C), with origin = U.
func TestPropagate_ScenarioE_TwoTierChain(t *testing.T) {
	company := model.CompanyProfile{ID: "C", Name: "Acme"}
	suppliers := []model.Supplier{
		{
			ID:              "S1",
			Name:            "S1",
			Tier:            1,
			SupplyVolumePct: 60,
			IsSingleSource:  true,
			Supplies:        []string{"widgets"},
			UpstreamSuppliers: []model.UpstreamSupplier{
				{Name: "U", SupplyVolumePct: 100},
			},
		},
	}

	g := Build(company, suppliers)
	upstreamID := "S1/upstream/U"

	result := Propagate(g, upstreamID, 8.0, 1.0)

	if !almostEqual(result[upstreamID], 8.0) {
		t.Errorf("origin score = %v, want 8.0", result[upstreamID])
	}
	if !almostEqual(result["S1"], 10.0) {
		t.Errorf("S1 score = %v, want 10.0", result["S1"])
	}
	if !almostEqual(result["C"], 6.0) {
		t.Errorf("C score = %v, want 6.0", result["C"])
	}
}

// Testable property 6: propagation monotonicity — every propagated
// node's score is at most the origin score, and BFS re-queue only ever
// improves (never decreases) a node's recorded score.
func TestPropagate_Monotonicity(t *testing.T) {
	company := model.CompanyProfile{ID: "C", Name: "Acme"}
	suppliers := []model.Supplier{
		{ID: "S1", Name: "S1", Tier: 1, SupplyVolumePct: 90, IsSingleSource: true, Supplies: []string{"x"}},
		{ID: "S2", Name: "S2", Tier: 1, SupplyVolumePct: 40, IsSingleSource: false, Supplies: []string{"x"},
			UpstreamSuppliers: []model.UpstreamSupplier{{Name: "U1", SupplyVolumePct: 80}}},
	}
	g := Build(company, suppliers)

	const s0 = 9.0
	result := Propagate(g, "S1", s0, 1.0)

	for node, score := range result {
		if score > s0+1e-9 {
			t.Errorf("node %s score %v exceeds origin score %v", node, score, s0)
		}
	}

	// A second propagation run from the same origin must reproduce the
	// same (not lower) scores — BFS order is deterministic given a fixed
	// graph.
	result2 := Propagate(g, "S1", s0, 1.0)
	for node, score := range result {
		if other, ok := result2[node]; !ok || other < score-1e-9 {
			t.Errorf("node %s regressed across propagation runs: %v -> %v", node, score, other)
		}
	}
}

// A higher-weight path into a node must carry a higher score to it than
// a lower-weight path from the same origin score.
func TestPropagate_HigherWeightPathDominates(t *testing.T) {
	company := model.CompanyProfile{ID: "C", Name: "Acme"}
	// Both S1 and S2 feed the company directly, with different weights;
	// the same origin score is propagated from each in turn to verify the
	// higher-weight path's score at the company is the larger.
	suppliers := []model.Supplier{
		{ID: "S1", Name: "S1", Tier: 1, SupplyVolumePct: 20, Supplies: []string{"x"}},
		{ID: "S2", Name: "S2", Tier: 1, SupplyVolumePct: 90, Supplies: []string{"x"}},
	}
	g := Build(company, suppliers)

	// Propagate from S2 (higher weight into the company) alone first to
	// establish the expected dominant value.
	viaS2 := Propagate(g, "S2", 10.0, 1.0)
	expected := viaS2["C"]

	// Now propagate from S1 (lower weight) and confirm its contribution
	// to C, if it propagates at all, never exceeds what a dominant path
	// would produce from the same origin score.
	viaS1 := Propagate(g, "S1", 10.0, 1.0)
	if viaS1["C"] >= expected {
		t.Errorf("lower-weight path score %v should be less than higher-weight path score %v", viaS1["C"], expected)
	}
}

func TestBuild_EdgesAndWeights(t *testing.T) {
	company := model.CompanyProfile{ID: "C", Name: "Acme"}
	suppliers := []model.Supplier{
		{ID: "S1", Name: "S1", Tier: 1, SupplyVolumePct: 75, Supplies: []string{"steel"}},
	}
	g := Build(company, suppliers)

	if g.NodeCount() != 2 {
		t.Fatalf("NodeCount = %d, want 2", g.NodeCount())
	}
	edges := g.Successors("S1")
	if len(edges) != 1 || edges[0].To != "C" {
		t.Fatalf("S1 should have one edge to C, got %+v", edges)
	}
	if !almostEqual(edges[0].Weight, 0.75) {
		t.Errorf("edge weight = %v, want 0.75", edges[0].Weight)
	}
}
