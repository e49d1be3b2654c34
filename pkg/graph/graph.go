// Package graph builds the directed supplier dependency graph and
// propagates a risk score through it by BFS attenuation, per spec.md
// §4.7 and the original graph_propagation.py.
package graph

import (
	"math"

	"github.com/riskpipe/supplychain/pkg/model"
)

// NodeType distinguishes the company node from supplier nodes.
type NodeType string

const (
	NodeCompany  NodeType = "company"
	NodeSupplier NodeType = "supplier"
)

// Node is one vertex in the supply graph.
type Node struct {
	ID             string
	Type           NodeType
	Name           string
	Country        string
	Tier           int
	IsSingleSource bool
}

// Edge carries the dependency weight and material between two nodes,
// directed supplier → dependent.
type Edge struct {
	To       string
	Weight   float64
	Material string
}

// Graph is an immutable directed graph snapshot; rebuilds produce a new
// instance swapped in by the caller via atomic.Pointer (spec.md §5).
type Graph struct {
	CompanyNodeID string
	nodes         map[string]Node
	edges         map[string][]Edge
}

// Node looks up a node by ID.
func (g *Graph) Node(id string) (Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Successors returns the outbound edges of node id (nodes that depend
// on it).
func (g *Graph) Successors(id string) []Edge {
	return g.edges[id]
}

// NodeCount reports the number of vertices, for logging/metrics.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount reports the number of edges, for logging/metrics.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, es := range g.edges {
		n += len(es)
	}
	return n
}

// Build constructs the DAG: company + tier-1 suppliers (edges supplier →
// company) + declared tier-2+ upstreams (edges upstream → supplier),
// generalizing the original build_supply_graph's "tier-2+ connects to
// company" simplification into real tier-2+ → tier-1 edges, and giving
// inline upstream nodes stable IDs instead of ad hoc string
// concatenation.
func Build(company model.CompanyProfile, suppliers []model.Supplier) *Graph {
	g := &Graph{
		CompanyNodeID: company.ID,
		nodes:         make(map[string]Node),
		edges:         make(map[string][]Edge),
	}

	g.nodes[company.ID] = Node{ID: company.ID, Type: NodeCompany, Name: company.Name, Tier: 0}

	for _, s := range suppliers {
		material := "unknown"
		if len(s.Supplies) > 0 {
			material = s.Supplies[0]
		}

		g.nodes[s.ID] = Node{
			ID:             s.ID,
			Type:           NodeSupplier,
			Name:           s.Name,
			Country:        s.Country,
			Tier:           s.Tier,
			IsSingleSource: s.IsSingleSource,
		}

		weight := s.SupplyVolumePct / 100.0
		g.addEdge(s.ID, Edge{To: company.ID, Weight: weight, Material: material})

		for _, up := range s.UpstreamSuppliers {
			upstreamID := s.ID + "/upstream/" + up.Name
			g.nodes[upstreamID] = Node{
				ID:      upstreamID,
				Type:    NodeSupplier,
				Name:    up.Name,
				Country: up.Country,
				Tier:    s.Tier + 1,
			}
			upstreamWeight := up.SupplyVolumePct / 100.0
			g.addEdge(upstreamID, Edge{To: s.ID, Weight: upstreamWeight, Material: material})
		}
	}

	return g
}

func (g *Graph) addEdge(from string, e Edge) {
	g.edges[from] = append(g.edges[from], e)
}

// Propagate runs the BFS attenuation described in spec.md §4.7: starting
// from originNodeID with score s0, each successor's score is
// score * weight * (0.5 + 0.5*vulnerability), where vulnerability is 1.5
// for single-source nodes and 1.0 otherwise. A node is enqueued again
// whenever a higher score for it is discovered, so higher-weight paths
// dominate; scores at or below threshold do not propagate further.
func Propagate(g *Graph, originNodeID string, s0, threshold float64) map[string]float64 {
	out := map[string]float64{originNodeID: s0}
	visited := make(map[string]bool)
	queue := []queueItem{{node: originNodeID, score: s0}}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		if visited[item.node] {
			continue
		}
		visited[item.node] = true

		for _, edge := range g.Successors(item.node) {
			vuln := 1.0
			if succ, ok := g.Node(edge.To); ok && succ.IsSingleSource {
				vuln = 1.5
			}

			propagated := item.score * edge.Weight * (0.5 + 0.5*vuln)
			if propagated <= threshold {
				continue
			}

			rounded := math.Round(propagated*100) / 100
			if existing, ok := out[edge.To]; !ok || existing < rounded {
				out[edge.To] = rounded
				queue = append(queue, queueItem{node: edge.To, score: propagated})
			}
		}
	}

	return out
}

type queueItem struct {
	node  string
	score float64
}

// CriticalNode is one entry in FindCriticalNodes's result.
type CriticalNode struct {
	NodeID string
	Name   string
	FanIn  int
}

// FindCriticalNodes is a diagnostic-only signal, not wired into
// alerting: a dependency-fan-in heuristic standing in for the original's
// networkx.betweenness_centrality (full betweenness centrality is out of
// the scored pipeline's critical path). A node with many upstream
// suppliers feeding through it is a single point of failure candidate.
func FindCriticalNodes(g *Graph, topN int) []CriticalNode {
	fanIn := make(map[string]int)
	for _, edges := range g.edges {
		for _, e := range edges {
			fanIn[e.To]++
		}
	}

	results := make([]CriticalNode, 0, len(fanIn))
	for id, count := range fanIn {
		n, ok := g.Node(id)
		if !ok {
			continue
		}
		results = append(results, CriticalNode{NodeID: id, Name: n.Name, FanIn: count})
	}

	for i := 0; i < len(results); i++ {
		for j := i + 1; j < len(results); j++ {
			if results[j].FanIn > results[i].FanIn {
				results[i], results[j] = results[j], results[i]
			}
		}
	}

	if topN < len(results) {
		results = results[:topN]
	}
	return results
}
